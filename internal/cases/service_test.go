package cases

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/rmarroquin/casedesk-backend/internal/events"
	"github.com/rmarroquin/casedesk-backend/pkg/db/models"
	"github.com/rmarroquin/casedesk-backend/pkg/enums"
	pkgerrors "github.com/rmarroquin/casedesk-backend/pkg/errors"
	"github.com/rmarroquin/casedesk-backend/pkg/outbox"
	"github.com/rmarroquin/casedesk-backend/pkg/pagination"
)

type stubTxRunner struct{}

func (stubTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

type stubCaseRepo struct {
	record        *models.CaseRecord
	statusMissing bool
	claimDenied   bool

	claims      []uuid.UUID
	updates     []enums.CaseStatus
	lastFilters ListFilters
}

func (r *stubCaseRepo) WithTx(tx *gorm.DB) Repository { return r }

func (r *stubCaseRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.CaseRecord, error) {
	if r.record == nil || r.record.ID != id {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *r.record
	return &copied, nil
}

func (r *stubCaseRepo) List(ctx context.Context, params pagination.Params, filters ListFilters) (*CaseList, error) {
	r.lastFilters = filters
	return &CaseList{}, nil
}

func (r *stubCaseRepo) FindPendingNew(ctx context.Context, newStatus enums.CaseStatus, limit int) ([]models.CaseRecord, error) {
	return nil, nil
}

func (r *stubCaseRepo) Claim(ctx context.Context, caseID, agentID uuid.UUID, assignedStatus enums.CaseStatus, at time.Time) (bool, error) {
	if r.claimDenied {
		return false, nil
	}
	r.claims = append(r.claims, agentID)
	return true, nil
}

func (r *stubCaseRepo) UpdateStatus(ctx context.Context, caseID uuid.UUID, next enums.CaseStatus, responded bool, at time.Time) error {
	r.updates = append(r.updates, next)
	return nil
}

func (r *stubCaseRepo) ResolveStatus(ctx context.Context, code enums.CaseStatus) (*models.CaseStatusRef, error) {
	if r.statusMissing {
		return nil, gorm.ErrRecordNotFound
	}
	return &models.CaseStatusRef{Code: code, Label: string(code)}, nil
}

type stubAgents struct {
	agent  *models.User
	bumped []uuid.UUID
}

func (a *stubAgents) FindByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	if a.agent == nil || a.agent.ID != id {
		return nil, gorm.ErrRecordNotFound
	}
	return a.agent, nil
}

func (a *stubAgents) BumpLastAssigned(ctx context.Context, tx *gorm.DB, id uuid.UUID, at time.Time) error {
	a.bumped = append(a.bumped, id)
	return nil
}

type stubEvents struct {
	appended []events.AppendInput
}

func (e *stubEvents) Append(ctx context.Context, tx *gorm.DB, input events.AppendInput) error {
	e.appended = append(e.appended, input)
	return nil
}

func (e *stubEvents) ListByCase(ctx context.Context, caseID uuid.UUID, limit int) ([]models.CaseEvent, error) {
	return nil, nil
}

type stubOutbox struct {
	emitted []outbox.DomainEvent
}

func (o *stubOutbox) Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error {
	o.emitted = append(o.emitted, event)
	return nil
}

func newCaseService(t *testing.T, repo *stubCaseRepo, agents *stubAgents, appender *stubEvents, emitter *stubOutbox) *Service {
	t.Helper()
	svc, err := NewService(ServiceParams{
		Repo:   repo,
		TX:     stubTxRunner{},
		Agents: agents,
		Events: appender,
		Outbox: emitter,
	})
	if err != nil {
		t.Fatalf("building case service: %v", err)
	}
	return svc
}

func caseFixture(status enums.CaseStatus, agentID *uuid.UUID) *models.CaseRecord {
	now := time.Now().UTC()
	return &models.CaseRecord{
		ID:              uuid.New(),
		CaseNumber:      "CASE-100",
		Subject:         "printer on fire",
		RequesterEmail:  "requester@example.com",
		Status:          status,
		AssignedAgentID: agentID,
		ReceivedAt:      now.Add(-2 * time.Hour),
		LastActivityAt:  now.Add(-time.Hour),
	}
}

func activeAgent() *models.User {
	return &models.User{
		ID:                uuid.New(),
		Email:             "agent@example.com",
		Role:              enums.UserRoleAgent,
		IsActive:          true,
		AutoAssignEnabled: true,
	}
}

func TestListInboxPinsAgentsToOwnCases(t *testing.T) {
	actorID := uuid.New()
	repo := &stubCaseRepo{}
	svc := newCaseService(t, repo, &stubAgents{}, &stubEvents{}, &stubOutbox{})

	_, err := svc.ListInbox(context.Background(), ListInput{
		Filters:   ListFilters{Unassigned: true},
		ActorID:   actorID,
		ActorRole: enums.UserRoleAgent,
	})
	if err != nil {
		t.Fatalf("list inbox: %v", err)
	}
	if repo.lastFilters.AssignedAgentID == nil || *repo.lastFilters.AssignedAgentID != actorID {
		t.Fatalf("expected agent filter pinned to actor, got %v", repo.lastFilters.AssignedAgentID)
	}
	if repo.lastFilters.Unassigned {
		t.Fatal("agents must not see the unassigned queue")
	}
}

func TestListInboxSupervisorKeepsFilters(t *testing.T) {
	repo := &stubCaseRepo{}
	svc := newCaseService(t, repo, &stubAgents{}, &stubEvents{}, &stubOutbox{})

	_, err := svc.ListInbox(context.Background(), ListInput{
		Filters:   ListFilters{Unassigned: true},
		ActorID:   uuid.New(),
		ActorRole: enums.UserRoleSupervisor,
	})
	if err != nil {
		t.Fatalf("list inbox: %v", err)
	}
	if !repo.lastFilters.Unassigned {
		t.Fatal("supervisor unassigned filter should pass through")
	}
}

func TestGetDetailForbiddenForOtherAgent(t *testing.T) {
	owner := uuid.New()
	record := caseFixture(enums.CaseStatusAssigned, &owner)
	repo := &stubCaseRepo{record: record}
	svc := newCaseService(t, repo, &stubAgents{}, &stubEvents{}, &stubOutbox{})

	_, err := svc.GetDetail(context.Background(), record.ID, uuid.New(), enums.UserRoleAgent)
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeForbidden {
		t.Fatalf("expected FORBIDDEN, got %v", err)
	}
}

func TestChangeStatusFollowsWhitelist(t *testing.T) {
	actorID := uuid.New()
	record := caseFixture(enums.CaseStatusAssigned, &actorID)
	repo := &stubCaseRepo{record: record}
	appender := &stubEvents{}
	emitter := &stubOutbox{}
	svc := newCaseService(t, repo, &stubAgents{}, appender, emitter)

	updated, err := svc.ChangeStatus(context.Background(), StatusChangeInput{
		CaseID:    record.ID,
		Next:      enums.CaseStatusInProgress,
		ActorID:   actorID,
		ActorRole: enums.UserRoleAgent,
	})
	if err != nil {
		t.Fatalf("change status: %v", err)
	}
	if updated.Status != enums.CaseStatusInProgress {
		t.Fatalf("expected in_progress, got %s", updated.Status)
	}
	if len(repo.updates) != 1 || repo.updates[0] != enums.CaseStatusInProgress {
		t.Fatalf("expected one status write, got %v", repo.updates)
	}
	if len(appender.appended) != 1 || appender.appended[0].EventType != enums.EventCaseStatusChanged {
		t.Fatalf("expected one STATUS_CHANGED audit event, got %v", appender.appended)
	}
	if len(emitter.emitted) != 1 || emitter.emitted[0].EventType != enums.EventCaseStatusChangedOutbox {
		t.Fatalf("expected one outbox event, got %v", emitter.emitted)
	}
}

func TestChangeStatusIllegalEdgeIsStateConflict(t *testing.T) {
	record := caseFixture(enums.CaseStatusNew, nil)
	repo := &stubCaseRepo{record: record}
	svc := newCaseService(t, repo, &stubAgents{}, &stubEvents{}, &stubOutbox{})

	_, err := svc.ChangeStatus(context.Background(), StatusChangeInput{
		CaseID:    record.ID,
		Next:      enums.CaseStatusClosed,
		ActorID:   uuid.New(),
		ActorRole: enums.UserRoleSupervisor,
	})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("expected STATE_CONFLICT, got %v", err)
	}
	details, ok := typed.Details().(map[string]any)
	if !ok {
		t.Fatalf("expected from/to details, got %v", typed.Details())
	}
	if details["from"] != enums.CaseStatusNew || details["to"] != enums.CaseStatusClosed {
		t.Fatalf("unexpected edge details: %v", details)
	}
	if len(repo.updates) != 0 {
		t.Fatal("rejected transition must not write")
	}
}

func TestChangeStatusAgentCannotMoveForeignCase(t *testing.T) {
	owner := uuid.New()
	record := caseFixture(enums.CaseStatusAssigned, &owner)
	repo := &stubCaseRepo{record: record}
	svc := newCaseService(t, repo, &stubAgents{}, &stubEvents{}, &stubOutbox{})

	_, err := svc.ChangeStatus(context.Background(), StatusChangeInput{
		CaseID:    record.ID,
		Next:      enums.CaseStatusInProgress,
		ActorID:   uuid.New(),
		ActorRole: enums.UserRoleAgent,
	})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeForbidden {
		t.Fatalf("expected FORBIDDEN, got %v", err)
	}
}

func TestChangeStatusRespondedSetsFlag(t *testing.T) {
	actorID := uuid.New()
	record := caseFixture(enums.CaseStatusInProgress, &actorID)
	repo := &stubCaseRepo{record: record}
	svc := newCaseService(t, repo, &stubAgents{}, &stubEvents{}, &stubOutbox{})

	updated, err := svc.ChangeStatus(context.Background(), StatusChangeInput{
		CaseID:    record.ID,
		Next:      enums.CaseStatusResponded,
		ActorID:   actorID,
		ActorRole: enums.UserRoleAgent,
	})
	if err != nil {
		t.Fatalf("change status: %v", err)
	}
	if !updated.Responded {
		t.Fatal("responded flag should flip on the responded transition")
	}
}

func TestManualAssignClaimsAndAudits(t *testing.T) {
	record := caseFixture(enums.CaseStatusNew, nil)
	agent := activeAgent()
	repo := &stubCaseRepo{record: record}
	agents := &stubAgents{agent: agent}
	appender := &stubEvents{}
	emitter := &stubOutbox{}
	svc := newCaseService(t, repo, agents, appender, emitter)

	actorID := uuid.New()
	assigned, err := svc.ManualAssign(context.Background(), ManualAssignInput{
		CaseID:    record.ID,
		AgentID:   agent.ID,
		ActorID:   actorID,
		ActorRole: enums.UserRoleSupervisor,
	})
	if err != nil {
		t.Fatalf("manual assign: %v", err)
	}
	if assigned.AssignedAgentID == nil || *assigned.AssignedAgentID != agent.ID {
		t.Fatalf("expected case assigned to agent, got %v", assigned.AssignedAgentID)
	}
	if len(repo.claims) != 1 || repo.claims[0] != agent.ID {
		t.Fatalf("expected one claim for the agent, got %v", repo.claims)
	}
	if len(agents.bumped) != 1 || agents.bumped[0] != agent.ID {
		t.Fatalf("expected rotation bump for the agent, got %v", agents.bumped)
	}
	if len(appender.appended) != 1 || appender.appended[0].EventType != enums.EventCaseAssigned {
		t.Fatalf("expected one ASSIGNED audit event, got %v", appender.appended)
	}
	if appender.appended[0].ActorUserID == nil || *appender.appended[0].ActorUserID != actorID {
		t.Fatal("manual assignment must record the acting supervisor")
	}
	if len(emitter.emitted) != 1 || emitter.emitted[0].EventType != enums.EventCaseAssignedOutbox {
		t.Fatalf("expected one outbox event, got %v", emitter.emitted)
	}
}

func TestManualAssignLostRaceIsConflict(t *testing.T) {
	record := caseFixture(enums.CaseStatusNew, nil)
	agent := activeAgent()
	repo := &stubCaseRepo{record: record, claimDenied: true}
	svc := newCaseService(t, repo, &stubAgents{agent: agent}, &stubEvents{}, &stubOutbox{})

	_, err := svc.ManualAssign(context.Background(), ManualAssignInput{
		CaseID:    record.ID,
		AgentID:   agent.ID,
		ActorID:   uuid.New(),
		ActorRole: enums.UserRoleSupervisor,
	})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeConflict {
		t.Fatalf("expected CONFLICT, got %v", err)
	}
}

func TestManualAssignClosedCaseIsStateConflict(t *testing.T) {
	record := caseFixture(enums.CaseStatusClosed, nil)
	agent := activeAgent()
	repo := &stubCaseRepo{record: record}
	svc := newCaseService(t, repo, &stubAgents{agent: agent}, &stubEvents{}, &stubOutbox{})

	_, err := svc.ManualAssign(context.Background(), ManualAssignInput{
		CaseID:    record.ID,
		AgentID:   agent.ID,
		ActorID:   uuid.New(),
		ActorRole: enums.UserRoleAdmin,
	})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("expected STATE_CONFLICT, got %v", err)
	}
}

func TestManualAssignRejectsInactiveTarget(t *testing.T) {
	record := caseFixture(enums.CaseStatusNew, nil)
	agent := activeAgent()
	agent.IsActive = false
	repo := &stubCaseRepo{record: record}
	svc := newCaseService(t, repo, &stubAgents{agent: agent}, &stubEvents{}, &stubOutbox{})

	_, err := svc.ManualAssign(context.Background(), ManualAssignInput{
		CaseID:    record.ID,
		AgentID:   agent.ID,
		ActorID:   uuid.New(),
		ActorRole: enums.UserRoleSupervisor,
	})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected VALIDATION_ERROR, got %v", err)
	}
}

func TestManualAssignMissingStatusCatalog(t *testing.T) {
	record := caseFixture(enums.CaseStatusNew, nil)
	agent := activeAgent()
	repo := &stubCaseRepo{record: record, statusMissing: true}
	svc := newCaseService(t, repo, &stubAgents{agent: agent}, &stubEvents{}, &stubOutbox{})

	_, err := svc.ManualAssign(context.Background(), ManualAssignInput{
		CaseID:    record.ID,
		AgentID:   agent.ID,
		ActorID:   uuid.New(),
		ActorRole: enums.UserRoleAdmin,
	})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeConfiguration {
		t.Fatalf("expected CONFIGURATION_ERROR, got %v", err)
	}
}
