package cases

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/rmarroquin/casedesk-backend/internal/events"
	"github.com/rmarroquin/casedesk-backend/pkg/db/models"
	"github.com/rmarroquin/casedesk-backend/pkg/enums"
	pkgerrors "github.com/rmarroquin/casedesk-backend/pkg/errors"
	"github.com/rmarroquin/casedesk-backend/pkg/outbox"
	"github.com/rmarroquin/casedesk-backend/pkg/outbox/payloads"
	"github.com/rmarroquin/casedesk-backend/pkg/pagination"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type agentDirectory interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	BumpLastAssigned(ctx context.Context, tx *gorm.DB, id uuid.UUID, at time.Time) error
}

type eventAppender interface {
	Append(ctx context.Context, tx *gorm.DB, input events.AppendInput) error
	ListByCase(ctx context.Context, caseID uuid.UUID, limit int) ([]models.CaseEvent, error)
}

type outboxEmitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// allowedTransitions is the status whitelist agents move cases through. The
// new->assigned edge is owned by the assignment paths, not this map.
var allowedTransitions = map[enums.CaseStatus][]enums.CaseStatus{
	enums.CaseStatusAssigned:   {enums.CaseStatusInProgress},
	enums.CaseStatusInProgress: {enums.CaseStatusResponded, enums.CaseStatusClosed},
	enums.CaseStatusResponded:  {enums.CaseStatusClosed},
}

// ServiceParams configure the case service.
type ServiceParams struct {
	Repo   Repository
	TX     txRunner
	Agents agentDirectory
	Events eventAppender
	Outbox outboxEmitter
}

// Service exposes the portal's case operations.
type Service struct {
	repo   Repository
	tx     txRunner
	agents agentDirectory
	events eventAppender
	outbox outboxEmitter
	now    func() time.Time
}

// NewService builds a case service with the required dependencies.
func NewService(params ServiceParams) (*Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("cases repository required")
	}
	if params.TX == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Agents == nil {
		return nil, fmt.Errorf("agent directory required")
	}
	if params.Events == nil {
		return nil, fmt.Errorf("event appender required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox emitter required")
	}
	return &Service{
		repo:   params.Repo,
		tx:     params.TX,
		agents: params.Agents,
		events: params.Events,
		outbox: params.Outbox,
		now:    time.Now,
	}, nil
}

// ListInput carries the inbox query plus the requesting principal.
type ListInput struct {
	Params    pagination.Params
	Filters   ListFilters
	ActorID   uuid.UUID
	ActorRole enums.UserRole
}

// ListInbox returns one inbox page. Agents are pinned to their own cases;
// supervisors and admins see everything the filters allow.
func (s *Service) ListInbox(ctx context.Context, input ListInput) (*CaseList, error) {
	if input.ActorID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	filters := input.Filters
	if input.ActorRole == enums.UserRoleAgent {
		actorID := input.ActorID
		filters.AssignedAgentID = &actorID
		filters.Unassigned = false
	}
	list, err := s.repo.List(ctx, input.Params, filters)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "listing cases")
	}
	return list, nil
}

// GetDetail returns a case with its recent audit trail. Agents may only open
// cases assigned to them.
func (s *Service) GetDetail(ctx context.Context, caseID, actorID uuid.UUID, actorRole enums.UserRole) (*CaseDetailDTO, error) {
	if caseID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "case id required")
	}
	record, err := s.repo.FindByID(ctx, caseID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "case not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading case")
	}
	if actorRole == enums.UserRoleAgent {
		if record.AssignedAgentID == nil || *record.AssignedAgentID != actorID {
			return nil, pkgerrors.New(pkgerrors.CodeForbidden, "case belongs to another agent")
		}
	}
	auditRows, err := s.events.ListByCase(ctx, caseID, 50)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading case events")
	}
	detail := &CaseDetailDTO{
		Case:   FromModel(record),
		Events: make([]CaseEventDTO, 0, len(auditRows)),
	}
	for _, row := range auditRows {
		detail.Events = append(detail.Events, EventFromModel(row))
	}
	return detail, nil
}

// ManualAssignInput identifies the case, the target agent and the actor.
type ManualAssignInput struct {
	CaseID    uuid.UUID
	AgentID   uuid.UUID
	ActorID   uuid.UUID
	ActorRole enums.UserRole
}

// ManualAssign claims a case for a specific agent with the same conditional
// write the batch engine uses. A lost race surfaces as CONFLICT rather than
// silently reassigning.
func (s *Service) ManualAssign(ctx context.Context, input ManualAssignInput) (*CaseDTO, error) {
	if input.CaseID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "case id required")
	}
	if input.AgentID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "agent id required")
	}
	if input.ActorID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}

	var assigned *CaseDTO
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		if _, err := repo.ResolveStatus(ctx, enums.CaseStatusAssigned); err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeConfiguration, "assigned status missing from catalog")
			}
			return err
		}

		record, err := repo.FindByID(ctx, input.CaseID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeNotFound, "case not found")
			}
			return err
		}
		if record.Status.IsTerminal() {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "case is closed")
		}

		agent, err := s.agents.FindByID(ctx, input.AgentID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeValidation, "agent not found")
			}
			return err
		}
		if agent.Role != enums.UserRoleAgent || !agent.IsActive {
			return pkgerrors.New(pkgerrors.CodeValidation, "target user is not an active agent")
		}

		now := s.now().UTC()
		claimed, err := repo.Claim(ctx, record.ID, agent.ID, enums.CaseStatusAssigned, now)
		if err != nil {
			return err
		}
		if !claimed {
			return pkgerrors.New(pkgerrors.CodeConflict, "case already assigned")
		}

		if err := s.agents.BumpLastAssigned(ctx, tx, agent.ID, now); err != nil {
			return err
		}

		actorID := input.ActorID
		priorStatus := record.Status
		nextStatus := enums.CaseStatusAssigned
		if err := s.events.Append(ctx, tx, events.AppendInput{
			CaseID:      record.ID,
			ActorUserID: &actorID,
			EventType:   enums.EventCaseAssigned,
			PriorStatus: &priorStatus,
			NextStatus:  &nextStatus,
			Detail: map[string]any{
				"mode":     enums.AssignModeManual,
				"agent_id": agent.ID,
			},
		}); err != nil {
			return err
		}

		event := outbox.DomainEvent{
			EventType:     enums.EventCaseAssignedOutbox,
			AggregateType: enums.AggregateCase,
			AggregateID:   record.ID,
			Actor:         &outbox.ActorRef{UserID: actorID, Role: string(input.ActorRole)},
			Data: payloads.CaseAssignedEvent{
				CaseID:     record.ID,
				CaseNumber: record.CaseNumber,
				AgentID:    agent.ID,
				Mode:       enums.AssignModeManual,
				AssignedAt: now,
			},
			Version:    1,
			OccurredAt: now,
		}
		if err := s.outbox.Emit(ctx, tx, event); err != nil {
			return err
		}

		record.Status = enums.CaseStatusAssigned
		record.AssignedAgentID = &agent.ID
		record.AssignedAt = &now
		record.LastActivityAt = now
		dto := FromModel(record)
		assigned = &dto
		return nil
	})
	if err != nil {
		if typed := pkgerrors.As(err); typed != nil {
			return nil, typed
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "manual assignment failed")
	}
	return assigned, nil
}

// StatusChangeInput identifies the case, the requested status and the actor.
type StatusChangeInput struct {
	CaseID    uuid.UUID
	Next      enums.CaseStatus
	ActorID   uuid.UUID
	ActorRole enums.UserRole
}

// ChangeStatus moves a case along the transition whitelist. Agents may only
// move their own cases; illegal edges surface as STATE_CONFLICT.
func (s *Service) ChangeStatus(ctx context.Context, input StatusChangeInput) (*CaseDTO, error) {
	if input.CaseID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "case id required")
	}
	if !input.Next.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown status").
			WithDetails(map[string]any{"status": input.Next})
	}
	if input.ActorID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}

	var updated *CaseDTO
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		record, err := repo.FindByID(ctx, input.CaseID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeNotFound, "case not found")
			}
			return err
		}
		if input.ActorRole == enums.UserRoleAgent {
			if record.AssignedAgentID == nil || *record.AssignedAgentID != input.ActorID {
				return pkgerrors.New(pkgerrors.CodeForbidden, "case belongs to another agent")
			}
		}
		if !transitionAllowed(record.Status, input.Next) {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "status transition disallowed").
				WithDetails(map[string]any{
					"from": record.Status,
					"to":   input.Next,
				})
		}

		now := s.now().UTC()
		responded := input.Next == enums.CaseStatusResponded
		if err := repo.UpdateStatus(ctx, record.ID, input.Next, responded, now); err != nil {
			return err
		}

		actorID := input.ActorID
		priorStatus := record.Status
		nextStatus := input.Next
		if err := s.events.Append(ctx, tx, events.AppendInput{
			CaseID:      record.ID,
			ActorUserID: &actorID,
			EventType:   enums.EventCaseStatusChanged,
			PriorStatus: &priorStatus,
			NextStatus:  &nextStatus,
		}); err != nil {
			return err
		}

		event := outbox.DomainEvent{
			EventType:     enums.EventCaseStatusChangedOutbox,
			AggregateType: enums.AggregateCase,
			AggregateID:   record.ID,
			Actor:         &outbox.ActorRef{UserID: actorID, Role: string(input.ActorRole)},
			Data: payloads.CaseStatusChangedEvent{
				CaseID:      record.ID,
				CaseNumber:  record.CaseNumber,
				PriorStatus: priorStatus,
				NextStatus:  nextStatus,
				ChangedAt:   now,
			},
			Version:    1,
			OccurredAt: now,
		}
		if err := s.outbox.Emit(ctx, tx, event); err != nil {
			return err
		}

		record.Status = input.Next
		record.LastActivityAt = now
		if responded {
			record.Responded = true
		}
		dto := FromModel(record)
		updated = &dto
		return nil
	})
	if err != nil {
		if typed := pkgerrors.As(err); typed != nil {
			return nil, typed
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "status change failed")
	}
	return updated, nil
}

func transitionAllowed(from, to enums.CaseStatus) bool {
	for _, next := range allowedTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}
