package assignment

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/rmarroquin/casedesk-backend/internal/cases"
	"github.com/rmarroquin/casedesk-backend/internal/events"
	"github.com/rmarroquin/casedesk-backend/pkg/db/models"
	"github.com/rmarroquin/casedesk-backend/pkg/enums"
	pkgerrors "github.com/rmarroquin/casedesk-backend/pkg/errors"
	"github.com/rmarroquin/casedesk-backend/pkg/logger"
	"github.com/rmarroquin/casedesk-backend/pkg/metrics"
	"github.com/rmarroquin/casedesk-backend/pkg/outbox"
	"github.com/rmarroquin/casedesk-backend/pkg/outbox/payloads"
)

const (
	// DefaultBatchLimit bounds one engine invocation so the spanning
	// transaction stays short.
	DefaultBatchLimit = 200
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type agentPicker interface {
	PickLeastLoaded(ctx context.Context, tx *gorm.DB) (*models.User, error)
}

type rotationBumper interface {
	BumpLastAssigned(ctx context.Context, tx *gorm.DB, id uuid.UUID, at time.Time) error
}

type eventAppender interface {
	Append(ctx context.Context, tx *gorm.DB, input events.AppendInput) error
}

type outboxEmitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// ServiceParams configure the assignment engine.
type ServiceParams struct {
	TX         txRunner
	Cases      cases.Repository
	Picker     agentPicker
	Rotation   rotationBumper
	Events     eventAppender
	Outbox     outboxEmitter
	Metrics    *metrics.AssignmentMetrics
	Logger     *logger.Logger
	BatchLimit int
}

// Service distributes pending cases across eligible agents.
type Service struct {
	tx       txRunner
	cases    cases.Repository
	picker   agentPicker
	rotation rotationBumper
	events   eventAppender
	outbox   outboxEmitter
	metrics  *metrics.AssignmentMetrics
	logg     *logger.Logger
	limit    int
	now      func() time.Time
}

// NewService builds the engine with the required collaborators.
func NewService(params ServiceParams) (*Service, error) {
	if params.TX == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Cases == nil {
		return nil, fmt.Errorf("cases repository required")
	}
	if params.Picker == nil {
		return nil, fmt.Errorf("agent picker required")
	}
	if params.Rotation == nil {
		return nil, fmt.Errorf("rotation bumper required")
	}
	if params.Events == nil {
		return nil, fmt.Errorf("event appender required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox emitter required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	limit := params.BatchLimit
	if limit <= 0 || limit > DefaultBatchLimit {
		limit = DefaultBatchLimit
	}
	return &Service{
		tx:       params.TX,
		cases:    params.Cases,
		picker:   params.Picker,
		rotation: params.Rotation,
		events:   params.Events,
		outbox:   params.Outbox,
		metrics:  params.Metrics,
		logg:     params.Logger,
		limit:    limit,
		now:      time.Now,
	}, nil
}

// BatchInput bounds one run and identifies the invoking principal. A nil
// ActorID means the run was system-initiated (cron, ingestion hook).
type BatchInput struct {
	Limit     int
	ActorID   *uuid.UUID
	ActorRole enums.UserRole
}

// AutoAssignBatch distributes up to Limit pending cases, oldest first, each
// to the least-loaded eligible agent at that moment. The whole batch commits
// or rolls back as one transaction; per-case races and missing agents are
// skips, not failures.
func (s *Service) AutoAssignBatch(ctx context.Context, input BatchInput) (*Report, error) {
	limit := input.Limit
	if limit <= 0 || limit > s.limit {
		limit = s.limit
	}

	start := s.now()
	report := &Report{}
	pendingCount := 0

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.cases.WithTx(tx)

		for _, code := range []enums.CaseStatus{enums.CaseStatusNew, enums.CaseStatusAssigned} {
			if _, err := repo.ResolveStatus(ctx, code); err != nil {
				if err == gorm.ErrRecordNotFound {
					return pkgerrors.New(pkgerrors.CodeConfiguration,
						fmt.Sprintf("status %q missing from catalog", code))
				}
				return err
			}
		}

		pending, err := repo.FindPendingNew(ctx, enums.CaseStatusNew, limit)
		if err != nil {
			return err
		}
		pendingCount = len(pending)
		if pendingCount == 0 {
			return nil
		}

		for i := range pending {
			if err := s.assignOne(ctx, tx, repo, &pending[i], input, report); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		if typed := pkgerrors.As(err); typed != nil {
			return nil, typed
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "auto-assign batch failed")
	}

	report.resolveOutcome(pendingCount)
	s.observe(report, pendingCount, s.now().Sub(start))

	logCtx := s.logg.WithFields(ctx, map[string]any{
		"outcome":           report.Outcome,
		"pending":           pendingCount,
		"assigned":          report.Assigned,
		"skipped":           report.Skipped,
		"skipped_no_agents": report.SkippedNoAgents,
	})
	s.logg.Info(logCtx, "auto-assign batch complete")
	return report, nil
}

func (s *Service) assignOne(ctx context.Context, tx *gorm.DB, repo cases.Repository, record *models.CaseRecord, input BatchInput, report *Report) error {
	agent, err := s.picker.PickLeastLoaded(ctx, tx)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return s.recordNoAgentSkip(ctx, tx, record, input, report)
		}
		return err
	}

	now := s.now().UTC()
	claimed, err := repo.Claim(ctx, record.ID, agent.ID, enums.CaseStatusAssigned, now)
	if err != nil {
		return err
	}
	if !claimed {
		// another assigner won between the pending read and this write;
		// their audit event covers the case, so only the counter moves
		report.Skipped++
		return nil
	}

	if err := s.rotation.BumpLastAssigned(ctx, tx, agent.ID, now); err != nil {
		return err
	}

	priorStatus := record.Status
	nextStatus := enums.CaseStatusAssigned
	if err := s.events.Append(ctx, tx, events.AppendInput{
		CaseID:      record.ID,
		ActorUserID: input.ActorID,
		EventType:   enums.EventCaseAssigned,
		PriorStatus: &priorStatus,
		NextStatus:  &nextStatus,
		Detail: map[string]any{
			"mode":     enums.AssignModeBulkAuto,
			"agent_id": agent.ID,
		},
	}); err != nil {
		return err
	}

	event := outbox.DomainEvent{
		EventType:     enums.EventCaseAssignedOutbox,
		AggregateType: enums.AggregateCase,
		AggregateID:   record.ID,
		Data: payloads.CaseAssignedEvent{
			CaseID:     record.ID,
			CaseNumber: record.CaseNumber,
			AgentID:    agent.ID,
			Mode:       enums.AssignModeBulkAuto,
			AssignedAt: now,
		},
		Version:    1,
		OccurredAt: now,
	}
	if input.ActorID != nil {
		event.Actor = &outbox.ActorRef{UserID: *input.ActorID, Role: string(input.ActorRole)}
	}
	if err := s.outbox.Emit(ctx, tx, event); err != nil {
		return err
	}

	report.Assigned++
	return nil
}

func (s *Service) recordNoAgentSkip(ctx context.Context, tx *gorm.DB, record *models.CaseRecord, input BatchInput, report *Report) error {
	if err := s.events.Append(ctx, tx, events.AppendInput{
		CaseID:      record.ID,
		ActorUserID: input.ActorID,
		EventType:   enums.EventAutoAssignSkipped,
		Detail: map[string]any{
			"reason": enums.SkipReasonNoEligibleAgents,
		},
	}); err != nil {
		return err
	}
	report.SkippedNoAgents++
	return nil
}

func (s *Service) observe(report *Report, pending int, duration time.Duration) {
	if s.metrics == nil {
		return
	}
	s.metrics.ObserveBatch(pending, duration)
	for i := 0; i < report.Assigned; i++ {
		s.metrics.IncOutcome(string(enums.AssignOutcomeAssigned))
	}
	for i := 0; i < report.Skipped; i++ {
		s.metrics.IncOutcome(string(enums.AssignOutcomeSkipped))
	}
	for i := 0; i < report.SkippedNoAgents; i++ {
		s.metrics.IncOutcome(string(enums.AssignOutcomeNoAgents))
	}
}
