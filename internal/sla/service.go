package sla

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/rmarroquin/casedesk-backend/pkg/db/models"
	"github.com/rmarroquin/casedesk-backend/pkg/enums"
	pkgerrors "github.com/rmarroquin/casedesk-backend/pkg/errors"
	"github.com/rmarroquin/casedesk-backend/pkg/logger"
)

// GateName is the job_gates row guarding the recompute pass.
const GateName = "sla_recompute"

// DefaultInterval is how often the full recompute may run.
const DefaultInterval = 24 * time.Hour

type repository interface {
	GetGate(ctx context.Context, name string) (*models.JobGate, error)
	SetGate(ctx context.Context, name string, at time.Time) error
	ListOpenCases(ctx context.Context) ([]models.CaseRecord, error)
	TrackedCaseIDs(ctx context.Context) (map[uuid.UUID]struct{}, error)
	InsertTracking(ctx context.Context, caseID uuid.UUID, daysOpen int, bucket enums.SLABucket, at time.Time) error
	UpdateTracking(ctx context.Context, caseID uuid.UUID, daysOpen int, bucket enums.SLABucket, at time.Time) error
	MirrorBucket(ctx context.Context, caseID uuid.UUID, bucket enums.SLABucket) error
	CountByBucket(ctx context.Context) (map[enums.SLABucket]int, error)
}

// gateLock is the non-blocking singleton lock the gate relies on for
// exclusivity across processes.
type gateLock interface {
	Acquire(ctx context.Context) (bool, error)
	Release(ctx context.Context) error
}

// ServiceParams configure the SLA service.
type ServiceParams struct {
	Logger     *logger.Logger
	Repo       repository
	Lock       gateLock
	Interval   time.Duration
	Thresholds Thresholds
}

// Service keeps the semaforo buckets fresh at most once per interval.
type Service struct {
	logg       *logger.Logger
	repo       repository
	lock       gateLock
	interval   time.Duration
	thresholds Thresholds
	now        func() time.Time
}

// NewService builds the SLA service.
func NewService(params ServiceParams) (*Service, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Repo == nil {
		return nil, fmt.Errorf("sla repository required")
	}
	if params.Lock == nil {
		return nil, fmt.Errorf("gate lock required")
	}
	interval := params.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}
	thresholds := params.Thresholds
	if thresholds.GreenMaxDays <= 0 && thresholds.YellowMaxDays <= 0 {
		thresholds = DefaultThresholds()
	}
	return &Service{
		logg:       params.Logger,
		repo:       params.Repo,
		lock:       params.Lock,
		interval:   interval,
		thresholds: thresholds,
		now:        time.Now,
	}, nil
}

// EnsureFresh runs the recompute pass if the gate interval has elapsed. It
// is safe to call on every dashboard load: a fresh gate or a held lock both
// return immediately without doing work. The gate timestamp advances even
// when the compute pass fails, so a permanently failing computation cannot
// retry on every request.
func (s *Service) EnsureFresh(ctx context.Context) error {
	now := s.now().UTC()

	stale, err := s.gateStale(ctx, now)
	if err != nil {
		return err
	}
	if !stale {
		return nil
	}

	acquired, err := s.lock.Acquire(ctx)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "acquiring sla gate lock")
	}
	if !acquired {
		// another process holds the gate; it will complete the work
		return nil
	}
	defer func() {
		if relErr := s.lock.Release(ctx); relErr != nil {
			s.logg.Error(ctx, "failed to release sla gate lock", relErr)
		}
	}()

	// re-check under the lock: a contender may have just finished
	stale, err = s.gateStale(ctx, now)
	if err != nil {
		return err
	}
	if !stale {
		return nil
	}

	computeErr := s.recompute(ctx, now)
	if err := s.repo.SetGate(ctx, GateName, now); err != nil {
		return multierr.Append(computeErr, fmt.Errorf("advancing sla gate: %w", err))
	}
	if computeErr != nil {
		// contained: the gate advanced, so the failure will not storm
		s.logg.Error(ctx, "sla recompute failed; gate advanced anyway", computeErr)
	}
	return nil
}

// DashboardCounts ensures freshness and returns open-case totals per bucket.
func (s *Service) DashboardCounts(ctx context.Context) (map[enums.SLABucket]int, error) {
	if err := s.EnsureFresh(ctx); err != nil {
		return nil, err
	}
	counts, err := s.repo.CountByBucket(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "counting sla buckets")
	}
	for _, bucket := range []enums.SLABucket{enums.SLABucketGreen, enums.SLABucketYellow, enums.SLABucketRed} {
		if _, ok := counts[bucket]; !ok {
			counts[bucket] = 0
		}
	}
	return counts, nil
}

func (s *Service) gateStale(ctx context.Context, now time.Time) (bool, error) {
	gate, err := s.repo.GetGate(ctx, GateName)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return true, nil
		}
		return false, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "reading sla gate")
	}
	return now.Sub(gate.LastRunAt) >= s.interval, nil
}

// recompute walks every open case: inserts missing tracking rows, refreshes
// days_open and bucket, and mirrors the bucket onto the case. Per-case
// failures are collected so one bad row does not starve the rest.
func (s *Service) recompute(ctx context.Context, now time.Time) error {
	open, err := s.repo.ListOpenCases(ctx)
	if err != nil {
		return fmt.Errorf("listing open cases: %w", err)
	}
	tracked, err := s.repo.TrackedCaseIDs(ctx)
	if err != nil {
		return fmt.Errorf("listing tracked cases: %w", err)
	}

	var errs error
	refreshed := 0
	for i := range open {
		record := &open[i]
		days := DaysOpen(now, record.ReceivedAt)
		bucket := s.thresholds.BucketFor(days)

		if _, ok := tracked[record.ID]; !ok {
			if err := s.repo.InsertTracking(ctx, record.ID, days, bucket, now); err != nil {
				errs = multierr.Append(errs, fmt.Errorf("init tracking for %s: %w", record.ID, err))
				continue
			}
		} else if err := s.repo.UpdateTracking(ctx, record.ID, days, bucket, now); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("refresh tracking for %s: %w", record.ID, err))
			continue
		}

		if err := s.repo.MirrorBucket(ctx, record.ID, bucket); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("mirror bucket for %s: %w", record.ID, err))
			continue
		}
		refreshed++
	}

	logCtx := s.logg.WithFields(ctx, map[string]any{
		"open_cases": len(open),
		"refreshed":  refreshed,
	})
	s.logg.Info(logCtx, "sla recompute pass complete")
	return errs
}
