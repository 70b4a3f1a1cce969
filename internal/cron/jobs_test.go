package cron

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"gorm.io/gorm"

	"github.com/rmarroquin/casedesk-backend/pkg/logger"
)

type fakeRefresher struct {
	calls int
	err   error
}

func (f *fakeRefresher) EnsureFresh(ctx context.Context) error {
	f.calls++
	return f.err
}

type fakeTxRunner struct{}

func (fakeTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

type fakeRetentionRepo struct {
	cutoffs []time.Time
	deleted int64
	err     error
}

func (f *fakeRetentionRepo) DeletePublishedBefore(ctx context.Context, tx *gorm.DB, cutoff time.Time) (int64, error) {
	f.cutoffs = append(f.cutoffs, cutoff)
	return f.deleted, f.err
}

func testLogger() *logger.Logger {
	return logger.New(logger.Options{Output: io.Discard})
}

func TestSLARecomputeJobDelegatesToGate(t *testing.T) {
	refresher := &fakeRefresher{}
	job, err := NewSLARecomputeJob(SLARecomputeJobParams{Logger: testLogger(), SLA: refresher})
	if err != nil {
		t.Fatalf("building job: %v", err)
	}
	if job.Name() != "sla-recompute" {
		t.Fatalf("unexpected job name %q", job.Name())
	}
	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	if refresher.calls != 1 {
		t.Fatalf("expected one refresh call, got %d", refresher.calls)
	}
}

func TestSLARecomputeJobWrapsFailure(t *testing.T) {
	cause := errors.New("gate unavailable")
	job, err := NewSLARecomputeJob(SLARecomputeJobParams{Logger: testLogger(), SLA: &fakeRefresher{err: cause}})
	if err != nil {
		t.Fatalf("building job: %v", err)
	}
	runErr := job.Run(context.Background())
	if !errors.Is(runErr, cause) {
		t.Fatalf("expected wrapped cause, got %v", runErr)
	}
}

func TestOutboxRetentionJobUsesConfiguredCutoff(t *testing.T) {
	repo := &fakeRetentionRepo{deleted: 12}
	job, err := NewOutboxRetentionJob(OutboxRetentionJobParams{
		Logger:     testLogger(),
		DB:         fakeTxRunner{},
		Repository: repo,
		Retention:  7,
	})
	if err != nil {
		t.Fatalf("building job: %v", err)
	}

	now := time.Date(2026, 3, 10, 6, 0, 0, 0, time.UTC)
	job.(*outboxRetentionJob).now = func() time.Time { return now }

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(repo.cutoffs) != 1 {
		t.Fatalf("expected one delete pass, got %d", len(repo.cutoffs))
	}
	want := now.Add(-7 * 24 * time.Hour)
	if !repo.cutoffs[0].Equal(want) {
		t.Fatalf("cutoff = %v, want %v", repo.cutoffs[0], want)
	}
}

func TestOutboxRetentionJobDefaultsRetention(t *testing.T) {
	repo := &fakeRetentionRepo{}
	job, err := NewOutboxRetentionJob(OutboxRetentionJobParams{
		Logger:     testLogger(),
		DB:         fakeTxRunner{},
		Repository: repo,
	})
	if err != nil {
		t.Fatalf("building job: %v", err)
	}
	if job.(*outboxRetentionJob).retention != outboxRetentionDays {
		t.Fatalf("expected %d day default, got %d", outboxRetentionDays, job.(*outboxRetentionJob).retention)
	}
}

func TestRegistrySkipsNilJobs(t *testing.T) {
	refresher := &fakeRefresher{}
	job, err := NewSLARecomputeJob(SLARecomputeJobParams{Logger: testLogger(), SLA: refresher})
	if err != nil {
		t.Fatalf("building job: %v", err)
	}

	registry := NewRegistry(nil, job, nil)
	if len(registry.Jobs()) != 1 {
		t.Fatalf("expected one registered job, got %d", len(registry.Jobs()))
	}
	registry.Register(nil)
	registry.Register(job)
	if len(registry.Jobs()) != 2 {
		t.Fatalf("expected two registered jobs, got %d", len(registry.Jobs()))
	}
}
