package sla

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/rmarroquin/casedesk-backend/pkg/db/models"
	"github.com/rmarroquin/casedesk-backend/pkg/enums"
	"github.com/rmarroquin/casedesk-backend/pkg/logger"
)

type fakeSLARepo struct {
	gate    *models.JobGate
	open    []models.CaseRecord
	tracked map[uuid.UUID]struct{}

	listErr error

	inserted  []uuid.UUID
	updated   []uuid.UUID
	mirrored  map[uuid.UUID]enums.SLABucket
	gateSetAt []time.Time
}

func newFakeSLARepo() *fakeSLARepo {
	return &fakeSLARepo{
		tracked:  map[uuid.UUID]struct{}{},
		mirrored: map[uuid.UUID]enums.SLABucket{},
	}
}

func (r *fakeSLARepo) GetGate(ctx context.Context, name string) (*models.JobGate, error) {
	if r.gate == nil {
		return nil, gorm.ErrRecordNotFound
	}
	return r.gate, nil
}

func (r *fakeSLARepo) SetGate(ctx context.Context, name string, at time.Time) error {
	r.gate = &models.JobGate{Name: name, LastRunAt: at}
	r.gateSetAt = append(r.gateSetAt, at)
	return nil
}

func (r *fakeSLARepo) ListOpenCases(ctx context.Context) ([]models.CaseRecord, error) {
	if r.listErr != nil {
		return nil, r.listErr
	}
	return r.open, nil
}

func (r *fakeSLARepo) TrackedCaseIDs(ctx context.Context) (map[uuid.UUID]struct{}, error) {
	return r.tracked, nil
}

func (r *fakeSLARepo) InsertTracking(ctx context.Context, caseID uuid.UUID, daysOpen int, bucket enums.SLABucket, at time.Time) error {
	r.inserted = append(r.inserted, caseID)
	return nil
}

func (r *fakeSLARepo) UpdateTracking(ctx context.Context, caseID uuid.UUID, daysOpen int, bucket enums.SLABucket, at time.Time) error {
	r.updated = append(r.updated, caseID)
	return nil
}

func (r *fakeSLARepo) MirrorBucket(ctx context.Context, caseID uuid.UUID, bucket enums.SLABucket) error {
	r.mirrored[caseID] = bucket
	return nil
}

func (r *fakeSLARepo) CountByBucket(ctx context.Context) (map[enums.SLABucket]int, error) {
	counts := map[enums.SLABucket]int{}
	for _, bucket := range r.mirrored {
		counts[bucket]++
	}
	return counts, nil
}

type fakeGateLock struct {
	denied   bool
	acquires int
	releases int
}

func (l *fakeGateLock) Acquire(ctx context.Context) (bool, error) {
	l.acquires++
	return !l.denied, nil
}

func (l *fakeGateLock) Release(ctx context.Context) error {
	l.releases++
	return nil
}

func newTestSLAService(t *testing.T, repo *fakeSLARepo, lock *fakeGateLock, now time.Time) *Service {
	t.Helper()
	svc, err := NewService(ServiceParams{
		Logger: logger.New(logger.Options{Output: io.Discard}),
		Repo:   repo,
		Lock:   lock,
	})
	if err != nil {
		t.Fatalf("building sla service: %v", err)
	}
	svc.now = func() time.Time { return now }
	return svc
}

func openCase(receivedAt time.Time) models.CaseRecord {
	return models.CaseRecord{
		ID:             uuid.New(),
		CaseNumber:     "CASE-" + uuid.NewString()[:8],
		Status:         enums.CaseStatusNew,
		ReceivedAt:     receivedAt,
		LastActivityAt: receivedAt,
	}
}

func TestEnsureFreshSkipsWhenGateIsFresh(t *testing.T) {
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	repo := newFakeSLARepo()
	repo.gate = &models.JobGate{Name: GateName, LastRunAt: now.Add(-time.Hour)}
	lock := &fakeGateLock{}
	svc := newTestSLAService(t, repo, lock, now)

	if err := svc.EnsureFresh(context.Background()); err != nil {
		t.Fatalf("ensure fresh: %v", err)
	}
	if lock.acquires != 0 {
		t.Fatal("fresh gate must not touch the lock")
	}
	if len(repo.gateSetAt) != 0 {
		t.Fatal("fresh gate must not be rewritten")
	}
}

func TestEnsureFreshRecomputesWhenStale(t *testing.T) {
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	repo := newFakeSLARepo()
	repo.gate = &models.JobGate{Name: GateName, LastRunAt: now.Add(-25 * time.Hour)}

	green := openCase(now.Add(-6 * time.Hour))
	yellow := openCase(now.Add(-60 * time.Hour))
	red := openCase(now.Add(-120 * time.Hour))
	repo.open = []models.CaseRecord{green, yellow, red}
	repo.tracked[green.ID] = struct{}{}

	lock := &fakeGateLock{}
	svc := newTestSLAService(t, repo, lock, now)

	if err := svc.EnsureFresh(context.Background()); err != nil {
		t.Fatalf("ensure fresh: %v", err)
	}
	if lock.acquires != 1 || lock.releases != 1 {
		t.Fatalf("expected lock acquire+release, got %d/%d", lock.acquires, lock.releases)
	}
	if len(repo.updated) != 1 || repo.updated[0] != green.ID {
		t.Fatalf("tracked case should be refreshed, got %v", repo.updated)
	}
	if len(repo.inserted) != 2 {
		t.Fatalf("untracked cases should gain tracking rows, got %v", repo.inserted)
	}
	if repo.mirrored[green.ID] != enums.SLABucketGreen {
		t.Fatalf("6h-old case should be green, got %s", repo.mirrored[green.ID])
	}
	if repo.mirrored[yellow.ID] != enums.SLABucketYellow {
		t.Fatalf("60h-old case should be yellow, got %s", repo.mirrored[yellow.ID])
	}
	if repo.mirrored[red.ID] != enums.SLABucketRed {
		t.Fatalf("120h-old case should be red, got %s", repo.mirrored[red.ID])
	}
	if len(repo.gateSetAt) != 1 || !repo.gateSetAt[0].Equal(now) {
		t.Fatalf("gate should advance to now, got %v", repo.gateSetAt)
	}
}

func TestEnsureFreshMissingGateRunsFirstPass(t *testing.T) {
	now := time.Now().UTC()
	repo := newFakeSLARepo()
	repo.open = []models.CaseRecord{openCase(now.Add(-time.Hour))}
	svc := newTestSLAService(t, repo, &fakeGateLock{}, now)

	if err := svc.EnsureFresh(context.Background()); err != nil {
		t.Fatalf("ensure fresh: %v", err)
	}
	if len(repo.inserted) != 1 {
		t.Fatal("first pass should seed tracking rows")
	}
	if repo.gate == nil {
		t.Fatal("first pass should create the gate row")
	}
}

func TestEnsureFreshLosingLockYieldsQuietly(t *testing.T) {
	now := time.Now().UTC()
	repo := newFakeSLARepo()
	repo.open = []models.CaseRecord{openCase(now.Add(-time.Hour))}
	lock := &fakeGateLock{denied: true}
	svc := newTestSLAService(t, repo, lock, now)

	if err := svc.EnsureFresh(context.Background()); err != nil {
		t.Fatalf("losing the lock must not error: %v", err)
	}
	if len(repo.inserted) != 0 || len(repo.gateSetAt) != 0 {
		t.Fatal("lock loser must not recompute or write the gate")
	}
	if lock.releases != 0 {
		t.Fatal("lock loser must not release a lock it never held")
	}
}

func TestEnsureFreshAdvancesGateOnComputeFailure(t *testing.T) {
	now := time.Now().UTC()
	repo := newFakeSLARepo()
	repo.listErr = errors.New("open cases query timed out")
	svc := newTestSLAService(t, repo, &fakeGateLock{}, now)

	if err := svc.EnsureFresh(context.Background()); err != nil {
		t.Fatalf("contained compute failure must not surface: %v", err)
	}
	// the gate still advances so the failure cannot retry on every request
	if len(repo.gateSetAt) != 1 {
		t.Fatalf("gate should advance despite compute failure, got %v", repo.gateSetAt)
	}
}

func TestDashboardCountsFillsEmptyBuckets(t *testing.T) {
	now := time.Now().UTC()
	repo := newFakeSLARepo()
	repo.gate = &models.JobGate{Name: GateName, LastRunAt: now}
	repo.mirrored[uuid.New()] = enums.SLABucketRed
	svc := newTestSLAService(t, repo, &fakeGateLock{}, now)

	counts, err := svc.DashboardCounts(context.Background())
	if err != nil {
		t.Fatalf("dashboard counts: %v", err)
	}
	if counts[enums.SLABucketRed] != 1 {
		t.Fatalf("expected one red case, got %d", counts[enums.SLABucketRed])
	}
	if got, ok := counts[enums.SLABucketGreen]; !ok || got != 0 {
		t.Fatal("empty buckets should report zero, not be absent")
	}
	if got, ok := counts[enums.SLABucketYellow]; !ok || got != 0 {
		t.Fatal("empty buckets should report zero, not be absent")
	}
}
