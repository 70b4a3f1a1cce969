package sla

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/rmarroquin/casedesk-backend/pkg/db/models"
	"github.com/rmarroquin/casedesk-backend/pkg/enums"
)

// Repository persists SLA tracking rows and the recompute gate.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs an SLA repo bound to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// GetGate loads the named job gate row.
func (r *Repository) GetGate(ctx context.Context, name string) (*models.JobGate, error) {
	var gate models.JobGate
	if err := r.db.WithContext(ctx).First(&gate, "name = ?", name).Error; err != nil {
		return nil, err
	}
	return &gate, nil
}

// SetGate upserts the gate's last-run timestamp.
func (r *Repository) SetGate(ctx context.Context, name string, at time.Time) error {
	gate := models.JobGate{Name: name, LastRunAt: at, UpdatedAt: at}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "name"}},
			DoUpdates: clause.AssignmentColumns([]string{"last_run_at", "updated_at"}),
		}).
		Create(&gate).Error
}

// ListOpenCases returns every non-closed case.
func (r *Repository) ListOpenCases(ctx context.Context) ([]models.CaseRecord, error) {
	var rows []models.CaseRecord
	err := r.db.WithContext(ctx).
		Where("status <> ?", enums.CaseStatusClosed).
		Find(&rows).Error
	return rows, err
}

// TrackedCaseIDs returns the set of case ids that already have a tracking row.
func (r *Repository) TrackedCaseIDs(ctx context.Context) (map[uuid.UUID]struct{}, error) {
	var ids []uuid.UUID
	err := r.db.WithContext(ctx).
		Model(&models.SLARecord{}).
		Pluck("case_id", &ids).Error
	if err != nil {
		return nil, err
	}
	tracked := make(map[uuid.UUID]struct{}, len(ids))
	for _, id := range ids {
		tracked[id] = struct{}{}
	}
	return tracked, nil
}

// InsertTracking creates the tracking row for a newly observed open case.
func (r *Repository) InsertTracking(ctx context.Context, caseID uuid.UUID, daysOpen int, bucket enums.SLABucket, at time.Time) error {
	row := models.SLARecord{
		ID:        uuid.New(),
		CaseID:    caseID,
		DaysOpen:  daysOpen,
		Bucket:    bucket,
		UpdatedAt: at,
	}
	return r.db.WithContext(ctx).Create(&row).Error
}

// UpdateTracking refreshes days_open and bucket for one case.
func (r *Repository) UpdateTracking(ctx context.Context, caseID uuid.UUID, daysOpen int, bucket enums.SLABucket, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&models.SLARecord{}).
		Where("case_id = ?", caseID).
		Updates(map[string]any{
			"days_open":  daysOpen,
			"bucket":     bucket,
			"updated_at": at,
		}).Error
}

// MirrorBucket copies the bucket onto the case row for cheap inbox reads.
func (r *Repository) MirrorBucket(ctx context.Context, caseID uuid.UUID, bucket enums.SLABucket) error {
	return r.db.WithContext(ctx).
		Model(&models.CaseRecord{}).
		Where("id = ?", caseID).
		UpdateColumn("sla_bucket", bucket).Error
}

// CountByBucket aggregates open cases per bucket for the dashboard.
func (r *Repository) CountByBucket(ctx context.Context) (map[enums.SLABucket]int, error) {
	type bucketCount struct {
		Bucket enums.SLABucket
		Total  int
	}
	var rows []bucketCount
	err := r.db.WithContext(ctx).
		Table("sla_tracking").
		Select("sla_tracking.bucket AS bucket, COUNT(*) AS total").
		Joins("JOIN cases ON cases.id = sla_tracking.case_id AND cases.status <> ?", enums.CaseStatusClosed).
		Group("sla_tracking.bucket").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	counts := make(map[enums.SLABucket]int, len(rows))
	for _, row := range rows {
		counts[row.Bucket] = row.Total
	}
	return counts, nil
}
