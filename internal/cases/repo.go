package cases

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/rmarroquin/casedesk-backend/pkg/db/models"
	"github.com/rmarroquin/casedesk-backend/pkg/enums"
	"github.com/rmarroquin/casedesk-backend/pkg/pagination"
)

type gormRepository struct {
	db *gorm.DB
}

// NewRepository constructs a cases repo bound to the provided GORM DB.
func NewRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

// WithTx rebinds the repository to the supplied transaction.
func (r *gormRepository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &gormRepository{db: tx}
}

func (r *gormRepository) FindByID(ctx context.Context, id uuid.UUID) (*models.CaseRecord, error) {
	var record models.CaseRecord
	if err := r.db.WithContext(ctx).First(&record, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &record, nil
}

// List pages the inbox newest-first on (received_at, id).
func (r *gormRepository) List(ctx context.Context, params pagination.Params, filters ListFilters) (*CaseList, error) {
	limit := pagination.NormalizeLimit(params.Limit)
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, err
	}

	query := r.db.WithContext(ctx).Model(&models.CaseRecord{})
	if filters.Status != nil {
		query = query.Where("status = ?", *filters.Status)
	}
	if filters.Unassigned {
		query = query.Where("assigned_agent_id IS NULL")
	} else if filters.AssignedAgentID != nil {
		query = query.Where("assigned_agent_id = ?", *filters.AssignedAgentID)
	}
	if cursor != nil {
		query = query.Where(
			"(received_at < ?) OR (received_at = ? AND id < ?)",
			cursor.ReceivedAt, cursor.ReceivedAt, cursor.ID,
		)
	}

	var rows []models.CaseRecord
	err = query.
		Order("received_at DESC").
		Order("id DESC").
		Limit(limit + 1).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	list := &CaseList{Items: make([]CaseDTO, 0, len(rows))}
	if len(rows) > limit {
		rows = rows[:limit]
		last := rows[len(rows)-1]
		list.NextCursor = pagination.EncodeCursor(pagination.Cursor{
			ReceivedAt: last.ReceivedAt,
			ID:         last.ID,
		})
	}
	for i := range rows {
		list.Items = append(list.Items, FromModel(&rows[i]))
	}
	return list, nil
}

// FindPendingNew returns the oldest unassigned cases still in the new status.
func (r *gormRepository) FindPendingNew(ctx context.Context, newStatus enums.CaseStatus, limit int) ([]models.CaseRecord, error) {
	var rows []models.CaseRecord
	err := r.db.WithContext(ctx).
		Where("status = ? AND assigned_agent_id IS NULL", newStatus).
		Order("received_at ASC").
		Order("id ASC").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}

// Claim performs the conditional assignment write. The WHERE clause keeps the
// update race-safe: a concurrent claimer that already set assigned_agent_id
// makes this a zero-row update, reported as claimed=false.
func (r *gormRepository) Claim(ctx context.Context, caseID, agentID uuid.UUID, assignedStatus enums.CaseStatus, at time.Time) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.CaseRecord{}).
		Where("id = ? AND assigned_agent_id IS NULL", caseID).
		Updates(map[string]any{
			"assigned_agent_id": agentID,
			"status":            assignedStatus,
			"assigned_at":       at,
			"last_activity_at":  at,
			"updated_at":        at,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *gormRepository) UpdateStatus(ctx context.Context, caseID uuid.UUID, next enums.CaseStatus, responded bool, at time.Time) error {
	updates := map[string]any{
		"status":           next,
		"last_activity_at": at,
		"updated_at":       at,
	}
	if responded {
		updates["responded"] = true
	}
	return r.db.WithContext(ctx).
		Model(&models.CaseRecord{}).
		Where("id = ?", caseID).
		Updates(updates).Error
}

func (r *gormRepository) ResolveStatus(ctx context.Context, code enums.CaseStatus) (*models.CaseStatusRef, error) {
	var ref models.CaseStatusRef
	if err := r.db.WithContext(ctx).First(&ref, "code = ?", code).Error; err != nil {
		return nil, err
	}
	return &ref, nil
}
