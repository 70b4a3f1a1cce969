package events

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/rmarroquin/casedesk-backend/pkg/db/models"
	"github.com/rmarroquin/casedesk-backend/pkg/enums"
)

// Repository persists append-only case audit events. Rows are never updated
// or deleted.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs an events repo bound to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// AppendInput carries everything needed to record one audit entry.
type AppendInput struct {
	CaseID      uuid.UUID
	ActorUserID *uuid.UUID
	EventType   enums.CaseEventType
	PriorStatus *enums.CaseStatus
	NextStatus  *enums.CaseStatus
	Detail      any
}

// Append inserts an audit event inside the caller's transaction. A nil tx
// falls back to the repo's own connection.
func (r *Repository) Append(ctx context.Context, tx *gorm.DB, input AppendInput) error {
	conn := tx
	if conn == nil {
		conn = r.db
	}
	row := models.CaseEvent{
		ID:          uuid.New(),
		CaseID:      input.CaseID,
		ActorUserID: input.ActorUserID,
		EventType:   input.EventType,
		PriorStatus: input.PriorStatus,
		NextStatus:  input.NextStatus,
	}
	if input.Detail != nil {
		detail, err := json.Marshal(input.Detail)
		if err != nil {
			return err
		}
		row.Detail = json.RawMessage(detail)
	}
	return conn.WithContext(ctx).Create(&row).Error
}

// ListByCase returns the most recent events for a case, newest first.
func (r *Repository) ListByCase(ctx context.Context, caseID uuid.UUID, limit int) ([]models.CaseEvent, error) {
	if limit <= 0 {
		limit = 50
	}
	var rows []models.CaseEvent
	err := r.db.WithContext(ctx).
		Where("case_id = ?", caseID).
		Order("created_at DESC").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}
