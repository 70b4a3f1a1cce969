package models

import (
	"encoding/json"
	"time"

	"github.com/rmarroquin/casedesk-backend/pkg/enums"
	"github.com/google/uuid"
)

// CaseEvent is an append-only audit entry. ActorUserID is NULL for
// system-initiated events (bulk auto-assignment). Rows are never updated
// or deleted.
type CaseEvent struct {
	ID          uuid.UUID           `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	CaseID      uuid.UUID           `gorm:"column:case_id;type:uuid;not null;index"`
	ActorUserID *uuid.UUID          `gorm:"column:actor_user_id;type:uuid"`
	EventType   enums.CaseEventType `gorm:"column:event_type;type:text;not null"`
	PriorStatus *enums.CaseStatus   `gorm:"column:prior_status;type:text"`
	NextStatus  *enums.CaseStatus   `gorm:"column:next_status;type:text"`
	Detail      json.RawMessage     `gorm:"column:detail;type:jsonb"`
	CreatedAt   time.Time           `gorm:"column:created_at;autoCreateTime"`
}
