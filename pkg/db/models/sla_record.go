package models

import (
	"time"

	"github.com/rmarroquin/casedesk-backend/pkg/enums"
	"github.com/google/uuid"
)

// SLARecord tracks the semaforo bucket for one non-closed case. Rows are
// inserted by the initialization pass and refreshed by the recompute pass;
// once a case closes its record simply stops being updated.
type SLARecord struct {
	ID        uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	CaseID    uuid.UUID       `gorm:"column:case_id;type:uuid;not null;uniqueIndex"`
	DaysOpen  int             `gorm:"column:days_open;not null;default:0"`
	Bucket    enums.SLABucket `gorm:"column:bucket;type:text;not null"`
	UpdatedAt time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

// TableName matches the goose migration.
func (SLARecord) TableName() string { return "sla_tracking" }
