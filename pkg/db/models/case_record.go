package models

import (
	"time"

	"github.com/rmarroquin/casedesk-backend/pkg/enums"
	"github.com/google/uuid"
)

// CaseRecord is an email-derived support case. Rows are created by the
// ingestion pipeline and only ever transition status; they are never deleted.
// AssignedAgentID moves from NULL to a value exactly once under normal flow;
// the conditional claim in the assignment paths enforces that under races.
type CaseRecord struct {
	ID              uuid.UUID        `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	CaseNumber      string           `gorm:"column:case_number;type:text;not null;uniqueIndex"`
	Subject         string           `gorm:"column:subject;not null"`
	RequesterEmail  string           `gorm:"column:requester_email;not null"`
	Status          enums.CaseStatus `gorm:"column:status;type:text;not null;default:'new'"`
	AssignedAgentID *uuid.UUID       `gorm:"column:assigned_agent_id;type:uuid"`
	ReceivedAt      time.Time        `gorm:"column:received_at;not null"`
	AssignedAt      *time.Time       `gorm:"column:assigned_at"`
	LastActivityAt  time.Time        `gorm:"column:last_activity_at;not null"`
	Responded       bool             `gorm:"column:responded;not null;default:false"`
	SLABucket       *enums.SLABucket `gorm:"column:sla_bucket;type:text"`
	CreatedAt       time.Time        `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time        `gorm:"column:updated_at;autoUpdateTime"`
}

// TableName keeps the table name short; "case" is a reserved word in some tools.
func (CaseRecord) TableName() string { return "cases" }
