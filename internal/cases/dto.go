package cases

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/rmarroquin/casedesk-backend/pkg/db/models"
	"github.com/rmarroquin/casedesk-backend/pkg/enums"
)

// CaseDTO is the transport shape for a single case.
type CaseDTO struct {
	ID              uuid.UUID        `json:"id"`
	CaseNumber      string           `json:"case_number"`
	Subject         string           `json:"subject"`
	RequesterEmail  string           `json:"requester_email"`
	Status          enums.CaseStatus `json:"status"`
	AssignedAgentID *uuid.UUID       `json:"assigned_agent_id,omitempty"`
	ReceivedAt      time.Time        `json:"received_at"`
	AssignedAt      *time.Time       `json:"assigned_at,omitempty"`
	LastActivityAt  time.Time        `json:"last_activity_at"`
	Responded       bool             `json:"responded"`
	SLABucket       *enums.SLABucket `json:"sla_bucket,omitempty"`
	CreatedAt       time.Time        `json:"created_at"`
	UpdatedAt       time.Time        `json:"updated_at"`
}

// CaseEventDTO is the transport shape for one audit entry.
type CaseEventDTO struct {
	ID          uuid.UUID           `json:"id"`
	ActorUserID *uuid.UUID          `json:"actor_user_id,omitempty"`
	EventType   enums.CaseEventType `json:"event_type"`
	PriorStatus *enums.CaseStatus   `json:"prior_status,omitempty"`
	NextStatus  *enums.CaseStatus   `json:"next_status,omitempty"`
	Detail      json.RawMessage     `json:"detail,omitempty"`
	CreatedAt   time.Time           `json:"created_at"`
}

// CaseDetailDTO bundles a case with its recent audit trail.
type CaseDetailDTO struct {
	Case   CaseDTO        `json:"case"`
	Events []CaseEventDTO `json:"events"`
}

// CaseList is one inbox page plus the cursor for the next one.
type CaseList struct {
	Items      []CaseDTO `json:"items"`
	NextCursor string    `json:"next_cursor,omitempty"`
}

// ListFilters narrows the inbox query.
type ListFilters struct {
	Status          *enums.CaseStatus
	AssignedAgentID *uuid.UUID
	Unassigned      bool
}

// FromModel maps a persisted case onto the transport shape.
func FromModel(c *models.CaseRecord) CaseDTO {
	if c == nil {
		return CaseDTO{}
	}
	return CaseDTO{
		ID:              c.ID,
		CaseNumber:      c.CaseNumber,
		Subject:         c.Subject,
		RequesterEmail:  c.RequesterEmail,
		Status:          c.Status,
		AssignedAgentID: c.AssignedAgentID,
		ReceivedAt:      c.ReceivedAt,
		AssignedAt:      c.AssignedAt,
		LastActivityAt:  c.LastActivityAt,
		Responded:       c.Responded,
		SLABucket:       c.SLABucket,
		CreatedAt:       c.CreatedAt,
		UpdatedAt:       c.UpdatedAt,
	}
}

// EventFromModel maps an audit row onto the transport shape.
func EventFromModel(e models.CaseEvent) CaseEventDTO {
	return CaseEventDTO{
		ID:          e.ID,
		ActorUserID: e.ActorUserID,
		EventType:   e.EventType,
		PriorStatus: e.PriorStatus,
		NextStatus:  e.NextStatus,
		Detail:      e.Detail,
		CreatedAt:   e.CreatedAt,
	}
}
