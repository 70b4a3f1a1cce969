package payloads

import (
	"time"

	"github.com/google/uuid"

	"github.com/rmarroquin/casedesk-backend/pkg/enums"
)

// CaseAssignedEvent is emitted when a case is claimed by an agent, whether
// by the batch engine or a manual assignment.
type CaseAssignedEvent struct {
	CaseID     uuid.UUID        `json:"case_id"`
	CaseNumber string           `json:"case_number"`
	AgentID    uuid.UUID        `json:"agent_id"`
	Mode       enums.AssignMode `json:"mode"`
	AssignedAt time.Time        `json:"assigned_at"`
}

// CaseStatusChangedEvent is emitted on every successful status transition.
type CaseStatusChangedEvent struct {
	CaseID      uuid.UUID        `json:"case_id"`
	CaseNumber  string           `json:"case_number"`
	PriorStatus enums.CaseStatus `json:"prior_status"`
	NextStatus  enums.CaseStatus `json:"next_status"`
	ChangedAt   time.Time        `json:"changed_at"`
}
