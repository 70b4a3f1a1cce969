package enums

// CaseEventType identifies an entry in the append-only case audit log.
type CaseEventType string

const (
	// EventCaseAssigned records a successful assignment (bulk or manual).
	EventCaseAssigned CaseEventType = "ASSIGNED"
	// EventAutoAssignSkipped records a case the bulk engine could not place.
	EventAutoAssignSkipped CaseEventType = "AUTO_ASSIGN_SKIPPED"
	// EventCaseStatusChanged records an agent-driven status transition.
	EventCaseStatusChanged CaseEventType = "STATUS_CHANGED"
)

// AssignMode distinguishes how an assignment happened.
type AssignMode string

const (
	AssignModeBulkAuto AssignMode = "bulk_auto"
	AssignModeManual   AssignMode = "manual"
)

// SkipReason explains an AUTO_ASSIGN_SKIPPED event.
type SkipReason string

const (
	SkipReasonNoEligibleAgents SkipReason = "no_eligible_agents"
)
