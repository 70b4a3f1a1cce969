package enums

// CaseStatus mirrors the codes seeded into the case_statuses catalog.
type CaseStatus string

const (
	// CaseStatusNew marks a freshly ingested, unassigned case.
	CaseStatusNew CaseStatus = "new"
	// CaseStatusAssigned marks a case claimed by an agent.
	CaseStatusAssigned CaseStatus = "assigned"
	// CaseStatusInProgress marks a case an agent has started working.
	CaseStatusInProgress CaseStatus = "in_progress"
	// CaseStatusResponded marks a case whose requester has been answered.
	CaseStatusResponded CaseStatus = "responded"
	// CaseStatusClosed is terminal; closed cases are never reopened by the engine.
	CaseStatusClosed CaseStatus = "closed"
)

// IsValid reports whether the status is one of the known codes.
func (s CaseStatus) IsValid() bool {
	switch s {
	case CaseStatusNew, CaseStatusAssigned, CaseStatusInProgress, CaseStatusResponded, CaseStatusClosed:
		return true
	}
	return false
}

// IsTerminal reports whether the status ends the case lifecycle.
func (s CaseStatus) IsTerminal() bool {
	return s == CaseStatusClosed
}
