package enums

// AssignOutcome is the discriminated result of one auto-assign batch run.
type AssignOutcome string

const (
	// AssignOutcomeAssigned means at least one case was placed.
	AssignOutcomeAssigned AssignOutcome = "ASSIGNED"
	// AssignOutcomeNoAgents means every skip was due to zero eligible agents.
	AssignOutcomeNoAgents AssignOutcome = "NO_AGENTS"
	// AssignOutcomeSkipped means every skip was a race loss to another assigner.
	AssignOutcomeSkipped AssignOutcome = "SKIPPED"
	// AssignOutcomeNoPending means the pending queue was empty.
	AssignOutcomeNoPending AssignOutcome = "NO_PENDING"
)
