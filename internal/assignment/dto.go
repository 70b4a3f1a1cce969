package assignment

import "github.com/rmarroquin/casedesk-backend/pkg/enums"

// Report summarizes one auto-assign batch run.
type Report struct {
	Outcome         enums.AssignOutcome `json:"outcome"`
	Assigned        int                 `json:"assigned"`
	Skipped         int                 `json:"skipped"`
	SkippedNoAgents int                 `json:"skipped_no_agents"`
	Message         string              `json:"message,omitempty"`
}

func (r *Report) resolveOutcome(pending int) {
	switch {
	case pending == 0:
		r.Outcome = enums.AssignOutcomeNoPending
		r.Message = "no pending cases"
	case r.Assigned > 0:
		r.Outcome = enums.AssignOutcomeAssigned
	case r.SkippedNoAgents > 0 && r.Skipped == 0:
		r.Outcome = enums.AssignOutcomeNoAgents
		r.Message = "no eligible agents"
	default:
		r.Outcome = enums.AssignOutcomeSkipped
		r.Message = "all pending cases were claimed elsewhere"
	}
}
