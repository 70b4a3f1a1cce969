package controllers

import (
	"net/http"

	"github.com/rmarroquin/casedesk-backend/api/responses"
	"github.com/rmarroquin/casedesk-backend/api/validators"
	"github.com/rmarroquin/casedesk-backend/internal/assignment"
	pkgerrors "github.com/rmarroquin/casedesk-backend/pkg/errors"
	"github.com/rmarroquin/casedesk-backend/pkg/logger"
)

// AutoAssign runs one bulk auto-assignment batch over the pending pool.
func AutoAssign(svc *assignment.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "assignment service unavailable"))
			return
		}

		actorID, role, err := principalFromContext(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		limit, err := validators.ParseQueryInt(r, "limit", assignment.DefaultBatchLimit, 1, assignment.DefaultBatchLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		report, err := svc.AutoAssignBatch(r.Context(), assignment.BatchInput{
			Limit:     limit,
			ActorID:   &actorID,
			ActorRole: role,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, report)
	}
}
