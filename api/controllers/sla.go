package controllers

import (
	"net/http"

	"github.com/rmarroquin/casedesk-backend/api/responses"
	"github.com/rmarroquin/casedesk-backend/internal/sla"
	pkgerrors "github.com/rmarroquin/casedesk-backend/pkg/errors"
	"github.com/rmarroquin/casedesk-backend/pkg/logger"
)

// SLADashboard returns the open-case counts per SLA bucket. The service
// refreshes stale buckets before counting, so the first dashboard view of
// the day pays for the recompute.
func SLADashboard(svc *sla.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "sla service unavailable"))
			return
		}

		counts, err := svc.DashboardCounts(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]any{"buckets": counts})
	}
}
