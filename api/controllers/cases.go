package controllers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/rmarroquin/casedesk-backend/api/middleware"
	"github.com/rmarroquin/casedesk-backend/api/responses"
	"github.com/rmarroquin/casedesk-backend/api/validators"
	"github.com/rmarroquin/casedesk-backend/internal/cases"
	"github.com/rmarroquin/casedesk-backend/pkg/enums"
	pkgerrors "github.com/rmarroquin/casedesk-backend/pkg/errors"
	"github.com/rmarroquin/casedesk-backend/pkg/logger"
	"github.com/rmarroquin/casedesk-backend/pkg/pagination"
)

func principalFromContext(r *http.Request) (uuid.UUID, enums.UserRole, error) {
	raw := middleware.UserIDFromContext(r.Context())
	if raw == "" {
		return uuid.Nil, "", pkgerrors.New(pkgerrors.CodeUnauthorized, "user context missing")
	}
	actorID, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, "", pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid user id")
	}
	role := enums.UserRole(middleware.RoleFromContext(r.Context()))
	if !role.IsValid() {
		return uuid.Nil, "", pkgerrors.New(pkgerrors.CodeUnauthorized, "role context missing")
	}
	return actorID, role, nil
}

func parseCaseID(r *http.Request) (uuid.UUID, error) {
	raw := chi.URLParam(r, "caseId")
	caseID, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid case id")
	}
	return caseID, nil
}

// CaseList serves the inbox. Agents see their own cases; supervisors and
// admins can filter by status, agent, or the unassigned pool.
func CaseList(svc *cases.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "case service unavailable"))
			return
		}

		actorID, role, err := principalFromContext(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		filters := cases.ListFilters{}
		if raw := strings.TrimSpace(r.URL.Query().Get("status")); raw != "" {
			status := enums.CaseStatus(strings.ToLower(raw))
			if !status.IsValid() {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "unknown status").
					WithDetails(map[string]any{"status": raw}))
				return
			}
			filters.Status = &status
		}
		if raw := strings.TrimSpace(r.URL.Query().Get("agent_id")); raw != "" {
			agentID, parseErr := uuid.Parse(raw)
			if parseErr != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, parseErr, "invalid agent_id"))
				return
			}
			filters.AssignedAgentID = &agentID
		}
		unassigned, err := validators.ParseQueryBool(r, "unassigned")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		filters.Unassigned = unassigned

		list, err := svc.ListInbox(r.Context(), cases.ListInput{
			Params: pagination.Params{
				Limit:  limit,
				Cursor: strings.TrimSpace(r.URL.Query().Get("cursor")),
			},
			Filters:   filters,
			ActorID:   actorID,
			ActorRole: role,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, list)
	}
}

// CaseDetail returns one case plus its recent audit trail.
func CaseDetail(svc *cases.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "case service unavailable"))
			return
		}

		actorID, role, err := principalFromContext(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		caseID, err := parseCaseID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		detail, err := svc.GetDetail(r.Context(), caseID, actorID, role)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, detail)
	}
}

type manualAssignRequest struct {
	AgentID string `json:"agent_id" validate:"required,uuid4"`
}

// CaseAssign claims a case for a named agent.
func CaseAssign(svc *cases.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "case service unavailable"))
			return
		}

		actorID, role, err := principalFromContext(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		caseID, err := parseCaseID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body manualAssignRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		agentID, err := uuid.Parse(strings.TrimSpace(body.AgentID))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid agent_id"))
			return
		}

		updated, err := svc.ManualAssign(r.Context(), cases.ManualAssignInput{
			CaseID:    caseID,
			AgentID:   agentID,
			ActorID:   actorID,
			ActorRole: role,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, updated)
	}
}

type statusChangeRequest struct {
	Status string `json:"status" validate:"required"`
}

// CaseStatusChange moves a case along the transition whitelist.
func CaseStatusChange(svc *cases.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "case service unavailable"))
			return
		}

		actorID, role, err := principalFromContext(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		caseID, err := parseCaseID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body statusChangeRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		updated, err := svc.ChangeStatus(r.Context(), cases.StatusChangeInput{
			CaseID:    caseID,
			Next:      enums.CaseStatus(strings.ToLower(strings.TrimSpace(body.Status))),
			ActorID:   actorID,
			ActorRole: role,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, updated)
	}
}
