package controllers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/rmarroquin/casedesk-backend/api/responses"
	"github.com/rmarroquin/casedesk-backend/api/validators"
	"github.com/rmarroquin/casedesk-backend/internal/users"
	"github.com/rmarroquin/casedesk-backend/pkg/enums"
	pkgerrors "github.com/rmarroquin/casedesk-backend/pkg/errors"
	"github.com/rmarroquin/casedesk-backend/pkg/logger"
)

const maxNameLen = 120

type createUserRequest struct {
	Email             string `json:"email" validate:"required,email"`
	Password          string `json:"password" validate:"required,min=10"`
	FirstName         string `json:"first_name" validate:"required,max=120"`
	LastName          string `json:"last_name" validate:"required,max=120"`
	Role              string `json:"role" validate:"omitempty,oneof=agent supervisor admin"`
	AutoAssignEnabled *bool  `json:"auto_assign_enabled"`
}

type updateUserRequest struct {
	FirstName         *string `json:"first_name" validate:"omitempty,max=120"`
	LastName          *string `json:"last_name" validate:"omitempty,max=120"`
	Role              *string `json:"role" validate:"omitempty,oneof=agent supervisor admin"`
	IsActive          *bool   `json:"is_active"`
	AutoAssignEnabled *bool   `json:"auto_assign_enabled"`
}

func parseUserID(r *http.Request) (uuid.UUID, error) {
	raw := chi.URLParam(r, "userId")
	userID, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid user id")
	}
	return userID, nil
}

// AdminUserCreate provisions a portal account.
func AdminUserCreate(svc *users.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "user service unavailable"))
			return
		}

		var body createUserRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		created, err := svc.Create(r.Context(), users.CreateInput{
			Email:             body.Email,
			Password:          body.Password,
			FirstName:         validators.SanitizeString(body.FirstName, maxNameLen),
			LastName:          validators.SanitizeString(body.LastName, maxNameLen),
			Role:              enums.UserRole(strings.ToLower(strings.TrimSpace(body.Role))),
			AutoAssignEnabled: body.AutoAssignEnabled,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, created)
	}
}

// AdminUserList pages through portal accounts.
func AdminUserList(svc *users.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "user service unavailable"))
			return
		}

		limit, err := validators.ParseQueryInt(r, "limit", 50, 1, 200)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		offset, err := validators.ParseQueryInt(r, "offset", 0, 0, 100000)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		list, err := svc.List(r.Context(), limit, offset)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]any{"items": list})
	}
}

// AdminUserDetail loads one portal account.
func AdminUserDetail(svc *users.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "user service unavailable"))
			return
		}

		userID, err := parseUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		user, err := svc.Get(r.Context(), userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, user)
	}
}

// AdminUserUpdate applies partial changes to role and flags. Deactivating an
// agent or turning off auto-assign takes them out of the rotation without
// touching their open cases.
func AdminUserUpdate(svc *users.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "user service unavailable"))
			return
		}

		userID, err := parseUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body updateUserRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input := users.UpdateUserDTO{
			IsActive:          body.IsActive,
			AutoAssignEnabled: body.AutoAssignEnabled,
		}
		if body.FirstName != nil {
			name := validators.SanitizeString(*body.FirstName, maxNameLen)
			input.FirstName = &name
		}
		if body.LastName != nil {
			name := validators.SanitizeString(*body.LastName, maxNameLen)
			input.LastName = &name
		}
		if body.Role != nil {
			role := enums.UserRole(strings.ToLower(strings.TrimSpace(*body.Role)))
			input.Role = &role
		}

		updated, err := svc.Update(r.Context(), userID, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, updated)
	}
}
