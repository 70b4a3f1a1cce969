package controllers

import (
	"net/http"

	"github.com/rmarroquin/casedesk-backend/api/responses"
	"github.com/rmarroquin/casedesk-backend/api/validators"
	"github.com/rmarroquin/casedesk-backend/internal/auth"
	pkgerrors "github.com/rmarroquin/casedesk-backend/pkg/errors"
	"github.com/rmarroquin/casedesk-backend/pkg/logger"
)

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// AuthLogin wires the login endpoint into the HTTP layer.
func AuthLogin(svc *auth.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			err := pkgerrors.New(pkgerrors.CodeInternal, "auth service unavailable")
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body loginRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Login(r.Context(), body.Email, body.Password)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, result)
	}
}
