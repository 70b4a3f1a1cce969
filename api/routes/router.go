package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/rmarroquin/casedesk-backend/api/controllers"
	"github.com/rmarroquin/casedesk-backend/api/middleware"
	"github.com/rmarroquin/casedesk-backend/internal/assignment"
	"github.com/rmarroquin/casedesk-backend/internal/auth"
	"github.com/rmarroquin/casedesk-backend/internal/cases"
	"github.com/rmarroquin/casedesk-backend/internal/sla"
	"github.com/rmarroquin/casedesk-backend/internal/users"
	"github.com/rmarroquin/casedesk-backend/pkg/config"
	"github.com/rmarroquin/casedesk-backend/pkg/db"
	"github.com/rmarroquin/casedesk-backend/pkg/enums"
	"github.com/rmarroquin/casedesk-backend/pkg/logger"
	pkgredis "github.com/rmarroquin/casedesk-backend/pkg/redis"
)

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisClient *pkgredis.Client,
	authService *auth.Service,
	caseService *cases.Service,
	assignmentService *assignment.Service,
	slaService *sla.Service,
	userService *users.Service,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, dbP, redisClient))
	})

	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/public", func(r chi.Router) {
		r.Get("/ping", controllers.PublicPing())
	})

	r.Route("/api/v1/auth", func(r chi.Router) {
		r.Post("/login", controllers.AuthLogin(authService, logg))
	})

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.Idempotency(redisClient, logg))

		r.Group(func(r chi.Router) {
			r.Get("/ping", controllers.PrivatePing())

			r.Route("/v1/cases", func(r chi.Router) {
				r.Get("/", controllers.CaseList(caseService, logg))
				r.Get("/{caseId}", controllers.CaseDetail(caseService, logg))
				r.Post("/{caseId}/status", controllers.CaseStatusChange(caseService, logg))
				r.With(middleware.RequireAnyRole(logg, string(enums.UserRoleSupervisor), string(enums.UserRoleAdmin))).
					Post("/{caseId}/assign", controllers.CaseAssign(caseService, logg))
			})

			r.Route("/v1/assignments", func(r chi.Router) {
				r.Use(middleware.RequireAnyRole(logg, string(enums.UserRoleSupervisor), string(enums.UserRoleAdmin)))
				r.Post("/auto", controllers.AutoAssign(assignmentService, logg))
			})

			r.Route("/v1/dashboard", func(r chi.Router) {
				r.Use(middleware.RequireAnyRole(logg, string(enums.UserRoleSupervisor), string(enums.UserRoleAdmin)))
				r.Get("/sla", controllers.SLADashboard(slaService, logg))
			})
		})

		r.Route("/admin/v1", func(r chi.Router) {
			r.Use(middleware.RequireRole(string(enums.UserRoleAdmin), logg))
			r.Route("/users", func(r chi.Router) {
				r.Get("/", controllers.AdminUserList(userService, logg))
				r.Post("/", controllers.AdminUserCreate(userService, logg))
				r.Get("/{userId}", controllers.AdminUserDetail(userService, logg))
				r.Patch("/{userId}", controllers.AdminUserUpdate(userService, logg))
			})
		})
	})

	return r
}
