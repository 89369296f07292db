package rest

import (
	"database/sql"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	chiMiddleware "github.com/go-chi/chi/middleware"

	"github.com/keswickschool/budget-dashboard/internal/access"
	"github.com/keswickschool/budget-dashboard/internal/auth"
	"github.com/keswickschool/budget-dashboard/internal/dashboard"
	"github.com/keswickschool/budget-dashboard/internal/report"
	"github.com/keswickschool/budget-dashboard/internal/tac"
	"github.com/keswickschool/budget-dashboard/internal/transport/middleware"
	"github.com/keswickschool/budget-dashboard/internal/transport/swagger"
)

// RouterDeps bundles everything the route table needs.
type RouterDeps struct {
	DB               *sql.DB
	Settings         SettingsChecker
	Resolver         middleware.GrantResolver
	AuthHandler      *auth.Handler
	DashboardHandler *dashboard.Handler
	TACHandler       *tac.Handler
	ReportHandler    *report.Handler
	AllowedOrigins   string
	Logger           *slog.Logger
}

func RegisterAllRoutes(router *chi.Mux, deps RouterDeps) {
	healthHandler := NewHealthHandler(deps.DB, deps.Settings)

	// Apply global middleware
	router.Use(middleware.CORSWithOrigins(deps.AllowedOrigins))
	router.Use(chiMiddleware.RequestID)
	router.Use(middleware.RequestID)
	router.Use(middleware.RecoveryMiddleware(deps.Logger))
	router.Use(middleware.LoggingMiddleware(deps.Logger))

	// Serve OpenAPI spec at root (outside API prefix)
	router.Get("/openapi.yml", func(w http.ResponseWriter, r *http.Request) {
		http.ServeFile(w, r, "./api/openapi.yml")
	})
	// Swagger UI route at root
	router.Handle("/swagger/*", swagger.Handler())

	// Mount API under /api/v1 to match OpenAPI basePath
	router.Route("/api/v1", func(r chi.Router) {
		// Health check route
		r.Get("/health", healthHandler.healthCheckHandler)
		r.Get("/ping", healthHandler.pingHandler)

		// Auth routes
		if deps.AuthHandler != nil {
			r.Route("/auth", func(sr chi.Router) {
				sr.Post("/login", deps.AuthHandler.Login)
				sr.Post("/refresh", deps.AuthHandler.RefreshToken)
				sr.Post("/logout", deps.AuthHandler.Logout)
			})

			// Protected routes that require authentication
			r.Group(func(pr chi.Router) {
				pr.Use(deps.AuthHandler.AuthMiddleware)

				if deps.DashboardHandler != nil {
					pr.Get("/dashboard", deps.DashboardHandler.GetDashboard)

					// Demo mode is an executive control
					pr.Group(func(er chi.Router) {
						er.Use(middleware.RequireRole(deps.Resolver, deps.Logger, access.RoleExecutive))
						er.Put("/dashboard/demo-mode", deps.DashboardHandler.SetDemoMode)
					})
				}

				if deps.TACHandler != nil {
					pr.Route("/tac", func(tr chi.Router) {
						tr.Get("/grades", deps.TACHandler.GetGrades)

						// Enrollment edits are restricted to leadership
						tr.Group(func(er chi.Router) {
							er.Use(middleware.RequireRole(deps.Resolver, deps.Logger,
								access.RoleExecutive, access.RolePrincipal))
							er.Put("/enrollment", deps.TACHandler.UpdateEnrollment)
						})
					})
				}

				if deps.ReportHandler != nil {
					pr.Get("/reports/{type}", deps.ReportHandler.GetReport)
				}
			})
		}
	})
}
