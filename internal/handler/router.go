package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/kasaops/kasa-backend/internal/handler/alerts"
	"github.com/kasaops/kasa-backend/internal/handler/reports"
	"github.com/kasaops/kasa-backend/internal/handler/users"
	"github.com/kasaops/kasa-backend/internal/handler/ussd"
	"github.com/kasaops/kasa-backend/internal/middleware"
	alertService "github.com/kasaops/kasa-backend/internal/service/alert"
	"github.com/kasaops/kasa-backend/internal/service/importer"
	"github.com/kasaops/kasa-backend/internal/service/menu"
	"github.com/kasaops/kasa-backend/internal/service/registry"
	"github.com/kasaops/kasa-backend/internal/service/reportlog"
	"github.com/kasaops/kasa-backend/pkg/utils"
)

// Deps collects the services the HTTP surface exposes.
type Deps struct {
	Menu       *menu.Service
	Registry   *registry.Service
	Reports    *reportlog.Service
	Alerts     *alertService.Service
	Importer   *importer.Importer
	SMSEnabled bool
}

// NewRouter wires HTTP routes to core services.
func NewRouter(deps Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestLogger)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.CORS)

	// Gateway webhook lives at the root, matching what the delivery
	// network is configured to call.
	ussd.New(deps.Menu).RegisterRoutes(r)

	r.Route("/api", func(api chi.Router) {
		users.New(deps.Registry, deps.Importer).RegisterRoutes(api)
		alerts.New(deps.Alerts).RegisterRoutes(api)
		reports.New(deps.Reports).RegisterRoutes(api)
	})

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		smsStatus := "not_configured"
		if deps.SMSEnabled {
			smsStatus = "configured"
		}
		utils.RespondJSON(w, http.StatusOK, map[string]any{
			"status":          "healthy",
			"service":         "KASA Alert System",
			"registeredUsers": deps.Registry.Count(r.Context()),
			"reports":         deps.Reports.Count(r.Context()),
			"smsGateway":      smsStatus,
		})
	})

	return r
}
