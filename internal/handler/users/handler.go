package users

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/kasaops/kasa-backend/internal/service/importer"
	"github.com/kasaops/kasa-backend/internal/service/registry"
	"github.com/kasaops/kasa-backend/pkg/utils"
)

const maxImportSize = 5 << 20 // uploads larger than 5 MiB are rejected

// Handler exposes the user registry over HTTP for dashboards and bulk
// import tooling.
type Handler struct {
	registry *registry.Service
	importer *importer.Importer
}

// New creates the user handler.
func New(reg *registry.Service, imp *importer.Importer) *Handler {
	return &Handler{registry: reg, importer: imp}
}

// RegisterRoutes mounts the user endpoints.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/users", h.handleList)
	r.Get("/users/location/{location}", h.handleListByLocation)
	r.Post("/users/import", h.handleImport)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	users := h.registry.All(r.Context())
	utils.RespondJSON(w, http.StatusOK, map[string]any{
		"totalUsers":      len(users),
		"users":           users,
		"locationSummary": h.registry.SummarizeByLocation(r.Context()),
		"lastUpdated":     time.Now().UTC(),
	})
}

func (h *Handler) handleListByLocation(w http.ResponseWriter, r *http.Request) {
	location := chi.URLParam(r, "location")
	users := h.registry.FindByLocation(r.Context(), location)
	utils.RespondJSON(w, http.StatusOK, map[string]any{
		"location":  location,
		"userCount": len(users),
		"users":     users,
	})
}

func (h *Handler) handleImport(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxImportSize); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid multipart body")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		utils.RespondError(w, http.StatusBadRequest, "file field is required")
		return
	}
	defer file.Close()

	if !strings.HasSuffix(strings.ToLower(header.Filename), ".csv") {
		utils.RespondError(w, http.StatusBadRequest, "file must be a CSV file")
		return
	}

	result, err := h.importer.Import(r.Context(), file)
	if err != nil {
		utils.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	shown := result.Errors
	if len(shown) > 10 {
		shown = shown[:10]
	}

	utils.RespondJSON(w, http.StatusOK, map[string]any{
		"message":        "CSV upload completed",
		"importedCount":  len(result.Imported),
		"errorCount":     len(result.Errors),
		"duplicateCount": result.Duplicates,
		"totalUsersNow":  h.registry.Count(r.Context()),
		"importedUsers":  result.Imported,
		"errors":         shown,
		"hasMoreErrors":  len(result.Errors) > 10,
	})
}
