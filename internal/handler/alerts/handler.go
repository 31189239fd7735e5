package alerts

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/kasaops/kasa-backend/internal/service/alert"
	"github.com/kasaops/kasa-backend/internal/service/sms"
	"github.com/kasaops/kasa-backend/pkg/utils"
)

// Handler exposes manual alert dispatch for operators.
type Handler struct {
	alerts *alert.Service
}

// New creates the alerts handler.
func New(alertSvc *alert.Service) *Handler {
	return &Handler{alerts: alertSvc}
}

// RegisterRoutes mounts the alert endpoints.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/alerts", h.handleSend)
	r.Post("/alerts/location", h.handleSendToLocation)
}

func (h *Handler) handleSend(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Message    string   `json:"message"`
		Recipients []string `json:"recipients"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	message := strings.TrimSpace(payload.Message)
	if message == "" {
		utils.RespondError(w, http.StatusBadRequest, "message cannot be empty")
		return
	}
	if len(message) > alert.MaxDirectMessageLen {
		utils.RespondError(w, http.StatusBadRequest, "message cannot exceed 160 characters")
		return
	}
	if len(payload.Recipients) == 0 {
		utils.RespondError(w, http.StatusBadRequest, "recipients list cannot be empty")
		return
	}
	for _, phone := range payload.Recipients {
		if !strings.HasPrefix(phone, "+") {
			utils.RespondError(w, http.StatusBadRequest, "phone number "+phone+" must include country code (e.g., +254...)")
			return
		}
	}

	outcomes, err := h.alerts.SendDirect(r.Context(), message, payload.Recipients)
	if err != nil {
		utils.RespondError(w, http.StatusBadGateway, "failed to send alert")
		return
	}

	utils.RespondJSON(w, http.StatusOK, map[string]any{
		"message":         "Alert processing completed",
		"totalRecipients": len(payload.Recipients),
		"successfulCount": sms.DeliveredCount(outcomes),
		"failedCount":     len(outcomes) - sms.DeliveredCount(outcomes),
		"recipients":      outcomes,
	})
}

func (h *Handler) handleSendToLocation(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Location string `json:"location"`
		Message  string `json:"message"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	message := strings.TrimSpace(payload.Message)
	if payload.Location == "" {
		utils.RespondError(w, http.StatusBadRequest, "location is required")
		return
	}
	if message == "" {
		utils.RespondError(w, http.StatusBadRequest, "message cannot be empty")
		return
	}
	if len(message) > alert.MaxLocationMessageLen {
		utils.RespondError(w, http.StatusBadRequest, "message too long (max 140 characters)")
		return
	}

	result, err := h.alerts.SendToLocation(r.Context(), payload.Location, message, "")
	if err != nil {
		utils.RespondError(w, http.StatusBadGateway, "failed to send location alert")
		return
	}

	utils.RespondJSON(w, http.StatusOK, result)
}
