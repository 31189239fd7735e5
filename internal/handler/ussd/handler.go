package ussd

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	ussdmodel "github.com/kasaops/kasa-backend/internal/model/ussd"
	"github.com/kasaops/kasa-backend/internal/service/menu"
)

// Handler receives gateway callbacks, one per keystroke, and replies with
// plain CON/END text.
type Handler struct {
	menu *menu.Service
}

// New creates the USSD webhook handler.
func New(menuSvc *menu.Service) *Handler {
	return &Handler{menu: menuSvc}
}

// RegisterRoutes mounts the webhook.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/ussd", h.handleCallback)
}

func (h *Handler) handleCallback(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form body", http.StatusBadRequest)
		return
	}

	req := ussdmodel.Request{
		SessionID:   r.PostFormValue("sessionId"),
		ServiceCode: r.PostFormValue("serviceCode"),
		PhoneNumber: r.PostFormValue("phoneNumber"),
		Text:        r.PostFormValue("text"),
	}

	if req.SessionID == "" || req.PhoneNumber == "" {
		http.Error(w, "sessionId and phoneNumber are required", http.StatusBadRequest)
		return
	}

	reply := h.menu.Handle(r.Context(), req.SessionID, req.Text, req.PhoneNumber)

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(reply))
}
