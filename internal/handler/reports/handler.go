package reports

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/kasaops/kasa-backend/internal/service/reportlog"
	"github.com/kasaops/kasa-backend/pkg/utils"
)

// Handler exposes the emergency report log to the responder dashboard,
// both as a listing and as a live WebSocket feed.
type Handler struct {
	reports  *reportlog.Service
	upgrader websocket.Upgrader
}

// New creates the reports handler.
func New(reports *reportlog.Service) *Handler {
	return &Handler{
		reports: reports,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
}

// RegisterRoutes mounts the report endpoints.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/reports", h.handleList)
	r.Get("/reports/ws", h.handleFeed)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	items := h.reports.List(r.Context())
	utils.RespondJSON(w, http.StatusOK, map[string]any{
		"totalReports": len(items),
		"reports":      items,
		"lastUpdated":  time.Now().UTC(),
	})
}

// handleFeed streams every report created after the connection opened as a
// JSON frame.
func (h *Handler) handleFeed(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error().Err(err).Msg("report feed upgrade failed")
		return
	}
	defer conn.Close()

	feed, cancel := h.reports.Subscribe()
	defer cancel()

	// Drain client frames so close handshakes are noticed.
	clientGone := make(chan struct{})
	go func() {
		defer close(clientGone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-clientGone:
			return
		case rep := <-feed:
			if err := conn.WriteJSON(rep); err != nil {
				log.Error().Err(err).Msg("report feed write failed")
				return
			}
		}
	}
}
