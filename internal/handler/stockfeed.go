package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/yourorg/bizledger/internal/observability/metrics"
	"github.com/yourorg/bizledger/internal/security/middleware"
	"github.com/yourorg/bizledger/internal/stockfeed"
)

const feedPingInterval = 30 * time.Second

// StockFeedHandler streams live stock changes over a WebSocket, scoped to the
// authenticated business.
type StockFeedHandler struct {
	hub            *stockfeed.Hub
	logger         *slog.Logger
	allowedOrigins []string
}

// NewStockFeedHandler creates a new stock feed handler
func NewStockFeedHandler(hub *stockfeed.Hub, logger *slog.Logger, allowedOrigins []string) *StockFeedHandler {
	return &StockFeedHandler{hub: hub, logger: logger, allowedOrigins: allowedOrigins}
}

// upgrader is initialized per-request to use instance's allowed origins
func (h *StockFeedHandler) getUpgrader() websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" {
				// Allow requests with no origin (e.g., non-browser clients)
				return true
			}
			for _, allowed := range h.allowedOrigins {
				if allowed == "*" || origin == allowed {
					return true
				}
			}
			h.logger.Warn("websocket origin rejected", slog.String("origin", origin))
			return false
		},
	}
}

// ServeHTTP handles GET /ws/inventory
func (h *StockFeedHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	scope := middleware.GetScopeFromContext(r.Context())
	if !scope.Valid() {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	upgrader := h.getUpgrader()
	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("websocket upgrade failed", slog.String("error", err.Error()))
		return
	}
	defer ws.Close()

	events, cancel := h.hub.Subscribe(scope.BusinessID())
	defer cancel()
	metrics.IncrementFeedSubscribers()
	defer metrics.DecrementFeedSubscribers()

	h.logger.Debug("stock feed subscriber connected", slog.String("business_id", scope.BusinessID()))

	// Reader goroutine detects client disconnect; nothing inbound is expected.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := ws.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ping := time.NewTicker(feedPingInterval)
	defer ping.Stop()

	for {
		select {
		case ev, ok := <-events:
			if !ok {
				return
			}
			if err := ws.WriteJSON(ev); err != nil {
				return
			}
		case <-ping.C:
			if err := ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-done:
			return
		case <-r.Context().Done():
			return
		}
	}
}
