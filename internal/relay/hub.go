package relay

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/mcoot/pongrelay/internal/model"
)

// HubConfig holds websocket transport settings
type HubConfig struct {
	WriteTimeout    time.Duration
	ReadTimeout     time.Duration
	PingInterval    time.Duration
	MaxMessageSize  int64
	ReadBufferSize  int
	WriteBufferSize int
	CheckOrigin     func(r *http.Request) bool
}

// DefaultHubConfig returns default websocket configuration
func DefaultHubConfig() HubConfig {
	return HubConfig{
		WriteTimeout:    10 * time.Second,
		ReadTimeout:     60 * time.Second,
		PingInterval:    25 * time.Second,
		MaxMessageSize:  8 * 1024,
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			// Game clients connect from arbitrary origins; the protocol
			// carries no credentials worth protecting with an origin check.
			return true
		},
	}
}

// Hub upgrades HTTP requests to websocket sessions and feeds their events
// into the dispatcher.
type Hub struct {
	dispatcher *Dispatcher
	upgrader   websocket.Upgrader
	config     HubConfig
	logger     *slog.Logger
}

// NewHub creates a Hub over the given dispatcher
func NewHub(dispatcher *Dispatcher, config HubConfig, logger *slog.Logger) *Hub {
	return &Hub{
		dispatcher: dispatcher,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  config.ReadBufferSize,
			WriteBufferSize: config.WriteBufferSize,
			CheckOrigin:     config.CheckOrigin,
		},
		config: config,
		logger: logger.With(slog.String("component", "ws")),
	}
}

// ServeWS handles a websocket upgrade request
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", slog.String("error", err.Error()))
		return
	}

	session := &wsSession{
		id:     model.SessionID(uuid.NewString()),
		conn:   conn,
		send:   make(chan model.Envelope, 256),
		done:   make(chan struct{}),
		hub:    h,
		logger: h.logger,
	}
	session.logger = h.logger.With(slog.String("session", string(session.id)))

	h.logger.Info("session connected",
		slog.String("session", string(session.id)),
		slog.String("remote", r.RemoteAddr),
	)

	go session.writePump()
	go session.readPump()
}
