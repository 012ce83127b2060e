package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/kontrolhq/kontrol-backend/internal/config"
	"github.com/kontrolhq/kontrol-backend/internal/service"
	ws "github.com/kontrolhq/kontrol-backend/internal/websocket"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// buildUpgrader creates a WebSocket upgrader with origin validation.
// An empty allow-list permits all origins (development mode).
func buildUpgrader(allowedOrigins []string) websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			if len(allowedOrigins) == 0 {
				return true
			}
			origin := r.Header.Get("Origin")
			for _, allowed := range allowedOrigins {
				if strings.EqualFold(allowed, origin) {
					return true
				}
			}
			return false
		},
	}
}

// WSHandler streams a session's timer events to the client.
type WSHandler struct {
	rdb      *redis.Client
	sessions *service.SessionService
	cfg      *config.Config
	log      zerolog.Logger
	upgrader websocket.Upgrader
}

// NewWSHandler creates a new WSHandler.
func NewWSHandler(rdb *redis.Client, sessions *service.SessionService, cfg *config.Config, log zerolog.Logger) *WSHandler {
	return &WSHandler{
		rdb:      rdb,
		sessions: sessions,
		cfg:      cfg,
		log:      log.With().Str("component", "ws_handler").Logger(),
		upgrader: buildUpgrader(cfg.AllowedOrigins),
	}
}

// TimerStream godoc
// WS /ws/v1/sessions/:session_id/timer
// Relays the session's tick/reminder/expired/submitted events. The socket
// is a convenience layer: the client can always fall back to polling GET
// state, so a dropped connection loses nothing durable.
func (h *WSHandler) TimerStream(c *gin.Context) {
	sessionID := c.Param("session_id")

	// Only started sessions have an event stream.
	view, err := h.sessions.GetState(c.Request.Context(), sessionID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown session"})
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	defer conn.Close()

	wsLog := h.log.With().Str("session_id", sessionID).Logger()
	wsLog.Info().Msg("Timer stream connected")

	// Immediate snapshot so the client renders the countdown before the
	// first worker tick arrives.
	if err := ws.WriteTyped(conn, ws.TimerEvent{
		Event:       ws.EventTick,
		SessionID:   sessionID,
		RemainingMs: view.RemainingMs,
	}); err != nil {
		return
	}

	channel := config.StoreKey.SessionEventsChannel(h.cfg.DataURL, sessionID)
	sub := h.rdb.Subscribe(c.Request.Context(), channel)
	defer sub.Close()

	// Reader goroutine: the client never sends meaningful frames, but
	// reading is what surfaces the close handshake.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	events := sub.Channel()
	for {
		select {
		case <-done:
			wsLog.Debug().Msg("Timer stream closed by client")
			return
		case <-c.Request.Context().Done():
			return
		case msg, ok := <-events:
			if !ok {
				wsLog.Debug().Msg("Event channel closed")
				return
			}
			// Payloads are pre-marshaled TimerEvent JSON; relay verbatim.
			if err := conn.WriteMessage(websocket.TextMessage, []byte(msg.Payload)); err != nil {
				wsLog.Debug().Err(err).Msg("Write failed, dropping stream")
				return
			}
		}
	}
}
