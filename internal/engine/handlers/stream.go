package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"clowder-server/internal/engine"
	"clowder-server/internal/shared/config"

	"github.com/gorilla/websocket"
)

const (
	streamWriteWait  = 10 * time.Second
	streamPongWait   = 60 * time.Second
	streamPingPeriod = 30 * time.Second
)

type StreamHandler struct {
	engine   *engine.Engine
	upgrader websocket.Upgrader
}

func NewStreamHandler(e *engine.Engine) *StreamHandler {
	return &StreamHandler{
		engine: e,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     checkStreamOrigin,
		},
	}
}

// Browsers send an Origin header on websocket handshakes; other clients
// (bots, health probes) usually send none and are allowed through.
func checkStreamOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	return origin == config.GlobalConfig.Frontend.URL
}

// Stream upgrades the connection and pushes a fresh dashboard snapshot
// after every tick until the client disconnects. The stream is
// read-only; all mutations go through the regular endpoints.
func (h *StreamHandler) Stream(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := slog.With("handler", "colony_stream", "remote_addr", r.RemoteAddr)

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the handshake error
		logger.Error("Failed to upgrade stream connection", "error", err)
		return
	}
	defer conn.Close()

	results, cancel := h.engine.Subscribe()
	defer cancel()

	logger.Debug("Stream connected")

	// Reader drains control frames and unblocks the writer on close
	done := make(chan struct{})
	go func() {
		defer close(done)
		conn.SetReadLimit(512)
		conn.SetReadDeadline(time.Now().Add(streamPongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(streamPongWait))
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	if err := h.pushSnapshot(ctx, conn); err != nil {
		logger.Debug("Stream closed before first snapshot", "error", err)
		return
	}

	pingTicker := time.NewTicker(streamPingPeriod)
	defer pingTicker.Stop()

	for {
		select {
		case <-done:
			logger.Debug("Stream disconnected")
			return
		case _, ok := <-results:
			if !ok {
				return
			}
			if err := h.pushSnapshot(ctx, conn); err != nil {
				logger.Debug("Stream write failed", "error", err)
				return
			}
		case <-pingTicker.C:
			conn.SetWriteDeadline(time.Now().Add(streamWriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (h *StreamHandler) pushSnapshot(ctx context.Context, conn *websocket.Conn) error {
	dashboard, err := h.engine.Dashboard(ctx, "")
	if err != nil {
		return err
	}

	conn.SetWriteDeadline(time.Now().Add(streamWriteWait))
	return conn.WriteJSON(dashboard)
}
