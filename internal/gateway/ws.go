package gateway

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/hyeon-dev/chessduel/pkg/dueldto"
)

const wsWriteTimeout = 5 * time.Second

// handleEvents streams session snapshots over a WebSocket: the current state
// on connect, then one frame per controller event for this session. The read
// side is only watched for the client going away.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	snap, err := s.controller.Snapshot(r.Context(), id)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		CompressionMode: websocket.CompressionNoContextTakeover,
	})
	if err != nil {
		s.logger.Warn("ws_accept_failed", zap.String("session", id), zap.Error(err))
		return
	}
	defer conn.Close(websocket.StatusInternalError, "stream aborted")

	ctx := conn.CloseRead(r.Context())

	events, cancel := s.controller.Subscribe()
	defer cancel()

	writeFrame := func(frame dueldto.EventFrame) error {
		wctx, cancelWrite := context.WithTimeout(ctx, wsWriteTimeout)
		defer cancelWrite()
		return wsjson.Write(wctx, conn, frame)
	}

	if err := writeFrame(dueldto.EventFrame{Type: "state", Session: toSessionView(snap)}); err != nil {
		return
	}

	for {
		select {
		case <-ctx.Done():
			conn.Close(websocket.StatusNormalClosure, "")
			return
		case ev, ok := <-events:
			if !ok {
				conn.Close(websocket.StatusGoingAway, "server shutting down")
				return
			}
			if ev.SessionID != id {
				continue
			}
			frame := dueldto.EventFrame{
				Type:    string(ev.Type),
				Session: toSessionView(ev.Snapshot),
			}
			if err := writeFrame(frame); err != nil {
				return
			}
		}
	}
}
