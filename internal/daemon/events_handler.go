package daemon

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/websocket"

	"github.com/iabdelrhmaneyad/Gemini-3-Flash-sub001/internal/api"
	"github.com/iabdelrhmaneyad/Gemini-3-Flash-sub001/internal/events"
	"github.com/iabdelrhmaneyad/Gemini-3-Flash-sub001/internal/logging"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
	fetchLimit = 200
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	CheckOrigin:     func(*http.Request) bool { return true },
}

func (s *apiServer) handleEvents(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	var since uint64
	if raw := query.Get("since"); raw != "" {
		parsed, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			s.writeError(w, http.StatusBadRequest, "invalid since parameter")
			return
		}
		since = parsed
	}
	if websocket.IsWebSocketUpgrade(r) {
		s.streamEvents(w, r, since)
		return
	}

	wait := query.Get("wait") == "1" || query.Get("wait") == "true"
	ctx := r.Context()
	if wait {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, longPollDeadline)
		defer cancel()
	}
	evts, next, err := s.daemon.workflow.Events().Fetch(ctx, since, fetchLimit, wait)
	if err != nil && !errors.Is(err, context.DeadlineExceeded) {
		if r.Context().Err() != nil {
			return
		}
		s.writeError(w, http.StatusServiceUnavailable, "event stream closed")
		return
	}
	s.writeJSON(w, http.StatusOK, api.EventsResponse{Events: api.FromEvents(evts), Next: next})
}

// streamEvents pushes events to a websocket client until the client goes
// away or the daemon stops.
func (s *apiServer) streamEvents(w http.ResponseWriter, r *http.Request, since uint64) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote an error response.
		s.logger.Debug("websocket upgrade failed", logging.Error(err))
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(s.currentStreamCtx())
	defer cancel()
	stopOnDone := context.AfterFunc(r.Context(), cancel)
	defer stopOnDone()

	// Reader: handles pong frames and notices the peer closing.
	conn.SetReadLimit(512)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	batches := make(chan []events.Event)
	go func() {
		defer close(batches)
		hub := s.daemon.workflow.Events()
		cursor := since
		for {
			evts, next, err := hub.Fetch(ctx, cursor, fetchLimit, true)
			if err != nil {
				return
			}
			cursor = next
			select {
			case batches <- evts:
			case <-ctx.Done():
				return
			}
		}
	}()

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case evts, ok := <-batches:
			if !ok {
				_ = conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "daemon stopping"),
					time.Now().Add(writeWait))
				return
			}
			for _, evt := range evts {
				_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
				if err := conn.WriteJSON(api.FromEvent(evt)); err != nil {
					return
				}
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
