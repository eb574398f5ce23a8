package api

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/talgya/taixu/internal/engine"
	"github.com/talgya/taixu/internal/logger"
	"github.com/talgya/taixu/internal/player"
)

// WebSocket settings.
const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
	framePeriod    = 100 * time.Millisecond
	catchUpEvents  = 50
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// acquireStream reserves one of the shared stream slots.
func (s *Server) acquireStream(w http.ResponseWriter) bool {
	if s.streamConns.Add(1) > maxStreamConns {
		s.streamConns.Add(-1)
		writeError(w, http.StatusServiceUnavailable, "too many stream connections")
		return false
	}
	return true
}

// handleStream pushes events as server-sent events, with a catch-up burst
// of recent history.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}
	if !s.acquireStream(w) {
		return
	}
	defer s.streamConns.Add(-1)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	subID, ch := s.Sim.Events.Subscribe()
	defer s.Sim.Events.Unsubscribe(subID)

	for _, e := range s.Sim.Events.Recent(catchUpEvents) {
		writeSSEEvent(w, e)
	}
	flusher.Flush()

	log := logger.FromContext(r.Context())
	log.Info("SSE client connected", "sub_id", subID)

	heartbeat := time.NewTicker(15 * time.Second)
	defer heartbeat.Stop()

	for {
		select {
		case e, ok := <-ch:
			if !ok {
				return
			}
			writeSSEEvent(w, e)
			flusher.Flush()
		case <-heartbeat.C:
			fmt.Fprintf(w, ": heartbeat\n\n")
			flusher.Flush()
		case <-r.Context().Done():
			log.Info("SSE client disconnected", "sub_id", subID)
			return
		}
	}
}

// writeSSEEvent writes a single event in SSE format.
func writeSSEEvent(w http.ResponseWriter, e engine.Event) {
	data, err := json.Marshal(e)
	if err != nil {
		return
	}
	fmt.Fprintf(w, "event: %s\ndata: %s\n\n", e.Category, data)
}

// wsMessage is what the server pushes over the websocket.
type wsMessage struct {
	Type  string        `json:"type"` // frame, event or error
	Frame *engine.Frame `json:"frame,omitempty"`
	Event *engine.Event `json:"event,omitempty"`
	Error string        `json:"error,omitempty"`
}

// handleWS runs the live play channel: the client sends input events and
// receives frames and events.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	if !s.acquireStream(w) {
		return
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.streamConns.Add(-1)
		slog.Warn("websocket upgrade failed", "error", err)
		return
	}

	log := logger.FromContext(r.Context())
	send := make(chan wsMessage, 16)
	done := make(chan struct{})

	go s.wsWritePump(conn, send, done)

	conn.SetReadLimit(maxMessageSize)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	log.Info("websocket client connected")

	defer func() {
		close(done)
		s.streamConns.Add(-1)
		log.Info("websocket client disconnected")
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Debug("websocket read failed", "error", err)
			}
			return
		}
		var ev player.Event
		if err := json.Unmarshal(data, &ev); err != nil {
			s.offer(send, wsMessage{Type: "error", Error: err.Error()})
			continue
		}
		if err := s.input(r, ev); err != nil {
			s.offer(send, wsMessage{Type: "error", Error: err.Error()})
		}
	}
}

func (s *Server) offer(send chan<- wsMessage, m wsMessage) {
	select {
	case send <- m:
	default:
	}
}

// wsWritePump is the only writer on conn. It pushes fresh frames, events and
// queued messages, and pings to keep the connection alive.
func (s *Server) wsWritePump(conn *websocket.Conn, send <-chan wsMessage, done <-chan struct{}) {
	subID, events := s.Sim.Events.Subscribe()
	frames := time.NewTicker(framePeriod)
	ping := time.NewTicker(pingPeriod)
	defer func() {
		frames.Stop()
		ping.Stop()
		s.Sim.Events.Unsubscribe(subID)
		conn.Close()
	}()

	write := func(m wsMessage) bool {
		conn.SetWriteDeadline(time.Now().Add(writeWait))
		return conn.WriteJSON(m) == nil
	}

	// Compared by identity; a paused tick still publishes new frames.
	var last *engine.Frame
	for {
		select {
		case <-done:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		case m := <-send:
			if !write(m) {
				return
			}
		case e, ok := <-events:
			if !ok {
				return
			}
			if !write(wsMessage{Type: "event", Event: &e}) {
				return
			}
		case <-frames.C:
			f := s.Sim.LatestFrame()
			if f == nil || f == last {
				continue
			}
			if !write(wsMessage{Type: "frame", Frame: f}) {
				return
			}
			last = f
		case <-ping.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
