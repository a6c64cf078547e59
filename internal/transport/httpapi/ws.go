package httpapi

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"signup-agent/internal/domain/entity"
)

const wsWriteTimeout = 10 * time.Second

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The stream is observational and the server binds to an operator
	// address, so cross-origin dashboards are allowed.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// handleEvents upgrades the connection and forwards every StatusEvent
// published after the subscription was taken. There is no replay; a
// client that wants current state hits the tasks endpoint first.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("Websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	// Publishers run on their own goroutines and gorilla connections do
	// not tolerate concurrent writers.
	var writeMu sync.Mutex
	done := make(chan struct{})
	var once sync.Once

	unsubscribe := s.bus.Subscribe(func(event entity.StatusEvent) {
		writeMu.Lock()
		defer writeMu.Unlock()

		conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
		if err := conn.WriteJSON(event); err != nil {
			once.Do(func() { close(done) })
		}
	})
	defer unsubscribe()

	s.logger.Debug("Event stream client connected", "remote", r.RemoteAddr)

	// Drain the read side so close frames and pings are processed; the
	// client never sends application data.
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				once.Do(func() { close(done) })
				return
			}
		}
	}()

	select {
	case <-done:
	case <-r.Context().Done():
	}
	s.logger.Debug("Event stream client disconnected", "remote", r.RemoteAddr)
}
