package web

import (
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/sweeney/egg-incubator/internal/log"
	"github.com/sweeney/egg-incubator/internal/status"
)

const (
	writeWait = 5 * time.Second
	pongWait  = 60 * time.Second
)

// handleWS pushes the status snapshot to the client on connect and then
// every pushInterval until either side goes away.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the HTTP error.
		log.Debugw("ws upgrade failed", "remote_addr", r.RemoteAddr, "error", err)
		return
	}
	defer conn.Close()
	log.Debugw("ws client connected", "remote_addr", r.RemoteAddr)

	closed := make(chan struct{})
	go readPump(conn, closed)

	ticker := time.NewTicker(pushInterval)
	defer ticker.Stop()

	for {
		if err := s.push(conn); err != nil {
			if !errors.Is(err, websocket.ErrCloseSent) {
				log.Debugw("ws write failed", "remote_addr", r.RemoteAddr, "error", err)
			}
			return
		}
		select {
		case <-s.ctx.Done():
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"))
			return
		case <-closed:
			log.Debugw("ws client disconnected", "remote_addr", r.RemoteAddr)
			return
		case <-ticker.C:
		}
	}
}

// push writes one snapshot followed by a ping that keeps readPump's deadline alive.
func (s *Server) push(conn *websocket.Conn) error {
	deadline := time.Now().Add(writeWait)
	conn.SetWriteDeadline(deadline)
	if err := conn.WriteMessage(websocket.TextMessage, status.FormatJSON(s.tracker.Snapshot(), nil)); err != nil {
		return err
	}
	return conn.WriteControl(websocket.PingMessage, nil, deadline)
}

// readPump discards client messages and closes done when the connection
// ends, so the writer notices disconnects between pushes.
func readPump(conn *websocket.Conn, done chan<- struct{}) {
	defer close(done)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}
