// Package web provides the HTTP dashboard for the incubator daemon.
package web

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"github.com/sweeney/egg-incubator/internal/log"
	"github.com/sweeney/egg-incubator/internal/mqtt"
	"github.com/sweeney/egg-incubator/internal/settings"
	"github.com/sweeney/egg-incubator/internal/status"
)

const (
	// defaultRecent is how many observations the dashboard shows.
	defaultRecent = 20
	// maxLimit caps /observations?limit=N.
	maxLimit = 1000
)

// pushInterval is how often /ws clients receive a fresh snapshot.
var pushInterval = 5 * time.Second

// Server serves the dashboard and the settings endpoint over HTTP.
type Server struct {
	httpServer *http.Server
	tracker    *status.Tracker
	settings   *settings.Manager
	publisher  mqtt.Publisher
	upgrader   websocket.Upgrader

	// ctx ends websocket pushes on Shutdown; hijacked connections are not
	// tracked by http.Server.
	ctx    context.Context
	cancel context.CancelFunc
}

// New creates a Server. pub may be nil; when set, rejected settings
// updates are reported as FAULT events.
func New(addr string, tracker *status.Tracker, mgr *settings.Manager, pub mqtt.Publisher) *Server {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Server{
		tracker:   tracker,
		settings:  mgr,
		publisher: pub,
		ctx:       ctx,
		cancel:    cancel,
	}

	r := mux.NewRouter()
	r.HandleFunc("/", s.handleIndex).Methods(http.MethodGet)
	r.HandleFunc("/index.html", s.handleIndex).Methods(http.MethodGet)
	r.HandleFunc("/index.json", s.handleJSON).Methods(http.MethodGet)
	r.HandleFunc("/observations", s.handleObservations).Methods(http.MethodGet)
	r.HandleFunc("/statistics", s.handleStatistics).Methods(http.MethodGet)
	r.HandleFunc("/update_settings", s.handleUpdateSettings).Methods(http.MethodPost)
	r.HandleFunc("/ws", s.handleWS).Methods(http.MethodGet)

	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           handlers.CombinedLoggingHandler(log.Writer(), r),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// ListenAndServe starts listening. It blocks until the server is shut down.
func (s *Server) ListenAndServe() error {
	return s.httpServer.ListenAndServe()
}

// Serve accepts connections on the given listener. Useful for tests.
func (s *Server) Serve(ln net.Listener) error {
	return s.httpServer.Serve(ln)
}

// Handler returns the router, for embedding or tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Shutdown gracefully shuts down the server and closes websocket clients.
func (s *Server) Shutdown(ctx context.Context) error {
	s.cancel()
	return s.httpServer.Shutdown(ctx)
}
