// Package web provides the HTTP status server for the hotspot-projector daemon.
package web

import (
	"context"
	"net"
	"net/http"
	"strconv"

	"github.com/sweeney/hotspot-projector/internal/history"
	"github.com/sweeney/hotspot-projector/internal/projection"
	"github.com/sweeney/hotspot-projector/internal/status"
)

const (
	defaultHistoryLimit = 50
	maxHistoryLimit     = 500
)

// Projector is the display state the server exposes and streams.
type Projector interface {
	Snapshot() projection.Snapshot
	Watch(fn func(projection.Snapshot)) (cancel func())
}

// History lists recorded lifecycle events, newest first.
type History interface {
	Recent(ctx context.Context, limit int) ([]history.Record, error)
}

// Server serves the status page, JSON endpoints and the live projection
// stream over HTTP.
type Server struct {
	httpServer *http.Server
	tracker    *status.Tracker
	display    Projector
	history    History
	hub        *hub
	unwatch    func()
}

// New creates a Server that reads state from the given tracker and display.
// history may be nil, in which case /history.json answers 404.
func New(addr string, tracker *status.Tracker, display Projector, hist History) *Server {
	s := &Server{
		tracker: tracker,
		display: display,
		history: hist,
		hub:     newHub(display.Snapshot()),
	}
	s.unwatch = display.Watch(s.hub.broadcast)

	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleIndex)
	mux.HandleFunc("/index.html", s.handleIndex)
	mux.HandleFunc("/index.json", s.handleJSON)
	mux.HandleFunc("/projections.json", s.handleProjections)
	mux.HandleFunc("/history.json", s.handleHistory)
	mux.HandleFunc("/ws", s.handleWS)

	s.httpServer = &http.Server{
		Addr:    addr,
		Handler: mux,
	}
	return s
}

// Handler returns the server's request router.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// ListenAndServe starts listening. It blocks until the server is shut down.
func (s *Server) ListenAndServe() error {
	return s.httpServer.ListenAndServe()
}

// Serve accepts connections on the given listener. Useful for tests.
func (s *Server) Serve(ln net.Listener) error {
	return s.httpServer.Serve(ln)
}

// Shutdown stops the projection stream and gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.unwatch()
	s.hub.close()
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" && r.URL.Path != "/index.html" {
		http.NotFound(w, r)
		return
	}
	snap := s.tracker.Snapshot()
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	renderHTML(w, snap)
}

func (s *Server) handleJSON(w http.ResponseWriter, r *http.Request) {
	snap := s.tracker.Snapshot()
	w.Header().Set("Content-Type", "application/json")
	w.Write(status.FormatJSON(snap))
}

func (s *Server) handleProjections(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write(formatProjections(s.display.Snapshot()))
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		http.NotFound(w, r)
		return
	}

	limit := defaultHistoryLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			http.Error(w, "limit must be a positive integer", http.StatusBadRequest)
			return
		}
		limit = min(n, maxHistoryLimit)
	}

	records, err := s.history.Recent(r.Context(), limit)
	if err != nil {
		http.Error(w, "history unavailable", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write(formatHistory(records))
}
