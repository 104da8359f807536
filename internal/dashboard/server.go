// Package dashboard is an optional, read-only HTTP+WebSocket status
// consumer for a running orchestration. It owns no state and never
// mutates anything — the Session Coordinator is the only writer.
// Routes and the Hub/Client broadcast plumbing are adapted from the
// teacher's internal/api package, repointed from session CRUD+
// execute+merge endpoints to a read-only view over the orchestration
// state document, the DAG artifact, and checkpoint history.
package dashboard

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/google/uuid"
	"nhooyr.io/websocket"

	"speckit-flow/internal/checkpoint"
	"speckit-flow/internal/dag"
	"speckit-flow/internal/logging"
	"speckit-flow/internal/state"
)

// Server serves the dashboard's HTTP and WebSocket endpoints.
type Server struct {
	router     *chi.Mux
	states     *state.Store
	checkpoint *checkpoint.Store
	dagPath    string
	hub        *Hub
	logger     logging.Logger
}

// New builds a Server reading state from statesStore, checkpoint
// history from checkpointStore, and the DAG artifact from dagPath.
func New(statesStore *state.Store, checkpointStore *checkpoint.Store, dagPath string, logger logging.Logger) *Server {
	s := &Server{
		router:     chi.NewRouter(),
		states:     statesStore,
		checkpoint: checkpointStore,
		dagPath:    dagPath,
		hub:        NewHub(logger),
		logger:     logger.Named("dashboard"),
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "http://localhost:3000"},
		AllowedMethods:   []string{"GET", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	s.router.Get("/", s.handleIndex)
	s.router.Get("/api/state", s.handleState)
	s.router.Get("/api/dag", s.handleDAG)
	s.router.Get("/api/checkpoints", s.handleCheckpoints)
	s.router.Get("/ws/events", s.handleWebSocket)
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"name":    "speckit-flow dashboard",
		"version": "1.0.0",
	})
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	if !s.states.Exists() {
		http.Error(w, "no orchestration state yet", http.StatusNotFound)
		return
	}
	st, err := s.states.Load()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (s *Server) handleDAG(w http.ResponseWriter, r *http.Request) {
	_, artifact, err := dag.Load(s.dagPath)
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, artifact)
}

func (s *Server) handleCheckpoints(w http.ResponseWriter, r *http.Request) {
	paths, err := s.checkpoint.List()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"checkpoints": paths})
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	opts := &websocket.AcceptOptions{
		OriginPatterns: []string{"localhost:5173", "localhost:3000"},
	}
	conn, err := websocket.Accept(w, r, opts)
	if err != nil {
		return
	}

	client := newClient(conn, s.hub)
	s.hub.register <- client

	ctx := r.Context()
	go client.WriteLoop(ctx, s.logger)
	client.ReadLoop(ctx)
}

// Notify broadcasts event to every connected dashboard client.
func (s *Server) Notify(eventType string, data any) {
	s.hub.Broadcast(Event{ID: uuid.NewString(), Type: eventType, Data: data})
}

// Run starts the hub loop and the HTTP server, blocking until ctx is
// cancelled.
func (s *Server) Run(ctx context.Context, addr string) error {
	go s.hub.Run(ctx)

	httpServer := &http.Server{
		Addr:    addr,
		Handler: s.router,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
