package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/hochfrequenz/test-enhancer/internal/domain"
	"github.com/hochfrequenz/test-enhancer/internal/events"
	"github.com/hochfrequenz/test-enhancer/internal/taskstore"
)

// Store is the persistence surface the API needs
type Store interface {
	ListTasks(opts taskstore.ListOptions) ([]*domain.TaskRecord, error)
	GetTask(id string) (*domain.TaskRecord, error)
	CreateTask(task *domain.TaskRecord) error
	GetRepo(id string) (*domain.RepoRecord, error)
	ListRepos() ([]*domain.RepoRecord, error)
}

// Server is the HTTP API server
type Server struct {
	store  Store
	addr   string
	mux    *http.ServeMux
	sseHub *SSEHub
}

// NewServer creates a new API server
func NewServer(store Store, addr string) *Server {
	s := &Server{
		store:  store,
		addr:   addr,
		mux:    http.NewServeMux(),
		sseHub: NewSSEHub(),
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.mux.HandleFunc("/api/status", s.statusHandler())
	s.mux.HandleFunc("/api/tasks", s.tasksHandler())
	s.mux.HandleFunc("/api/tasks/", s.getTaskHandler())
	s.mux.HandleFunc("/api/repos", s.listReposHandler())
	s.mux.HandleFunc("/api/events", s.sseHandler())
}

// Start runs the hub pump and the HTTP server until ctx is cancelled
func (s *Server) Start(ctx context.Context) error {
	go s.sseHub.Run(ctx)

	srv := &http.Server{Addr: s.addr, Handler: s.mux}
	go func() {
		<-ctx.Done()
		srv.Shutdown(context.Background())
	}()

	err := srv.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Handler returns the server's routing handler, for tests
func (s *Server) Handler() http.Handler {
	return s.mux
}

// Broadcast sends an event to all connected event-stream clients
func (s *Server) Broadcast(event events.PushEvent) {
	s.sseHub.Broadcast(event)
}

func writeJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, code int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
