package api

import (
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hochfrequenz/test-enhancer/internal/domain"
	"github.com/hochfrequenz/test-enhancer/internal/taskstore"
)

// TaskResponse is the API response for a task
type TaskResponse struct {
	ID        string    `json:"id"`
	RepoID    string    `json:"repo_id"`
	Path      string    `json:"path"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// RepoResponse is the API response for a repo
type RepoResponse struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

// StatusResponse is the API response for overall status
type StatusResponse struct {
	Total      int `json:"total"`
	Queued     int `json:"queued"`
	Processing int `json:"processing"`
	Processed  int `json:"processed"`
	Errored    int `json:"errored"`
}

// EnqueueRequest is the body for POST /api/tasks
type EnqueueRequest struct {
	RepoID string `json:"repo_id"`
	Path   string `json:"path"`
}

func taskToResponse(t *domain.TaskRecord) TaskResponse {
	return TaskResponse{
		ID:        t.ID,
		RepoID:    t.RepoID,
		Path:      t.Path,
		Status:    string(t.Status),
		CreatedAt: t.CreatedAt,
		UpdatedAt: t.UpdatedAt,
	}
}

func (s *Server) tasksHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			s.listTasks(w, r)
		case http.MethodPost:
			s.enqueueTask(w, r)
		default:
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		}
	}
}

func (s *Server) listTasks(w http.ResponseWriter, r *http.Request) {
	opts := taskstore.ListOptions{
		RepoID: r.URL.Query().Get("repo"),
		Status: domain.TaskStatus(r.URL.Query().Get("status")),
	}

	tasks, err := s.store.ListTasks(opts)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	resp := make([]TaskResponse, 0, len(tasks))
	for _, t := range tasks {
		resp = append(resp, taskToResponse(t))
	}
	writeJSON(w, resp)
}

func (s *Server) enqueueTask(w http.ResponseWriter, r *http.Request) {
	var req EnqueueRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.RepoID == "" || req.Path == "" {
		writeError(w, http.StatusBadRequest, "repo_id and path are required")
		return
	}

	if _, err := s.store.GetRepo(req.RepoID); err != nil {
		writeError(w, http.StatusNotFound, "unknown repo "+req.RepoID)
		return
	}

	task := &domain.TaskRecord{
		ID:     uuid.NewString(),
		RepoID: req.RepoID,
		Path:   req.Path,
		Status: domain.StatusQueued,
	}
	if err := s.store.CreateTask(task); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	w.WriteHeader(http.StatusCreated)
	writeJSON(w, taskToResponse(task))
}

func (s *Server) getTaskHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimPrefix(r.URL.Path, "/api/tasks/")
		if id == "" {
			writeError(w, http.StatusBadRequest, "task id required")
			return
		}

		task, err := s.store.GetTask(id)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				writeError(w, http.StatusNotFound, "no such task")
				return
			}
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeJSON(w, taskToResponse(task))
	}
}

func (s *Server) listReposHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		repos, err := s.store.ListRepos()
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}

		resp := make([]RepoResponse, 0, len(repos))
		for _, repo := range repos {
			resp = append(resp, RepoResponse{ID: repo.ID, URL: repo.URL})
		}
		writeJSON(w, resp)
	}
}

func (s *Server) statusHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tasks, err := s.store.ListTasks(taskstore.ListOptions{})
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}

		resp := StatusResponse{Total: len(tasks)}
		for _, t := range tasks {
			switch t.Status {
			case domain.StatusQueued:
				resp.Queued++
			case domain.StatusProcessing:
				resp.Processing++
			case domain.StatusProcessed:
				resp.Processed++
			case domain.StatusError:
				resp.Errored++
			}
		}
		writeJSON(w, resp)
	}
}
