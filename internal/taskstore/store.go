package taskstore

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/hochfrequenz/test-enhancer/internal/domain"
	_ "modernc.org/sqlite"
)

// Store provides SQLite-backed persistence for task and repo records
type Store struct {
	db *sql.DB
}

// New creates a new Store with the given database path
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}

	// Enable foreign keys
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		return nil, err
	}

	// Run migrations
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// UpsertRepo inserts or updates a repo record
func (s *Store) UpsertRepo(repo *domain.RepoRecord) error {
	_, err := s.db.Exec(`
		INSERT INTO repos (id, url, created_at, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			url = excluded.url,
			updated_at = excluded.updated_at
	`, repo.ID, repo.URL, time.Now(), time.Now())
	return err
}

// GetRepo retrieves a repo by ID
func (s *Store) GetRepo(id string) (*domain.RepoRecord, error) {
	var repo domain.RepoRecord
	err := s.db.QueryRow(`
		SELECT id, url, created_at, updated_at FROM repos WHERE id = ?
	`, id).Scan(&repo.ID, &repo.URL, &repo.CreatedAt, &repo.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &repo, nil
}

// ListRepos returns all registered repos
func (s *Store) ListRepos() ([]*domain.RepoRecord, error) {
	rows, err := s.db.Query(`SELECT id, url, created_at, updated_at FROM repos ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var repos []*domain.RepoRecord
	for rows.Next() {
		var repo domain.RepoRecord
		if err := rows.Scan(&repo.ID, &repo.URL, &repo.CreatedAt, &repo.UpdatedAt); err != nil {
			return nil, err
		}
		repos = append(repos, &repo)
	}
	return repos, rows.Err()
}

// CreateTask inserts a new task record
func (s *Store) CreateTask(task *domain.TaskRecord) error {
	if task.Status == "" {
		task.Status = domain.StatusQueued
	}
	_, err := s.db.Exec(`
		INSERT INTO tasks (id, repo_id, path, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, task.ID, task.RepoID, task.Path, string(task.Status), time.Now(), time.Now())
	return err
}

// GetTask retrieves a task by ID
func (s *Store) GetTask(id string) (*domain.TaskRecord, error) {
	var task domain.TaskRecord
	var status string
	err := s.db.QueryRow(`
		SELECT id, repo_id, path, status, created_at, updated_at FROM tasks WHERE id = ?
	`, id).Scan(&task.ID, &task.RepoID, &task.Path, &status, &task.CreatedAt, &task.UpdatedAt)
	if err != nil {
		return nil, err
	}
	task.Status = domain.TaskStatus(status)
	return &task, nil
}

// ListOptions specifies filters for listing tasks
type ListOptions struct {
	RepoID string
	Status domain.TaskStatus
}

// ListTasks returns tasks matching the given options in insertion order
func (s *Store) ListTasks(opts ListOptions) ([]*domain.TaskRecord, error) {
	query := `SELECT id, repo_id, path, status, created_at, updated_at FROM tasks WHERE 1=1`
	var args []interface{}

	if opts.RepoID != "" {
		query += " AND repo_id = ?"
		args = append(args, opts.RepoID)
	}
	if opts.Status != "" {
		query += " AND status = ?"
		args = append(args, string(opts.Status))
	}

	query += " ORDER BY rowid"

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tasks []*domain.TaskRecord
	for rows.Next() {
		var task domain.TaskRecord
		var status string
		if err := rows.Scan(&task.ID, &task.RepoID, &task.Path, &status, &task.CreatedAt, &task.UpdatedAt); err != nil {
			return nil, err
		}
		task.Status = domain.TaskStatus(status)
		tasks = append(tasks, &task)
	}
	return tasks, rows.Err()
}

// NextQueued returns the first queued task in the store's default ordering,
// or nil if none are queued.
func (s *Store) NextQueued() (*domain.TaskRecord, error) {
	var task domain.TaskRecord
	var status string
	err := s.db.QueryRow(`
		SELECT id, repo_id, path, status, created_at, updated_at
		FROM tasks WHERE status = ? ORDER BY rowid LIMIT 1
	`, string(domain.StatusQueued)).Scan(&task.ID, &task.RepoID, &task.Path, &status, &task.CreatedAt, &task.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	task.Status = domain.TaskStatus(status)
	return &task, nil
}

// ClaimTask marks a queued task as processing. The conditional update is
// the write-ahead marker: it only succeeds if the task is still queued, so
// a record can be claimed exactly once.
func (s *Store) ClaimTask(id string) (bool, error) {
	return s.transition(id, domain.StatusQueued, domain.StatusProcessing)
}

// MarkProcessed marks a processing task as processed
func (s *Store) MarkProcessed(id string) (bool, error) {
	return s.transition(id, domain.StatusProcessing, domain.StatusProcessed)
}

// MarkError marks a processing task as errored
func (s *Store) MarkError(id string) (bool, error) {
	return s.transition(id, domain.StatusProcessing, domain.StatusError)
}

// transition performs a guarded forward status transition. Status never
// moves backward and never skips processing.
func (s *Store) transition(id string, from, to domain.TaskStatus) (bool, error) {
	res, err := s.db.Exec(`UPDATE tasks SET status = ?, updated_at = ? WHERE id = ? AND status = ?`,
		string(to), time.Now(), id, string(from))
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}
