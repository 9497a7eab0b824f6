package observer

import (
	"context"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// ChangeCallback is called when source files change in a watched repo.
// repoID identifies the repo, paths are relative to the repo root.
type ChangeCallback func(repoID string, paths []string)

// Watched source extensions. Test files themselves are excluded so a
// pushed enhancement does not immediately trigger another run.
var sourceExtensions = map[string]struct{}{
	".ts":  {},
	".tsx": {},
	".js":  {},
	".jsx": {},
	".py":  {},
	".go":  {},
}

// Watcher monitors canonical repo checkouts for source file changes
// and reports them after a debounce window.
type Watcher struct {
	watcher  *fsnotify.Watcher
	callback ChangeCallback
	debounce time.Duration

	// repo root path -> repo id
	repos map[string]string

	pendingByRepo map[string]map[string]struct{}
	timer         *time.Timer
	mu            sync.Mutex

	cancel context.CancelFunc
}

// NewWatcher creates a watcher that reports source changes to callback.
func NewWatcher(callback ChangeCallback) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	return &Watcher{
		watcher:       fsw,
		callback:      callback,
		debounce:      500 * time.Millisecond,
		repos:         make(map[string]string),
		pendingByRepo: make(map[string]map[string]struct{}),
	}, nil
}

// AddRepo starts watching a repo checkout rooted at path.
func (w *Watcher) AddRepo(repoID, path string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if _, exists := w.repos[path]; exists {
		return nil
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}

	err := filepath.Walk(path, func(p string, info os.FileInfo, err error) error {
		if err != nil {
			return nil
		}
		if info.IsDir() {
			if info.Name() == ".git" || info.Name() == "node_modules" {
				return filepath.SkipDir
			}
			return w.watcher.Add(p)
		}
		return nil
	})
	if err != nil {
		return err
	}

	w.repos[path] = repoID
	return nil
}

// RemoveRepo stops watching a repo checkout.
func (w *Watcher) RemoveRepo(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if _, exists := w.repos[path]; !exists {
		return
	}

	filepath.Walk(path, func(p string, info os.FileInfo, err error) error {
		if err != nil {
			return nil
		}
		if info.IsDir() {
			w.watcher.Remove(p)
		}
		return nil
	})

	delete(w.repos, path)
	delete(w.pendingByRepo, path)
}

// Start begins processing file events until ctx is cancelled.
func (w *Watcher) Start(ctx context.Context) {
	ctx, w.cancel = context.WithCancel(ctx)

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-w.watcher.Events:
				if !ok {
					return
				}
				w.handleEvent(event)
			case err, ok := <-w.watcher.Errors:
				if !ok {
					return
				}
				log.Printf("observer: watch error: %v", err)
			}
		}
	}()
}

// Stop stops watching for file changes.
func (w *Watcher) Stop() {
	if w.cancel != nil {
		w.cancel()
	}
	w.watcher.Close()
}

// SetDebounce sets the debounce window for batching file changes.
func (w *Watcher) SetDebounce(d time.Duration) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.debounce = d
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	if !isSourceFile(event.Name) {
		return
	}
	if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	repoPath := w.findRepo(event.Name)
	if repoPath == "" {
		return
	}

	rel, err := filepath.Rel(repoPath, event.Name)
	if err != nil {
		return
	}

	if w.pendingByRepo[repoPath] == nil {
		w.pendingByRepo[repoPath] = make(map[string]struct{})
	}
	w.pendingByRepo[repoPath][filepath.ToSlash(rel)] = struct{}{}

	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, w.flush)
}

func (w *Watcher) findRepo(filePath string) string {
	for path := range w.repos {
		if strings.HasPrefix(filePath, path+string(filepath.Separator)) {
			return path
		}
	}
	return ""
}

func (w *Watcher) flush() {
	w.mu.Lock()
	pending := w.pendingByRepo
	w.pendingByRepo = make(map[string]map[string]struct{})
	repos := make(map[string]string, len(w.repos))
	for path, id := range w.repos {
		repos[path] = id
	}
	w.mu.Unlock()

	if w.callback == nil {
		return
	}

	for repoPath, fileSet := range pending {
		files := make([]string, 0, len(fileSet))
		for f := range fileSet {
			files = append(files, f)
		}
		if len(files) > 0 {
			w.callback(repos[repoPath], files)
		}
	}
}

func isSourceFile(path string) bool {
	base := filepath.Base(path)
	if strings.Contains(base, ".test.") || strings.Contains(base, ".spec.") ||
		strings.HasSuffix(base, "_test.go") {
		return false
	}
	_, ok := sourceExtensions[filepath.Ext(base)]
	return ok
}
