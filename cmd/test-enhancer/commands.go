package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/hochfrequenz/test-enhancer/internal/ai"
	"github.com/hochfrequenz/test-enhancer/internal/config"
	"github.com/hochfrequenz/test-enhancer/internal/domain"
	"github.com/hochfrequenz/test-enhancer/internal/notify"
	"github.com/hochfrequenz/test-enhancer/internal/observer"
	"github.com/hochfrequenz/test-enhancer/internal/pipeline"
	"github.com/hochfrequenz/test-enhancer/internal/poller"
	"github.com/hochfrequenz/test-enhancer/internal/prbot"
	reposync "github.com/hochfrequenz/test-enhancer/internal/sync"
	"github.com/hochfrequenz/test-enhancer/internal/taskstore"
	"github.com/hochfrequenz/test-enhancer/internal/workspace"
	"github.com/hochfrequenz/test-enhancer/web/api"
)

var (
	listStatus string
	listRepo   string
	servePort  int
)

func init() {
	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the poller, file watcher, and web API",
		RunE:  runServe,
	}
	serveCmd.Flags().IntVar(&servePort, "port", 0, "override web port")
	rootCmd.AddCommand(serveCmd)

	syncCmd := &cobra.Command{
		Use:   "sync",
		Short: "Sync tracked repos from the manifest",
		RunE:  runSync,
	}
	rootCmd.AddCommand(syncCmd)

	enqueueCmd := &cobra.Command{
		Use:   "enqueue REPO PATH",
		Short: "Queue an enhancement task for a source file",
		Args:  cobra.ExactArgs(2),
		RunE:  runEnqueue,
	}
	rootCmd.AddCommand(enqueueCmd)

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List tasks",
		RunE:  runList,
	}
	listCmd.Flags().StringVar(&listStatus, "status", "", "filter by status")
	listCmd.Flags().StringVar(&listRepo, "repo", "", "filter by repo id")
	rootCmd.AddCommand(listCmd)

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show queue status",
		RunE:  runStatus,
	}
	rootCmd.AddCommand(statusCmd)
}

func loadConfig() (*config.Config, error) {
	path := configPath
	if path == "" {
		path = config.DefaultConfigPath()
	}
	return config.Load(path)
}

func openStore(cfg *config.Config) (*taskstore.Store, error) {
	return taskstore.New(config.ExpandPath(cfg.General.DatabasePath))
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	workspaces := workspace.NewManager(config.ExpandPath(cfg.General.ReposDir))

	adapter, err := ai.NewOllamaAdapter(cfg.AI.Host, cfg.AI.Model)
	if err != nil {
		return fmt.Errorf("ai adapter: %w", err)
	}

	port := cfg.Web.Port
	if servePort != 0 {
		port = servePort
	}
	server := api.NewServer(store, fmt.Sprintf("%s:%d", cfg.Web.Host, port))

	pipe := pipeline.New(store, workspaces, adapter, prbot.New(), server.Broadcast,
		pipeline.Options{RetainWorkspaces: cfg.General.RetainWorkspaces})

	var notifier notify.Notifier = notify.NoopNotifier{}
	if cfg.Notifications.SlackWebhook != "" {
		notifier = notify.NewSlackNotifier(cfg.Notifications.SlackWebhook)
	}

	poll := poller.New(store, pipe, server.Broadcast, notifier, cfg.General.PollSchedule)

	watcher, err := observer.NewWatcher(func(repoID string, paths []string) {
		for _, path := range paths {
			task := &domain.TaskRecord{
				ID:     uuid.NewString(),
				RepoID: repoID,
				Path:   path,
				Status: domain.StatusQueued,
			}
			if err := store.CreateTask(task); err != nil {
				log.Printf("serve: queueing %s for repo %s: %v", path, repoID, err)
				continue
			}
			log.Printf("serve: queued task %s for %s", task.ID, path)
		}
	})
	if err != nil {
		return fmt.Errorf("file watcher: %w", err)
	}

	repos, err := store.ListRepos()
	if err != nil {
		return err
	}
	for _, repo := range repos {
		name, err := repo.ShortName()
		if err != nil {
			log.Printf("serve: skipping watch for repo %s: %v", repo.ID, err)
			continue
		}
		if err := watcher.AddRepo(repo.ID, workspaces.CanonicalPath(name)); err != nil {
			log.Printf("serve: watching repo %s: %v", repo.ID, err)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return server.Start(ctx)
	})
	g.Go(func() error {
		if err := poll.Start(ctx); err != nil {
			return err
		}
		<-ctx.Done()
		return nil
	})
	g.Go(func() error {
		watcher.Start(ctx)
		<-ctx.Done()
		watcher.Stop()
		return nil
	})

	log.Printf("serve: listening on %s:%d, polling %s", cfg.Web.Host, port, cfg.General.PollSchedule)
	return g.Wait()
}

func runSync(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	workspaces := workspace.NewManager(config.ExpandPath(cfg.General.ReposDir))
	syncer := reposync.New(config.ExpandPath(cfg.General.ReposManifest), store, workspaces)

	if err := syncer.Sync(); err != nil {
		return err
	}

	repos, err := store.ListRepos()
	if err != nil {
		return err
	}
	fmt.Printf("Synced %d repos from %s\n", len(repos), cfg.General.ReposManifest)
	return nil
}

func runEnqueue(cmd *cobra.Command, args []string) error {
	repoID, path := args[0], args[1]

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	if _, err := store.GetRepo(repoID); err != nil {
		return fmt.Errorf("unknown repo %q: %w", repoID, err)
	}

	task := &domain.TaskRecord{
		ID:     uuid.NewString(),
		RepoID: repoID,
		Path:   path,
		Status: domain.StatusQueued,
	}
	if err := store.CreateTask(task); err != nil {
		return err
	}

	fmt.Printf("Queued task %s for %s\n", task.ID, path)
	return nil
}

func runList(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	tasks, err := store.ListTasks(taskstore.ListOptions{
		RepoID: listRepo,
		Status: domain.TaskStatus(listStatus),
	})
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tREPO\tPATH\tSTATUS\tUPDATED")
	for _, t := range tasks {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			t.ID, t.RepoID, t.Path, t.Status, t.UpdatedAt.Format("2006-01-02 15:04"))
	}
	w.Flush()

	return nil
}

func runStatus(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	tasks, err := store.ListTasks(taskstore.ListOptions{})
	if err != nil {
		return err
	}

	var queued, processing, processed, errored int
	for _, t := range tasks {
		switch t.Status {
		case domain.StatusQueued:
			queued++
		case domain.StatusProcessing:
			processing++
		case domain.StatusProcessed:
			processed++
		case domain.StatusError:
			errored++
		}
	}

	fmt.Printf("Tasks: %d total | %d queued | %d processing | %d processed | %d error\n",
		len(tasks), queued, processing, processed, errored)

	return nil
}
