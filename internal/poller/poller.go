// Package poller implements the periodic task state machine: each tick
// claims at most one queued record and drives it through the enhancement
// pipeline under an all-or-nothing status contract.
package poller

import (
	"context"
	"log"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/hochfrequenz/test-enhancer/internal/domain"
	"github.com/hochfrequenz/test-enhancer/internal/events"
	"github.com/hochfrequenz/test-enhancer/internal/notify"
	"github.com/hochfrequenz/test-enhancer/internal/pipeline"
)

// TaskStore is the persistence surface the poller needs
type TaskStore interface {
	NextQueued() (*domain.TaskRecord, error)
	ClaimTask(id string) (bool, error)
	MarkProcessed(id string) (bool, error)
	MarkError(id string) (bool, error)
}

// Runner executes the enhancement pipeline for one claimed task
type Runner interface {
	Run(ctx context.Context, task *domain.TaskRecord) (*pipeline.Result, error)
}

// Poller selects and processes one queued task per tick
type Poller struct {
	store    TaskStore
	runner   Runner
	publish  pipeline.Publisher
	notifier notify.Notifier
	schedule string

	cron     *cron.Cron
	inFlight atomic.Bool
}

// New creates a Poller. schedule is a cron spec such as "@every 1m".
func New(store TaskStore, runner Runner, publish pipeline.Publisher, notifier notify.Notifier, schedule string) *Poller {
	if publish == nil {
		publish = func(events.PushEvent) {}
	}
	if notifier == nil {
		notifier = notify.NoopNotifier{}
	}
	if schedule == "" {
		schedule = "@every 1m"
	}
	return &Poller{
		store:    store,
		runner:   runner,
		publish:  publish,
		notifier: notifier,
		schedule: schedule,
	}
}

// Start begins the periodic trigger. Ticks run until Stop is called or ctx
// is cancelled.
func (p *Poller) Start(ctx context.Context) error {
	p.cron = cron.New()
	if _, err := p.cron.AddFunc(p.schedule, func() { p.Tick(ctx) }); err != nil {
		return err
	}
	p.cron.Start()

	go func() {
		<-ctx.Done()
		p.Stop()
	}()

	return nil
}

// Stop halts the periodic trigger. A tick already in flight finishes.
func (p *Poller) Stop() {
	if p.cron != nil {
		p.cron.Stop()
	}
}

// Tick performs one poll cycle. The in-flight guard means a tick that fires
// while a previous pipeline run is still active is skipped rather than
// overlapped, so at most one record is in processing at a time.
func (p *Poller) Tick(ctx context.Context) {
	if !p.inFlight.CompareAndSwap(false, true) {
		log.Printf("poller: previous run still active, skipping tick")
		return
	}
	defer p.inFlight.Store(false)

	task, err := p.store.NextQueued()
	if err != nil {
		log.Printf("poller: selecting queued task: %v", err)
		return
	}
	if task == nil {
		return
	}

	// Write-ahead marker: the conditional transition claims the record
	// before any side effect runs.
	claimed, err := p.store.ClaimTask(task.ID)
	if err != nil {
		log.Printf("poller: claiming task %s: %v", task.ID, err)
		return
	}
	if !claimed {
		return
	}
	task.Status = domain.StatusProcessing

	p.publishStarted(task)

	result, runErr := p.runner.Run(ctx, task)
	if runErr != nil {
		if _, err := p.store.MarkError(task.ID); err != nil {
			log.Printf("poller: marking task %s errored: %v", task.ID, err)
		}
		log.Printf("poller: task %s failed: %v", task.ID, runErr)
		p.publishError(task, runErr)
		p.notifier.Send(notify.Notification{
			Title:   "Test enhancement failed",
			Message: runErr.Error(),
			Type:    notify.NotifyError,
			TaskID:  task.ID,
		})
		return
	}

	if _, err := p.store.MarkProcessed(task.ID); err != nil {
		log.Printf("poller: marking task %s processed: %v", task.ID, err)
	}
	log.Printf("poller: task %s processed, PR %s", task.ID, result.PRURL)
	p.publishCompleted(task, result)
	p.notifier.Send(notify.Notification{
		Title:   "Test enhancement PR opened",
		Message: result.PRURL,
		Type:    notify.NotifySuccess,
		TaskID:  task.ID,
		PRURL:   result.PRURL,
	})
}

func (p *Poller) publishStarted(task *domain.TaskRecord) {
	p.publish(events.PushEvent{
		Kind: events.KindTaskStarted,
		Progress: &events.ProgressPayload{
			TaskID:    task.ID,
			RepoID:    task.RepoID,
			FilePath:  task.Path,
			EventType: events.TypeSetupRepo,
			Message:   "processing started",
			Timestamp: time.Now(),
		},
	})
}

func (p *Poller) publishCompleted(task *domain.TaskRecord, result *pipeline.Result) {
	p.publish(events.PushEvent{
		Kind: events.KindTaskCompleted,
		Progress: &events.ProgressPayload{
			TaskID:    task.ID,
			RepoID:    task.RepoID,
			FilePath:  task.Path,
			RepoName:  result.RepoName,
			EventType: events.TypeComplete,
			Message:   "pull request opened",
			Timestamp: time.Now(),
			Metadata:  map[string]string{"pr_url": result.PRURL},
		},
	})
}

func (p *Poller) publishError(task *domain.TaskRecord, runErr error) {
	p.publish(events.PushEvent{
		Kind: events.KindTaskError,
		Progress: &events.ProgressPayload{
			TaskID:    task.ID,
			RepoID:    task.RepoID,
			FilePath:  task.Path,
			EventType: events.TypeError,
			Message:   "processing failed",
			Timestamp: time.Now(),
			Metadata:  map[string]string{"error": runErr.Error()},
		},
	})
}
