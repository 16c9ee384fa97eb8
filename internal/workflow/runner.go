package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/gofrs/flock"

	"pageturn/internal/books"
	"pageturn/internal/config"
	"pageturn/internal/deps"
	"pageturn/internal/export"
	"pageturn/internal/logging"
	"pageturn/internal/notifications"
	"pageturn/internal/queue"
	"pageturn/internal/storage"
)

// ExportFunc runs one export job and reports progress. The production
// implementation wraps export.Exporter; tests substitute their own.
type ExportFunc func(ctx context.Context, job *queue.Job, onProgress func(export.Progress)) export.Result

// Runner owns the poll loop and the single-instance lock.
type Runner struct {
	cfg      *config.Config
	store    *queue.Store
	notifier notifications.Service
	runJob   ExportFunc
	logger   *slog.Logger

	lockPath string
	lock     *flock.Flock

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	done    chan struct{}
}

// New constructs a runner. runJob must not be nil.
func New(cfg *config.Config, store *queue.Store, notifier notifications.Service, runJob ExportFunc, logger *slog.Logger) (*Runner, error) {
	if cfg == nil || store == nil || runJob == nil {
		return nil, errors.New("runner requires config, store, and export function")
	}
	if notifier == nil {
		notifier = notifications.NewService(cfg)
	}
	lockPath := filepath.Join(cfg.Paths.StagingDir, ".pageturn.lock")
	return &Runner{
		cfg:      cfg,
		store:    store,
		notifier: notifier,
		runJob:   runJob,
		logger:   logging.WithComponent(logger, "workflow"),
		lockPath: lockPath,
		lock:     flock.New(lockPath),
	}, nil
}

// NewExportFunc builds the production export function from config.
func NewExportFunc(cfg *config.Config, logger *slog.Logger) ExportFunc {
	return func(ctx context.Context, job *queue.Job, onProgress func(export.Progress)) export.Result {
		source := books.NewClient(cfg.BookService)
		var store storage.Store
		if client := storage.NewClient(cfg.Storage); client != nil {
			store = client
		}
		uploadPrefix := ""
		if cfg.Storage.UploadFrames {
			uploadPrefix = "frames/" + job.ID
		}
		factory := export.NewCapturerFactory(cfg.Renderer, store, uploadPrefix, logger)
		exporter := export.New(export.OptionsFromConfig(cfg, job.ID, job.BookID), source, store, factory, logger)
		return exporter.Export(ctx, onProgress)
	}
}

// Start acquires the workspace lock, fails over jobs stranded by a previous
// run, and launches the poll loop.
func (r *Runner) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.running {
		return errors.New("runner already running")
	}

	if err := r.cfg.EnsureDirectories(); err != nil {
		return fmt.Errorf("ensure directories: %w", err)
	}
	statuses := deps.CheckBinaries(deps.Requirements(r.cfg))
	if missing := deps.MissingRequired(statuses); len(missing) > 0 {
		return fmt.Errorf("missing required tools: %s", strings.Join(missing, ", "))
	}
	locked, err := r.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock %s: %w", r.lockPath, err)
	}
	if !locked {
		return fmt.Errorf("another exporter holds %s", r.lockPath)
	}

	if n, err := r.store.ResetStuck(ctx); err != nil {
		_ = r.lock.Unlock()
		return fmt.Errorf("reset stuck jobs: %w", err)
	} else if n > 0 {
		r.logger.Warn("failed stranded jobs from previous run", logging.Int64("count", n))
	}

	runCtx, cancel := context.WithCancel(ctx)
	r.cancel = cancel
	r.done = make(chan struct{})
	r.running = true

	go r.poll(runCtx)
	return nil
}

// Stop cancels the loop, waits for any in-flight job to unwind, and releases
// the lock.
func (r *Runner) Stop() {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return
	}
	cancel := r.cancel
	done := r.done
	r.running = false
	r.cancel = nil
	r.mu.Unlock()

	cancel()
	<-done
	if err := r.lock.Unlock(); err != nil {
		r.logger.Warn("release lock failed", logging.Error(err))
	}
}

// Running reports whether the poll loop is active.
func (r *Runner) Running() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.running
}

func (r *Runner) pollInterval() time.Duration {
	interval := time.Duration(r.cfg.Workflow.QueuePollInterval) * time.Second
	if interval <= 0 {
		interval = 5 * time.Second
	}
	return interval
}

func (r *Runner) poll(ctx context.Context) {
	defer close(r.done)

	ticker := time.NewTicker(r.pollInterval())
	defer ticker.Stop()

	for {
		job, err := r.store.ClaimNext(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			r.logger.Error("claim next job failed", logging.Error(err))
		} else if job != nil {
			r.process(ctx, job)
			// Drain the queue before going back to sleep.
			continue
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// process runs one claimed job to its terminal state.
func (r *Runner) process(ctx context.Context, job *queue.Job) {
	started := time.Now()
	logger := r.logger.With(
		logging.String(logging.FieldJobID, job.ID),
		logging.String(logging.FieldBookID, job.BookID),
	)
	logger.Info("export started")
	if err := r.notifier.NotifyExportStarted(ctx, job.Title); err != nil {
		logger.Debug("start notification failed", logging.Error(err))
	}

	result := r.runJob(ctx, job, func(p export.Progress) {
		if err := r.store.UpdateProgress(ctx, job.ID, string(p.Phase), p.Percent, p.Message); err != nil {
			logger.Debug("progress persist failed", logging.Error(err))
		}
	})

	// Job bookkeeping must survive context cancellation.
	finishCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if result.Err != nil {
		if err := r.store.MarkFailed(finishCtx, job.ID, result.Err.Error()); err != nil {
			logger.Error("mark failed errored", logging.Error(err))
		}
		logger.Error("export failed", logging.Error(result.Err))
		if err := r.notifier.NotifyExportFailed(finishCtx, job.Title, result.Err); err != nil {
			logger.Debug("failure notification failed", logging.Error(err))
		}
		return
	}

	if err := r.store.MarkCompleted(finishCtx, job.ID, result.VideoURL, result.VideoDuration, result.VideoSize); err != nil {
		logger.Error("mark completed errored", logging.Error(err))
	}
	logger.Info("export completed",
		logging.Duration("elapsed", time.Since(started)),
		logging.String("video_url", result.VideoURL),
	)
	if err := r.notifier.NotifyExportCompleted(finishCtx, job.Title, result.VideoURL, time.Since(started)); err != nil {
		logger.Debug("completion notification failed", logging.Error(err))
	}
}
