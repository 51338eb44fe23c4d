// Package worker runs the job queue: it claims due jobs, executes them and
// records the outcome with retry backoff.
package worker

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/geocoder89/cohorthub/internal/domain/job"
	"github.com/geocoder89/cohorthub/internal/observability"
)

type JobsRepository interface {
	ClaimNext(ctx context.Context, workerID string) (job.Job, error)
	MarkDone(ctx context.Context, id string) error
	MarkFailed(ctx context.Context, id string, errMsg string) error
	Reschedule(ctx context.Context, id string, runAt time.Time, errMsg string) error
	RequeueStaleProcessing(ctx context.Context, lockTTL time.Duration) (int64, error)
}

// Executor runs one job and reports how many notifications it produced.
type Executor interface {
	Execute(ctx context.Context, j job.Job) (int, error)
}

type Config struct {
	PollInterval  time.Duration
	WorkerID      string
	Concurrency   int
	ShutdownGrace time.Duration
	// jobs locked longer than this are considered abandoned
	LockTTL    time.Duration
	JobTimeout time.Duration
}

func (c Config) withDefaults() Config {
	if c.PollInterval <= 0 {
		c.PollInterval = 250 * time.Millisecond
	}
	if c.Concurrency <= 0 {
		c.Concurrency = 1
	}
	if c.ShutdownGrace <= 0 {
		c.ShutdownGrace = 10 * time.Second
	}
	if c.LockTTL <= 0 {
		c.LockTTL = 2 * time.Minute
	}
	if c.JobTimeout <= 0 {
		c.JobTimeout = 30 * time.Second
	}
	return c
}

type Worker struct {
	cfg     Config
	repo    JobsRepository
	exec    Executor
	log     *slog.Logger
	prom    *observability.Prom
	metrics *observability.JobMetrics
	now     func() time.Time

	readyMu sync.RWMutex
	ready   bool
}

func New(cfg Config, repo JobsRepository, exec Executor, log *slog.Logger, prom *observability.Prom) *Worker {
	if log == nil {
		log = slog.Default()
	}

	return &Worker{
		cfg:     cfg.withDefaults(),
		repo:    repo,
		exec:    exec,
		log:     log,
		prom:    prom,
		metrics: observability.NewJobMetrics(),
		now:     func() time.Time { return time.Now().UTC() },
	}
}

func (w *Worker) Metrics() *observability.JobMetrics {
	return w.metrics
}

func (w *Worker) setReady(v bool) {
	w.readyMu.Lock()
	w.ready = v
	w.readyMu.Unlock()
}

func (w *Worker) Ready() bool {
	w.readyMu.RLock()
	defer w.readyMu.RUnlock()
	return w.ready
}

// Run polls until ctx is done. In-flight jobs keep a separate context so a
// shutdown lets them finish within ShutdownGrace.
func (w *Worker) Run(ctx context.Context) error {
	jobsCtx, cancelJobs := context.WithCancel(context.Background())
	defer cancelJobs()

	var wg sync.WaitGroup

	for i := 0; i < w.cfg.Concurrency; i++ {
		wg.Add(1)
		go func(slot int) {
			defer wg.Done()
			w.loop(ctx, jobsCtx, slot)
		}(i)
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		w.reapStale(ctx)
	}()

	w.setReady(true)
	w.log.Info("worker_started", "worker_id", w.cfg.WorkerID, "concurrency", w.cfg.Concurrency)

	<-ctx.Done()
	w.setReady(false)
	w.log.Info("worker_draining", "grace", w.cfg.ShutdownGrace.String())

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(w.cfg.ShutdownGrace):
		w.log.Warn("worker_drain_timeout")
		cancelJobs()
		<-done
	}

	w.log.Info("worker_stopped", "metrics", w.metrics.Snapshot())
	return nil
}

func (w *Worker) loop(ctx, jobsCtx context.Context, slot int) {
	ticker := time.NewTicker(w.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		// drain the queue before waiting for the next tick
		for ctx.Err() == nil {
			processed, err := w.ProcessOne(jobsCtx)
			if err != nil {
				w.log.Error("job_step_failed", "slot", slot, "err", err)
				break
			}
			if !processed {
				break
			}
		}
	}
}

func (w *Worker) reapStale(ctx context.Context) {
	ticker := time.NewTicker(w.cfg.LockTTL / 2)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := w.repo.RequeueStaleProcessing(ctx, w.cfg.LockTTL)
			if err != nil {
				w.log.Error("requeue_stale_failed", "err", err)
				continue
			}
			if n > 0 {
				w.log.Warn("requeued_stale_jobs", "count", n)
			}
		}
	}
}
