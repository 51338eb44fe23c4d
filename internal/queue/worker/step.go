package worker

import (
	"context"
	"errors"
	"time"

	"github.com/geocoder89/cohorthub/internal/domain/job"
	"github.com/geocoder89/cohorthub/internal/jobs"
)

// Prometheus result labels.
const (
	resultDone    = "done"
	resultRetried = "retried"
	resultFailed  = "failed"
)

// ProcessOne claims and runs at most one job. It reports false when the
// queue had nothing due.
func (w *Worker) ProcessOne(ctx context.Context) (bool, error) {
	claimCtx, cancel := context.WithTimeout(ctx, 2*time.Second)

	j, err := w.repo.ClaimNext(claimCtx, w.cfg.WorkerID)
	cancel()

	if err != nil {
		if errors.Is(err, job.ErrJobNotFound) {
			return false, nil
		}

		return false, err
	}

	w.metrics.IncClaimed()
	if w.prom != nil {
		w.prom.JobsInFlight.Inc()
		defer w.prom.JobsInFlight.Dec()
	}

	start := time.Now()
	execCtx, cancelExec := context.WithTimeout(ctx, w.cfg.JobTimeout)
	delivered, err := w.exec.Execute(execCtx, j)
	cancelExec()
	elapsed := time.Since(start)

	w.metrics.ObserveDuration(elapsed)

	if err != nil {
		result := w.handleFailure(ctx, j, err)
		w.observe(j, result, elapsed)
		return true, nil
	}

	w.metrics.AddDelivered(delivered)

	err = w.repo.MarkDone(ctx, j.ID)

	if err != nil {
		_ = w.repo.MarkFailed(ctx, j.ID, "mark_done_failed: "+err.Error())
		w.observe(j, resultFailed, elapsed)
		return true, err
	}

	w.metrics.IncDone()
	w.observe(j, resultDone, elapsed)
	w.log.Info("job_done",
		"job_id", j.ID,
		"job_type", j.Type,
		"attempt", j.Attempts+1,
		"delivered", delivered,
		"duration_ms", elapsed.Milliseconds(),
	)

	return true, nil
}

// handleFailure reschedules with backoff, or fails the job for good when it
// is out of attempts or cannot succeed on retry.
func (w *Worker) handleFailure(ctx context.Context, j job.Job, cause error) string {
	msg := cause.Error()

	if j.Exhausted() || jobs.IsPermanent(cause) {
		if err := w.repo.MarkFailed(ctx, j.ID, msg); err != nil {
			w.log.Error("job_mark_failed_error", "job_id", j.ID, "err", err)
		}
		w.metrics.IncDeadLettered()
		w.log.Error("job_failed",
			"job_id", j.ID,
			"job_type", j.Type,
			"attempts", j.Attempts+1,
			"err", cause,
		)
		return resultFailed
	}

	runAt := w.now().Add(ExponentialBackoff(j.Attempts))
	if err := w.repo.Reschedule(ctx, j.ID, runAt, msg); err != nil {
		w.log.Error("job_reschedule_error", "job_id", j.ID, "err", err)
	}
	w.metrics.IncRetried()
	w.log.Warn("job_retry_scheduled",
		"job_id", j.ID,
		"job_type", j.Type,
		"attempt", j.Attempts+1,
		"run_at", runAt,
		"err", cause,
	)
	return resultRetried
}

func (w *Worker) observe(j job.Job, result string, d time.Duration) {
	if w.prom != nil {
		w.prom.ObserveJob(j.Type, result, d)
	}
}
