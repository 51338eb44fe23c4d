package worker

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/geocoder89/cohorthub/internal/domain/job"
	"github.com/geocoder89/cohorthub/internal/jobs"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRepo struct {
	mu          sync.Mutex
	queue       []job.Job
	done        []string
	failed      []string
	rescheduled map[string]time.Time
	claimErr    error
}

func (f *fakeRepo) ClaimNext(context.Context, string) (job.Job, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.claimErr != nil {
		return job.Job{}, f.claimErr
	}
	if len(f.queue) == 0 {
		return job.Job{}, job.ErrJobNotFound
	}
	j := f.queue[0]
	f.queue = f.queue[1:]
	return j, nil
}

func (f *fakeRepo) MarkDone(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.done = append(f.done, id)
	return nil
}

func (f *fakeRepo) MarkFailed(_ context.Context, id string, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failed = append(f.failed, id)
	return nil
}

func (f *fakeRepo) Reschedule(_ context.Context, id string, runAt time.Time, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.rescheduled == nil {
		f.rescheduled = map[string]time.Time{}
	}
	f.rescheduled[id] = runAt
	return nil
}

func (f *fakeRepo) RequeueStaleProcessing(context.Context, time.Duration) (int64, error) {
	return 0, nil
}

func (f *fakeRepo) snapshot() (done, failed []string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.done...), append([]string(nil), f.failed...)
}

type execFunc func(ctx context.Context, j job.Job) (int, error)

func (fn execFunc) Execute(ctx context.Context, j job.Job) (int, error) { return fn(ctx, j) }

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestWorker(repo JobsRepository, exec Executor) *Worker {
	return New(Config{WorkerID: "test", PollInterval: 5 * time.Millisecond}, repo, exec, quietLogger(), nil)
}

func TestProcessOne_EmptyQueue(t *testing.T) {
	w := newTestWorker(&fakeRepo{}, execFunc(func(context.Context, job.Job) (int, error) {
		t.Fatal("executor must not run")
		return 0, nil
	}))

	processed, err := w.ProcessOne(context.Background())

	require.NoError(t, err)
	assert.False(t, processed)
}

func TestProcessOne_Success(t *testing.T) {
	repo := &fakeRepo{queue: []job.Job{{ID: "j1", Type: "member.status_changed", MaxAttempts: 3}}}
	w := newTestWorker(repo, execFunc(func(context.Context, job.Job) (int, error) { return 2, nil }))

	processed, err := w.ProcessOne(context.Background())

	require.NoError(t, err)
	assert.True(t, processed)
	done, _ := repo.snapshot()
	assert.Equal(t, []string{"j1"}, done)

	snap := w.Metrics().Snapshot()
	assert.Equal(t, uint64(1), snap.Done)
	assert.Equal(t, uint64(2), snap.Delivered)
}

func TestProcessOne_RetryableFailureReschedules(t *testing.T) {
	repo := &fakeRepo{queue: []job.Job{{ID: "j1", Attempts: 0, MaxAttempts: 3}}}
	w := newTestWorker(repo, execFunc(func(context.Context, job.Job) (int, error) {
		return 0, errors.New("redis timeout")
	}))
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	w.now = func() time.Time { return now }

	_, err := w.ProcessOne(context.Background())
	require.NoError(t, err)

	runAt, ok := repo.rescheduled["j1"]
	require.True(t, ok)
	assert.GreaterOrEqual(t, runAt.Sub(now), backoffBase)
	_, failed := repo.snapshot()
	assert.Empty(t, failed)
}

func TestProcessOne_ExhaustedJobFails(t *testing.T) {
	repo := &fakeRepo{queue: []job.Job{{ID: "j1", Attempts: 2, MaxAttempts: 3}}}
	w := newTestWorker(repo, execFunc(func(context.Context, job.Job) (int, error) {
		return 0, errors.New("still broken")
	}))

	_, err := w.ProcessOne(context.Background())
	require.NoError(t, err)

	_, failed := repo.snapshot()
	assert.Equal(t, []string{"j1"}, failed)
	assert.Empty(t, repo.rescheduled)
}

func TestProcessOne_PermanentErrorSkipsRetry(t *testing.T) {
	repo := &fakeRepo{queue: []job.Job{{ID: "j1", Attempts: 0, MaxAttempts: 8}}}
	w := newTestWorker(repo, execFunc(func(context.Context, job.Job) (int, error) {
		return 0, jobs.ErrInvalidJobPayload
	}))

	_, err := w.ProcessOne(context.Background())
	require.NoError(t, err)

	_, failed := repo.snapshot()
	assert.Equal(t, []string{"j1"}, failed)
}

func TestProcessOne_ClaimErrorIsReturned(t *testing.T) {
	boom := errors.New("pool closed")
	w := newTestWorker(&fakeRepo{claimErr: boom}, execFunc(func(context.Context, job.Job) (int, error) { return 0, nil }))

	_, err := w.ProcessOne(context.Background())
	assert.ErrorIs(t, err, boom)
}

func TestRun_DrainsQueueAndStops(t *testing.T) {
	repo := &fakeRepo{queue: []job.Job{{ID: "a", MaxAttempts: 3}, {ID: "b", MaxAttempts: 3}}}
	w := newTestWorker(repo, execFunc(func(context.Context, job.Job) (int, error) { return 1, nil }))

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- w.Run(ctx) }()

	require.Eventually(t, func() bool {
		done, _ := repo.snapshot()
		return len(done) == 2
	}, 2*time.Second, 5*time.Millisecond)

	cancel()

	select {
	case err := <-errCh:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not stop")
	}
	assert.False(t, w.Ready())
}

func TestExponentialBackoff_Caps(t *testing.T) {
	assert.GreaterOrEqual(t, ExponentialBackoff(0), 2*time.Second)
	assert.Less(t, ExponentialBackoff(0), 3*time.Second)
	assert.LessOrEqual(t, ExponentialBackoff(30), backoffCap+maxJitterMS*time.Millisecond)
	assert.GreaterOrEqual(t, ExponentialBackoff(2000), backoffCap)
}

type pingFunc func(context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

func TestHealthHandler_Readiness(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := newTestWorker(&fakeRepo{}, execFunc(func(context.Context, job.Job) (int, error) { return 0, nil }))

	var dbErr error
	h := w.HealthHandler(pingFunc(func(context.Context) error { return dbErr }), nil)

	get := func(path string) int {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		return rec.Code
	}

	assert.Equal(t, http.StatusOK, get("/healthz"))
	assert.Equal(t, http.StatusServiceUnavailable, get("/readyz"))

	w.setReady(true)
	assert.Equal(t, http.StatusOK, get("/readyz"))

	dbErr = errors.New("down")
	assert.Equal(t, http.StatusServiceUnavailable, get("/readyz"))
}
