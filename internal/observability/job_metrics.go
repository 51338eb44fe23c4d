package observability

import (
	"log/slog"
	"sync/atomic"
	"time"
)

// JobMetrics are per-process worker counters, logged on shutdown. The
// prometheus series in Prom cover the same events for scraping.
type JobMetrics struct {
	claimed      atomic.Uint64
	done         atomic.Uint64
	retried      atomic.Uint64
	deadLettered atomic.Uint64
	delivered    atomic.Uint64

	durationCount atomic.Uint64
	durationTotal atomic.Int64
	durationMax   atomic.Int64
}

func NewJobMetrics() *JobMetrics {
	return &JobMetrics{}
}

func (m *JobMetrics) IncClaimed()      { m.claimed.Add(1) }
func (m *JobMetrics) IncDone()         { m.done.Add(1) }
func (m *JobMetrics) IncRetried()      { m.retried.Add(1) }
func (m *JobMetrics) IncDeadLettered() { m.deadLettered.Add(1) }

// AddDelivered counts notifications created by a job.
func (m *JobMetrics) AddDelivered(n int) {
	if n > 0 {
		m.delivered.Add(uint64(n))
	}
}

func (m *JobMetrics) ObserveDuration(d time.Duration) {
	ns := d.Nanoseconds()
	m.durationCount.Add(1)
	m.durationTotal.Add(ns)

	for {
		curr := m.durationMax.Load()

		if ns <= curr {
			return
		}

		if m.durationMax.CompareAndSwap(curr, ns) {
			return
		}
	}
}

type JobMetricsSnapshot struct {
	Claimed         uint64
	Done            uint64
	Retried         uint64
	DeadLettered    uint64
	Delivered       uint64
	AverageDuration time.Duration
	MaxDuration     time.Duration
}

func (m *JobMetrics) Snapshot() JobMetricsSnapshot {
	count := m.durationCount.Load()
	total := m.durationTotal.Load()

	var avg time.Duration
	if count > 0 {
		avg = time.Duration(total / int64(count))
	}

	return JobMetricsSnapshot{
		Claimed:         m.claimed.Load(),
		Done:            m.done.Load(),
		Retried:         m.retried.Load(),
		DeadLettered:    m.deadLettered.Load(),
		Delivered:       m.delivered.Load(),
		AverageDuration: avg,
		MaxDuration:     time.Duration(m.durationMax.Load()),
	}
}

func (s JobMetricsSnapshot) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Uint64("claimed", s.Claimed),
		slog.Uint64("done", s.Done),
		slog.Uint64("retried", s.Retried),
		slog.Uint64("dead_lettered", s.DeadLettered),
		slog.Uint64("notifications", s.Delivered),
		slog.Int64("avg_ms", s.AverageDuration.Milliseconds()),
		slog.Int64("max_ms", s.MaxDuration.Milliseconds()),
	)
}
