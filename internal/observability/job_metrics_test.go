package observability

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestJobMetrics_Snapshot(t *testing.T) {
	m := NewJobMetrics()

	m.IncClaimed()
	m.IncClaimed()
	m.IncDone()
	m.IncRetried()
	m.AddDelivered(12)
	m.AddDelivered(-1)
	m.ObserveDuration(100 * time.Millisecond)
	m.ObserveDuration(300 * time.Millisecond)

	s := m.Snapshot()

	assert.Equal(t, uint64(2), s.Claimed)
	assert.Equal(t, uint64(1), s.Done)
	assert.Equal(t, uint64(1), s.Retried)
	assert.Equal(t, uint64(12), s.Delivered)
	assert.Equal(t, 200*time.Millisecond, s.AverageDuration)
	assert.Equal(t, 300*time.Millisecond, s.MaxDuration)
}
