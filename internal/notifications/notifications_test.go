package notifications

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeNotifier struct {
	calls int
	err   error
}

func (f *fakeNotifier) Notify(context.Context, string, Event) error {
	f.calls++
	return f.err
}

func TestProtectedNotifier_OpensAfterThreshold(t *testing.T) {
	inner := &fakeNotifier{err: errors.New("broker down")}
	n := NewProtectedNotifier(inner, ProtectedNotifierConfig{FailureThreshold: 3, Cooldown: time.Minute}, nil)

	for i := 0; i < 3; i++ {
		require.Error(t, n.Notify(context.Background(), "u1", Event{Type: EventNotification}))
	}
	assert.Equal(t, "open", n.State())

	err := n.Notify(context.Background(), "u1", Event{Type: EventNotification})
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.Equal(t, 3, inner.calls)
}

func TestProtectedNotifier_HalfOpenRecovers(t *testing.T) {
	now := time.Now()
	inner := &fakeNotifier{err: errors.New("broker down")}
	n := NewProtectedNotifier(inner, ProtectedNotifierConfig{FailureThreshold: 1, Cooldown: 15 * time.Second}, nil)
	n.now = func() time.Time { return now }

	require.Error(t, n.Notify(context.Background(), "u1", Event{}))
	assert.Equal(t, "open", n.State())

	now = now.Add(16 * time.Second)
	inner.err = nil

	require.NoError(t, n.Notify(context.Background(), "u1", Event{}))
	assert.Equal(t, "closed", n.State())
}

func TestProtectedNotifier_FailedTrialReopens(t *testing.T) {
	now := time.Now()
	inner := &fakeNotifier{err: errors.New("broker down")}
	n := NewProtectedNotifier(inner, ProtectedNotifierConfig{FailureThreshold: 1, Cooldown: time.Second}, nil)
	n.now = func() time.Time { return now }

	_ = n.Notify(context.Background(), "u1", Event{})
	now = now.Add(2 * time.Second)
	_ = n.Notify(context.Background(), "u1", Event{})

	assert.Equal(t, "open", n.State())
	assert.ErrorIs(t, n.Notify(context.Background(), "u1", Event{}), ErrCircuitOpen)
}

type fakePublisher struct {
	channel string
	payload []byte
}

func (f *fakePublisher) Publish(_ context.Context, channel string, payload []byte) (int64, error) {
	f.channel, f.payload = channel, payload
	return 1, nil
}

func TestRedisNotifier_PublishesOnUserChannel(t *testing.T) {
	pub := &fakePublisher{}
	n := NewRedisNotifier(pub)

	err := n.Notify(context.Background(), "u-9", Event{Type: EventMessage, Data: map[string]string{"id": "m1"}})
	require.NoError(t, err)

	assert.Equal(t, "cohorthub:notify:u-9", pub.channel)

	var got map[string]any
	require.NoError(t, json.Unmarshal(pub.payload, &got))
	assert.Equal(t, "message", got["type"])
}

func TestFanout_TriesEveryone(t *testing.T) {
	inner := &fakeNotifier{err: errors.New("nope")}

	err := Fanout(context.Background(), inner, []string{"a", "b", "c"}, Event{})

	assert.Error(t, err)
	assert.Equal(t, 3, inner.calls)
}
