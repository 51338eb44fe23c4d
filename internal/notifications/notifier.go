package notifications

import (
	"context"
	"encoding/json"
)

const (
	EventNotification = "notification"
	EventMessage      = "message"
)

// Event is what a connected client receives on its socket.
type Event struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

func (e Event) Encode() ([]byte, error) {
	return json.Marshal(e)
}

// Notifier pushes an event to one user. Delivery is best effort; the stored
// notification row is the source of truth.
type Notifier interface {
	Notify(ctx context.Context, userID string, ev Event) error
}

// Fanout sends ev to every user and returns the first error after trying all.
func Fanout(ctx context.Context, n Notifier, userIDs []string, ev Event) error {
	var firstErr error

	for _, id := range userIDs {
		if err := n.Notify(ctx, id, ev); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
