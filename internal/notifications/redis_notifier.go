package notifications

import (
	"context"
	"fmt"

	"github.com/geocoder89/cohorthub/internal/utils"
)

type Publisher interface {
	Publish(ctx context.Context, channel string, payload []byte) (int64, error)
}

// RedisNotifier publishes on the user's channel. Every API process
// pattern-subscribes and forwards to its own sockets.
type RedisNotifier struct {
	pub Publisher
}

func NewRedisNotifier(pub Publisher) *RedisNotifier {
	return &RedisNotifier{pub: pub}
}

func (n *RedisNotifier) Notify(ctx context.Context, userID string, ev Event) error {
	b, err := ev.Encode()
	if err != nil {
		return fmt.Errorf("encode %s event: %w", ev.Type, err)
	}

	if _, err := n.pub.Publish(ctx, utils.BuildNotifyChannel(userID), b); err != nil {
		return fmt.Errorf("publish %s event: %w", ev.Type, err)
	}
	return nil
}
