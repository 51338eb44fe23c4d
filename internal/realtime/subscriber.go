package realtime

import (
	"context"
	"log/slog"

	"github.com/geocoder89/cohorthub/internal/utils"
	"github.com/redis/go-redis/v9"
)

type PatternSubscriber interface {
	PSubscribe(ctx context.Context, pattern string) *redis.PubSub
}

// Subscribe forwards every per-user notify channel message to the hub until
// ctx is done.
func (h *Hub) Subscribe(ctx context.Context, sub PatternSubscriber) error {
	ps := sub.PSubscribe(ctx, utils.NotifyChannelPattern())
	defer ps.Close()

	if _, err := ps.Receive(ctx); err != nil {
		return err
	}

	ch := ps.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			h.dispatch(msg.Channel, []byte(msg.Payload))
		}
	}
}

func (h *Hub) dispatch(channel string, payload []byte) {
	userID, ok := utils.UserIDFromNotifyChannel(channel)
	if !ok {
		return
	}

	if n := h.SendToUser(userID, payload); n > 0 {
		slog.Default().Debug("ws_event_forwarded", "user_id", userID, "sockets", n)
	}
}
