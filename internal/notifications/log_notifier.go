package notifications

import (
	"context"
	"log/slog"
)

// LogNotifier only logs. Used in dev and when redis is not configured.
type LogNotifier struct {
	log *slog.Logger
}

func NewLogNotifier(log *slog.Logger) *LogNotifier {
	if log == nil {
		log = slog.Default()
	}
	return &LogNotifier{log: log}
}

func (n *LogNotifier) Notify(ctx context.Context, userID string, ev Event) error {
	n.log.InfoContext(ctx, "notification_delivered",
		"notifier", "log",
		"user_id", userID,
		"event", ev.Type,
	)
	return nil
}
