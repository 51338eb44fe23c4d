package postgres

import (
	"context"

	"github.com/geocoder89/cohorthub/internal/domain/notification"
	"github.com/geocoder89/cohorthub/internal/observability"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	DefaultNotificationLimit = 50
	MaxNotificationLimit     = 200
)

type NotificationsRepo struct {
	store
}

func NewNotificationsRepo(pool *pgxpool.Pool, prom *observability.Prom) *NotificationsRepo {
	return &NotificationsRepo{store{pool: pool, prom: prom}}
}

var notificationColumns = []string{"id", "user_id", "type", "title", "message", "action_url", "read", "created_at"}

func scanNotification(row pgx.Row) (notification.Notification, error) {
	var n notification.Notification
	var typ string

	err := row.Scan(&n.ID, &n.UserID, &typ, &n.Title, &n.Message, &n.ActionURL, &n.Read, &n.CreatedAt)
	if err != nil {
		return notification.Notification{}, err
	}

	n.Type = notification.Type(typ)
	return n, nil
}

// ListForUser returns the newest notifications plus the user's total unread count.
func (r *NotificationsRepo) ListForUser(ctx context.Context, userID string, limit int) ([]notification.Notification, int, error) {
	limit = clampLimit(limit, DefaultNotificationLimit, MaxNotificationLimit)
	items := make([]notification.Notification, 0)
	var unread int

	err := r.observe("notifications.list_for_user", func() error {
		rows, err := r.pool.Query(ctx, `
			SELECT `+joinColumns(notificationColumns)+`
			FROM notifications
			WHERE user_id = $1
			ORDER BY created_at DESC, id DESC
			LIMIT $2
		`, userID, limit)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			n, err := scanNotification(rows)
			if err != nil {
				return err
			}
			items = append(items, n)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, 0, err
	}

	err = r.observe("notifications.unread_count", func() error {
		return r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM notifications WHERE user_id = $1 AND NOT read`, userID).Scan(&unread)
	})
	if err != nil {
		return nil, 0, err
	}

	return items, unread, nil
}

func (r *NotificationsRepo) Create(ctx context.Context, n notification.Notification) (notification.Notification, error) {
	err := r.observe("notifications.create", func() error {
		_, e := r.pool.Exec(ctx, `
			INSERT INTO notifications (`+joinColumns(notificationColumns)+`)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		`, n.ID, n.UserID, string(n.Type), n.Title, n.Message, n.ActionURL, n.Read, n.CreatedAt)
		return e
	})
	if err != nil {
		return notification.Notification{}, err
	}
	return n, nil
}

// copyNotifications bulk-loads ns with COPY.
func copyNotifications(ctx context.Context, tx pgx.Tx, ns []notification.Notification) (int64, error) {
	return tx.CopyFrom(ctx,
		pgx.Identifier{"notifications"},
		notificationColumns,
		pgx.CopyFromSlice(len(ns), func(i int) ([]any, error) {
			n := ns[i]
			return []any{n.ID, n.UserID, string(n.Type), n.Title, n.Message, n.ActionURL, n.Read, n.CreatedAt}, nil
		}),
	)
}

// MarkRead only touches a notification owned by userID.
func (r *NotificationsRepo) MarkRead(ctx context.Context, userID, id string) error {
	return r.observe("notifications.mark_read", func() error {
		tag, e := r.pool.Exec(ctx, `UPDATE notifications SET read = TRUE WHERE id = $1 AND user_id = $2`, id, userID)
		if e != nil {
			return e
		}
		if tag.RowsAffected() == 0 {
			return notification.ErrNotFound
		}
		return nil
	})
}

func (r *NotificationsRepo) MarkAllRead(ctx context.Context, userID string) (int64, error) {
	var n int64

	err := r.observe("notifications.mark_all_read", func() error {
		tag, e := r.pool.Exec(ctx, `UPDATE notifications SET read = TRUE WHERE user_id = $1 AND NOT read`, userID)
		if e != nil {
			return e
		}
		n = tag.RowsAffected()
		return nil
	})
	return n, err
}

func (r *NotificationsRepo) Delete(ctx context.Context, userID, id string) error {
	return r.observe("notifications.delete", func() error {
		tag, e := r.pool.Exec(ctx, `DELETE FROM notifications WHERE id = $1 AND user_id = $2`, id, userID)
		if e != nil {
			return e
		}
		if tag.RowsAffected() == 0 {
			return notification.ErrNotFound
		}
		return nil
	})
}
