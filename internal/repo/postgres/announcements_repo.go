package postgres

import (
	"context"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/geocoder89/cohorthub/internal/domain/announcement"
	"github.com/geocoder89/cohorthub/internal/domain/job"
	"github.com/geocoder89/cohorthub/internal/observability"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	DefaultAnnouncementLimit = 50
	MaxAnnouncementLimit     = 200
)

type AnnouncementsRepo struct {
	store
}

func NewAnnouncementsRepo(pool *pgxpool.Pool, prom *observability.Prom) *AnnouncementsRepo {
	return &AnnouncementsRepo{store{pool: pool, prom: prom}}
}

var announcementColumns = []string{
	"id", "title", "content", "priority", "status", "category", "target_audience",
	"published_at", "expires_at", "created_by_id", "views", "reactions", "created_at", "updated_at",
}

func scanAnnouncement(row pgx.Row) (announcement.Announcement, error) {
	var a announcement.Announcement
	var priority, status string

	err := row.Scan(
		&a.ID, &a.Title, &a.Content, &priority, &status, &a.Category, &a.TargetAudience,
		&a.PublishedAt, &a.ExpiresAt, &a.CreatedByID, &a.Views, &a.Reactions, &a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		return announcement.Announcement{}, err
	}

	a.Priority = announcement.Priority(priority)
	a.Status = announcement.Status(status)
	return a, nil
}

// List orders by published_at (drafts last), then newest.
func (r *AnnouncementsRepo) List(ctx context.Context, f announcement.ListFilter) ([]announcement.Announcement, error) {
	q := psql.Select(announcementColumns...).
		From("announcements").
		OrderBy("published_at DESC NULLS LAST", "created_at DESC", "id").
		Limit(uint64(clampLimit(f.Limit, DefaultAnnouncementLimit, MaxAnnouncementLimit)))

	if f.Status != nil {
		q = q.Where(squirrel.Eq{"status": string(*f.Status)})
	}

	if f.OnlyLive {
		now := f.Now
		if now.IsZero() {
			now = time.Now().UTC()
		}
		q = q.Where(squirrel.Eq{"status": string(announcement.StatusPublished)}).
			Where(squirrel.Or{
				squirrel.Eq{"expires_at": nil},
				squirrel.Gt{"expires_at": now},
			})
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, err
	}

	out := make([]announcement.Announcement, 0)
	err = r.observe("announcements.list", func() error {
		rows, err := r.pool.Query(ctx, sql, args...)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			a, err := scanAnnouncement(rows)
			if err != nil {
				return err
			}
			out = append(out, a)
		}
		return rows.Err()
	})

	return out, err
}

func (r *AnnouncementsRepo) GetByID(ctx context.Context, id string) (announcement.Announcement, error) {
	var a announcement.Announcement

	err := r.observe("announcements.get_by_id", func() error {
		var e error
		a, e = scanAnnouncement(r.pool.QueryRow(ctx,
			`SELECT `+joinColumns(announcementColumns)+` FROM announcements WHERE id = $1`, id))
		return e
	})
	if err != nil {
		return announcement.Announcement{}, notFound(err, announcement.ErrNotFound)
	}
	return a, nil
}

// Create stores a. When publish is non-nil the fan-out job is queued in the
// same transaction.
func (r *AnnouncementsRepo) Create(ctx context.Context, a announcement.Announcement, publish *job.CreateRequest) (announcement.Announcement, error) {
	err := r.inTx(ctx, func(tx pgx.Tx) error {
		err := r.observe("announcements.create", func() error {
			_, e := tx.Exec(ctx, `
				INSERT INTO announcements (`+joinColumns(announcementColumns)+`)
				VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)
			`, a.ID, a.Title, a.Content, string(a.Priority), string(a.Status), a.Category, a.TargetAudience,
				a.PublishedAt, a.ExpiresAt, a.CreatedByID, a.Views, a.Reactions, a.CreatedAt, a.UpdatedAt)
			return e
		})
		if err != nil {
			return err
		}

		if publish == nil {
			return nil
		}
		return r.observe("announcements.create.enqueue", func() error {
			return insertJob(ctx, tx, job.New(*publish))
		})
	})
	if err != nil {
		return announcement.Announcement{}, err
	}
	return a, nil
}

// Update locks the row, applies req and saves it. publish builds the fan-out
// job and is only called when the update moves the row into PUBLISHED.
func (r *AnnouncementsRepo) Update(
	ctx context.Context,
	id string,
	req announcement.UpdateRequest,
	publish func(a announcement.Announcement) (job.CreateRequest, error),
) (announcement.Announcement, error) {
	var a announcement.Announcement

	err := r.inTx(ctx, func(tx pgx.Tx) error {
		err := r.observe("announcements.update.lock", func() error {
			var e error
			a, e = scanAnnouncement(tx.QueryRow(ctx,
				`SELECT `+joinColumns(announcementColumns)+` FROM announcements WHERE id = $1 FOR UPDATE`, id))
			return e
		})
		if err != nil {
			return notFound(err, announcement.ErrNotFound)
		}

		published := a.Apply(req, time.Now().UTC())

		err = r.observe("announcements.update", func() error {
			_, e := tx.Exec(ctx, `
				UPDATE announcements
				SET title = $2, content = $3, priority = $4, status = $5, category = $6,
				    target_audience = $7, published_at = $8, expires_at = $9, updated_at = $10
				WHERE id = $1
			`, a.ID, a.Title, a.Content, string(a.Priority), string(a.Status), a.Category,
				a.TargetAudience, a.PublishedAt, a.ExpiresAt, a.UpdatedAt)
			return e
		})
		if err != nil {
			return err
		}

		if !published || publish == nil {
			return nil
		}

		jr, err := publish(a)
		if err != nil {
			return err
		}
		return r.observe("announcements.update.enqueue", func() error {
			return insertJob(ctx, tx, job.New(jr))
		})
	})
	if err != nil {
		return announcement.Announcement{}, err
	}
	return a, nil
}

func (r *AnnouncementsRepo) Delete(ctx context.Context, id string) error {
	return r.observe("announcements.delete", func() error {
		tag, e := r.pool.Exec(ctx, `DELETE FROM announcements WHERE id = $1`, id)
		if e != nil {
			return e
		}
		if tag.RowsAffected() == 0 {
			return announcement.ErrNotFound
		}
		return nil
	})
}

func (r *AnnouncementsRepo) IncrementViews(ctx context.Context, id string) (int, error) {
	var views int

	err := r.observe("announcements.increment_views", func() error {
		return r.pool.QueryRow(ctx, `
			UPDATE announcements SET views = views + 1 WHERE id = $1 RETURNING views
		`, id).Scan(&views)
	})
	if err != nil {
		return 0, notFound(err, announcement.ErrNotFound)
	}
	return views, nil
}
