package postgres

import (
	"context"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/geocoder89/cohorthub/internal/domain/audit"
	"github.com/geocoder89/cohorthub/internal/domain/job"
	"github.com/geocoder89/cohorthub/internal/domain/moderation"
	"github.com/geocoder89/cohorthub/internal/observability"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	DefaultReportLimit = 50
	MaxReportLimit     = 200
)

type ModerationRepo struct {
	store
}

func NewModerationRepo(pool *pgxpool.Pool, prom *observability.Prom) *ModerationRepo {
	return &ModerationRepo{store{pool: pool, prom: prom}}
}

var reportColumns = []string{
	"id", "content_id", "content_type", "reason", "reported_by",
	"status", "action_taken", "description", "created_at", "updated_at",
}

func scanReport(row pgx.Row) (moderation.Report, error) {
	var rep moderation.Report
	var status string

	err := row.Scan(
		&rep.ID, &rep.ContentID, &rep.ContentType, &rep.Reason, &rep.ReportedBy,
		&status, &rep.ActionTaken, &rep.Description, &rep.CreatedAt, &rep.UpdatedAt,
	)
	if err != nil {
		return moderation.Report{}, err
	}

	rep.Status = moderation.Status(status)
	return rep, nil
}

// CreateReport stores rep and queues the admin notification with it.
func (r *ModerationRepo) CreateReport(ctx context.Context, rep moderation.Report, notify job.CreateRequest) (moderation.Report, error) {
	err := r.inTx(ctx, func(tx pgx.Tx) error {
		err := r.observe("moderation.create_report", func() error {
			_, e := tx.Exec(ctx, `
				INSERT INTO moderated_content (`+joinColumns(reportColumns)+`)
				VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
			`, rep.ID, rep.ContentID, rep.ContentType, rep.Reason, rep.ReportedBy,
				string(rep.Status), rep.ActionTaken, rep.Description, rep.CreatedAt, rep.UpdatedAt)
			return e
		})
		if err != nil {
			return err
		}

		return r.observe("moderation.create_report.enqueue", func() error {
			return insertJob(ctx, tx, job.New(notify))
		})
	})
	if err != nil {
		return moderation.Report{}, err
	}
	return rep, nil
}

func (r *ModerationRepo) ListReports(ctx context.Context, status *moderation.Status, limit int) ([]moderation.Report, error) {
	q := psql.Select(reportColumns...).
		From("moderated_content").
		OrderBy("created_at DESC", "id").
		Limit(uint64(clampLimit(limit, DefaultReportLimit, MaxReportLimit)))

	if status != nil {
		q = q.Where(squirrel.Eq{"status": string(*status)})
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, err
	}

	out := make([]moderation.Report, 0)
	err = r.observe("moderation.list_reports", func() error {
		rows, err := r.pool.Query(ctx, sql, args...)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			rep, err := scanReport(rows)
			if err != nil {
				return err
			}
			out = append(out, rep)
		}
		return rows.Err()
	})

	return out, err
}

func (r *ModerationRepo) GetReport(ctx context.Context, id string) (moderation.Report, error) {
	var rep moderation.Report

	err := r.observe("moderation.get_report", func() error {
		var e error
		rep, e = scanReport(r.pool.QueryRow(ctx,
			`SELECT `+joinColumns(reportColumns)+` FROM moderated_content WHERE id = $1`, id))
		return e
	})
	if err != nil {
		return moderation.Report{}, notFound(err, moderation.ErrNotFound)
	}
	return rep, nil
}

// ResolveReport moves a report to req.Status and audits the decision.
func (r *ModerationRepo) ResolveReport(ctx context.Context, actorID, id string, req moderation.ResolveRequest) (moderation.Report, error) {
	var rep moderation.Report

	err := r.inTx(ctx, func(tx pgx.Tx) error {
		var previous string
		err := r.observe("moderation.resolve.lock", func() error {
			return tx.QueryRow(ctx, `SELECT status FROM moderated_content WHERE id = $1 FOR UPDATE`, id).Scan(&previous)
		})
		if err != nil {
			return notFound(err, moderation.ErrNotFound)
		}

		err = r.observe("moderation.resolve.update", func() error {
			var e error
			rep, e = scanReport(tx.QueryRow(ctx, `
				UPDATE moderated_content
				SET status = $2, action_taken = COALESCE($3, action_taken), updated_at = $4
				WHERE id = $1
				RETURNING `+joinColumns(reportColumns),
				id, string(req.Status), req.ActionTaken, time.Now().UTC()))
			return e
		})
		if err != nil {
			return err
		}

		entry := audit.NewEntry(actorID, audit.ActionReportResolved, "moderated_content", id, map[string]any{
			"from":        previous,
			"to":          string(req.Status),
			"actionTaken": req.ActionTaken,
		})
		return r.observe("moderation.resolve.audit", func() error {
			return insertAudit(ctx, tx, entry)
		})
	})
	if err != nil {
		return moderation.Report{}, err
	}
	return rep, nil
}
