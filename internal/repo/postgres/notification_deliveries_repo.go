package postgres

import (
	"context"

	"github.com/geocoder89/cohorthub/internal/domain/notification"
	"github.com/geocoder89/cohorthub/internal/observability"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DeliveriesRepo stores the notifications a job fans out at most once per
// job, so a job that is rerun after a crash does not notify twice.
type DeliveriesRepo struct {
	store
}

func NewDeliveriesRepo(pool *pgxpool.Pool, prom *observability.Prom) *DeliveriesRepo {
	return &DeliveriesRepo{store{pool: pool, prom: prom}}
}

// DeliverOnce claims jobID and bulk-loads ns in the same transaction.
// delivered is false when an earlier run already claimed the job.
func (r *DeliveriesRepo) DeliverOnce(ctx context.Context, jobID string, ns []notification.Notification) (stored int64, delivered bool, err error) {
	err = r.inTx(ctx, func(tx pgx.Tx) error {
		var claimed bool
		err := r.observe("deliveries.claim", func() error {
			tag, e := tx.Exec(ctx, `
				INSERT INTO notification_deliveries (job_id, recipients, delivered_at)
				VALUES ($1, $2, NOW())
				ON CONFLICT (job_id) DO NOTHING
			`, jobID, len(ns))
			if e != nil {
				return e
			}
			claimed = tag.RowsAffected() == 1
			return nil
		})
		if err != nil || !claimed {
			return err
		}

		delivered = true
		return r.observe("deliveries.copy", func() error {
			var e error
			stored, e = copyNotifications(ctx, tx, ns)
			return e
		})
	})
	if err != nil {
		return 0, false, err
	}
	return stored, delivered, nil
}
