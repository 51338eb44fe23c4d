package postgres

import (
	"context"

	"github.com/geocoder89/cohorthub/internal/domain/audit"
	"github.com/geocoder89/cohorthub/internal/observability"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	DefaultAuditLimit = 50
	MaxAuditLimit     = 200
)

type AuditRepo struct {
	store
}

func NewAuditRepo(pool *pgxpool.Pool, prom *observability.Prom) *AuditRepo {
	return &AuditRepo{store{pool: pool, prom: prom}}
}

func insertAudit(ctx context.Context, q DBTX, e audit.Entry) error {
	_, err := q.Exec(ctx, `
		INSERT INTO audit_logs (id, action, changes, entity_id, entity_type, user_id, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
	`, e.ID, e.Action, e.Changes, e.EntityID, e.EntityType, e.UserID, e.CreatedAt)
	return err
}

// Record writes e using q, which may be the pool or an open transaction.
func (r *AuditRepo) Record(ctx context.Context, q DBTX, e audit.Entry) error {
	if q == nil {
		q = r.pool
	}
	return r.observe("audit.record", func() error {
		return insertAudit(ctx, q, e)
	})
}

// Append records e outside any transaction.
func (r *AuditRepo) Append(ctx context.Context, e audit.Entry) error {
	return r.Record(ctx, nil, e)
}

func (r *AuditRepo) List(ctx context.Context, limit int) ([]audit.Entry, error) {
	limit = clampLimit(limit, DefaultAuditLimit, MaxAuditLimit)
	out := make([]audit.Entry, 0, limit)

	err := r.observe("audit.list", func() error {
		rows, err := r.pool.Query(ctx, `
			SELECT id, action, changes, entity_id, entity_type, user_id, created_at
			FROM audit_logs
			ORDER BY created_at DESC, id DESC
			LIMIT $1
		`, limit)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			var e audit.Entry
			if err := rows.Scan(&e.ID, &e.Action, &e.Changes, &e.EntityID, &e.EntityType, &e.UserID, &e.CreatedAt); err != nil {
				return err
			}
			out = append(out, e)
		}
		return rows.Err()
	})

	return out, err
}
