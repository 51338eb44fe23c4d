package postgres

import (
	"context"
	"time"

	"github.com/geocoder89/cohorthub/internal/observability"
	"github.com/jackc/pgx/v5/pgxpool"
)

type HealthRepo struct {
	store
}

func NewHealthRepo(pool *pgxpool.Pool, prom *observability.Prom) *HealthRepo {
	return &HealthRepo{store{pool: pool, prom: prom}}
}

// Ping is bounded to one second regardless of the caller's deadline.
func (r *HealthRepo) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()

	return r.observe("health.ping", func() error {
		return r.pool.Ping(ctx)
	})
}
