package session

import (
	"context"

	"github.com/geocoder89/cohorthub/internal/domain/user"
)

type UserLoader interface {
	GetByID(ctx context.Context, id string) (user.User, error)
}

// Resolver reads identities through the cache, loading misses from Postgres.
type Resolver struct {
	cache *Cache
	users UserLoader
}

func NewResolver(cache *Cache, users UserLoader) *Resolver {
	return &Resolver{cache: cache, users: users}
}

// Identity returns user.ErrNotFound when the account has no user row yet.
func (r *Resolver) Identity(ctx context.Context, userID string) (user.Identity, error) {
	if id, ok := r.cache.Get(ctx, userID); ok {
		return id, nil
	}

	u, err := r.users.GetByID(ctx, userID)
	if err != nil {
		return user.Identity{}, err
	}

	id := u.Identity()
	r.cache.Set(ctx, id)
	return id, nil
}

func (r *Resolver) GetRole(ctx context.Context, userID string) (user.Role, error) {
	id, err := r.Identity(ctx, userID)
	if err != nil {
		return "", err
	}
	return id.Role, nil
}

func (r *Resolver) Invalidate(ctx context.Context, userID string) {
	r.cache.Invalidate(ctx, userID)
}
