package session

import (
	"context"
	"testing"

	"github.com/geocoder89/cohorthub/internal/domain/user"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeLoader struct {
	calls int
	u     user.User
	err   error
}

func (f *fakeLoader) GetByID(_ context.Context, id string) (user.User, error) {
	f.calls++
	if f.err != nil {
		return user.User{}, f.err
	}
	u := f.u
	u.ID = id
	return u, nil
}

func TestResolver_LoadsOnMiss(t *testing.T) {
	loader := &fakeLoader{u: user.User{Email: "ada@example.com", Role: user.RoleAdmin}}
	r := NewResolver(nil, loader)

	role, err := r.GetRole(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, user.RoleAdmin, role)

	id, err := r.Identity(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, "ada@example.com", id.Email)
	// nil cache never hits
	assert.Equal(t, 2, loader.calls)
}

func TestResolver_PropagatesNotFound(t *testing.T) {
	r := NewResolver(nil, &fakeLoader{err: user.ErrNotFound})

	_, err := r.GetRole(context.Background(), "ghost")
	assert.ErrorIs(t, err, user.ErrNotFound)
}
