package handlers_test

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/geocoder89/cohorthub/internal/domain/user"
	"github.com/geocoder89/cohorthub/internal/http/handlers"
	"github.com/geocoder89/cohorthub/internal/utils"
)

type fakeUsersStore struct {
	users     map[string]user.User
	gotUpdate *user.UpdateSelfRequest
}

func (f *fakeUsersStore) GetByID(ctx context.Context, id string) (user.User, error) {
	u, ok := f.users[id]
	if !ok {
		return user.User{}, user.ErrNotFound
	}
	return u, nil
}

func (f *fakeUsersStore) List(ctx context.Context) ([]user.User, error) {
	out := make([]user.User, 0, len(f.users))
	for _, u := range f.users {
		out = append(out, u)
	}
	return out, nil
}

// UpdateSelf upserts the profile the way the repo does: created on first write.
func (f *fakeUsersStore) UpdateSelf(ctx context.Context, id string, req user.UpdateSelfRequest) (user.User, error) {
	u, ok := f.users[id]
	if !ok {
		return user.User{}, user.ErrNotFound
	}
	f.gotUpdate = &req

	if req.Name != nil {
		u.Name = *req.Name
	}
	if req.Profile != nil {
		if u.Profile == nil {
			u.Profile = &user.Profile{ID: "p-" + id, UserID: id}
		}
		if req.Profile.Title != nil {
			u.Profile.Title = req.Profile.Title
		}
	}
	f.users[id] = u
	return u, nil
}

type fakeSessions struct {
	identities  map[string]user.Identity
	invalidated []string
}

func (f *fakeSessions) Identity(ctx context.Context, userID string) (user.Identity, error) {
	id, ok := f.identities[userID]
	if !ok {
		return user.Identity{}, user.ErrNotFound
	}
	return id, nil
}

func (f *fakeSessions) Invalidate(ctx context.Context, userID string) {
	f.invalidated = append(f.invalidated, userID)
}

func TestMe(t *testing.T) {
	sessions := &fakeSessions{identities: map[string]user.Identity{
		"u-1": {ID: "u-1", Name: "Asha Rao", Role: user.RoleMember, Status: user.StatusActive},
	}}
	h := handlers.NewUsersHandler(&fakeUsersStore{}, sessions, nil)

	tests := []struct {
		name       string
		userID     string
		wantStatus int
	}{
		{name: "known", userID: "u-1", wantStatus: http.StatusOK},
		{name: "no user row", userID: "u-ghost", wantStatus: http.StatusUnauthorized},
		{name: "anonymous", wantStatus: http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := setupAuthedRouter(http.MethodGet, "/api/users/me", tt.userID, "MEMBER", h.Me)

			w := perform(r, http.MethodGet, "/api/users/me", "")
			if w.Code != tt.wantStatus {
				t.Fatalf("expected %d, got %d body=%s", tt.wantStatus, w.Code, w.Body.String())
			}
			if tt.wantStatus == http.StatusOK {
				var id user.Identity
				if err := json.Unmarshal(w.Body.Bytes(), &id); err != nil || id.Name != "Asha Rao" {
					t.Fatalf("unexpected identity %+v (err %v)", id, err)
				}
			}
		})
	}
}

func TestUpdateSelf_UpsertsProfileAndInvalidates(t *testing.T) {
	store := &fakeUsersStore{users: map[string]user.User{
		"u-1": {ID: "u-1", Name: "Asha", Role: user.RoleMember},
	}}
	sessions := &fakeSessions{}
	members := &recordingInvalidator{}

	h := handlers.NewUsersHandler(store, sessions, members)
	r := setupAuthedRouter(http.MethodPatch, "/api/users", "u-1", "MEMBER", h.UpdateSelf)

	w := perform(r, http.MethodPatch, "/api/users", `{"name":"Asha Rao","profile":{"title":"Founder"}}`)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d body=%s", w.Code, w.Body.String())
	}

	var got user.User
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got.Name != "Asha Rao" || got.Profile == nil || got.Profile.Title == nil || *got.Profile.Title != "Founder" {
		t.Fatalf("expected name and new profile, got %+v", got)
	}

	if len(sessions.invalidated) != 1 || sessions.invalidated[0] != "u-1" {
		t.Fatalf("expected session invalidated for u-1, got %v", sessions.invalidated)
	}
	if len(members.keys) != 1 || members.keys[0] != utils.DirectoryMembersCacheKey {
		t.Fatalf("expected directory cache dropped, got %v", members.keys)
	}
}

func TestUpdateSelf_Errors(t *testing.T) {
	tests := []struct {
		name       string
		userID     string
		body       string
		wantStatus int
	}{
		{name: "missing row", userID: "u-ghost", body: `{"name":"x"}`, wantStatus: http.StatusNotFound},
		{name: "malformed body", userID: "u-1", body: `{"name":`, wantStatus: http.StatusBadRequest},
		{name: "anonymous", body: `{"name":"x"}`, wantStatus: http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &fakeUsersStore{users: map[string]user.User{"u-1": {ID: "u-1"}}}
			sessions := &fakeSessions{}
			h := handlers.NewUsersHandler(store, sessions, nil)
			r := setupAuthedRouter(http.MethodPatch, "/api/users", tt.userID, "MEMBER", h.UpdateSelf)

			if w := perform(r, http.MethodPatch, "/api/users", tt.body); w.Code != tt.wantStatus {
				t.Fatalf("expected %d, got %d", tt.wantStatus, w.Code)
			}
			if len(sessions.invalidated) != 0 {
				t.Fatalf("expected no invalidation on failure")
			}
		})
	}
}

func TestGetUsers_ByID(t *testing.T) {
	store := &fakeUsersStore{users: map[string]user.User{"u-1": {ID: "u-1", Name: "Asha"}}}
	h := handlers.NewUsersHandler(store, &fakeSessions{}, nil)
	r := setupAuthedRouter(http.MethodGet, "/api/users", "u-2", "MEMBER", h.GetUsers)

	if w := perform(r, http.MethodGet, "/api/users?id=u-1", ""); w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if w := perform(r, http.MethodGet, "/api/users?id=u-9", ""); w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
}
