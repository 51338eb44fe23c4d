package handlers_test

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/geocoder89/cohorthub/internal/domain/notification"
	"github.com/geocoder89/cohorthub/internal/http/handlers"
)

type fakeNotificationsRepo struct {
	listFn        func(ctx context.Context, userID string, limit int) ([]notification.Notification, int, error)
	markReadFn    func(ctx context.Context, userID, id string) error
	markAllReadFn func(ctx context.Context, userID string) (int64, error)
	deleteFn      func(ctx context.Context, userID, id string) error
}

func (f *fakeNotificationsRepo) ListForUser(ctx context.Context, userID string, limit int) ([]notification.Notification, int, error) {
	return f.listFn(ctx, userID, limit)
}

func (f *fakeNotificationsRepo) MarkRead(ctx context.Context, userID, id string) error {
	return f.markReadFn(ctx, userID, id)
}

func (f *fakeNotificationsRepo) MarkAllRead(ctx context.Context, userID string) (int64, error) {
	return f.markAllReadFn(ctx, userID)
}

func (f *fakeNotificationsRepo) Delete(ctx context.Context, userID, id string) error {
	return f.deleteFn(ctx, userID, id)
}

func TestListNotifications_ScopedToCaller(t *testing.T) {
	var gotUser string
	var gotLimit int
	repo := &fakeNotificationsRepo{
		listFn: func(ctx context.Context, userID string, limit int) ([]notification.Notification, int, error) {
			gotUser, gotLimit = userID, limit
			return []notification.Notification{
				notification.New(userID, notification.TypeInfo, "Welcome", "Hello", ""),
			}, 1, nil
		},
	}

	h := handlers.NewNotificationsHandler(repo)
	r := setupAuthedRouter(http.MethodGet, "/api/notifications", "user-1", "MEMBER", h.ListNotifications)

	w := perform(r, http.MethodGet, "/api/notifications?limit=5", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d body=%s", w.Code, w.Body.String())
	}

	var body struct {
		Items       []notification.Notification `json:"items"`
		UnreadCount int                         `json:"unreadCount"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	if gotUser != "user-1" || gotLimit != 5 {
		t.Fatalf("repository called with %q/%d", gotUser, gotLimit)
	}
	if len(body.Items) != 1 || body.UnreadCount != 1 {
		t.Fatalf("unexpected body: %+v", body)
	}
}

func TestListNotifications_BadLimit(t *testing.T) {
	h := handlers.NewNotificationsHandler(&fakeNotificationsRepo{})
	r := setupAuthedRouter(http.MethodGet, "/api/notifications", "user-1", "MEMBER", h.ListNotifications)

	w := perform(r, http.MethodGet, "/api/notifications?limit=-1", "")
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestMarkRead_OtherUsersNotificationIsNotFound(t *testing.T) {
	repo := &fakeNotificationsRepo{
		markReadFn: func(ctx context.Context, userID, id string) error {
			if userID != "owner" {
				return notification.ErrNotFound
			}
			return nil
		},
	}

	h := handlers.NewNotificationsHandler(repo)

	r := setupAuthedRouter(http.MethodPatch, "/api/notifications/:id/read", "intruder", "MEMBER", h.MarkRead)
	if w := perform(r, http.MethodPatch, "/api/notifications/n-1/read", ""); w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}

	r = setupAuthedRouter(http.MethodPatch, "/api/notifications/:id/read", "owner", "MEMBER", h.MarkRead)
	if w := perform(r, http.MethodPatch, "/api/notifications/n-1/read", ""); w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
}

func TestMarkAllRead_ReportsCount(t *testing.T) {
	repo := &fakeNotificationsRepo{
		markAllReadFn: func(ctx context.Context, userID string) (int64, error) {
			return 3, nil
		},
	}

	h := handlers.NewNotificationsHandler(repo)
	r := setupAuthedRouter(http.MethodPost, "/api/notifications/read-all", "user-1", "MEMBER", h.MarkAllRead)

	w := perform(r, http.MethodPost, "/api/notifications/read-all", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	var body struct {
		Success bool  `json:"success"`
		Updated int64 `json:"updated"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !body.Success || body.Updated != 3 {
		t.Fatalf("unexpected body: %+v", body)
	}
}

func TestDeleteNotification(t *testing.T) {
	deleted := ""
	repo := &fakeNotificationsRepo{
		deleteFn: func(ctx context.Context, userID, id string) error {
			if id == "missing" {
				return notification.ErrNotFound
			}
			deleted = id
			return nil
		},
	}

	h := handlers.NewNotificationsHandler(repo)
	r := setupAuthedRouter(http.MethodDelete, "/api/notifications/:id", "user-1", "MEMBER", h.DeleteNotification)

	if w := perform(r, http.MethodDelete, "/api/notifications/n-1", ""); w.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", w.Code)
	}
	if deleted != "n-1" {
		t.Fatalf("expected n-1 deleted, got %q", deleted)
	}

	if w := perform(r, http.MethodDelete, "/api/notifications/missing", ""); w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
}
