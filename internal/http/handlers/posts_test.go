package handlers_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"github.com/geocoder89/cohorthub/internal/domain/audit"
	"github.com/geocoder89/cohorthub/internal/domain/post"
	"github.com/geocoder89/cohorthub/internal/http/handlers"
	"github.com/gin-gonic/gin"
)

type fakePostsRepo struct {
	listFn          func(ctx context.Context, limit int) ([]post.Post, error)
	createFn        func(ctx context.Context, p post.Post) (post.Post, error)
	deleteFn        func(ctx context.Context, id, actorID string, asAdmin bool) error
	likeFn          func(ctx context.Context, id string) (int, error)
	createCommentFn func(ctx context.Context, c post.Comment) (post.Comment, error)
	deleteCommentFn func(ctx context.Context, postID, commentID, actorID string, asAdmin bool) error
}

func (f *fakePostsRepo) List(ctx context.Context, limit int) ([]post.Post, error) {
	if f.listFn != nil {
		return f.listFn(ctx, limit)
	}
	return []post.Post{}, nil
}

func (f *fakePostsRepo) Create(ctx context.Context, p post.Post) (post.Post, error) {
	if f.createFn != nil {
		return f.createFn(ctx, p)
	}
	return p, nil
}

func (f *fakePostsRepo) Delete(ctx context.Context, id, actorID string, asAdmin bool) error {
	if f.deleteFn != nil {
		return f.deleteFn(ctx, id, actorID, asAdmin)
	}
	return nil
}

func (f *fakePostsRepo) Like(ctx context.Context, id string) (int, error) {
	if f.likeFn != nil {
		return f.likeFn(ctx, id)
	}
	return 1, nil
}

func (f *fakePostsRepo) CreateComment(ctx context.Context, c post.Comment) (post.Comment, error) {
	if f.createCommentFn != nil {
		return f.createCommentFn(ctx, c)
	}
	return c, nil
}

func (f *fakePostsRepo) DeleteComment(ctx context.Context, postID, commentID, actorID string, asAdmin bool) error {
	if f.deleteCommentFn != nil {
		return f.deleteCommentFn(ctx, postID, commentID, actorID, asAdmin)
	}
	return nil
}

type fakeAudit struct {
	entries []audit.Entry
}

func (f *fakeAudit) Append(_ context.Context, e audit.Entry) error {
	f.entries = append(f.entries, e)
	return nil
}

func TestCreatePostHandler(t *testing.T) {
	tests := []struct {
		name       string
		userID     string
		body       string
		wantStatus int
	}{
		{name: "created", userID: "u1", body: `{"content":"Hello cohort","tags":["intro"]}`, wantStatus: http.StatusCreated},
		{name: "missing content", userID: "u1", body: `{"tags":["intro"]}`, wantStatus: http.StatusBadRequest},
		{name: "anonymous", userID: "", body: `{"content":"x"}`, wantStatus: http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var stored post.Post
			repo := &fakePostsRepo{createFn: func(_ context.Context, p post.Post) (post.Post, error) {
				stored = p
				return p, nil
			}}
			h := handlers.NewPostsHandler(repo, nil)
			r := setupAuthedRouter(http.MethodPost, "/posts", tt.userID, "MEMBER", h.CreatePost)

			w := perform(r, http.MethodPost, "/posts", tt.body)

			if w.Code != tt.wantStatus {
				t.Fatalf("got status %d, want %d, body=%s", w.Code, tt.wantStatus, w.Body.String())
			}
			if tt.wantStatus == http.StatusCreated && stored.AuthorID != tt.userID {
				t.Fatalf("author not taken from the caller: %q", stored.AuthorID)
			}
		})
	}
}

func TestListPostsHandler_InvalidLimit(t *testing.T) {
	h := handlers.NewPostsHandler(&fakePostsRepo{}, nil)
	r := setupAuthedRouter(http.MethodGet, "/posts", "u1", "MEMBER", h.ListPosts)

	w := perform(r, http.MethodGet, "/posts?limit=abc", "")

	if w.Code != http.StatusBadRequest {
		t.Fatalf("got status %d, want 400", w.Code)
	}
	if resp := decodeError(t, w); resp.Code != "invalid_request" {
		t.Fatalf("unexpected code %q", resp.Code)
	}
}

func TestListPostsHandler_ReturnsArray(t *testing.T) {
	repo := &fakePostsRepo{listFn: func(_ context.Context, limit int) ([]post.Post, error) {
		if limit != 5 {
			t.Fatalf("limit not forwarded: %d", limit)
		}
		return []post.Post{{ID: "p1", Content: "hi", Comments: []post.Comment{}}}, nil
	}}
	h := handlers.NewPostsHandler(repo, nil)
	r := setupAuthedRouter(http.MethodGet, "/posts", "u1", "MEMBER", h.ListPosts)

	w := perform(r, http.MethodGet, "/posts?limit=5", "")

	if w.Code != http.StatusOK {
		t.Fatalf("got status %d", w.Code)
	}

	var got []post.Post
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(got) != 1 || got[0].ID != "p1" {
		t.Fatalf("unexpected posts: %+v", got)
	}
}

func TestDeletePostHandler(t *testing.T) {
	tests := []struct {
		name       string
		role       string
		repoErr    error
		wantStatus int
		wantAudit  int
	}{
		{name: "author", role: "MEMBER", wantStatus: http.StatusNoContent},
		{name: "admin is audited", role: "ADMIN", wantStatus: http.StatusNoContent, wantAudit: 1},
		{name: "not the author", role: "MEMBER", repoErr: post.ErrForbidden, wantStatus: http.StatusForbidden},
		{name: "missing", role: "MEMBER", repoErr: post.ErrNotFound, wantStatus: http.StatusNotFound},
		{name: "db error", role: "MEMBER", repoErr: errors.New("boom"), wantStatus: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotAdmin bool
			repo := &fakePostsRepo{deleteFn: func(_ context.Context, _, _ string, asAdmin bool) error {
				gotAdmin = asAdmin
				return tt.repoErr
			}}
			trail := &fakeAudit{}
			h := handlers.NewPostsHandler(repo, trail)
			r := setupAuthedRouter(http.MethodDelete, "/posts/:id", "u1", tt.role, h.DeletePost)

			w := perform(r, http.MethodDelete, "/posts/p1", "")

			if w.Code != tt.wantStatus {
				t.Fatalf("got status %d, want %d", w.Code, tt.wantStatus)
			}
			if gotAdmin != (tt.role == "ADMIN") {
				t.Fatalf("asAdmin = %v for role %s", gotAdmin, tt.role)
			}
			if len(trail.entries) != tt.wantAudit {
				t.Fatalf("audit entries = %d, want %d", len(trail.entries), tt.wantAudit)
			}
		})
	}
}

func TestCreateCommentHandler_MissingPost(t *testing.T) {
	repo := &fakePostsRepo{createCommentFn: func(context.Context, post.Comment) (post.Comment, error) {
		return post.Comment{}, post.ErrNotFound
	}}
	h := handlers.NewPostsHandler(repo, nil)
	r := setupAuthedRouter(http.MethodPost, "/posts/:id/comments", "u1", "MEMBER", h.CreateComment)

	w := perform(r, http.MethodPost, "/posts/nope/comments", `{"content":"nice"}`)

	if w.Code != http.StatusNotFound {
		t.Fatalf("got status %d, want 404", w.Code)
	}
}

func TestLikePostHandler(t *testing.T) {
	h := handlers.NewPostsHandler(&fakePostsRepo{likeFn: func(context.Context, string) (int, error) { return 7, nil }}, nil)
	r := setupAuthedRouter(http.MethodPost, "/posts/:id/like", "u1", "MEMBER", h.LikePost)

	w := perform(r, http.MethodPost, "/posts/p1/like", "")

	if w.Code != http.StatusOK {
		t.Fatalf("got status %d", w.Code)
	}

	var got gin.H
	_ = json.Unmarshal(w.Body.Bytes(), &got)
	if got["likes"] != float64(7) {
		t.Fatalf("unexpected body %v", got)
	}
}

func TestDeleteCommentHandler_Forbidden(t *testing.T) {
	repo := &fakePostsRepo{deleteCommentFn: func(context.Context, string, string, string, bool) error {
		return post.ErrForbidden
	}}
	h := handlers.NewPostsHandler(repo, nil)
	r := setupAuthedRouter(http.MethodDelete, "/posts/:id/comments/:commentId", "u2", "MEMBER", h.DeleteComment)

	w := perform(r, http.MethodDelete, "/posts/p1/comments/c1", "")

	if w.Code != http.StatusForbidden {
		t.Fatalf("got status %d, want 403", w.Code)
	}
}
