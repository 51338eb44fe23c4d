package integration_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/geocoder89/cohorthub/internal/auth"
	"github.com/geocoder89/cohorthub/internal/domain/moderation"
	"github.com/geocoder89/cohorthub/internal/domain/post"
	apphttp "github.com/geocoder89/cohorthub/internal/http"
	"github.com/geocoder89/cohorthub/internal/http/middlewares"
	"github.com/geocoder89/cohorthub/internal/jobs"
	"github.com/geocoder89/cohorthub/internal/repo/postgres"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	memberID = "11111111-1111-4111-8111-111111111111"
	adminID  = "22222222-2222-4222-8222-222222222222"
)

// tokenVerifier accepts the user id itself as the access token.
type tokenVerifier struct{}

func (tokenVerifier) VerifyAccessToken(ctx context.Context, token string) (*auth.Claims, error) {
	if token != memberID && token != adminID {
		return nil, errors.New("unknown token")
	}
	return &auth.Claims{RegisteredClaims: jwt.RegisteredClaims{Subject: token}}, nil
}

func setupTestRouter(t *testing.T, opts ...func(*apphttp.RouterDeps)) (*gin.Engine, *pgxpool.Pool) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dsn := os.Getenv("TEST_DB_DSN")
	if dsn == "" {
		t.Skip("TEST_DB_DSN not set")
	}

	ctx := context.Background()

	pool, err := pgxpool.New(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	schema, err := os.ReadFile(filepath.Join("..", "..", "..", "migrations", "0001_schema.sql"))
	require.NoError(t, err)
	_, err = pool.Exec(ctx, string(schema))
	require.NoError(t, err)

	resetDB(t, pool)
	seedUsers(t, pool)

	logger := slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelDebug}))

	deps := apphttp.RouterDeps{
		Env:      "test",
		Log:      logger,
		Pool:     pool,
		Verifier: tokenVerifier{},
	}
	for _, opt := range opts {
		opt(&deps)
	}

	router := apphttp.NewRouter(deps)

	return router, pool
}

func resetDB(t *testing.T, pool *pgxpool.Pool) {
	t.Helper()

	_, err := pool.Exec(context.Background(), `TRUNCATE users, jobs RESTART IDENTITY CASCADE`)
	require.NoError(t, err, "failed to truncate tables")
}

func seedUsers(t *testing.T, pool *pgxpool.Pool) {
	t.Helper()

	_, err := pool.Exec(context.Background(), `
		INSERT INTO users (id, email, name, initials, role, status)
		VALUES ($1, 'member@cohort.org', 'Maya Member', 'MM', 'MEMBER', 'ACTIVE'),
		       ($2, 'admin@cohort.org', 'Ada Admin', 'AA', 'ADMIN', 'ACTIVE')
	`, memberID, adminID)
	require.NoError(t, err, "failed to seed users")
}

func doJSON(r http.Handler, method, target, token, body string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = bytes.NewBufferString(body)
	}

	req := httptest.NewRequest(method, target, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestPostsIntegration_CreateThenList(t *testing.T) {
	router, _ := setupTestRouter(t)

	w := doJSON(router, http.MethodPost, "/api/posts", memberID, `{"content":"Hello cohort","tags":["intro"]}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var created post.Post
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))

	w = doJSON(router, http.MethodGet, "/api/posts", memberID, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var posts []post.Post
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &posts))
	require.Len(t, posts, 1)
	assert.Equal(t, created.ID, posts[0].ID)
	require.NotNil(t, posts[0].Author)
	assert.Equal(t, "Maya Member", posts[0].Author.Name)

	// anonymous callers are turned away
	assert.Equal(t, http.StatusUnauthorized, doJSON(router, http.MethodGet, "/api/posts", "", "").Code)
}

func TestReportIntegration_NotifiesAdminsOnce(t *testing.T) {
	router, pool := setupTestRouter(t)
	ctx := context.Background()

	w := doJSON(router, http.MethodPost, "/api/reports", memberID, `{"contentId":"post-1","contentType":"post","reason":"spam link"}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var rep moderation.Report
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &rep))

	jobsRepo := postgres.NewJobsRepo(pool, nil)
	claimed, err := jobsRepo.ClaimNext(ctx, "integration")
	require.NoError(t, err)
	assert.Equal(t, string(jobs.JobContentReported), claimed.Type)
	require.NotNil(t, claimed.IdempotencyKey)
	assert.Equal(t, "content.reported:"+rep.ID, *claimed.IdempotencyKey)

	p := jobs.NewProcessor(
		postgres.NewAnnouncementsRepo(pool, nil),
		postgres.NewModerationRepo(pool, nil),
		postgres.NewUsersRepo(pool, nil),
		postgres.NewDeliveriesRepo(pool, nil),
		nil,
		nil,
	)

	n, err := p.Execute(ctx, claimed)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	// a rerun after a crash stores nothing new
	n, err = p.Execute(ctx, claimed)
	require.NoError(t, err)
	assert.Zero(t, n)

	w = doJSON(router, http.MethodGet, "/api/notifications", adminID, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var body struct {
		Items       []json.RawMessage `json:"items"`
		UnreadCount int               `json:"unreadCount"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Len(t, body.Items, 1)
	assert.Equal(t, 1, body.UnreadCount)
}

func TestAdminIntegration_RequiresAdminRole(t *testing.T) {
	router, _ := setupTestRouter(t)

	assert.Equal(t, http.StatusForbidden, doJSON(router, http.MethodGet, "/api/admin/jobs", memberID, "").Code)

	w := doJSON(router, http.MethodGet, "/api/admin/jobs?status=pending", adminID, "")
	assert.Equal(t, http.StatusOK, w.Code, w.Body.String())
}

func TestUserStatusIntegration_QueuesNotification(t *testing.T) {
	router, pool := setupTestRouter(t)

	w := doJSON(router, http.MethodPatch, "/api/admin/users", adminID, `{"userId":"`+memberID+`","status":"SUSPENDED"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	var queued int
	require.NoError(t, pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM jobs WHERE type = $1`, string(jobs.JobMemberStatusChanged)).Scan(&queued))
	assert.Equal(t, 1, queued)

	var status string
	require.NoError(t, pool.QueryRow(ctx, `SELECT status FROM users WHERE id = $1`, memberID).Scan(&status))
	assert.Equal(t, "SUSPENDED", status)
}

func TestPostsRepoIntegration_DeleteOwnership(t *testing.T) {
	_, pool := setupTestRouter(t)
	ctx := context.Background()
	repo := postgres.NewPostsRepo(pool, nil)

	p, err := repo.Create(ctx, post.NewFromCreateRequest(memberID, post.CreatePostRequest{Content: "mine"}))
	require.NoError(t, err)

	now := time.Now().UTC()
	c, err := repo.CreateComment(ctx, post.Comment{
		ID: "c-1", PostID: p.ID, AuthorID: memberID, Content: "first", CreatedAt: now, UpdatedAt: now,
	})
	require.NoError(t, err)

	// someone else's rows survive a non-admin delete
	assert.ErrorIs(t, repo.DeleteComment(ctx, p.ID, c.ID, adminID, false), post.ErrForbidden)
	assert.ErrorIs(t, repo.Delete(ctx, p.ID, adminID, false), post.ErrForbidden)

	assert.ErrorIs(t, repo.DeleteComment(ctx, p.ID, "c-missing", memberID, false), post.ErrCommentNotFound)
	assert.ErrorIs(t, repo.DeleteComment(ctx, "p-other", c.ID, memberID, false), post.ErrCommentNotFound)

	require.NoError(t, repo.DeleteComment(ctx, p.ID, c.ID, memberID, false))
	// a second delete of the same comment reports it gone
	assert.ErrorIs(t, repo.DeleteComment(ctx, p.ID, c.ID, memberID, false), post.ErrCommentNotFound)

	require.NoError(t, repo.Delete(ctx, p.ID, adminID, true))
	assert.ErrorIs(t, repo.Delete(ctx, p.ID, memberID, false), post.ErrNotFound)
}

func TestAdminIntegration_DemotionTakesEffectImmediately(t *testing.T) {
	router, pool := setupTestRouter(t)

	require.Equal(t, http.StatusOK, doJSON(router, http.MethodGet, "/api/admin/jobs", adminID, "").Code)

	_, err := pool.Exec(context.Background(), `UPDATE users SET role = 'MEMBER' WHERE id = $1`, adminID)
	require.NoError(t, err)

	// the session cache still holds ADMIN; the admin gate reads the row
	w := doJSON(router, http.MethodGet, "/api/admin/jobs", adminID, "")
	assert.Equal(t, http.StatusForbidden, w.Code, w.Body.String())
}

func TestWriteLimiterIntegration_GuardsMutations(t *testing.T) {
	router, _ := setupTestRouter(t, func(d *apphttp.RouterDeps) {
		d.WriteLimiter = middlewares.NewRateLimiter(0.001, 1, nil)
	})

	// the one token of the member's write budget
	w := doJSON(router, http.MethodPost, "/api/posts", memberID, `{"content":"first"}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	mutations := []struct {
		method, target string
	}{
		{http.MethodPost, "/api/subgroups"},
		{http.MethodDelete, "/api/posts/p-1"},
		{http.MethodDelete, "/api/posts/p-1/comments/c-1"},
		{http.MethodPatch, "/api/resources/r-1"},
		{http.MethodDelete, "/api/resources/r-1"},
		{http.MethodPatch, "/api/users"},
	}

	for _, m := range mutations {
		w := doJSON(router, m.method, m.target, memberID, `{}`)
		assert.Equal(t, http.StatusTooManyRequests, w.Code, "%s %s", m.method, m.target)
	}

	// reads stay outside the write budget
	assert.Equal(t, http.StatusOK, doJSON(router, http.MethodGet, "/api/subgroups", memberID, "").Code)
}
