package middlewares

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/geocoder89/cohorthub/internal/actorctx"
	"github.com/geocoder89/cohorthub/internal/auth"
	"github.com/geocoder89/cohorthub/internal/domain/user"
	"github.com/gin-gonic/gin"
)

// AccessTokenCookie is the cookie the web client keeps the session token in.
const AccessTokenCookie = "sb-access-token"

// Keep this small interface so tests can fake it easily.
type TokenVerifier interface {
	VerifyAccessToken(ctx context.Context, token string) (*auth.Claims, error)
}

// RoleLookup resolves the application role stored on the user row. The
// token's own role claim is always "authenticated".
type RoleLookup interface {
	GetRole(ctx context.Context, userID string) (user.Role, error)
}

type AuthMiddleware struct {
	jwt   TokenVerifier
	roles RoleLookup
}

func NewAuthMiddleware(jwt TokenVerifier, roles RoleLookup) *AuthMiddleware {
	return &AuthMiddleware{jwt: jwt, roles: roles}
}

// tokenFromRequest checks the Authorization header, then the session cookie,
// then (websocket upgrades only) the access_token query parameter.
func tokenFromRequest(c *gin.Context, allowQuery bool) string {
	if h := c.GetHeader("Authorization"); strings.HasPrefix(h, "Bearer ") {
		if raw := strings.TrimSpace(strings.TrimPrefix(h, "Bearer ")); raw != "" {
			return raw
		}
	}

	if v, err := c.Cookie(AccessTokenCookie); err == nil && v != "" {
		return v
	}

	if allowQuery {
		return strings.TrimSpace(c.Query("access_token"))
	}
	return ""
}

type authOutcome int

const (
	authMissing authOutcome = iota
	authInvalid
	authOK
	authLookupFailed
)

func (m *AuthMiddleware) authenticate(c *gin.Context, allowQuery bool) authOutcome {
	raw := tokenFromRequest(c, allowQuery)
	if raw == "" {
		return authMissing
	}

	claims, err := m.jwt.VerifyAccessToken(c.Request.Context(), raw)
	if err != nil {
		return authInvalid
	}

	userID := claims.UserID()

	// Stash useful bits of identity on the context
	c.Set(CtxUserID, userID)
	c.Set(CtxEmail, claims.Email)
	c.Request = c.Request.WithContext(actorctx.WithUserID(c.Request.Context(), userID))

	if m.roles == nil {
		return authOK
	}

	role, err := m.roles.GetRole(c.Request.Context(), userID)
	switch {
	case err == nil:
		c.Set(CtxRole, string(role))
	case errors.Is(err, user.ErrNotFound):
		// signed up with the identity provider but no user row yet
	default:
		slog.Default().ErrorContext(c.Request.Context(), "role_lookup_failed", "user_id", userID, "err", err)
		return authLookupFailed
	}

	return authOK
}

func (m *AuthMiddleware) require(allowQuery bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		switch m.authenticate(c, allowQuery) {
		case authMissing:
			abort(c, http.StatusUnauthorized, "unauthorized", "Missing or invalid access token")
			return
		case authInvalid:
			abort(c, http.StatusUnauthorized, "unauthorized", "Invalid or expired access token")
			return
		case authLookupFailed:
			abort(c, http.StatusServiceUnavailable, "service_unavailable", "Could not resolve identity")
			return
		}

		c.Next()
	}
}

func (m *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return m.require(false)
}

// RequireAuthWS also accepts ?access_token= since browsers cannot set headers
// on a websocket upgrade.
func (m *AuthMiddleware) RequireAuthWS() gin.HandlerFunc {
	return m.require(true)
}

// OptionalAuth identifies the caller when a valid token is present and lets
// anonymous requests through otherwise.
func (m *AuthMiddleware) OptionalAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		_ = m.authenticate(c, false)
		c.Next()
	}
}

// Optional helpers so handlers don't need to know the magic keys.

func UserIDFromContext(c *gin.Context) (string, bool) {
	v, ok := c.Get(CtxUserID)
	if !ok {
		return "", false
	}
	id, ok := v.(string)
	return id, ok && id != ""
}

func EmailFromContext(c *gin.Context) string {
	v, _ := c.Get(CtxEmail)
	s, _ := v.(string)
	return s
}

// RoleFromContext is empty for anonymous callers and accounts without a row.
func RoleFromContext(c *gin.Context) user.Role {
	v, _ := c.Get(CtxRole)
	s, _ := v.(string)
	return user.Role(s)
}

func IsAdmin(c *gin.Context) bool {
	return RoleFromContext(c) == user.RoleAdmin
}
