package middlewares

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/geocoder89/cohorthub/internal/domain/user"
	"github.com/gin-gonic/gin"
)

const adminForbiddenMessage = "Forbidden - Admin access required"

// RequireAdmin must run after RequireAuth. It reads the role straight from
// the users table on every request, so a demotion takes effect immediately
// even while the cached identity still says ADMIN.
func RequireAdmin(lookup RoleLookup) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := UserIDFromContext(c)
		if !ok {
			abort(c, http.StatusUnauthorized, "unauthorized", "Unauthorized")
			return
		}

		role, err := lookup.GetRole(c.Request.Context(), userID)
		switch {
		case errors.Is(err, user.ErrNotFound):
			abort(c, http.StatusForbidden, "forbidden", adminForbiddenMessage)
			return
		case err != nil:
			slog.Default().ErrorContext(c.Request.Context(), "admin_role_lookup_failed", "user_id", userID, "err", err)
			abort(c, http.StatusServiceUnavailable, "service_unavailable", "Could not resolve identity")
			return
		case role != user.RoleAdmin:
			abort(c, http.StatusForbidden, "forbidden", adminForbiddenMessage)
			return
		}

		c.Set(CtxRole, string(role))
		c.Next()
	}
}
