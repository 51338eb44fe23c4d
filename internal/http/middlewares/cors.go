package middlewares

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

const preflightMaxAge = 10 * time.Minute

var (
	corsAllowMethods  = strings.Join([]string{"GET", "POST", "PATCH", "PUT", "DELETE", "OPTIONS"}, ",")
	corsAllowHeaders  = strings.Join([]string{"Authorization", "Content-Type", "If-None-Match", requestIDHeader}, ",")
	corsExposeHeaders = strings.Join([]string{"ETag", requestIDHeader, "Retry-After"}, ",")
)

// CORSMiddleware echoes back allowed origins with credentials enabled.
// A preflight from any other origin is refused with 403.
func CORSMiddleware(allowedOrigins []string) gin.HandlerFunc {
	allowed := make(map[string]struct{}, len(allowedOrigins))
	for _, origin := range allowedOrigins {
		allowed[strings.TrimRight(strings.TrimSpace(origin), "/")] = struct{}{}
	}

	return func(ctx *gin.Context) {
		origin := ctx.GetHeader("Origin")
		_, ok := allowed[origin]

		if origin != "" {
			ctx.Writer.Header().Add("Vary", "Origin")
		}

		if ok {
			h := ctx.Writer.Header()
			h.Set("Access-Control-Allow-Origin", origin)
			h.Set("Access-Control-Allow-Credentials", "true")
			h.Set("Access-Control-Expose-Headers", corsExposeHeaders)
		}

		if ctx.Request.Method != http.MethodOptions {
			ctx.Next()
			return
		}

		if origin != "" && !ok {
			ctx.AbortWithStatus(http.StatusForbidden)
			return
		}

		if ok {
			h := ctx.Writer.Header()
			h.Set("Access-Control-Allow-Methods", corsAllowMethods)
			h.Set("Access-Control-Allow-Headers", corsAllowHeaders)
			h.Set("Access-Control-Max-Age", strconv.Itoa(int(preflightMaxAge.Seconds())))
		}
		ctx.AbortWithStatus(http.StatusNoContent)
	}
}
