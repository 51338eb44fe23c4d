package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// Pinger is satisfied by the postgres HealthRepo.
type Pinger interface {
	Ping(ctx context.Context) error
}

type HealthHandler struct {
	db  Pinger
	now func() time.Time
}

func NewHealthHandler(db Pinger) *HealthHandler {
	return &HealthHandler{db: db, now: time.Now}
}

func (h *HealthHandler) Healthz(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *HealthHandler) Readyz(ctx *gin.Context) {
	if err := h.ping(ctx); err != nil {
		ctx.JSON(http.StatusServiceUnavailable, gin.H{"status": "not_ready"})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"status": "ready"})
}

// API answers GET /api/health with the database connection state.
func (h *HealthHandler) API(ctx *gin.Context) {
	if err := h.ping(ctx); err != nil {
		ctx.JSON(http.StatusServiceUnavailable, gin.H{
			"success":  false,
			"message":  "Database connection failed",
			"error":    "database unreachable",
			"database": "disconnected",
		})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"success":   true,
		"message":   "API is healthy",
		"timestamp": h.now().UTC().Format(time.RFC3339),
		"database":  "connected",
		"provider":  "supabase",
	})
}

func (h *HealthHandler) ping(ctx *gin.Context) error {
	if h.db == nil {
		return nil
	}

	c, cancel := withTimeout(ctx, readTimeout)
	defer cancel()

	return h.db.Ping(c)
}
