package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/geocoder89/cohorthub/internal/domain/job"
	"github.com/geocoder89/cohorthub/internal/utils"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type AdminJobsRepo interface {
	List(ctx context.Context, status *job.Status, before *utils.Cursor, limit int) (items []job.Job, nextCursor *string, err error)
	GetByID(ctx context.Context, id string) (job.Job, error)
	Retry(ctx context.Context, id string) error
	RetryManyFailed(ctx context.Context, limit int) (int64, error)
}

// AdminJobsHandler exposes the notification job queue to admins.
type AdminJobsHandler struct {
	repo AdminJobsRepo
}

func NewAdminJobsHandler(repo AdminJobsRepo) *AdminJobsHandler {
	return &AdminJobsHandler{repo: repo}
}

// GET /api/admin/jobs?status=failed&limit=20&cursor=...
func (h *AdminJobsHandler) List(ctx *gin.Context) {
	var status *job.Status
	if raw := ctx.Query("status"); raw != "" {
		s := job.Status(raw)
		if !s.IsValid() {
			RespondBadRequest(ctx, "Invalid status", gin.H{"status": raw})
			return
		}
		status = &s
	}

	limit, ok := queryLimit(ctx)
	if !ok {
		return
	}

	var before *utils.Cursor
	if raw := ctx.Query("cursor"); raw != "" {
		cur, err := utils.DecodeCursor(raw)
		if err != nil {
			RespondBadRequest(ctx, "Invalid cursor", nil)
			return
		}
		before = &cur
	}

	c, cancel := withTimeout(ctx, readTimeout)
	defer cancel()

	items, next, err := h.repo.List(c, status, before, limit)
	if err != nil {
		RespondInternal(ctx, "Could not list jobs", err)
		return
	}

	RespondJSONWithETag(ctx, http.StatusOK, gin.H{
		"items":      items,
		"count":      len(items),
		"hasMore":    next != nil,
		"nextCursor": next,
	})
}

func (h *AdminJobsHandler) GetByID(ctx *gin.Context) {
	id, ok := jobIDParam(ctx)
	if !ok {
		return
	}

	c, cancel := withTimeout(ctx, readTimeout)
	defer cancel()

	j, err := h.repo.GetByID(c, id)
	if err != nil {
		if errors.Is(err, job.ErrJobNotFound) {
			RespondNotFound(ctx, "Job not found")
			return
		}
		RespondInternal(ctx, "Could not fetch job", err)
		return
	}

	RespondJSONWithETag(ctx, http.StatusOK, j)
}

// POST /api/admin/jobs/:id/retry
func (h *AdminJobsHandler) Retry(ctx *gin.Context) {
	id, ok := jobIDParam(ctx)
	if !ok {
		return
	}

	c, cancel := withTimeout(ctx, writeTimeout)
	defer cancel()

	if err := h.repo.Retry(c, id); err != nil {
		switch {
		case errors.Is(err, job.ErrJobNotFound):
			RespondNotFound(ctx, "Job not found")
		case errors.Is(err, job.ErrJobNotFailed):
			RespondConflict(ctx, "job_not_failed", "Only failed jobs can be retried")
		default:
			RespondInternal(ctx, "Could not retry job", err)
		}
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"jobId": id, "status": job.StatusPending})
}

// POST /api/admin/jobs/reprocess-failed?limit=50
func (h *AdminJobsHandler) ReprocessFailed(ctx *gin.Context) {
	limit := 0
	if raw := ctx.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			RespondBadRequest(ctx, "limit must be a positive number", gin.H{"limit": raw})
			return
		}
		limit = n
	}

	c, cancel := withTimeout(ctx, writeTimeout)
	defer cancel()

	n, err := h.repo.RetryManyFailed(c, limit)
	if err != nil {
		RespondInternal(ctx, "Could not reprocess failed jobs", err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"requeued": n})
}

func jobIDParam(ctx *gin.Context) (string, bool) {
	id := ctx.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		RespondBadRequest(ctx, "Invalid job id", gin.H{"id": id})
		return "", false
	}
	return id, true
}
