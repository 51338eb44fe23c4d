package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/geocoder89/cohorthub/internal/actorctx"
	"github.com/geocoder89/cohorthub/internal/domain/job"
	"github.com/geocoder89/cohorthub/internal/domain/moderation"
	"github.com/geocoder89/cohorthub/internal/jobs"
	"github.com/gin-gonic/gin"
)

type ModerationStore interface {
	CreateReport(ctx context.Context, rep moderation.Report, notify job.CreateRequest) (moderation.Report, error)
	ListReports(ctx context.Context, status *moderation.Status, limit int) ([]moderation.Report, error)
	ResolveReport(ctx context.Context, actorID, id string, req moderation.ResolveRequest) (moderation.Report, error)
}

type ModerationHandler struct {
	repo ModerationStore
}

func NewModerationHandler(repo ModerationStore) *ModerationHandler {
	return &ModerationHandler{repo: repo}
}

// CreateReport stores the flag and queues the admin notification with it.
func (h *ModerationHandler) CreateReport(ctx *gin.Context) {
	userID, ok := callerID(ctx)
	if !ok {
		return
	}

	var req moderation.CreateReportRequest
	if !BindJSON(ctx, &req) {
		return
	}

	rep := moderation.NewReport(userID, req)

	notify, err := jobs.NewCreateRequest(jobs.JobContentReported, jobs.ContentReportedPayload{
		ReportID:  rep.ID,
		RequestID: actorctx.RequestIDFrom(ctx.Request.Context()),
	}, string(jobs.JobContentReported)+":"+rep.ID)
	if err != nil {
		RespondInternal(ctx, "Could not report content", err)
		return
	}

	c, cancel := withTimeout(ctx, writeTimeout)
	defer cancel()

	created, err := h.repo.CreateReport(c, rep, notify)
	if err != nil {
		RespondInternal(ctx, "Could not report content", err)
		return
	}

	ctx.JSON(http.StatusCreated, created)
}

func (h *ModerationHandler) ListReports(ctx *gin.Context) {
	var status *moderation.Status
	if raw := ctx.Query("status"); raw != "" {
		s := moderation.Status(raw)
		switch s {
		case moderation.StatusPending, moderation.StatusReviewing, moderation.StatusResolved, moderation.StatusDismissed:
			status = &s
		default:
			RespondBadRequest(ctx, "Invalid status", gin.H{"status": raw})
			return
		}
	}

	limit, ok := queryLimit(ctx)
	if !ok {
		return
	}

	c, cancel := withTimeout(ctx, readTimeout)
	defer cancel()

	reports, err := h.repo.ListReports(c, status, limit)
	if err != nil {
		RespondInternal(ctx, "Could not load reports", err)
		return
	}

	ctx.JSON(http.StatusOK, reports)
}

func (h *ModerationHandler) ResolveReport(ctx *gin.Context) {
	actorID, ok := callerID(ctx)
	if !ok {
		return
	}

	var req moderation.ResolveRequest
	if !BindJSON(ctx, &req) {
		return
	}

	c, cancel := withTimeout(ctx, writeTimeout)
	defer cancel()

	rep, err := h.repo.ResolveReport(c, actorID, ctx.Param("id"), req)
	if err != nil {
		if errors.Is(err, moderation.ErrNotFound) {
			RespondNotFound(ctx, "Report not found")
			return
		}
		RespondInternal(ctx, "Could not update report", err)
		return
	}

	ctx.JSON(http.StatusOK, rep)
}

// queryLimit reads ?limit=; zero means the repository default.
func queryLimit(ctx *gin.Context) (int, bool) {
	raw := ctx.Query("limit")
	if raw == "" {
		return 0, true
	}

	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		RespondBadRequest(ctx, "Invalid limit", gin.H{"limit": raw})
		return 0, false
	}
	return n, true
}
