package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/geocoder89/cohorthub/internal/actorctx"
	"github.com/geocoder89/cohorthub/internal/domain/announcement"
	"github.com/geocoder89/cohorthub/internal/domain/job"
	"github.com/geocoder89/cohorthub/internal/http/middlewares"
	"github.com/geocoder89/cohorthub/internal/jobs"
	"github.com/gin-gonic/gin"
)

type AnnouncementsStore interface {
	List(ctx context.Context, f announcement.ListFilter) ([]announcement.Announcement, error)
	Create(ctx context.Context, a announcement.Announcement, publish *job.CreateRequest) (announcement.Announcement, error)
	Update(
		ctx context.Context,
		id string,
		req announcement.UpdateRequest,
		publish func(a announcement.Announcement) (job.CreateRequest, error),
	) (announcement.Announcement, error)
	Delete(ctx context.Context, id string) error
	IncrementViews(ctx context.Context, id string) (int, error)
}

type AnnouncementsHandler struct {
	repo AnnouncementsStore
}

func NewAnnouncementsHandler(repo AnnouncementsStore) *AnnouncementsHandler {
	return &AnnouncementsHandler{repo: repo}
}

// publishJob builds the fan-out job. The key makes a second publish of the
// same announcement a no-op.
func publishJob(ctx context.Context, a announcement.Announcement) (job.CreateRequest, error) {
	actorID, _ := actorctx.UserIDFrom(ctx)

	return jobs.NewCreateRequest(jobs.JobAnnouncementPublished, jobs.AnnouncementPublishedPayload{
		AnnouncementID: a.ID,
		ActorID:        actorID,
		RequestID:      actorctx.RequestIDFrom(ctx),
	}, string(jobs.JobAnnouncementPublished)+":"+a.ID)
}

// ListAnnouncements shows admins every row (optionally by status); members
// only see live published ones.
func (h *AnnouncementsHandler) ListAnnouncements(ctx *gin.Context) {
	f := announcement.ListFilter{Now: time.Now().UTC()}

	if raw := ctx.Query("status"); raw != "" {
		s := announcement.Status(raw)
		switch s {
		case announcement.StatusDraft, announcement.StatusPublished, announcement.StatusArchived:
			f.Status = &s
		default:
			RespondBadRequest(ctx, "Invalid status", gin.H{"status": raw})
			return
		}
	}

	if raw := ctx.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			RespondBadRequest(ctx, "Invalid limit", gin.H{"limit": raw})
			return
		}
		f.Limit = n
	}

	if !middlewares.IsAdmin(ctx) {
		f.OnlyLive = true
		f.Status = nil
	}

	c, cancel := withTimeout(ctx, readTimeout)
	defer cancel()

	items, err := h.repo.List(c, f)
	if err != nil {
		RespondInternal(ctx, "Could not list announcements", err)
		return
	}

	ctx.JSON(http.StatusOK, items)
}

func (h *AnnouncementsHandler) CreateAnnouncement(ctx *gin.Context) {
	userID, ok := callerID(ctx)
	if !ok {
		return
	}

	var req announcement.CreateRequest
	if !BindJSON(ctx, &req) {
		return
	}

	c, cancel := withTimeout(ctx, writeTimeout)
	defer cancel()

	a := announcement.NewFromCreateRequest(userID, req)

	var publish *job.CreateRequest
	if a.Status == announcement.StatusPublished {
		jr, err := publishJob(c, a)
		if err != nil {
			RespondInternal(ctx, "Could not create announcement", err)
			return
		}
		publish = &jr
	}

	created, err := h.repo.Create(c, a, publish)
	if err != nil {
		RespondInternal(ctx, "Could not create announcement", err)
		return
	}

	ctx.JSON(http.StatusCreated, created)
}

func (h *AnnouncementsHandler) UpdateAnnouncement(ctx *gin.Context) {
	var req announcement.UpdateRequest
	if !BindJSON(ctx, &req) {
		return
	}

	c, cancel := withTimeout(ctx, writeTimeout)
	defer cancel()

	updated, err := h.repo.Update(c, ctx.Param("id"), req, func(a announcement.Announcement) (job.CreateRequest, error) {
		return publishJob(c, a)
	})
	if err != nil {
		if errors.Is(err, announcement.ErrNotFound) {
			RespondNotFound(ctx, "Announcement not found")
			return
		}
		RespondInternal(ctx, "Could not update announcement", err)
		return
	}

	ctx.JSON(http.StatusOK, updated)
}

func (h *AnnouncementsHandler) DeleteAnnouncement(ctx *gin.Context) {
	c, cancel := withTimeout(ctx, writeTimeout)
	defer cancel()

	if err := h.repo.Delete(c, ctx.Param("id")); err != nil {
		if errors.Is(err, announcement.ErrNotFound) {
			RespondNotFound(ctx, "Announcement not found")
			return
		}
		RespondInternal(ctx, "Could not delete announcement", err)
		return
	}

	ctx.Status(http.StatusNoContent)
}

func (h *AnnouncementsHandler) ViewAnnouncement(ctx *gin.Context) {
	c, cancel := withTimeout(ctx, writeTimeout)
	defer cancel()

	views, err := h.repo.IncrementViews(c, ctx.Param("id"))
	if err != nil {
		if errors.Is(err, announcement.ErrNotFound) {
			RespondNotFound(ctx, "Announcement not found")
			return
		}
		RespondInternal(ctx, "Could not record view", err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"id": ctx.Param("id"), "views": views})
}
