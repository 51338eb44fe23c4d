package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/geocoder89/cohorthub/internal/domain/audit"
	"github.com/geocoder89/cohorthub/internal/domain/resource"
	"github.com/geocoder89/cohorthub/internal/http/middlewares"
	"github.com/gin-gonic/gin"
)

type ResourcesStore interface {
	List(ctx context.Context, f resource.ListFilter) ([]resource.Resource, error)
	GetByID(ctx context.Context, id string) (resource.Resource, error)
	Create(ctx context.Context, r resource.Resource) (resource.Resource, error)
	Update(ctx context.Context, r resource.Resource) (resource.Resource, error)
	Delete(ctx context.Context, id string) error
	IncrementDownloads(ctx context.Context, id string) (resource.Resource, error)
}

type ResourcesHandler struct {
	repo  ResourcesStore
	audit AuditAppender
}

func NewResourcesHandler(repo ResourcesStore, audit AuditAppender) *ResourcesHandler {
	return &ResourcesHandler{repo: repo, audit: audit}
}

func (h *ResourcesHandler) ListResources(ctx *gin.Context) {
	f := resource.ListFilter{
		Levels: resource.VisibleLevels(middlewares.RoleFromContext(ctx)),
	}

	if v := ctx.Query("category"); v != "" {
		f.Category = &v
	}
	if v := ctx.Query("type"); v != "" {
		f.Type = &v
	}
	if v := ctx.Query("featured"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			RespondBadRequest(ctx, "Invalid featured flag", gin.H{"featured": v})
			return
		}
		f.Featured = &b
	}
	if v := ctx.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			RespondBadRequest(ctx, "Invalid limit", gin.H{"limit": v})
			return
		}
		f.Limit = n
	}

	c, cancel := withTimeout(ctx, readTimeout)
	defer cancel()

	items, err := h.repo.List(c, f)
	if err != nil {
		RespondInternal(ctx, "Could not list resources", err)
		return
	}

	ctx.JSON(http.StatusOK, items)
}

func (h *ResourcesHandler) CreateResource(ctx *gin.Context) {
	userID, ok := callerID(ctx)
	if !ok {
		return
	}

	var req resource.CreateRequest
	if !BindJSON(ctx, &req) {
		return
	}

	if req.AccessLevel == resource.AccessAdminOnly && !middlewares.IsAdmin(ctx) {
		RespondForbidden(ctx, "Only admins can publish admin-only resources")
		return
	}

	c, cancel := withTimeout(ctx, writeTimeout)
	defer cancel()

	created, err := h.repo.Create(c, resource.NewFromCreateRequest(userID, req))
	if err != nil {
		RespondInternal(ctx, "Could not create resource", err)
		return
	}

	ctx.JSON(http.StatusCreated, created)
}

// visible loads a resource and hides it with 404 when the caller's role may
// not read its level.
func (h *ResourcesHandler) visible(c context.Context, ctx *gin.Context) (resource.Resource, bool) {
	res, err := h.repo.GetByID(c, ctx.Param("id"))
	if err != nil {
		if errors.Is(err, resource.ErrNotFound) {
			RespondNotFound(ctx, "Resource not found")
			return resource.Resource{}, false
		}
		RespondInternal(ctx, "Could not load resource", err)
		return resource.Resource{}, false
	}

	if !res.AccessLevel.VisibleTo(middlewares.RoleFromContext(ctx)) {
		RespondNotFound(ctx, "Resource not found")
		return resource.Resource{}, false
	}
	return res, true
}

func (h *ResourcesHandler) GetResource(ctx *gin.Context) {
	c, cancel := withTimeout(ctx, readTimeout)
	defer cancel()

	res, ok := h.visible(c, ctx)
	if !ok {
		return
	}

	ctx.JSON(http.StatusOK, res)
}

// owned loads a resource the caller may modify: its uploader or an admin.
func (h *ResourcesHandler) owned(c context.Context, ctx *gin.Context, userID string) (resource.Resource, bool) {
	res, ok := h.visible(c, ctx)
	if !ok {
		return resource.Resource{}, false
	}

	if res.UploadedByID != userID && !middlewares.IsAdmin(ctx) {
		RespondForbidden(ctx, "Only the uploader or an admin can modify this resource")
		return resource.Resource{}, false
	}
	return res, true
}

func (h *ResourcesHandler) UpdateResource(ctx *gin.Context) {
	userID, ok := callerID(ctx)
	if !ok {
		return
	}

	var req resource.UpdateRequest
	if !BindJSON(ctx, &req) {
		return
	}

	if req.AccessLevel != nil && *req.AccessLevel == resource.AccessAdminOnly && !middlewares.IsAdmin(ctx) {
		RespondForbidden(ctx, "Only admins can publish admin-only resources")
		return
	}

	c, cancel := withTimeout(ctx, writeTimeout)
	defer cancel()

	res, ok := h.owned(c, ctx, userID)
	if !ok {
		return
	}

	res.Apply(req)

	updated, err := h.repo.Update(c, res)
	if err != nil {
		if errors.Is(err, resource.ErrNotFound) {
			RespondNotFound(ctx, "Resource not found")
			return
		}
		RespondInternal(ctx, "Could not update resource", err)
		return
	}

	ctx.JSON(http.StatusOK, updated)
}

func (h *ResourcesHandler) DeleteResource(ctx *gin.Context) {
	userID, ok := callerID(ctx)
	if !ok {
		return
	}

	c, cancel := withTimeout(ctx, writeTimeout)
	defer cancel()

	res, ok := h.owned(c, ctx, userID)
	if !ok {
		return
	}

	if err := h.repo.Delete(c, res.ID); err != nil {
		if errors.Is(err, resource.ErrNotFound) {
			RespondNotFound(ctx, "Resource not found")
			return
		}
		RespondInternal(ctx, "Could not delete resource", err)
		return
	}

	if res.UploadedByID != userID && h.audit != nil {
		entry := audit.NewEntry(userID, audit.ActionResourceDeleted, "resource", res.ID, gin.H{"title": res.Title})
		if err := h.audit.Append(c, entry); err != nil {
			_ = ctx.Error(err)
		}
	}

	ctx.Status(http.StatusNoContent)
}

func (h *ResourcesHandler) DownloadResource(ctx *gin.Context) {
	c, cancel := withTimeout(ctx, writeTimeout)
	defer cancel()

	if _, ok := h.visible(c, ctx); !ok {
		return
	}

	res, err := h.repo.IncrementDownloads(c, ctx.Param("id"))
	if err != nil {
		if errors.Is(err, resource.ErrNotFound) {
			RespondNotFound(ctx, "Resource not found")
			return
		}
		RespondInternal(ctx, "Could not record download", err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"downloads": res.Downloads,
		"url":       res.DownloadURL(),
	})
}
