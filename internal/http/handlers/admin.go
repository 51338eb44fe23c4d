package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/geocoder89/cohorthub/internal/actorctx"
	"github.com/geocoder89/cohorthub/internal/domain/audit"
	"github.com/geocoder89/cohorthub/internal/domain/job"
	"github.com/geocoder89/cohorthub/internal/domain/user"
	"github.com/geocoder89/cohorthub/internal/jobs"
	"github.com/geocoder89/cohorthub/internal/utils"
	"github.com/gin-gonic/gin"
)

type MemberStatusStore interface {
	GetByID(ctx context.Context, id string) (user.User, error)
	UpdateStatus(ctx context.Context, actorID, userID string, status user.Status, notify job.CreateRequest) error
}

type AuditLister interface {
	List(ctx context.Context, limit int) ([]audit.Entry, error)
}

type AdminHandler struct {
	users    MemberStatusStore
	audit    AuditLister
	sessions IdentityCache
	members  CacheInvalidator
}

func NewAdminHandler(users MemberStatusStore, audit AuditLister, sessions IdentityCache, members CacheInvalidator) *AdminHandler {
	return &AdminHandler{users: users, audit: audit, sessions: sessions, members: members}
}

// UpdateUserStatus changes a member's status. The member's cached identity
// and the directory snapshot are dropped so the change shows immediately.
func (h *AdminHandler) UpdateUserStatus(ctx *gin.Context) {
	actorID, ok := callerID(ctx)
	if !ok {
		return
	}

	var req user.UpdateStatusRequest
	if !BindJSON(ctx, &req) {
		return
	}

	notify, err := jobs.NewCreateRequest(jobs.JobMemberStatusChanged, jobs.MemberStatusChangedPayload{
		UserID:    req.UserID,
		Status:    string(req.Status),
		ActorID:   actorID,
		RequestID: actorctx.RequestIDFrom(ctx.Request.Context()),
	}, "")
	if err != nil {
		RespondInternal(ctx, "Could not update user status", err)
		return
	}

	c, cancel := withTimeout(ctx, writeTimeout)
	defer cancel()

	if err := h.users.UpdateStatus(c, actorID, req.UserID, req.Status, notify); err != nil {
		if errors.Is(err, user.ErrNotFound) {
			RespondNotFound(ctx, "User not found")
			return
		}
		RespondInternal(ctx, "Could not update user status", err)
		return
	}

	if h.sessions != nil {
		h.sessions.Invalidate(c, req.UserID)
	}
	if h.members != nil {
		h.members.Delete(utils.DirectoryMembersCacheKey)
	}

	u, err := h.users.GetByID(c, req.UserID)
	if err != nil {
		RespondInternal(ctx, "Could not load user", err)
		return
	}

	ctx.JSON(http.StatusOK, u)
}

func (h *AdminHandler) ListAudit(ctx *gin.Context) {
	limit, ok := queryLimit(ctx)
	if !ok {
		return
	}

	c, cancel := withTimeout(ctx, readTimeout)
	defer cancel()

	entries, err := h.audit.List(c, limit)
	if err != nil {
		RespondInternal(ctx, "Could not load audit trail", err)
		return
	}

	ctx.JSON(http.StatusOK, entries)
}
