package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/geocoder89/cohorthub/internal/domain/notification"
	"github.com/gin-gonic/gin"
)

type NotificationsStore interface {
	ListForUser(ctx context.Context, userID string, limit int) ([]notification.Notification, int, error)
	MarkRead(ctx context.Context, userID, id string) error
	MarkAllRead(ctx context.Context, userID string) (int64, error)
	Delete(ctx context.Context, userID, id string) error
}

type NotificationsHandler struct {
	repo NotificationsStore
}

func NewNotificationsHandler(repo NotificationsStore) *NotificationsHandler {
	return &NotificationsHandler{repo: repo}
}

func (h *NotificationsHandler) ListNotifications(ctx *gin.Context) {
	userID, ok := callerID(ctx)
	if !ok {
		return
	}

	limit := 0
	if raw := ctx.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			RespondBadRequest(ctx, "Invalid limit", gin.H{"limit": raw})
			return
		}
		limit = n
	}

	c, cancel := withTimeout(ctx, readTimeout)
	defer cancel()

	items, unread, err := h.repo.ListForUser(c, userID, limit)
	if err != nil {
		RespondInternal(ctx, "Could not load notifications", err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"items": items, "unreadCount": unread})
}

func (h *NotificationsHandler) MarkRead(ctx *gin.Context) {
	userID, ok := callerID(ctx)
	if !ok {
		return
	}

	c, cancel := withTimeout(ctx, writeTimeout)
	defer cancel()

	if err := h.repo.MarkRead(c, userID, ctx.Param("id")); err != nil {
		if errors.Is(err, notification.ErrNotFound) {
			RespondNotFound(ctx, "Notification not found")
			return
		}
		RespondInternal(ctx, "Could not update notification", err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"success": true})
}

func (h *NotificationsHandler) MarkAllRead(ctx *gin.Context) {
	userID, ok := callerID(ctx)
	if !ok {
		return
	}

	c, cancel := withTimeout(ctx, writeTimeout)
	defer cancel()

	n, err := h.repo.MarkAllRead(c, userID)
	if err != nil {
		RespondInternal(ctx, "Could not update notifications", err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"success": true, "updated": n})
}

func (h *NotificationsHandler) DeleteNotification(ctx *gin.Context) {
	userID, ok := callerID(ctx)
	if !ok {
		return
	}

	c, cancel := withTimeout(ctx, writeTimeout)
	defer cancel()

	if err := h.repo.Delete(c, userID, ctx.Param("id")); err != nil {
		if errors.Is(err, notification.ErrNotFound) {
			RespondNotFound(ctx, "Notification not found")
			return
		}
		RespondInternal(ctx, "Could not delete notification", err)
		return
	}

	ctx.Status(http.StatusNoContent)
}
