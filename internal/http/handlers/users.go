package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/geocoder89/cohorthub/internal/domain/user"
	"github.com/geocoder89/cohorthub/internal/utils"
	"github.com/gin-gonic/gin"
)

type UsersStore interface {
	GetByID(ctx context.Context, id string) (user.User, error)
	List(ctx context.Context) ([]user.User, error)
	UpdateSelf(ctx context.Context, id string, req user.UpdateSelfRequest) (user.User, error)
}

// IdentityCache reads the signed-in identity through the session cache.
type IdentityCache interface {
	Identity(ctx context.Context, userID string) (user.Identity, error)
	Invalidate(ctx context.Context, userID string)
}

type UsersHandler struct {
	repo     UsersStore
	sessions IdentityCache
	// directory member view models are built from user rows
	members CacheInvalidator
}

func NewUsersHandler(repo UsersStore, sessions IdentityCache, members CacheInvalidator) *UsersHandler {
	return &UsersHandler{repo: repo, sessions: sessions, members: members}
}

// GetUsers returns one user with profile when ?id= is set, otherwise all users.
func (h *UsersHandler) GetUsers(ctx *gin.Context) {
	c, cancel := withTimeout(ctx, readTimeout)
	defer cancel()

	if id := ctx.Query("id"); id != "" {
		u, err := h.repo.GetByID(c, id)
		if err != nil {
			if errors.Is(err, user.ErrNotFound) {
				RespondError(ctx, http.StatusNotFound, "not_found", "User not found", gin.H{"userId": id})
				return
			}
			RespondInternal(ctx, "Could not load user", err)
			return
		}
		ctx.JSON(http.StatusOK, u)
		return
	}

	users, err := h.repo.List(c)
	if err != nil {
		RespondInternal(ctx, "Could not list users", err)
		return
	}

	ctx.JSON(http.StatusOK, users)
}

// Me returns the cached identity of the caller.
func (h *UsersHandler) Me(ctx *gin.Context) {
	userID, ok := callerID(ctx)
	if !ok {
		return
	}

	c, cancel := withTimeout(ctx, readTimeout)
	defer cancel()

	id, err := h.sessions.Identity(c, userID)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			RespondUnauthorized(ctx, "Not authenticated")
			return
		}
		RespondInternal(ctx, "Could not load current user", err)
		return
	}

	ctx.JSON(http.StatusOK, id)
}

// UpdateSelf applies the caller's own changes, including the nested profile.
func (h *UsersHandler) UpdateSelf(ctx *gin.Context) {
	userID, ok := callerID(ctx)
	if !ok {
		return
	}

	var req user.UpdateSelfRequest
	if !BindJSON(ctx, &req) {
		return
	}

	c, cancel := withTimeout(ctx, writeTimeout)
	defer cancel()

	updated, err := h.repo.UpdateSelf(c, userID, req)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			RespondNotFound(ctx, "User not found")
			return
		}
		RespondInternal(ctx, "Could not update user", err)
		return
	}

	h.sessions.Invalidate(c, userID)
	if h.members != nil {
		h.members.Delete(utils.DirectoryMembersCacheKey)
	}

	ctx.JSON(http.StatusOK, updated)
}
