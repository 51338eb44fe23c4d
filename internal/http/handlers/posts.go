package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/geocoder89/cohorthub/internal/domain/audit"
	"github.com/geocoder89/cohorthub/internal/domain/post"
	"github.com/geocoder89/cohorthub/internal/http/middlewares"
	"github.com/gin-gonic/gin"
)

type PostsStore interface {
	List(ctx context.Context, limit int) ([]post.Post, error)
	Create(ctx context.Context, p post.Post) (post.Post, error)
	Delete(ctx context.Context, id, actorID string, asAdmin bool) error
	Like(ctx context.Context, id string) (int, error)
	CreateComment(ctx context.Context, c post.Comment) (post.Comment, error)
	DeleteComment(ctx context.Context, postID, commentID, actorID string, asAdmin bool) error
}

// AuditAppender records admin actions taken outside a repository transaction.
type AuditAppender interface {
	Append(ctx context.Context, e audit.Entry) error
}

type PostsHandler struct {
	repo  PostsStore
	audit AuditAppender
}

func NewPostsHandler(repo PostsStore, audit AuditAppender) *PostsHandler {
	return &PostsHandler{repo: repo, audit: audit}
}

func (h *PostsHandler) ListPosts(ctx *gin.Context) {
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

	posts, err := h.repo.List(c, limit)
	if err != nil {
		RespondInternal(ctx, "Could not list posts", err)
		return
	}

	ctx.JSON(http.StatusOK, posts)
}

func (h *PostsHandler) CreatePost(ctx *gin.Context) {
	userID, ok := callerID(ctx)
	if !ok {
		return
	}

	var req post.CreatePostRequest
	if !BindJSON(ctx, &req) {
		return
	}

	c, cancel := withTimeout(ctx, writeTimeout)
	defer cancel()

	created, err := h.repo.Create(c, post.NewFromCreateRequest(userID, req))
	if err != nil {
		RespondInternal(ctx, "Could not create post", err)
		return
	}

	ctx.JSON(http.StatusCreated, created)
}

func (h *PostsHandler) DeletePost(ctx *gin.Context) {
	userID, ok := callerID(ctx)
	if !ok {
		return
	}

	id := ctx.Param("id")
	asAdmin := middlewares.IsAdmin(ctx)

	c, cancel := withTimeout(ctx, writeTimeout)
	defer cancel()

	err := h.repo.Delete(c, id, userID, asAdmin)
	switch {
	case errors.Is(err, post.ErrNotFound):
		RespondNotFound(ctx, "Post not found")
		return
	case errors.Is(err, post.ErrForbidden):
		RespondForbidden(ctx, "Only the author or an admin can delete this post")
		return
	case err != nil:
		RespondInternal(ctx, "Could not delete post", err)
		return
	}

	if asAdmin && h.audit != nil {
		if err := h.audit.Append(c, audit.NewEntry(userID, audit.ActionPostDeleted, "post", id, nil)); err != nil {
			_ = ctx.Error(err)
		}
	}

	ctx.Status(http.StatusNoContent)
}

func (h *PostsHandler) LikePost(ctx *gin.Context) {
	if _, ok := callerID(ctx); !ok {
		return
	}

	c, cancel := withTimeout(ctx, writeTimeout)
	defer cancel()

	likes, err := h.repo.Like(c, ctx.Param("id"))
	if err != nil {
		if errors.Is(err, post.ErrNotFound) {
			RespondNotFound(ctx, "Post not found")
			return
		}
		RespondInternal(ctx, "Could not like post", err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"id": ctx.Param("id"), "likes": likes})
}

func (h *PostsHandler) CreateComment(ctx *gin.Context) {
	userID, ok := callerID(ctx)
	if !ok {
		return
	}

	var req post.CreateCommentRequest
	if !BindJSON(ctx, &req) {
		return
	}

	c, cancel := withTimeout(ctx, writeTimeout)
	defer cancel()

	comment, err := h.repo.CreateComment(c, post.NewComment(ctx.Param("id"), userID, req))
	if err != nil {
		if errors.Is(err, post.ErrNotFound) {
			RespondNotFound(ctx, "Post not found")
			return
		}
		RespondInternal(ctx, "Could not create comment", err)
		return
	}

	ctx.JSON(http.StatusCreated, comment)
}

func (h *PostsHandler) DeleteComment(ctx *gin.Context) {
	userID, ok := callerID(ctx)
	if !ok {
		return
	}

	c, cancel := withTimeout(ctx, writeTimeout)
	defer cancel()

	err := h.repo.DeleteComment(c, ctx.Param("id"), ctx.Param("commentId"), userID, middlewares.IsAdmin(ctx))
	switch {
	case errors.Is(err, post.ErrCommentNotFound):
		RespondNotFound(ctx, "Comment not found")
	case errors.Is(err, post.ErrForbidden):
		RespondForbidden(ctx, "Only the author or an admin can delete this comment")
	case err != nil:
		RespondInternal(ctx, "Could not delete comment", err)
	default:
		ctx.Status(http.StatusNoContent)
	}
}
