package handlers

import (
	"context"
	"net/http"

	"github.com/geocoder89/cohorthub/internal/domain/resource"
	"github.com/geocoder89/cohorthub/internal/domain/search"
	"github.com/geocoder89/cohorthub/internal/http/middlewares"
	"github.com/gin-gonic/gin"
)

type Searcher interface {
	SearchAll(ctx context.Context, q string, levels []resource.AccessLevel) (search.Results, error)
}

type SearchHandler struct {
	repo Searcher
}

func NewSearchHandler(repo Searcher) *SearchHandler {
	return &SearchHandler{repo: repo}
}

func (h *SearchHandler) Search(ctx *gin.Context) {
	q := search.Normalize(ctx.Query("q"))
	if q == "" {
		ctx.JSON(http.StatusOK, search.Empty())
		return
	}

	c, cancel := withTimeout(ctx, readTimeout)
	defer cancel()

	res, err := h.repo.SearchAll(c, q, resource.VisibleLevels(middlewares.RoleFromContext(ctx)))
	if err != nil {
		RespondInternal(ctx, "Could not search", err)
		return
	}

	ctx.JSON(http.StatusOK, res)
}
