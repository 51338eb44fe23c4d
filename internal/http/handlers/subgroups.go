package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/geocoder89/cohorthub/internal/cache"
	"github.com/geocoder89/cohorthub/internal/domain/subgroup"
	"github.com/geocoder89/cohorthub/internal/utils"
	"github.com/gin-gonic/gin"
)

type SubgroupsStore interface {
	List(ctx context.Context) ([]subgroup.Subgroup, error)
	ListCohorts(ctx context.Context) ([]subgroup.Subgroup, error)
	Create(ctx context.Context, s subgroup.Subgroup, creatorID string) (subgroup.Subgroup, error)
	Join(ctx context.Context, subgroupID, userID string) (subgroup.Member, error)
	Leave(ctx context.Context, subgroupID, userID string) error
}

// CacheInvalidator drops one key from an in-process cache.
type CacheInvalidator interface {
	Delete(key string)
}

type SubgroupsHandler struct {
	repo    SubgroupsStore
	cohorts *cache.Cache[[]subgroup.Subgroup]
	// directory member view models embed subgroup names
	members CacheInvalidator
}

func NewSubgroupsHandler(repo SubgroupsStore, cohorts *cache.Cache[[]subgroup.Subgroup], members CacheInvalidator) *SubgroupsHandler {
	return &SubgroupsHandler{repo: repo, cohorts: cohorts, members: members}
}

func (h *SubgroupsHandler) ListSubgroups(ctx *gin.Context) {
	c, cancel := withTimeout(ctx, readTimeout)
	defer cancel()

	items, err := h.repo.List(c)
	if err != nil {
		RespondInternal(ctx, "Could not list subgroups", err)
		return
	}

	ctx.JSON(http.StatusOK, items)
}

// ListCohorts serves every subgroup with its member count from a short-lived
// in-process cache, with an ETag for conditional requests.
func (h *SubgroupsHandler) ListCohorts(ctx *gin.Context) {
	c, cancel := withTimeout(ctx, readTimeout)
	defer cancel()

	load := func(c context.Context) ([]subgroup.Subgroup, error) {
		return h.repo.ListCohorts(c)
	}

	var (
		items []subgroup.Subgroup
		err   error
	)
	if h.cohorts != nil {
		items, err = h.cohorts.GetOrLoad(c, utils.CohortsCacheKey, load)
	} else {
		items, err = load(c)
	}
	if err != nil {
		RespondInternal(ctx, "Could not list cohorts", err)
		return
	}

	RespondJSONWithETag(ctx, http.StatusOK, items)
}

// Mutate handles POST /api/subgroups: join, leave, or create.
func (h *SubgroupsHandler) Mutate(ctx *gin.Context) {
	userID, ok := callerID(ctx)
	if !ok {
		return
	}

	var req subgroup.MutationRequest
	if !BindJSON(ctx, &req) {
		return
	}

	if msg, ok := req.Validate(); !ok {
		RespondBadRequest(ctx, msg, nil)
		return
	}

	c, cancel := withTimeout(ctx, writeTimeout)
	defer cancel()

	switch req.Action {
	case subgroup.ActionJoin:
		m, err := h.repo.Join(c, req.SubgroupID, userID)
		if err != nil {
			if errors.Is(err, subgroup.ErrNotFound) {
				RespondNotFound(ctx, "Subgroup not found")
				return
			}
			RespondInternal(ctx, "Could not join subgroup", err)
			return
		}
		h.invalidate()
		ctx.JSON(http.StatusOK, m)

	case subgroup.ActionLeave:
		if err := h.repo.Leave(c, req.SubgroupID, userID); err != nil {
			if errors.Is(err, subgroup.ErrNotMember) {
				RespondNotFound(ctx, "Not a member of this subgroup")
				return
			}
			RespondInternal(ctx, "Could not leave subgroup", err)
			return
		}
		h.invalidate()
		ctx.JSON(http.StatusOK, gin.H{"success": true})

	default:
		created, err := h.repo.Create(c, subgroup.NewFromRequest(userID, req), userID)
		if err != nil {
			RespondInternal(ctx, "Could not create subgroup", err)
			return
		}
		h.invalidate()
		ctx.JSON(http.StatusCreated, created)
	}
}

func (h *SubgroupsHandler) invalidate() {
	if h.cohorts != nil {
		h.cohorts.Delete(utils.CohortsCacheKey)
	}
	if h.members != nil {
		h.members.Delete(utils.DirectoryMembersCacheKey)
	}
}
