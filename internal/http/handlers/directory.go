package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/geocoder89/cohorthub/internal/cache"
	"github.com/geocoder89/cohorthub/internal/directory"
	"github.com/geocoder89/cohorthub/internal/domain/user"
	"github.com/geocoder89/cohorthub/internal/geo"
	"github.com/geocoder89/cohorthub/internal/utils"
	"github.com/gin-gonic/gin"
)

const defaultNearbyRadiusKm = 50

type MemberSource interface {
	List(ctx context.Context) ([]user.User, error)
}

type MembershipSource interface {
	ListMemberSubgroups(ctx context.Context) (map[string][]directory.Membership, error)
}

type DirectoryHandler struct {
	users       MemberSource
	memberships MembershipSource
	cache       *cache.Cache[[]directory.Member]
}

func NewDirectoryHandler(users MemberSource, memberships MembershipSource, c *cache.Cache[[]directory.Member]) *DirectoryHandler {
	return &DirectoryHandler{users: users, memberships: memberships, cache: c}
}

// members builds the view models for every user. Callers must not reorder
// the returned slice in place.
func (h *DirectoryHandler) members(ctx context.Context) ([]directory.Member, error) {
	load := func(ctx context.Context) ([]directory.Member, error) {
		users, err := h.users.List(ctx)
		if err != nil {
			return nil, err
		}

		byUser, err := h.memberships.ListMemberSubgroups(ctx)
		if err != nil {
			return nil, err
		}

		out := make([]directory.Member, 0, len(users))
		for _, u := range users {
			out = append(out, directory.FromUser(u, byUser[u.ID]))
		}
		return out, nil
	}

	if h.cache == nil {
		return load(ctx)
	}
	return h.cache.GetOrLoad(ctx, utils.DirectoryMembersCacheKey, load)
}

type filterView struct {
	Cohort   string `json:"cohort"`
	Location string `json:"location"`
	Industry string `json:"industry"`
	Subgroup string `json:"subgroup"`
	Query    string `json:"q"`
	Selected string `json:"selected"`
}

type directoryResponse struct {
	directory.Page
	Sort    directory.Sort `json:"sort"`
	Filters filterView     `json:"filters"`
}

func (h *DirectoryHandler) ListMembers(ctx *gin.Context) {
	page := 1
	if raw := ctx.Query("page"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			RespondBadRequest(ctx, "Invalid page", gin.H{"page": raw})
			return
		}
		page = n
	}

	sortBy := directory.Sort(ctx.DefaultQuery("sort", string(directory.SortName)))
	switch sortBy {
	case directory.SortName, directory.SortCohort, directory.SortRecent:
	default:
		RespondBadRequest(ctx, "Invalid sort", gin.H{"sort": string(sortBy)})
		return
	}

	f := directory.DeriveFilters(directory.Filter{
		Cohort:   ctx.Query("cohort"),
		Location: ctx.Query("location"),
		Industry: ctx.Query("industry"),
		Subgroup: ctx.Query("subgroup"),
		Query:    ctx.Query("q"),
		Selected: ctx.Query("selected"),
	})

	c, cancel := withTimeout(ctx, readTimeout)
	defer cancel()

	all, err := h.members(c)
	if err != nil {
		RespondInternal(ctx, "Could not load member directory", err)
		return
	}

	matched := directory.Apply(all, f)
	directory.SortMembers(matched, sortBy)

	ctx.JSON(http.StatusOK, directoryResponse{
		Page: directory.Paginate(matched, page),
		Sort: sortBy,
		Filters: filterView{
			Cohort:   f.Cohort,
			Location: f.Location,
			Industry: f.Industry,
			Subgroup: f.Subgroup,
			Query:    f.Query,
			Selected: f.Selected,
		},
	})
}

// Map groups members by city and renders the markers for ?zoom=.
func (h *DirectoryHandler) Map(ctx *gin.Context) {
	zoom := 0
	if raw := ctx.Query("zoom"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			RespondBadRequest(ctx, "Invalid zoom", gin.H{"zoom": raw})
			return
		}
		zoom = n
	}
	zoom = geo.ClampZoom(zoom)

	c, cancel := withTimeout(ctx, readTimeout)
	defer cancel()

	all, err := h.members(c)
	if err != nil {
		RespondInternal(ctx, "Could not load member map", err)
		return
	}

	cities := geo.GroupByCity(all)

	located := 0
	for _, city := range cities {
		located += city.Count
	}

	ctx.JSON(http.StatusOK, gin.H{
		"bounds":  geo.IndiaBounds,
		"zoom":    zoom,
		"cities":  cities,
		"markers": geo.Markers(cities, zoom),
		"located": located,
		"total":   len(all),
	})
}

func (h *DirectoryHandler) Nearby(ctx *gin.Context) {
	lat, errLat := strconv.ParseFloat(ctx.Query("lat"), 64)
	lng, errLng := strconv.ParseFloat(ctx.Query("lng"), 64)
	if errLat != nil || errLng != nil || lat < -90 || lat > 90 || lng < -180 || lng > 180 {
		RespondBadRequest(ctx, "lat and lng are required coordinates", gin.H{
			"lat": ctx.Query("lat"),
			"lng": ctx.Query("lng"),
		})
		return
	}

	radius := float64(defaultNearbyRadiusKm)
	if raw := ctx.Query("radiusKm"); raw != "" {
		r, err := strconv.ParseFloat(raw, 64)
		if err != nil || r <= 0 {
			RespondBadRequest(ctx, "Invalid radiusKm", gin.H{"radiusKm": raw})
			return
		}
		radius = r
	}

	c, cancel := withTimeout(ctx, readTimeout)
	defer cancel()

	all, err := h.members(c)
	if err != nil {
		RespondInternal(ctx, "Could not load member directory", err)
		return
	}

	items := geo.WithinRadius(all, geo.Coordinates{Lat: lat, Lng: lng}, radius)

	ctx.JSON(http.StatusOK, gin.H{
		"items":    items,
		"count":    len(items),
		"radiusKm": radius,
	})
}
