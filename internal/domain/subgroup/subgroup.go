package subgroup

import (
	"errors"
	"strings"
	"time"

	"github.com/geocoder89/cohorthub/internal/jsonlist"
	"github.com/google/uuid"
)

type MemberRole string

const (
	RoleMember    MemberRole = "MEMBER"
	RoleModerator MemberRole = "MODERATOR"
)

const (
	ActionJoin  = "join"
	ActionLeave = "leave"
)

var (
	ErrNotFound     = errors.New("subgroup not found")
	ErrNotMember    = errors.New("not a member of subgroup")
	ErrInvalidInput = errors.New("invalid subgroup request")
)

type Subgroup struct {
	ID          string              `json:"id"`
	Name        string              `json:"name"`
	Description *string             `json:"description"`
	Type        string              `json:"type"`
	Icon        *string             `json:"icon"`
	Color       *string             `json:"color"`
	Moderators  jsonlist.Of[string] `json:"moderators"`
	Category    *string             `json:"category"`
	Image       *string             `json:"image"`
	Location    *string             `json:"location"`
	IsActive    bool                `json:"isActive"`
	Tags        jsonlist.Of[string] `json:"tags"`
	MemberCount int                 `json:"memberCount"`
	CreatedAt   time.Time           `json:"createdAt"`
	UpdatedAt   time.Time           `json:"updatedAt"`
}

type Member struct {
	ID         string     `json:"id"`
	SubgroupID string     `json:"subgroupId"`
	UserID     string     `json:"userId"`
	Role       MemberRole `json:"role"`
	JoinedAt   time.Time  `json:"joinedAt"`
}

// MutationRequest is the body of POST /api/subgroups: either a join/leave
// action on an existing subgroup or the fields of a new one.
type MutationRequest struct {
	Action      string   `json:"action" binding:"omitempty,oneof=join leave"`
	SubgroupID  string   `json:"subgroupId"`
	Name        string   `json:"name" binding:"omitempty,max=120"`
	Description *string  `json:"description" binding:"omitempty,max=1000"`
	Type        string   `json:"type" binding:"omitempty,max=40"`
	Icon        *string  `json:"icon" binding:"omitempty,max=40"`
	Color       *string  `json:"color" binding:"omitempty,max=40"`
	Category    *string  `json:"category" binding:"omitempty,max=60"`
	Image       *string  `json:"image" binding:"omitempty,max=500"`
	Location    *string  `json:"location" binding:"omitempty,max=120"`
	Tags        []string `json:"tags" binding:"omitempty,max=20,dive,min=1,max=40"`
}

func (r MutationRequest) IsAction() bool {
	return r.Action != ""
}

// Validate checks the fields each mode needs and returns a message for the client.
func (r MutationRequest) Validate() (string, bool) {
	if r.IsAction() {
		if strings.TrimSpace(r.SubgroupID) == "" {
			return "Subgroup ID is required", false
		}
		return "", true
	}

	if strings.TrimSpace(r.Name) == "" || strings.TrimSpace(r.Type) == "" {
		return "Name and type are required", false
	}
	return "", true
}

func NewFromRequest(creatorID string, req MutationRequest) Subgroup {
	now := time.Now().UTC()

	tags := jsonlist.Of[string]{}
	if req.Tags != nil {
		tags = jsonlist.Of[string](req.Tags)
	}

	return Subgroup{
		ID:          uuid.NewString(),
		Name:        strings.TrimSpace(req.Name),
		Description: req.Description,
		Type:        strings.TrimSpace(req.Type),
		Icon:        req.Icon,
		Color:       req.Color,
		Moderators:  jsonlist.Of[string]{creatorID},
		Category:    req.Category,
		Image:       req.Image,
		Location:    req.Location,
		IsActive:    true,
		Tags:        tags,
		MemberCount: 1,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

func NewMember(subgroupID, userID string, role MemberRole) Member {
	return Member{
		ID:         uuid.NewString(),
		SubgroupID: subgroupID,
		UserID:     userID,
		Role:       role,
		JoinedAt:   time.Now().UTC(),
	}
}
