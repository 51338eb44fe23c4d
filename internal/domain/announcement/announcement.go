package announcement

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

type Priority string

const (
	PriorityLow    Priority = "LOW"
	PriorityNormal Priority = "NORMAL"
	PriorityHigh   Priority = "HIGH"
	PriorityUrgent Priority = "URGENT"
)

type Status string

const (
	StatusDraft     Status = "DRAFT"
	StatusPublished Status = "PUBLISHED"
	StatusArchived  Status = "ARCHIVED"
)

var ErrNotFound = errors.New("announcement not found")

type Announcement struct {
	ID             string     `json:"id"`
	Title          string     `json:"title"`
	Content        string     `json:"content"`
	Priority       Priority   `json:"priority"`
	Status         Status     `json:"status"`
	Category       *string    `json:"category"`
	TargetAudience *string    `json:"targetAudience"`
	PublishedAt    *time.Time `json:"publishedAt"`
	ExpiresAt      *time.Time `json:"expiresAt"`
	CreatedByID    string     `json:"createdById"`
	Views          int        `json:"views"`
	Reactions      int        `json:"reactions"`
	CreatedAt      time.Time  `json:"createdAt"`
	UpdatedAt      time.Time  `json:"updatedAt"`
}

type CreateRequest struct {
	Title          string     `json:"title" binding:"required,min=1,max=200"`
	Content        string     `json:"content" binding:"required,min=1,max=10000"`
	Priority       Priority   `json:"priority" binding:"omitempty,oneof=LOW NORMAL HIGH URGENT"`
	Status         Status     `json:"status" binding:"omitempty,oneof=DRAFT PUBLISHED"`
	Category       *string    `json:"category" binding:"omitempty,max=60"`
	TargetAudience *string    `json:"targetAudience" binding:"omitempty,max=120"`
	ExpiresAt      *time.Time `json:"expiresAt"`
}

type UpdateRequest struct {
	Title          *string    `json:"title" binding:"omitempty,min=1,max=200"`
	Content        *string    `json:"content" binding:"omitempty,min=1,max=10000"`
	Priority       *Priority  `json:"priority" binding:"omitempty,oneof=LOW NORMAL HIGH URGENT"`
	Status         *Status    `json:"status" binding:"omitempty,oneof=DRAFT PUBLISHED ARCHIVED"`
	Category       *string    `json:"category" binding:"omitempty,max=60"`
	TargetAudience *string    `json:"targetAudience" binding:"omitempty,max=120"`
	ExpiresAt      *time.Time `json:"expiresAt"`
}

type ListFilter struct {
	Status *Status
	// OnlyLive hides drafts, archived and expired rows.
	OnlyLive bool
	Now      time.Time
	Limit    int
}

func NewFromCreateRequest(creatorID string, req CreateRequest) Announcement {
	now := time.Now().UTC()

	priority := req.Priority
	if priority == "" {
		priority = PriorityNormal
	}

	status := req.Status
	if status == "" {
		status = StatusDraft
	}

	a := Announcement{
		ID:             uuid.NewString(),
		Title:          req.Title,
		Content:        req.Content,
		Priority:       priority,
		Status:         status,
		Category:       req.Category,
		TargetAudience: req.TargetAudience,
		ExpiresAt:      req.ExpiresAt,
		CreatedByID:    creatorID,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if status == StatusPublished {
		a.PublishedAt = &now
	}

	return a
}

// Apply copies the set fields onto a and reports whether this update moved
// it into PUBLISHED.
func (a *Announcement) Apply(req UpdateRequest, now time.Time) (published bool) {
	wasPublished := a.Status == StatusPublished

	if req.Title != nil {
		a.Title = *req.Title
	}
	if req.Content != nil {
		a.Content = *req.Content
	}
	if req.Priority != nil {
		a.Priority = *req.Priority
	}
	if req.Status != nil {
		a.Status = *req.Status
	}
	if req.Category != nil {
		a.Category = req.Category
	}
	if req.TargetAudience != nil {
		a.TargetAudience = req.TargetAudience
	}
	if req.ExpiresAt != nil {
		a.ExpiresAt = req.ExpiresAt
	}

	if a.Status == StatusPublished && a.PublishedAt == nil {
		a.PublishedAt = &now
	}

	a.UpdatedAt = now

	return !wasPublished && a.Status == StatusPublished
}

func (a Announcement) IsLive(now time.Time) bool {
	if a.Status != StatusPublished {
		return false
	}
	return a.ExpiresAt == nil || a.ExpiresAt.After(now)
}
