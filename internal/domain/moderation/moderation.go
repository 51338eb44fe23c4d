package moderation

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

type Status string

const (
	StatusPending   Status = "PENDING"
	StatusReviewing Status = "REVIEWING"
	StatusResolved  Status = "RESOLVED"
	StatusDismissed Status = "DISMISSED"
)

var ErrNotFound = errors.New("report not found")

// Report is a member's flag on a piece of content, stored in moderated_content.
type Report struct {
	ID          string    `json:"id"`
	ContentID   string    `json:"contentId"`
	ContentType string    `json:"contentType"`
	Reason      string    `json:"reason"`
	ReportedBy  string    `json:"reportedBy"`
	Status      Status    `json:"status"`
	ActionTaken *string   `json:"actionTaken"`
	Description *string   `json:"description"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

type CreateReportRequest struct {
	ContentID   string  `json:"contentId" binding:"required"`
	ContentType string  `json:"contentType" binding:"required,oneof=post comment resource message user"`
	Reason      string  `json:"reason" binding:"required,min=3,max=200"`
	Description *string `json:"description" binding:"omitempty,max=2000"`
}

type ResolveRequest struct {
	Status      Status  `json:"status" binding:"required,oneof=REVIEWING RESOLVED DISMISSED"`
	ActionTaken *string `json:"actionTaken" binding:"omitempty,max=500"`
}

func NewReport(reporterID string, req CreateReportRequest) Report {
	now := time.Now().UTC()

	return Report{
		ID:          uuid.NewString(),
		ContentID:   req.ContentID,
		ContentType: req.ContentType,
		Reason:      req.Reason,
		ReportedBy:  reporterID,
		Status:      StatusPending,
		Description: req.Description,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}
