package resource

import (
	"errors"
	"time"

	"github.com/geocoder89/cohorthub/internal/domain/user"
	"github.com/geocoder89/cohorthub/internal/jsonlist"
	"github.com/google/uuid"
)

type AccessLevel string

const (
	AccessPublic      AccessLevel = "PUBLIC"
	AccessMembersOnly AccessLevel = "MEMBERS_ONLY"
	AccessAdminOnly   AccessLevel = "ADMIN_ONLY"
)

var (
	ErrNotFound  = errors.New("resource not found")
	ErrForbidden = errors.New("not allowed to modify resource")
)

// VisibleLevels lists the access levels a caller may read. An empty role
// means an anonymous caller.
func VisibleLevels(role user.Role) []AccessLevel {
	switch role {
	case user.RoleAdmin:
		return []AccessLevel{AccessPublic, AccessMembersOnly, AccessAdminOnly}
	case user.RoleMember:
		return []AccessLevel{AccessPublic, AccessMembersOnly}
	default:
		return []AccessLevel{AccessPublic}
	}
}

func (l AccessLevel) VisibleTo(role user.Role) bool {
	for _, v := range VisibleLevels(role) {
		if v == l {
			return true
		}
	}
	return false
}

type Resource struct {
	ID           string              `json:"id"`
	Title        string              `json:"title"`
	Description  *string             `json:"description"`
	Type         string              `json:"type"`
	Category     string              `json:"category"`
	URL          *string             `json:"url"`
	FileURL      *string             `json:"fileUrl"`
	FileSize     *int64              `json:"fileSize"`
	Downloads    int                 `json:"downloads"`
	Featured     bool                `json:"featured"`
	AccessLevel  AccessLevel         `json:"accessLevel"`
	UploadedByID string              `json:"uploadedById"`
	Tags         jsonlist.Of[string] `json:"tags"`
	CreatedAt    time.Time           `json:"createdAt"`
	UpdatedAt    time.Time           `json:"updatedAt"`
}

type CreateRequest struct {
	Title       string      `json:"title" binding:"required,min=1,max=200"`
	Description *string     `json:"description" binding:"omitempty,max=2000"`
	Type        string      `json:"type" binding:"required,max=40"`
	Category    string      `json:"category" binding:"required,max=60"`
	URL         *string     `json:"url" binding:"omitempty,url,max=1000"`
	FileURL     *string     `json:"fileUrl" binding:"omitempty,url,max=1000"`
	FileSize    *int64      `json:"fileSize" binding:"omitempty,min=0"`
	Featured    bool        `json:"featured"`
	AccessLevel AccessLevel `json:"accessLevel" binding:"omitempty,oneof=PUBLIC MEMBERS_ONLY ADMIN_ONLY"`
	Tags        []string    `json:"tags" binding:"omitempty,max=20,dive,min=1,max=40"`
}

type UpdateRequest struct {
	Title       *string      `json:"title" binding:"omitempty,min=1,max=200"`
	Description *string      `json:"description" binding:"omitempty,max=2000"`
	Type        *string      `json:"type" binding:"omitempty,max=40"`
	Category    *string      `json:"category" binding:"omitempty,max=60"`
	URL         *string      `json:"url" binding:"omitempty,url,max=1000"`
	FileURL     *string      `json:"fileUrl" binding:"omitempty,url,max=1000"`
	FileSize    *int64       `json:"fileSize" binding:"omitempty,min=0"`
	Featured    *bool        `json:"featured"`
	AccessLevel *AccessLevel `json:"accessLevel" binding:"omitempty,oneof=PUBLIC MEMBERS_ONLY ADMIN_ONLY"`
	Tags        []string     `json:"tags" binding:"omitempty,max=20,dive,min=1,max=40"`
}

// with pointers if optional, it will be nil
type ListFilter struct {
	Levels   []AccessLevel
	Category *string
	Type     *string
	Featured *bool
	Limit    int
}

func NewFromCreateRequest(uploaderID string, req CreateRequest) Resource {
	now := time.Now().UTC()

	level := req.AccessLevel
	if level == "" {
		level = AccessMembersOnly
	}

	tags := jsonlist.Of[string]{}
	if req.Tags != nil {
		tags = jsonlist.Of[string](req.Tags)
	}

	return Resource{
		ID:           uuid.NewString(),
		Title:        req.Title,
		Description:  req.Description,
		Type:         req.Type,
		Category:     req.Category,
		URL:          req.URL,
		FileURL:      req.FileURL,
		FileSize:     req.FileSize,
		Featured:     req.Featured,
		AccessLevel:  level,
		UploadedByID: uploaderID,
		Tags:         tags,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// Apply copies the set fields of an update onto r.
func (r *Resource) Apply(req UpdateRequest) {
	if req.Title != nil {
		r.Title = *req.Title
	}
	if req.Description != nil {
		r.Description = req.Description
	}
	if req.Type != nil {
		r.Type = *req.Type
	}
	if req.Category != nil {
		r.Category = *req.Category
	}
	if req.URL != nil {
		r.URL = req.URL
	}
	if req.FileURL != nil {
		r.FileURL = req.FileURL
	}
	if req.FileSize != nil {
		r.FileSize = req.FileSize
	}
	if req.Featured != nil {
		r.Featured = *req.Featured
	}
	if req.AccessLevel != nil {
		r.AccessLevel = *req.AccessLevel
	}
	if req.Tags != nil {
		r.Tags = jsonlist.Of[string](req.Tags)
	}
	r.UpdatedAt = time.Now().UTC()
}

// DownloadURL prefers the uploaded file over the external link.
func (r Resource) DownloadURL() string {
	if r.FileURL != nil && *r.FileURL != "" {
		return *r.FileURL
	}
	if r.URL != nil {
		return *r.URL
	}
	return ""
}
