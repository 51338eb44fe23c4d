package post

import (
	"errors"
	"time"

	"github.com/geocoder89/cohorthub/internal/jsonlist"
	"github.com/google/uuid"
)

const (
	DefaultLimit = 50
	MaxLimit     = 100
)

var (
	ErrNotFound        = errors.New("post not found")
	ErrCommentNotFound = errors.New("comment not found")
	ErrForbidden       = errors.New("not the author")
)

// Author is the public face of a user attached to posts and comments.
type Author struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	Initials string  `json:"initials"`
	Avatar   *string `json:"avatar"`
	Title    string  `json:"title"`
}

type Post struct {
	ID        string              `json:"id"`
	AuthorID  string              `json:"authorId"`
	Content   string              `json:"content"`
	Image     *string             `json:"image"`
	Tags      jsonlist.Of[string] `json:"tags"`
	Category  *string             `json:"category"`
	Likes     int                 `json:"likes"`
	CreatedAt time.Time           `json:"createdAt"`
	UpdatedAt time.Time           `json:"updatedAt"`
	Author    *Author             `json:"author,omitempty"`
	Comments  []Comment           `json:"comments"`
}

type Comment struct {
	ID        string    `json:"id"`
	PostID    string    `json:"postId"`
	AuthorID  string    `json:"authorId"`
	Content   string    `json:"content"`
	Likes     int       `json:"likes"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
	Author    *Author   `json:"author,omitempty"`
}

type CreatePostRequest struct {
	Content  string   `json:"content" binding:"required,min=1,max=5000"`
	Image    *string  `json:"image" binding:"omitempty,url,max=500"`
	Tags     []string `json:"tags" binding:"omitempty,max=10,dive,min=1,max=40"`
	Category *string  `json:"category" binding:"omitempty,max=60"`
}

type CreateCommentRequest struct {
	Content string `json:"content" binding:"required,min=1,max=2000"`
}

func NewFromCreateRequest(authorID string, req CreatePostRequest) Post {
	now := time.Now().UTC()

	tags := jsonlist.Of[string]{}
	if req.Tags != nil {
		tags = jsonlist.Of[string](req.Tags)
	}

	return Post{
		ID:        uuid.NewString(),
		AuthorID:  authorID,
		Content:   req.Content,
		Image:     req.Image,
		Tags:      tags,
		Category:  req.Category,
		Likes:     0,
		CreatedAt: now,
		UpdatedAt: now,
		Comments:  []Comment{},
	}
}

func NewComment(postID, authorID string, req CreateCommentRequest) Comment {
	now := time.Now().UTC()

	return Comment{
		ID:        uuid.NewString(),
		PostID:    postID,
		AuthorID:  authorID,
		Content:   req.Content,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// ClampLimit applies the list default and ceiling.
func ClampLimit(limit int) int {
	if limit <= 0 {
		return DefaultLimit
	}
	if limit > MaxLimit {
		return MaxLimit
	}
	return limit
}
