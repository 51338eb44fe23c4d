package notification

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

type Type string

const (
	TypeInfo    Type = "info"
	TypeSuccess Type = "success"
	TypeWarning Type = "warning"
	TypeError   Type = "error"
)

var ErrNotFound = errors.New("notification not found")

type Notification struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	Type      Type      `json:"type"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	ActionURL *string   `json:"actionUrl,omitempty"`
	Read      bool      `json:"read"`
	CreatedAt time.Time `json:"timestamp"`
}

func New(userID string, t Type, title, message, actionURL string) Notification {
	n := Notification{
		ID:        uuid.NewString(),
		UserID:    userID,
		Type:      t,
		Title:     title,
		Message:   message,
		CreatedAt: time.Now().UTC(),
	}

	if actionURL != "" {
		n.ActionURL = &actionURL
	}

	return n
}

// Fanout builds the same notification for every recipient.
func Fanout(userIDs []string, t Type, title, message, actionURL string) []Notification {
	out := make([]Notification, 0, len(userIDs))

	for _, id := range userIDs {
		out = append(out, New(id, t, title, message, actionURL))
	}
	return out
}
