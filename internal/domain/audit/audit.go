package audit

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

const (
	ActionUserRegistered   = "user.registered"
	ActionUserStatusChange = "user.status_changed"
	ActionReportResolved   = "report.resolved"
	ActionPostDeleted      = "post.deleted"
	ActionResourceDeleted  = "resource.deleted"
)

type Entry struct {
	ID         string    `json:"id"`
	Action     string    `json:"action"`
	Changes    *string   `json:"changes"`
	EntityID   string    `json:"entityId"`
	EntityType string    `json:"entityType"`
	UserID     string    `json:"userId"`
	CreatedAt  time.Time `json:"createdAt"`
}

// NewEntry records who did what to which entity. changes is stored as JSON
// text and dropped if it cannot be encoded.
func NewEntry(actorID, action, entityType, entityID string, changes any) Entry {
	e := Entry{
		ID:         uuid.NewString(),
		Action:     action,
		EntityID:   entityID,
		EntityType: entityType,
		UserID:     actorID,
		CreatedAt:  time.Now().UTC(),
	}

	if changes != nil {
		if b, err := json.Marshal(changes); err == nil {
			s := string(b)
			e.Changes = &s
		}
	}

	return e
}
