package conversation

import (
	"errors"
	"strings"
	"time"

	"github.com/geocoder89/cohorthub/internal/jsonlist"
	"github.com/google/uuid"
)

type Type string

const (
	TypeDirect Type = "DIRECT"
	TypeGroup  Type = "GROUP"
)

const (
	DefaultMessageLimit = 50
	MaxMessageLimit     = 100
)

var (
	ErrNotFound            = errors.New("conversation not found")
	ErrMessageNotFound     = errors.New("message not found")
	ErrNotParticipant      = errors.New("not a participant")
	ErrTooManyParticipants = errors.New("direct conversations have at most two participants")
)

type Conversation struct {
	ID             string              `json:"id"`
	Type           Type                `json:"type"`
	Name           *string             `json:"name"`
	Description    *string             `json:"description"`
	ParticipantIDs jsonlist.Of[string] `json:"participantIds"`
	LastMessageAt  *time.Time          `json:"lastMessageAt"`
	CreatedAt      time.Time           `json:"createdAt"`
	UpdatedAt      time.Time           `json:"updatedAt"`
}

type Message struct {
	ID             string     `json:"id"`
	ConversationID string     `json:"conversationId"`
	SenderID       string     `json:"senderId"`
	Content        string     `json:"content"`
	IsRead         bool       `json:"isRead"`
	ReadAt         *time.Time `json:"readAt"`
	CreatedAt      time.Time  `json:"createdAt"`
}

type CreateRequest struct {
	Type           Type     `json:"type" binding:"required,oneof=DIRECT GROUP"`
	Name           *string  `json:"name" binding:"omitempty,max=120"`
	Description    *string  `json:"description" binding:"omitempty,max=500"`
	ParticipantIDs []string `json:"participantIds" binding:"omitempty,max=100,dive,required"`
}

type SendMessageRequest struct {
	Content string `json:"content" binding:"required,min=1,max=5000"`
}

// NormalizeParticipants puts the creator first and drops blanks and repeats.
func NormalizeParticipants(creatorID string, ids []string) []string {
	seen := map[string]struct{}{creatorID: {}}
	out := []string{creatorID}

	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}

	return out
}

func NewFromCreateRequest(creatorID string, req CreateRequest) (Conversation, error) {
	participants := NormalizeParticipants(creatorID, req.ParticipantIDs)

	if req.Type == TypeDirect && len(participants) > 2 {
		return Conversation{}, ErrTooManyParticipants
	}

	now := time.Now().UTC()

	return Conversation{
		ID:             uuid.NewString(),
		Type:           req.Type,
		Name:           req.Name,
		Description:    req.Description,
		ParticipantIDs: jsonlist.Of[string](participants),
		CreatedAt:      now,
		UpdatedAt:      now,
	}, nil
}

func (c Conversation) HasParticipant(userID string) bool {
	for _, id := range c.ParticipantIDs {
		if id == userID {
			return true
		}
	}
	return false
}

// Recipients lists every participant except the sender.
func (c Conversation) Recipients(senderID string) []string {
	out := make([]string, 0, len(c.ParticipantIDs))

	for _, id := range c.ParticipantIDs {
		if id != senderID {
			out = append(out, id)
		}
	}
	return out
}

func NewMessage(conversationID, senderID string, req SendMessageRequest) Message {
	return Message{
		ID:             uuid.NewString(),
		ConversationID: conversationID,
		SenderID:       senderID,
		Content:        req.Content,
		CreatedAt:      time.Now().UTC(),
	}
}

func ClampMessageLimit(limit int) int {
	if limit <= 0 {
		return DefaultMessageLimit
	}
	if limit > MaxMessageLimit {
		return MaxMessageLimit
	}
	return limit
}
