package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/geocoder89/cohorthub/internal/domain/conversation"
	"github.com/geocoder89/cohorthub/internal/notifications"
	"github.com/geocoder89/cohorthub/internal/utils"
	"github.com/gin-gonic/gin"
)

type ConversationsStore interface {
	ListForUser(ctx context.Context, userID string) ([]conversation.Conversation, error)
	Create(ctx context.Context, c conversation.Conversation) (conversation.Conversation, error)
	GetByID(ctx context.Context, id string) (conversation.Conversation, error)
	ListMessages(ctx context.Context, conversationID string, after *utils.Cursor, limit int) ([]conversation.Message, *string, error)
	SendMessage(ctx context.Context, m conversation.Message) (conversation.Message, error)
	MarkMessageRead(ctx context.Context, messageID, userID string) (conversation.Message, error)
}

// UserDirectory confirms that participant ids belong to real users.
type UserDirectory interface {
	ExistingIDs(ctx context.Context, ids []string) ([]string, error)
}

type ConversationsHandler struct {
	repo     ConversationsStore
	users    UserDirectory
	notifier notifications.Notifier
}

func NewConversationsHandler(repo ConversationsStore, users UserDirectory, notifier notifications.Notifier) *ConversationsHandler {
	return &ConversationsHandler{repo: repo, users: users, notifier: notifier}
}

func (h *ConversationsHandler) ListConversations(ctx *gin.Context) {
	userID, ok := callerID(ctx)
	if !ok {
		return
	}

	c, cancel := withTimeout(ctx, readTimeout)
	defer cancel()

	items, err := h.repo.ListForUser(c, userID)
	if err != nil {
		RespondInternal(ctx, "Could not list conversations", err)
		return
	}

	ctx.JSON(http.StatusOK, items)
}

func (h *ConversationsHandler) CreateConversation(ctx *gin.Context) {
	userID, ok := callerID(ctx)
	if !ok {
		return
	}

	var req conversation.CreateRequest
	if !BindJSON(ctx, &req) {
		return
	}

	conv, err := conversation.NewFromCreateRequest(userID, req)
	if err != nil {
		RespondBadRequest(ctx, "Direct conversations have at most two participants", nil)
		return
	}

	c, cancel := withTimeout(ctx, writeTimeout)
	defer cancel()

	if others := conv.Recipients(userID); len(others) > 0 && h.users != nil {
		known, err := h.users.ExistingIDs(c, others)
		if err != nil {
			RespondInternal(ctx, "Could not create conversation", err)
			return
		}
		if missing := missingIDs(others, known); len(missing) > 0 {
			RespondBadRequest(ctx, "Unknown participants", gin.H{"participantIds": missing})
			return
		}
	}

	created, err := h.repo.Create(c, conv)
	if err != nil {
		RespondInternal(ctx, "Could not create conversation", err)
		return
	}

	ctx.JSON(http.StatusCreated, created)
}

func missingIDs(want, have []string) []string {
	set := make(map[string]struct{}, len(have))
	for _, id := range have {
		set[id] = struct{}{}
	}

	var out []string
	for _, id := range want {
		if _, ok := set[id]; !ok {
			out = append(out, id)
		}
	}
	return out
}

// participantConversation loads the conversation and answers 404/403 itself.
func (h *ConversationsHandler) participantConversation(c context.Context, ctx *gin.Context, userID string) (conversation.Conversation, bool) {
	conv, err := h.repo.GetByID(c, ctx.Param("id"))
	if err != nil {
		if errors.Is(err, conversation.ErrNotFound) {
			RespondNotFound(ctx, "Conversation not found")
			return conversation.Conversation{}, false
		}
		RespondInternal(ctx, "Could not load conversation", err)
		return conversation.Conversation{}, false
	}

	if !conv.HasParticipant(userID) {
		RespondForbidden(ctx, "Not a participant in this conversation")
		return conversation.Conversation{}, false
	}
	return conv, true
}

func (h *ConversationsHandler) ListMessages(ctx *gin.Context) {
	userID, ok := callerID(ctx)
	if !ok {
		return
	}

	var after *utils.Cursor
	if raw := ctx.Query("cursor"); raw != "" {
		cur, err := utils.DecodeCursor(raw)
		if err != nil {
			RespondBadRequest(ctx, "Invalid cursor", gin.H{"cursor": raw})
			return
		}
		after = &cur
	}

	limit := 0
	if raw := ctx.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			RespondBadRequest(ctx, "Invalid limit", gin.H{"limit": raw})
			return
		}
		limit = n
	}

	c, cancel := withTimeout(ctx, readTimeout)
	defer cancel()

	if _, ok := h.participantConversation(c, ctx, userID); !ok {
		return
	}

	items, next, err := h.repo.ListMessages(c, ctx.Param("id"), after, limit)
	if err != nil {
		RespondInternal(ctx, "Could not list messages", err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"items":      items,
		"count":      len(items),
		"nextCursor": next,
		"hasMore":    next != nil,
	})
}

func (h *ConversationsHandler) SendMessage(ctx *gin.Context) {
	userID, ok := callerID(ctx)
	if !ok {
		return
	}

	var req conversation.SendMessageRequest
	if !BindJSON(ctx, &req) {
		return
	}

	c, cancel := withTimeout(ctx, writeTimeout)
	defer cancel()

	conv, ok := h.participantConversation(c, ctx, userID)
	if !ok {
		return
	}

	msg, err := h.repo.SendMessage(c, conversation.NewMessage(conv.ID, userID, req))
	if err != nil {
		if errors.Is(err, conversation.ErrNotFound) {
			RespondNotFound(ctx, "Conversation not found")
			return
		}
		RespondInternal(ctx, "Could not send message", err)
		return
	}

	if h.notifier != nil {
		ev := notifications.Event{Type: notifications.EventMessage, Data: msg}
		if err := notifications.Fanout(c, h.notifier, conv.Recipients(userID), ev); err != nil {
			slog.Default().WarnContext(c, "message_push_failed", "conversation_id", conv.ID, "err", err)
		}
	}

	ctx.JSON(http.StatusCreated, msg)
}

func (h *ConversationsHandler) MarkMessageRead(ctx *gin.Context) {
	userID, ok := callerID(ctx)
	if !ok {
		return
	}

	c, cancel := withTimeout(ctx, writeTimeout)
	defer cancel()

	msg, err := h.repo.MarkMessageRead(c, ctx.Param("id"), userID)
	switch {
	case errors.Is(err, conversation.ErrMessageNotFound):
		RespondNotFound(ctx, "Message not found")
	case errors.Is(err, conversation.ErrNotParticipant):
		RespondForbidden(ctx, "Not a participant in this conversation")
	case err != nil:
		RespondInternal(ctx, "Could not mark message read", err)
	default:
		ctx.JSON(http.StatusOK, msg)
	}
}
