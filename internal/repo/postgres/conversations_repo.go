package postgres

import (
	"context"
	"time"

	"github.com/geocoder89/cohorthub/internal/domain/conversation"
	"github.com/geocoder89/cohorthub/internal/observability"
	"github.com/geocoder89/cohorthub/internal/utils"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type ConversationsRepo struct {
	store
}

func NewConversationsRepo(pool *pgxpool.Pool, prom *observability.Prom) *ConversationsRepo {
	return &ConversationsRepo{store{pool: pool, prom: prom}}
}

const conversationColumns = `id, type, name, description, participant_ids, last_message_at, created_at, updated_at`

func scanConversation(row pgx.Row) (conversation.Conversation, error) {
	var c conversation.Conversation
	var typ string

	err := row.Scan(&c.ID, &typ, &c.Name, &c.Description, &c.ParticipantIDs, &c.LastMessageAt, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return conversation.Conversation{}, err
	}

	c.Type = conversation.Type(typ)
	return c, nil
}

const messageColumns = `id, conversation_id, sender_id, content, is_read, read_at, created_at`

func scanMessage(row pgx.Row) (conversation.Message, error) {
	var m conversation.Message
	err := row.Scan(&m.ID, &m.ConversationID, &m.SenderID, &m.Content, &m.IsRead, &m.ReadAt, &m.CreatedAt)
	return m, err
}

// ListForUser returns the user's conversations, most recent activity first.
// participant_ids is JSON text, so the SQL match is a coarse prefilter and
// membership is confirmed on the decoded list.
func (r *ConversationsRepo) ListForUser(ctx context.Context, userID string) ([]conversation.Conversation, error) {
	out := make([]conversation.Conversation, 0)

	err := r.observe("conversations.list_for_user", func() error {
		rows, err := r.pool.Query(ctx, `
			SELECT `+conversationColumns+`
			FROM conversations
			WHERE participant_ids LIKE '%' || $1 || '%'
			ORDER BY COALESCE(last_message_at, created_at) DESC, id
		`, `"`+userID+`"`)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			c, err := scanConversation(rows)
			if err != nil {
				return err
			}
			if c.HasParticipant(userID) {
				out = append(out, c)
			}
		}
		return rows.Err()
	})

	return out, err
}

func (r *ConversationsRepo) Create(ctx context.Context, c conversation.Conversation) (conversation.Conversation, error) {
	err := r.observe("conversations.create", func() error {
		_, e := r.pool.Exec(ctx, `
			INSERT INTO conversations (`+conversationColumns+`)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		`, c.ID, string(c.Type), c.Name, c.Description, c.ParticipantIDs, c.LastMessageAt, c.CreatedAt, c.UpdatedAt)
		return e
	})
	if err != nil {
		return conversation.Conversation{}, err
	}
	return c, nil
}

func (r *ConversationsRepo) GetByID(ctx context.Context, id string) (conversation.Conversation, error) {
	var c conversation.Conversation

	err := r.observe("conversations.get_by_id", func() error {
		var e error
		c, e = scanConversation(r.pool.QueryRow(ctx, `SELECT `+conversationColumns+` FROM conversations WHERE id = $1`, id))
		return e
	})
	if err != nil {
		return conversation.Conversation{}, notFound(err, conversation.ErrNotFound)
	}
	return c, nil
}

// ListMessages pages forward through a conversation by (created_at, id).
// nextCursor is nil on the last page.
func (r *ConversationsRepo) ListMessages(ctx context.Context, conversationID string, after *utils.Cursor, limit int) (items []conversation.Message, nextCursor *string, err error) {
	limit = conversation.ClampMessageLimit(limit)

	args := []any{conversationID, limit + 1}
	where := `conversation_id = $1`
	if after != nil {
		where += ` AND (created_at, id) > ($3, $4)`
		args = append(args, after.At, after.ID)
	}

	items = make([]conversation.Message, 0, limit)

	err = r.observe("conversations.list_messages", func() error {
		rows, err := r.pool.Query(ctx, `
			SELECT `+messageColumns+`
			FROM messages
			WHERE `+where+`
			ORDER BY created_at ASC, id ASC
			LIMIT $2
		`, args...)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			m, err := scanMessage(rows)
			if err != nil {
				return err
			}
			items = append(items, m)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, nil, err
	}

	if len(items) > limit {
		items = items[:limit]
		last := items[len(items)-1]

		cur, encErr := utils.EncodeCursor(last.CreatedAt, last.ID)
		if encErr != nil {
			return nil, nil, encErr
		}
		nextCursor = &cur
	}

	return items, nextCursor, nil
}

// SendMessage stores m and moves the conversation's last_message_at in the
// same transaction.
func (r *ConversationsRepo) SendMessage(ctx context.Context, m conversation.Message) (conversation.Message, error) {
	err := r.inTx(ctx, func(tx pgx.Tx) error {
		err := r.observe("conversations.send_message.insert", func() error {
			_, e := tx.Exec(ctx, `
				INSERT INTO messages (`+messageColumns+`)
				VALUES ($1,$2,$3,$4,$5,$6,$7)
			`, m.ID, m.ConversationID, m.SenderID, m.Content, m.IsRead, m.ReadAt, m.CreatedAt)
			return e
		})
		if err != nil {
			if isForeignKeyViolation(err) {
				return conversation.ErrNotFound
			}
			return err
		}

		return r.observe("conversations.send_message.touch", func() error {
			tag, e := tx.Exec(ctx, `
				UPDATE conversations SET last_message_at = $2, updated_at = $2 WHERE id = $1
			`, m.ConversationID, m.CreatedAt)
			if e != nil {
				return e
			}
			if tag.RowsAffected() == 0 {
				return conversation.ErrNotFound
			}
			return nil
		})
	})
	if err != nil {
		return conversation.Message{}, err
	}
	return m, nil
}

// MarkMessageRead marks a message read for userID, who must take part in
// its conversation.
func (r *ConversationsRepo) MarkMessageRead(ctx context.Context, messageID, userID string) (conversation.Message, error) {
	var m conversation.Message
	var participants conversation.Conversation

	err := r.observe("conversations.mark_read.load", func() error {
		return r.pool.QueryRow(ctx, `
			SELECT c.participant_ids
			FROM messages m
			JOIN conversations c ON c.id = m.conversation_id
			WHERE m.id = $1
		`, messageID).Scan(&participants.ParticipantIDs)
	})
	if err != nil {
		return conversation.Message{}, notFound(err, conversation.ErrMessageNotFound)
	}

	if !participants.HasParticipant(userID) {
		return conversation.Message{}, conversation.ErrNotParticipant
	}

	err = r.observe("conversations.mark_read.update", func() error {
		var e error
		m, e = scanMessage(r.pool.QueryRow(ctx, `
			UPDATE messages
			SET is_read = TRUE, read_at = COALESCE(read_at, $2)
			WHERE id = $1
			RETURNING `+messageColumns,
			messageID, time.Now().UTC()))
		return e
	})
	if err != nil {
		return conversation.Message{}, notFound(err, conversation.ErrMessageNotFound)
	}
	return m, nil
}
