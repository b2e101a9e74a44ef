package repositories

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"portal-chat/internal/models"
)

var ErrMessageNotFound = errors.New("message not found")

// MessageRepository defines interactions for conversation messages.
type MessageRepository interface {
	ListMessages(ctx context.Context, conversationID string) ([]models.Message, error)
	CreateMessage(ctx context.Context, conversationID string, msg models.NewMessage) (models.Message, error)
	UpdateText(ctx context.Context, conversationID, messageID, text string) error
	DeleteMessage(ctx context.Context, conversationID, messageID string) error
	ClearConversation(ctx context.Context, conversationID string) error
	MarkRead(ctx context.Context, conversationID string, reader models.Role) error
	UnreadCounts(ctx context.Context, customerEmail string) (map[string]int, error)
}

// MessageRepo is a sqlx-backed repository.
type MessageRepo struct {
	db *sqlx.DB
}

// NewMessageRepo constructs MessageRepo.
func NewMessageRepo(db *sqlx.DB) *MessageRepo {
	return &MessageRepo{db: db}
}

const messageColumns = `id, conversation_id, sender_role, sender_email, text, edited, "read", created_at`

// ListMessages returns the history of a conversation, oldest first.
func (r *MessageRepo) ListMessages(ctx context.Context, conversationID string) ([]models.Message, error) {
	msgs := []models.Message{}
	err := r.db.SelectContext(ctx, &msgs, `SELECT `+messageColumns+`
        FROM messages
        WHERE conversation_id=$1
        ORDER BY created_at ASC, id ASC`, conversationID)
	return msgs, err
}

// CreateMessage appends a message to a conversation.
func (r *MessageRepo) CreateMessage(ctx context.Context, conversationID string, msg models.NewMessage) (models.Message, error) {
	var out models.Message
	err := r.db.QueryRowxContext(ctx, `INSERT INTO messages (id, conversation_id, sender_role, sender_email, text)
        VALUES ($1, $2, $3, $4, $5)
        RETURNING `+messageColumns, uuid.NewString(), conversationID, msg.SenderRole, msg.SenderEmail, msg.Text).
		StructScan(&out)
	return out, err
}

// UpdateText replaces the text of a message and flags it as edited.
func (r *MessageRepo) UpdateText(ctx context.Context, conversationID, messageID, text string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE messages SET text=$3, edited=TRUE WHERE conversation_id=$1 AND id=$2`, conversationID, messageID, text)
	if err != nil {
		return err
	}
	return requireRow(res)
}

// DeleteMessage removes a single message.
func (r *MessageRepo) DeleteMessage(ctx context.Context, conversationID, messageID string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM messages WHERE conversation_id=$1 AND id=$2`, conversationID, messageID)
	if err != nil {
		return err
	}
	return requireRow(res)
}

// ClearConversation removes every message of a conversation.
func (r *MessageRepo) ClearConversation(ctx context.Context, conversationID string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM messages WHERE conversation_id=$1`, conversationID)
	return err
}

// MarkRead marks messages sent by other roles as read by reader.
func (r *MessageRepo) MarkRead(ctx context.Context, conversationID string, reader models.Role) error {
	_, err := r.db.ExecContext(ctx, `UPDATE messages SET "read"=TRUE WHERE conversation_id=$1 AND sender_role<>$2 AND "read"=FALSE`, conversationID, reader)
	return err
}

// UnreadCounts returns, per conversation of the customer, the number of
// messages from other roles the customer has not read.
func (r *MessageRepo) UnreadCounts(ctx context.Context, customerEmail string) (map[string]int, error) {
	var rows []models.UnreadCount
	err := r.db.SelectContext(ctx, &rows, `SELECT c.id AS conversation_id, COUNT(m.id) AS count
        FROM conversations c
        LEFT JOIN messages m ON m.conversation_id = c.id AND m.sender_role <> $2 AND m."read" = FALSE
        WHERE c.customer_email = $1
        GROUP BY c.id`, customerEmail, models.RoleCustomer)
	if err != nil {
		return nil, err
	}
	counts := make(map[string]int, len(rows))
	for _, row := range rows {
		counts[row.ConversationID] = row.Count
	}
	return counts, nil
}

type rowsAffected interface {
	RowsAffected() (int64, error)
}

func requireRow(res rowsAffected) error {
	count, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if count == 0 {
		return ErrMessageNotFound
	}
	return nil
}
