package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"portal-chat/internal/models"
)

var ErrConversationNotFound = errors.New("conversation not found")

// ConversationRepository abstracts conversation persistence.
type ConversationRepository interface {
	EnsureConversation(ctx context.Context, conversationID string) (models.Conversation, error)
	GetConversation(ctx context.Context, conversationID string) (models.Conversation, error)
}

// ConversationRepo is a sqlx implementation of ConversationRepository.
type ConversationRepo struct {
	db *sqlx.DB
}

// NewConversationRepo constructs a ConversationRepo.
func NewConversationRepo(db *sqlx.DB) *ConversationRepo {
	return &ConversationRepo{db: db}
}

// EnsureConversation creates the conversation on first use. The customer is
// taken from the order the conversation belongs to, when it is known.
func (r *ConversationRepo) EnsureConversation(ctx context.Context, conversationID string) (models.Conversation, error) {
	orderID := models.OrderFromConversation(conversationID)
	_, err := r.db.ExecContext(ctx, `INSERT INTO conversations (id, order_id, customer_email)
        VALUES ($1, $2, COALESCE((SELECT customer_email FROM orders WHERE id=$2), ''))
        ON CONFLICT (id) DO NOTHING`, conversationID, orderID)
	if err != nil {
		return models.Conversation{}, err
	}
	return r.GetConversation(ctx, conversationID)
}

// GetConversation retrieves a conversation by id.
func (r *ConversationRepo) GetConversation(ctx context.Context, conversationID string) (models.Conversation, error) {
	var conv models.Conversation
	err := r.db.GetContext(ctx, &conv, `SELECT id, order_id, customer_email FROM conversations WHERE id=$1`, conversationID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Conversation{}, ErrConversationNotFound
	}
	return conv, err
}
