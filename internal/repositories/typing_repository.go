package repositories

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"portal-chat/internal/models"
)

// TypingRepository stores best-effort typing flags.
type TypingRepository interface {
	SetTyping(ctx context.Context, conversationID string, role models.Role, typing bool) error
	ActiveRoles(ctx context.Context, conversationID string, since time.Time) ([]models.Role, error)
}

// TypingRepo is a sqlx implementation of TypingRepository.
type TypingRepo struct {
	db *sqlx.DB
}

// NewTypingRepo constructs a TypingRepo.
func NewTypingRepo(db *sqlx.DB) *TypingRepo {
	return &TypingRepo{db: db}
}

// SetTyping upserts the flag of role in a conversation.
func (r *TypingRepo) SetTyping(ctx context.Context, conversationID string, role models.Role, typing bool) error {
	_, err := r.db.ExecContext(ctx, `INSERT INTO typing_status (conversation_id, role, typing, updated_at)
        VALUES ($1, $2, $3, NOW())
        ON CONFLICT (conversation_id, role) DO UPDATE SET typing=EXCLUDED.typing, updated_at=NOW()`, conversationID, role, typing)
	return err
}

// ActiveRoles returns roles whose typing flag is set and was refreshed after since.
func (r *TypingRepo) ActiveRoles(ctx context.Context, conversationID string, since time.Time) ([]models.Role, error) {
	roles := []models.Role{}
	err := r.db.SelectContext(ctx, &roles, `SELECT role FROM typing_status
        WHERE conversation_id=$1 AND typing=TRUE AND updated_at > $2
        ORDER BY role`, conversationID, since)
	return roles, err
}
