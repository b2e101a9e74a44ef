package api

import (
	"context"

	"portal-chat/internal/models"
)

// ChatAPI is the backend surface used by the dashboard chat client.
type ChatAPI interface {
	GetHistory(ctx context.Context, conversationID string) ([]models.Message, error)
	GetTyping(ctx context.Context, conversationID string) ([]models.Role, error)
	SetTyping(ctx context.Context, conversationID string, role models.Role, typing bool) error
	SendMessage(ctx context.Context, conversationID string, msg models.NewMessage) (models.Message, error)
	EditMessage(ctx context.Context, conversationID, messageID, text string) error
	DeleteMessage(ctx context.Context, conversationID, messageID string) error
	ClearHistory(ctx context.Context, conversationID string) error
	GetUnreadCounts(ctx context.Context, email string) (map[string]int, error)
	MarkRead(ctx context.Context, conversationID string, role models.Role) error
}

// OrderAPI fetches raw order details.
type OrderAPI interface {
	GetOrder(ctx context.Context, orderID string) ([]byte, error)
}
