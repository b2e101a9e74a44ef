package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"portal-chat/internal/models"
	"portal-chat/internal/repositories"
)

var (
	_ repositories.ConversationRepository = (*ConversationRepositoryMock)(nil)
	_ repositories.MessageRepository      = (*MessageRepositoryMock)(nil)
	_ repositories.TypingRepository       = (*TypingRepositoryMock)(nil)
	_ repositories.OrderRepository        = (*OrderRepositoryMock)(nil)
)

type ConversationRepositoryMock struct {
	mock.Mock
}

func (m *ConversationRepositoryMock) EnsureConversation(ctx context.Context, conversationID string) (models.Conversation, error) {
	args := m.Called(ctx, conversationID)
	var conv models.Conversation
	if val := args.Get(0); val != nil {
		conv = val.(models.Conversation)
	}
	return conv, args.Error(1)
}

func (m *ConversationRepositoryMock) GetConversation(ctx context.Context, conversationID string) (models.Conversation, error) {
	args := m.Called(ctx, conversationID)
	var conv models.Conversation
	if val := args.Get(0); val != nil {
		conv = val.(models.Conversation)
	}
	return conv, args.Error(1)
}

type MessageRepositoryMock struct {
	mock.Mock
}

func (m *MessageRepositoryMock) ListMessages(ctx context.Context, conversationID string) ([]models.Message, error) {
	args := m.Called(ctx, conversationID)
	var msgs []models.Message
	if val := args.Get(0); val != nil {
		msgs = val.([]models.Message)
	}
	return msgs, args.Error(1)
}

func (m *MessageRepositoryMock) CreateMessage(ctx context.Context, conversationID string, msg models.NewMessage) (models.Message, error) {
	args := m.Called(ctx, conversationID, msg)
	var out models.Message
	if val := args.Get(0); val != nil {
		out = val.(models.Message)
	}
	return out, args.Error(1)
}

func (m *MessageRepositoryMock) UpdateText(ctx context.Context, conversationID, messageID, text string) error {
	args := m.Called(ctx, conversationID, messageID, text)
	return args.Error(0)
}

func (m *MessageRepositoryMock) DeleteMessage(ctx context.Context, conversationID, messageID string) error {
	args := m.Called(ctx, conversationID, messageID)
	return args.Error(0)
}

func (m *MessageRepositoryMock) ClearConversation(ctx context.Context, conversationID string) error {
	args := m.Called(ctx, conversationID)
	return args.Error(0)
}

func (m *MessageRepositoryMock) MarkRead(ctx context.Context, conversationID string, reader models.Role) error {
	args := m.Called(ctx, conversationID, reader)
	return args.Error(0)
}

func (m *MessageRepositoryMock) UnreadCounts(ctx context.Context, customerEmail string) (map[string]int, error) {
	args := m.Called(ctx, customerEmail)
	var counts map[string]int
	if val := args.Get(0); val != nil {
		counts = val.(map[string]int)
	}
	return counts, args.Error(1)
}

type TypingRepositoryMock struct {
	mock.Mock
}

func (m *TypingRepositoryMock) SetTyping(ctx context.Context, conversationID string, role models.Role, typing bool) error {
	args := m.Called(ctx, conversationID, role, typing)
	return args.Error(0)
}

func (m *TypingRepositoryMock) ActiveRoles(ctx context.Context, conversationID string, since time.Time) ([]models.Role, error) {
	args := m.Called(ctx, conversationID, since)
	var roles []models.Role
	if val := args.Get(0); val != nil {
		roles = val.([]models.Role)
	}
	return roles, args.Error(1)
}

type OrderRepositoryMock struct {
	mock.Mock
}

func (m *OrderRepositoryMock) GetOrder(ctx context.Context, orderID string) ([]byte, error) {
	args := m.Called(ctx, orderID)
	var body []byte
	if val := args.Get(0); val != nil {
		body = val.([]byte)
	}
	return body, args.Error(1)
}

func (m *OrderRepositoryMock) PutOrder(ctx context.Context, orderID, customerEmail string, body []byte) error {
	args := m.Called(ctx, orderID, customerEmail, body)
	return args.Error(0)
}
