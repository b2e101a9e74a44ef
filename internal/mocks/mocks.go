package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"portal-chat/internal/api"
	"portal-chat/internal/models"
)

var (
	_ api.ChatAPI  = (*ChatAPIMock)(nil)
	_ api.OrderAPI = (*OrderAPIMock)(nil)
)

type ChatAPIMock struct {
	mock.Mock
}

func (m *ChatAPIMock) GetHistory(ctx context.Context, conversationID string) ([]models.Message, error) {
	args := m.Called(ctx, conversationID)
	var msgs []models.Message
	if val := args.Get(0); val != nil {
		msgs = val.([]models.Message)
	}
	return msgs, args.Error(1)
}

func (m *ChatAPIMock) GetTyping(ctx context.Context, conversationID string) ([]models.Role, error) {
	args := m.Called(ctx, conversationID)
	var roles []models.Role
	if val := args.Get(0); val != nil {
		roles = val.([]models.Role)
	}
	return roles, args.Error(1)
}

func (m *ChatAPIMock) SetTyping(ctx context.Context, conversationID string, role models.Role, typing bool) error {
	args := m.Called(ctx, conversationID, role, typing)
	return args.Error(0)
}

func (m *ChatAPIMock) SendMessage(ctx context.Context, conversationID string, msg models.NewMessage) (models.Message, error) {
	args := m.Called(ctx, conversationID, msg)
	var out models.Message
	if val := args.Get(0); val != nil {
		out = val.(models.Message)
	}
	return out, args.Error(1)
}

func (m *ChatAPIMock) EditMessage(ctx context.Context, conversationID, messageID, text string) error {
	args := m.Called(ctx, conversationID, messageID, text)
	return args.Error(0)
}

func (m *ChatAPIMock) DeleteMessage(ctx context.Context, conversationID, messageID string) error {
	args := m.Called(ctx, conversationID, messageID)
	return args.Error(0)
}

func (m *ChatAPIMock) ClearHistory(ctx context.Context, conversationID string) error {
	args := m.Called(ctx, conversationID)
	return args.Error(0)
}

func (m *ChatAPIMock) GetUnreadCounts(ctx context.Context, email string) (map[string]int, error) {
	args := m.Called(ctx, email)
	var counts map[string]int
	if val := args.Get(0); val != nil {
		counts = val.(map[string]int)
	}
	return counts, args.Error(1)
}

func (m *ChatAPIMock) MarkRead(ctx context.Context, conversationID string, role models.Role) error {
	args := m.Called(ctx, conversationID, role)
	return args.Error(0)
}

type OrderAPIMock struct {
	mock.Mock
}

func (m *OrderAPIMock) GetOrder(ctx context.Context, orderID string) ([]byte, error) {
	args := m.Called(ctx, orderID)
	var raw []byte
	if val := args.Get(0); val != nil {
		raw = val.([]byte)
	}
	return raw, args.Error(1)
}

type NotifierMock struct {
	mock.Mock
}

func (m *NotifierMock) Notify(ctx context.Context, n models.Notification) error {
	args := m.Called(ctx, n)
	return args.Error(0)
}
