package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"portal-chat/internal/models"
	"portal-chat/internal/notify"
)

var (
	_ notify.Publisher = (*PublisherMock)(nil)
	_ notify.Notifier  = (*NotifierMock)(nil)
)

// PublisherMock stands in for the notification exchange.
type PublisherMock struct {
	mock.Mock
}

func (m *PublisherMock) Publish(ctx context.Context, routingKey string, event any) error {
	args := m.Called(ctx, routingKey, event)
	return args.Error(0)
}

func (m *PublisherMock) Close() error {
	args := m.Called()
	return args.Error(0)
}

// Envelopes returns the notification envelopes published under routingKey.
func (m *PublisherMock) Envelopes(routingKey string) []notify.Envelope {
	var out []notify.Envelope
	for _, call := range m.Calls {
		if call.Method != "Publish" || call.Arguments.String(1) != routingKey {
			continue
		}
		if e, ok := call.Arguments.Get(2).(notify.Envelope); ok {
			out = append(out, e)
		}
	}
	return out
}

// Payloads returns the notifications carried by the published envelopes.
func (m *PublisherMock) Payloads(routingKey string) []models.Notification {
	envelopes := m.Envelopes(routingKey)
	out := make([]models.Notification, len(envelopes))
	for i, e := range envelopes {
		out[i] = e.Payload
	}
	return out
}
