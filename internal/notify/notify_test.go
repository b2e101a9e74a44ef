package notify

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"portal-chat/internal/models"
)

func sample() models.Notification {
	return models.Notification{
		ViewerEmail:    "ann@example.com",
		ConversationID: "order-7",
		OrderID:        "7",
		Title:          "New message",
		Body:           "You have 2 unread messages",
		Count:          2,
		Action:         ActionOpenConversation,
	}
}

func TestMultiDeliversToAll(t *testing.T) {
	var got []string
	first := Func(func(ctx context.Context, n models.Notification) error {
		got = append(got, "first")
		return errors.New("first failed")
	})
	second := Func(func(ctx context.Context, n models.Notification) error {
		got = append(got, "second")
		return nil
	})

	err := Multi{first, nil, second}.Notify(context.Background(), sample())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "first failed")
	assert.Equal(t, []string{"first", "second"}, got)
}

func TestMultiNoErrors(t *testing.T) {
	assert.NoError(t, Multi{Log{}}.Notify(context.Background(), sample()))
}

func TestParsePermission(t *testing.T) {
	assert.Equal(t, PermissionGranted, ParsePermission("granted"))
	assert.Equal(t, PermissionDenied, ParsePermission("denied"))
	assert.Equal(t, PermissionUnknown, ParsePermission("default"))
	assert.Equal(t, PermissionUnknown, ParsePermission(""))
}

func TestPermission(t *testing.T) {
	var p Permission
	assert.False(t, p.Granted())
	assert.Equal(t, "default", p.State().String())

	p.Set(PermissionGranted)
	assert.True(t, p.Granted())

	p.Set(PermissionDenied)
	assert.False(t, p.Granted())
	assert.Equal(t, "denied", p.State().String())
}

func TestNewPublisherWithoutURLIsNoop(t *testing.T) {
	p := NewPublisher("", "portal.events", nil)
	assert.Equal(t, "noop", PublisherMode(p))
	assert.NoError(t, p.Publish(context.Background(), RoutingUnreadIncreased, Envelope{EventType: RoutingUnreadIncreased}))
	assert.NoError(t, p.Close())
}
