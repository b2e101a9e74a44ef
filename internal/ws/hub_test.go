package ws

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"portal-chat/internal/identity"
	"portal-chat/internal/models"
)

const secret = "ws-secret"

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestHubAddAndRemove(t *testing.T) {
	hub := NewHub(quietLogger())

	first := hub.Add(nil, ConnInfo{Email: "ann@example.com"})
	second := hub.Add(nil, ConnInfo{Email: "ann@example.com"})
	assert.Equal(t, 2, hub.Connections("ann@example.com"))

	assert.Equal(t, 1, hub.Remove(first))
	assert.Equal(t, 0, hub.Remove(second))
	assert.Zero(t, hub.Connections("ann@example.com"))
	assert.Empty(t, hub.viewers)
}

func TestSendWithoutConnections(t *testing.T) {
	hub := NewHub(quietLogger())
	assert.Zero(t, hub.Send("nobody@example.com", models.ChatEvent{Type: models.EventState}))
	assert.NoError(t, hub.Notify(context.Background(), models.Notification{ViewerEmail: "nobody@example.com"}))
}

type recordingInbound struct {
	mu           sync.Mutex
	connected    []string
	disconnected []string
	events       []models.ClientEvent
}

func (r *recordingInbound) Connected(ctx context.Context, viewer identity.Viewer) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.connected = append(r.connected, viewer.Email)
}

func (r *recordingInbound) Disconnected(ctx context.Context, viewer identity.Viewer) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.disconnected = append(r.disconnected, viewer.Email)
}

func (r *recordingInbound) HandleInbound(ctx context.Context, viewer identity.Viewer, event models.ClientEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return nil
}

func (r *recordingInbound) snapshot() (int, int, int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.connected), len(r.disconnected), len(r.events)
}

func newServer(t *testing.T, inbound Inbound) (*Hub, *httptest.Server) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	hub := NewHub(quietLogger())
	r := gin.New()
	r.GET("/ws", NewHandler(hub, secret, inbound, quietLogger()).Handle)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return hub, srv
}

func wsURL(srv *httptest.Server, token string) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws?token=" + token
}

func TestHandlerRejectsInvalidToken(t *testing.T) {
	_, srv := newServer(t, nil)

	_, resp, err := websocket.DefaultDialer.Dial(wsURL(srv, "garbage"), nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestHandlerPushesAndReceivesEvents(t *testing.T) {
	inbound := &recordingInbound{}
	hub, srv := newServer(t, inbound)
	token, err := identity.Issue(secret, identity.Viewer{Email: "ann@example.com", Role: models.RoleCustomer}, time.Hour)
	require.NoError(t, err)

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(srv, token), nil)
	require.NoError(t, err)

	require.Eventually(t, func() bool { return hub.Connections("ann@example.com") == 1 }, time.Second, 5*time.Millisecond)

	hub.RendererFor("ann@example.com").Render(models.ChatEvent{Type: models.EventHistory, ConversationID: "order-1"})
	var got models.ChatEvent
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(time.Second)))
	require.NoError(t, conn.ReadJSON(&got))
	assert.Equal(t, models.EventHistory, got.Type)
	assert.Equal(t, "order-1", got.ConversationID)

	require.NoError(t, hub.Notify(context.Background(), models.Notification{ViewerEmail: "ann@example.com", ConversationID: "order-2", Count: 1}))
	require.NoError(t, conn.ReadJSON(&got))
	assert.Equal(t, models.EventNotification, got.Type)
	require.NotNil(t, got.Notification)
	assert.Equal(t, "order-2", got.Notification.ConversationID)

	require.NoError(t, conn.WriteJSON(models.ClientEvent{Type: models.ClientFocus, Focused: true}))
	require.Eventually(t, func() bool {
		_, _, events := inbound.snapshot()
		return events == 1
	}, time.Second, 5*time.Millisecond)

	require.NoError(t, conn.Close())
	require.Eventually(t, func() bool {
		connected, disconnected, _ := inbound.snapshot()
		return connected == 1 && disconnected == 1
	}, time.Second, 5*time.Millisecond)
	assert.Zero(t, hub.Connections("ann@example.com"))
}
