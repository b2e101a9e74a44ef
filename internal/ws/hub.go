package ws

import (
	"context"
	"log/slog"
	"sync"
	"time"

	json "github.com/goccy/go-json"
	"github.com/gorilla/websocket"

	"portal-chat/internal/models"
	"portal-chat/internal/observability"
)

const writeWait = 10 * time.Second

type client struct {
	conn *websocket.Conn
	info ConnInfo
	mu   sync.Mutex
}

func (cl *client) write(payload []byte) error {
	cl.mu.Lock()
	defer cl.mu.Unlock()
	_ = cl.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return cl.conn.WriteMessage(websocket.TextMessage, payload)
}

// Hub maintains the active dashboard connections of every viewer.
type Hub struct {
	viewers map[string]map[*client]struct{}
	mu      sync.RWMutex
	logger  *slog.Logger
}

// NewHub creates an empty hub.
func NewHub(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		viewers: make(map[string]map[*client]struct{}),
		logger:  logger,
	}
}

// Add registers a connection for the viewer identified by info.Email.
func (h *Hub) Add(conn *websocket.Conn, info ConnInfo) *client {
	cl := &client{conn: conn, info: info}
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.viewers[info.Email]; !ok {
		h.viewers[info.Email] = make(map[*client]struct{})
	}
	h.viewers[info.Email][cl] = struct{}{}
	return cl
}

// Remove drops a connection and reports how many the viewer still has.
func (h *Hub) Remove(cl *client) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	email := cl.info.Email
	conns, ok := h.viewers[email]
	if !ok {
		return 0
	}
	delete(conns, cl)
	if len(conns) == 0 {
		delete(h.viewers, email)
		return 0
	}
	return len(conns)
}

// Connections reports the number of open connections of a viewer.
func (h *Hub) Connections(email string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.viewers[email])
}

// Send writes event to all connections of a viewer and reports how many
// received it. Connections that fail are closed; their read loop removes them.
func (h *Hub) Send(email string, event models.ChatEvent) int {
	h.mu.RLock()
	clients := make([]*client, 0, len(h.viewers[email]))
	for cl := range h.viewers[email] {
		clients = append(clients, cl)
	}
	h.mu.RUnlock()
	if len(clients) == 0 {
		return 0
	}

	payload, err := json.Marshal(event)
	if err != nil {
		h.logger.Error("encode websocket event", "type", event.Type, "err", err)
		return 0
	}
	delivered := 0
	for _, cl := range clients {
		if err := cl.write(payload); err != nil {
			h.logger.Warn("websocket write error", "conn_id", cl.info.ConnID, "viewer", email, "err", err)
			_ = cl.conn.Close()
			continue
		}
		delivered++
	}
	return delivered
}

// RendererFor returns a renderer that pushes events to a viewer.
func (h *Hub) RendererFor(email string) *ViewerRenderer {
	return &ViewerRenderer{hub: h, email: email}
}

// ViewerRenderer pushes view updates to one viewer's connections.
type ViewerRenderer struct {
	hub   *Hub
	email string
}

func (r *ViewerRenderer) Render(event models.ChatEvent) {
	r.hub.Send(r.email, event)
}

// Notify delivers a notification event to the viewer's browser. A viewer with
// no open connection is skipped.
func (h *Hub) Notify(ctx context.Context, n models.Notification) error {
	event := models.ChatEvent{
		Type:           models.EventNotification,
		ConversationID: n.ConversationID,
		Notification:   &n,
	}
	if h.Send(n.ViewerEmail, event) > 0 {
		observability.IncNotification("browser")
	}
	return nil
}
