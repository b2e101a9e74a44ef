package ws

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	json "github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"portal-chat/internal/identity"
	"portal-chat/internal/models"
	"portal-chat/internal/observability"
)

// Inbound receives dashboard connection lifecycle and browser events. Every
// Connected is paired with exactly one Disconnected.
type Inbound interface {
	Connected(ctx context.Context, viewer identity.Viewer)
	Disconnected(ctx context.Context, viewer identity.Viewer)
	HandleInbound(ctx context.Context, viewer identity.Viewer, event models.ClientEvent) error
}

// Handler upgrades dashboard websocket connections.
type Handler struct {
	hub     *Hub
	secret  string
	inbound Inbound
	logger  *slog.Logger
}

// NewHandler constructs a Handler.
func NewHandler(hub *Hub, secret string, inbound Inbound, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{hub: hub, secret: secret, inbound: inbound, logger: logger}
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Handle authenticates the viewer, upgrades the connection and registers it.
func (h *Handler) Handle(c *gin.Context) {
	ctx, span := otel.Tracer("portal-gateway/ws").Start(c.Request.Context(), "ws.handshake",
		trace.WithSpanKind(trace.SpanKindServer))
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	token, ok := identity.BearerToken(c.GetHeader("Authorization"))
	if !ok {
		token = c.Query("token")
	}
	viewer, err := identity.Parse(h.secret, token)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
		return
	}
	span.SetAttributes(attribute.String("viewer.role", string(viewer.Role)))

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", "err", err)
		return
	}
	info := ConnInfo{
		ConnID:      uuid.NewString(),
		Email:       viewer.Email,
		Role:        viewer.Role,
		IP:          observability.ClientIP(c.Request),
		RequestID:   observability.RequestID(c),
		TraceID:     span.SpanContext().TraceID().String(),
		ConnectedAt: time.Now(),
	}
	cl := h.hub.Add(conn, info)
	observability.IncWSActive()
	h.logger.Info("websocket connected", "conn_id", info.ConnID, "viewer", info.Email, "ip", info.IP, "request_id", info.RequestID)

	// the request context ends when Handle returns
	connCtx := context.WithoutCancel(ctx)
	if h.inbound != nil {
		h.inbound.Connected(connCtx, viewer)
	}
	go h.readLoop(connCtx, cl, viewer)
}

func (h *Handler) readLoop(ctx context.Context, cl *client, viewer identity.Viewer) {
	var closeReason string
	defer func() {
		remaining := h.hub.Remove(cl)
		observability.DecWSActive()
		_ = cl.conn.Close()
		h.logger.Info("websocket disconnected",
			"conn_id", cl.info.ConnID,
			"viewer", cl.info.Email,
			"duration_ms", time.Since(cl.info.ConnectedAt).Milliseconds(),
			"reason", closeReason,
			"remaining", remaining,
		)
		if h.inbound != nil {
			h.inbound.Disconnected(ctx, viewer)
		}
	}()

	for {
		_, data, err := cl.conn.ReadMessage()
		if err != nil {
			closeReason = err.Error()
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				h.logger.Warn("websocket read error", "conn_id", cl.info.ConnID, "err", err)
			}
			return
		}
		var event models.ClientEvent
		if err := json.Unmarshal(data, &event); err != nil {
			h.logger.Warn("invalid client event", "conn_id", cl.info.ConnID, "err", err)
			continue
		}
		if h.inbound == nil {
			continue
		}
		if err := h.inbound.HandleInbound(ctx, viewer, event); err != nil {
			h.hub.Send(viewer.Email, models.ChatEvent{Type: models.EventError, Error: err.Error()})
		}
	}
}
