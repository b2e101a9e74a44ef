package mockapi

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"portal-chat/internal/models"
	"portal-chat/internal/orders"
	"portal-chat/internal/repositories"
)

// DefaultTypingTTL drops typing flags not refreshed within this window.
const DefaultTypingTTL = 5 * time.Second

// Handler serves the backend chat REST API from the repositories.
type Handler struct {
	conversations repositories.ConversationRepository
	messages      repositories.MessageRepository
	typing        repositories.TypingRepository
	orders        repositories.OrderRepository
	typingTTL     time.Duration
	now           func() time.Time
	logger        *slog.Logger
}

// NewHandler builds a Handler.
func NewHandler(conversations repositories.ConversationRepository, messages repositories.MessageRepository, typing repositories.TypingRepository, orders repositories.OrderRepository, typingTTL time.Duration, logger *slog.Logger) *Handler {
	if typingTTL <= 0 {
		typingTTL = DefaultTypingTTL
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		conversations: conversations,
		messages:      messages,
		typing:        typing,
		orders:        orders,
		typingTTL:     typingTTL,
		now:           time.Now,
		logger:        logger,
	}
}

// Register mounts the backend routes.
func (h *Handler) Register(r gin.IRouter) {
	chat := r.Group("/api/chat/:conversation_id")
	chat.GET("/messages", h.ListMessages)
	chat.POST("/messages", h.PostMessage)
	chat.DELETE("/messages", h.ClearMessages)
	chat.PUT("/messages/:message_id", h.EditMessage)
	chat.DELETE("/messages/:message_id", h.DeleteMessage)
	chat.GET("/typing", h.GetTyping)
	chat.POST("/typing", h.SetTyping)
	chat.POST("/read", h.MarkRead)

	r.GET("/api/unread", h.UnreadCounts)
	r.GET("/api/orders/:order_id", h.GetOrder)
	r.PUT("/api/orders/:order_id", h.PutOrder)
}

func (h *Handler) ensure(c *gin.Context) (string, bool) {
	conversationID := c.Param("conversation_id")
	if strings.TrimSpace(conversationID) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid conversation id"})
		return "", false
	}
	if _, err := h.conversations.EnsureConversation(c.Request.Context(), conversationID); err != nil {
		h.logger.Error("ensure conversation", "conversation_id", conversationID, "err", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load conversation"})
		return "", false
	}
	return conversationID, true
}

// ListMessages returns the conversation history.
func (h *Handler) ListMessages(c *gin.Context) {
	conversationID, ok := h.ensure(c)
	if !ok {
		return
	}
	msgs, err := h.messages.ListMessages(c.Request.Context(), conversationID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load messages"})
		return
	}
	if msgs == nil {
		msgs = []models.Message{}
	}
	c.JSON(http.StatusOK, gin.H{"messages": msgs})
}

// PostMessage appends a message.
func (h *Handler) PostMessage(c *gin.Context) {
	var req models.NewMessage
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}
	req.Text = strings.TrimSpace(req.Text)
	if req.Text == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "text is required"})
		return
	}
	if !req.SenderRole.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid sender role"})
		return
	}
	conversationID, ok := h.ensure(c)
	if !ok {
		return
	}

	msg, err := h.messages.CreateMessage(c.Request.Context(), conversationID, req)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create message"})
		return
	}
	c.JSON(http.StatusCreated, msg)
}

// EditMessage replaces a message text.
func (h *Handler) EditMessage(c *gin.Context) {
	var req struct {
		Text string `json:"text" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Text) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}
	err := h.messages.UpdateText(c.Request.Context(), c.Param("conversation_id"), c.Param("message_id"), strings.TrimSpace(req.Text))
	if h.messageError(c, err, "failed to edit message") {
		return
	}
	c.Status(http.StatusNoContent)
}

// DeleteMessage removes one message.
func (h *Handler) DeleteMessage(c *gin.Context) {
	err := h.messages.DeleteMessage(c.Request.Context(), c.Param("conversation_id"), c.Param("message_id"))
	if h.messageError(c, err, "failed to delete message") {
		return
	}
	c.Status(http.StatusNoContent)
}

// ClearMessages removes the whole history.
func (h *Handler) ClearMessages(c *gin.Context) {
	if err := h.messages.ClearConversation(c.Request.Context(), c.Param("conversation_id")); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to clear messages"})
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) messageError(c *gin.Context, err error, msg string) bool {
	switch {
	case err == nil:
		return false
	case errors.Is(err, repositories.ErrMessageNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "message not found"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": msg})
	}
	return true
}

// GetTyping lists roles with a fresh typing flag.
func (h *Handler) GetTyping(c *gin.Context) {
	roles, err := h.typing.ActiveRoles(c.Request.Context(), c.Param("conversation_id"), h.now().Add(-h.typingTTL))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load typing status"})
		return
	}
	if roles == nil {
		roles = []models.Role{}
	}
	c.JSON(http.StatusOK, gin.H{"typing": roles})
}

// SetTyping stores the typing flag of a role.
func (h *Handler) SetTyping(c *gin.Context) {
	var req struct {
		Role   models.Role `json:"role" binding:"required"`
		Typing bool        `json:"typing"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || !req.Role.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}
	conversationID, ok := h.ensure(c)
	if !ok {
		return
	}
	if err := h.typing.SetTyping(c.Request.Context(), conversationID, req.Role, req.Typing); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to set typing status"})
		return
	}
	c.Status(http.StatusNoContent)
}

// MarkRead marks messages from other roles as read.
func (h *Handler) MarkRead(c *gin.Context) {
	var req struct {
		Role models.Role `json:"role" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || !req.Role.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}
	if err := h.messages.MarkRead(c.Request.Context(), c.Param("conversation_id"), req.Role); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to mark read"})
		return
	}
	c.Status(http.StatusNoContent)
}

// UnreadCounts returns per-conversation unread counts of a customer.
func (h *Handler) UnreadCounts(c *gin.Context) {
	email := strings.TrimSpace(c.Query("email"))
	if email == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "email is required"})
		return
	}
	counts, err := h.messages.UnreadCounts(c.Request.Context(), email)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load unread counts"})
		return
	}
	if counts == nil {
		counts = map[string]int{}
	}
	c.JSON(http.StatusOK, gin.H{"counts": counts})
}

// GetOrder returns the stored order document unchanged.
func (h *Handler) GetOrder(c *gin.Context) {
	body, err := h.orders.GetOrder(c.Request.Context(), c.Param("order_id"))
	if errors.Is(err, repositories.ErrOrderNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "order not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load order"})
		return
	}
	c.Data(http.StatusOK, "application/json", body)
}

// PutOrder stores an order document in any of the supported shapes. The
// customer email comes from the email query parameter or the document.
func (h *Handler) PutOrder(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid order document"})
		return
	}
	view, err := orders.Normalize(body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if view.OrderID != c.Param("order_id") {
		c.JSON(http.StatusBadRequest, gin.H{"error": "order id does not match document"})
		return
	}
	email := c.Query("email")
	if email == "" {
		email = view.CustomerEmail
	}
	if err := h.orders.PutOrder(c.Request.Context(), view.OrderID, email, body); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to store order"})
		return
	}
	c.Status(http.StatusNoContent)
}
