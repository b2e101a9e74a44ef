package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"portal-chat/internal/api"
	"portal-chat/internal/chat"
	"portal-chat/internal/dashboard"
	"portal-chat/internal/middleware"
	"portal-chat/internal/notify"
	"portal-chat/internal/orders"
)

// DashboardHandler exposes the viewer's dashboard session over REST.
type DashboardHandler struct {
	manager *dashboard.Manager
	orders  api.OrderAPI
	logger  *slog.Logger
}

// NewDashboardHandler builds a DashboardHandler.
func NewDashboardHandler(manager *dashboard.Manager, orderAPI api.OrderAPI, logger *slog.Logger) *DashboardHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &DashboardHandler{manager: manager, orders: orderAPI, logger: logger}
}

// Register mounts the dashboard routes. Callers apply authentication.
func (h *DashboardHandler) Register(r gin.IRouter) {
	r.GET("/dashboard", h.GetDashboard)
	r.POST("/conversations/:conversation_id/open", h.OpenConversation)
	r.POST("/conversation/minimize", h.Minimize)
	r.POST("/conversation/restore", h.Restore)
	r.POST("/conversation/close", h.CloseConversation)
	r.POST("/conversation/draft", h.Compose)
	r.POST("/conversation/edit", h.StartEdit)
	r.DELETE("/conversation/edit", h.CancelEdit)
	r.POST("/conversation/send", h.Send)
	r.DELETE("/conversation/messages/:message_id", h.DeleteMessage)
	r.DELETE("/conversation/messages", h.ClearHistory)
	r.POST("/focus", h.SetFocus)
	r.POST("/notifications/permission", h.SetPermission)
	r.GET("/orders/:order_id", h.GetOrder)
}

func (h *DashboardHandler) session(c *gin.Context) (*dashboard.Session, bool) {
	viewer, ok := middleware.Viewer(c)
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing viewer"})
		return nil, false
	}
	return h.manager.Session(c.Request.Context(), viewer), true
}

func (h *DashboardHandler) snapshot(c *gin.Context, s *dashboard.Session) {
	c.JSON(http.StatusOK, s.Snapshot())
}

// GetDashboard returns the viewer's session state.
func (h *DashboardHandler) GetDashboard(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	h.snapshot(c, s)
}

// OpenConversation opens a conversation and starts polling it.
func (h *DashboardHandler) OpenConversation(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	id := strings.TrimSpace(c.Param("conversation_id"))
	if id == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid conversation id"})
		return
	}
	s.Chat.Open(c.Request.Context(), id)
	h.snapshot(c, s)
}

// Minimize stops polling the open conversation.
func (h *DashboardHandler) Minimize(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	if err := s.Chat.Minimize(); err != nil {
		h.chatError(c, err)
		return
	}
	h.snapshot(c, s)
}

// Restore resumes polling a minimized conversation.
func (h *DashboardHandler) Restore(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	if err := s.Chat.Restore(c.Request.Context()); err != nil {
		h.chatError(c, err)
		return
	}
	h.snapshot(c, s)
}

// CloseConversation closes the conversation.
func (h *DashboardHandler) CloseConversation(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	s.Chat.Close(c.Request.Context())
	h.snapshot(c, s)
}

// Compose updates the draft and signals typing.
func (h *DashboardHandler) Compose(c *gin.Context) {
	var req struct {
		Text string `json:"text"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}
	s, ok := h.session(c)
	if !ok {
		return
	}
	if err := s.Chat.Compose(c.Request.Context(), req.Text); err != nil {
		h.chatError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// StartEdit loads a message into the composer for editing.
func (h *DashboardHandler) StartEdit(c *gin.Context) {
	var req struct {
		MessageID string `json:"message_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}
	s, ok := h.session(c)
	if !ok {
		return
	}
	if err := s.Chat.Edit(req.MessageID); err != nil {
		h.chatError(c, err)
		return
	}
	h.snapshot(c, s)
}

// CancelEdit leaves edit mode.
func (h *DashboardHandler) CancelEdit(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	s.Chat.CancelEdit()
	h.snapshot(c, s)
}

// Send delivers the draft.
func (h *DashboardHandler) Send(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	if err := s.Chat.Send(c.Request.Context()); err != nil {
		h.chatError(c, err)
		return
	}
	h.snapshot(c, s)
}

// DeleteMessage removes a message. Requires confirm=true.
func (h *DashboardHandler) DeleteMessage(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	if err := s.Chat.Delete(c.Request.Context(), c.Param("message_id"), queryConfirmer(c)); err != nil {
		h.chatError(c, err)
		return
	}
	h.snapshot(c, s)
}

// ClearHistory removes the whole history. Requires confirm=true.
func (h *DashboardHandler) ClearHistory(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	if err := s.Chat.Clear(c.Request.Context(), queryConfirmer(c)); err != nil {
		h.chatError(c, err)
		return
	}
	h.snapshot(c, s)
}

// SetFocus records window focus.
func (h *DashboardHandler) SetFocus(c *gin.Context) {
	var req struct {
		Focused bool `json:"focused"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}
	s, ok := h.session(c)
	if !ok {
		return
	}
	s.SetFocused(req.Focused)
	c.Status(http.StatusNoContent)
}

// SetPermission records the browser notification permission.
func (h *DashboardHandler) SetPermission(c *gin.Context) {
	var req struct {
		Permission string `json:"permission" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}
	s, ok := h.session(c)
	if !ok {
		return
	}
	s.Permission.Set(notify.ParsePermission(req.Permission))
	c.JSON(http.StatusOK, gin.H{"permission": s.Permission.State().String()})
}

// GetOrder returns the normalized order detail.
func (h *DashboardHandler) GetOrder(c *gin.Context) {
	if _, ok := middleware.Viewer(c); !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing viewer"})
		return
	}
	raw, err := h.orders.GetOrder(c.Request.Context(), c.Param("order_id"))
	if api.IsNotFound(err) {
		c.JSON(http.StatusNotFound, gin.H{"error": "order not found"})
		return
	}
	if err != nil {
		h.logger.Error("get order failed", "order_id", c.Param("order_id"), "err", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "failed to load order"})
		return
	}
	view, err := orders.Normalize(raw)
	if err != nil {
		h.logger.Warn("order not normalized", "order_id", c.Param("order_id"), "err", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "unsupported order format"})
		return
	}
	c.JSON(http.StatusOK, view)
}

func queryConfirmer(c *gin.Context) chat.Confirmer {
	return chat.ConfirmFunc(func(string) bool {
		return c.Query("confirm") == "true"
	})
}

func (h *DashboardHandler) chatError(c *gin.Context, err error) {
	var ae *chat.ActionError
	switch {
	case errors.Is(err, chat.ErrNotOpen), errors.Is(err, chat.ErrNotMinimized), errors.Is(err, chat.ErrBusy):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, chat.ErrEmptyMessage):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, chat.ErrMessageNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, chat.ErrCancelled):
		c.JSON(http.StatusPreconditionRequired, gin.H{"error": "confirmation required"})
	case errors.As(err, &ae):
		c.JSON(http.StatusBadGateway, gin.H{"error": ae.Error()})
	default:
		h.logger.Error("dashboard request failed", "err", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
