package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"portal-chat/internal/api"
	"portal-chat/internal/dashboard"
	"portal-chat/internal/identity"
	"portal-chat/internal/middleware"
	"portal-chat/internal/mocks"
	"portal-chat/internal/models"
)

var ann = identity.Viewer{Email: "ann@example.com", Role: models.RoleCustomer}

type env struct {
	backend *mocks.ChatAPIMock
	orders  *mocks.OrderAPIMock
	manager *dashboard.Manager
	router  *gin.Engine
}

func quiet() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func setupDashboardRouter(t *testing.T, viewer *identity.Viewer) *env {
	t.Helper()
	gin.SetMode(gin.TestMode)
	backend := new(mocks.ChatAPIMock)
	backend.On("GetUnreadCounts", mock.Anything, mock.Anything).Return(map[string]int{}, nil).Maybe()
	backend.On("GetHistory", mock.Anything, mock.Anything).Return([]models.Message{{ID: "m1", Text: "hello"}}, nil).Maybe()
	backend.On("GetTyping", mock.Anything, mock.Anything).Return([]models.Role{}, nil).Maybe()
	backend.On("SetTyping", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil).Maybe()
	orderAPI := new(mocks.OrderAPIMock)

	manager := dashboard.NewManager(backend, dashboard.Options{
		ChatPollInterval:   time.Hour,
		UnreadPollInterval: time.Hour,
		TypingTimeout:      time.Hour,
		Logger:             quiet(),
	})
	t.Cleanup(func() { manager.Shutdown(context.Background()) })

	r := gin.New()
	if viewer != nil {
		r.Use(func(c *gin.Context) {
			middleware.SetViewer(c, *viewer)
			c.Next()
		})
	}
	NewDashboardHandler(manager, orderAPI, quiet()).Register(r.Group("/api/v1"))
	return &env{backend: backend, orders: orderAPI, manager: manager, router: r}
}

func (e *env) do(method, path string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func decodeSnapshot(t *testing.T, rec *httptest.ResponseRecorder) dashboard.Snapshot {
	t.Helper()
	var snap dashboard.Snapshot
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&snap))
	return snap
}

func TestGetDashboard(t *testing.T) {
	e := setupDashboardRouter(t, &ann)

	rec := e.do(http.MethodGet, "/api/v1/dashboard", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	snap := decodeSnapshot(t, rec)
	assert.Equal(t, "closed", snap.State)
	assert.Equal(t, ann.Email, snap.Viewer.Email)
}

func TestDashboardRequiresViewer(t *testing.T) {
	e := setupDashboardRouter(t, nil)

	rec := e.do(http.MethodGet, "/api/v1/dashboard", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestOpenConversation(t *testing.T) {
	e := setupDashboardRouter(t, &ann)

	rec := e.do(http.MethodPost, "/api/v1/conversations/order-3/open", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	snap := decodeSnapshot(t, rec)
	assert.Equal(t, "open", snap.State)
	assert.Equal(t, "order-3", snap.ConversationID)
	e.backend.AssertNotCalled(t, "MarkRead", mock.Anything, mock.Anything, mock.Anything)
}

func TestSendFlow(t *testing.T) {
	e := setupDashboardRouter(t, &ann)
	e.backend.On("SendMessage", mock.Anything, "order-3", models.NewMessage{
		SenderRole:  models.RoleCustomer,
		SenderEmail: ann.Email,
		Text:        "need help",
	}).Return(models.Message{ID: "m2"}, nil).Once()

	require.Equal(t, http.StatusOK, e.do(http.MethodPost, "/api/v1/conversations/order-3/open", nil).Code)
	require.Equal(t, http.StatusNoContent, e.do(http.MethodPost, "/api/v1/conversation/draft", map[string]string{"text": "need help"}).Code)

	rec := e.do(http.MethodPost, "/api/v1/conversation/send", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	snap := decodeSnapshot(t, rec)
	assert.Empty(t, snap.Draft)
	assert.False(t, snap.Sending)
	e.backend.AssertCalled(t, "SetTyping", mock.Anything, "order-3", models.RoleCustomer, false)
	e.backend.AssertExpectations(t)
}

func TestSendErrors(t *testing.T) {
	e := setupDashboardRouter(t, &ann)

	assert.Equal(t, http.StatusConflict, e.do(http.MethodPost, "/api/v1/conversation/send", nil).Code)

	require.Equal(t, http.StatusOK, e.do(http.MethodPost, "/api/v1/conversations/order-3/open", nil).Code)
	assert.Equal(t, http.StatusBadRequest, e.do(http.MethodPost, "/api/v1/conversation/send", nil).Code)

	e.backend.On("SendMessage", mock.Anything, "order-3", mock.Anything).Return(nil, errors.New("boom")).Once()
	require.Equal(t, http.StatusNoContent, e.do(http.MethodPost, "/api/v1/conversation/draft", map[string]string{"text": "hi"}).Code)
	rec := e.do(http.MethodPost, "/api/v1/conversation/send", nil)
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Contains(t, rec.Body.String(), "send message failed")
}

func TestDeleteRequiresConfirm(t *testing.T) {
	e := setupDashboardRouter(t, &ann)
	e.backend.On("DeleteMessage", mock.Anything, "order-3", "m1").Return(nil).Once()
	require.Equal(t, http.StatusOK, e.do(http.MethodPost, "/api/v1/conversations/order-3/open", nil).Code)

	rec := e.do(http.MethodDelete, "/api/v1/conversation/messages/m1", nil)
	assert.Equal(t, http.StatusPreconditionRequired, rec.Code)
	e.backend.AssertNotCalled(t, "DeleteMessage", mock.Anything, mock.Anything, mock.Anything)

	rec = e.do(http.MethodDelete, "/api/v1/conversation/messages/m1?confirm=true", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	e.backend.AssertExpectations(t)
}

func TestClearRequiresConfirm(t *testing.T) {
	e := setupDashboardRouter(t, &ann)
	e.backend.On("ClearHistory", mock.Anything, "order-3").Return(nil).Once()
	require.Equal(t, http.StatusOK, e.do(http.MethodPost, "/api/v1/conversations/order-3/open", nil).Code)

	assert.Equal(t, http.StatusPreconditionRequired, e.do(http.MethodDelete, "/api/v1/conversation/messages", nil).Code)

	rec := e.do(http.MethodDelete, "/api/v1/conversation/messages?confirm=true", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decodeSnapshot(t, rec).Messages)
}

func TestEditUnknownMessage(t *testing.T) {
	e := setupDashboardRouter(t, &ann)
	require.Equal(t, http.StatusOK, e.do(http.MethodPost, "/api/v1/conversations/order-3/open", nil).Code)

	rec := e.do(http.MethodPost, "/api/v1/conversation/edit", map[string]string{"message_id": "nope"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, http.StatusBadRequest, e.do(http.MethodPost, "/api/v1/conversation/edit", map[string]string{}).Code)
}

func TestMinimizeRestoreClose(t *testing.T) {
	e := setupDashboardRouter(t, &ann)

	assert.Equal(t, http.StatusConflict, e.do(http.MethodPost, "/api/v1/conversation/minimize", nil).Code)
	require.Equal(t, http.StatusOK, e.do(http.MethodPost, "/api/v1/conversations/order-3/open", nil).Code)

	rec := e.do(http.MethodPost, "/api/v1/conversation/minimize", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "minimized", decodeSnapshot(t, rec).State)

	rec = e.do(http.MethodPost, "/api/v1/conversation/restore", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "open", decodeSnapshot(t, rec).State)
	assert.Equal(t, http.StatusConflict, e.do(http.MethodPost, "/api/v1/conversation/restore", nil).Code)

	rec = e.do(http.MethodPost, "/api/v1/conversation/close", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "closed", decodeSnapshot(t, rec).State)
}

func TestFocusAndPermission(t *testing.T) {
	e := setupDashboardRouter(t, &ann)

	assert.Equal(t, http.StatusNoContent, e.do(http.MethodPost, "/api/v1/focus", map[string]bool{"focused": true}).Code)
	rec := e.do(http.MethodPost, "/api/v1/notifications/permission", map[string]string{"permission": "granted"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"permission":"granted"}`, rec.Body.String())

	s, ok := e.manager.Lookup(ann.Email)
	require.True(t, ok)
	assert.True(t, s.Focused())
	assert.True(t, s.Permission.Granted())
}

func TestGetOrder(t *testing.T) {
	e := setupDashboardRouter(t, &ann)
	e.orders.On("GetOrder", mock.Anything, "7").Return([]byte(`{"order_id":"7","service":"EIN","status":"Filed"}`), nil).Once()
	e.orders.On("GetOrder", mock.Anything, "8").Return(nil, &api.StatusError{Op: "get order", Code: http.StatusNotFound}).Once()
	e.orders.On("GetOrder", mock.Anything, "9").Return([]byte(`{"weird":true}`), nil).Once()

	rec := e.do(http.MethodGet, "/api/v1/orders/7", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var view models.OrderView
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&view))
	assert.Equal(t, "order-7", view.ConversationID)
	assert.Equal(t, "filed", view.Status)

	assert.Equal(t, http.StatusNotFound, e.do(http.MethodGet, "/api/v1/orders/8", nil).Code)
	assert.Equal(t, http.StatusBadGateway, e.do(http.MethodGet, "/api/v1/orders/9", nil).Code)
}
