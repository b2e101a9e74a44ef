package api

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"portal-chat/internal/models"
)

const requestIDHeader = "X-Request-ID"

// Client talks to the backend REST API.
type Client struct {
	http *resty.Client
}

// NewClient builds a Client for baseURL. An empty token disables bearer auth.
func NewClient(baseURL, token string, timeout time.Duration) *Client {
	rc := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetHeader("Accept", "application/json").
		SetJSONMarshaler(json.Marshal).
		SetJSONUnmarshaler(json.Unmarshal)
	if token != "" {
		rc.SetAuthToken(token)
	}
	rc.OnBeforeRequest(func(_ *resty.Client, r *resty.Request) error {
		if r.Header.Get(requestIDHeader) == "" {
			r.SetHeader(requestIDHeader, uuid.NewString())
		}
		return nil
	})
	return &Client{http: rc}
}

func (c *Client) request(ctx context.Context) *resty.Request {
	return c.http.R().SetContext(ctx).SetError(&errorBody{})
}

func check(op string, resp *resty.Response, err error) error {
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if resp.IsError() {
		se := &StatusError{Op: op, Code: resp.StatusCode()}
		if body, ok := resp.Error().(*errorBody); ok && body != nil {
			se.Message = body.Error
		}
		return se
	}
	return nil
}

// GetHistory returns the ordered message history of a conversation.
func (c *Client) GetHistory(ctx context.Context, conversationID string) ([]models.Message, error) {
	var out struct {
		Messages []models.Message `json:"messages"`
	}
	resp, err := c.request(ctx).
		SetPathParam("conversation", conversationID).
		SetResult(&out).
		Get("/api/chat/{conversation}/messages")
	if err := check("get history", resp, err); err != nil {
		return nil, err
	}
	return out.Messages, nil
}

// GetTyping returns the roles currently typing in a conversation.
func (c *Client) GetTyping(ctx context.Context, conversationID string) ([]models.Role, error) {
	var out struct {
		Typing []models.Role `json:"typing"`
	}
	resp, err := c.request(ctx).
		SetPathParam("conversation", conversationID).
		SetResult(&out).
		Get("/api/chat/{conversation}/typing")
	if err := check("get typing", resp, err); err != nil {
		return nil, err
	}
	return out.Typing, nil
}

// SetTyping sets the typing flag of role in a conversation.
func (c *Client) SetTyping(ctx context.Context, conversationID string, role models.Role, typing bool) error {
	resp, err := c.request(ctx).
		SetPathParam("conversation", conversationID).
		SetBody(map[string]any{"role": role, "typing": typing}).
		Post("/api/chat/{conversation}/typing")
	return check("set typing", resp, err)
}

// SendMessage posts a new message and returns the stored copy.
func (c *Client) SendMessage(ctx context.Context, conversationID string, msg models.NewMessage) (models.Message, error) {
	var out models.Message
	resp, err := c.request(ctx).
		SetPathParam("conversation", conversationID).
		SetBody(msg).
		SetResult(&out).
		Post("/api/chat/{conversation}/messages")
	if err := check("send message", resp, err); err != nil {
		return models.Message{}, err
	}
	return out, nil
}

// EditMessage replaces the text of a message.
func (c *Client) EditMessage(ctx context.Context, conversationID, messageID, text string) error {
	resp, err := c.request(ctx).
		SetPathParams(map[string]string{"conversation": conversationID, "message": messageID}).
		SetBody(map[string]string{"text": text}).
		Put("/api/chat/{conversation}/messages/{message}")
	return check("edit message", resp, err)
}

// DeleteMessage removes a message.
func (c *Client) DeleteMessage(ctx context.Context, conversationID, messageID string) error {
	resp, err := c.request(ctx).
		SetPathParams(map[string]string{"conversation": conversationID, "message": messageID}).
		Delete("/api/chat/{conversation}/messages/{message}")
	return check("delete message", resp, err)
}

// ClearHistory removes every message of a conversation.
func (c *Client) ClearHistory(ctx context.Context, conversationID string) error {
	resp, err := c.request(ctx).
		SetPathParam("conversation", conversationID).
		Delete("/api/chat/{conversation}/messages")
	return check("clear history", resp, err)
}

// GetUnreadCounts returns unread counts per conversation for a viewer.
func (c *Client) GetUnreadCounts(ctx context.Context, email string) (map[string]int, error) {
	var out struct {
		Counts map[string]int `json:"counts"`
	}
	resp, err := c.request(ctx).
		SetQueryParam("email", email).
		SetResult(&out).
		Get("/api/unread")
	if err := check("get unread counts", resp, err); err != nil {
		return nil, err
	}
	if out.Counts == nil {
		out.Counts = map[string]int{}
	}
	return out.Counts, nil
}

// MarkRead marks the messages of a conversation as read for role.
func (c *Client) MarkRead(ctx context.Context, conversationID string, role models.Role) error {
	resp, err := c.request(ctx).
		SetPathParam("conversation", conversationID).
		SetBody(map[string]any{"role": role}).
		Post("/api/chat/{conversation}/read")
	return check("mark read", resp, err)
}

// GetOrder returns the raw JSON document of an order.
func (c *Client) GetOrder(ctx context.Context, orderID string) ([]byte, error) {
	resp, err := c.request(ctx).
		SetPathParam("order", orderID).
		Get("/api/orders/{order}")
	if err := check("get order", resp, err); err != nil {
		return nil, err
	}
	return resp.Body(), nil
}

var (
	_ ChatAPI  = (*Client)(nil)
	_ OrderAPI = (*Client)(nil)
)
