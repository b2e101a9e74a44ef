package models

// Event types pushed to the browser.
const (
	EventHistory      = "history"
	EventTyping       = "typing"
	EventState        = "state"
	EventUnread       = "unread"
	EventNotification = "notification"
	EventError        = "error"
)

// ChatEvent is pushed to dashboard websocket connections.
type ChatEvent struct {
	Type           string         `json:"type"`
	ConversationID string         `json:"conversation_id,omitempty"`
	State          string         `json:"state,omitempty"`
	Messages       []Message      `json:"messages,omitempty"`
	Typing         []Role         `json:"typing,omitempty"`
	ScrollToBottom bool           `json:"scroll_to_bottom,omitempty"`
	Draft          *string        `json:"draft,omitempty"`
	EditingID      string         `json:"editing_id,omitempty"`
	Sending        bool           `json:"sending,omitempty"`
	Counts         map[string]int `json:"counts,omitempty"`
	Notification   *Notification  `json:"notification,omitempty"`
	Error          string         `json:"error,omitempty"`
}

// Notification describes a desktop notification for an unread-count increase.
type Notification struct {
	ViewerEmail    string `json:"viewer_email"`
	ConversationID string `json:"conversation_id"`
	OrderID        string `json:"order_id"`
	Title          string `json:"title"`
	Body           string `json:"body"`
	Icon           string `json:"icon,omitempty"`
	Count          int    `json:"count"`
	Action         string `json:"action"`
}

// ClientEvent is sent by the browser over the dashboard websocket.
type ClientEvent struct {
	Type       string `json:"type"`
	Focused    bool   `json:"focused,omitempty"`
	Permission string `json:"permission,omitempty"`
	Text       string `json:"text,omitempty"`
}

// Client event types.
const (
	ClientFocus      = "focus"
	ClientPermission = "permission"
	ClientCompose    = "compose"
)
