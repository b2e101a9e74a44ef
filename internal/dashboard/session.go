package dashboard

import (
	"sync/atomic"
	"time"

	"portal-chat/internal/chat"
	"portal-chat/internal/identity"
	"portal-chat/internal/models"
	"portal-chat/internal/notify"
	"portal-chat/internal/unread"
)

// Session is the live dashboard of one signed-in viewer.
type Session struct {
	Viewer     identity.Viewer
	Chat       *chat.Conversation
	Unread     *unread.Watcher
	Permission notify.Permission

	focused atomic.Bool

	// guarded by Manager.mu
	conns    int
	lastSeen time.Time
}

// SetFocused records whether the viewer's dashboard window has focus.
func (s *Session) SetFocused(focused bool) {
	s.focused.Store(focused)
}

func (s *Session) Focused() bool {
	return s.focused.Load()
}

// Active reports the open conversation and window focus. A minimized or
// closed conversation is not active.
func (s *Session) Active() (string, bool) {
	id, state := s.Chat.Current()
	if state != chat.StateOpen {
		return "", false
	}
	return id, s.focused.Load()
}

// Snapshot is the JSON rendering of a session.
type Snapshot struct {
	Viewer         identity.Viewer  `json:"viewer"`
	ConversationID string           `json:"conversation_id,omitempty"`
	State          string           `json:"state"`
	Messages       []models.Message `json:"messages"`
	Typing         []models.Role    `json:"typing"`
	Draft          string           `json:"draft"`
	EditingID      string           `json:"editing_id,omitempty"`
	Sending        bool             `json:"sending"`
	Error          string           `json:"error,omitempty"`
	Unread         map[string]int   `json:"unread"`
	Permission     string           `json:"permission"`
	Focused        bool             `json:"focused"`
}

func (s *Session) Snapshot() Snapshot {
	view := s.Chat.View()
	snap := Snapshot{
		Viewer:         s.Viewer,
		ConversationID: view.ConversationID,
		State:          view.State.String(),
		Messages:       view.Messages,
		Typing:         view.Typing,
		Draft:          view.Draft,
		EditingID:      view.EditingID,
		Sending:        view.Sending,
		Unread:         s.Unread.Counts(),
		Permission:     s.Permission.State().String(),
		Focused:        s.Focused(),
	}
	if snap.Messages == nil {
		snap.Messages = []models.Message{}
	}
	if snap.Typing == nil {
		snap.Typing = []models.Role{}
	}
	if view.Err != nil {
		snap.Error = view.Err.Error()
	}
	return snap
}
