package dashboard

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"portal-chat/internal/api"
	"portal-chat/internal/chat"
	"portal-chat/internal/identity"
	"portal-chat/internal/models"
	"portal-chat/internal/notify"
	"portal-chat/internal/observability"
	"portal-chat/internal/unread"
)

var ErrUnknownEvent = errors.New("unknown client event")

// DefaultIdleTTL is how long a session without websocket connections
// survives its last REST call.
const DefaultIdleTTL = 10 * time.Minute

// Renderer receives the view updates of one viewer.
type Renderer interface {
	Render(event models.ChatEvent)
}

type Options struct {
	ChatPollInterval   time.Duration
	UnreadPollInterval time.Duration
	TypingTimeout      time.Duration
	IdleTTL            time.Duration
	Icon               string
	// RendererFor returns the push channel of a viewer. Nil disables push.
	RendererFor func(email string) Renderer
	Notifier    notify.Notifier
	Logger      *slog.Logger
}

// Manager owns the dashboard sessions keyed by viewer email.
type Manager struct {
	backend api.ChatAPI
	opts    Options
	logger  *slog.Logger
	now     func() time.Time

	mu       sync.Mutex
	sessions map[string]*Session
}

func NewManager(backend api.ChatAPI, opts Options) *Manager {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.IdleTTL <= 0 {
		opts.IdleTTL = DefaultIdleTTL
	}
	return &Manager{
		backend:  backend,
		opts:     opts,
		logger:   opts.Logger,
		now:      time.Now,
		sessions: make(map[string]*Session),
	}
}

// Session returns the viewer's session, creating and starting it on first use.
// Every call counts as activity for the idle reaper.
func (m *Manager) Session(ctx context.Context, viewer identity.Viewer) *Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sessionLocked(ctx, viewer)
}

func (m *Manager) sessionLocked(ctx context.Context, viewer identity.Viewer) *Session {
	if s, ok := m.sessions[viewer.Email]; ok {
		s.lastSeen = m.now()
		return s
	}

	var renderer Renderer
	if m.opts.RendererFor != nil {
		renderer = m.opts.RendererFor(viewer.Email)
	}
	s := &Session{Viewer: viewer, lastSeen: m.now()}
	s.Unread = unread.New(m.backend, viewer.Email, unread.Options{
		Interval:   m.opts.UnreadPollInterval,
		Notifier:   m.opts.Notifier,
		Focus:      s,
		Permission: s.Permission.Granted,
		Renderer:   renderer,
		Icon:       m.opts.Icon,
		// a conversation opened before the first counts arrived
		OnBaseline: func(ctx context.Context) { s.Chat.MarkRead(ctx) },
		Logger:     m.logger,
	})
	s.Chat = chat.New(m.backend, viewer, chat.Options{
		PollInterval:  m.opts.ChatPollInterval,
		TypingTimeout: m.opts.TypingTimeout,
		Unread:        s.Unread,
		Renderer:      renderer,
		Logger:        m.logger,
	})
	s.Unread.Start(ctx)
	m.sessions[viewer.Email] = s
	observability.SetDashboardSessions(len(m.sessions))
	m.logger.Info("dashboard session started", "viewer", viewer.Email, "role", viewer.Role)
	return s
}

// Lookup returns an existing session.
func (m *Manager) Lookup(email string) (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[email]
	return s, ok
}

func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// Connected starts the viewer's session if needed, counts the connection and
// pushes the current badges and conversation state to it.
func (m *Manager) Connected(ctx context.Context, viewer identity.Viewer) {
	m.mu.Lock()
	s := m.sessionLocked(ctx, viewer)
	s.conns++
	m.mu.Unlock()

	if m.opts.RendererFor == nil {
		return
	}
	r := m.opts.RendererFor(viewer.Email)
	r.Render(models.ChatEvent{Type: models.EventUnread, Counts: s.Unread.Counts()})
	view := s.Chat.View()
	r.Render(models.ChatEvent{
		Type:           models.EventState,
		ConversationID: view.ConversationID,
		State:          view.State.String(),
		Draft:          &view.Draft,
		EditingID:      view.EditingID,
		Sending:        view.Sending,
	})
	if len(view.Messages) > 0 {
		r.Render(models.ChatEvent{
			Type:           models.EventHistory,
			ConversationID: view.ConversationID,
			Messages:       view.Messages,
			ScrollToBottom: true,
		})
	}
}

// Disconnected ends the session once the viewer's last connection is gone.
func (m *Manager) Disconnected(ctx context.Context, viewer identity.Viewer) {
	m.mu.Lock()
	s, ok := m.sessions[viewer.Email]
	if !ok {
		m.mu.Unlock()
		return
	}
	if s.conns > 0 {
		s.conns--
	}
	if s.conns > 0 {
		m.mu.Unlock()
		return
	}
	delete(m.sessions, viewer.Email)
	n := len(m.sessions)
	m.mu.Unlock()

	stopSession(ctx, s)
	observability.SetDashboardSessions(n)
	m.logger.Info("dashboard session ended", "viewer", viewer.Email)
}

// Run stops idle sessions until ctx is done.
func (m *Manager) Run(ctx context.Context) {
	ticker := time.NewTicker(m.opts.IdleTTL / 2)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.ReapIdle(ctx)
		}
	}
}

// ReapIdle stops sessions that have no websocket connection and were not
// used for IdleTTL. It returns the number of sessions stopped.
func (m *Manager) ReapIdle(ctx context.Context) int {
	cutoff := m.now().Add(-m.opts.IdleTTL)

	m.mu.Lock()
	var idle []*Session
	for email, s := range m.sessions {
		if s.conns == 0 && !s.lastSeen.After(cutoff) {
			idle = append(idle, s)
			delete(m.sessions, email)
		}
	}
	n := len(m.sessions)
	m.mu.Unlock()

	for _, s := range idle {
		stopSession(ctx, s)
		m.logger.Info("idle dashboard session ended", "viewer", s.Viewer.Email)
	}
	if len(idle) > 0 {
		observability.SetDashboardSessions(n)
	}
	return len(idle)
}

// HandleInbound applies an event sent by the viewer's browser.
func (m *Manager) HandleInbound(ctx context.Context, viewer identity.Viewer, event models.ClientEvent) error {
	s := m.Session(ctx, viewer)
	switch event.Type {
	case models.ClientFocus:
		s.SetFocused(event.Focused)
		return nil
	case models.ClientPermission:
		s.Permission.Set(notify.ParsePermission(event.Permission))
		return nil
	case models.ClientCompose:
		return s.Chat.Compose(ctx, event.Text)
	}
	return fmt.Errorf("%w: %q", ErrUnknownEvent, event.Type)
}

// Shutdown closes every session.
func (m *Manager) Shutdown(ctx context.Context) {
	m.mu.Lock()
	sessions := m.sessions
	m.sessions = make(map[string]*Session)
	m.mu.Unlock()

	for _, s := range sessions {
		stopSession(ctx, s)
	}
	observability.SetDashboardSessions(0)
}

func stopSession(ctx context.Context, s *Session) {
	s.Chat.Close(ctx)
	s.Unread.Stop()
}
