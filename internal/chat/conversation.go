package chat

import (
	"context"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"portal-chat/internal/api"
	"portal-chat/internal/identity"
	"portal-chat/internal/models"
	"portal-chat/internal/observability"
)

const (
	DefaultPollInterval  = 3 * time.Second
	DefaultTypingTimeout = 5 * time.Second
)

// State is the lifecycle state of the open conversation.
type State int

const (
	StateClosed State = iota
	StateOpen
	StateMinimized
)

func (s State) String() string {
	switch s {
	case StateOpen:
		return "open"
	case StateMinimized:
		return "minimized"
	}
	return "closed"
}

// UnreadTracker exposes the locally tracked unread badges. Reset zeroes a
// badge and reports whether it was non-zero.
type UnreadTracker interface {
	Reset(conversationID string) bool
}

// Renderer receives view updates.
type Renderer interface {
	Render(event models.ChatEvent)
}

// RenderFunc adapts a function to Renderer.
type RenderFunc func(event models.ChatEvent)

func (f RenderFunc) Render(event models.ChatEvent) {
	f(event)
}

// Options tune a Conversation. Zero values fall back to the defaults.
type Options struct {
	PollInterval  time.Duration
	TypingTimeout time.Duration
	Unread        UnreadTracker
	Renderer      Renderer
	Logger        *slog.Logger
}

// View is a snapshot of the conversation for rendering.
type View struct {
	ConversationID string
	State          State
	Messages       []models.Message
	Typing         []models.Role
	Draft          string
	EditingID      string
	Sending        bool
	Err            error
}

// Conversation keeps a polled view of one support conversation at a time.
//
// Every history fetch takes a sequence number when it starts. A response is
// applied only when no later fetch has been applied before it and the
// conversation has not been reopened or closed in the meantime.
type Conversation struct {
	backend       api.ChatAPI
	viewer        identity.Viewer
	pollInterval  time.Duration
	typingTimeout time.Duration
	unread        UnreadTracker
	renderer      Renderer
	logger        *slog.Logger

	mu         sync.Mutex
	state      State
	id         string
	generation uint64
	issuedSeq  uint64
	appliedSeq uint64
	messages   []models.Message
	typing     []models.Role
	draft      string
	editingID  string
	sending    bool
	lastErr    error
	typist     *typist
	stop       context.CancelFunc
}

// New builds a closed Conversation for viewer.
func New(backend api.ChatAPI, viewer identity.Viewer, opts Options) *Conversation {
	if opts.PollInterval <= 0 {
		opts.PollInterval = DefaultPollInterval
	}
	if opts.TypingTimeout <= 0 {
		opts.TypingTimeout = DefaultTypingTimeout
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Conversation{
		backend:       backend,
		viewer:        viewer,
		pollInterval:  opts.PollInterval,
		typingTimeout: opts.TypingTimeout,
		unread:        opts.Unread,
		renderer:      opts.Renderer,
		logger:        opts.Logger.With("viewer", viewer.Email),
	}
}

// Open shows conversationID, dropping any cached history, and starts polling.
// A positive unread badge is zeroed locally and marked read on the backend.
func (c *Conversation) Open(ctx context.Context, conversationID string) {
	c.mu.Lock()
	c.stopPollingLocked()
	previous := c.typist
	c.id = conversationID
	c.generation++
	c.state = StateOpen
	c.messages = nil
	c.typing = nil
	c.draft = ""
	c.editingID = ""
	c.sending = false
	c.lastErr = nil
	c.typist = newTypist(c.backend, conversationID, c.viewer.Role, c.typingTimeout, c.logger)
	c.startPollingLocked(ctx, c.generation)
	c.mu.Unlock()

	if previous != nil {
		previous.clear(ctx)
	}
	c.markRead(ctx, conversationID)
	c.emitState()
}

// Minimize stops polling but keeps the cached history for instant redisplay.
func (c *Conversation) Minimize() error {
	c.mu.Lock()
	if c.state != StateOpen {
		c.mu.Unlock()
		return ErrNotOpen
	}
	c.stopPollingLocked()
	c.state = StateMinimized
	c.mu.Unlock()

	c.emitState()
	return nil
}

// Restore resumes polling a minimized conversation without clearing its cache.
func (c *Conversation) Restore(ctx context.Context) error {
	c.mu.Lock()
	if c.state != StateMinimized {
		c.mu.Unlock()
		return ErrNotMinimized
	}
	c.state = StateOpen
	c.startPollingLocked(ctx, c.generation)
	id := c.id
	c.mu.Unlock()

	c.markRead(ctx, id)
	c.emitState()
	return nil
}

// Close stops polling and discards the conversation state. Results of fetches
// still in flight are ignored.
func (c *Conversation) Close(ctx context.Context) {
	c.mu.Lock()
	if c.state == StateClosed {
		c.mu.Unlock()
		return
	}
	c.stopPollingLocked()
	c.state = StateClosed
	c.generation++
	t := c.typist
	c.typist = nil
	c.messages = nil
	c.typing = nil
	c.draft = ""
	c.editingID = ""
	c.sending = false
	c.mu.Unlock()

	if t != nil {
		t.clear(ctx)
	}
	c.emitState()
}

// Compose records the composer text and signals typing.
func (c *Conversation) Compose(ctx context.Context, text string) error {
	c.mu.Lock()
	if c.state != StateOpen {
		c.mu.Unlock()
		return ErrNotOpen
	}
	c.draft = text
	t := c.typist
	c.mu.Unlock()

	if text == "" {
		t.clear(ctx)
		return nil
	}
	t.keystroke(ctx)
	return nil
}

// Edit loads a cached message into the composer; the next Send updates it.
func (c *Conversation) Edit(messageID string) error {
	c.mu.Lock()
	if c.state != StateOpen {
		c.mu.Unlock()
		return ErrNotOpen
	}
	idx := slices.IndexFunc(c.messages, func(m models.Message) bool { return m.ID == messageID })
	if idx < 0 {
		c.mu.Unlock()
		return ErrMessageNotFound
	}
	c.editingID = messageID
	c.draft = c.messages[idx].Text
	c.mu.Unlock()

	c.emitState()
	return nil
}

// CancelEdit leaves edit mode and empties the composer.
func (c *Conversation) CancelEdit() {
	c.mu.Lock()
	c.editingID = ""
	c.draft = ""
	c.mu.Unlock()

	c.emitState()
}

// Send delivers the composer text, or updates the message being edited.
// History is refetched afterwards instead of appending locally.
func (c *Conversation) Send(ctx context.Context) error {
	c.mu.Lock()
	if c.state != StateOpen {
		c.mu.Unlock()
		return ErrNotOpen
	}
	if c.sending {
		c.mu.Unlock()
		return ErrBusy
	}
	text := strings.TrimSpace(c.draft)
	if text == "" {
		c.mu.Unlock()
		return ErrEmptyMessage
	}
	c.sending = true
	id, gen, editing, t := c.id, c.generation, c.editingID, c.typist
	c.mu.Unlock()
	c.emitState()

	t.clear(ctx)

	op := "send message"
	var err error
	if editing != "" {
		op = "edit message"
		err = c.backend.EditMessage(ctx, id, editing, text)
	} else {
		_, err = c.backend.SendMessage(ctx, id, models.NewMessage{
			SenderRole:  c.viewer.Role,
			SenderEmail: c.viewer.Email,
			Text:        text,
		})
	}

	c.mu.Lock()
	if gen == c.generation {
		c.sending = false
		if err == nil {
			c.draft = ""
			if c.editingID == editing {
				c.editingID = ""
			}
			c.lastErr = nil
		}
	}
	c.mu.Unlock()

	if err != nil {
		return c.fail(gen, op, err)
	}
	c.emitState()
	c.fetchHistory(ctx, gen)
	return nil
}

// Delete removes a message once confirm approves it.
func (c *Conversation) Delete(ctx context.Context, messageID string, confirm Confirmer) error {
	c.mu.Lock()
	if c.state != StateOpen {
		c.mu.Unlock()
		return ErrNotOpen
	}
	id, gen := c.id, c.generation
	c.mu.Unlock()

	if !confirmed(confirm, "Delete this message?") {
		return ErrCancelled
	}
	if err := c.backend.DeleteMessage(ctx, id, messageID); err != nil {
		return c.fail(gen, "delete message", err)
	}

	c.mu.Lock()
	if gen == c.generation && c.editingID == messageID {
		c.editingID = ""
		c.draft = ""
	}
	c.mu.Unlock()

	c.fetchHistory(ctx, gen)
	return nil
}

// Clear removes the whole history once confirm approves it. The local
// history is emptied without a refetch.
func (c *Conversation) Clear(ctx context.Context, confirm Confirmer) error {
	c.mu.Lock()
	if c.state != StateOpen {
		c.mu.Unlock()
		return ErrNotOpen
	}
	id, gen := c.id, c.generation
	c.mu.Unlock()

	if !confirmed(confirm, "Clear the entire chat history?") {
		return ErrCancelled
	}
	if err := c.backend.ClearHistory(ctx, id); err != nil {
		return c.fail(gen, "clear history", err)
	}

	c.mu.Lock()
	if gen != c.generation {
		c.mu.Unlock()
		return nil
	}
	// fetches started before the clear must not bring the history back
	c.issuedSeq++
	c.appliedSeq = c.issuedSeq
	c.messages = nil
	c.editingID = ""
	c.mu.Unlock()

	c.render(models.ChatEvent{Type: models.EventHistory, ConversationID: id})
	return nil
}

// Refresh fetches the history now. Its result supersedes any fetch started
// before it.
func (c *Conversation) Refresh(ctx context.Context) error {
	c.mu.Lock()
	if c.state == StateClosed {
		c.mu.Unlock()
		return ErrNotOpen
	}
	gen := c.generation
	c.mu.Unlock()

	c.fetchHistory(ctx, gen)
	return nil
}

// View returns a copy of the current state.
func (c *Conversation) View() View {
	c.mu.Lock()
	defer c.mu.Unlock()
	return View{
		ConversationID: c.id,
		State:          c.state,
		Messages:       slices.Clone(c.messages),
		Typing:         slices.Clone(c.typing),
		Draft:          c.draft,
		EditingID:      c.editingID,
		Sending:        c.sending,
		Err:            c.lastErr,
	}
}

// Current reports the conversation shown and its state.
func (c *Conversation) Current() (string, State) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.id, c.state
}

// MarkRead marks the open conversation read if its badge is non-zero. It
// covers badges that arrive after Open, such as the first unread poll of a
// new session.
func (c *Conversation) MarkRead(ctx context.Context) {
	c.mu.Lock()
	id, state := c.id, c.state
	c.mu.Unlock()
	if state != StateOpen {
		return
	}
	c.markRead(ctx, id)
}

func (c *Conversation) markRead(ctx context.Context, conversationID string) {
	if c.unread == nil || !c.unread.Reset(conversationID) {
		return
	}
	if err := c.backend.MarkRead(ctx, conversationID, c.viewer.Role); err != nil {
		c.logger.Warn("mark read failed", "conversation_id", conversationID, "err", err)
	}
}

func (c *Conversation) startPollingLocked(ctx context.Context, gen uint64) {
	pollCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	c.stop = cancel
	go c.poll(pollCtx, gen)
}

func (c *Conversation) stopPollingLocked() {
	if c.stop != nil {
		c.stop()
		c.stop = nil
	}
}

func (c *Conversation) poll(ctx context.Context, gen uint64) {
	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()
	for {
		if ctx.Err() != nil {
			return
		}
		c.refresh(ctx, gen)
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// refresh is one poll cycle: history and typing are fetched together.
func (c *Conversation) refresh(ctx context.Context, gen uint64) {
	id, seq, ok := c.issue(gen)
	if !ok {
		return
	}

	var (
		history    []models.Message
		typing     []models.Role
		historyErr error
		typingErr  error
	)
	// stopping the loop does not abort a cycle already in flight; its
	// results are dropped by applyHistory instead
	fetchCtx := context.WithoutCancel(ctx)
	var g errgroup.Group
	g.Go(func() error {
		history, historyErr = c.backend.GetHistory(fetchCtx, id)
		return nil
	})
	g.Go(func() error {
		typing, typingErr = c.backend.GetTyping(fetchCtx, id)
		return nil
	})
	_ = g.Wait()

	if historyErr != nil {
		c.pollFailed(observability.PollHistory, id, historyErr)
	} else {
		c.applyHistory(gen, seq, history)
	}
	if typingErr != nil {
		c.pollFailed(observability.PollTyping, id, typingErr)
	} else {
		c.applyTyping(gen, typing)
	}
}

func (c *Conversation) fetchHistory(ctx context.Context, gen uint64) {
	id, seq, ok := c.issue(gen)
	if !ok {
		return
	}
	history, err := c.backend.GetHistory(ctx, id)
	if err != nil {
		c.pollFailed(observability.PollHistory, id, err)
		return
	}
	c.applyHistory(gen, seq, history)
}

func (c *Conversation) issue(gen uint64) (string, uint64, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.generation || c.state == StateClosed {
		return "", 0, false
	}
	c.issuedSeq++
	return c.id, c.issuedSeq, true
}

func (c *Conversation) applyHistory(gen, seq uint64, history []models.Message) {
	c.mu.Lock()
	if gen != c.generation || c.state == StateClosed {
		c.mu.Unlock()
		observability.IncPoll(observability.PollHistory, observability.ResultDiscarded)
		return
	}
	if seq <= c.appliedSeq {
		c.mu.Unlock()
		observability.IncPoll(observability.PollHistory, observability.ResultStale)
		return
	}
	c.appliedSeq = seq
	if models.EqualHistory(c.messages, history) {
		c.mu.Unlock()
		observability.IncPoll(observability.PollHistory, observability.ResultUnchanged)
		return
	}
	c.messages = slices.Clone(history)
	event := models.ChatEvent{
		Type:           models.EventHistory,
		ConversationID: c.id,
		Messages:       slices.Clone(history),
		ScrollToBottom: true,
	}
	c.mu.Unlock()

	observability.IncPoll(observability.PollHistory, observability.ResultOK)
	c.render(event)
}

func (c *Conversation) applyTyping(gen uint64, roles []models.Role) {
	others := make([]models.Role, 0, len(roles))
	for _, r := range roles {
		if r != c.viewer.Role && !slices.Contains(others, r) {
			others = append(others, r)
		}
	}
	slices.Sort(others)

	c.mu.Lock()
	if gen != c.generation || c.state == StateClosed {
		c.mu.Unlock()
		return
	}
	if slices.Equal(c.typing, others) {
		c.mu.Unlock()
		return
	}
	c.typing = others
	event := models.ChatEvent{Type: models.EventTyping, ConversationID: c.id, Typing: slices.Clone(others)}
	c.mu.Unlock()

	observability.IncPoll(observability.PollTyping, observability.ResultOK)
	c.render(event)
}

func (c *Conversation) pollFailed(kind, conversationID string, err error) {
	observability.IncPoll(kind, observability.ResultError)
	c.logger.Warn("poll failed", "kind", kind, "conversation_id", conversationID, "err", err)
}

func (c *Conversation) fail(gen uint64, op string, err error) error {
	ae := &ActionError{Op: op, Err: err}
	c.mu.Lock()
	current := gen == c.generation
	if current {
		c.lastErr = ae
	}
	id := c.id
	c.mu.Unlock()

	c.logger.Error("chat action failed", "op", op, "conversation_id", id, "err", err)
	if current {
		c.render(models.ChatEvent{Type: models.EventError, ConversationID: id, Error: ae.Error()})
		c.emitState()
	}
	return ae
}

func (c *Conversation) emitState() {
	c.mu.Lock()
	draft := c.draft
	event := models.ChatEvent{
		Type:           models.EventState,
		ConversationID: c.id,
		State:          c.state.String(),
		Draft:          &draft,
		EditingID:      c.editingID,
		Sending:        c.sending,
	}
	c.mu.Unlock()
	c.render(event)
}

func (c *Conversation) render(event models.ChatEvent) {
	if c.renderer != nil {
		c.renderer.Render(event)
	}
}
