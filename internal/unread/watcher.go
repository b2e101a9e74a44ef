package unread

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"sync"
	"time"

	"portal-chat/internal/models"
	"portal-chat/internal/notify"
	"portal-chat/internal/observability"
)

const DefaultInterval = 15 * time.Second

// CountSource returns unread counts keyed by conversation id.
type CountSource interface {
	GetUnreadCounts(ctx context.Context, email string) (map[string]int, error)
}

// Focus reports the conversation currently shown and whether the viewer's
// window has focus.
type Focus interface {
	Active() (conversationID string, focused bool)
}

// Renderer receives badge updates.
type Renderer interface {
	Render(event models.ChatEvent)
}

type Options struct {
	Interval   time.Duration
	Notifier   notify.Notifier
	Focus      Focus
	Permission func() bool
	Renderer   Renderer
	Icon       string
	// OnBaseline runs after the first successful poll has been applied.
	OnBaseline func(ctx context.Context)
	Logger     *slog.Logger
}

// Watcher polls the viewer's unread counts and raises a notification for
// every conversation whose count grew since the previous poll.
type Watcher struct {
	source     CountSource
	email      string
	interval   time.Duration
	notifier   notify.Notifier
	focus      Focus
	permission func() bool
	renderer   Renderer
	icon       string
	onBaseline func(ctx context.Context)
	logger     *slog.Logger

	mu       sync.Mutex
	snapshot map[string]int
	baseline bool
	stop     context.CancelFunc
	done     chan struct{}
}

func New(source CountSource, email string, opts Options) *Watcher {
	if opts.Interval <= 0 {
		opts.Interval = DefaultInterval
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Watcher{
		source:     source,
		email:      email,
		interval:   opts.Interval,
		notifier:   opts.Notifier,
		focus:      opts.Focus,
		permission: opts.Permission,
		renderer:   opts.Renderer,
		icon:       opts.Icon,
		onBaseline: opts.OnBaseline,
		logger:     opts.Logger.With("viewer", email),
		snapshot:   map[string]int{},
	}
}

// Start begins polling immediately and then every interval. Calling Start on
// a running watcher does nothing.
func (w *Watcher) Start(ctx context.Context) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.stop != nil {
		return
	}
	ctx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	w.stop = cancel
	w.done = make(chan struct{})
	go w.run(ctx, w.done)
}

// Stop ends polling and waits for the loop to exit.
func (w *Watcher) Stop() {
	w.mu.Lock()
	stop, done := w.stop, w.done
	w.stop, w.done = nil, nil
	w.mu.Unlock()

	if stop == nil {
		return
	}
	stop()
	<-done
}

func (w *Watcher) run(ctx context.Context, done chan struct{}) {
	defer close(done)
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	for {
		if err := w.Poll(ctx); err != nil && ctx.Err() == nil {
			w.logger.Warn("unread poll failed", "err", err)
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// Poll runs one cycle. On error the previous snapshot is kept.
func (w *Watcher) Poll(ctx context.Context) error {
	counts, err := w.source.GetUnreadCounts(ctx, w.email)
	if err != nil {
		observability.IncPoll(observability.PollUnread, observability.ResultError)
		return fmt.Errorf("get unread counts: %w", err)
	}
	observability.IncPoll(observability.PollUnread, observability.ResultOK)

	w.mu.Lock()
	previous := w.snapshot
	first := !w.baseline
	w.snapshot = maps.Clone(counts)
	if w.snapshot == nil {
		w.snapshot = map[string]int{}
	}
	w.baseline = true
	changed := !maps.Equal(previous, w.snapshot)
	w.mu.Unlock()

	if changed || first {
		w.render(models.ChatEvent{Type: models.EventUnread, Counts: maps.Clone(counts)})
	}
	if first {
		if w.onBaseline != nil {
			w.onBaseline(ctx)
		}
		return nil
	}

	for _, id := range slices.Sorted(maps.Keys(counts)) {
		count := counts[id]
		if count <= previous[id] || w.suppressed(id) {
			continue
		}
		w.raise(ctx, id, count)
	}
	return nil
}

// Count returns the last known unread count for a conversation.
func (w *Watcher) Count(conversationID string) int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.snapshot[conversationID]
}

// Reset zeroes the badge locally ahead of the backend mark-read. It reports
// whether the badge was non-zero, so concurrent callers mark read only once.
func (w *Watcher) Reset(conversationID string) bool {
	w.mu.Lock()
	if w.snapshot[conversationID] == 0 {
		w.mu.Unlock()
		return false
	}
	w.snapshot[conversationID] = 0
	counts := maps.Clone(w.snapshot)
	w.mu.Unlock()

	w.render(models.ChatEvent{Type: models.EventUnread, Counts: counts})
	return true
}

// Counts returns a copy of the last snapshot.
func (w *Watcher) Counts() map[string]int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return maps.Clone(w.snapshot)
}

func (w *Watcher) suppressed(conversationID string) bool {
	if w.focus == nil {
		return false
	}
	active, focused := w.focus.Active()
	return focused && active == conversationID
}

func (w *Watcher) raise(ctx context.Context, conversationID string, count int) {
	if w.notifier == nil || w.permission == nil || !w.permission() {
		return
	}
	n := models.Notification{
		ViewerEmail:    w.email,
		ConversationID: conversationID,
		OrderID:        models.OrderFromConversation(conversationID),
		Title:          "New message",
		Body:           body(count),
		Icon:           w.icon,
		Count:          count,
		Action:         notify.ActionOpenConversation,
	}
	if err := w.notifier.Notify(ctx, n); err != nil {
		w.logger.Warn("notify failed", "conversation_id", conversationID, "err", err)
	}
}

func body(count int) string {
	if count == 1 {
		return "You have 1 unread message"
	}
	return fmt.Sprintf("You have %d unread messages", count)
}

func (w *Watcher) render(event models.ChatEvent) {
	if w.renderer != nil {
		w.renderer.Render(event)
	}
}
