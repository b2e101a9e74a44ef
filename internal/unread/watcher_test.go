package unread

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"portal-chat/internal/models"
	"portal-chat/internal/notify"
)

type scriptedSource struct {
	mu      sync.Mutex
	replies []map[string]int
	err     error
	calls   int
}

func (s *scriptedSource) GetUnreadCounts(ctx context.Context, email string) (map[string]int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	if len(s.replies) == 0 {
		return map[string]int{}, nil
	}
	next := s.replies[0]
	if len(s.replies) > 1 {
		s.replies = s.replies[1:]
	}
	return next, nil
}

func (s *scriptedSource) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

type staticFocus struct {
	id      string
	focused bool
}

func (f staticFocus) Active() (string, bool) {
	return f.id, f.focused
}

type collector struct {
	mu   sync.Mutex
	sent []models.Notification
}

func (c *collector) Notify(ctx context.Context, n models.Notification) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sent = append(c.sent, n)
	return nil
}

func (c *collector) Sent() []models.Notification {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]models.Notification(nil), c.sent...)
}

func granted() bool { return true }

func newWatcher(source CountSource, notifier notify.Notifier, opts Options) *Watcher {
	opts.Notifier = notifier
	if opts.Permission == nil {
		opts.Permission = granted
	}
	opts.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	return New(source, "ann@example.com", opts)
}

func TestFirstPollIsBaseline(t *testing.T) {
	source := &scriptedSource{replies: []map[string]int{{"order-1": 3}}}
	sink := &collector{}
	w := newWatcher(source, sink, Options{})

	require.NoError(t, w.Poll(context.Background()))
	assert.Empty(t, sink.Sent())
	assert.Equal(t, 3, w.Count("order-1"))
}

func TestIncreaseRaisesNotification(t *testing.T) {
	source := &scriptedSource{replies: []map[string]int{
		{"order-1": 1, "order-2": 4},
		{"order-1": 2, "order-2": 1, "order-3": 1},
	}}
	sink := &collector{}
	w := newWatcher(source, sink, Options{Icon: "/static/logo.png"})
	ctx := context.Background()

	require.NoError(t, w.Poll(ctx))
	require.NoError(t, w.Poll(ctx))

	sent := sink.Sent()
	require.Len(t, sent, 2)
	assert.Equal(t, "order-1", sent[0].ConversationID)
	assert.Equal(t, "1", sent[0].OrderID)
	assert.Equal(t, 2, sent[0].Count)
	assert.Equal(t, "You have 2 unread messages", sent[0].Body)
	assert.Equal(t, "/static/logo.png", sent[0].Icon)
	assert.Equal(t, notify.ActionOpenConversation, sent[0].Action)
	assert.Equal(t, "ann@example.com", sent[0].ViewerEmail)
	assert.Equal(t, "order-3", sent[1].ConversationID)
	assert.Equal(t, "You have 1 unread message", sent[1].Body)
}

func TestOpenAndFocusedConversationIsSuppressed(t *testing.T) {
	source := &scriptedSource{replies: []map[string]int{{}, {"order-1": 1, "order-2": 1}}}
	sink := &collector{}
	w := newWatcher(source, sink, Options{Focus: staticFocus{id: "order-1", focused: true}})
	ctx := context.Background()

	require.NoError(t, w.Poll(ctx))
	require.NoError(t, w.Poll(ctx))

	sent := sink.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, "order-2", sent[0].ConversationID)
	assert.Equal(t, 1, w.Count("order-1"))
}

func TestOpenButUnfocusedConversationNotifies(t *testing.T) {
	source := &scriptedSource{replies: []map[string]int{{}, {"order-1": 1}}}
	sink := &collector{}
	w := newWatcher(source, sink, Options{Focus: staticFocus{id: "order-1", focused: false}})
	ctx := context.Background()

	require.NoError(t, w.Poll(ctx))
	require.NoError(t, w.Poll(ctx))
	assert.Len(t, sink.Sent(), 1)
}

func TestNoNotificationWithoutPermission(t *testing.T) {
	source := &scriptedSource{replies: []map[string]int{{}, {"order-1": 1}}}
	sink := &collector{}
	w := newWatcher(source, sink, Options{Permission: func() bool { return false }})
	ctx := context.Background()

	require.NoError(t, w.Poll(ctx))
	require.NoError(t, w.Poll(ctx))
	assert.Empty(t, sink.Sent())
	assert.Equal(t, 1, w.Count("order-1"))
}

func TestSnapshotAlwaysReplaced(t *testing.T) {
	source := &scriptedSource{replies: []map[string]int{{"order-1": 5}, {"order-1": 2}, {"order-1": 3}}}
	sink := &collector{}
	w := newWatcher(source, sink, Options{})
	ctx := context.Background()

	require.NoError(t, w.Poll(ctx))
	require.NoError(t, w.Poll(ctx))
	assert.Empty(t, sink.Sent())
	require.NoError(t, w.Poll(ctx))

	sent := sink.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, 3, sent[0].Count)
}

func TestPollErrorKeepsSnapshot(t *testing.T) {
	source := &scriptedSource{replies: []map[string]int{{"order-1": 2}}}
	w := newWatcher(source, &collector{}, Options{})
	ctx := context.Background()

	require.NoError(t, w.Poll(ctx))
	source.err = errors.New("backend down")
	err := w.Poll(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, source.err)
	assert.Equal(t, map[string]int{"order-1": 2}, w.Counts())
}

func TestResetRendersBadge(t *testing.T) {
	source := &scriptedSource{replies: []map[string]int{{"order-1": 2}}}
	var mu sync.Mutex
	var events []models.ChatEvent
	w := newWatcher(source, &collector{}, Options{})
	w.renderer = renderFunc(func(e models.ChatEvent) {
		mu.Lock()
		events = append(events, e)
		mu.Unlock()
	})

	require.NoError(t, w.Poll(context.Background()))
	assert.True(t, w.Reset("order-1"))
	assert.False(t, w.Reset("order-1"))

	assert.Zero(t, w.Count("order-1"))
	mu.Lock()
	defer mu.Unlock()
	require.Len(t, events, 2)
	assert.Equal(t, models.EventUnread, events[1].Type)
	assert.Equal(t, 0, events[1].Counts["order-1"])
}

type renderFunc func(models.ChatEvent)

func (f renderFunc) Render(e models.ChatEvent) { f(e) }

func TestStartPollsUntilStopped(t *testing.T) {
	source := &scriptedSource{}
	w := newWatcher(source, &collector{}, Options{Interval: 5 * time.Millisecond})

	w.Start(context.Background())
	w.Start(context.Background())
	require.Eventually(t, func() bool { return source.Calls() >= 3 }, time.Second, time.Millisecond)
	w.Stop()

	calls := source.Calls()
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, calls, source.Calls())
	w.Stop()
}

func TestOnBaselineRunsAfterFirstSuccessfulPoll(t *testing.T) {
	source := &scriptedSource{err: errors.New("down")}
	var seen []map[string]int
	var w *Watcher
	w = newWatcher(source, &collector{}, Options{
		OnBaseline: func(ctx context.Context) { seen = append(seen, w.Counts()) },
	})

	require.Error(t, w.Poll(context.Background()))
	assert.Empty(t, seen)

	source.mu.Lock()
	source.err = nil
	source.replies = []map[string]int{{"order-1": 2}, {"order-1": 3}}
	source.mu.Unlock()

	require.NoError(t, w.Poll(context.Background()))
	require.NoError(t, w.Poll(context.Background()))
	assert.Equal(t, []map[string]int{{"order-1": 2}}, seen)
}
