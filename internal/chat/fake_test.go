package chat

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"sync"
	"time"

	"portal-chat/internal/models"
)

// fakeAPI records every backend call. When blockHistory is set each
// GetHistory call hands a reply channel to the test and waits on it.
type fakeAPI struct {
	mu           sync.Mutex
	calls        []string
	history      []models.Message
	typing       []models.Role
	sendErr      error
	deleteErr    error
	blockHistory chan chan []models.Message
	nextID       int

	// when raising is set, SetTyping(true) reports on it and waits for
	// releaseRaise before the call is recorded as delivered
	raising      chan struct{}
	releaseRaise chan struct{}
}

func (f *fakeAPI) record(call string) {
	f.mu.Lock()
	f.calls = append(f.calls, call)
	f.mu.Unlock()
}

func (f *fakeAPI) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.calls)
}

func (f *fakeAPI) Count(call string) int {
	n := 0
	for _, c := range f.Calls() {
		if c == call {
			n++
		}
	}
	return n
}

func (f *fakeAPI) Reset() {
	f.mu.Lock()
	f.calls = nil
	f.mu.Unlock()
}

func (f *fakeAPI) SetHistory(msgs []models.Message) {
	f.mu.Lock()
	f.history = msgs
	f.mu.Unlock()
}

func (f *fakeAPI) GetHistory(ctx context.Context, conversationID string) ([]models.Message, error) {
	f.record("GetHistory")
	if f.blockHistory != nil {
		reply := make(chan []models.Message, 1)
		select {
		case f.blockHistory <- reply:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
		select {
		case msgs := <-reply:
			return msgs, nil
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.history), nil
}

func (f *fakeAPI) GetTyping(ctx context.Context, conversationID string) ([]models.Role, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.typing), nil
}

func (f *fakeAPI) SetTyping(ctx context.Context, conversationID string, role models.Role, typing bool) error {
	if typing && f.raising != nil {
		f.raising <- struct{}{}
		<-f.releaseRaise
	}
	f.record(fmt.Sprintf("SetTyping:%t", typing))
	return nil
}

func (f *fakeAPI) SendMessage(ctx context.Context, conversationID string, msg models.NewMessage) (models.Message, error) {
	f.record("SendMessage:" + msg.Text)
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		return models.Message{}, f.sendErr
	}
	f.nextID++
	m := models.Message{
		ID:             fmt.Sprintf("new-%d", f.nextID),
		ConversationID: conversationID,
		SenderRole:     msg.SenderRole,
		SenderEmail:    msg.SenderEmail,
		Text:           msg.Text,
		CreatedAt:      time.Now(),
	}
	f.history = append(f.history, m)
	return m, nil
}

func (f *fakeAPI) EditMessage(ctx context.Context, conversationID, messageID, text string) error {
	f.record("EditMessage:" + messageID + ":" + text)
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		return f.sendErr
	}
	for i := range f.history {
		if f.history[i].ID == messageID {
			f.history[i].Text = text
			f.history[i].Edited = true
		}
	}
	return nil
}

func (f *fakeAPI) DeleteMessage(ctx context.Context, conversationID, messageID string) error {
	f.record("DeleteMessage:" + messageID)
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.deleteErr != nil {
		return f.deleteErr
	}
	f.history = slices.DeleteFunc(f.history, func(m models.Message) bool { return m.ID == messageID })
	return nil
}

func (f *fakeAPI) ClearHistory(ctx context.Context, conversationID string) error {
	f.record("ClearHistory")
	f.mu.Lock()
	f.history = nil
	f.mu.Unlock()
	return nil
}

func (f *fakeAPI) GetUnreadCounts(ctx context.Context, email string) (map[string]int, error) {
	return map[string]int{}, nil
}

func (f *fakeAPI) MarkRead(ctx context.Context, conversationID string, role models.Role) error {
	f.record("MarkRead:" + conversationID)
	return nil
}

type fakeUnread struct {
	mu     sync.Mutex
	counts map[string]int
	resets []string
}

func (u *fakeUnread) Count(conversationID string) int {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.counts[conversationID]
}

func (u *fakeUnread) Reset(conversationID string) bool {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.counts[conversationID] == 0 {
		return false
	}
	u.counts[conversationID] = 0
	u.resets = append(u.resets, conversationID)
	return true
}

func (u *fakeUnread) Set(conversationID string, count int) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.counts[conversationID] = count
}

type eventLog struct {
	mu     sync.Mutex
	events []models.ChatEvent
}

func (l *eventLog) Render(event models.ChatEvent) {
	l.mu.Lock()
	l.events = append(l.events, event)
	l.mu.Unlock()
}

func (l *eventLog) OfType(typ string) []models.ChatEvent {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []models.ChatEvent
	for _, e := range l.events {
		if e.Type == typ {
			out = append(out, e)
		}
	}
	return out
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
