package chat

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"portal-chat/internal/api"
	"portal-chat/internal/models"
)

// typist owns the viewer's typing flag for one conversation. The flag is
// raised once per burst of keystrokes and lowered after timeout without
// input, or immediately by clear.
type typist struct {
	backend        api.ChatAPI
	conversationID string
	role           models.Role
	timeout        time.Duration
	logger         *slog.Logger

	// sendMu is held from deciding a transition until the backend has it,
	// so raise and lower reach the backend in decision order.
	sendMu sync.Mutex

	mu       sync.Mutex
	signaled bool
	epoch    uint64
	timer    *time.Timer
}

func newTypist(backend api.ChatAPI, conversationID string, role models.Role, timeout time.Duration, logger *slog.Logger) *typist {
	return &typist{
		backend:        backend,
		conversationID: conversationID,
		role:           role,
		timeout:        timeout,
		logger:         logger,
	}
}

func (t *typist) keystroke(ctx context.Context) {
	t.sendMu.Lock()
	defer t.sendMu.Unlock()

	t.mu.Lock()
	if t.timer != nil {
		t.timer.Stop()
	}
	t.epoch++
	epoch := t.epoch
	t.timer = time.AfterFunc(t.timeout, func() { t.expire(epoch) })
	raise := !t.signaled
	t.signaled = true
	t.mu.Unlock()

	if raise {
		t.set(ctx, true)
	}
}

func (t *typist) expire(epoch uint64) {
	t.sendMu.Lock()
	defer t.sendMu.Unlock()

	t.mu.Lock()
	if epoch != t.epoch || !t.signaled {
		t.mu.Unlock()
		return
	}
	t.signaled = false
	t.timer = nil
	t.mu.Unlock()

	t.set(context.Background(), false)
}

// clear lowers the flag now. It is a no-op when the flag is already down.
func (t *typist) clear(ctx context.Context) {
	t.sendMu.Lock()
	defer t.sendMu.Unlock()

	t.mu.Lock()
	if t.timer != nil {
		t.timer.Stop()
		t.timer = nil
	}
	t.epoch++
	lower := t.signaled
	t.signaled = false
	t.mu.Unlock()

	if lower {
		t.set(ctx, false)
	}
}

func (t *typist) active() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.signaled
}

func (t *typist) set(ctx context.Context, typing bool) {
	if err := t.backend.SetTyping(ctx, t.conversationID, t.role, typing); err != nil {
		t.logger.Warn("set typing failed", "conversation_id", t.conversationID, "typing", typing, "err", err)
	}
}
