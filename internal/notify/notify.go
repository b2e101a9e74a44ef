package notify

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"

	"portal-chat/internal/models"
)

// ActionOpenConversation tells the browser to focus the window and open the
// conversation when the notification is clicked.
const ActionOpenConversation = "open_conversation"

// Notifier delivers an unread-count notification.
type Notifier interface {
	Notify(ctx context.Context, n models.Notification) error
}

// Func adapts a function to Notifier.
type Func func(ctx context.Context, n models.Notification) error

func (f Func) Notify(ctx context.Context, n models.Notification) error {
	return f(ctx, n)
}

// Multi delivers to every notifier and joins their errors.
type Multi []Notifier

func (m Multi) Notify(ctx context.Context, n models.Notification) error {
	var errs []error
	for _, notifier := range m {
		if notifier == nil {
			continue
		}
		if err := notifier.Notify(ctx, n); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Log writes notifications to a logger. Used by chatctl and in development.
type Log struct {
	Logger *slog.Logger
}

func (l Log) Notify(ctx context.Context, n models.Notification) error {
	logger := l.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.InfoContext(ctx, "notification",
		"viewer", n.ViewerEmail,
		"conversation_id", n.ConversationID,
		"title", n.Title,
		"body", n.Body,
		"count", n.Count,
	)
	return nil
}

// PermissionState is the browser's answer to the notification permission
// prompt.
type PermissionState int32

const (
	PermissionUnknown PermissionState = iota
	PermissionGranted
	PermissionDenied
)

func (p PermissionState) String() string {
	switch p {
	case PermissionGranted:
		return "granted"
	case PermissionDenied:
		return "denied"
	}
	return "default"
}

// ParsePermission maps the browser's Notification.permission value.
// Anything other than "granted" or "denied" is unknown.
func ParsePermission(s string) PermissionState {
	switch s {
	case "granted":
		return PermissionGranted
	case "denied":
		return PermissionDenied
	}
	return PermissionUnknown
}

// Permission holds the latest permission reported for a viewer.
type Permission struct {
	state atomic.Int32
}

func (p *Permission) Set(state PermissionState) {
	p.state.Store(int32(state))
}

func (p *Permission) State() PermissionState {
	return PermissionState(p.state.Load())
}

func (p *Permission) Granted() bool {
	return p.State() == PermissionGranted
}
