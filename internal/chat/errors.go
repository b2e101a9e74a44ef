package chat

import (
	"errors"
	"fmt"
)

var (
	ErrNotOpen         = errors.New("conversation is not open")
	ErrNotMinimized    = errors.New("conversation is not minimized")
	ErrBusy            = errors.New("a message is already being sent")
	ErrEmptyMessage    = errors.New("message is empty")
	ErrCancelled       = errors.New("action not confirmed")
	ErrMessageNotFound = errors.New("message not in history")
)

// ActionError is recorded in the view when a user action fails.
type ActionError struct {
	Op  string
	Err error
}

func (e *ActionError) Error() string {
	return fmt.Sprintf("%s failed: %v", e.Op, e.Err)
}

func (e *ActionError) Unwrap() error {
	return e.Err
}
