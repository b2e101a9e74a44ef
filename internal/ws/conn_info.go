package ws

import (
	"time"

	"portal-chat/internal/models"
)

type ConnInfo struct {
	ConnID      string
	Email       string
	Role        models.Role
	IP          string
	RequestID   string
	TraceID     string
	ConnectedAt time.Time
}
