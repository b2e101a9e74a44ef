package models

import "time"

// Role identifies the kind of participant in an order conversation.
type Role string

const (
	RoleCustomer Role = "customer"
	RoleAgent    Role = "agent"
	RoleGuest    Role = "guest"
)

// Valid reports whether r is one of the known participant roles.
func (r Role) Valid() bool {
	switch r {
	case RoleCustomer, RoleAgent, RoleGuest:
		return true
	}
	return false
}

// Message represents a chat message in an order conversation.
type Message struct {
	ID             string    `db:"id" json:"id"`
	ConversationID string    `db:"conversation_id" json:"conversation_id"`
	SenderRole     Role      `db:"sender_role" json:"sender_role"`
	SenderEmail    string    `db:"sender_email" json:"sender_email"`
	Text           string    `db:"text" json:"text"`
	Edited         bool      `db:"edited" json:"edited"`
	Read           bool      `db:"read" json:"read"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
}

// Equal compares two messages by value. Timestamps are compared as instants.
func (m Message) Equal(other Message) bool {
	return m.ID == other.ID &&
		m.ConversationID == other.ConversationID &&
		m.SenderRole == other.SenderRole &&
		m.SenderEmail == other.SenderEmail &&
		m.Text == other.Text &&
		m.Edited == other.Edited &&
		m.Read == other.Read &&
		m.CreatedAt.Equal(other.CreatedAt)
}

// EqualHistory reports whether two histories hold the same messages in the same order.
func EqualHistory(a, b []Message) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !a[i].Equal(b[i]) {
			return false
		}
	}
	return true
}

// NewMessage is the payload for creating a message.
type NewMessage struct {
	SenderRole  Role   `json:"sender_role" binding:"required"`
	SenderEmail string `json:"sender_email"`
	Text        string `json:"text" binding:"required"`
}
