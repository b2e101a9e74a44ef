package models

import "time"

// OrderView is the canonical order detail rendered by the dashboard.
type OrderView struct {
	OrderID        string            `json:"order_id"`
	ConversationID string            `json:"conversation_id"`
	Service        string            `json:"service"`
	Status         string            `json:"status"`
	CustomerName   string            `json:"customer_name,omitempty"`
	CustomerEmail  string            `json:"customer_email,omitempty"`
	Amount         float64           `json:"amount,omitempty"`
	SubmittedAt    time.Time         `json:"submitted_at,omitempty"`
	Documents      []string          `json:"documents,omitempty"`
	Fields         map[string]string `json:"fields,omitempty"`
}
