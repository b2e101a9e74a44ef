package models

import "strings"

const conversationPrefix = "order-"

// ConversationForOrder derives the conversation id of an order.
func ConversationForOrder(orderID string) string {
	return conversationPrefix + orderID
}

// OrderFromConversation returns the order id a conversation belongs to.
// Ids without the order prefix are returned unchanged.
func OrderFromConversation(conversationID string) string {
	return strings.TrimPrefix(conversationID, conversationPrefix)
}

// Conversation is the chat thread tied to a single service order.
type Conversation struct {
	ID            string `db:"id" json:"id"`
	OrderID       string `db:"order_id" json:"order_id"`
	CustomerEmail string `db:"customer_email" json:"customer_email"`
}

// TypingStatus is one row of typing state as stored by the backend.
type TypingStatus struct {
	ConversationID string `db:"conversation_id" json:"conversation_id"`
	Role           Role   `db:"role" json:"role"`
	Typing         bool   `db:"typing" json:"typing"`
}

// UnreadCount is the unread badge of one conversation.
type UnreadCount struct {
	ConversationID string `db:"conversation_id" json:"conversation_id"`
	Count          int    `db:"count" json:"count"`
}
