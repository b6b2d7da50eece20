package models

import "time"

// Message represents a persisted conversation message. Messages are immutable
// once created; created_at is assigned by the store.
type Message struct {
	ID             int       `db:"id" json:"id"`
	ConversationID int       `db:"conversation_id" json:"conversationId"`
	SenderID       int       `db:"sender_id" json:"userId"`
	Content        string    `db:"content" json:"content"`
	CreatedAt      time.Time `db:"created_at" json:"createdAt"`

	// Sender carries public profile fields of the author, populated on
	// reads and on the persisted message handed to the broadcast path.
	Sender *PublicProfile `db:"-" json:"user,omitempty"`
}
