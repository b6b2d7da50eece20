package models

import "time"

// Conversation represents a private conversation between exactly two users.
// Participants are normalized so user1_id < user2_id, which lets the store
// enforce at most one private conversation per unordered user pair.
type Conversation struct {
	ID        int       `db:"id" json:"id"`
	User1ID   int       `db:"user1_id" json:"user1Id"`
	User2ID   int       `db:"user2_id" json:"user2Id"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`
}

// ParticipantIDs returns both members of the conversation.
func (c Conversation) ParticipantIDs() []int {
	return []int{c.User1ID, c.User2ID}
}

// HasParticipant reports whether the user belongs to the conversation.
func (c Conversation) HasParticipant(userID int) bool {
	return c.User1ID == userID || c.User2ID == userID
}

// ConversationSummary is the API view of a conversation for one user.
type ConversationSummary struct {
	ID               int           `json:"id"`
	OtherParticipant PublicProfile `json:"otherParticipant"`
	LastMessage      *Message      `json:"lastMessage,omitempty"`
	CreatedAt        time.Time     `json:"createdAt"`
	UpdatedAt        time.Time     `json:"updatedAt"`
}
