package ws

import (
	"time"

	"messenger-service/internal/models"
)

// typingEntry is ephemeral, in-memory only. Keeping it keyed and timestamped
// leaves room for a TTL sweep without changing any caller.
type typingEntry struct {
	userName  string
	updatedAt time.Time
}

// SetTyping upserts the typing state for (conversation, user). A false state
// removes the entry.
func (h *Hub) SetTyping(conversationID int, user models.PublicProfile, isTyping bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if !isTyping {
		if room, ok := h.typing[conversationID]; ok {
			delete(room, user.ID)
			if len(room) == 0 {
				delete(h.typing, conversationID)
			}
		}
		return
	}

	if _, ok := h.typing[conversationID]; !ok {
		h.typing[conversationID] = make(map[int]typingEntry)
	}
	h.typing[conversationID][user.ID] = typingEntry{
		userName:  user.DisplayName(),
		updatedAt: time.Now(),
	}
}

// TypingUsers reports which users are currently marked typing in the
// conversation.
func (h *Hub) TypingUsers(conversationID int) []int {
	h.mu.Lock()
	defer h.mu.Unlock()

	ids := make([]int, 0, len(h.typing[conversationID]))
	for userID := range h.typing[conversationID] {
		ids = append(ids, userID)
	}
	return ids
}

func (h *Hub) clearUserLocked(userID int) []TypingUpdate {
	var updates []TypingUpdate
	for conversationID, room := range h.typing {
		entry, ok := room[userID]
		if !ok {
			continue
		}
		delete(room, userID)
		if len(room) == 0 {
			delete(h.typing, conversationID)
		}
		updates = append(updates, TypingUpdate{
			UserID:         userID,
			UserName:       entry.userName,
			ConversationID: conversationID,
			IsTyping:       false,
		})
	}
	return updates
}
