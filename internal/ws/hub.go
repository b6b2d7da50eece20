package ws

import (
	"log"
	"sync"
)

// Hub is the room registry and broadcast bus. It maps conversations to the
// clients currently subscribed to them and delivers events to whole rooms.
//
// A single mutex guards rooms, the reverse indexes, and the typing state, so
// connect, disconnect, and broadcast never race against each other.
type Hub struct {
	mu       sync.Mutex
	rooms    map[int]map[*Client]struct{}
	byClient map[*Client]map[int]struct{}
	byUser   map[int]map[*Client]struct{}
	typing   map[int]map[int]typingEntry
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{
		rooms:    make(map[int]map[*Client]struct{}),
		byClient: make(map[*Client]map[int]struct{}),
		byUser:   make(map[int]map[*Client]struct{}),
		typing:   make(map[int]map[int]typingEntry),
	}
}

// SubscribeAll adds the client to the room of every listed conversation.
// Resubscribing an already-subscribed client is a no-op.
func (h *Hub) SubscribeAll(client *Client, conversationIDs []int) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.byUser[client.User.ID]; !ok {
		h.byUser[client.User.ID] = make(map[*Client]struct{})
	}
	h.byUser[client.User.ID][client] = struct{}{}

	if _, ok := h.byClient[client]; !ok {
		h.byClient[client] = make(map[int]struct{})
	}
	for _, id := range conversationIDs {
		h.subscribeLocked(client, id)
	}
}

func (h *Hub) subscribeLocked(client *Client, conversationID int) {
	if _, ok := h.rooms[conversationID]; !ok {
		h.rooms[conversationID] = make(map[*Client]struct{})
	}
	h.rooms[conversationID][client] = struct{}{}
	h.byClient[client][conversationID] = struct{}{}
}

// AddRoom subscribes every currently-connected participant of a freshly
// created conversation, so they receive its events without reconnecting.
func (h *Hub) AddRoom(conversationID int, participantIDs []int) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, userID := range participantIDs {
		for client := range h.byUser[userID] {
			if _, ok := h.byClient[client]; !ok {
				h.byClient[client] = make(map[int]struct{})
			}
			h.subscribeLocked(client, conversationID)
		}
	}
}

// UnsubscribeAll removes the client from every room it was part of. Safe to
// call for a client that was never subscribed.
func (h *Hub) UnsubscribeAll(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.unsubscribeAllLocked(client)
}

func (h *Hub) unsubscribeAllLocked(client *Client) {
	for conversationID := range h.byClient[client] {
		if room, ok := h.rooms[conversationID]; ok {
			delete(room, client)
			if len(room) == 0 {
				delete(h.rooms, conversationID)
			}
		}
	}
	delete(h.byClient, client)

	if clients, ok := h.byUser[client.User.ID]; ok {
		delete(clients, client)
		if len(clients) == 0 {
			delete(h.byUser, client.User.ID)
		}
	}
}

// Disconnect removes the client from all rooms and, when this was the user's
// last connection, clears their typing state. The returned updates carry
// isTyping=false for every conversation the user was still marked typing in
// and must be broadcast by the caller.
func (h *Hub) Disconnect(client *Client) []TypingUpdate {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.unsubscribeAllLocked(client)

	if _, stillConnected := h.byUser[client.User.ID]; stillConnected {
		return nil
	}
	return h.clearUserLocked(client.User.ID)
}

// ClientsInRoom returns a snapshot of the clients subscribed to the
// conversation. An empty slice just means nobody is listening.
func (h *Hub) ClientsInRoom(conversationID int) []*Client {
	h.mu.Lock()
	defer h.mu.Unlock()

	clients := make([]*Client, 0, len(h.rooms[conversationID]))
	for client := range h.rooms[conversationID] {
		clients = append(clients, client)
	}
	return clients
}

// Broadcast delivers an event to every client in the conversation's room,
// except exclude when given. Delivery per client is fire-and-forget: a closed
// or saturated client loses that one event and the broadcast continues.
func (h *Hub) Broadcast(conversationID int, event string, data any, exclude *Client) {
	payload, err := encodeEvent(event, data)
	if err != nil {
		log.Printf("broadcast encode error: %v", err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for client := range h.rooms[conversationID] {
		if client == exclude {
			continue
		}
		if !client.Enqueue(payload) {
			log.Printf("dropped %s delivery to client %s", event, client.ID)
		}
	}
}
