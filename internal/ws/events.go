package ws

import "encoding/json"

// Wire event names. Inbound events arrive wrapped in an Envelope; outbound
// events are sent the same way.
const (
	EventAuth           = "auth"
	EventSendMessage    = "sendMessage"
	EventTypingState    = "typingStateChange"
	EventReceiveMessage = "receiveMessage"
	EventUserTyping     = "userTypingUpdate"
	EventError          = "error"
)

// Envelope frames every websocket message.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// AuthPayload lets a client supply its token in the first frame when the
// handshake request carried none.
type AuthPayload struct {
	Token string `json:"token"`
}

// SendMessagePayload is the inbound sendMessage event.
type SendMessagePayload struct {
	ConversationID int    `json:"conversationId" validate:"required,gt=0"`
	Content        string `json:"content" validate:"required,max=1000"`
}

// TypingStatePayload is the inbound typingStateChange event.
type TypingStatePayload struct {
	ConversationID int  `json:"conversationId" validate:"required,gt=0"`
	IsTyping       bool `json:"isTyping"`
}

// TypingUpdate is the outbound userTypingUpdate event.
type TypingUpdate struct {
	UserID         int    `json:"userId"`
	UserName       string `json:"userName"`
	ConversationID int    `json:"conversationId"`
	IsTyping       bool   `json:"isTyping"`
}

// ErrorPayload is the outbound error event, delivered to one client only.
type ErrorPayload struct {
	Event   string `json:"event,omitempty"`
	Message string `json:"message"`
}

func encodeEvent(event string, data any) ([]byte, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Envelope{Event: event, Data: raw})
}
