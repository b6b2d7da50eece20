package ws

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel"

	"messenger-service/internal/auth"
	"messenger-service/internal/models"
	"messenger-service/internal/observability"
	"messenger-service/internal/rabbitmq"
	"messenger-service/internal/repositories"
)

// authFrameWait bounds how long an upgraded connection may take to deliver
// its auth payload frame when the handshake request carried no token.
const authFrameWait = 10 * time.Second

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Gateway owns the lifecycle of every websocket connection: authenticate,
// subscribe to the rooms of the user's conversations, route inbound events,
// and tear everything down on disconnect.
type Gateway struct {
	hub           *Hub
	verifier      auth.Verifier
	conversations repositories.ConversationRepository
	messages      repositories.MessageRepository
	publisher     rabbitmq.Publisher
	validate      *validator.Validate
}

// NewGateway constructs a Gateway.
func NewGateway(hub *Hub, verifier auth.Verifier, conversations repositories.ConversationRepository, messages repositories.MessageRepository, publisher rabbitmq.Publisher) *Gateway {
	return &Gateway{
		hub:           hub,
		verifier:      verifier,
		conversations: conversations,
		messages:      messages,
		publisher:     publisher,
		validate:      validator.New(),
	}
}

// Handle upgrades the connection, authenticates it, and runs its read loop.
// Events from one connection are processed strictly one at a time; the next
// frame is not read until the previous event finished.
func (g *Gateway) Handle(c *gin.Context) {
	ctx, span := otel.Tracer("messenger-service/ws").Start(c.Request.Context(), "ws.handshake")
	defer span.End()

	token := auth.TokenFromRequest(c.Request)

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}

	if token == "" {
		token, err = readAuthFrame(conn)
		if err != nil {
			writeClose(conn, auth.ErrTokenMissing.Error())
			return
		}
	}

	user, err := g.verifier.Verify(ctx, token)
	if err != nil {
		observability.IncWSEvent("auth_failed")
		writeClose(conn, authErrorMessage(err))
		return
	}

	conversationIDs, err := g.conversations.ListConversationIDs(ctx, user.ID)
	if err != nil {
		log.Printf("list conversations for user %d: %v", user.ID, err)
		writeClose(conn, "failed to load conversations")
		return
	}

	client := newClient(conn, user.Public())
	g.hub.SubscribeAll(client, conversationIDs)
	go client.writePump()

	observability.IncWSActive()
	observability.IncWSEvent("connect")
	g.publishLifecycle(ctx, client, "ws_connect", "", rabbitmq.BuildHeaders(observability.RequestIDFromRequest(c.Request), ""))
	log.Printf("client %s connected from %s, user %d subscribed to %d rooms",
		client.ID, observability.IPFromRequest(c.Request), user.ID, len(conversationIDs))

	g.readLoop(ctx, client)
}

// readLoop pulls frames off the socket until it closes, dispatching each
// inbound event before reading the next one.
func (g *Gateway) readLoop(ctx context.Context, client *Client) {
	var closeReason string
	defer func() {
		g.disconnect(ctx, client, closeReason)
	}()

	for {
		_, payload, err := client.conn.ReadMessage()
		if err != nil {
			closeReason = err.Error()
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				observability.IncWSEvent("read_error")
			}
			return
		}
		g.dispatch(ctx, client, payload)
	}
}

func (g *Gateway) dispatch(ctx context.Context, client *Client, payload []byte) {
	var envelope Envelope
	if err := json.Unmarshal(payload, &envelope); err != nil {
		g.sendError(client, "", "malformed event")
		return
	}

	switch envelope.Event {
	case EventSendMessage:
		g.handleSendMessage(ctx, client, envelope.Data)
	case EventTypingState:
		g.handleTypingState(ctx, client, envelope.Data)
	case EventAuth:
		// Already authenticated; a repeated auth frame is harmless.
	default:
		g.sendError(client, envelope.Event, "unknown event")
	}
}

// handleSendMessage validates, persists, and broadcasts one message. The
// broadcast includes the sender's own connection, so the sender's UI and all
// peers share one delivery path. Every failure is reported to the sender only.
func (g *Gateway) handleSendMessage(ctx context.Context, client *Client, raw json.RawMessage) {
	var payload SendMessagePayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		g.sendError(client, EventSendMessage, "invalid payload")
		return
	}
	if err := g.validate.Struct(payload); err != nil {
		g.sendError(client, EventSendMessage, "content must be 1-1000 characters and conversationId a positive integer")
		return
	}

	member, err := g.conversations.IsParticipant(ctx, payload.ConversationID, client.User.ID)
	if err != nil {
		g.sendError(client, EventSendMessage, "failed to send message")
		return
	}
	if !member {
		g.sendError(client, EventSendMessage, "you are not a participant of this conversation")
		return
	}

	msg, err := g.messages.CreateMessage(ctx, payload.ConversationID, client.User.ID, payload.Content)
	if err != nil {
		log.Printf("persist message from user %d: %v", client.User.ID, err)
		g.sendError(client, EventSendMessage, "failed to send message")
		return
	}

	g.hub.Broadcast(msg.ConversationID, EventReceiveMessage, msg, nil)
	observability.IncWSEvent("message_sent")
	g.publishMessage(ctx, client, msg)
}

// handleTypingState updates presence and notifies peers. The sender is
// excluded from the broadcast; it does not need an echo of its own state.
func (g *Gateway) handleTypingState(ctx context.Context, client *Client, raw json.RawMessage) {
	var payload TypingStatePayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		g.sendError(client, EventTypingState, "invalid payload")
		return
	}
	if err := g.validate.Struct(payload); err != nil {
		g.sendError(client, EventTypingState, "conversationId must be a positive integer")
		return
	}

	g.hub.SetTyping(payload.ConversationID, client.User, payload.IsTyping)
	g.hub.Broadcast(payload.ConversationID, EventUserTyping, TypingUpdate{
		UserID:         client.User.ID,
		UserName:       client.User.DisplayName(),
		ConversationID: payload.ConversationID,
		IsTyping:       payload.IsTyping,
	}, client)
	observability.IncWSEvent("typing")
}

// disconnect removes the client from every room and clears its typing state
// before anything else happens, then tells peers the user stopped typing.
func (g *Gateway) disconnect(ctx context.Context, client *Client, reason string) {
	updates := g.hub.Disconnect(client)
	client.Close()

	for _, update := range updates {
		g.hub.Broadcast(update.ConversationID, EventUserTyping, update, nil)
	}

	observability.DecWSActive()
	observability.IncWSEvent("disconnect")
	g.publishLifecycle(ctx, client, "ws_disconnect", reason, nil)
	log.Printf("client %s disconnected: %s", client.ID, reason)
}

func (g *Gateway) sendError(client *Client, event, message string) {
	payload, err := encodeEvent(EventError, ErrorPayload{Event: event, Message: message})
	if err != nil {
		return
	}
	client.Enqueue(payload)
}

func (g *Gateway) publishLifecycle(ctx context.Context, client *Client, name, reason string, headers map[string]string) {
	if g.publisher == nil {
		return
	}
	_ = g.publisher.PublishJSON(ctx, "ws_events.connections", rabbitmq.Envelope{
		EventType: "ws_events",
		EventName: name,
		Payload: map[string]any{
			"conn_id":     client.ID,
			"user_id":     client.User.ID,
			"duration_ms": time.Since(client.ConnectedAt).Milliseconds(),
			"reason":      reason,
		},
	}, headers)
}

func (g *Gateway) publishMessage(ctx context.Context, client *Client, msg models.Message) {
	if g.publisher == nil {
		return
	}
	_ = g.publisher.PublishJSON(ctx, "ws_events.messages", rabbitmq.Envelope{
		EventType: "ws_events",
		EventName: "message_persisted",
		Payload: map[string]any{
			"conn_id":         client.ID,
			"user_id":         client.User.ID,
			"conversation_id": msg.ConversationID,
			"message_id":      msg.ID,
		},
	}, nil)
}

// readAuthFrame waits for a single auth envelope carrying the token.
func readAuthFrame(conn *websocket.Conn) (string, error) {
	if err := conn.SetReadDeadline(time.Now().Add(authFrameWait)); err != nil {
		return "", err
	}
	defer conn.SetReadDeadline(time.Time{})

	_, payload, err := conn.ReadMessage()
	if err != nil {
		return "", err
	}

	var envelope Envelope
	if err := json.Unmarshal(payload, &envelope); err != nil || envelope.Event != EventAuth {
		return "", errors.New("expected auth event")
	}
	var authPayload AuthPayload
	if err := json.Unmarshal(envelope.Data, &authPayload); err != nil || authPayload.Token == "" {
		return "", errors.New("auth event carried no token")
	}
	return authPayload.Token, nil
}

// writeClose sends a best-effort error event and closes the raw connection.
// Used before the client ever joins the hub.
func writeClose(conn *websocket.Conn, message string) {
	if payload, err := encodeEvent(EventError, ErrorPayload{Message: message}); err == nil {
		_ = conn.WriteMessage(websocket.TextMessage, payload)
	}
	conn.Close()
}

func authErrorMessage(err error) string {
	switch {
	case errors.Is(err, auth.ErrTokenMissing):
		return auth.ErrTokenMissing.Error()
	case errors.Is(err, auth.ErrUserNotFound):
		return auth.ErrUserNotFound.Error()
	default:
		return auth.ErrTokenInvalid.Error()
	}
}
