package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"messenger-service/internal/mocks"
	"messenger-service/internal/models"
	"messenger-service/internal/ws"
)

func setupConversationRouter(handler *ConversationHandler) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set("userID", 1)
		c.Next()
	})
	r.POST("/conversations/private", handler.CreatePrivate)
	r.GET("/conversations", handler.List)
	r.GET("/conversations/:conversation_id/messages", handler.Messages)
	return r
}

func TestCreatePrivateConversation(t *testing.T) {
	conversations := new(mocks.ConversationRepositoryMock)
	users := new(mocks.UserRepositoryMock)
	handler := NewConversationHandler(conversations, nil, users, ws.NewHub(), nil)
	router := setupConversationRouter(handler)

	users.On("GetByID", mock.Anything, 2).Return(models.User{ID: 2}, nil).Once()
	conversations.On("CreateOrGetPrivate", mock.Anything, 1, 2).
		Return(models.Conversation{ID: 10, User1ID: 1, User2ID: 2}, nil).Once()

	body := bytes.NewBufferString(`{"userId":2}`)
	req := httptest.NewRequest(http.MethodPost, "/conversations/private", body)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var convo models.Conversation
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&convo))
	assert.Equal(t, 10, convo.ID)
	conversations.AssertExpectations(t)
	users.AssertExpectations(t)
}

func TestCreatePrivateConversationWithSelf(t *testing.T) {
	conversations := new(mocks.ConversationRepositoryMock)
	handler := NewConversationHandler(conversations, nil, new(mocks.UserRepositoryMock), ws.NewHub(), nil)
	router := setupConversationRouter(handler)

	body := bytes.NewBufferString(`{"userId":1}`)
	req := httptest.NewRequest(http.MethodPost, "/conversations/private", body)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	conversations.AssertNotCalled(t, "CreateOrGetPrivate", mock.Anything, mock.Anything, mock.Anything)
}

func TestListConversations(t *testing.T) {
	conversations := new(mocks.ConversationRepositoryMock)
	handler := NewConversationHandler(conversations, nil, new(mocks.UserRepositoryMock), ws.NewHub(), nil)
	router := setupConversationRouter(handler)

	conversations.On("ListConversations", mock.Anything, 1).
		Return([]models.ConversationSummary{{ID: 10, OtherParticipant: models.PublicProfile{ID: 2, Name: "bob"}}}, nil).Once()

	req := httptest.NewRequest(http.MethodGet, "/conversations", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	conversations.AssertExpectations(t)
}

func TestListConversationsRepoError(t *testing.T) {
	conversations := new(mocks.ConversationRepositoryMock)
	handler := NewConversationHandler(conversations, nil, new(mocks.UserRepositoryMock), ws.NewHub(), nil)
	router := setupConversationRouter(handler)

	conversations.On("ListConversations", mock.Anything, 1).
		Return(([]models.ConversationSummary)(nil), assert.AnError).Once()

	req := httptest.NewRequest(http.MethodGet, "/conversations", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestGetMessagesAsParticipant(t *testing.T) {
	conversations := new(mocks.ConversationRepositoryMock)
	messages := new(mocks.MessageRepositoryMock)
	handler := NewConversationHandler(conversations, messages, new(mocks.UserRepositoryMock), ws.NewHub(), nil)
	router := setupConversationRouter(handler)

	conversations.On("IsParticipant", mock.Anything, 42, 1).Return(true, nil).Once()
	messages.On("ListMessages", mock.Anything, 42, 50, 0).
		Return([]models.Message{{ID: 1, ConversationID: 42, SenderID: 2, Content: "hey"}}, nil).Once()

	req := httptest.NewRequest(http.MethodGet, "/conversations/42/messages", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	conversations.AssertExpectations(t)
	messages.AssertExpectations(t)
}

func TestGetMessagesForbiddenForNonParticipant(t *testing.T) {
	conversations := new(mocks.ConversationRepositoryMock)
	messages := new(mocks.MessageRepositoryMock)
	handler := NewConversationHandler(conversations, messages, new(mocks.UserRepositoryMock), ws.NewHub(), nil)
	router := setupConversationRouter(handler)

	conversations.On("IsParticipant", mock.Anything, 42, 1).Return(false, nil).Once()

	req := httptest.NewRequest(http.MethodGet, "/conversations/42/messages", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusForbidden, rec.Code)
	messages.AssertNotCalled(t, "ListMessages", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestGetMessagesInvalidID(t *testing.T) {
	handler := NewConversationHandler(new(mocks.ConversationRepositoryMock), new(mocks.MessageRepositoryMock), new(mocks.UserRepositoryMock), ws.NewHub(), nil)
	router := setupConversationRouter(handler)

	req := httptest.NewRequest(http.MethodGet, "/conversations/abc/messages", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}
