package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"messenger-service/internal/models"
)

var ErrConversationNotFound = errors.New("conversation not found")

// ConversationRepository abstracts conversation persistence and the
// participant lookups the gateway depends on.
type ConversationRepository interface {
	CreateOrGetPrivate(ctx context.Context, userID, peerID int) (models.Conversation, error)
	GetConversation(ctx context.Context, conversationID int) (models.Conversation, error)
	IsParticipant(ctx context.Context, conversationID, userID int) (bool, error)
	ListConversationIDs(ctx context.Context, userID int) ([]int, error)
	ListConversations(ctx context.Context, userID int) ([]models.ConversationSummary, error)
}

// ConversationRepo is a sqlx implementation of ConversationRepository.
type ConversationRepo struct {
	db *sqlx.DB
}

// NewConversationRepo constructs a ConversationRepo.
func NewConversationRepo(db *sqlx.DB) *ConversationRepo {
	return &ConversationRepo{db: db}
}

// CreateOrGetPrivate returns the private conversation between the two users,
// creating it if necessary. The pair is normalized and guarded by a unique
// constraint, so two concurrent calls converge on the same row.
func (r *ConversationRepo) CreateOrGetPrivate(ctx context.Context, userID, peerID int) (models.Conversation, error) {
	if userID == peerID {
		return models.Conversation{}, errors.New("cannot start a conversation with yourself")
	}
	user1, user2 := userID, peerID
	if user1 > user2 {
		user1, user2 = user2, user1
	}

	if _, err := r.db.ExecContext(ctx,
		`INSERT INTO conversations (user1_id, user2_id) VALUES ($1, $2)
         ON CONFLICT (user1_id, user2_id) DO NOTHING`,
		user1, user2); err != nil {
		return models.Conversation{}, err
	}

	var convo models.Conversation
	err := r.db.GetContext(ctx, &convo,
		`SELECT id, user1_id, user2_id, created_at, updated_at
         FROM conversations WHERE user1_id=$1 AND user2_id=$2`,
		user1, user2)
	return convo, err
}

// GetConversation fetches a conversation by id.
func (r *ConversationRepo) GetConversation(ctx context.Context, conversationID int) (models.Conversation, error) {
	var convo models.Conversation
	err := r.db.GetContext(ctx, &convo,
		`SELECT id, user1_id, user2_id, created_at, updated_at FROM conversations WHERE id=$1`,
		conversationID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Conversation{}, ErrConversationNotFound
	}
	return convo, err
}

// IsParticipant checks whether the user belongs to the conversation.
func (r *ConversationRepo) IsParticipant(ctx context.Context, conversationID, userID int) (bool, error) {
	var exists bool
	err := r.db.GetContext(ctx, &exists,
		`SELECT EXISTS(SELECT 1 FROM conversations WHERE id=$1 AND (user1_id=$2 OR user2_id=$2))`,
		conversationID, userID)
	return exists, err
}

// ListConversationIDs returns the ids of every conversation the user is in.
func (r *ConversationRepo) ListConversationIDs(ctx context.Context, userID int) ([]int, error) {
	var ids []int
	err := r.db.SelectContext(ctx, &ids,
		`SELECT id FROM conversations WHERE user1_id=$1 OR user2_id=$1`, userID)
	return ids, err
}

type conversationRow struct {
	models.Conversation
	PeerID        int            `db:"peer_id"`
	PeerEmail     string         `db:"peer_email"`
	PeerName      string         `db:"peer_name"`
	PeerAvatarURL string         `db:"peer_avatar_url"`
	MsgID         sql.NullInt64  `db:"msg_id"`
	MsgSenderID   sql.NullInt64  `db:"msg_sender_id"`
	MsgContent    sql.NullString `db:"msg_content"`
	MsgCreatedAt  sql.NullTime   `db:"msg_created_at"`
}

// ListConversations returns the user's conversations, most recently updated
// first, each with the other participant's profile and the last message.
func (r *ConversationRepo) ListConversations(ctx context.Context, userID int) ([]models.ConversationSummary, error) {
	query := `SELECT c.id, c.user1_id, c.user2_id, c.created_at, c.updated_at,
            u.id AS peer_id, u.email AS peer_email, u.name AS peer_name, u.avatar_url AS peer_avatar_url,
            m.id AS msg_id, m.sender_id AS msg_sender_id, m.content AS msg_content, m.created_at AS msg_created_at
        FROM conversations c
        JOIN users u ON u.id = CASE WHEN c.user1_id = $1 THEN c.user2_id ELSE c.user1_id END
        LEFT JOIN LATERAL (
            SELECT id, sender_id, content, created_at FROM messages
            WHERE conversation_id = c.id ORDER BY created_at DESC, id DESC LIMIT 1
        ) m ON TRUE
        WHERE c.user1_id = $1 OR c.user2_id = $1
        ORDER BY c.updated_at DESC`

	var rows []conversationRow
	if err := r.db.SelectContext(ctx, &rows, query, userID); err != nil {
		return nil, err
	}

	summaries := make([]models.ConversationSummary, 0, len(rows))
	for _, row := range rows {
		summary := models.ConversationSummary{
			ID: row.ID,
			OtherParticipant: models.PublicProfile{
				ID:        row.PeerID,
				Email:     row.PeerEmail,
				Name:      row.PeerName,
				AvatarURL: row.PeerAvatarURL,
			},
			CreatedAt: row.CreatedAt,
			UpdatedAt: row.UpdatedAt,
		}
		if row.MsgID.Valid {
			summary.LastMessage = &models.Message{
				ID:             int(row.MsgID.Int64),
				ConversationID: row.ID,
				SenderID:       int(row.MsgSenderID.Int64),
				Content:        row.MsgContent.String,
				CreatedAt:      row.MsgCreatedAt.Time,
			}
		}
		summaries = append(summaries, summary)
	}
	return summaries, nil
}
