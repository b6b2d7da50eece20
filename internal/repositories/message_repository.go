package repositories

import (
	"context"
	"errors"

	"github.com/jmoiron/sqlx"

	"messenger-service/internal/models"
)

var ErrMessageNotFound = errors.New("message not found")

// MessageRepository defines persistence for conversation messages.
type MessageRepository interface {
	CreateMessage(ctx context.Context, conversationID, senderID int, content string) (models.Message, error)
	ListMessages(ctx context.Context, conversationID, limit, offset int) ([]models.Message, error)
}

// MessageRepo is a sqlx-backed repository.
type MessageRepo struct {
	db *sqlx.DB
}

// NewMessageRepo constructs MessageRepo.
func NewMessageRepo(db *sqlx.DB) *MessageRepo {
	return &MessageRepo{db: db}
}

type messageRow struct {
	models.Message
	SenderEmail     string `db:"sender_email"`
	SenderName      string `db:"sender_name"`
	SenderAvatarURL string `db:"sender_avatar_url"`
}

func (row messageRow) toMessage() models.Message {
	msg := row.Message
	msg.Sender = &models.PublicProfile{
		ID:        msg.SenderID,
		Email:     row.SenderEmail,
		Name:      row.SenderName,
		AvatarURL: row.SenderAvatarURL,
	}
	return msg
}

// CreateMessage inserts the message and touches the conversation's updated_at
// in a single transaction, then returns the message with the sender's public
// profile attached.
func (r *MessageRepo) CreateMessage(ctx context.Context, conversationID, senderID int, content string) (models.Message, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return models.Message{}, err
	}
	defer tx.Rollback()

	var msg models.Message
	err = tx.QueryRowxContext(ctx,
		`INSERT INTO messages (conversation_id, sender_id, content) VALUES ($1, $2, $3)
         RETURNING id, conversation_id, sender_id, content, created_at`,
		conversationID, senderID, content).StructScan(&msg)
	if err != nil {
		return models.Message{}, err
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE conversations SET updated_at = NOW() WHERE id=$1`, conversationID); err != nil {
		return models.Message{}, err
	}

	var sender models.PublicProfile
	if err := tx.GetContext(ctx, &sender,
		`SELECT id, email, name, avatar_url FROM users WHERE id=$1`, senderID); err != nil {
		return models.Message{}, err
	}

	if err := tx.Commit(); err != nil {
		return models.Message{}, err
	}

	msg.Sender = &sender
	return msg, nil
}

// ListMessages returns conversation messages oldest first, with sender info.
func (r *MessageRepo) ListMessages(ctx context.Context, conversationID, limit, offset int) ([]models.Message, error) {
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	query := `SELECT m.id, m.conversation_id, m.sender_id, m.content, m.created_at,
            u.email AS sender_email, u.name AS sender_name, u.avatar_url AS sender_avatar_url
        FROM messages m
        JOIN users u ON u.id = m.sender_id
        WHERE m.conversation_id=$1
        ORDER BY m.created_at ASC, m.id ASC
        LIMIT $2 OFFSET $3`

	var rows []messageRow
	if err := r.db.SelectContext(ctx, &rows, query, conversationID, limit, offset); err != nil {
		return nil, err
	}

	msgs := make([]models.Message, 0, len(rows))
	for _, row := range rows {
		msgs = append(msgs, row.toMessage())
	}
	return msgs, nil
}
