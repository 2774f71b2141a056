package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/scanmatch-inc/scanmatch-engine/pkg/database"
	"github.com/scanmatch-inc/scanmatch-engine/pkg/models"
)

// ChatRepository defines the interface for coach transcript data access.
// Messages are append-only rows, so concurrent sends interleave rather than
// overwrite each other.
type ChatRepository interface {
	Append(ctx context.Context, msg *models.ChatMessage) error
	ListByUserID(ctx context.Context, userID uuid.UUID, limit int) ([]*models.ChatMessage, error)
	Clear(ctx context.Context, userID uuid.UUID) error
}

// chatRepository implements ChatRepository using PostgreSQL.
type chatRepository struct {
	db *database.DB
}

// NewChatRepository creates a new chat repository.
func NewChatRepository(db *database.DB) ChatRepository {
	return &chatRepository{db: db}
}

// Append adds one message to a user's transcript.
func (r *chatRepository) Append(ctx context.Context, msg *models.ChatMessage) error {
	if msg.ID == uuid.Nil {
		msg.ID = uuid.New()
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now()
	}

	query := `
		INSERT INTO chat_messages (id, user_id, role, content, created_at)
		VALUES ($1, $2, $3, $4, $5)`

	_, err := r.db.Exec(ctx, query, msg.ID, msg.UserID, msg.Role, msg.Content, msg.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to append chat message: %w", err)
	}

	return nil
}

// ListByUserID retrieves a user's transcript in chronological order.
// With a positive limit, the most recent messages are returned (still in
// chronological order) so the result can be used directly as model context.
func (r *chatRepository) ListByUserID(ctx context.Context, userID uuid.UUID, limit int) ([]*models.ChatMessage, error) {
	if limit <= 0 {
		limit = 200
	}

	query := `
		SELECT id, user_id, role, content, created_at
		FROM (
			SELECT id, user_id, role, content, created_at
			FROM chat_messages
			WHERE user_id = $1
			ORDER BY created_at DESC
			LIMIT $2
		) recent
		ORDER BY created_at ASC`

	rows, err := r.db.Query(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list chat messages: %w", err)
	}
	defer rows.Close()

	var messages []*models.ChatMessage
	for rows.Next() {
		var msg models.ChatMessage
		if err := rows.Scan(&msg.ID, &msg.UserID, &msg.Role, &msg.Content, &msg.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan chat message: %w", err)
		}
		messages = append(messages, &msg)
	}

	return messages, rows.Err()
}

// Clear deletes a user's entire transcript.
func (r *chatRepository) Clear(ctx context.Context, userID uuid.UUID) error {
	query := `DELETE FROM chat_messages WHERE user_id = $1`

	if _, err := r.db.Exec(ctx, query, userID); err != nil {
		return fmt.Errorf("failed to clear chat messages: %w", err)
	}

	return nil
}
