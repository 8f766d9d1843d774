package repository

import (
	"context"
	"fmt"

	"github.com/lib/pq"

	"github.com/mymail/mymail/internal/model"
)

// CreateMessage stores a message and its recipient rows in a single
// transaction and returns the server-assigned message ID. Recipients
// are assumed to be validated (non-empty, sender excluded) by the caller.
func (r *Repository) CreateMessage(ctx context.Context, msg *model.Message) (int64, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var id int64
	err = tx.QueryRow(ctx,
		`INSERT INTO messages (from_user_id, text, timestamp) VALUES ($1, $2, $3) RETURNING id`,
		msg.FromUserID,
		msg.Text,
		msg.Timestamp,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to insert message: %w", err)
	}

	for _, toUserID := range msg.ToUserIDs {
		_, err = tx.Exec(ctx,
			`INSERT INTO message_recipients (message_id, to_user_id, is_read) VALUES ($1, $2, FALSE)`,
			id,
			toUserID,
		)
		if err != nil {
			return 0, fmt.Errorf("failed to insert recipient: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("failed to commit message: %w", err)
	}

	return id, nil
}

// ListMessages returns all messages visible to userID (sent or
// received) with ID greater than sinceID, ordered by ID. A sinceID of
// zero returns the full history.
func (r *Repository) ListMessages(ctx context.Context, userID, sinceID int64) ([]model.Message, error) {
	query := `
		SELECT m.id, m.from_user_id, m.text, m.timestamp,
		       array_agg(mr.to_user_id ORDER BY mr.to_user_id) AS to_user_ids
		FROM messages m
		JOIN message_recipients mr ON m.id = mr.message_id
		WHERE (m.from_user_id = $1 OR EXISTS (
			SELECT 1 FROM message_recipients x
			WHERE x.message_id = m.id AND x.to_user_id = $1
		))
		  AND m.id > $2
		GROUP BY m.id, m.from_user_id, m.text, m.timestamp
		ORDER BY m.id
	`

	rows, err := r.pool.Query(ctx, query, userID, sinceID)
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}
	defer rows.Close()

	messages := make([]model.Message, 0)
	for rows.Next() {
		var msg model.Message
		if err := rows.Scan(
			&msg.ID,
			&msg.FromUserID,
			&msg.Text,
			&msg.Timestamp,
			pq.Array(&msg.ToUserIDs),
		); err != nil {
			return nil, fmt.Errorf("failed to scan message row: %w", err)
		}
		messages = append(messages, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read message rows: %w", err)
	}

	return messages, nil
}
