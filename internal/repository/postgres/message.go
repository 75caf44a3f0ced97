package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/lalith-99/ugcflow/internal/models"
	"github.com/lalith-99/ugcflow/internal/repository"
)

type MessageStore struct {
	q querier
}

func (s *MessageStore) Create(ctx context.Context, m *models.Message) error {
	// Messages use bigserial, so we don't pass an ID. Postgres generates it
	// and RETURNING gives it back.
	query := `
		INSERT INTO messages (project_id, sender_id, recipient_id, channel, content, created_at)
		VALUES ($1, $2, $3, $4, $5, clock_timestamp())
		RETURNING id, created_at`

	err := s.q.QueryRow(ctx, query, m.ProjectID, m.SenderID, m.RecipientID, string(m.Channel), m.Content).
		Scan(&m.ID, &m.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert message: %w", err)
	}
	return nil
}

// History returns one (project, channel) partition in (created_at, id)
// order. The query is built from the optional filters; every path shares
// the same ORDER BY so ties on created_at are broken by id.
func (s *MessageStore) History(ctx context.Context, q repository.HistoryQuery) ([]models.Message, error) {
	var (
		where = []string{"channel = $1"}
		args  = []any{string(q.Channel)}
	)
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if q.ProjectID != nil {
		where = append(where, "project_id = "+arg(*q.ProjectID))
	} else {
		where = append(where, "project_id IS NULL")
	}
	if q.Participant != nil {
		p := arg(*q.Participant)
		where = append(where, "(sender_id = "+p+" OR recipient_id = "+p+")")
	}
	if q.After > 0 {
		// The cursor compares on the sort key, so ids committed out of
		// created_at order are neither skipped nor repeated.
		where = append(where, "(created_at, id) > (SELECT created_at, id FROM messages WHERE id = "+arg(q.After)+")")
	}

	query := `
		SELECT id, project_id, sender_id, recipient_id, channel, content, created_at
		FROM messages
		WHERE ` + strings.Join(where, " AND ") + `
		ORDER BY created_at ASC, id ASC`
	if q.Limit > 0 {
		query += " LIMIT " + arg(q.Limit)
	}

	rows, err := s.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	defer rows.Close()

	messages := make([]models.Message, 0)
	for rows.Next() {
		var msg models.Message
		if err := rows.Scan(
			&msg.ID,
			&msg.ProjectID,
			&msg.SenderID,
			&msg.RecipientID,
			&msg.Channel,
			&msg.Content,
			&msg.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		messages = append(messages, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate messages: %w", err)
	}

	return messages, nil
}
