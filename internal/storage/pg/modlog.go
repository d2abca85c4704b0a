package pg

import (
	"context"

	"github.com/waveboard-dev/waveboard/shared/domain"
)

func (s *Storage) LogAction(ctx context.Context, entry *domain.ModLogEntry) error {
	_, err := s.db.ExecContext(ctx, `
	INSERT INTO moderation_log(action, actor_id, target_id, board, topic_id, message_id, created_at)
	VALUES($1, $2, $3, $4, $5, $6, $7)`,
		entry.Action, entry.ActorId, entry.TargetId, entry.Board, entry.TopicId, entry.MessageId, entry.CreatedAt)
	return err
}

// RecentActions returns the latest moderation log entries for a board,
// newest first.
func (s *Storage) RecentActions(ctx context.Context, board domain.BoardShortName, limit int) ([]*domain.ModLogEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
	SELECT action, actor_id, target_id, board, topic_id, message_id, created_at
	FROM moderation_log
	WHERE board = $1
	ORDER BY created_at DESC
	LIMIT $2`, board, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []*domain.ModLogEntry
	for rows.Next() {
		var e domain.ModLogEntry
		if err := rows.Scan(&e.Action, &e.ActorId, &e.TargetId, &e.Board, &e.TopicId, &e.MessageId, &e.CreatedAt); err != nil {
			return nil, err
		}
		entries = append(entries, &e)
	}
	return entries, rows.Err()
}
