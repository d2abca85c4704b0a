package pg

import (
	"context"
	"database/sql"
	goerrors "errors"

	"github.com/waveboard-dev/waveboard/shared/domain"
	"github.com/waveboard-dev/waveboard/shared/errors"
)

func notFound(err error) error {
	if goerrors.Is(err, sql.ErrNoRows) {
		return errors.NotFound
	}
	return err
}

func (s *Storage) GetTopic(ctx context.Context, id domain.TopicId) (*domain.Topic, error) {
	var t domain.Topic
	var pollId sql.NullInt64
	err := s.db.QueryRowContext(ctx, `
	SELECT
		id,
		board,
		first_msg_id,
		last_msg_id,
		starter_id,
		locked,
		sticky,
		poll_id,
		approved,
		num_replies,
		last_bumped
	FROM topics
	WHERE id = $1`, id).Scan(&t.Id, &t.Board, &t.FirstMsgId, &t.LastMsgId, &t.StarterId,
		&t.Locked, &t.Sticky, &pollId, &t.Approved, &t.NumReplies, &t.LastBumped)
	if err != nil {
		return nil, notFound(err)
	}
	if pollId.Valid {
		t.PollId = &pollId.Int64
	}
	return &t, nil
}

func (s *Storage) GetMessage(ctx context.Context, id domain.MsgId) (*domain.Message, error) {
	var m domain.Message
	var modifiedAt sql.NullTime
	var modifiedBy sql.NullString
	err := s.db.QueryRowContext(ctx, `
	SELECT
		id,
		topic_id,
		board,
		subject,
		body,
		icon,
		poster_id,
		poster_name,
		poster_email,
		created_at,
		modified_at,
		modified_by,
		approved
	FROM messages
	WHERE id = $1`, id).Scan(&m.Id, &m.TopicId, &m.Board, &m.Subject, &m.Body, &m.Icon,
		&m.PosterId, &m.PosterName, &m.PosterEmail, &m.CreatedAt, &modifiedAt, &modifiedBy, &m.Approved)
	if err != nil {
		return nil, notFound(err)
	}
	if modifiedAt.Valid {
		m.ModifiedAt = &modifiedAt.Time
	}
	if modifiedBy.Valid {
		m.ModifiedBy = modifiedBy.String
	}

	rows, err := s.db.QueryContext(ctx, `
	SELECT id, message_id, board, file_path, original_name, byte_size, mime_type, approved
	FROM attachments
	WHERE message_id = $1
	ORDER BY id`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var a domain.Attachment
		if err := rows.Scan(&a.Id, &a.MessageId, &a.Board, &a.FilePath, &a.OriginalName,
			&a.ByteSize, &a.MimeType, &a.Approved); err != nil {
			return nil, err
		}
		m.Attachments = append(m.Attachments, &a)
	}
	return &m, rows.Err()
}

// CountRepliesSince backs the "new replies arrived" advisory. Actors who
// cannot approve posts only see approved replies counted.
func (s *Storage) CountRepliesSince(ctx context.Context, topicId domain.TopicId, since domain.MsgId, approvedOnly bool) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `
	SELECT COUNT(*)
	FROM messages
	WHERE topic_id = $1 AND id > $2 AND (NOT $3 OR approved)`,
		topicId, since, approvedOnly).Scan(&count)
	if err != nil {
		return 0, err
	}
	return count, nil
}

func (s *Storage) GetEvent(ctx context.Context, id domain.EventId) (*domain.Event, error) {
	var e domain.Event
	err := s.db.QueryRowContext(ctx, `
	SELECT id, board, topic_id, member_id, title, start_date, span_days
	FROM calendar_events
	WHERE id = $1`, id).Scan(&e.Id, &e.Board, &e.TopicId, &e.MemberId, &e.Title, &e.StartDate, &e.SpanDays)
	if err != nil {
		return nil, notFound(err)
	}
	return &e, nil
}
