package pg

import (
	"context"
	"database/sql"
	"time"

	"github.com/lib/pq"

	"github.com/waveboard-dev/waveboard/internal/service"
	"github.com/waveboard-dev/waveboard/shared/domain"
)

// CommitPost performs the whole authorized mutation as one transaction.
// The attachment promoter runs after the message row exists, so file
// moves happen with the final ids; a failed commit rolls every row back.
func (s *Storage) CommitPost(ctx context.Context, p *service.CommitParams, promote service.AttachmentPromoter) (*service.CommitReceipt, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback() // The rollback will be ignored if the tx has been committed later in the function.

	receipt := &service.CommitReceipt{TopicId: p.TopicId}

	if p.Poll != nil {
		pollId, err := insertPoll(ctx, tx, p.Poll)
		if err != nil {
			return nil, err
		}
		receipt.PollId = &pollId
	}

	switch p.Mode {
	case domain.NewTopic:
		if err := createTopic(ctx, tx, p, receipt); err != nil {
			return nil, err
		}
	case domain.Reply:
		if err := appendReply(ctx, tx, p, receipt); err != nil {
			return nil, err
		}
	case domain.EditMessage:
		if err := updateMessage(ctx, tx, p, receipt); err != nil {
			return nil, err
		}
	}

	if p.Event != nil {
		if err := applyEvent(ctx, tx, p.Event, receipt.TopicId); err != nil {
			return nil, err
		}
	}

	if promote != nil {
		rows, fileErrors := promote(receipt.TopicId, receipt.MessageId)
		receipt.FileErrors = fileErrors
		for _, a := range rows {
			var id domain.AttachmentId
			err := tx.QueryRowContext(ctx, `
			INSERT INTO attachments(message_id, board, file_path, original_name, byte_size, mime_type, approved)
			VALUES($1, $2, $3, $4, $5, $6, $7)
			RETURNING id`,
				receipt.MessageId, a.Board, a.FilePath, a.OriginalName, a.ByteSize, a.MimeType, p.AttachmentsApproved).Scan(&id)
			if err != nil {
				return nil, err
			}
			receipt.AttachmentIds = append(receipt.AttachmentIds, id)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return receipt, nil
}

func insertPoll(ctx context.Context, tx *sql.Tx, poll *domain.Poll) (domain.PollId, error) {
	var id domain.PollId
	var expires sql.NullTime
	if poll.ExpiresAt != nil {
		expires = sql.NullTime{Time: *poll.ExpiresAt, Valid: true}
	}
	err := tx.QueryRowContext(ctx, `
	INSERT INTO polls(question, max_votes, expires_at, hide_mode, guest_vote, change_vote, poster_id, poster_name)
	VALUES($1, $2, $3, $4, $5, $6, $7, $8)
	RETURNING id`,
		poll.Question, poll.MaxVotes, expires, poll.HideMode, poll.GuestVote,
		poll.ChangeVote, poll.PosterId, poll.PosterName).Scan(&id)
	if err != nil {
		return 0, err
	}
	for _, opt := range poll.Options {
		_, err := tx.ExecContext(ctx, `
		INSERT INTO poll_options(poll_id, idx, label) VALUES($1, $2, $3)`,
			id, opt.Index, opt.Label)
		if err != nil {
			return 0, err
		}
	}
	return id, nil
}

func createTopic(ctx context.Context, tx *sql.Tx, p *service.CommitParams, receipt *service.CommitReceipt) error {
	locked := domain.LockNone
	if p.Lock != nil {
		locked = *p.Lock
	}
	sticky := p.Sticky != nil && *p.Sticky

	err := tx.QueryRowContext(ctx, `
	INSERT INTO topics(board, starter_id, locked, sticky, poll_id, approved, num_replies, last_bumped)
	VALUES($1, $2, $3, $4, $5, $6, 0, now())
	RETURNING id`,
		p.Board, p.PosterId, locked, sticky, receipt.PollId, p.Approved).Scan(&receipt.TopicId)
	if err != nil {
		return err
	}

	if err := insertMessage(ctx, tx, p, receipt); err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx, `
	UPDATE topics SET first_msg_id = $2, last_msg_id = $2 WHERE id = $1`,
		receipt.TopicId, receipt.MessageId)
	return err
}

func appendReply(ctx context.Context, tx *sql.Tx, p *service.CommitParams, receipt *service.CommitReceipt) error {
	if err := insertMessage(ctx, tx, p, receipt); err != nil {
		return err
	}

	// Only approved replies bump the topic and its reply counter;
	// pending ones become visible when the queue releases them.
	if p.Approved {
		_, err := tx.ExecContext(ctx, `
		UPDATE topics SET
			last_msg_id = $2,
			num_replies = num_replies + 1,
			last_bumped = now()
		WHERE id = $1`, receipt.TopicId, receipt.MessageId)
		if err != nil {
			return err
		}
	}

	return updateTopicFlags(ctx, tx, p, receipt)
}

func updateMessage(ctx context.Context, tx *sql.Tx, p *service.CommitParams, receipt *service.CommitReceipt) error {
	receipt.MessageId = p.MessageId

	var modifiedAt sql.NullTime
	var modifiedBy sql.NullString
	if p.ModifiedAt != nil {
		modifiedAt = sql.NullTime{Time: *p.ModifiedAt, Valid: true}
		modifiedBy = sql.NullString{String: p.ModifiedBy, Valid: true}
	}

	res, err := tx.ExecContext(ctx, `
	UPDATE messages SET
		subject = $2,
		body = $3,
		icon = $4,
		poster_name = $5,
		poster_email = $6,
		modified_at = COALESCE($7, modified_at),
		modified_by = COALESCE($8, modified_by),
		approved = CASE WHEN $9 THEN $10 ELSE approved END
	WHERE id = $1`,
		p.MessageId, p.Subject, p.Body, p.Icon, p.PosterName, p.PosterEmail,
		modifiedAt, modifiedBy, p.WriteApproved, p.Approved)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}

	if p.PruneAttachments {
		keep := make([]int64, 0, len(p.KeepAttachmentIds))
		for _, id := range p.KeepAttachmentIds {
			keep = append(keep, int64(id))
		}
		// Row removal only; the transaction never touches the filesystem.
		_, err = tx.ExecContext(ctx, `
		DELETE FROM attachments WHERE message_id = $1 AND NOT (id = ANY($2))`,
			p.MessageId, pq.Array(keep))
		if err != nil {
			return err
		}
	}

	// An approval change on the opening post carries the whole topic.
	_, err = tx.ExecContext(ctx, `
	UPDATE topics SET approved = $3
	WHERE id = $1 AND first_msg_id = $2 AND $4`,
		p.TopicId, p.MessageId, p.Approved, p.WriteApproved)
	if err != nil {
		return err
	}

	return updateTopicFlags(ctx, tx, p, receipt)
}

func updateTopicFlags(ctx context.Context, tx *sql.Tx, p *service.CommitParams, receipt *service.CommitReceipt) error {
	if p.Lock != nil {
		if _, err := tx.ExecContext(ctx, `UPDATE topics SET locked = $2 WHERE id = $1`, receipt.TopicId, *p.Lock); err != nil {
			return err
		}
	}
	if p.Sticky != nil {
		if _, err := tx.ExecContext(ctx, `UPDATE topics SET sticky = $2 WHERE id = $1`, receipt.TopicId, *p.Sticky); err != nil {
			return err
		}
	}
	if receipt.PollId != nil {
		if _, err := tx.ExecContext(ctx, `UPDATE topics SET poll_id = $2 WHERE id = $1 AND poll_id IS NULL`, receipt.TopicId, *receipt.PollId); err != nil {
			return err
		}
	}
	return nil
}

func insertMessage(ctx context.Context, tx *sql.Tx, p *service.CommitParams, receipt *service.CommitReceipt) error {
	return tx.QueryRowContext(ctx, `
	INSERT INTO messages(topic_id, board, subject, body, icon, poster_id, poster_name, poster_email, created_at, approved)
	VALUES($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	RETURNING id`,
		receipt.TopicId, p.Board, p.Subject, p.Body, p.Icon, p.PosterId,
		p.PosterName, p.PosterEmail, time.Now(), p.Approved).Scan(&receipt.MessageId)
}

var (
	_ service.Storage            = (*Storage)(nil)
	_ service.DraftStorage       = (*Storage)(nil)
	_ service.NotificationSender = (*Storage)(nil)
	_ service.ModerationLog      = (*Storage)(nil)
	_ service.NameRegistry       = (*Storage)(nil)
)

func applyEvent(ctx context.Context, tx *sql.Tx, op *service.EventOp, topicId domain.TopicId) error {
	switch op.Action {
	case service.EventDelete:
		_, err := tx.ExecContext(ctx, `DELETE FROM calendar_events WHERE id = $1`, op.Event.Id)
		return err
	case service.EventUpdate:
		_, err := tx.ExecContext(ctx, `
		UPDATE calendar_events SET title = $2, start_date = $3, span_days = $4
		WHERE id = $1`, op.Event.Id, op.Event.Title, op.Event.StartDate, op.Event.SpanDays)
		return err
	default:
		_, err := tx.ExecContext(ctx, `
		INSERT INTO calendar_events(board, topic_id, member_id, title, start_date, span_days)
		VALUES($1, $2, $3, $4, $5, $6)`,
			op.Event.Board, topicId, op.Event.MemberId, op.Event.Title, op.Event.StartDate, op.Event.SpanDays)
		return err
	}
}
