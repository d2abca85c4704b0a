package pg

import (
	"context"

	"github.com/waveboard-dev/waveboard/shared/domain"
)

// SaveDraft inserts or updates the member's draft and returns its id.
func (s *Storage) SaveDraft(ctx context.Context, d *domain.Draft) (domain.DraftId, error) {
	if d.Id != 0 {
		res, err := s.db.ExecContext(ctx, `
		UPDATE drafts SET
			board = $3,
			topic_id = $4,
			subject = $5,
			body = $6,
			icon = $7,
			updated_at = now()
		WHERE id = $1 AND owner_id = $2`,
			d.Id, d.OwnerId, d.Board, d.TopicId, d.Subject, d.Body, d.Icon)
		if err != nil {
			return 0, err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return 0, err
		}
		if n > 0 {
			return d.Id, nil
		}
		// Stale id, e.g. a draft deleted in another tab; fall through to
		// insert so the user's text is not lost.
	}

	var id domain.DraftId
	err := s.db.QueryRowContext(ctx, `
	INSERT INTO drafts(owner_id, board, topic_id, subject, body, icon, updated_at)
	VALUES($1, $2, $3, $4, $5, $6, now())
	RETURNING id`,
		d.OwnerId, d.Board, d.TopicId, d.Subject, d.Body, d.Icon).Scan(&id)
	if err != nil {
		return 0, err
	}
	return id, nil
}

func (s *Storage) DeleteDraft(ctx context.Context, id domain.DraftId, owner domain.UserId) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM drafts WHERE id = $1 AND owner_id = $2`, id, owner)
	return err
}

func (s *Storage) GetDraft(ctx context.Context, id domain.DraftId, owner domain.UserId) (*domain.Draft, error) {
	var d domain.Draft
	err := s.db.QueryRowContext(ctx, `
	SELECT id, owner_id, board, topic_id, subject, body, icon, updated_at
	FROM drafts
	WHERE id = $1 AND owner_id = $2`, id, owner).Scan(
		&d.Id, &d.OwnerId, &d.Board, &d.TopicId, &d.Subject, &d.Body, &d.Icon, &d.UpdatedAt)
	if err != nil {
		return nil, notFound(err)
	}
	return &d, nil
}

func (s *Storage) ListDrafts(ctx context.Context, owner domain.UserId) ([]*domain.Draft, error) {
	rows, err := s.db.QueryContext(ctx, `
	SELECT id, owner_id, board, topic_id, subject, body, icon, updated_at
	FROM drafts
	WHERE owner_id = $1
	ORDER BY updated_at DESC`, owner)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var drafts []*domain.Draft
	for rows.Next() {
		var d domain.Draft
		if err := rows.Scan(&d.Id, &d.OwnerId, &d.Board, &d.TopicId, &d.Subject, &d.Body, &d.Icon, &d.UpdatedAt); err != nil {
			return nil, err
		}
		drafts = append(drafts, &d)
	}
	return drafts, rows.Err()
}
