package pg

import (
	"context"

	"github.com/waveboard-dev/waveboard/shared/domain"
)

// MarkTopicRead advances the member's read pointer for a topic. Posting
// in a thread always marks it read up to the new message.
func (s *Storage) MarkTopicRead(ctx context.Context, member domain.UserId, topicId domain.TopicId, msgId domain.MsgId) error {
	_, err := s.db.ExecContext(ctx, `
	INSERT INTO topic_read_state(member_id, topic_id, last_read_msg_id)
	VALUES($1, $2, $3)
	ON CONFLICT (member_id, topic_id)
	DO UPDATE SET last_read_msg_id = GREATEST(topic_read_state.last_read_msg_id, EXCLUDED.last_read_msg_id)`,
		member, topicId, msgId)
	return err
}

func (s *Storage) SetTopicWatch(ctx context.Context, member domain.UserId, topicId domain.TopicId, watch bool) error {
	if watch {
		_, err := s.db.ExecContext(ctx, `
		INSERT INTO topic_watch(member_id, topic_id)
		VALUES($1, $2)
		ON CONFLICT DO NOTHING`, member, topicId)
		return err
	}
	_, err := s.db.ExecContext(ctx, `
	DELETE FROM topic_watch WHERE member_id = $1 AND topic_id = $2`, member, topicId)
	return err
}

// NotifyTopicWatchers queues one pending notification per watcher of the
// topic, excluding whoever is already reading it (the sender has a read
// pointer at the new message). When onlyMember is non-zero the fan-out
// collapses to that single member.
func (s *Storage) NotifyTopicWatchers(ctx context.Context, topicId domain.TopicId, msgId domain.MsgId, onlyMember domain.UserId) error {
	_, err := s.db.ExecContext(ctx, `
	INSERT INTO pending_notifications(member_id, topic_id, message_id, created_at)
	SELECT member_id, topic_id, $2, now()
	FROM topic_watch
	WHERE topic_id = $1 AND ($3 = 0 OR member_id = $3)
	ON CONFLICT DO NOTHING`, topicId, msgId, onlyMember)
	return err
}

// NotifyBoardWatchers queues a new-topic notification to board watchers.
func (s *Storage) NotifyBoardWatchers(ctx context.Context, board domain.BoardShortName, topicId domain.TopicId, msgId domain.MsgId) error {
	_, err := s.db.ExecContext(ctx, `
	INSERT INTO pending_notifications(member_id, topic_id, message_id, created_at)
	SELECT member_id, $2, $3, now()
	FROM board_watch
	WHERE board = $1
	ON CONFLICT DO NOTHING`, board, topicId, msgId)
	return err
}
