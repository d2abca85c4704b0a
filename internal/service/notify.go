package service

import (
	"context"

	"github.com/waveboard-dev/waveboard/shared/domain"
)

// NotificationSender queues notifications for topic and board watchers.
// It fires only after the message write succeeds, and a failure here is
// logged and swallowed: a notification outage must never make posting
// appear to fail.
type NotificationSender interface {
	// NotifyTopicWatchers queues a reply notification. When onlyMember
	// is non-zero, only that member is notified (unapproved topics tell
	// just the starter).
	NotifyTopicWatchers(ctx context.Context, topicId domain.TopicId, msgId domain.MsgId, onlyMember domain.UserId) error

	// NotifyBoardWatchers queues a new-topic notification to watchers
	// of the board.
	NotifyBoardWatchers(ctx context.Context, board domain.BoardShortName, topicId domain.TopicId, msgId domain.MsgId) error
}

// ModerationLog is the append-only record of privileged actions.
type ModerationLog interface {
	LogAction(ctx context.Context, entry *domain.ModLogEntry) error
}

// SearchIndexer pushes committed, approved messages into the search
// backend. Best effort, same isolation rules as notifications.
type SearchIndexer interface {
	IndexMessage(ctx context.Context, msg *domain.Message) error
}
