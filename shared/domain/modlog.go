package domain

import "time"

// ModLogAction names a privileged action recorded in the moderation log.
type ModLogAction string

const (
	ModLogModify  ModLogAction = "modify"
	ModLogLock    ModLogAction = "lock"
	ModLogUnlock  ModLogAction = "unlock"
	ModLogSticky  ModLogAction = "sticky"
	ModLogApprove ModLogAction = "approve"
)

// ModLogEntry is one append-only moderation log record.
type ModLogEntry struct {
	Action    ModLogAction
	ActorId   UserId
	TargetId  UserId // affected member, 0 when not applicable
	Board     BoardShortName
	TopicId   TopicId
	MessageId MsgId
	CreatedAt time.Time
}
