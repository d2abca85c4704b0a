package domain

type (
	UserId         = int64
	BoardShortName = string

	TopicId      = int64
	MsgId        = int64
	PollId       = int64
	EventId      = int64
	DraftId      = int64
	AttachmentId = int64

	// StagingKey identifies a staged attachment. It embeds the owning
	// user id so cross-user access is structurally impossible.
	StagingKey = string
)
