package domain

import "time"

type Message struct {
	Id          MsgId
	TopicId     TopicId
	Board       BoardShortName
	Subject     string
	Body        string
	Icon        string
	PosterId    UserId // 0 for guests
	PosterName  string
	PosterEmail string
	CreatedAt   time.Time
	ModifiedAt  *time.Time
	ModifiedBy  string
	Approved    bool
	Attachments []*Attachment
}

// LockMode is the tri-state lock level on a topic. A moderator lock can
// only be lifted by lock-any holders; an author soft-lock can be toggled
// by the topic starter.
type LockMode int

const (
	LockNone      LockMode = 0
	LockModerator LockMode = 1
	LockAuthor    LockMode = 2
)

func (m LockMode) Locked() bool {
	return m != LockNone
}

type Topic struct {
	Id         TopicId
	Board      BoardShortName
	FirstMsgId MsgId
	LastMsgId  MsgId
	StarterId  UserId
	Locked     LockMode
	Sticky     bool
	PollId     *PollId
	Approved   bool
	NumReplies int
	LastBumped time.Time
}
