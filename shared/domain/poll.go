package domain

import "time"

// PollHideMode controls when voters may see results.
type PollHideMode int

const (
	PollShowAlways     PollHideMode = 0
	PollHideUntilVoted PollHideMode = 1
	PollHideUntilClose PollHideMode = 2 // only legal for expiring polls
)

type Poll struct {
	Id         PollId
	Question   string
	MaxVotes   int
	ExpiresAt  *time.Time
	HideMode   PollHideMode
	GuestVote  bool
	ChangeVote bool
	PosterId   UserId
	PosterName string
	Options    []PollOption
}

type PollOption struct {
	PollId PollId
	Index  int
	Label  string
}

type Event struct {
	Id        EventId
	Board     BoardShortName
	TopicId   TopicId
	MemberId  UserId
	Title     string
	StartDate time.Time
	SpanDays  int
}
