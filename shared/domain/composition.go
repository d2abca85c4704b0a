package domain

import "time"

// Mode selects which kind of submission this is. Exactly one is active.
type Mode int

const (
	NewTopic Mode = iota
	Reply
	EditMessage
)

func (m Mode) String() string {
	switch m {
	case NewTopic:
		return "new_topic"
	case Reply:
		return "reply"
	case EditMessage:
		return "edit"
	}
	return "unknown"
}

// TriState expresses a lock or sticky intent: leave alone, set, or clear.
type TriState int

const (
	NoChange TriState = iota
	Set
	Clear
)

// PollDraft is the not-yet-validated poll attached to a submission.
type PollDraft struct {
	Question   string
	Options    []string
	MaxVotes   int
	ExpireDays int
	HideMode   PollHideMode
	GuestVote  bool
	ChangeVote bool
}

// EventDraft is the calendar event attached to a submission. EventId is
// set when editing an existing event; Delete removes it instead.
type EventDraft struct {
	EventId   EventId
	Title     string
	StartDate time.Time
	SpanDays  int
	Delete    bool
}

// GuestIdentity is the per-post identity of an unregistered poster.
type GuestIdentity struct {
	DisplayName string
	Email       string
}

// CompositionRequest is the in-flight unit of work: one submission of a
// new or edited message, threaded through the pipeline as a value. It is
// owned by the request/response cycle and never persisted as-is.
type CompositionRequest struct {
	Mode  Mode
	Board BoardShortName
	// TopicId is required for Reply and EditMessage.
	TopicId TopicId
	// MessageId is required for EditMessage.
	MessageId MsgId

	Guest *GuestIdentity // nil when a member posts

	SubjectRaw string
	BodyRaw    string
	Icon       string

	Poll  *PollDraft
	Event *EventDraft

	// Staged attachment keys to promote on commit, in upload order.
	AttachmentRefs []StagingKey
	// Staged attachment keys the user asked to delete before this submit.
	AttachmentDeletes []StagingKey
	// Permanent attachment ids to keep on an edited message; the rest go.
	KeepAttachmentIds []AttachmentId

	LockRequest   TriState
	StickyRequest TriState

	// ApprovalOverride is an explicit approve/defer from an approve-posts
	// holder; nil means "use the default resolution".
	ApprovalOverride *bool

	// LastSeenMessageId drives the "new replies arrived" advisory.
	LastSeenMessageId MsgId

	// SubmissionToken is the single-use token issued with the form.
	SubmissionToken string

	// SaveDraft short-circuits the pipeline into the draft manager.
	SaveDraft bool
	DraftId   DraftId // draft being resumed, deleted on successful commit

	// Notify toggles topic watch for the poster after commit.
	Notify *bool

	// Preview renders without consuming the submission token or writing.
	Preview bool
}

// Draft is an in-progress composition persisted outside the message
// tables entirely.
type Draft struct {
	Id        DraftId
	OwnerId   UserId
	Board     BoardShortName
	TopicId   TopicId
	Subject   string
	Body      string
	Icon      string
	UpdatedAt time.Time
}
