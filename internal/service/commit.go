package service

import (
	"time"

	"github.com/waveboard-dev/waveboard/shared/domain"
)

// EventAction selects what happens to the linked calendar event.
type EventAction int

const (
	EventCreate EventAction = iota
	EventUpdate
	EventDelete
)

type EventOp struct {
	Action EventAction
	Event  domain.Event
}

// CommitParams is everything the storage layer needs to perform the
// authorized mutation as one logical transaction: message write, topic
// create/update, poll creation, attachment rows, event link. If any
// sub-creation fails the whole commit fails; no orphan rows remain.
type CommitParams struct {
	Mode  domain.Mode
	Board domain.BoardShortName

	TopicId   domain.TopicId // 0 when creating a new topic
	MessageId domain.MsgId   // 0 unless editing

	Subject string
	Body    string
	Icon    string

	PosterId    domain.UserId
	PosterName  string
	PosterEmail string

	Approved bool
	// WriteApproved is false when an edit leaves the approval state
	// untouched, so the column isn't rewritten for nothing.
	WriteApproved bool
	// TopicApproved seeds the topic-level gate for new topics.
	TopicApproved bool

	// Modify-audit fields; nil/empty means the edit stays invisible in
	// the audit trail (grace-period edit by the author).
	ModifiedAt *time.Time
	ModifiedBy string

	Lock   *domain.LockMode
	Sticky *bool

	Poll *domain.Poll

	Event *EventOp

	AttachmentsApproved bool
	// KeepAttachmentIds prunes the edited message's existing attachments
	// down to this set. Nil means the client sent no list and everything
	// is kept.
	KeepAttachmentIds []domain.AttachmentId
	PruneAttachments  bool
}

// AttachmentPromoter runs inside the commit transaction, once the
// message id is known. It moves staged files into permanent storage and
// returns the attachment rows to insert, plus per-file failures that are
// reported to the submitter without failing the commit.
type AttachmentPromoter func(topicId domain.TopicId, messageId domain.MsgId) (rows []*domain.Attachment, fileErrors []string)

type CommitReceipt struct {
	MessageId     domain.MsgId
	TopicId       domain.TopicId
	PollId        *domain.PollId
	AttachmentIds []domain.AttachmentId
	// FileErrors lists staged attachments that could not be promoted;
	// they were removed from staging regardless.
	FileErrors []string
}
