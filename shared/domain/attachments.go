package domain

import "io"

// StagedAttachment is a file written to temporary storage before the
// owning message exists. It may outlive a failed submit attempt so the
// user does not re-upload; it is promoted exactly once or purged.
type StagedAttachment struct {
	StagingKey       StagingKey
	OwnerId          UserId
	OriginalName     string
	ByteSize         int64
	MimeType         string
	TempPath         string
	ImageWidth       *int
	ImageHeight      *int
	ValidationErrors []string
}

// StagingContext records which post the session's staged files were
// uploaded for, so an abandoned edit can't leak files into another post.
type StagingContext struct {
	Board     BoardShortName
	MessageId MsgId // 0 when composing a new post
}

func (c StagingContext) Matches(board BoardShortName, messageId MsgId) bool {
	if c.MessageId != 0 || messageId != 0 {
		return c.MessageId == messageId
	}
	return c.Board == board
}

// Attachment is a permanent attachment row created when a staged file is
// promoted onto a committed message.
type Attachment struct {
	Id           AttachmentId
	MessageId    MsgId
	Board        BoardShortName
	FilePath     string
	OriginalName string
	ByteSize     int64
	MimeType     string
	Approved     bool
}

// PendingFile is an upload in flight, before it reaches the staging area.
type PendingFile struct {
	OriginalName string
	ByteSize     int64
	MimeType     string
	ImageWidth   *int
	ImageHeight  *int
	Data         io.Reader
}
