package domain

import (
	"fmt"
	"time"
)

// for debug
func (m *Message) String() string {
	s := fmt.Sprintf("[id:%d, topic:%d, poster:%d/%s, subject:%q, approved:%v, created:%s, attachments:[",
		m.Id, m.TopicId, m.PosterId, m.PosterName, m.Subject, m.Approved, m.CreatedAt.Format(time.StampMilli))
	for i, atch := range m.Attachments {
		if i > 0 {
			s += ", "
		}
		s += fmt.Sprintf("%+v", atch)
	}
	return s + "]]"
}

func (t *Topic) String() string {
	poll := "none"
	if t.PollId != nil {
		poll = fmt.Sprintf("%d", *t.PollId)
	}
	return fmt.Sprintf("[id:%d, board:%s, locked:%d, sticky:%v, poll:%s, replies:%d, last_bumped:%v]",
		t.Id, t.Board, t.Locked, t.Sticky, poll, t.NumReplies, t.LastBumped)
}

func (r *CompositionRequest) String() string {
	return fmt.Sprintf("[mode:%s, board:%s, topic:%d, msg:%d, poll:%v, event:%v, staged:%d]",
		r.Mode, r.Board, r.TopicId, r.MessageId, r.Poll != nil, r.Event != nil, len(r.AttachmentRefs))
}
