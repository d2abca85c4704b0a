// Package perm answers capability questions for the composition pipeline.
// The oracle never mutates anything and is safe to call repeatedly with
// identical results within one request.
package perm

import (
	"github.com/waveboard-dev/waveboard/shared/domain"
	"github.com/waveboard-dev/waveboard/shared/errors"
)

type Capability string

const (
	CapPostNew                  Capability = "post_new"
	CapPostReplyOwn             Capability = "post_reply_own"
	CapPostReplyAny             Capability = "post_reply_any"
	CapPostUnapprovedTopics     Capability = "post_unapproved_topics"
	CapPostUnapprovedRepliesOwn Capability = "post_unapproved_replies_own"
	CapPostUnapprovedRepliesAny Capability = "post_unapproved_replies_any"
	CapModifyOwn                Capability = "modify_own"
	CapModifyAny                Capability = "modify_any"
	CapModifyReplies            Capability = "modify_replies"
	CapLockOwn                  Capability = "lock_own"
	CapLockAny                  Capability = "lock_any"
	CapMakeSticky               Capability = "make_sticky"
	CapApprovePosts             Capability = "approve_posts"
	CapPollPost                 Capability = "poll_post"
	CapPollAddOwn               Capability = "poll_add_own"
	CapPollAddAny               Capability = "poll_add_any"
	CapPollGuestVote            Capability = "poll_guest_vote"
	CapPostAttachment           Capability = "post_attachment"
	CapPostUnapprovedAttach     Capability = "post_unapproved_attachments"
	CapModerateBoard            Capability = "moderate_board"
	CapModerateForum            Capability = "moderate_forum"
	CapAdminForum               Capability = "admin_forum"
	CapAnnounceTopic            Capability = "announce_topic"
	CapMoveAny                  Capability = "move_any"
	CapMarkAnyNotify            Capability = "mark_any_notify"
	CapCalendarPost             Capability = "calendar_post"
	CapCalendarEditOwn          Capability = "calendar_edit_own"
	CapCalendarEditAny          Capability = "calendar_edit_any"
	CapPostDraft                Capability = "post_draft"
)

// Oracle is the read-only capability matrix the pipeline consults.
type Oracle interface {
	Allowed(actor *domain.AuthContext, board domain.BoardShortName, cap Capability) bool
}

// AllowedAny reports whether the actor holds at least one of caps.
func AllowedAny(o Oracle, actor *domain.AuthContext, board domain.BoardShortName, caps ...Capability) bool {
	for _, c := range caps {
		if o.Allowed(actor, board, c) {
			return true
		}
	}
	return false
}

// Require aborts the pipeline with an AuthorizationError when the actor
// lacks cap. No mutation may have happened before it is called.
func Require(o Oracle, actor *domain.AuthContext, board domain.BoardShortName, cap Capability) error {
	if o.Allowed(actor, board, cap) {
		return nil
	}
	return &errors.AuthorizationError{Capability: string(cap)}
}
