package service

import (
	"github.com/waveboard-dev/waveboard/internal/perm"
	"github.com/waveboard-dev/waveboard/shared/domain"
)

// approvalDecision is the outcome of the two-rule approval system: the
// default derived from posting capabilities, then the explicit override
// that always wins when the actor can approve posts.
type approvalDecision struct {
	Approved bool
	// HasChanged is only meaningful for edits: it decides whether the
	// approval column is written at all, to avoid audit noise.
	HasChanged bool
}

// resolveApproval authorizes the submission and decides its approval
// state. It returns an AuthorizationError when the actor holds neither
// the capability nor its unapproved variant.
func resolveApproval(o perm.Oracle, actor *domain.AuthContext, req *domain.CompositionRequest, postmod bool, topic *domain.Topic, editRow *domain.Message) (approvalDecision, error) {
	d := approvalDecision{Approved: true}
	board := req.Board

	switch req.Mode {
	case domain.Reply:
		if topic.StarterId != actor.UserId() {
			if postmod && o.Allowed(actor, board, perm.CapPostUnapprovedRepliesAny) && !o.Allowed(actor, board, perm.CapPostReplyAny) {
				d.Approved = false
			} else if err := perm.Require(o, actor, board, perm.CapPostReplyAny); err != nil {
				return d, err
			}
		} else if !o.Allowed(actor, board, perm.CapPostReplyAny) {
			if postmod && o.Allowed(actor, board, perm.CapPostUnapprovedRepliesOwn) && !o.Allowed(actor, board, perm.CapPostReplyOwn) {
				d.Approved = false
			} else if err := perm.Require(o, actor, board, perm.CapPostReplyOwn); err != nil {
				return d, err
			}
		}

	case domain.NewTopic:
		if postmod && !o.Allowed(actor, board, perm.CapPostNew) && o.Allowed(actor, board, perm.CapPostUnapprovedTopics) {
			d.Approved = false
		} else if err := perm.Require(o, actor, board, perm.CapPostNew); err != nil {
			return d, err
		}

	case domain.EditMessage:
		canApprove := o.Allowed(actor, board, perm.CapApprovePosts)
		if !postmod {
			d.Approved = true
		} else if canApprove && !editRow.Approved {
			d.Approved = req.ApprovalOverride != nil && *req.ApprovalOverride
		} else {
			d.Approved = editRow.Approved
		}
		d.HasChanged = editRow.Approved != d.Approved
	}

	// The explicit override from an approve-posts holder always wins
	// over the default. Order matters: this rule is layered on top.
	if o.Allowed(actor, board, perm.CapApprovePosts) {
		d.Approved = req.ApprovalOverride == nil || *req.ApprovalOverride
		if editRow != nil {
			d.HasChanged = editRow.Approved != d.Approved
		} else {
			d.HasChanged = false
		}
	}

	return d, nil
}
