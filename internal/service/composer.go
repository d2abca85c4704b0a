package service

import (
	"context"
	goerrors "errors"
	"hash/fnv"
	"time"

	"github.com/waveboard-dev/waveboard/internal/markup"
	"github.com/waveboard-dev/waveboard/internal/perm"
	"github.com/waveboard-dev/waveboard/shared/config"
	"github.com/waveboard-dev/waveboard/shared/domain"
	"github.com/waveboard-dev/waveboard/shared/errors"
	"github.com/waveboard-dev/waveboard/shared/logger"
)

// Storage is the persistence surface the pipeline consumes. Queries are
// opaque; CommitPost performs the whole mutation as one transaction.
type Storage interface {
	GetTopic(ctx context.Context, id domain.TopicId) (*domain.Topic, error)
	GetMessage(ctx context.Context, id domain.MsgId) (*domain.Message, error)
	CountRepliesSince(ctx context.Context, topicId domain.TopicId, since domain.MsgId, approvedOnly bool) (int, error)
	GetEvent(ctx context.Context, id domain.EventId) (*domain.Event, error)
	CommitPost(ctx context.Context, p *CommitParams, promote AttachmentPromoter) (*CommitReceipt, error)
	MarkTopicRead(ctx context.Context, member domain.UserId, topicId domain.TopicId, msgId domain.MsgId) error
	SetTopicWatch(ctx context.Context, member domain.UserId, topicId domain.TopicId, watch bool) error
}

// DraftStorage persists in-progress compositions. Drafts never touch
// the message, topic, or poll tables.
type DraftStorage interface {
	SaveDraft(ctx context.Context, d *domain.Draft) (domain.DraftId, error)
	DeleteDraft(ctx context.Context, id domain.DraftId, owner domain.UserId) error
}

// TokenChecker consumes single-use submission tokens atomically.
type TokenChecker interface {
	CheckAndInvalidate(ctx context.Context, token, sessionId string) (bool, error)
}

// StagingReader is the slice of the staging store the pipeline touches.
type StagingReader interface {
	CheckContext(ctx context.Context, owner domain.UserId, board domain.BoardShortName, messageId domain.MsgId) error
	Take(ctx context.Context, owner domain.UserId, key domain.StagingKey) (*domain.StagedAttachment, bool, error)
	Purge(ctx context.Context, owner domain.UserId, key domain.StagingKey) error
}

// StagedFiles moves staged bytes into their permanent location.
type StagedFiles interface {
	Promote(tempPath, board string, topicId, messageId int64, originalName string) (string, error)
	DeleteTemp(path string) error
}

type Status int

const (
	StatusCommitted Status = iota
	StatusNeedsPreview
	StatusDraftSaved
)

func (s Status) String() string {
	switch s {
	case StatusCommitted:
		return "committed"
	case StatusNeedsPreview:
		return "needs_preview"
	case StatusDraftSaved:
		return "draft_saved"
	}
	return "unknown"
}

// SubmitResult is what callers of the pipeline see.
type SubmitResult struct {
	Status Status

	MessageId domain.MsgId
	TopicId   domain.TopicId
	DraftId   domain.DraftId

	// Normalized content and errors are set for NeedsPreview so the
	// user's input is redisplayed verbatim, never discarded.
	Normalized *NormalizedContent
	Errors     *errors.PostErrorSet

	// Per-file promotion failures on an otherwise successful commit.
	AttachmentErrors []string

	// Replies that arrived while the form was open, for the advisory.
	NewReplies int
}

// Composer runs the whole composition pipeline: validation, staging
// reconciliation, the commit state machine, and post-commit side
// effects.
type Composer struct {
	cfg       *config.Public
	oracle    perm.Oracle
	storage   Storage
	drafts    DraftStorage
	tokens    TokenChecker
	staging   StagingReader
	files     StagedFiles
	validator *Validator
	censor    *markup.Censor
	notifier  NotificationSender
	modlog    ModerationLog
	search    SearchIndexer

	now func() time.Time
}

func NewComposer(cfg *config.Public, oracle perm.Oracle, storage Storage, drafts DraftStorage, tokens TokenChecker, stagingStore StagingReader, files StagedFiles, validator *Validator, censor *markup.Censor, notifier NotificationSender, modlog ModerationLog, search SearchIndexer) *Composer {
	return &Composer{
		cfg:       cfg,
		oracle:    oracle,
		storage:   storage,
		drafts:    drafts,
		tokens:    tokens,
		staging:   stagingStore,
		files:     files,
		validator: validator,
		censor:    censor,
		notifier:  notifier,
		modlog:    modlog,
		search:    search,
		now:       time.Now,
	}
}

var errTopicVanished = &errors.ErrorWithStatusCode{Message: "Topic not found", StatusCode: 404}
var errNotATopic = &errors.ErrorWithStatusCode{Message: "Topic does not belong to this board", StatusCode: 404}
var errMessageVanished = &errors.ErrorWithStatusCode{Message: "Message not found", StatusCode: 404}
var errTopicLocked = &errors.ErrorWithStatusCode{Message: "Topic is locked", StatusCode: 403}

// Submit runs one composition request through the pipeline. Fatal
// authorization and persistence failures come back as errors; everything
// recoverable comes back inside the SubmitResult.
func (c *Composer) Submit(ctx context.Context, req *domain.CompositionRequest, actor *domain.AuthContext) (*SubmitResult, error) {
	res, err := c.submit(ctx, req, actor)
	if err != nil {
		submissionsTotal.WithLabelValues(req.Mode.String(), "error").Inc()
		return nil, err
	}
	submissionsTotal.WithLabelValues(req.Mode.String(), res.Status.String()).Inc()
	return res, nil
}

func (c *Composer) submit(ctx context.Context, req *domain.CompositionRequest, actor *domain.AuthContext) (*SubmitResult, error) {
	owner := StagingOwner(actor)
	errs := errors.NewPostErrorSet()

	// The submission token is consumed exactly once, and only when a
	// commit is attempted; previews leave it outstanding. A missing or
	// reused token reads as a timed-out session and must not reveal
	// whether an earlier submission succeeded.
	if !req.Preview {
		ok, err := c.tokens.CheckAndInvalidate(ctx, req.SubmissionToken, actor.SessionId)
		if err != nil {
			return nil, &errors.PersistenceFailure{Err: err}
		}
		if !ok {
			errs.AddSerious("session_timeout")
		}
	}

	// Explicit attachment deletions come first so the user's cleanup
	// happens even when the rest of the submission bounces.
	for _, key := range req.AttachmentDeletes {
		if err := c.staging.Purge(ctx, owner, key); err != nil {
			logger.Log.Warn("failed to purge staged attachment", "key", key, "err", err)
		}
	}

	var topic *domain.Topic
	var editRow *domain.Message
	var err error

	if req.Mode != domain.NewTopic {
		topic, err = c.storage.GetTopic(ctx, req.TopicId)
		if err != nil {
			if goerrors.Is(err, errors.NotFound) {
				return nil, errTopicVanished
			}
			return nil, &errors.PersistenceFailure{Err: err}
		}
		if topic.Board != req.Board {
			return nil, errNotATopic
		}
	}

	if req.Mode == domain.EditMessage {
		editRow, err = c.storage.GetMessage(ctx, req.MessageId)
		if err != nil {
			if goerrors.Is(err, errors.NotFound) {
				return nil, errMessageVanished
			}
			return nil, &errors.PersistenceFailure{Err: err}
		}
	}

	// Locked topics take no replies or edits from non-moderators.
	if topic != nil && topic.Locked.Locked() && !c.oracle.Allowed(actor, req.Board, perm.CapModerateBoard) {
		return nil, errTopicLocked
	}

	// Multiple polls per topic aren't a thing: a poll intent against a
	// topic that already has one is silently dropped, which also makes
	// resubmission after success idempotent.
	if req.Poll != nil && topic != nil && topic.PollId != nil {
		req.Poll = nil
	}

	approval, err := resolveApproval(c.oracle, actor, req, c.cfg.PostModerationActive, topic, editRow)
	if err != nil {
		return nil, err
	}

	var moderationAction bool
	if req.Mode == domain.EditMessage {
		moderationAction, err = c.authorizeEdit(actor, req.Board, topic, editRow)
		if err != nil {
			return nil, err
		}
	}

	if req.Poll != nil {
		if err := c.authorizePoll(actor, req, topic); err != nil {
			return nil, err
		}
	}

	if req.Event != nil {
		if err := c.authorizeEvent(ctx, actor, req); err != nil {
			return nil, err
		}
	}

	canLockAny, canLockOwn := lockCaps(c.oracle, actor, req.Board)
	isStarter := topic != nil && topic.StarterId == actor.UserId()
	existingLock := domain.LockNone
	existingSticky := false
	if topic != nil {
		existingLock = topic.Locked
		existingSticky = topic.Sticky
	}
	lock := resolveLock(req.Mode, req.LockRequest, existingLock, isStarter, canLockAny, canLockOwn)
	sticky := resolveSticky(req.Mode, req.StickyRequest, existingSticky,
		c.oracle.Allowed(actor, req.Board, perm.CapMakeSticky), c.cfg.StickyEnabled)

	// Saving a draft bypasses the commit stage entirely.
	if req.SaveDraft {
		return c.saveDraft(ctx, req, actor)
	}

	// Best-effort staleness advisory: new replies arrived while the form
	// was open. Warns, never blocks on its own authority; like any other
	// error it sends the user back to preview.
	if req.Mode == domain.Reply && !actor.NoNewReplyWarning && req.LastSeenMessageId > 0 && topic.LastMsgId > req.LastSeenMessageId {
		approvedOnly := c.cfg.PostModerationActive && !c.oracle.Allowed(actor, req.Board, perm.CapApprovePosts)
		count, err := c.storage.CountRepliesSince(ctx, topic.Id, req.LastSeenMessageId, approvedOnly)
		if err != nil {
			logger.Log.Warn("staleness check failed", "topic", topic.Id, "err", err)
		} else if count > 0 {
			errs.Add("new_replies", count)
		}
	}

	posterIsGuest := actor.IsGuest()
	if req.Mode == domain.EditMessage {
		posterIsGuest = editRow.PosterId == 0
		// Non-privileged editors cannot rewrite a guest poster's
		// identity; it stays whatever the row says.
		if posterIsGuest && !c.oracle.Allowed(actor, req.Board, perm.CapModerateForum) {
			req.Guest = &domain.GuestIdentity{DisplayName: editRow.PosterName, Email: editRow.PosterEmail}
		}
	}

	nc, verrs := c.validator.ValidateAs(req, actor, editRow, posterIsGuest)
	for _, e := range verrs.Errors() {
		if e.Severity == errors.Serious {
			errs.AddSerious(e.Code, e.Params...)
		} else {
			errs.Add(e.Code, e.Params...)
		}
	}
	if req.Mode == domain.EditMessage && !posterIsGuest {
		nc.GuestName = editRow.PosterName
		nc.GuestEmail = editRow.PosterEmail
	}

	// Staged attachments from an abandoned edit of a different post must
	// not silently ride along.
	if len(req.AttachmentRefs) > 0 {
		if err := c.staging.CheckContext(ctx, owner, req.Board, req.MessageId); err != nil {
			var inc *errors.StagingInconsistency
			if goerrors.As(err, &inc) {
				errs.AddSerious("temp_attachments_found", inc.Files)
			} else {
				return nil, &errors.PersistenceFailure{Err: err}
			}
		}
	}

	newReplies := 0
	if errs.Has("new_replies") {
		for _, e := range errs.Errors() {
			if e.Code == "new_replies" && len(e.Params) > 0 {
				if n, ok := e.Params[0].(int); ok {
					newReplies = n
				}
			}
		}
	}

	if errs.HasErrors() {
		return &SubmitResult{Status: StatusNeedsPreview, Normalized: c.previewContent(nc), Errors: errs, NewReplies: newReplies}, nil
	}
	if req.Preview {
		return &SubmitResult{Status: StatusNeedsPreview, Normalized: c.previewContent(nc), Errors: errs}, nil
	}

	return c.commit(ctx, req, actor, topic, editRow, nc, approval, lock, sticky, canLockAny, moderationAction, owner)
}

// authorizeEdit reproduces the modify-capability ladder and the edit
// window. It reports whether the edit is a moderation action that must
// be logged.
func (c *Composer) authorizeEdit(actor *domain.AuthContext, board domain.BoardShortName, topic *domain.Topic, row *domain.Message) (bool, error) {
	o := c.oracle
	switch {
	case row.PosterId == actor.UserId() && !o.Allowed(actor, board, perm.CapModifyAny):
		if (!c.cfg.PostModerationActive || row.Approved) && c.cfg.EditDisableMinutes > 0 {
			deadline := row.CreatedAt.Add(time.Duration(c.cfg.EditDisableMinutes+5) * time.Minute)
			if c.now().After(deadline) {
				return false, &errors.ErrorWithStatusCode{Message: "The window for editing this post has passed", StatusCode: 403}
			}
		}
		if topic.StarterId == actor.UserId() && !o.Allowed(actor, board, perm.CapModifyOwn) {
			return false, perm.Require(o, actor, board, perm.CapModifyReplies)
		}
		return false, perm.Require(o, actor, board, perm.CapModifyOwn)

	case topic.StarterId == actor.UserId() && !o.Allowed(actor, board, perm.CapModifyAny):
		// Topic starters editing replies in their topic: allowed with
		// modify_replies, but it better be logged.
		return true, perm.Require(o, actor, board, perm.CapModifyReplies)

	default:
		if err := perm.Require(o, actor, board, perm.CapModifyAny); err != nil {
			return false, err
		}
		return row.PosterId != actor.UserId(), nil
	}
}

func (c *Composer) authorizePoll(actor *domain.AuthContext, req *domain.CompositionRequest, topic *domain.Topic) error {
	if !c.cfg.PollsEnabled {
		req.Poll = nil
		return nil
	}
	if req.Mode == domain.NewTopic {
		return perm.Require(c.oracle, actor, req.Board, perm.CapPollPost)
	}
	if topic.StarterId == actor.UserId() && !c.oracle.Allowed(actor, req.Board, perm.CapPollAddAny) {
		return perm.Require(c.oracle, actor, req.Board, perm.CapPollAddOwn)
	}
	return perm.Require(c.oracle, actor, req.Board, perm.CapPollAddAny)
}

func (c *Composer) authorizeEvent(ctx context.Context, actor *domain.AuthContext, req *domain.CompositionRequest) error {
	if !c.cfg.CalendarEnabled {
		req.Event = nil
		return nil
	}
	if req.Event.EventId == 0 {
		return perm.Require(c.oracle, actor, req.Board, perm.CapCalendarPost)
	}
	if c.oracle.Allowed(actor, req.Board, perm.CapCalendarEditAny) {
		return nil
	}
	ev, err := c.storage.GetEvent(ctx, req.Event.EventId)
	if err != nil {
		if goerrors.Is(err, errors.NotFound) {
			return &errors.ErrorWithStatusCode{Message: "Event not found", StatusCode: 404}
		}
		return &errors.PersistenceFailure{Err: err}
	}
	if ev.MemberId == actor.UserId() {
		return perm.Require(c.oracle, actor, req.Board, perm.CapCalendarEditOwn)
	}
	return perm.Require(c.oracle, actor, req.Board, perm.CapCalendarEditAny)
}

func (c *Composer) saveDraft(ctx context.Context, req *domain.CompositionRequest, actor *domain.AuthContext) (*SubmitResult, error) {
	if actor.IsGuest() {
		return nil, &errors.AuthorizationError{Capability: string(perm.CapPostDraft)}
	}
	if err := perm.Require(c.oracle, actor, req.Board, perm.CapPostDraft); err != nil {
		return nil, err
	}
	d := &domain.Draft{
		Id:      req.DraftId,
		OwnerId: actor.UserId(),
		Board:   req.Board,
		TopicId: req.TopicId,
		Subject: req.SubjectRaw,
		Body:    req.BodyRaw,
		Icon:    req.Icon,
	}
	id, err := c.drafts.SaveDraft(ctx, d)
	if err != nil {
		return nil, &errors.PersistenceFailure{Err: err}
	}
	return &SubmitResult{Status: StatusDraftSaved, DraftId: id}, nil
}

// previewContent runs the word filter over what is echoed back to the
// composer, matching what readers will see on display. Stored rows keep
// the raw text.
func (c *Composer) previewContent(nc *NormalizedContent) *NormalizedContent {
	out := *nc
	out.Subject = c.censor.Apply(nc.Subject)
	out.Body = c.censor.Apply(nc.Body)
	return &out
}

func (c *Composer) commit(ctx context.Context, req *domain.CompositionRequest, actor *domain.AuthContext, topic *domain.Topic, editRow *domain.Message, nc *NormalizedContent, approval approvalDecision, lock *domain.LockMode, sticky *bool, canLockAny, moderationAction bool, owner domain.UserId) (*SubmitResult, error) {
	p := &CommitParams{
		Mode:                req.Mode,
		Board:               req.Board,
		TopicId:             req.TopicId,
		MessageId:           req.MessageId,
		Subject:             nc.Subject,
		Body:                nc.Body,
		Icon:                nc.Icon,
		PosterId:            actor.UserId(),
		PosterName:          nc.GuestName,
		PosterEmail:         nc.GuestEmail,
		Approved:            approval.Approved,
		WriteApproved:       req.Mode != domain.EditMessage || approval.HasChanged,
		TopicApproved:       topic == nil || topic.Approved,
		Lock:                lock,
		Sticky:              sticky,
		AttachmentsApproved: !c.cfg.PostModerationActive || c.oracle.Allowed(actor, req.Board, perm.CapPostAttachment),
	}
	if !actor.IsGuest() {
		p.PosterName = actor.User.Name
		p.PosterEmail = actor.User.Email
	}
	if req.Mode == domain.EditMessage {
		p.PosterId = editRow.PosterId
		p.PosterName = nc.GuestName
		p.PosterEmail = nc.GuestEmail

		// Edits by someone else, or past the grace window, stamp the
		// modify audit; a quick fix by the author stays invisible.
		grace := time.Duration(c.cfg.EditGraceSeconds) * time.Second
		if actor.UserId() != editRow.PosterId || c.now().Sub(editRow.CreatedAt) > grace {
			now := c.now()
			p.ModifiedAt = &now
			p.ModifiedBy = actor.UserName()
		}

		if req.KeepAttachmentIds != nil {
			p.PruneAttachments = true
			p.KeepAttachmentIds = req.KeepAttachmentIds
		}
	}

	if nc.Poll != nil {
		p.Poll = buildPoll(nc.Poll, actor, p.PosterName, c.now())
	}
	if nc.Event != nil {
		p.Event = buildEventOp(nc.Event, req, actor)
	}

	promote := c.promoter(ctx, req, owner)

	receipt, err := c.storage.CommitPost(ctx, p, promote)
	if err != nil {
		return nil, &errors.PersistenceFailure{Err: err}
	}

	if req.DraftId != 0 && !actor.IsGuest() {
		if err := c.drafts.DeleteDraft(ctx, req.DraftId, actor.UserId()); err != nil {
			logger.Log.Warn("failed to delete committed draft", "draft", req.DraftId, "err", err)
		}
	}

	c.fireSideEffects(ctx, req, actor, topic, editRow, nc, receipt, approval, lock, sticky, canLockAny, moderationAction)

	return &SubmitResult{
		Status:           StatusCommitted,
		MessageId:        receipt.MessageId,
		TopicId:          receipt.TopicId,
		AttachmentErrors: receipt.FileErrors,
	}, nil
}

// promoter consumes staged attachments inside the commit transaction.
// Each key is taken from the index first, which makes promotion
// idempotent: a key promoted once is simply absent the second time.
// Files that fail to move are reported and cleaned up regardless.
func (c *Composer) promoter(ctx context.Context, req *domain.CompositionRequest, owner domain.UserId) AttachmentPromoter {
	return func(topicId domain.TopicId, messageId domain.MsgId) ([]*domain.Attachment, []string) {
		var rows []*domain.Attachment
		var fileErrors []string
		for _, key := range req.AttachmentRefs {
			att, taken, err := c.staging.Take(ctx, owner, key)
			if err != nil {
				logger.Log.Warn("staging take failed", "key", key, "err", err)
				fileErrors = append(fileErrors, key)
				continue
			}
			if !taken {
				// Already promoted or silently gone; a no-op.
				continue
			}
			if len(att.ValidationErrors) > 0 {
				fileErrors = append(fileErrors, att.OriginalName)
				c.files.DeleteTemp(att.TempPath)
				continue
			}
			path, err := c.files.Promote(att.TempPath, req.Board, topicId, messageId, att.OriginalName)
			if err != nil {
				logger.Log.Error("attachment promotion failed", "key", key, "err", err)
				fileErrors = append(fileErrors, att.OriginalName)
				c.files.DeleteTemp(att.TempPath)
				continue
			}
			rows = append(rows, &domain.Attachment{
				MessageId:    messageId,
				Board:        req.Board,
				FilePath:     path,
				OriginalName: att.OriginalName,
				ByteSize:     att.ByteSize,
				MimeType:     att.MimeType,
			})
		}
		return rows, fileErrors
	}
}

// fireSideEffects runs everything that must happen only after the
// primary write succeeded. Failures are logged and swallowed: a
// notification outage can't make posting look failed.
func (c *Composer) fireSideEffects(ctx context.Context, req *domain.CompositionRequest, actor *domain.AuthContext, topic *domain.Topic, editRow *domain.Message, nc *NormalizedContent, receipt *CommitReceipt, approval approvalDecision, lock *domain.LockMode, sticky *bool, canLockAny, moderationAction bool) {
	board := req.Board

	if moderationAction {
		c.logMod(ctx, &domain.ModLogEntry{
			Action:    domain.ModLogModify,
			ActorId:   actor.UserId(),
			TargetId:  editRow.PosterId,
			Board:     board,
			TopicId:   receipt.TopicId,
			MessageId: receipt.MessageId,
		})
	}
	// Releasing someone else's pending post from the approval queue is
	// a moderation act in its own right.
	if req.ApprovalOverride != nil && approval.Approved &&
		editRow != nil && !editRow.Approved && editRow.PosterId != actor.UserId() {
		c.logMod(ctx, &domain.ModLogEntry{
			Action:    domain.ModLogApprove,
			ActorId:   actor.UserId(),
			TargetId:  editRow.PosterId,
			Board:     board,
			TopicId:   receipt.TopicId,
			MessageId: receipt.MessageId,
		})
	}
	// Author soft-lock toggles never cross the moderator boundary and
	// are not logged.
	if lock != nil && canLockAny {
		action := domain.ModLogLock
		if *lock == domain.LockNone {
			action = domain.ModLogUnlock
		}
		c.logMod(ctx, &domain.ModLogEntry{
			Action:  action,
			ActorId: actor.UserId(),
			Board:   board,
			TopicId: receipt.TopicId,
		})
	}
	if sticky != nil {
		c.logMod(ctx, &domain.ModLogEntry{
			Action:  domain.ModLogSticky,
			ActorId: actor.UserId(),
			Board:   board,
			TopicId: receipt.TopicId,
		})
	}

	// Posting marks the thread read for the poster.
	if !actor.IsGuest() {
		if err := c.storage.MarkTopicRead(ctx, actor.UserId(), receipt.TopicId, receipt.MessageId); err != nil {
			c.swallow("read_state", err)
		}
	}

	// Watch intent from the notify checkbox. Unchecking on a new topic
	// is a no-op since there is nothing to unwatch yet.
	if !actor.IsGuest() {
		wantsNotify := req.Notify != nil && *req.Notify
		if wantsNotify && c.oracle.Allowed(actor, board, perm.CapMarkAnyNotify) {
			if err := c.storage.SetTopicWatch(ctx, actor.UserId(), receipt.TopicId, true); err != nil {
				c.swallow("watch", err)
			}
		} else if !wantsNotify && req.Notify != nil && req.Mode != domain.NewTopic {
			if err := c.storage.SetTopicWatch(ctx, actor.UserId(), receipt.TopicId, false); err != nil {
				c.swallow("watch", err)
			}
		}
	}

	// Watchers hear about it only if the content became approved.
	if approval.Approved {
		switch req.Mode {
		case domain.NewTopic:
			if err := c.notifier.NotifyBoardWatchers(ctx, board, receipt.TopicId, receipt.MessageId); err != nil {
				c.swallow("notify", err)
			}
		case domain.Reply:
			onlyMember := domain.UserId(0)
			if !topic.Approved {
				onlyMember = topic.StarterId
			}
			if err := c.notifier.NotifyTopicWatchers(ctx, receipt.TopicId, receipt.MessageId, onlyMember); err != nil {
				c.swallow("notify", err)
			}
		}

		if c.search != nil {
			msg := &domain.Message{
				Id:         receipt.MessageId,
				TopicId:    receipt.TopicId,
				Board:      board,
				Subject:    nc.Subject,
				Body:       nc.Body,
				PosterName: nc.GuestName,
				CreatedAt:  c.now(),
				Approved:   true,
			}
			if err := c.search.IndexMessage(ctx, msg); err != nil {
				c.swallow("search", err)
			}
		}
	}
}

func (c *Composer) logMod(ctx context.Context, entry *domain.ModLogEntry) {
	entry.CreatedAt = c.now()
	if err := c.modlog.LogAction(ctx, entry); err != nil {
		c.swallow("modlog", err)
	}
}

func (c *Composer) swallow(effect string, err error) {
	sideEffectFailures.WithLabelValues(effect).Inc()
	logger.Log.Error("side effect failed", "effect", effect, "err", err)
}

func buildPoll(draft *domain.PollDraft, actor *domain.AuthContext, posterName string, now time.Time) *domain.Poll {
	poll := &domain.Poll{
		Question:   draft.Question,
		MaxVotes:   draft.MaxVotes,
		HideMode:   draft.HideMode,
		GuestVote:  draft.GuestVote,
		ChangeVote: draft.ChangeVote,
		PosterId:   actor.UserId(),
		PosterName: posterName,
	}
	if draft.ExpireDays > 0 {
		expires := now.Add(time.Duration(draft.ExpireDays) * 24 * time.Hour)
		poll.ExpiresAt = &expires
	}
	for i, label := range draft.Options {
		poll.Options = append(poll.Options, domain.PollOption{Index: i, Label: label})
	}
	return poll
}

func buildEventOp(draft *domain.EventDraft, req *domain.CompositionRequest, actor *domain.AuthContext) *EventOp {
	op := &EventOp{
		Event: domain.Event{
			Id:        draft.EventId,
			Board:     req.Board,
			MemberId:  actor.UserId(),
			Title:     draft.Title,
			StartDate: draft.StartDate,
			SpanDays:  draft.SpanDays,
		},
	}
	switch {
	case draft.Delete:
		op.Action = EventDelete
	case draft.EventId != 0:
		op.Action = EventUpdate
	default:
		op.Action = EventCreate
	}
	return op
}

// StagingOwner derives the staging index owner for an actor. Members
// own their staged files by member id; guest ownership is pinned to the
// session so a guest cannot see another guest's staged uploads.
func StagingOwner(actor *domain.AuthContext) domain.UserId {
	if !actor.IsGuest() {
		return actor.UserId()
	}
	h := fnv.New64a()
	h.Write([]byte(actor.SessionId))
	return domain.UserId(-int64(h.Sum64() >> 1))
}
