package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/waveboard-dev/waveboard/internal/middleware"
	"github.com/waveboard-dev/waveboard/internal/service"
	"github.com/waveboard-dev/waveboard/shared/domain"
	"github.com/waveboard-dev/waveboard/shared/errors"
	"github.com/waveboard-dev/waveboard/shared/utils"
)

type pollJson struct {
	Question   string   `json:"question"`
	Options    []string `json:"options"`
	MaxVotes   int      `json:"max_votes"`
	ExpireDays int      `json:"expire_days"`
	HideMode   int      `json:"hide_mode"`
	GuestVote  bool     `json:"guest_vote"`
	ChangeVote bool     `json:"change_vote"`
}

type eventJson struct {
	EventId   int64  `json:"event_id"`
	Title     string `json:"title"`
	StartDate string `json:"start_date"`
	SpanDays  int    `json:"span_days"`
	Delete    bool   `json:"delete"`
}

type submitJson struct {
	Mode string `validate:"required,oneof=new_topic reply edit" json:"mode"`

	TopicId   int64 `json:"topic_id"`
	MessageId int64 `json:"message_id"`

	GuestName  string `json:"guest_name"`
	GuestEmail string `json:"guest_email"`

	Subject string `json:"subject"`
	Body    string `json:"body"`
	Icon    string `json:"icon"`

	Poll  *pollJson  `json:"poll"`
	Event *eventJson `json:"event"`

	Attachments       []string `json:"attachments"`
	AttachmentDeletes []string `json:"attachment_deletes"`
	KeepAttachments   []int64  `json:"keep_attachments"`

	Lock    *bool `json:"lock"`
	Sticky  *bool `json:"sticky"`
	Approve *bool `json:"approve"`

	LastSeenMessageId int64  `json:"last_seen_message_id"`
	SubmissionToken   string `json:"submission_token"`

	SaveDraft bool  `json:"save_draft"`
	DraftId   int64 `json:"draft_id"`
	Notify    *bool `json:"notify"`
	Preview   bool  `json:"preview"`
}

type postErrorJson struct {
	Code     string `json:"code"`
	Severity string `json:"severity"`
	Params   []any  `json:"params,omitempty"`
}

type submitResponse struct {
	Status           string          `json:"status"`
	MessageId        int64           `json:"message_id,omitempty"`
	TopicId          int64           `json:"topic_id,omitempty"`
	DraftId          int64           `json:"draft_id,omitempty"`
	Subject          string          `json:"subject,omitempty"`
	Body             string          `json:"body,omitempty"`
	NewReplies       int             `json:"new_replies,omitempty"`
	Errors           []postErrorJson `json:"errors,omitempty"`
	AttachmentErrors []string        `json:"attachment_errors,omitempty"`
}

// GetComposeContext opens the compose form: issues a fresh single-use
// submission token, pins the staging context to what is being composed,
// and returns staged attachments and an optional resumed draft. Files
// left over from composing a different post come back under a warning,
// not as current attachments, and keep their recorded context.
func (h *Handler) GetComposeContext(w http.ResponseWriter, r *http.Request) {
	actor := middleware.GetActorFromContext(r)
	board := mux.Vars(r)["board"]
	ctx := r.Context()

	tok, err := h.tokens.Issue(ctx, actor.SessionId)
	if err != nil {
		writeError(w, err)
		return
	}

	messageId := int64(0)
	if raw := r.URL.Query().Get("message"); raw != "" {
		messageId, err = strconv.ParseInt(raw, 10, 64)
		if err != nil {
			http.Error(w, "Bad request", http.StatusBadRequest)
			return
		}
	}

	owner := service.StagingOwner(actor)
	staged, err := h.staging.ListForOwner(ctx, owner)
	if err != nil {
		writeError(w, err)
		return
	}
	prior, err := h.staging.Context(ctx, owner)
	if err != nil {
		writeError(w, err)
		return
	}

	// Files staged for a different post must not show up as current, and
	// their recorded context must survive until the user deletes them or
	// goes back. Only an empty or matching staging area gets repinned.
	pendingElsewhere := len(staged) > 0 && prior != nil && !prior.Matches(board, messageId)
	if !pendingElsewhere {
		if err := h.staging.SetContext(ctx, owner, domain.StagingContext{Board: board, MessageId: messageId}); err != nil {
			writeError(w, err)
			return
		}
	}

	type stagedJson struct {
		Key          string   `json:"key"`
		OriginalName string   `json:"original_name"`
		ByteSize     int64    `json:"byte_size"`
		MimeType     string   `json:"mime_type"`
		Errors       []string `json:"errors,omitempty"`
	}
	type stagingWarningJson struct {
		Code      string   `json:"code"`
		Board     string   `json:"board"`
		MessageId int64    `json:"message_id,omitempty"`
		Files     []string `json:"files"`
	}
	resp := struct {
		SubmissionToken string              `json:"submission_token"`
		Staged          []stagedJson        `json:"staged_attachments"`
		Warning         *stagingWarningJson `json:"staging_warning,omitempty"`
		Draft           *struct {
			Id      int64  `json:"id"`
			Subject string `json:"subject"`
			Body    string `json:"body"`
			Icon    string `json:"icon"`
		} `json:"draft,omitempty"`
	}{SubmissionToken: tok}

	if pendingElsewhere {
		warn := &stagingWarningJson{Code: "temp_attachments_found", Board: prior.Board, MessageId: prior.MessageId}
		for _, a := range staged {
			warn.Files = append(warn.Files, a.OriginalName)
		}
		resp.Warning = warn
	} else {
		for _, a := range staged {
			resp.Staged = append(resp.Staged, stagedJson{
				Key:          a.StagingKey,
				OriginalName: a.OriginalName,
				ByteSize:     a.ByteSize,
				MimeType:     a.MimeType,
				Errors:       a.ValidationErrors,
			})
		}
	}

	if raw := r.URL.Query().Get("draft"); raw != "" && !actor.IsGuest() {
		draftId, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			http.Error(w, "Bad request", http.StatusBadRequest)
			return
		}
		d, err := h.drafts.GetDraft(ctx, draftId, actor.UserId())
		if err == nil {
			resp.Draft = &struct {
				Id      int64  `json:"id"`
				Subject string `json:"subject"`
				Body    string `json:"body"`
				Icon    string `json:"icon"`
			}{d.Id, d.Subject, d.Body, d.Icon}
		}
	}

	writeJSON(w, http.StatusOK, resp)
}

// Submit runs a composition request through the pipeline.
func (h *Handler) Submit(w http.ResponseWriter, r *http.Request) {
	actor := middleware.GetActorFromContext(r)
	board := mux.Vars(r)["board"]

	var body submitJson
	if err := utils.DecodeValidate(r.Body, &body); err != nil {
		writeError(w, err)
		return
	}

	req, err := buildRequest(&body, board)
	if err != nil {
		writeError(w, err)
		return
	}

	res, err := h.composer.Submit(r.Context(), req, actor)
	if err != nil {
		writeError(w, err)
		return
	}

	resp := submitResponse{
		Status:           res.Status.String(),
		MessageId:        res.MessageId,
		TopicId:          res.TopicId,
		DraftId:          res.DraftId,
		NewReplies:       res.NewReplies,
		AttachmentErrors: res.AttachmentErrors,
	}
	if res.Normalized != nil {
		resp.Subject = res.Normalized.Subject
		resp.Body = res.Normalized.Body
	}
	if res.Errors != nil {
		for _, e := range res.Errors.Errors() {
			resp.Errors = append(resp.Errors, postErrorJson{
				Code:     e.Code,
				Severity: e.Severity.String(),
				Params:   e.Params,
			})
		}
	}

	status := http.StatusOK
	if res.Status == service.StatusCommitted {
		status = http.StatusCreated
	}
	writeJSON(w, status, resp)
}

// ListDrafts returns the member's saved drafts, newest first.
func (h *Handler) ListDrafts(w http.ResponseWriter, r *http.Request) {
	actor := middleware.GetActorFromContext(r)
	if actor.IsGuest() {
		http.Error(w, "Please sign-in", http.StatusUnauthorized)
		return
	}
	drafts, err := h.drafts.ListDrafts(r.Context(), actor.UserId())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, drafts)
}

func buildRequest(body *submitJson, board string) (*domain.CompositionRequest, error) {
	var mode domain.Mode
	switch body.Mode {
	case "new_topic":
		mode = domain.NewTopic
	case "reply":
		mode = domain.Reply
	case "edit":
		mode = domain.EditMessage
	}
	if mode != domain.NewTopic && body.TopicId == 0 {
		return nil, &errors.ErrorWithStatusCode{Message: "topic_id is required", StatusCode: 400}
	}
	if mode == domain.EditMessage && body.MessageId == 0 {
		return nil, &errors.ErrorWithStatusCode{Message: "message_id is required", StatusCode: 400}
	}

	req := &domain.CompositionRequest{
		Mode:              mode,
		Board:             board,
		TopicId:           body.TopicId,
		MessageId:         body.MessageId,
		SubjectRaw:        body.Subject,
		BodyRaw:           body.Body,
		Icon:              body.Icon,
		LockRequest:       toTriState(body.Lock),
		StickyRequest:     toTriState(body.Sticky),
		ApprovalOverride:  body.Approve,
		LastSeenMessageId: body.LastSeenMessageId,
		SubmissionToken:   body.SubmissionToken,
		SaveDraft:         body.SaveDraft,
		DraftId:           body.DraftId,
		Notify:            body.Notify,
		Preview:           body.Preview,
	}

	if body.GuestName != "" || body.GuestEmail != "" {
		req.Guest = &domain.GuestIdentity{DisplayName: body.GuestName, Email: body.GuestEmail}
	}

	for _, key := range body.Attachments {
		req.AttachmentRefs = append(req.AttachmentRefs, key)
	}
	for _, key := range body.AttachmentDeletes {
		req.AttachmentDeletes = append(req.AttachmentDeletes, key)
	}
	// An explicit empty keep list removes every existing attachment, so
	// the nil/empty distinction has to survive the copy.
	if body.KeepAttachments != nil {
		req.KeepAttachmentIds = make([]domain.AttachmentId, 0, len(body.KeepAttachments))
		for _, id := range body.KeepAttachments {
			req.KeepAttachmentIds = append(req.KeepAttachmentIds, id)
		}
	}

	if body.Poll != nil {
		req.Poll = &domain.PollDraft{
			Question:   body.Poll.Question,
			Options:    body.Poll.Options,
			MaxVotes:   body.Poll.MaxVotes,
			ExpireDays: body.Poll.ExpireDays,
			HideMode:   domain.PollHideMode(body.Poll.HideMode),
			GuestVote:  body.Poll.GuestVote,
			ChangeVote: body.Poll.ChangeVote,
		}
	}

	if body.Event != nil {
		e := &domain.EventDraft{
			EventId:  body.Event.EventId,
			Title:    body.Event.Title,
			SpanDays: body.Event.SpanDays,
			Delete:   body.Event.Delete,
		}
		if body.Event.StartDate != "" {
			start, err := time.Parse("2006-01-02", body.Event.StartDate)
			if err != nil {
				return nil, &errors.ErrorWithStatusCode{Message: "start_date must be YYYY-MM-DD", StatusCode: 400}
			}
			e.StartDate = start
		}
		req.Event = e
	}

	return req, nil
}

func toTriState(v *bool) domain.TriState {
	switch {
	case v == nil:
		return domain.NoChange
	case *v:
		return domain.Set
	default:
		return domain.Clear
	}
}
