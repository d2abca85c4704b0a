package service

import (
	"regexp"
	"strings"

	"github.com/waveboard-dev/waveboard/internal/markup"
	"github.com/waveboard-dev/waveboard/internal/perm"
	"github.com/waveboard-dev/waveboard/shared/config"
	"github.com/waveboard-dev/waveboard/shared/domain"
	"github.com/waveboard-dev/waveboard/shared/errors"
)

const (
	subjectMaxLength   = 100
	guestNameMaxLength = 25
	pollMinOptions     = 2
	pollMaxOptions     = 256
	pollMaxExpireDays  = 9999
)

var emailRegex = regexp.MustCompile(`^[0-9A-Za-z=_+\-/][0-9A-Za-z=_'+\-/.]*@[\w\-]+(\.[\w\-]+)*(\.\w{2,6})$`)

// NormalizedContent is what validation hands to the commit stage, and
// what gets redisplayed verbatim on any blocking error so no work is
// ever lost.
type NormalizedContent struct {
	Subject    string
	Body       string
	Icon       string
	GuestName  string
	GuestEmail string
	Poll       *domain.PollDraft
	Event      *domain.EventDraft
}

// NameRegistry answers whether a guest name collides with a member or
// reserved word, and whether an email is banned from posting.
type NameRegistry interface {
	IsReserved(name string) bool
	IsBannedEmail(email string) bool
}

// Validator is the pure validation stage: same input, same error set,
// no side effects, safe to run for both preview and submit.
type Validator struct {
	cfg      *config.Public
	oracle   perm.Oracle
	renderer markup.Renderer
	names    NameRegistry
}

func NewValidator(cfg *config.Public, oracle perm.Oracle, renderer markup.Renderer, names NameRegistry) *Validator {
	return &Validator{cfg: cfg, oracle: oracle, renderer: renderer, names: names}
}

// Validate normalizes the request and accumulates every rule violation
// into one error set. priorIdentity carries the original poster's
// name/email when a privileged actor edits a guest post.
func (v *Validator) Validate(req *domain.CompositionRequest, actor *domain.AuthContext, prior *domain.Message) (*NormalizedContent, *errors.PostErrorSet) {
	return v.ValidateAs(req, actor, prior, actor.IsGuest())
}

// ValidateAs is Validate with the poster's guest-ness made explicit,
// for edits where the actor and the original poster differ.
func (v *Validator) ValidateAs(req *domain.CompositionRequest, actor *domain.AuthContext, prior *domain.Message, posterIsGuest bool) (*NormalizedContent, *errors.PostErrorSet) {
	errs := errors.NewPostErrorSet()
	nc := &NormalizedContent{Icon: sanitizeIcon(req.Icon)}

	v.validateIdentity(req, actor, prior, posterIsGuest, nc, errs)
	v.validateSubject(req, nc, errs)
	v.validateBody(req, actor, nc, errs)
	v.validatePoll(req, actor, nc, errs)
	v.validateEvent(req, nc, errs)

	return nc, errs
}

func (v *Validator) validateIdentity(req *domain.CompositionRequest, actor *domain.AuthContext, prior *domain.Message, posterIsGuest bool, nc *NormalizedContent, errs *errors.PostErrorSet) {
	if !posterIsGuest {
		if actor.User != nil {
			nc.GuestName = actor.User.Name
			nc.GuestEmail = actor.User.Email
		}
		return
	}

	var name, email string
	if req.Guest != nil {
		name = strings.TrimSpace(req.Guest.DisplayName)
		email = strings.TrimSpace(req.Guest.Email)
	}
	nc.GuestName = name
	nc.GuestEmail = email

	if name == "" || name == "_" {
		errs.AddSerious("no_name")
	} else if len([]rune(name)) > guestNameMaxLength {
		errs.AddSerious("long_name")
	} else if v.names.IsReserved(name) && (prior == nil || name != prior.PosterName) {
		errs.AddSerious("bad_name")
	}

	if v.cfg.GuestPostNoEmail {
		return
	}
	isMod := v.oracle.Allowed(actor, req.Board, perm.CapModerateForum)
	// Only re-check the address when it actually changed on an edit.
	if prior == nil || prior.PosterEmail != email {
		if !isMod && email == "" {
			errs.AddSerious("no_email")
		}
		if !isMod && !emailRegex.MatchString(email) {
			errs.AddSerious("bad_email")
		}
	}
	if email != "" && v.names.IsBannedEmail(email) {
		errs.AddSerious("cannot_post")
	}
}

func (v *Validator) validateSubject(req *domain.CompositionRequest, nc *NormalizedContent, errs *errors.PostErrorSet) {
	subject := strings.TrimSpace(req.SubjectRaw)
	subject = strings.NewReplacer("\r", "", "\n", "", "\t", "").Replace(subject)
	if subject == "" {
		errs.Add("no_subject")
	}
	// Too-long subjects are truncated, never rejected.
	if runes := []rune(subject); len(runes) > subjectMaxLength {
		subject = string(runes[:subjectMaxLength])
	}
	nc.Subject = subject
}

func (v *Validator) validateBody(req *domain.CompositionRequest, actor *domain.AuthContext, nc *NormalizedContent, errs *errors.PostErrorSet) {
	body := v.renderer.RenderForStorage(req.BodyRaw)
	nc.Body = body

	if strings.TrimSpace(body) == "" {
		errs.AddSerious("no_message")
		return
	}
	if v.cfg.MaxMessageLength > 0 && len([]rune(body)) > v.cfg.MaxMessageLength {
		errs.AddSerious("long_message", v.cfg.MaxMessageLength)
		return
	}
	// A body that renders to nothing is as good as empty, unless a forum
	// admin is using the raw-HTML escape hatch.
	if v.renderer.StripTags(body) == "" {
		rawHTML := strings.Contains(body, "[html]") && v.oracle.Allowed(actor, req.Board, perm.CapAdminForum)
		if !rawHTML {
			errs.AddSerious("no_message")
		}
	}
}

func (v *Validator) validatePoll(req *domain.CompositionRequest, actor *domain.AuthContext, nc *NormalizedContent, errs *errors.PostErrorSet) {
	if req.Poll == nil || !v.cfg.PollsEnabled {
		return
	}

	p := *req.Poll
	p.Question = strings.TrimSpace(p.Question)
	if p.Question == "" {
		errs.AddSerious("no_question")
	}
	if runes := []rune(p.Question); len(runes) > 255 {
		p.Question = string(runes[:255])
	}

	p.Options = normalizePollOptions(p.Options)
	if len(p.Options) < pollMinOptions {
		errs.AddSerious("poll_few")
	} else if len(p.Options) > pollMaxOptions {
		errs.AddSerious("poll_many")
	}

	if p.MaxVotes <= 0 {
		p.MaxVotes = 1
	} else if p.MaxVotes > len(p.Options) {
		p.MaxVotes = len(p.Options)
	}

	if p.ExpireDays < 0 {
		p.ExpireDays = 0
	} else if p.ExpireDays > pollMaxExpireDays {
		p.ExpireDays = pollMaxExpireDays
	}
	// Hidden-until-close only makes sense for polls that actually close.
	if p.ExpireDays == 0 && p.HideMode == domain.PollHideUntilClose {
		p.HideMode = domain.PollHideUntilVoted
	}

	// Guest voting requires guests to be allowed to vote board-wide.
	if p.GuestVote && !v.oracle.Allowed(&domain.AuthContext{}, req.Board, perm.CapPollGuestVote) {
		p.GuestVote = false
	}

	nc.Poll = &p
}

// normalizePollOptions trims every option and drops blanks and
// duplicates, preserving first-seen order.
func normalizePollOptions(options []string) []string {
	seen := make(map[string]bool, len(options))
	out := make([]string, 0, len(options))
	for _, opt := range options {
		opt = strings.TrimSpace(opt)
		if opt == "" || seen[opt] {
			continue
		}
		seen[opt] = true
		out = append(out, opt)
	}
	return out
}

func (v *Validator) validateEvent(req *domain.CompositionRequest, nc *NormalizedContent, errs *errors.PostErrorSet) {
	if req.Event == nil || !v.cfg.CalendarEnabled {
		return
	}
	e := *req.Event
	e.Title = strings.TrimSpace(e.Title)
	if !e.Delete && e.Title == "" {
		errs.AddSerious("no_event")
	}
	if v.cfg.CalendarMaxSpan > 0 && e.SpanDays > v.cfg.CalendarMaxSpan {
		e.SpanDays = v.cfg.CalendarMaxSpan
	}
	if e.SpanDays < 0 {
		e.SpanDays = 0
	}
	nc.Event = &e
}

var iconStrip = regexp.MustCompile(`[./\\*:"'<>]`)

func sanitizeIcon(icon string) string {
	icon = iconStrip.ReplaceAllString(icon, "")
	if icon == "" {
		icon = "xx"
	}
	return icon
}
