// Package markup renders submitted text for storage and display. The
// composition pipeline treats it as opaque: RenderForStorage normalizes
// what gets persisted, RenderForDisplay produces the HTML shown back.
package markup

import (
	"bytes"
	"regexp"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"
)

// Renderer is the markup capability the pipeline consumes.
type Renderer interface {
	// RenderForStorage normalizes raw body text into its stored form.
	RenderForStorage(raw string) string
	// RenderForDisplay turns stored text into sanitized HTML.
	RenderForDisplay(stored string) string
	// StripTags removes all markup, leaving bare text. Used to decide
	// whether a body is empty once its formatting is discarded.
	StripTags(stored string) string
}

type Processor struct {
	md       goldmark.Markdown
	sanitize *bluemonday.Policy
	stripAll *bluemonday.Policy
}

func New() *Processor {
	md := goldmark.New(
		goldmark.WithExtensions(extension.Strikethrough, extension.Linkify),
		goldmark.WithRendererOptions(html.WithHardWraps()),
	)
	return &Processor{
		md:       md,
		sanitize: bluemonday.UGCPolicy(),
		stripAll: bluemonday.StrictPolicy(),
	}
}

var crlf = strings.NewReplacer("\r\n", "\n", "\r", "\n")

func (p *Processor) RenderForStorage(raw string) string {
	// Stored form keeps the author's markup; only line endings and outer
	// whitespace are normalized so re-edits round-trip.
	return strings.TrimRight(crlf.Replace(raw), " \t\n")
}

func (p *Processor) RenderForDisplay(stored string) string {
	var buf bytes.Buffer
	if err := p.md.Convert([]byte(stored), &buf); err != nil {
		// Fall back to the sanitized source rather than losing the post.
		return p.sanitize.Sanitize(stored)
	}
	return p.sanitize.Sanitize(buf.String())
}

func (p *Processor) StripTags(stored string) string {
	var buf bytes.Buffer
	if err := p.md.Convert([]byte(stored), &buf); err != nil {
		return strings.TrimSpace(stored)
	}
	return strings.TrimSpace(p.stripAll.Sanitize(buf.String()))
}

var _ Renderer = (*Processor)(nil)

// Censor applies the forum's word filter. Patterns match whole words,
// case-insensitively.
type Censor struct {
	replacements []censorRule
}

type censorRule struct {
	re   *regexp.Regexp
	with string
}

func NewCensor(pairs map[string]string) *Censor {
	c := &Censor{}
	for word, with := range pairs {
		re, err := regexp.Compile(`(?i)\b` + regexp.QuoteMeta(word) + `\b`)
		if err != nil {
			continue
		}
		c.replacements = append(c.replacements, censorRule{re, with})
	}
	return c
}

func (c *Censor) Apply(text string) string {
	for _, r := range c.replacements {
		text = r.re.ReplaceAllString(text, r.with)
	}
	return text
}
