// Package sanitize is the boundary every stored content body crosses before
// it is presented. Bodies are authored as rich-text HTML and stored as
// submitted; scripts, event handlers and unsafe URLs are stripped on the way
// out.
package sanitize

import (
	"fmt"
	"regexp"
	"strings"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
	"github.com/microcosm-cc/bluemonday"
)

// Format selects how a body is rendered.
type Format string

// Supported formats.
const (
	FormatHTML     Format = "html"
	FormatMarkdown Format = "markdown"
)

// ParseFormat accepts "", "html" or "markdown". Empty means HTML.
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(s))) {
	case "", FormatHTML:
		return FormatHTML, nil
	case FormatMarkdown:
		return FormatMarkdown, nil
	}
	return "", fmt.Errorf("unsupported format %q", s)
}

// editorClasses matches the layout classes the rich-text editor emits, such
// as "ql-align-center ql-indent-1".
var editorClasses = regexp.MustCompile(`^ql-[a-z0-9-]+( ql-[a-z0-9-]+)*$`)

// Sanitizer holds the HTML policy. It is safe for concurrent use.
type Sanitizer struct {
	policy *bluemonday.Policy
}

// New returns a Sanitizer built on the user-generated-content policy, keeping
// editor alignment and indent classes on block elements.
func New() *Sanitizer {
	p := bluemonday.UGCPolicy()
	p.RequireNoFollowOnLinks(true)
	p.AddTargetBlankToFullyQualifiedLinks(true)
	p.AllowAttrs("class").Matching(editorClasses).OnElements(
		"p", "h1", "h2", "h3", "h4", "h5", "h6",
		"li", "ol", "ul", "blockquote", "pre", "span",
	)

	return &Sanitizer{policy: p}
}

// Body strips executable content from an HTML body.
func (s *Sanitizer) Body(html string) string {
	return strings.TrimSpace(s.policy.Sanitize(html))
}

// Markdown sanitizes the body and then renders it as Markdown. If conversion
// fails the sanitized HTML is returned.
func (s *Sanitizer) Markdown(html string) string {
	clean := s.Body(html)
	if clean == "" {
		return ""
	}
	md, err := htmltomarkdown.ConvertString(clean)
	if err != nil {
		return clean
	}
	return strings.TrimSpace(md)
}

// Render sanitizes the body into the requested format.
func (s *Sanitizer) Render(html string, format Format) string {
	if format == FormatMarkdown {
		return s.Markdown(html)
	}
	return s.Body(html)
}
