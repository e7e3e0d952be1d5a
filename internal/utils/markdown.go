package utils

import (
	"bytes"
	"html/template"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"
)

// bodyRenderer turns comment markdown into HTML that is safe to embed in a page.
type bodyRenderer struct {
	md     goldmark.Markdown
	policy *bluemonday.Policy
}

func newBodyRenderer() *bodyRenderer {
	policy := bluemonday.UGCPolicy()
	// external links open outside the page and leak no referrer
	policy.AddTargetBlankToFullyQualifiedLinks(true)
	policy.RequireNoReferrerOnLinks(true)

	return &bodyRenderer{
		md: goldmark.New(
			goldmark.WithExtensions(extension.GFM),
			goldmark.WithRendererOptions(html.WithHardWraps(), html.WithXHTML()),
		),
		policy: policy,
	}
}

var commentBodies = newBodyRenderer()

func (r *bodyRenderer) render(source string) template.HTML {
	var buf bytes.Buffer
	if err := r.md.Convert([]byte(source), &buf); err != nil {
		return template.HTML(template.HTMLEscapeString(source))
	}
	return template.HTML(r.policy.SanitizeBytes(buf.Bytes()))
}

// RenderMarkdown converts a comment body to sanitized HTML. Stored bodies are
// never rewritten; this is only applied on the way out.
func RenderMarkdown(source string) template.HTML {
	return commentBodies.render(source)
}
