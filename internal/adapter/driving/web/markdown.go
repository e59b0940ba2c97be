// Package web renders chat digests as sanitized HTML for browser previews.
package web

import (
	"bytes"
	"regexp"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"
)

var (
	mdRenderer    goldmark.Markdown
	htmlSanitizer *bluemonday.Policy
)

func init() {
	// Chat messages treat every newline as a line break.
	mdRenderer = goldmark.New(
		goldmark.WithExtensions(extension.GFM),
		goldmark.WithRendererOptions(html.WithUnsafe(), html.WithHardWraps()),
	)

	htmlSanitizer = bluemonday.UGCPolicy()
}

var (
	chatLink    = regexp.MustCompile(`<([^<>|\s]+)\|([^<>]+)>`)
	chatMention = regexp.MustCompile(`<@([A-Z0-9]+)>`)
	chatBold    = regexp.MustCompile(`\*([^*\n]+)\*`)
)

var emoji = strings.NewReplacer(
	":mega:", "📣",
	":warning:", "⚠️",
	":hourglass_flowing_sand:", "⏳",
	":bell:", "🔔",
	":scroll:", "📜",
	":white_check_mark:", "✅",
)

// RenderMarkdown converts a markdown string to sanitized HTML.
// Returns empty string for empty input.
func RenderMarkdown(src string) string {
	if src == "" {
		return ""
	}

	var buf bytes.Buffer
	if err := mdRenderer.Convert([]byte(src), &buf); err != nil {
		return htmlSanitizer.Sanitize(src)
	}

	return htmlSanitizer.Sanitize(buf.String())
}

// ChatToMarkdown rewrites chat markup into markdown: *bold* becomes **bold**,
// <url|text> becomes [text](url), <@U1> becomes @U1 and the emoji used in
// digests become their characters.
func ChatToMarkdown(src string) string {
	out := chatBold.ReplaceAllString(src, "**$1**")
	out = chatLink.ReplaceAllString(out, "[$2]($1)")
	out = chatMention.ReplaceAllString(out, "@$1")
	return emoji.Replace(out)
}

// RenderDigestHTML renders a chat digest as a sanitized HTML fragment.
func RenderDigestHTML(digest string) string {
	return RenderMarkdown(ChatToMarkdown(digest))
}
