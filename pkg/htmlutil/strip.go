// Package htmlutil converts chapter HTML/XHTML into readable plain text.
package htmlutil

import (
	"strings"

	"golang.org/x/net/html"
)

// blockTags are elements that produce a visual break; their boundaries become
// newlines in the extracted text.
var blockTags = map[string]struct{}{
	"p": {}, "div": {}, "br": {}, "li": {}, "section": {}, "article": {},
	"h1": {}, "h2": {}, "h3": {}, "h4": {}, "h5": {}, "h6": {},
	"blockquote": {}, "tr": {}, "hr": {},
}

// skipTags are elements whose content is never part of the text.
var skipTags = map[string]struct{}{
	"script": {}, "style": {}, "head": {}, "title": {},
}

// ExtractText strips all markup from an HTML or XHTML document and returns
// plain text. <script> and <style> subtrees are dropped entirely, entities
// are decoded, line endings are normalized to \n, runs of blank lines are
// collapsed, and the result is trimmed.
func ExtractText(doc string) string {
	tok := html.NewTokenizer(strings.NewReader(doc))

	var b strings.Builder
	skipDepth := 0

	for {
		tt := tok.Next()
		switch tt {
		case html.ErrorToken:
			// io.EOF or malformed input; either way we keep what we have.
			return normalize(b.String())
		case html.StartTagToken:
			name, _ := tok.TagName()
			tag := string(name)
			if _, ok := skipTags[tag]; ok {
				skipDepth++
				continue
			}
			if _, ok := blockTags[tag]; ok {
				b.WriteByte('\n')
			}
		case html.EndTagToken:
			name, _ := tok.TagName()
			tag := string(name)
			if _, ok := skipTags[tag]; ok {
				if skipDepth > 0 {
					skipDepth--
				}
				continue
			}
			if _, ok := blockTags[tag]; ok {
				b.WriteByte('\n')
			}
		case html.SelfClosingTagToken:
			name, _ := tok.TagName()
			if _, ok := blockTags[string(name)]; ok {
				b.WriteByte('\n')
			}
		case html.TextToken:
			if skipDepth > 0 {
				continue
			}
			// Tokenizer text is already entity-decoded (&nbsp; &amp;
			// &lt; &gt; &quot; &#39; &apos; and the rest).
			b.Write(tok.Text())
		}
	}
}

// normalize collapses whitespace: \r\n and \r become \n, intra-line runs of
// spaces collapse to one, and blank lines are dropped.
func normalize(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	// NBSP decodes to U+00A0; treat it as a plain space.
	s = strings.ReplaceAll(s, "\u00a0", " ")

	lines := strings.Split(s, "\n")
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		line = strings.Join(strings.Fields(line), " ")
		if line != "" {
			out = append(out, line)
		}
	}
	return strings.Join(out, "\n")
}
