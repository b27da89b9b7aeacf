// Package render turns chat message content into displayable output.
//
// Content is markdown. Fenced code blocks are pulled out first and
// highlighted by their declared language; everything else is rendered as
// GitHub-flavored markdown.
package render

import (
	"regexp"
	"strings"
)

// DefaultLanguage highlights fences that carry no language tag.
const DefaultLanguage = "bash"

type SegmentKind string

const (
	KindText SegmentKind = "text"
	KindCode SegmentKind = "code"
)

type Segment struct {
	Kind     SegmentKind
	Language string
	Content  string
}

var (
	fencePattern = regexp.MustCompile("(?s)```([\\w+#.-]*)[ \\t]*\\r?\\n(.*?)```")
	// An opening fence with no closing fence yet, as seen mid-stream.
	openFencePattern = regexp.MustCompile("(?s)```([\\w+#.-]*)[ \\t]*\\r?\\n(.*)$")
)

// Split decomposes content into ordered text and code segments.
func Split(content string) []Segment {
	var out []Segment
	rest := content
	for {
		loc := fencePattern.FindStringSubmatchIndex(rest)
		if loc == nil {
			break
		}
		out = appendText(out, rest[:loc[0]])
		out = append(out, codeSegment(rest[loc[2]:loc[3]], rest[loc[4]:loc[5]]))
		rest = rest[loc[1]:]
	}

	if m := openFencePattern.FindStringSubmatchIndex(rest); m != nil {
		out = appendText(out, rest[:m[0]])
		out = append(out, codeSegment(rest[m[2]:m[3]], rest[m[4]:m[5]]))
		return out
	}
	return appendText(out, rest)
}

func appendText(segs []Segment, text string) []Segment {
	text = strings.TrimSpace(text)
	if text == "" {
		return segs
	}
	return append(segs, Segment{Kind: KindText, Content: text})
}

func codeSegment(lang, code string) Segment {
	lang = strings.ToLower(strings.TrimSpace(lang))
	if lang == "" {
		lang = DefaultLanguage
	}
	return Segment{
		Kind:     KindCode,
		Language: lang,
		Content:  strings.TrimRight(code, "\r\n"),
	}
}
