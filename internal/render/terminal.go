package render

import (
	"bytes"
	"strings"

	"github.com/alecthomas/chroma/v2/formatters"
	chromaStyles "github.com/alecthomas/chroma/v2/styles"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
)

// TerminalRenderer renders content for an ANSI terminal.
type TerminalRenderer struct {
	width     int
	style     string
	md        *glamour.TermRenderer
	codeFrame lipgloss.Style
	langBadge lipgloss.Style
}

// NewTerminalRenderer builds a renderer that wraps text at width columns.
// glamourStyle is a glamour standard style name such as "dark" or "light".
func NewTerminalRenderer(width int, glamourStyle string) (*TerminalRenderer, error) {
	if width < 20 {
		width = 20
	}
	md, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle(glamourStyle),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return nil, err
	}
	chromaStyle := "monokai"
	if glamourStyle == "light" {
		chromaStyle = "github"
	}
	return &TerminalRenderer{
		width: width,
		style: chromaStyle,
		md:    md,
		codeFrame: lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240")).
			Padding(0, 1),
		langBadge: lipgloss.NewStyle().
			Foreground(lipgloss.Color("245")).
			Bold(true),
	}, nil
}

func (r *TerminalRenderer) Width() int { return r.width }

// Render returns the terminal rendering of content. Segments that fail to
// render fall back to their raw text.
func (r *TerminalRenderer) Render(content string) string {
	var parts []string
	for _, seg := range Split(content) {
		switch seg.Kind {
		case KindCode:
			parts = append(parts, r.code(seg))
		default:
			out, err := r.md.Render(seg.Content)
			if err != nil {
				out = seg.Content
			}
			parts = append(parts, strings.Trim(out, "\n"))
		}
	}
	return strings.Join(parts, "\n")
}

func (r *TerminalRenderer) code(seg Segment) string {
	highlighted := seg.Content
	it, err := lexerFor(seg.Language).Tokenise(nil, seg.Content)
	if err == nil {
		var buf bytes.Buffer
		if formatters.TTY256.Format(&buf, chromaStyles.Get(r.style), it) == nil {
			highlighted = strings.TrimRight(buf.String(), "\n")
		}
	}
	return r.codeFrame.MaxWidth(r.width).Render(r.langBadge.Render(seg.Language) + "\n" + highlighted)
}
