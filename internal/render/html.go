package render

import (
	"bytes"
	"fmt"
	"html"
	"strings"

	"github.com/alecthomas/chroma/v2"
	chromahtml "github.com/alecthomas/chroma/v2/formatters/html"
	"github.com/alecthomas/chroma/v2/lexers"
	chromaStyles "github.com/alecthomas/chroma/v2/styles"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	goldmarkhtml "github.com/yuin/goldmark/renderer/html"
)

// HTMLRenderer renders content for the browser. It is safe for concurrent use.
type HTMLRenderer struct {
	md        goldmark.Markdown
	style     *chroma.Style
	formatter *chromahtml.Formatter
}

// NewHTMLRenderer builds a renderer that highlights code with the named
// chroma style. Unknown styles fall back to chroma's default.
func NewHTMLRenderer(styleName string) *HTMLRenderer {
	return &HTMLRenderer{
		md: goldmark.New(
			goldmark.WithExtensions(extension.GFM),
			goldmark.WithRendererOptions(goldmarkhtml.WithUnsafe()),
		),
		style:     chromaStyles.Get(styleName),
		formatter: chromahtml.New(chromahtml.WithClasses(false), chromahtml.TabWidth(4)),
	}
}

// Render returns the HTML for every segment of content, in order.
func (r *HTMLRenderer) Render(content string) (string, error) {
	var buf bytes.Buffer
	for _, seg := range Split(content) {
		switch seg.Kind {
		case KindCode:
			if err := r.code(&buf, seg); err != nil {
				return "", err
			}
		default:
			buf.WriteString(`<div class="md">`)
			if err := r.md.Convert([]byte(seg.Content), &buf); err != nil {
				return "", fmt.Errorf("render markdown: %w", err)
			}
			buf.WriteString("</div>\n")
		}
	}
	return buf.String(), nil
}

func (r *HTMLRenderer) code(buf *bytes.Buffer, seg Segment) error {
	fmt.Fprintf(buf, `<div class="code" data-language="%s">`, html.EscapeString(seg.Language))
	it, err := lexerFor(seg.Language).Tokenise(nil, seg.Content)
	if err != nil {
		// Unlexable input still renders, just without colour.
		buf.WriteString("<pre><code>" + html.EscapeString(seg.Content) + "</code></pre>")
	} else if err := r.formatter.Format(buf, r.style, it); err != nil {
		return fmt.Errorf("highlight %s: %w", seg.Language, err)
	}
	buf.WriteString("</div>\n")
	return nil
}

func lexerFor(lang string) chroma.Lexer {
	lexer := lexers.Get(strings.ToLower(lang))
	if lexer == nil {
		lexer = lexers.Fallback
	}
	return chroma.Coalesce(lexer)
}
