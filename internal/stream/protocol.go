// Package stream implements the line-oriented data stream protocol spoken
// between the completion endpoint and chat clients.
//
// Each part is one line of the form "<code>:<json>\n". A stream carries an
// optional start part, any number of text parts, and ends with either an
// error part or a finish part.
package stream

import (
	"fmt"
	"net/http"
)

const (
	// ContentType is the media type of a data stream response body.
	ContentType = "text/plain; charset=utf-8"
	// HeaderName marks a response as a data stream.
	HeaderName    = "X-Vercel-AI-Data-Stream"
	HeaderVersion = "v1"
)

const (
	codeText          = '0'
	codeError         = '3'
	codeStartStep     = 'f'
	codeFinishStep    = 'e'
	codeFinishMessage = 'd'
)

type PartType int

const (
	PartStart PartType = iota
	PartText
	PartError
	PartFinish
)

func (t PartType) String() string {
	switch t {
	case PartStart:
		return "start"
	case PartText:
		return "text"
	case PartError:
		return "error"
	case PartFinish:
		return "finish"
	}
	return fmt.Sprintf("PartType(%d)", int(t))
}

// Finish describes how a completion ended.
type Finish struct {
	Reason           string
	PromptTokens     int
	CompletionTokens int
}

// Part is one decoded element of a stream.
type Part struct {
	Type      PartType
	Text      string // text delta or error message
	MessageID string
	Finish    Finish
}

// Terminal reports whether p ends the stream.
func (p Part) Terminal() bool {
	return p.Type == PartError || p.Type == PartFinish
}

func TextPart(s string) Part    { return Part{Type: PartText, Text: s} }
func ErrorPart(msg string) Part { return Part{Type: PartError, Text: msg} }
func FinishPart(f Finish) Part  { return Part{Type: PartFinish, Finish: f} }

type usage struct {
	PromptTokens     int `json:"promptTokens"`
	CompletionTokens int `json:"completionTokens"`
}

type startStep struct {
	MessageID string `json:"messageId"`
}

type finishStep struct {
	FinishReason string `json:"finishReason"`
	Usage        usage  `json:"usage"`
	IsContinued  bool   `json:"isContinued"`
}

type finishMessage struct {
	FinishReason string `json:"finishReason"`
	Usage        usage  `json:"usage"`
}

// SetHeaders prepares an HTTP response for streaming.
func SetHeaders(h http.Header) {
	h.Set("Content-Type", ContentType)
	h.Set(HeaderName, HeaderVersion)
	h.Set("Cache-Control", "no-cache")
	h.Set("X-Accel-Buffering", "no")
}
