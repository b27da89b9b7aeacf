package stream

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"io"
)

// ErrUnexpectedEnd is reported when a body ends without a terminal part.
var ErrUnexpectedEnd = errors.New("unexpected end of stream")

const maxLineSize = 4 * 1024 * 1024

// Decoder reads parts from a data stream body.
type Decoder struct {
	scanner    *bufio.Scanner
	lastFinish *Finish
	done       bool
}

func NewDecoder(r io.Reader) *Decoder {
	s := bufio.NewScanner(r)
	s.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	return &Decoder{scanner: s}
}

// Next returns the next part. After a terminal part it returns io.EOF.
// A body that ends early produces a final error part carrying
// ErrUnexpectedEnd, or a finish part when a finish-step was already seen.
func (d *Decoder) Next() (Part, error) {
	if d.done {
		return Part{}, io.EOF
	}
	for d.scanner.Scan() {
		line := d.scanner.Bytes()
		if len(line) < 2 || line[1] != ':' {
			continue
		}
		p, ok := d.parse(line[0], line[2:])
		if !ok {
			continue
		}
		if p.Terminal() {
			d.done = true
		}
		return p, nil
	}
	d.done = true
	if err := d.scanner.Err(); err != nil {
		return ErrorPart(err.Error()), nil
	}
	if d.lastFinish != nil {
		return FinishPart(*d.lastFinish), nil
	}
	return ErrorPart(ErrUnexpectedEnd.Error()), nil
}

func (d *Decoder) parse(code byte, payload []byte) (Part, bool) {
	switch code {
	case codeText:
		var s string
		if json.Unmarshal(payload, &s) != nil {
			return Part{}, false
		}
		return TextPart(s), true
	case codeError:
		var s string
		if json.Unmarshal(payload, &s) != nil {
			s = string(payload)
		}
		return ErrorPart(s), true
	case codeStartStep:
		var st startStep
		if json.Unmarshal(payload, &st) != nil {
			return Part{}, false
		}
		return Part{Type: PartStart, MessageID: st.MessageID}, true
	case codeFinishStep:
		var fs finishStep
		if json.Unmarshal(payload, &fs) == nil && !fs.IsContinued {
			d.lastFinish = &Finish{
				Reason:           fs.FinishReason,
				PromptTokens:     fs.Usage.PromptTokens,
				CompletionTokens: fs.Usage.CompletionTokens,
			}
		}
		return Part{}, false
	case codeFinishMessage:
		var fm finishMessage
		if json.Unmarshal(payload, &fm) != nil {
			return Part{}, false
		}
		return FinishPart(Finish{
			Reason:           fm.FinishReason,
			PromptTokens:     fm.Usage.PromptTokens,
			CompletionTokens: fm.Usage.CompletionTokens,
		}), true
	}
	return Part{}, false
}

// Pipe decodes r on its own goroutine. The returned channel yields every part
// up to and including exactly one terminal part, then closes. r is closed
// when decoding stops. Cancelling ctx ends the sequence with an error part.
func Pipe(ctx context.Context, r io.ReadCloser) <-chan Part {
	out := make(chan Part, 16)
	go func() {
		defer close(out)
		defer r.Close()

		dec := NewDecoder(r)
		for {
			p, err := dec.Next()
			if err != nil {
				return
			}
			select {
			case out <- p:
			case <-ctx.Done():
				// Deliver the cancellation as the terminal part if there is room.
				select {
				case out <- ErrorPart(ctx.Err().Error()):
				default:
				}
				return
			}
			if p.Terminal() {
				return
			}
		}
	}()
	return out
}
