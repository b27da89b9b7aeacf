package stream

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
)

// Encoder writes parts and flushes after each one when the writer supports it.
type Encoder struct {
	mu      sync.Mutex
	w       io.Writer
	flusher http.Flusher
}

func NewEncoder(w io.Writer) *Encoder {
	e := &Encoder{w: w}
	if f, ok := w.(http.Flusher); ok {
		e.flusher = f
	}
	return e
}

func (e *Encoder) Start(messageID string) error {
	return e.write(codeStartStep, startStep{MessageID: messageID})
}

func (e *Encoder) Text(delta string) error {
	if delta == "" {
		return nil
	}
	return e.write(codeText, delta)
}

func (e *Encoder) Error(msg string) error {
	return e.write(codeError, msg)
}

// Finish writes the finish-step and finish-message parts.
func (e *Encoder) Finish(f Finish) error {
	if f.Reason == "" {
		f.Reason = "stop"
	}
	u := usage{PromptTokens: f.PromptTokens, CompletionTokens: f.CompletionTokens}
	if err := e.write(codeFinishStep, finishStep{FinishReason: f.Reason, Usage: u}); err != nil {
		return err
	}
	return e.write(codeFinishMessage, finishMessage{FinishReason: f.Reason, Usage: u})
}

// Encode writes an already-built part.
func (e *Encoder) Encode(p Part) error {
	switch p.Type {
	case PartStart:
		return e.Start(p.MessageID)
	case PartText:
		return e.Text(p.Text)
	case PartError:
		return e.Error(p.Text)
	case PartFinish:
		return e.Finish(p.Finish)
	}
	return fmt.Errorf("unknown part type %v", p.Type)
}

func (e *Encoder) write(code byte, v interface{}) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode part %c: %w", code, err)
	}
	line := make([]byte, 0, len(payload)+3)
	line = append(line, code, ':')
	line = append(line, payload...)
	line = append(line, '\n')

	e.mu.Lock()
	defer e.mu.Unlock()
	if _, err := e.w.Write(line); err != nil {
		return fmt.Errorf("write part %c: %w", code, err)
	}
	if e.flusher != nil {
		e.flusher.Flush()
	}
	return nil
}
