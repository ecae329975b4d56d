package llm

import (
	"context"
	"errors"
	"fmt"
	"io"
)

// ErrUnsupportedModel is returned for model names outside the supported set.
var ErrUnsupportedModel = errors.New("unsupported model")

// Supported generative backends, keyed by model name.
const (
	ModelGPT4oMini   = "gpt-4o-mini"
	ModelGeminiFlash = "gemini-2.0-flash"
)

// Message roles in a conversation.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one turn of a conversation.
type Message struct {
	Role    string
	Content string
}

// Completer produces chat completions from a system prompt and a
// conversation. Implementations are stateless; all context travels in the
// arguments.
type Completer interface {
	Complete(ctx context.Context, system string, messages []Message) (string, error)
	Stream(ctx context.Context, system string, messages []Message) (*Stream, error)
}

// Stream is a lazy, single-pass, non-restartable sequence of response text
// fragments. Recv returns io.EOF after the final fragment. The caller
// concatenates fragments for display and for the persisted history entry.
type Stream struct {
	recv  func() (string, error)
	close func()
	done  bool
}

// Recv returns the next text fragment, or io.EOF when the stream ends.
func (s *Stream) Recv() (string, error) {
	if s.done {
		return "", io.EOF
	}
	fragment, err := s.recv()
	if err != nil {
		s.done = true
		s.close()
	}
	return fragment, err
}

// Close releases the stream early. Safe to call after exhaustion.
func (s *Stream) Close() {
	if !s.done {
		s.done = true
		s.close()
	}
}

// Collect drains the stream and returns the concatenated response.
func (s *Stream) Collect() (string, error) {
	var out string
	for {
		fragment, err := s.Recv()
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return out, err
		}
		out += fragment
	}
}

// WrapStream builds a Stream from raw receive and close functions. The
// receive function must return io.EOF after the final fragment.
func WrapStream(recv func() (string, error), close func()) *Stream {
	return &Stream{recv: recv, close: close}
}

// New constructs the completion backend for the given model name, failing
// fast on anything outside the supported set.
func New(ctx context.Context, model string) (Completer, error) {
	switch model {
	case ModelGPT4oMini:
		return newOpenAICompleter(model)
	case ModelGeminiFlash:
		return newGeminiCompleter(ctx, model)
	}
	return nil, fmt.Errorf("%w %q: choose %q or %q",
		ErrUnsupportedModel, model, ModelGeminiFlash, ModelGPT4oMini)
}
