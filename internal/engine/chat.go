package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"ragchat/internal/domain"
	"ragchat/internal/llm"
	"ragchat/internal/session"
)

// ChatEngine is a retrieval pipeline with a running conversation. Retrieval
// bindings (mode, topK, passage set) are frozen at construction; Reset
// clears the conversation without touching them. A chat engine built before
// an index update is blind to new passages and must be replaced, which
// Session takes care of.
type ChatEngine struct {
	retriever    Retriever
	completer    llm.Completer
	mode         domain.ChatMode
	topK         int
	systemPrompt string

	sessions   session.Store
	sessionID  string
	maxTokens  int
	maxTurns   int
	generation uint64
}

// ChatOptions configures a chat engine.
type ChatOptions struct {
	Mode         domain.ChatMode
	TopK         int
	SystemPrompt string
	Sessions     session.Store
	SessionID    string
	MaxTokens    int
	MaxTurns     int
}

// NewChatEngine builds a chat engine bound to the retriever's current
// generation.
func NewChatEngine(retriever Retriever, completer llm.Completer, opts ChatOptions) (*ChatEngine, error) {
	if opts.TopK < 1 {
		return nil, fmt.Errorf("top_k must be >= 1, got %d", opts.TopK)
	}
	if opts.Sessions == nil {
		opts.Sessions = session.NewMemoryStore()
	}
	if opts.SessionID == "" {
		opts.SessionID = "default"
	}
	return &ChatEngine{
		retriever:    retriever,
		completer:    completer,
		mode:         opts.Mode,
		topK:         opts.TopK,
		systemPrompt: opts.SystemPrompt,
		sessions:     opts.Sessions,
		sessionID:    opts.SessionID,
		maxTokens:    opts.MaxTokens,
		maxTurns:     opts.MaxTurns,
		generation:   retriever.Generation(),
	}, nil
}

// Generation returns the index generation this engine was built against.
func (e *ChatEngine) Generation() uint64 { return e.generation }

// Chat retrieves context for the message and streams the assistant's
// response. Both the user message and the full assistant response are
// appended to the session history once the stream is exhausted.
func (e *ChatEngine) Chat(ctx context.Context, message string) (*llm.Stream, []domain.RetrievedPassage, error) {
	history, err := e.sessions.History(ctx, e.sessionID)
	if err != nil {
		return nil, nil, fmt.Errorf("load chat history: %w", err)
	}
	history = session.Truncate(history, e.maxTokens, e.maxTurns)

	retrievalQuery := message
	if e.mode == domain.ChatCondensePlusContext && len(history) > 0 {
		retrievalQuery, err = e.condense(ctx, history, message)
		if err != nil {
			return nil, nil, err
		}
	}

	sources, err := e.retriever.Retrieve(ctx, retrievalQuery, e.topK)
	if err != nil {
		return nil, nil, err
	}

	messages := make([]llm.Message, 0, len(history)+1)
	for _, m := range history {
		messages = append(messages, llm.Message{Role: m.Role, Content: m.Content})
	}
	messages = append(messages, llm.Message{Role: llm.RoleUser, Content: message})

	stream, err := e.completer.Stream(ctx, e.contextualSystemPrompt(sources), messages)
	if err != nil {
		return nil, nil, err
	}
	return e.recording(ctx, stream, message), sources, nil
}

// Reset clears the conversation history. Retrieval bindings are untouched.
func (e *ChatEngine) Reset(ctx context.Context) error {
	return e.sessions.Clear(ctx, e.sessionID)
}

// condense folds the history and the follow-up question into a standalone
// question used for retrieval.
func (e *ChatEngine) condense(ctx context.Context, history []session.Message, message string) (string, error) {
	var transcript strings.Builder
	for _, m := range history {
		transcript.WriteString(m.Role)
		transcript.WriteString(": ")
		transcript.WriteString(m.Content)
		transcript.WriteString("\n")
	}
	condensed, err := e.completer.Complete(ctx, "",
		[]llm.Message{{Role: llm.RoleUser, Content: fmt.Sprintf(condensePrompt, transcript.String(), message)}})
	if err != nil {
		return "", fmt.Errorf("condense question: %w", err)
	}
	condensed = strings.TrimSpace(condensed)
	if condensed == "" {
		return message, nil
	}
	return condensed, nil
}

func (e *ChatEngine) contextualSystemPrompt(sources []domain.RetrievedPassage) string {
	if len(sources) == 0 {
		return e.systemPrompt
	}
	texts := make([]string, len(sources))
	for i, s := range sources {
		texts[i] = s.Passage.Text
	}
	return fmt.Sprintf(contextSystemPrompt, e.systemPrompt, strings.Join(texts, "\n\n"))
}

// recording wraps the completion stream so the exchange is persisted to the
// session history exactly once, when the stream ends cleanly.
func (e *ChatEngine) recording(ctx context.Context, stream *llm.Stream, userMessage string) *llm.Stream {
	var full strings.Builder
	recorded := false
	return llm.WrapStream(
		func() (string, error) {
			fragment, err := stream.Recv()
			if err == nil {
				full.WriteString(fragment)
				return fragment, nil
			}
			if errors.Is(err, io.EOF) && !recorded {
				recorded = true
				_ = e.sessions.Append(ctx, e.sessionID, session.NewMessage(llm.RoleUser, userMessage))
				_ = e.sessions.Append(ctx, e.sessionID, session.NewMessage(llm.RoleAssistant, full.String()))
			}
			return "", err
		},
		stream.Close,
	)
}
