package engine

import (
	"context"

	"ragchat/internal/domain"
	"ragchat/internal/llm"
	"ragchat/internal/session"
)

// Session owns the engines of one interactive session. Query engines are
// rebuilt for every call; the chat engine is kept between turns and rebuilt
// only when its parameters change or the index generation moves past the
// one it was built against. This is what keeps chat answers from going
// blind to newly indexed passages.
type Session struct {
	retriever    Retriever
	completer    llm.Completer
	sessions     session.Store
	systemPrompt string
	maxTokens    int
	maxTurns     int

	chat     *ChatEngine
	chatMode domain.ChatMode
	chatTopK int
	rebuilds int
}

// SessionOptions configures a Session.
type SessionOptions struct {
	Retriever    Retriever
	Completer    llm.Completer
	Sessions     session.Store
	SystemPrompt string
	MaxTokens    int
	MaxTurns     int
}

func NewSession(opts SessionOptions) *Session {
	if opts.Sessions == nil {
		opts.Sessions = session.NewMemoryStore()
	}
	return &Session{
		retriever:    opts.Retriever,
		completer:    opts.Completer,
		sessions:     opts.Sessions,
		systemPrompt: opts.SystemPrompt,
		maxTokens:    opts.MaxTokens,
		maxTurns:     opts.MaxTurns,
	}
}

// QueryEngine returns a fresh one-shot query engine.
func (s *Session) QueryEngine(mode domain.ResponseMode, topK int) (*QueryEngine, error) {
	return NewQueryEngine(s.retriever, s.completer, mode, topK)
}

// ChatEngine returns the session's chat engine, rebuilding it when mode or
// topK changed or the index generation advanced since the engine was built.
// Rebuilding preserves the conversation history, which lives in the session
// store, not in the engine.
func (s *Session) ChatEngine(mode domain.ChatMode, topK int) (*ChatEngine, error) {
	if s.chat != nil &&
		s.chatMode == mode &&
		s.chatTopK == topK &&
		s.chat.Generation() == s.retriever.Generation() {
		return s.chat, nil
	}
	chat, err := NewChatEngine(s.retriever, s.completer, ChatOptions{
		Mode:         mode,
		TopK:         topK,
		SystemPrompt: s.systemPrompt,
		Sessions:     s.sessions,
		MaxTokens:    s.maxTokens,
		MaxTurns:     s.maxTurns,
	})
	if err != nil {
		return nil, err
	}
	s.chat = chat
	s.chatMode = mode
	s.chatTopK = topK
	s.rebuilds++
	return chat, nil
}

// Rebuilds returns how many times the chat engine has been (re)built.
func (s *Session) Rebuilds() int { return s.rebuilds }

// ResetChat clears the conversation history of the current chat engine, if
// any.
func (s *Session) ResetChat(ctx context.Context) error {
	if s.chat == nil {
		return nil
	}
	return s.chat.Reset(ctx)
}
