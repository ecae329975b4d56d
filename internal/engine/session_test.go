package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ragchat/internal/domain"
)

func newTestSession(retriever *fakeRetriever) *Session {
	return NewSession(SessionOptions{
		Retriever: retriever,
		Completer: &fakeCompleter{fragments: []string{"ok"}},
	})
}

func TestSessionChatEngineReused(t *testing.T) {
	retriever := &fakeRetriever{results: passages("p")}
	sess := newTestSession(retriever)

	first, err := sess.ChatEngine(domain.ChatContext, 3)
	require.NoError(t, err)
	second, err := sess.ChatEngine(domain.ChatContext, 3)
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.Equal(t, 1, sess.Rebuilds())
}

func TestSessionChatEngineRebuiltOnGenerationAdvance(t *testing.T) {
	retriever := &fakeRetriever{results: passages("p")}
	sess := newTestSession(retriever)

	first, err := sess.ChatEngine(domain.ChatContext, 3)
	require.NoError(t, err)

	// Indexing new documents advances the generation; the cached engine is
	// now blind to them and must be replaced.
	retriever.generation++
	second, err := sess.ChatEngine(domain.ChatContext, 3)
	require.NoError(t, err)

	assert.NotSame(t, first, second)
	assert.Equal(t, 2, sess.Rebuilds())
	assert.Equal(t, retriever.generation, second.Generation())
}

func TestSessionChatEngineRebuiltOnParameterChange(t *testing.T) {
	retriever := &fakeRetriever{results: passages("p")}
	sess := newTestSession(retriever)

	first, err := sess.ChatEngine(domain.ChatContext, 3)
	require.NoError(t, err)

	second, err := sess.ChatEngine(domain.ChatContext, 5)
	require.NoError(t, err)
	assert.NotSame(t, first, second)

	third, err := sess.ChatEngine(domain.ChatCondensePlusContext, 5)
	require.NoError(t, err)
	assert.NotSame(t, second, third)
	assert.Equal(t, 3, sess.Rebuilds())
}

func TestSessionHistorySurvivesRebuild(t *testing.T) {
	ctx := context.Background()
	retriever := &fakeRetriever{results: passages("p")}
	sess := newTestSession(retriever)

	eng, err := sess.ChatEngine(domain.ChatContext, 3)
	require.NoError(t, err)
	stream, _, err := eng.Chat(ctx, "hi")
	require.NoError(t, err)
	_, _ = stream.Collect()

	retriever.generation++
	rebuilt, err := sess.ChatEngine(domain.ChatContext, 3)
	require.NoError(t, err)
	require.NotSame(t, eng, rebuilt)

	// The conversation lives in the session store, not the engine.
	stream, _, err = rebuilt.Chat(ctx, "continue")
	require.NoError(t, err)
	_, _ = stream.Collect()
	history, err := sess.sessions.History(ctx, "default")
	require.NoError(t, err)
	assert.Len(t, history, 4)
}

func TestSessionQueryEngineFreshEachCall(t *testing.T) {
	retriever := &fakeRetriever{results: passages("p")}
	sess := newTestSession(retriever)

	first, err := sess.QueryEngine(domain.ResponseCompact, 3)
	require.NoError(t, err)
	second, err := sess.QueryEngine(domain.ResponseCompact, 3)
	require.NoError(t, err)
	assert.NotSame(t, first, second)
}

func TestSessionResetChatWithoutEngine(t *testing.T) {
	sess := newTestSession(&fakeRetriever{})
	assert.NoError(t, sess.ResetChat(context.Background()))
}
