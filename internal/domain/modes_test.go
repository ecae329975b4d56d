package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseResponseMode(t *testing.T) {
	for _, valid := range []string{"tree_summarize", "compact", "refine"} {
		mode, err := ParseResponseMode(valid)
		require.NoError(t, err)
		assert.Equal(t, ResponseMode(valid), mode)
	}

	mode, err := ParseResponseMode("")
	require.NoError(t, err)
	assert.Equal(t, ResponseTreeSummarize, mode)

	_, err = ParseResponseMode("summarize")
	assert.Error(t, err)
}

func TestParseChatMode(t *testing.T) {
	for _, valid := range []string{"context", "condense_plus_context"} {
		mode, err := ParseChatMode(valid)
		require.NoError(t, err)
		assert.Equal(t, ChatMode(valid), mode)
	}

	mode, err := ParseChatMode("")
	require.NoError(t, err)
	assert.Equal(t, ChatContext, mode)

	_, err = ParseChatMode("condense")
	assert.Error(t, err)
}
