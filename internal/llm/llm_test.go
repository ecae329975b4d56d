package llm

import (
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fragmentStream(fragments []string, closed *bool) *Stream {
	i := 0
	return WrapStream(func() (string, error) {
		if i < len(fragments) {
			i++
			return fragments[i-1], nil
		}
		return "", io.EOF
	}, func() { *closed = true })
}

func TestStreamCollect(t *testing.T) {
	var closed bool
	s := fragmentStream([]string{"Hel", "lo"}, &closed)

	out, err := s.Collect()
	require.NoError(t, err)
	assert.Equal(t, "Hello", out)
	assert.True(t, closed)

	// A drained stream keeps returning io.EOF and never restarts.
	_, err = s.Recv()
	assert.ErrorIs(t, err, io.EOF)
}

func TestStreamClose(t *testing.T) {
	var closed bool
	s := fragmentStream([]string{"a", "b"}, &closed)

	frag, err := s.Recv()
	require.NoError(t, err)
	assert.Equal(t, "a", frag)

	s.Close()
	assert.True(t, closed)
	_, err = s.Recv()
	assert.ErrorIs(t, err, io.EOF)

	s.Close() // safe to call twice
}

func TestNewRejectsUnsupportedModel(t *testing.T) {
	_, err := New(context.Background(), "gpt-3.5-turbo")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnsupportedModel)
	assert.Contains(t, err.Error(), ModelGPT4oMini)
	assert.Contains(t, err.Error(), ModelGeminiFlash)
}
