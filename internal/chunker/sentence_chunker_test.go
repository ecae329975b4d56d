package chunker

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ragchat/internal/domain"
)

func TestChunkCarriesMetadata(t *testing.T) {
	c := NewSentenceChunker(2, 0)
	passages := c.Chunk("doc.pdf", "4", "First sentence. Second sentence. Third sentence.")
	require.Len(t, passages, 2)

	for _, p := range passages {
		assert.Equal(t, "doc.pdf", p.Metadata[domain.MetaFileName])
		assert.Equal(t, "4", p.Metadata[domain.MetaPageLabel])
		assert.NotEmpty(t, p.ID)
	}
	assert.Equal(t, "First sentence. Second sentence.", passages[0].Text)
	assert.Equal(t, "Third sentence.", passages[1].Text)
	assert.NotEqual(t, passages[0].ID, passages[1].ID)
}

func TestChunkOverlap(t *testing.T) {
	c := NewSentenceChunker(2, 1)
	passages := c.Chunk("doc.pdf", "1", "One. Two. Three.")
	require.Len(t, passages, 2)
	assert.Equal(t, "One. Two.", passages[0].Text)
	assert.Equal(t, "Two. Three.", passages[1].Text)
}

func TestChunkBlankText(t *testing.T) {
	c := NewSentenceChunker(5, 1)
	assert.Nil(t, c.Chunk("doc.pdf", "1", ""))
	assert.Nil(t, c.Chunk("doc.pdf", "1", "   \n\t "))
}

func TestChunkTextWithoutSentenceBoundaries(t *testing.T) {
	c := NewSentenceChunker(5, 1)
	passages := c.Chunk("doc.pdf", "1", "a bare fragment without punctuation")
	require.Len(t, passages, 1)
	assert.Equal(t, "a bare fragment without punctuation", passages[0].Text)
}

func TestChunkIDsStablePerPage(t *testing.T) {
	c := NewSentenceChunker(2, 0)
	first := c.Chunk("doc.pdf", "1", "One. Two.")
	again := c.Chunk("doc.pdf", "1", "One. Two.")
	require.Len(t, first, 1)
	assert.Equal(t, first[0].ID, again[0].ID)

	otherPage := c.Chunk("doc.pdf", "2", "One. Two.")
	assert.NotEqual(t, first[0].ID, otherPage[0].ID)
}
