package citation

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ragchat/internal/domain"
)

func passage(file, page, text string) domain.Passage {
	meta := map[string]string{}
	if file != "" {
		meta[domain.MetaFileName] = file
	}
	if page != "" {
		meta[domain.MetaPageLabel] = page
	}
	return domain.Passage{ID: "p", Text: text, Metadata: meta}
}

func TestFromResultsOrderAndScore(t *testing.T) {
	results := []domain.RetrievedPassage{
		{Passage: passage("doc.pdf", "3", "first hit"), Score: 0.8734, Scored: true},
		{Passage: passage("doc.pdf", "7", "second hit"), Score: 0.5, Scored: true},
	}

	records := FromResults(results)
	require.Len(t, records, 2)

	assert.Equal(t, 1, records[0].Position)
	assert.Equal(t, "87.34%", records[0].Score)
	assert.Equal(t, "doc.pdf", records[0].Filename)
	assert.Equal(t, "3", records[0].Page)
	assert.Equal(t, "first hit", records[0].Excerpt)

	assert.Equal(t, 2, records[1].Position)
	assert.Equal(t, "50.00%", records[1].Score)
}

func TestFromResultsFallbacks(t *testing.T) {
	records := FromResults([]domain.RetrievedPassage{
		{Passage: passage("", "", "no metadata at all")},
	})
	require.Len(t, records, 1)
	assert.Equal(t, "Unknown", records[0].Filename)
	assert.Equal(t, "N/A", records[0].Page)
	assert.Equal(t, "N/A", records[0].Score, "a result without a score shows the sentinel, not 0.00%")
}

func TestFromResultsExcerptTruncation(t *testing.T) {
	long := strings.Repeat("x", 201)
	exact := strings.Repeat("y", 200)

	records := FromResults([]domain.RetrievedPassage{
		{Passage: passage("a.pdf", "1", long), Scored: true},
		{Passage: passage("a.pdf", "2", exact), Scored: true},
	})

	assert.Equal(t, strings.Repeat("x", 200)+"...", records[0].Excerpt)
	assert.Equal(t, exact, records[1].Excerpt, "no ellipsis when nothing was cut")
}

func TestFromResultsEmpty(t *testing.T) {
	records := FromResults(nil)
	assert.NotNil(t, records)
	assert.Empty(t, records)
}
