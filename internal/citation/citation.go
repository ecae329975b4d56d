package citation

import (
	"fmt"

	"ragchat/internal/domain"
)

// Fallback values for records missing metadata or a relevance score.
const (
	UnknownFile = "Unknown"
	NoPage      = "N/A"
	NoScore     = "N/A"
)

// excerptLimit is the maximum number of characters shown per source.
const excerptLimit = 200

// Record is one display-ready row of the sources table for a query
// response.
type Record struct {
	Position int
	Score    string
	Filename string
	Page     string
	Excerpt  string
}

// FromResults maps retrieved passages, already rank-ordered by the
// retrieval engine, into citation records. No re-sorting happens here. An
// empty input yields an empty (non-nil) slice: no sources is not an error.
func FromResults(results []domain.RetrievedPassage) []Record {
	records := make([]Record, 0, len(results))
	for i, r := range results {
		records = append(records, Record{
			Position: i + 1,
			Score:    formatScore(r),
			Filename: metadataOr(r.Passage, domain.MetaFileName, UnknownFile),
			Page:     metadataOr(r.Passage, domain.MetaPageLabel, NoPage),
			Excerpt:  excerpt(r.Passage.Text),
		})
	}
	return records
}

// formatScore renders the relevance score as a percentage rounded to two
// decimals, or the sentinel when the result carries no score.
func formatScore(r domain.RetrievedPassage) string {
	if !r.Scored {
		return NoScore
	}
	return fmt.Sprintf("%.2f%%", r.Score*100)
}

// excerpt truncates text to the display limit, appending an ellipsis only
// when something was cut.
func excerpt(text string) string {
	if len(text) > excerptLimit {
		return text[:excerptLimit] + "..."
	}
	return text
}

func metadataOr(p domain.Passage, key, fallback string) string {
	if v, ok := p.Metadata[key]; ok && v != "" {
		return v
	}
	return fallback
}
