package chunker

import (
	"crypto/sha1"
	"encoding/hex"
	"regexp"
	"strconv"
	"strings"

	"ragchat/internal/domain"
)

// SentenceChunker splits page text into sentence-based passages with overlap.
type SentenceChunker struct {
	sentencesPerChunk int
	overlapSentences  int
	splitter          *regexp.Regexp
}

func NewSentenceChunker(sentencesPerChunk, overlapSentences int) *SentenceChunker {
	if sentencesPerChunk <= 0 {
		sentencesPerChunk = 5
	}
	if overlapSentences < 0 {
		overlapSentences = 0
	}
	return &SentenceChunker{
		sentencesPerChunk: sentencesPerChunk,
		overlapSentences:  overlapSentences,
		splitter:          regexp.MustCompile(`(?m)(?U)([^.!?]+[.!?])`),
	}
}

// Chunk splits one page of a document into passages. Every passage carries
// the source filename and page label in its metadata. Blank text yields no
// passages.
func (c *SentenceChunker) Chunk(fileName, pageLabel, text string) []domain.Passage {
	sentences := c.splitter.FindAllString(text, -1)
	if len(sentences) == 0 {
		trimmed := strings.TrimSpace(text)
		if trimmed == "" {
			return nil
		}
		sentences = []string{trimmed}
	}
	for i := range sentences {
		sentences[i] = strings.TrimSpace(sentences[i])
	}

	base := hashString(fileName + "#" + pageLabel)
	var passages []domain.Passage
	i := 0
	idx := 0
	for i < len(sentences) {
		end := i + c.sentencesPerChunk
		if end > len(sentences) {
			end = len(sentences)
		}
		passages = append(passages, domain.Passage{
			ID:   base + ":" + strconv.Itoa(idx),
			Text: strings.Join(sentences[i:end], " "),
			Metadata: map[string]string{
				domain.MetaFileName:  fileName,
				domain.MetaPageLabel: pageLabel,
			},
		})
		if end == len(sentences) {
			break
		}
		i = end - c.overlapSentences
		if i < 0 {
			i = 0
		}
		idx++
	}
	return passages
}

func hashString(s string) string {
	h := sha1.Sum([]byte(s))
	return hex.EncodeToString(h[:8])
}
