package summary

import (
	"math"
	"regexp"
	"sort"
	"strings"

	"ragchat/internal/domain"
)

// Extractor produces a short extractive summary of newly indexed passages
// by ranking sentences on normalized token frequency. It runs locally, so
// the ingest status line never waits on a model call.
type Extractor struct {
	tokenPattern    *regexp.Regexp
	sentencePattern *regexp.Regexp
	stopwords       map[string]struct{}
}

func NewExtractor() *Extractor {
	return &Extractor{
		tokenPattern:    regexp.MustCompile(`\p{L}+(?:['’]\p{L}+)*`),
		sentencePattern: regexp.MustCompile(`(?m)(?U)([^.!?]+[.!?])`),
		stopwords:       defaultStopwords(),
	}
}

// Passages summarizes the given passages in their stored order.
func (e *Extractor) Passages(passages []domain.Passage, maxSentences int) string {
	texts := make([]string, len(passages))
	for i, p := range passages {
		texts[i] = p.Text
	}
	return e.Text(strings.Join(texts, " "), maxSentences)
}

// Text returns a summary of at most maxSentences sentences, kept in their
// original order.
func (e *Extractor) Text(text string, maxSentences int) string {
	if maxSentences <= 0 {
		maxSentences = 5
	}
	sentences := e.sentencePattern.FindAllString(text, -1)
	if len(sentences) == 0 {
		return strings.TrimSpace(text)
	}

	freq := map[string]float64{}
	for _, sent := range sentences {
		for _, tok := range e.tokens(sent) {
			if _, ok := e.stopwords[tok]; ok {
				continue
			}
			freq[tok]++
		}
	}
	maxF := 0.0
	for _, v := range freq {
		if v > maxF {
			maxF = v
		}
	}
	if maxF > 0 {
		for k, v := range freq {
			freq[k] = v / maxF
		}
	}

	type pair struct {
		idx   int
		score float64
	}
	scores := make([]pair, len(sentences))
	for i, sent := range sentences {
		score := 0.0
		toks := e.tokens(sent)
		for _, tok := range toks {
			if v, ok := freq[tok]; ok {
				score += v
			}
		}
		// Normalize by sentence length to avoid bias toward long sentences.
		if l := float64(len(toks)); l > 0 {
			score /= math.Sqrt(l)
		}
		scores[i] = pair{i, score}
	}
	sort.Slice(scores, func(i, j int) bool { return scores[i].score > scores[j].score })
	if maxSentences > len(scores) {
		maxSentences = len(scores)
	}
	selected := make([]int, maxSentences)
	for i := 0; i < maxSentences; i++ {
		selected[i] = scores[i].idx
	}
	sort.Ints(selected)

	var out []string
	for _, idx := range selected {
		out = append(out, strings.TrimSpace(sentences[idx]))
	}
	return strings.Join(out, " ")
}

func (e *Extractor) tokens(text string) []string {
	return e.tokenPattern.FindAllString(strings.ToLower(text), -1)
}

func defaultStopwords() map[string]struct{} {
	words := []string{
		"a", "an", "the", "and", "or", "but", "if", "then", "else", "for", "to", "of", "in", "on", "at", "by", "with", "as", "is", "are", "was", "were", "be", "been", "being", "it", "this", "that", "these", "those", "from", "up", "down", "over", "under", "again", "further", "than", "so", "such", "into", "about", "between", "through", "during", "before", "after", "above", "below", "out", "off", "own", "same", "too", "very", "can", "will", "just", "don", "should", "now",
	}
	m := make(map[string]struct{}, len(words))
	for _, w := range words {
		m[w] = struct{}{}
	}
	return m
}
