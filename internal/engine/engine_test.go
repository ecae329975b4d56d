package engine

import (
	"context"
	"fmt"
	"io"

	"ragchat/internal/domain"
	"ragchat/internal/llm"
)

// fakeRetriever serves a fixed result set and a settable generation.
type fakeRetriever struct {
	results    []domain.RetrievedPassage
	generation uint64
	queries    []string
}

func (r *fakeRetriever) Retrieve(ctx context.Context, query string, topK int) ([]domain.RetrievedPassage, error) {
	r.queries = append(r.queries, query)
	if topK < len(r.results) {
		return r.results[:topK], nil
	}
	return r.results, nil
}

func (r *fakeRetriever) Generation() uint64 { return r.generation }

// fakeCompleter records prompts and answers each call with "answer-N".
type fakeCompleter struct {
	prompts   []string
	fragments []string
}

func (c *fakeCompleter) Complete(ctx context.Context, system string, messages []llm.Message) (string, error) {
	c.prompts = append(c.prompts, messages[len(messages)-1].Content)
	return fmt.Sprintf("answer-%d", len(c.prompts)), nil
}

func (c *fakeCompleter) Stream(ctx context.Context, system string, messages []llm.Message) (*llm.Stream, error) {
	c.prompts = append(c.prompts, messages[len(messages)-1].Content)
	i := 0
	return llm.WrapStream(func() (string, error) {
		if i < len(c.fragments) {
			i++
			return c.fragments[i-1], nil
		}
		return "", io.EOF
	}, func() {}), nil
}

func passages(texts ...string) []domain.RetrievedPassage {
	out := make([]domain.RetrievedPassage, len(texts))
	for i, t := range texts {
		out[i] = domain.RetrievedPassage{
			Passage: domain.Passage{ID: fmt.Sprint(i), Text: t, Metadata: map[string]string{}},
			Score:   1,
			Scored:  true,
		}
	}
	return out
}
