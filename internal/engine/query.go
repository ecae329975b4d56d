package engine

import (
	"context"
	"fmt"
	"strings"

	"ragchat/internal/domain"
	"ragchat/internal/llm"
)

// Retriever is the index view engines retrieve through. Generation advances
// whenever the underlying passage set changes.
type Retriever interface {
	Retrieve(ctx context.Context, query string, topK int) ([]domain.RetrievedPassage, error)
	Generation() uint64
}

// Response is the outcome of one query: the synthesized answer plus the
// retrieved passages it was grounded in, in retrieval rank order.
type Response struct {
	Answer  string
	Sources []domain.RetrievedPassage
}

// QueryEngine is a stateless one-shot retrieval pipeline bound to one
// retriever, one result depth and one response composition mode. Rebuild it
// instead of mutating it when any of those change.
type QueryEngine struct {
	retriever Retriever
	completer llm.Completer
	mode      domain.ResponseMode
	topK      int
}

// NewQueryEngine builds a query engine. topK must be at least 1.
func NewQueryEngine(retriever Retriever, completer llm.Completer, mode domain.ResponseMode, topK int) (*QueryEngine, error) {
	if topK < 1 {
		return nil, fmt.Errorf("top_k must be >= 1, got %d", topK)
	}
	return &QueryEngine{retriever: retriever, completer: completer, mode: mode, topK: topK}, nil
}

// Query retrieves the topK most relevant passages and composes an answer
// according to the engine's response mode. No state is retained across
// calls.
func (e *QueryEngine) Query(ctx context.Context, query string) (*Response, error) {
	sources, err := e.retriever.Retrieve(ctx, query, e.topK)
	if err != nil {
		return nil, err
	}
	if len(sources) == 0 {
		return &Response{Answer: "", Sources: nil}, nil
	}

	var answer string
	switch e.mode {
	case domain.ResponseCompact:
		answer, err = e.compact(ctx, query, sources)
	case domain.ResponseRefine:
		answer, err = e.refine(ctx, query, sources)
	default:
		answer, err = e.treeSummarize(ctx, query, sources)
	}
	if err != nil {
		return nil, err
	}
	return &Response{Answer: answer, Sources: sources}, nil
}

// compact stuffs every retrieved passage into a single prompt and answers
// once.
func (e *QueryEngine) compact(ctx context.Context, query string, sources []domain.RetrievedPassage) (string, error) {
	texts := make([]string, len(sources))
	for i, s := range sources {
		texts[i] = s.Passage.Text
	}
	return e.answer(ctx, query, strings.Join(texts, "\n\n"))
}

// refine answers on the first passage, then iteratively refines the answer
// with each remaining passage.
func (e *QueryEngine) refine(ctx context.Context, query string, sources []domain.RetrievedPassage) (string, error) {
	answer, err := e.answer(ctx, query, sources[0].Passage.Text)
	if err != nil {
		return "", err
	}
	for _, s := range sources[1:] {
		answer, err = e.completer.Complete(ctx, "",
			[]llm.Message{{Role: llm.RoleUser, Content: fmt.Sprintf(refinePrompt, query, answer, s.Passage.Text)}})
		if err != nil {
			return "", err
		}
	}
	return answer, nil
}

// treeSummarize answers the query over groups of passages, then repeats the
// process over the intermediate answers until one remains.
func (e *QueryEngine) treeSummarize(ctx context.Context, query string, sources []domain.RetrievedPassage) (string, error) {
	const fanout = 4
	texts := make([]string, len(sources))
	for i, s := range sources {
		texts[i] = s.Passage.Text
	}
	for len(texts) > 1 {
		var next []string
		for start := 0; start < len(texts); start += fanout {
			end := start + fanout
			if end > len(texts) {
				end = len(texts)
			}
			answer, err := e.answer(ctx, query, strings.Join(texts[start:end], "\n\n"))
			if err != nil {
				return "", err
			}
			next = append(next, answer)
		}
		texts = next
	}
	return texts[0], nil
}

func (e *QueryEngine) answer(ctx context.Context, query, contextText string) (string, error) {
	return e.completer.Complete(ctx, "",
		[]llm.Message{{Role: llm.RoleUser, Content: fmt.Sprintf(answerPrompt, contextText, query)}})
}
