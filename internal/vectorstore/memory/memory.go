package memory

import (
	"context"
	"errors"
	"math"
	"sort"
	"sync"

	"ragchat/internal/domain"
)

// Store is an in-memory collection using brute-force cosine similarity.
// It satisfies the same contract as the persistent backends and is the
// store of choice for tests and offline runs.
type Store struct {
	mu       sync.RWMutex
	passages []domain.Passage
	vectors  [][]float32
	dropped  bool
}

func NewStore() *Store { return &Store{} }

func (s *Store) Exists(_ context.Context) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return !s.dropped && s.passages != nil, nil
}

func (s *Store) Filenames(_ context.Context) (map[string]struct{}, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make(map[string]struct{})
	for _, p := range s.passages {
		if name := p.FileName(); name != "" {
			names[name] = struct{}{}
		}
	}
	return names, nil
}

func (s *Store) Insert(_ context.Context, passages []domain.Passage, vectors [][]float32) error {
	if len(passages) != len(vectors) {
		return errors.New("passages and vectors length mismatch")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.passages == nil {
		s.passages = []domain.Passage{}
	}
	s.dropped = false
	s.passages = append(s.passages, passages...)
	s.vectors = append(s.vectors, vectors...)
	return nil
}

func (s *Store) Search(_ context.Context, vector []float32, topK int) ([]domain.RetrievedPassage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if topK <= 0 {
		topK = 5
	}
	type scored struct {
		idx   int
		score float64
	}
	scores := make([]scored, len(s.vectors))
	for i := range s.vectors {
		scores[i] = scored{i, cosine(s.vectors[i], vector)}
	}
	sort.Slice(scores, func(i, j int) bool { return scores[i].score > scores[j].score })
	if topK > len(scores) {
		topK = len(scores)
	}
	results := make([]domain.RetrievedPassage, 0, topK)
	for i := 0; i < topK; i++ {
		results = append(results, domain.RetrievedPassage{
			Passage: s.passages[scores[i].idx],
			Score:   scores[i].score,
			Scored:  true,
		})
	}
	return results, nil
}

func (s *Store) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.passages), nil
}

func (s *Store) Drop(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.passages = nil
	s.vectors = nil
	s.dropped = true
	return nil
}

func (s *Store) Close() error { return nil }

func cosine(a, b []float32) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var dot, na, nb float64
	for i := 0; i < n; i++ {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
