package qdrant

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"net/url"
	"strconv"
	"strings"

	"github.com/qdrant/go-client/qdrant"

	"ragchat/internal/domain"
)

// Store is a vector collection backed by a remote Qdrant instance. It is an
// alternative to the on-disk SQLite backend for deployments that already run
// Qdrant; the collection is created with cosine distance on first insert.
type Store struct {
	client     *qdrant.Client
	collection string
	dimension  uint64
}

// Config contains connection details for a Qdrant vector store.
type Config struct {
	URL        string
	APIKey     string
	Collection string
	Dimension  int
}

// New connects to Qdrant. The URL may carry an explicit port; otherwise the
// default gRPC port 6334 is used.
func New(cfg Config) (*Store, error) {
	if cfg.URL == "" {
		return nil, errors.New("qdrant url is required")
	}
	raw := cfg.URL
	if !strings.HasPrefix(raw, "http://") && !strings.HasPrefix(raw, "https://") {
		raw = "https://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("parse qdrant url: %w", err)
	}
	port := 6334
	if u.Port() != "" {
		p, err := strconv.Atoi(u.Port())
		if err != nil {
			return nil, fmt.Errorf("invalid qdrant port: %w", err)
		}
		port = p
	}
	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   u.Hostname(),
		Port:   port,
		APIKey: cfg.APIKey,
		UseTLS: u.Scheme == "https",
	})
	if err != nil {
		return nil, fmt.Errorf("create qdrant client: %w", err)
	}
	return &Store{
		client:     client,
		collection: cfg.Collection,
		dimension:  uint64(cfg.Dimension),
	}, nil
}

func (s *Store) Exists(ctx context.Context) (bool, error) {
	return s.client.CollectionExists(ctx, s.collection)
}

func (s *Store) Filenames(ctx context.Context) (map[string]struct{}, error) {
	// One scroll page is enough at this collection size.
	points, err := s.client.Scroll(ctx, &qdrant.ScrollPoints{
		CollectionName: s.collection,
		Limit:          qdrant.PtrOf(uint32(10000)),
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("scroll collection metadata: %w", err)
	}
	names := make(map[string]struct{})
	for _, point := range points {
		if v, ok := point.Payload[domain.MetaFileName]; ok {
			if name := v.GetStringValue(); name != "" {
				names[name] = struct{}{}
			}
		}
	}
	return names, nil
}

func (s *Store) Insert(ctx context.Context, passages []domain.Passage, vectors [][]float32) error {
	if len(passages) != len(vectors) {
		return errors.New("passages and vectors length mismatch")
	}
	if err := s.ensureCollection(ctx); err != nil {
		return err
	}
	points := make([]*qdrant.PointStruct, len(passages))
	for i, p := range passages {
		points[i] = &qdrant.PointStruct{
			Id:      qdrant.NewIDNum(pointID(p.ID)),
			Vectors: qdrant.NewVectors(vectors[i]...),
			Payload: qdrant.NewValueMap(map[string]any{
				"passage_id":         p.ID,
				"text":               p.Text,
				domain.MetaFileName:  p.Metadata[domain.MetaFileName],
				domain.MetaPageLabel: p.Metadata[domain.MetaPageLabel],
			}),
		}
	}
	// Upsert keyed on the hashed passage ID makes a retried insert of the
	// same passage overwrite itself instead of duplicating it; the manager
	// never re-extracts an indexed file.
	_, err := s.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: s.collection,
		Points:         points,
		Wait:           qdrant.PtrOf(true),
	})
	if err != nil {
		return fmt.Errorf("qdrant upsert: %w", err)
	}
	return nil
}

func (s *Store) Search(ctx context.Context, vector []float32, topK int) ([]domain.RetrievedPassage, error) {
	if topK <= 0 {
		topK = 5
	}
	limit := uint64(topK)
	points, err := s.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: s.collection,
		Query:          qdrant.NewQuery(vector...),
		Limit:          &limit,
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("qdrant query: %w", err)
	}
	results := make([]domain.RetrievedPassage, 0, len(points))
	for _, point := range points {
		p := domain.Passage{Metadata: make(map[string]string)}
		for k, v := range point.Payload {
			switch k {
			case "passage_id":
				p.ID = v.GetStringValue()
			case "text":
				p.Text = v.GetStringValue()
			default:
				p.Metadata[k] = v.GetStringValue()
			}
		}
		results = append(results, domain.RetrievedPassage{
			Passage: p,
			Score:   float64(point.Score),
			Scored:  true,
		})
	}
	return results, nil
}

func (s *Store) Count(ctx context.Context) (int, error) {
	n, err := s.client.Count(ctx, &qdrant.CountPoints{
		CollectionName: s.collection,
		Exact:          qdrant.PtrOf(true),
	})
	if err != nil {
		return 0, fmt.Errorf("qdrant count: %w", err)
	}
	return int(n), nil
}

func (s *Store) Drop(ctx context.Context) error {
	if err := s.client.DeleteCollection(ctx, s.collection); err != nil {
		return fmt.Errorf("delete collection %s: %w", s.collection, err)
	}
	return nil
}

func (s *Store) Close() error { return s.client.Close() }

func (s *Store) ensureCollection(ctx context.Context) error {
	exists, err := s.client.CollectionExists(ctx, s.collection)
	if err != nil {
		return fmt.Errorf("check collection: %w", err)
	}
	if exists {
		return nil
	}
	err = s.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: s.collection,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     s.dimension,
			Distance: qdrant.Distance_Cosine,
		}),
	})
	if err != nil {
		return fmt.Errorf("create collection %s: %w", s.collection, err)
	}
	return nil
}

// Qdrant point IDs must be integers or UUIDs; passage IDs are hashed down
// to a stable integer so re-inserting the same passage overwrites itself.
func pointID(passageID string) uint64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(passageID))
	return h.Sum64()
}
