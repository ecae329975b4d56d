package embedding

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

var embeddingDimensions = map[string]int{
	"text-embedding-3-large": 3072,
	"text-embedding-3-small": 1536,
	"text-embedding-ada-002": 1536,
}

// OpenAIEmbedder produces embeddings through the OpenAI embeddings API.
type OpenAIEmbedder struct {
	client    *openai.Client
	model     string
	dimension int
}

// Config configures the OpenAI embedder. APIKeyEnv names the environment
// variable holding the key.
type Config struct {
	Model     string
	APIKeyEnv string
}

// NewOpenAIEmbedder creates an OpenAI embedder, failing fast when the API
// key is not present in the environment.
func NewOpenAIEmbedder(cfg Config) (*OpenAIEmbedder, error) {
	env := cfg.APIKeyEnv
	if env == "" {
		env = "OPENAI_API_KEY"
	}
	key := strings.TrimSpace(os.Getenv(env))
	if key == "" {
		return nil, fmt.Errorf("missing API key in env %s", env)
	}
	model := cfg.Model
	if model == "" {
		model = "text-embedding-3-small"
	}
	dim, ok := embeddingDimensions[model]
	if !ok {
		dim = 1536
	}
	return &OpenAIEmbedder{
		client:    openai.NewClient(key),
		model:     model,
		dimension: dim,
	}, nil
}

func (e *OpenAIEmbedder) Name() string   { return "openai" }
func (e *OpenAIEmbedder) Dimension() int { return e.dimension }

// Embed returns an embedding vector for the given text.
func (e *OpenAIEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if strings.TrimSpace(text) == "" {
		return nil, errors.New("text is empty")
	}
	resp, err := e.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Model: openai.EmbeddingModel(e.model),
		Input: []string{text},
	})
	if err != nil {
		return nil, fmt.Errorf("create embeddings: %w", err)
	}
	if len(resp.Data) == 0 {
		return nil, errors.New("embedding response empty")
	}
	vec := make([]float32, len(resp.Data[0].Embedding))
	copy(vec, resp.Data[0].Embedding)
	return vec, nil
}
