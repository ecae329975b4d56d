package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "vector_store", cfg.Index.VectorStorePath)
	assert.Equal(t, "ragchat", cfg.Index.CollectionName)
	assert.Equal(t, "sqlite", cfg.Store.Type)
	assert.Equal(t, "gpt-4o-mini", cfg.Model.Name)
	assert.Equal(t, 5, cfg.Retrieval.TopK)
	assert.Equal(t, "memory", cfg.Session.Driver)
}

func TestLoadAppliesDefaultsToPartialConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("model:\n  model_name: gemini-2.0-flash\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "gemini-2.0-flash", cfg.Model.Name)
	assert.Equal(t, "sqlite", cfg.Store.Type)
	assert.Equal(t, "text-embedding-3-small", cfg.Embedder.Model)
	assert.Equal(t, "OPENAI_API_KEY", cfg.Embedder.APIKeyEnv)
	assert.Equal(t, 5, cfg.Chunker.SentencesPerChunk)
	assert.Equal(t, 4000, cfg.Session.MaxTokens)
}

func TestLoadInvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("store: [unclosed"), 0o644))
	_, err := Load(path)
	assert.Error(t, err)
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "config.yaml")
	cfg := defaultConfig()
	cfg.Index.CollectionName = "custom"
	cfg.Retrieval.ChatMode = "condense_plus_context"

	require.NoError(t, Save(path, cfg))
	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "custom", loaded.Index.CollectionName)
	assert.Equal(t, "condense_plus_context", loaded.Retrieval.ChatMode)
}
