package config

import (
	"errors"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// IndexConfig configures the persistent vector collection and indexing.
type IndexConfig struct {
	VectorStorePath string `yaml:"vector_store_path"`
	CollectionName  string `yaml:"collection_name"`
}

// StoreConfig selects and configures the vector store backend.
type StoreConfig struct {
	Type   string        `yaml:"type"`
	Qdrant *QdrantConfig `yaml:"qdrant,omitempty"`
}

// QdrantConfig contains connection details for a Qdrant vector store.
type QdrantConfig struct {
	URL    string `yaml:"url"`
	APIKey string `yaml:"api_key"`
}

// EmbedderConfig selects and configures the text embedder implementation.
type EmbedderConfig struct {
	Type      string `yaml:"type"`
	Model     string `yaml:"model"`
	APIKeyEnv string `yaml:"api_key_env"`
}

// ModelConfig identifies the generative backend and its persona.
type ModelConfig struct {
	Name         string `yaml:"model_name"`
	SystemPrompt string `yaml:"system_prompt"`
}

// RetrievalConfig holds the default query/chat pipeline parameters.
type RetrievalConfig struct {
	TopK         int    `yaml:"top_k"`
	ResponseMode string `yaml:"response_mode"`
	ChatMode     string `yaml:"chat_mode"`
}

// ChunkerConfig configures how page text is split into passages.
type ChunkerConfig struct {
	SentencesPerChunk int `yaml:"sentences_per_chunk"`
	OverlapSentences  int `yaml:"overlap_sentences"`
}

// SessionConfig selects the chat history store driver.
type SessionConfig struct {
	Driver    string `yaml:"driver"`
	RedisAddr string `yaml:"redis_addr"`
	MaxTokens int    `yaml:"max_tokens"`
	MaxTurns  int    `yaml:"max_turns"`
}

// AppConfig is the root application configuration structure.
type AppConfig struct {
	Index     IndexConfig     `yaml:"index"`
	Store     StoreConfig     `yaml:"store"`
	Embedder  EmbedderConfig  `yaml:"embedder"`
	Model     ModelConfig     `yaml:"model"`
	Retrieval RetrievalConfig `yaml:"retrieval"`
	Chunker   ChunkerConfig   `yaml:"chunker"`
	Session   SessionConfig   `yaml:"session"`
	LogLevel  string          `yaml:"log_level"`
}

// Load reads a config from a specified path. If the file does not exist, returns defaults.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return defaultConfig(), nil
		}
		return nil, err
	}
	var cfg AppConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	applyConfigDefaults(&cfg)
	return &cfg, nil
}

// LoadDefault tries ./config.yaml first, then ~/.config/ragchat/config.yaml.
// If neither exists, it writes defaults to ~/.config/ragchat/config.yaml and returns them.
func LoadDefault() (*AppConfig, string, error) {
	cwdPath := "config.yaml"
	if _, err := os.Stat(cwdPath); err == nil {
		cfg, err := Load(cwdPath)
		return cfg, cwdPath, err
	}
	userPath, err := defaultUserConfigPath()
	if err != nil {
		return nil, "", err
	}
	if _, err := os.Stat(userPath); err == nil {
		cfg, err := Load(userPath)
		return cfg, userPath, err
	}
	cfg := defaultConfig()
	if err := Save(userPath, cfg); err != nil {
		return nil, "", err
	}
	return cfg, userPath, nil
}

// Save writes the config to the given path, creating directories as needed.
func Save(path string, cfg *AppConfig) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func defaultUserConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "ragchat", "config.yaml"), nil
}

func defaultConfig() *AppConfig {
	cfg := &AppConfig{
		Index: IndexConfig{
			VectorStorePath: "vector_store",
			CollectionName:  "ragchat",
		},
		Store:    StoreConfig{Type: "sqlite"},
		Embedder: EmbedderConfig{Type: "openai"},
		Model: ModelConfig{
			Name: "gpt-4o-mini",
			SystemPrompt: "You are an assistant specialized in pedagogical texts. " +
				"Answer concisely and clearly, quoting the source documents when needed. " +
				"If the answer is not in the documents, say so.",
		},
		Retrieval: RetrievalConfig{TopK: 5, ResponseMode: "tree_summarize", ChatMode: "context"},
		Chunker:   ChunkerConfig{SentencesPerChunk: 5, OverlapSentences: 1},
		Session:   SessionConfig{Driver: "memory", MaxTokens: 4000, MaxTurns: 40},
	}
	return cfg
}

func applyConfigDefaults(cfg *AppConfig) {
	if cfg.Index.VectorStorePath == "" {
		cfg.Index.VectorStorePath = "vector_store"
	}
	if cfg.Index.CollectionName == "" {
		cfg.Index.CollectionName = "ragchat"
	}
	if cfg.Store.Type == "" {
		cfg.Store.Type = "sqlite"
	}
	if cfg.Embedder.Type == "" {
		cfg.Embedder.Type = "openai"
	}
	if cfg.Embedder.Type == "openai" {
		if cfg.Embedder.Model == "" {
			cfg.Embedder.Model = "text-embedding-3-small"
		}
		if cfg.Embedder.APIKeyEnv == "" {
			cfg.Embedder.APIKeyEnv = "OPENAI_API_KEY"
		}
	}
	if cfg.Model.Name == "" {
		cfg.Model.Name = "gpt-4o-mini"
	}
	if cfg.Retrieval.TopK <= 0 {
		cfg.Retrieval.TopK = 5
	}
	if cfg.Chunker.SentencesPerChunk <= 0 {
		cfg.Chunker.SentencesPerChunk = 5
	}
	if cfg.Session.Driver == "" {
		cfg.Session.Driver = "memory"
	}
	if cfg.Session.MaxTokens <= 0 {
		cfg.Session.MaxTokens = 4000
	}
	if cfg.Session.MaxTurns <= 0 {
		cfg.Session.MaxTurns = 40
	}
}
