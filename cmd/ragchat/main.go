package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"ragchat/internal/chunker"
	"ragchat/internal/config"
	"ragchat/internal/domain"
	"ragchat/internal/embedding"
	"ragchat/internal/engine"
	"ragchat/internal/index"
	"ragchat/internal/llm"
	"ragchat/internal/loader"
	"ragchat/internal/logger"
	"ragchat/internal/session"
	"ragchat/internal/summary"
	"ragchat/internal/tui"
	"ragchat/internal/vectorstore"
	"ragchat/internal/vectorstore/memory"
	"ragchat/internal/vectorstore/qdrant"
	"ragchat/internal/vectorstore/sqlite"
)

const summarySentences = 3

func main() {
	_ = godotenv.Load()

	var cfgPath string
	flag.StringVar(&cfgPath, "config", "", "Path to YAML config file (optional; uses ~/.config/ragchat/config.yaml if not provided)")
	flag.Parse()
	inputs := flag.Args()

	var cfg *config.AppConfig
	var err error
	if cfgPath == "" {
		cfg, _, err = config.LoadDefault()
	} else {
		cfg, err = config.Load(cfgPath)
	}
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	zlog, err := logger.New(cfg.LogLevel)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer zlog.Sync()

	responseMode, err := domain.ParseResponseMode(cfg.Retrieval.ResponseMode)
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	chatMode, err := domain.ParseChatMode(cfg.Retrieval.ChatMode)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	ctx := context.Background()

	// Assemble components
	var emb domain.Embedder
	switch cfg.Embedder.Type {
	case "openai", "":
		client, err := embedding.NewOpenAIEmbedder(embedding.Config{
			Model:     cfg.Embedder.Model,
			APIKeyEnv: cfg.Embedder.APIKeyEnv,
		})
		if err != nil {
			log.Fatalf("openai embedder init failed: %v", err)
		}
		emb = client
	case "local":
		emb = embedding.NewLocalEmbedder(0)
	default:
		log.Fatalf("unknown embedder: %s", cfg.Embedder.Type)
	}

	ch := chunker.NewSentenceChunker(cfg.Chunker.SentencesPerChunk, cfg.Chunker.OverlapSentences)
	pdf := loader.NewPDFLoader(zlog)

	openStore, err := storeFactory(cfg, emb.Dimension())
	if err != nil {
		log.Fatalf("vector store config: %v", err)
	}

	var sessions session.Store
	switch cfg.Session.Driver {
	case "memory", "":
		sessions = session.NewMemoryStore()
	case "redis":
		rs, err := session.NewRedisStore(cfg.Session.RedisAddr)
		if err != nil {
			log.Fatalf("redis session store init failed: %v", err)
		}
		sessions = rs
	default:
		log.Fatalf("unknown session driver: %s", cfg.Session.Driver)
	}

	completer, err := llm.New(ctx, cfg.Model.Name)
	if err != nil {
		log.Fatalf("model init failed: %v", err)
	}

	extractor := summary.NewExtractor()
	var ingest strings.Builder
	mgr := index.NewManager(index.Options{
		Log:        zlog,
		StorePath:  cfg.Index.VectorStorePath,
		Collection: cfg.Index.CollectionName,
		OpenStore:  openStore,
		Loader:     pdf,
		Chunker:    ch,
		Embedder:   emb,
		OnIndexed: func(file string, passages []domain.Passage) {
			fmt.Fprintf(&ingest, "%s: %s\n", file, extractor.Passages(passages, summarySentences))
		},
	})
	defer mgr.Close()

	if len(inputs) > 0 {
		batch, err := index.ReadDocuments(inputs)
		if err != nil {
			log.Fatalf("read documents: %v", err)
		}
		dir, err := index.StageUploads(batch)
		if err != nil {
			log.Fatalf("stage documents: %v", err)
		}
		defer os.RemoveAll(dir)
		added, err := mgr.BuildOrUpdate(ctx, dir)
		if err != nil {
			log.Fatalf("indexing failed: %v", err)
		}
		zlog.Info("indexing done", zap.Int("new_documents", added))
	}

	sess := engine.NewSession(engine.SessionOptions{
		Retriever:    mgr,
		Completer:    completer,
		Sessions:     sessions,
		SystemPrompt: cfg.Model.SystemPrompt,
		MaxTokens:    cfg.Session.MaxTokens,
		MaxTurns:     cfg.Session.MaxTurns,
	})

	m := tui.New(sess, mgr, ingest.String(), responseMode, chatMode, cfg.Retrieval.TopK)
	if _, err := tea.NewProgram(m).Run(); err != nil {
		log.Fatal(err)
	}
}

// storeFactory returns the lazy store opener for the configured backend.
// The manager calls it only after the full-build decision has been made.
func storeFactory(cfg *config.AppConfig, dimension int) (func(ctx context.Context) (vectorstore.Store, error), error) {
	switch cfg.Store.Type {
	case "sqlite", "":
		return func(ctx context.Context) (vectorstore.Store, error) {
			return sqlite.Open(cfg.Index.VectorStorePath, cfg.Index.CollectionName)
		}, nil
	case "memory":
		return func(ctx context.Context) (vectorstore.Store, error) {
			return memory.NewStore(), nil
		}, nil
	case "qdrant":
		if cfg.Store.Qdrant == nil {
			return nil, fmt.Errorf("qdrant config missing")
		}
		qcfg := qdrant.Config{
			URL:        cfg.Store.Qdrant.URL,
			APIKey:     cfg.Store.Qdrant.APIKey,
			Collection: cfg.Index.CollectionName,
			Dimension:  dimension,
		}
		return func(ctx context.Context) (vectorstore.Store, error) {
			return qdrant.New(qcfg)
		}, nil
	default:
		return nil, fmt.Errorf("unknown vector store: %s", cfg.Store.Type)
	}
}
