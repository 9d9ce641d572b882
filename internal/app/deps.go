package app

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/joho/godotenv"
	"github.com/nats-io/nats.go"
	"github.com/openai/openai-go/v3"

	"pdf-rag/internal/cache"
	"pdf-rag/internal/config"
	"pdf-rag/internal/embeddings"
	"pdf-rag/internal/ingest"
	"pdf-rag/internal/llm"
	"pdf-rag/internal/logger"
	"pdf-rag/internal/queue"
	"pdf-rag/internal/rag"
	"pdf-rag/internal/retriever"
	"pdf-rag/internal/store"
	"pdf-rag/internal/tokenizer"
)

// Deps bundles common runtime dependencies for the CLI and services.
type Deps struct {
	Config    config.Config
	Log       *slog.Logger
	Tokenizer tokenizer.Tokenizer
	Embedder  embeddings.Embedder
	Index     store.Index
	Cache     cache.Cache
	// Queue is nil when QUEUE_PROVIDER=none.
	Queue queue.Queue
	LLM   llm.Client

	closers []func() error
}

// Build loads env, config, and shared components.
func Build() (Deps, error) {
	// A missing .env file is fine; the environment alone is enough.
	_ = godotenv.Load()
	cfg := config.Load()
	return BuildWith(cfg, logger.New(cfg.LogLevel, cfg.LogFormat))
}

// BuildWith wires components from an already loaded configuration.
func BuildWith(cfg config.Config, log *slog.Logger) (Deps, error) {
	deps := Deps{Config: cfg, Log: log}

	tok, err := tokenizer.NewTikToken(cfg.TokenizerEncoding)
	if err != nil {
		return Deps{}, fmt.Errorf("failed to initialize tokenizer: %w", err)
	}
	deps.Tokenizer = tok

	embedder, err := buildEmbedder(cfg, log)
	if err != nil {
		return Deps{}, fmt.Errorf("failed to initialize embedder: %w", err)
	}
	deps.Embedder = embedder

	backend, err := buildBackend(cfg, log)
	if err != nil {
		return Deps{}, fmt.Errorf("failed to initialize store: %w", err)
	}
	vs := store.NewVectorStore(backend, embedder, log, 0)
	deps.Index = vs
	deps.closers = append(deps.closers, vs.Close)

	deps.Cache = buildCache(cfg, log)
	deps.closers = append(deps.closers, deps.Cache.Close)

	q, nc, err := buildQueue(cfg, log)
	if err != nil {
		deps.Close()
		return Deps{}, fmt.Errorf("failed to initialize queue: %w", err)
	}
	if nc != nil {
		deps.closers = append(deps.closers, func() error { return nc.Drain() })
	}
	deps.Queue = q

	llmClient, err := buildLLM(cfg, log)
	if err != nil {
		deps.Close()
		return Deps{}, fmt.Errorf("failed to initialize LLM: %w", err)
	}
	deps.LLM = llmClient

	return deps, nil
}

// Ingester returns an ingestion pipeline over the shared index.
func (d Deps) Ingester() *ingest.Ingester {
	return ingest.New(d.Index, d.Tokenizer, d.Cache, d.Log, ingest.Options{
		Chunking: d.Config.ChunkOptions(),
		Workers:  d.Config.IngestWorkers,
	})
}

// Retriever returns a cached retriever over the shared index.
func (d Deps) Retriever() *retriever.Retriever {
	return retriever.New(d.Index, d.Cache, d.Config.CacheTTLDuration(), d.Log)
}

// Answerer returns the question answering flow over the shared index.
func (d Deps) Answerer() *rag.Answerer {
	return rag.New(d.Index, d.Retriever(), d.LLM, d.Log)
}

// Close releases every opened resource.
func (d Deps) Close() error {
	var errs []error
	for i := len(d.closers) - 1; i >= 0; i-- {
		if err := d.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func buildBackend(cfg config.Config, log *slog.Logger) (store.Backend, error) {
	switch cfg.StoreProvider {
	case "bolt":
		db, err := store.NewBoltStore(cfg.BoltPath)
		if err != nil {
			return nil, fmt.Errorf("failed to open bolt store: %w", err)
		}
		log.Info("using bolt store", "path", cfg.BoltPath)
		return db, nil
	case "postgres":
		if cfg.DBURL == "" {
			return nil, fmt.Errorf("DB_URL is required when STORE_PROVIDER=postgres")
		}
		db, err := store.NewPostgres(cfg.DBURL, cfg.EmbeddingDim)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize Postgres: %w", err)
		}
		log.Info("using Postgres store", "dimension", cfg.EmbeddingDim)
		return db, nil
	default:
		return nil, fmt.Errorf("invalid STORE_PROVIDER: %s (valid options: bolt, postgres)", cfg.StoreProvider)
	}
}

func buildEmbedder(cfg config.Config, log *slog.Logger) (embeddings.Embedder, error) {
	switch cfg.EmbeddingProvider {
	case "ollama":
		embedder, err := embeddings.NewOllamaEmbedder(cfg.OllamaURL, cfg.EmbeddingModel)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize Ollama embedder: %w", err)
		}
		log.Info("using Ollama embedder", "model", cfg.EmbeddingModel, "url", cfg.OllamaURL)
		return embedder, nil
	case "openai":
		if cfg.OpenAIKey == "" {
			return nil, fmt.Errorf("OPENAI_API_KEY is required when EMBEDDING_PROVIDER=openai")
		}
		embedder, err := embeddings.NewOpenAIEmbedder(cfg.OpenAIKey, openai.EmbeddingModel(cfg.EmbeddingModel))
		if err != nil {
			return nil, fmt.Errorf("failed to initialize OpenAI embedder: %w", err)
		}
		log.Info("using OpenAI embedder", "model", cfg.EmbeddingModel)
		return embedder, nil
	default:
		return nil, fmt.Errorf("invalid EMBEDDING_PROVIDER: %s (valid options: ollama, openai)", cfg.EmbeddingProvider)
	}
}

func buildLLM(cfg config.Config, log *slog.Logger) (llm.Client, error) {
	switch cfg.LLMProvider {
	case "ollama":
		client, err := llm.NewOllamaClient(cfg.OllamaURL, cfg.LLMModel, cfg.LLMTimeout)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize Ollama client: %w", err)
		}
		log.Info("using Ollama LLM client", "model", cfg.LLMModel, "url", cfg.OllamaURL)
		return client, nil
	case "openai":
		if cfg.OpenAIKey == "" {
			return nil, fmt.Errorf("OPENAI_API_KEY is required when LLM_PROVIDER=openai")
		}
		client, err := llm.NewOpenAIClient(cfg.OpenAIKey, openai.ChatModel(cfg.LLMModel), cfg.LLMTimeout)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize OpenAI client: %w", err)
		}
		log.Info("using OpenAI LLM client", "model", cfg.LLMModel)
		return client, nil
	default:
		return nil, fmt.Errorf("invalid LLM_PROVIDER: %s (valid options: ollama, openai)", cfg.LLMProvider)
	}
}

// buildCache never fails: an unreachable Redis degrades to no caching.
func buildCache(cfg config.Config, log *slog.Logger) cache.Cache {
	switch cfg.CacheProvider {
	case "redis":
		if cfg.RedisAddr == "" {
			log.Warn("REDIS_ADDR not set, caching disabled")
			return cache.NewNoOpCache()
		}
		c, err := cache.NewRedisCache(cfg.RedisAddr, cfg.RedisPassword)
		if err != nil {
			log.Warn("redis unavailable, caching disabled", "err", err)
			return cache.NewNoOpCache()
		}
		log.Info("using Redis context cache", "addr", cfg.RedisAddr, "ttl", cfg.CacheTTLDuration())
		return c
	case "none", "":
		return cache.NewNoOpCache()
	default:
		log.Warn("unknown CACHE_PROVIDER, caching disabled", "provider", cfg.CacheProvider)
		return cache.NewNoOpCache()
	}
}

func buildQueue(cfg config.Config, log *slog.Logger) (queue.Queue, *nats.Conn, error) {
	switch cfg.QueueProvider {
	case "none", "":
		return nil, nil, nil
	case "nats":
		if cfg.QueueURL == "" {
			return nil, nil, fmt.Errorf("QUEUE_URL is required when QUEUE_PROVIDER=nats")
		}
		nc, err := nats.Connect(cfg.QueueURL)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to connect to NATS: %w", err)
		}
		log.Info("using NATS queue")
		return queue.NewNATS(log, nc), nc, nil
	default:
		return nil, nil, fmt.Errorf("invalid QUEUE_PROVIDER: %s (valid options: none, nats)", cfg.QueueProvider)
	}
}
