package config

import (
	"log/slog"
	"time"

	"github.com/caarlos0/env/v10"

	"pdf-rag/internal/chunker"
)

// Config holds runtime configuration shared by the CLI and the services.
type Config struct {
	// Server
	Port      int    `env:"PORT" envDefault:"8080"`
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"json"` // "json" or "text"

	// Upload limits
	MaxUploadSize int64  `env:"MAX_UPLOAD_SIZE" envDefault:"10485760"` // 10MB in bytes
	InputDir      string `env:"INPUT_DIR" envDefault:"pdfs"`

	// Chunking
	ChunkSize         int    `env:"CHUNK_SIZE" envDefault:"500"`
	ChunkOverlap      int    `env:"CHUNK_OVERLAP" envDefault:"50"`
	IngestWorkers     int    `env:"INGEST_WORKERS" envDefault:"4"`
	TokenizerEncoding string `env:"TOKENIZER_ENCODING" envDefault:"cl100k_base"`

	// Retrieval
	TopK int `env:"TOP_K" envDefault:"3"`

	// Store
	StoreProvider string `env:"STORE_PROVIDER" envDefault:"bolt"` // "bolt" (embedded file) or "postgres" (pgvector)
	BoltPath      string `env:"BOLT_PATH" envDefault:"rag_db/index.db"`
	DBURL         string `env:"DB_URL"`
	EmbeddingDim  int    `env:"EMBEDDING_DIM" envDefault:"384"`

	// Embeddings
	EmbeddingProvider string `env:"EMBEDDING_PROVIDER" envDefault:"ollama"` // "ollama" or "openai"
	EmbeddingModel    string `env:"EMBEDDING_MODEL" envDefault:"all-minilm"`

	// LLM
	LLMProvider string        `env:"LLM_PROVIDER" envDefault:"ollama"` // "ollama" or "openai"
	LLMModel    string        `env:"LLM_MODEL" envDefault:"llama3.2"`
	OllamaURL   string        `env:"OLLAMA_URL" envDefault:"http://localhost:11434"`
	LLMTimeout  time.Duration `env:"LLM_TIMEOUT" envDefault:"120s"`
	OpenAIKey   string        `env:"OPENAI_API_KEY"`

	// Cache
	CacheProvider string `env:"CACHE_PROVIDER" envDefault:"none"` // "none" or "redis"
	RedisAddr     string `env:"REDIS_ADDR"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	CacheTTL      int    `env:"CACHE_TTL" envDefault:"3600"` // seconds

	// Queue
	QueueProvider string `env:"QUEUE_PROVIDER" envDefault:"none"` // "none" (inline indexing) or "nats"
	QueueURL      string `env:"QUEUE_URL"`

	// Gateway
	QueryURL string `env:"QUERY_URL" envDefault:"http://query:8081/api/query"`
}

// Load reads configuration from environment variables with defaults.
func Load() Config {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		slog.Warn("failed to parse env; using defaults where set", "err", err)
	}
	return cfg
}

// ChunkOptions returns the chunking window from the configuration.
func (c Config) ChunkOptions() chunker.Options {
	return chunker.Options{WindowSize: c.ChunkSize, Overlap: c.ChunkOverlap}
}

// CacheTTLDuration returns CacheTTL as a duration.
func (c Config) CacheTTLDuration() time.Duration {
	return time.Duration(c.CacheTTL) * time.Second
}
