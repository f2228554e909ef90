package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	VectorBackendMemory = "memory"
	VectorBackendQdrant = "qdrant"
)

type Config struct {
	APIPort  string
	LogLevel string
	LogFile  string

	OllamaURL              string
	OllamaLLMModel         string
	OllamaEmbedModel       string
	OllamaTimeout          time.Duration
	EmbedBatchSize         int
	ChunkSize              int
	ChunkOverlap           int
	RAGTopK                int
	HistoryMessages        int
	VectorBackend          string
	QdrantURL              string
	QdrantCollectionPrefix string

	FetchTimeout   time.Duration
	FetchMaxBytes  int64
	FetchUserAgent string

	NATSURL     string
	NATSSubject string

	BreakerEnabled     bool
	BreakerMinRequests int
	BreakerFailureRate float64
	BreakerOpenTimeout time.Duration
}

// fileConfig is the optional YAML overlay. Environment variables win over it.
type fileConfig struct {
	ChunkSize       *int    `yaml:"chunk_size"`
	ChunkOverlap    *int    `yaml:"chunk_overlap"`
	EmbeddingModel  *string `yaml:"embedding_model"`
	LLMModel        *string `yaml:"llm_model"`
	RetrievalK      *int    `yaml:"retrieval_k"`
	HistoryMessages *int    `yaml:"history_messages"`
	OllamaURL       *string `yaml:"ollama_url"`
	VectorBackend   *string `yaml:"vector_backend"`
	QdrantURL       *string `yaml:"qdrant_url"`
}

func Default() Config {
	return Config{
		APIPort:  "8080",
		LogLevel: "info",

		OllamaURL:              "http://localhost:11434",
		OllamaLLMModel:         "mistral",
		OllamaEmbedModel:       "mistral",
		OllamaTimeout:          120 * time.Second,
		EmbedBatchSize:         32,
		ChunkSize:              500,
		ChunkOverlap:           10,
		RAGTopK:                5,
		HistoryMessages:        4,
		VectorBackend:          VectorBackendMemory,
		QdrantURL:              "http://localhost:6333",
		QdrantCollectionPrefix: "webchat",

		FetchTimeout:   30 * time.Second,
		FetchMaxBytes:  5 << 20,
		FetchUserAgent: "webpage-chat/1.0",

		NATSSubject: "webchat.events",

		BreakerEnabled:     true,
		BreakerMinRequests: 5,
		BreakerFailureRate: 0.5,
		BreakerOpenTimeout: 30 * time.Second,
	}
}

// Load reads CONFIG_FILE when set, then applies environment overrides.
func Load() (Config, error) {
	return LoadFile(os.Getenv("CONFIG_FILE"))
}

func LoadFile(path string) (Config, error) {
	cfg := Default()
	if strings.TrimSpace(path) != "" {
		if err := applyFile(&cfg, path); err != nil {
			return Config{}, err
		}
	}
	cfg = applyEnv(cfg)
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	var errs []error
	if c.ChunkSize <= 0 {
		errs = append(errs, fmt.Errorf("chunk_size must be positive, got %d", c.ChunkSize))
	}
	if c.ChunkOverlap < 0 || c.ChunkOverlap >= c.ChunkSize {
		errs = append(errs, fmt.Errorf("chunk_overlap must be in [0, chunk_size), got %d", c.ChunkOverlap))
	}
	if c.RAGTopK <= 0 {
		errs = append(errs, fmt.Errorf("retrieval_k must be positive, got %d", c.RAGTopK))
	}
	if c.HistoryMessages < 0 {
		errs = append(errs, fmt.Errorf("history_messages must not be negative, got %d", c.HistoryMessages))
	}
	if strings.TrimSpace(c.OllamaLLMModel) == "" || strings.TrimSpace(c.OllamaEmbedModel) == "" {
		errs = append(errs, errors.New("llm_model and embedding_model are required"))
	}
	switch c.VectorBackend {
	case VectorBackendMemory, VectorBackendQdrant:
	default:
		errs = append(errs, fmt.Errorf("unknown vector backend %q", c.VectorBackend))
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}

func applyFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	var file fileConfig
	if err := yaml.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}

	setInt(&cfg.ChunkSize, file.ChunkSize)
	setInt(&cfg.ChunkOverlap, file.ChunkOverlap)
	setInt(&cfg.RAGTopK, file.RetrievalK)
	setInt(&cfg.HistoryMessages, file.HistoryMessages)
	setString(&cfg.OllamaEmbedModel, file.EmbeddingModel)
	setString(&cfg.OllamaLLMModel, file.LLMModel)
	setString(&cfg.OllamaURL, file.OllamaURL)
	setString(&cfg.VectorBackend, file.VectorBackend)
	setString(&cfg.QdrantURL, file.QdrantURL)
	return nil
}

func applyEnv(base Config) Config {
	return Config{
		APIPort:  mustEnv("API_PORT", base.APIPort),
		LogLevel: mustEnv("LOG_LEVEL", base.LogLevel),
		LogFile:  mustEnv("LOG_FILE", base.LogFile),

		OllamaURL:              mustEnv("OLLAMA_URL", base.OllamaURL),
		OllamaLLMModel:         mustEnv("OLLAMA_LLM_MODEL", base.OllamaLLMModel),
		OllamaEmbedModel:       mustEnv("OLLAMA_EMBED_MODEL", base.OllamaEmbedModel),
		OllamaTimeout:          mustEnvSeconds("OLLAMA_TIMEOUT_SECONDS", base.OllamaTimeout),
		EmbedBatchSize:         mustEnvInt("EMBED_BATCH_SIZE", base.EmbedBatchSize),
		ChunkSize:              mustEnvInt("CHUNK_SIZE", base.ChunkSize),
		ChunkOverlap:           mustEnvInt("CHUNK_OVERLAP", base.ChunkOverlap),
		RAGTopK:                mustEnvInt("RAG_TOP_K", base.RAGTopK),
		HistoryMessages:        mustEnvInt("HISTORY_MESSAGES", base.HistoryMessages),
		VectorBackend:          strings.ToLower(mustEnv("VECTOR_BACKEND", base.VectorBackend)),
		QdrantURL:              mustEnv("QDRANT_URL", base.QdrantURL),
		QdrantCollectionPrefix: mustEnv("QDRANT_COLLECTION_PREFIX", base.QdrantCollectionPrefix),

		FetchTimeout:   mustEnvSeconds("FETCH_TIMEOUT_SECONDS", base.FetchTimeout),
		FetchMaxBytes:  int64(mustEnvInt("FETCH_MAX_BYTES", int(base.FetchMaxBytes))),
		FetchUserAgent: mustEnv("FETCH_USER_AGENT", base.FetchUserAgent),

		NATSURL:     mustEnv("NATS_URL", base.NATSURL),
		NATSSubject: mustEnv("NATS_SUBJECT", base.NATSSubject),

		BreakerEnabled:     mustEnvBool("BREAKER_ENABLED", base.BreakerEnabled),
		BreakerMinRequests: mustEnvInt("BREAKER_MIN_REQUESTS", base.BreakerMinRequests),
		BreakerFailureRate: mustEnvFloat("BREAKER_FAILURE_RATIO", base.BreakerFailureRate),
		BreakerOpenTimeout: mustEnvSeconds("BREAKER_OPEN_TIMEOUT_SECONDS", base.BreakerOpenTimeout),
	}
}

func setInt(dst *int, v *int) {
	if v != nil {
		*dst = *v
	}
}

func setString(dst *string, v *string) {
	if v != nil && strings.TrimSpace(*v) != "" {
		*dst = strings.TrimSpace(*v)
	}
}

func mustEnv(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func mustEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func mustEnvFloat(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fallback
	}
	return f
}

func mustEnvSeconds(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return fallback
	}
	return time.Duration(n) * time.Second
}

func mustEnvBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return parsed
}
