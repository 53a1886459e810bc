package policyrag

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"github.com/geniteam/policyrag/core/pipeline"
	"github.com/geniteam/policyrag/generate"
	"github.com/geniteam/policyrag/model"
)

// Config holds the runtime configuration of the assistant
type Config struct {
	// Embedding settings
	EmbeddingModel string
	EmbeddingDim   int
	EmbedWorkers   int
	EmbedTimeout   time.Duration

	// Chunking settings
	MaxChunkTokens int

	// Retrieval and grounding settings
	Query model.QueryConfig

	// Generator settings
	OpenAIKey string
	ChatModel string
}

// LoadConfig reads configuration from environment variables, loading a
// .env file first if one is present.
func LoadConfig() (*Config, error) {
	// Missing .env is fine, the environment may be set directly.
	_ = godotenv.Load()

	query := model.DefaultQueryConfig()
	query.TopK = getEnvInt("POLICYRAG_TOP_K", query.TopK)
	query.MinScore = getEnvFloat("POLICYRAG_MIN_SCORE", query.MinScore)
	query.Oversample = getEnvInt("POLICYRAG_OVERSAMPLE", query.Oversample)
	query.HighConfidenceThreshold = getEnvFloat("POLICYRAG_HIGH_CONFIDENCE", query.HighConfidenceThreshold)
	query.ContextTokenBudget = getEnvInt("POLICYRAG_TOKEN_BUDGET", query.ContextTokenBudget)
	query.GradeFilter = getEnvBool("POLICYRAG_GRADE_FILTER", query.GradeFilter)

	cfg := &Config{
		EmbeddingModel: getEnv("POLICYRAG_EMBEDDING_MODEL", pipeline.DefaultModelName),
		EmbeddingDim:   getEnvInt("POLICYRAG_EMBEDDING_DIM", pipeline.DefaultDimension),
		EmbedWorkers:   getEnvInt("POLICYRAG_EMBED_WORKERS", 4),
		EmbedTimeout:   getEnvDuration("POLICYRAG_EMBED_TIMEOUT", 30*time.Second),
		MaxChunkTokens: getEnvInt("POLICYRAG_MAX_CHUNK_TOKENS", 256),
		Query:          query,
		OpenAIKey:      os.Getenv("OPENAI_API_KEY"),
		ChatModel:      getEnv("POLICYRAG_CHAT_MODEL", generate.DefaultChatModel),
	}

	return cfg, cfg.Validate()
}

// Validate checks the configuration for values that would silently
// break retrieval semantics.
func (c *Config) Validate() error {
	if c.EmbeddingModel == "" {
		return fmt.Errorf("embedding model must be set")
	}
	if c.EmbeddingDim <= 0 {
		return fmt.Errorf("embedding dimension must be positive, got %d", c.EmbeddingDim)
	}
	if c.MaxChunkTokens <= 0 {
		return fmt.Errorf("max chunk tokens must be positive, got %d", c.MaxChunkTokens)
	}
	if c.Query.TopK <= 0 {
		return fmt.Errorf("top K must be positive, got %d", c.Query.TopK)
	}
	if c.Query.MinScore < -1 || c.Query.MinScore > 1 {
		return fmt.Errorf("min score must be in [-1, 1], got %f", c.Query.MinScore)
	}
	if c.Query.HighConfidenceThreshold < -1 || c.Query.HighConfidenceThreshold > 1 {
		return fmt.Errorf("high confidence threshold must be in [-1, 1], got %f", c.Query.HighConfidenceThreshold)
	}
	if c.Query.ContextTokenBudget <= 0 {
		return fmt.Errorf("context token budget must be positive, got %d", c.Query.ContextTokenBudget)
	}
	return nil
}

func getEnv(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvFloat(key string, defaultVal float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return defaultVal
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return defaultVal
}
