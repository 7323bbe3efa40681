package config

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	goopenai "github.com/sashabaranov/go-openai"

	"github.com/codmer/pulsedoc/internal/database"
	"github.com/codmer/pulsedoc/internal/openai"
	"github.com/codmer/pulsedoc/internal/resilience"
	"github.com/codmer/pulsedoc/internal/service"
)

const envPrefix = "PULSEDOC"

type Config struct {
	Port        string `envconfig:"PORT" default:"8080"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`
	Environment string `envconfig:"ENVIRONMENT" default:"development"`
	SentryDSN   string `envconfig:"SENTRY_DSN"`

	DatabaseURL      string `envconfig:"DATABASE_URL" required:"true"`
	DatabaseMaxConns int32  `envconfig:"DATABASE_MAX_CONNS" default:"0"`

	S3Endpoint  string `envconfig:"S3_ENDPOINT"`
	S3AccessKey string `envconfig:"S3_ACCESS_KEY_ID"`
	S3SecretKey string `envconfig:"S3_SECRET_ACCESS_KEY"`
	S3Bucket    string `envconfig:"S3_BUCKET" default:"pulsedoc-documents"`
	S3Region    string `envconfig:"S3_REGION" default:"us-east-1"`

	OpenAIAPIKey        string  `envconfig:"OPENAI_API_KEY"`
	OpenAIBaseURL       string  `envconfig:"OPENAI_BASE_URL"`
	OpenAIRPS           float64 `envconfig:"OPENAI_RPS" default:"0"`
	OpenAIBurst         int     `envconfig:"OPENAI_BURST" default:"1"`
	EmbeddingModel      string  `envconfig:"EMBEDDING_MODEL" default:"text-embedding-ada-002"`
	EmbeddingDimensions int     `envconfig:"EMBEDDING_DIMENSIONS" default:"1536"`
	ChatModel           string  `envconfig:"CHAT_MODEL" default:"gpt-4o-mini"`

	ChunkMaxChars int `envconfig:"CHUNK_MAX_CHARS" default:"1200"`
	ChunkOverlap  int `envconfig:"CHUNK_OVERLAP" default:"200"`
	RetrievalTopK int `envconfig:"RETRIEVAL_TOP_K" default:"5"`
	MenuTopK      int `envconfig:"MENU_TOP_K" default:"10"`

	EmbeddingCacheSize int           `envconfig:"EMBEDDING_CACHE_SIZE" default:"5000"`
	EmbeddingCacheTTL  time.Duration `envconfig:"EMBEDDING_CACHE_TTL" default:"24h"`
	AnswerCacheSize    int           `envconfig:"ANSWER_CACHE_SIZE" default:"1000"`
	AnswerCacheTTL     time.Duration `envconfig:"ANSWER_CACHE_TTL" default:"3h"`

	MatchWordTolerance int     `envconfig:"MATCH_WORD_TOLERANCE" default:"1"`
	MatchLengthRatio   float64 `envconfig:"MATCH_LENGTH_RATIO" default:"0.8"`
	MatchCharRate      float64 `envconfig:"MATCH_CHAR_RATE" default:"0.75"`
	MatchItemRate      float64 `envconfig:"MATCH_ITEM_RATE" default:"0.8"`
	MatchExactShare    float64 `envconfig:"MATCH_EXACT_SHARE" default:"0.5"`

	MaxUploadBytes int64 `envconfig:"MAX_UPLOAD_BYTES" default:"20971520"`

	// Zero disables the embedding backfill worker.
	BackfillInterval  time.Duration `envconfig:"BACKFILL_INTERVAL" default:"0"`
	BackfillBatchSize int           `envconfig:"BACKFILL_BATCH_SIZE" default:"50"`

	// Bootstrap: create initial tenant and API key on startup
	InitTenantName string `envconfig:"INIT_TENANT_NAME"`
	InitAPIKey     string `envconfig:"INIT_API_KEY"`
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process(envPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("failed to process config: %w", err)
	}
	// envconfig's required tag accepts a variable that is set but empty.
	if strings.TrimSpace(cfg.DatabaseURL) == "" {
		return nil, fmt.Errorf("required key %s_DATABASE_URL is empty", envPrefix)
	}

	return &cfg, nil
}

func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	return cfg
}

func (c *Config) HasS3() bool {
	return c.S3Endpoint != "" && c.S3AccessKey != "" && c.S3SecretKey != ""
}

func (c *Config) HasOpenAI() bool {
	return c.OpenAIAPIKey != ""
}

func (c *Config) DatabaseConfig() database.Config {
	return database.Config{URL: c.DatabaseURL, MaxConns: c.DatabaseMaxConns}
}

func (c *Config) ChunkConfig() service.ChunkConfig {
	return service.ChunkConfig{MaxChars: c.ChunkMaxChars, Overlap: c.ChunkOverlap}
}

func (c *Config) MatcherConfig() service.MatcherConfig {
	return service.MatcherConfig{
		WordCountTolerance: c.MatchWordTolerance,
		MinLengthRatio:     c.MatchLengthRatio,
		MinCharMatchRate:   c.MatchCharRate,
		MinItemMatchRate:   c.MatchItemRate,
		MinExactWordShare:  c.MatchExactShare,
	}
}

func (c *Config) RetrieverConfig() service.RetrieverConfig {
	return service.RetrieverConfig{TopK: c.RetrievalTopK, MenuTopK: c.MenuTopK}
}

func (c *Config) EmbeddingCacheConfig() service.EmbeddingCacheConfig {
	return service.EmbeddingCacheConfig{Size: c.EmbeddingCacheSize, TTL: c.EmbeddingCacheTTL}
}

func (c *Config) AnswerCacheConfig() service.AnswerCacheConfig {
	return service.AnswerCacheConfig{Size: c.AnswerCacheSize, TTL: c.AnswerCacheTTL}
}

func (c *Config) ResilienceConfig() resilience.Config {
	cfg := resilience.DefaultConfig()
	cfg.RateLimit = c.OpenAIRPS
	cfg.RateBurst = c.OpenAIBurst
	return cfg
}

// OpenAIConfig builds the provider client settings. The executor and
// observer are wired by the caller.
func (c *Config) OpenAIConfig() openai.Config {
	return openai.Config{
		APIKey:              c.OpenAIAPIKey,
		BaseURL:             c.OpenAIBaseURL,
		EmbeddingModel:      goopenai.EmbeddingModel(c.EmbeddingModel),
		EmbeddingDimensions: c.EmbeddingDimensions,
		ChatModel:           c.ChatModel,
	}
}
