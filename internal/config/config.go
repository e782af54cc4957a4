package config

import (
	"fmt"
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Port  string `envconfig:"PORT" default:"8080"`
	Debug bool   `envconfig:"DEBUG" default:"false"`

	DatabaseURL string `envconfig:"DATABASE_URL" required:"true"`
	DBMaxConns  int32  `envconfig:"DB_MAX_CONNS" default:"0"`
	DBMinConns  int32  `envconfig:"DB_MIN_CONNS" default:"0"`

	// Shared secret required on all mutating endpoints.
	APIToken string `envconfig:"API_TOKEN"`

	// GuildID anchors citation links back to the chat platform.
	GuildID string `envconfig:"GUILD_ID"`

	OpenAIAPIKey        string        `envconfig:"OPENAI_API_KEY"`
	EmbeddingModel      string        `envconfig:"EMBEDDING_MODEL" default:"text-embedding-ada-002"`
	EmbeddingDimensions int           `envconfig:"EMBEDDING_DIMENSIONS" default:"1536"`
	CompletionModel     string        `envconfig:"COMPLETION_MODEL" default:"gpt-4o-mini"`
	ExternalCallTimeout time.Duration `envconfig:"EXTERNAL_CALL_TIMEOUT" default:"30s"`

	ChunkMaxLength int           `envconfig:"CHUNK_MAX_LENGTH" default:"4000"`
	ChunkOverlap   int           `envconfig:"CHUNK_OVERLAP" default:"200"`
	GroupWindow    time.Duration `envconfig:"GROUP_WINDOW" default:"10m"`
	GroupMaxSize   int           `envconfig:"GROUP_MAX_SIZE" default:"10"`

	// Candidate headroom for permission filtering: the store is asked for
	// CandidateMultiplier * top_k nearest neighbors.
	CandidateMultiplier int `envconfig:"CANDIDATE_MULTIPLIER" default:"4"`

	LeaseTTL        time.Duration `envconfig:"LEASE_TTL" default:"5m"`
	IngestPoolSize  int           `envconfig:"INGEST_POOL_SIZE" default:"8"`
	DLQPollInterval time.Duration `envconfig:"DLQ_POLL_INTERVAL" default:"1m"`

	S3Endpoint  string `envconfig:"S3_ENDPOINT"`
	S3AccessKey string `envconfig:"S3_ACCESS_KEY_ID"`
	S3SecretKey string `envconfig:"S3_SECRET_ACCESS_KEY"`
	S3Bucket    string `envconfig:"S3_BUCKET" default:"recall-attachments"`
	S3Region    string `envconfig:"S3_REGION" default:"us-east-1"`
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("RECALL", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process config: %w", err)
	}

	if cfg.ChunkMaxLength <= cfg.ChunkOverlap {
		return nil, fmt.Errorf("RECALL_CHUNK_MAX_LENGTH (%d) must exceed RECALL_CHUNK_OVERLAP (%d)", cfg.ChunkMaxLength, cfg.ChunkOverlap)
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
