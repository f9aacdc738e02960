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

	OpenAIAPIKey    string `envconfig:"OPENAI_API_KEY"`
	EmbeddingModel  string `envconfig:"EMBEDDING_MODEL" default:"text-embedding-3-small"`
	CompletionModel string `envconfig:"COMPLETION_MODEL" default:"gpt-4o-mini"`

	// Vector index persistence. Empty dir keeps the index in memory.
	VectorDataDir    string `envconfig:"VECTOR_DATA_DIR"`
	VectorCollection string `envconfig:"VECTOR_COLLECTION" default:"rag_collection"`

	ChunkSize    int `envconfig:"CHUNK_SIZE" default:"500"`
	ChunkOverlap int `envconfig:"CHUNK_OVERLAP" default:"80"`

	// Acquisition chain tuning.
	FetchTimeout      time.Duration `envconfig:"FETCH_TIMEOUT" default:"15s"`
	RenderTimeout     time.Duration `envconfig:"RENDER_TIMEOUT" default:"30s"`
	BrowserEnabled    bool          `envconfig:"BROWSER_ENABLED" default:"true"`
	ReaderProxyURL    string        `envconfig:"READER_PROXY_URL"`
	StrictAcquisition bool          `envconfig:"STRICT_ACQUISITION" default:"false"`

	S3Endpoint  string `envconfig:"S3_ENDPOINT"`
	S3AccessKey string `envconfig:"S3_ACCESS_KEY_ID"`
	S3SecretKey string `envconfig:"S3_SECRET_ACCESS_KEY"`
	S3Bucket    string `envconfig:"S3_BUCKET" default:"sourcebook-archive"`
	S3Region    string `envconfig:"S3_REGION" default:"us-east-1"`
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("SOURCEBOOK", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process config: %w", err)
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

func (c *Config) HasReaderProxy() bool {
	return c.ReaderProxyURL != ""
}
