package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"
)

// OracleConfig configures the completion/embedding backend.
type OracleConfig struct {
	Provider       string        `yaml:"provider"` // ollama, gemini, openai
	BaseURL        string        `yaml:"base_url"`
	APIKey         string        `yaml:"api_key"`
	GenerateModel  string        `yaml:"generate_model"`
	EmbeddingModel string        `yaml:"embedding_model"`
	Temperature    *float64      `yaml:"temperature"` // nil means 0.2; 0 is allowed
	Timeout        time.Duration `yaml:"timeout"`
	MaxRetries     int           `yaml:"max_retries"`
	RetryBackoff   time.Duration `yaml:"retry_backoff"`
	EmbedCacheSize int           `yaml:"embed_cache_size"`
	EmbedCacheTTL  time.Duration `yaml:"embed_cache_ttl"`
}

// IndexConfig selects the vector index backend.
type IndexConfig struct {
	Backend     string `yaml:"backend"` // chromem, pgvector
	ChromemPath string `yaml:"chromem_path"`
	Collection  string `yaml:"collection"`
	DatabaseURL string `yaml:"database_url"`
	Dimensions  int    `yaml:"dimensions"`
}

// ScraperConfig configures outbound page fetches.
type ScraperConfig struct {
	UserAgent    string        `yaml:"user_agent"`
	Timeout      time.Duration `yaml:"timeout"`
	MaxRetries   int           `yaml:"max_retries"`
	RetryBackoff time.Duration `yaml:"retry_backoff"`
	MinInterval  time.Duration `yaml:"min_interval"`
	MaxBodyBytes int64         `yaml:"max_body_bytes"`
}

// IndexingConfig controls the indexing pipeline.
type IndexingConfig struct {
	ChunkSize       int    `yaml:"chunk_size"`
	ReplaceExisting *bool  `yaml:"replace_existing"`
	Schedule        string `yaml:"schedule"`
	IndexOnStartup  bool   `yaml:"index_on_startup"`
}

// SnapshotConfig configures archival of scraped source text.
type SnapshotConfig struct {
	Type         string `yaml:"type"` // none, local, s3
	LocalPath    string `yaml:"local_path"`
	S3Bucket     string `yaml:"s3_bucket"`
	S3Region     string `yaml:"s3_region"`
	AWSAccessKey string `yaml:"aws_access_key"`
	AWSSecretKey string `yaml:"aws_secret_key"`
}

// AuditConfig configures the JSONL audit trail.
type AuditConfig struct {
	Path string `yaml:"path"`
}

// AdminConfig guards the maintenance endpoints.
type AdminConfig struct {
	TokenHash string `yaml:"token_hash"` // bcrypt hash of the X-Admin-Token value
}

// LogConfig configures the global logger.
type LogConfig struct {
	Level  string `yaml:"level"`
	Pretty bool   `yaml:"pretty"`
}

// Config is the root configuration.
type Config struct {
	Port      string         `yaml:"port"`
	Log       LogConfig      `yaml:"log"`
	Oracle    OracleConfig   `yaml:"oracle"`
	Index     IndexConfig    `yaml:"index"`
	Scraper   ScraperConfig  `yaml:"scraper"`
	Indexing  IndexingConfig `yaml:"indexing"`
	Snapshots SnapshotConfig `yaml:"snapshots"`
	Audit     AuditConfig    `yaml:"audit"`
	Admin     AdminConfig    `yaml:"admin"`
}

// DefaultTemperature is the sampling temperature used when none is configured.
const DefaultTemperature = 0.2

// SamplingTemperature returns the configured temperature or DefaultTemperature.
func (c OracleConfig) SamplingTemperature() float64 {
	if c.Temperature == nil {
		return DefaultTemperature
	}
	return *c.Temperature
}

// ReplaceExistingChunks reports whether a source's old chunks are removed before re-indexing.
func (c IndexingConfig) ReplaceExistingChunks() bool {
	return c.ReplaceExisting == nil || *c.ReplaceExisting
}

// Load reads .env, then the optional YAML file at path, then environment overrides,
// and finally fills defaults. A missing file is not an error.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Debug().Msg("no .env file found, using environment variables")
	}

	cfg := &Config{}
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
			}
		case errors.Is(err, os.ErrNotExist):
			log.Warn().Str("path", path).Msg("config file not found, using defaults")
		default:
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
	}

	applyEnv(cfg)
	applyDefaults(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Default returns a configuration with every default applied.
func Default() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

// Validate checks enumerated settings.
func (c *Config) Validate() error {
	switch c.Oracle.Provider {
	case "ollama", "gemini", "openai":
	default:
		return fmt.Errorf("unknown oracle provider: %s", c.Oracle.Provider)
	}
	switch c.Index.Backend {
	case "chromem":
	case "pgvector":
		if c.Index.DatabaseURL == "" {
			return errors.New("index.database_url is required for the pgvector backend")
		}
	default:
		return fmt.Errorf("unknown index backend: %s", c.Index.Backend)
	}
	switch c.Snapshots.Type {
	case "none", "local", "s3":
	default:
		return fmt.Errorf("unknown snapshot storage type: %s", c.Snapshots.Type)
	}
	if c.Snapshots.Type == "s3" && c.Snapshots.S3Bucket == "" {
		return errors.New("snapshots.s3_bucket is required for S3 storage")
	}
	return nil
}

func applyEnv(cfg *Config) {
	setString(&cfg.Port, "PORT")
	setString(&cfg.Log.Level, "LOG_LEVEL")
	setBool(&cfg.Log.Pretty, "LOG_PRETTY")

	setString(&cfg.Oracle.Provider, "ORACLE_PROVIDER")
	setString(&cfg.Oracle.BaseURL, "OLLAMA_URL")
	setString(&cfg.Oracle.GenerateModel, "LEGAL_MODEL")
	setString(&cfg.Oracle.EmbeddingModel, "EMBEDDING_MODEL")
	setFloatPtr(&cfg.Oracle.Temperature, "LEGAL_TEMPERATURE")
	setDuration(&cfg.Oracle.Timeout, "ORACLE_TIMEOUT")
	setInt(&cfg.Oracle.MaxRetries, "ORACLE_MAX_RETRIES")
	if cfg.Oracle.APIKey == "" {
		switch {
		case os.Getenv("GEMINI_API_KEY") != "":
			cfg.Oracle.APIKey = os.Getenv("GEMINI_API_KEY")
		case os.Getenv("OPENAI_API_KEY") != "":
			cfg.Oracle.APIKey = os.Getenv("OPENAI_API_KEY")
		}
	}

	setString(&cfg.Index.Backend, "INDEX_BACKEND")
	setString(&cfg.Index.ChromemPath, "CHROMA_PATH")
	setString(&cfg.Index.Collection, "CHROMA_COLLECTION")
	setString(&cfg.Index.DatabaseURL, "DATABASE_URL")

	setString(&cfg.Indexing.Schedule, "INDEX_SCHEDULE")
	setBool(&cfg.Indexing.IndexOnStartup, "INDEX_ON_STARTUP")

	setString(&cfg.Snapshots.Type, "STORAGE_TYPE")
	setString(&cfg.Snapshots.LocalPath, "STORAGE_LOCAL_PATH")
	setString(&cfg.Snapshots.S3Bucket, "AWS_S3_BUCKET")
	setString(&cfg.Snapshots.S3Region, "AWS_REGION")
	setString(&cfg.Snapshots.AWSAccessKey, "AWS_ACCESS_KEY_ID")
	setString(&cfg.Snapshots.AWSSecretKey, "AWS_SECRET_ACCESS_KEY")

	setString(&cfg.Audit.Path, "AUDIT_LOG_PATH")
	setString(&cfg.Admin.TokenHash, "ADMIN_TOKEN_HASH")
}

func applyDefaults(cfg *Config) {
	if cfg.Port == "" {
		cfg.Port = "8080"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}

	o := &cfg.Oracle
	if o.Provider == "" {
		o.Provider = "ollama"
	}
	if o.BaseURL == "" && o.Provider == "ollama" {
		o.BaseURL = "http://localhost:11434"
	}
	if o.GenerateModel == "" {
		switch o.Provider {
		case "gemini":
			o.GenerateModel = "gemini-1.5-pro"
		case "openai":
			o.GenerateModel = "gpt-4o-mini"
		default:
			o.GenerateModel = "mixtral:8x7b"
		}
	}
	if o.EmbeddingModel == "" {
		switch o.Provider {
		case "gemini":
			o.EmbeddingModel = "text-embedding-004"
		case "openai":
			o.EmbeddingModel = "text-embedding-3-small"
		default:
			o.EmbeddingModel = "nomic-embed-text"
		}
	}
	if o.Timeout <= 0 {
		o.Timeout = 120 * time.Second
	}
	if o.MaxRetries <= 0 {
		o.MaxRetries = 3
	}
	if o.RetryBackoff <= 0 {
		o.RetryBackoff = time.Second
	}
	if o.EmbedCacheSize > 0 && o.EmbedCacheTTL <= 0 {
		o.EmbedCacheTTL = time.Hour
	}

	if cfg.Index.Backend == "" {
		cfg.Index.Backend = "chromem"
	}
	if cfg.Index.Collection == "" {
		cfg.Index.Collection = "legal_sources"
	}
	if cfg.Index.Backend == "chromem" && cfg.Index.ChromemPath == "" {
		cfg.Index.ChromemPath = "./data/chromem"
	}
	if cfg.Index.Dimensions <= 0 {
		cfg.Index.Dimensions = 768
	}

	s := &cfg.Scraper
	if s.UserAgent == "" {
		s.UserAgent = "Mozilla/5.0 (compatible; LegalSourcesIndexer/1.0)"
	}
	if s.Timeout <= 0 {
		s.Timeout = 30 * time.Second
	}
	if s.MaxRetries <= 0 {
		s.MaxRetries = 2
	}
	if s.RetryBackoff <= 0 {
		s.RetryBackoff = 2 * time.Second
	}
	if s.MinInterval <= 0 {
		s.MinInterval = time.Second
	}
	if s.MaxBodyBytes <= 0 {
		s.MaxBodyBytes = 20 << 20
	}

	if cfg.Indexing.ChunkSize <= 0 {
		cfg.Indexing.ChunkSize = 500
	}

	if cfg.Snapshots.Type == "" {
		cfg.Snapshots.Type = "none"
	}
	if cfg.Snapshots.Type == "local" && cfg.Snapshots.LocalPath == "" {
		cfg.Snapshots.LocalPath = "./storage/snapshots"
	}
	if cfg.Snapshots.Type == "s3" && cfg.Snapshots.S3Region == "" {
		cfg.Snapshots.S3Region = "us-east-1"
	}
}

func setString(dst *string, key string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		*dst = v
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setFloatPtr(dst **float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = &f
		}
	}
}

func setDuration(dst *time.Duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			*dst = d
		}
	}
}
