// Package config assembles server settings from defaults, an optional YAML
// file and environment variables, in that order of precedence.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/Ken-1219/multiplayer-contexto-sub000/internal/api"
	"github.com/Ken-1219/multiplayer-contexto-sub000/internal/api/middleware"
	"github.com/Ken-1219/multiplayer-contexto-sub000/internal/events"
	"github.com/Ken-1219/multiplayer-contexto-sub000/internal/factory"
	"github.com/Ken-1219/multiplayer-contexto-sub000/internal/services/embedding"
	"github.com/Ken-1219/multiplayer-contexto-sub000/internal/services/ranking"
	"github.com/Ken-1219/multiplayer-contexto-sub000/internal/services/supervisor"
	redisstorage "github.com/Ken-1219/multiplayer-contexto-sub000/internal/storage/redis"
)

// ServerConfig holds HTTP listener settings
type ServerConfig struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	IdleTimeout     time.Duration `yaml:"idle_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	CORSOrigins     []string      `yaml:"cors_origins"`
	// JanitorInterval is how often empty event stream hubs are closed
	JanitorInterval time.Duration `yaml:"janitor_interval"`
}

// StorageConfig selects and configures the storage backend
type StorageConfig struct {
	Type        string        `yaml:"type"`
	RedisURL    string        `yaml:"redis_url"`
	GameTTL     time.Duration `yaml:"game_ttl"`
	SQLitePath  string        `yaml:"sqlite_path"`
	PostgresURL string        `yaml:"postgres_url"`
}

// WordsConfig points at the word lists
type WordsConfig struct {
	DictionaryPath string `yaml:"dictionary_path"`
	TargetsPath    string `yaml:"targets_path"`
	SecretSalt     string `yaml:"secret_salt"`
}

// EmbeddingConfig selects the similarity provider
type EmbeddingConfig struct {
	Type        string        `yaml:"type"`
	VectorsPath string        `yaml:"vectors_path"`
	URL         string        `yaml:"url"`
	APIKey      string        `yaml:"-"`
	Model       string        `yaml:"model"`
	Timeout     time.Duration `yaml:"timeout"`
}

// NATSConfig enables event publication to NATS when URL is set
type NATSConfig struct {
	URL           string `yaml:"url"`
	SubjectPrefix string `yaml:"subject_prefix"`
}

// Config is the complete server configuration
type Config struct {
	LogLevel   string                     `yaml:"log_level"`
	Server     ServerConfig               `yaml:"server"`
	Storage    StorageConfig              `yaml:"storage"`
	Words      WordsConfig                `yaml:"words"`
	Embedding  EmbeddingConfig            `yaml:"embedding"`
	Ranking    ranking.Config             `yaml:"ranking"`
	Supervisor supervisor.Config          `yaml:"supervisor"`
	RateLimit  middleware.RateLimitConfig `yaml:"rate_limit"`
	NATS       NATSConfig                 `yaml:"nats"`
}

// Default returns the built-in configuration: in-memory storage, spelling-only ranking
func Default() *Config {
	server := api.DefaultServerConfig()
	return &Config{
		LogLevel: "info",
		Server: ServerConfig{
			Host:            server.Host,
			Port:            server.Port,
			ReadTimeout:     server.ReadTimeout,
			WriteTimeout:    server.WriteTimeout,
			IdleTimeout:     server.IdleTimeout,
			ShutdownTimeout: server.ShutdownTimeout,
			JanitorInterval: time.Minute,
		},
		Storage: StorageConfig{
			Type:    factory.StorageTypeMemory,
			GameTTL: redisstorage.DefaultConfig().GameTTL,
		},
		Embedding: EmbeddingConfig{
			Type:    factory.EmbeddingTypeNone,
			Timeout: 5 * time.Second,
		},
		Ranking:    ranking.DefaultConfig(),
		Supervisor: supervisor.DefaultConfig(),
		RateLimit:  middleware.DefaultRateLimitConfig(),
		NATS: NATSConfig{
			SubjectPrefix: events.DefaultNATSConfig().SubjectPrefix,
		},
	}
}

// Load reads .env (if present), then CONFIG_FILE (if set), then the environment
func Load() (*Config, error) {
	// a missing .env is normal outside development
	_ = godotenv.Load()

	cfg := Default()
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config: %w", err)
	}
	return nil
}

func (c *Config) applyEnv() error {
	setString(&c.LogLevel, "LOG_LEVEL")
	setString(&c.Storage.Type, "STORAGE_TYPE")
	setString(&c.Storage.RedisURL, "REDIS_URL")
	setString(&c.Storage.SQLitePath, "SQLITE_PATH")
	setString(&c.Storage.PostgresURL, "DATABASE_URL")
	setString(&c.NATS.URL, "NATS_URL")
	setString(&c.Words.DictionaryPath, "DICTIONARY_PATH")
	setString(&c.Words.TargetsPath, "TARGETS_PATH")
	setString(&c.Words.SecretSalt, "SECRET_SALT")
	setString(&c.Embedding.VectorsPath, "VECTORS_PATH")
	setString(&c.Embedding.URL, "EMBEDDING_URL")
	setString(&c.Embedding.APIKey, "EMBEDDING_API_KEY")
	setString(&c.Embedding.Model, "EMBEDDING_MODEL")
	setString(&c.Embedding.Type, "EMBEDDING_TYPE")

	if v := os.Getenv("CORS_ORIGINS"); v != "" {
		c.Server.CORSOrigins = splitList(v)
	}
	if err := setInt(&c.Server.Port, "PORT"); err != nil {
		return err
	}
	if err := setInt(&c.RateLimit.Burst, "RATE_LIMIT_BURST"); err != nil {
		return err
	}
	if v := os.Getenv("RATE_LIMIT_RPS"); v != "" {
		rps, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("RATE_LIMIT_RPS: %w", err)
		}
		c.RateLimit.RequestsPerSecond = rps
	}

	// a provider location implies its type unless one was chosen explicitly
	if os.Getenv("EMBEDDING_TYPE") == "" && (c.Embedding.Type == "" || c.Embedding.Type == factory.EmbeddingTypeNone) {
		switch {
		case c.Embedding.VectorsPath != "":
			c.Embedding.Type = factory.EmbeddingTypeVectors
		case c.Embedding.URL != "":
			c.Embedding.Type = factory.EmbeddingTypeHTTP
		}
	}
	return nil
}

// Validate rejects settings the server cannot start with
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("config: port %d out of range", c.Server.Port)
	}
	if _, err := parseLevel(c.LogLevel); err != nil {
		return err
	}
	switch c.Storage.Type {
	case factory.StorageTypeMemory:
	case factory.StorageTypeRedis:
		if c.Storage.RedisURL == "" {
			return fmt.Errorf("config: REDIS_URL required when STORAGE_TYPE=redis")
		}
	case factory.StorageTypeSQLite:
		if c.Storage.SQLitePath == "" {
			return fmt.Errorf("config: SQLITE_PATH required when STORAGE_TYPE=sqlite")
		}
	case factory.StorageTypePostgres:
		if c.Storage.PostgresURL == "" {
			return fmt.Errorf("config: DATABASE_URL required when STORAGE_TYPE=postgres")
		}
	default:
		return fmt.Errorf("config: unknown storage type %q", c.Storage.Type)
	}
	if c.Server.JanitorInterval <= 0 {
		return fmt.Errorf("config: janitor interval must be positive")
	}
	if c.RateLimit.RequestsPerSecond < 0 || c.RateLimit.Burst < 0 {
		return fmt.Errorf("config: rate limit must not be negative")
	}
	return c.Ranking.Validate()
}

// Level returns the configured log level
func (c *Config) Level() slog.Level {
	level, _ := parseLevel(c.LogLevel)
	return level
}

// RateLimitEnabled reports whether requests are throttled
func (c *Config) RateLimitEnabled() bool {
	return c.RateLimit.RequestsPerSecond > 0 && c.RateLimit.Burst > 0
}

// APIServer returns the HTTP listener settings
func (c *Config) APIServer() api.ServerConfig {
	return api.ServerConfig{
		Host:            c.Server.Host,
		Port:            c.Server.Port,
		ReadTimeout:     c.Server.ReadTimeout,
		WriteTimeout:    c.Server.WriteTimeout,
		IdleTimeout:     c.Server.IdleTimeout,
		ShutdownTimeout: c.Server.ShutdownTimeout,
	}
}

// Factory returns the application wiring settings
func (c *Config) Factory(logger *slog.Logger) factory.Config {
	rankCfg := c.Ranking
	out := factory.Config{
		Logger:         logger,
		StorageType:    c.Storage.Type,
		SQLitePath:     c.Storage.SQLitePath,
		PostgresURL:    c.Storage.PostgresURL,
		DictionaryPath: c.Words.DictionaryPath,
		TargetsPath:    c.Words.TargetsPath,
		SecretSalt:     c.Words.SecretSalt,
		Embedding: factory.EmbeddingConfig{
			Type:        c.Embedding.Type,
			VectorsPath: c.Embedding.VectorsPath,
			HTTP: embedding.HTTPConfig{
				URL:     c.Embedding.URL,
				APIKey:  c.Embedding.APIKey,
				Model:   c.Embedding.Model,
				Timeout: c.Embedding.Timeout,
			},
		},
		Ranking:    &rankCfg,
		Supervisor: c.Supervisor,
	}
	if c.Storage.Type == factory.StorageTypeRedis {
		redisCfg := redisstorage.DefaultConfig()
		redisCfg.URL = c.Storage.RedisURL
		if c.Storage.GameTTL > 0 {
			redisCfg.GameTTL = c.Storage.GameTTL
		}
		out.RedisConfig = &redisCfg
	}
	if c.NATS.URL != "" {
		natsCfg := events.DefaultNATSConfig()
		natsCfg.URL = c.NATS.URL
		if c.NATS.SubjectPrefix != "" {
			natsCfg.SubjectPrefix = c.NATS.SubjectPrefix
		}
		out.NATS = &natsCfg
	}
	return out
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo, fmt.Errorf("config: invalid log level %q", s)
	}
	return level, nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = n
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
