package factory

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/Ken-1219/multiplayer-contexto-sub000/internal/dependencies/clock"
	"github.com/Ken-1219/multiplayer-contexto-sub000/internal/dependencies/random"
	"github.com/Ken-1219/multiplayer-contexto-sub000/internal/events"
	"github.com/Ken-1219/multiplayer-contexto-sub000/internal/services/dictionary"
	"github.com/Ken-1219/multiplayer-contexto-sub000/internal/services/embedding"
	"github.com/Ken-1219/multiplayer-contexto-sub000/internal/services/game"
	"github.com/Ken-1219/multiplayer-contexto-sub000/internal/services/guess"
	"github.com/Ken-1219/multiplayer-contexto-sub000/internal/services/lobby"
	"github.com/Ken-1219/multiplayer-contexto-sub000/internal/services/players"
	"github.com/Ken-1219/multiplayer-contexto-sub000/internal/services/ranking"
	"github.com/Ken-1219/multiplayer-contexto-sub000/internal/services/secret"
	"github.com/Ken-1219/multiplayer-contexto-sub000/internal/services/supervisor"
	"github.com/Ken-1219/multiplayer-contexto-sub000/internal/sse"
	"github.com/Ken-1219/multiplayer-contexto-sub000/internal/storage"
	"github.com/Ken-1219/multiplayer-contexto-sub000/internal/storage/memory"
	"github.com/Ken-1219/multiplayer-contexto-sub000/internal/storage/postgres"
	redisstorage "github.com/Ken-1219/multiplayer-contexto-sub000/internal/storage/redis"
	"github.com/Ken-1219/multiplayer-contexto-sub000/internal/storage/sqlite"
)

// Storage type constants
const (
	StorageTypeMemory   = "memory"
	StorageTypeRedis    = "redis"
	StorageTypeSQLite   = "sqlite"
	StorageTypePostgres = "postgres"
)

// Embedding provider type constants
const (
	EmbeddingTypeNone    = "none"
	EmbeddingTypeVectors = "vectors"
	EmbeddingTypeHTTP    = "http"
)

// connectTimeout bounds connecting to external stores at startup
const connectTimeout = 10 * time.Second

// App contains all wired application components
type App struct {
	// Storage
	Storage storage.Storage

	// External dependencies
	Clock  clock.Clock
	Random random.Random

	// Services
	DictionaryService *dictionary.Service
	RankingEngine     *ranking.Engine
	GuessProcessor    *guess.Processor
	SecretSelector    *secret.Selector
	PlayerService     *players.Service
	Supervisor        *supervisor.Supervisor
	LobbyController   *lobby.Controller
	GameController    *game.Controller

	// Event delivery
	HubManager *sse.HubManager
	Publisher  events.Publisher

	closers []io.Closer
}

// EmbeddingConfig selects the similarity provider
type EmbeddingConfig struct {
	// Type is "vectors", "http" or "none". With "none" every guess is ranked by spelling.
	Type string
	// VectorsPath is the word vector file used by the "vectors" provider
	VectorsPath string
	// HTTP configures the "http" provider
	HTTP embedding.HTTPConfig
}

// Config holds configuration for the application factory
type Config struct {
	// Logger is the application logger (optional)
	// If nil, a no-op logger is used
	Logger *slog.Logger
	// StorageType selects the storage backend ("memory", "redis", "sqlite" or "postgres")
	// If empty, defaults to "memory"
	StorageType string
	// RedisConfig holds Redis connection settings (required if StorageType is "redis")
	RedisConfig *redisstorage.Config
	// SQLitePath is the database file (required if StorageType is "sqlite")
	SQLitePath string
	// PostgresURL is the connection string (required if StorageType is "postgres")
	PostgresURL string

	// DictionaryPath is a word list file; empty uses the built-in list
	DictionaryPath string
	// TargetsPath is a secret word list file; empty uses the built-in list
	TargetsPath string
	// SecretSalt keys the daily secret word choice
	SecretSalt string

	Embedding  EmbeddingConfig
	Ranking    *ranking.Config
	Supervisor supervisor.Config

	// NATS enables event publication to NATS when set
	NATS *events.NATSConfig
}

// New creates a new application with all dependencies wired
func New(cfg Config) (*App, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}

	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()

	store, err := newStorage(ctx, cfg)
	if err != nil {
		return nil, err
	}
	var closers []io.Closer
	if c, ok := store.(io.Closer); ok {
		closers = append(closers, c)
	}

	closeAll := func() {
		for _, c := range closers {
			_ = c.Close()
		}
	}

	provider, err := newProvider(cfg.Embedding)
	if err != nil {
		closeAll()
		return nil, err
	}

	rankCfg := ranking.DefaultConfig()
	if cfg.Ranking != nil {
		rankCfg = *cfg.Ranking
	}

	var publishers events.Multi
	if cfg.NATS != nil {
		natsPublisher, err := events.NewNATSPublisher(*cfg.NATS, logger)
		if err != nil {
			closeAll()
			return nil, err
		}
		closers = append(closers, natsPublisher)
		publishers = append(publishers, natsPublisher)
	}

	app, err := newWithDependencies(store, clock.New(), random.New(), dependencyConfig{
		provider:   provider,
		ranking:    rankCfg,
		supervisor: cfg.Supervisor,
		salt:       cfg.SecretSalt,
		publishers: publishers,
	}, logger)
	if err != nil {
		closeAll()
		return nil, err
	}
	app.closers = closers

	if err := app.loadWords(ctx, cfg.DictionaryPath, cfg.TargetsPath, cfg.SecretSalt); err != nil {
		_ = app.Close()
		return nil, err
	}
	return app, nil
}

func newStorage(ctx context.Context, cfg Config) (storage.Storage, error) {
	storageType := cfg.StorageType
	if storageType == "" {
		storageType = StorageTypeMemory
	}

	switch storageType {
	case StorageTypeMemory:
		return memory.New(), nil
	case StorageTypeRedis:
		if cfg.RedisConfig == nil {
			return nil, errors.New("RedisConfig required when StorageType is redis")
		}
		return redisstorage.New(*cfg.RedisConfig)
	case StorageTypeSQLite:
		if cfg.SQLitePath == "" {
			return nil, errors.New("SQLitePath required when StorageType is sqlite")
		}
		return sqlite.Open(ctx, cfg.SQLitePath)
	case StorageTypePostgres:
		if cfg.PostgresURL == "" {
			return nil, errors.New("PostgresURL required when StorageType is postgres")
		}
		return postgres.New(ctx, cfg.PostgresURL)
	default:
		return nil, fmt.Errorf("invalid StorageType %q: must be memory, redis, sqlite or postgres", storageType)
	}
}

func newProvider(cfg EmbeddingConfig) (embedding.Provider, error) {
	switch cfg.Type {
	case "", EmbeddingTypeNone:
		return nil, nil
	case EmbeddingTypeVectors:
		if cfg.VectorsPath == "" {
			return nil, errors.New("VectorsPath required when embedding type is vectors")
		}
		return embedding.LoadVectorFile(cfg.VectorsPath)
	case EmbeddingTypeHTTP:
		if cfg.HTTP.URL == "" {
			return nil, errors.New("embedding URL required when embedding type is http")
		}
		return embedding.NewHTTPProvider(cfg.HTTP), nil
	default:
		return nil, fmt.Errorf("invalid embedding type %q: must be none, vectors or http", cfg.Type)
	}
}

// dependencyConfig carries the settings newWithDependencies needs beyond storage, clock and random
type dependencyConfig struct {
	provider   embedding.Provider
	ranking    ranking.Config
	supervisor supervisor.Config
	salt       string
	targets    []string
	publishers []events.Publisher
}

// newWithDependencies creates an App with the given dependencies (useful for testing).
// The dictionary is created empty; callers load it.
func newWithDependencies(store storage.Storage, clk clock.Clock, rnd random.Random, cfg dependencyConfig, logger *slog.Logger) (*App, error) {
	dictService := dictionary.New(store)

	engine, err := ranking.New(cfg.ranking, cfg.provider, logger)
	if err != nil {
		return nil, fmt.Errorf("ranking engine: %w", err)
	}

	targets := cfg.targets
	if len(targets) == 0 {
		targets = secret.DefaultWords()
	}
	selector, err := secret.New(targets, cfg.salt, dictService, clk)
	if err != nil {
		return nil, err
	}

	hubManager := sse.NewHubManager(logger)
	publisher := append(events.Multi{sse.NewBroadcaster(hubManager, logger)}, cfg.publishers...)

	playerService := players.New(store, clk, rnd)
	sup := supervisor.New(store, playerService, publisher, clk, cfg.supervisor, logger)
	processor := guess.New(dictService, engine, clk, rnd, logger)
	lobbyController := lobby.NewController(store, playerService, selector, sup, publisher, clk, rnd, logger)
	gameController := game.NewController(store, processor, sup, publisher, clk, logger)

	return &App{
		Storage:           store,
		Clock:             clk,
		Random:            rnd,
		DictionaryService: dictService,
		RankingEngine:     engine,
		GuessProcessor:    processor,
		SecretSelector:    selector,
		PlayerService:     playerService,
		Supervisor:        sup,
		LobbyController:   lobbyController,
		GameController:    gameController,
		HubManager:        hubManager,
		Publisher:         publisher,
	}, nil
}

// loadWords loads the dictionary, swaps in a custom target list if given and
// checks that every target is a dictionary word
func (a *App) loadWords(ctx context.Context, dictionaryPath, targetsPath, salt string) error {
	var err error
	if dictionaryPath != "" {
		err = a.DictionaryService.LoadFromFile(ctx, dictionaryPath)
	} else {
		err = a.DictionaryService.LoadDefault(ctx)
	}
	if err != nil {
		return fmt.Errorf("load dictionary: %w", err)
	}

	if targetsPath != "" {
		words, err := secret.LoadWords(targetsPath)
		if err != nil {
			return err
		}
		selector, err := secret.New(words, salt, a.DictionaryService, a.Clock)
		if err != nil {
			return err
		}
		*a.SecretSelector = *selector
	}
	return a.SecretSelector.Verify(ctx, a.DictionaryService)
}

// Close releases the storage connection and event transports
func (a *App) Close() error {
	a.HubManager.Close()
	var errs []error
	for _, c := range a.closers {
		errs = append(errs, c.Close())
	}
	return errors.Join(errs...)
}
