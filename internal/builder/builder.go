// Package builder wires configuration into the running dependency graph:
// redis, archive storage, the AI provider client, the duel controller, and
// the HTTP gateway.
package builder

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/hyeon-dev/chessduel/internal/archive"
	"github.com/hyeon-dev/chessduel/internal/boardimage"
	"github.com/hyeon-dev/chessduel/internal/config"
	"github.com/hyeon-dev/chessduel/internal/duel"
	"github.com/hyeon-dev/chessduel/internal/gateway"
	"github.com/hyeon-dev/chessduel/internal/provider"
)

type Deps struct {
	Controller *duel.Controller
	Store      *duel.Store
	Repo       archive.Repository
	Server     *gateway.Server
	Redis      *redis.Client

	db     *sql.DB
	logger *zap.Logger
}

func New(cfg *config.AppConfig, logger *zap.Logger) (*Deps, error) {
	if cfg == nil {
		return nil, fmt.Errorf("nil config")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	rdb, err := connectRedis(cfg.RedisURL)
	if err != nil {
		return nil, err
	}

	store, err := duel.NewStore(rdb, time.Duration(cfg.SessionTTLSec)*time.Second)
	if err != nil {
		rdb.Close()
		return nil, fmt.Errorf("init session store: %w", err)
	}

	var db *sql.DB
	var repo archive.Repository
	if strings.TrimSpace(cfg.DatabaseURL) != "" {
		db, err = openPostgres(cfg.DatabaseURL)
		if err != nil {
			rdb.Close()
			return nil, err
		}
		repo = archive.NewRepository(db)
	} else {
		logger.Warn("archive_memory_mode",
			zap.String("hint", "set DUEL_DATABASE_URL to persist finished duels"))
		repo = archive.NewMemoryRepository()
	}

	var moveProvider duel.MoveProvider
	if cfg.OpponentMode == config.OpponentProvider {
		catalog, cerr := provider.NewCatalog(cfg.PromptDir)
		if cerr != nil {
			closeAll(rdb, db)
			return nil, fmt.Errorf("load prompt catalog: %w", cerr)
		}
		client, cerr := provider.NewClient(
			cfg.ProviderBaseURL,
			cfg.ProviderAPIKey,
			cfg.ProviderModel,
			catalog,
			provider.WithTimeout(time.Duration(cfg.ProviderTimeoutMS)*time.Millisecond),
			provider.WithLogger(logger),
		)
		if cerr != nil {
			closeAll(rdb, db)
			return nil, fmt.Errorf("init provider client: %w", cerr)
		}
		moveProvider = client
	}

	controller, err := duel.NewController(duel.Config{
		DefaultMode: duel.OpponentMode(cfg.OpponentMode),
		Limits: duel.Limits{
			MaxGameMoves:    cfg.MaxGameMoves,
			MaxInvalidMoves: cfg.MaxInvalidMoves,
		},
		RandomSeed: cfg.RandomSeed,
	}, moveProvider, store, repo, logger)
	if err != nil {
		closeAll(rdb, db)
		return nil, fmt.Errorf("init controller: %w", err)
	}

	server, err := gateway.NewServer(controller, repo, boardimage.NewRenderer(), rdb, logger)
	if err != nil {
		controller.Close()
		closeAll(rdb, db)
		return nil, fmt.Errorf("init gateway: %w", err)
	}

	return &Deps{
		Controller: controller,
		Store:      store,
		Repo:       repo,
		Server:     server,
		Redis:      rdb,
		db:         db,
		logger:     logger,
	}, nil
}

// Close tears the graph down in dependency order. Safe to call once.
func (d *Deps) Close() {
	if d == nil {
		return
	}
	if d.Controller != nil {
		d.Controller.Close()
	}
	closeAll(d.Redis, d.db)
}

func connectRedis(rawURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	rdb := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return rdb, nil
}

func openPostgres(databaseURL string) (*sql.DB, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	db.SetMaxOpenConns(16)
	db.SetMaxIdleConns(8)
	db.SetConnMaxLifetime(30 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return db, nil
}

func closeAll(rdb *redis.Client, db *sql.DB) {
	if rdb != nil {
		rdb.Close()
	}
	if db != nil {
		db.Close()
	}
}
