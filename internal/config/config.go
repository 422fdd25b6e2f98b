package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
)

const (
	// OpponentProvider asks the configured AI provider for moves.
	OpponentProvider = "provider"
	// OpponentRandom skips the provider and plays uniformly at random.
	OpponentRandom = "random"
)

type AppConfig struct {
	HTTPAddr string

	RedisURL    string
	DatabaseURL string

	OpponentMode string

	ProviderBaseURL   string
	ProviderAPIKey    string
	ProviderModel     string
	ProviderTimeoutMS int

	MaxGameMoves    int
	MaxInvalidMoves int
	RandomSeed      int64

	SessionTTLSec int
	PromptDir     string
}

func Load() (*AppConfig, error) {
	cfg := &AppConfig{
		HTTPAddr:        ":8080",
		OpponentMode:    OpponentProvider,
		MaxGameMoves:    200,
		MaxInvalidMoves: 3,
		SessionTTLSec:   86400,
	}

	if v := strings.TrimSpace(os.Getenv("DUEL_HTTP_ADDR")); v != "" {
		cfg.HTTPAddr = v
	}

	cfg.RedisURL = strings.TrimSpace(os.Getenv("DUEL_REDIS_URL"))
	cfg.DatabaseURL = strings.TrimSpace(os.Getenv("DUEL_DATABASE_URL"))

	if v := strings.TrimSpace(os.Getenv("DUEL_OPPONENT_MODE")); v != "" {
		cfg.OpponentMode = strings.ToLower(v)
	}

	cfg.ProviderBaseURL = strings.TrimSpace(os.Getenv("DUEL_PROVIDER_BASE_URL"))
	cfg.ProviderAPIKey = strings.TrimSpace(os.Getenv("DUEL_PROVIDER_API_KEY"))
	cfg.ProviderModel = strings.TrimSpace(os.Getenv("DUEL_PROVIDER_MODEL"))
	if v := strings.TrimSpace(os.Getenv("DUEL_PROVIDER_TIMEOUT_MS")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			cfg.ProviderTimeoutMS = n
		}
	}

	if v := strings.TrimSpace(os.Getenv("DUEL_MAX_GAME_MOVES")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.MaxGameMoves = n
		}
	}
	if v := strings.TrimSpace(os.Getenv("DUEL_MAX_INVALID_MOVES")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.MaxInvalidMoves = n
		}
	}
	if v := strings.TrimSpace(os.Getenv("DUEL_RANDOM_SEED")); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.RandomSeed = n
		}
	}
	if v := strings.TrimSpace(os.Getenv("DUEL_SESSION_TTL")); v != "" { // seconds
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.SessionTTLSec = n
		}
	}
	cfg.PromptDir = strings.TrimSpace(os.Getenv("DUEL_PROMPT_DIR"))

	var missing []string
	if cfg.RedisURL == "" {
		missing = append(missing, "DUEL_REDIS_URL")
	}
	switch cfg.OpponentMode {
	case OpponentProvider:
		if cfg.ProviderBaseURL == "" {
			missing = append(missing, "DUEL_PROVIDER_BASE_URL")
		}
		if cfg.ProviderModel == "" {
			missing = append(missing, "DUEL_PROVIDER_MODEL")
		}
	case OpponentRandom:
		// Provider settings are ignored in random mode.
	default:
		return nil, fmt.Errorf("DUEL_OPPONENT_MODE must be %q or %q, got %q",
			OpponentProvider, OpponentRandom, cfg.OpponentMode)
	}
	if len(missing) > 0 {
		return nil, errors.New("missing required environment: " + strings.Join(missing, ", "))
	}

	return cfg, nil
}
