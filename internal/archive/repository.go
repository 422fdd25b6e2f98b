package archive

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/hyeon-dev/chessduel/internal/domain"
)

var ErrDuplicateDuel = errors.New("duel already archived")

// Repository persists finished duels. Live sessions never touch it; the
// controller archives a game once and reads go through the HTTP archive
// endpoints.
type Repository interface {
	InsertDuel(ctx context.Context, duel *domain.DuelGame) (int64, error)
	GetRecentDuels(ctx context.Context, limit int) ([]*domain.DuelGame, error)
	GetDuel(ctx context.Context, id int64) (*domain.DuelGame, error)
	GetDuelBySession(ctx context.Context, sessionKey string) (*domain.DuelGame, error)
	Stats(ctx context.Context) ([]*domain.DuelStats, error)
}

type repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) Repository {
	return &repository{db: db}
}

func (r *repository) InsertDuel(ctx context.Context, duel *domain.DuelGame) (int64, error) {
	if duel == nil {
		return 0, fmt.Errorf("nil duel payload")
	}

	movesUCI, err := json.Marshal(duel.MovesUCI)
	if err != nil {
		return 0, fmt.Errorf("marshal moves_uci: %w", err)
	}
	movesSAN, err := json.Marshal(duel.MovesSAN)
	if err != nil {
		return 0, fmt.Errorf("marshal moves_san: %w", err)
	}

	const query = `
		INSERT INTO duel_games (
			session_key,
			mode,
			result,
			result_method,
			moves_uci,
			moves_san,
			pgn,
			invalid_moves,
			started_at,
			ended_at,
			duration_ms
		)
		VALUES ($1, $2, $3, $4, $5::jsonb, $6::jsonb, $7, $8, $9, $10, $11)
		ON CONFLICT (session_key) DO NOTHING
		RETURNING id`

	var id sql.NullInt64
	err = r.db.QueryRowContext(
		ctx,
		query,
		duel.SessionKey,
		duel.Mode,
		duel.Result,
		duel.ResultMethod,
		movesUCI,
		movesSAN,
		duel.PGN,
		duel.InvalidMoves,
		duel.StartedAt,
		duel.EndedAt,
		duel.Duration.Milliseconds(),
	).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) || (err == nil && !id.Valid) {
		return 0, ErrDuplicateDuel
	}
	if err != nil {
		return 0, fmt.Errorf("insert duel: %w", err)
	}
	return id.Int64, nil
}

const duelColumns = `
		id,
		session_key,
		mode,
		result,
		result_method,
		moves_uci,
		moves_san,
		pgn,
		invalid_moves,
		started_at,
		ended_at,
		duration_ms`

func scanDuel(row interface{ Scan(dest ...any) error }) (*domain.DuelGame, error) {
	var (
		duel         domain.DuelGame
		movesUCIJSON []byte
		movesSANJSON []byte
		durationMS   sql.NullInt64
	)
	if err := row.Scan(
		&duel.ID,
		&duel.SessionKey,
		&duel.Mode,
		&duel.Result,
		&duel.ResultMethod,
		&movesUCIJSON,
		&movesSANJSON,
		&duel.PGN,
		&duel.InvalidMoves,
		&duel.StartedAt,
		&duel.EndedAt,
		&durationMS,
	); err != nil {
		return nil, err
	}
	if durationMS.Valid {
		duel.Duration = time.Duration(durationMS.Int64) * time.Millisecond
	}
	if err := json.Unmarshal(movesUCIJSON, &duel.MovesUCI); err != nil {
		return nil, fmt.Errorf("unmarshal moves_uci: %w", err)
	}
	if err := json.Unmarshal(movesSANJSON, &duel.MovesSAN); err != nil {
		return nil, fmt.Errorf("unmarshal moves_san: %w", err)
	}
	return &duel, nil
}

func (r *repository) GetRecentDuels(ctx context.Context, limit int) ([]*domain.DuelGame, error) {
	if limit <= 0 {
		limit = 10
	}
	const query = `
		SELECT` + duelColumns + `
		FROM duel_games
		ORDER BY ended_at DESC
		LIMIT $1`

	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("select duels: %w", err)
	}
	defer rows.Close()

	duels := make([]*domain.DuelGame, 0, limit)
	for rows.Next() {
		duel, err := scanDuel(rows)
		if err != nil {
			return nil, fmt.Errorf("scan duel: %w", err)
		}
		duels = append(duels, duel)
	}
	return duels, rows.Err()
}

func (r *repository) GetDuel(ctx context.Context, id int64) (*domain.DuelGame, error) {
	const query = `
		SELECT` + duelColumns + `
		FROM duel_games
		WHERE id = $1`

	duel, err := scanDuel(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("select duel: %w", err)
	}
	return duel, nil
}

func (r *repository) GetDuelBySession(ctx context.Context, sessionKey string) (*domain.DuelGame, error) {
	const query = `
		SELECT` + duelColumns + `
		FROM duel_games
		WHERE session_key = $1
		ORDER BY ended_at DESC
		LIMIT 1`

	duel, err := scanDuel(r.db.QueryRowContext(ctx, query, sessionKey))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("select duel by session: %w", err)
	}
	return duel, nil
}

func (r *repository) Stats(ctx context.Context) ([]*domain.DuelStats, error) {
	const query = `
		SELECT
			mode,
			COUNT(*) AS games,
			COUNT(*) FILTER (WHERE result = 'white') AS human_wins,
			COUNT(*) FILTER (WHERE result = 'black') AS ai_wins,
			COUNT(*) FILTER (WHERE result = 'draw') AS draws,
			COUNT(*) FILTER (WHERE result_method = 'forfeit') AS forfeits,
			COALESCE(AVG(jsonb_array_length(moves_uci)), 0) AS avg_moves,
			MAX(ended_at) AS last_finished
		FROM duel_games
		GROUP BY mode
		ORDER BY mode`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("select duel stats: %w", err)
	}
	defer rows.Close()

	stats := make([]*domain.DuelStats, 0, 2)
	for rows.Next() {
		var s domain.DuelStats
		if err := rows.Scan(
			&s.Mode,
			&s.Games,
			&s.HumanWins,
			&s.AIWins,
			&s.Draws,
			&s.Forfeits,
			&s.AvgMoves,
			&s.LastFinished,
		); err != nil {
			return nil, fmt.Errorf("scan duel stats: %w", err)
		}
		stats = append(stats, &s)
	}
	return stats, rows.Err()
}
