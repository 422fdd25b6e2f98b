package duel

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// sessionPayload is the stored shape of one session. Moves are the source of
// truth; the board is rebuilt by replay on load.
type sessionPayload struct {
	ID           string    `json:"id"`
	Mode         string    `json:"mode"`
	MovesUCI     []string  `json:"moves_uci"`
	InvalidMoves int       `json:"invalid_moves"`
	Override     *Status   `json:"override,omitempty"`
	Generation   uint64    `json:"generation"`
	StartedAt    time.Time `json:"started_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Store keeps live sessions in redis so a restarted process can pick them up.
type Store struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewStore(rdb *redis.Client, ttl time.Duration) (*Store, error) {
	if rdb == nil {
		return nil, fmt.Errorf("redis client is required")
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Store{rdb: rdb, ttl: ttl}, nil
}

func sessionKey(id string) string { return "duel:sess:" + strings.TrimSpace(id) }

func (s *Store) save(ctx context.Context, p sessionPayload) error {
	raw, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshal session %s: %w", p.ID, err)
	}
	if err := s.rdb.Set(ctx, sessionKey(p.ID), raw, s.ttl).Err(); err != nil {
		return fmt.Errorf("save session %s: %w", p.ID, err)
	}
	return nil
}

func (s *Store) load(ctx context.Context, id string) (sessionPayload, error) {
	raw, err := s.rdb.Get(ctx, sessionKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return sessionPayload{}, ErrSessionNotFound
	}
	if err != nil {
		return sessionPayload{}, fmt.Errorf("load session %s: %w", id, err)
	}
	var p sessionPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return sessionPayload{}, fmt.Errorf("decode session %s: %w", id, err)
	}
	return p, nil
}

func (s *Store) delete(ctx context.Context, id string) error {
	return s.rdb.Del(ctx, sessionKey(id)).Err()
}

// payloadLocked captures the persistent view of a session.
func (s *session) payloadLocked() sessionPayload {
	return sessionPayload{
		ID:           s.id,
		Mode:         string(s.mode),
		MovesUCI:     append([]string(nil), s.movesUCI...),
		InvalidMoves: s.invalidMoves,
		Override:     s.override,
		Generation:   s.generation,
		StartedAt:    s.startedAt,
		UpdatedAt:    s.updatedAt,
	}
}

// sessionFromPayload rebuilds a session by replaying its stored moves.
func sessionFromPayload(p sessionPayload) (*session, error) {
	game, err := replayMoves(p.MovesUCI)
	if err != nil {
		return nil, fmt.Errorf("restore session %s: %w", p.ID, err)
	}
	claimEligibleDraws(game)
	sess := &session{
		id:           p.ID,
		mode:         OpponentMode(p.Mode),
		game:         game,
		movesUCI:     append([]string(nil), p.MovesUCI...),
		movesSAN:     sanHistory(game),
		invalidMoves: p.InvalidMoves,
		override:     p.Override,
		generation:   p.Generation,
		startedAt:    p.StartedAt,
		updatedAt:    p.UpdatedAt,
	}
	return sess, nil
}
