package duel

import (
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	nchess "github.com/corentings/chess/v2"
)

// session is one live duel. All mutable fields are guarded by mu except
// thinking, which stays readable lock-free while a negotiation is suspended.
type session struct {
	mu sync.Mutex

	id   string
	mode OpponentMode

	game     *nchess.Game
	movesUCI []string
	movesSAN []string

	invalidMoves int
	override     *Status

	generation  uint64
	negotiating bool
	thinking    atomic.Bool

	startedAt time.Time
	updatedAt time.Time
}

func newSession(id string, mode OpponentMode) *session {
	now := time.Now()
	return &session{
		id:        id,
		mode:      mode,
		game:      nchess.NewGame(),
		startedAt: now,
		updatedAt: now,
	}
}

// resetLocked discards the session state wholesale and starts a new
// generation. Negotiations issued against the old generation see the mismatch
// on completion and drop their result.
func (s *session) resetLocked() {
	s.generation++
	s.game = nchess.NewGame()
	s.movesUCI = nil
	s.movesSAN = nil
	s.invalidMoves = 0
	s.override = nil
	s.negotiating = false
	s.thinking.Store(false)
	now := time.Now()
	s.startedAt = now
	s.updatedAt = now
}

func (s *session) statusLocked() Status {
	return resolveStatus(statusSignalsFrom(s.game, s.override))
}

// applyMoveLocked records one accepted half-move. The move must come from the
// current position's legal set.
func (s *session) applyMoveLocked(mv *nchess.Move) error {
	san := nchess.AlgebraicNotation{}.Encode(s.game.Position(), mv)
	uci := strings.ToLower(mv.String())
	if err := s.game.Move(mv, nil); err != nil {
		return fmt.Errorf("apply move %s: %w", uci, err)
	}
	s.movesUCI = append(s.movesUCI, uci)
	s.movesSAN = append(s.movesSAN, san)
	s.updatedAt = time.Now()
	return nil
}

func (s *session) snapshotLocked() Snapshot {
	st := s.statusLocked()
	material, captured := computeMaterial(s.game)
	snap := Snapshot{
		ID:           s.id,
		Mode:         s.mode,
		FEN:          s.game.FEN(),
		Turn:         s.game.Position().Turn(),
		Status:       st,
		MovesUCI:     append([]string(nil), s.movesUCI...),
		MovesSAN:     append([]string(nil), s.movesSAN...),
		InvalidMoves: s.invalidMoves,
		Material:     material,
		Captured:     captured,
		Thinking:     s.thinking.Load(),
		Generation:   s.generation,
		StartedAt:    s.startedAt,
		UpdatedAt:    s.updatedAt,
	}
	if len(snap.MovesUCI) > 0 {
		snap.LastMoveUCI = snap.MovesUCI[len(snap.MovesUCI)-1]
	}
	switch {
	case st.Terminal():
		snap.Phase = PhaseTerminal
	case snap.Turn == HumanColor:
		snap.Phase = PhaseWaitingForHuman
	default:
		snap.Phase = PhaseWaitingForAutomated
	}
	return snap
}

// replayMoves rebuilds a game by applying stored moves from the start.
// Stored positions are never trusted directly.
func replayMoves(moves []string) (*nchess.Game, error) {
	game := nchess.NewGame()
	notation := nchess.UCINotation{}
	for _, raw := range moves {
		mv, err := notation.Decode(game.Position(), strings.ToLower(strings.TrimSpace(raw)))
		if err != nil {
			return nil, fmt.Errorf("decode move %s: %w", raw, err)
		}
		if err := game.Move(mv, nil); err != nil {
			return nil, fmt.Errorf("apply move %s: %w", raw, err)
		}
	}
	return game, nil
}

// sanHistory re-encodes the applied moves in algebraic notation.
func sanHistory(game *nchess.Game) []string {
	positions := game.Positions()
	moves := game.Moves()
	san := make([]string, 0, len(moves))
	notation := nchess.AlgebraicNotation{}
	for i, mv := range moves {
		if i >= len(positions) {
			break
		}
		san = append(san, notation.Encode(positions[i], mv))
	}
	return san
}

// movesFromTo returns the legal moves matching a from/to square pair in the
// current position. Promotion variants all match.
func movesFromTo(game *nchess.Game, from, to string) []*nchess.Move {
	var out []*nchess.Move
	valid := game.ValidMoves()
	for i := range valid {
		uci := strings.ToLower(valid[i].String())
		if len(uci) < 4 {
			continue
		}
		if uci[:2] == from && uci[2:4] == to {
			out = append(out, &valid[i])
		}
	}
	return out
}

// matchHumanMove resolves a human from/to pair against the legal set.
// Promotions always resolve to the queen variant no matter what the caller
// asked for.
func matchHumanMove(game *nchess.Game, m Move) *nchess.Move {
	norm := m.normalized()
	candidates := movesFromTo(game, norm.From, norm.To)
	if len(candidates) == 0 {
		return nil
	}
	if len(candidates) == 1 {
		return candidates[0]
	}
	for _, mv := range candidates {
		if strings.HasSuffix(strings.ToLower(mv.String()), "q") {
			return mv
		}
	}
	return candidates[0]
}

// legalMoveStrings enumerates the current legal set in coordinate form, the
// shape offered to the provider.
func legalMoveStrings(game *nchess.Game) []string {
	valid := game.ValidMoves()
	out := make([]string, 0, len(valid))
	for i := range valid {
		out = append(out, strings.ToLower(valid[i].String()))
	}
	return out
}
