package gateway

import (
	"fmt"

	nchess "github.com/corentings/chess/v2"

	"github.com/hyeon-dev/chessduel/internal/domain"
	"github.com/hyeon-dev/chessduel/internal/duel"
	"github.com/hyeon-dev/chessduel/pkg/dueldto"
)

func toSessionView(snap duel.Snapshot) *dueldto.SessionView {
	return &dueldto.SessionView{
		ID:    snap.ID,
		Mode:  string(snap.Mode),
		FEN:   snap.FEN,
		Turn:  duel.ColorName(snap.Turn),
		Phase: string(snap.Phase),
		Status: dueldto.Status{
			State:  string(snap.Status.State),
			Winner: duel.ColorName(snap.Status.Winner),
			Reason: snap.Status.Reason,
		},
		MovesUCI:    append(make([]string, 0, len(snap.MovesUCI)), snap.MovesUCI...),
		MovesSAN:    append(make([]string, 0, len(snap.MovesSAN)), snap.MovesSAN...),
		LastMoveUCI: snap.LastMoveUCI,
		MoveCount:   len(snap.MovesUCI),
		Material: dueldto.MaterialScore{
			White: snap.Material.White,
			Black: snap.Material.Black,
			Diff:  snap.Material.Diff(),
		},
		Captured: dueldto.CapturedPieces{
			White: toPieceTokenList(snap.Captured.WhiteOrder),
			Black: toPieceTokenList(snap.Captured.BlackOrder),
		},
		InvalidMoves: snap.InvalidMoves,
		Thinking:     snap.Thinking,
		StartedAt:    snap.StartedAt,
		UpdatedAt:    snap.UpdatedAt,
	}
}

func toPieceTokenList(list []nchess.PieceType) []string {
	tokens := make([]string, 0, len(list))
	for _, pt := range list {
		tokens = append(tokens, pieceTypeToToken(pt))
	}
	return tokens
}

func pieceTypeToToken(pt nchess.PieceType) string {
	switch pt {
	case nchess.Queen:
		return "queen"
	case nchess.Rook:
		return "rook"
	case nchess.Bishop:
		return "bishop"
	case nchess.Knight:
		return "knight"
	case nchess.Pawn:
		return "pawn"
	case nchess.King:
		return "king"
	default:
		return ""
	}
}

func toDuelRecord(d *domain.DuelGame) *dueldto.DuelRecord {
	if d == nil {
		return nil
	}
	return &dueldto.DuelRecord{
		ID:           d.ID,
		SessionKey:   d.SessionKey,
		Mode:         d.Mode,
		Result:       d.Result,
		ResultMethod: d.ResultMethod,
		MovesUCI:     append(make([]string, 0, len(d.MovesUCI)), d.MovesUCI...),
		MovesSAN:     append(make([]string, 0, len(d.MovesSAN)), d.MovesSAN...),
		PGN:          d.PGN,
		InvalidMoves: d.InvalidMoves,
		StartedAt:    d.StartedAt,
		EndedAt:      d.EndedAt,
		DurationMS:   d.Duration.Milliseconds(),
	}
}

func toDuelStats(s *domain.DuelStats) *dueldto.DuelStats {
	if s == nil {
		return nil
	}
	return &dueldto.DuelStats{
		Mode:         s.Mode,
		Games:        s.Games,
		HumanWins:    s.HumanWins,
		AIWins:       s.AIWins,
		Draws:        s.Draws,
		Forfeits:     s.Forfeits,
		AvgMoves:     s.AvgMoves,
		LastFinished: s.LastFinished,
	}
}

// boardHeader is the one-line caption painted above the rendered board.
func boardHeader(snap duel.Snapshot) string {
	if snap.Status.Terminal() {
		switch {
		case snap.Status.Reason != "":
			return fmt.Sprintf("%s: %s", snap.Status.State, snap.Status.Reason)
		case snap.Status.Winner != nchess.NoColor:
			return fmt.Sprintf("%s: %s wins", snap.Status.State, duel.ColorName(snap.Status.Winner))
		default:
			return string(snap.Status.State)
		}
	}
	header := fmt.Sprintf("%s to move", duel.ColorName(snap.Turn))
	if diff := snap.Material.Diff(); diff != 0 {
		header = fmt.Sprintf("%s | material %+d", header, diff)
	}
	return header
}

// lastMoveSquares parses the trailing UCI move into board squares for the
// renderer highlight. Returns ok=false when there is no last move.
func lastMoveSquares(uci string) (from, to nchess.Square, ok bool) {
	if len(uci) < 4 {
		return 0, 0, false
	}
	parse := func(s string) (nchess.Square, bool) {
		if len(s) != 2 || s[0] < 'a' || s[0] > 'h' || s[1] < '1' || s[1] > '8' {
			return 0, false
		}
		return nchess.NewSquare(nchess.File(s[0]-'a'), nchess.Rank(s[1]-'1')), true
	}
	f, okF := parse(uci[0:2])
	t, okT := parse(uci[2:4])
	if !okF || !okT {
		return 0, 0, false
	}
	return f, t, true
}
