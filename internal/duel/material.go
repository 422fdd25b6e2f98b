package duel

import (
	nchess "github.com/corentings/chess/v2"
)

var (
	initialPieceCounts = map[nchess.Color]map[nchess.PieceType]int{
		nchess.White: {
			nchess.Pawn:   8,
			nchess.Knight: 2,
			nchess.Bishop: 2,
			nchess.Rook:   2,
			nchess.Queen:  1,
			nchess.King:   1,
		},
		nchess.Black: {
			nchess.Pawn:   8,
			nchess.Knight: 2,
			nchess.Bishop: 2,
			nchess.Rook:   2,
			nchess.Queen:  1,
			nchess.King:   1,
		},
	}
	pieceValues = map[nchess.PieceType]int{
		nchess.Pawn:   1,
		nchess.Knight: 3,
		nchess.Bishop: 3,
		nchess.Rook:   5,
		nchess.Queen:  9,
	}
	materialBase = func() int {
		base := 0
		for pt, count := range initialPieceCounts[nchess.White] {
			base += count * pieceValues[pt]
		}
		return base
	}()
	initialMaterialScore = MaterialScore{White: materialBase, Black: materialBase}
)

// MaterialScore is the summed piece value per side for one board snapshot.
type MaterialScore struct {
	White int `json:"white"`
	Black int `json:"black"`
}

func (m MaterialScore) Diff() int {
	return m.White - m.Black
}

// CapturedValue returns the total value the given side has captured so far.
func (m MaterialScore) CapturedValue(color nchess.Color) int {
	switch color {
	case nchess.White:
		return materialBase - m.Black
	case nchess.Black:
		return materialBase - m.White
	default:
		return 0
	}
}

// InitialMaterialScore returns the starting score for both sides.
func InitialMaterialScore() MaterialScore {
	return initialMaterialScore
}

// CapturedPieces lists what each side has taken. White holds pieces captured
// by White (so Black's losses), in capture order.
type CapturedPieces struct {
	White      map[nchess.PieceType]int
	Black      map[nchess.PieceType]int
	WhiteOrder []nchess.PieceType
	BlackOrder []nchess.PieceType
}

func (c CapturedPieces) IsEmpty() bool {
	return len(c.White) == 0 && len(c.Black) == 0 && len(c.WhiteOrder) == 0 && len(c.BlackOrder) == 0
}

// Recent returns up to limit of the side's captures, most recent first.
func (c CapturedPieces) Recent(color nchess.Color, limit int) []nchess.PieceType {
	if limit <= 0 {
		return nil
	}
	var order []nchess.PieceType
	switch color {
	case nchess.White:
		order = c.WhiteOrder
	case nchess.Black:
		order = c.BlackOrder
	default:
		return nil
	}
	if len(order) == 0 {
		return nil
	}
	start := len(order) - limit
	if start < 0 {
		start = 0
	}
	subset := order[start:]
	result := make([]nchess.PieceType, len(subset))
	for i := range subset {
		result[i] = subset[len(subset)-1-i]
	}
	return result
}

// computeMaterial scans the current board for per-side piece values and
// derives the captured-piece lists from the game's move tags, with counts
// corrected against the initial piece census so promotions do not skew them.
// Pure; safe to call on every accepted move and on reset.
func computeMaterial(game *nchess.Game) (MaterialScore, CapturedPieces) {
	captured := CapturedPieces{
		White:      map[nchess.PieceType]int{},
		Black:      map[nchess.PieceType]int{},
		WhiteOrder: make([]nchess.PieceType, 0),
		BlackOrder: make([]nchess.PieceType, 0),
	}

	if game == nil {
		return initialMaterialScore, captured
	}
	position := game.Position()
	if position == nil {
		return initialMaterialScore, captured
	}

	currentTotals := map[nchess.Color]int{
		nchess.White: 0,
		nchess.Black: 0,
	}
	currentCounts := map[nchess.Color]map[nchess.PieceType]int{
		nchess.White: {},
		nchess.Black: {},
	}

	board := position.Board()
	for file := nchess.FileA; file <= nchess.FileH; file++ {
		for rank := nchess.Rank1; rank <= nchess.Rank8; rank++ {
			piece := board.Piece(nchess.NewSquare(file, rank))
			if piece == nchess.NoPiece {
				continue
			}
			value := pieceValues[piece.Type()]
			if value == 0 {
				continue
			}
			currentTotals[piece.Color()] += value
			currentCounts[piece.Color()][piece.Type()]++
		}
	}

	moves := game.Moves()
	positions := game.Positions()
	for i, mv := range moves {
		if i >= len(positions) {
			break
		}
		if !mv.HasTag(nchess.Capture) && !mv.HasTag(nchess.EnPassant) {
			continue
		}
		pos := positions[i]
		captureSquare := mv.S2()
		if mv.HasTag(nchess.EnPassant) {
			// The captured pawn sits behind the destination square.
			file := mv.S2().File()
			rank := mv.S2().Rank()
			if pos.Turn() == nchess.White {
				captureSquare = nchess.NewSquare(file, rank-1)
			} else {
				captureSquare = nchess.NewSquare(file, rank+1)
			}
		}
		victim := pos.Board().Piece(captureSquare)
		if victim == nchess.NoPiece {
			continue
		}
		pt := victim.Type()
		if pt == nchess.NoPieceType || pt == nchess.King {
			continue
		}
		if pos.Turn() == nchess.White {
			captured.White[pt]++
			captured.WhiteOrder = append(captured.WhiteOrder, pt)
		} else {
			captured.Black[pt]++
			captured.BlackOrder = append(captured.BlackOrder, pt)
		}
	}

	// Census correction: lost = initial - on board, attributed to the
	// opposing side's capture tally.
	for color, initCounts := range initialPieceCounts {
		for pt, initCount := range initCounts {
			if pt == nchess.King {
				continue
			}
			lost := initCount - currentCounts[color][pt]
			if lost <= 0 {
				continue
			}
			if color == nchess.White {
				captured.Black[pt] = lost
			} else {
				captured.White[pt] = lost
			}
		}
	}

	score := MaterialScore{
		White: currentTotals[nchess.White],
		Black: currentTotals[nchess.Black],
	}
	return score, captured
}
