package dueldto

import "time"

type MaterialScore struct {
	White int `json:"white"`
	Black int `json:"black"`
	Diff  int `json:"diff"`
}

type CapturedPieces struct {
	White []string `json:"white"`
	Black []string `json:"black"`
}

type Status struct {
	State  string `json:"state"`
	Winner string `json:"winner,omitempty"`
	Reason string `json:"reason,omitempty"`
}

// SessionView is the wire form of a live duel snapshot.
type SessionView struct {
	ID           string         `json:"id"`
	Mode         string         `json:"mode"`
	FEN          string         `json:"fen"`
	Turn         string         `json:"turn"`
	Phase        string         `json:"phase"`
	Status       Status         `json:"status"`
	MovesUCI     []string       `json:"moves_uci"`
	MovesSAN     []string       `json:"moves_san"`
	LastMoveUCI  string         `json:"last_move_uci,omitempty"`
	MoveCount    int            `json:"move_count"`
	InvalidMoves int            `json:"invalid_moves"`
	Material     MaterialScore  `json:"material"`
	Captured     CapturedPieces `json:"captured"`
	Thinking     bool           `json:"thinking"`
	StartedAt    time.Time      `json:"started_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
}
