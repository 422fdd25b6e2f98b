package dueldto

import "time"

// DuelRecord is the wire form of one archived duel.
type DuelRecord struct {
	ID           int64     `json:"id"`
	SessionKey   string    `json:"session_key"`
	Mode         string    `json:"mode"`
	Result       string    `json:"result"`
	ResultMethod string    `json:"result_method"`
	MovesUCI     []string  `json:"moves_uci"`
	MovesSAN     []string  `json:"moves_san"`
	PGN          string    `json:"pgn"`
	InvalidMoves int       `json:"invalid_moves"`
	StartedAt    time.Time `json:"started_at"`
	EndedAt      time.Time `json:"ended_at"`
	DurationMS   int64     `json:"duration_ms"`
}

type DuelStats struct {
	Mode         string    `json:"mode"`
	Games        int       `json:"games"`
	HumanWins    int       `json:"human_wins"`
	AIWins       int       `json:"ai_wins"`
	Draws        int       `json:"draws"`
	Forfeits     int       `json:"forfeits"`
	AvgMoves     float64   `json:"avg_moves"`
	LastFinished time.Time `json:"last_finished"`
}
