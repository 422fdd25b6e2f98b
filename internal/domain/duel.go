package domain

import "time"

// DuelGame is the archive record of one finished duel. SessionKey is the
// session ID qualified by generation, so a reset session archives each of its
// games separately.
type DuelGame struct {
	ID           int64
	SessionKey   string
	Mode         string
	Result       string
	ResultMethod string
	MovesUCI     []string
	MovesSAN     []string
	PGN          string
	InvalidMoves int
	StartedAt    time.Time
	EndedAt      time.Time
	Duration     time.Duration
}

// DuelStats aggregates archived duels for one opponent mode.
type DuelStats struct {
	Mode         string
	Games        int
	HumanWins    int
	AIWins       int
	Draws        int
	Forfeits     int
	AvgMoves     float64
	LastFinished time.Time
}
