package duel

import (
	"errors"
	"strings"
	"time"

	nchess "github.com/corentings/chess/v2"
)

var (
	ErrSessionNotFound = errors.New("duel session not found")
	ErrSessionFinished = errors.New("duel session already finished")
	ErrNotYourTurn     = errors.New("not the human side's turn")
	ErrIllegalMove     = errors.New("illegal move")
	ErrProviderFailed  = errors.New("ai provider request failed")
	ErrIllegalProposal = errors.New("ai proposal rejected as illegal")
	ErrNoProvider      = errors.New("ai provider not configured")
	ErrHintUnavailable = errors.New("hint unavailable")
	ErrClosed          = errors.New("controller closed")
)

const (
	DefaultMaxGameMoves    = 200
	DefaultMaxInvalidMoves = 3
)

// Forced-status reasons exposed to clients verbatim.
const (
	ReasonForfeit      = "AI forfeited after too many invalid moves"
	ReasonMoveCap      = "Max moves reached"
	ReasonThreefold    = "Threefold Repetition"
	ReasonInsufficient = "Insufficient Material"
	ReasonDraw         = "Draw"
)

// The human always plays White; the automated side answers as Black.
const (
	HumanColor = nchess.White
	AIColor    = nchess.Black
)

// OpponentMode selects how the automated side picks its moves.
type OpponentMode string

const (
	// ModeProvider negotiates each move with the external AI provider.
	ModeProvider OpponentMode = "provider"
	// ModeRandom skips the provider and plays uniformly at random.
	ModeRandom OpponentMode = "random"
)

// StateKind discriminates the active Status variant.
type StateKind string

const (
	StateInProgress StateKind = "in_progress"
	StateCheckmate  StateKind = "checkmate"
	StateStalemate  StateKind = "stalemate"
	StateDraw       StateKind = "draw"
	StateForfeit    StateKind = "forfeit"
)

// Status is the resolved game status. Winner is meaningful for checkmate and
// forfeit, Reason for draw and forfeit; exactly one variant is active.
type Status struct {
	State  StateKind    `json:"state"`
	Winner nchess.Color `json:"winner,omitempty"`
	Reason string       `json:"reason,omitempty"`
}

// Terminal reports whether the status ends the session.
func (s Status) Terminal() bool { return s.State != StateInProgress }

// Move is a from/to square pair in coordinate notation with an optional
// promotion piece letter (q, r, b, n).
type Move struct {
	From      string
	To        string
	Promotion string
}

func (m Move) normalized() Move {
	return Move{
		From:      strings.ToLower(strings.TrimSpace(m.From)),
		To:        strings.ToLower(strings.TrimSpace(m.To)),
		Promotion: strings.ToLower(strings.TrimSpace(m.Promotion)),
	}
}

// Phase is the controller-visible turn state of a session.
type Phase string

const (
	PhaseWaitingForHuman     Phase = "waiting_for_human"
	PhaseWaitingForAutomated Phase = "waiting_for_automated"
	PhaseTerminal            Phase = "terminal"
)

// Limits are the hard session caps, constant for a session's lifetime.
// MaxGameMoves counts half-moves.
type Limits struct {
	MaxGameMoves    int
	MaxInvalidMoves int
}

func (l Limits) withDefaults() Limits {
	if l.MaxGameMoves <= 0 {
		l.MaxGameMoves = DefaultMaxGameMoves
	}
	if l.MaxInvalidMoves <= 0 {
		l.MaxInvalidMoves = DefaultMaxInvalidMoves
	}
	return l
}

// Snapshot is an immutable copy of session state handed to readers and
// event subscribers.
type Snapshot struct {
	ID           string
	Mode         OpponentMode
	FEN          string
	Turn         nchess.Color
	Phase        Phase
	Status       Status
	MovesUCI     []string
	MovesSAN     []string
	LastMoveUCI  string
	InvalidMoves int
	Material     MaterialScore
	Captured     CapturedPieces
	Thinking     bool
	Generation   uint64
	StartedAt    time.Time
	UpdatedAt    time.Time
}

// ColorName maps an engine color to its lowercase wire name.
func ColorName(c nchess.Color) string {
	switch c {
	case nchess.White:
		return "white"
	case nchess.Black:
		return "black"
	default:
		return ""
	}
}
