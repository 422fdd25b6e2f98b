// Package provider talks to an OpenAI-style chat-completions API that plays
// the automated side of a duel. The negotiation path is strictly one-shot;
// only the presentational hint path retries.
package provider

// MoveRequest carries everything the model needs to pick a move.
type MoveRequest struct {
	FEN        string
	SideToMove string
	LegalMoves []string
}

// MoveProposal is the provider's structured answer. Promotion is a piece
// letter (q, r, b, n) and may be empty.
type MoveProposal struct {
	From      string `json:"from"`
	To        string `json:"to"`
	Promotion string `json:"promotion,omitempty"`
}

// HintRequest asks for a single move token in standard notation.
type HintRequest struct {
	FEN        string
	SideToMove string
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message      chatMessage `json:"message"`
		FinishReason string      `json:"finish_reason"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error,omitempty"`
}
