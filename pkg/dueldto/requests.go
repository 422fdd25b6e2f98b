package dueldto

type CreateDuelRequest struct {
	Mode string `json:"mode,omitempty"`
}

type PlayMoveRequest struct {
	From      string `json:"from"`
	To        string `json:"to"`
	Promotion string `json:"promotion,omitempty"`
}

type HintResponse struct {
	Hint string `json:"hint"`
}

// EventFrame is one WebSocket message on the duel event stream.
type EventFrame struct {
	Type    string       `json:"type"`
	Session *SessionView `json:"session"`
}
