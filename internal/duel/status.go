package duel

import (
	nchess "github.com/corentings/chess/v2"
)

// statusSignals are the inputs to status resolution, kept explicit so the
// precedence rules can be exercised without a live game.
type statusSignals struct {
	override  *Status
	outcome   nchess.Outcome
	method    nchess.Method
	threefold bool
}

// resolveStatus merges a manual override with engine-reported terminal
// conditions. Precedence: override, then checkmate, stalemate, draw with
// reason order threefold repetition > insufficient material > generic draw,
// otherwise in progress.
func resolveStatus(sig statusSignals) Status {
	if sig.override != nil {
		return *sig.override
	}
	switch sig.method {
	case nchess.Checkmate:
		return Status{State: StateCheckmate, Winner: winnerFromOutcome(sig.outcome)}
	case nchess.Stalemate:
		return Status{State: StateStalemate}
	}
	if sig.outcome == nchess.Draw || sig.threefold {
		switch {
		case sig.threefold, sig.method == nchess.ThreefoldRepetition, sig.method == nchess.FivefoldRepetition:
			return Status{State: StateDraw, Reason: ReasonThreefold}
		case sig.method == nchess.InsufficientMaterial:
			return Status{State: StateDraw, Reason: ReasonInsufficient}
		default:
			return Status{State: StateDraw, Reason: ReasonDraw}
		}
	}
	return Status{State: StateInProgress}
}

// statusSignalsFrom extracts resolution inputs from a live game. The
// threefold flag also reflects a still-unclaimed repetition so reads between
// apply and claim stay consistent.
func statusSignalsFrom(game *nchess.Game, override *Status) statusSignals {
	sig := statusSignals{override: override}
	if game == nil {
		return sig
	}
	sig.outcome = game.Outcome()
	sig.method = game.Method()
	for _, m := range game.EligibleDraws() {
		if m == nchess.ThreefoldRepetition {
			sig.threefold = true
			break
		}
	}
	return sig
}

func winnerFromOutcome(outcome nchess.Outcome) nchess.Color {
	switch outcome {
	case nchess.WhiteWon:
		return nchess.White
	case nchess.BlackWon:
		return nchess.Black
	default:
		return nchess.NoColor
	}
}

// claimEligibleDraws converts a claimable repetition or fifty-move state into
// a declared draw, preferring the repetition claim. The five-fold and
// seventy-five-move variants are declared by the engine on its own.
func claimEligibleDraws(game *nchess.Game) {
	if game == nil || game.Outcome() != nchess.NoOutcome {
		return
	}
	claim := nchess.NoMethod
	for _, m := range game.EligibleDraws() {
		if m == nchess.ThreefoldRepetition {
			claim = m
			break
		}
		if m == nchess.FiftyMoveRule {
			claim = m
		}
	}
	if claim != nchess.NoMethod {
		_ = game.Draw(claim)
	}
}
