package battle

import (
	"errors"
	"fmt"
)

// ReasonCode is the stable, machine-readable reason attached to a rejected
// submission or an abnormal end.
type ReasonCode string

const (
	ReasonNotYourTurn         ReasonCode = "not_your_turn"
	ReasonAlreadySubmitted    ReasonCode = "already_submitted"
	ReasonUnknownMove         ReasonCode = "unknown_move"
	ReasonNoPP                ReasonCode = "no_pp"
	ReasonInvalidTarget       ReasonCode = "invalid_target"
	ReasonInvalidSwitch       ReasonCode = "invalid_switch"
	ReasonSwitchToFainted     ReasonCode = "switch_to_fainted"
	ReasonSwitchToActive      ReasonCode = "switch_to_active"
	ReasonCannotFlee          ReasonCode = "cannot_flee"
	ReasonUnknownItem         ReasonCode = "unknown_item"
	ReasonBattleEnded         ReasonCode = "battle_ended"
	ReasonResolving           ReasonCode = "resolving"
	ReasonForcedSwitchPending ReasonCode = "forced_switch_pending"
	ReasonStaleTurn           ReasonCode = "stale_turn"
	ReasonUnknownSide         ReasonCode = "unknown_side"
	ReasonInvalidAction       ReasonCode = "invalid_action"
	ReasonInvalidConfig       ReasonCode = "invalid_config"
	ReasonTurnTimeout         ReasonCode = "turn_timeout"
	ReasonSwitchTimeout       ReasonCode = "switch_timeout"
	ReasonInvariant           ReasonCode = "invariant_violation"
)

// ValidationError reports a malformed or illegal action or configuration.
// Nothing was mutated.
type ValidationError struct {
	Reason ReasonCode
	Detail string
}

func (e *ValidationError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("validation failed: %s", e.Reason)
	}
	return fmt.Sprintf("validation failed: %s: %s", e.Reason, e.Detail)
}

// PhaseError reports input the engine does not accept in its current
// phase. Nothing was mutated.
type PhaseError struct {
	Reason ReasonCode
	Phase  string
}

func (e *PhaseError) Error() string {
	return fmt.Sprintf("not accepted in phase %s: %s", e.Phase, e.Reason)
}

// TimeoutError describes a deadline that elapsed. It is informational: the
// engine substitutes a default and keeps going.
type TimeoutError struct {
	Reason ReasonCode
	Side   string
	Turn   int
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("%s for side %s on turn %d", e.Reason, e.Side, e.Turn)
}

// FatalError is an internal invariant violation. The battle it happened in
// has ended with outcome errored.
type FatalError struct {
	BattleID string
	Reason   ReasonCode
	Err      error
}

func (e *FatalError) Error() string {
	return fmt.Sprintf("battle %s failed: %s: %v", e.BattleID, e.Reason, e.Err)
}

func (e *FatalError) Unwrap() error { return e.Err }

// Reason extracts the reason code from any of the battle error types.
func Reason(err error) ReasonCode {
	var ve *ValidationError
	var pe *PhaseError
	var te *TimeoutError
	var fe *FatalError
	switch {
	case errors.As(err, &ve):
		return ve.Reason
	case errors.As(err, &pe):
		return pe.Reason
	case errors.As(err, &te):
		return te.Reason
	case errors.As(err, &fe):
		return fe.Reason
	}
	return ""
}

func invalid(reason ReasonCode, format string, args ...any) *ValidationError {
	return &ValidationError{Reason: reason, Detail: fmt.Sprintf(format, args...)}
}
