package battle

import (
	"errors"

	"github.com/ericogr/skirmish/internal/game"
	"github.com/ericogr/skirmish/internal/keys"
	"github.com/ericogr/skirmish/internal/team"
)

func validateConfig(cfg Config) error {
	if cfg.Type != game.BattleWild && cfg.Type != game.BattleTrainer {
		return invalid(ReasonInvalidConfig, "unknown battle type %q", cfg.Type)
	}
	if err := cfg.Profile.Validate(); err != nil {
		return invalid(ReasonInvalidConfig, "%v", err)
	}
	if cfg.TurnTimeout <= 0 || cfg.SwitchTimeout <= 0 {
		return invalid(ReasonInvalidConfig, "timeouts must be positive")
	}
	if !cfg.TimeoutPolicy.Valid() {
		return invalid(ReasonInvalidConfig, "unknown timeout policy %q", cfg.TimeoutPolicy)
	}
	humans := 0
	for _, sc := range []SideConfig{cfg.SideA, cfg.SideB} {
		if err := validateSide(sc); err != nil {
			return err
		}
		if sc.Controller == game.ControllerHuman {
			humans++
		}
	}
	if humans == 0 {
		return invalid(ReasonInvalidConfig, "at least one side must be human controlled")
	}
	return nil
}

func validateSide(sc SideConfig) error {
	if sc.Controller != game.ControllerHuman && sc.Controller != game.ControllerAI {
		return invalid(ReasonInvalidConfig, "unknown controller %q", sc.Controller)
	}
	if len(sc.Members) == 0 || len(sc.Members) > game.MaxRosterSize {
		return invalid(ReasonInvalidConfig, "roster must have 1 to %d members", game.MaxRosterSize)
	}
	alive := 0
	for i := range sc.Members {
		m := &sc.Members[i]
		if m.MaxHP() <= 0 || m.CurrentHP < 0 || m.CurrentHP > m.MaxHP() {
			return invalid(ReasonInvalidConfig, "member %d health out of bounds", i)
		}
		if !m.Status.Valid() {
			return invalid(ReasonInvalidConfig, "member %d has unknown status %q", i, m.Status)
		}
		if len(m.Moves) == 0 {
			return invalid(ReasonInvalidConfig, "member %d has no moves", i)
		}
		if !m.Fainted() {
			alive++
		}
	}
	if alive == 0 {
		return invalid(ReasonInvalidConfig, "side %q has no able members", sc.Name)
	}
	if sc.Active < 0 || sc.Active >= len(sc.Members) || sc.Members[sc.Active].Fainted() {
		return invalid(ReasonInvalidConfig, "side %q active member must be able to fight", sc.Name)
	}
	return nil
}

// normalize canonicalizes ids so validation and resolution agree.
func normalize(a game.Action) game.Action {
	if a.MoveID != "" {
		a.MoveID = keys.Normalize(a.MoveID)
	}
	if a.ItemID != "" {
		a.ItemID = keys.Normalize(a.ItemID)
	}
	return a
}

// validateAction checks an awaiting_actions submission against the side's
// current state. It never mutates.
func (e *Engine) validateAction(side *game.Side, a game.Action) error {
	active := side.ActiveMember()
	if active == nil || active.Fainted() {
		return invalid(ReasonForcedSwitchPending, "side has no able active member")
	}
	switch a.Kind {
	case game.ActionAttack:
		if a.MoveID == game.StruggleMoveID {
			if !active.OutOfPP() {
				return invalid(ReasonUnknownMove, "struggle is only available without PP")
			}
			return nil
		}
		slot := active.Slot(a.MoveID)
		if slot == nil {
			return invalid(ReasonUnknownMove, "%q is not a move of the active member", a.MoveID)
		}
		if _, err := e.ref.Move(a.MoveID); err != nil {
			return invalid(ReasonUnknownMove, "%q: %v", a.MoveID, err)
		}
		if slot.PP <= 0 {
			return invalid(ReasonNoPP, "%q has no PP left", a.MoveID)
		}
	case game.ActionSwitch:
		if err := team.ValidateSwitch(side, side.Active, a.SwitchTo); err != nil {
			return switchError(err)
		}
	case game.ActionItem:
		if _, err := e.ref.Item(a.ItemID); err != nil {
			return invalid(ReasonUnknownItem, "%q", a.ItemID)
		}
		if a.Target < 0 || a.Target >= len(side.Members) || side.Members[a.Target].Fainted() {
			return invalid(ReasonInvalidTarget, "item target %d", a.Target)
		}
	case game.ActionFlee:
		if e.b.Type != game.BattleWild {
			return invalid(ReasonCannotFlee, "only wild battles allow fleeing")
		}
	case game.ActionForfeit, game.ActionPass:
	default:
		return invalid(ReasonInvalidAction, "unknown action kind %q", a.Kind)
	}
	return nil
}

func switchError(err error) *ValidationError {
	switch {
	case errors.Is(err, team.ErrSwitchToFainted):
		return invalid(ReasonSwitchToFainted, "%v", err)
	case errors.Is(err, team.ErrSwitchToActive):
		return invalid(ReasonSwitchToActive, "%v", err)
	}
	return invalid(ReasonInvalidSwitch, "%v", err)
}

// checkInvariants verifies health bounds and active indices after every
// resolution step.
func checkInvariants(b *game.Battle) error {
	for i := range b.Sides {
		s := &b.Sides[i]
		if s.Active < 0 || s.Active >= len(s.Members) {
			return errors.New("active index out of range for side " + string(s.ID))
		}
		for j := range s.Members {
			m := &s.Members[j]
			if m.CurrentHP < 0 || m.CurrentHP > m.MaxHP() {
				return errors.New("health out of bounds on side " + string(s.ID))
			}
		}
		if s.Members[s.Active].Fainted() && !s.NeedsSwitch && s.AliveCount() > 0 && b.Result == nil {
			return errors.New("fainted active member without a pending replacement on side " + string(s.ID))
		}
	}
	return nil
}
