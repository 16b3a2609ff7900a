package engine

import (
	"errors"
	"fmt"
	"sort"

	"github.com/ericogr/skirmish/internal/game"
	"github.com/ericogr/skirmish/internal/refdata"
)

var (
	ErrMissingAction   = errors.New("turn is missing an action for a side")
	ErrDuplicateAction = errors.New("turn has more than one action for a side")
	ErrNoActiveMember  = errors.New("side has no active member to act")
)

// Non-combat actions resolve before every move, in this order: forfeit,
// flee, switch, item. Ordering checks the kind first, so a move priority
// out of the catalog's range still cannot overtake them.
const (
	tierForfeit = 100
	tierFlee    = 99
	tierSwitch  = 98
	tierItem    = 97
)

// Resolver orders a turn's actions and applies their effects.
type Resolver struct {
	ref refdata.Provider
}

func NewResolver(ref refdata.Provider) *Resolver {
	return &Resolver{ref: ref}
}

// Priority returns the ordering tier of an action.
func (r *Resolver) Priority(a game.Action) (int, error) {
	switch a.Kind {
	case game.ActionForfeit:
		return tierForfeit, nil
	case game.ActionFlee:
		return tierFlee, nil
	case game.ActionSwitch:
		return tierSwitch, nil
	case game.ActionItem:
		return tierItem, nil
	case game.ActionPass:
		return 0, nil
	case game.ActionAttack:
		mv, err := r.ref.Move(a.MoveID)
		if err != nil {
			return 0, err
		}
		return mv.Priority, nil
	}
	return 0, fmt.Errorf("unknown action kind %q", a.Kind)
}

type plannedAction struct {
	action    game.Action
	nonCombat bool
	priority  int
	speed     int
}

func nonCombat(k game.ActionKind) bool {
	switch k {
	case game.ActionForfeit, game.ActionFlee, game.ActionSwitch, game.ActionItem:
		return true
	}
	return false
}

// NewTurn binds every action to its acting and targeted members and orders
// them: non-combat actions first, then priority tier (highest first), then
// the acting member's effective speed (highest first), then submission
// sequence (lowest first).
func (r *Resolver) NewTurn(b *game.Battle, actions []game.Action) (*game.TurnCursor, error) {
	seen := make(map[game.SideID]bool, len(b.Sides))
	plans := make([]plannedAction, 0, len(actions))
	for _, a := range actions {
		side := b.Side(a.Side)
		if side == nil {
			return nil, fmt.Errorf("action for unknown side %q", a.Side)
		}
		if seen[a.Side] {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateAction, a.Side)
		}
		seen[a.Side] = true
		actor := findActive(side)
		if actor == nil {
			return nil, fmt.Errorf("%w: %s", ErrNoActiveMember, a.Side)
		}
		opp := b.Side(a.Side.Opponent())
		if opp == nil {
			return nil, fmt.Errorf("side %q has no opponent", a.Side)
		}
		a.Actor = side.Active
		a.TargetMember = opp.Active
		prio, err := r.Priority(a)
		if err != nil {
			return nil, err
		}
		plans = append(plans, plannedAction{
			action:    a,
			nonCombat: nonCombat(a.Kind),
			priority:  prio,
			speed:     speedWithModifiers(actor),
		})
	}
	for i := range b.Sides {
		if !seen[b.Sides[i].ID] {
			return nil, fmt.Errorf("%w: %s", ErrMissingAction, b.Sides[i].ID)
		}
	}

	sort.SliceStable(plans, func(i, j int) bool {
		if plans[i].nonCombat != plans[j].nonCombat {
			return plans[i].nonCombat
		}
		if plans[i].priority != plans[j].priority {
			return plans[i].priority > plans[j].priority
		}
		if plans[i].speed != plans[j].speed {
			return plans[i].speed > plans[j].speed
		}
		return plans[i].action.Seq < plans[j].action.Seq
	})

	cur := &game.TurnCursor{Turn: b.Turn, Stage: game.StageActions, Queue: make([]game.Action, len(plans))}
	for i := range plans {
		cur.Queue[i] = plans[i].action
	}
	return cur, nil
}
