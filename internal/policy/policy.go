// Package policy picks actions for sides without a human controller.
package policy

import (
	"errors"
	"fmt"
	"hash/fnv"
	"math/rand"
	"sort"

	"github.com/ericogr/skirmish/internal/game"
	"github.com/ericogr/skirmish/internal/keys"
	"github.com/ericogr/skirmish/internal/refdata"
	"github.com/ericogr/skirmish/internal/team"
)

var ErrUnknownPolicy = errors.New("unknown opponent policy")

// Policy names.
const (
	NameRandom = "random"
	NameBasic  = "basic"
	NameGreedy = "greedy"
)

// Policy chooses an action for side from a read-only view of the battle.
// Implementations keep no state between calls and must always return an
// action the engine accepts.
type Policy interface {
	ChooseAction(view game.Snapshot, side game.SideID) game.Action
}

// Func adapts a function to Policy.
type Func func(view game.Snapshot, side game.SideID) game.Action

func (f Func) ChooseAction(view game.Snapshot, side game.SideID) game.Action { return f(view, side) }

// Lookup returns the policy registered under name.
func Lookup(name string, ref refdata.Provider) (Policy, error) {
	switch keys.Normalize(name) {
	case NameRandom:
		return Random{Ref: ref}, nil
	case NameBasic, "":
		return Basic{Ref: ref}, nil
	case NameGreedy:
		return Greedy{Ref: ref}, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownPolicy, name)
}

// Names lists the registered policies.
func Names() []string {
	out := []string{NameBasic, NameGreedy, NameRandom}
	sort.Strings(out)
	return out
}

// Fallback is the action every policy falls back to: the fastest
// replacement during a forced switch, otherwise the first move with PP
// left, otherwise struggle.
func Fallback(view game.Snapshot, side game.SideID) game.Action {
	s := view.Battle.Side(side)
	if s == nil {
		return game.Action{Side: side, Kind: game.ActionPass}
	}
	if forcedSwitch(view, side) {
		idx, err := team.FastestSurvivor(s)
		if err != nil {
			return game.Action{Side: side, Kind: game.ActionPass}
		}
		return switchTo(side, idx)
	}
	m := team.GetActiveMember(s)
	if m == nil {
		return game.Action{Side: side, Kind: game.ActionPass}
	}
	for _, slot := range m.Moves {
		if slot.PP > 0 {
			return attack(side, slot.MoveID)
		}
	}
	return attack(side, game.StruggleMoveID)
}

func forcedSwitch(view game.Snapshot, side game.SideID) bool {
	for _, id := range view.PendingSwitch {
		if id == side {
			return true
		}
	}
	return false
}

func attack(side game.SideID, moveID string) game.Action {
	return game.Action{Side: side, Kind: game.ActionAttack, MoveID: moveID}
}

func switchTo(side game.SideID, idx int) game.Action {
	return game.Action{Side: side, Kind: game.ActionSwitch, SwitchTo: idx}
}

// usableMoves returns the active member's moves that have PP left and are
// known to the provider.
func usableMoves(ref refdata.Provider, m *game.Member) []refdata.Move {
	var out []refdata.Move
	for _, slot := range m.Moves {
		if slot.PP <= 0 {
			continue
		}
		mv, err := ref.Move(slot.MoveID)
		if err != nil {
			continue
		}
		out = append(out, mv)
	}
	return out
}

// seedFor derives a deterministic seed from the view so the same state
// always yields the same choice.
func seedFor(view game.Snapshot, side game.SideID) int64 {
	h := fnv.New64a()
	fmt.Fprintf(h, "%s|%d|%s|%d|%d", view.ID, view.Turn, side, view.Seed, len(view.PendingSwitch))
	return int64(h.Sum64() >> 1)
}

// Random picks uniformly among legal moves and switch targets.
type Random struct {
	Ref refdata.Provider
}

func (p Random) ChooseAction(view game.Snapshot, side game.SideID) game.Action {
	s := view.Battle.Side(side)
	if s == nil {
		return Fallback(view, side)
	}
	rng := rand.New(rand.NewSource(seedFor(view, side)))
	if forcedSwitch(view, side) {
		c := team.SwitchCandidates(s)
		if len(c) == 0 {
			return Fallback(view, side)
		}
		return switchTo(side, c[rng.Intn(len(c))])
	}
	m := team.GetActiveMember(s)
	if m == nil || m.Fainted() {
		return Fallback(view, side)
	}
	moves := usableMoves(p.Ref, m)
	if len(moves) == 0 {
		return Fallback(view, side)
	}
	return attack(side, moves[rng.Intn(len(moves))].ID)
}

// Basic always uses its strongest move by listed power.
type Basic struct {
	Ref refdata.Provider
}

func (p Basic) ChooseAction(view game.Snapshot, side game.SideID) game.Action {
	s := view.Battle.Side(side)
	if s == nil || forcedSwitch(view, side) {
		return Fallback(view, side)
	}
	m := team.GetActiveMember(s)
	if m == nil || m.Fainted() {
		return Fallback(view, side)
	}
	best, bestPower := "", -1
	for _, mv := range usableMoves(p.Ref, m) {
		power := mv.Power
		if mv.FixedDamage > power {
			power = mv.FixedDamage
		}
		if power > bestPower {
			best, bestPower = mv.ID, power
		}
	}
	if best == "" {
		return Fallback(view, side)
	}
	return attack(side, best)
}
