package engine

import (
	"fmt"
	"math/rand"
	"sort"

	"github.com/ericogr/skirmish/internal/game"
)

// Step is the outcome of running a turn cursor as far as it can go.
type Step struct {
	Events []game.Event
	// NeedsSwitch lists sides whose active member fainted while survivors
	// remain; the cursor is paused until each of them switched.
	NeedsSwitch []game.SideID
	// Result is set when the battle ended during this step. Actions still
	// queued are discarded.
	Result *game.Result
	// Done reports that the turn resolved completely.
	Done bool
}

func turnSeed(seed int64, turn, resumes int) int64 {
	return seed ^ int64(turn)*1000003 ^ int64(resumes+1)*7919
}

// Resume runs the cursor until the turn finishes, the battle ends, or a
// faint requires a replacement. Calling it again after the replacements
// continues where it stopped.
func (r *Resolver) Resume(b *game.Battle, cur *game.TurnCursor) Step {
	tc := &turnContext{
		b:   b,
		cur: cur,
		ref: r.ref,
		rng: rand.New(rand.NewSource(turnSeed(b.Seed, cur.Turn, cur.Resumes))),
	}
	cur.Resumes++

	for cur.Stage == game.StageActions {
		if cur.Next >= len(cur.Queue) {
			cur.Stage = game.StageResidual
			cur.ResidualOrder = residualOrder(b)
			cur.ResidualNext = 0
			break
		}
		a := cur.Queue[cur.Next]
		cur.Next++
		if res := tc.apply(a); res != nil {
			return tc.finish(res)
		}
		if step, stop := tc.settle(); stop {
			return step
		}
	}

	for cur.Stage == game.StageResidual {
		if cur.ResidualNext >= len(cur.ResidualOrder) {
			cur.Stage = game.StageDone
			break
		}
		side := b.Side(cur.ResidualOrder[cur.ResidualNext])
		cur.ResidualNext++
		tc.residual(side)
		if step, stop := tc.settle(); stop {
			return step
		}
	}

	return Step{Events: tc.events, Done: true}
}

func (tc *turnContext) finish(res *game.Result) Step {
	tc.cur.Stage = game.StageDone
	res.Turns = tc.cur.Turn
	return Step{Events: tc.events, Result: res}
}

// settle checks termination and forced replacements after an effect.
func (tc *turnContext) settle() (Step, bool) {
	var wiped []game.SideID
	for i := range tc.b.Sides {
		if tc.b.Sides[i].AliveCount() == 0 {
			wiped = append(wiped, tc.b.Sides[i].ID)
		}
	}
	switch len(wiped) {
	case 0:
	case 1:
		return tc.finish(&game.Result{Winner: wiped[0].Opponent(), Outcome: game.OutcomeCompleted, Reason: "all_fainted"}), true
	default:
		return tc.finish(&game.Result{Outcome: game.OutcomeCompleted, Reason: "all_fainted"}), true
	}

	var needs []game.SideID
	for i := range tc.b.Sides {
		s := &tc.b.Sides[i]
		if m := s.ActiveMember(); m != nil && m.Fainted() {
			s.NeedsSwitch = true
			needs = append(needs, s.ID)
		}
	}
	if len(needs) > 0 {
		return Step{Events: tc.events, NeedsSwitch: needs}, true
	}
	return Step{}, false
}

// residualOrder lists sides fastest active member first; ties keep side
// order.
func residualOrder(b *game.Battle) []game.SideID {
	type entry struct {
		id    game.SideID
		speed int
	}
	entries := make([]entry, 0, len(b.Sides))
	for i := range b.Sides {
		sp := -1
		if m := findActive(&b.Sides[i]); m != nil {
			sp = speedWithModifiers(m)
		}
		entries = append(entries, entry{id: b.Sides[i].ID, speed: sp})
	}
	sort.SliceStable(entries, func(i, j int) bool { return entries[i].speed > entries[j].speed })
	out := make([]game.SideID, len(entries))
	for i := range entries {
		out[i] = entries[i].id
	}
	return out
}

// residual applies end-of-turn status damage to a side's active member.
func (tc *turnContext) residual(side *game.Side) {
	m := findActive(side)
	if m == nil {
		return
	}
	var amount int
	switch m.Status {
	case game.StatusPoisoned:
		amount = maxInt(1, m.MaxHP()/8)
	case game.StatusBurned:
		amount = maxInt(1, m.MaxHP()/16)
	default:
		return
	}
	dealt := applyDamage(m, amount)
	ev := hpEvent(game.EventStatusDamage, side.ID, side.Active, m)
	ev.Amount = dealt
	ev.Status = m.Status
	ev.Message = fmt.Sprintf("%s is hurt by its %s!", label(side, m), statusNoun(m.Status))
	tc.add(ev)
	tc.faintIfDown(side, side.Active)
}

func statusNoun(s game.Status) string {
	switch s {
	case game.StatusPoisoned:
		return "poison"
	case game.StatusBurned:
		return "burn"
	}
	return string(s)
}
