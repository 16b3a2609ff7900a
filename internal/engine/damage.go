package engine

import (
	"fmt"

	"github.com/ericogr/skirmish/internal/game"
	"github.com/ericogr/skirmish/internal/refdata"
)

// ComputeDamage returns the damage a move deals before clamping to the
// target's remaining health.
func ComputeDamage(attacker, defender *game.Member, mv refdata.Move) int {
	if mv.FixedDamage > 0 {
		return mv.FixedDamage
	}
	if mv.Power <= 0 {
		return 0
	}
	atk := attackWithModifiers(attacker)
	def := defenseWithModifiers(defender)
	return ((2*attacker.Level/5+2)*mv.Power*atk/def)/50 + 2
}

// hit applies damage to a member on side and records the damage and, when
// health reaches zero, the faint.
func (tc *turnContext) hit(side *game.Side, idx int, amount int, reason string) int {
	m := &side.Members[idx]
	dealt := applyDamage(m, amount)
	ev := hpEvent(game.EventDamage, side.ID, idx, m)
	ev.Amount = dealt
	ev.Reason = reason
	tc.add(ev)
	tc.faintIfDown(side, idx)
	return dealt
}

func (tc *turnContext) faintIfDown(side *game.Side, idx int) {
	m := &side.Members[idx]
	if !m.Fainted() {
		return
	}
	ev := hpEvent(game.EventFainted, side.ID, idx, m)
	ev.Message = fmt.Sprintf("%s fainted!", label(side, m))
	tc.add(ev)
}

func (tc *turnContext) execAttack(a game.Action) {
	side := tc.b.Side(a.Side)
	opp := tc.b.Side(a.Side.Opponent())
	actor := memberAt(side, a.Actor)
	if actor == nil {
		return
	}

	if actor.Status == game.StatusAsleep {
		if actor.SleepTurns > 0 {
			actor.SleepTurns--
			ev := game.Event{Type: game.EventActionSkipped, Side: side.ID, Member: a.Actor, Reason: "asleep"}
			ev.Message = fmt.Sprintf("%s is fast asleep.", label(side, actor))
			tc.add(ev)
			return
		}
		actor.Status = game.StatusNone
		tc.add(game.Event{Type: game.EventStatusCured, Side: side.ID, Member: a.Actor, Status: game.StatusAsleep, Reason: "woke_up",
			Message: fmt.Sprintf("%s woke up!", label(side, actor))})
	}
	if actor.Status == game.StatusParalyzed && tc.rng.Intn(100) < 25 {
		tc.add(game.Event{Type: game.EventActionSkipped, Side: side.ID, Member: a.Actor, Reason: "paralyzed",
			Message: fmt.Sprintf("%s is paralyzed! It can't move!", label(side, actor))})
		return
	}

	mv, err := tc.ref.Move(a.MoveID)
	if err != nil {
		tc.add(game.Event{Type: game.EventActionSkipped, Side: side.ID, Member: a.Actor, MoveID: a.MoveID, Reason: "unknown_move"})
		return
	}
	if mv.ID != game.StruggleMoveID {
		slot := actor.Slot(mv.ID)
		if slot == nil || slot.PP <= 0 {
			tc.add(game.Event{Type: game.EventActionSkipped, Side: side.ID, Member: a.Actor, MoveID: mv.ID, Reason: "no_pp"})
			return
		}
		slot.PP--
	}
	name := mv.Name
	if name == "" {
		name = game.DisplayName(mv.ID)
	}
	tc.add(game.Event{Type: game.EventMoveUsed, Side: side.ID, Member: a.Actor, MoveID: mv.ID, Message: usedMessage(side, actor, name)})

	needsTarget := mv.Damaging() || mv.Effect != game.StatusNone || !mv.TargetStages.IsZero()
	var target *game.Member
	targetIdx := -1
	if needsTarget {
		if a.TargetMember < 0 || a.TargetMember >= len(opp.Members) || opp.Members[a.TargetMember].Fainted() {
			tc.add(game.Event{Type: game.EventActionSkipped, Side: side.ID, Member: a.Actor, MoveID: mv.ID, Reason: "no_target",
				Message: "But there was no target..."})
			return
		}
		target = findActive(opp)
		if target == nil {
			tc.add(game.Event{Type: game.EventActionSkipped, Side: side.ID, Member: a.Actor, MoveID: mv.ID, Reason: "no_target"})
			return
		}
		targetIdx = opp.Active
		if mv.Accuracy > 0 && tc.rng.Intn(100) >= mv.Accuracy {
			tc.add(game.Event{Type: game.EventMoveMissed, Side: side.ID, Member: a.Actor, MoveID: mv.ID,
				Message: fmt.Sprintf("%s's attack missed!", label(side, actor))})
			return
		}
	}

	if mv.Damaging() {
		dealt := tc.hit(opp, targetIdx, ComputeDamage(actor, target, mv), "")
		if mv.DrainPercent > 0 && dealt > 0 && !actor.Fainted() {
			gain := applyHeal(actor, maxInt(1, dealt*mv.DrainPercent/100))
			if gain > 0 {
				ev := hpEvent(game.EventHeal, side.ID, a.Actor, actor)
				ev.Amount = gain
				ev.Reason = "drain"
				tc.add(ev)
			}
		}
		if mv.RecoilPercent > 0 && dealt > 0 && !actor.Fainted() {
			tc.hit(side, a.Actor, maxInt(1, dealt*mv.RecoilPercent/100), "recoil")
		}
	}

	if target != nil && !target.Fainted() {
		tc.applyStatus(opp, targetIdx, target, mv)
		if !mv.TargetStages.IsZero() {
			tc.shiftStages(opp, targetIdx, target, mv.TargetStages)
		}
	}
	if !actor.Fainted() {
		if !mv.UserStages.IsZero() {
			tc.shiftStages(side, a.Actor, actor, mv.UserStages)
		}
		if mv.HealPercent > 0 {
			if gain := applyHeal(actor, maxInt(1, actor.MaxHP()*mv.HealPercent/100)); gain > 0 {
				ev := hpEvent(game.EventHeal, side.ID, a.Actor, actor)
				ev.Amount = gain
				tc.add(ev)
			}
		}
	}
}

func (tc *turnContext) applyStatus(side *game.Side, idx int, m *game.Member, mv refdata.Move) {
	if mv.Effect == game.StatusNone || m.Status != game.StatusNone {
		return
	}
	if mv.EffectChance > 0 && tc.rng.Intn(100) >= mv.EffectChance {
		return
	}
	m.Status = mv.Effect
	if mv.Effect == game.StatusAsleep {
		m.SleepTurns = 1 + tc.rng.Intn(3)
	}
	tc.add(game.Event{Type: game.EventStatusApplied, Side: side.ID, Member: idx, Status: mv.Effect,
		Message: fmt.Sprintf("%s is %s!", label(side, m), mv.Effect)})
}

func (tc *turnContext) shiftStages(side *game.Side, idx int, m *game.Member, delta game.Stages) {
	m.Stages.Attack = clampStage(m.Stages.Attack + delta.Attack)
	m.Stages.Defense = clampStage(m.Stages.Defense + delta.Defense)
	m.Stages.Speed = clampStage(m.Stages.Speed + delta.Speed)
	st := m.Stages
	tc.add(game.Event{Type: game.EventStatChanged, Side: side.ID, Member: idx, Stages: &st})
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
