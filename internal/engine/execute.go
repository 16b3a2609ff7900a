package engine

import (
	"fmt"

	"github.com/ericogr/skirmish/internal/game"
	"github.com/ericogr/skirmish/internal/team"
)

// apply runs one queued action. A non-nil result ends the battle.
func (tc *turnContext) apply(a game.Action) *game.Result {
	side := tc.b.Side(a.Side)
	switch a.Kind {
	case game.ActionForfeit:
		reason := "forfeit"
		if a.Timeout {
			reason = "timeout_forfeit"
		}
		return &game.Result{Winner: a.Side.Opponent(), Outcome: game.OutcomeForfeited, Reason: reason}
	case game.ActionFlee:
		return tc.execFlee(side, a)
	case game.ActionSwitch:
		tc.execSwitch(side, a)
	case game.ActionItem:
		tc.execItem(side, a)
	case game.ActionAttack:
		tc.execAttack(a)
	case game.ActionPass:
		reason := "pass"
		if a.Timeout {
			reason = "timeout"
		}
		tc.add(game.Event{Type: game.EventActionSkipped, Side: side.ID, Member: a.Actor, Reason: reason})
	}
	return nil
}

func (tc *turnContext) execFlee(side *game.Side, a game.Action) *game.Result {
	if tc.b.Type != game.BattleWild {
		tc.add(game.Event{Type: game.EventActionSkipped, Side: side.ID, Member: a.Actor, Reason: "cannot_flee"})
		return nil
	}
	runner := memberAt(side, a.Actor)
	if runner == nil {
		return nil
	}
	side.FleeAttempts++
	escaped := true
	if opp := findActive(tc.b.Side(side.ID.Opponent())); opp != nil {
		mine, theirs := speedWithModifiers(runner), speedWithModifiers(opp)
		if mine < theirs {
			odds := mine*128/maxInt(theirs, 1) + 30*side.FleeAttempts
			escaped = odds > 255 || tc.rng.Intn(256) < odds
		}
	}
	if !escaped {
		tc.add(game.Event{Type: game.EventFleeFailed, Side: side.ID, Member: a.Actor, Message: "Can't escape!"})
		return nil
	}
	return &game.Result{Outcome: game.OutcomeForfeited, Reason: "fled"}
}

func (tc *turnContext) execSwitch(side *game.Side, a game.Action) {
	from := side.Active
	if err := team.ExecuteSwitch(side, a.SwitchTo); err != nil {
		tc.add(game.Event{Type: game.EventActionSkipped, Side: side.ID, Member: from, Reason: "invalid_switch"})
		return
	}
	in := side.ActiveMember()
	ev := hpEvent(game.EventSwitched, side.ID, side.Active, in)
	ev.Count = from
	ev.Message = fmt.Sprintf("%s sent out %s!", side.Name, in.DisplayName())
	tc.add(ev)
}

func (tc *turnContext) execItem(side *game.Side, a game.Action) {
	it, err := tc.ref.Item(a.ItemID)
	if err != nil || a.Target < 0 || a.Target >= len(side.Members) || side.Members[a.Target].Fainted() {
		tc.add(game.Event{Type: game.EventActionSkipped, Side: side.ID, Member: a.Target, ItemID: a.ItemID, Reason: "invalid_item_target"})
		return
	}
	m := &side.Members[a.Target]
	tc.add(game.Event{Type: game.EventItemUsed, Side: side.ID, Member: a.Target, ItemID: it.ID,
		Message: fmt.Sprintf("%s used a %s on %s.", side.Name, game.DisplayName(it.ID), m.DisplayName())})
	if it.Heal > 0 {
		gain := applyHeal(m, it.Heal)
		ev := hpEvent(game.EventHeal, side.ID, a.Target, m)
		ev.Amount = gain
		ev.ItemID = it.ID
		tc.add(ev)
	}
	if it.Cures && m.Status != game.StatusNone {
		cured := m.Status
		m.Status = game.StatusNone
		m.SleepTurns = 0
		tc.add(game.Event{Type: game.EventStatusCured, Side: side.ID, Member: a.Target, Status: cured, ItemID: it.ID})
	}
}
