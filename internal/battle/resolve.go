package battle

import (
	"fmt"
	"time"

	"github.com/ericogr/skirmish/internal/constants"
	"github.com/ericogr/skirmish/internal/engine"
	"github.com/ericogr/skirmish/internal/game"
	"github.com/ericogr/skirmish/internal/logging"
	"github.com/ericogr/skirmish/internal/team"
)

// resolveTurn collects the pending actions and starts resolution.
func (e *Engine) resolveTurn() {
	if e.lastResolved >= e.b.Turn || e.cursor != nil {
		e.fail(ReasonInvariant, fmt.Errorf("turn %d resolved twice", e.b.Turn))
		return
	}
	e.stopTimer()
	e.deadline = time.Time{}
	e.b.Phase = game.PhaseResolving

	actions := make([]game.Action, 0, len(e.b.Sides))
	for i := range e.b.Sides {
		if p := e.b.Sides[i].Pending; p != nil {
			actions = append(actions, *p)
		}
		e.b.Sides[i].Pending = nil
	}
	var cur *game.TurnCursor
	err := guard(func() (err error) {
		cur, err = e.resolver.NewTurn(&e.b, actions)
		return err
	})
	if err != nil {
		e.fail(ReasonInvariant, err)
		return
	}
	e.cursor = cur
	e.continueTurn()
}

// guard runs f and turns a panic into an error.
func guard(f func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("resolver panic: %v", r)
		}
	}()
	return f()
}

func (e *Engine) resume() (step engine.Step, err error) {
	err = guard(func() error {
		step = e.resolver.Resume(&e.b, e.cursor)
		return nil
	})
	return step, err
}

// continueTurn drives the cursor until the turn completes, the battle ends
// or a human side must pick a replacement.
func (e *Engine) continueTurn() {
	for {
		step, err := e.resume()
		if err != nil {
			e.fail(ReasonInvariant, err)
			return
		}
		for _, ev := range step.Events {
			e.emit(ev)
		}
		if step.Result != nil {
			e.b.Result = step.Result
		}
		if err := checkInvariants(&e.b); err != nil {
			e.b.Result = nil
			e.fail(ReasonInvariant, err)
			return
		}
		if step.Result != nil {
			e.b.Result = nil
			e.end(*step.Result)
			return
		}
		if step.Done {
			e.finishTurn()
			return
		}
		if len(step.NeedsSwitch) == 0 {
			e.fail(ReasonInvariant, fmt.Errorf("turn %d stalled", e.b.Turn))
			return
		}

		e.pendingSwitch = append([]game.SideID(nil), step.NeedsSwitch...)
		e.replaceComputerSides()
		if len(e.pendingSwitch) == 0 {
			continue
		}
		e.b.Phase = game.PhaseAwaitingForcedSwitch
		e.deadline = e.now().Add(e.switchTimeout)
		for _, id := range e.pendingSwitch {
			dl := e.deadline
			e.emit(game.Event{Type: game.EventForcedSwitchRequired, Side: id, Deadline: &dl})
		}
		e.arm(e.switchTimeout, e.onSwitchTimeout)
		return
	}
}

// replaceComputerSides lets policies pick replacements right away.
func (e *Engine) replaceComputerSides() {
	view := e.viewLocked()
	for _, id := range append([]game.SideID(nil), e.pendingSwitch...) {
		if e.sideIsHuman(id) {
			continue
		}
		s := e.b.Side(id)
		a := e.policies[id].ChooseAction(view, id)
		to := a.SwitchTo
		if a.Kind != game.ActionSwitch || e.validateReplacement(s, to) != nil {
			idx, err := team.FastestSurvivor(s)
			if err != nil {
				continue
			}
			to = idx
		}
		e.applyReplacement(s, to, "")
	}
}

func (e *Engine) finishTurn() {
	e.lastResolved = e.b.Turn
	e.emit(game.Event{Type: game.EventTurnResolved, Count: e.cursor.Emitted})
	e.cursor = nil
	e.pendingSwitch = nil
	e.startTurn()
}

// onTurnTimeout substitutes the configured default for every human side
// that has not acted.
func (e *Engine) onTurnTimeout(gen uint64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed || gen != e.timerGen || e.b.Phase != game.PhaseAwaitingActions {
		return
	}
	e.timer = nil

	var missing []game.SideID
	for i := range e.b.Sides {
		s := &e.b.Sides[i]
		if s.Controller == game.ControllerHuman && s.Pending == nil {
			missing = append(missing, s.ID)
		}
	}
	for _, id := range missing {
		te := &TimeoutError{Reason: ReasonTurnTimeout, Side: string(id), Turn: e.b.Turn}
		logging.Info("turn deadline elapsed", logging.Fields{
			constants.LogFieldBattleID: e.b.ID,
			constants.LogFieldSide:     id,
			constants.LogFieldTurn:     e.b.Turn,
			constants.LogFieldReason:   te.Reason,
			"default":                  e.timeoutPolicy,
		})
	}

	if e.timeoutPolicy == game.TimeoutForfeit && len(missing) > 0 {
		res := game.Result{Outcome: game.OutcomeForfeited, Reason: "timeout_forfeit"}
		if len(missing) == 1 {
			res.Winner = missing[0].Opponent()
		}
		e.end(res)
		return
	}
	for _, id := range missing {
		a := game.Action{Side: id, Kind: game.ActionPass, Timeout: true}
		e.stamp(&a)
		e.b.Side(id).Pending = &a
		e.accept(a)
	}
	e.fillComputerActions()
	e.resolveTurn()
}

// onSwitchTimeout brings in the fastest survivor for every side still
// choosing a replacement.
func (e *Engine) onSwitchTimeout(gen uint64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed || gen != e.timerGen || e.b.Phase != game.PhaseAwaitingForcedSwitch {
		return
	}
	e.timer = nil
	for _, id := range append([]game.SideID(nil), e.pendingSwitch...) {
		s := e.b.Side(id)
		idx, err := team.FastestSurvivor(s)
		if err != nil {
			e.fail(ReasonInvariant, fmt.Errorf("side %s must switch but has no survivors", id))
			return
		}
		logging.Info("forced switch deadline elapsed", logging.Fields{
			constants.LogFieldBattleID: e.b.ID,
			constants.LogFieldSide:     id,
			constants.LogFieldTurn:     e.b.Turn,
			constants.LogFieldReason:   ReasonSwitchTimeout,
		})
		e.applyReplacement(s, idx, string(ReasonSwitchTimeout))
	}
	e.afterReplacement()
}
