package battle

import (
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/ericogr/skirmish/internal/game"
	"github.com/ericogr/skirmish/internal/refdata"
)

func TestStart_Validation(t *testing.T) {
	fainted := member(40, 10, "slam")
	fainted.CurrentHP = 0
	cases := []struct {
		name string
		mut  func(*Config)
	}{
		{"all computer", func(c *Config) { c.SideA.Controller = "ai" }},
		{"empty roster", func(c *Config) { c.SideB.Members = nil }},
		{"no survivors", func(c *Config) { c.SideB.Members = []game.Member{fainted} }},
		{"fainted active", func(c *Config) { c.SideB.Members = []game.Member{fainted, member(40, 10, "slam")} }},
		{"bad profile", func(c *Config) { c.Profile.Name = "" }},
		{"bad type", func(c *Config) { c.Type = "arena" }},
		{"bad timeout policy", func(c *Config) { c.TimeoutPolicy = "explode" }},
		{"no timeout", func(c *Config) { c.TurnTimeout = 0 }},
		{"unknown policy", func(c *Config) { c.SideB.Policy = "psychic" }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := baseConfig(human(member(50, 90, "slam")), computer(member(40, 60, "slam")))
			tc.mut(&cfg)
			_, err := Start(cfg, Deps{Ref: testRef(t)})
			var ve *ValidationError
			if !errors.As(err, &ve) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
		})
	}
}

func TestEngine_ScenarioA(t *testing.T) {
	h := start(t, baseConfig(human(member(50, 90, "slam")), computer(member(40, 60, "slam"))))
	if h.eng.Phase() != game.PhaseAwaitingActions {
		t.Fatalf("expected awaiting_actions, got %s", h.eng.Phase())
	}
	r, err := h.eng.SubmitAction(game.SideA, attack("slam"))
	if err != nil || !r.Accepted {
		t.Fatalf("submit: %+v %v", r, err)
	}
	if r.Phase != game.PhaseEnded {
		t.Fatalf("expected the battle to end, got %s", r.Phase)
	}
	res := h.eng.Result()
	if res == nil || res.Winner != game.SideA || res.Outcome != game.OutcomeCompleted {
		t.Fatalf("unexpected result %+v", res)
	}
	waitEnded(t, h.eng)

	events := h.sink.all()
	faint := -1
	for i, ev := range events {
		if ev.Type == game.EventFainted {
			faint = i
		}
	}
	if faint < 0 || events[faint].Side != game.SideB {
		t.Fatalf("expected B to faint")
	}
	if faint+1 >= len(events) || events[faint+1].Type != game.EventBattleEnded {
		t.Fatalf("expected battle_ended right after the faint")
	}
	if events[faint+1].Result.Winner != game.SideA {
		t.Fatalf("expected winner A in terminal event")
	}
	for i := 1; i < len(events); i++ {
		if events[i].Seq != events[i-1].Seq+1 {
			t.Fatalf("event sequence gap at %d", i)
		}
	}
	if events[0].Type != game.EventBattleStarted || events[0].Snapshot == nil {
		t.Fatalf("expected battle_started with a snapshot first")
	}

	_, err = h.eng.SubmitAction(game.SideA, attack("slam"))
	var pe *PhaseError
	if !errors.As(err, &pe) || pe.Reason != ReasonBattleEnded {
		t.Fatalf("expected PhaseError battle_ended, got %v", err)
	}
}

func TestEngine_RejectsIllegalActions(t *testing.T) {
	h := start(t, baseConfig(human(member(100, 90, "scratch"), member(100, 10, "scratch")), human(member(100, 60, "scratch"))))
	cases := []struct {
		name   string
		side   game.SideID
		action game.Action
		want   ReasonCode
	}{
		{"unknown side", "c", attack("scratch"), ReasonUnknownSide},
		{"unknown move", game.SideA, attack("hyper_beam"), ReasonUnknownMove},
		{"struggle with pp", game.SideA, attack("struggle"), ReasonUnknownMove},
		{"switch to active", game.SideA, game.Action{Kind: game.ActionSwitch, SwitchTo: 0}, ReasonSwitchToActive},
		{"switch out of range", game.SideA, game.Action{Kind: game.ActionSwitch, SwitchTo: 9}, ReasonInvalidSwitch},
		{"flee in trainer battle", game.SideA, game.Action{Kind: game.ActionFlee}, ReasonCannotFlee},
		{"unknown item", game.SideA, game.Action{Kind: game.ActionItem, ItemID: "elixir"}, ReasonUnknownItem},
		{"item target", game.SideA, game.Action{Kind: game.ActionItem, ItemID: "potion", Target: 5}, ReasonInvalidTarget},
		{"unknown kind", game.SideA, game.Action{Kind: "dance"}, ReasonInvalidAction},
		{"stale turn", game.SideA, game.Action{Kind: game.ActionAttack, MoveID: "scratch", Turn: 4}, ReasonStaleTurn},
	}
	for _, tc := range cases {
		r, err := h.eng.SubmitAction(tc.side, tc.action)
		if err == nil || r.Accepted {
			t.Fatalf("%s: expected rejection", tc.name)
		}
		if got := Reason(err); got != tc.want {
			t.Fatalf("%s: expected %s, got %s", tc.name, tc.want, got)
		}
	}
	snap := h.eng.Snapshot()
	if snap.Sides[0].Pending != nil || snap.Phase != game.PhaseAwaitingActions {
		t.Fatalf("rejections must not mutate the battle")
	}

	if _, err := h.eng.SubmitAction(game.SideA, attack("Scratch")); err != nil {
		t.Fatalf("submit: %v", err)
	}
	_, err := h.eng.SubmitAction(game.SideA, attack("scratch"))
	var ve *ValidationError
	if !errors.As(err, &ve) || ve.Reason != ReasonAlreadySubmitted {
		t.Fatalf("expected already_submitted, got %v", err)
	}
	drain(t, h.eng)
	if n := count(h.sink.all(), game.EventActionRejected, 0); n != len(cases)+1 {
		t.Fatalf("expected %d rejection events, got %d", len(cases)+1, n)
	}
}

func TestEngine_ViewHidesPendingChoice(t *testing.T) {
	h := start(t, baseConfig(human(member(50, 90, "slam")), human(member(50, 60, "scratch"))))
	if _, err := h.eng.SubmitAction(game.SideA, attack("slam")); err != nil {
		t.Fatalf("submit: %v", err)
	}

	view := h.eng.View()
	a := view.Side(game.SideA)
	if a.Pending != nil || !a.Submitted {
		t.Fatalf("public view must hide A's choice but flag it, got %+v", a)
	}
	if view.Side(game.SideB).Submitted {
		t.Fatalf("B has not chosen yet")
	}
	if full := h.eng.Snapshot(); full.Side(game.SideA).Pending == nil || full.Side(game.SideA).Pending.MoveID != "slam" {
		t.Fatalf("the restorable snapshot must keep A's choice")
	}

	drain(t, h.eng)
	accepted := 0
	for _, ev := range h.sink.all() {
		if ev.Type != game.EventActionAccepted {
			continue
		}
		accepted++
		raw, _ := json.Marshal(ev)
		if strings.Contains(string(raw), "slam") {
			t.Fatalf("action_accepted leaks the move: %s", raw)
		}
		if ev.Side != game.SideA {
			t.Fatalf("unexpected side %s", ev.Side)
		}
	}
	if accepted != 1 {
		t.Fatalf("expected one action_accepted, got %d", accepted)
	}
}

func TestEngine_ComputerSideIsNotSubmittable(t *testing.T) {
	h := start(t, baseConfig(human(member(100, 90, "scratch")), computer(member(100, 60, "scratch"))))
	_, err := h.eng.SubmitAction(game.SideB, attack("scratch"))
	if Reason(err) != ReasonNotYourTurn {
		t.Fatalf("expected not_your_turn, got %v", err)
	}
}

func TestEngine_StaleTurnAfterResolution(t *testing.T) {
	h := start(t, baseConfig(human(member(100, 90, "scratch")), human(member(100, 60, "scratch"))))
	for _, side := range []game.SideID{game.SideA, game.SideB} {
		if _, err := h.eng.SubmitAction(side, game.Action{Kind: game.ActionAttack, MoveID: "scratch", Turn: 1}); err != nil {
			t.Fatalf("submit %s: %v", side, err)
		}
	}
	_, err := h.eng.SubmitAction(game.SideA, game.Action{Kind: game.ActionAttack, MoveID: "scratch", Turn: 1})
	var pe *PhaseError
	if !errors.As(err, &pe) || pe.Reason != ReasonStaleTurn {
		t.Fatalf("expected PhaseError stale_turn, got %v", err)
	}
	snap := h.eng.Snapshot()
	if snap.Turn != 2 || snap.LastResolved != 1 {
		t.Fatalf("expected turn 2 after resolving 1, got %d/%d", snap.Turn, snap.LastResolved)
	}
	if hp := snap.Sides[1].Members[0].CurrentHP; hp != 95 {
		t.Fatalf("expected B at 95, got %d", hp)
	}
}

func TestEngine_ExactlyOneTurnResolvedUnderConcurrency(t *testing.T) {
	for i := 0; i < 20; i++ {
		h := start(t, baseConfig(human(member(500, 50, "scratch")), human(member(500, 50, "scratch"))))
		var wg sync.WaitGroup
		for _, side := range []game.SideID{game.SideA, game.SideB} {
			wg.Add(1)
			go func(side game.SideID) {
				defer wg.Done()
				if _, err := h.eng.SubmitAction(side, attack("scratch")); err != nil {
					t.Errorf("submit %s: %v", side, err)
				}
			}(side)
		}
		wg.Wait()
		drain(t, h.eng)
		if n := count(h.sink.all(), game.EventTurnResolved, 1); n != 1 {
			t.Fatalf("expected one turn_resolved for turn 1, got %d", n)
		}
		if h.eng.Snapshot().Turn != 2 {
			t.Fatalf("expected turn 2")
		}
	}
}

func scenarioB(t *testing.T) *harness {
	t.Helper()
	h := start(t, baseConfig(
		human(member(40, 10, "slam"), member(60, 30, "scratch"), member(60, 80, "scratch")),
		human(member(200, 90, "slam")),
	))
	if _, err := h.eng.SubmitAction(game.SideA, attack("slam")); err != nil {
		t.Fatalf("submit A: %v", err)
	}
	r, err := h.eng.SubmitAction(game.SideB, attack("slam"))
	if err != nil {
		t.Fatalf("submit B: %v", err)
	}
	if r.Phase != game.PhaseAwaitingForcedSwitch {
		t.Fatalf("expected forced switch, got %s", r.Phase)
	}
	return h
}

func TestEngine_ScenarioB_ForcedSwitchTimeout(t *testing.T) {
	h := scenarioB(t)
	drain(t, h.eng)
	var required *game.Event
	for _, ev := range h.sink.all() {
		if ev.Type == game.EventForcedSwitchRequired {
			ev := ev
			required = &ev
		}
	}
	if required == nil || required.Side != game.SideA || required.Deadline == nil {
		t.Fatalf("expected forced_switch_required for A with a deadline, got %+v", required)
	}

	var pe *PhaseError
	if _, err := h.eng.SubmitAction(game.SideA, attack("slam")); !errors.As(err, &pe) || pe.Reason != ReasonForcedSwitchPending {
		t.Fatalf("expected PhaseError for an attack during A's forced switch, got %v", err)
	}
	if _, err := h.eng.SubmitAction(game.SideB, attack("slam")); !errors.As(err, &pe) || pe.Reason != ReasonForcedSwitchPending {
		t.Fatalf("expected PhaseError for B, got %v", err)
	}
	if _, err := h.eng.SubmitAction(game.SideA, game.Action{Kind: game.ActionSwitch, SwitchTo: 0}); Reason(err) != ReasonSwitchToFainted {
		t.Fatalf("expected switch_to_fainted, got %v", err)
	}

	if !h.sched.fireLatest() {
		t.Fatalf("expected a pending switch timer")
	}
	snap := h.eng.Snapshot()
	if snap.Phase != game.PhaseAwaitingActions || snap.Turn != 2 {
		t.Fatalf("expected turn 2 awaiting actions, got %s turn %d", snap.Phase, snap.Turn)
	}
	if snap.Sides[0].Active != 2 {
		t.Fatalf("expected fastest survivor 2, got %d", snap.Sides[0].Active)
	}
	drain(t, h.eng)
	if n := count(h.sink.all(), game.EventTurnResolved, 1); n != 1 {
		t.Fatalf("expected one turn_resolved, got %d", n)
	}
}

func TestEngine_ScenarioB_ManualSwitch(t *testing.T) {
	h := scenarioB(t)
	r, err := h.eng.SubmitAction(game.SideA, game.Action{Kind: game.ActionSwitch, SwitchTo: 1})
	if err != nil || !r.Accepted {
		t.Fatalf("switch: %+v %v", r, err)
	}
	snap := h.eng.Snapshot()
	if snap.Sides[0].Active != 1 || snap.Phase != game.PhaseAwaitingActions {
		t.Fatalf("expected member 1 active and a new turn, got %d %s", snap.Sides[0].Active, snap.Phase)
	}
	if h.sched.fireLatest() && h.eng.Snapshot().Turn != 3 {
		t.Fatalf("expected the turn timer to resolve turn 2")
	}
}

func TestEngine_TurnTimeoutPass(t *testing.T) {
	h := start(t, baseConfig(human(member(100, 10, "scratch")), computer(member(100, 50, "scratch"))))
	if !h.sched.fireLatest() {
		t.Fatalf("expected a turn timer")
	}
	snap := h.eng.Snapshot()
	if snap.Turn != 2 {
		t.Fatalf("expected turn 2, got %d", snap.Turn)
	}
	if hp := snap.Sides[0].Members[0].CurrentHP; hp != 95 {
		t.Fatalf("expected the computer to act, A has %d", hp)
	}
	drain(t, h.eng)
	skipped := false
	for _, ev := range h.sink.all() {
		if ev.Type == game.EventActionSkipped && ev.Side == game.SideA && ev.Reason == "timeout" {
			skipped = true
		}
	}
	if !skipped {
		t.Fatalf("expected a timeout pass for A")
	}
}

func TestEngine_TurnTimeoutForfeit(t *testing.T) {
	cfg := baseConfig(human(member(100, 10, "scratch")), human(member(100, 50, "scratch")))
	cfg.TimeoutPolicy = game.TimeoutForfeit
	h := start(t, cfg)
	if _, err := h.eng.SubmitAction(game.SideA, attack("scratch")); err != nil {
		t.Fatalf("submit: %v", err)
	}
	h.sched.fireLatest()
	res := h.eng.Result()
	if res == nil || res.Winner != game.SideA || res.Outcome != game.OutcomeForfeited || res.Reason != "timeout_forfeit" {
		t.Fatalf("unexpected result %+v", res)
	}
	select {
	case <-h.eng.Done():
	default:
		t.Fatalf("expected Done to be closed")
	}

	h = start(t, cfg)
	h.sched.fireLatest()
	if res := h.eng.Result(); res == nil || res.Winner != "" || res.Outcome != game.OutcomeForfeited {
		t.Fatalf("expected a winnerless forfeit, got %+v", res)
	}
}

func TestEngine_Forfeit(t *testing.T) {
	h := start(t, baseConfig(human(member(100, 10, "scratch")), human(member(100, 50, "scratch"))))
	if _, err := h.eng.SubmitAction(game.SideB, attack("scratch")); err != nil {
		t.Fatalf("submit: %v", err)
	}
	r, err := h.eng.SubmitAction(game.SideB, game.Action{Kind: game.ActionForfeit})
	if err != nil || !r.Accepted || r.Phase != game.PhaseEnded {
		t.Fatalf("forfeit: %+v %v", r, err)
	}
	if res := h.eng.Result(); res.Winner != game.SideA || res.Outcome != game.OutcomeForfeited {
		t.Fatalf("unexpected result %+v", res)
	}
	if h.sched.fireLatest() {
		t.Fatalf("no timer may survive the end of a battle")
	}
}

func TestEngine_SnapshotRoundTrip(t *testing.T) {
	h := scenarioB(t)
	snap := h.eng.Snapshot()

	raw, err := json.Marshal(snap)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var decoded game.Snapshot
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	h2 := &harness{sched: &manualScheduler{}, sink: &recordingSink{}, ref: h.ref}
	restored, err := Restore(decoded, h2.deps())
	if err != nil {
		t.Fatalf("Restore: %v", err)
	}
	t.Cleanup(restored.Close)
	got := restored.Snapshot()
	if got.Phase != snap.Phase || got.Turn != snap.Turn {
		t.Fatalf("phase/turn mismatch: %s/%d vs %s/%d", got.Phase, got.Turn, snap.Phase, snap.Turn)
	}
	for i := range snap.Sides {
		if got.Sides[i].Active != snap.Sides[i].Active {
			t.Fatalf("side %d active mismatch", i)
		}
		for j := range snap.Sides[i].Members {
			if got.Sides[i].Members[j].CurrentHP != snap.Sides[i].Members[j].CurrentHP {
				t.Fatalf("side %d member %d health mismatch", i, j)
			}
		}
	}

	if _, err := restored.SubmitAction(game.SideA, game.Action{Kind: game.ActionSwitch, SwitchTo: 1}); err != nil {
		t.Fatalf("switch on restored battle: %v", err)
	}
	if p := restored.Phase(); p != game.PhaseAwaitingActions {
		t.Fatalf("expected the restored turn to complete, got %s", p)
	}
	drain(t, restored)
	if n := count(h2.sink.all(), game.EventTurnResolved, 1); n != 1 {
		t.Fatalf("expected the restored battle to close turn 1 once, got %d", n)
	}
}

type panickyRef struct {
	refdata.Provider
	armed atomic.Bool
}

func (p *panickyRef) Move(id string) (refdata.Move, error) {
	if p.armed.Load() {
		panic("corrupt move table")
	}
	return p.Provider.Move(id)
}

func TestEngine_FatalErrorEndsBattle(t *testing.T) {
	ref := &panickyRef{Provider: testRef(t)}
	h := startWith(t, baseConfig(human(member(100, 10, "scratch")), human(member(100, 50, "scratch"))), ref)
	if _, err := h.eng.SubmitAction(game.SideA, attack("scratch")); err != nil {
		t.Fatalf("submit: %v", err)
	}
	ref.armed.Store(true)
	if _, err := h.eng.SubmitAction(game.SideB, game.Action{Kind: game.ActionPass}); err != nil {
		t.Fatalf("submit: %v", err)
	}
	fe := h.eng.Fatal()
	if fe == nil || fe.Reason != ReasonInvariant {
		t.Fatalf("expected a fatal error, got %v", fe)
	}
	res := h.eng.Result()
	if res == nil || res.Outcome != game.OutcomeErrored {
		t.Fatalf("expected errored outcome, got %+v", res)
	}
	waitEnded(t, h.eng)
	events := h.sink.all()
	if last := events[len(events)-1]; last.Type != game.EventBattleEnded {
		t.Fatalf("expected a terminal event, got %s", last.Type)
	}
}
