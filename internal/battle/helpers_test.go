package battle

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/ericogr/skirmish/internal/game"
	"github.com/ericogr/skirmish/internal/refdata"
	"github.com/ericogr/skirmish/internal/timeline"
)

type manualTimer struct {
	d       time.Duration
	f       func()
	stopped bool
}

func (t *manualTimer) Stop() bool {
	was := !t.stopped
	t.stopped = true
	return was
}

// manualScheduler records timers; tests fire them explicitly.
type manualScheduler struct {
	mu     sync.Mutex
	timers []*manualTimer
}

func (s *manualScheduler) AfterFunc(d time.Duration, f func()) Timer {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := &manualTimer{d: d, f: f}
	s.timers = append(s.timers, t)
	return t
}

// fireLatest runs the most recent live timer and reports whether one
// existed.
func (s *manualScheduler) fireLatest() bool {
	s.mu.Lock()
	var t *manualTimer
	for i := len(s.timers) - 1; i >= 0; i-- {
		if !s.timers[i].stopped {
			t = s.timers[i]
			break
		}
	}
	if t != nil {
		t.stopped = true
	}
	s.mu.Unlock()
	if t == nil {
		return false
	}
	t.f()
	return true
}

type recordingSink struct {
	mu     sync.Mutex
	events []game.Event
}

func (s *recordingSink) Emit(ev game.Event) {
	s.mu.Lock()
	s.events = append(s.events, ev)
	s.mu.Unlock()
}

func (s *recordingSink) all() []game.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]game.Event(nil), s.events...)
}

func noSleep(ctx context.Context, d time.Duration) error { return ctx.Err() }

// drain waits until the timeline emitted everything queued so far.
func drain(t *testing.T, e *Engine) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		e.mu.Lock()
		want := e.enqueued
		e.mu.Unlock()
		if e.Timeline().Emitted() >= want {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("timeline did not drain")
}

func waitEnded(t *testing.T, e *Engine) {
	t.Helper()
	select {
	case <-e.Timeline().Done():
	case <-time.After(2 * time.Second):
		t.Fatalf("timeline did not finish")
	}
}

func testRef(t *testing.T) *refdata.Catalog {
	t.Helper()
	c, err := refdata.NewCatalog(nil, []refdata.Move{
		{ID: "slam", Name: "Slam", FixedDamage: 45, MaxPP: 10},
		{ID: "scratch", Name: "Scratch", FixedDamage: 5, MaxPP: 10},
		{ID: "quick_attack", Name: "Quick Attack", FixedDamage: 5, Priority: 1, MaxPP: 10},
	}, []refdata.Item{{ID: "potion", Heal: 20}})
	if err != nil {
		t.Fatalf("catalog: %v", err)
	}
	return c
}

func member(hp, speed int, moves ...string) game.Member {
	m := game.Member{SpeciesID: "mon", Level: 50, Stats: game.Stats{HP: hp, Attack: 50, Defense: 50, Speed: speed}, CurrentHP: hp}
	for _, id := range moves {
		m.Moves = append(m.Moves, game.MoveSlot{MoveID: id, PP: 10, MaxPP: 10})
	}
	return m
}

type harness struct {
	eng   *Engine
	sched *manualScheduler
	sink  *recordingSink
	ref   refdata.Provider
}

func baseConfig(a, b SideConfig) Config {
	return Config{
		ID:            "b1",
		Type:          game.BattleTrainer,
		Seed:          7,
		SideA:         a,
		SideB:         b,
		Profile:       timeline.Debug(),
		TurnTimeout:   30 * time.Second,
		SwitchTimeout: 10 * time.Second,
		TimeoutPolicy: game.TimeoutPass,
	}
}

func human(members ...game.Member) SideConfig {
	return SideConfig{Name: "Red", Controller: game.ControllerHuman, Members: members}
}

func computer(members ...game.Member) SideConfig {
	return SideConfig{Name: "Blue", Controller: game.ControllerAI, Members: members, Policy: "basic"}
}

func start(t *testing.T, cfg Config) *harness {
	t.Helper()
	return startWith(t, cfg, testRef(t))
}

func startWith(t *testing.T, cfg Config, ref refdata.Provider) *harness {
	t.Helper()
	h := &harness{sched: &manualScheduler{}, sink: &recordingSink{}, ref: ref}
	eng, err := Start(cfg, h.deps())
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	h.eng = eng
	t.Cleanup(eng.Close)
	return h
}

func (h *harness) deps() Deps {
	return Deps{Ref: h.ref, Sink: h.sink, Scheduler: h.sched, Sleeper: noSleep}
}

func attack(move string) game.Action {
	return game.Action{Kind: game.ActionAttack, MoveID: move}
}

func count(events []game.Event, typ game.EventType, turn int) int {
	n := 0
	for _, ev := range events {
		if ev.Type == typ && (turn == 0 || ev.Turn == turn) {
			n++
		}
	}
	return n
}
