package service

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/ericogr/skirmish/internal/battle"
	"github.com/ericogr/skirmish/internal/config"
	"github.com/ericogr/skirmish/internal/game"
	"github.com/ericogr/skirmish/internal/refdata"
	"github.com/ericogr/skirmish/internal/storage"
	"github.com/ericogr/skirmish/internal/team"
	"github.com/ericogr/skirmish/internal/timeline"
)

type idleTimer struct{}

func (idleTimer) Stop() bool { return true }

// idleScheduler never fires; tests drive battles by submitting actions.
type idleScheduler struct{}

func (idleScheduler) AfterFunc(time.Duration, func()) battle.Timer { return idleTimer{} }

func noSleep(ctx context.Context, d time.Duration) error { return ctx.Err() }

type fakeRecorder struct {
	mu      sync.Mutex
	records []*storage.BattleResultRecord
	got     chan struct{}
}

func newFakeRecorder() *fakeRecorder { return &fakeRecorder{got: make(chan struct{}, 8)} }

func (f *fakeRecorder) RecordResult(ctx context.Context, rec *storage.BattleResultRecord) error {
	f.mu.Lock()
	f.records = append(f.records, rec)
	f.mu.Unlock()
	f.got <- struct{}{}
	return nil
}

func (f *fakeRecorder) wait(t *testing.T) *storage.BattleResultRecord {
	t.Helper()
	select {
	case <-f.got:
	case <-time.After(2 * time.Second):
		t.Fatalf("result was not archived")
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.records[len(f.records)-1]
}

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) advance(d time.Duration) time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
	return c.now
}

func testRef(t *testing.T) *refdata.Catalog {
	t.Helper()
	c, err := refdata.NewCatalog(
		[]refdata.Species{
			{ID: "brute", Name: "Brute", Base: game.Stats{HP: 60, Attack: 60, Defense: 60, Speed: 60}},
			{ID: "sprite", Name: "Sprite", Base: game.Stats{HP: 40, Attack: 40, Defense: 40, Speed: 40}},
		},
		[]refdata.Move{
			{ID: "finisher", Name: "Finisher", FixedDamage: 500, MaxPP: 5},
			{ID: "scratch", Name: "Scratch", FixedDamage: 5, MaxPP: 30},
		},
		nil,
	)
	if err != nil {
		t.Fatalf("catalog: %v", err)
	}
	return c
}

func newTestManager(t *testing.T, rec ResultRecorder, clk *clock) *Manager {
	t.Helper()
	reg, err := timeline.NewRegistry()
	if err != nil {
		t.Fatalf("registry: %v", err)
	}
	n := 0
	m, err := NewManager(Options{
		Ref:       testRef(t),
		Profiles:  reg,
		Defaults:  config.BattleDefaults{Profile: timeline.ProfileDebug, Retention: time.Minute},
		Learnsets: map[string][]string{"sprite": {"scratch"}},
		Recorder:  rec,
		Scheduler: idleScheduler{},
		Sleeper:   noSleep,
		Now:       clk.Now,
		NewID: func() string {
			n++
			return fmt.Sprintf("battle-%d", n)
		},
	})
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	t.Cleanup(m.Close)
	return m
}

func stats(hp, speed int) *game.Stats {
	return &game.Stats{HP: hp, Attack: 50, Defense: 50, Speed: speed}
}

// duel is a human brute that outspeeds and one-shots an AI sprite.
func duel() StartRequest {
	seed := int64(3)
	return StartRequest{
		Type: game.BattleTrainer,
		Seed: &seed,
		SideA: SideRequest{
			Name:       "Red",
			Controller: game.ControllerHuman,
			Members:    []team.MemberSpec{{Species: "brute", Level: 50, Moves: []string{"finisher", "scratch"}, Stats: stats(100, 90)}},
		},
		SideB: SideRequest{
			Name:       "Wild",
			Controller: game.ControllerAI,
			Members:    []team.MemberSpec{{Species: "sprite", Level: 20, Moves: []string{"scratch"}, Stats: stats(30, 10)}},
		},
	}
}
