package api

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ericogr/skirmish/internal/battle"
	"github.com/ericogr/skirmish/internal/config"
	"github.com/ericogr/skirmish/internal/game"
	"github.com/ericogr/skirmish/internal/refdata"
	"github.com/ericogr/skirmish/internal/service"
	"github.com/ericogr/skirmish/internal/storage"
	"github.com/ericogr/skirmish/internal/team"
	"github.com/ericogr/skirmish/internal/timeline"
)

func init() { gin.SetMode(gin.TestMode) }

type idleTimer struct{}

func (idleTimer) Stop() bool { return true }

type idleScheduler struct{}

func (idleScheduler) AfterFunc(time.Duration, func()) battle.Timer { return idleTimer{} }

func noSleep(ctx context.Context, d time.Duration) error { return ctx.Err() }

type fakeArchive struct {
	mu      sync.Mutex
	results map[string]*storage.BattleResultRecord
	species []refdata.Species
	moves   []refdata.Move
}

func (f *fakeArchive) ListSpecies() ([]refdata.Species, error) { return f.species, nil }
func (f *fakeArchive) ListMoves() ([]refdata.Move, error)      { return f.moves, nil }

func (f *fakeArchive) GetResult(ctx context.Context, id string) (*storage.BattleResultRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if r, ok := f.results[id]; ok {
		return r, nil
	}
	return nil, storage.ErrResultNotFound
}

func (f *fakeArchive) ListResults(ctx context.Context, limit int) ([]storage.BattleResultRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]storage.BattleResultRecord, 0, len(f.results))
	for _, r := range f.results {
		out = append(out, *r)
	}
	return out, nil
}

func testCatalog(t *testing.T) *refdata.Catalog {
	t.Helper()
	c, err := refdata.NewCatalog(
		[]refdata.Species{{ID: "brute", Name: "Brute", Base: game.Stats{HP: 60, Attack: 60, Defense: 60, Speed: 60}}},
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

type testServer struct {
	manager *service.Manager
	archive *fakeArchive
	tokens  *TokenIssuer
	router  *gin.Engine
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	ref := testCatalog(t)
	m, err := service.NewManager(service.Options{
		Ref:       ref,
		Defaults:  config.BattleDefaults{Profile: timeline.ProfileDebug},
		Scheduler: idleScheduler{},
		Sleeper:   noSleep,
	})
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	t.Cleanup(m.Close)
	tokens, err := NewTokenIssuer("test-secret", time.Hour)
	if err != nil {
		t.Fatalf("NewTokenIssuer: %v", err)
	}
	archive := &fakeArchive{
		results: map[string]*storage.BattleResultRecord{},
		species: []refdata.Species{{ID: "brute", Name: "Brute"}},
		moves:   []refdata.Move{{ID: "scratch", Name: "Scratch"}},
	}
	return &testServer{
		manager: m,
		archive: archive,
		tokens:  tokens,
		router:  NewRouter(NewBattleHandler(m, archive, tokens)),
	}
}

func startBody() service.StartRequest {
	seed := int64(9)
	stats := func(hp, speed int) *game.Stats { return &game.Stats{HP: hp, Attack: 50, Defense: 50, Speed: speed} }
	return service.StartRequest{
		Type: game.BattleTrainer,
		Seed: &seed,
		SideA: service.SideRequest{
			Name:       "Red",
			Controller: game.ControllerHuman,
			Members:    []team.MemberSpec{{Species: "brute", Level: 50, Moves: []string{"finisher"}, Stats: stats(100, 90)}},
		},
		SideB: service.SideRequest{
			Name:       "Rival",
			Controller: game.ControllerAI,
			Members:    []team.MemberSpec{{Species: "brute", Level: 10, Moves: []string{"scratch"}, Stats: stats(30, 10)}},
		},
	}
}
