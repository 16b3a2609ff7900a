package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/ericogr/skirmish/internal/battle"
	"github.com/ericogr/skirmish/internal/config"
	"github.com/ericogr/skirmish/internal/constants"
	"github.com/ericogr/skirmish/internal/game"
	"github.com/ericogr/skirmish/internal/keys"
	"github.com/ericogr/skirmish/internal/refdata"
	"github.com/ericogr/skirmish/internal/storage"
	"github.com/ericogr/skirmish/internal/team"
	"github.com/ericogr/skirmish/internal/timeline"
)

var (
	ErrBattleNotFound = errors.New("battle not found")
	ErrManagerClosed  = errors.New("battle manager is closed")
)

var tracer = otel.Tracer("github.com/ericogr/skirmish/internal/service")

const attrBattleID = "battle.id"

// ResultRecorder archives finished battles.
type ResultRecorder interface {
	RecordResult(ctx context.Context, rec *storage.BattleResultRecord) error
}

// SideRequest describes one side of a battle to start.
type SideRequest struct {
	Name       string            `json:"name"`
	Controller game.Controller   `json:"controller"`
	Policy     string            `json:"policy,omitempty"`
	Members    []team.MemberSpec `json:"members"`
	// Active defaults to the first member able to fight.
	Active *int `json:"active,omitempty"`
}

// StartRequest is what a caller supplies to start a battle. Empty fields
// take the configured defaults. Timeouts are Go duration strings ("45s").
type StartRequest struct {
	Type          game.BattleType    `json:"type"`
	Seed          *int64             `json:"seed,omitempty"`
	Profile       string             `json:"profile,omitempty"`
	TurnTimeout   string             `json:"turn_timeout,omitempty"`
	SwitchTimeout string             `json:"switch_timeout,omitempty"`
	TimeoutPolicy game.TimeoutPolicy `json:"timeout_policy,omitempty"`
	SideA         SideRequest        `json:"side_a"`
	SideB         SideRequest        `json:"side_b"`
}

// Options configures a Manager. Ref and Profiles are required.
type Options struct {
	Ref       refdata.Provider
	Profiles  *timeline.Registry
	Defaults  config.BattleDefaults
	Learnsets map[string][]string
	Recorder  ResultRecorder
	Scheduler battle.Scheduler
	Sleeper   timeline.Sleeper
	Now       func() time.Time
	NewID     func() string
	// HistoryLimit bounds the events replayed to late subscribers.
	HistoryLimit int
}

type entry struct {
	eng       *battle.Engine
	hub       *Hub
	createdAt time.Time
	endedAt   time.Time
}

// Manager owns every running battle of the process.
type Manager struct {
	opts Options

	mu      sync.RWMutex
	battles map[string]*entry
	closed  bool
	stop    chan struct{}
	wg      sync.WaitGroup
}

// NewManager returns a Manager with no battles.
func NewManager(opts Options) (*Manager, error) {
	if opts.Ref == nil {
		return nil, errors.New("service: reference data provider is required")
	}
	if opts.Profiles == nil {
		reg, err := timeline.NewRegistry()
		if err != nil {
			return nil, err
		}
		opts.Profiles = reg
	}
	if opts.Scheduler == nil {
		opts.Scheduler = battle.RealScheduler()
	}
	if opts.Sleeper == nil {
		opts.Sleeper = timeline.RealSleep
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.NewID == nil {
		opts.NewID = uuid.NewString
	}
	d := &opts.Defaults
	if d.TurnTimeout <= 0 {
		d.TurnTimeout = constants.DefaultTurnTimeout
	}
	if d.SwitchTimeout <= 0 {
		d.SwitchTimeout = constants.DefaultSwitchTimeout
	}
	if d.TimeoutPolicy == "" {
		d.TimeoutPolicy = game.TimeoutPass
	}
	if d.Profile == "" {
		d.Profile = timeline.ProfileAuthentic
	}
	if d.Retention <= 0 {
		d.Retention = constants.DefaultRetention
	}
	return &Manager{
		opts:    opts,
		battles: make(map[string]*entry),
		stop:    make(chan struct{}),
	}, nil
}

func fail(span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}

func invalidConfig(format string, args ...any) error {
	return &battle.ValidationError{Reason: battle.ReasonInvalidConfig, Detail: fmt.Sprintf(format, args...)}
}

// Start builds the rosters, starts the engine and registers the battle.
func (m *Manager) Start(ctx context.Context, req StartRequest) (string, game.Snapshot, error) {
	_, span := tracer.Start(ctx, "battle.start")
	defer span.End()

	cfg, err := m.buildConfig(req)
	if err != nil {
		fail(span, err)
		return "", game.Snapshot{}, err
	}
	span.SetAttributes(
		attribute.String(attrBattleID, cfg.ID),
		attribute.String("battle.type", string(cfg.Type)),
		attribute.String("battle.profile", cfg.Profile.Name),
	)

	m.mu.RLock()
	closed := m.closed
	m.mu.RUnlock()
	if closed {
		return "", game.Snapshot{}, ErrManagerClosed
	}

	hub := newHub(m.opts.HistoryLimit)
	eng, err := battle.Start(cfg, battle.Deps{
		Ref:       m.opts.Ref,
		Sink:      hub,
		Scheduler: m.opts.Scheduler,
		Sleeper:   m.opts.Sleeper,
		Now:       m.opts.Now,
	})
	if err != nil {
		fail(span, err)
		return "", game.Snapshot{}, err
	}
	e := &entry{eng: eng, hub: hub, createdAt: m.opts.Now()}

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		eng.Close()
		hub.Close()
		return "", game.Snapshot{}, ErrManagerClosed
	}
	m.battles[cfg.ID] = e
	m.wg.Add(1)
	m.mu.Unlock()

	go m.watch(cfg.ID, e)
	return cfg.ID, eng.View(), nil
}

func (m *Manager) buildConfig(req StartRequest) (battle.Config, error) {
	d := m.opts.Defaults
	cfg := battle.Config{
		ID:            m.opts.NewID(),
		Type:          req.Type,
		TurnTimeout:   d.TurnTimeout,
		SwitchTimeout: d.SwitchTimeout,
		TimeoutPolicy: d.TimeoutPolicy,
	}
	if cfg.Type == "" {
		cfg.Type = game.BattleTrainer
	}
	if req.Seed != nil {
		cfg.Seed = *req.Seed
	} else {
		cfg.Seed = m.opts.Now().UnixNano()
	}
	if req.TimeoutPolicy != "" {
		cfg.TimeoutPolicy = req.TimeoutPolicy
	}
	var err error
	if cfg.TurnTimeout, err = duration("turn_timeout", req.TurnTimeout, cfg.TurnTimeout); err != nil {
		return cfg, err
	}
	if cfg.SwitchTimeout, err = duration("switch_timeout", req.SwitchTimeout, cfg.SwitchTimeout); err != nil {
		return cfg, err
	}

	name := req.Profile
	if name == "" {
		name = d.Profile
	}
	if cfg.Profile, err = m.opts.Profiles.Get(name); err != nil {
		return cfg, invalidConfig("%v", err)
	}

	if cfg.SideA, err = m.buildSide(req.SideA); err != nil {
		return cfg, err
	}
	if cfg.SideB, err = m.buildSide(req.SideB); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func duration(field, v string, def time.Duration) (time.Duration, error) {
	if v == "" {
		return def, nil
	}
	dur, err := time.ParseDuration(v)
	if err != nil || dur <= 0 {
		return 0, invalidConfig("%s must be a positive duration, got %q", field, v)
	}
	return dur, nil
}

func (m *Manager) buildSide(req SideRequest) (battle.SideConfig, error) {
	if err := m.checkLearnsets(req.Members); err != nil {
		return battle.SideConfig{}, err
	}
	members, active, err := team.NewRoster(m.opts.Ref, req.Members)
	if err != nil {
		return battle.SideConfig{}, invalidConfig("side %q: %v", req.Name, err)
	}
	if req.Active != nil {
		active = *req.Active
	}
	sc := battle.SideConfig{
		Name:       req.Name,
		Controller: req.Controller,
		Members:    members,
		Active:     active,
		Policy:     req.Policy,
	}
	if sc.Controller == game.ControllerAI && sc.Policy == "" {
		sc.Policy = m.opts.Defaults.OpponentPolicy
	}
	return sc, nil
}

func (m *Manager) checkLearnsets(specs []team.MemberSpec) error {
	for _, s := range specs {
		allowed, ok := m.opts.Learnsets[keys.Normalize(s.Species)]
		if !ok {
			continue
		}
		for _, mv := range s.Moves {
			if !contains(allowed, keys.Normalize(mv)) {
				return invalidConfig("%s cannot learn %s", s.Species, mv)
			}
		}
	}
	return nil
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}

func (m *Manager) lookup(id string) (*entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.battles[id]
	if !ok {
		return nil, ErrBattleNotFound
	}
	return e, nil
}

// Submit forwards an action to the battle's engine.
func (m *Manager) Submit(ctx context.Context, id string, side game.SideID, a game.Action) (battle.Receipt, error) {
	_, span := tracer.Start(ctx, "battle.submit", trace.WithAttributes(
		attribute.String(attrBattleID, id),
		attribute.String("battle.side", string(side)),
		attribute.String("action.kind", string(a.Kind)),
	))
	defer span.End()

	e, err := m.lookup(id)
	if err != nil {
		fail(span, err)
		return battle.Receipt{}, err
	}
	rc, err := e.eng.SubmitAction(side, a)
	if err != nil {
		span.SetAttributes(attribute.String("action.reason", string(battle.Reason(err))))
		fail(span, err)
		return rc, err
	}
	span.SetAttributes(attribute.Int("battle.turn", rc.Turn))
	return rc, nil
}

// Snapshot returns the public state of a battle. Choices for the current
// turn stay hidden until it resolves.
func (m *Manager) Snapshot(id string) (game.Snapshot, error) {
	e, err := m.lookup(id)
	if err != nil {
		return game.Snapshot{}, err
	}
	return e.eng.View(), nil
}

// Subscribe attaches to the battle's event stream. See Hub.Subscribe.
func (m *Manager) Subscribe(id string) ([]game.Event, <-chan game.Event, func(), error) {
	e, err := m.lookup(id)
	if err != nil {
		return nil, nil, nil, err
	}
	history, ch, cancel := e.hub.Subscribe()
	return history, ch, cancel, nil
}

// Count is the number of battles held in memory, finished ones included.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.battles)
}

// Close stops every battle and waits for the archive watchers.
func (m *Manager) Close() {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.closed = true
	close(m.stop)
	entries := make([]*entry, 0, len(m.battles))
	for _, e := range m.battles {
		entries = append(entries, e)
	}
	m.mu.Unlock()

	for _, e := range entries {
		e.eng.Close()
		e.hub.Close()
	}
	m.wg.Wait()
}
