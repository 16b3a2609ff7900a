// Package battle is the per-battle state machine: it takes submissions,
// validates them, drives turn resolution, enforces deadlines and hands the
// resulting events to a paced timeline.
package battle

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ericogr/skirmish/internal/constants"
	"github.com/ericogr/skirmish/internal/engine"
	"github.com/ericogr/skirmish/internal/game"
	"github.com/ericogr/skirmish/internal/logging"
	"github.com/ericogr/skirmish/internal/policy"
	"github.com/ericogr/skirmish/internal/refdata"
	"github.com/ericogr/skirmish/internal/timeline"
)

// Receipt is the answer to a submission.
type Receipt struct {
	Accepted bool        `json:"accepted"`
	Reason   ReasonCode  `json:"reason,omitempty"`
	Seq      uint64      `json:"seq,omitempty"`
	Turn     int         `json:"turn"`
	Phase    game.Phase  `json:"phase"`
	Side     game.SideID `json:"side"`
}

// Engine owns one battle. All methods are safe for concurrent use; every
// mutation happens under one mutex and no lock is held while waiting for
// input, timers or event pacing.
type Engine struct {
	mu sync.Mutex
	b  game.Battle

	profile       game.TimingProfile
	turnTimeout   time.Duration
	switchTimeout time.Duration
	timeoutPolicy game.TimeoutPolicy
	policyNames   map[game.SideID]string
	policies      map[game.SideID]policy.Policy

	ref      refdata.Provider
	resolver *engine.Resolver
	tl       *timeline.Broadcaster
	sched    Scheduler
	now      func() time.Time

	cursor        *game.TurnCursor
	pendingSwitch []game.SideID
	deadline      time.Time
	timer         Timer
	timerGen      uint64
	nextSeq       uint64
	nextEventSeq  uint64
	enqueued      int
	lastResolved  int
	fatal         *FatalError
	closed        bool
	done          chan struct{}
}

func newEngine(deps Deps) (*Engine, error) {
	if deps.Ref == nil {
		return nil, errors.New("battle requires a reference data provider")
	}
	deps = deps.withDefaults()
	return &Engine{
		ref:          deps.Ref,
		resolver:     engine.NewResolver(deps.Ref),
		sched:        deps.Scheduler,
		now:          deps.Now,
		policyNames:  make(map[game.SideID]string),
		policies:     make(map[game.SideID]policy.Policy),
		nextSeq:      1,
		nextEventSeq: 1,
		done:         make(chan struct{}),
	}, nil
}

func (e *Engine) startTimeline(deps Deps) {
	deps = deps.withDefaults()
	e.tl = timeline.New(e.profile, deps.Sink, timeline.WithSleeper(deps.Sleeper), timeline.WithBattleID(e.b.ID))
}

func (e *Engine) bindPolicy(side game.SideID, c game.Controller, name string) error {
	if c != game.ControllerAI {
		return nil
	}
	p, err := policy.Lookup(name, e.ref)
	if err != nil {
		return invalid(ReasonInvalidConfig, "%v", err)
	}
	if name == "" {
		name = policy.NameBasic
	}
	e.policyNames[side] = name
	e.policies[side] = p
	return nil
}

// Start validates cfg, creates the battle and opens the first turn.
func Start(cfg Config, deps Deps) (*Engine, error) {
	if err := validateConfig(cfg); err != nil {
		return nil, err
	}
	e, err := newEngine(deps)
	if err != nil {
		return nil, err
	}
	e.b = game.Battle{
		ID:    cfg.ID,
		Type:  cfg.Type,
		Phase: game.PhaseInitializing,
		Seed:  cfg.Seed,
		Sides: []game.Side{
			{ID: game.SideA, Name: cfg.SideA.Name, Controller: cfg.SideA.Controller, Members: cfg.SideA.Members, Active: cfg.SideA.Active},
			{ID: game.SideB, Name: cfg.SideB.Name, Controller: cfg.SideB.Controller, Members: cfg.SideB.Members, Active: cfg.SideB.Active},
		},
	}
	e.b = e.b.Clone()
	e.profile = cfg.Profile
	e.turnTimeout = cfg.TurnTimeout
	e.switchTimeout = cfg.SwitchTimeout
	e.timeoutPolicy = cfg.TimeoutPolicy
	if err := e.bindPolicy(game.SideA, cfg.SideA.Controller, cfg.SideA.Policy); err != nil {
		return nil, err
	}
	if err := e.bindPolicy(game.SideB, cfg.SideB.Controller, cfg.SideB.Policy); err != nil {
		return nil, err
	}
	e.startTimeline(deps)

	e.mu.Lock()
	defer e.mu.Unlock()
	snap := e.viewLocked()
	e.emit(game.Event{Type: game.EventBattleStarted, Snapshot: &snap})
	logging.Info("battle started", logging.Fields{
		constants.LogFieldBattleID: e.b.ID,
		constants.LogFieldProfile:  e.profile.Name,
		"type":                     e.b.Type,
	})
	e.startTurn()
	return e, nil
}

// Restore rebuilds an engine from a snapshot. Deadlines that already passed
// fire right away.
func Restore(snap game.Snapshot, deps Deps) (*Engine, error) {
	switch snap.Phase {
	case game.PhaseAwaitingActions, game.PhaseAwaitingForcedSwitch, game.PhaseEnded:
	default:
		return nil, invalid(ReasonInvalidConfig, "cannot restore a battle in phase %q", snap.Phase)
	}
	if err := snap.Profile.Validate(); err != nil {
		return nil, invalid(ReasonInvalidConfig, "%v", err)
	}
	if len(snap.Sides) != 2 || snap.Battle.Side(game.SideA) == nil || snap.Battle.Side(game.SideB) == nil {
		return nil, invalid(ReasonInvalidConfig, "snapshot must hold sides a and b")
	}
	if err := checkInvariants(&snap.Battle); err != nil {
		return nil, invalid(ReasonInvalidConfig, "%v", err)
	}
	if snap.Phase == game.PhaseAwaitingForcedSwitch && (snap.Cursor == nil || len(snap.PendingSwitch) == 0) {
		return nil, invalid(ReasonInvalidConfig, "forced switch snapshot without a turn cursor")
	}
	e, err := newEngine(deps)
	if err != nil {
		return nil, err
	}
	c := snap.Clone()
	e.b = c.Battle
	e.profile = c.Profile
	e.turnTimeout = c.TurnTimeout
	e.switchTimeout = c.SwitchTimeout
	e.timeoutPolicy = c.TimeoutPolicy
	e.cursor = c.Cursor
	e.pendingSwitch = c.PendingSwitch
	e.deadline = c.Deadline
	e.nextSeq = c.NextSeq
	e.nextEventSeq = c.NextEventSeq
	e.lastResolved = c.LastResolved
	for i := range e.b.Sides {
		s := &e.b.Sides[i]
		if err := e.bindPolicy(s.ID, s.Controller, c.Policies[s.ID]); err != nil {
			return nil, err
		}
	}
	e.startTimeline(deps)

	e.mu.Lock()
	defer e.mu.Unlock()
	switch e.b.Phase {
	case game.PhaseEnded:
		e.tl.Close()
		close(e.done)
	case game.PhaseAwaitingActions:
		e.arm(e.remaining(), e.onTurnTimeout)
	case game.PhaseAwaitingForcedSwitch:
		e.arm(e.remaining(), e.onSwitchTimeout)
	}
	logging.Info("battle restored", logging.Fields{
		constants.LogFieldBattleID: e.b.ID,
		constants.LogFieldPhase:    e.b.Phase,
		constants.LogFieldTurn:     e.b.Turn,
	})
	return e, nil
}

func (e *Engine) remaining() time.Duration {
	d := e.deadline.Sub(e.now())
	if d < 0 {
		return 0
	}
	return d
}

// ID returns the battle id.
func (e *Engine) ID() string { return e.b.ID }

// Done is closed when the battle has ended.
func (e *Engine) Done() <-chan struct{} { return e.done }

// Timeline exposes the emission pipeline, mainly so callers can wait for
// it to drain.
func (e *Engine) Timeline() *timeline.Broadcaster { return e.tl }

// Result returns the terminal result, or nil while the battle runs.
func (e *Engine) Result() *game.Result {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.b.Result == nil {
		return nil
	}
	r := *e.b.Result
	return &r
}

// Phase returns the current phase.
func (e *Engine) Phase() game.Phase {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.b.Phase
}

// Fatal returns the fatal error that ended the battle, if any.
func (e *Engine) Fatal() *FatalError {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.fatal
}

// Snapshot returns a deep, read-only copy of the battle, hidden choices
// included. It is what Restore needs; use View for anything a participant
// can see.
func (e *Engine) Snapshot() game.Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.snapshotLocked()
}

// View returns the public snapshot: pending actions are hidden until the
// turn resolves.
func (e *Engine) View() game.Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.viewLocked()
}

func (e *Engine) viewLocked() game.Snapshot {
	s := e.snapshotLocked()
	return s.Public()
}

func (e *Engine) snapshotLocked() game.Snapshot {
	s := game.Snapshot{
		Battle:        e.b,
		Profile:       e.profile,
		TurnTimeout:   e.turnTimeout,
		SwitchTimeout: e.switchTimeout,
		TimeoutPolicy: e.timeoutPolicy,
		Policies:      e.policyNames,
		Deadline:      e.deadline,
		PendingSwitch: e.pendingSwitch,
		Cursor:        e.cursor,
		NextSeq:       e.nextSeq,
		NextEventSeq:  e.nextEventSeq,
		LastResolved:  e.lastResolved,
		CapturedAt:    e.now(),
	}
	return s.Clone()
}

// Close stops timers and abandons unsent events. It does not change the
// battle state.
func (e *Engine) Close() {
	e.mu.Lock()
	e.closed = true
	e.stopTimer()
	e.mu.Unlock()
	e.tl.Stop()
}

// emit stamps and queues an event. Queuing never blocks, so it is safe
// under the engine lock.
func (e *Engine) emit(ev game.Event) {
	ev.BattleID = e.b.ID
	ev.Seq = e.nextEventSeq
	e.nextEventSeq++
	if ev.Turn == 0 {
		ev.Turn = e.b.Turn
	}
	if err := e.tl.Enqueue(ev); err != nil {
		logging.Debug("event dropped", logging.Fields{constants.LogFieldBattleID: e.b.ID, constants.LogFieldKind: ev.Type})
		return
	}
	e.enqueued++
}

func (e *Engine) arm(d time.Duration, fire func(gen uint64)) {
	e.stopTimer()
	e.timerGen++
	gen := e.timerGen
	e.timer = e.sched.AfterFunc(d, func() { fire(gen) })
}

func (e *Engine) stopTimer() {
	if e.timer != nil {
		e.timer.Stop()
		e.timer = nil
	}
	e.timerGen++
}

func (e *Engine) startTurn() {
	e.b.Turn++
	e.b.Phase = game.PhaseAwaitingActions
	e.deadline = e.now().Add(e.turnTimeout)
	dl := e.deadline
	e.emit(game.Event{Type: game.EventTurnStarted, Deadline: &dl})
	e.arm(e.turnTimeout, e.onTurnTimeout)
}

// end finalizes the battle. It is the only way into PhaseEnded.
func (e *Engine) end(res game.Result) {
	if e.b.Phase == game.PhaseEnded {
		return
	}
	if res.Turns == 0 {
		res.Turns = e.b.Turn
	}
	e.stopTimer()
	e.b.Result = &res
	e.b.Phase = game.PhaseEnded
	e.cursor = nil
	e.pendingSwitch = nil
	e.deadline = time.Time{}
	for i := range e.b.Sides {
		e.b.Sides[i].Pending = nil
	}
	e.emit(game.Event{Type: game.EventBattleEnded, Result: &res, Side: res.Winner})
	e.tl.Close()
	close(e.done)
	logging.Info("battle ended", logging.Fields{
		constants.LogFieldBattleID: e.b.ID,
		constants.LogFieldOutcome:  res.Outcome,
		constants.LogFieldWinner:   res.Winner,
		constants.LogFieldReason:   res.Reason,
		constants.LogFieldTurn:     res.Turns,
	})
}

// fail ends the battle as errored after an internal invariant broke.
func (e *Engine) fail(reason ReasonCode, err error) *FatalError {
	fe := &FatalError{BattleID: e.b.ID, Reason: reason, Err: err}
	e.fatal = fe
	logging.Error("battle aborted", err, logging.Fields{
		constants.LogFieldBattleID: e.b.ID,
		constants.LogFieldTurn:     e.b.Turn,
		constants.LogFieldPhase:    e.b.Phase,
		constants.LogFieldReason:   reason,
	})
	e.end(game.Result{Outcome: game.OutcomeErrored, Reason: string(reason)})
	return fe
}

func (e *Engine) sideIsHuman(id game.SideID) bool {
	s := e.b.Side(id)
	return s != nil && s.Controller == game.ControllerHuman
}

func (e *Engine) reject(side game.SideID, err error) (Receipt, error) {
	reason := Reason(err)
	if e.b.Phase != game.PhaseEnded {
		e.emit(game.Event{Type: game.EventActionRejected, Side: side, Reason: string(reason)})
	}
	logging.Debug("action rejected", logging.Fields{
		constants.LogFieldBattleID: e.b.ID,
		constants.LogFieldSide:     side,
		constants.LogFieldReason:   reason,
	})
	return Receipt{Reason: reason, Turn: e.b.Turn, Phase: e.b.Phase, Side: side}, err
}

// accept announces that a side has chosen, never what it chose.
func (e *Engine) accept(a game.Action) Receipt {
	e.emit(game.Event{Type: game.EventActionAccepted, Side: a.Side})
	return Receipt{Accepted: true, Seq: a.Seq, Turn: e.b.Turn, Phase: e.b.Phase, Side: a.Side}
}

func (e *Engine) stamp(a *game.Action) {
	a.Seq = e.nextSeq
	e.nextSeq++
	a.SubmittedAt = e.now()
	a.Turn = e.b.Turn
}

// SubmitAction validates and stores a side's action. Once every side has
// an action for the turn the turn is resolved before SubmitAction returns.
func (e *Engine) SubmitAction(side game.SideID, a game.Action) (Receipt, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	a = normalize(a)
	a.Side = side
	a.Timeout = false
	s := e.b.Side(side)
	switch {
	case e.b.Phase == game.PhaseEnded:
		return e.reject(side, &PhaseError{Reason: ReasonBattleEnded, Phase: string(e.b.Phase)})
	case s == nil:
		return e.reject(side, invalid(ReasonUnknownSide, "%q", side))
	case e.b.Phase == game.PhaseResolving || e.b.Phase == game.PhaseInitializing:
		return e.reject(side, &PhaseError{Reason: ReasonResolving, Phase: string(e.b.Phase)})
	case a.Turn != 0 && a.Turn != e.b.Turn:
		return e.reject(side, &PhaseError{Reason: ReasonStaleTurn, Phase: string(e.b.Phase)})
	case s.Controller != game.ControllerHuman:
		return e.reject(side, invalid(ReasonNotYourTurn, "side %s is computer controlled", side))
	}

	if a.Kind == game.ActionForfeit {
		e.stamp(&a)
		r := e.accept(a)
		e.end(game.Result{Winner: side.Opponent(), Outcome: game.OutcomeForfeited, Reason: "forfeit"})
		r.Phase = e.b.Phase
		return r, nil
	}

	if e.b.Phase == game.PhaseAwaitingForcedSwitch {
		return e.submitForcedSwitch(s, a)
	}

	if s.Pending != nil {
		return e.reject(side, invalid(ReasonAlreadySubmitted, "side %s already acted on turn %d", side, e.b.Turn))
	}
	if err := e.validateAction(s, a); err != nil {
		return e.reject(side, err)
	}
	e.stamp(&a)
	s.Pending = &a
	r := e.accept(a)
	logging.Debug("action accepted", logging.Fields{
		constants.LogFieldBattleID: e.b.ID,
		constants.LogFieldSide:     side,
		constants.LogFieldKind:     a.Kind,
		constants.LogFieldTurn:     e.b.Turn,
	})

	if e.humansReady() {
		e.fillComputerActions()
		e.resolveTurn()
	}
	r.Phase = e.b.Phase
	return r, nil
}

func (e *Engine) humansReady() bool {
	for i := range e.b.Sides {
		s := &e.b.Sides[i]
		if s.Controller == game.ControllerHuman && s.Pending == nil {
			return false
		}
	}
	return true
}

// fillComputerActions asks each AI side's policy for an action. A policy
// answer that fails validation is replaced by the fallback, then by pass.
func (e *Engine) fillComputerActions() {
	view := e.viewLocked()
	for i := range e.b.Sides {
		s := &e.b.Sides[i]
		if s.Controller != game.ControllerAI || s.Pending != nil {
			continue
		}
		a := normalize(e.policies[s.ID].ChooseAction(view, s.ID))
		a.Side = s.ID
		if err := e.validateAction(s, a); err != nil {
			logging.Warn("policy chose an illegal action", logging.Fields{
				constants.LogFieldBattleID: e.b.ID,
				constants.LogFieldSide:     s.ID,
				constants.LogFieldReason:   Reason(err),
			})
			a = normalize(policy.Fallback(view, s.ID))
			a.Side = s.ID
			if e.validateAction(s, a) != nil {
				a = game.Action{Side: s.ID, Kind: game.ActionPass}
			}
		}
		e.stamp(&a)
		s.Pending = &a
		e.accept(a)
	}
}

func (e *Engine) submitForcedSwitch(s *game.Side, a game.Action) (Receipt, error) {
	if !e.awaitingSwitch(s.ID) || a.Kind != game.ActionSwitch {
		return e.reject(s.ID, &PhaseError{Reason: ReasonForcedSwitchPending, Phase: string(e.b.Phase)})
	}
	if err := e.validateReplacement(s, a.SwitchTo); err != nil {
		return e.reject(s.ID, err)
	}
	e.stamp(&a)
	r := e.accept(a)
	e.applyReplacement(s, a.SwitchTo, "")
	e.afterReplacement()
	r.Phase = e.b.Phase
	return r, nil
}

func (e *Engine) awaitingSwitch(id game.SideID) bool {
	for _, p := range e.pendingSwitch {
		if p == id {
			return true
		}
	}
	return false
}

func (e *Engine) validateReplacement(s *game.Side, to int) error {
	if to < 0 || to >= len(s.Members) {
		return invalid(ReasonInvalidSwitch, "index %d out of range", to)
	}
	if s.Members[to].Fainted() {
		return invalid(ReasonSwitchToFainted, "member %d has fainted", to)
	}
	if to == s.Active {
		return invalid(ReasonSwitchToActive, "member %d is already active", to)
	}
	return nil
}

// applyReplacement brings in a member for a side whose active fainted.
func (e *Engine) applyReplacement(s *game.Side, to int, reason string) {
	from := s.Active
	s.Active = to
	s.NeedsSwitch = false
	s.Members[from].Stages = game.Stages{}
	in := &s.Members[to]
	in.Stages = game.Stages{}
	e.emit(game.Event{
		Type:    game.EventSwitched,
		Side:    s.ID,
		Member:  to,
		HP:      in.CurrentHP,
		MaxHP:   in.MaxHP(),
		Count:   from,
		Reason:  reason,
		Message: fmt.Sprintf("%s sent out %s!", s.Name, in.DisplayName()),
	})
	out := e.pendingSwitch[:0]
	for _, id := range e.pendingSwitch {
		if id != s.ID {
			out = append(out, id)
		}
	}
	e.pendingSwitch = out
}

func (e *Engine) afterReplacement() {
	if len(e.pendingSwitch) > 0 {
		return
	}
	e.stopTimer()
	e.deadline = time.Time{}
	e.b.Phase = game.PhaseResolving
	e.continueTurn()
}
