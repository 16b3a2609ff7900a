// Package timeline paces a battle's events out to a sink one at a time,
// in order, waiting each event's configured delay before emitting it.
package timeline

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/ericogr/skirmish/internal/constants"
	"github.com/ericogr/skirmish/internal/game"
	"github.com/ericogr/skirmish/internal/logging"
)

var ErrClosed = errors.New("timeline is closed")

// Sink receives emitted events. Emit is called from the broadcaster's own
// goroutine, never concurrently for one broadcaster.
type Sink interface {
	Emit(ev game.Event)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(ev game.Event)

func (f SinkFunc) Emit(ev game.Event) { f(ev) }

// Sleeper waits for d or until ctx is done.
type Sleeper func(ctx context.Context, d time.Duration) error

// RealSleep is the wall-clock Sleeper.
func RealSleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Option customizes a Broadcaster.
type Option func(*Broadcaster)

// WithSleeper replaces the wall-clock wait, mainly for tests.
func WithSleeper(s Sleeper) Option {
	return func(b *Broadcaster) { b.sleep = s }
}

// WithBattleID tags log lines.
func WithBattleID(id string) Option {
	return func(b *Broadcaster) { b.battleID = id }
}

// Broadcaster is a single sequential emission pipeline for one battle.
// Enqueue never blocks on pacing; only the broadcaster's goroutine waits.
type Broadcaster struct {
	profile  game.TimingProfile
	sink     Sink
	sleep    Sleeper
	battleID string

	mu      sync.Mutex
	queue   []game.Event
	closed  bool
	emitted int

	signal chan struct{}
	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

// New starts the emission goroutine.
func New(profile game.TimingProfile, sink Sink, opts ...Option) *Broadcaster {
	ctx, cancel := context.WithCancel(context.Background())
	b := &Broadcaster{
		profile: profile,
		sink:    sink,
		sleep:   RealSleep,
		signal:  make(chan struct{}, 1),
		ctx:     ctx,
		cancel:  cancel,
		done:    make(chan struct{}),
	}
	for _, o := range opts {
		o(b)
	}
	go b.run()
	return b
}

// Profile returns the timing profile in use.
func (b *Broadcaster) Profile() game.TimingProfile { return b.profile }

// Enqueue appends events behind everything already queued.
func (b *Broadcaster) Enqueue(events ...game.Event) error {
	if len(events) == 0 {
		return nil
	}
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return ErrClosed
	}
	b.queue = append(b.queue, events...)
	b.mu.Unlock()
	b.wake()
	return nil
}

// Close stops accepting events. Already queued events are still emitted.
func (b *Broadcaster) Close() {
	b.mu.Lock()
	b.closed = true
	b.mu.Unlock()
	b.wake()
}

// Stop abandons any queued events and ends the goroutine.
func (b *Broadcaster) Stop() {
	b.mu.Lock()
	b.closed = true
	dropped := len(b.queue)
	b.queue = nil
	b.mu.Unlock()
	b.cancel()
	if dropped > 0 {
		logging.Debug("timeline stopped with pending events", logging.Fields{constants.LogFieldBattleID: b.battleID, "dropped": dropped})
	}
}

// Done is closed once the goroutine exits.
func (b *Broadcaster) Done() <-chan struct{} { return b.done }

// Pending returns how many events wait to be emitted.
func (b *Broadcaster) Pending() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.queue)
}

// Emitted returns how many events reached the sink.
func (b *Broadcaster) Emitted() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.emitted
}

func (b *Broadcaster) wake() {
	select {
	case b.signal <- struct{}{}:
	default:
	}
}

func (b *Broadcaster) next() (game.Event, bool, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.queue) == 0 {
		return game.Event{}, false, b.closed
	}
	ev := b.queue[0]
	b.queue[0] = game.Event{}
	b.queue = b.queue[1:]
	return ev, true, false
}

func (b *Broadcaster) run() {
	defer close(b.done)
	defer b.cancel()
	for {
		ev, ok, finished := b.next()
		if finished {
			return
		}
		if !ok {
			select {
			case <-b.ctx.Done():
				return
			case <-b.signal:
			}
			continue
		}
		if err := b.sleep(b.ctx, b.profile.Delay(ev.Type)); err != nil {
			return
		}
		b.emit(ev)
	}
}

func (b *Broadcaster) emit(ev game.Event) {
	defer func() {
		if r := recover(); r != nil {
			logging.Error("timeline sink panicked", nil, logging.Fields{constants.LogFieldBattleID: b.battleID, "panic": r})
		}
	}()
	b.sink.Emit(ev)
	b.mu.Lock()
	b.emitted++
	b.mu.Unlock()
}
