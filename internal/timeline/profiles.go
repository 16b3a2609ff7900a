package timeline

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/ericogr/skirmish/internal/game"
	"github.com/ericogr/skirmish/internal/keys"
)

var ErrUnknownProfile = errors.New("unknown timing profile")

// Built-in profile names.
const (
	ProfileAuthentic = "authentic"
	ProfileFast      = "fast"
	ProfileDebug     = "debug"
)

// Authentic is paced for a human watching the animations.
func Authentic() game.TimingProfile {
	return game.TimingProfile{
		Name:    ProfileAuthentic,
		Default: 500 * time.Millisecond,
		Delays: map[game.EventType]time.Duration{
			game.EventBattleStarted:        1500 * time.Millisecond,
			game.EventTurnStarted:          300 * time.Millisecond,
			game.EventActionAccepted:       0,
			game.EventActionRejected:       0,
			game.EventMoveUsed:             1200 * time.Millisecond,
			game.EventMoveMissed:           900 * time.Millisecond,
			game.EventDamage:               900 * time.Millisecond,
			game.EventHeal:                 800 * time.Millisecond,
			game.EventStatusApplied:        900 * time.Millisecond,
			game.EventStatusDamage:         900 * time.Millisecond,
			game.EventStatChanged:          700 * time.Millisecond,
			game.EventSwitched:             1300 * time.Millisecond,
			game.EventItemUsed:             1000 * time.Millisecond,
			game.EventFleeFailed:           1000 * time.Millisecond,
			game.EventFainted:              1600 * time.Millisecond,
			game.EventForcedSwitchRequired: 400 * time.Millisecond,
			game.EventTurnResolved:         200 * time.Millisecond,
			game.EventBattleEnded:          2000 * time.Millisecond,
		},
	}
}

// Fast keeps ordering observable for automated clients.
func Fast() game.TimingProfile {
	return game.TimingProfile{Name: ProfileFast, Default: 20 * time.Millisecond}
}

// Debug emits as fast as the sink accepts.
func Debug() game.TimingProfile {
	return game.TimingProfile{Name: ProfileDebug}
}

// Registry resolves profile names to profiles. The built-ins are always
// present; configured profiles may override them.
type Registry struct {
	mu       sync.RWMutex
	profiles map[string]game.TimingProfile
}

func NewRegistry(extra ...game.TimingProfile) (*Registry, error) {
	r := &Registry{profiles: make(map[string]game.TimingProfile)}
	for _, p := range []game.TimingProfile{Authentic(), Fast(), Debug()} {
		r.profiles[p.Name] = p
	}
	for _, p := range extra {
		if err := r.Register(p); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Register validates and stores p under its normalized name.
func (r *Registry) Register(p game.TimingProfile) error {
	if err := p.Validate(); err != nil {
		return fmt.Errorf("profile %q: %w", p.Name, err)
	}
	p.Name = keys.Normalize(p.Name)
	r.mu.Lock()
	r.profiles[p.Name] = p
	r.mu.Unlock()
	return nil
}

func (r *Registry) Get(name string) (game.TimingProfile, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.profiles[keys.Normalize(name)]
	if !ok {
		return game.TimingProfile{}, fmt.Errorf("%w: %q", ErrUnknownProfile, name)
	}
	return p, nil
}

// Names lists the registered profiles in alphabetical order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.profiles))
	for n := range r.profiles {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}
