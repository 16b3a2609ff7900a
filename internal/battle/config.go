package battle

import (
	"time"

	"github.com/ericogr/skirmish/internal/game"
	"github.com/ericogr/skirmish/internal/refdata"
	"github.com/ericogr/skirmish/internal/timeline"
)

// SideConfig is the initial state of one side, as supplied by the roster
// service.
type SideConfig struct {
	Name       string          `json:"name"`
	Controller game.Controller `json:"controller"`
	Members    []game.Member   `json:"members"`
	Active     int             `json:"active"`
	// Policy names the opponent policy of an AI-controlled side.
	Policy string `json:"policy,omitempty"`
}

// Config describes a battle to start.
type Config struct {
	ID            string             `json:"id"`
	Type          game.BattleType    `json:"type"`
	Seed          int64              `json:"seed"`
	SideA         SideConfig         `json:"side_a"`
	SideB         SideConfig         `json:"side_b"`
	Profile       game.TimingProfile `json:"profile"`
	TurnTimeout   time.Duration      `json:"turn_timeout"`
	SwitchTimeout time.Duration      `json:"switch_timeout"`
	TimeoutPolicy game.TimeoutPolicy `json:"timeout_policy"`
}

// Timer is a pending timeout callback.
type Timer interface {
	Stop() bool
}

// Scheduler runs f after d. Tests substitute a manual scheduler.
type Scheduler interface {
	AfterFunc(d time.Duration, f func()) Timer
}

type realScheduler struct{}

func (realScheduler) AfterFunc(d time.Duration, f func()) Timer { return time.AfterFunc(d, f) }

// RealScheduler schedules on the wall clock.
func RealScheduler() Scheduler { return realScheduler{} }

// Deps are the collaborators a battle holds. Only Ref is required.
type Deps struct {
	Ref       refdata.Provider
	Sink      timeline.Sink
	Scheduler Scheduler
	Sleeper   timeline.Sleeper
	Now       func() time.Time
}

func (d Deps) withDefaults() Deps {
	if d.Sink == nil {
		d.Sink = timeline.SinkFunc(func(game.Event) {})
	}
	if d.Scheduler == nil {
		d.Scheduler = RealScheduler()
	}
	if d.Sleeper == nil {
		d.Sleeper = timeline.RealSleep
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	return d
}
