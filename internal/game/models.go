package game

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// BattleType distinguishes encounters against a wild opponent (fleeing is
// allowed) from trainer-style matches.
type BattleType string

const (
	BattleWild    BattleType = "wild"
	BattleTrainer BattleType = "trainer"
)

// Phase is the battle engine's current state-machine state.
type Phase string

const (
	PhaseInitializing         Phase = "initializing"
	PhaseAwaitingActions      Phase = "awaiting_actions"
	PhaseResolving            Phase = "resolving"
	PhaseAwaitingForcedSwitch Phase = "awaiting_forced_switch"
	PhaseEnded                Phase = "ended"
)

// SideID identifies one of the two competing parties.
type SideID string

const (
	SideA SideID = "a"
	SideB SideID = "b"
)

// Opponent returns the other side of a two-sided battle.
func (s SideID) Opponent() SideID {
	if s == SideA {
		return SideB
	}
	return SideA
}

func (s SideID) Valid() bool { return s == SideA || s == SideB }

// Controller says who picks a side's actions.
type Controller string

const (
	ControllerHuman Controller = "human"
	ControllerAI    Controller = "ai"
)

// Status is a persistent condition carried by a member across switches.
type Status string

const (
	StatusNone      Status = ""
	StatusPoisoned  Status = "poisoned"
	StatusBurned    Status = "burned"
	StatusParalyzed Status = "paralyzed"
	StatusAsleep    Status = "asleep"
)

func (s Status) Valid() bool {
	switch s {
	case StatusNone, StatusPoisoned, StatusBurned, StatusParalyzed, StatusAsleep:
		return true
	}
	return false
}

// Outcome tags how a battle ended.
type Outcome string

const (
	OutcomeCompleted Outcome = "completed"
	OutcomeForfeited Outcome = "forfeited"
	OutcomeErrored   Outcome = "errored"
)

// MaxRosterSize bounds the number of members a side may bring.
const MaxRosterSize = 6

// Stats are the computed battle stats of a member. HP is the maximum health.
type Stats struct {
	HP      int `json:"hp" yaml:"hp"`
	Attack  int `json:"attack" yaml:"attack"`
	Defense int `json:"defense" yaml:"defense"`
	Speed   int `json:"speed" yaml:"speed"`
}

// Stages are volatile stat modifiers in [-6, 6]. They are cleared whenever
// the member leaves the field.
type Stages struct {
	Attack  int `json:"attack"`
	Defense int `json:"defense"`
	Speed   int `json:"speed"`
}

// IsZero reports whether no stage is raised or lowered.
func (s Stages) IsZero() bool { return s == Stages{} }

// MoveSlot is one entry of a member's move set.
type MoveSlot struct {
	MoveID string `json:"move_id"`
	PP     int    `json:"pp"`
	MaxPP  int    `json:"max_pp"`
}

// Member is one roster entry of a side.
type Member struct {
	SpeciesID  string     `json:"species_id"`
	Nickname   string     `json:"nickname,omitempty"`
	Level      int        `json:"level"`
	Stats      Stats      `json:"stats"`
	CurrentHP  int        `json:"current_hp"`
	Status     Status     `json:"status,omitempty"`
	SleepTurns int        `json:"sleep_turns,omitempty"`
	Moves      []MoveSlot `json:"moves"`
	Stages     Stages     `json:"stages"`
}

// Fainted reports whether the member's health reached zero.
func (m *Member) Fainted() bool { return m.CurrentHP <= 0 }

// MaxHP is the member's maximum health.
func (m *Member) MaxHP() int { return m.Stats.HP }

// DisplayName returns the nickname when set, otherwise the species name in
// title case ("mr_mime" -> "Mr Mime").
func (m *Member) DisplayName() string {
	if m.Nickname != "" {
		return m.Nickname
	}
	return DisplayName(m.SpeciesID)
}

// Slot returns the move slot for moveID, or nil.
func (m *Member) Slot(moveID string) *MoveSlot {
	for i := range m.Moves {
		if m.Moves[i].MoveID == moveID {
			return &m.Moves[i]
		}
	}
	return nil
}

// OutOfPP reports whether every move in the set has no uses left.
func (m *Member) OutOfPP() bool {
	for _, s := range m.Moves {
		if s.PP > 0 {
			return false
		}
	}
	return true
}

var titleCaser = cases.Title(language.English)

// DisplayName renders a reference id for humans.
func DisplayName(id string) string {
	return titleCaser.String(strings.ReplaceAll(id, "_", " "))
}

// Side is one of the two combatants of a battle.
type Side struct {
	ID         SideID     `json:"id"`
	Name       string     `json:"name"`
	Controller Controller `json:"controller"`
	Members    []Member   `json:"members"`
	Active     int        `json:"active"`
	Pending    *Action    `json:"pending,omitempty"`
	// Submitted replaces Pending in public views: the side has chosen but
	// the choice stays hidden until the turn resolves.
	Submitted    bool `json:"submitted,omitempty"`
	FleeAttempts int  `json:"flee_attempts,omitempty"`
	// NeedsSwitch marks the "replacement required" sub-state after the
	// active member fainted while survivors remain.
	NeedsSwitch bool `json:"needs_switch,omitempty"`
}

// ActiveMember returns the active member, or nil when the index is out of
// range.
func (s *Side) ActiveMember() *Member {
	if s.Active < 0 || s.Active >= len(s.Members) {
		return nil
	}
	return &s.Members[s.Active]
}

// AliveCount is the number of non-fainted members.
func (s *Side) AliveCount() int {
	n := 0
	for i := range s.Members {
		if !s.Members[i].Fainted() {
			n++
		}
	}
	return n
}

// Battle is the authoritative state of one match. It is mutated only by
// the battle engine.
type Battle struct {
	ID     string     `json:"id"`
	Type   BattleType `json:"type"`
	Phase  Phase      `json:"phase"`
	Turn   int        `json:"turn"`
	Sides  []Side     `json:"sides"`
	Seed   int64      `json:"seed"`
	Result *Result    `json:"result,omitempty"`
}

// Side returns the side with the given id, or nil.
func (b *Battle) Side(id SideID) *Side {
	for i := range b.Sides {
		if b.Sides[i].ID == id {
			return &b.Sides[i]
		}
	}
	return nil
}

// Result is the terminal payload of a battle.
type Result struct {
	Winner  SideID  `json:"winner,omitempty"`
	Outcome Outcome `json:"outcome"`
	Reason  string  `json:"reason,omitempty"`
	Turns   int     `json:"turns"`
}

// Clone returns a deep copy of the battle.
func (b *Battle) Clone() Battle {
	out := *b
	out.Sides = make([]Side, len(b.Sides))
	for i := range b.Sides {
		out.Sides[i] = b.Sides[i].clone()
	}
	if b.Result != nil {
		r := *b.Result
		out.Result = &r
	}
	return out
}

func (s *Side) clone() Side {
	out := *s
	out.Members = make([]Member, len(s.Members))
	for i := range s.Members {
		m := s.Members[i]
		m.Moves = append([]MoveSlot(nil), s.Members[i].Moves...)
		out.Members[i] = m
	}
	if s.Pending != nil {
		a := *s.Pending
		out.Pending = &a
	}
	return out
}
