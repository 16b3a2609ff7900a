// Package team owns one side's roster: active-member selection, switch
// validation and execution, and read-only team analysis.
package team

import (
	"errors"
	"fmt"

	"github.com/ericogr/skirmish/internal/game"
)

var (
	ErrNoSurvivors      = errors.New("side has no surviving members")
	ErrSwitchOutOfRange = errors.New("switch target out of range")
	ErrSwitchToFainted  = errors.New("switch target has fainted")
	ErrSwitchToActive   = errors.New("switch target is already active")
)

// GetActiveMember returns the side's active member, or nil when the side
// has no survivors left.
func GetActiveMember(side *game.Side) *game.Member {
	if side.AliveCount() == 0 {
		return nil
	}
	return side.ActiveMember()
}

// ValidateSwitch checks that toIndex may replace fromIndex.
func ValidateSwitch(side *game.Side, fromIndex, toIndex int) error {
	if toIndex < 0 || toIndex >= len(side.Members) {
		return fmt.Errorf("%w: %d (roster size %d)", ErrSwitchOutOfRange, toIndex, len(side.Members))
	}
	if side.Members[toIndex].Fainted() {
		return fmt.Errorf("%w: %d", ErrSwitchToFainted, toIndex)
	}
	if toIndex == fromIndex {
		return fmt.Errorf("%w: %d", ErrSwitchToActive, toIndex)
	}
	return nil
}

// ExecuteSwitch makes toIndex the active member. Volatile modifiers of the
// outgoing member are cleared; persistent status stays with it.
func ExecuteSwitch(side *game.Side, toIndex int) error {
	if err := ValidateSwitch(side, side.Active, toIndex); err != nil {
		return err
	}
	if out := side.ActiveMember(); out != nil {
		out.Stages = game.Stages{}
	}
	side.Members[toIndex].Stages = game.Stages{}
	side.Active = toIndex
	side.NeedsSwitch = false
	return nil
}

// Summary is a side-effect free digest of a team.
type Summary struct {
	Side    game.SideID `json:"side"`
	Total   int         `json:"total"`
	Alive   int         `json:"alive"`
	Fainted int         `json:"fainted"`
	// Strongest and Fastest are roster indices among survivors, -1 when
	// none survive.
	Strongest int `json:"strongest"`
	Fastest   int `json:"fastest"`
	// HPRatio is the team's remaining health as a share of its maximum.
	HPRatio float64 `json:"hp_ratio"`
}

// AnalyzeTeam summarizes a side for opponent policies and diagnostics.
func AnalyzeTeam(side *game.Side) Summary {
	s := Summary{Side: side.ID, Total: len(side.Members), Strongest: -1, Fastest: -1}
	bestPower, bestSpeed := -1, -1
	hp, maxHP := 0, 0
	for i := range side.Members {
		m := &side.Members[i]
		hp += m.CurrentHP
		maxHP += m.MaxHP()
		if m.Fainted() {
			s.Fainted++
			continue
		}
		s.Alive++
		if p := m.Stats.Attack + m.Stats.Defense + m.CurrentHP; p > bestPower {
			bestPower = p
			s.Strongest = i
		}
		if m.Stats.Speed > bestSpeed {
			bestSpeed = m.Stats.Speed
			s.Fastest = i
		}
	}
	if maxHP > 0 {
		s.HPRatio = float64(hp) / float64(maxHP)
	}
	return s
}

// FastestSurvivor returns the fastest non-fainted member other than the
// active one; ties go to the lower roster index. It is the automatic pick
// when a forced switch deadline elapses.
func FastestSurvivor(side *game.Side) (int, error) {
	best, bestSpeed := -1, -1
	for i := range side.Members {
		if i == side.Active || side.Members[i].Fainted() {
			continue
		}
		if sp := side.Members[i].Stats.Speed; sp > bestSpeed {
			best, bestSpeed = i, sp
		}
	}
	if best < 0 {
		return -1, ErrNoSurvivors
	}
	return best, nil
}

// SwitchCandidates lists the roster indices a side could switch to.
func SwitchCandidates(side *game.Side) []int {
	out := make([]int, 0, len(side.Members))
	for i := range side.Members {
		if ValidateSwitch(side, side.Active, i) == nil {
			out = append(out, i)
		}
	}
	return out
}
