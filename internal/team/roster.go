package team

import (
	"errors"
	"fmt"

	"github.com/ericogr/skirmish/internal/game"
	"github.com/ericogr/skirmish/internal/keys"
	"github.com/ericogr/skirmish/internal/refdata"
)

var (
	ErrInvalidLevel  = errors.New("level must be between 1 and 100")
	ErrNoMoves       = errors.New("member needs between 1 and 4 moves")
	ErrRosterSize    = errors.New("roster must have between 1 and 6 members")
	ErrAllFainted    = errors.New("roster has no member able to fight")
	ErrInvalidHealth = errors.New("health outside [0, max]")
)

// MemberSpec is what the roster service supplies for one member.
type MemberSpec struct {
	Species  string   `json:"species" yaml:"species"`
	Nickname string   `json:"nickname,omitempty" yaml:"nickname"`
	Level    int      `json:"level" yaml:"level"`
	Moves    []string `json:"moves" yaml:"moves"`
	// Stats overrides the computed stats when set (scripted opponents).
	Stats *game.Stats `json:"stats,omitempty" yaml:"stats"`
	// HP starts the member below full health when set.
	HP     *int        `json:"hp,omitempty" yaml:"hp"`
	Status game.Status `json:"status,omitempty" yaml:"status"`
}

// ComputeStats derives battle stats from base stats and level.
func ComputeStats(base game.Stats, level int) game.Stats {
	return game.Stats{
		HP:      2*base.HP*level/100 + level + 10,
		Attack:  2*base.Attack*level/100 + 5,
		Defense: 2*base.Defense*level/100 + 5,
		Speed:   2*base.Speed*level/100 + 5,
	}
}

// NewMember builds a battle-ready member from a spec.
func NewMember(ref refdata.Provider, spec MemberSpec) (game.Member, error) {
	if spec.Level < 1 || spec.Level > 100 {
		return game.Member{}, fmt.Errorf("%s: %w", spec.Species, ErrInvalidLevel)
	}
	if len(spec.Moves) < 1 || len(spec.Moves) > 4 {
		return game.Member{}, fmt.Errorf("%s: %w", spec.Species, ErrNoMoves)
	}
	species, err := ref.Species(spec.Species)
	if err != nil {
		return game.Member{}, err
	}
	stats := ComputeStats(species.Base, spec.Level)
	if spec.Stats != nil {
		stats = *spec.Stats
	}
	if stats.HP < 1 || stats.Attack < 1 || stats.Defense < 1 || stats.Speed < 0 {
		return game.Member{}, fmt.Errorf("%s: invalid stats %+v", spec.Species, stats)
	}
	if !spec.Status.Valid() {
		return game.Member{}, fmt.Errorf("%s: unknown status %q", spec.Species, spec.Status)
	}

	m := game.Member{
		SpeciesID: species.ID,
		Nickname:  spec.Nickname,
		Level:     spec.Level,
		Stats:     stats,
		CurrentHP: stats.HP,
		Status:    spec.Status,
		Moves:     make([]game.MoveSlot, 0, len(spec.Moves)),
	}
	if spec.Status == game.StatusAsleep {
		m.SleepTurns = 2
	}
	if spec.HP != nil {
		if *spec.HP < 0 || *spec.HP > stats.HP {
			return game.Member{}, fmt.Errorf("%s: %w", spec.Species, ErrInvalidHealth)
		}
		m.CurrentHP = *spec.HP
	}
	seen := make(map[string]bool, len(spec.Moves))
	for _, id := range spec.Moves {
		mv, err := ref.Move(id)
		if err != nil {
			return game.Member{}, err
		}
		if mv.ID == game.StruggleMoveID {
			return game.Member{}, fmt.Errorf("%s: struggle cannot be learned", spec.Species)
		}
		k := keys.Normalize(mv.ID)
		if seen[k] {
			return game.Member{}, fmt.Errorf("%s: duplicate move %q", spec.Species, id)
		}
		seen[k] = true
		m.Moves = append(m.Moves, game.MoveSlot{MoveID: mv.ID, PP: mv.MaxPP, MaxPP: mv.MaxPP})
	}
	return m, nil
}

// NewRoster builds every member of a side and picks the first member able
// to fight as the active one.
func NewRoster(ref refdata.Provider, specs []MemberSpec) ([]game.Member, int, error) {
	if len(specs) < 1 || len(specs) > game.MaxRosterSize {
		return nil, -1, ErrRosterSize
	}
	members := make([]game.Member, 0, len(specs))
	for _, s := range specs {
		m, err := NewMember(ref, s)
		if err != nil {
			return nil, -1, err
		}
		members = append(members, m)
	}
	for i := range members {
		if !members[i].Fainted() {
			return members, i, nil
		}
	}
	return nil, -1, ErrAllFainted
}
