// Package refdata is the read-only lookup of species, move and item
// statistics shared by every battle.
package refdata

import (
	"errors"
	"fmt"

	"github.com/ericogr/skirmish/internal/game"
	"github.com/ericogr/skirmish/internal/keys"
)

var ErrNotFound = errors.New("reference entry not found")

// Species holds base stats used to compute a member's battle stats.
type Species struct {
	ID   string     `json:"id"`
	Name string     `json:"name"`
	Base game.Stats `json:"base"`
}

// Move describes what a move does. All effect fields are optional.
type Move struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	// Power of 0 means the move deals no formula damage.
	Power int `json:"power"`
	// Accuracy in percent; 0 means the move never misses.
	Accuracy int `json:"accuracy"`
	Priority int `json:"priority"`
	MaxPP    int `json:"max_pp"`
	// FixedDamage bypasses the damage formula when positive.
	FixedDamage   int `json:"fixed_damage,omitempty"`
	RecoilPercent int `json:"recoil_percent,omitempty"`
	DrainPercent  int `json:"drain_percent,omitempty"`
	// HealPercent restores a share of the user's maximum health.
	HealPercent  int         `json:"heal_percent,omitempty"`
	Effect       game.Status `json:"effect,omitempty"`
	EffectChance int         `json:"effect_chance,omitempty"`
	UserStages   game.Stages `json:"user_stages"`
	TargetStages game.Stages `json:"target_stages"`
}

// Move priorities are bounded so that switching, items, fleeing and
// forfeiting always act before any move.
const (
	MinMovePriority = -7
	MaxMovePriority = 7
)

var ErrPriorityRange = fmt.Errorf("move priority must be within [%d, %d]", MinMovePriority, MaxMovePriority)

// ValidPriority reports whether p is an allowed move priority.
func ValidPriority(p int) bool { return p >= MinMovePriority && p <= MaxMovePriority }

// Damaging reports whether the move deals direct damage.
func (m Move) Damaging() bool { return m.Power > 0 || m.FixedDamage > 0 }

// Item describes a usable item.
type Item struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Heal  int    `json:"heal"`
	Cures bool   `json:"cures"`
}

// Struggle is always available, even when a catalog does not list it.
var Struggle = Move{
	ID:            game.StruggleMoveID,
	Name:          "Struggle",
	Power:         50,
	RecoilPercent: 25,
}

// Provider looks up reference entries by id. Implementations must be safe
// for concurrent use.
type Provider interface {
	Species(id string) (Species, error)
	Move(id string) (Move, error)
	Item(id string) (Item, error)
}

// Catalog is an immutable in-memory Provider.
type Catalog struct {
	species map[string]Species
	moves   map[string]Move
	items   map[string]Item
}

// NewCatalog indexes the given entries by their normalized id. Duplicate
// ids are rejected.
func NewCatalog(species []Species, moves []Move, items []Item) (*Catalog, error) {
	c := &Catalog{
		species: make(map[string]Species, len(species)),
		moves:   make(map[string]Move, len(moves)+1),
		items:   make(map[string]Item, len(items)),
	}
	for _, s := range species {
		k := keys.Normalize(s.ID)
		if k == "" {
			return nil, errors.New("species entry missing id")
		}
		if _, dup := c.species[k]; dup {
			return nil, fmt.Errorf("duplicate species id %q", s.ID)
		}
		s.ID = k
		c.species[k] = s
	}
	c.moves[Struggle.ID] = Struggle
	for _, m := range moves {
		k := keys.Normalize(m.ID)
		if k == "" {
			return nil, errors.New("move entry missing id")
		}
		if _, dup := c.moves[k]; dup && k != Struggle.ID {
			return nil, fmt.Errorf("duplicate move id %q", m.ID)
		}
		if !ValidPriority(m.Priority) {
			return nil, fmt.Errorf("move %q: %w", m.ID, ErrPriorityRange)
		}
		m.ID = k
		c.moves[k] = m
	}
	for _, it := range items {
		k := keys.Normalize(it.ID)
		if k == "" {
			return nil, errors.New("item entry missing id")
		}
		if _, dup := c.items[k]; dup {
			return nil, fmt.Errorf("duplicate item id %q", it.ID)
		}
		it.ID = k
		c.items[k] = it
	}
	return c, nil
}

func (c *Catalog) Species(id string) (Species, error) {
	s, ok := c.species[keys.Normalize(id)]
	if !ok {
		return Species{}, fmt.Errorf("species %q: %w", id, ErrNotFound)
	}
	return s, nil
}

func (c *Catalog) Move(id string) (Move, error) {
	m, ok := c.moves[keys.Normalize(id)]
	if !ok {
		return Move{}, fmt.Errorf("move %q: %w", id, ErrNotFound)
	}
	return m, nil
}

func (c *Catalog) Item(id string) (Item, error) {
	it, ok := c.items[keys.Normalize(id)]
	if !ok {
		return Item{}, fmt.Errorf("item %q: %w", id, ErrNotFound)
	}
	return it, nil
}
