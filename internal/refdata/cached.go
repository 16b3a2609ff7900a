package refdata

import (
	"errors"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/ericogr/skirmish/internal/game"
	"github.com/ericogr/skirmish/internal/keys"
)

// Source is a slower backing store (for example the sqlite reference
// tables) that a Cached provider reads through.
type Source interface {
	LoadSpecies(id string) (Species, error)
	LoadMove(id string) (Move, error)
	LoadItem(id string) (Item, error)
}

// Cached is a read-through Provider. Entries never change once loaded, so a
// hit never touches the source again; concurrent misses for the same key are
// collapsed into one source call. Each instance collapses only its own
// misses.
type Cached struct {
	src     Source
	group   singleflight.Group
	species sync.Map
	moves   sync.Map
	items   sync.Map
}

func NewCached(src Source) *Cached {
	return &Cached{src: src}
}

func (c *Cached) Species(id string) (Species, error) {
	k := keys.Normalize(id)
	if v, ok := c.species.Load(k); ok {
		return v.(Species), nil
	}
	v, err, _ := c.group.Do(keys.Join("species", k), func() (interface{}, error) {
		s, err := c.src.LoadSpecies(k)
		if err != nil {
			return nil, err
		}
		c.species.Store(k, s)
		return s, nil
	})
	if err != nil {
		return Species{}, err
	}
	return v.(Species), nil
}

func (c *Cached) Move(id string) (Move, error) {
	k := keys.Normalize(id)
	if k == game.StruggleMoveID {
		return Struggle, nil
	}
	if v, ok := c.moves.Load(k); ok {
		return v.(Move), nil
	}
	v, err, _ := c.group.Do(keys.Join("move", k), func() (interface{}, error) {
		m, err := c.src.LoadMove(k)
		if err != nil {
			return nil, err
		}
		c.moves.Store(k, m)
		return m, nil
	})
	if err != nil {
		return Move{}, err
	}
	return v.(Move), nil
}

func (c *Cached) Item(id string) (Item, error) {
	k := keys.Normalize(id)
	if v, ok := c.items.Load(k); ok {
		return v.(Item), nil
	}
	v, err, _ := c.group.Do(keys.Join("item", k), func() (interface{}, error) {
		it, err := c.src.LoadItem(k)
		if err != nil {
			return nil, err
		}
		c.items.Store(k, it)
		return it, nil
	})
	if err != nil {
		return Item{}, err
	}
	return v.(Item), nil
}

// IsNotFound reports whether err means the entry does not exist.
func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }
