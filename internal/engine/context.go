package engine

import (
	"math/rand"

	"github.com/ericogr/skirmish/internal/game"
	"github.com/ericogr/skirmish/internal/refdata"
)

// --- Turn context and helpers -----------------------------------------
type turnContext struct {
	b      *game.Battle
	cur    *game.TurnCursor
	ref    refdata.Provider
	rng    *rand.Rand
	events []game.Event
}

func (tc *turnContext) add(ev game.Event) {
	ev.Turn = tc.cur.Turn
	tc.events = append(tc.events, ev)
	tc.cur.Emitted++
}

// hpEvent builds an event carrying the member's health after a change.
func hpEvent(t game.EventType, side game.SideID, idx int, m *game.Member) game.Event {
	return game.Event{Type: t, Side: side, Member: idx, HP: m.CurrentHP, MaxHP: m.MaxHP()}
}

// applyDamage lowers health, clamped at zero, and returns the amount
// actually removed.
func applyDamage(m *game.Member, amount int) int {
	if amount < 0 {
		amount = 0
	}
	if amount > m.CurrentHP {
		amount = m.CurrentHP
	}
	m.CurrentHP -= amount
	return amount
}

// applyHeal raises health, clamped at the maximum, and returns the amount
// actually restored.
func applyHeal(m *game.Member, amount int) int {
	if amount < 0 || m.Fainted() {
		return 0
	}
	if room := m.MaxHP() - m.CurrentHP; amount > room {
		amount = room
	}
	m.CurrentHP += amount
	return amount
}

func clampStage(v int) int {
	if v > 6 {
		return 6
	}
	if v < -6 {
		return -6
	}
	return v
}
