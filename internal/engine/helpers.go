package engine

import (
	"fmt"

	"github.com/ericogr/skirmish/internal/game"
)

// findActive returns the active, non-fainted member of a side.
func findActive(s *game.Side) *game.Member {
	m := s.ActiveMember()
	if m == nil || m.Fainted() {
		return nil
	}
	return m
}

// memberAt returns the member at idx when it is still on the field and able
// to fight.
func memberAt(s *game.Side, idx int) *game.Member {
	if idx != s.Active || idx < 0 || idx >= len(s.Members) {
		return nil
	}
	m := &s.Members[idx]
	if m.Fainted() {
		return nil
	}
	return m
}

func label(s *game.Side, m *game.Member) string {
	if s.Name == "" {
		return m.DisplayName()
	}
	return s.Name + "'s " + m.DisplayName()
}

func usedMessage(s *game.Side, m *game.Member, moveName string) string {
	return fmt.Sprintf("%s used %s!", label(s, m), moveName)
}
