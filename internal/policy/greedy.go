package policy

import (
	"github.com/ericogr/skirmish/internal/engine"
	"github.com/ericogr/skirmish/internal/game"
	"github.com/ericogr/skirmish/internal/refdata"
	"github.com/ericogr/skirmish/internal/team"
)

// Greedy estimates the damage of each move against the opposing active
// member and takes the best one, preferring a knockout. On a forced switch
// it brings in the member that hits the opponent hardest.
type Greedy struct {
	Ref refdata.Provider
}

// expected returns accuracy-weighted damage in hundredths.
func expected(attacker, defender *game.Member, mv refdata.Move) int {
	dmg := engine.ComputeDamage(attacker, defender, mv)
	if dmg > defender.CurrentHP {
		dmg = defender.CurrentHP
	}
	acc := mv.Accuracy
	if acc <= 0 {
		acc = 100
	}
	return dmg * acc
}

func (p Greedy) bestMove(attacker, defender *game.Member) (string, int, bool) {
	best, bestScore, ko := "", -1, false
	for _, mv := range usableMoves(p.Ref, attacker) {
		score := expected(attacker, defender, mv)
		kills := mv.Damaging() && engine.ComputeDamage(attacker, defender, mv) >= defender.CurrentHP
		switch {
		case kills && !ko:
			best, bestScore, ko = mv.ID, score, true
		case kills == ko && score > bestScore:
			best, bestScore = mv.ID, score
		}
	}
	return best, bestScore, ko
}

func (p Greedy) ChooseAction(view game.Snapshot, side game.SideID) game.Action {
	s := view.Battle.Side(side)
	opp := view.Battle.Side(side.Opponent())
	if s == nil || opp == nil {
		return Fallback(view, side)
	}
	defender := team.GetActiveMember(opp)
	if defender == nil || defender.Fainted() {
		return Fallback(view, side)
	}

	if forcedSwitch(view, side) {
		pick, pickScore := -1, -1
		for _, idx := range team.SwitchCandidates(s) {
			if _, score, _ := p.bestMove(&s.Members[idx], defender); score > pickScore {
				pick, pickScore = idx, score
			}
		}
		if pick < 0 {
			return Fallback(view, side)
		}
		return switchTo(side, pick)
	}

	m := team.GetActiveMember(s)
	if m == nil || m.Fainted() {
		return Fallback(view, side)
	}
	move, _, _ := p.bestMove(m, defender)
	if move == "" {
		return Fallback(view, side)
	}
	return attack(side, move)
}
