package engine

import "github.com/ericogr/skirmish/internal/game"

// --- Modifier helpers --------------------------------------------------

// stageMultiply applies a stat stage: +1 is x1.5, +2 is x2, -1 is x2/3 ...
func stageMultiply(v, stage int) int {
	stage = clampStage(stage)
	if stage >= 0 {
		return v * (2 + stage) / 2
	}
	return v * 2 / (2 - stage)
}

func speedWithModifiers(m *game.Member) int {
	s := stageMultiply(m.Stats.Speed, m.Stages.Speed)
	if m.Status == game.StatusParalyzed {
		s /= 2
	}
	if s < 0 {
		s = 0
	}
	return s
}

func attackWithModifiers(m *game.Member) int {
	a := stageMultiply(m.Stats.Attack, m.Stages.Attack)
	if m.Status == game.StatusBurned {
		a /= 2
	}
	if a < 1 {
		a = 1
	}
	return a
}

func defenseWithModifiers(m *game.Member) int {
	d := stageMultiply(m.Stats.Defense, m.Stages.Defense)
	if d < 1 {
		d = 1
	}
	return d
}

// EffectiveSpeed is the speed used for turn ordering.
func EffectiveSpeed(m *game.Member) int { return speedWithModifiers(m) }
