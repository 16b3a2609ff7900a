package game

import "time"

// EventType tags the variant of an Event.
type EventType string

const (
	EventBattleStarted        EventType = "battle_started"
	EventTurnStarted          EventType = "turn_started"
	EventActionAccepted       EventType = "action_accepted"
	EventActionRejected       EventType = "action_rejected"
	EventMoveUsed             EventType = "move_used"
	EventMoveMissed           EventType = "move_missed"
	EventDamage               EventType = "damage"
	EventHeal                 EventType = "heal"
	EventStatusApplied        EventType = "status_applied"
	EventStatusCured          EventType = "status_cured"
	EventStatusDamage         EventType = "status_damage"
	EventStatChanged          EventType = "stat_changed"
	EventActionSkipped        EventType = "action_skipped"
	EventSwitched             EventType = "switched"
	EventItemUsed             EventType = "item_used"
	EventFleeFailed           EventType = "flee_failed"
	EventFainted              EventType = "fainted"
	EventForcedSwitchRequired EventType = "forced_switch_required"
	EventTurnResolved         EventType = "turn_resolved"
	EventBattleEnded          EventType = "battle_ended"
)

// Event is one atomic, ordered record of the battle stream. Type selects
// which of the optional fields are meaningful.
type Event struct {
	BattleID string    `json:"battle_id"`
	Seq      uint64    `json:"seq"`
	Type     EventType `json:"type"`
	Turn     int       `json:"turn"`
	Side     SideID    `json:"side,omitempty"`
	// Member is the roster index the event is about (the acting member for
	// move_used, the hit member for damage).
	Member  int     `json:"member"`
	MoveID  string  `json:"move_id,omitempty"`
	ItemID  string  `json:"item_id,omitempty"`
	Amount  int     `json:"amount,omitempty"`
	HP      int     `json:"hp,omitempty"`
	MaxHP   int     `json:"max_hp,omitempty"`
	Status  Status  `json:"status,omitempty"`
	Stages  *Stages `json:"stages,omitempty"`
	Reason  string  `json:"reason,omitempty"`
	Message string  `json:"message,omitempty"`
	Count   int     `json:"count,omitempty"`

	Deadline *time.Time `json:"deadline,omitempty"`
	Snapshot *Snapshot  `json:"snapshot,omitempty"`
	Result   *Result    `json:"result,omitempty"`
}

// TimingProfile maps event types to the delay a display needs before the
// event is shown. Profiles are immutable once selected for a battle.
type TimingProfile struct {
	Name    string                      `json:"name" yaml:"name"`
	Delays  map[EventType]time.Duration `json:"delays" yaml:"delays"`
	Default time.Duration               `json:"default" yaml:"default"`
}

// Delay returns the configured delay for t, falling back to Default.
func (p TimingProfile) Delay(t EventType) time.Duration {
	if d, ok := p.Delays[t]; ok {
		return d
	}
	return p.Default
}

// Validate checks that the profile is named and has no negative delays.
func (p TimingProfile) Validate() error {
	if p.Name == "" {
		return ErrProfileUnnamed
	}
	if p.Default < 0 {
		return ErrProfileNegativeDelay
	}
	for _, d := range p.Delays {
		if d < 0 {
			return ErrProfileNegativeDelay
		}
	}
	return nil
}
