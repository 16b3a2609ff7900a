package game

import (
	"errors"
	"time"
)

var (
	ErrProfileUnnamed       = errors.New("timing profile has no name")
	ErrProfileNegativeDelay = errors.New("timing profile has a negative delay")
)

// TimeoutPolicy is what the engine substitutes for a side that misses the
// turn deadline.
type TimeoutPolicy string

const (
	TimeoutPass    TimeoutPolicy = "pass"
	TimeoutForfeit TimeoutPolicy = "forfeit"
)

func (p TimeoutPolicy) Valid() bool { return p == TimeoutPass || p == TimeoutForfeit }

// Snapshot is a read-only dump of a battle, sufficient to rebuild an
// equivalent engine (reconnects, spectators, opponent policies).
type Snapshot struct {
	Battle
	Profile       TimingProfile     `json:"profile"`
	TurnTimeout   time.Duration     `json:"turn_timeout"`
	SwitchTimeout time.Duration     `json:"switch_timeout"`
	TimeoutPolicy TimeoutPolicy     `json:"timeout_policy"`
	Policies      map[SideID]string `json:"policies,omitempty"`
	Deadline      time.Time         `json:"deadline,omitempty"`
	PendingSwitch []SideID          `json:"pending_switch,omitempty"`
	Cursor        *TurnCursor       `json:"cursor,omitempty"`
	NextSeq       uint64            `json:"next_seq"`
	NextEventSeq  uint64            `json:"next_event_seq"`
	LastResolved  int               `json:"last_resolved"`
	CapturedAt    time.Time         `json:"captured_at"`
}

// Public returns a copy safe to show to both sides and spectators.
// Choices for the unresolved turn shrink to a Submitted flag and the turn
// cursor, which holds the remaining ordered actions, is dropped.
func (s *Snapshot) Public() Snapshot {
	out := s.Clone()
	for i := range out.Sides {
		if out.Sides[i].Pending != nil {
			out.Sides[i].Submitted = true
			out.Sides[i].Pending = nil
		}
	}
	out.Cursor = nil
	return out
}

// Clone returns a deep copy of the snapshot.
func (s *Snapshot) Clone() Snapshot {
	out := *s
	out.Battle = s.Battle.Clone()
	out.Cursor = s.Cursor.Clone()
	out.PendingSwitch = append([]SideID(nil), s.PendingSwitch...)
	if s.Policies != nil {
		out.Policies = make(map[SideID]string, len(s.Policies))
		for k, v := range s.Policies {
			out.Policies[k] = v
		}
	}
	if s.Profile.Delays != nil {
		out.Profile.Delays = make(map[EventType]time.Duration, len(s.Profile.Delays))
		for k, v := range s.Profile.Delays {
			out.Profile.Delays[k] = v
		}
	}
	return out
}
