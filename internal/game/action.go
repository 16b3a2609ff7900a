package game

import "time"

// ActionKind is the kind of a submitted action.
type ActionKind string

const (
	ActionAttack  ActionKind = "attack"
	ActionSwitch  ActionKind = "switch"
	ActionItem    ActionKind = "item"
	ActionFlee    ActionKind = "flee"
	ActionForfeit ActionKind = "forfeit"
	// ActionPass does nothing. It is the default substituted when a side
	// lets the turn timer run out.
	ActionPass ActionKind = "pass"
)

// Valid reports whether k is a known action kind.
func (k ActionKind) Valid() bool {
	switch k {
	case ActionAttack, ActionSwitch, ActionItem, ActionFlee, ActionForfeit, ActionPass:
		return true
	}
	return false
}

// StruggleMoveID is the move used when a member has no PP left.
const StruggleMoveID = "struggle"

// Action is one side's choice for a turn.
type Action struct {
	Side   SideID     `json:"side"`
	Kind   ActionKind `json:"kind"`
	MoveID string     `json:"move_id,omitempty"`
	ItemID string     `json:"item_id,omitempty"`
	// Target is the own-roster index an item is used on.
	Target int `json:"target,omitempty"`
	// SwitchTo is the roster index to bring in.
	SwitchTo int `json:"switch_to,omitempty"`
	// Turn optionally pins the action to a turn number; a mismatch with the
	// current turn is rejected as stale. Zero means "current turn".
	Turn        int       `json:"turn,omitempty"`
	Seq         uint64    `json:"seq,omitempty"`
	SubmittedAt time.Time `json:"submitted_at,omitempty"`
	// Timeout marks actions substituted by the engine after a deadline.
	Timeout bool `json:"timeout,omitempty"`

	// Actor and TargetMember are bound by the resolver when the turn is
	// ordered: roster indices of the acting member and of the opposing
	// member an attack is aimed at.
	Actor        int `json:"actor"`
	TargetMember int `json:"target_member"`
}

// CursorStage is the part of a turn a resumable cursor is in.
type CursorStage string

const (
	StageActions  CursorStage = "actions"
	StageResidual CursorStage = "residual"
	StageDone     CursorStage = "done"
)

// TurnCursor is the resumable position inside a turn's resolution. It lets
// a turn pause for a forced switch and continue afterwards without
// re-running what was already resolved.
type TurnCursor struct {
	Turn  int         `json:"turn"`
	Queue []Action    `json:"queue"`
	Next  int         `json:"next"`
	Stage CursorStage `json:"stage"`
	// ResidualOrder and ResidualNext track end-of-turn effects.
	ResidualOrder []SideID `json:"residual_order,omitempty"`
	ResidualNext  int      `json:"residual_next,omitempty"`
	// Resumes counts how many times the turn was continued after a pause.
	Resumes int `json:"resumes"`
	// Emitted counts resolution events produced so far in this turn.
	Emitted int `json:"emitted"`
}

// Clone returns a deep copy of the cursor.
func (c *TurnCursor) Clone() *TurnCursor {
	if c == nil {
		return nil
	}
	out := *c
	out.Queue = append([]Action(nil), c.Queue...)
	out.ResidualOrder = append([]SideID(nil), c.ResidualOrder...)
	return &out
}
