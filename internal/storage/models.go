package storage

import (
	"time"

	"github.com/ericogr/skirmish/internal/game"
	"github.com/ericogr/skirmish/internal/refdata"
)

// SpeciesRecord is a row of the species reference table.
type SpeciesRecord struct {
	ID          string `gorm:"primaryKey"`
	Name        string
	BaseHP      int
	BaseAttack  int
	BaseDefense int
	BaseSpeed   int
	UpdatedAt   time.Time
}

func (SpeciesRecord) TableName() string { return "species" }

// MoveRecord is a row of the move reference table. Stage deltas are
// flattened into columns.
type MoveRecord struct {
	ID            string `gorm:"primaryKey"`
	Name          string
	Power         int
	Accuracy      int
	Priority      int
	MaxPP         int `gorm:"column:max_pp"`
	FixedDamage   int
	RecoilPercent int
	DrainPercent  int
	HealPercent   int
	Effect        string
	EffectChance  int
	UserAttack    int
	UserDefense   int
	UserSpeed     int
	TargetAttack  int
	TargetDefense int
	TargetSpeed   int
	UpdatedAt     time.Time
}

func (MoveRecord) TableName() string { return "moves" }

// ItemRecord is a row of the item reference table.
type ItemRecord struct {
	ID        string `gorm:"primaryKey"`
	Name      string
	Heal      int
	Cures     bool
	UpdatedAt time.Time
}

func (ItemRecord) TableName() string { return "items" }

// BattleResultRecord archives a finished battle for the reward and history
// collaborators. The final snapshot is stored as JSON.
type BattleResultRecord struct {
	ID        uint   `gorm:"primaryKey"`
	BattleID  string `gorm:"uniqueIndex"`
	Type      string
	Winner    string
	Outcome   string `gorm:"index"`
	Reason    string
	Turns     int
	SideAName string
	SideBName string
	Snapshot  []byte
	EndedAt   time.Time `gorm:"index"`
	CreatedAt time.Time
}

func (BattleResultRecord) TableName() string { return "battle_results" }

func speciesRecord(s refdata.Species) SpeciesRecord {
	return SpeciesRecord{
		ID:          s.ID,
		Name:        s.Name,
		BaseHP:      s.Base.HP,
		BaseAttack:  s.Base.Attack,
		BaseDefense: s.Base.Defense,
		BaseSpeed:   s.Base.Speed,
	}
}

func (r SpeciesRecord) toSpecies() refdata.Species {
	return refdata.Species{
		ID:   r.ID,
		Name: r.Name,
		Base: game.Stats{HP: r.BaseHP, Attack: r.BaseAttack, Defense: r.BaseDefense, Speed: r.BaseSpeed},
	}
}

func moveRecord(m refdata.Move) MoveRecord {
	return MoveRecord{
		ID:            m.ID,
		Name:          m.Name,
		Power:         m.Power,
		Accuracy:      m.Accuracy,
		Priority:      m.Priority,
		MaxPP:         m.MaxPP,
		FixedDamage:   m.FixedDamage,
		RecoilPercent: m.RecoilPercent,
		DrainPercent:  m.DrainPercent,
		HealPercent:   m.HealPercent,
		Effect:        string(m.Effect),
		EffectChance:  m.EffectChance,
		UserAttack:    m.UserStages.Attack,
		UserDefense:   m.UserStages.Defense,
		UserSpeed:     m.UserStages.Speed,
		TargetAttack:  m.TargetStages.Attack,
		TargetDefense: m.TargetStages.Defense,
		TargetSpeed:   m.TargetStages.Speed,
	}
}

func (r MoveRecord) toMove() refdata.Move {
	return refdata.Move{
		ID:            r.ID,
		Name:          r.Name,
		Power:         r.Power,
		Accuracy:      r.Accuracy,
		Priority:      r.Priority,
		MaxPP:         r.MaxPP,
		FixedDamage:   r.FixedDamage,
		RecoilPercent: r.RecoilPercent,
		DrainPercent:  r.DrainPercent,
		HealPercent:   r.HealPercent,
		Effect:        game.Status(r.Effect),
		EffectChance:  r.EffectChance,
		UserStages:    game.Stages{Attack: r.UserAttack, Defense: r.UserDefense, Speed: r.UserSpeed},
		TargetStages:  game.Stages{Attack: r.TargetAttack, Defense: r.TargetDefense, Speed: r.TargetSpeed},
	}
}

func itemRecord(it refdata.Item) ItemRecord {
	return ItemRecord{ID: it.ID, Name: it.Name, Heal: it.Heal, Cures: it.Cures}
}

func (r ItemRecord) toItem() refdata.Item {
	return refdata.Item{ID: r.ID, Name: r.Name, Heal: r.Heal, Cures: r.Cures}
}
