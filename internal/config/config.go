package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/ericogr/skirmish/internal/constants"
	"github.com/ericogr/skirmish/internal/game"
	"github.com/ericogr/skirmish/internal/keys"
	"github.com/ericogr/skirmish/internal/policy"
	"github.com/ericogr/skirmish/internal/refdata"
	"github.com/ericogr/skirmish/internal/timeline"
)

type speciesEntry struct {
	ID       string   `json:"id" yaml:"id"`
	Name     string   `json:"name" yaml:"name"`
	HP       int      `json:"hp" yaml:"hp"`
	Attack   int      `json:"attack" yaml:"attack"`
	Defense  int      `json:"defense" yaml:"defense"`
	Speed    int      `json:"speed" yaml:"speed"`
	Learnset []string `json:"learnset" yaml:"learnset"`
}

type stagesEntry struct {
	Attack  int `json:"attack" yaml:"attack"`
	Defense int `json:"defense" yaml:"defense"`
	Speed   int `json:"speed" yaml:"speed"`
}

type moveEntry struct {
	ID            string      `json:"id" yaml:"id"`
	Name          string      `json:"name" yaml:"name"`
	Power         int         `json:"power" yaml:"power"`
	Accuracy      int         `json:"accuracy" yaml:"accuracy"`
	Priority      int         `json:"priority" yaml:"priority"`
	MaxPP         int         `json:"max_pp" yaml:"max_pp"`
	FixedDamage   int         `json:"fixed_damage" yaml:"fixed_damage"`
	RecoilPercent int         `json:"recoil_percent" yaml:"recoil_percent"`
	DrainPercent  int         `json:"drain_percent" yaml:"drain_percent"`
	HealPercent   int         `json:"heal_percent" yaml:"heal_percent"`
	Effect        string      `json:"effect" yaml:"effect"`
	EffectChance  int         `json:"effect_chance" yaml:"effect_chance"`
	UserStages    stagesEntry `json:"user_stages" yaml:"user_stages"`
	TargetStages  stagesEntry `json:"target_stages" yaml:"target_stages"`
}

type itemEntry struct {
	ID    string `json:"id" yaml:"id"`
	Name  string `json:"name" yaml:"name"`
	Heal  int    `json:"heal" yaml:"heal"`
	Cures bool   `json:"cures" yaml:"cures"`
}

type profileEntry struct {
	Name      string         `json:"name" yaml:"name"`
	DefaultMS int            `json:"default_ms" yaml:"default_ms"`
	DelaysMS  map[string]int `json:"delays_ms" yaml:"delays_ms"`
}

type rawConfig struct {
	SpeciesList []speciesEntry `json:"species_list" yaml:"species_list"`
	MoveList    []moveEntry    `json:"move_list" yaml:"move_list"`
	ItemList    []itemEntry    `json:"item_list" yaml:"item_list"`
	Profiles    []profileEntry `json:"timing_profiles" yaml:"timing_profiles"`
	Server      *struct {
		Address string `json:"address" yaml:"address"`
	} `json:"server" yaml:"server"`
	Battle *struct {
		TurnTimeout    string `json:"turn_timeout" yaml:"turn_timeout"`
		SwitchTimeout  string `json:"switch_timeout" yaml:"switch_timeout"`
		TimeoutPolicy  string `json:"timeout_policy" yaml:"timeout_policy"`
		Profile        string `json:"profile" yaml:"profile"`
		OpponentPolicy string `json:"opponent_policy" yaml:"opponent_policy"`
		Retention      string `json:"retention" yaml:"retention"`
	} `json:"battle" yaml:"battle"`
}

// BattleDefaults apply to battles whose start request leaves them out.
type BattleDefaults struct {
	TurnTimeout    time.Duration
	SwitchTimeout  time.Duration
	TimeoutPolicy  game.TimeoutPolicy
	Profile        string
	OpponentPolicy string
	// Retention is how long a finished battle stays queryable in memory.
	Retention time.Duration
}

// LoadedConfig contains the reference data to seed, the timing profiles,
// battle defaults and the server address to bind to.
type LoadedConfig struct {
	Species []refdata.Species
	Moves   []refdata.Move
	Items   []refdata.Item
	// Learnsets maps a species id to the move ids it may know. A species
	// without an entry may use any move.
	Learnsets     map[string][]string
	Profiles      []game.TimingProfile
	ServerAddress string
	Battle        BattleDefaults
}

func unmarshal(path string, b []byte, rc *rawConfig) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return yaml.Unmarshal(b, rc)
	default:
		return json.Unmarshal(b, rc)
	}
}

func parseDuration(path, field, v string, def time.Duration) (time.Duration, error) {
	if strings.TrimSpace(v) == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("config file %s: %s: %w", path, field, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("config file %s: %s must be positive", path, field)
	}
	return d, nil
}

// LoadConfig reads the configuration file at path. YAML is used for .yaml
// and .yml files, JSON otherwise. It requires `species_list` and
// `move_list`.
func LoadConfig(path string) (*LoadedConfig, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	var rc rawConfig
	if err := unmarshal(path, b, &rc); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	if len(rc.SpeciesList) == 0 {
		return nil, fmt.Errorf("config file %s: species_list is empty", path)
	}
	if len(rc.MoveList) == 0 {
		return nil, fmt.Errorf("config file %s: move_list is empty", path)
	}

	out := &LoadedConfig{Learnsets: make(map[string][]string)}

	moveSet := make(map[string]struct{}, len(rc.MoveList))
	for _, m := range rc.MoveList {
		id := keys.Normalize(m.ID)
		if id == "" {
			return nil, fmt.Errorf("config file %s: move entry missing 'id'", path)
		}
		if id == game.StruggleMoveID {
			return nil, fmt.Errorf("config file %s: move id %q is reserved", path, m.ID)
		}
		if _, dup := moveSet[id]; dup {
			return nil, fmt.Errorf("config file %s: duplicate move id '%s'", path, m.ID)
		}
		moveSet[id] = struct{}{}
		effect := game.Status(m.Effect)
		if !effect.Valid() {
			return nil, fmt.Errorf("config file %s: move '%s' has unknown effect '%s'", path, m.ID, m.Effect)
		}
		if m.MaxPP <= 0 {
			return nil, fmt.Errorf("config file %s: move '%s' needs a positive max_pp", path, m.ID)
		}
		if !refdata.ValidPriority(m.Priority) {
			return nil, fmt.Errorf("config file %s: move '%s': %w", path, m.ID, refdata.ErrPriorityRange)
		}
		if m.Accuracy < 0 || m.Accuracy > 100 || m.EffectChance < 0 || m.EffectChance > 100 {
			return nil, fmt.Errorf("config file %s: move '%s' has a percentage out of range", path, m.ID)
		}
		out.Moves = append(out.Moves, refdata.Move{
			ID:            id,
			Name:          m.Name,
			Power:         m.Power,
			Accuracy:      m.Accuracy,
			Priority:      m.Priority,
			MaxPP:         m.MaxPP,
			FixedDamage:   m.FixedDamage,
			RecoilPercent: m.RecoilPercent,
			DrainPercent:  m.DrainPercent,
			HealPercent:   m.HealPercent,
			Effect:        effect,
			EffectChance:  m.EffectChance,
			UserStages:    game.Stages(m.UserStages),
			TargetStages:  game.Stages(m.TargetStages),
		})
	}

	speciesSet := make(map[string]struct{}, len(rc.SpeciesList))
	for _, s := range rc.SpeciesList {
		id := keys.Normalize(s.ID)
		if id == "" {
			return nil, fmt.Errorf("config file %s: species entry missing 'id'", path)
		}
		if _, dup := speciesSet[id]; dup {
			return nil, fmt.Errorf("config file %s: duplicate species id '%s'", path, s.ID)
		}
		speciesSet[id] = struct{}{}
		if s.HP <= 0 || s.Attack <= 0 || s.Defense <= 0 || s.Speed <= 0 {
			return nil, fmt.Errorf("config file %s: species '%s' needs positive base stats", path, s.ID)
		}
		for _, mv := range s.Learnset {
			if _, ok := moveSet[keys.Normalize(mv)]; !ok {
				return nil, fmt.Errorf("config file %s: species '%s' learns unknown move '%s'", path, s.ID, mv)
			}
			out.Learnsets[id] = append(out.Learnsets[id], keys.Normalize(mv))
		}
		out.Species = append(out.Species, refdata.Species{
			ID:   id,
			Name: s.Name,
			Base: game.Stats{HP: s.HP, Attack: s.Attack, Defense: s.Defense, Speed: s.Speed},
		})
	}

	itemSet := make(map[string]struct{}, len(rc.ItemList))
	for _, it := range rc.ItemList {
		id := keys.Normalize(it.ID)
		if id == "" {
			return nil, fmt.Errorf("config file %s: item entry missing 'id'", path)
		}
		if _, dup := itemSet[id]; dup {
			return nil, fmt.Errorf("config file %s: duplicate item id '%s'", path, it.ID)
		}
		itemSet[id] = struct{}{}
		out.Items = append(out.Items, refdata.Item{ID: id, Name: it.Name, Heal: it.Heal, Cures: it.Cures})
	}

	profiles, err := timeline.NewRegistry()
	if err != nil {
		return nil, err
	}
	for _, p := range rc.Profiles {
		tp := game.TimingProfile{
			Name:    keys.Normalize(p.Name),
			Default: time.Duration(p.DefaultMS) * time.Millisecond,
			Delays:  make(map[game.EventType]time.Duration, len(p.DelaysMS)),
		}
		for evType, ms := range p.DelaysMS {
			tp.Delays[game.EventType(evType)] = time.Duration(ms) * time.Millisecond
		}
		if err := profiles.Register(tp); err != nil {
			return nil, fmt.Errorf("config file %s: %w", path, err)
		}
		out.Profiles = append(out.Profiles, tp)
	}

	out.ServerAddress = constants.DefaultAddr
	if rc.Server != nil && rc.Server.Address != "" {
		out.ServerAddress = rc.Server.Address
	}

	out.Battle = BattleDefaults{
		TurnTimeout:    constants.DefaultTurnTimeout,
		SwitchTimeout:  constants.DefaultSwitchTimeout,
		TimeoutPolicy:  game.TimeoutPass,
		Profile:        timeline.ProfileAuthentic,
		OpponentPolicy: policy.NameBasic,
		Retention:      constants.DefaultRetention,
	}
	if bc := rc.Battle; bc != nil {
		if out.Battle.TurnTimeout, err = parseDuration(path, "battle.turn_timeout", bc.TurnTimeout, out.Battle.TurnTimeout); err != nil {
			return nil, err
		}
		if out.Battle.SwitchTimeout, err = parseDuration(path, "battle.switch_timeout", bc.SwitchTimeout, out.Battle.SwitchTimeout); err != nil {
			return nil, err
		}
		if out.Battle.Retention, err = parseDuration(path, "battle.retention", bc.Retention, out.Battle.Retention); err != nil {
			return nil, err
		}
		if bc.TimeoutPolicy != "" {
			out.Battle.TimeoutPolicy = game.TimeoutPolicy(bc.TimeoutPolicy)
			if !out.Battle.TimeoutPolicy.Valid() {
				return nil, fmt.Errorf("config file %s: unknown timeout_policy '%s'", path, bc.TimeoutPolicy)
			}
		}
		if bc.Profile != "" {
			out.Battle.Profile = keys.Normalize(bc.Profile)
		}
		if bc.OpponentPolicy != "" {
			if _, err := policy.Lookup(bc.OpponentPolicy, nil); err != nil {
				return nil, fmt.Errorf("config file %s: %w", path, err)
			}
			out.Battle.OpponentPolicy = keys.Normalize(bc.OpponentPolicy)
		}
	}
	if _, err := profiles.Get(out.Battle.Profile); err != nil {
		return nil, fmt.Errorf("config file %s: default profile: %w", path, err)
	}

	return out, nil
}
