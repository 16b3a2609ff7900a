package storage

import (
	"github.com/ericogr/skirmish/internal/keys"
	"github.com/ericogr/skirmish/internal/logging"
	"github.com/ericogr/skirmish/internal/refdata"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

// Seed is the reference data loaded from the config file. The config is
// the source of truth: every start upserts it over what the tables hold.
type Seed struct {
	Species []refdata.Species
	Moves   []refdata.Move
	Items   []refdata.Item
}

func OpenAndMigrate(dataSourceName string, seed Seed) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(dataSourceName), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}
	if err := db.AutoMigrate(&SpeciesRecord{}, &MoveRecord{}, &ItemRecord{}, &BattleResultRecord{}); err != nil {
		return nil, err
	}
	if err := seedReference(db, seed); err != nil {
		return nil, err
	}
	return db, nil
}

func seedReference(db *gorm.DB, seed Seed) error {
	return db.Transaction(func(tx *gorm.DB) error {
		upsert := tx.Clauses(clause.OnConflict{UpdateAll: true})
		if len(seed.Species) > 0 {
			rows := make([]SpeciesRecord, 0, len(seed.Species))
			for _, s := range seed.Species {
				s.ID = keys.Normalize(s.ID)
				rows = append(rows, speciesRecord(s))
			}
			if err := upsert.Create(&rows).Error; err != nil {
				return err
			}
		}
		if len(seed.Moves) > 0 {
			rows := make([]MoveRecord, 0, len(seed.Moves))
			for _, m := range seed.Moves {
				m.ID = keys.Normalize(m.ID)
				rows = append(rows, moveRecord(m))
			}
			if err := upsert.Create(&rows).Error; err != nil {
				return err
			}
		}
		if len(seed.Items) > 0 {
			rows := make([]ItemRecord, 0, len(seed.Items))
			for _, it := range seed.Items {
				it.ID = keys.Normalize(it.ID)
				rows = append(rows, itemRecord(it))
			}
			if err := upsert.Create(&rows).Error; err != nil {
				return err
			}
		}
		logging.Info("reference data seeded", logging.Fields{
			"species": len(seed.Species),
			"moves":   len(seed.Moves),
			"items":   len(seed.Items),
		})
		return nil
	})
}
