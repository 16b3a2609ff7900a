package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/ericogr/skirmish/internal/keys"
	"github.com/ericogr/skirmish/internal/refdata"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var ErrResultNotFound = errors.New("battle result not found")

type sqliteRepository struct {
	db *gorm.DB
}

func NewSQLiteRepository(db *gorm.DB) Repository {
	return &sqliteRepository{db: db}
}

func notFound(kind, id string, err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%s %q: %w", kind, id, refdata.ErrNotFound)
	}
	return err
}

func (r *sqliteRepository) LoadSpecies(id string) (refdata.Species, error) {
	var rec SpeciesRecord
	if err := r.db.First(&rec, "id = ?", keys.Normalize(id)).Error; err != nil {
		return refdata.Species{}, notFound("species", id, err)
	}
	return rec.toSpecies(), nil
}

func (r *sqliteRepository) LoadMove(id string) (refdata.Move, error) {
	var rec MoveRecord
	if err := r.db.First(&rec, "id = ?", keys.Normalize(id)).Error; err != nil {
		return refdata.Move{}, notFound("move", id, err)
	}
	return rec.toMove(), nil
}

func (r *sqliteRepository) LoadItem(id string) (refdata.Item, error) {
	var rec ItemRecord
	if err := r.db.First(&rec, "id = ?", keys.Normalize(id)).Error; err != nil {
		return refdata.Item{}, notFound("item", id, err)
	}
	return rec.toItem(), nil
}

func (r *sqliteRepository) ListSpecies() ([]refdata.Species, error) {
	var recs []SpeciesRecord
	if err := r.db.Order("id").Find(&recs).Error; err != nil {
		return nil, err
	}
	out := make([]refdata.Species, len(recs))
	for i := range recs {
		out[i] = recs[i].toSpecies()
	}
	return out, nil
}

func (r *sqliteRepository) ListMoves() ([]refdata.Move, error) {
	var recs []MoveRecord
	if err := r.db.Order("id").Find(&recs).Error; err != nil {
		return nil, err
	}
	out := make([]refdata.Move, len(recs))
	for i := range recs {
		out[i] = recs[i].toMove()
	}
	return out, nil
}

func (r *sqliteRepository) ListItems() ([]refdata.Item, error) {
	var recs []ItemRecord
	if err := r.db.Order("id").Find(&recs).Error; err != nil {
		return nil, err
	}
	out := make([]refdata.Item, len(recs))
	for i := range recs {
		out[i] = recs[i].toItem()
	}
	return out, nil
}

func (r *sqliteRepository) RecordResult(ctx context.Context, rec *BattleResultRecord) error {
	if rec.BattleID == "" {
		return gorm.ErrInvalidData
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "battle_id"}},
		DoNothing: true,
	}).Create(rec).Error
}

func (r *sqliteRepository) GetResult(ctx context.Context, battleID string) (*BattleResultRecord, error) {
	var rec BattleResultRecord
	err := r.db.WithContext(ctx).Where("battle_id = ?", battleID).First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrResultNotFound
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func (r *sqliteRepository) ListResults(ctx context.Context, limit int) ([]BattleResultRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	var recs []BattleResultRecord
	err := r.db.WithContext(ctx).Order("ended_at desc").Order("id desc").Limit(limit).Find(&recs).Error
	return recs, err
}
