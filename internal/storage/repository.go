package storage

import (
	"context"

	"github.com/ericogr/skirmish/internal/refdata"
)

// Repository is the storage boundary: read-only reference tables behind
// refdata.Source, plus the archive of finished battles.
type Repository interface {
	refdata.Source

	ListSpecies() ([]refdata.Species, error)
	ListMoves() ([]refdata.Move, error)
	ListItems() ([]refdata.Item, error)

	// RecordResult stores a finished battle. Recording the same battle
	// twice keeps the first record.
	RecordResult(ctx context.Context, rec *BattleResultRecord) error
	GetResult(ctx context.Context, battleID string) (*BattleResultRecord, error)
	// ListResults returns the most recent results first.
	ListResults(ctx context.Context, limit int) ([]BattleResultRecord, error)
}
