package api

import (
	"context"

	"github.com/ericogr/skirmish/internal/battle"
	"github.com/ericogr/skirmish/internal/game"
	"github.com/ericogr/skirmish/internal/refdata"
	"github.com/ericogr/skirmish/internal/service"
	"github.com/ericogr/skirmish/internal/storage"
)

// Battles is the session layer the handlers drive. *service.Manager
// implements it.
type Battles interface {
	Start(ctx context.Context, req service.StartRequest) (string, game.Snapshot, error)
	Submit(ctx context.Context, id string, side game.SideID, a game.Action) (battle.Receipt, error)
	Snapshot(id string) (game.Snapshot, error)
	Subscribe(id string) ([]game.Event, <-chan game.Event, func(), error)
}

// Archive reads finished battles and reference listings from storage.
type Archive interface {
	ListSpecies() ([]refdata.Species, error)
	ListMoves() ([]refdata.Move, error)
	GetResult(ctx context.Context, battleID string) (*storage.BattleResultRecord, error)
	ListResults(ctx context.Context, limit int) ([]storage.BattleResultRecord, error)
}

// BattleHandler groups all battle-related HTTP handlers.
type BattleHandler struct {
	battles Battles
	archive Archive
	tokens  *TokenIssuer
}

// NewBattleHandler creates a BattleHandler. archive may be nil, in which
// case reference and result routes report an error.
func NewBattleHandler(battles Battles, archive Archive, tokens *TokenIssuer) *BattleHandler {
	return &BattleHandler{battles: battles, archive: archive, tokens: tokens}
}
