package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/ericogr/skirmish/internal/constants"
	"github.com/ericogr/skirmish/internal/game"
	"github.com/ericogr/skirmish/internal/logging"
	"github.com/ericogr/skirmish/internal/service"
	"github.com/ericogr/skirmish/internal/storage"
)

// StartResponse is returned when a battle starts. Tokens holds one bearer
// token per human-controlled side.
type StartResponse struct {
	BattleID string                 `json:"battle_id"`
	Snapshot game.Snapshot          `json:"snapshot"`
	Tokens   map[game.SideID]string `json:"tokens"`
}

// ActionRequest is a side's choice for the current turn. The side comes
// from the bearer token, never from the body.
type ActionRequest struct {
	Kind     game.ActionKind `json:"kind" binding:"required"`
	MoveID   string          `json:"move_id"`
	ItemID   string          `json:"item_id"`
	Target   int             `json:"target"`
	SwitchTo int             `json:"switch_to"`
	Turn     int             `json:"turn"`
}

func (r ActionRequest) action() game.Action {
	return game.Action{
		Kind:     r.Kind,
		MoveID:   r.MoveID,
		ItemID:   r.ItemID,
		Target:   r.Target,
		SwitchTo: r.SwitchTo,
		Turn:     r.Turn,
	}
}

// StartBattle creates a battle and hands out side tokens.
func (h *BattleHandler) StartBattle(c *gin.Context) {
	var req service.StartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{constants.JSONKeyError: constants.ErrInvalidRequest, constants.JSONKeyMessage: err.Error()})
		return
	}
	id, snap, err := h.battles.Start(c.Request.Context(), req)
	if err != nil {
		writeBattleError(c, err, constants.ErrFailedStartBattle)
		return
	}
	tokens := make(map[game.SideID]string, 2)
	for _, s := range snap.Sides {
		if s.Controller != game.ControllerHuman {
			continue
		}
		tok, err := h.tokens.Issue(id, s.ID)
		if err != nil {
			logging.Error("failed to issue side token", err, logging.Fields{constants.LogFieldBattleID: id, constants.LogFieldSide: s.ID})
			c.JSON(http.StatusInternalServerError, gin.H{constants.JSONKeyError: constants.ErrFailedStartBattle})
			return
		}
		tokens[s.ID] = tok
	}
	c.JSON(http.StatusCreated, StartResponse{BattleID: id, Snapshot: snap, Tokens: tokens})
}

// GetBattle returns the live snapshot of a battle, or its archived record
// once it was evicted from memory.
func (h *BattleHandler) GetBattle(c *gin.Context) {
	id := c.Param("battleID")
	snap, err := h.battles.Snapshot(id)
	if err == nil {
		c.JSON(http.StatusOK, snap)
		return
	}
	if !errors.Is(err, service.ErrBattleNotFound) || h.archive == nil {
		writeBattleError(c, err, constants.ErrBattleNotFound)
		return
	}
	rec, err := h.archive.GetResult(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, storage.ErrResultNotFound) {
			c.JSON(http.StatusNotFound, gin.H{constants.JSONKeyError: constants.ErrBattleNotFound})
			return
		}
		logging.Error("failed to load archived battle", err, logging.Fields{constants.LogFieldBattleID: id})
		c.JSON(http.StatusInternalServerError, gin.H{constants.JSONKeyError: constants.ErrFailedFetchResults})
		return
	}
	c.JSON(http.StatusOK, resultView(*rec))
}

// SubmitAction forwards the caller's action to the engine.
func (h *BattleHandler) SubmitAction(c *gin.Context) {
	side := sideFromContext(c)
	if side == "" {
		c.JSON(http.StatusUnauthorized, gin.H{constants.JSONKeyError: constants.ErrAuthRequired})
		return
	}
	var req ActionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{constants.JSONKeyError: constants.ErrInvalidRequest, constants.JSONKeyMessage: err.Error()})
		return
	}
	rc, err := h.battles.Submit(c.Request.Context(), c.Param("battleID"), side, req.action())
	if err != nil {
		writeBattleError(c, err, constants.ErrFailedStoreAction)
		return
	}
	c.JSON(http.StatusOK, rc)
}

// ListResults returns the most recently archived battles, newest first.
func (h *BattleHandler) ListResults(c *gin.Context) {
	limit := 20
	if s := c.Query("limit"); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 && n <= 100 {
			limit = n
		}
	}
	if h.archive == nil {
		c.JSON(http.StatusInternalServerError, gin.H{constants.JSONKeyError: constants.ErrFailedFetchResults})
		return
	}
	recs, err := h.archive.ListResults(c.Request.Context(), limit)
	if err != nil {
		logging.Error("failed to list battle results", err, nil)
		c.JSON(http.StatusInternalServerError, gin.H{constants.JSONKeyError: constants.ErrFailedFetchResults})
		return
	}
	out := make([]gin.H, 0, len(recs))
	for _, r := range recs {
		v := resultView(r)
		delete(v, "snapshot")
		out = append(out, v)
	}
	c.JSON(http.StatusOK, out)
}

func resultView(r storage.BattleResultRecord) gin.H {
	v := gin.H{
		"battle_id":   r.BattleID,
		"type":        r.Type,
		"winner":      r.Winner,
		"outcome":     r.Outcome,
		"reason":      r.Reason,
		"turns":       r.Turns,
		"side_a_name": r.SideAName,
		"side_b_name": r.SideBName,
		"ended_at":    r.EndedAt,
	}
	if len(r.Snapshot) > 0 {
		v["snapshot"] = json.RawMessage(r.Snapshot)
	}
	return v
}

// ListSpecies returns the species reference table.
func (h *BattleHandler) ListSpecies(c *gin.Context) {
	if h.archive == nil {
		c.JSON(http.StatusInternalServerError, gin.H{constants.JSONKeyError: constants.ErrFailedFetchRef})
		return
	}
	species, err := h.archive.ListSpecies()
	if err != nil {
		logging.Error("failed to list species", err, nil)
		c.JSON(http.StatusInternalServerError, gin.H{constants.JSONKeyError: constants.ErrFailedFetchRef})
		return
	}
	c.JSON(http.StatusOK, species)
}

// ListMoves returns the move reference table.
func (h *BattleHandler) ListMoves(c *gin.Context) {
	if h.archive == nil {
		c.JSON(http.StatusInternalServerError, gin.H{constants.JSONKeyError: constants.ErrFailedFetchRef})
		return
	}
	moves, err := h.archive.ListMoves()
	if err != nil {
		logging.Error("failed to list moves", err, nil)
		c.JSON(http.StatusInternalServerError, gin.H{constants.JSONKeyError: constants.ErrFailedFetchRef})
		return
	}
	c.JSON(http.StatusOK, moves)
}
