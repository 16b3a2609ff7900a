package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ericogr/skirmish/internal/battle"
	"github.com/ericogr/skirmish/internal/constants"
	"github.com/ericogr/skirmish/internal/logging"
	"github.com/ericogr/skirmish/internal/service"
)

// writeBattleError maps service and engine errors to a status code and a
// body carrying the stable reason code.
func writeBattleError(c *gin.Context, err error, fallback string) {
	var (
		ve *battle.ValidationError
		pe *battle.PhaseError
		fe *battle.FatalError
	)
	switch {
	case errors.Is(err, service.ErrBattleNotFound):
		c.JSON(http.StatusNotFound, gin.H{constants.JSONKeyError: constants.ErrBattleNotFound})
	case errors.As(err, &ve):
		c.JSON(http.StatusBadRequest, gin.H{
			constants.JSONKeyError:   fallback,
			constants.JSONKeyReason:  ve.Reason,
			constants.JSONKeyMessage: ve.Error(),
		})
	case errors.As(err, &pe):
		c.JSON(http.StatusConflict, gin.H{
			constants.JSONKeyError:  fallback,
			constants.JSONKeyReason: pe.Reason,
		})
	case errors.As(err, &fe):
		logging.Error("battle failed while handling request", err, logging.Fields{constants.LogFieldBattleID: fe.BattleID})
		c.JSON(http.StatusInternalServerError, gin.H{
			constants.JSONKeyError:  constants.ErrInternal,
			constants.JSONKeyReason: fe.Reason,
		})
	case errors.Is(err, service.ErrManagerClosed):
		c.JSON(http.StatusServiceUnavailable, gin.H{constants.JSONKeyError: fallback})
	default:
		logging.Error("unexpected battle error", err, nil)
		c.JSON(http.StatusInternalServerError, gin.H{constants.JSONKeyError: fallback})
	}
}
