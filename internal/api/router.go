package api

import (
	"github.com/gin-gonic/gin"

	"github.com/ericogr/skirmish/internal/constants"
)

// NewRouter mounts every route under /api.
func NewRouter(h *BattleHandler) *gin.Engine {
	router := gin.Default()

	apiRoutes := router.Group(constants.RouteAPIPrefix)
	{
		// Public endpoints
		apiRoutes.GET(constants.RouteVersion, Version)
		apiRoutes.GET(constants.RouteReferenceSpecies, h.ListSpecies)
		apiRoutes.GET(constants.RouteReferenceMoves, h.ListMoves)
		apiRoutes.GET(constants.RouteResults, h.ListResults)
		apiRoutes.POST(constants.RouteBattles, h.StartBattle)
		apiRoutes.GET(constants.RouteBattleByID, h.GetBattle)
		apiRoutes.GET(constants.RouteBattleStream, h.StreamEvents)

		// Side-token endpoints
		protected := apiRoutes.Group("")
		protected.Use(SideTokenRequired(h.tokens))
		protected.POST(constants.RouteBattleActions, h.SubmitAction)
	}
	return router
}
