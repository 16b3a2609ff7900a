package api

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/ericogr/skirmish/internal/constants"
	"github.com/ericogr/skirmish/internal/game"
)

// SideTokenRequired validates the bearer side token and injects the battle
// and side it was issued for into the context. The token must belong to the
// battle named in the route.
func SideTokenRequired(tokens *TokenIssuer) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader(constants.HeaderAuthorization)
		if !strings.HasPrefix(header, constants.BearerPrefix) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{constants.JSONKeyError: constants.ErrAuthRequired})
			return
		}
		claims, err := tokens.Parse(strings.TrimPrefix(header, constants.BearerPrefix))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{constants.JSONKeyError: constants.ErrInvalidToken})
			return
		}
		if id := c.Param("battleID"); id != "" && id != claims.BattleID {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{constants.JSONKeyError: constants.ErrTokenBattleMismatch})
			return
		}
		c.Set(constants.CtxKeyBattleID, claims.BattleID)
		c.Set(constants.CtxKeySide, claims.Side)
		c.Next()
	}
}

func sideFromContext(c *gin.Context) game.SideID {
	v, _ := c.Get(constants.CtxKeySide)
	side, _ := v.(game.SideID)
	return side
}
