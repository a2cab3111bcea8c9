// Package middleware extracts the authenticated actor identity supplied by
// the upstream gateway. The headers are trusted; this service performs role
// and ownership guards only, not authentication.
package middleware

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/psds-microservice/complaint-service/internal/model"
)

const ctxActorKey = "actor"

// Actor requires X-Actor-Id and X-Actor-Role on every request and stores
// the parsed identity in the gin context.
func Actor() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := strconv.ParseUint(c.GetHeader("X-Actor-Id"), 10, 64)
		if err != nil || id == 0 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "actor identity required (X-Actor-Id)"})
			return
		}
		role := model.Role(c.GetHeader("X-Actor-Role"))
		if !model.ValidRole(role) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "valid actor role required (X-Actor-Role)"})
			return
		}
		c.Set(ctxActorKey, model.Actor{ID: id, Role: role})
		c.Next()
	}
}

// ActorFrom returns the actor stored by Actor. Zero value when absent.
func ActorFrom(c *gin.Context) model.Actor {
	if v, ok := c.Get(ctxActorKey); ok {
		if a, ok := v.(model.Actor); ok {
			return a
		}
	}
	return model.Actor{}
}
