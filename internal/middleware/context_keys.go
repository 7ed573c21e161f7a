package middleware

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/uqar-pharmacy/moneybox/internal/core/domain"
)

const (
	userIDKey     = contextKey("userID")
	pharmacyIDKey = contextKey("pharmacyID")
	actorKey      = contextKey("actor")
)

// GetUserIDFromContext retrieves the authenticated user ID from the request context.
func GetUserIDFromContext(c *gin.Context) (string, bool) {
	userID, ok := c.Request.Context().Value(userIDKey).(string)
	return userID, ok && userID != ""
}

// GetPharmacyIDFromContext retrieves the pharmacy the caller acts for.
func GetPharmacyIDFromContext(c *gin.Context) (string, bool) {
	pharmacyID, ok := c.Request.Context().Value(pharmacyIDKey).(string)
	return pharmacyID, ok && pharmacyID != ""
}

// GetActorFromContext retrieves the resolved caller. The IP address and user agent are
// always filled from the request even when no token was presented.
func GetActorFromContext(c *gin.Context) domain.Actor {
	actor, _ := c.Request.Context().Value(actorKey).(domain.Actor)
	if actor.IPAddress == "" {
		actor.IPAddress = c.ClientIP()
	}
	if actor.UserAgent == "" {
		actor.UserAgent = c.Request.UserAgent()
	}
	return actor
}

// withCaller stores the resolved caller identity in ctx.
func withCaller(ctx context.Context, pharmacyID string, actor domain.Actor) context.Context {
	ctx = context.WithValue(ctx, userIDKey, actor.UserID)
	ctx = context.WithValue(ctx, pharmacyIDKey, pharmacyID)
	return context.WithValue(ctx, actorKey, actor)
}
