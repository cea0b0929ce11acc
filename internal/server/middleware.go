package server

import (
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/estatehub/internal/authorization"
	obscontext "github.com/smallbiznis/estatehub/internal/observability/context"
)

// Identity headers set by the upstream auth gateway.
const (
	HeaderUserID   = "X-User-ID"
	HeaderUserRole = "X-User-Role"

	contextActorKey = "actor"
)

// ActorContext resolves the caller from gateway headers. Requests without a
// user id pass through anonymously and are rejected by RequireActor.
func ActorContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		rawID := strings.TrimSpace(c.GetHeader(HeaderUserID))
		if rawID == "" {
			c.Next()
			return
		}

		id, err := snowflake.ParseString(rawID)
		if err != nil || id <= 0 {
			AbortWithError(c, ErrUnauthorized)
			return
		}
		role, err := authorization.ParseRole(c.GetHeader(HeaderUserRole))
		if err != nil {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		actor := authorization.Actor{ID: id, Role: role}
		c.Set(contextActorKey, actor)
		ctx := obscontext.WithActor(c.Request.Context(), actor.Type(), actor.IDString())
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

func RequireActor() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := actorFromContext(c); !ok {
			AbortWithError(c, ErrUnauthorized)
			return
		}
		c.Next()
	}
}

func actorFromContext(c *gin.Context) (authorization.Actor, bool) {
	if c == nil {
		return authorization.Actor{}, false
	}
	value, ok := c.Get(contextActorKey)
	if !ok {
		return authorization.Actor{}, false
	}
	actor, ok := value.(authorization.Actor)
	return actor, ok
}

// mustActor is used by handlers mounted behind RequireActor.
func mustActor(c *gin.Context) authorization.Actor {
	actor, _ := actorFromContext(c)
	return actor
}
