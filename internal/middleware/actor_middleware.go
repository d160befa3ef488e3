package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/konveksi/admin-gateway/internal/app/model"
	"github.com/konveksi/admin-gateway/internal/errors"
	"github.com/konveksi/admin-gateway/internal/upstream"
	"github.com/konveksi/admin-gateway/pkg/util"
)

// Context keys for the acting user
const (
	ActorIDKey   = "actor_id"
	ActorNameKey = "actor_name"
)

// ActorMiddleware reads who is calling from the bearer token and forwards the
// token to the backend. The gateway never verifies signatures itself.
type ActorMiddleware struct {
	now func() time.Time
}

func NewActorMiddleware() *ActorMiddleware {
	return &ActorMiddleware{now: time.Now}
}

// RequireActor rejects requests without a readable bearer token.
func (m *ActorMiddleware) RequireActor() gin.HandlerFunc {
	return func(c *gin.Context) {
		log := GetLoggerFromContext(c)

		var token string
		if authHeader := c.GetHeader("Authorization"); authHeader != "" {
			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
				log.Warn("Invalid authorization header format")
				errors.RespondWithError(c, http.StatusUnauthorized, errors.AuthTokenInvalid, "Authorization header must be a bearer token")
				c.Abort()
				return
			}
			token = parts[1]
		} else {
			// Browsers cannot set headers on a WebSocket upgrade
			token = c.Query("token")
			if token == "" {
				log.Warn("Missing authorization header")
				errors.Unauthorized(c, "")
				c.Abort()
				return
			}
		}

		claims, err := util.ParseActorClaims(token, m.now())
		if err != nil {
			log.Warn("Unreadable bearer token", map[string]interface{}{
				"error": err.Error(),
			})
			message := "Token is not valid"
			if err == util.ErrExpiredToken {
				message = "Session has expired, please log in again"
			}
			errors.RespondWithError(c, http.StatusUnauthorized, errors.AuthTokenInvalid, message)
			c.Abort()
			return
		}

		c.Set(ActorIDKey, claims.UserID)
		c.Set(ActorNameKey, claims.Name)

		ctx := model.WithActor(c.Request.Context(), model.Actor{
			ID:        claims.UserID,
			Name:      claims.Name,
			RequestID: c.GetString(RequestIDKey),
		})
		c.Request = c.Request.WithContext(upstream.WithToken(ctx, token))

		log.Debug("Actor resolved", map[string]interface{}{
			"actor_id":   claims.UserID,
			"actor_name": claims.Name,
		})

		c.Next()
	}
}

// GetActorID extracts the acting user's id from context
func GetActorID(c *gin.Context) (int64, bool) {
	id, exists := c.Get(ActorIDKey)
	if !exists {
		return 0, false
	}
	return id.(int64), true
}
