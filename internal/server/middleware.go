package server

import (
	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/familyhub/internal/auth"
	obscontext "github.com/smallbiznis/familyhub/internal/observability/context"
)

const (
	contextUserIDKey    = "user_id"
	contextUserEmailKey = "user_email"
)

// AuthRequired accepts a backend-issued Bearer token and stores the caller
// on the request.
func (s *Server) AuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		identity, err := s.tokens.Verify(auth.BearerToken(c.GetHeader("Authorization")))
		if err != nil {
			AbortWithError(c, err)
			return
		}

		c.Set(contextUserIDKey, identity.UserID)
		c.Set(contextUserEmailKey, identity.Email)
		c.Request = c.Request.WithContext(obscontext.WithUserID(c.Request.Context(), identity.UserID))
		c.Next()
	}
}

func currentUserID(c *gin.Context) string {
	return c.GetString(contextUserIDKey)
}

func currentUserEmail(c *gin.Context) string {
	return c.GetString(contextUserEmailKey)
}
