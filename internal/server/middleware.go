package server

import (
	"github.com/gin-gonic/gin"
	authdomain "github.com/smallbiznis/nurture/internal/auth/domain"
	obscontext "github.com/smallbiznis/nurture/internal/observability/context"
	"github.com/smallbiznis/nurture/internal/signup"
)

const (
	contextClientIDKey = "client_id"
	contextIdentityKey = "identity"
)

// ClientIdentity binds the request to the browser's client ID, minting one if needed.
func (s *Server) ClientIdentity() gin.HandlerFunc {
	return func(c *gin.Context) {
		clientID := s.sessions.EnsureClientID(c)
		c.Set(contextClientIDKey, clientID)
		c.Request = c.Request.WithContext(obscontext.WithClientID(c.Request.Context(), clientID))
		c.Next()
	}
}

// AuthRequired resolves the access token cookie into an identity.
func (s *Server) AuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := s.sessions.ReadToken(c)
		if !ok {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		identity, err := s.authsvc.Authenticate(c.Request.Context(), token)
		if err != nil {
			AbortWithError(c, err)
			return
		}
		if identity == nil {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		c.Set(contextIdentityKey, identity)
		c.Next()
	}
}

func clientIDFrom(c *gin.Context) string {
	return c.GetString(contextClientIDKey)
}

func identityFrom(c *gin.Context) (*authdomain.Identity, bool) {
	value, ok := c.Get(contextIdentityKey)
	if !ok {
		return nil, false
	}
	identity, ok := value.(*authdomain.Identity)
	return identity, ok && identity != nil
}

// flow loads the caller's signup flow. On failure the error is already recorded.
func (s *Server) flow(c *gin.Context) (*signup.Flow, bool) {
	flow, err := s.flows.Get(c.Request.Context(), clientIDFrom(c))
	if err != nil {
		AbortWithError(c, err)
		return nil, false
	}
	return flow, true
}
