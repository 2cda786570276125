package server

import (
	"net/http"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
)

// SubscriptionStatus reports {is_active, ends_at} for the signed-in user.
func (s *Server) SubscriptionStatus(c *gin.Context) {
	identity, ok := identityFrom(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}
	userID, err := snowflake.ParseString(identity.UserID)
	if err != nil {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	view, err := s.subscriptionSvc.Status(c.Request.Context(), userID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}
