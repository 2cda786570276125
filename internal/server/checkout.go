package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	checkoutdomain "github.com/smallbiznis/nurture/internal/checkout/domain"
)

// CreateCheckoutSession is the checkout backend endpoint. It answers {sessionId, url}.
func (s *Server) CreateCheckoutSession(c *gin.Context) {
	var req checkoutdomain.Request
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	req.PriceID = strings.TrimSpace(req.PriceID)
	req.UserID = strings.TrimSpace(req.UserID)
	req.Email = strings.TrimSpace(req.Email)
	req.Name = strings.TrimSpace(req.Name)

	session, err := s.checkoutSvc.CreateSession(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, session)
}
