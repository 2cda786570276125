package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	authdomain "github.com/smallbiznis/nurture/internal/auth/domain"
	"github.com/smallbiznis/nurture/internal/notify"
	obscontext "github.com/smallbiznis/nurture/internal/observability/context"
)

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type sessionResponse struct {
	Session sessionView     `json:"session"`
	Notices []notify.Notice `json:"notices"`
}

func (s *Server) SessionView(c *gin.Context) {
	flow, ok := s.flow(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, sessionResponse{
		Session: newSessionView(flow.Session.Snapshot()),
		Notices: flow.Inbox.Drain(),
	})
}

// Login signs the client in. The provider's SIGNED_IN event updates the session
// store and dismisses an open signup dialog.
func (s *Server) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	flow, ok := s.flow(c)
	if !ok {
		return
	}

	ctx := c.Request.Context()
	result, err := s.authsvc.SignIn(ctx, authdomain.SignInRequest{
		ClientID:  flow.ClientID,
		Email:     strings.TrimSpace(req.Email),
		Password:  req.Password,
		UserAgent: c.Request.UserAgent(),
		IPAddress: c.ClientIP(),
	})
	if err != nil {
		flow.Inbox.Notify(ctx, "signin:"+obscontext.RequestIDFromContext(ctx), notify.OutcomeSignInFailed, err)
		s.failWithNotices(c, flow, err)
		return
	}

	s.sessions.Set(c, result.AccessToken, result.ExpiresAt)
	c.JSON(http.StatusOK, sessionResponse{
		Session: newSessionView(flow.Session.Snapshot()),
		Notices: flow.Inbox.Drain(),
	})
}

func (s *Server) Logout(c *gin.Context) {
	flow, ok := s.flow(c)
	if !ok {
		return
	}

	if err := flow.Session.SignOut(c.Request.Context()); err != nil {
		s.failWithNotices(c, flow, err)
		return
	}

	s.sessions.Clear(c)
	c.JSON(http.StatusOK, sessionResponse{
		Session: newSessionView(flow.Session.Snapshot()),
		Notices: flow.Inbox.Drain(),
	})
}
