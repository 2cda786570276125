package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/nurture/internal/authstate"
	"github.com/smallbiznis/nurture/internal/config"
	"github.com/smallbiznis/nurture/internal/notify"
	"github.com/smallbiznis/nurture/internal/signup"
	signupdomain "github.com/smallbiznis/nurture/internal/signup/domain"
	"github.com/smallbiznis/nurture/internal/wizard"
)

type OpenSignupRequest struct {
	Plan string `json:"plan"`
}

type sessionView struct {
	authstate.Session
	Status string `json:"status"`
}

// draftView never carries the password.
type draftView struct {
	Email          string `json:"email"`
	FullName       string `json:"full_name"`
	ChildAgeMonths int    `json:"child_age_months"`
	SelectedPlan   string `json:"selected_plan"`
}

type wizardView struct {
	Open  bool       `json:"open"`
	Step  string     `json:"step,omitempty"`
	Busy  bool       `json:"busy"`
	Draft *draftView `json:"draft,omitempty"`
}

type signupView struct {
	Session sessionView     `json:"session"`
	Wizard  wizardView      `json:"wizard"`
	Notices []notify.Notice `json:"notices"`
}

type checkoutView struct {
	signupdomain.CheckoutResult
	Notices []notify.Notice `json:"notices"`
}

func newSessionView(snapshot authstate.Session) sessionView {
	return sessionView{Session: snapshot, Status: snapshot.Status.String()}
}

func newWizardView(state wizard.State, busy bool) wizardView {
	step, draft, ok := wizard.StepOf(state)
	if !ok {
		return wizardView{}
	}
	return wizardView{
		Open: true,
		Step: step.String(),
		Busy: busy,
		Draft: &draftView{
			Email:          draft.Email,
			FullName:       draft.FullName,
			ChildAgeMonths: draft.ChildAgeMonths,
			SelectedPlan:   draft.SelectedPlan,
		},
	}
}

// render answers with the flow's full view. Pending notices are handed out once.
func (s *Server) render(c *gin.Context, status int, flow *signup.Flow) {
	c.JSON(status, signupView{
		Session: newSessionView(flow.Session.Snapshot()),
		Wizard:  newWizardView(flow.Wizard.State(), flow.Wizard.Busy()),
		Notices: flow.Inbox.Drain(),
	})
}

// failWithNotices reports err while still handing pending notices to the client.
func (s *Server) failWithNotices(c *gin.Context, flow *signup.Flow, err error) {
	status, payload := mapError(err)
	_ = c.Error(err)
	c.AbortWithStatusJSON(status, gin.H{
		"error":   payload,
		"wizard":  newWizardView(flow.Wizard.State(), flow.Wizard.Busy()),
		"notices": flow.Inbox.Drain(),
	})
}

func (s *Server) SignupView(c *gin.Context) {
	flow, ok := s.flow(c)
	if !ok {
		return
	}
	s.render(c, http.StatusOK, flow)
}

func (s *Server) OpenSignup(c *gin.Context) {
	var req OpenSignupRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			AbortWithError(c, invalidRequestError())
			return
		}
	}

	plan := strings.TrimSpace(req.Plan)
	if plan != "" && !config.IsPlanKey(plan) {
		AbortWithError(c, newValidationError("plan", "unknown_plan", "unknown plan"))
		return
	}

	flow, ok := s.flow(c)
	if !ok {
		return
	}
	flow.Wizard.Open(plan)
	s.render(c, http.StatusOK, flow)
}

func (s *Server) SubmitCredentials(c *gin.Context) {
	var req signupdomain.AccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	req.UserAgent = c.Request.UserAgent()
	req.IPAddress = c.ClientIP()

	flow, ok := s.flow(c)
	if !ok {
		return
	}

	result, err := s.signup.CreateAccount(c.Request.Context(), flow, req)
	if err != nil {
		s.failWithNotices(c, flow, err)
		return
	}
	if result.Auth != nil && result.Auth.AccessToken != "" {
		s.sessions.Set(c, result.Auth.AccessToken, result.Auth.ExpiresAt)
	}
	s.render(c, http.StatusOK, flow)
}

func (s *Server) SubmitDetails(c *gin.Context) {
	var req signupdomain.DetailsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	flow, ok := s.flow(c)
	if !ok {
		return
	}

	if _, err := s.signup.SaveProfile(c.Request.Context(), flow, req); err != nil {
		s.failWithNotices(c, flow, err)
		return
	}
	s.render(c, http.StatusOK, flow)
}

func (s *Server) SignupBack(c *gin.Context) {
	flow, ok := s.flow(c)
	if !ok {
		return
	}
	if err := flow.Wizard.Back(); err != nil {
		AbortWithError(c, err)
		return
	}
	s.render(c, http.StatusOK, flow)
}

func (s *Server) StartCheckout(c *gin.Context) {
	var req signupdomain.CheckoutRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			AbortWithError(c, invalidRequestError())
			return
		}
	}
	if plan := strings.TrimSpace(req.Plan); plan != "" && !config.IsPlanKey(plan) {
		AbortWithError(c, newValidationError("plan", "unknown_plan", "unknown plan"))
		return
	}

	flow, ok := s.flow(c)
	if !ok {
		return
	}

	result, err := s.signup.StartCheckout(c.Request.Context(), flow, req)
	if err != nil {
		s.failWithNotices(c, flow, err)
		return
	}
	c.JSON(http.StatusOK, checkoutView{CheckoutResult: *result, Notices: flow.Inbox.Drain()})
}

func (s *Server) CloseSignup(c *gin.Context) {
	flow, ok := s.flow(c)
	if !ok {
		return
	}
	flow.Wizard.Close()
	s.render(c, http.StatusOK, flow)
}
