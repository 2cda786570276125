package signup

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/nurture/internal/analytics"
	authdomain "github.com/smallbiznis/nurture/internal/auth/domain"
	checkoutdomain "github.com/smallbiznis/nurture/internal/checkout/domain"
	"github.com/smallbiznis/nurture/internal/config"
	"github.com/smallbiznis/nurture/internal/notify"
	obslogger "github.com/smallbiznis/nurture/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/nurture/internal/observability/metrics"
	profiledomain "github.com/smallbiznis/nurture/internal/profile/domain"
	"github.com/smallbiznis/nurture/internal/signup/domain"
	"github.com/smallbiznis/nurture/internal/wizard"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	defaultMinPasswordScore = 2
	defaultStepTimeout      = 20 * time.Second
)

// AuthClient is the account side of the auth provider.
type AuthClient interface {
	SignUp(ctx context.Context, req authdomain.SignUpRequest) (*authdomain.AuthResult, error)
	GetSession(ctx context.Context, clientID string) (*authdomain.Identity, error)
}

type ProfileStore interface {
	Insert(ctx context.Context, profile *profiledomain.Profile) error
}

// PlanResolver maps a plan key to the provider price identifier.
type PlanResolver interface {
	PriceID(plan string) (string, error)
}

type Params struct {
	fx.In

	Log       *zap.Logger
	Config    config.Config
	Auth      AuthClient
	Profiles  ProfileStore
	Backend   checkoutdomain.Backend
	Bridge    checkoutdomain.Bridge
	Analytics analytics.Sink
	Scorer    PasswordScorer
	Plans     PlanResolver
	Metrics   *obsmetrics.Metrics `optional:"true"`
}

// Orchestrator drives the three signup steps for one flow at a time. Step
// results are applied through wizard tickets, so a result for a dialog that
// was closed or reopened meanwhile changes nothing.
type Orchestrator struct {
	log       *zap.Logger
	auth      AuthClient
	profiles  ProfileStore
	backend   checkoutdomain.Backend
	bridge    checkoutdomain.Bridge
	analytics analytics.Sink
	scorer    PasswordScorer
	plans     PlanResolver
	metrics   *obsmetrics.Metrics

	minScore int
	timeout  time.Duration
}

func NewOrchestrator(p Params) *Orchestrator {
	minScore := p.Config.Signup.MinPasswordScore
	if minScore <= 0 {
		minScore = defaultMinPasswordScore
	}
	timeout := p.Config.Signup.StepTimeout
	if timeout <= 0 {
		timeout = defaultStepTimeout
	}
	sink := p.Analytics
	if sink == nil {
		sink = analytics.Noop()
	}
	return &Orchestrator{
		log:       p.Log.Named("signup.orchestrator"),
		auth:      p.Auth,
		profiles:  p.Profiles,
		backend:   p.Backend,
		bridge:    p.Bridge,
		analytics: sink,
		scorer:    p.Scorer,
		plans:     p.Plans,
		metrics:   p.Metrics,
		minScore:  minScore,
		timeout:   timeout,
	}
}

// CreateAccount validates the credentials and creates the account. The dialog
// moves to Details and stays open.
func (o *Orchestrator) CreateAccount(ctx context.Context, flow *Flow, req domain.AccountRequest) (*domain.AccountResult, error) {
	email := strings.TrimSpace(req.Email)
	ticket, err := flow.Wizard.Begin(wizard.StepCredentials, func(d *wizard.Draft) {
		d.Email = email
		d.Password = req.Password
	})
	if err != nil {
		return nil, err
	}

	if !validEmail(email) {
		return nil, o.reject(ctx, flow, ticket, notify.OutcomeInvalidEmail, domain.ErrInvalidEmail)
	}
	if o.scorer.Score(req.Password, []string{email}) < o.minScore {
		return nil, o.reject(ctx, flow, ticket, notify.OutcomeWeakPassword, domain.ErrWeakPassword)
	}

	draft, _ := flow.Wizard.Draft(ticket)
	if flow.Wizard.StartOnce() {
		o.capture(ctx, flow, analytics.EventSignupStarted, map[string]any{"selectedPlan": draft.SelectedPlan})
	}
	o.captureStep(ctx, flow, "initial")

	var result *authdomain.AuthResult
	err = o.call(ctx, func(ctx context.Context) error {
		var err error
		result, err = o.auth.SignUp(ctx, authdomain.SignUpRequest{
			ClientID:  flow.ClientID,
			Email:     email,
			Password:  req.Password,
			Metadata:  map[string]any{"selected_plan": draft.SelectedPlan},
			UserAgent: req.UserAgent,
			IPAddress: req.IPAddress,
		})
		return err
	})

	if !flow.Wizard.Complete(ticket, err == nil) {
		return nil, o.superseded(ctx, ticket, err)
	}
	if err != nil {
		o.fail(ctx, flow, ticket, notify.OutcomeAccountFailed, err)
		return nil, err
	}

	o.metrics.RecordSignupStep(ctx, ticket.Step().String(), "success")
	return &domain.AccountResult{State: flow.Wizard.State(), Auth: result}, nil
}

// SaveProfile stores the onboarding details for the session's user. A failure
// leaves the account in place so the step can be retried on its own.
func (o *Orchestrator) SaveProfile(ctx context.Context, flow *Flow, req domain.DetailsRequest) (wizard.State, error) {
	fullName := strings.TrimSpace(req.FullName)
	plan := strings.TrimSpace(req.Plan)
	ticket, err := flow.Wizard.Begin(wizard.StepDetails, func(d *wizard.Draft) {
		d.FullName = fullName
		d.ChildAgeMonths = req.ChildAgeMonths
		if config.IsPlanKey(plan) {
			d.SelectedPlan = plan
		}
	})
	if err != nil {
		return nil, err
	}

	draft, _ := flow.Wizard.Draft(ticket)
	if (plan != "" && !config.IsPlanKey(plan)) ||
		fullName == "" ||
		req.ChildAgeMonths < profiledomain.MinChildAgeMonths ||
		req.ChildAgeMonths > profiledomain.MaxChildAgeMonths ||
		!config.IsPlanKey(draft.SelectedPlan) {
		return nil, o.reject(ctx, flow, ticket, notify.OutcomeInvalidDetails, domain.ErrInvalidDetails)
	}

	o.captureStep(ctx, flow, "details")

	err = o.call(ctx, func(ctx context.Context) error {
		identity, err := o.session(ctx, flow)
		if err != nil {
			return err
		}
		userID, err := parseUserID(identity.UserID)
		if err != nil {
			return err
		}
		return o.profiles.Insert(ctx, &profiledomain.Profile{
			UserID:         userID,
			FullName:       fullName,
			ChildAgeMonths: req.ChildAgeMonths,
			SelectedPlan:   draft.SelectedPlan,
		})
	})

	if !flow.Wizard.Complete(ticket, err == nil) {
		return nil, o.superseded(ctx, ticket, err)
	}
	if err != nil {
		o.fail(ctx, flow, ticket, notify.OutcomeProfileFailed, err)
		return nil, err
	}

	o.metrics.RecordSignupStep(ctx, ticket.Step().String(), "success")
	return flow.Wizard.State(), nil
}

// StartCheckout requests one checkout session and returns the hosted page to
// redirect to. The dialog closes once the handoff target is known.
func (o *Orchestrator) StartCheckout(ctx context.Context, flow *Flow, req domain.CheckoutRequest) (*domain.CheckoutResult, error) {
	plan := strings.TrimSpace(req.Plan)
	fullName := strings.TrimSpace(req.FullName)
	// An override outside the catalogue is bad input, not a broken draft.
	if plan != "" && !config.IsPlanKey(plan) {
		return nil, fmt.Errorf("%w: %q", domain.ErrUnknownPlan, plan)
	}
	ticket, err := flow.Wizard.Begin(wizard.StepCheckout, func(d *wizard.Draft) {
		if plan != "" {
			d.SelectedPlan = plan
		}
		if fullName != "" {
			d.FullName = fullName
		}
	})
	if err != nil {
		return nil, err
	}

	draft, _ := flow.Wizard.Draft(ticket)
	priceID, err := o.plans.PriceID(draft.SelectedPlan)
	if err != nil {
		flow.Wizard.Complete(ticket, false)
		o.metrics.RecordSignupStep(ctx, ticket.Step().String(), "unknown_plan")
		obslogger.WithContext(ctx, o.log).DPanic("checkout requested for plan outside the catalogue",
			zap.String("plan", draft.SelectedPlan),
			zap.Error(err),
		)
		return nil, err
	}

	o.captureStep(ctx, flow, "checkout")

	var redirect string
	err = o.call(ctx, func(ctx context.Context) error {
		identity, err := o.session(ctx, flow)
		if err != nil {
			return err
		}
		session, err := o.backend.CreateSession(ctx, checkoutdomain.Request{
			PriceID: priceID,
			UserID:  identity.UserID,
			Email:   identity.Email,
			Name:    draft.FullName,
		})
		if err != nil {
			return err
		}
		redirect, err = o.bridge.Handoff(ctx, session)
		return err
	})

	if err != nil {
		if !flow.Wizard.Complete(ticket, false) {
			return nil, o.superseded(ctx, ticket, err)
		}
		o.fail(ctx, flow, ticket, notify.OutcomeCheckoutFailed, err)
		return nil, err
	}
	if !flow.Wizard.Finish(ticket) {
		return nil, o.superseded(ctx, ticket, nil)
	}

	o.captureStep(ctx, flow, "checkout_complete")
	o.metrics.RecordSignupStep(ctx, ticket.Step().String(), "success")
	return &domain.CheckoutResult{RedirectURL: redirect}, nil
}

// call runs fn detached from the caller's cancellation and bounded by the step
// timeout. A panic becomes an error.
func (o *Orchestrator) call(ctx context.Context, fn func(context.Context) error) (err error) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), o.timeout)
	defer cancel()
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", domain.ErrStepPanicked, r)
		}
	}()
	return fn(ctx)
}

// session re-reads the provider instead of trusting the cached store.
func (o *Orchestrator) session(ctx context.Context, flow *Flow) (*authdomain.Identity, error) {
	identity, err := o.auth.GetSession(ctx, flow.ClientID)
	if err != nil {
		return nil, err
	}
	if identity == nil || identity.UserID == "" {
		return nil, domain.ErrNoSession
	}
	return identity, nil
}

// reject handles a validation failure: no remote call was made.
func (o *Orchestrator) reject(ctx context.Context, flow *Flow, ticket wizard.Ticket, outcome notify.Outcome, err error) error {
	flow.Wizard.Complete(ticket, false)
	o.metrics.RecordSignupStep(ctx, ticket.Step().String(), "invalid")
	flow.Inbox.Notify(ctx, ticket.Attempt(), outcome, nil)
	return err
}

func (o *Orchestrator) fail(ctx context.Context, flow *Flow, ticket wizard.Ticket, outcome notify.Outcome, err error) {
	o.metrics.RecordSignupStep(ctx, ticket.Step().String(), "failed")
	flow.Inbox.Notify(ctx, ticket.Attempt(), outcome, err)
}

func (o *Orchestrator) superseded(ctx context.Context, ticket wizard.Ticket, err error) error {
	o.metrics.RecordSignupStep(ctx, ticket.Step().String(), "superseded")
	fields := []zap.Field{zap.String("attempt", ticket.Attempt())}
	if err != nil {
		fields = append(fields, zap.Error(err))
	}
	obslogger.WithContext(ctx, o.log).Info("ignoring result for closed signup dialog", fields...)
	return domain.ErrSuperseded
}

func (o *Orchestrator) captureStep(ctx context.Context, flow *Flow, step string) {
	o.capture(ctx, flow, analytics.EventSignupStep, map[string]any{"step": step})
}

func (o *Orchestrator) capture(ctx context.Context, flow *Flow, name string, props map[string]any) {
	o.analytics.Capture(ctx, analytics.Event{
		Name:       name,
		DistinctID: flow.ClientID,
		Properties: props,
	})
}

func validEmail(raw string) bool {
	if raw == "" {
		return false
	}
	addr, err := mail.ParseAddress(raw)
	if err != nil {
		return false
	}
	return addr.Address == raw && addr.Name == ""
}

func parseUserID(raw string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(raw)
	if err != nil || id == 0 {
		return 0, errors.Join(domain.ErrNoSession, err)
	}
	return id, nil
}
