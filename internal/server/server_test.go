package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/nurture/internal/analytics"
	"github.com/smallbiznis/nurture/internal/auth/events"
	authrepository "github.com/smallbiznis/nurture/internal/auth/repository"
	authservice "github.com/smallbiznis/nurture/internal/auth/service"
	"github.com/smallbiznis/nurture/internal/auth/session"
	"github.com/smallbiznis/nurture/internal/auth/token"
	checkoutdomain "github.com/smallbiznis/nurture/internal/checkout/domain"
	checkoutservice "github.com/smallbiznis/nurture/internal/checkout/service"
	"github.com/smallbiznis/nurture/internal/config"
	"github.com/smallbiznis/nurture/internal/migration"
	"github.com/smallbiznis/nurture/internal/notify"
	"github.com/smallbiznis/nurture/internal/observability"
	paymentdomain "github.com/smallbiznis/nurture/internal/payment/domain"
	profilerepository "github.com/smallbiznis/nurture/internal/profile/repository"
	"github.com/smallbiznis/nurture/internal/ratelimit"
	"github.com/smallbiznis/nurture/internal/signup"
	subscriptionrepository "github.com/smallbiznis/nurture/internal/subscription/repository"
	subscriptionservice "github.com/smallbiznis/nurture/internal/subscription/service"
	"github.com/smallbiznis/nurture/pkg/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const (
	strongPassword  = "q7#Vz!9pLm@2Xw"
	checkoutBaseURL = "https://checkout.test/pay"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeGateway struct {
	mu       sync.Mutex
	requests []paymentdomain.CheckoutSessionRequest
	err      error
}

func (g *fakeGateway) CreateCheckoutSession(_ context.Context, req paymentdomain.CheckoutSessionRequest) (*paymentdomain.CheckoutSession, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.requests = append(g.requests, req)
	if g.err != nil {
		return nil, g.err
	}
	return &paymentdomain.CheckoutSession{ID: "cs_test_1"}, nil
}

type fakePayments struct {
	result *paymentdomain.IngestResult
	err    error
	body   []byte
}

func (p *fakePayments) IngestWebhook(_ context.Context, payload []byte, _ http.Header) (*paymentdomain.IngestResult, error) {
	p.body = payload
	return p.result, p.err
}

type denyingLimiter struct {
	retryAfter time.Duration
}

func (denyingLimiter) Enabled() bool { return true }

func (l denyingLimiter) Allow(context.Context, string, string) (*ratelimit.Decision, error) {
	return &ratelimit.Decision{Allowed: false, Limit: 10, RetryAfter: l.retryAfter}, nil
}

type harness struct {
	t        *testing.T
	engine   *gin.Engine
	gateway  *fakeGateway
	payments *fakePayments
	flows    *signup.Registry
}

func newHarness(t *testing.T, limiter ratelimit.Limiter) *harness {
	t.Helper()

	conn, err := db.NewTest()
	require.NoError(t, err)
	require.NoError(t, migration.AutoMigrate(conn))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	cfg := config.Config{AuthJWTSecret: "test", AuthSessionTTL: time.Hour}
	log := zap.NewNop()

	hub := events.NewHub(log)
	users, sessions := authrepository.New(conn)
	issuer, err := token.NewIssuer(cfg)
	require.NoError(t, err)
	authsvc := authservice.New(log, users, sessions, issuer, hub, node)

	plans := config.NewStaticPlanCatalogHolder(config.DefaultPlanCatalog())
	gateway := &fakeGateway{}
	checkoutSvc := checkoutservice.New(log, plans, gateway, "https://app.test/welcome", "https://app.test/#pricing")

	flows := signup.NewRegistry(signup.RegistryParams{
		Log:        log,
		Config:     cfg,
		Provider:   authsvc,
		Subscriber: hub,
	})
	t.Cleanup(flows.Close)

	orchestrator := signup.NewOrchestrator(signup.Params{
		Log:       log,
		Config:    cfg,
		Auth:      authsvc,
		Profiles:  profilerepository.New(conn, node),
		Backend:   checkoutSvc,
		Bridge:    checkoutservice.NewHostedBridge(checkoutBaseURL),
		Analytics: analytics.Noop(),
		Scorer:    signup.ZxcvbnScorer{},
		Plans:     plans,
	})

	subscriptions := subscriptionservice.NewService(subscriptionservice.ServiceParam{
		DB:    conn,
		Log:   log,
		GenID: node,
		Repo:  subscriptionrepository.Provide(),
	})

	payments := &fakePayments{result: &paymentdomain.IngestResult{EventID: "evt_1"}}
	engine := NewEngine(observability.Config{}, nil)
	NewServer(ServerParams{
		Gin:             engine,
		Cfg:             cfg,
		Log:             log,
		Authsvc:         authsvc,
		Sessions:        session.NewManager(cfg),
		Flows:           flows,
		Signup:          orchestrator,
		CheckoutSvc:     checkoutSvc,
		PaymentSvc:      payments,
		SubscriptionSvc: subscriptions,
		Limiter:         limiter,
	})

	return &harness{t: t, engine: engine, gateway: gateway, payments: payments, flows: flows}
}

// browser keeps one client's cookies across requests.
type browser struct {
	h   *harness
	jar map[string]*http.Cookie
}

func (h *harness) browser() *browser {
	return &browser{h: h, jar: map[string]*http.Cookie{}}
}

func (b *browser) do(method, path string, body any) *httptest.ResponseRecorder {
	b.h.t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(b.h.t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for _, cookie := range b.jar {
		req.AddCookie(cookie)
	}

	rec := httptest.NewRecorder()
	b.h.engine.ServeHTTP(rec, req)

	for _, cookie := range rec.Result().Cookies() {
		if cookie.MaxAge < 0 {
			delete(b.jar, cookie.Name)
			continue
		}
		b.jar[cookie.Name] = cookie
	}
	return rec
}

type testDraft struct {
	Email          string `json:"email"`
	FullName       string `json:"full_name"`
	ChildAgeMonths int    `json:"child_age_months"`
	SelectedPlan   string `json:"selected_plan"`
}

type testView struct {
	Session struct {
		UserID          string `json:"user_id"`
		Email           string `json:"email"`
		IsAuthenticated bool   `json:"is_authenticated"`
		Loading         bool   `json:"loading"`
		Status          string `json:"status"`
	} `json:"session"`
	Wizard struct {
		Open  bool       `json:"open"`
		Step  string     `json:"step"`
		Busy  bool       `json:"busy"`
		Draft *testDraft `json:"draft"`
	} `json:"wizard"`
	Notices     []notify.Notice `json:"notices"`
	RedirectURL string          `json:"redirect_url"`
	Error       *errorPayload   `json:"error"`
}

func decodeView(t *testing.T, rec *httptest.ResponseRecorder) testView {
	t.Helper()
	var view testView
	if err := json.Unmarshal(rec.Body.Bytes(), &view); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return view
}

func messages(notices []notify.Notice) []string {
	out := make([]string, 0, len(notices))
	for _, n := range notices {
		out = append(out, n.Message)
	}
	return out
}

func (b *browser) signUp(email string) testView {
	b.h.t.Helper()
	require.Equal(b.h.t, http.StatusOK, b.do(http.MethodPost, "/signup/open", map[string]string{"plan": "annual"}).Code)
	rec := b.do(http.MethodPost, "/signup/credentials", map[string]string{"email": email, "password": strongPassword})
	require.Equal(b.h.t, http.StatusOK, rec.Code, rec.Body.String())
	return decodeView(b.h.t, rec)
}

func TestHealth(t *testing.T) {
	h := newHarness(t, nil)
	rec := h.browser().do(http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestUnknownRouteIsJSON404(t *testing.T) {
	h := newHarness(t, nil)
	rec := h.browser().do(http.MethodGet, "/nope", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "not_found", decodeView(t, rec).Error.Type)
}

func TestSignupViewMintsClientCookie(t *testing.T) {
	h := newHarness(t, nil)
	b := h.browser()

	rec := b.do(http.MethodGet, "/signup", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, b.jar, session.ClientCookieName)

	view := decodeView(t, rec)
	assert.False(t, view.Wizard.Open)
	assert.Equal(t, "anonymous", view.Session.Status)
	assert.False(t, view.Session.Loading)
	assert.Empty(t, view.Notices)

	// the same cookie keeps the same flow
	b.do(http.MethodGet, "/signup", nil)
	assert.Equal(t, 1, h.flows.Len())
}

func TestOpenRejectsUnknownPlan(t *testing.T) {
	h := newHarness(t, nil)
	rec := h.browser().do(http.MethodPost, "/signup/open", map[string]string{"plan": "weekly"})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	view := decodeView(t, rec)
	require.NotNil(t, view.Error)
	assert.Equal(t, "unknown_plan", view.Error.Errors[0].Code)
}

func TestOpenDefaultsToMonthly(t *testing.T) {
	h := newHarness(t, nil)
	view := decodeView(t, h.browser().do(http.MethodPost, "/signup/open", nil))
	assert.True(t, view.Wizard.Open)
	assert.Equal(t, "credentials", view.Wizard.Step)
	require.NotNil(t, view.Wizard.Draft)
	assert.Equal(t, config.PlanMonthly, view.Wizard.Draft.SelectedPlan)
}

func TestFullSignupToCheckout(t *testing.T) {
	h := newHarness(t, nil)
	b := h.browser()

	view := b.signUp("parent@example.com")
	assert.True(t, view.Wizard.Open)
	assert.Equal(t, "details", view.Wizard.Step)
	assert.True(t, view.Session.IsAuthenticated)
	assert.Equal(t, "parent@example.com", view.Session.Email)
	require.Contains(t, b.jar, session.DefaultCookieName)

	rec := b.do(http.MethodPost, "/signup/details", map[string]any{
		"full_name":        "Ada Parent",
		"child_age_months": 18,
		"plan":             "annual",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	view = decodeView(t, rec)
	assert.Equal(t, "checkout", view.Wizard.Step)
	assert.Equal(t, "Ada Parent", view.Wizard.Draft.FullName)

	rec = b.do(http.MethodPost, "/signup/checkout", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	view = decodeView(t, rec)
	assert.Equal(t, checkoutBaseURL+"/cs_test_1", view.RedirectURL)

	require.Len(t, h.gateway.requests, 1)
	assert.Equal(t, config.DefaultPlanCatalog().Annual.PriceID, h.gateway.requests[0].PriceID)
	assert.NotEmpty(t, h.gateway.requests[0].ClientReferenceID)

	view = decodeView(t, b.do(http.MethodGet, "/signup", nil))
	assert.False(t, view.Wizard.Open)
	assert.True(t, view.Session.IsAuthenticated)
}

func TestSignupExampleCredentialsAdvance(t *testing.T) {
	h := newHarness(t, nil)
	b := h.browser()
	require.Equal(t, http.StatusOK, b.do(http.MethodPost, "/signup/open", nil).Code)

	rec := b.do(http.MethodPost, "/signup/credentials", map[string]string{"email": "a@b.com", "password": "Str0ng!Pass"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	view := decodeView(t, rec)
	assert.Equal(t, "details", view.Wizard.Step)
	assert.True(t, view.Session.IsAuthenticated)
	assert.Equal(t, "a@b.com", view.Session.Email)
	assert.Empty(t, view.Notices)
}

func TestCheckoutRejectsUnknownPlanOverride(t *testing.T) {
	h := newHarness(t, nil)
	b := h.browser()
	b.signUp("override@example.com")
	rec := b.do(http.MethodPost, "/signup/details", map[string]any{
		"full_name":        "Ada Parent",
		"child_age_months": 18,
		"plan":             "annual",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = b.do(http.MethodPost, "/signup/checkout", map[string]string{"plan": "weekly"})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	view := decodeView(t, rec)
	require.NotNil(t, view.Error)
	assert.Equal(t, "unknown_plan", view.Error.Errors[0].Code)
	assert.Empty(t, h.gateway.requests)

	view = decodeView(t, b.do(http.MethodGet, "/signup", nil))
	assert.Equal(t, "checkout", view.Wizard.Step)
	require.NotNil(t, view.Wizard.Draft)
	assert.Equal(t, config.PlanAnnual, view.Wizard.Draft.SelectedPlan)

	rec = b.do(http.MethodPost, "/signup/checkout", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.Len(t, h.gateway.requests, 1)
	assert.Equal(t, config.DefaultPlanCatalog().Annual.PriceID, h.gateway.requests[0].PriceID)
}

func TestDraftViewOmitsPassword(t *testing.T) {
	h := newHarness(t, nil)
	b := h.browser()
	b.signUp("secret@example.com")

	rec := b.do(http.MethodGet, "/signup", nil)
	assert.NotContains(t, rec.Body.String(), strongPassword)
}

func TestWeakPasswordStaysOnCredentials(t *testing.T) {
	h := newHarness(t, nil)
	b := h.browser()
	b.do(http.MethodPost, "/signup/open", nil)

	rec := b.do(http.MethodPost, "/signup/credentials", map[string]string{"email": "weak@example.com", "password": "password"})
	require.Equal(t, http.StatusBadRequest, rec.Code)

	view := decodeView(t, rec)
	require.NotNil(t, view.Error)
	assert.Equal(t, "weak_password", view.Error.Errors[0].Code)
	assert.Equal(t, []string{"Please choose a stronger password"}, messages(view.Notices))
	assert.Equal(t, "credentials", view.Wizard.Step)
	assert.NotContains(t, b.jar, session.DefaultCookieName)
}

func TestDuplicateEmailIsGenericFailure(t *testing.T) {
	h := newHarness(t, nil)
	h.browser().signUp("taken@example.com")

	b := h.browser()
	b.do(http.MethodPost, "/signup/open", nil)
	rec := b.do(http.MethodPost, "/signup/credentials", map[string]string{"email": "taken@example.com", "password": strongPassword})
	require.Equal(t, http.StatusConflict, rec.Code)

	view := decodeView(t, rec)
	assert.Equal(t, []string{"Failed to create account"}, messages(view.Notices))
	assert.Equal(t, "credentials", view.Wizard.Step)
}

func TestStepsCannotBeSkipped(t *testing.T) {
	h := newHarness(t, nil)
	b := h.browser()

	rec := b.do(http.MethodPost, "/signup/details", map[string]any{"full_name": "A", "child_age_months": 1, "plan": "monthly"})
	assert.Equal(t, http.StatusConflict, rec.Code)

	b.do(http.MethodPost, "/signup/open", nil)
	rec = b.do(http.MethodPost, "/signup/checkout", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "step_conflict", decodeView(t, rec).Error.Type)
	assert.Empty(t, h.gateway.requests)
}

func TestBackKeepsCredentials(t *testing.T) {
	h := newHarness(t, nil)
	b := h.browser()
	b.signUp("back@example.com")

	rec := b.do(http.MethodPost, "/signup/back", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	view := decodeView(t, rec)
	assert.Equal(t, "credentials", view.Wizard.Step)
	assert.Equal(t, "back@example.com", view.Wizard.Draft.Email)
}

func TestCloseDiscardsDraft(t *testing.T) {
	h := newHarness(t, nil)
	b := h.browser()
	b.do(http.MethodPost, "/signup/open", map[string]string{"plan": "annual"})

	view := decodeView(t, b.do(http.MethodDelete, "/signup", nil))
	assert.False(t, view.Wizard.Open)
	assert.Nil(t, view.Wizard.Draft)

	view = decodeView(t, b.do(http.MethodPost, "/signup/open", nil))
	assert.Equal(t, config.PlanMonthly, view.Wizard.Draft.SelectedPlan)
}

func TestCheckoutBackendFailureNotifiesOnce(t *testing.T) {
	h := newHarness(t, nil)
	h.gateway.err = errors.New("stripe down")
	b := h.browser()
	b.signUp("fail@example.com")
	b.do(http.MethodPost, "/signup/details", map[string]any{"full_name": "F", "child_age_months": 3, "plan": "monthly"})

	rec := b.do(http.MethodPost, "/signup/checkout", nil)
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	view := decodeView(t, rec)
	assert.Equal(t, "internal server error", view.Error.Message)
	assert.NotContains(t, rec.Body.String(), "stripe down")
	assert.Equal(t, []string{"Failed to start checkout"}, messages(view.Notices))
	assert.Equal(t, "checkout", view.Wizard.Step)
}

func TestLoginElsewhereClosesDialog(t *testing.T) {
	h := newHarness(t, nil)
	h.browser().signUp("login@example.com")

	b := h.browser()
	b.do(http.MethodPost, "/signup/open", nil)

	rec := b.do(http.MethodPost, "/auth/login", map[string]string{"email": "login@example.com", "password": strongPassword})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	view := decodeView(t, rec)
	assert.True(t, view.Session.IsAuthenticated)
	assert.Equal(t, []string{"Successfully signed in"}, messages(view.Notices))
	require.Contains(t, b.jar, session.DefaultCookieName)

	view = decodeView(t, b.do(http.MethodGet, "/signup", nil))
	assert.False(t, view.Wizard.Open)
}

func TestLoginFailure(t *testing.T) {
	h := newHarness(t, nil)
	b := h.browser()

	rec := b.do(http.MethodPost, "/auth/login", map[string]string{"email": "nobody@example.com", "password": "wrong"})
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	view := decodeView(t, rec)
	assert.Equal(t, []string{"Error signing in"}, messages(view.Notices))
}

func TestLogoutResetsSession(t *testing.T) {
	h := newHarness(t, nil)
	b := h.browser()
	b.signUp("logout@example.com")
	b.do(http.MethodDelete, "/signup", nil)

	rec := b.do(http.MethodPost, "/auth/logout", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	view := decodeView(t, rec)
	assert.False(t, view.Session.IsAuthenticated)
	assert.False(t, view.Session.Loading)
	assert.Equal(t, "anonymous", view.Session.Status)
	assert.Equal(t, []string{"Successfully signed out"}, messages(view.Notices))
	assert.NotContains(t, b.jar, session.DefaultCookieName)

	view = decodeView(t, b.do(http.MethodGet, "/auth/session", nil))
	assert.False(t, view.Session.IsAuthenticated)
	assert.Empty(t, view.Notices)
}

func TestSubscriptionStatusRequiresToken(t *testing.T) {
	h := newHarness(t, nil)

	rec := h.browser().do(http.MethodGet, "/api/subscription", nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "unauthorized", decodeView(t, rec).Error.Type)

	b := h.browser()
	b.signUp("sub@example.com")
	rec = b.do(http.MethodGet, "/api/subscription", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"is_active":false,"ends_at":null}`, rec.Body.String())
}

func TestCreateCheckoutSessionEndpoint(t *testing.T) {
	h := newHarness(t, nil)
	b := h.browser()

	rec := b.do(http.MethodPost, "/api/create-checkout-session", map[string]string{"priceId": "price_unknown", "email": "a@example.com"})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_price", decodeView(t, rec).Error.Errors[0].Code)

	monthly := config.DefaultPlanCatalog().Monthly.PriceID
	rec = b.do(http.MethodPost, "/api/create-checkout-session", map[string]string{"priceId": monthly})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "missing_customer", decodeView(t, rec).Error.Errors[0].Code)

	rec = b.do(http.MethodPost, "/api/create-checkout-session", map[string]string{"priceId": monthly, "userId": "42", "name": "Ada"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"sessionId":"cs_test_1"}`, rec.Body.String())
}

func TestStripeWebhook(t *testing.T) {
	h := newHarness(t, nil)
	b := h.browser()

	h.payments.result = &paymentdomain.IngestResult{EventID: "evt_1", Duplicate: true}
	rec := b.do(http.MethodPost, "/api/webhooks/stripe", map[string]string{"id": "evt_1"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"received":true,"event_id":"evt_1","duplicate":true,"ignored":false}`, rec.Body.String())
	assert.JSONEq(t, `{"id":"evt_1"}`, string(h.payments.body))

	h.payments.err = paymentdomain.ErrInvalidSignature
	rec = b.do(http.MethodPost, "/api/webhooks/stripe", map[string]string{"id": "evt_2"})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_signature", decodeView(t, rec).Error.Errors[0].Code)

	h.payments.err = errors.New("db down")
	rec = b.do(http.MethodPost, "/api/webhooks/stripe", map[string]string{"id": "evt_3"})
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestRateLimitedCredentials(t *testing.T) {
	h := newHarness(t, denyingLimiter{retryAfter: 2500 * time.Millisecond})
	b := h.browser()
	b.do(http.MethodPost, "/signup/open", nil)

	rec := b.do(http.MethodPost, "/signup/credentials", map[string]string{"email": "rl@example.com", "password": strongPassword})
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "3", rec.Header().Get("Retry-After"))
	assert.Equal(t, rateLimitReasonClientRate, rec.Header().Get("X-Rate-Limited-Reason"))
	assert.Equal(t, "10", rec.Header().Get("X-RateLimit-Limit"))

	// opening the dialog is not throttled
	assert.Equal(t, http.StatusOK, b.do(http.MethodPost, "/signup/open", nil).Code)
}

func TestMapError(t *testing.T) {
	cases := []struct {
		err    error
		status int
		kind   string
	}{
		{ErrUnauthorized, http.StatusUnauthorized, "unauthorized"},
		{checkoutdomain.ErrBackendRejected, http.StatusBadGateway, "upstream_error"},
		{context.DeadlineExceeded, http.StatusGatewayTimeout, "timeout"},
		{ErrRateLimited, http.StatusTooManyRequests, "rate_limited"},
		{errors.New("boom"), http.StatusInternalServerError, "internal_error"},
	}
	for _, tc := range cases {
		status, payload := mapError(tc.err)
		assert.Equal(t, tc.status, status, tc.err.Error())
		assert.Equal(t, tc.kind, payload.Type, tc.err.Error())
	}

	kind, code := classifyErrorForLog(invalidRequestError())
	assert.Equal(t, "validation_error", kind)
	assert.Equal(t, "invalid_request", code)
}
