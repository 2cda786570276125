package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/smallbiznis/nurture/internal/analytics"
	"github.com/smallbiznis/nurture/internal/auth"
	authdomain "github.com/smallbiznis/nurture/internal/auth/domain"
	"github.com/smallbiznis/nurture/internal/auth/session"
	"github.com/smallbiznis/nurture/internal/checkout"
	checkoutdomain "github.com/smallbiznis/nurture/internal/checkout/domain"
	"github.com/smallbiznis/nurture/internal/config"
	"github.com/smallbiznis/nurture/internal/observability"
	obsmiddleware "github.com/smallbiznis/nurture/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/nurture/internal/observability/metrics"
	obstracing "github.com/smallbiznis/nurture/internal/observability/tracing"
	"github.com/smallbiznis/nurture/internal/payment"
	paymentdomain "github.com/smallbiznis/nurture/internal/payment/domain"
	"github.com/smallbiznis/nurture/internal/profile"
	"github.com/smallbiznis/nurture/internal/ratelimit"
	"github.com/smallbiznis/nurture/internal/signup"
	signupdomain "github.com/smallbiznis/nurture/internal/signup/domain"
	"github.com/smallbiznis/nurture/internal/subscription"
	subscriptiondomain "github.com/smallbiznis/nurture/internal/subscription/domain"
	"github.com/smallbiznis/nurture/internal/wizard"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("http.server",
	auth.Module,
	profile.Module,
	payment.Module,
	subscription.Module,
	checkout.Module,
	analytics.Module,
	ratelimit.Module,
	signup.Module,
	fx.Provide(registerGin),
	fx.Provide(provideOrchestrator),
	fx.Provide(provideFlows),
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

// Orchestrator runs the three signup steps for one flow.
type Orchestrator interface {
	CreateAccount(ctx context.Context, flow *signup.Flow, req signupdomain.AccountRequest) (*signupdomain.AccountResult, error)
	SaveProfile(ctx context.Context, flow *signup.Flow, req signupdomain.DetailsRequest) (wizard.State, error)
	StartCheckout(ctx context.Context, flow *signup.Flow, req signupdomain.CheckoutRequest) (*signupdomain.CheckoutResult, error)
}

// Flows resolves the flow of a browser client.
type Flows interface {
	Get(ctx context.Context, clientID string) (*signup.Flow, error)
}

func NewEngine(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obsmiddleware.GinMiddleware(obsmiddleware.MiddlewareConfig{
		Debug:           obsCfg.Debug(),
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(obstracing.GinMiddleware())
	r.Use(httpMetrics.Middleware())
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func registerGin(cfg config.Config, obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	return NewEngine(obsCfg, httpMetrics)
}

func provideOrchestrator(o *signup.Orchestrator) Orchestrator { return o }

func provideFlows(r *signup.Registry) Flows { return r }

func run(lc fx.Lifecycle, cfg config.Config, r *gin.Engine, log *zap.Logger, shutdowner fx.Shutdowner) {
	log = log.Named("http.server")
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				log.Info("http server listening", zap.String("addr", srv.Addr))
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Error("http server stopped", zap.Error(err))
					_ = shutdowner.Shutdown(fx.ExitCode(1))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

type Server struct {
	engine          *gin.Engine
	cfg             config.Config
	log             *zap.Logger
	authsvc         authdomain.Service
	sessions        *session.Manager
	flows           Flows
	signup          Orchestrator
	checkoutSvc     checkoutdomain.Service
	paymentSvc      paymentdomain.Service
	subscriptionSvc subscriptiondomain.Service
	limiter         ratelimit.Limiter
	obsMetrics      *obsmetrics.Metrics
}

type ServerParams struct {
	fx.In

	Gin             *gin.Engine
	Cfg             config.Config
	Log             *zap.Logger
	Authsvc         authdomain.Service
	Sessions        *session.Manager
	Flows           Flows
	Signup          Orchestrator
	CheckoutSvc     checkoutdomain.Service
	PaymentSvc      paymentdomain.Service
	SubscriptionSvc subscriptiondomain.Service
	Limiter         ratelimit.Limiter   `optional:"true"`
	ObsMetrics      *obsmetrics.Metrics `optional:"true"`
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:          p.Gin,
		cfg:             p.Cfg,
		log:             p.Log.Named("http.handler"),
		authsvc:         p.Authsvc,
		sessions:        p.Sessions,
		flows:           p.Flows,
		signup:          p.Signup,
		checkoutSvc:     p.CheckoutSvc,
		paymentSvc:      p.PaymentSvc,
		subscriptionSvc: p.SubscriptionSvc,
		limiter:         p.Limiter,
		obsMetrics:      p.ObsMetrics,
	}

	svc.registerSignupRoutes()
	svc.registerAuthRoutes()
	svc.registerAPIRoutes()
	svc.registerFallback()

	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerSignupRoutes() {
	g := s.engine.Group("/signup", s.ClientIdentity())

	g.GET("", s.SignupView)
	g.POST("/open", s.OpenSignup)
	g.POST("/credentials", s.SignupRateLimit(), s.SubmitCredentials)
	g.POST("/details", s.SubmitDetails)
	g.POST("/back", s.SignupBack)
	g.POST("/checkout", s.SignupRateLimit(), s.StartCheckout)
	g.DELETE("", s.CloseSignup)
}

func (s *Server) registerAuthRoutes() {
	g := s.engine.Group("/auth", s.ClientIdentity())

	g.GET("/session", s.SessionView)
	g.POST("/login", s.SignupRateLimit(), s.Login)
	g.POST("/logout", s.Logout)
}

func (s *Server) registerAPIRoutes() {
	api := s.engine.Group("/api")

	api.POST("/create-checkout-session", s.CreateCheckoutSession)
	api.POST("/webhooks/stripe", s.HandleStripeWebhook)
	api.GET("/subscription", s.AuthRequired(), s.SubscriptionStatus)
}

func (s *Server) registerFallback() {
	s.engine.NoRoute(func(c *gin.Context) {
		AbortWithError(c, ErrNotFound)
	})
}
