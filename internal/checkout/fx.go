package checkout

import (
	"github.com/smallbiznis/nurture/internal/checkout/domain"
	"github.com/smallbiznis/nurture/internal/checkout/service"
	"github.com/smallbiznis/nurture/internal/config"
	"github.com/smallbiznis/nurture/pkg/checkoutclient"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("checkout.service",
	fx.Provide(service.NewService),
	fx.Provide(newBackend),
	fx.Provide(newBridge),
)

// newBackend points the signup flow at a remote endpoint when one is
// configured and at the in-process service otherwise.
func newBackend(cfg config.Config, svc domain.Service, log *zap.Logger) domain.Backend {
	if cfg.Signup.CheckoutBackendURL == "" {
		return svc
	}
	log.Named("checkout").Info("using remote checkout backend", zap.String("url", cfg.Signup.CheckoutBackendURL))
	return checkoutclient.NewClient(cfg.Signup.CheckoutBackendURL, nil)
}

func newBridge(cfg config.Config) domain.Bridge {
	return service.NewHostedBridge(cfg.Stripe.CheckoutBaseURL)
}
