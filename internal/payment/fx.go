package payment

import (
	"github.com/smallbiznis/nurture/internal/payment/adapters/stripe"
	paymentdomain "github.com/smallbiznis/nurture/internal/payment/domain"
	"github.com/smallbiznis/nurture/internal/payment/repository"
	"github.com/smallbiznis/nurture/internal/payment/webhook"
	"go.uber.org/fx"
)

var Module = fx.Module("payment.service",
	fx.Provide(repository.Provide),
	fx.Provide(stripe.NewAdapter),
	fx.Provide(func(a *stripe.Adapter) paymentdomain.Gateway { return a }),
	fx.Provide(func(a *stripe.Adapter) paymentdomain.WebhookAdapter { return a }),
	fx.Provide(webhook.NewService),
)
