package subscription

import (
	paymentdomain "github.com/smallbiznis/nurture/internal/payment/domain"
	subscriptiondomain "github.com/smallbiznis/nurture/internal/subscription/domain"
	"github.com/smallbiznis/nurture/internal/subscription/repository"
	"github.com/smallbiznis/nurture/internal/subscription/service"
	"go.uber.org/fx"
)

var Module = fx.Module("subscription.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
	fx.Provide(func(svc subscriptiondomain.Service) paymentdomain.EventHandler { return svc }),
)
