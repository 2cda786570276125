package signup

import (
	authdomain "github.com/smallbiznis/nurture/internal/auth/domain"
	"github.com/smallbiznis/nurture/internal/auth/events"
	"github.com/smallbiznis/nurture/internal/authstate"
	"github.com/smallbiznis/nurture/internal/config"
	profiledomain "github.com/smallbiznis/nurture/internal/profile/domain"
	"go.uber.org/fx"
)

var Module = fx.Module("signup.service",
	fx.Provide(
		provideAuthClient,
		provideSessionProvider,
		provideSubscriber,
		provideProfileStore,
		providePlanResolver,
		providePasswordScorer,
		NewOrchestrator,
		NewRegistry,
		NewReaper,
	),
	fx.Invoke(registerReaper),
)

func provideAuthClient(svc authdomain.Service) AuthClient { return svc }

func provideSessionProvider(svc authdomain.Service) authstate.Provider { return svc }

func provideSubscriber(hub *events.Hub) authstate.Subscriber { return hub }

func provideProfileStore(repo profiledomain.Repository) ProfileStore { return repo }

func providePlanResolver(plans *config.PlanCatalogHolder) PlanResolver { return plans }

func providePasswordScorer() PasswordScorer { return ZxcvbnScorer{} }
