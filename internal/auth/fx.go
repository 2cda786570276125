package auth

import (
	"github.com/smallbiznis/nurture/internal/auth/domain"
	"github.com/smallbiznis/nurture/internal/auth/events"
	"github.com/smallbiznis/nurture/internal/auth/repository"
	"github.com/smallbiznis/nurture/internal/auth/service"
	"github.com/smallbiznis/nurture/internal/auth/session"
	"github.com/smallbiznis/nurture/internal/auth/token"
	"go.uber.org/fx"
)

var Module = fx.Module("auth.service",
	fx.Provide(repository.New),
	fx.Provide(token.NewIssuer),
	fx.Provide(events.NewHub),
	fx.Provide(func(h *events.Hub) domain.Publisher { return h }),
	fx.Provide(service.New),
	session.Module,
)
