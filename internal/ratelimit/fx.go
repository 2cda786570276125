package ratelimit

import (
	"context"

	redis "github.com/redis/go-redis/v9"
	"github.com/smallbiznis/nurture/internal/config"
	"go.uber.org/fx"
)

var Module = fx.Module("rate.limit",
	fx.Provide(provideRedisClient),
	fx.Provide(NewSignupLimiter),
	fx.Provide(func(l *SignupLimiter) Limiter { return l }),
)

func provideRedisClient(lc fx.Lifecycle, cfg config.Config) *redis.Client {
	client := NewRedisClient(cfg)
	if client == nil {
		return nil
	}
	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			return client.Close()
		},
	})
	return client
}
