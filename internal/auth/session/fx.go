package session

import (
	"github.com/smallbiznis/nurture/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("auth.session",
	fx.Provide(NewManager),
	fx.Invoke(warnInsecureCookies),
)

// warnInsecureCookies flags a production deployment that would send the
// session cookie over plain HTTP.
func warnInsecureCookies(cfg config.Config, log *zap.Logger) {
	if cfg.IsProduction() && !cfg.AuthCookieSecure {
		log.Named("auth.session").Warn("session cookies are not marked secure in production",
			zap.String("cookie", DefaultCookieName))
	}
}
