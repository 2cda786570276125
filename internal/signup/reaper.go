package signup

import (
	"context"

	"github.com/robfig/cron/v3"
	"github.com/smallbiznis/nurture/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const defaultReapSchedule = "@every 1m"

// Reaper periodically disposes idle flows.
type Reaper struct {
	log      *zap.Logger
	cron     *cron.Cron
	registry *Registry
}

func NewReaper(cfg config.Config, registry *Registry, log *zap.Logger) (*Reaper, error) {
	schedule := cfg.Signup.ReapSchedule
	if schedule == "" {
		schedule = defaultReapSchedule
	}

	log = log.Named("signup.reaper")
	cronLog := cronLogger{log: log.Sugar()}
	r := &Reaper{
		log:      log,
		cron:     cron.New(cron.WithLogger(cronLog), cron.WithChain(cron.Recover(cronLog), cron.SkipIfStillRunning(cronLog))),
		registry: registry,
	}
	if _, err := r.cron.AddFunc(schedule, r.tick); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *Reaper) tick() {
	r.registry.Reap(r.registry.Now())
}

func (r *Reaper) Start() {
	r.cron.Start()
	r.log.Info("signup flow reaper started", zap.Int("jobs", len(r.cron.Entries())))
}

// Stop waits for a running reap to finish or ctx to end.
func (r *Reaper) Stop(ctx context.Context) error {
	done := r.cron.Stop()
	select {
	case <-done.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func registerReaper(lc fx.Lifecycle, reaper *Reaper, registry *Registry) {
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			reaper.Start()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			err := reaper.Stop(ctx)
			registry.Close()
			return err
		},
	})
}

// cronLogger routes cron's own logging to zap.
type cronLogger struct {
	log *zap.SugaredLogger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Errorw(msg, append(keysAndValues, "error", err)...)
}
