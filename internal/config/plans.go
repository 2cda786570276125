package config

import (
	"errors"
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

const (
	PlanMonthly = "monthly"
	PlanAnnual  = "annual"
)

// ErrUnknownPlan is returned for plan keys outside the fixed catalogue.
var ErrUnknownPlan = errors.New("unknown_plan")

// Plan describes one purchasable subscription plan.
type Plan struct {
	PriceID      string  `mapstructure:"priceId"`
	Name         string  `mapstructure:"name"`
	MonthlyPrice float64 `mapstructure:"monthlyPrice"`
}

// PlanCatalog maps the two plan keys to provider price identifiers.
type PlanCatalog struct {
	Monthly Plan `mapstructure:"monthly"`
	Annual  Plan `mapstructure:"annual"`
}

func DefaultPlanCatalog() PlanCatalog {
	return PlanCatalog{
		Monthly: Plan{PriceID: "prod_RkcmFAgddLLJfn", Name: "Monthly Plan", MonthlyPrice: 29.99},
		Annual:  Plan{PriceID: "prod_RkcnX78pXVNKpu", Name: "Annual Plan", MonthlyPrice: 23.99},
	}
}

// Lookup resolves a plan key. Keys are matched exactly; there is no fallback.
func (c PlanCatalog) Lookup(key string) (Plan, error) {
	switch key {
	case PlanMonthly:
		return c.Monthly, nil
	case PlanAnnual:
		return c.Annual, nil
	default:
		return Plan{}, fmt.Errorf("%w: %q", ErrUnknownPlan, key)
	}
}

// PriceID resolves a plan key to the provider price identifier.
func (c PlanCatalog) PriceID(key string) (string, error) {
	plan, err := c.Lookup(key)
	if err != nil {
		return "", err
	}
	return plan.PriceID, nil
}

// HasPrice reports whether priceID belongs to one of the catalogue plans.
func (c PlanCatalog) HasPrice(priceID string) bool {
	priceID = strings.TrimSpace(priceID)
	if priceID == "" {
		return false
	}
	return priceID == c.Monthly.PriceID || priceID == c.Annual.PriceID
}

func IsPlanKey(key string) bool {
	return key == PlanMonthly || key == PlanAnnual
}

type PlanCatalogHolder struct {
	current atomic.Value // holds PlanCatalog
}

// NewStaticPlanCatalogHolder returns a holder that never reloads.
func NewStaticPlanCatalogHolder(catalog PlanCatalog) *PlanCatalogHolder {
	holder := &PlanCatalogHolder{}
	holder.current.Store(catalog)
	return holder
}

func NewPlanCatalogHolder(log *zap.Logger) (*PlanCatalogHolder, error) {
	log = log.Named("config.plans")
	v := viper.New()

	v.SetConfigName("plans")
	v.SetConfigType("yml")
	v.AddConfigPath("/etc/nurture")
	v.AddConfigPath(".")

	v.SetEnvPrefix("NURTURE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defaults := DefaultPlanCatalog()
	v.SetDefault("plans.monthly.priceId", defaults.Monthly.PriceID)
	v.SetDefault("plans.monthly.name", defaults.Monthly.Name)
	v.SetDefault("plans.monthly.monthlyPrice", defaults.Monthly.MonthlyPrice)
	v.SetDefault("plans.annual.priceId", defaults.Annual.PriceID)
	v.SetDefault("plans.annual.name", defaults.Annual.Name)
	v.SetDefault("plans.annual.monthlyPrice", defaults.Annual.MonthlyPrice)

	fileFound := true
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
		fileFound = false
	}

	var catalog PlanCatalog
	if err := v.UnmarshalKey("plans", &catalog); err != nil {
		return nil, err
	}
	if err := validatePlanCatalog(catalog); err != nil {
		return nil, err
	}

	holder := &PlanCatalogHolder{}
	holder.current.Store(catalog)

	if fileFound {
		v.WatchConfig()
		v.OnConfigChange(func(e fsnotify.Event) {
			var updated PlanCatalog
			if err := v.UnmarshalKey("plans", &updated); err != nil {
				log.Warn("plan catalog reload failed", zap.Error(err))
				return
			}
			if err := validatePlanCatalog(updated); err != nil {
				log.Warn("invalid plan catalog ignored", zap.Error(err))
				return
			}
			holder.current.Store(updated)
			log.Info("plan catalog reloaded", zap.String("file", e.Name))
		})
	}

	return holder, nil
}

func (h *PlanCatalogHolder) Get() PlanCatalog {
	return h.current.Load().(PlanCatalog)
}

// PriceID resolves against the catalogue loaded at call time.
func (h *PlanCatalogHolder) PriceID(key string) (string, error) {
	return h.Get().PriceID(key)
}

func validatePlanCatalog(cfg PlanCatalog) error {
	if strings.TrimSpace(cfg.Monthly.PriceID) == "" {
		return errors.New("plans.monthly.priceId cannot be empty")
	}
	if strings.TrimSpace(cfg.Annual.PriceID) == "" {
		return errors.New("plans.annual.priceId cannot be empty")
	}
	if cfg.Monthly.PriceID == cfg.Annual.PriceID {
		return errors.New("plans.monthly and plans.annual must use distinct price ids")
	}
	return nil
}

// HasPrice reports whether priceID belongs to the catalogue loaded at call time.
func (h *PlanCatalogHolder) HasPrice(priceID string) bool {
	return h.Get().HasPrice(priceID)
}
