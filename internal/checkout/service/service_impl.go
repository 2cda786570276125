package service

import (
	"context"
	"strings"

	"github.com/smallbiznis/nurture/internal/checkout/domain"
	"github.com/smallbiznis/nurture/internal/config"
	paymentdomain "github.com/smallbiznis/nurture/internal/payment/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// PriceCatalog reports which provider prices may be sold.
type PriceCatalog interface {
	HasPrice(priceID string) bool
}

type Params struct {
	fx.In

	Log     *zap.Logger
	Config  config.Config
	Plans   *config.PlanCatalogHolder
	Gateway paymentdomain.Gateway
}

type Service struct {
	log        *zap.Logger
	prices     PriceCatalog
	gateway    paymentdomain.Gateway
	successURL string
	cancelURL  string
}

func NewService(p Params) domain.Service {
	return New(p.Log, p.Plans, p.Gateway, p.Config.Stripe.SuccessURL, p.Config.Stripe.CancelURL)
}

func New(log *zap.Logger, prices PriceCatalog, gateway paymentdomain.Gateway, successURL, cancelURL string) *Service {
	return &Service{
		log:        log.Named("checkout.service"),
		prices:     prices,
		gateway:    gateway,
		successURL: successURL,
		cancelURL:  cancelURL,
	}
}

func (s *Service) CreateSession(ctx context.Context, req domain.Request) (*domain.Session, error) {
	priceID := strings.TrimSpace(req.PriceID)
	if !s.prices.HasPrice(priceID) {
		return nil, domain.ErrInvalidPrice
	}

	userID := strings.TrimSpace(req.UserID)
	email := strings.TrimSpace(req.Email)
	if userID == "" && email == "" {
		return nil, domain.ErrMissingCustomer
	}

	session, err := s.gateway.CreateCheckoutSession(ctx, paymentdomain.CheckoutSessionRequest{
		PriceID:           priceID,
		ClientReferenceID: userID,
		CustomerEmail:     email,
		CustomerName:      strings.TrimSpace(req.Name),
		SuccessURL:        s.successURL,
		CancelURL:         s.cancelURL,
	})
	if err != nil {
		s.log.Warn("checkout session failed", zap.String("price_id", priceID), zap.Error(err))
		return nil, err
	}
	if session == nil || session.ID == "" {
		return nil, domain.ErrInvalidSession
	}

	s.log.Info("checkout session created", zap.String("session_id", session.ID), zap.String("price_id", priceID))
	return &domain.Session{SessionID: session.ID, URL: session.URL}, nil
}
