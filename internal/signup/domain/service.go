package domain

import (
	"errors"

	authdomain "github.com/smallbiznis/nurture/internal/auth/domain"
	"github.com/smallbiznis/nurture/internal/config"
	"github.com/smallbiznis/nurture/internal/wizard"
)

// AccountRequest is the Credentials step submission.
type AccountRequest struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	UserAgent string `json:"-"`
	IPAddress string `json:"-"`
}

type AccountResult struct {
	State wizard.State
	Auth  *authdomain.AuthResult
}

// DetailsRequest is the Details step submission.
type DetailsRequest struct {
	FullName       string `json:"full_name"`
	ChildAgeMonths int    `json:"child_age_months"`
	Plan           string `json:"plan"`
}

// CheckoutRequest starts the hosted checkout. Empty fields fall back to the draft.
type CheckoutRequest struct {
	Plan     string `json:"plan"`
	FullName string `json:"full_name"`
}

type CheckoutResult struct {
	RedirectURL string `json:"redirect_url"`
}

var (
	ErrInvalidEmail   = errors.New("invalid_email")
	ErrWeakPassword   = errors.New("weak_password")
	ErrInvalidDetails = errors.New("invalid_details")
	ErrNoSession      = errors.New("no_session")
	ErrSuperseded     = errors.New("step_superseded")
	ErrStepPanicked   = errors.New("step_panicked")
	ErrUnknownPlan    = config.ErrUnknownPlan
)
