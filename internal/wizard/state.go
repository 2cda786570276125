// Package wizard holds the signup dialog state machine for one browser client.
package wizard

import "github.com/smallbiznis/nurture/internal/config"

type Step int

const (
	StepCredentials Step = iota + 1
	StepDetails
	StepCheckout
)

func (s Step) String() string {
	switch s {
	case StepCredentials:
		return "credentials"
	case StepDetails:
		return "details"
	case StepCheckout:
		return "checkout"
	default:
		return "unknown"
	}
}

// Draft is the user input collected while the dialog is open. It is never persisted.
type Draft struct {
	Email          string
	Password       string
	FullName       string
	ChildAgeMonths int
	SelectedPlan   string
}

// State is one of Closed, Credentials, Details or Checkout.
type State interface {
	state()
}

type Closed struct{}

type Credentials struct{ Draft Draft }

type Details struct{ Draft Draft }

type Checkout struct{ Draft Draft }

func (Closed) state()      {}
func (Credentials) state() {}
func (Details) state()     {}
func (Checkout) state()    {}

// StepOf returns the active step and draft, or ok=false when closed.
func StepOf(s State) (step Step, draft Draft, ok bool) {
	switch v := s.(type) {
	case Credentials:
		return StepCredentials, v.Draft, true
	case Details:
		return StepDetails, v.Draft, true
	case Checkout:
		return StepCheckout, v.Draft, true
	default:
		return 0, Draft{}, false
	}
}

func withDraft(step Step, d Draft) State {
	switch step {
	case StepCredentials:
		return Credentials{Draft: d}
	case StepDetails:
		return Details{Draft: d}
	case StepCheckout:
		return Checkout{Draft: d}
	default:
		return Closed{}
	}
}

func next(step Step) Step {
	switch step {
	case StepCredentials:
		return StepDetails
	case StepDetails:
		return StepCheckout
	default:
		return step
	}
}

func defaultPlan(plan string) string {
	if plan == "" {
		return config.PlanMonthly
	}
	return plan
}
