package wizard

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/smallbiznis/nurture/internal/clock"
)

var (
	ErrClosed    = errors.New("signup dialog is closed")
	ErrWrongStep = errors.New("step is not active")
	ErrBusy      = errors.New("a step is already in flight")
)

// Ticket identifies one in-flight step submission.
type Ticket struct {
	epoch uint64
	seq   uint64
	step  Step
}

func (t Ticket) Step() Step { return t.step }

// Attempt is a stable key for notification dedupe.
func (t Ticket) Attempt() string {
	return fmt.Sprintf("%d:%s:%d", t.epoch, t.step, t.seq)
}

// Controller owns the dialog state. Every open gets a new epoch; results carrying a
// ticket from an older epoch are dropped.
type Controller struct {
	clock clock.Clock

	mu      sync.Mutex
	state   State
	epoch   uint64
	seq     uint64
	busy    bool
	started bool
	changed time.Time
}

func NewController(clk clock.Clock) *Controller {
	if clk == nil {
		clk = clock.System()
	}
	return &Controller{clock: clk, state: Closed{}, changed: clk.Now()}
}

func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Controller) Busy() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.busy
}

// Open shows the dialog at Credentials. An already open dialog only records plan.
func (c *Controller) Open(plan string) State {
	plan = strings.TrimSpace(plan)
	c.mu.Lock()
	defer c.mu.Unlock()

	step, draft, open := StepOf(c.state)
	if open {
		if plan != "" {
			draft.SelectedPlan = plan
			c.state = withDraft(step, draft)
		}
		return c.state
	}

	c.epoch++
	c.busy = false
	c.started = false
	c.state = Credentials{Draft: Draft{SelectedPlan: defaultPlan(plan)}}
	c.commit()
	return c.state
}

// Begin claims the in-flight slot for step and applies edit to the draft.
func (c *Controller) Begin(step Step, edit func(*Draft)) (Ticket, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	current, draft, open := StepOf(c.state)
	if !open {
		return Ticket{}, ErrClosed
	}
	if c.busy {
		return Ticket{}, ErrBusy
	}
	if current != step {
		return Ticket{}, fmt.Errorf("%w: %s while on %s", ErrWrongStep, step, current)
	}
	if edit != nil {
		edit(&draft)
		c.state = withDraft(current, draft)
	}

	c.busy = true
	c.seq++
	return Ticket{epoch: c.epoch, seq: c.seq, step: step}, nil
}

// Draft returns the current draft for a live ticket.
func (c *Controller) Draft(t Ticket) (Draft, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if t.epoch != c.epoch {
		return Draft{}, false
	}
	_, draft, open := StepOf(c.state)
	return draft, open
}

// Current reports whether t still belongs to the open dialog.
func (c *Controller) Current(t Ticket) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, _, open := StepOf(c.state)
	return open && t.epoch == c.epoch
}

// Complete releases the slot and optionally advances one step. It returns false
// for a superseded ticket, in which case nothing changes.
func (c *Controller) Complete(t Ticket, advance bool) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	step, draft, open := StepOf(c.state)
	if !open || !c.busy || t.epoch != c.epoch || t.seq != c.seq {
		return false
	}
	c.busy = false
	if advance && step == t.step {
		c.state = withDraft(next(step), draft)
		c.commit()
	}
	return true
}

// Finish closes the dialog after a successful checkout handoff.
func (c *Controller) Finish(t Ticket) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	step, _, open := StepOf(c.state)
	if !open || !c.busy || t.epoch != c.epoch || t.seq != c.seq || step != StepCheckout {
		return false
	}
	c.close()
	return true
}

// Back returns from Details to Credentials, keeping every field.
func (c *Controller) Back() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	step, draft, open := StepOf(c.state)
	switch {
	case !open:
		return ErrClosed
	case c.busy:
		return ErrBusy
	case step != StepDetails:
		return fmt.Errorf("%w: back from %s", ErrWrongStep, step)
	}
	c.state = Credentials{Draft: draft}
	c.commit()
	return nil
}

// Close dismisses the dialog and discards the draft. Closing twice is a no-op.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.state.(Closed); ok {
		return
	}
	c.close()
}

// StartOnce returns true the first time it is called after each open.
func (c *Controller) StartOnce() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.state.(Closed); ok || c.started {
		return false
	}
	c.started = true
	return true
}

// IdleSince returns when the dialog was closed, or ok=false while it is open.
func (c *Controller) IdleSince() (time.Time, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.state.(Closed); !ok {
		return time.Time{}, false
	}
	return c.changed, true
}

// close and commit expect c.mu held.
func (c *Controller) close() {
	c.epoch++
	c.busy = false
	c.started = false
	c.state = Closed{}
	c.commit()
}

func (c *Controller) commit() {
	c.changed = c.clock.Now()
}
