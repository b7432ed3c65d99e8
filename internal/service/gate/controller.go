package gate

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sandevgo/greybot/internal/config"
)

// ErrGaveUp is returned by CompleteUpdate once the consecutive failure budget
// is spent. The controller is back to Idle and posting resumes.
var ErrGaveUp = errors.New("memory update abandoned")

type State int32

const (
	Idle State = iota
	ForceStopRequested
	Updating
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case ForceStopRequested:
		return "force_stop_requested"
	case Updating:
		return "updating"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

type Config struct {
	Hour        int
	Minute      int
	Location    *time.Location
	MaxFailures int
}

// Controller decides when the daily memory update runs and tells every other
// operation when to stand down.
type Controller struct {
	cfg   Config
	now   func() time.Time
	state atomic.Int32

	mu         sync.Mutex
	triggered  time.Time
	lastUpdate time.Time
	failures   int
}

func New(cfg Config) *Controller {
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	return &Controller{
		cfg: cfg,
		now: time.Now,
	}
}

func NewFromConfig(cfg *config.MemoryConfig) (*Controller, error) {
	hour, minute, err := cfg.UpdateClock()
	if err != nil {
		return nil, err
	}
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}
	return New(Config{
		Hour:        hour,
		Minute:      minute,
		Location:    loc,
		MaxFailures: cfg.MaxFailures,
	}), nil
}

// IsUpdateTime matches the configured hour and minute exactly.
func (c *Controller) IsUpdateTime(now time.Time) bool {
	local := now.In(c.cfg.Location)
	return local.Hour() == c.cfg.Hour && local.Minute() == c.cfg.Minute
}

// ShouldForceStop reports whether work must be abandoned. Seeing the update
// minute latches ForceStopRequested; the latch holds until ClearForceStop or a
// successful update. Each update minute latches at most once, so a cycle that
// finishes inside its own minute does not start again.
func (c *Controller) ShouldForceStop() bool {
	now := c.now()
	if c.IsUpdateTime(now) {
		minute := now.Truncate(time.Minute)

		c.mu.Lock()
		fresh := !c.triggered.Equal(minute)
		if fresh {
			c.triggered = minute
		}
		c.mu.Unlock()

		if fresh {
			c.state.CompareAndSwap(int32(Idle), int32(ForceStopRequested))
		}
	}

	s := c.State()
	return s == ForceStopRequested || s == Updating
}

// RequestForceStop latches the force-stop outside the update minute.
func (c *Controller) RequestForceStop() {
	c.state.CompareAndSwap(int32(Idle), int32(ForceStopRequested))
}

func (c *Controller) ClearForceStop() {
	c.state.CompareAndSwap(int32(ForceStopRequested), int32(Idle))
}

// BeginUpdate moves to Updating. It returns false if an update is already
// running.
func (c *Controller) BeginUpdate() bool {
	return c.state.CompareAndSwap(int32(ForceStopRequested), int32(Updating)) ||
		c.state.CompareAndSwap(int32(Idle), int32(Updating))
}

// CompleteUpdate ends the running update. On failure the latch stays set so
// the next tick retries, until MaxFailures consecutive failures.
func (c *Controller) CompleteUpdate(err error) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err == nil {
		c.lastUpdate = c.now()
		c.failures = 0
		c.state.Store(int32(Idle))
		return nil
	}

	c.failures++
	if c.cfg.MaxFailures > 0 && c.failures >= c.cfg.MaxFailures {
		n := c.failures
		c.failures = 0
		c.state.Store(int32(Idle))
		return fmt.Errorf("%w after %d consecutive failures: %w", ErrGaveUp, n, err)
	}

	c.state.Store(int32(ForceStopRequested))
	return err
}

func (c *Controller) State() State {
	return State(c.state.Load())
}

func (c *Controller) LastUpdate() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastUpdate
}

func (c *Controller) Failures() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.failures
}
