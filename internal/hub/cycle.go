package hub

import (
	"context"
	"errors"
	"time"

	"github.com/sweeney/sensor-hub/internal/logger"
)

const (
	// DefaultPeriod is the wait between the end of one report and the next sample.
	DefaultPeriod = 10 * time.Second

	// DefaultDistanceDivisor converts HC-SR04 echo microseconds to centimeters.
	// It is the datasheet figure and still needs checking against the real
	// mounting, so it is configurable.
	DefaultDistanceDivisor = 58
)

// CycleConfig holds the tunables of the reporting cycle.
type CycleConfig struct {
	Period          time.Duration
	DistanceDivisor uint32
}

// Deps are the collaborators the cycle drives. Lines, Observer and OnLine
// are optional.
type Deps struct {
	Distance DistanceSensor
	Climate  ClimateSensor
	Display  Display
	Network  Transmitter
	Console  Console
	Motion   *MotionLatch
	Lines    *LineAssembler
	Waiter   Waiter
	Now      func() time.Time
	Observer func(Report)
	OnLine   func(string)
}

// Cycle is the main loop: sample, render, emit, reset and wait, forever.
// It owns every blocking driver call. Sensor reads are not cancellable; a
// hung sensor blocks the loop.
type Cycle struct {
	cfg  CycleConfig
	deps Deps
	log  *logger.Logger
}

// NewCycle validates the configuration and the required collaborators.
func NewCycle(cfg CycleConfig, deps Deps, l *logger.Logger) (*Cycle, error) {
	if cfg.Period <= 0 {
		return nil, errors.New("hub: period must be > 0")
	}
	if cfg.DistanceDivisor == 0 {
		return nil, errors.New("hub: distance divisor must be > 0")
	}
	switch {
	case deps.Distance == nil:
		return nil, errors.New("hub: distance sensor required")
	case deps.Climate == nil:
		return nil, errors.New("hub: climate sensor required")
	case deps.Display == nil:
		return nil, errors.New("hub: display required")
	case deps.Network == nil:
		return nil, errors.New("hub: network transmitter required")
	case deps.Console == nil:
		return nil, errors.New("hub: console required")
	case deps.Motion == nil:
		return nil, errors.New("hub: motion latch required")
	}
	if deps.Waiter == nil {
		deps.Waiter = SleepWaiter{}
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if l == nil {
		l = logger.Discard()
	}
	return &Cycle{cfg: cfg, deps: deps, log: l}, nil
}

// Sample performs the blocking sensor reads.
func (c *Cycle) Sample() Reading {
	raw, err := c.deps.Distance.Measure()
	if err != nil {
		c.log.Warnf("distance read: %v", err)
		raw = 0
	}
	climate, cerr := c.deps.Climate.Read()
	if cerr != nil {
		c.log.Debugf("climate read: %v", cerr)
	}
	return Reading{
		DistanceRaw: raw,
		DistanceCM:  raw / c.cfg.DistanceDivisor,
		Climate:     climate,
		ClimateErr:  cerr,
	}
}

// Emit sends one report over the network and echoes it to the console.
// Delivery is best-effort: failures are logged and otherwise ignored.
func (c *Cycle) Emit(r Report) {
	if err := c.deps.Network.Transmit([]byte(r.Line)); err != nil {
		c.log.Debugf("transmit: %v", err)
	}
	if _, err := c.deps.Console.WriteString(r.Line); err != nil {
		c.log.Debugf("console write: %v", err)
	}
}

// RunOnce executes a single cycle including the trailing wait. The returned
// error is non-nil only when ctx ended the wait.
func (c *Cycle) RunOnce(ctx context.Context) (Report, error) {
	reading := c.Sample()

	// Render.
	c.deps.Display.ShowInt(int(reading.DistanceCM))
	motion := c.deps.Motion.Take()
	report := Report{
		Time:    c.deps.Now(),
		Reading: reading,
		Motion:  motion,
		Line:    FormatReport(reading, motion),
	}

	c.Emit(report)

	if c.deps.Lines != nil {
		if line, ok := c.deps.Lines.TakeLine(); ok {
			c.log.Infof("console: %q", line)
			if c.deps.OnLine != nil {
				c.deps.OnLine(line)
			}
		}
	}
	if c.deps.Observer != nil {
		c.deps.Observer(report)
	}

	return report, c.deps.Waiter.Wait(ctx, c.cfg.Period)
}

// Run repeats RunOnce until ctx is done. Cancellation is only noticed while
// waiting between cycles.
func (c *Cycle) Run(ctx context.Context) error {
	c.log.Infof("reporting every %v (distance divisor %d)", c.cfg.Period, c.cfg.DistanceDivisor)
	for {
		if _, err := c.RunOnce(ctx); err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil
			}
			return err
		}
	}
}
