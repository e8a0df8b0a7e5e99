package socket

import (
	"context"
	"fmt"
	"sync"
)

// Controller is the capability surface a device transport provides.
// Both the cloud and the local relay transports implement it.
type Controller interface {
	// SetSwitch pushes one outlet state to the device.
	SetSwitch(ctx context.Context, outlet int, on bool) error

	// Status reads every outlet's on/off state.
	Status(ctx context.Context) (map[int]bool, error)
}

// EventSink receives notifications about applied commands.
// This is optional - if nil, the dispatcher operates without events.
type EventSink interface {
	// CommandApplied is called after the device accepted a state change.
	CommandApplied(outlet int, on bool)
}

// Logger interface for optional logging.
type Logger interface {
	Debug(msg string, keysAndValues ...any)
	Info(msg string, keysAndValues ...any)
	Warn(msg string, keysAndValues ...any)
	Error(msg string, keysAndValues ...any)
}

// MasterMode selects what the master on/off operations map to.
type MasterMode string

const (
	// MasterOutlet routes master commands to one designated outlet.
	MasterOutlet MasterMode = "outlet"

	// MasterAll fans master commands out to every outlet.
	MasterAll MasterMode = "all"
)

// Dispatcher validates and routes outlet operations to one device.
//
// Exactly one Dispatcher exists per process, wrapping exactly one
// transport; the transport choice (cloud or local) happens before
// construction and never changes at runtime.
//
// Thread Safety: All methods are safe for concurrent use. Commands are
// not serialised against each other; the device applies them in
// arrival order and the last write wins.
type Dispatcher struct {
	ctrl         Controller
	outlets      int
	masterMode   MasterMode
	masterOutlet int
	events       EventSink

	logger   Logger
	loggerMu sync.RWMutex
}

// Options holds configuration for creating a dispatcher.
type Options struct {
	// Controller is the device transport. Required.
	Controller Controller

	// Outlets is the number of switchable outlets on the device.
	Outlets int

	// MasterMode is "outlet" or "all".
	MasterMode string

	// MasterOutlet is the designated outlet for mode "outlet".
	MasterOutlet int

	// Events is optional command notification sink.
	Events EventSink

	// Logger is optional structured logger.
	Logger Logger
}

// New creates a dispatcher.
//
// Returns:
//   - *Dispatcher: Ready dispatcher
//   - error: If the controller is missing or the layout is inconsistent
func New(opts Options) (*Dispatcher, error) {
	if opts.Controller == nil {
		return nil, fmt.Errorf("socket: controller is required")
	}
	if opts.Outlets < 1 {
		return nil, fmt.Errorf("socket: at least one outlet is required")
	}

	mode := MasterMode(opts.MasterMode)
	switch mode {
	case MasterOutlet:
		if opts.MasterOutlet < 1 || opts.MasterOutlet > opts.Outlets {
			return nil, fmt.Errorf("socket: master outlet %d out of range 1..%d", opts.MasterOutlet, opts.Outlets)
		}
	case MasterAll:
		// Fans out; no designated outlet.
	default:
		return nil, fmt.Errorf("socket: unknown master mode %q", opts.MasterMode)
	}

	return &Dispatcher{
		ctrl:         opts.Controller,
		outlets:      opts.Outlets,
		masterMode:   mode,
		masterOutlet: opts.MasterOutlet,
		events:       opts.Events,
		logger:       opts.Logger,
	}, nil
}

// Outlets returns the configured outlet count.
func (d *Dispatcher) Outlets() int {
	return d.outlets
}

// Master returns the configured master mode and, for mode "outlet",
// the designated outlet (0 for mode "all").
func (d *Dispatcher) Master() (MasterMode, int) {
	if d.masterMode == MasterAll {
		return d.masterMode, 0
	}
	return d.masterMode, d.masterOutlet
}

// SetOutlet switches one outlet on or off.
//
// The outlet number is validated against the configured layout before
// the transport is touched: out-of-range requests never reach the
// device.
//
// Parameters:
//   - ctx: Context for timeout/cancellation
//   - outlet: Outlet number (1-based)
//   - on: Desired state
//
// Returns:
//   - error: ErrInvalidOutlet for bad outlet numbers, otherwise
//     whatever the transport reports
func (d *Dispatcher) SetOutlet(ctx context.Context, outlet int, on bool) error {
	if outlet < 1 || outlet > d.outlets {
		return fmt.Errorf("%w: outlet %d out of range 1..%d", ErrInvalidOutlet, outlet, d.outlets)
	}

	if err := d.ctrl.SetSwitch(ctx, outlet, on); err != nil {
		d.logWarn("outlet command failed", "outlet", outlet, "on", on, "error", err)
		return err
	}

	d.logInfo("outlet switched", "outlet", outlet, "on", on)
	if d.events != nil {
		d.events.CommandApplied(outlet, on)
	}
	return nil
}

// SetMaster switches the whole socket on or off.
//
// In mode "outlet" this drives the designated outlet. In mode "all" it
// drives every outlet in ascending order and stops at the first
// failure; outlets already switched stay switched.
func (d *Dispatcher) SetMaster(ctx context.Context, on bool) error {
	if d.masterMode == MasterOutlet {
		return d.SetOutlet(ctx, d.masterOutlet, on)
	}

	for outlet := 1; outlet <= d.outlets; outlet++ {
		if err := d.SetOutlet(ctx, outlet, on); err != nil {
			return fmt.Errorf("switching outlet %d: %w", outlet, err)
		}
	}
	return nil
}

// Status reads every outlet's on/off state from the device.
// The transport's report is passed through untouched.
func (d *Dispatcher) Status(ctx context.Context) (map[int]bool, error) {
	states, err := d.ctrl.Status(ctx)
	if err != nil {
		d.logWarn("status read failed", "error", err)
		return nil, err
	}
	return states, nil
}

// SetLogger sets a logger for command logging.
func (d *Dispatcher) SetLogger(logger Logger) {
	d.loggerMu.Lock()
	d.logger = logger
	d.loggerMu.Unlock()
}

// logInfo logs an info message if logger is set.
func (d *Dispatcher) logInfo(msg string, keysAndValues ...any) {
	d.loggerMu.RLock()
	logger := d.logger
	d.loggerMu.RUnlock()

	if logger != nil {
		logger.Info(msg, keysAndValues...)
	}
}

// logWarn logs a warning if logger is set.
func (d *Dispatcher) logWarn(msg string, keysAndValues ...any) {
	d.loggerMu.RLock()
	logger := d.logger
	d.loggerMu.RUnlock()

	if logger != nil {
		logger.Warn(msg, keysAndValues...)
	}
}
