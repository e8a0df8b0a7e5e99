package battery

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/nerrad567/tuya-socket/internal/events"
	"github.com/nerrad567/tuya-socket/internal/notify"
	"github.com/nerrad567/tuya-socket/internal/power"
)

// Defaults for manager timing.
const (
	defaultInterval = 60 * time.Second

	// commandTimeout bounds one charger command.
	commandTimeout = 10 * time.Second
)

// Charger actions carried in battery events.
const (
	actionChargerOn  = "charger_on"
	actionChargerOff = "charger_off"
)

// Switcher applies outlet commands. *socket.Dispatcher satisfies it.
type Switcher interface {
	SetOutlet(ctx context.Context, outlet int, on bool) error
}

// Reader reports host battery state. power.Reader matches.
type Reader interface {
	Read() (power.Status, error)
}

// SSIDResolver reports the active WiFi network. netinfo.Resolver matches.
type SSIDResolver interface {
	SSID(ctx context.Context) (string, error)
}

// Notifier delivers charger action notifications.
type Notifier interface {
	Send(ctx context.Context, urgency notify.Urgency, title, body string)
}

// MetricsWriter records battery samples.
type MetricsWriter interface {
	WriteBatteryStatus(device, ssid string, percent int, plugged bool)
}

// Broadcaster pushes events to WebSocket clients.
type Broadcaster interface {
	Broadcast(channel string, payload any)
}

// Logger defines the logging interface used by this package.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// Manager runs the charge-threshold loop.
type Manager struct {
	host     string
	outlet   int
	min      int
	max      int
	interval time.Duration
	allowed  map[string]struct{}

	switcher Switcher
	battery  Reader
	resolver SSIDResolver
	notifier Notifier
	metrics  MetricsWriter
	events   Broadcaster

	// lastAction dedupes notifications across ticks; only the tick
	// loop touches it.
	lastAction string

	done     chan struct{}
	wg       sync.WaitGroup
	stopOnce sync.Once

	logger   Logger
	loggerMu sync.RWMutex
}

// Options configures a Manager.
type Options struct {
	// Host tags battery samples with the machine name. Default: "unknown".
	Host string

	// Outlet is the socket outlet the charger is plugged into (required).
	Outlet int

	// MinPercent turns the charger on below this level while unplugged.
	MinPercent int

	// MaxPercent turns the charger off at or above this level while plugged.
	MaxPercent int

	// Interval is the tick cadence. Default: 60 seconds.
	Interval time.Duration

	// AllowedSSIDs restricts action to these networks. Empty means no
	// restriction.
	AllowedSSIDs []string

	// Switcher applies the charger commands (required).
	Switcher Switcher

	// Battery reads the host battery (required).
	Battery Reader

	// Resolver provides the active SSID. Required when AllowedSSIDs is
	// set; otherwise optional (samples are tagged "unknown" without it).
	Resolver SSIDResolver

	// Notifier, Metrics, and Events are each optional.
	Notifier Notifier
	Metrics  MetricsWriter
	Events   Broadcaster
}

// New creates a Manager. Call Start to begin the loop.
func New(opts Options) (*Manager, error) {
	if opts.Switcher == nil {
		return nil, errors.New("battery: switcher is required")
	}
	if opts.Battery == nil {
		return nil, errors.New("battery: battery reader is required")
	}
	if opts.Outlet < 1 {
		return nil, fmt.Errorf("battery: invalid charger outlet %d", opts.Outlet)
	}
	if opts.MinPercent >= opts.MaxPercent {
		return nil, fmt.Errorf("battery: min percent %d must be below max %d", opts.MinPercent, opts.MaxPercent)
	}
	if len(opts.AllowedSSIDs) > 0 && opts.Resolver == nil {
		return nil, errors.New("battery: ssid resolver is required with an ssid allowlist")
	}

	host := opts.Host
	if host == "" {
		host = "unknown"
	}
	interval := opts.Interval
	if interval <= 0 {
		interval = defaultInterval
	}

	allowed := make(map[string]struct{}, len(opts.AllowedSSIDs))
	for _, ssid := range opts.AllowedSSIDs {
		allowed[ssid] = struct{}{}
	}

	return &Manager{
		host:     host,
		outlet:   opts.Outlet,
		min:      opts.MinPercent,
		max:      opts.MaxPercent,
		interval: interval,
		allowed:  allowed,
		switcher: opts.Switcher,
		battery:  opts.Battery,
		resolver: opts.Resolver,
		notifier: opts.Notifier,
		metrics:  opts.Metrics,
		events:   opts.Events,
		done:     make(chan struct{}),
	}, nil
}

// SetLogger sets the logger for manager events.
func (m *Manager) SetLogger(logger Logger) {
	m.loggerMu.Lock()
	defer m.loggerMu.Unlock()
	m.logger = logger
}

// Start begins the periodic charge loop. Call Stop to shut down.
func (m *Manager) Start(ctx context.Context) {
	m.wg.Add(1)
	go m.tickLoop(ctx)
}

// Stop gracefully stops the loop.
// Safe to call multiple times (uses sync.Once).
func (m *Manager) Stop() {
	m.stopOnce.Do(func() {
		close(m.done)
		m.wg.Wait()
	})
}

// tickLoop runs the periodic charge check.
func (m *Manager) tickLoop(ctx context.Context) {
	defer m.wg.Done()

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	// Act immediately; a 10% battery should not wait a full interval.
	m.tick(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-m.done:
			return
		case <-ticker.C:
			m.tick(ctx)
		}
	}
}

// tick performs one gate-sample-apply cycle.
func (m *Manager) tick(ctx context.Context) {
	ssid, ok := m.resolveSSID(ctx)
	if !ok {
		return
	}

	status, err := m.battery.Read()
	if err != nil {
		m.logWarn("battery read failed", "error", err)
		return
	}

	if m.metrics != nil {
		m.metrics.WriteBatteryStatus(m.host, ssid, status.Percent, status.Plugged)
	}

	m.apply(ctx, ssid, status)
}

// resolveSSID returns the network tag and whether the manager may act.
func (m *Manager) resolveSSID(ctx context.Context) (string, bool) {
	if m.resolver == nil {
		return "", true
	}

	ssid, err := m.resolver.SSID(ctx)
	if err != nil {
		if len(m.allowed) == 0 {
			// No gate configured; act with an unknown network tag.
			m.logDebug("ssid resolution failed", "error", err)
			return "", true
		}
		m.logDebug("skipping tick, network unknown", "error", err)
		return "", false
	}

	if len(m.allowed) == 0 {
		return ssid, true
	}
	if _, ok := m.allowed[ssid]; !ok {
		m.logDebug("skipping tick, network not allowlisted", "ssid", ssid)
		return ssid, false
	}
	return ssid, true
}

// apply turns the thresholds into outlet commands.
func (m *Manager) apply(ctx context.Context, ssid string, status power.Status) {
	switch {
	case status.Percent >= m.max && status.Plugged:
		// Enforced on every tick until the charger actually drops;
		// the socket being commanded off is not the same as power
		// being off.
		m.command(ctx, ssid, status, false)
	case status.Percent < m.min && !status.Plugged:
		if m.lastAction == actionChargerOn {
			return
		}
		m.command(ctx, ssid, status, true)
	}
}

// command switches the charger outlet and reports the outcome.
func (m *Manager) command(ctx context.Context, ssid string, status power.Status, on bool) {
	action, verb := actionChargerOff, "off"
	if on {
		action, verb = actionChargerOn, "on"
	}

	cmdCtx, cancel := context.WithTimeout(ctx, commandTimeout)
	defer cancel()

	if err := m.switcher.SetOutlet(cmdCtx, m.outlet, on); err != nil {
		m.logError("charger command failed", "outlet", m.outlet, "on", on, "error", err)
		if m.notifier != nil {
			m.notifier.Send(ctx, notify.UrgencyCritical, "Charger Control Failed",
				fmt.Sprintf("switching outlet %d %s: %v", m.outlet, verb, err))
		}
		// lastAction unchanged; the next tick retries.
		return
	}

	firstInStreak := m.lastAction != action
	m.lastAction = action

	m.logInfo("charger switched",
		"outlet", m.outlet,
		"on", on,
		"percent", status.Percent,
		"plugged", status.Plugged,
	)

	if !firstInStreak {
		return
	}

	if m.notifier != nil {
		title := "Charger Off"
		if on {
			title = "Charger On"
		}
		m.notifier.Send(ctx, notify.UrgencyNormal, title,
			fmt.Sprintf("battery at %d%%, outlet %d %s", status.Percent, m.outlet, verb))
	}
	if m.events != nil {
		m.events.Broadcast(events.ChannelBatteryAction, events.BatteryEvent{
			Action:  action,
			Percent: status.Percent,
			Plugged: status.Plugged,
			SSID:    ssid,
		})
	}
}

func (m *Manager) logDebug(msg string, args ...any) {
	m.loggerMu.RLock()
	defer m.loggerMu.RUnlock()
	if m.logger != nil {
		m.logger.Debug(msg, args...)
	}
}

func (m *Manager) logInfo(msg string, args ...any) {
	m.loggerMu.RLock()
	defer m.loggerMu.RUnlock()
	if m.logger != nil {
		m.logger.Info(msg, args...)
	}
}

func (m *Manager) logWarn(msg string, args ...any) {
	m.loggerMu.RLock()
	defer m.loggerMu.RUnlock()
	if m.logger != nil {
		m.logger.Warn(msg, args...)
	}
}

func (m *Manager) logError(msg string, args ...any) {
	m.loggerMu.RLock()
	defer m.loggerMu.RUnlock()
	if m.logger != nil {
		m.logger.Error(msg, args...)
	}
}
