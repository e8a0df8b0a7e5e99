package monitor

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/nerrad567/tuya-socket/internal/events"
	"github.com/nerrad567/tuya-socket/internal/notify"
)

// Defaults for monitor timing.
const (
	defaultInterval = 10 * time.Second

	// pollTimeout bounds one cloud round trip.
	pollTimeout = 5 * time.Second
)

// ConnectivityChecker reports whether the cloud can reach the device.
// *tuya.Cloud satisfies it.
type ConnectivityChecker interface {
	Online(ctx context.Context) (bool, error)
}

// StatusReader provides outlet states for notification summaries.
type StatusReader interface {
	Status(ctx context.Context) (map[int]bool, error)
}

// Notifier delivers transition notifications.
type Notifier interface {
	Send(ctx context.Context, urgency notify.Urgency, title, body string)
}

// MetricsWriter records connectivity samples.
type MetricsWriter interface {
	WriteConnectivity(deviceID, deviceName string, online bool)
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
}

// Monitor polls device reachability on a fixed cadence.
type Monitor struct {
	deviceID   string
	deviceName string
	interval   time.Duration

	checker  ConnectivityChecker
	status   StatusReader
	notifier Notifier
	metrics  MetricsWriter
	events   Broadcaster

	// Reachability state; only the poll loop touches it.
	haveBaseline bool
	lastOnline   bool

	done     chan struct{}
	wg       sync.WaitGroup
	stopOnce sync.Once

	logger   Logger
	loggerMu sync.RWMutex
}

// Options configures a Monitor.
type Options struct {
	// DeviceID is the vendor device identifier (required).
	DeviceID string

	// DeviceName is the human-readable name used in notifications and
	// metric tags.
	DeviceName string

	// Interval is the poll cadence. Default: 10 seconds.
	Interval time.Duration

	// Checker performs the reachability probe (required).
	Checker ConnectivityChecker

	// Status, when non-nil, enriches online notifications with the
	// per-outlet summary.
	Status StatusReader

	// Notifier, Metrics, and Events are each optional.
	Notifier Notifier
	Metrics  MetricsWriter
	Events   Broadcaster
}

// New creates a Monitor. Call Start to begin polling.
func New(opts Options) (*Monitor, error) {
	if opts.DeviceID == "" {
		return nil, errors.New("monitor: device ID is required")
	}
	if opts.Checker == nil {
		return nil, errors.New("monitor: connectivity checker is required")
	}

	interval := opts.Interval
	if interval <= 0 {
		interval = defaultInterval
	}

	return &Monitor{
		deviceID:   opts.DeviceID,
		deviceName: opts.DeviceName,
		interval:   interval,
		checker:    opts.Checker,
		status:     opts.Status,
		notifier:   opts.Notifier,
		metrics:    opts.Metrics,
		events:     opts.Events,
		done:       make(chan struct{}),
	}, nil
}

// SetLogger sets the logger for monitor events.
func (m *Monitor) SetLogger(logger Logger) {
	m.loggerMu.Lock()
	defer m.loggerMu.Unlock()
	m.logger = logger
}

// Start begins periodic polling. Call Stop to shut down.
func (m *Monitor) Start(ctx context.Context) {
	m.wg.Add(1)
	go m.pollLoop(ctx)
}

// Stop gracefully stops polling.
// Safe to call multiple times (uses sync.Once).
func (m *Monitor) Stop() {
	m.stopOnce.Do(func() {
		close(m.done)
		m.wg.Wait()
	})
}

// pollLoop runs the periodic reachability probe.
func (m *Monitor) pollLoop(ctx context.Context) {
	defer m.wg.Done()

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	// Establish the baseline immediately rather than one interval in.
	m.poll(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-m.done:
			return
		case <-ticker.C:
			m.poll(ctx)
		}
	}
}

// poll takes one reachability sample and reacts to it.
func (m *Monitor) poll(ctx context.Context) {
	probeCtx, cancel := context.WithTimeout(ctx, pollTimeout)
	defer cancel()

	online, err := m.checker.Online(probeCtx)
	if err != nil {
		// Keep the last-known state; a cloud hiccup is not an outage.
		m.logWarn("connectivity poll failed", "error", err)
		return
	}

	m.record(online)

	switch {
	case !m.haveBaseline:
		// An offline baseline stays quiet: the alert belongs to the
		// moment the device drops, not to daemon restarts.
		m.haveBaseline = true
		m.logInfo("connectivity baseline", "online", online)
		if online {
			m.notifyOnline(ctx, fmt.Sprintf("%s is online", m.deviceName))
		}
	case online && !m.lastOnline:
		m.logInfo("device back online", "device_id", m.deviceID)
		m.notifyOnline(ctx, fmt.Sprintf("%s is back online", m.deviceName))
	case !online && m.lastOnline:
		m.logWarn("device went offline", "device_id", m.deviceID)
		m.notifyOffline(ctx)
	}

	m.lastOnline = online
}

// record writes one successful sample to metrics and the event stream.
func (m *Monitor) record(online bool) {
	if m.metrics != nil {
		m.metrics.WriteConnectivity(m.deviceID, m.deviceName, online)
	}
	if m.events != nil {
		m.events.Broadcast(events.ChannelConnectivity, events.ConnectivityEvent{
			DeviceID:   m.deviceID,
			DeviceName: m.deviceName,
			Online:     online,
		})
	}
}

func (m *Monitor) notifyOnline(ctx context.Context, body string) {
	if m.notifier == nil {
		return
	}
	if summary := m.summary(ctx); summary != "" {
		body = body + ". " + summary
	}
	m.notifier.Send(ctx, notify.UrgencyNormal, "Socket Online", body)
}

func (m *Monitor) notifyOffline(ctx context.Context) {
	if m.notifier == nil {
		return
	}
	m.notifier.Send(ctx, notify.UrgencyCritical, "Socket Offline",
		fmt.Sprintf("%s stopped responding", m.deviceName))
}

// summary reads the outlet states for a notification body. A failed
// read degrades to an empty summary rather than blocking the alert.
func (m *Monitor) summary(ctx context.Context) string {
	if m.status == nil {
		return ""
	}

	readCtx, cancel := context.WithTimeout(ctx, pollTimeout)
	defer cancel()

	states, err := m.status.Status(readCtx)
	if err != nil {
		m.logDebug("status read for summary failed", "error", err)
		return ""
	}
	return formatStates(states)
}

// formatStates renders an outlet map as "S1: ON, S2: OFF".
func formatStates(states map[int]bool) string {
	outlets := make([]int, 0, len(states))
	for n := range states {
		outlets = append(outlets, n)
	}
	sort.Ints(outlets)

	parts := make([]string, 0, len(outlets))
	for _, n := range outlets {
		state := "OFF"
		if states[n] {
			state = "ON"
		}
		parts = append(parts, fmt.Sprintf("S%d: %s", n, state))
	}
	return strings.Join(parts, ", ")
}

func (m *Monitor) logDebug(msg string, args ...any) {
	m.loggerMu.RLock()
	defer m.loggerMu.RUnlock()
	if m.logger != nil {
		m.logger.Debug(msg, args...)
	}
}

func (m *Monitor) logInfo(msg string, args ...any) {
	m.loggerMu.RLock()
	defer m.loggerMu.RUnlock()
	if m.logger != nil {
		m.logger.Info(msg, args...)
	}
}

func (m *Monitor) logWarn(msg string, args ...any) {
	m.loggerMu.RLock()
	defer m.loggerMu.RUnlock()
	if m.logger != nil {
		m.logger.Warn(msg, args...)
	}
}
