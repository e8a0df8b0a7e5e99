package notify

import (
	"context"
	"encoding/json"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/nerrad567/tuya-socket/internal/infrastructure/mqtt"
)

// Urgency selects the desktop urgency level and is carried verbatim in
// the MQTT payload.
type Urgency string

const (
	UrgencyNormal   Urgency = "normal"
	UrgencyCritical Urgency = "critical"
)

// sendBinary is the desktop notification command looked up on PATH.
const sendBinary = "notify-send"

// execTimeout bounds one notify-send invocation.
const execTimeout = 5 * time.Second

// Message is the JSON payload published to the MQTT notification topic.
type Message struct {
	ID        string    `json:"id"`
	Urgency   Urgency   `json:"urgency"`
	Title     string    `json:"title"`
	Body      string    `json:"body"`
	Timestamp time.Time `json:"timestamp"`
}

// Publisher is the MQTT surface the notifier publishes through.
// *mqtt.Client satisfies it.
type Publisher interface {
	Publish(topic string, payload []byte, qos byte, retained bool) error
}

// Logger defines the logging interface used by this package.
type Logger interface {
	Debug(msg string, args ...any)
	Warn(msg string, args ...any)
}

// Notifier fans one notification out to the desktop and to MQTT.
//
// Both channels are optional; a Notifier with neither enabled is valid
// and turns Send into a no-op, which keeps call sites unconditional.
type Notifier struct {
	appName   string
	desktop   bool
	publisher Publisher
	qos       byte
	topic     string

	// run executes the desktop command; replaced in tests.
	run func(ctx context.Context, name string, args ...string) ([]byte, error)

	// lookOnce resolves the notify-send binary on first use so a
	// missing binary disables the desktop channel instead of erroring.
	lookOnce sync.Once
	sendPath string

	loggerMu sync.RWMutex
	logger   Logger
}

// Options configures a Notifier.
type Options struct {
	// Desktop enables notify-send delivery.
	Desktop bool

	// AppName is the application name passed to notify-send (-a).
	AppName string

	// Publisher, when non-nil, receives every notification as JSON on
	// the notification topic.
	Publisher Publisher

	// QoS is the MQTT quality of service for notification publishes.
	QoS byte
}

// New creates a Notifier. It never fails; channels that cannot operate
// are disabled and reported through the logger on first use.
func New(opts Options) *Notifier {
	return &Notifier{
		appName:   opts.AppName,
		desktop:   opts.Desktop,
		publisher: opts.Publisher,
		qos:       opts.QoS,
		topic:     mqtt.Topics{}.Notify(),
		run:       runCommand,
	}
}

// SetLogger sets the logger for notifier events.
func (n *Notifier) SetLogger(logger Logger) {
	n.loggerMu.Lock()
	defer n.loggerMu.Unlock()
	n.logger = logger
}

// Send delivers one notification through every enabled channel.
//
// Delivery is best-effort: failures are logged and swallowed so the
// calling service keeps its own cadence.
func (n *Notifier) Send(ctx context.Context, urgency Urgency, title, body string) {
	n.sendDesktop(ctx, urgency, title, body)
	n.sendMQTT(urgency, title, body)
}

func (n *Notifier) sendDesktop(ctx context.Context, urgency Urgency, title, body string) {
	if !n.desktop {
		return
	}

	n.lookOnce.Do(func() {
		path, err := exec.LookPath(sendBinary)
		if err != nil {
			n.logWarn("desktop notifications disabled", "error", err)
			return
		}
		n.sendPath = path
	})
	if n.sendPath == "" {
		return
	}

	execCtx, cancel := context.WithTimeout(ctx, execTimeout)
	defer cancel()

	output, err := n.run(execCtx, n.sendPath,
		"-a", n.appName,
		"-u", string(urgency),
		title, body,
	)
	if err != nil {
		n.logWarn("desktop notification failed",
			"title", title,
			"error", err,
			"output", strings.TrimSpace(string(output)),
		)
		return
	}

	n.logDebug("desktop notification sent", "title", title, "urgency", urgency)
}

func (n *Notifier) sendMQTT(urgency Urgency, title, body string) {
	if n.publisher == nil {
		return
	}

	msg := Message{
		ID:        uuid.New().String(),
		Urgency:   urgency,
		Title:     title,
		Body:      body,
		Timestamp: time.Now().UTC(),
	}

	payload, err := json.Marshal(msg)
	if err != nil {
		n.logWarn("marshaling notification failed", "title", title, "error", err)
		return
	}

	if err := n.publisher.Publish(n.topic, payload, n.qos, false); err != nil {
		n.logWarn("publishing notification failed", "title", title, "error", err)
		return
	}

	n.logDebug("notification published", "topic", n.topic, "title", title)
}

// runCommand executes the desktop command and returns combined output.
func runCommand(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	return cmd.CombinedOutput()
}

func (n *Notifier) logDebug(msg string, args ...any) {
	n.loggerMu.RLock()
	defer n.loggerMu.RUnlock()
	if n.logger != nil {
		n.logger.Debug(msg, args...)
	}
}

func (n *Notifier) logWarn(msg string, args ...any) {
	n.loggerMu.RLock()
	defer n.loggerMu.RUnlock()
	if n.logger != nil {
		n.logger.Warn(msg, args...)
	}
}
