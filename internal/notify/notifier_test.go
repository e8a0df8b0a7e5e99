package notify

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
)

// fakeRunner records desktop command invocations.
type fakeRunner struct {
	mu     sync.Mutex
	calls  [][]string
	output []byte
	err    error
}

func (f *fakeRunner) run(_ context.Context, name string, args ...string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, append([]string{name}, args...))
	return f.output, f.err
}

func (f *fakeRunner) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

// fakePublisher records MQTT publishes.
type fakePublisher struct {
	mu       sync.Mutex
	topic    string
	payload  []byte
	qos      byte
	retained bool
	count    int
	err      error
}

func (f *fakePublisher) Publish(topic string, payload []byte, qos byte, retained bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.topic = topic
	f.payload = payload
	f.qos = qos
	f.retained = retained
	f.count++
	return f.err
}

// mockLogger captures warnings for assertions.
type mockLogger struct {
	mu    sync.Mutex
	warns []string
}

func (l *mockLogger) Debug(string, ...any) {}

func (l *mockLogger) Warn(msg string, _ ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.warns = append(l.warns, msg)
}

func (l *mockLogger) warnCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.warns)
}

// resolvedNotifier returns a Notifier whose desktop binary lookup is
// already settled, so tests exercise the send path deterministically.
func resolvedNotifier(opts Options, runner *fakeRunner) *Notifier {
	n := New(opts)
	n.run = runner.run
	n.lookOnce.Do(func() {})
	if opts.Desktop {
		n.sendPath = "/usr/bin/notify-send"
	}
	return n
}

func TestSend_Desktop(t *testing.T) {
	runner := &fakeRunner{}
	n := resolvedNotifier(Options{Desktop: true, AppName: "tuya-app"}, runner)

	n.Send(context.Background(), UrgencyCritical, "Device Offline", "no response")

	if runner.callCount() != 1 {
		t.Fatalf("run called %d times, want 1", runner.callCount())
	}

	got := runner.calls[0]
	want := []string{"/usr/bin/notify-send", "-a", "tuya-app", "-u", "critical", "Device Offline", "no response"}
	if len(got) != len(want) {
		t.Fatalf("command = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("command[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestSend_DesktopDisabled(t *testing.T) {
	runner := &fakeRunner{}
	n := resolvedNotifier(Options{Desktop: false}, runner)

	n.Send(context.Background(), UrgencyNormal, "title", "body")

	if runner.callCount() != 0 {
		t.Errorf("run called %d times with desktop disabled, want 0", runner.callCount())
	}
}

func TestSend_BinaryAbsent(t *testing.T) {
	// An empty PATH makes the lookup fail, which disables the desktop
	// channel instead of erroring on every Send.
	t.Setenv("PATH", t.TempDir())

	runner := &fakeRunner{}
	logger := &mockLogger{}

	n := New(Options{Desktop: true, AppName: "tuya-app"})
	n.run = runner.run
	n.SetLogger(logger)

	n.Send(context.Background(), UrgencyNormal, "title", "body")
	n.Send(context.Background(), UrgencyNormal, "title", "body")

	if runner.callCount() != 0 {
		t.Errorf("run called %d times without a binary, want 0", runner.callCount())
	}
	if logger.warnCount() != 1 {
		t.Errorf("warn logged %d times, want 1 (lookup settles once)", logger.warnCount())
	}
}

func TestSend_DesktopFailure(t *testing.T) {
	runner := &fakeRunner{err: errors.New("exit status 1"), output: []byte("cannot open display")}
	logger := &mockLogger{}

	n := resolvedNotifier(Options{Desktop: true, AppName: "tuya-app"}, runner)
	n.SetLogger(logger)

	n.Send(context.Background(), UrgencyNormal, "title", "body")

	if logger.warnCount() != 1 {
		t.Errorf("warn logged %d times after desktop failure, want 1", logger.warnCount())
	}
}

func TestSend_MQTT(t *testing.T) {
	pub := &fakePublisher{}
	n := resolvedNotifier(Options{Publisher: pub, QoS: 1}, &fakeRunner{})

	n.Send(context.Background(), UrgencyCritical, "Device Offline", "no response")

	if pub.count != 1 {
		t.Fatalf("Publish called %d times, want 1", pub.count)
	}
	if pub.topic != "tuyasocket/notify" {
		t.Errorf("topic = %q, want tuyasocket/notify", pub.topic)
	}
	if pub.qos != 1 {
		t.Errorf("qos = %d, want 1", pub.qos)
	}
	if pub.retained {
		t.Error("notification published retained, want non-retained")
	}

	var msg Message
	if err := json.Unmarshal(pub.payload, &msg); err != nil {
		t.Fatalf("payload is not valid JSON: %v", err)
	}
	if msg.ID == "" {
		t.Error("message ID is empty")
	}
	if msg.Urgency != UrgencyCritical {
		t.Errorf("urgency = %q, want critical", msg.Urgency)
	}
	if msg.Title != "Device Offline" || msg.Body != "no response" {
		t.Errorf("title/body = %q/%q, want Device Offline/no response", msg.Title, msg.Body)
	}
	if msg.Timestamp.IsZero() {
		t.Error("timestamp is zero")
	}
}

func TestSend_MQTTPublishError(t *testing.T) {
	pub := &fakePublisher{err: errors.New("mqtt: not connected")}
	logger := &mockLogger{}

	n := resolvedNotifier(Options{Publisher: pub, QoS: 1}, &fakeRunner{})
	n.SetLogger(logger)

	n.Send(context.Background(), UrgencyNormal, "title", "body")

	if logger.warnCount() != 1 {
		t.Errorf("warn logged %d times after publish failure, want 1", logger.warnCount())
	}
}

func TestSend_NoChannels(t *testing.T) {
	n := New(Options{})

	// Nothing enabled; must be a silent no-op.
	n.Send(context.Background(), UrgencyNormal, "title", "body")
}

func TestSend_BothChannels(t *testing.T) {
	runner := &fakeRunner{}
	pub := &fakePublisher{}

	n := resolvedNotifier(Options{Desktop: true, AppName: "tuya-app", Publisher: pub, QoS: 1}, runner)

	n.Send(context.Background(), UrgencyNormal, "Charger On", "battery at 15%")

	if runner.callCount() != 1 {
		t.Errorf("run called %d times, want 1", runner.callCount())
	}
	if pub.count != 1 {
		t.Errorf("Publish called %d times, want 1", pub.count)
	}
}
