package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/nerrad567/tuya-socket/internal/events"
	"github.com/nerrad567/tuya-socket/internal/infrastructure/config"
	"github.com/nerrad567/tuya-socket/internal/infrastructure/logging"
	"github.com/nerrad567/tuya-socket/internal/socket"
	"github.com/nerrad567/tuya-socket/internal/tuya"
)

// mockDevice implements socket.Controller with scripted behaviour.
type mockDevice struct {
	mu        sync.Mutex
	states    map[int]bool
	setErr    error
	statusErr error
	setCalls  []mockCommand

	// delay, when set, stalls each SetSwitch before it applies, so
	// concurrent requests genuinely interleave.
	delay time.Duration
}

type mockCommand struct {
	outlet int
	on     bool
}

func (m *mockDevice) SetSwitch(_ context.Context, outlet int, on bool) error {
	if m.delay > 0 {
		time.Sleep(m.delay)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.setCalls = append(m.setCalls, mockCommand{outlet, on})
	if m.setErr != nil {
		return m.setErr
	}
	if m.states == nil {
		m.states = make(map[int]bool)
	}
	m.states[outlet] = on
	return nil
}

func (m *mockDevice) Status(_ context.Context) (map[int]bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.statusErr != nil {
		return nil, m.statusErr
	}
	out := make(map[int]bool, len(m.states))
	for outlet, on := range m.states {
		out[outlet] = on
	}
	return out, nil
}

func (m *mockDevice) calls() []mockCommand {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]mockCommand(nil), m.setCalls...)
}

// testServer creates a Server over a dispatcher wrapping the given mock.
// Master mode is "outlet" with outlet 1 unless overridden via masterMode.
func testServer(t *testing.T, dev *mockDevice, masterMode string) *Server {
	t.Helper()

	if masterMode == "" {
		masterMode = "outlet"
	}

	log := logging.New(config.LoggingConfig{Level: "error", Format: "text", Output: "stdout"}, "test")

	dispatcher, err := socket.New(socket.Options{
		Controller:   dev,
		Outlets:      2,
		MasterMode:   masterMode,
		MasterOutlet: 1,
	})
	if err != nil {
		t.Fatalf("socket.New() error: %v", err)
	}

	wsCfg := config.WebSocketConfig{
		Path:           "/events",
		MaxMessageSize: 8192,
		PingInterval:   30,
		PongTimeout:    10,
	}
	hub := events.NewHub(wsCfg, log)
	go hub.Run(context.Background())

	srv, err := New(Deps{
		Config: config.APIConfig{
			Host: "127.0.0.1",
			Port: 0,
			Timeouts: config.APITimeoutConfig{
				Read:  5,
				Write: 5,
				Idle:  5,
			},
		},
		WS:         wsCfg,
		Logger:     log,
		Sockets:    dispatcher,
		Hub:        hub,
		DeviceID:   "eb03bbe4df01c1351aaxjz",
		DeviceName: "Socket Kamar Tidur",
		Version:    "test",
	})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}

	return srv
}

func doRequest(t *testing.T, srv *Server, method, path string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(method, path, nil)
	w := httptest.NewRecorder()
	srv.buildRouter().ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()

	var resp map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	return resp
}

// ─── Construction Tests ────────────────────────────────────────────

func TestNew_RequiresLogger(t *testing.T) {
	if _, err := New(Deps{}); err == nil {
		t.Error("New() without logger succeeded, want error")
	}
}

func TestNew_RequiresDispatcher(t *testing.T) {
	log := logging.New(config.LoggingConfig{Level: "error", Format: "text", Output: "stdout"}, "test")
	if _, err := New(Deps{Logger: log}); err == nil {
		t.Error("New() without dispatcher succeeded, want error")
	}
}

// ─── Index and Health Tests ────────────────────────────────────────

func TestIndex(t *testing.T) {
	srv := testServer(t, &mockDevice{}, "")

	w := doRequest(t, srv, http.MethodGet, "/")
	if w.Code != http.StatusOK {
		t.Fatalf("index status = %d, want %d", w.Code, http.StatusOK)
	}

	resp := decodeBody(t, w)
	if resp["device"] != "Socket Kamar Tidur" {
		t.Errorf("device = %v, want Socket Kamar Tidur", resp["device"])
	}
	if resp["id"] != "eb03bbe4df01c1351aaxjz" {
		t.Errorf("id = %v, want device id", resp["id"])
	}
	endpoints, ok := resp["endpoints"].([]any)
	if !ok || len(endpoints) == 0 {
		t.Errorf("endpoints = %v, want non-empty list", resp["endpoints"])
	}
}

func TestHealth(t *testing.T) {
	srv := testServer(t, &mockDevice{}, "")

	w := doRequest(t, srv, http.MethodGet, "/health")
	if w.Code != http.StatusOK {
		t.Errorf("health status = %d, want %d", w.Code, http.StatusOK)
	}

	resp := decodeBody(t, w)
	if resp["status"] != "ok" {
		t.Errorf("status = %v, want ok", resp["status"])
	}
	if resp["version"] != "test" {
		t.Errorf("version = %v, want test", resp["version"])
	}
}

func TestHealth_ContentType(t *testing.T) {
	srv := testServer(t, &mockDevice{}, "")

	w := doRequest(t, srv, http.MethodGet, "/health")
	if ct := w.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q, want %q", ct, "application/json")
	}
}

// ─── Master Switch Tests ───────────────────────────────────────────

func TestMasterOn_OutletMode(t *testing.T) {
	dev := &mockDevice{}
	srv := testServer(t, dev, "outlet")

	w := doRequest(t, srv, http.MethodGet, "/on")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d; body: %s", w.Code, http.StatusOK, w.Body.String())
	}

	resp := decodeBody(t, w)
	if resp["status"] != "ok" || resp["state"] != "on" || resp["mode"] != "outlet" {
		t.Errorf("response = %v, want ok/on/outlet", resp)
	}

	calls := dev.calls()
	if len(calls) != 1 || calls[0] != (mockCommand{outlet: 1, on: true}) {
		t.Errorf("device calls = %v, want single switch of outlet 1 on", calls)
	}
}

func TestMasterOff_OutletMode(t *testing.T) {
	dev := &mockDevice{states: map[int]bool{1: true, 2: true}}
	srv := testServer(t, dev, "outlet")

	w := doRequest(t, srv, http.MethodGet, "/off")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}

	calls := dev.calls()
	if len(calls) != 1 || calls[0] != (mockCommand{outlet: 1, on: false}) {
		t.Errorf("device calls = %v, want single switch of outlet 1 off", calls)
	}
}

func TestMasterOn_AllMode(t *testing.T) {
	dev := &mockDevice{}
	srv := testServer(t, dev, "all")

	w := doRequest(t, srv, http.MethodGet, "/on")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}

	calls := dev.calls()
	want := []mockCommand{{outlet: 1, on: true}, {outlet: 2, on: true}}
	if len(calls) != len(want) {
		t.Fatalf("device calls = %v, want %v", calls, want)
	}
	for i := range want {
		if calls[i] != want[i] {
			t.Errorf("call %d = %v, want %v", i, calls[i], want[i])
		}
	}
}

func TestMaster_AcceptsPost(t *testing.T) {
	dev := &mockDevice{}
	srv := testServer(t, dev, "")

	w := doRequest(t, srv, http.MethodPost, "/on")
	if w.Code != http.StatusOK {
		t.Errorf("POST /on status = %d, want %d", w.Code, http.StatusOK)
	}
	if len(dev.calls()) != 1 {
		t.Errorf("device calls = %d, want 1", len(dev.calls()))
	}
}

// ─── Outlet Tests ──────────────────────────────────────────────────

func TestOutletOn(t *testing.T) {
	dev := &mockDevice{}
	srv := testServer(t, dev, "")

	w := doRequest(t, srv, http.MethodGet, "/switch/2/on")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d; body: %s", w.Code, http.StatusOK, w.Body.String())
	}

	resp := decodeBody(t, w)
	if resp["outlet"] != float64(2) || resp["state"] != "on" {
		t.Errorf("response = %v, want outlet 2 on", resp)
	}

	calls := dev.calls()
	if len(calls) != 1 || calls[0] != (mockCommand{outlet: 2, on: true}) {
		t.Errorf("device calls = %v, want single switch of outlet 2 on", calls)
	}
}

func TestOutletOff_Post(t *testing.T) {
	dev := &mockDevice{states: map[int]bool{2: true}}
	srv := testServer(t, dev, "")

	w := doRequest(t, srv, http.MethodPost, "/switch/2/off")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}

	calls := dev.calls()
	if len(calls) != 1 || calls[0] != (mockCommand{outlet: 2, on: false}) {
		t.Errorf("device calls = %v, want single switch of outlet 2 off", calls)
	}
}

func TestOutlet_OutOfRange(t *testing.T) {
	for _, path := range []string{"/switch/0/on", "/switch/9/on", "/switch/-1/off"} {
		t.Run(path, func(t *testing.T) {
			dev := &mockDevice{}
			srv := testServer(t, dev, "")

			w := doRequest(t, srv, http.MethodGet, path)
			if w.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
			}

			resp := decodeBody(t, w)
			if resp["code"] != ErrCodeInvalidOutlet {
				t.Errorf("code = %v, want %q", resp["code"], ErrCodeInvalidOutlet)
			}

			// Validation happens before the transport: the device must
			// never see an out-of-range command.
			if calls := dev.calls(); len(calls) != 0 {
				t.Errorf("device calls = %v, want none", calls)
			}
		})
	}
}

func TestOutlet_NotANumber(t *testing.T) {
	dev := &mockDevice{}
	srv := testServer(t, dev, "")

	w := doRequest(t, srv, http.MethodGet, "/switch/usb1/on")
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}

	resp := decodeBody(t, w)
	if resp["code"] != ErrCodeBadRequest {
		t.Errorf("code = %v, want %q", resp["code"], ErrCodeBadRequest)
	}
	if calls := dev.calls(); len(calls) != 0 {
		t.Errorf("device calls = %v, want none", calls)
	}
}

// ─── Status Tests ──────────────────────────────────────────────────

func TestStatus_ExactBody(t *testing.T) {
	dev := &mockDevice{states: map[int]bool{1: true, 2: false}}
	srv := testServer(t, dev, "")

	w := doRequest(t, srv, http.MethodGet, "/status")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}

	// The body is the bare outlet map, nothing wrapped around it.
	if got := strings.TrimSpace(w.Body.String()); got != `{"1":true,"2":false}` {
		t.Errorf("body = %s, want {\"1\":true,\"2\":false}", got)
	}
}

func TestSockets_Listing(t *testing.T) {
	dev := &mockDevice{states: map[int]bool{2: false, 1: true}}
	srv := testServer(t, dev, "")

	w := doRequest(t, srv, http.MethodGet, "/sockets")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}

	resp := decodeBody(t, w)
	if resp["device"] != "Socket Kamar Tidur" {
		t.Errorf("device = %v, want Socket Kamar Tidur", resp["device"])
	}
	if resp["count"] != float64(2) {
		t.Errorf("count = %v, want 2", resp["count"])
	}

	sockets, ok := resp["sockets"].([]any)
	if !ok || len(sockets) != 2 {
		t.Fatalf("sockets = %v, want two entries", resp["sockets"])
	}

	first, ok := sockets[0].(map[string]any)
	if !ok {
		t.Fatalf("socket entry type = %T", sockets[0])
	}
	if first["outlet"] != float64(1) || first["code"] != "switch_1" || first["on"] != true {
		t.Errorf("first entry = %v, want outlet 1 switch_1 on", first)
	}
}

// ─── Error Mapping Tests ───────────────────────────────────────────

func TestCommand_DeviceUnreachable(t *testing.T) {
	dev := &mockDevice{setErr: fmt.Errorf("%w: connection refused", tuya.ErrDeviceUnreachable)}
	srv := testServer(t, dev, "")

	w := doRequest(t, srv, http.MethodGet, "/on")
	if w.Code != http.StatusBadGateway {
		t.Errorf("status = %d, want %d", w.Code, http.StatusBadGateway)
	}

	resp := decodeBody(t, w)
	if resp["code"] != ErrCodeDeviceUnreachable {
		t.Errorf("code = %v, want %q", resp["code"], ErrCodeDeviceUnreachable)
	}
	msg, _ := resp["message"].(string)
	if !strings.Contains(msg, "connection refused") {
		t.Errorf("message = %q, want the underlying cause passed through", msg)
	}
}

func TestCommand_DeviceTimeout(t *testing.T) {
	dev := &mockDevice{setErr: fmt.Errorf("%w after 5s", tuya.ErrCommandTimeout)}
	srv := testServer(t, dev, "")

	w := doRequest(t, srv, http.MethodGet, "/switch/1/on")
	if w.Code != http.StatusGatewayTimeout {
		t.Errorf("status = %d, want %d", w.Code, http.StatusGatewayTimeout)
	}

	resp := decodeBody(t, w)
	if resp["code"] != ErrCodeDeviceTimeout {
		t.Errorf("code = %v, want %q", resp["code"], ErrCodeDeviceTimeout)
	}
}

func TestCommand_VendorError(t *testing.T) {
	dev := &mockDevice{setErr: &tuya.APIError{Code: 1106, Msg: "permission deny"}}
	srv := testServer(t, dev, "")

	w := doRequest(t, srv, http.MethodGet, "/on")
	if w.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want %d", w.Code, http.StatusInternalServerError)
	}

	resp := decodeBody(t, w)
	if resp["code"] != ErrCodeDeviceError {
		t.Errorf("code = %v, want %q", resp["code"], ErrCodeDeviceError)
	}
	msg, _ := resp["message"].(string)
	if !strings.Contains(msg, "permission deny") {
		t.Errorf("message = %q, want the vendor message passed through", msg)
	}
}

func TestStatus_DeviceError(t *testing.T) {
	dev := &mockDevice{statusErr: fmt.Errorf("%w: dial tcp: i/o timeout", tuya.ErrDeviceUnreachable)}
	srv := testServer(t, dev, "")

	w := doRequest(t, srv, http.MethodGet, "/status")
	if w.Code != http.StatusBadGateway {
		t.Errorf("status = %d, want %d", w.Code, http.StatusBadGateway)
	}
}

// ─── Middleware Tests ──────────────────────────────────────────────

func TestRequestID_Generated(t *testing.T) {
	srv := testServer(t, &mockDevice{}, "")

	w := doRequest(t, srv, http.MethodGet, "/health")
	if w.Header().Get("X-Request-ID") == "" {
		t.Error("expected X-Request-ID header to be set")
	}
}

func TestRequestID_PreservesClient(t *testing.T) {
	srv := testServer(t, &mockDevice{}, "")

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("X-Request-ID", "client-123")
	w := httptest.NewRecorder()
	srv.buildRouter().ServeHTTP(w, req)

	if got := w.Header().Get("X-Request-ID"); got != "client-123" {
		t.Errorf("X-Request-ID = %q, want client-123", got)
	}
}

func TestCORS_Preflight(t *testing.T) {
	srv := testServer(t, &mockDevice{}, "")

	req := httptest.NewRequest(http.MethodOptions, "/on", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	w := httptest.NewRecorder()
	srv.buildRouter().ServeHTTP(w, req)

	if w.Code != http.StatusNoContent {
		t.Errorf("preflight status = %d, want %d", w.Code, http.StatusNoContent)
	}
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:3000" {
		t.Errorf("Access-Control-Allow-Origin = %q, want the origin echoed", got)
	}
}

func TestMethodNotAllowed(t *testing.T) {
	srv := testServer(t, &mockDevice{}, "")

	w := doRequest(t, srv, http.MethodPut, "/on")
	if w.Code != http.StatusMethodNotAllowed {
		t.Errorf("PUT /on status = %d, want %d", w.Code, http.StatusMethodNotAllowed)
	}
}

func TestUnknownRoute(t *testing.T) {
	srv := testServer(t, &mockDevice{}, "")

	w := doRequest(t, srv, http.MethodGet, "/nope")
	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d", w.Code, http.StatusNotFound)
	}
}

// ─── Events Route Tests ────────────────────────────────────────────

func TestEventsRoute_RequiresUpgrade(t *testing.T) {
	srv := testServer(t, &mockDevice{}, "")

	// A plain GET without upgrade headers is rejected by the upgrader,
	// not by the router: the route itself must exist.
	w := doRequest(t, srv, http.MethodGet, "/events")
	if w.Code == http.StatusNotFound {
		t.Error("GET /events returned 404, want the websocket route mounted")
	}
}

// ─── Metrics Tests ─────────────────────────────────────────────────

type stubReporter struct{ connected bool }

func (s stubReporter) IsConnected() bool { return s.connected }

func TestMetrics(t *testing.T) {
	srv := testServer(t, &mockDevice{}, "")
	srv.mqtt = stubReporter{connected: true}

	w := doRequest(t, srv, http.MethodGet, "/metrics")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}

	var metrics SystemMetrics
	if err := json.Unmarshal(w.Body.Bytes(), &metrics); err != nil {
		t.Fatalf("unmarshal metrics: %v", err)
	}

	if metrics.Version != "test" {
		t.Errorf("version = %q, want test", metrics.Version)
	}
	if metrics.Runtime.Goroutines <= 0 {
		t.Errorf("goroutines = %d, want > 0", metrics.Runtime.Goroutines)
	}
	if metrics.Device.Outlets != 2 {
		t.Errorf("outlets = %d, want 2", metrics.Device.Outlets)
	}
	if metrics.MQTT == nil || !metrics.MQTT.Connected {
		t.Errorf("mqtt metrics = %+v, want connected", metrics.MQTT)
	}
	if metrics.InfluxDB != nil {
		t.Errorf("influxdb metrics = %+v, want omitted when not wired", metrics.InfluxDB)
	}
}

// ─── Concurrency Tests ─────────────────────────────────────────────

func TestConcurrentCommands(t *testing.T) {
	dev := &mockDevice{delay: 2 * time.Millisecond}
	srv := testServer(t, dev, "")
	router := srv.buildRouter()

	// Commands are not serialised against each other; the device applies
	// them in arrival order and the last write wins. All requests must
	// succeed, and the final state must match whichever write completed
	// last, on or off.
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(on bool) {
			defer wg.Done()
			path := "/switch/1/off"
			if on {
				path = "/switch/1/on"
			}
			req := httptest.NewRequest(http.MethodGet, path, nil)
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)
			if w.Code != http.StatusOK {
				t.Errorf("concurrent command status = %d, want %d", w.Code, http.StatusOK)
			}
		}(i%2 == 0)
	}
	wg.Wait()

	calls := dev.calls()
	if len(calls) != 10 {
		t.Fatalf("device calls = %d, want 10", len(calls))
	}
	last := calls[len(calls)-1]

	req := httptest.NewRequest(http.MethodGet, "/status", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}

	var states map[string]bool
	if err := json.Unmarshal(w.Body.Bytes(), &states); err != nil {
		t.Fatalf("unmarshal status: %v", err)
	}
	if states["1"] != last.on {
		t.Errorf("outlet 1 = %v, want %v (last completed write)", states["1"], last.on)
	}
}
