package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/urfave/cli/v2"

	"github.com/nerrad567/tuya-socket/internal/socket"
	"github.com/nerrad567/tuya-socket/internal/tuya"
)

type switchCall struct {
	outlet int
	on     bool
}

// fakeDevice stands in for the cloud transport.
type fakeDevice struct {
	states    map[int]bool
	info      tuya.DeviceInfo
	raw       []tuya.DataPoint
	online    bool
	setErr    error
	infoErr   error
	statusErr error
	calls     []switchCall
}

func (f *fakeDevice) SetSwitch(_ context.Context, outlet int, on bool) error {
	f.calls = append(f.calls, switchCall{outlet: outlet, on: on})
	if f.setErr != nil {
		return f.setErr
	}
	if f.states == nil {
		f.states = make(map[int]bool)
	}
	f.states[outlet] = on
	return nil
}

func (f *fakeDevice) Status(context.Context) (map[int]bool, error) {
	if f.statusErr != nil {
		return nil, f.statusErr
	}
	return f.states, nil
}

func (f *fakeDevice) RawStatus(context.Context) ([]tuya.DataPoint, error) {
	if f.statusErr != nil {
		return nil, f.statusErr
	}
	return f.raw, nil
}

func (f *fakeDevice) Info(context.Context) (*tuya.DeviceInfo, error) {
	if f.infoErr != nil {
		return nil, f.infoErr
	}
	info := f.info
	return &info, nil
}

func (f *fakeDevice) Online(context.Context) (bool, error) {
	if f.infoErr != nil {
		return false, f.infoErr
	}
	return f.online, nil
}

func testDispatcher(t *testing.T, dev socket.Controller, mode string) *socket.Dispatcher {
	t.Helper()
	d, err := socket.New(socket.Options{
		Controller:   dev,
		Outlets:      2,
		MasterMode:   mode,
		MasterOutlet: 1,
	})
	if err != nil {
		t.Fatalf("building dispatcher: %v", err)
	}
	return d
}

func wantExitCode(t *testing.T, err error, code int) {
	t.Helper()
	if err == nil {
		t.Fatal("expected an error")
	}
	var coder cli.ExitCoder
	if !errors.As(err, &coder) {
		t.Fatalf("expected a cli exit error, got %T: %v", err, err)
	}
	if coder.ExitCode() != code {
		t.Fatalf("exit code = %d, want %d (%v)", coder.ExitCode(), code, err)
	}
}

func TestRunStatus(t *testing.T) {
	dev := &fakeDevice{
		states: map[int]bool{1: true, 2: false},
		info: tuya.DeviceInfo{
			ID:     "eb03bbe4df01c1351aaxjz",
			Name:   "Socket Kamar Tidur",
			Online: true,
		},
	}

	var buf bytes.Buffer
	if err := runStatus(context.Background(), &buf, dev); err != nil {
		t.Fatalf("runStatus: %v", err)
	}

	want := "Device: Socket Kamar Tidur (eb03bbe4df01c1351aaxjz)\n" +
		"Online: yes\n" +
		"S1: ON\n" +
		"S2: OFF\n"
	if buf.String() != want {
		t.Fatalf("output = %q, want %q", buf.String(), want)
	}
}

func TestRunStatus_DeviceError(t *testing.T) {
	dev := &fakeDevice{infoErr: tuya.ErrDeviceUnreachable}

	err := runStatus(context.Background(), &bytes.Buffer{}, dev)
	wantExitCode(t, err, exitDevice)
}

func TestRunMaster_OutletMode(t *testing.T) {
	dev := &fakeDevice{}
	sockets := testDispatcher(t, dev, "outlet")

	var buf bytes.Buffer
	if err := runMaster(context.Background(), &buf, sockets, true); err != nil {
		t.Fatalf("runMaster: %v", err)
	}

	if len(dev.calls) != 1 || dev.calls[0] != (switchCall{outlet: 1, on: true}) {
		t.Fatalf("calls = %v, want single call for outlet 1 on", dev.calls)
	}
	if got := buf.String(); got != "Master switch on\n" {
		t.Fatalf("output = %q", got)
	}
}

func TestRunMaster_AllMode(t *testing.T) {
	dev := &fakeDevice{}
	sockets := testDispatcher(t, dev, "all")

	if err := runMaster(context.Background(), &bytes.Buffer{}, sockets, false); err != nil {
		t.Fatalf("runMaster: %v", err)
	}

	want := []switchCall{{outlet: 1, on: false}, {outlet: 2, on: false}}
	if len(dev.calls) != len(want) {
		t.Fatalf("calls = %v, want %v", dev.calls, want)
	}
	for i, c := range want {
		if dev.calls[i] != c {
			t.Fatalf("call %d = %v, want %v", i, dev.calls[i], c)
		}
	}
}

func TestRunMaster_DeviceFailure(t *testing.T) {
	dev := &fakeDevice{setErr: tuya.ErrDeviceUnreachable}
	sockets := testDispatcher(t, dev, "outlet")

	err := runMaster(context.Background(), &bytes.Buffer{}, sockets, true)
	wantExitCode(t, err, exitDevice)
}

func TestRunSwitch(t *testing.T) {
	dev := &fakeDevice{}
	sockets := testDispatcher(t, dev, "outlet")

	var buf bytes.Buffer
	if err := runSwitch(context.Background(), &buf, sockets, []string{"2", "on"}); err != nil {
		t.Fatalf("runSwitch: %v", err)
	}

	if len(dev.calls) != 1 || dev.calls[0] != (switchCall{outlet: 2, on: true}) {
		t.Fatalf("calls = %v, want single call for outlet 2 on", dev.calls)
	}
	if got := buf.String(); got != "Outlet 2 on\n" {
		t.Fatalf("output = %q", got)
	}
}

func TestRunSwitch_UsageErrors(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{name: "no args", args: nil},
		{name: "missing state", args: []string{"1"}},
		{name: "extra args", args: []string{"1", "on", "now"}},
		{name: "outlet not a number", args: []string{"usb1", "on"}},
		{name: "bad state word", args: []string{"1", "maybe"}},
		{name: "outlet out of range", args: []string{"9", "on"}},
		{name: "outlet zero", args: []string{"0", "off"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dev := &fakeDevice{}
			sockets := testDispatcher(t, dev, "outlet")

			err := runSwitch(context.Background(), &bytes.Buffer{}, sockets, tt.args)
			wantExitCode(t, err, exitUsage)
			if len(dev.calls) != 0 {
				t.Fatalf("device was called for invalid input: %v", dev.calls)
			}
		})
	}
}

func TestRunSwitch_DeviceFailure(t *testing.T) {
	dev := &fakeDevice{setErr: tuya.ErrCommandTimeout}
	sockets := testDispatcher(t, dev, "outlet")

	err := runSwitch(context.Background(), &bytes.Buffer{}, sockets, []string{"1", "off"})
	wantExitCode(t, err, exitDevice)
}

func TestRunLocalInfo(t *testing.T) {
	dev := &fakeDevice{
		info: tuya.DeviceInfo{
			ID:       "eb03bbe4df01c1351aaxjz",
			LocalKey: "k9#mPz2@qLx5",
			IP:       "192.168.1.54",
		},
	}

	var buf bytes.Buffer
	if err := runLocalInfo(context.Background(), &buf, dev, "eb03bbe4df01c1351aaxjz"); err != nil {
		t.Fatalf("runLocalInfo: %v", err)
	}

	out := buf.String()
	for _, line := range []string{
		"--- Fetching local key for eb03bbe4df01c1351aaxjz ---",
		"Found local key: k9#mPz2@qLx5",
		"--- SUCCESS ---",
		"TUYA_LOCAL_KEY=k9#mPz2@qLx5",
		"TUYA_DEVICE_IP=192.168.1.54",
		"USE_LOCAL=true",
	} {
		if !strings.Contains(out, line) {
			t.Fatalf("output missing %q:\n%s", line, out)
		}
	}
}

func TestRunLocalInfo_NoKey(t *testing.T) {
	dev := &fakeDevice{info: tuya.DeviceInfo{ID: "dev"}}

	err := runLocalInfo(context.Background(), &bytes.Buffer{}, dev, "dev")
	wantExitCode(t, err, exitDevice)
}

func TestRunLocalInfo_NoIP(t *testing.T) {
	dev := &fakeDevice{info: tuya.DeviceInfo{ID: "dev", LocalKey: "secret"}}

	var buf bytes.Buffer
	if err := runLocalInfo(context.Background(), &buf, dev, "dev"); err != nil {
		t.Fatalf("runLocalInfo: %v", err)
	}

	out := buf.String()
	if !strings.Contains(out, "router's client list") {
		t.Fatalf("expected a hint about the missing IP:\n%s", out)
	}
	if !strings.Contains(out, "TUYA_DEVICE_IP=\n") {
		t.Fatalf("expected an empty TUYA_DEVICE_IP line:\n%s", out)
	}
}

func TestRunDebug(t *testing.T) {
	dev := &fakeDevice{
		info: tuya.DeviceInfo{
			ID:       "eb03bbe4df01c1351aaxjz",
			Name:     "Socket Kamar Tidur",
			LocalKey: "secret",
		},
		raw: []tuya.DataPoint{
			{Code: "switch_1", Value: true},
			{Code: "switch_2", Value: false},
		},
		online: true,
	}

	var buf bytes.Buffer
	if err := runDebug(context.Background(), &buf, dev, "eb03bbe4df01c1351aaxjz"); err != nil {
		t.Fatalf("runDebug: %v", err)
	}

	out := buf.String()
	for _, want := range []string{
		"--- Device detail for eb03bbe4df01c1351aaxjz ---",
		`"name": "Socket Kamar Tidur"`,
		"--- Data points ---",
		`"code": "switch_1"`,
		"Connection status: yes",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("output missing %q:\n%s", want, out)
		}
	}
}

func TestResolveSetup_Env(t *testing.T) {
	t.Setenv("TUYA_API_KEY", "env-key")
	t.Setenv("TUYA_API_SECRET", "env-secret")
	t.Setenv("TUYA_API_REGION", "eu")
	t.Setenv("TUYA_DEVICE_ID", "env-device")

	s, err := resolveSetup("")
	if err != nil {
		t.Fatalf("resolveSetup: %v", err)
	}
	if s.tuya.APIKey != "env-key" || s.tuya.Region != "eu" {
		t.Fatalf("unexpected tuya config: %+v", s.tuya)
	}
	if s.deviceID != "env-device" {
		t.Fatalf("deviceID = %q", s.deviceID)
	}
	if s.outlets != 2 || s.masterMode != "outlet" || s.masterOutlet != 1 {
		t.Fatalf("unexpected outlet layout: %+v", s)
	}
}

func TestResolveSetup_MissingCredentials(t *testing.T) {
	t.Setenv("TUYA_API_KEY", "")
	t.Setenv("TUYA_API_SECRET", "")

	if _, err := resolveSetup(""); err == nil {
		t.Fatal("expected an error without cloud credentials")
	}
}

func TestResolveSetup_ConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
device:
  id: file-device
  outlets: 3
  master:
    mode: all
tuya:
  region: eu
  api_key: file-key
  api_secret: file-secret
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("writing config: %v", err)
	}

	// Blank out the env overrides so the file's values win.
	t.Setenv("TUYA_DEVICE_ID", "")
	t.Setenv("TUYA_API_KEY", "")
	t.Setenv("TUYA_API_SECRET", "")
	t.Setenv("TUYA_API_REGION", "")
	t.Setenv("USE_LOCAL", "")

	s, err := resolveSetup(path)
	if err != nil {
		t.Fatalf("resolveSetup: %v", err)
	}
	if s.deviceID != "file-device" {
		t.Fatalf("deviceID = %q", s.deviceID)
	}
	if s.outlets != 3 || s.masterMode != "all" {
		t.Fatalf("unexpected outlet layout: %+v", s)
	}
	if s.tuya.APIKey != "file-key" {
		t.Fatalf("api key = %q", s.tuya.APIKey)
	}
}

func TestParseState(t *testing.T) {
	if on, err := parseState("on"); err != nil || !on {
		t.Fatalf("parseState(on) = %v, %v", on, err)
	}
	if on, err := parseState("off"); err != nil || on {
		t.Fatalf("parseState(off) = %v, %v", on, err)
	}
	if _, err := parseState("toggle"); err == nil {
		t.Fatal("expected an error for an unknown state word")
	}
}
