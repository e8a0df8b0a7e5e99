package socket

import (
	"context"
	"errors"
	"reflect"
	"sync"
	"testing"
)

// setCall records one SetSwitch invocation on the mock controller.
type setCall struct {
	outlet int
	on     bool
}

// mockController implements Controller with canned state and error injection.
type mockController struct {
	mu       sync.Mutex
	setCalls []setCall
	setErr   error
	// setErrOn limits setErr to one outlet (0 = every call).
	setErrOn int

	status    map[int]bool
	statusErr error
}

func (m *mockController) SetSwitch(_ context.Context, outlet int, on bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.setCalls = append(m.setCalls, setCall{outlet, on})
	if m.setErr != nil && (m.setErrOn == 0 || m.setErrOn == outlet) {
		return m.setErr
	}
	return nil
}

func (m *mockController) Status(_ context.Context) (map[int]bool, error) {
	if m.statusErr != nil {
		return nil, m.statusErr
	}
	return m.status, nil
}

func (m *mockController) calls() []setCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]setCall(nil), m.setCalls...)
}

// recordingSink implements EventSink.
type recordingSink struct {
	mu     sync.Mutex
	events []setCall
}

func (s *recordingSink) CommandApplied(outlet int, on bool) {
	s.mu.Lock()
	s.events = append(s.events, setCall{outlet, on})
	s.mu.Unlock()
}

func newDispatcher(t *testing.T, ctrl Controller, outlets int, mode string, masterOutlet int) *Dispatcher {
	t.Helper()
	d, err := New(Options{
		Controller:   ctrl,
		Outlets:      outlets,
		MasterMode:   mode,
		MasterOutlet: masterOutlet,
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return d
}

func TestNew_Validation(t *testing.T) {
	ctrl := &mockController{}

	tests := []struct {
		name    string
		opts    Options
		wantErr bool
	}{
		{
			name:    "valid outlet mode",
			opts:    Options{Controller: ctrl, Outlets: 2, MasterMode: "outlet", MasterOutlet: 1},
			wantErr: false,
		},
		{
			name:    "valid all mode",
			opts:    Options{Controller: ctrl, Outlets: 2, MasterMode: "all"},
			wantErr: false,
		},
		{
			name:    "missing controller",
			opts:    Options{Outlets: 2, MasterMode: "all"},
			wantErr: true,
		},
		{
			name:    "zero outlets",
			opts:    Options{Controller: ctrl, Outlets: 0, MasterMode: "all"},
			wantErr: true,
		},
		{
			name:    "master outlet out of range",
			opts:    Options{Controller: ctrl, Outlets: 2, MasterMode: "outlet", MasterOutlet: 3},
			wantErr: true,
		},
		{
			name:    "unknown master mode",
			opts:    Options{Controller: ctrl, Outlets: 2, MasterMode: "first"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.opts)
			if (err != nil) != tt.wantErr {
				t.Errorf("New() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestSetOutlet(t *testing.T) {
	ctrl := &mockController{}
	d := newDispatcher(t, ctrl, 2, "outlet", 1)

	if err := d.SetOutlet(context.Background(), 2, true); err != nil {
		t.Fatalf("SetOutlet() error = %v", err)
	}

	calls := ctrl.calls()
	if len(calls) != 1 {
		t.Fatalf("transport saw %d calls, want 1", len(calls))
	}
	if calls[0] != (setCall{2, true}) {
		t.Errorf("transport saw %+v, want outlet 2 on", calls[0])
	}
}

func TestSetOutlet_OutOfRange(t *testing.T) {
	ctrl := &mockController{}
	d := newDispatcher(t, ctrl, 2, "outlet", 1)

	for _, outlet := range []int{0, -1, 3, 99} {
		err := d.SetOutlet(context.Background(), outlet, true)
		if !errors.Is(err, ErrInvalidOutlet) {
			t.Errorf("SetOutlet(%d) error = %v, want ErrInvalidOutlet", outlet, err)
		}
	}

	// The transport was never touched for any of them.
	if calls := ctrl.calls(); len(calls) != 0 {
		t.Errorf("transport saw %d calls for out-of-range outlets, want 0", len(calls))
	}
}

func TestSetOutlet_TransportError(t *testing.T) {
	deviceErr := errors.New("device not responding")
	ctrl := &mockController{setErr: deviceErr}
	d := newDispatcher(t, ctrl, 2, "outlet", 1)

	err := d.SetOutlet(context.Background(), 1, true)
	if !errors.Is(err, deviceErr) {
		t.Errorf("SetOutlet() error = %v, want transport error passed through", err)
	}
}

func TestSetMaster_OutletMode(t *testing.T) {
	ctrl := &mockController{}
	d := newDispatcher(t, ctrl, 2, "outlet", 1)

	if err := d.SetMaster(context.Background(), true); err != nil {
		t.Fatalf("SetMaster() error = %v", err)
	}

	calls := ctrl.calls()
	if len(calls) != 1 {
		t.Fatalf("transport saw %d calls, want 1", len(calls))
	}
	if calls[0] != (setCall{1, true}) {
		t.Errorf("transport saw %+v, want outlet 1 on", calls[0])
	}
}

func TestSetMaster_AllMode(t *testing.T) {
	ctrl := &mockController{}
	d := newDispatcher(t, ctrl, 3, "all", 0)

	if err := d.SetMaster(context.Background(), false); err != nil {
		t.Fatalf("SetMaster() error = %v", err)
	}

	want := []setCall{{1, false}, {2, false}, {3, false}}
	if got := ctrl.calls(); !reflect.DeepEqual(got, want) {
		t.Errorf("transport saw %+v, want %+v", got, want)
	}
}

func TestSetMaster_AllMode_StopsAtFirstFailure(t *testing.T) {
	deviceErr := errors.New("device not responding")
	ctrl := &mockController{setErr: deviceErr, setErrOn: 2}
	d := newDispatcher(t, ctrl, 3, "all", 0)

	err := d.SetMaster(context.Background(), true)
	if !errors.Is(err, deviceErr) {
		t.Fatalf("SetMaster() error = %v, want transport error", err)
	}

	// Outlets 1 and 2 were attempted; 3 was never reached.
	want := []setCall{{1, true}, {2, true}}
	if got := ctrl.calls(); !reflect.DeepEqual(got, want) {
		t.Errorf("transport saw %+v, want %+v", got, want)
	}
}

func TestStatus(t *testing.T) {
	ctrl := &mockController{status: map[int]bool{1: true, 2: false}}
	d := newDispatcher(t, ctrl, 2, "outlet", 1)

	got, err := d.Status(context.Background())
	if err != nil {
		t.Fatalf("Status() error = %v", err)
	}

	want := map[int]bool{1: true, 2: false}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Status() = %v, want %v", got, want)
	}
}

func TestStatus_TransportError(t *testing.T) {
	deviceErr := errors.New("token invalid")
	ctrl := &mockController{statusErr: deviceErr}
	d := newDispatcher(t, ctrl, 2, "outlet", 1)

	_, err := d.Status(context.Background())
	if !errors.Is(err, deviceErr) {
		t.Errorf("Status() error = %v, want transport error passed through", err)
	}
}

func TestEvents_CommandApplied(t *testing.T) {
	ctrl := &mockController{}
	sink := &recordingSink{}
	d, err := New(Options{
		Controller:   ctrl,
		Outlets:      2,
		MasterMode:   "all",
		Events:       sink,
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	if err := d.SetMaster(context.Background(), true); err != nil {
		t.Fatalf("SetMaster() error = %v", err)
	}

	sink.mu.Lock()
	defer sink.mu.Unlock()
	want := []setCall{{1, true}, {2, true}}
	if !reflect.DeepEqual(sink.events, want) {
		t.Errorf("events = %+v, want %+v", sink.events, want)
	}
}

func TestEvents_NotEmittedOnFailure(t *testing.T) {
	ctrl := &mockController{setErr: errors.New("boom")}
	sink := &recordingSink{}
	d, err := New(Options{
		Controller:   ctrl,
		Outlets:      2,
		MasterMode:   "outlet",
		MasterOutlet: 1,
		Events:       sink,
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	d.SetOutlet(context.Background(), 1, true) //nolint:errcheck

	sink.mu.Lock()
	defer sink.mu.Unlock()
	if len(sink.events) != 0 {
		t.Errorf("events emitted on failed command: %+v", sink.events)
	}
}

func TestMaster_Accessors(t *testing.T) {
	ctrl := &mockController{}

	d := newDispatcher(t, ctrl, 4, "outlet", 3)
	mode, outlet := d.Master()
	if mode != MasterOutlet || outlet != 3 {
		t.Errorf("Master() = %v/%d, want outlet/3", mode, outlet)
	}
	if d.Outlets() != 4 {
		t.Errorf("Outlets() = %d, want 4", d.Outlets())
	}

	d = newDispatcher(t, ctrl, 4, "all", 0)
	mode, outlet = d.Master()
	if mode != MasterAll || outlet != 0 {
		t.Errorf("Master() = %v/%d, want all/0", mode, outlet)
	}
}
