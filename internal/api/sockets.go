package api

import (
	"net/http"
	"sort"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/tuya-socket/internal/tuya"
)

// Endpoint describes one route in the service index.
type Endpoint struct {
	URL    string `json:"url"`
	Method string `json:"method"`
	Desc   string `json:"desc"`
}

// handleIndex returns the service index: device identity plus the
// endpoint catalogue, so hitting the root with a browser tells you
// everything the daemon can do.
func (s *Server) handleIndex(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"device":  s.deviceName,
		"id":      s.deviceID,
		"outlets": s.sockets.Outlets(),
		"endpoints": []Endpoint{
			{URL: "/on", Method: "GET/POST", Desc: "Turn master switch on"},
			{URL: "/off", Method: "GET/POST", Desc: "Turn master switch off"},
			{URL: "/switch/{outlet}/on", Method: "GET/POST", Desc: "Turn a specific outlet on"},
			{URL: "/switch/{outlet}/off", Method: "GET/POST", Desc: "Turn a specific outlet off"},
			{URL: "/status", Method: "GET", Desc: "Outlet state map"},
			{URL: "/sockets", Method: "GET", Desc: "Per-outlet listing with switch codes"},
			{URL: "/health", Method: "GET", Desc: "Server health"},
			{URL: "/metrics", Method: "GET", Desc: "Runtime metrics"},
			{URL: "/events", Method: "GET", Desc: "WebSocket event stream"},
		},
	})
}

// handleMasterOn turns the master switch on.
func (s *Server) handleMasterOn(w http.ResponseWriter, r *http.Request) {
	s.setMaster(w, r, true)
}

// handleMasterOff turns the master switch off.
func (s *Server) handleMasterOff(w http.ResponseWriter, r *http.Request) {
	s.setMaster(w, r, false)
}

func (s *Server) setMaster(w http.ResponseWriter, r *http.Request, on bool) {
	if err := s.sockets.SetMaster(r.Context(), on); err != nil {
		writeDeviceError(w, err)
		return
	}

	mode, _ := s.sockets.Master()
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"switch": "master",
		"mode":   string(mode),
		"state":  stateWord(on),
	})
}

// handleOutletOn turns a single outlet on.
func (s *Server) handleOutletOn(w http.ResponseWriter, r *http.Request) {
	s.setOutlet(w, r, true)
}

// handleOutletOff turns a single outlet off.
func (s *Server) handleOutletOff(w http.ResponseWriter, r *http.Request) {
	s.setOutlet(w, r, false)
}

func (s *Server) setOutlet(w http.ResponseWriter, r *http.Request, on bool) {
	raw := chi.URLParam(r, "outlet")
	outlet, err := strconv.Atoi(raw)
	if err != nil {
		writeBadRequest(w, "outlet must be a number, got "+strconv.Quote(raw))
		return
	}

	if err := s.sockets.SetOutlet(r.Context(), outlet, on); err != nil {
		writeDeviceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"outlet": outlet,
		"state":  stateWord(on),
	})
}

// handleStatus returns the outlet state map, keyed by outlet number.
//
// The body is exactly the normalized capability result, e.g.
// {"1":true,"2":false}, with no envelope around it.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	states, err := s.sockets.Status(r.Context())
	if err != nil {
		writeDeviceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, states)
}

// SocketInfo describes one outlet in the /sockets listing.
type SocketInfo struct {
	Outlet int    `json:"outlet"`
	Code   string `json:"code"`
	On     bool   `json:"on"`
}

// handleSockets returns a friendly per-outlet listing with the device
// identity and the vendor switch codes.
func (s *Server) handleSockets(w http.ResponseWriter, r *http.Request) {
	states, err := s.sockets.Status(r.Context())
	if err != nil {
		writeDeviceError(w, err)
		return
	}

	sockets := make([]SocketInfo, 0, len(states))
	for outlet, on := range states {
		sockets = append(sockets, SocketInfo{
			Outlet: outlet,
			Code:   tuya.SwitchCode(outlet),
			On:     on,
		})
	}
	sort.Slice(sockets, func(i, j int) bool { return sockets[i].Outlet < sockets[j].Outlet })

	writeJSON(w, http.StatusOK, map[string]any{
		"device":  s.deviceName,
		"id":      s.deviceID,
		"sockets": sockets,
		"count":   len(sockets),
	})
}

func stateWord(on bool) string {
	if on {
		return "on"
	}
	return "off"
}
