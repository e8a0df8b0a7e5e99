package tuya

import (
	"strconv"
	"strings"
)

// DataPoint is one code/value pair from a device status report.
// For a power strip the interesting codes are switch_1, switch_2, ...
// but devices also report countdowns, USB ports and metering codes.
type DataPoint struct {
	Code  string      `json:"code"`
	Value interface{} `json:"value"`
}

// Command instructs the device to set one data point.
type Command struct {
	Code  string      `json:"code"`
	Value interface{} `json:"value"`
}

// commandPayload is the body of POST /v1.0/devices/{id}/commands and of
// relayed local commands.
type commandPayload struct {
	Commands []Command `json:"commands"`
}

// DeviceInfo is the device detail document from GET /v1.0/devices/{id}.
// LocalKey and IP are what a LAN relay agent needs to connect directly.
type DeviceInfo struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Online    bool   `json:"online"`
	IP        string `json:"ip"`
	LocalKey  string `json:"local_key"`
	Category  string `json:"category"`
	ProductID string `json:"product_id"`
	TimeZone  string `json:"time_zone"`
}

// SwitchCode returns the vendor data point code for an outlet.
//
// Example: SwitchCode(2) == "switch_2"
func SwitchCode(outlet int) string {
	return "switch_" + strconv.Itoa(outlet)
}

// ParseSwitchCode extracts the outlet number from a data point code.
// Codes without a positive numeric suffix (switch, switch_usb1,
// countdown_1) report ok=false.
func ParseSwitchCode(code string) (int, bool) {
	suffix, found := strings.CutPrefix(code, "switch_")
	if !found {
		return 0, false
	}
	n, err := strconv.Atoi(suffix)
	if err != nil || n < 1 {
		return 0, false
	}
	return n, true
}

// SwitchStates filters a data point report down to outlet on/off states.
// Non-switch codes and non-boolean values are skipped.
func SwitchStates(points []DataPoint) map[int]bool {
	states := make(map[int]bool)
	for _, dp := range points {
		outlet, ok := ParseSwitchCode(dp.Code)
		if !ok {
			continue
		}
		on, ok := dp.Value.(bool)
		if !ok {
			continue
		}
		states[outlet] = on
	}
	return states
}
