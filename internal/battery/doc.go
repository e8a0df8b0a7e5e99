// Package battery keeps a laptop battery between two charge thresholds
// by toggling the smart socket outlet its charger is plugged into.
//
// Each tick the manager resolves the active WiFi network, and only acts
// when the host is on an allowlisted SSID; controlling a charger that
// is plugged in somewhere else would switch a stranger's outlet. It
// then reads the host battery and applies the thresholds: at or above
// the maximum while still plugged the outlet is switched off on every
// tick until power actually drops (enforcement), below the minimum
// while unplugged it is switched on once.
//
// Commands go through the same dispatcher as the HTTP API, so outlet
// validation and event emission behave identically. Failed commands
// raise a critical notification and are retried on the next tick.
package battery
