// Package netinfo resolves the WiFi network the host is currently on.
//
// The battery manager only toggles the charger when the laptop sits on a
// known home network, so it asks this package for the active SSID each
// tick. Resolution shells out to the standard Linux tools: iwgetid is
// tried first (fast, no daemon required), then nmcli in terse mode for
// NetworkManager hosts where iwgetid is absent or silent.
package netinfo
