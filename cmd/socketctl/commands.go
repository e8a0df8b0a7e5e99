package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"

	"github.com/urfave/cli/v2"

	"github.com/nerrad567/tuya-socket/internal/socket"
)

// runStatus prints the device identity, its online flag, and one line
// per outlet.
func runStatus(ctx context.Context, w io.Writer, dev controller) error {
	info, err := dev.Info(ctx)
	if err != nil {
		return commandErr(err)
	}
	states, err := dev.Status(ctx)
	if err != nil {
		return commandErr(err)
	}

	fmt.Fprintf(w, "Device: %s (%s)\n", info.Name, info.ID)
	fmt.Fprintf(w, "Online: %s\n", yesNo(info.Online))

	outlets := make([]int, 0, len(states))
	for n := range states {
		outlets = append(outlets, n)
	}
	sort.Ints(outlets)
	for _, n := range outlets {
		fmt.Fprintf(w, "S%d: %s\n", n, onOff(states[n]))
	}
	return nil
}

// runMaster drives the master switch with the same semantics the
// daemon's /on and /off routes use.
func runMaster(ctx context.Context, w io.Writer, sockets *socket.Dispatcher, on bool) error {
	if err := sockets.SetMaster(ctx, on); err != nil {
		return commandErr(err)
	}
	fmt.Fprintf(w, "Master switch %s\n", stateWord(on))
	return nil
}

// runSwitch drives a single outlet: socketctl switch <outlet> <on|off>.
func runSwitch(ctx context.Context, w io.Writer, sockets *socket.Dispatcher, args []string) error {
	if len(args) != 2 {
		return cli.Exit("Usage: socketctl switch <outlet> <on|off>", exitUsage)
	}
	outlet, err := strconv.Atoi(args[0])
	if err != nil {
		return cli.Exit(fmt.Sprintf("Error: outlet must be a number, got %q", args[0]), exitUsage)
	}
	on, err := parseState(args[1])
	if err != nil {
		return cli.Exit(fmt.Sprintf("Error: %v", err), exitUsage)
	}

	if err := sockets.SetOutlet(ctx, outlet, on); err != nil {
		return commandErr(err)
	}
	fmt.Fprintf(w, "Outlet %d %s\n", outlet, stateWord(on))
	return nil
}

// runLocalInfo pulls the device detail from the cloud and prints the
// environment lines needed to flip the daemon into local mode.
func runLocalInfo(ctx context.Context, w io.Writer, dev controller, deviceID string) error {
	fmt.Fprintf(w, "--- Fetching local key for %s ---\n", deviceID)

	info, err := dev.Info(ctx)
	if err != nil {
		return commandErr(err)
	}
	if info.LocalKey == "" {
		return cli.Exit("Error: the cloud record carries no local key for this device", exitDevice)
	}
	fmt.Fprintf(w, "Found local key: %s\n", info.LocalKey)
	if info.IP == "" {
		fmt.Fprintln(w, "The cloud record has no IP address; check your router's client list.")
	}

	fmt.Fprintln(w, "--- SUCCESS ---")
	fmt.Fprintln(w, "Update your environment with:")
	fmt.Fprintln(w)
	fmt.Fprintf(w, "TUYA_LOCAL_KEY=%s\n", info.LocalKey)
	fmt.Fprintf(w, "TUYA_DEVICE_IP=%s\n", info.IP)
	fmt.Fprintln(w, "USE_LOCAL=true")
	return nil
}

// runDebug dumps the raw cloud responses for troubleshooting.
func runDebug(ctx context.Context, w io.Writer, dev controller, deviceID string) error {
	info, err := dev.Info(ctx)
	if err != nil {
		return commandErr(err)
	}
	raw, err := dev.RawStatus(ctx)
	if err != nil {
		return commandErr(err)
	}
	online, err := dev.Online(ctx)
	if err != nil {
		return commandErr(err)
	}

	fmt.Fprintf(w, "--- Device detail for %s ---\n", deviceID)
	if err := printJSON(w, info); err != nil {
		return err
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, "--- Data points ---")
	if err := printJSON(w, raw); err != nil {
		return err
	}
	fmt.Fprintln(w)
	fmt.Fprintf(w, "Connection status: %s\n", yesNo(online))
	return nil
}

func printJSON(w io.Writer, v interface{}) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return cli.Exit(fmt.Sprintf("Error: encoding response: %v", err), exitDevice)
	}
	fmt.Fprintln(w, string(out))
	return nil
}

// commandErr maps device failures to exit codes: bad outlet numbers
// are usage errors, everything else is a device failure.
func commandErr(err error) error {
	if errors.Is(err, socket.ErrInvalidOutlet) {
		return cli.Exit(fmt.Sprintf("Error: %v", err), exitUsage)
	}
	return cli.Exit(fmt.Sprintf("Error: %v", err), exitDevice)
}

func parseState(s string) (bool, error) {
	switch s {
	case "on":
		return true, nil
	case "off":
		return false, nil
	}
	return false, fmt.Errorf("state must be \"on\" or \"off\", got %q", s)
}

func stateWord(on bool) string {
	if on {
		return "on"
	}
	return "off"
}

func onOff(on bool) string {
	if on {
		return "ON"
	}
	return "OFF"
}

func yesNo(v bool) string {
	if v {
		return "yes"
	}
	return "no"
}
