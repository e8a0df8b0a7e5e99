package netinfo

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// commandTimeout bounds one tool invocation.
const commandTimeout = 5 * time.Second

// ErrNoWiFi indicates the host has no active WiFi association.
var ErrNoWiFi = errors.New("netinfo: no active wifi connection")

// Resolver reports the currently associated WiFi network.
type Resolver interface {
	SSID(ctx context.Context) (string, error)
}

// CommandResolver resolves the SSID via the system WiFi tools.
type CommandResolver struct {
	// run executes a tool; replaced in tests.
	run func(ctx context.Context, name string, args ...string) ([]byte, error)
}

// NewCommandResolver creates a Resolver backed by iwgetid and nmcli.
func NewCommandResolver() *CommandResolver {
	return &CommandResolver{run: runCommand}
}

// SSID returns the active network name.
//
// iwgetid -r prints the SSID bare and exits non-zero when unassociated.
// When it fails or prints nothing, nmcli -t lists connections as
// "yes:<ssid>" rows. No row and no tool output means no WiFi.
func (r *CommandResolver) SSID(ctx context.Context) (string, error) {
	if ssid, ok := r.fromIwgetid(ctx); ok {
		return ssid, nil
	}
	return r.fromNmcli(ctx)
}

func (r *CommandResolver) fromIwgetid(ctx context.Context) (string, bool) {
	execCtx, cancel := context.WithTimeout(ctx, commandTimeout)
	defer cancel()

	output, err := r.run(execCtx, "iwgetid", "-r")
	if err != nil {
		return "", false
	}

	ssid := strings.TrimSpace(string(output))
	return ssid, ssid != ""
}

func (r *CommandResolver) fromNmcli(ctx context.Context) (string, error) {
	execCtx, cancel := context.WithTimeout(ctx, commandTimeout)
	defer cancel()

	output, err := r.run(execCtx, "nmcli", "-t", "-f", "active,ssid", "dev", "wifi")
	if err != nil {
		return "", fmt.Errorf("netinfo: resolving ssid: %w", err)
	}

	for _, line := range strings.Split(string(output), "\n") {
		rest, ok := strings.CutPrefix(strings.TrimSpace(line), "yes:")
		if !ok {
			continue
		}
		// Terse mode escapes colons inside values.
		ssid := strings.ReplaceAll(rest, `\:`, ":")
		if ssid != "" {
			return ssid, nil
		}
	}

	return "", ErrNoWiFi
}

// runCommand executes a tool and returns combined output.
func runCommand(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	return cmd.CombinedOutput()
}
