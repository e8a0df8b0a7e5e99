package power

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// defaultSysfsRoot is the kernel power-supply class directory.
const defaultSysfsRoot = "/sys/class/power_supply"

// ErrNoBattery indicates no battery supply was found under the sysfs root.
var ErrNoBattery = errors.New("power: no battery found")

// Status is one battery observation.
type Status struct {
	// Percent is the battery charge, 0-100.
	Percent int

	// Plugged reports whether external power is connected.
	Plugged bool
}

// Reader reports host battery state.
type Reader interface {
	Read() (Status, error)
}

// SysfsReader reads battery state from the kernel power-supply tree.
type SysfsReader struct {
	root string
}

// NewSysfsReader creates a Reader over the power-supply tree.
// An empty root selects /sys/class/power_supply.
func NewSysfsReader(root string) *SysfsReader {
	if root == "" {
		root = defaultSysfsRoot
	}
	return &SysfsReader{root: root}
}

// Read scans the supplies once and returns the current battery status.
//
// The first supply of type Battery provides the percentage. Plugged
// state comes from any Mains or USB supply reporting online; with no
// such supply present, a battery status other than Discharging counts
// as plugged.
func (r *SysfsReader) Read() (Status, error) {
	entries, err := os.ReadDir(r.root)
	if err != nil {
		return Status{}, fmt.Errorf("power: reading %s: %w", r.root, err)
	}

	var (
		batteryDir string
		mainsSeen  bool
		mainsOn    bool
	)

	for _, entry := range entries {
		dir := filepath.Join(r.root, entry.Name())

		kind, err := readValue(filepath.Join(dir, "type"))
		if err != nil {
			continue
		}

		switch kind {
		case "Battery":
			if batteryDir == "" {
				batteryDir = dir
			}
		case "Mains", "USB":
			mainsSeen = true
			online, err := readValue(filepath.Join(dir, "online"))
			if err == nil && online == "1" {
				mainsOn = true
			}
		}
	}

	if batteryDir == "" {
		return Status{}, ErrNoBattery
	}

	capacity, err := readValue(filepath.Join(batteryDir, "capacity"))
	if err != nil {
		return Status{}, fmt.Errorf("power: reading capacity: %w", err)
	}
	percent, err := strconv.Atoi(capacity)
	if err != nil {
		return Status{}, fmt.Errorf("power: parsing capacity %q: %w", capacity, err)
	}

	status := Status{Percent: percent, Plugged: mainsOn}

	if !mainsSeen {
		// No AC supply exposed; infer from the battery's own state.
		state, err := readValue(filepath.Join(batteryDir, "status"))
		if err == nil {
			status.Plugged = state != "Discharging"
		}
	}

	return status, nil
}

// readValue returns the trimmed contents of one sysfs attribute.
func readValue(path string) (string, error) {
	data, err := os.ReadFile(path) // #nosec G304 -- paths derive from the configured sysfs root
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}
