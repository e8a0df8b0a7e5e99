// Package power reads host battery state from the Linux kernel's
// power-supply class.
//
// The battery manager needs two facts each tick: the charge percentage
// and whether the charger is currently delivering power. Both come from
// /sys/class/power_supply: percent from the battery's capacity file,
// plugged from a mains supply's online flag, falling back to the battery
// status when no mains entry exists (common on desktops exposing only
// the UPS battery).
//
// The sysfs root is injectable so tests run against a fabricated tree.
package power
