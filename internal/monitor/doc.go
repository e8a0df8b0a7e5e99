// Package monitor polls the cloud for device reachability and reports
// transitions.
//
// The Tuya cloud always knows whether the socket's last heartbeat
// arrived, even when commands are routed locally, so the monitor is
// cloud-only. Each successful sample is written to InfluxDB and
// broadcast to WebSocket clients; offline/online transitions raise
// notifications (critical when the device drops away). Poll failures
// are logged and deliberately do not flip the last-known state, so a
// flaky cloud connection cannot fake a device outage.
package monitor
