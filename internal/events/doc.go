// Package events streams daemon activity to WebSocket clients.
//
// A single Hub owns every connection. Clients subscribe to named
// channels and receive JSON event envelopes; everything else on the
// socket is the small subscribe/unsubscribe/ping protocol. Broadcasts
// never block: a slow client misses events rather than stalling the
// daemon.
//
// Channels:
//   - device.command: every switch command the device accepted
//   - device.connectivity: online/offline transitions from the monitor
//   - device.state: outlet changes the device reported on its own
//     (local transport state pushes)
//   - battery.action: charger toggles from the battery manager
//
// The HTTP endpoint is mounted by the api package; the hub only deals
// in upgraded connections.
package events
