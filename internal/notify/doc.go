// Package notify delivers operational notifications to the desktop and
// to MQTT subscribers.
//
// A single Send fans out to every enabled channel:
//   - Desktop: notify-send via exec, with the configured application name
//     and urgency. Disabled automatically when the binary is absent.
//   - MQTT: a JSON message on the shared notification topic, for phones,
//     dashboards, or other daemons listening on the broker.
//
// Delivery is best-effort. A failed channel is logged and never blocks
// the caller; the monitor and battery manager keep running regardless of
// whether anyone saw the notification.
//
// Example usage:
//
//	notifier := notify.New(notify.Options{
//	    Desktop:   true,
//	    AppName:   "tuya-app",
//	    Publisher: mqttClient,
//	    QoS:       1,
//	})
//	notifier.Send(ctx, notify.UrgencyCritical, "Device Offline",
//	    "Socket Kamar Tidur stopped responding")
package notify
