// Package tuya provides the two transports for talking to the power socket.
//
// Cloud sends commands through the vendor's OpenAPI using the official
// connector SDK. Local relays commands over MQTT to a LAN agent that
// speaks the device's native protocol, keeping the daemon free of the
// vendor's encryption details.
//
// Both transports expose the same surface: SetSwitch pushes one outlet
// state, Status reads every outlet back as a map keyed by outlet number.
// The transport is chosen once at construction and never switched at
// runtime.
//
// # Usage
//
//	ctrl, err := tuya.NewCloud(cfg.Tuya, cfg.Device.ID)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	err = ctrl.SetSwitch(ctx, 1, true)
//
// Errors worth branching on:
//
//	errors.Is(err, tuya.ErrDeviceUnreachable)  // transport failure
//	errors.Is(err, tuya.ErrCommandTimeout)     // relay ack missed
//
// Everything else carries the vendor's own failure message, usually as
// an *APIError.
package tuya
