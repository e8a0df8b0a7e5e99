package events

// Broadcast channels.
const (
	// ChannelDeviceCommand carries CommandEvent payloads.
	ChannelDeviceCommand = "device.command"

	// ChannelConnectivity carries ConnectivityEvent payloads.
	ChannelConnectivity = "device.connectivity"

	// ChannelDeviceState carries StateEvent payloads: outlet changes
	// the device reported on its own, not ones the daemon commanded.
	ChannelDeviceState = "device.state"

	// ChannelBatteryAction carries BatteryEvent payloads.
	ChannelBatteryAction = "battery.action"
)

// Message types on the WebSocket protocol.
const (
	TypeSubscribe   = "subscribe"
	TypeUnsubscribe = "unsubscribe"
	TypePing        = "ping"
	TypePong        = "pong"
	TypeEvent       = "event"
	TypeResponse    = "response"
	TypeError       = "error"
)

// Message is the envelope for every frame sent to or from a client.
type Message struct {
	Type      string `json:"type"`
	ID        string `json:"id,omitempty"`
	EventType string `json:"event_type,omitempty"`
	Timestamp string `json:"timestamp,omitempty"`
	Payload   any    `json:"payload,omitempty"`
}

// SubscribePayload is the payload for subscribe/unsubscribe messages.
type SubscribePayload struct {
	Channels []string `json:"channels"`
}

// CommandEvent reports one applied switch command.
type CommandEvent struct {
	Outlet int  `json:"outlet"`
	On     bool `json:"on"`
}

// StateEvent reports the outlet map from an unsolicited device state
// push (local transport only).
type StateEvent struct {
	States map[int]bool `json:"states"`
}

// ConnectivityEvent reports a device reachability sample.
type ConnectivityEvent struct {
	DeviceID   string `json:"device_id"`
	DeviceName string `json:"device_name"`
	Online     bool   `json:"online"`
}

// BatteryEvent reports a charger action taken by the battery manager.
type BatteryEvent struct {
	Action  string `json:"action"`
	Percent int    `json:"percent"`
	Plugged bool   `json:"plugged"`
	SSID    string `json:"ssid"`
}
