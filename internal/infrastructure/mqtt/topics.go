package mqtt

import "fmt"

// Topic prefixes for the socket daemon's MQTT traffic.
//
// Relay topics use the flat scheme: tuyasocket/{category}/local/{id}
// The LAN relay agent mirrors this scheme on its side.
const (
	// TopicPrefix is the base for all socket daemon topics.
	// Flat scheme: tuyasocket/{category}/local/{device_or_request_id}
	TopicPrefix = "tuyasocket"

	// TopicPrefixSystem is the base for system topics.
	TopicPrefixSystem = "tuyasocket/system"
)

// Topics provides builders for socket daemon MQTT topics.
// Using these helpers ensures consistent topic naming across the codebase.
//
//	topics := mqtt.Topics{}
//	cmdTopic := topics.LocalCommand("bf1234567890")
//	// Returns: "tuyasocket/command/local/bf1234567890"
type Topics struct{}

// =============================================================================
// Local Relay Topics
// =============================================================================

// LocalConfig returns the retained topic carrying device connection details
// for the LAN relay agent (device ID, IP, local key, protocol version).
//
// Example: tuyasocket/config/local/bf1234567890
func (Topics) LocalConfig(deviceID string) string {
	return fmt.Sprintf("%s/config/local/%s", TopicPrefix, deviceID)
}

// LocalCommand returns the topic for switch commands to the relay agent.
//
// Example: tuyasocket/command/local/bf1234567890
func (Topics) LocalCommand(deviceID string) string {
	return fmt.Sprintf("%s/command/local/%s", TopicPrefix, deviceID)
}

// LocalAck returns the topic for command acknowledgements from the relay
// agent, scoped by request ID.
//
// Example: tuyasocket/ack/local/req-abc123
func (Topics) LocalAck(requestID string) string {
	return fmt.Sprintf("%s/ack/local/%s", TopicPrefix, requestID)
}

// LocalRequest returns the topic for status requests to the relay agent.
//
// Example: tuyasocket/request/local/bf1234567890
func (Topics) LocalRequest(deviceID string) string {
	return fmt.Sprintf("%s/request/local/%s", TopicPrefix, deviceID)
}

// LocalResponse returns the topic for status responses from the relay
// agent, scoped by request ID.
//
// Example: tuyasocket/response/local/req-abc123
func (Topics) LocalResponse(requestID string) string {
	return fmt.Sprintf("%s/response/local/%s", TopicPrefix, requestID)
}

// LocalState returns the topic for unsolicited state pushes from the relay
// agent (data point reports the device volunteers between polls).
//
// Example: tuyasocket/state/local/bf1234567890
func (Topics) LocalState(deviceID string) string {
	return fmt.Sprintf("%s/state/local/%s", TopicPrefix, deviceID)
}

// =============================================================================
// Notification Topics
// =============================================================================

// Notify returns the topic for user-facing notifications (battery actions,
// connectivity changes). Home dashboards subscribe here.
//
// Example: tuyasocket/notify
func (Topics) Notify() string {
	return fmt.Sprintf("%s/notify", TopicPrefix)
}

// =============================================================================
// System Topics
// =============================================================================

// SystemStatus returns the daemon status topic, also used for the LWT.
//
// Example: tuyasocket/system/status
func (Topics) SystemStatus() string {
	return fmt.Sprintf("%s/status", TopicPrefixSystem)
}

// =============================================================================
// Wildcard Patterns for Subscriptions
// =============================================================================

// AllAcks returns a pattern matching every command acknowledgement.
//
// Pattern: tuyasocket/ack/local/+
func (Topics) AllAcks() string {
	return fmt.Sprintf("%s/ack/local/+", TopicPrefix)
}

// AllResponses returns a pattern matching every status response.
//
// Pattern: tuyasocket/response/local/+
func (Topics) AllResponses() string {
	return fmt.Sprintf("%s/response/local/+", TopicPrefix)
}

// AllStates returns a pattern matching every unsolicited state push.
//
// Pattern: tuyasocket/state/local/+
func (Topics) AllStates() string {
	return fmt.Sprintf("%s/state/local/+", TopicPrefix)
}

// AllTopics returns a pattern matching all socket daemon topics.
// Use with caution - this receives ALL traffic.
//
// Pattern: tuyasocket/#
func (Topics) AllTopics() string {
	return "tuyasocket/#"
}
