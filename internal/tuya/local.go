package tuya

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/nerrad567/tuya-socket/internal/infrastructure/config"
	"github.com/nerrad567/tuya-socket/internal/infrastructure/mqtt"
)

// Relay operation constants.
const (
	// relayTimeout is how long to wait for the agent's ack or response.
	relayTimeout = 5 * time.Second

	// localProtocolVersion is the device protocol version the agent
	// should speak. Smart power strips ship with 3.3.
	localProtocolVersion = "3.3"
)

// MQTTClient is the interface for MQTT operations.
// This allows mocking in tests and flexibility in implementation.
type MQTTClient interface {
	// Publish sends a message to a topic.
	Publish(topic string, payload []byte, qos byte, retained bool) error

	// Subscribe registers a handler for a topic pattern.
	Subscribe(topic string, qos byte, handler mqtt.MessageHandler) error

	// Unsubscribe removes a subscription.
	Unsubscribe(topic string) error
}

// relayConfig is the retained connection document for the LAN agent.
// Publishing it retained means an agent restarted hours later still
// picks up the device coordinates without the daemon's involvement.
type relayConfig struct {
	DeviceID string `json:"device_id"`
	IP       string `json:"ip"`
	LocalKey string `json:"local_key"`
	Version  string `json:"version"`
}

// relayCommand asks the agent to push data points to the device.
type relayCommand struct {
	RequestID string    `json:"request_id"`
	Commands  []Command `json:"commands"`
}

// relayRequest asks the agent for a status read.
type relayRequest struct {
	RequestID string `json:"request_id"`
	Type      string `json:"type"`
}

// relayState is the agent's unsolicited state push, emitted when the
// device reports a change the daemon did not command (physical button,
// countdown expiry).
type relayState struct {
	DeviceID string      `json:"device_id"`
	Result   []DataPoint `json:"result"`
}

// relayAck is the agent's acknowledgement for a command.
type relayAck struct {
	RequestID string `json:"request_id"`
	Success   bool   `json:"success"`
	Code      int    `json:"code,omitempty"`
	Msg       string `json:"msg,omitempty"`
}

// relayResponse is the agent's answer to a status request.
type relayResponse struct {
	RequestID string      `json:"request_id"`
	Success   bool        `json:"success"`
	Code      int         `json:"code,omitempty"`
	Msg       string      `json:"msg,omitempty"`
	Result    []DataPoint `json:"result,omitempty"`
}

// Local drives the socket over the LAN through an MQTT relay agent.
//
// The daemon never speaks the vendor's encrypted LAN protocol itself.
// It publishes the device coordinates (IP, local key) retained for the
// agent, then exchanges command/ack and request/response pairs scoped
// by request ID. A missed ack after 5 seconds surfaces as
// ErrCommandTimeout.
//
// Thread Safety: All methods are safe for concurrent use. Concurrent
// commands get distinct request IDs and distinct ack topics, so they
// never cross wires; the device applies them in arrival order.
type Local struct {
	deviceID string
	client   MQTTClient
	qos      byte
	timeout  time.Duration

	logger   Logger
	loggerMu sync.RWMutex
}

// NewLocal validates the LAN settings, announces the device coordinates
// to the relay agent, and returns a local transport.
//
// Parameters:
//   - cfg: Vendor settings (local key + device IP required)
//   - deviceID: The device to control
//   - client: Connected MQTT client for the relay
//   - qos: QoS level for relay traffic
//
// Returns:
//   - *Local: Ready transport
//   - error: If LAN settings are missing or the config announce fails
func NewLocal(cfg config.TuyaConfig, deviceID string, client MQTTClient, qos byte) (*Local, error) {
	if cfg.LocalKey == "" || cfg.DeviceIP == "" {
		return nil, fmt.Errorf("tuya: local control requires TUYA_LOCAL_KEY and TUYA_DEVICE_IP")
	}
	if client == nil {
		return nil, fmt.Errorf("tuya: MQTT client is required for local control")
	}

	l := &Local{
		deviceID: deviceID,
		client:   client,
		qos:      qos,
		timeout:  relayTimeout,
	}

	announce, err := json.Marshal(relayConfig{
		DeviceID: deviceID,
		IP:       cfg.DeviceIP,
		LocalKey: cfg.LocalKey,
		Version:  localProtocolVersion,
	})
	if err != nil {
		return nil, fmt.Errorf("tuya: encoding relay config: %w", err)
	}
	if err := client.Publish(mqtt.Topics{}.LocalConfig(deviceID), announce, qos, true); err != nil {
		return nil, fmt.Errorf("tuya: announcing device to relay: %w", err)
	}

	return l, nil
}

// SetSwitch turns one outlet on or off through the relay agent.
//
// Returns:
//   - error: ErrCommandTimeout if the agent does not ack in time,
//     ErrDeviceUnreachable if the relay publish fails, *APIError when
//     the agent reports a device-side failure
func (l *Local) SetSwitch(ctx context.Context, outlet int, on bool) error {
	requestID := uuid.New().String()
	ackTopic := mqtt.Topics{}.LocalAck(requestID)

	ackCh := make(chan relayAck, 1)
	err := l.client.Subscribe(ackTopic, l.qos, func(_ string, payload []byte) error {
		var ack relayAck
		if err := json.Unmarshal(payload, &ack); err != nil {
			return fmt.Errorf("tuya: decoding ack: %w", err)
		}
		select {
		case ackCh <- ack:
		default:
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDeviceUnreachable, err)
	}
	defer l.client.Unsubscribe(ackTopic)

	payload, err := json.Marshal(relayCommand{
		RequestID: requestID,
		Commands:  []Command{{Code: SwitchCode(outlet), Value: on}},
	})
	if err != nil {
		return fmt.Errorf("tuya: encoding command: %w", err)
	}
	if err := l.client.Publish(mqtt.Topics{}.LocalCommand(l.deviceID), payload, l.qos, false); err != nil {
		return fmt.Errorf("%w: %v", ErrDeviceUnreachable, err)
	}

	select {
	case ack := <-ackCh:
		if !ack.Success {
			return &APIError{Code: ack.Code, Msg: ack.Msg}
		}
		l.logDebug("relay command acked", "outlet", outlet, "on", on, "request_id", requestID)
		return nil
	case <-time.After(l.timeout):
		return fmt.Errorf("%w: no ack within %v", ErrCommandTimeout, l.timeout)
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Status reads every outlet's on/off state through the relay agent.
func (l *Local) Status(ctx context.Context) (map[int]bool, error) {
	points, err := l.RawStatus(ctx)
	if err != nil {
		return nil, err
	}
	return SwitchStates(points), nil
}

// RawStatus reads the full data point report through the relay agent.
func (l *Local) RawStatus(ctx context.Context) ([]DataPoint, error) {
	requestID := uuid.New().String()
	respTopic := mqtt.Topics{}.LocalResponse(requestID)

	respCh := make(chan relayResponse, 1)
	err := l.client.Subscribe(respTopic, l.qos, func(_ string, payload []byte) error {
		var resp relayResponse
		if err := json.Unmarshal(payload, &resp); err != nil {
			return fmt.Errorf("tuya: decoding response: %w", err)
		}
		select {
		case respCh <- resp:
		default:
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDeviceUnreachable, err)
	}
	defer l.client.Unsubscribe(respTopic)

	payload, err := json.Marshal(relayRequest{RequestID: requestID, Type: "status"})
	if err != nil {
		return nil, fmt.Errorf("tuya: encoding request: %w", err)
	}
	if err := l.client.Publish(mqtt.Topics{}.LocalRequest(l.deviceID), payload, l.qos, false); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDeviceUnreachable, err)
	}

	select {
	case resp := <-respCh:
		if !resp.Success {
			return nil, &APIError{Code: resp.Code, Msg: resp.Msg}
		}
		return resp.Result, nil
	case <-time.After(l.timeout):
		return nil, fmt.Errorf("%w: no response within %v", ErrCommandTimeout, l.timeout)
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// WatchState subscribes to the agent's unsolicited state pushes and
// invokes handler with the normalized outlet map for each one. The
// subscription lasts for the transport's lifetime.
func (l *Local) WatchState(handler func(states map[int]bool)) error {
	if handler == nil {
		return fmt.Errorf("tuya: state handler is required")
	}

	topic := mqtt.Topics{}.LocalState(l.deviceID)
	return l.client.Subscribe(topic, l.qos, func(_ string, payload []byte) error {
		var state relayState
		if err := json.Unmarshal(payload, &state); err != nil {
			return fmt.Errorf("tuya: decoding state push: %w", err)
		}
		l.logDebug("state push received", "device_id", state.DeviceID, "points", len(state.Result))
		handler(SwitchStates(state.Result))
		return nil
	})
}

// SetLogger sets a logger for debug output.
func (l *Local) SetLogger(logger Logger) {
	l.loggerMu.Lock()
	l.logger = logger
	l.loggerMu.Unlock()
}

// logDebug logs a debug message if logger is set.
func (l *Local) logDebug(msg string, keysAndValues ...any) {
	l.loggerMu.RLock()
	logger := l.logger
	l.loggerMu.RUnlock()

	if logger != nil {
		logger.Debug(msg, keysAndValues...)
	}
}
