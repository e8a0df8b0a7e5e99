package tuya

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/tuya/tuya-connector-go/connector"
	"github.com/tuya/tuya-connector-go/connector/env"
	"github.com/tuya/tuya-connector-go/connector/httplib"

	"github.com/nerrad567/tuya-socket/internal/infrastructure/config"
)

// regionAPIHosts maps config regions to OpenAPI endpoints.
var regionAPIHosts = map[string]string{
	"us": httplib.URL_US,
	"eu": httplib.URL_EU,
	"cn": httplib.URL_CN,
	"in": httplib.URL_IN,
}

// regionMsgHosts maps config regions to message service endpoints.
// The SDK wants one even though the daemon never opens the event stream.
var regionMsgHosts = map[string]string{
	"us": httplib.MSG_US,
	"eu": httplib.MSG_EU,
	"cn": httplib.MSG_CN,
	"in": httplib.MSG_IN,
}

// openAPI is the slice of the vendor SDK the cloud transport uses.
// Production code runs on connectorAPI; tests substitute a fake.
type openAPI interface {
	// Get performs a signed GET and decodes the envelope into resp.
	Get(ctx context.Context, uri string, resp interface{}) error

	// Post performs a signed POST and decodes the envelope into resp.
	Post(ctx context.Context, uri string, payload []byte, resp interface{}) error
}

// connectorAPI implements openAPI on the official connector SDK.
type connectorAPI struct{}

func (connectorAPI) Get(ctx context.Context, uri string, resp interface{}) error {
	return connector.MakeGetRequest(ctx,
		connector.WithAPIUri(uri),
		connector.WithResp(resp))
}

func (connectorAPI) Post(ctx context.Context, uri string, payload []byte, resp interface{}) error {
	return connector.MakePostRequest(ctx,
		connector.WithAPIUri(uri),
		connector.WithPayload(payload),
		connector.WithResp(resp))
}

// Response envelopes. The OpenAPI wraps every result in
// {success, code, msg, t, result}.

type commandResponse struct {
	Success bool   `json:"success"`
	Code    int    `json:"code"`
	Msg     string `json:"msg"`
	T       int64  `json:"t"`
	Result  bool   `json:"result"`
}

type statusResponse struct {
	Success bool        `json:"success"`
	Code    int         `json:"code"`
	Msg     string      `json:"msg"`
	T       int64       `json:"t"`
	Result  []DataPoint `json:"result"`
}

type deviceResponse struct {
	Success bool       `json:"success"`
	Code    int        `json:"code"`
	Msg     string     `json:"msg"`
	T       int64      `json:"t"`
	Result  DeviceInfo `json:"result"`
}

// Cloud drives the socket through the vendor's OpenAPI.
//
// The connector SDK signs requests and refreshes tokens internally; the
// SDK holds that state per process, which is fine here because the
// daemon manages exactly one device through one set of credentials.
//
// Thread Safety: All methods are safe for concurrent use.
type Cloud struct {
	deviceID string
	api      openAPI

	logger   Logger
	loggerMu sync.RWMutex
}

// Logger interface for optional logging.
type Logger interface {
	Debug(msg string, keysAndValues ...any)
	Info(msg string, keysAndValues ...any)
	Warn(msg string, keysAndValues ...any)
	Error(msg string, keysAndValues ...any)
}

// NewCloud initialises the connector SDK for the configured region and
// returns a cloud transport bound to one device.
//
// Parameters:
//   - cfg: Vendor settings (region + credentials, already validated)
//   - deviceID: The device to control
//
// Returns:
//   - *Cloud: Ready transport
//   - error: If the region is unknown or credentials are missing
func NewCloud(cfg config.TuyaConfig, deviceID string) (*Cloud, error) {
	if cfg.APIKey == "" || cfg.APISecret == "" {
		return nil, fmt.Errorf("tuya: cloud control requires TUYA_API_KEY and TUYA_API_SECRET")
	}
	apiHost, ok := regionAPIHosts[cfg.Region]
	if !ok {
		return nil, fmt.Errorf("tuya: unknown region %q", cfg.Region)
	}

	connector.InitWithOptions(
		env.WithApiHost(apiHost),
		env.WithMsgHost(regionMsgHosts[cfg.Region]),
		env.WithAccessID(cfg.APIKey),
		env.WithAccessKey(cfg.APISecret),
		env.WithAppName("socketd"),
		env.WithDebugMode(false),
	)

	return &Cloud{
		deviceID: deviceID,
		api:      connectorAPI{},
	}, nil
}

// SetSwitch turns one outlet on or off.
//
// Parameters:
//   - ctx: Context for timeout/cancellation
//   - outlet: Outlet number (1-based, already validated by the caller)
//   - on: Desired state
//
// Returns:
//   - error: ErrDeviceUnreachable for transport failures, *APIError when
//     the vendor rejects the command
func (c *Cloud) SetSwitch(ctx context.Context, outlet int, on bool) error {
	payload, err := json.Marshal(commandPayload{
		Commands: []Command{{Code: SwitchCode(outlet), Value: on}},
	})
	if err != nil {
		return fmt.Errorf("tuya: encoding command: %w", err)
	}

	var resp commandResponse
	uri := fmt.Sprintf("/v1.0/devices/%s/commands", c.deviceID)
	if err := c.api.Post(ctx, uri, payload, &resp); err != nil {
		return fmt.Errorf("%w: %v", ErrDeviceUnreachable, err)
	}
	if !resp.Success {
		return &APIError{Code: resp.Code, Msg: resp.Msg}
	}

	c.logDebug("cloud command accepted", "outlet", outlet, "on", on)
	return nil
}

// Status reads every outlet's on/off state.
//
// Returns:
//   - map[int]bool: Outlet number to state; non-switch data points are
//     filtered out
//   - error: ErrDeviceUnreachable or *APIError as for SetSwitch
func (c *Cloud) Status(ctx context.Context) (map[int]bool, error) {
	points, err := c.RawStatus(ctx)
	if err != nil {
		return nil, err
	}
	return SwitchStates(points), nil
}

// RawStatus reads the full data point report, including codes Status
// filters out (USB ports, countdowns, metering). Used by the debug CLI.
func (c *Cloud) RawStatus(ctx context.Context) ([]DataPoint, error) {
	var resp statusResponse
	uri := fmt.Sprintf("/v1.0/devices/%s/status", c.deviceID)
	if err := c.api.Get(ctx, uri, &resp); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDeviceUnreachable, err)
	}
	if !resp.Success {
		return nil, &APIError{Code: resp.Code, Msg: resp.Msg}
	}
	return resp.Result, nil
}

// Info fetches the device detail document (name, online flag, LAN IP,
// local key).
func (c *Cloud) Info(ctx context.Context) (*DeviceInfo, error) {
	var resp deviceResponse
	uri := fmt.Sprintf("/v1.0/devices/%s", c.deviceID)
	if err := c.api.Get(ctx, uri, &resp); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDeviceUnreachable, err)
	}
	if !resp.Success {
		return nil, &APIError{Code: resp.Code, Msg: resp.Msg}
	}
	return &resp.Result, nil
}

// Online reports whether the cloud currently sees the device.
// The connectivity monitor polls this.
func (c *Cloud) Online(ctx context.Context) (bool, error) {
	info, err := c.Info(ctx)
	if err != nil {
		return false, err
	}
	return info.Online, nil
}

// SetLogger sets a logger for debug output.
func (c *Cloud) SetLogger(logger Logger) {
	c.loggerMu.Lock()
	c.logger = logger
	c.loggerMu.Unlock()
}

// logDebug logs a debug message if logger is set.
func (c *Cloud) logDebug(msg string, keysAndValues ...any) {
	c.loggerMu.RLock()
	logger := c.logger
	c.loggerMu.RUnlock()

	if logger != nil {
		logger.Debug(msg, keysAndValues...)
	}
}
