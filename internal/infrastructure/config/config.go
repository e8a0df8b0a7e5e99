package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure for the socket daemon.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	Device        DeviceConfig    `yaml:"device"`
	Tuya          TuyaConfig      `yaml:"tuya"`
	MQTT          MQTTConfig      `yaml:"mqtt"`
	API           APIConfig       `yaml:"api"`
	WebSocket     WebSocketConfig `yaml:"websocket"`
	InfluxDB      InfluxDBConfig  `yaml:"influxdb"`
	Monitor       MonitorConfig   `yaml:"monitor"`
	Battery       BatteryConfig   `yaml:"battery"`
	Notifications NotifyConfig    `yaml:"notifications"`
	Logging       LoggingConfig   `yaml:"logging"`
}

// DeviceConfig identifies the managed socket and its outlet layout.
type DeviceConfig struct {
	ID      string       `yaml:"id"`
	Name    string       `yaml:"name"`
	Outlets int          `yaml:"outlets"`
	Master  MasterConfig `yaml:"master"`
}

// MasterConfig controls what the master on/off routes map to.
//
// Mode "outlet" routes master commands to a single outlet (Outlet).
// Mode "all" fans master commands out to every outlet.
type MasterConfig struct {
	Mode   string `yaml:"mode"`
	Outlet int    `yaml:"outlet"`
}

// TuyaConfig contains vendor transport settings.
//
// Cloud mode needs Region + APIKey + APISecret (from iot.tuya.com).
// Local mode (UseLocal) needs LocalKey + DeviceIP and an enabled MQTT
// broker for the LAN relay.
type TuyaConfig struct {
	Region    string `yaml:"region"`
	APIKey    string `yaml:"api_key"`
	APISecret string `yaml:"api_secret"`
	UseLocal  bool   `yaml:"use_local"`
	LocalKey  string `yaml:"local_key"`
	DeviceIP  string `yaml:"device_ip"`
}

// MQTTConfig contains MQTT broker connection settings.
type MQTTConfig struct {
	Enabled   bool                `yaml:"enabled"`
	Broker    MQTTBrokerConfig    `yaml:"broker"`
	Auth      MQTTAuthConfig      `yaml:"auth"`
	QoS       int                 `yaml:"qos"`
	Reconnect MQTTReconnectConfig `yaml:"reconnect"`
}

// MQTTBrokerConfig contains MQTT broker connection details.
type MQTTBrokerConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	TLS      bool   `yaml:"tls"`
	ClientID string `yaml:"client_id"`
}

// MQTTAuthConfig contains MQTT authentication credentials.
type MQTTAuthConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// MQTTReconnectConfig contains MQTT reconnection settings.
type MQTTReconnectConfig struct {
	InitialDelay int `yaml:"initial_delay"`
	MaxDelay     int `yaml:"max_delay"`
	MaxAttempts  int `yaml:"max_attempts"`
}

// APIConfig contains HTTP API server settings.
type APIConfig struct {
	Host     string           `yaml:"host"`
	Port     int              `yaml:"port"`
	Timeouts APITimeoutConfig `yaml:"timeouts"`
	CORS     CORSConfig       `yaml:"cors"`
}

// APITimeoutConfig contains HTTP timeout settings.
type APITimeoutConfig struct {
	Read  int `yaml:"read"`
	Write int `yaml:"write"`
	Idle  int `yaml:"idle"`
}

// CORSConfig contains Cross-Origin Resource Sharing settings.
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
	AllowedMethods []string `yaml:"allowed_methods"`
	AllowedHeaders []string `yaml:"allowed_headers"`
}

// WebSocketConfig contains WebSocket event stream settings.
type WebSocketConfig struct {
	Path           string `yaml:"path"`
	MaxMessageSize int    `yaml:"max_message_size"`
	PingInterval   int    `yaml:"ping_interval"`
	PongTimeout    int    `yaml:"pong_timeout"`
}

// InfluxDBConfig contains InfluxDB connection settings.
type InfluxDBConfig struct {
	Enabled       bool   `yaml:"enabled"`
	URL           string `yaml:"url"`
	Token         string `yaml:"token"`
	Org           string `yaml:"org"`
	Bucket        string `yaml:"bucket"`
	BatchSize     int    `yaml:"batch_size"`
	FlushInterval int    `yaml:"flush_interval"`
}

// MonitorConfig contains connectivity monitor settings.
// The monitor polls the cloud for the device's online state, so it
// requires cloud credentials even when commands use the local transport.
type MonitorConfig struct {
	Enabled  bool `yaml:"enabled"`
	Interval int  `yaml:"interval"`
}

// BatteryConfig contains battery charge manager settings.
//
// The manager keeps the host battery between Min and Max percent by
// toggling the charger's outlet, but only while connected to one of
// the AllowedSSIDs (so it never fights a charger somewhere else).
type BatteryConfig struct {
	Enabled      bool     `yaml:"enabled"`
	Interval     int      `yaml:"interval"`
	Min          int      `yaml:"min"`
	Max          int      `yaml:"max"`
	Outlet       int      `yaml:"outlet"`
	AllowedSSIDs []string `yaml:"allowed_ssids"`
}

// NotifyConfig contains notification settings.
type NotifyConfig struct {
	Desktop bool   `yaml:"desktop"`
	AppName string `yaml:"app_name"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// Load reads configuration from a YAML file and applies environment variable overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (override defaults)
//  3. Environment variables (override file values)
//
// Domain environment variables keep the names the deployment has always
// used: TUYA_API_KEY, TUYA_API_SECRET, TUYA_API_REGION, TUYA_DEVICE_ID,
// USE_LOCAL, TUYA_LOCAL_KEY, TUYA_DEVICE_IP, INFLUXDB_URL, INFLUXDB_TOKEN,
// INFLUXDB_ORG, INFLUXDB_BUCKET. Daemon settings use the SOCKETD_ prefix.
//
// Parameters:
//   - path: Path to the YAML configuration file
//
// Returns:
//   - *Config: Loaded and validated configuration
//   - error: If file cannot be read, parsed, or validation fails
func Load(path string) (*Config, error) {
	// Start with defaults
	cfg := defaultConfig()

	// Read and parse YAML file
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	// Apply environment variable overrides
	applyEnvOverrides(cfg)

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// FromEnv builds a configuration from defaults and environment variables
// alone. The daemon falls back to this when no config file is present,
// which suits containerized deployments configured entirely via env.
//
// Returns:
//   - *Config: Validated configuration
//   - error: If validation fails
func FromEnv() (*Config, error) {
	cfg := defaultConfig()
	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// defaultConfig returns a Config with sensible defaults.
func defaultConfig() *Config {
	return &Config{
		Device: DeviceConfig{
			ID:      "eb03bbe4df01c1351aaxjz",
			Name:    "Socket Kamar Tidur",
			Outlets: 2,
			Master: MasterConfig{
				Mode:   "outlet",
				Outlet: 1,
			},
		},
		Tuya: TuyaConfig{
			Region: "us",
		},
		MQTT: MQTTConfig{
			Broker: MQTTBrokerConfig{
				Host:     "localhost",
				Port:     1883,
				ClientID: "socketd",
			},
			QoS: 1,
			Reconnect: MQTTReconnectConfig{
				InitialDelay: 1,
				MaxDelay:     60,
				MaxAttempts:  0,
			},
		},
		API: APIConfig{
			Host: "0.0.0.0",
			Port: 5000,
			Timeouts: APITimeoutConfig{
				Read:  30,
				Write: 30,
				Idle:  60,
			},
		},
		WebSocket: WebSocketConfig{
			Path:           "/events",
			MaxMessageSize: 8192,
			PingInterval:   30,
			PongTimeout:    10,
		},
		Monitor: MonitorConfig{
			Enabled:  false,
			Interval: 10,
		},
		Battery: BatteryConfig{
			Enabled:  false,
			Interval: 60,
			Min:      20,
			Max:      100,
			Outlet:   2,
		},
		Notifications: NotifyConfig{
			Desktop: false,
			AppName: "tuya-app",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
func applyEnvOverrides(cfg *Config) {
	// Device
	if v := os.Getenv("TUYA_DEVICE_ID"); v != "" {
		cfg.Device.ID = v
	}

	// Tuya transport
	if v := os.Getenv("TUYA_API_KEY"); v != "" {
		cfg.Tuya.APIKey = v
	}
	if v := os.Getenv("TUYA_API_SECRET"); v != "" {
		cfg.Tuya.APISecret = v
	}
	if v := os.Getenv("TUYA_API_REGION"); v != "" {
		cfg.Tuya.Region = v
	}
	if v := os.Getenv("USE_LOCAL"); v != "" {
		cfg.Tuya.UseLocal = strings.ToLower(v) == "true"
	}
	if v := os.Getenv("TUYA_LOCAL_KEY"); v != "" {
		cfg.Tuya.LocalKey = v
	}
	if v := os.Getenv("TUYA_DEVICE_IP"); v != "" {
		cfg.Tuya.DeviceIP = v
	}

	// InfluxDB. Presence of URL + token activates the writer.
	if v := os.Getenv("INFLUXDB_URL"); v != "" {
		cfg.InfluxDB.URL = v
	}
	if v := os.Getenv("INFLUXDB_TOKEN"); v != "" {
		cfg.InfluxDB.Token = v
	}
	if v := os.Getenv("INFLUXDB_ORG"); v != "" {
		cfg.InfluxDB.Org = v
	}
	if v := os.Getenv("INFLUXDB_BUCKET"); v != "" {
		cfg.InfluxDB.Bucket = v
	}
	if cfg.InfluxDB.URL != "" && cfg.InfluxDB.Token != "" {
		cfg.InfluxDB.Enabled = true
	}

	// API
	if v := os.Getenv("SOCKETD_API_HOST"); v != "" {
		cfg.API.Host = v
	}
	if v := os.Getenv("SOCKETD_API_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.API.Port = port
		}
	}

	// MQTT
	if v := os.Getenv("SOCKETD_MQTT_HOST"); v != "" {
		cfg.MQTT.Broker.Host = v
		cfg.MQTT.Enabled = true
	}
	if v := os.Getenv("SOCKETD_MQTT_USERNAME"); v != "" {
		cfg.MQTT.Auth.Username = v
	}
	if v := os.Getenv("SOCKETD_MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Auth.Password = v
	}
}

// validRegions are the Tuya OpenAPI data centres the cloud transport knows.
var validRegions = map[string]bool{
	"us": true,
	"eu": true,
	"cn": true,
	"in": true,
}

// Validate checks the configuration for errors.
//
// Returns:
//   - error: Description of validation failure, or nil if valid
func (c *Config) Validate() error {
	var errs []string

	// Device validation
	if c.Device.ID == "" {
		errs = append(errs, "device.id is required")
	}
	if c.Device.Outlets < 1 {
		errs = append(errs, "device.outlets must be at least 1")
	}
	switch c.Device.Master.Mode {
	case "outlet":
		if c.Device.Master.Outlet < 1 || c.Device.Master.Outlet > c.Device.Outlets {
			errs = append(errs, fmt.Sprintf("device.master.outlet must be between 1 and %d", c.Device.Outlets))
		}
	case "all":
		// No outlet needed; fans out to every outlet.
	default:
		errs = append(errs, `device.master.mode must be "outlet" or "all"`)
	}

	// Transport validation. Mirrors the checks the service has always
	// enforced before issuing the first command.
	if c.Tuya.UseLocal {
		if c.Tuya.LocalKey == "" || c.Tuya.DeviceIP == "" {
			errs = append(errs, "local control requires TUYA_LOCAL_KEY and TUYA_DEVICE_IP")
		}
		if !c.MQTT.Enabled {
			errs = append(errs, "local control requires mqtt.enabled (LAN relay)")
		}
	} else {
		if c.Tuya.APIKey == "" || c.Tuya.APISecret == "" {
			errs = append(errs, "cloud control requires TUYA_API_KEY and TUYA_API_SECRET")
		}
	}
	if !validRegions[c.Tuya.Region] {
		errs = append(errs, "tuya.region must be one of us, eu, cn, in")
	}

	// MQTT validation
	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		errs = append(errs, "mqtt.qos must be 0, 1, or 2")
	}

	// API validation
	if c.API.Port < 1 || c.API.Port > 65535 {
		errs = append(errs, "api.port must be between 1 and 65535")
	}

	// Monitor validation
	if c.Monitor.Enabled {
		if c.Monitor.Interval < 1 {
			errs = append(errs, "monitor.interval must be at least 1 second")
		}
		if c.Tuya.APIKey == "" || c.Tuya.APISecret == "" {
			errs = append(errs, "monitor requires cloud credentials (TUYA_API_KEY and TUYA_API_SECRET)")
		}
	}

	// Battery manager validation
	if c.Battery.Enabled {
		if c.Battery.Interval < 1 {
			errs = append(errs, "battery.interval must be at least 1 second")
		}
		if c.Battery.Min < 0 || c.Battery.Max > 100 || c.Battery.Min >= c.Battery.Max {
			errs = append(errs, "battery thresholds must satisfy 0 <= min < max <= 100")
		}
		if c.Battery.Outlet < 1 || c.Battery.Outlet > c.Device.Outlets {
			errs = append(errs, fmt.Sprintf("battery.outlet must be between 1 and %d", c.Device.Outlets))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// GetReadTimeout returns the API read timeout as a Duration.
func (c *Config) GetReadTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Read) * time.Second
}

// GetWriteTimeout returns the API write timeout as a Duration.
func (c *Config) GetWriteTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Write) * time.Second
}

// GetIdleTimeout returns the API idle timeout as a Duration.
func (c *Config) GetIdleTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Idle) * time.Second
}

// GetMonitorInterval returns the connectivity poll interval as a Duration.
func (c *Config) GetMonitorInterval() time.Duration {
	return time.Duration(c.Monitor.Interval) * time.Second
}

// GetBatteryInterval returns the battery check interval as a Duration.
func (c *Config) GetBatteryInterval() time.Duration {
	return time.Duration(c.Battery.Interval) * time.Second
}
