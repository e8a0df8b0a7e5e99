// socketd - HTTP control daemon for a Tuya smart power socket
//
// The daemon wraps one multi-outlet Tuya socket behind a small REST
// surface, with a connectivity monitor, an optional battery charge
// manager, and WebSocket event streaming on top. The device transport
// (cloud API or local MQTT relay) is chosen once at startup and never
// changes at runtime.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nerrad567/tuya-socket/internal/api"
	"github.com/nerrad567/tuya-socket/internal/battery"
	"github.com/nerrad567/tuya-socket/internal/events"
	"github.com/nerrad567/tuya-socket/internal/infrastructure/config"
	"github.com/nerrad567/tuya-socket/internal/infrastructure/influxdb"
	"github.com/nerrad567/tuya-socket/internal/infrastructure/logging"
	"github.com/nerrad567/tuya-socket/internal/infrastructure/mqtt"
	"github.com/nerrad567/tuya-socket/internal/monitor"
	"github.com/nerrad567/tuya-socket/internal/netinfo"
	"github.com/nerrad567/tuya-socket/internal/notify"
	"github.com/nerrad567/tuya-socket/internal/power"
	"github.com/nerrad567/tuya-socket/internal/socket"
	"github.com/nerrad567/tuya-socket/internal/tuya"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"     // Semantic version (e.g., "1.0.0")
	commit  = "unknown" // Git commit hash
	date    = "unknown" // Build date
)

// Default configuration file path
const defaultConfigPath = "configs/config.yaml"

func main() {
	// Create a context that cancels on interrupt signals (Ctrl+C, SIGTERM)
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the actual application logic, separated from main for testability.
// Returning an error allows main to handle exit codes consistently.
func run(ctx context.Context) error {
	// Use default logger until config is loaded
	log := logging.Default()
	log.Info("starting socketd",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	cfg, source, err := loadConfig()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log.Info("configuration loaded", "source", source)

	// Reinitialise logger with config settings
	log = logging.New(cfg.Logging, version)
	log.Info("logger initialised",
		"level", cfg.Logging.Level,
		"format", cfg.Logging.Format,
	)

	// Connect to MQTT broker (optional unless the local transport needs it)
	var mqttClient *mqtt.Client
	if cfg.MQTT.Enabled {
		mqttClient, err = mqtt.Connect(cfg.MQTT)
		if err != nil {
			return fmt.Errorf("connecting to MQTT: %w", err)
		}
		defer func() {
			log.Info("disconnecting from MQTT")
			if closeErr := mqttClient.Close(); closeErr != nil {
				log.Error("error closing MQTT", "error", closeErr)
			}
		}()
		mqttClient.SetLogger(log)
		log.Info("MQTT connected",
			"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
			"client_id", cfg.MQTT.Broker.ClientID,
		)
	} else {
		log.Info("MQTT disabled")
	}

	// Build the device transport: cloud or local, decided once
	controller, cloudClient, err := buildController(cfg, mqttClient, log)
	if err != nil {
		return fmt.Errorf("building device transport: %w", err)
	}

	// Connect to InfluxDB (optional)
	var influxClient *influxdb.Client
	if cfg.InfluxDB.Enabled {
		influxClient, err = influxdb.Connect(cfg.InfluxDB)
		if err != nil {
			return fmt.Errorf("connecting to InfluxDB: %w", err)
		}
		defer func() {
			log.Info("closing InfluxDB connection")
			if closeErr := influxClient.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		}()
		influxClient.SetOnError(func(err error) {
			log.Error("InfluxDB write error", "error", err)
		})
		log.Info("InfluxDB connected",
			"url", cfg.InfluxDB.URL,
			"org", cfg.InfluxDB.Org,
			"bucket", cfg.InfluxDB.Bucket,
		)
	} else {
		log.Info("InfluxDB disabled")
	}

	// Notifier (desktop and/or MQTT, both best-effort)
	notifyOpts := notify.Options{
		Desktop: cfg.Notifications.Desktop,
		AppName: cfg.Notifications.AppName,
		QoS:     byte(cfg.MQTT.QoS),
	}
	if mqttClient != nil {
		notifyOpts.Publisher = mqttClient
	}
	notifier := notify.New(notifyOpts)
	notifier.SetLogger(log)

	// WebSocket event hub, shared by the API server, the monitor, and
	// the battery manager
	hub := events.NewHub(cfg.WebSocket, log)
	go hub.Run(ctx)

	// In local mode a physical button press reaches the daemon only
	// through the relay's state pushes; forward those to WebSocket
	// clients.
	if local, ok := controller.(*tuya.Local); ok {
		err = local.WatchState(func(states map[int]bool) {
			hub.Broadcast(events.ChannelDeviceState, events.StateEvent{States: states})
		})
		if err != nil {
			return fmt.Errorf("subscribing to device state pushes: %w", err)
		}
	}

	// Switch dispatcher: outlet validation and master semantics
	dispatcher, err := socket.New(socket.Options{
		Controller:   controller,
		Outlets:      cfg.Device.Outlets,
		MasterMode:   cfg.Device.Master.Mode,
		MasterOutlet: cfg.Device.Master.Outlet,
		Events:       &commandBroadcaster{hub: hub},
		Logger:       log,
	})
	if err != nil {
		return fmt.Errorf("creating switch dispatcher: %w", err)
	}

	// Connectivity monitor (needs the cloud API for the online flag)
	if cfg.Monitor.Enabled {
		if cloudClient == nil {
			log.Warn("connectivity monitor disabled: no cloud credentials for the online probe")
		} else {
			mon, monErr := startMonitor(ctx, cfg, cloudClient, dispatcher, notifier, influxClient, hub, log)
			if monErr != nil {
				return fmt.Errorf("starting connectivity monitor: %w", monErr)
			}
			defer func() {
				log.Info("stopping connectivity monitor")
				mon.Stop()
			}()
		}
	} else {
		log.Info("connectivity monitor disabled")
	}

	// Battery charge manager (optional)
	if cfg.Battery.Enabled {
		mgr, batErr := startBattery(ctx, cfg, dispatcher, notifier, influxClient, hub, log)
		if batErr != nil {
			return fmt.Errorf("starting battery manager: %w", batErr)
		}
		defer func() {
			log.Info("stopping battery manager")
			mgr.Stop()
		}()
	} else {
		log.Info("battery manager disabled")
	}

	// HTTP API server
	apiDeps := api.Deps{
		Config:     cfg.API,
		WS:         cfg.WebSocket,
		Logger:     log,
		Sockets:    dispatcher,
		Hub:        hub,
		DeviceID:   cfg.Device.ID,
		DeviceName: cfg.Device.Name,
		Version:    version,
	}
	if mqttClient != nil {
		apiDeps.MQTT = mqttClient
	}
	if influxClient != nil {
		apiDeps.Influx = influxClient
	}

	apiServer, err := api.New(apiDeps)
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}
	if err := apiServer.Start(ctx); err != nil {
		return fmt.Errorf("starting API server: %w", err)
	}
	defer func() {
		log.Info("stopping API server")
		if closeErr := apiServer.Close(); closeErr != nil {
			log.Error("error closing API server", "error", closeErr)
		}
	}()
	log.Info("API server started", "address", fmt.Sprintf("%s:%d", cfg.API.Host, cfg.API.Port))

	// Verify all connections are healthy
	if err := healthCheck(ctx, mqttClient, influxClient, apiServer); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	log.Info("all health checks passed")

	log.Info("initialisation complete, waiting for shutdown signal",
		"device", cfg.Device.Name,
		"device_id", cfg.Device.ID,
		"transport", transportName(cfg.Tuya.UseLocal),
	)

	// Wait for shutdown signal
	<-ctx.Done()

	log.Info("shutdown signal received, cleaning up")

	// Deferred Close() calls run in reverse order:
	// API server, battery manager, monitor, InfluxDB, MQTT.

	log.Info("socketd stopped")
	return nil
}

// loadConfig resolves the daemon configuration.
//
// An explicit SOCKETD_CONFIG path must load; the default path falls
// back to pure environment configuration when the file is absent, so
// a bare container with only TUYA_* variables still comes up.
func loadConfig() (*config.Config, string, error) {
	if path := os.Getenv("SOCKETD_CONFIG"); path != "" {
		cfg, err := config.Load(path)
		if err != nil {
			return nil, "", err
		}
		return cfg, path, nil
	}

	if _, err := os.Stat(defaultConfigPath); err == nil {
		cfg, loadErr := config.Load(defaultConfigPath)
		if loadErr != nil {
			return nil, "", loadErr
		}
		return cfg, defaultConfigPath, nil
	}

	cfg, err := config.FromEnv()
	if err != nil {
		return nil, "", err
	}
	return cfg, "environment", nil
}

// buildController selects and constructs the device transport.
//
// Cloud mode also hands the cloud client back separately so the
// connectivity monitor can use its online probe. In local mode a
// monitor-only cloud client is built when credentials are present.
func buildController(cfg *config.Config, mqttClient *mqtt.Client, log *logging.Logger) (socket.Controller, *tuya.Cloud, error) {
	if cfg.Tuya.UseLocal {
		if mqttClient == nil {
			return nil, nil, fmt.Errorf("local transport requires MQTT to be enabled")
		}

		local, err := tuya.NewLocal(cfg.Tuya, cfg.Device.ID, mqttClient, byte(cfg.MQTT.QoS))
		if err != nil {
			return nil, nil, err
		}
		local.SetLogger(log)
		log.Info("using local device transport", "device_ip", cfg.Tuya.DeviceIP)

		// Monitor-only cloud client, if credentials allow
		var cloud *tuya.Cloud
		if cfg.Tuya.APIKey != "" && cfg.Tuya.APISecret != "" {
			cloud, err = tuya.NewCloud(cfg.Tuya, cfg.Device.ID)
			if err != nil {
				return nil, nil, fmt.Errorf("cloud client for monitoring: %w", err)
			}
			cloud.SetLogger(log)
		}

		return local, cloud, nil
	}

	cloud, err := tuya.NewCloud(cfg.Tuya, cfg.Device.ID)
	if err != nil {
		return nil, nil, err
	}
	cloud.SetLogger(log)
	log.Info("using cloud device transport", "region", cfg.Tuya.Region)

	return cloud, cloud, nil
}

// startMonitor builds and starts the connectivity monitor.
func startMonitor(ctx context.Context, cfg *config.Config, cloud *tuya.Cloud, dispatcher *socket.Dispatcher, notifier *notify.Notifier, influxClient *influxdb.Client, hub *events.Hub, log *logging.Logger) (*monitor.Monitor, error) {
	opts := monitor.Options{
		DeviceID:   cfg.Device.ID,
		DeviceName: cfg.Device.Name,
		Interval:   time.Duration(cfg.Monitor.Interval) * time.Second,
		Checker:    cloud,
		Status:     dispatcher,
		Notifier:   notifier,
		Events:     hub,
	}
	if influxClient != nil {
		opts.Metrics = influxClient
	}

	mon, err := monitor.New(opts)
	if err != nil {
		return nil, err
	}
	mon.SetLogger(log)
	mon.Start(ctx)

	log.Info("connectivity monitor started", "interval_seconds", cfg.Monitor.Interval)
	return mon, nil
}

// startBattery builds and starts the battery charge manager.
func startBattery(ctx context.Context, cfg *config.Config, dispatcher *socket.Dispatcher, notifier *notify.Notifier, influxClient *influxdb.Client, hub *events.Hub, log *logging.Logger) (*battery.Manager, error) {
	host, err := os.Hostname()
	if err != nil {
		log.Warn("could not resolve hostname for battery samples", "error", err)
		host = ""
	}

	opts := battery.Options{
		Host:         host,
		Outlet:       cfg.Battery.Outlet,
		MinPercent:   cfg.Battery.Min,
		MaxPercent:   cfg.Battery.Max,
		Interval:     time.Duration(cfg.Battery.Interval) * time.Second,
		AllowedSSIDs: cfg.Battery.AllowedSSIDs,
		Switcher:     dispatcher,
		Battery:      power.NewSysfsReader(""),
		Resolver:     netinfo.NewCommandResolver(),
		Notifier:     notifier,
		Events:       hub,
	}
	if influxClient != nil {
		opts.Metrics = influxClient
	}

	mgr, err := battery.New(opts)
	if err != nil {
		return nil, err
	}
	mgr.SetLogger(log)
	mgr.Start(ctx)

	log.Info("battery manager started",
		"outlet", cfg.Battery.Outlet,
		"min_percent", cfg.Battery.Min,
		"max_percent", cfg.Battery.Max,
		"interval_seconds", cfg.Battery.Interval,
	)
	return mgr, nil
}

// healthCheck verifies all infrastructure connections are healthy.
func healthCheck(ctx context.Context, mqttClient *mqtt.Client, influxClient *influxdb.Client, apiServer *api.Server) error {
	if mqttClient != nil {
		if err := mqttClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("mqtt: %w", err)
		}
	}

	if influxClient != nil {
		if err := influxClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("influxdb: %w", err)
		}
	}

	if err := apiServer.HealthCheck(ctx); err != nil {
		return fmt.Errorf("api: %w", err)
	}

	return nil
}

func transportName(useLocal bool) string {
	if useLocal {
		return "local"
	}
	return "cloud"
}

// commandBroadcaster forwards applied switch commands onto the
// WebSocket event stream.
type commandBroadcaster struct {
	hub *events.Hub
}

// CommandApplied implements socket.EventSink.
func (b *commandBroadcaster) CommandApplied(outlet int, on bool) {
	b.hub.Broadcast(events.ChannelDeviceCommand, events.CommandEvent{
		Outlet: outlet,
		On:     on,
	})
}
