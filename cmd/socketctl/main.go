// socketctl - command line control for a Tuya smart power socket
//
// The CLI talks to the Tuya cloud API directly with the same
// credentials the daemon uses, so it works whether or not socketd is
// running. Credentials come from the environment (TUYA_API_KEY,
// TUYA_API_SECRET, TUYA_API_REGION, TUYA_DEVICE_ID) or from a daemon
// config file via --config.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/nerrad567/tuya-socket/internal/infrastructure/config"
	"github.com/nerrad567/tuya-socket/internal/socket"
	"github.com/nerrad567/tuya-socket/internal/tuya"
)

// Exit codes: device failures are retryable, usage and credential
// problems are not.
const (
	exitDevice = 1
	exitUsage  = 2
	exitConfig = 3
)

// controller is the device surface the CLI drives. The cloud transport
// implements it; tests substitute a fake.
type controller interface {
	SetSwitch(ctx context.Context, outlet int, on bool) error
	Status(ctx context.Context) (map[int]bool, error)
	RawStatus(ctx context.Context) ([]tuya.DataPoint, error)
	Info(ctx context.Context) (*tuya.DeviceInfo, error)
	Online(ctx context.Context) (bool, error)
}

var (
	configPath string
	timeout    int

	deviceID string
	dev      controller
	sockets  *socket.Dispatcher
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	var cancel context.CancelFunc

	app := &cli.App{
		Name:  "socketctl",
		Usage: "Control a Tuya smart power socket from the command line",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "config",
				Usage:       "Daemon config file (default: environment variables only)",
				Destination: &configPath,
			},
			&cli.IntFlag{
				Name:        "timeout",
				Usage:       "Timeout in seconds for device operations",
				Value:       10,
				Destination: &timeout,
			},
		},

		Before: func(c *cli.Context) error {
			if c.NArg() == 0 {
				return nil
			}

			s, err := resolveSetup(configPath)
			if err != nil {
				return cli.Exit(fmt.Sprintf("Error: %v", err), exitConfig)
			}

			cloud, err := tuya.NewCloud(s.tuya, s.deviceID)
			if err != nil {
				return cli.Exit(fmt.Sprintf("Error: %v", err), exitConfig)
			}

			dispatcher, err := socket.New(socket.Options{
				Controller:   cloud,
				Outlets:      s.outlets,
				MasterMode:   s.masterMode,
				MasterOutlet: s.masterOutlet,
			})
			if err != nil {
				return cli.Exit(fmt.Sprintf("Error: %v", err), exitConfig)
			}

			deviceID = s.deviceID
			dev = cloud
			sockets = dispatcher

			ctx, cancel = context.WithTimeout(ctx, time.Duration(timeout)*time.Second)
			return nil
		},

		After: func(*cli.Context) error {
			if cancel != nil {
				cancel()
			}
			return nil
		},

		Commands: []*cli.Command{
			{
				Name:   "status",
				Usage:  "Show the device's online flag and per-outlet states",
				Action: func(*cli.Context) error { return runStatus(ctx, os.Stdout, dev) },
			},
			{
				Name:   "on",
				Usage:  "Turn the master switch on",
				Action: func(*cli.Context) error { return runMaster(ctx, os.Stdout, sockets, true) },
			},
			{
				Name:   "off",
				Usage:  "Turn the master switch off",
				Action: func(*cli.Context) error { return runMaster(ctx, os.Stdout, sockets, false) },
			},
			{
				Name:      "switch",
				Usage:     "Switch a single outlet",
				ArgsUsage: "<outlet> <on|off>",
				Action:    func(c *cli.Context) error { return runSwitch(ctx, os.Stdout, sockets, c.Args().Slice()) },
			},
			{
				Name:   "local-info",
				Usage:  "Fetch the local key and IP needed for USE_LOCAL mode",
				Action: func(*cli.Context) error { return runLocalInfo(ctx, os.Stdout, dev, deviceID) },
			},
			{
				Name:   "debug",
				Usage:  "Dump the raw device detail and status as JSON",
				Action: func(*cli.Context) error { return runDebug(ctx, os.Stdout, dev, deviceID) },
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		if ctx.Err() == context.Canceled {
			fmt.Fprintln(os.Stderr, "Interrupted")
			os.Exit(exitDevice)
		}
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(exitDevice)
	}
}

// setup carries the resolved device coordinates.
type setup struct {
	tuya         config.TuyaConfig
	deviceID     string
	outlets      int
	masterMode   string
	masterOutlet int
}

// resolveSetup builds the cloud credentials and outlet layout.
//
// With --config the daemon's file (plus its env overrides) is used.
// Without it the CLI reads the classic environment variables directly,
// skipping the daemon-level validation: socketctl only ever speaks to
// the cloud, so local-mode settings must not stop it (fetching them
// is what local-info is for).
func resolveSetup(path string) (setup, error) {
	if path != "" {
		cfg, err := config.Load(path)
		if err != nil {
			return setup{}, err
		}
		return setup{
			tuya:         cfg.Tuya,
			deviceID:     cfg.Device.ID,
			outlets:      cfg.Device.Outlets,
			masterMode:   cfg.Device.Master.Mode,
			masterOutlet: cfg.Device.Master.Outlet,
		}, nil
	}

	s := setup{
		tuya: config.TuyaConfig{
			Region:    envOr("TUYA_API_REGION", "us"),
			APIKey:    os.Getenv("TUYA_API_KEY"),
			APISecret: os.Getenv("TUYA_API_SECRET"),
		},
		deviceID:     envOr("TUYA_DEVICE_ID", "eb03bbe4df01c1351aaxjz"),
		outlets:      2,
		masterMode:   "outlet",
		masterOutlet: 1,
	}

	if s.tuya.APIKey == "" || s.tuya.APISecret == "" {
		return setup{}, fmt.Errorf("cloud access requires TUYA_API_KEY and TUYA_API_SECRET")
	}
	return s, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
