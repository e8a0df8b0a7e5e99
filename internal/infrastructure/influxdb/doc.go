// Package influxdb provides InfluxDB connectivity for the socket daemon.
//
// It wraps the official influxdb-client-go v2 library with connection
// management, metric writing, and health monitoring tailored to the
// daemon's telemetry needs.
//
// # Purpose
//
// This package handles time-series data storage for:
//   - Battery charge tracking from the charger automation
//   - Device connectivity history from the reachability monitor
//
// # Usage
//
//	cfg := config.InfluxDBConfig{
//	    Enabled: true,
//	    URL:     "http://localhost:8086",
//	    Token:   "your-token",
//	    Org:     "home",
//	    Bucket:  "telemetry",
//	}
//
//	client, err := influxdb.Connect(cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	// Record a battery sample
//	client.WriteBatteryStatus("laptop", "home-wifi", 72, true)
//
// # Thread Safety
//
// All methods are safe for concurrent use from multiple goroutines.
// The underlying write API uses non-blocking batched writes.
//
// # Error Handling
//
// Write operations are non-blocking and batch errors are delivered via a
// callback. Connection and health check errors are returned directly.
//
// # Performance
//
// Writes are batched according to configuration (batch_size, flush_interval).
// This reduces network overhead for periodic telemetry samples.
package influxdb
