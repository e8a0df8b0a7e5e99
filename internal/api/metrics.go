package api

import (
	"net/http"
	"runtime"
	"time"
)

// ConnectionReporter reports whether a backend connection is up.
// Both the MQTT and InfluxDB clients satisfy it.
type ConnectionReporter interface {
	IsConnected() bool
}

// SystemMetrics represents the complete system metrics response.
type SystemMetrics struct {
	Timestamp     string         `json:"timestamp"`
	Version       string         `json:"version"`
	UptimeSeconds int64          `json:"uptime_seconds"`
	Runtime       RuntimeMetrics `json:"runtime"`
	WebSocket     WSMetrics      `json:"websocket"`
	MQTT          *ConnMetrics   `json:"mqtt,omitempty"`
	InfluxDB      *ConnMetrics   `json:"influxdb,omitempty"`
	Device        DeviceMetrics  `json:"device"`
}

// RuntimeMetrics contains Go runtime statistics.
type RuntimeMetrics struct {
	Goroutines    int     `json:"goroutines"`
	MemoryAllocMB float64 `json:"memory_alloc_mb"`
	MemoryTotalMB float64 `json:"memory_total_mb"`
	NumGC         uint32  `json:"num_gc"`
}

// WSMetrics contains WebSocket hub statistics.
type WSMetrics struct {
	ConnectedClients int `json:"connected_clients"`
}

// ConnMetrics contains backend connection statistics.
type ConnMetrics struct {
	Connected bool `json:"connected"`
}

// DeviceMetrics identifies the managed device.
type DeviceMetrics struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Outlets int    `json:"outlets"`
}

// handleMetrics returns daemon runtime metrics.
func (s *Server) handleMetrics(w http.ResponseWriter, _ *http.Request) {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	metrics := SystemMetrics{
		Timestamp:     time.Now().UTC().Format(time.RFC3339),
		Version:       s.version,
		UptimeSeconds: int64(time.Since(s.startTime).Seconds()),
		Runtime: RuntimeMetrics{
			Goroutines:    runtime.NumGoroutine(),
			MemoryAllocMB: float64(memStats.Alloc) / 1024 / 1024,
			MemoryTotalMB: float64(memStats.TotalAlloc) / 1024 / 1024,
			NumGC:         memStats.NumGC,
		},
		WebSocket: WSMetrics{
			ConnectedClients: s.hub.ClientCount(),
		},
		Device: DeviceMetrics{
			ID:      s.deviceID,
			Name:    s.deviceName,
			Outlets: s.sockets.Outlets(),
		},
	}

	if s.mqtt != nil {
		metrics.MQTT = &ConnMetrics{Connected: s.mqtt.IsConnected()}
	}
	if s.influx != nil {
		metrics.InfluxDB = &ConnMetrics{Connected: s.influx.IsConnected()}
	}

	writeJSON(w, http.StatusOK, metrics)
}
