package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// WriteBatteryStatus records one battery manager observation.
//
// The write is non-blocking; data is batched and sent asynchronously.
//
// Parameters:
//   - device: Host machine name (e.g., "thinkpad-x1")
//   - ssid: Wi-Fi network at observation time ("" becomes "unknown")
//   - percent: Battery charge percentage
//   - plugged: Whether the charger outlet was on
//
// Example:
//
//	client.WriteBatteryStatus("thinkpad-x1", "home-iot", 42, true)
func (c *Client) WriteBatteryStatus(device string, ssid string, percent int, plugged bool) {
	if !c.IsConnected() {
		return
	}

	if ssid == "" {
		ssid = "unknown"
	}

	point := write.NewPoint(
		"battery_status",
		map[string]string{
			"device": device,
			"ssid":   ssid,
		},
		map[string]interface{}{
			"percent": percent,
			"plugged": plugged,
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}

// WriteConnectivity records one connectivity monitor observation.
//
// Parameters:
//   - deviceID: Vendor device identifier
//   - deviceName: Human-readable device name
//   - online: Whether the cloud saw the device
func (c *Client) WriteConnectivity(deviceID string, deviceName string, online bool) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"device_connectivity",
		map[string]string{
			"device_id":   deviceID,
			"device_name": deviceName,
		},
		map[string]interface{}{
			"is_online": online,
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}

// WritePoint writes a custom point with full control over tags and fields.
//
// Use this for custom measurements that don't fit the helper methods.
//
// Parameters:
//   - measurement: The measurement name (table)
//   - tags: Key-value pairs for indexing (low cardinality)
//   - fields: Key-value pairs for the actual data
//
// Example:
//
//	client.WritePoint("system_stats",
//	    map[string]string{"host": "socketd-01"},
//	    map[string]interface{}{"goroutines": 24})
func (c *Client) WritePoint(measurement string, tags map[string]string, fields map[string]interface{}) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(measurement, tags, fields, time.Now())
	c.writeAPI.WritePoint(point)
}

// WritePointWithTime writes a custom point with a specific timestamp.
//
// Use this when the timestamp is not "now" (e.g., delayed data).
//
// Parameters:
//   - measurement: The measurement name
//   - tags: Key-value pairs for indexing
//   - fields: Key-value pairs for the data
//   - timestamp: The exact time for this data point
func (c *Client) WritePointWithTime(measurement string, tags map[string]string, fields map[string]interface{}, timestamp time.Time) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(measurement, tags, fields, timestamp)
	c.writeAPI.WritePoint(point)
}
