package influxdb

import (
	"strconv"
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// WritePropertyValue records a numeric property update for one virtual
// device.
//
// The write is non-blocking; data is batched and sent asynchronously.
// Boolean properties are recorded as 0/1 by the caller.
//
// Parameters:
//   - instance: Device instance id
//   - property: Property key (e.g., "soc", "temperature", "switch_1")
//   - origin: Where the update came from ("telemetry" or "gui")
//   - value: The numeric value to record
//
// Example:
//
//	client.WritePropertyValue(41, "soc", "telemetry", 87.5)
func (c *Client) WritePropertyValue(instance int, property string, origin string, value float64) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"property_value",
		map[string]string{
			"instance": strconv.Itoa(instance),
			"property": property,
			"origin":   origin,
		},
		map[string]interface{}{
			"value": value,
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}

// WritePoint writes a custom point with full control over tags and fields.
//
// Use this for measurements that don't fit WritePropertyValue.
//
// Parameters:
//   - measurement: The measurement name (table)
//   - tags: Key-value pairs for indexing (low cardinality)
//   - fields: Key-value pairs for the actual data
func (c *Client) WritePoint(measurement string, tags map[string]string, fields map[string]interface{}) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(measurement, tags, fields, time.Now())
	c.writeAPI.WritePoint(point)
}
