package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/nerrad567/gray-logic-insteon/internal/insteon"
)

// Measurement names.
const (
	MeasurementLinkUpdate = "insteon_link_update"
	MeasurementRefresh    = "insteon_refresh"
)

// Client implements insteon.Recorder.
var _ insteon.Recorder = (*Client)(nil)

// RecordLinkUpdate writes one link record write or delete outcome.
//
// Parameters:
//   - endpoint: Address of the modem or device whose table changed
//   - op: "write" or "delete"
//   - success: false when the endpoint refused or the reply timed out
func (c *Client) RecordLinkUpdate(endpoint insteon.Address, op string, success bool) {
	c.WritePoint(MeasurementLinkUpdate,
		map[string]string{
			"endpoint": endpoint.String(),
			"op":       op,
		},
		map[string]interface{}{
			"success": success,
			"count":   1,
		},
	)
}

// RecordRefresh writes the outcome of a link table download.
//
// Parameters:
//   - endpoint: Address of the endpoint that was read
//   - entries: Records received before the download ended
//   - success: false when the download was cut short
func (c *Client) RecordRefresh(endpoint insteon.Address, entries int, success bool) {
	c.WritePoint(MeasurementRefresh,
		map[string]string{
			"endpoint": endpoint.String(),
		},
		map[string]interface{}{
			"success": success,
			"entries": entries,
		},
	)
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
//	client.WritePoint("bridge_stats",
//	    map[string]string{"host": "bridge-01"},
//	    map[string]interface{}{"queue_depth": 3})
func (c *Client) WritePoint(measurement string, tags map[string]string, fields map[string]interface{}) {
	c.WritePointWithTime(measurement, tags, fields, time.Now())
}

// WritePointWithTime writes a custom point with a specific timestamp.
//
// Parameters:
//   - measurement: The measurement name
//   - tags: Key-value pairs for indexing
//   - fields: Key-value pairs for the data
//   - timestamp: The exact time for this data point
func (c *Client) WritePointWithTime(measurement string, tags map[string]string, fields map[string]interface{}, timestamp time.Time) {
	if c == nil || !c.IsConnected() {
		return
	}

	point := write.NewPoint(measurement, tags, fields, timestamp)
	c.writeAPI.WritePoint(point)
}
