// Package influxdb provides InfluxDB connectivity for the Insteon bridge.
//
// It wraps the official influxdb-client-go v2 library for connection
// management, metric writing, and health monitoring.
//
// # Purpose
//
// Client implements insteon.Recorder. Every link record write or delete and
// every link table download is written as a point:
//   - insteon_link_update (tags: endpoint, op; fields: success, count)
//   - insteon_refresh (tags: endpoint; fields: success, entries)
//
// # Usage
//
//	client, err := influxdb.Connect(cfg.InfluxDB)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	modem.New(modem.Options{..., Recorder: client})
//
// # Thread Safety
//
// All methods are safe for concurrent use from multiple goroutines.
// The underlying write API uses non-blocking batched writes.
//
// # Error Handling
//
// Points are batched and written in the background. A failed batch reaches
// the SetOnError callback wrapped in ErrWriteFailed; the bridge logs it.
// Connection and health check errors are returned directly.
//
// # Tags
//
// influxdb.tags from config.yaml become default tags on every point. The
// bridge sets "modem" to the modem address unless the config names it.
package influxdb
