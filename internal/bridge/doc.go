// Package bridge connects the Insteon command dispatcher to MQTT.
//
// Commands arrive on {prefix}/command/{target}, where target is "modem", a
// device name or an address. The payload is the command JSON understood by
// the command package, optionally carrying an "id" that is echoed in the
// reply:
//
//	insteon/command/kitchen  {"id":"42","cmd":"refresh","force":true}
//
// Each command is answered exactly once on {prefix}/reply/{target}:
//
//	{"id":"42","target":"kitchen","success":true,"message":"11.22.33 database download complete: 12 entries"}
//
// Commands without an id get a generated one. Every known endpoint is
// announced as a retained message on {prefix}/device/{address} when the
// bridge starts and whenever a new device is registered.
//
// HealthReporter publishes a retained status document on {prefix}/health at
// a fixed interval, reporting the device count and transport queue depth.
package bridge
