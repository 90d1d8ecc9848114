// Package mqtt is the bridge's connection to the MQTT broker.
//
// All bridge traffic goes through one Client:
//
//	{prefix}/command/{target}   automation commands (subscribed)
//	{prefix}/reply/{target}     one reply per command
//	{prefix}/device/{address}   retained device announcements
//	{prefix}/status             retained online/offline, also the LWT
//	{prefix}/health             retained periodic health
//	gateway tx/rx topics        raw modem frames to and from the PLM gateway
//
// The Client reconnects by itself and resubscribes everything that was
// subscribed through it. Publish and Subscribe wait for the broker's
// acknowledgement, bounded by a timeout that surfaces as ErrTimeout.
//
// Use TLS (mqtt.broker.tls) with credentials whenever the broker is
// reachable from outside the host.
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	err = client.Subscribe(client.Topics().AllCommands(), 1,
//	    func(topic string, payload []byte) error {
//	        target, _ := client.Topics().CommandTarget(topic)
//	        return handle(target, payload)
//	    })
package mqtt
