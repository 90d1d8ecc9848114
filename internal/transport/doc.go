// Package transport is the single gate all modem traffic goes through.
//
// Queue implements insteon.Protocol: messages are written one at a time in
// submission order and each reply is routed to the handler of the message in
// flight. Link abstracts how bytes reach the modem; MQTTLink publishes to a
// gateway process that owns the serial port.
//
// # Usage
//
//	link := transport.NewMQTTLink(client, cfg.Gateway.TxTopic, cfg.Gateway.RxTopic, 1, logger)
//	queue := transport.NewQueue(link, cfg.GetReplyTimeout(), logger)
//	if err := link.Attach(queue); err != nil {
//	    return err
//	}
//	queue.Start(ctx)
//	defer queue.Stop()
package transport
