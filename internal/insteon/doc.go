// Package insteon holds the core types shared by the Insteon bridge.
//
// # Overview
//
// An Insteon network is a set of addressable endpoints (the PLM modem and
// remote devices) that each keep an all-link database of controller and
// responder records. This package defines:
//
//   - Address: the 24-bit endpoint identity and its text forms
//   - Entry: one link record (address, group, role, 3 byte payload)
//   - Device / Modem: the endpoint capability interfaces
//   - Registry: lookup of endpoints by address or friendly name, plus
//     new-device subscriptions
//   - CommandSeq: ordered execution of asynchronous steps with a single
//     completion callback
//   - Protocol, Message, Reply, Handler: the contract with the transport
//
// # Asynchronous Model
//
// Every operation that touches the network is asynchronous and reports
// through a DoneFunc:
//
//	modem.AddLink(insteon.LinkRequest{
//	    Target:       "lamp",
//	    Group:        3,
//	    IsController: true,
//	    TwoWay:       true,
//	}, func(ok bool, msg string, data any) {
//	    log.Info("link add finished", "success", ok, "message", msg)
//	})
//
// The transport processes one message at a time in submission order. Code
// in the insteon packages relies on that ordering and never blocks waiting
// for a reply.
//
// # Thread Safety
//
// Registry is safe for concurrent use. CommandSeq is owned by the goroutine
// that builds and runs it.
package insteon
