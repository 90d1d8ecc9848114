package insteon

// Message is an outbound protocol message.
//
// Messages are opaque to the core: the gateway link encodes them for the
// wire. Type names the message kind for encoding and logging.
type Message interface {
	Type() string
}

// Message type names.
const (
	TypeWriteRecord    = "write_record"
	TypeDeleteRecord   = "delete_record"
	TypeGetFirstRecord = "get_first_record"
	TypeStartLinking   = "start_linking"
	TypeBarrier        = "barrier"
)

// WriteRecord asks an endpoint to add or update one link record.
// A zero Endpoint addresses the modem itself.
type WriteRecord struct {
	Endpoint Address `json:"endpoint"`
	Entry    Entry   `json:"entry"`
}

// Type implements Message.
func (WriteRecord) Type() string { return TypeWriteRecord }

// DeleteRecord asks an endpoint to remove one link record.
type DeleteRecord struct {
	Endpoint Address `json:"endpoint"`
	Entry    Entry   `json:"entry"`
}

// Type implements Message.
func (DeleteRecord) Type() string { return TypeDeleteRecord }

// GetFirstRecord starts a streaming read of an endpoint's link table.
// The gateway pages through the table and answers with one reply per
// record, followed by a single end-of-table reply.
type GetFirstRecord struct {
	Endpoint Address `json:"endpoint"`
}

// Type implements Message.
func (GetFirstRecord) Type() string { return TypeGetFirstRecord }

// StartLinking puts the modem into all-link mode for a group.
type StartLinking struct {
	Group uint8 `json:"group"`
}

// Type implements Message.
func (StartLinking) Type() string { return TypeStartLinking }

// Barrier is never written to the gateway. The transport answers it with a
// single Ack reply once every message submitted before it has finished, so
// a step that needs no traffic still completes in submission order.
type Barrier struct{}

// Type implements Message.
func (Barrier) Type() string { return TypeBarrier }

// Reply is one response delivered by the transport for a submitted message.
//
// Table reads answer with Ack=true and Entry set for each record and with
// Ack=false once the end of the table is reached. Err is set when the
// transport gave up (ErrTimeout) or the link failed. Seq, when non-zero,
// is the transport sequence number of the message being answered.
type Reply struct {
	Ack   bool   `json:"ack"`
	Entry *Entry `json:"entry,omitempty"`
	Seq   uint64 `json:"seq,omitempty"`
	Err   error  `json:"-"`
}

// Status tells the transport whether a handler expects more replies.
type Status int

const (
	// Continue keeps the handler active for further replies.
	Continue Status = iota

	// Finished releases the transport to send the next queued message.
	Finished
)

// Handler processes replies for one submitted message.
type Handler interface {
	HandleReply(r Reply) Status
}

// HandlerFunc adapts a function to the Handler interface.
type HandlerFunc func(r Reply) Status

// HandleReply implements Handler.
func (f HandlerFunc) HandleReply(r Reply) Status {
	return f(r)
}

// Protocol is the shared, half-duplex gate all outbound traffic goes through.
//
// Implementations must process messages in submission order with at most
// one message in flight, and deliver replies to the handler passed with the
// message. Send never blocks on the network.
type Protocol interface {
	Send(msg Message, handler Handler)
}
