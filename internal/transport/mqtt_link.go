package transport

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/nerrad567/gray-logic-insteon/internal/infrastructure/mqtt"
	"github.com/nerrad567/gray-logic-insteon/internal/insteon"
)

// MQTTClient is the subset of *mqtt.Client used by MQTTLink.
// This allows mocking in tests.
type MQTTClient interface {
	Publish(topic string, payload []byte, qos byte, retained bool) error
	Subscribe(topic string, qos byte, handler mqtt.MessageHandler) error
}

// Replier receives decoded gateway replies. *Queue satisfies it.
type Replier interface {
	Deliver(r insteon.Reply)
}

// MQTTLink reaches the modem gateway over a pair of MQTT topics.
//
// Outbound messages are published to TxTopic as a JSON object carrying the
// message fields plus "type" and the queue's "seq":
//
//	{"type":"write_record","seq":7,"endpoint":"11.22.33","entry":{...}}
//
// The gateway answers on RxTopic and should echo "seq" so late replies to a
// timed-out message are dropped:
//
//	{"seq":7,"ack":true,"entry":{"addr":"44.85.11","group":1,"is_controller":false,"data":[0,0,0]}}
//	{"seq":7,"ack":false,"error":"no modem"}
type MQTTLink struct {
	client  MQTTClient
	txTopic string
	rxTopic string
	qos     byte
	logger  insteon.Logger
}

// MQTTLink implements Link.
var _ Link = (*MQTTLink)(nil)

// NewMQTTLink creates a link publishing to txTopic and reading rxTopic.
func NewMQTTLink(client MQTTClient, txTopic, rxTopic string, qos byte, logger insteon.Logger) *MQTTLink {
	if logger == nil {
		logger = insteon.NoopLogger{}
	}
	return &MQTTLink{
		client:  client,
		txTopic: txTopic,
		rxTopic: rxTopic,
		qos:     qos,
		logger:  logger,
	}
}

// Write publishes msg to the gateway tx topic.
func (l *MQTTLink) Write(ctx context.Context, msg insteon.Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	payload, err := EncodeMessage(msg, SeqFrom(ctx))
	if err != nil {
		return err
	}

	if err := l.client.Publish(l.txTopic, payload, l.qos, false); err != nil {
		return fmt.Errorf("publish %s: %w", msg.Type(), err)
	}
	return nil
}

// Attach subscribes to the gateway rx topic and hands every decoded reply
// to r. Undecodable replies are logged and dropped.
func (l *MQTTLink) Attach(r Replier) error {
	err := l.client.Subscribe(l.rxTopic, l.qos, func(_ string, payload []byte) error {
		reply, err := DecodeReply(payload)
		if err != nil {
			l.logger.Warn("dropping gateway reply", "topic", l.rxTopic, "error", err)
			return err
		}
		r.Deliver(reply)
		return nil
	})
	if err != nil {
		return fmt.Errorf("subscribe to gateway replies: %w", err)
	}
	return nil
}

// EncodeMessage returns the gateway wire form of msg. A zero seq is omitted.
func EncodeMessage(msg insteon.Message, seq uint64) ([]byte, error) {
	body, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("encoding %s: %w", msg.Type(), err)
	}

	fields := map[string]json.RawMessage{}
	if err := json.Unmarshal(body, &fields); err != nil {
		return nil, fmt.Errorf("encoding %s: %w", msg.Type(), err)
	}

	kind, err := json.Marshal(msg.Type())
	if err != nil {
		return nil, err
	}
	fields["type"] = kind
	if seq != 0 {
		fields["seq"] = json.RawMessage(strconv.FormatUint(seq, 10))
	}

	return json.Marshal(fields)
}

// wireReply is the gateway reply format.
type wireReply struct {
	Seq   uint64         `json:"seq,omitempty"`
	Ack   bool           `json:"ack"`
	Entry *insteon.Entry `json:"entry,omitempty"`
	Error string         `json:"error,omitempty"`
}

// DecodeReply parses a gateway reply. A non-empty "error" field becomes
// Reply.Err wrapping ErrGateway.
func DecodeReply(payload []byte) (insteon.Reply, error) {
	var w wireReply
	if err := json.Unmarshal(payload, &w); err != nil {
		return insteon.Reply{}, fmt.Errorf("%w: %w", ErrInvalidReply, err)
	}

	r := insteon.Reply{Ack: w.Ack, Entry: w.Entry, Seq: w.Seq}
	if w.Error != "" {
		r.Err = fmt.Errorf("%w: %s", ErrGateway, w.Error)
	}
	return r, nil
}
