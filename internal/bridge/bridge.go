package bridge

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/nerrad567/gray-logic-insteon/internal/infrastructure/mqtt"
	"github.com/nerrad567/gray-logic-insteon/internal/insteon"
)

// MQTTClient is the subset of *mqtt.Client used by the bridge.
// This allows mocking in tests.
type MQTTClient interface {
	Publish(topic string, payload []byte, qos byte, retained bool) error
	Subscribe(topic string, qos byte, handler mqtt.MessageHandler) error
	Unsubscribe(topic string) error
}

// Dispatcher runs a command payload against a target. *command.Dispatcher
// satisfies it.
type Dispatcher interface {
	Run(target string, payload []byte, onDone insteon.DoneFunc)
}

// Options holds the dependencies of a bridge.
type Options struct {
	// MQTT is the broker connection.
	MQTT MQTTClient

	// Topics builds the command, reply and device topics.
	Topics mqtt.Topics

	// Dispatcher runs incoming commands.
	Dispatcher Dispatcher

	// Registry is announced on start and watched for new devices.
	Registry *insteon.Registry

	// QoS is used for every publish and subscription.
	QoS byte

	// Logger is optional.
	Logger insteon.Logger
}

// Reply is the result of one command, published on the reply topic.
type Reply struct {
	ID      string         `json:"id"`
	Target  string         `json:"target"`
	Success bool           `json:"success"`
	Message string         `json:"message"`
	Entry   *insteon.Entry `json:"entry,omitempty"`
}

// Announcement describes a known endpoint on its device topic.
type Announcement struct {
	Address string `json:"address"`
	Name    string `json:"name,omitempty"`
	Modem   bool   `json:"modem"`
}

// Bridge routes MQTT commands to the dispatcher and publishes the results.
//
// Thread Safety: All public methods are safe for concurrent use.
type Bridge struct {
	mqtt       MQTTClient
	topics     mqtt.Topics
	dispatcher Dispatcher
	registry   *insteon.Registry
	qos        byte
	logger     insteon.Logger

	mu          sync.Mutex
	started     bool
	stopped     bool // guards wg.Add against Stop's wg.Wait
	unsubscribe func()

	wg       sync.WaitGroup
	stopOnce sync.Once
}

// New creates a bridge. Call Start to begin routing commands.
func New(opts Options) (*Bridge, error) {
	if opts.MQTT == nil {
		return nil, fmt.Errorf("MQTT client is required")
	}
	if opts.Dispatcher == nil {
		return nil, fmt.Errorf("dispatcher is required")
	}
	if opts.Registry == nil {
		return nil, fmt.Errorf("registry is required")
	}

	logger := opts.Logger
	if logger == nil {
		logger = insteon.NoopLogger{}
	}

	return &Bridge{
		mqtt:       opts.MQTT,
		topics:     opts.Topics,
		dispatcher: opts.Dispatcher,
		registry:   opts.Registry,
		qos:        opts.QoS,
		logger:     logger,
	}, nil
}

// Start announces the known endpoints, watches the registry for new devices
// and subscribes to the command topics.
func (b *Bridge) Start(_ context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.started {
		return ErrAlreadyStarted
	}

	if m := b.registry.Modem(); m != nil {
		b.announce(m)
	}
	for _, d := range b.registry.Devices() {
		b.announce(d)
	}
	b.unsubscribe = b.registry.Subscribe(b.announce)

	if err := b.mqtt.Subscribe(b.topics.AllCommands(), b.qos, b.handleCommand); err != nil {
		b.unsubscribe()
		b.unsubscribe = nil
		return fmt.Errorf("subscribing to commands: %w", err)
	}

	b.started = true
	b.logger.Info("bridge started",
		"commands", b.topics.AllCommands(),
		"devices", b.registry.Count(),
	)
	return nil
}

// Stop unsubscribes from the command topics and waits for commands being
// dispatched to hand off. Replies for commands still in progress are
// published when they complete.
// Safe to call multiple times.
func (b *Bridge) Stop() error {
	var err error
	b.stopOnce.Do(func() {
		b.mu.Lock()
		b.stopped = true
		started := b.started
		if b.unsubscribe != nil {
			b.unsubscribe()
			b.unsubscribe = nil
		}
		b.mu.Unlock()

		if started {
			if uerr := b.mqtt.Unsubscribe(b.topics.AllCommands()); uerr != nil {
				err = fmt.Errorf("unsubscribing from commands: %w", uerr)
			}
		}

		b.wg.Wait()
		b.logger.Info("bridge stopped")
	})
	return err
}

// Execute runs a command as if it had arrived on the command topic of
// target and publishes the reply. It returns the correlation id.
func (b *Bridge) Execute(target string, payload []byte) (string, error) {
	b.mu.Lock()
	started := b.started
	b.mu.Unlock()
	if !started {
		return "", ErrNotStarted
	}

	id := commandID(payload)
	b.run(id, target, payload)
	return id, nil
}

// handleCommand is the MQTT handler for {prefix}/command/+.
func (b *Bridge) handleCommand(topic string, payload []byte) error {
	target, ok := b.topics.CommandTarget(topic)
	if !ok {
		b.logger.Warn("ignoring message on unexpected topic", "topic", topic)
		return nil
	}

	id := commandID(payload)
	b.logger.Debug("command received", "id", id, "target", target)

	b.mu.Lock()
	if b.stopped {
		b.mu.Unlock()
		b.logger.Debug("bridge stopping, dropping command", "id", id, "target", target)
		return nil
	}
	b.wg.Add(1)
	b.mu.Unlock()

	// The MQTT callback must not block on our own publishes.
	go func() {
		defer b.wg.Done()
		b.run(id, target, payload)
	}()
	return nil
}

// run dispatches one command and publishes its single reply.
func (b *Bridge) run(id, target string, payload []byte) {
	b.dispatcher.Run(target, payload, func(success bool, msg string, data any) {
		reply := Reply{
			ID:      id,
			Target:  target,
			Success: success,
			Message: msg,
		}
		if entry, ok := data.(*insteon.Entry); ok {
			reply.Entry = entry
		}
		b.publishReply(reply)
	})
}

func (b *Bridge) publishReply(reply Reply) {
	payload, err := json.Marshal(reply)
	if err != nil {
		b.logger.Error("encoding reply failed", "id", reply.ID, "error", err)
		return
	}

	topic := b.topics.Reply(reply.Target)
	if err := b.mqtt.Publish(topic, payload, b.qos, false); err != nil {
		b.logger.Error("publishing reply failed", "id", reply.ID, "topic", topic, "error", err)
		return
	}

	if reply.Success {
		b.logger.Info("command complete", "id", reply.ID, "target", reply.Target, "message", reply.Message)
	} else {
		b.logger.Warn("command failed", "id", reply.ID, "target", reply.Target, "message", reply.Message)
	}
}

// announce publishes d as a retained message on its device topic.
func (b *Bridge) announce(d insteon.Device) {
	a := Announcement{
		Address: d.Addr().String(),
		Modem:   insteon.IsModem(d),
	}
	if !a.Modem {
		a.Name = d.Name()
	}

	payload, err := json.Marshal(a)
	if err != nil {
		b.logger.Error("encoding announcement failed", "device", insteon.Label(d), "error", err)
		return
	}

	topic := b.topics.Device(d.Addr().Hex())
	if err := b.mqtt.Publish(topic, payload, b.qos, true); err != nil {
		b.logger.Error("announcing device failed", "device", insteon.Label(d), "error", err)
		return
	}
	b.logger.Debug("device announced", "device", insteon.Label(d), "topic", topic)
}

// commandID returns the payload's "id" field, or a new UUID when absent.
func commandID(payload []byte) string {
	var envelope struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(payload, &envelope); err == nil && envelope.ID != "" {
		return envelope.ID
	}
	return uuid.NewString()
}
