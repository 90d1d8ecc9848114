package mqtt

import (
	"context"
	"fmt"
	"sync"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/nerrad567/gray-logic-insteon/internal/infrastructure/config"
)

// Client is the bridge's broker session. One Client carries the gateway
// tx/rx traffic, the command and reply topics, and the retained
// announcement, status and health topics.
//
// Connect returns once the first session is up. After that paho reconnects
// on its own; every reconnect restores the tracked subscriptions and
// republishes the online status before SetOnConnect's callback runs.
//
// Thread Safety: All methods are safe for concurrent use.
type Client struct {
	paho   pahomqtt.Client
	cfg    config.MQTTConfig
	topics Topics

	mu           sync.RWMutex
	connected    bool
	onConnect    func()
	onDisconnect func(err error)
	logger       Logger

	subMu sync.RWMutex
	subs  map[string]subscription
}

// Logger receives handler failures and reconnect notices.
// *slog.Logger and logging.Logger satisfy it.
type Logger interface {
	Error(msg string, args ...any)
	Warn(msg string, args ...any)
}

// MessageHandler receives one message. topic is the concrete topic, not
// the subscribed filter. A returned error is logged and otherwise ignored.
type MessageHandler func(topic string, payload []byte) error

// Connect opens a session to the broker named in cfg.Broker.
//
// The LWT is registered before connecting, so a crash shows up as
// {"status":"offline","reason":"unexpected_disconnect"} on {prefix}/status.
//
// Returns:
//   - *Client: Connected client
//   - error: ErrConnectionFailed wrapping the cause or ErrTimeout
func Connect(cfg config.MQTTConfig) (*Client, error) {
	topics := NewTopics(cfg.TopicPrefix)
	c := &Client{
		cfg:    cfg,
		topics: topics,
		subs:   make(map[string]subscription),
	}

	opts := buildClientOptions(cfg)
	configureLWT(opts, topics, cfg.Broker.ClientID)
	opts.SetOnConnectHandler(func(pahomqtt.Client) { c.handleConnect() })
	opts.SetConnectionLostHandler(func(_ pahomqtt.Client, err error) { c.handleDisconnect(err) })
	opts.SetReconnectingHandler(func(pahomqtt.Client, *pahomqtt.ClientOptions) {
		if logger := c.getLogger(); logger != nil {
			logger.Warn("MQTT reconnecting", "broker", brokerURL(cfg.Broker))
		}
	})

	c.paho = pahomqtt.NewClient(opts)
	if err := await(c.paho.Connect(), defaultConnectTimeout, ErrConnectionFailed); err != nil {
		return nil, err
	}

	// handleConnect runs asynchronously and may not have fired yet.
	c.setConnected(true)
	return c, nil
}

// await waits up to timeout for token. Failures are reported as op wrapping
// ErrTimeout or the token's error.
func await(token pahomqtt.Token, timeout time.Duration, op error) error {
	if !token.WaitTimeout(timeout) {
		return fmt.Errorf("%w: %w after %v", op, ErrTimeout, timeout)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("%w: %w", op, err)
	}
	return nil
}

func (c *Client) handleConnect() {
	c.setConnected(true)
	c.restoreSubscriptions()
	if err := c.publishStatus(statusOnline, ""); err != nil {
		if logger := c.getLogger(); logger != nil {
			logger.Warn("MQTT online status not published", "error", err)
		}
	}

	c.mu.RLock()
	callback := c.onConnect
	c.mu.RUnlock()
	if callback != nil {
		callback()
	}
}

func (c *Client) handleDisconnect(err error) {
	c.setConnected(false)

	c.mu.RLock()
	callback := c.onDisconnect
	c.mu.RUnlock()
	if callback != nil {
		callback(err)
	}
}

func (c *Client) setConnected(v bool) {
	c.mu.Lock()
	c.connected = v
	c.mu.Unlock()
}

// publishStatus writes the retained bridge status.
func (c *Client) publishStatus(status, reason string) error {
	payload := statusPayload(c.cfg.Broker.ClientID, status, reason)
	return await(c.paho.Publish(c.topics.Status(), statusQoS, true, payload), defaultPublishTimeout, ErrPublishFailed)
}

// Close publishes a graceful offline status, which replaces the LWT, and
// disconnects. Safe on a Client that never connected.
func (c *Client) Close() error {
	if c == nil || c.paho == nil {
		return nil
	}

	if c.IsConnected() {
		if err := c.publishStatus(statusOffline, reasonShutdown); err != nil {
			if logger := c.getLogger(); logger != nil {
				logger.Warn("MQTT offline status not published", "error", err)
			}
		}
	}

	c.paho.Disconnect(defaultDisconnectQuiesce)
	c.setConnected(false)
	return nil
}

// HealthCheck reports ErrNotConnected while the session is down.
func (c *Client) HealthCheck(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("mqtt health check: %w", err)
	}
	if !c.IsConnected() {
		return ErrNotConnected
	}
	return nil
}

// Topics returns the topic builder for the configured prefix.
func (c *Client) Topics() Topics {
	return c.topics
}

// IsConnected reports whether the session is currently up.
func (c *Client) IsConnected() bool {
	if c == nil || c.paho == nil {
		return false
	}
	c.mu.RLock()
	connected := c.connected
	c.mu.RUnlock()
	return connected && c.paho.IsConnected()
}

// SetOnConnect sets a callback run after every successful (re)connect.
func (c *Client) SetOnConnect(callback func()) {
	c.mu.Lock()
	c.onConnect = callback
	c.mu.Unlock()
}

// SetOnDisconnect sets a callback run when the session is lost.
func (c *Client) SetOnDisconnect(callback func(err error)) {
	c.mu.Lock()
	c.onDisconnect = callback
	c.mu.Unlock()
}

// SetLogger sets the logger. With none, handler failures go unreported.
func (c *Client) SetLogger(logger Logger) {
	c.mu.Lock()
	c.logger = logger
	c.mu.Unlock()
}

func (c *Client) getLogger() Logger {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.logger
}

// wrapHandler adapts handler to paho. A panicking handler is logged and
// does not take down paho's delivery goroutine.
func (c *Client) wrapHandler(handler MessageHandler) pahomqtt.MessageHandler {
	return func(_ pahomqtt.Client, msg pahomqtt.Message) {
		topic := msg.Topic()
		defer func() {
			if r := recover(); r != nil {
				if logger := c.getLogger(); logger != nil {
					logger.Error("MQTT handler panic recovered", "topic", topic, "panic", r)
				}
			}
		}()

		if err := handler(topic, msg.Payload()); err != nil {
			if logger := c.getLogger(); logger != nil {
				logger.Warn("MQTT handler returned error", "topic", topic, "error", err)
			}
		}
	}
}
