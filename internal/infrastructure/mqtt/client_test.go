package mqtt

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/nerrad567/gray-logic-insteon/internal/infrastructure/config"
)

// testConfig returns a valid MQTT configuration for testing.
// Tests that connect require a running broker at 127.0.0.1:1883 and live in
// integration_test.go.
func testConfig() config.MQTTConfig {
	return config.MQTTConfig{
		Broker: config.MQTTBrokerConfig{
			Host:     "127.0.0.1",
			Port:     1883,
			ClientID: "insteon-bridge-test",
			TLS:      false,
		},
		QoS:         1,
		TopicPrefix: "insteon",
		Reconnect: config.MQTTReconnectConfig{
			InitialDelay: 1,
			MaxDelay:     5,
		},
	}
}

// fakeMessage implements pahomqtt.Message for handler tests.
type fakeMessage struct {
	topic   string
	payload []byte
}

func (m fakeMessage) Duplicate() bool   { return false }
func (m fakeMessage) Qos() byte         { return 1 }
func (m fakeMessage) Retained() bool    { return false }
func (m fakeMessage) Topic() string     { return m.topic }
func (m fakeMessage) MessageID() uint16 { return 0 }
func (m fakeMessage) Payload() []byte   { return m.payload }
func (m fakeMessage) Ack()              {}

// fakeToken implements pahomqtt.Token with a fixed outcome.
type fakeToken struct {
	done bool
	err  error
}

func (t *fakeToken) Wait() bool                     { return t.done }
func (t *fakeToken) WaitTimeout(time.Duration) bool { return t.done }
func (t *fakeToken) Done() <-chan struct{} {
	ch := make(chan struct{})
	if t.done {
		close(ch)
	}
	return ch
}
func (t *fakeToken) Error() error { return t.err }

// mockLogger implements Logger interface for testing.
type mockLogger struct {
	errors []string
	warns  []string
	mu     sync.Mutex
}

func (l *mockLogger) Error(msg string, _ ...any) {
	l.mu.Lock()
	l.errors = append(l.errors, msg)
	l.mu.Unlock()
}

func (l *mockLogger) Warn(msg string, _ ...any) {
	l.mu.Lock()
	l.warns = append(l.warns, msg)
	l.mu.Unlock()
}

// =============================================================================
// Connection State Tests
// =============================================================================

func TestConnect_BrokerRefused(t *testing.T) {
	cfg := testConfig()
	cfg.Broker.Port = 19998

	// ConnectRetry keeps paho trying in the background, so the initial
	// attempt either times out or reports the refusal.
	_, err := Connect(cfg)
	if err == nil {
		t.Skip("a broker answered on the test port")
	}

	if !errors.Is(err, ErrConnectionFailed) {
		t.Errorf("Connect() error = %v, want ErrConnectionFailed", err)
	}
}

func TestIsConnected_InitialState(t *testing.T) {
	client := &Client{}

	if client.IsConnected() {
		t.Error("IsConnected() should be false for uninitialised client")
	}
}

func TestCloseNil(t *testing.T) {
	client := &Client{}
	err := client.Close()
	if err != nil {
		t.Errorf("Close() on nil client error = %v, want nil", err)
	}
}

func TestHealthCheck_NotConnected(t *testing.T) {
	client := &Client{}

	if err := client.HealthCheck(context.Background()); !errors.Is(err, ErrNotConnected) {
		t.Errorf("HealthCheck() error = %v, want ErrNotConnected", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := client.HealthCheck(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("HealthCheck() error = %v, want context.Canceled", err)
	}
}

// =============================================================================
// Validation Tests
// =============================================================================

func TestPublish_Validation(t *testing.T) {
	client := &Client{}

	tests := []struct {
		name    string
		topic   string
		payload []byte
		qos     byte
		wantErr error
	}{
		{"empty topic", "", []byte("x"), 1, ErrInvalidTopic},
		{"invalid qos", "insteon/test", []byte("x"), 3, ErrInvalidQoS},
		{"payload too large", "insteon/test", make([]byte, maxPayloadSize+1), 1, ErrPayloadTooLarge},
		{"not connected", "insteon/test", []byte("x"), 1, ErrNotConnected},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := client.Publish(tt.topic, tt.payload, tt.qos, false)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Publish() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestSubscribe_Validation(t *testing.T) {
	client := &Client{}
	handler := func(string, []byte) error { return nil }

	tests := []struct {
		name    string
		topic   string
		qos     byte
		handler MessageHandler
		wantErr error
	}{
		{"empty topic", "", 1, handler, ErrInvalidTopic},
		{"invalid qos", "insteon/test", 3, handler, ErrInvalidQoS},
		{"nil handler", "insteon/test", 1, nil, ErrSubscribeFailed},
		{"not connected", "insteon/test", 1, handler, ErrNotConnected},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := client.Subscribe(tt.topic, tt.qos, tt.handler)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Subscribe() error = %v, want %v", err, tt.wantErr)
			}
		})
	}

	if subs := client.Subscriptions(); len(subs) != 0 {
		t.Errorf("Subscriptions() = %v after failed subscribes, want none", subs)
	}
}

func TestUnsubscribe_Validation(t *testing.T) {
	client := &Client{}

	if err := client.Unsubscribe(""); !errors.Is(err, ErrInvalidTopic) {
		t.Errorf("Unsubscribe(\"\") error = %v, want ErrInvalidTopic", err)
	}
	if err := client.Unsubscribe("insteon/test"); !errors.Is(err, ErrNotConnected) {
		t.Errorf("Unsubscribe() error = %v, want ErrNotConnected", err)
	}
}

// =============================================================================
// Handler Wrapping Tests
// =============================================================================

func TestWrapHandler_RecoversPanic(t *testing.T) {
	client := &Client{}
	logger := &mockLogger{}
	client.SetLogger(logger)

	wrapped := client.wrapHandler(func(string, []byte) error {
		panic("boom")
	})
	wrapped(nil, fakeMessage{topic: "insteon/command/lamp"})

	if len(logger.errors) != 1 || !strings.Contains(logger.errors[0], "panic") {
		t.Errorf("errors = %v, want one panic log", logger.errors)
	}
}

func TestWrapHandler_LogsError(t *testing.T) {
	client := &Client{}
	logger := &mockLogger{}
	client.SetLogger(logger)

	var gotTopic, gotPayload string
	wrapped := client.wrapHandler(func(topic string, payload []byte) error {
		gotTopic, gotPayload = topic, string(payload)
		return errors.New("handler error")
	})
	wrapped(nil, fakeMessage{topic: "insteon/command/lamp", payload: []byte(`{"cmd":"refresh"}`)})

	if gotTopic != "insteon/command/lamp" || gotPayload != `{"cmd":"refresh"}` {
		t.Errorf("handler got (%q, %q)", gotTopic, gotPayload)
	}
	if len(logger.warns) != 1 {
		t.Errorf("warns = %v, want one", logger.warns)
	}
}

func TestWrapHandler_NoLogger(t *testing.T) {
	client := &Client{}

	wrapped := client.wrapHandler(func(string, []byte) error {
		panic("boom")
	})

	// Must not propagate the panic.
	wrapped(nil, fakeMessage{topic: "insteon/x"})
}

func TestSetLogger(t *testing.T) {
	client := &Client{}

	client.SetLogger(&mockLogger{})
	if client.getLogger() == nil {
		t.Error("getLogger() = nil after SetLogger()")
	}

	client.SetLogger(nil)
	if client.getLogger() != nil {
		t.Error("getLogger() should be nil after SetLogger(nil)")
	}
}

// =============================================================================
// Options Tests
// =============================================================================

func TestBrokerURL(t *testing.T) {
	tests := []struct {
		broker config.MQTTBrokerConfig
		want   string
	}{
		{config.MQTTBrokerConfig{Host: "localhost", Port: 1883}, "tcp://localhost:1883"},
		{config.MQTTBrokerConfig{Host: "broker.lan", Port: 8883, TLS: true}, "ssl://broker.lan:8883"},
	}
	for _, tt := range tests {
		if got := brokerURL(tt.broker); got != tt.want {
			t.Errorf("brokerURL(%+v) = %q, want %q", tt.broker, got, tt.want)
		}
	}
}

func TestAwait(t *testing.T) {
	done := &fakeToken{done: true}
	if err := await(done, time.Millisecond, ErrPublishFailed); err != nil {
		t.Errorf("await(done) error = %v", err)
	}

	failed := &fakeToken{done: true, err: errors.New("not authorised")}
	if err := await(failed, time.Millisecond, ErrPublishFailed); !errors.Is(err, ErrPublishFailed) {
		t.Errorf("await(failed) error = %v, want ErrPublishFailed", err)
	}

	err := await(&fakeToken{}, time.Millisecond, ErrSubscribeFailed)
	if !errors.Is(err, ErrSubscribeFailed) || !errors.Is(err, ErrTimeout) {
		t.Errorf("await(pending) error = %v, want ErrSubscribeFailed and ErrTimeout", err)
	}
}

func TestBuildClientOptions(t *testing.T) {
	cfg := testConfig()
	cfg.Auth.Username = "bridge"
	cfg.Auth.Password = "secret"

	opts := buildClientOptions(cfg)

	if len(opts.Servers) != 1 || opts.Servers[0].String() != "tcp://127.0.0.1:1883" {
		t.Errorf("Servers = %v, want tcp://127.0.0.1:1883", opts.Servers)
	}
	if opts.ClientID != "insteon-bridge-test" {
		t.Errorf("ClientID = %q", opts.ClientID)
	}
	if opts.Username != "bridge" || opts.Password != "secret" {
		t.Errorf("credentials = (%q, %q)", opts.Username, opts.Password)
	}
	if !opts.AutoReconnect || !opts.CleanSession {
		t.Errorf("AutoReconnect = %v, CleanSession = %v, want both true", opts.AutoReconnect, opts.CleanSession)
	}
	if opts.TLSConfig != nil && opts.TLSConfig.MinVersion != 0 {
		t.Error("TLS configured without cfg.Broker.TLS")
	}

	cfg.Broker.TLS = true
	opts = buildClientOptions(cfg)
	if opts.Servers[0].Scheme != "ssl" {
		t.Errorf("scheme = %q, want ssl", opts.Servers[0].Scheme)
	}
	if opts.TLSConfig == nil || opts.TLSConfig.MinVersion != tlsMinVersion {
		t.Error("TLS MinVersion not set")
	}
}

func TestConfigureLWT(t *testing.T) {
	opts := pahomqtt.NewClientOptions()
	configureLWT(opts, NewTopics("home/insteon"), "bridge-1")

	if !opts.WillEnabled || !opts.WillRetained {
		t.Fatalf("WillEnabled = %v, WillRetained = %v", opts.WillEnabled, opts.WillRetained)
	}
	if opts.WillTopic != "home/insteon/status" {
		t.Errorf("WillTopic = %q, want home/insteon/status", opts.WillTopic)
	}

	var will map[string]string
	if err := json.Unmarshal(opts.WillPayload, &will); err != nil {
		t.Fatalf("will payload is not JSON: %v", err)
	}
	if will["status"] != "offline" || will["client_id"] != "bridge-1" || will["reason"] != "unexpected_disconnect" {
		t.Errorf("will = %v", will)
	}
}

func TestStatusPayloads(t *testing.T) {
	var online, offline map[string]string
	if err := json.Unmarshal(statusPayload("bridge-1", statusOnline, ""), &online); err != nil {
		t.Fatalf("online payload: %v", err)
	}
	if err := json.Unmarshal(statusPayload("bridge-1", statusOffline, reasonShutdown), &offline); err != nil {
		t.Fatalf("offline payload: %v", err)
	}

	if online["status"] != "online" || online["timestamp"] == "" {
		t.Errorf("online = %v", online)
	}
	if _, ok := online["reason"]; ok {
		t.Errorf("online status carries a reason: %v", online)
	}
	if offline["status"] != "offline" || offline["reason"] != "graceful_shutdown" {
		t.Errorf("offline = %v", offline)
	}
}

// =============================================================================
// Topics Tests
// =============================================================================

func TestTopicBuilders(t *testing.T) {
	topics := NewTopics("insteon")

	tests := []struct {
		name     string
		got      string
		expected string
	}{
		{"Command", topics.Command("kitchen"), "insteon/command/kitchen"},
		{"Reply", topics.Reply("44.85.11"), "insteon/reply/44.85.11"},
		{"Device", topics.Device("112233"), "insteon/device/112233"},
		{"Status", topics.Status(), "insteon/status"},
		{"Health", topics.Health(), "insteon/health"},
		{"AllCommands", topics.AllCommands(), "insteon/command/+"},
		{"TrailingSlash", NewTopics("home/insteon/").Status(), "home/insteon/status"},
		{"EmptyPrefix", NewTopics("").Status(), "insteon/status"},
		{"ZeroValue", Topics{}.Command("modem"), "insteon/command/modem"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.expected {
				t.Errorf("%s = %q, want %q", tt.name, tt.got, tt.expected)
			}
		})
	}
}

func TestTopics_CommandTarget(t *testing.T) {
	topics := NewTopics("home/insteon")

	tests := []struct {
		topic  string
		want   string
		wantOK bool
	}{
		{"home/insteon/command/kitchen", "kitchen", true},
		{"home/insteon/command/44.85.11", "44.85.11", true},
		{"home/insteon/command/", "", false},
		{"home/insteon/command/a/b", "", false},
		{"home/insteon/reply/kitchen", "", false},
		{"insteon/command/kitchen", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.topic, func(t *testing.T) {
			got, ok := topics.CommandTarget(tt.topic)
			if got != tt.want || ok != tt.wantOK {
				t.Errorf("CommandTarget(%q) = (%q, %v), want (%q, %v)", tt.topic, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}
