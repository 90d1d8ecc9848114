package bridge

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/nerrad567/gray-logic-insteon/internal/insteon"
)

const (
	// DefaultHealthInterval applies when HealthConfig.Interval is zero.
	DefaultHealthInterval = 30 * time.Second

	// DefaultBacklogThreshold is the pending message count above which the
	// gateway is reported as degraded.
	DefaultBacklogThreshold = 50
)

// HealthStatus represents the operational status of the bridge.
type HealthStatus string

const (
	// HealthHealthy indicates the bridge is operating normally.
	HealthHealthy HealthStatus = "healthy"

	// HealthDegraded indicates the broker is unreachable or the gateway is
	// falling behind.
	HealthDegraded HealthStatus = "degraded"

	// HealthStopping indicates the bridge is shutting down.
	HealthStopping HealthStatus = "stopping"
)

// HealthMessage is published retained on the health topic.
type HealthMessage struct {
	Status    HealthStatus `json:"status"`
	Reason    string       `json:"reason,omitempty"`
	Version   string       `json:"version"`
	Modem     string       `json:"modem,omitempty"`
	Devices   int          `json:"devices"`
	Pending   int          `json:"pending"`
	UptimeSec int64        `json:"uptime_seconds"`
	Timestamp time.Time    `json:"timestamp"`
}

// HealthPublisher is the interface for publishing health messages.
// *mqtt.Client satisfies it.
type HealthPublisher interface {
	Publish(topic string, payload []byte, qos byte, retained bool) error
	IsConnected() bool
}

// HealthConfig holds configuration for the health reporter.
type HealthConfig struct {
	// Topic is where health messages are published.
	Topic string

	// Version is the bridge software version.
	Version string

	// Interval is how often to publish health status.
	// Default: 30 seconds.
	Interval time.Duration

	// Publisher is the MQTT client for publishing messages.
	Publisher HealthPublisher

	// Registry provides the modem address and device count. Optional.
	Registry *insteon.Registry

	// Pending reports the transport queue depth. Optional.
	Pending func() int

	// BacklogThreshold overrides DefaultBacklogThreshold.
	BacklogThreshold int

	// Logger is optional.
	Logger insteon.Logger
}

// HealthReporter publishes the bridge status at regular intervals.
type HealthReporter struct {
	cfg       HealthConfig
	startTime time.Time

	// Shutdown coordination (stopOnce prevents double-close panics)
	done     chan struct{}
	wg       sync.WaitGroup
	stopOnce sync.Once
}

// NewHealthReporter creates a health reporter. Call Start to begin reporting.
//
// Parameters:
//   - cfg: Configuration for the health reporter
//
// Returns:
//   - *HealthReporter: Ready to start
func NewHealthReporter(cfg HealthConfig) *HealthReporter {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultHealthInterval
	}
	if cfg.BacklogThreshold <= 0 {
		cfg.BacklogThreshold = DefaultBacklogThreshold
	}
	if cfg.Logger == nil {
		cfg.Logger = insteon.NoopLogger{}
	}

	return &HealthReporter{
		cfg:       cfg,
		startTime: time.Now(),
		done:      make(chan struct{}),
	}
}

// Start begins periodic health reporting until ctx is cancelled or Stop is
// called.
func (h *HealthReporter) Start(ctx context.Context) {
	h.wg.Add(1)
	go h.reportLoop(ctx)
}

// Stop ends reporting and publishes a final "stopping" status.
// Safe to call multiple times.
func (h *HealthReporter) Stop() {
	h.stopOnce.Do(func() {
		close(h.done)
		h.wg.Wait()

		//nolint:errcheck // Best-effort during shutdown
		h.publish(h.message(HealthStopping, ""))
	})
}

// PublishNow publishes the current health status immediately.
func (h *HealthReporter) PublishNow() error {
	status, reason := h.determineStatus()
	return h.publish(h.message(status, reason))
}

func (h *HealthReporter) reportLoop(ctx context.Context) {
	defer h.wg.Done()

	ticker := time.NewTicker(h.cfg.Interval)
	defer ticker.Stop()

	if err := h.PublishNow(); err != nil {
		h.cfg.Logger.Error("failed to publish initial health", "error", err)
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-h.done:
			return
		case <-ticker.C:
			if err := h.PublishNow(); err != nil {
				h.cfg.Logger.Error("failed to publish health", "error", err)
			}
		}
	}
}

// determineStatus evaluates the current bridge status.
func (h *HealthReporter) determineStatus() (HealthStatus, string) {
	if h.cfg.Publisher == nil || !h.cfg.Publisher.IsConnected() {
		return HealthDegraded, "MQTT disconnected"
	}
	if h.cfg.Pending != nil && h.cfg.Pending() > h.cfg.BacklogThreshold {
		return HealthDegraded, "gateway backlog"
	}
	return HealthHealthy, ""
}

func (h *HealthReporter) message(status HealthStatus, reason string) HealthMessage {
	now := time.Now().UTC()
	msg := HealthMessage{
		Status:    status,
		Reason:    reason,
		Version:   h.cfg.Version,
		UptimeSec: int64(now.Sub(h.startTime).Seconds()),
		Timestamp: now,
	}
	if h.cfg.Registry != nil {
		msg.Devices = h.cfg.Registry.Count()
		if m := h.cfg.Registry.Modem(); m != nil {
			msg.Modem = m.Addr().String()
		}
	}
	if h.cfg.Pending != nil {
		msg.Pending = h.cfg.Pending()
	}
	return msg
}

// publish sends msg retained at QoS 1.
func (h *HealthReporter) publish(msg HealthMessage) error {
	if h.cfg.Publisher == nil {
		return nil
	}

	payload, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	return h.cfg.Publisher.Publish(h.cfg.Topic, payload, 1, true)
}
