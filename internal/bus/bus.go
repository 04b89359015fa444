package bus

import (
	"fmt"
	"sync"

	"github.com/nerrad567/urchin-core/internal/brain"
	"github.com/nerrad567/urchin-core/internal/infrastructure/mqtt"
)

// Logger is the logging surface the bus needs.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Transport is the MQTT client surface used by the bus.
type Transport interface {
	PublishString(topic, payload string) error
	Subscribe(topic string, qos byte, handler mqtt.MessageHandler) error
	Unsubscribe(topic string) error
	SetOnConnect(callback func())
	SetOnDisconnect(callback func(err error))
}

// MuteFlag reports the runtime publish mute.
type MuteFlag interface {
	Bool(key string) bool
}

// Receiver is handed every inbound message that survives the ignore filter.
type Receiver = func(s brain.Sensation) bool

// Options configures a Bus.
type Options struct {
	// Mute suppresses every publish regardless of runtime state.
	Mute bool

	// MuteFlag is consulted for brain.KeyMutePublish on each publish.
	MuteFlag MuteFlag

	Filter *Filter

	// ErrorTopic receives a sensation when the broker connection is lost.
	ErrorTopic string

	// Experience receives connection error sensations.
	Experience Receiver

	QoS byte
}

// Bus is the MQTT worker: it owns the wildcard subscription, fans inbound
// messages out to receivers, and publishes on behalf of urges and workers.
type Bus struct {
	transport Transport
	opts      Options
	logger    Logger

	mu         sync.RWMutex
	receivers  map[string]Receiver
	subscribed bool
}

// New creates a Bus over a connected transport.
func New(transport Transport, opts Options, logger Logger) *Bus {
	if logger == nil {
		logger = noopLogger{}
	}
	if opts.Filter == nil {
		opts.Filter = NewFilter(nil, 0, logger)
	}
	b := &Bus{
		transport: transport,
		opts:      opts,
		logger:    logger,
		receivers: make(map[string]Receiver),
	}
	transport.SetOnConnect(func() { b.logger.Info("mqtt connected") })
	transport.SetOnDisconnect(b.connectionLost)
	return b
}

// Name identifies the worker.
func (b *Bus) Name() string { return "mqtt" }

// Start subscribes to every topic.
func (b *Bus) Start() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.subscribed {
		b.logger.Warn("mqtt already started")
		return
	}
	if err := b.transport.Subscribe(mqtt.TopicAll, b.opts.QoS, b.receive); err != nil {
		b.logger.Error("subscribing to all topics", "error", err)
		b.report("subscribe failed: " + err.Error())
		return
	}
	b.subscribed = true
}

// Stop drops the wildcard subscription.
func (b *Bus) Stop() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.subscribed {
		return
	}
	if err := b.transport.Unsubscribe(mqtt.TopicAll); err != nil {
		b.logger.Warn("unsubscribing", "error", err)
	}
	b.subscribed = false
}

// Wait returns immediately; delivery runs on the client's goroutines.
func (b *Bus) Wait() {}

// Register adds a receiver under name, replacing any previous one.
func (b *Bus) Register(name string, r Receiver) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.receivers[name] = r
}

// Unregister removes the named receiver.
func (b *Bus) Unregister(name string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.receivers, name)
}

// Publish sends message to topic unless publishing is muted.
func (b *Bus) Publish(topic, message string) error {
	if b.Muted() {
		b.logger.Debug("publish muted", "topic", topic, "message", message)
		return nil
	}
	if err := b.transport.PublishString(topic, message); err != nil {
		return fmt.Errorf("publishing %s: %w", topic, err)
	}
	return nil
}

// Muted reports whether outbound publishing is suppressed.
func (b *Bus) Muted() bool {
	if b.opts.Mute {
		return true
	}
	return b.opts.MuteFlag != nil && b.opts.MuteFlag.Bool(brain.KeyMutePublish)
}

func (b *Bus) receive(topic string, payload []byte) error {
	message := string(payload)
	if b.opts.Filter.Ignored(topic, message) {
		b.logger.Debug("mqtt ignore message", "topic", topic, "message", message)
		return nil
	}

	b.mu.RLock()
	receivers := make([]Receiver, 0, len(b.receivers))
	for _, r := range b.receivers {
		receivers = append(receivers, r)
	}
	b.mu.RUnlock()

	if len(receivers) == 0 {
		return nil
	}
	s := brain.NewSensation(topic, message)
	for _, r := range receivers {
		r(s)
	}
	return nil
}

func (b *Bus) connectionLost(err error) {
	b.logger.Error("mqtt connection lost", "error", err)
	b.report("connection to MQTT broker failed")
}

func (b *Bus) report(message string) {
	if b.opts.Experience == nil || b.opts.ErrorTopic == "" {
		return
	}
	b.opts.Experience(brain.NewSensation(b.opts.ErrorTopic, message))
}
