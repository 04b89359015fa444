package mqtt

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/nerrad567/urchin-core/internal/infrastructure/config"
)

// ─── Mock Dependencies ──────────────────────────────────────────────

// fakeMessage implements pahomqtt.Message.
type fakeMessage struct {
	topic   string
	payload []byte
}

func (m *fakeMessage) Duplicate() bool   { return false }
func (m *fakeMessage) Qos() byte         { return 0 }
func (m *fakeMessage) Retained() bool    { return false }
func (m *fakeMessage) Topic() string     { return m.topic }
func (m *fakeMessage) MessageID() uint16 { return 1 }
func (m *fakeMessage) Payload() []byte   { return m.payload }
func (m *fakeMessage) Ack()              {}

type recordingLogger struct {
	mu     sync.Mutex
	errors []string
	warns  []string
}

func (l *recordingLogger) Error(msg string, _ ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.errors = append(l.errors, msg)
}

func (l *recordingLogger) Warn(msg string, _ ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.warns = append(l.warns, msg)
}

func testConfig() config.MQTTConfig {
	return config.MQTTConfig{
		Broker: config.MQTTBrokerConfig{
			Host:      "127.0.0.1",
			Port:      1883,
			ClientID:  "urchin-test",
			KeepAlive: 30,
			Clean:     true,
		},
		QoS: 0,
		Reconnect: config.MQTTReconnectConfig{
			InitialDelay: 1,
			MaxDelay:     5,
		},
	}
}

// ─── Options ────────────────────────────────────────────────────────

func TestBuildClientOptions(t *testing.T) {
	cfg := testConfig()
	cfg.Auth.Username = "urchin"
	cfg.Auth.Password = "secret"

	opts := buildClientOptions(cfg)

	if len(opts.Servers) != 1 || opts.Servers[0].String() != "tcp://127.0.0.1:1883" {
		t.Errorf("Servers = %v, want [tcp://127.0.0.1:1883]", opts.Servers)
	}
	if opts.ClientID != "urchin-test" {
		t.Errorf("ClientID = %q", opts.ClientID)
	}
	if opts.KeepAlive != 30 {
		t.Errorf("KeepAlive = %d, want 30", opts.KeepAlive)
	}
	if !opts.CleanSession {
		t.Error("CleanSession = false, want true")
	}
	if opts.Username != "urchin" || opts.Password != "secret" {
		t.Errorf("credentials not applied: %q/%q", opts.Username, opts.Password)
	}
	if !opts.AutoReconnect {
		t.Error("AutoReconnect = false, want true")
	}
}

func TestBuildClientOptions_TLS(t *testing.T) {
	cfg := testConfig()
	cfg.Broker.TLS = true
	cfg.Broker.Port = 8883

	opts := buildClientOptions(cfg)

	if opts.Servers[0].Scheme != "ssl" {
		t.Errorf("scheme = %q, want ssl", opts.Servers[0].Scheme)
	}
	if opts.TLSConfig == nil || opts.TLSConfig.MinVersion != tlsMinVersion {
		t.Error("TLS config missing or below minimum version")
	}
}

func TestConfigureWill(t *testing.T) {
	opts := buildClientOptions(testConfig())
	configureWill(opts, Will{Topic: "nh/status/res", Payload: "Lost: Test"}, 1)

	if !opts.WillEnabled {
		t.Fatal("WillEnabled = false, want true")
	}
	if opts.WillTopic != "nh/status/res" || string(opts.WillPayload) != "Lost: Test" {
		t.Errorf("will = %q %q", opts.WillTopic, opts.WillPayload)
	}
	if opts.WillRetained {
		t.Error("will must not be retained")
	}

	empty := buildClientOptions(testConfig())
	configureWill(empty, Will{}, 1)
	if empty.WillEnabled {
		t.Error("empty will topic should not enable a will")
	}
}

// ─── Disconnected behaviour ─────────────────────────────────────────

func TestDisconnectedClient(t *testing.T) {
	c := &Client{}

	if c.IsConnected() {
		t.Error("IsConnected() = true for a client that never connected")
	}
	if err := c.Publish("a/b", []byte("x"), 0, false); !errors.Is(err, ErrNotConnected) {
		t.Errorf("Publish() error = %v, want ErrNotConnected", err)
	}
	handler := func(string, []byte) error { return nil }
	if err := c.Subscribe("a/#", 0, handler); !errors.Is(err, ErrNotConnected) {
		t.Errorf("Subscribe() error = %v, want ErrNotConnected", err)
	}
	if err := c.HealthCheck(context.Background()); !errors.Is(err, ErrNotConnected) {
		t.Errorf("HealthCheck() error = %v, want ErrNotConnected", err)
	}
	if err := c.Close(); err != nil {
		t.Errorf("Close() error = %v, want nil", err)
	}
}

func TestHealthCheckCancelled(t *testing.T) {
	c := &Client{}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := c.HealthCheck(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("HealthCheck() error = %v, want context.Canceled", err)
	}
}

func TestInputValidation(t *testing.T) {
	c := &Client{}
	handler := func(string, []byte) error { return nil }

	tests := []struct {
		name string
		err  error
		want error
	}{
		{"publish empty topic", c.Publish("", nil, 0, false), ErrInvalidTopic},
		{"publish wildcard", c.Publish("a/+/b", nil, 0, false), ErrInvalidTopic},
		{"publish bad qos", c.Publish("a/b", nil, 3, false), ErrInvalidQoS},
		{"publish oversize", c.Publish("a/b", make([]byte, maxPayloadSize+1), 0, false), ErrPublishFailed},
		{"subscribe bad filter", c.Subscribe("a/#/b", 0, handler), ErrInvalidTopic},
		{"subscribe bad qos", c.Subscribe("a/b", 5, handler), ErrInvalidQoS},
		{"subscribe nil handler", c.Subscribe("a/b", 0, nil), ErrSubscribeFailed},
		{"unsubscribe empty", c.Unsubscribe(""), ErrInvalidTopic},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if !errors.Is(tt.err, tt.want) {
				t.Errorf("error = %v, want %v", tt.err, tt.want)
			}
		})
	}
}

func TestUnsubscribeForgetsWhileDisconnected(t *testing.T) {
	c := &Client{subs: map[string]subscription{
		"#": {},
	}}

	_ = c.Unsubscribe("#")

	if c.HasSubscription("#") || c.SubscriptionCount() != 0 {
		t.Error("subscription should be forgotten even when disconnected")
	}
}

// ─── Handler wrapping ───────────────────────────────────────────────

func TestWrapHandler_RecoversPanic(t *testing.T) {
	logger := &recordingLogger{}
	c := &Client{}
	c.SetLogger(logger)

	wrapped := c.wrapHandler(func(string, []byte) error {
		panic("boom")
	})
	wrapped(nil, &fakeMessage{topic: "a/b"})

	if len(logger.errors) != 1 {
		t.Errorf("errors logged = %d, want 1", len(logger.errors))
	}
}

func TestWrapHandler_LogsError(t *testing.T) {
	logger := &recordingLogger{}
	c := &Client{}
	c.SetLogger(logger)

	var gotTopic, gotPayload string
	wrapped := c.wrapHandler(func(topic string, payload []byte) error {
		gotTopic, gotPayload = topic, string(payload)
		return errors.New("nope")
	})
	wrapped(nil, &fakeMessage{topic: "nh/gk/1/DoorState", payload: []byte("OPEN")})

	if gotTopic != "nh/gk/1/DoorState" || gotPayload != "OPEN" {
		t.Errorf("handler got %q %q", gotTopic, gotPayload)
	}
	if len(logger.warns) != 1 {
		t.Errorf("warns logged = %d, want 1", len(logger.warns))
	}
}

func TestDisconnectCallback(t *testing.T) {
	c := &Client{}
	c.connected.Store(true)
	got := make(chan error, 1)
	c.SetOnDisconnect(func(err error) { got <- err })

	c.handleDisconnect(errors.New("link down"))

	select {
	case err := <-got:
		if err == nil || err.Error() != "link down" {
			t.Errorf("callback error = %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("disconnect callback not invoked")
	}
	if c.connected.Load() {
		t.Error("connected still true after disconnect")
	}
}

// ─── Topics ─────────────────────────────────────────────────────────

func TestMatchTopic(t *testing.T) {
	tests := []struct {
		filter, topic string
		want          bool
	}{
		{"#", "nh/gk/1/DoorState", true},
		{"#", "$SYS/broker/uptime", false},
		{"$SYS/#", "$SYS/broker/uptime", true},
		{"nh/gk/+/DoorState", "nh/gk/1/DoorState", true},
		{"nh/gk/+/DoorState", "nh/gk/1/2/DoorState", false},
		{"nh/temperature/#", "nh/temperature", true},
		{"nh/temperature/#", "nh/temperature/G5Kitchen", true},
		{"nh/urchin/said", "nh/urchin/said", true},
		{"nh/urchin/said", "nh/urchin/said/more", false},
		{"nh/urchin/+", "nh/urchin", false},
	}

	for _, tt := range tests {
		t.Run(tt.filter+" "+tt.topic, func(t *testing.T) {
			if got := MatchTopic(tt.filter, tt.topic); got != tt.want {
				t.Errorf("MatchTopic(%q, %q) = %v, want %v", tt.filter, tt.topic, got, tt.want)
			}
		})
	}
}

func TestValidateFilter(t *testing.T) {
	valid := []string{"#", "a/+/b", "a/b/#", "+"}
	invalid := []string{"", "a/#/b", "a/b#", "a+/b"}

	for _, f := range valid {
		if err := ValidateFilter(f); err != nil {
			t.Errorf("ValidateFilter(%q) = %v, want nil", f, err)
		}
	}
	for _, f := range invalid {
		if err := ValidateFilter(f); !errors.Is(err, ErrInvalidTopic) {
			t.Errorf("ValidateFilter(%q) = %v, want ErrInvalidTopic", f, err)
		}
	}
}
