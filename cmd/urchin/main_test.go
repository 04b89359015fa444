package main

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/nerrad567/urchin-core/internal/brain"
	"github.com/nerrad567/urchin-core/internal/eyes"
	"github.com/nerrad567/urchin-core/internal/infrastructure/config"
	"github.com/nerrad567/urchin-core/internal/infrastructure/logging"
	"github.com/nerrad567/urchin-core/internal/responder"
	"github.com/nerrad567/urchin-core/internal/script"
	"github.com/nerrad567/urchin-core/internal/sense"
	"github.com/nerrad567/urchin-core/internal/store"
)

// ─── Mock Dependencies ───

type fakeProfiles struct {
	profiles map[string]*store.Profile
	brokers  map[string]*store.Broker
}

func (f fakeProfiles) Profile(_ context.Context, id string) (*store.Profile, error) {
	if p, ok := f.profiles[id]; ok {
		return p, nil
	}
	return nil, store.ErrNotFound
}

func (f fakeProfiles) Broker(_ context.Context, id string) (*store.Broker, error) {
	if b, ok := f.brokers[id]; ok {
		return b, nil
	}
	return nil, store.ErrNotFound
}

// musingEverywhere offers one unconditional musing for every topic.
type musingEverywhere struct{}

func (musingEverywhere) Greetings(context.Context, string) ([]store.Candidate, error) {
	return nil, nil
}

func (musingEverywhere) Musings(_ context.Context, topic string) ([]store.Candidate, error) {
	return []store.Candidate{{ID: 33, Kind: "Musing", Action: `say("hello")`, Weight: 1, Topic: topic}}, nil
}

// ─── Tests ───

func TestRun_InvalidConfig(t *testing.T) {
	t.Setenv("URCHIN_CONFIG", "/nonexistent/path/config.yaml")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := run(ctx); err == nil {
		t.Fatal("run() should fail with invalid config path")
	}
}

func TestGetConfigPath(t *testing.T) {
	t.Run("default", func(t *testing.T) {
		t.Setenv("URCHIN_CONFIG", "")
		if got := getConfigPath(); got != defaultConfigPath {
			t.Errorf("getConfigPath() = %q, want %q", got, defaultConfigPath)
		}
	})
	t.Run("env override", func(t *testing.T) {
		t.Setenv("URCHIN_CONFIG", "/custom/config.yaml")
		if got := getConfigPath(); got != "/custom/config.yaml" {
			t.Errorf("getConfigPath() = %q", got)
		}
	})
}

func TestResolveProfileID(t *testing.T) {
	if got := resolveProfileID("kitchen"); got != "kitchen" {
		t.Errorf("resolveProfileID(kitchen) = %q", got)
	}
	if got := resolveProfileID(""); got == "" {
		t.Error("resolveProfileID(\"\") should fall back to a host name")
	}
}

func TestLoadProfile(t *testing.T) {
	src := fakeProfiles{
		profiles: map[string]*store.Profile{
			"hall": {
				ID:             "hall",
				BrokerID:       "home",
				VoiceID:        "gob",
				TimeInterval:   2 * time.Second,
				BoredomMinimum: 10 * time.Minute,
				BoredomAmount:  0.25,
				DoorOpen:       3 * time.Minute,
				MuteSwitch:     true,
			},
			"orphan": {ID: "orphan", BrokerID: "missing"},
		},
		brokers: map[string]*store.Broker{
			"home": {ID: "home", Host: "broker.lan", Port: 1884, KeepAlive: 30, ClientID: "urchin-hall", Clean: true},
		},
	}

	tests := []struct {
		name    string
		id      string
		wantErr error
		check   func(t *testing.T, cfg *config.Config)
	}{
		{
			name: "profile and broker applied",
			id:   "hall",
			check: func(t *testing.T, cfg *config.Config) {
				if cfg.Voice.DefaultVoice != "gob" {
					t.Errorf("DefaultVoice = %q", cfg.Voice.DefaultVoice)
				}
				if cfg.Senses.Clock.Interval != 2*time.Second || cfg.Senses.Clock.BoredomAmount != 0.25 {
					t.Errorf("clock = %+v", cfg.Senses.Clock)
				}
				if cfg.Senses.Door.Threshold != 3*time.Minute {
					t.Errorf("door threshold = %v", cfg.Senses.Door.Threshold)
				}
				if !cfg.Mute.Silenced {
					t.Error("mute switch not applied")
				}
				if cfg.MQTT.Broker.Host != "broker.lan" || cfg.MQTT.Broker.Port != 1884 || cfg.MQTT.Broker.ClientID != "urchin-hall" {
					t.Errorf("broker = %+v", cfg.MQTT.Broker)
				}
			},
		},
		{name: "unknown profile", id: "attic", wantErr: store.ErrNotFound},
		{name: "missing broker", id: "orphan", wantErr: store.ErrNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &config.Config{}
			cfg.MQTT.Broker.Host = "localhost"
			err := loadProfile(context.Background(), cfg, src, tt.id)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("loadProfile() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("loadProfile() error = %v", err)
			}
			tt.check(t, cfg)
		})
	}
}

func TestEyesDriver_FallsBackToNull(t *testing.T) {
	cfg := config.EyesConfig{LEDPath: filepath.Join(t.TempDir(), "no-such-led")}
	if _, ok := eyesDriver(cfg, logging.Discard()).(eyes.NullDriver); !ok {
		t.Fatal("eyesDriver should fall back to the null driver")
	}
	if _, ok := eyesDriver(config.EyesConfig{}, logging.Discard()).(eyes.NullDriver); !ok {
		t.Fatal("an empty LED path should use the null driver")
	}
}

func TestRegisterResponders_Order(t *testing.T) {
	cfg := config.Default()
	b := brain.New(brain.Options{TopicPrefix: "nh/urchin"}, nil)
	mute := responder.NewMuteSwitch(b, time.Minute)
	defer mute.Cancel()

	rs := registerResponders(b, cfg, musingEverywhere{}, script.NewEvaluator(nil), mute, logging.Discard())

	want := []string{
		"security", "chime", "instrumentation", "greeter",
		"muser", "temperature", "door-monitor", "mute-switch",
	}
	got := make([]string, len(rs))
	for i, r := range rs {
		got[i] = r.Name()
	}
	if len(got) != len(want) {
		t.Fatalf("registered %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("responder %d = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestRegisterResponders_ChimeBeatsMusingOnTheHour(t *testing.T) {
	cfg := config.Default()
	b := brain.New(brain.Options{TopicPrefix: "nh/urchin"}, nil)
	mute := responder.NewMuteSwitch(b, time.Minute)
	defer mute.Cancel()
	registerResponders(b, cfg, musingEverywhere{}, script.NewEvaluator(nil), mute, logging.Discard())

	tests := []struct {
		name   string
		minute int
		want   string
	}{
		{"on the hour", 0, "Time is 09:00"},
		{"past the hour", 17, "Musing #33 because "},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := brain.NewJSONSensation(b.Topic("time/now"), sense.TimeNow{Hour: 9, Minute: tt.minute, SpecialDay: "Pancake Day"})
			u := b.HandleSensation(s)
			if u == nil {
				t.Fatal("no urge selected")
			}
			if u.Priority() != brain.Normal {
				t.Errorf("priority = %v, want Normal", u.Priority())
			}
			if got := u.Cause(); len(got) < len(tt.want) || got[:len(tt.want)] != tt.want {
				t.Errorf("cause = %q, want prefix %q", got, tt.want)
			}
		})
	}
}
