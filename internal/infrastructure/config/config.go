package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure for Urchin.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	Site     SiteConfig     `yaml:"site"`
	Brain    BrainConfig    `yaml:"brain"`
	Database DatabaseConfig `yaml:"database"`
	MQTT     MQTTConfig     `yaml:"mqtt"`
	InfluxDB InfluxDBConfig `yaml:"influxdb"`
	API      APIConfig      `yaml:"api"`
	Logging  LoggingConfig  `yaml:"logging"`
	Voice    VoiceConfig    `yaml:"voice"`
	Audio    AudioConfig    `yaml:"audio"`
	Thespian ThespianConfig `yaml:"thespian"`
	Senses   SensesConfig   `yaml:"senses"`
	Mute     MuteConfig     `yaml:"mute"`
	Eyes     EyesConfig     `yaml:"eyes"`
}

// SiteConfig identifies this instrument and the topic namespace it owns.
type SiteConfig struct {
	// InstrumentID is announced on status topics ("Running: <id>").
	InstrumentID string `yaml:"instrument_id"`

	// Profile selects the stored profile record (broker, voice, intervals).
	// Empty means the host name.
	Profile string `yaml:"profile"`

	// TopicPrefix namespaces every sensation the agent synthesizes itself.
	TopicPrefix string `yaml:"topic_prefix"`

	StatusRequestTopic  string `yaml:"status_request_topic"`
	StatusResponseTopic string `yaml:"status_response_topic"`
}

// BrainConfig contains dispatch loop and politeness settings.
type BrainConfig struct {
	Tick          time.Duration    `yaml:"tick"`
	QueueCapacity int              `yaml:"queue_capacity"`
	StopPause     time.Duration    `yaml:"stop_pause"`
	Politeness    PolitenessConfig `yaml:"politeness"`
}

// PolitenessConfig controls the speech mutual-exclusion protocol.
type PolitenessConfig struct {
	// Timeout is how long a registered speaker counts as talking.
	Timeout time.Duration `yaml:"timeout"`
	// Poll is the re-check interval while someone is talking.
	Poll time.Duration `yaml:"poll"`
	// Grace is the quiet period required before speaking.
	Grace time.Duration `yaml:"grace"`
}

// DatabaseConfig contains SQLite database settings.
type DatabaseConfig struct {
	Path        string `yaml:"path"`
	WALMode     bool   `yaml:"wal_mode"`
	BusyTimeout int    `yaml:"busy_timeout"`
}

// MQTTConfig contains MQTT broker connection settings.
type MQTTConfig struct {
	Broker    MQTTBrokerConfig    `yaml:"broker"`
	Auth      MQTTAuthConfig      `yaml:"auth"`
	QoS       int                 `yaml:"qos"`
	Reconnect MQTTReconnectConfig `yaml:"reconnect"`

	// MutePublish suppresses every outbound publish. Inbound traffic is
	// still observed.
	MutePublish bool `yaml:"mute_publish"`

	// IgnoreCacheTTL is how long the ignore pattern list is reused before
	// it is reloaded from the store.
	IgnoreCacheTTL time.Duration `yaml:"ignore_cache_ttl"`
}

// MQTTBrokerConfig contains MQTT broker connection details.
type MQTTBrokerConfig struct {
	Host      string `yaml:"host"`
	Port      int    `yaml:"port"`
	TLS       bool   `yaml:"tls"`
	ClientID  string `yaml:"client_id"`
	KeepAlive int    `yaml:"keep_alive"`
	Clean     bool   `yaml:"clean"`
}

// MQTTAuthConfig contains MQTT authentication credentials.
type MQTTAuthConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// MQTTReconnectConfig contains MQTT reconnection settings.
type MQTTReconnectConfig struct {
	InitialDelay int `yaml:"initial_delay"`
	MaxDelay     int `yaml:"max_delay"`
	MaxAttempts  int `yaml:"max_attempts"`
}

// InfluxDBConfig contains InfluxDB connection settings.
type InfluxDBConfig struct {
	Enabled       bool   `yaml:"enabled"`
	URL           string `yaml:"url"`
	Token         string `yaml:"token"`
	Org           string `yaml:"org"`
	Bucket        string `yaml:"bucket"`
	BatchSize     int    `yaml:"batch_size"`
	FlushInterval int    `yaml:"flush_interval"`
}

// APIConfig contains status API server settings.
type APIConfig struct {
	Enabled  bool             `yaml:"enabled"`
	Host     string           `yaml:"host"`
	Port     int              `yaml:"port"`
	Timeouts APITimeoutConfig `yaml:"timeouts"`
	CORS     CORSConfig       `yaml:"cors"`
}

// APITimeoutConfig contains HTTP timeout settings in seconds.
type APITimeoutConfig struct {
	Read  int `yaml:"read"`
	Write int `yaml:"write"`
	Idle  int `yaml:"idle"`
}

// CORSConfig contains Cross-Origin Resource Sharing settings.
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// VoiceConfig contains speech scheduler settings.
type VoiceConfig struct {
	// DefaultVoice is the stored voice profile used when text carries no
	// voice directive.
	DefaultVoice string `yaml:"default_voice"`

	// EffectPlayer reads synthesized audio on stdin and applies the
	// voice's effect arguments.
	EffectPlayer string `yaml:"effect_player"`

	// Gap is the pause after each utterance.
	Gap time.Duration `yaml:"gap"`

	// Poll is how often the speech loop checks for queued utterances.
	Poll time.Duration `yaml:"poll"`
}

// AudioConfig contains background audio pool settings.
type AudioConfig struct {
	Player       string        `yaml:"player"`
	SoundDir     string        `yaml:"sound_dir"`
	Capacity     int           `yaml:"capacity"`
	ReapInterval time.Duration `yaml:"reap_interval"`
	KillOnHalt   bool          `yaml:"kill_on_halt"`
	Volume       float64       `yaml:"volume"`
}

// ThespianConfig contains action scheduler settings.
type ThespianConfig struct {
	QueueCapacity int           `yaml:"queue_capacity"`
	PollInterval  time.Duration `yaml:"poll_interval"`
	ActTimeout    time.Duration `yaml:"act_timeout"`
}

// SensesConfig groups the background sensation producers.
type SensesConfig struct {
	Clock   ClockSenseConfig   `yaml:"clock"`
	Door    DoorSenseConfig    `yaml:"door"`
	Journal JournalSenseConfig `yaml:"journal"`
}

// ClockSenseConfig controls time announcements and boredom.
type ClockSenseConfig struct {
	Interval       time.Duration `yaml:"interval"`
	BoredomMinimum time.Duration `yaml:"boredom_minimum"`
	BoredomAmount  float64       `yaml:"boredom_amount"`
}

// DoorSenseConfig controls the open-door debounce monitor.
type DoorSenseConfig struct {
	Interval         time.Duration `yaml:"interval"`
	Threshold        time.Duration `yaml:"threshold"`
	MaxNotifications int           `yaml:"max_notifications"`

	// Names maps a gatekeeper door number to a spoken name.
	Names map[string]string `yaml:"names"`
}

// JournalSenseConfig controls the system journal follower.
type JournalSenseConfig struct {
	Enabled bool     `yaml:"enabled"`
	Command []string `yaml:"command"`
}

// MuteConfig contains mute switch settings.
type MuteConfig struct {
	// Delay between "last out" and silence taking effect.
	Delay time.Duration `yaml:"delay"`
	// Silenced is the initial switch position; overridden by the stored profile.
	Silenced bool `yaml:"silenced"`
}

// EyesConfig contains light actuator settings.
type EyesConfig struct {
	// LEDPath is a sysfs LED directory (containing brightness and
	// max_brightness). Empty disables the light.
	LEDPath   string `yaml:"led_path"`
	FadeSteps int    `yaml:"fade_steps"`
}

// Load reads configuration from a YAML file and applies environment variable overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (override defaults)
//  3. Environment variables (override file values)
//
// Environment variables follow the pattern: URCHIN_SECTION_KEY
// For example: URCHIN_DATABASE_PATH, URCHIN_MQTT_HOST
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// Default returns the built-in configuration without reading a file.
func Default() *Config {
	return defaultConfig()
}

// defaultConfig returns a Config with sensible defaults.
func defaultConfig() *Config {
	return &Config{
		Site: SiteConfig{
			InstrumentID:        "Creepy Urchin",
			TopicPrefix:         "nh/urchin",
			StatusRequestTopic:  "nh/status/req",
			StatusResponseTopic: "nh/status/res",
		},
		Brain: BrainConfig{
			Tick:          500 * time.Millisecond,
			QueueCapacity: 3,
			StopPause:     time.Second,
			Politeness: PolitenessConfig{
				Timeout: 60 * time.Second,
				Poll:    100 * time.Millisecond,
				Grace:   750 * time.Millisecond,
			},
		},
		Database: DatabaseConfig{
			Path:        "./data/urchin.db",
			WALMode:     true,
			BusyTimeout: 5,
		},
		MQTT: MQTTConfig{
			Broker: MQTTBrokerConfig{
				Host:      "localhost",
				Port:      1883,
				ClientID:  "urchin",
				KeepAlive: 60,
				Clean:     true,
			},
			QoS: 0,
			Reconnect: MQTTReconnectConfig{
				InitialDelay: 1,
				MaxDelay:     60,
			},
			IgnoreCacheTTL: 23 * time.Second,
		},
		API: APIConfig{
			Host: "127.0.0.1",
			Port: 8090,
			Timeouts: APITimeoutConfig{
				Read:  15,
				Write: 15,
				Idle:  60,
			},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
		Voice: VoiceConfig{
			DefaultVoice: "urchin",
			EffectPlayer: "play",
			Gap:          time.Second,
			Poll:         500 * time.Millisecond,
		},
		Audio: AudioConfig{
			Player:       "play",
			SoundDir:     "./sounds",
			Capacity:     10,
			ReapInterval: 500 * time.Millisecond,
			KillOnHalt:   true,
			Volume:       1.0,
		},
		Thespian: ThespianConfig{
			QueueCapacity: 3,
			PollInterval:  250 * time.Millisecond,
			ActTimeout:    5 * time.Minute,
		},
		Senses: SensesConfig{
			Clock: ClockSenseConfig{
				Interval:       time.Second,
				BoredomMinimum: 30 * time.Minute,
				BoredomAmount:  0.0,
			},
			Door: DoorSenseConfig{
				Interval:         time.Second,
				Threshold:        5 * time.Minute,
				MaxNotifications: 2,
				Names:            map[string]string{"1": "the front door"},
			},
			Journal: JournalSenseConfig{
				Command: []string{"journalctl", "-f", "--since", "now"},
			},
		},
		Mute: MuteConfig{
			Delay: 5 * time.Second,
		},
		Eyes: EyesConfig{
			FadeSteps: 25,
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables follow the pattern: URCHIN_SECTION_KEY
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("URCHIN_SITE_PROFILE"); v != "" {
		cfg.Site.Profile = v
	}

	// Database
	if v := os.Getenv("URCHIN_DATABASE_PATH"); v != "" {
		cfg.Database.Path = v
	}

	// MQTT
	if v := os.Getenv("URCHIN_MQTT_HOST"); v != "" {
		cfg.MQTT.Broker.Host = v
	}
	if v := os.Getenv("URCHIN_MQTT_USERNAME"); v != "" {
		cfg.MQTT.Auth.Username = v
	}
	if v := os.Getenv("URCHIN_MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Auth.Password = v
	}
	if v := os.Getenv("URCHIN_MQTT_MUTE_PUBLISH"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.MQTT.MutePublish = b
		}
	}

	// InfluxDB
	if v := os.Getenv("URCHIN_INFLUXDB_TOKEN"); v != "" {
		cfg.InfluxDB.Token = v
	}

	// Logging
	if v := os.Getenv("URCHIN_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	var errs []string

	if c.Site.InstrumentID == "" {
		errs = append(errs, "site.instrument_id is required")
	}
	if c.Site.TopicPrefix == "" || strings.HasSuffix(c.Site.TopicPrefix, "/") {
		errs = append(errs, "site.topic_prefix must be non-empty without a trailing slash")
	}

	if c.Brain.Tick <= 0 {
		errs = append(errs, "brain.tick must be positive")
	}
	if c.Brain.QueueCapacity < 1 {
		errs = append(errs, "brain.queue_capacity must be at least 1")
	}
	p := c.Brain.Politeness
	if p.Timeout <= 0 || p.Poll <= 0 || p.Grace < 0 {
		errs = append(errs, "brain.politeness timeout and poll must be positive")
	}

	if c.Database.Path == "" {
		errs = append(errs, "database.path is required")
	}

	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		errs = append(errs, "mqtt.qos must be 0, 1, or 2")
	}

	if c.API.Enabled && (c.API.Port < 1 || c.API.Port > 65535) {
		errs = append(errs, "api.port must be between 1 and 65535")
	}

	if c.Audio.Capacity < 1 {
		errs = append(errs, "audio.capacity must be at least 1")
	}
	if c.Audio.ReapInterval <= 0 {
		errs = append(errs, "audio.reap_interval must be positive")
	}

	if c.Thespian.QueueCapacity < 1 {
		errs = append(errs, "thespian.queue_capacity must be at least 1")
	}
	if c.Thespian.PollInterval <= 0 {
		errs = append(errs, "thespian.poll_interval must be positive")
	}

	if c.Senses.Clock.Interval <= 0 || c.Senses.Door.Interval <= 0 {
		errs = append(errs, "senses intervals must be positive")
	}
	if c.Senses.Clock.BoredomAmount < 0 || c.Senses.Clock.BoredomAmount > 1 {
		errs = append(errs, "senses.clock.boredom_amount must be between 0 and 1")
	}
	if c.Senses.Door.MaxNotifications < 0 {
		errs = append(errs, "senses.door.max_notifications must not be negative")
	}
	if c.Senses.Journal.Enabled && len(c.Senses.Journal.Command) == 0 {
		errs = append(errs, "senses.journal.command is required when the journal sense is enabled")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// GetReadTimeout returns the API read timeout as a Duration.
func (c *Config) GetReadTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Read) * time.Second
}

// GetWriteTimeout returns the API write timeout as a Duration.
func (c *Config) GetWriteTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Write) * time.Second
}

// GetIdleTimeout returns the API idle timeout as a Duration.
func (c *Config) GetIdleTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Idle) * time.Second
}
