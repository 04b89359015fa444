// Urchin is a reactive household agent.
//
// It listens to everything on the MQTT bus, keeps a model of the household
// in memory, and answers with speech, sounds, light and messages of its own.
// Sensations arrive from senses (the bus, the clock, the door monitor and
// the system journal), responders turn them into prioritised urges, and
// the brain performs at most one urge per sensation.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/nerrad567/urchin-core/internal/api"
	"github.com/nerrad567/urchin-core/internal/audio"
	"github.com/nerrad567/urchin-core/internal/brain"
	"github.com/nerrad567/urchin-core/internal/bus"
	"github.com/nerrad567/urchin-core/internal/eyes"
	"github.com/nerrad567/urchin-core/internal/infrastructure/config"
	"github.com/nerrad567/urchin-core/internal/infrastructure/database"
	"github.com/nerrad567/urchin-core/internal/infrastructure/influxdb"
	"github.com/nerrad567/urchin-core/internal/infrastructure/logging"
	"github.com/nerrad567/urchin-core/internal/infrastructure/mqtt"
	"github.com/nerrad567/urchin-core/internal/responder"
	"github.com/nerrad567/urchin-core/internal/script"
	"github.com/nerrad567/urchin-core/internal/sense"
	"github.com/nerrad567/urchin-core/internal/store"
	"github.com/nerrad567/urchin-core/internal/thespian"
	"github.com/nerrad567/urchin-core/internal/voice"
	"github.com/nerrad567/urchin-core/migrations"
)

// Version information, set at build time via ldflags:
// go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

const defaultConfigPath = "configs/config.yaml"

// catalogCacheTTL is how long greeting and musing lookups are reused.
const catalogCacheTTL = 30 * time.Second

// profileTimeout bounds the startup profile lookup.
const profileTimeout = 5 * time.Second

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run wires every component, runs the brain until ctx is cancelled, and
// tears everything down in reverse order.
func run(ctx context.Context) error { //nolint:gocognit,gocyclo // composition root
	log := logging.Default()
	log.Info("starting urchin",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	configPath := getConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	log = logging.New(cfg.Logging, version)
	log.Info("configuration loaded", "path", configPath, "level", cfg.Logging.Level)

	db, err := database.Open(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer func() {
		log.Info("closing database")
		if closeErr := db.Close(); closeErr != nil {
			log.Error("error closing database", "error", closeErr)
		}
	}()

	if migrateErr := db.Migrate(ctx, migrations.FS); migrateErr != nil {
		return fmt.Errorf("running migrations: %w", migrateErr)
	}
	log.Info("database ready", "path", cfg.Database.Path)

	repo := store.NewSQLiteRepository(db.DB)
	profileID := resolveProfileID(cfg.Site.Profile)
	if profileErr := loadProfile(ctx, cfg, repo, profileID); profileErr != nil {
		if !errors.Is(profileErr, store.ErrNotFound) {
			return fmt.Errorf("loading profile %q: %w", profileID, profileErr)
		}
		log.Warn("no stored profile, using configuration file values", "profile", profileID)
	} else {
		log.Info("profile loaded", "profile", profileID)
	}

	b := brain.New(brain.Options{
		InstrumentID:  cfg.Site.InstrumentID,
		TopicPrefix:   cfg.Site.TopicPrefix,
		StatusTopic:   cfg.Site.StatusResponseTopic,
		Tick:          cfg.Brain.Tick,
		QueueCapacity: cfg.Brain.QueueCapacity,
		StopPause:     cfg.Brain.StopPause,
		YakkerTimeout: cfg.Brain.Politeness.Timeout,
	}, log.Component("brain"))
	b.State().Set(brain.KeySilence, cfg.Mute.Silenced)

	mqttClient, err := mqtt.Connect(cfg.MQTT, &mqtt.Will{
		Topic:   cfg.Site.StatusResponseTopic,
		Payload: "Lost: " + cfg.Site.InstrumentID,
	})
	if err != nil {
		return fmt.Errorf("connecting to MQTT: %w", err)
	}
	defer func() {
		log.Info("disconnecting from MQTT")
		if closeErr := mqttClient.Close(); closeErr != nil {
			log.Error("error closing MQTT", "error", closeErr)
		}
	}()
	mqttClient.SetLogger(log.Component("mqtt-client"))
	log.Info("MQTT connected",
		"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
		"client_id", cfg.MQTT.Broker.ClientID,
	)

	busLog := log.Component("mqtt")
	mq := bus.New(mqttClient, bus.Options{
		Mute:       cfg.MQTT.MutePublish,
		MuteFlag:   b.State(),
		Filter:     bus.NewFilter(repo, cfg.MQTT.IgnoreCacheTTL, busLog),
		ErrorTopic: b.Topic("error/mqtt"),
		Experience: b.Experience,
		QoS:        byte(cfg.MQTT.QoS),
	}, busLog)

	influxClient, err := connectInflux(cfg.InfluxDB, log)
	if err != nil {
		return err
	}
	if influxClient != nil {
		defer func() {
			log.Info("closing InfluxDB connection")
			if closeErr := influxClient.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		}()
		b.AddObserver(influxdb.NewRecorder(influxClient, cfg.Site.InstrumentID))
	}

	// Actuators.
	light := eyes.New(eyesDriver(cfg.Eyes, log), cfg.Eyes.FadeSteps, log.Component("eyes"))
	pool := audio.NewPool(cfg.Audio, nil, log.Component("audio"))
	gob := voice.NewGob(voice.GobOptions{
		Voices:       repo,
		Publisher:    mq,
		Light:        light,
		Experience:   b.Experience,
		EffectPlayer: cfg.Voice.EffectPlayer,
		Topics: voice.Topics{
			Talking:     b.Topic("talking"),
			Said:        b.Topic("said"),
			Interrupted: b.Topic("speech/interrupted"),
		},
	}, log.Component("gob"))
	speech := voice.New(cfg.Voice, b, gob, voice.Politeness{
		Talkers: b.Yakkers(),
		Poll:    cfg.Brain.Politeness.Poll,
		Grace:   cfg.Brain.Politeness.Grace,
	}, log.Component("voice"))

	interpreter := script.NewInterpreter(thespian.Stage{
		Voice: speech,
		Audio: pool,
		Bus:   mq,
		Light: light,
	}, cfg.Thespian.ActTimeout, log.Component("script"))
	actor := thespian.New(cfg.Thespian, interpreter, b, log.Component("thespian"))

	b.SetActuators(brain.Router{Thespian: actor, Bus: mq, Voice: speech})
	b.SetSilenceStore(store.ProfileSilence{Repo: repo, ProfileID: profileID})

	// Workers start before senses and stop after them.
	b.AddWorker(mq)
	b.AddWorker(light)
	b.AddWorker(pool)
	b.AddWorker(speech)
	b.AddWorker(actor)

	senseLog := log.Component("sense")
	b.AddSense(sense.NewMQTT(mq, b))
	b.AddSense(sense.NewClock(cfg.Senses.Clock, b, repo, senseLog))
	b.AddSense(sense.NewDoor(cfg.Senses.Door, b, senseLog))
	var helpers []api.ProcessReporter
	if cfg.Senses.Journal.Enabled {
		journal := sense.NewJournal(cfg.Senses.Journal, b, senseLog)
		b.AddSense(journal)
		helpers = append(helpers, journal)
	}

	conditions := script.NewEvaluator(log.Component("conditions"))
	respLog := log.Component("responder")
	muteSwitch := responder.NewMuteSwitch(b, cfg.Mute.Delay)
	defer muteSwitch.Cancel()

	registerResponders(b, cfg, repo, conditions, muteSwitch, respLog)

	var apiServer *api.Server
	if cfg.API.Enabled {
		apiServer, err = api.New(api.Deps{
			Config:    cfg.API,
			Logger:    log.Component("api"),
			Mind:      b,
			Speech:    speech,
			Version:   version,
			Processes: helpers,
		})
		if err != nil {
			return fmt.Errorf("creating API server: %w", err)
		}
		b.AddObserver(apiServer.Hub())
	}

	if err := healthCheck(ctx, db, mqttClient, influxClient); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	log.Info("all health checks passed")

	runCtx, stop := context.WithCancel(ctx)
	defer stop()

	g, gctx := errgroup.WithContext(runCtx)
	g.Go(func() error {
		defer stop()
		return b.Run(gctx)
	})
	if apiServer != nil {
		g.Go(func() error {
			if err := apiServer.Start(gctx); err != nil {
				return fmt.Errorf("starting API server: %w", err)
			}
			<-gctx.Done()
			return apiServer.Close()
		})
	}

	err = g.Wait()
	log.Info("urchin stopped")
	return err
}

// getConfigPath returns URCHIN_CONFIG if set, otherwise the default path.
func getConfigPath() string {
	if path := os.Getenv("URCHIN_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// resolveProfileID falls back to the host name when no profile is configured.
func resolveProfileID(configured string) string {
	if configured != "" {
		return configured
	}
	host, err := os.Hostname()
	if err != nil || host == "" {
		return "default"
	}
	return host
}

// registerResponders adds the responders to b and returns them in
// registration order. Equal-priority urges go to the earlier responder, so
// the hourly chime outranks a musing on the same tick.
func registerResponders(b *brain.Brain, cfg *config.Config, catalog responder.Catalog, conds responder.Conditions, muteSwitch *responder.MuteSwitch, logger responder.Logger) []brain.Responder {
	rs := []brain.Responder{
		responder.NewSecurity(b),
		responder.NewChime(b),
		responder.NewInstrumentation(b, cfg.Site.StatusRequestTopic, cfg.Site.StatusResponseTopic),
		responder.NewGreeter(b, catalog, conds, catalogCacheTTL, logger),
		responder.NewMuser(b, catalog, conds, catalogCacheTTL, logger),
		responder.NewTemperature(b),
		responder.NewDoorMonitor(cfg.Senses.Door, b),
		muteSwitch,
	}
	for _, r := range rs {
		b.AddResponder(r)
	}
	return rs
}

// ProfileSource is the slice of the store read at startup.
type ProfileSource interface {
	Profile(ctx context.Context, id string) (*store.Profile, error)
	Broker(ctx context.Context, id string) (*store.Broker, error)
}

// loadProfile overlays the stored profile, and its broker, on cfg.
func loadProfile(ctx context.Context, cfg *config.Config, src ProfileSource, id string) error {
	ctx, cancel := context.WithTimeout(ctx, profileTimeout)
	defer cancel()

	p, err := src.Profile(ctx, id)
	if err != nil {
		return err
	}
	applyProfile(cfg, p)

	if p.BrokerID == "" {
		return nil
	}
	broker, err := src.Broker(ctx, p.BrokerID)
	if err != nil {
		return fmt.Errorf("broker %q: %w", p.BrokerID, err)
	}
	applyBroker(&cfg.MQTT, broker)
	return nil
}

// applyProfile copies every non-zero profile value over cfg.
func applyProfile(cfg *config.Config, p *store.Profile) {
	if p.VoiceID != "" {
		cfg.Voice.DefaultVoice = p.VoiceID
	}
	if p.TimeInterval > 0 {
		cfg.Senses.Clock.Interval = p.TimeInterval
	}
	if p.BoredomMinimum > 0 {
		cfg.Senses.Clock.BoredomMinimum = p.BoredomMinimum
	}
	if p.BoredomAmount > 0 {
		cfg.Senses.Clock.BoredomAmount = p.BoredomAmount
	}
	if p.DoorOpen > 0 {
		cfg.Senses.Door.Threshold = p.DoorOpen
	}
	cfg.Mute.Silenced = p.MuteSwitch
}

func applyBroker(cfg *config.MQTTConfig, b *store.Broker) {
	if b.Host != "" {
		cfg.Broker.Host = b.Host
	}
	if b.Port > 0 {
		cfg.Broker.Port = b.Port
	}
	if b.KeepAlive > 0 {
		cfg.Broker.KeepAlive = b.KeepAlive
	}
	if b.ClientID != "" {
		cfg.Broker.ClientID = b.ClientID
	}
	cfg.Broker.Clean = b.Clean
}

// connectInflux returns nil when InfluxDB is disabled.
func connectInflux(cfg config.InfluxDBConfig, log *logging.Logger) (*influxdb.Client, error) {
	if !cfg.Enabled {
		log.Info("InfluxDB disabled")
		return nil, nil //nolint:nilnil // disabled is not an error
	}
	client, err := influxdb.Connect(cfg)
	if err != nil {
		return nil, fmt.Errorf("connecting to InfluxDB: %w", err)
	}
	client.SetOnError(func(err error) {
		log.Error("InfluxDB write error", "error", err)
	})
	log.Info("InfluxDB connected", "url", cfg.URL, "org", cfg.Org, "bucket", cfg.Bucket)
	return client, nil
}

// eyesDriver opens the configured LED, falling back to a null driver.
func eyesDriver(cfg config.EyesConfig, log *logging.Logger) eyes.Driver {
	if cfg.LEDPath == "" {
		return eyes.NullDriver{}
	}
	led, err := eyes.NewSysfsLED(cfg.LEDPath)
	if err != nil {
		log.Warn("eyes unavailable, continuing without light", "path", cfg.LEDPath, "error", err)
		return eyes.NullDriver{}
	}
	return led
}

// healthCheck verifies the infrastructure connections.
func healthCheck(ctx context.Context, db *database.DB, mqttClient *mqtt.Client, influxClient *influxdb.Client) error {
	if err := db.HealthCheck(ctx); err != nil {
		return fmt.Errorf("database: %w", err)
	}
	if err := mqttClient.HealthCheck(ctx); err != nil {
		return fmt.Errorf("mqtt: %w", err)
	}
	if influxClient != nil {
		if err := influxClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("influxdb: %w", err)
		}
	}
	return nil
}
