package brain

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/nerrad567/urchin-core/internal/lifecycle"
)

// Logger is the logging surface the brain needs.
// Compatible with logging.Logger and slog.Logger.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
	Log(ctx context.Context, level slog.Level, msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any)                            {}
func (noopLogger) Info(string, ...any)                             {}
func (noopLogger) Warn(string, ...any)                             {}
func (noopLogger) Error(string, ...any)                            {}
func (noopLogger) Log(context.Context, slog.Level, string, ...any) {}

// Responder maps a sensation to zero or more urges. Responders run on the
// dispatch goroutine and must not block.
type Responder interface {
	Name() string
	Respond(s Sensation) ([]Urge, error)
}

// Observer is told about every dispatched sensation and every selected urge.
// Calls happen on the dispatch goroutine and must not block.
type Observer interface {
	Sensed(s Sensation)
	Selected(s Sensation, u Urge)
}

// SilenceStore persists the mute switch across restarts.
type SilenceStore interface {
	SaveSilence(on bool) error
}

// Options configures a Brain.
type Options struct {
	InstrumentID  string
	TopicPrefix   string
	StatusTopic   string
	Tick          time.Duration
	QueueCapacity int
	StopPause     time.Duration
	YakkerTimeout time.Duration
}

// Brain owns the shared state, the inbound sensation queue, and the
// registries of senses, responders and workers, and arbitrates between
// competing urges.
type Brain struct {
	opts    Options
	logger  Logger
	state   *State
	queue   *Queue[Sensation]
	yakkers *Yakkers

	mu         sync.RWMutex
	senses     []lifecycle.Runner
	workers    []lifecycle.Runner
	responders []Responder
	observers  []Observer
	actuators  Actuators
	silence    SilenceStore

	running atomic.Bool
	halt    atomic.Bool
}

// New creates a brain. A nil logger discards output.
func New(opts Options, logger Logger) *Brain {
	if logger == nil {
		logger = noopLogger{}
	}
	if opts.Tick <= 0 {
		opts.Tick = 500 * time.Millisecond
	}
	if opts.QueueCapacity < 1 {
		opts.QueueCapacity = 3
	}
	if opts.YakkerTimeout <= 0 {
		opts.YakkerTimeout = 60 * time.Second
	}

	b := &Brain{
		opts:    opts,
		logger:  logger,
		state:   newState(logger),
		queue:   NewQueue[Sensation](opts.QueueCapacity),
		yakkers: NewYakkers(opts.YakkerTimeout, logger),
	}
	b.state.Set(KeyInstrumentID, opts.InstrumentID)
	b.state.Set(KeyArrival, false)
	return b
}

// Topic returns suffix within this instrument's topic namespace.
func (b *Brain) Topic(suffix string) string {
	return b.opts.TopicPrefix + "/" + suffix
}

// InstrumentID returns the configured instrument name.
func (b *Brain) InstrumentID() string {
	return b.opts.InstrumentID
}

// State returns the shared state.
func (b *Brain) State() *State {
	return b.state
}

// Yakkers returns the speech source registry.
func (b *Brain) Yakkers() *Yakkers {
	return b.yakkers
}

// Get is shorthand for State().Get.
func (b *Brain) Get(key string, def any) any {
	return b.state.Get(key, def)
}

// Set is shorthand for State().Set.
func (b *Brain) Set(key string, value any) any {
	return b.state.Set(key, value)
}

// Snapshot is shorthand for State().Snapshot.
func (b *Brain) Snapshot() map[string]any {
	return b.state.Snapshot()
}

// AddSense registers a sensation producer. Senses start after workers.
func (b *Brain) AddSense(r lifecycle.Runner) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.senses = append(b.senses, r)
}

// AddWorker registers an urge consumer.
func (b *Brain) AddWorker(r lifecycle.Runner) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.workers = append(b.workers, r)
}

// AddResponder registers a responder. Registration order breaks priority ties.
func (b *Brain) AddResponder(r Responder) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.responders = append(b.responders, r)
}

// AddObserver registers a dispatch observer.
func (b *Brain) AddObserver(o Observer) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.observers = append(b.observers, o)
}

// SetActuators sets where selected urges are performed.
func (b *Brain) SetActuators(a Actuators) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.actuators = a
}

// SetSilenceStore sets where the mute switch is persisted.
func (b *Brain) SetSilenceStore(s SilenceStore) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.silence = s
}

// Experience offers a sensation to the brain. It never blocks: when the
// queue is full the sensation is dropped and false is returned. Speech
// lifecycle topics update the yakker registry whether or not the sensation
// is queued.
func (b *Brain) Experience(s Sensation) bool {
	b.yakkers.Observe(s.Topic)
	if !b.queue.Push(s) {
		b.logger.Debug("sensation dropped: queue full", "topic", s.Topic)
		return false
	}
	return true
}

// QueueLen returns the number of sensations waiting for dispatch.
func (b *Brain) QueueLen() int {
	return b.queue.Len()
}

// SetSilence switches speech off or on and persists the switch. Silencing
// also forgets the last utterance so boredom starts counting afresh.
func (b *Brain) SetSilence(on bool) {
	b.state.SetAt(slog.LevelInfo, KeySilence, on)
	if on {
		b.state.Set(KeyLastUtterance, nil)
	}

	b.mu.RLock()
	store := b.silence
	b.mu.RUnlock()
	if store == nil {
		return
	}
	if err := store.SaveSilence(on); err != nil {
		b.logger.Warn("persisting mute switch failed", "error", err)
	}
}

// Silenced reports whether speech is switched off.
func (b *Brain) Silenced() bool {
	return b.state.Bool(KeySilence)
}

// Stop asks Run to finish. It returns immediately.
func (b *Brain) Stop() {
	b.halt.Store(true)
}

// Run is the brain's main loop and blocks until Stop is called or ctx is
// cancelled. It dispatches a start marker, starts workers then senses,
// drains the sensation queue every tick, and on halt dispatches a stop
// marker and shuts senses then workers down.
//
// A panic escaping dispatch is logged, triggers the same orderly shutdown,
// and is returned as ErrDispatchPanic.
func (b *Brain) Run(ctx context.Context) error {
	if !b.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	defer b.running.Store(false)
	b.halt.Store(false)

	b.mu.RLock()
	senses := append([]lifecycle.Runner(nil), b.senses...)
	workers := append([]lifecycle.Runner(nil), b.workers...)
	b.mu.RUnlock()

	boot, _ := b.state.Time(KeyBootTime)
	b.announce("Restart: " + b.opts.InstrumentID)
	b.handleMarker(NewJSONSensation(b.Topic("start"), map[string]any{
		"system_time": boot.Format(time.RFC3339),
	}))

	lifecycle.StartAll(workers)
	lifecycle.StartAll(senses)
	b.logger.Info("brain running", "senses", len(senses), "workers", len(workers))

	err := b.dispatch(ctx)
	if err != nil {
		b.logger.Error("dispatch loop failed, shutting down", "error", err)
	}

	b.handleMarker(NewJSONSensation(b.Topic("stop"), map[string]any{
		"system_time": boot.Format(time.RFC3339),
		"uptime_text": b.state.Get(KeyUptimeText, ""),
		"uptime":      b.state.Get(KeyUptime, 0),
	}))
	time.Sleep(b.opts.StopPause)
	b.announce("Terminated: " + b.opts.InstrumentID)

	b.logger.Debug("requesting senses and workers stop")
	lifecycle.StopAll(senses)
	lifecycle.StopAll(workers)
	b.logger.Debug("waiting for senses and workers")
	lifecycle.WaitAll(senses)
	lifecycle.WaitAll(workers)
	b.logger.Info("brain stopped")

	return err
}

func (b *Brain) dispatch(ctx context.Context) error {
	ticker := time.NewTicker(b.opts.Tick)
	defer ticker.Stop()

	for !b.halt.Load() {
		if err := b.drain(); err != nil {
			return err
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
	return nil
}

// handleMarker dispatches a synthesized start or stop sensation outside the
// drain loop, where a panic must not abort startup or shutdown.
func (b *Brain) handleMarker(s Sensation) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("dispatch panicked", "topic", s.Topic, "panic", r)
		}
	}()
	b.HandleSensation(s)
}

func (b *Brain) drain() (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrDispatchPanic, r)
		}
	}()
	for {
		s, ok := b.queue.Pop()
		if !ok {
			return nil
		}
		b.HandleSensation(s)
	}
}

// HandleSensation runs every responder against s and performs the single
// highest-priority urge. Ties go to the urge collected first, so earlier
// registered responders win. The other urges are discarded. It returns the
// performed urge, or nil.
func (b *Brain) HandleSensation(s Sensation) Urge {
	b.mu.RLock()
	responders := b.responders
	observers := b.observers
	actuators := b.actuators
	b.mu.RUnlock()

	b.logger.Debug("sense", "topic", s.Topic, "message", s.Message)
	for _, o := range observers {
		o.Sensed(s)
	}

	var selected Urge
	for _, r := range responders {
		for _, u := range b.respond(r, s) {
			if u == nil {
				continue
			}
			if selected == nil || u.Priority() > selected.Priority() {
				selected = u
			}
		}
	}
	if selected == nil {
		return nil
	}

	for _, o := range observers {
		o.Selected(s, selected)
	}
	b.perform(selected, actuators)
	return selected
}

func (b *Brain) respond(r Responder, s Sensation) (urges []Urge) {
	defer func() {
		if rec := recover(); rec != nil {
			b.logger.Error("responder panicked", "responder", r.Name(), "topic", s.Topic, "panic", rec)
			urges = nil
		}
	}()

	urges, err := r.Respond(s)
	if err != nil {
		b.logger.Warn("responder failed", "responder", r.Name(), "topic", s.Topic, "error", err)
		return nil
	}
	return urges
}

func (b *Brain) perform(u Urge, a Actuators) {
	defer func() {
		if rec := recover(); rec != nil {
			b.logger.Error("urge panicked", "kind", u.Kind(), "cause", u.Cause(), "panic", rec)
		}
	}()

	if a == nil {
		b.logger.Warn("no actuators wired, urge discarded", "kind", u.Kind(), "cause", u.Cause())
		return
	}
	b.logger.Debug("performing urge", "kind", u.Kind(), "priority", u.Priority().String(), "cause", u.Cause())
	if err := u.Perform(a); err != nil {
		b.logger.Warn("urge not performed", "kind", u.Kind(), "cause", u.Cause(), "error", err)
	}
}

func (b *Brain) announce(message string) {
	if b.opts.StatusTopic == "" {
		return
	}
	b.mu.RLock()
	a := b.actuators
	b.mu.RUnlock()
	if a == nil {
		return
	}
	if err := a.Publish(b.opts.StatusTopic, message); err != nil {
		b.logger.Warn("status announcement failed", "message", message, "error", err)
	}
}
