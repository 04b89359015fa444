package voice

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/nerrad567/urchin-core/internal/brain"
	"github.com/nerrad567/urchin-core/internal/lifecycle"
	"github.com/nerrad567/urchin-core/internal/process"
	"github.com/nerrad567/urchin-core/internal/store"
)

// VoiceSource resolves stored voice profiles.
type VoiceSource interface {
	Voice(ctx context.Context, id string) (*store.Voice, error)
}

// Publisher sends speech lifecycle notifications.
type Publisher interface {
	Publish(topic, message string) error
}

// Light is the part of the eyes the speaker drives.
type Light interface {
	On()
	Fade(final float64, d time.Duration, steps int)
}

// Proc is a running speech pipeline.
type Proc interface {
	Done() <-chan struct{}
	Wait() error
	Kill()
}

// Spawner starts a pipeline of commands.
type Spawner func(name string, stages ...[]string) (Proc, error)

// SpawnProcess starts real processes.
func SpawnProcess(name string, stages ...[]string) (Proc, error) {
	return process.SpawnPipeline(name, stages...)
}

// Topics are where the speaker announces itself.
type Topics struct {
	Talking     string
	Said        string
	Interrupted string
}

// Fade applied to the eyes once an utterance ends.
const (
	restIntensity = 0.05
	restFade      = 500 * time.Millisecond
	restSteps     = 25
)

// Gob is the interruptible utterer: it speaks one utterance at a time by
// piping the synthesis engine into the effect player.
//
// Thread Safety: Utter is called from one goroutine at a time; Interrupt
// and Talking may be called from any goroutine.
type Gob struct {
	voices       VoiceSource
	publisher    Publisher
	light        Light
	experience   func(brain.Sensation) bool
	spawn        Spawner
	effectPlayer string
	topics       Topics
	logger       Logger

	mu       sync.Mutex
	current  Proc
	lastText string
}

// GobOptions wires a Gob. Nil Light, Publisher and Experience are allowed.
type GobOptions struct {
	Voices       VoiceSource
	Publisher    Publisher
	Light        Light
	Experience   func(brain.Sensation) bool
	Spawn        Spawner
	EffectPlayer string
	Topics       Topics
}

// NewGob creates a speaker.
func NewGob(opts GobOptions, logger Logger) *Gob {
	if opts.Spawn == nil {
		opts.Spawn = SpawnProcess
	}
	if opts.EffectPlayer == "" {
		opts.EffectPlayer = "play"
	}
	if logger == nil {
		logger = noopLogger{}
	}
	return &Gob{
		voices:       opts.Voices,
		publisher:    opts.Publisher,
		light:        opts.Light,
		experience:   opts.Experience,
		spawn:        opts.Spawn,
		effectPlayer: opts.EffectPlayer,
		topics:       opts.Topics,
		logger:       logger,
	}
}

// Utter speaks u and blocks until the speech ends, is interrupted, or ctx
// is done. It reports whether every stage of the pipeline succeeded.
func (g *Gob) Utter(ctx context.Context, u Utterance) bool {
	v, err := g.voices.Voice(ctx, u.Voice)
	if err != nil {
		g.logger.Warn("unknown voice, utterance skipped", "voice", u.Voice, "error", err)
		return false
	}
	if !lifecycle.Sleep(ctx, u.Pause) {
		return false
	}

	g.mu.Lock()
	g.lastText = u.Text
	g.mu.Unlock()

	g.publish(g.topics.Talking, "voice start")
	if g.light != nil {
		g.light.On()
	}
	defer func() {
		if g.light != nil {
			g.light.Fade(restIntensity, restFade, restSteps)
		}
		g.publish(g.topics.Said, u.Text)
	}()

	g.logger.Debug("utter", "voice", v.ID, "text", u.Text)
	proc, err := g.spawn("speech", SpeechCommand(u.Text, v), EffectCommand(g.effectPlayer, v.Effect))
	if err != nil {
		g.logger.Warn("speech failed to start", "voice", v.ID, "error", err)
		return false
	}

	g.mu.Lock()
	g.current = proc
	g.mu.Unlock()
	defer func() {
		g.mu.Lock()
		g.current = nil
		g.mu.Unlock()
	}()

	select {
	case <-proc.Done():
	case <-ctx.Done():
		proc.Kill()
		<-proc.Done()
	}
	if err := proc.Wait(); err != nil {
		g.logger.Debug("speech pipeline ended", "voice", v.ID, "error", err)
		return false
	}
	return true
}

// Interrupt kills the utterance in progress and reports it as a
// sensation carrying the interrupted text. It returns false if nothing was
// being said.
func (g *Gob) Interrupt() bool {
	g.mu.Lock()
	proc, text := g.current, g.lastText
	g.mu.Unlock()

	if proc == nil {
		return false
	}
	proc.Kill()
	<-proc.Done()
	g.logger.Info("speech interrupted", "text", text)
	if g.experience != nil && g.topics.Interrupted != "" {
		g.experience(brain.NewSensation(g.topics.Interrupted, text))
	}
	return true
}

// Talking reports whether an utterance is in progress.
func (g *Gob) Talking() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.current != nil
}

func (g *Gob) publish(topic, message string) {
	if g.publisher == nil || topic == "" {
		return
	}
	if err := g.publisher.Publish(topic, message); err != nil {
		g.logger.Warn("speech notification failed", "topic", topic, "error", err)
	}
}

// SpeechCommand is the synthesis engine invocation writing WAV to stdout.
func SpeechCommand(text string, v *store.Voice) []string {
	return []string{
		v.Engine,
		"-v", v.Voice,
		"-s", strconv.Itoa(v.Speed),
		"-p", strconv.Itoa(v.Pitch),
		"-a", strconv.Itoa(v.Amplitude),
		"-w", "/dev/stdout",
		text,
	}
}

// EffectCommand is the effect player invocation reading WAV on stdin.
func EffectCommand(player string, e store.Effect) []string {
	return append([]string{player}, strings.Fields(e.Args)...)
}

// String describes the utterance for logs.
func (u Utterance) String() string {
	return fmt.Sprintf("Utterance(%q, voice=%s, pause=%s)", u.Text, u.Voice, u.Pause)
}
