package audio

import (
	"context"
	"path/filepath"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/nerrad567/urchin-core/internal/infrastructure/config"
	"github.com/nerrad567/urchin-core/internal/lifecycle"
	"github.com/nerrad567/urchin-core/internal/process"
)

// Player is a running playback.
type Player interface {
	Done() <-chan struct{}
	Exited() bool
	ExitCode() int
	Kill()
}

// Launcher starts players.
type Launcher interface {
	Launch(argv []string) (Player, error)
}

// LauncherFunc adapts a function to Launcher.
type LauncherFunc func(argv []string) (Player, error)

// Launch calls f.
func (f LauncherFunc) Launch(argv []string) (Player, error) { return f(argv) }

// ProcessLauncher starts real player processes.
var ProcessLauncher = LauncherFunc(func(argv []string) (Player, error) {
	return process.Spawn("audio", argv)
})

// Logger is the logging surface the pool needs.
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

const defaultReapInterval = 500 * time.Millisecond

type entry struct {
	id     string
	player Player
}

// Pool is the audio worker.
//
// Thread Safety: all methods are safe for concurrent use.
type Pool struct {
	cfg      config.AudioConfig
	launcher Launcher
	logger   Logger
	loop     *lifecycle.Loop
	halted   atomic.Bool

	mu      sync.Mutex
	players []entry
}

// NewPool creates a stopped pool. A nil launcher uses ProcessLauncher.
func NewPool(cfg config.AudioConfig, launcher Launcher, logger Logger) *Pool {
	if launcher == nil {
		launcher = ProcessLauncher
	}
	if logger == nil {
		logger = noopLogger{}
	}
	if cfg.Player == "" {
		cfg.Player = "play"
	}
	if cfg.ReapInterval <= 0 {
		cfg.ReapInterval = defaultReapInterval
	}
	p := &Pool{cfg: cfg, launcher: launcher, logger: logger}
	p.loop = lifecycle.NewLoop("audio", cfg.ReapInterval, func(context.Context) { p.Reap() }, logger)
	return p
}

// Name identifies the worker.
func (p *Pool) Name() string { return "audio" }

// Start begins reaping finished players.
func (p *Pool) Start() {
	p.halted.Store(false)
	p.loop.Start()
}

// Stop refuses new plays and stops the reaper.
func (p *Pool) Stop() {
	p.halted.Store(true)
	p.loop.Stop()
}

// Wait blocks until the reaper has exited, then kills or waits for the
// remaining players according to the kill-on-halt setting.
func (p *Pool) Wait() {
	p.loop.Wait()
	if !p.halted.Load() {
		return
	}
	if p.cfg.KillOnHalt {
		p.KillAll()
	} else {
		p.waitAll()
	}
}

// Play plays sound id at the configured volume. See PlayVolume.
func (p *Pool) Play(id string, background bool) bool {
	return p.PlayVolume(id, background, p.cfg.Volume)
}

// PlayVolume plays sound id. A foreground play blocks until the player
// exits and reports whether it succeeded. A background play returns at
// once; it fails without launching anything when the pool is full or
// shutting down.
func (p *Pool) PlayVolume(id string, background bool, volume float64) bool {
	if p.halted.Load() {
		p.logger.Debug("play refused: shutting down", "sound", id)
		return false
	}
	argv := p.command(id, volume)
	p.logger.Info("play", "sound", id, "background", background)

	if !background {
		pl, err := p.launcher.Launch(argv)
		if err != nil {
			p.logger.Warn("player failed to start", "sound", id, "error", err)
			return false
		}
		<-pl.Done()
		return pl.ExitCode() == 0
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.players) >= p.cfg.Capacity {
		p.logger.Debug("background play refused: pool full", "sound", id, "capacity", p.cfg.Capacity)
		return false
	}
	pl, err := p.launcher.Launch(argv)
	if err != nil {
		p.logger.Warn("player failed to start", "sound", id, "error", err)
		return false
	}
	p.players = append(p.players, entry{id: id, player: pl})
	return true
}

func (p *Pool) command(id string, volume float64) []string {
	path := id
	if p.cfg.SoundDir != "" && !filepath.IsAbs(id) {
		path = filepath.Join(p.cfg.SoundDir, id)
	}
	return []string{p.cfg.Player, "-q", path, "vol", strconv.FormatFloat(volume, 'f', -1, 64)}
}

// Active returns the number of tracked background players.
func (p *Pool) Active() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.players)
}

// Reap forgets players that have exited, logging their status.
func (p *Pool) Reap() {
	p.mu.Lock()
	defer p.mu.Unlock()
	keep := p.players[:0]
	for _, e := range p.players {
		if e.player.Exited() {
			p.logger.Debug("reaped player", "sound", e.id, "status", e.player.ExitCode())
			continue
		}
		keep = append(keep, e)
	}
	clear(p.players[len(keep):])
	p.players = keep
}

// InterruptSound kills players of sound id. Instance 0 kills every match;
// otherwise only the instance-th match (counting from 1, in play order)
// is killed. It returns the number of players killed.
func (p *Pool) InterruptSound(id string, instance int) int {
	p.mu.Lock()
	defer p.mu.Unlock()

	killed := 0
	count := 0
	keep := p.players[:0]
	for _, e := range p.players {
		if e.id == id {
			count++
			if (instance == 0 || instance == count) && !e.player.Exited() {
				e.player.Kill()
				<-e.player.Done()
				p.logger.Debug("interrupted player", "sound", id, "instance", count)
				killed++
				continue
			}
		}
		keep = append(keep, e)
	}
	clear(p.players[len(keep):])
	p.players = keep
	return killed
}

// StopSound is InterruptSound without the count.
func (p *Pool) StopSound(id string, instance int) {
	p.InterruptSound(id, instance)
}

// KillAll kills every background player and forgets them.
func (p *Pool) KillAll() {
	p.mu.Lock()
	players := p.players
	p.players = nil
	p.mu.Unlock()

	var g errgroup.Group
	for _, e := range players {
		g.Go(func() error {
			e.player.Kill()
			<-e.player.Done()
			return nil
		})
	}
	_ = g.Wait()
	if len(players) > 0 {
		p.logger.Debug("killed players", "count", len(players))
	}
}

func (p *Pool) waitAll() {
	for p.Active() > 0 {
		time.Sleep(p.cfg.ReapInterval)
		p.Reap()
	}
}
