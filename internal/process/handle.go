package process

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"sync"
	"sync/atomic"
	"syscall"
)

// Handle is a started one-shot process or pipeline of processes. Each
// stage runs in its own process group so Kill also reaches its children.
//
// Thread Safety: all methods are safe for concurrent use.
type Handle struct {
	name   string
	cmds   []*exec.Cmd
	done   chan struct{}
	killed atomic.Bool

	mu  sync.Mutex
	err error
}

// Spawn starts a single command without waiting for it.
func Spawn(name string, argv []string) (*Handle, error) {
	return SpawnPipeline(name, argv)
}

// SpawnPipeline starts the stages with each stage's stdout connected to
// the next stage's stdin, like a shell pipeline. The last stage's output
// is discarded. If any stage fails to start, the stages already started
// are killed.
func SpawnPipeline(name string, stages ...[]string) (*Handle, error) {
	if len(stages) == 0 {
		return nil, ErrEmptyCommand
	}

	h := &Handle{name: name, done: make(chan struct{})}
	for _, argv := range stages {
		if len(argv) == 0 || argv[0] == "" {
			return nil, ErrEmptyCommand
		}
		cmd := exec.Command(argv[0], argv[1:]...) //nolint:gosec // commands come from operator configuration
		cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
		h.cmds = append(h.cmds, cmd)
	}

	var pipes []*os.File
	closePipes := func() {
		for _, f := range pipes {
			f.Close()
		}
	}
	for i := 0; i < len(h.cmds)-1; i++ {
		r, w, err := os.Pipe()
		if err != nil {
			closePipes()
			return nil, fmt.Errorf("creating pipe for %s: %w", name, err)
		}
		h.cmds[i].Stdout = w
		h.cmds[i+1].Stdin = r
		pipes = append(pipes, r, w)
	}

	for i, cmd := range h.cmds {
		if err := cmd.Start(); err != nil {
			for _, started := range h.cmds[:i] {
				_ = signalGroup(started, syscall.SIGKILL)
				_ = started.Wait()
			}
			closePipes()
			return nil, fmt.Errorf("starting %s stage %d: %w", name, i, err)
		}
	}
	// Only the children need the pipe ends now.
	closePipes()

	var wg sync.WaitGroup
	wg.Add(len(h.cmds))
	for _, cmd := range h.cmds {
		go func() {
			defer wg.Done()
			if err := cmd.Wait(); err != nil {
				h.mu.Lock()
				if h.err == nil {
					h.err = err
				}
				h.mu.Unlock()
			}
		}()
	}
	go func() {
		wg.Wait()
		close(h.done)
	}()

	return h, nil
}

// Name returns the handle's name.
func (h *Handle) Name() string { return h.name }

// Done is closed once every stage has exited.
func (h *Handle) Done() <-chan struct{} { return h.done }

// Exited reports whether every stage has exited.
func (h *Handle) Exited() bool {
	select {
	case <-h.done:
		return true
	default:
		return false
	}
}

// Wait blocks until every stage has exited and returns the first stage
// failure, or nil if all stages exited with status zero.
func (h *Handle) Wait() error {
	<-h.done
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.err
}

// Success reports whether an exited handle ran cleanly.
func (h *Handle) Success() bool {
	return h.Exited() && h.Wait() == nil
}

// ExitCode returns the first failing stage's exit code, 0 if none failed,
// or -1 if the handle is still running or a stage died from a signal.
func (h *Handle) ExitCode() int {
	if !h.Exited() {
		return -1
	}
	var exitErr *exec.ExitError
	switch err := h.Wait(); {
	case err == nil:
		return 0
	case errors.As(err, &exitErr):
		return exitErr.ExitCode()
	default:
		return -1
	}
}

// Kill sends SIGKILL to every stage's process group. It does not wait.
func (h *Handle) Kill() {
	if h.Exited() {
		return
	}
	h.killed.Store(true)
	for _, cmd := range h.cmds {
		_ = signalGroup(cmd, syscall.SIGKILL)
	}
}

// Killed reports whether Kill was called before the handle exited.
func (h *Handle) Killed() bool {
	return h.killed.Load()
}
