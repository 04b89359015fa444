package process

import (
	"errors"
	"testing"
	"time"
)

func TestSpawn_ExitStatus(t *testing.T) {
	tests := []struct {
		name     string
		argv     []string
		wantCode int
		wantOK   bool
	}{
		{"success", []string{"/bin/true"}, 0, true},
		{"failure", []string{"/bin/sh", "-c", "exit 3"}, 3, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, err := Spawn(tt.name, tt.argv)
			if err != nil {
				t.Fatalf("Spawn() error: %v", err)
			}
			h.Wait()
			if got := h.ExitCode(); got != tt.wantCode {
				t.Errorf("ExitCode() = %d, want %d", got, tt.wantCode)
			}
			if got := h.Success(); got != tt.wantOK {
				t.Errorf("Success() = %v, want %v", got, tt.wantOK)
			}
			if !h.Exited() {
				t.Error("Exited() = false after Wait")
			}
		})
	}
}

func TestSpawn_EmptyCommand(t *testing.T) {
	if _, err := Spawn("empty", nil); !errors.Is(err, ErrEmptyCommand) {
		t.Errorf("Spawn(nil) error = %v, want ErrEmptyCommand", err)
	}
	if _, err := SpawnPipeline("none"); !errors.Is(err, ErrEmptyCommand) {
		t.Errorf("SpawnPipeline() error = %v, want ErrEmptyCommand", err)
	}
}

func TestSpawn_MissingBinary(t *testing.T) {
	if _, err := Spawn("missing", []string{"/nonexistent/binary"}); err == nil {
		t.Error("Spawn() expected error for missing binary")
	}
}

func TestSpawnPipeline_ConnectsStages(t *testing.T) {
	// The second stage fails unless it reads exactly what the first wrote.
	h, err := SpawnPipeline("pipe",
		[]string{"/bin/echo", "hello"},
		[]string{"/bin/sh", "-c", `read line; [ "$line" = hello ]`},
	)
	if err != nil {
		t.Fatalf("SpawnPipeline() error: %v", err)
	}
	if err := h.Wait(); err != nil {
		t.Errorf("pipeline failed: %v", err)
	}
}

func TestHandle_Kill(t *testing.T) {
	h, err := SpawnPipeline("long",
		[]string{"/bin/sleep", "60"},
		[]string{"/bin/sleep", "60"},
	)
	if err != nil {
		t.Fatalf("SpawnPipeline() error: %v", err)
	}
	if h.Exited() {
		t.Fatal("Exited() = true immediately after spawn")
	}
	if h.ExitCode() != -1 {
		t.Errorf("ExitCode() while running = %d, want -1", h.ExitCode())
	}

	h.Kill()
	select {
	case <-h.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("pipeline did not exit after Kill")
	}
	if !h.Killed() {
		t.Error("Killed() = false")
	}
	if h.Success() {
		t.Error("killed pipeline reported success")
	}
	// Killing an exited handle is harmless.
	h.Kill()
}
