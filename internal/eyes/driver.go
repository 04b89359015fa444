package eyes

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// NullDriver discards brightness changes, for hosts without the light.
type NullDriver struct{}

// SetDuty does nothing.
func (NullDriver) SetDuty(float64) error { return nil }

// SysfsLED drives a Linux LED class device (/sys/class/leds/<name>).
type SysfsLED struct {
	path string
	max  int
}

// NewSysfsLED opens the LED directory dir and reads its max_brightness.
func NewSysfsLED(dir string) (*SysfsLED, error) {
	raw, err := os.ReadFile(filepath.Join(dir, "max_brightness"))
	if err != nil {
		return nil, fmt.Errorf("reading max_brightness: %w", err)
	}
	maxBrightness, err := strconv.Atoi(strings.TrimSpace(string(raw)))
	if err != nil || maxBrightness < 1 {
		return nil, fmt.Errorf("%w: max_brightness %q", ErrBadLED, strings.TrimSpace(string(raw)))
	}
	return &SysfsLED{path: filepath.Join(dir, "brightness"), max: maxBrightness}, nil
}

// SetDuty writes the scaled duty cycle to the brightness file.
func (l *SysfsLED) SetDuty(duty float64) error {
	level := int(math.Round(duty * float64(l.max)))
	if err := os.WriteFile(l.path, []byte(strconv.Itoa(level)), 0o644); err != nil { //nolint:gosec // sysfs attribute
		return fmt.Errorf("writing brightness: %w", err)
	}
	return nil
}
