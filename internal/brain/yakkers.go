package brain

import (
	"maps"
	"strings"
	"sync"
	"time"
)

// Lifecycle topic suffixes every speaking instrument publishes.
const (
	SuffixTalking = "/talking"
	SuffixSaid    = "/said"
)

// Yakkers tracks which speech sources are currently talking. A source
// counts as talking for at most timeout after it started, so a lost "said"
// message cannot block speech forever.
type Yakkers struct {
	mu      sync.Mutex
	talking map[string]time.Time
	timeout time.Duration
	now     func() time.Time
	logger  Logger
}

// NewYakkers creates an empty registry.
func NewYakkers(timeout time.Duration, logger Logger) *Yakkers {
	if logger == nil {
		logger = noopLogger{}
	}
	return &Yakkers{
		talking: make(map[string]time.Time),
		timeout: timeout,
		now:     time.Now,
		logger:  logger,
	}
}

// Observe updates the registry from a topic: "<id>/talking" registers id,
// "<id>/said" removes it. Other topics are ignored.
func (y *Yakkers) Observe(topic string) {
	if id, ok := strings.CutSuffix(topic, SuffixTalking); ok {
		y.Begin(id)
	} else if id, ok := strings.CutSuffix(topic, SuffixSaid); ok {
		y.End(id)
	}
}

// Begin registers id as talking from now, unless it already is.
func (y *Yakkers) Begin(id string) {
	y.mu.Lock()
	defer y.mu.Unlock()
	now := y.now()
	if y.isTalking(id, now) {
		return
	}
	y.talking[id] = now
	y.logger.Debug("began yakking", "yakker", id)
}

// End removes id.
func (y *Yakkers) End(id string) {
	y.mu.Lock()
	defer y.mu.Unlock()
	start, ok := y.talking[id]
	if !ok {
		return
	}
	delete(y.talking, id)
	y.logger.Debug("stopped yakking", "yakker", id, "seconds", y.now().Sub(start).Seconds())
}

// IsTalking reports whether id started talking within the timeout.
func (y *Yakkers) IsTalking(id string) bool {
	y.mu.Lock()
	defer y.mu.Unlock()
	return y.isTalking(id, y.now())
}

// AnyTalking reports whether any registered source is talking.
func (y *Yakkers) AnyTalking() bool {
	y.mu.Lock()
	defer y.mu.Unlock()
	now := y.now()
	for id := range y.talking {
		if y.isTalking(id, now) {
			return true
		}
	}
	return false
}

// Snapshot returns a copy of the registry.
func (y *Yakkers) Snapshot() map[string]time.Time {
	y.mu.Lock()
	defer y.mu.Unlock()
	return maps.Clone(y.talking)
}

func (y *Yakkers) isTalking(id string, now time.Time) bool {
	start, ok := y.talking[id]
	return ok && now.Sub(start) < y.timeout
}
