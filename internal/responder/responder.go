package responder

import (
	"context"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/nerrad567/urchin-core/internal/brain"
	"github.com/nerrad567/urchin-core/internal/store"
)

// Mind is the part of the brain responders use. *brain.Brain satisfies it.
type Mind interface {
	Topic(suffix string) string
	State() *brain.State
	Snapshot() map[string]any
	Experience(s brain.Sensation) bool
	SetSilence(on bool)
}

// Logger is the logging surface responders need.
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

func orNoop(l Logger) Logger {
	if l == nil {
		return noopLogger{}
	}
	return l
}

// Conditions decides whether a candidate applies to the current state.
type Conditions interface {
	Evaluate(expr string, vars map[string]any, id string) bool
}

// Catalog lists the stored greetings and musings.
type Catalog interface {
	Greetings(ctx context.Context, member string) ([]store.Candidate, error)
	Musings(ctx context.Context, topic string) ([]store.Candidate, error)
}

const (
	catalogTimeout  = time.Second
	maxCacheEntries = 1024
)

type cacheEntry struct {
	candidates []store.Candidate
	loadedAt   time.Time
}

// candidateCache memoizes catalog lookups for ttl.
type candidateCache struct {
	ttl time.Duration
	now func() time.Time

	mu      sync.Mutex
	entries map[string]cacheEntry
}

func newCandidateCache(ttl time.Duration) *candidateCache {
	return &candidateCache{ttl: ttl, now: time.Now, entries: make(map[string]cacheEntry)}
}

func (c *candidateCache) get(key string, load func(ctx context.Context) ([]store.Candidate, error)) ([]store.Candidate, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	if e, ok := c.entries[key]; ok && now.Sub(e.loadedAt) < c.ttl {
		return e.candidates, nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), catalogTimeout)
	defer cancel()
	candidates, err := load(ctx)
	if err != nil {
		return nil, err
	}

	if len(c.entries) >= maxCacheEntries {
		clear(c.entries)
	}
	c.entries[key] = cacheEntry{candidates: candidates, loadedAt: now}
	return candidates, nil
}

// applicable keeps the candidates whose condition holds for state.
func applicable(cands []store.Candidate, conds Conditions, state map[string]any) []store.Candidate {
	var out []store.Candidate
	for _, c := range cands {
		if c.Condition == "" || conds.Evaluate(c.Condition, state, c.Label()) {
			out = append(out, c)
		}
	}
	return out
}

// weightedChoice picks one candidate with probability proportional to its
// weight. Candidates with no weight are never picked.
func weightedChoice(cands []store.Candidate, intN func(n int) int) (store.Candidate, bool) {
	total := 0
	for _, c := range cands {
		if c.Weight > 0 {
			total += c.Weight
		}
	}
	if total == 0 {
		return store.Candidate{}, false
	}

	r := intN(total)
	for _, c := range cands {
		if c.Weight <= 0 {
			continue
		}
		if r < c.Weight {
			return c, true
		}
		r -= c.Weight
	}
	return store.Candidate{}, false
}

func defaultIntN(n int) int { return rand.IntN(n) }
