package bus

import (
	"context"
	"regexp"
	"sync"
	"time"

	"github.com/nerrad567/urchin-core/internal/store"
)

// IgnoreSource loads ignore pattern pairs.
type IgnoreSource interface {
	Ignores(ctx context.Context) ([]store.Ignore, error)
}

type ignoreRule struct {
	topic   *regexp.Regexp
	message *regexp.Regexp
}

// Filter drops bus traffic matching any stored ignore pair. Both patterns
// are anchored at the start of the text. The list is reloaded once the
// cached copy is older than the TTL.
type Filter struct {
	source IgnoreSource
	ttl    time.Duration
	logger Logger
	now    func() time.Time

	mu       sync.Mutex
	rules    []ignoreRule
	loadedAt time.Time
	loaded   bool
}

// NewFilter creates a Filter. A nil source ignores nothing.
func NewFilter(source IgnoreSource, ttl time.Duration, logger Logger) *Filter {
	if logger == nil {
		logger = noopLogger{}
	}
	return &Filter{source: source, ttl: ttl, logger: logger, now: time.Now}
}

// Ignored reports whether the message should be dropped.
func (f *Filter) Ignored(topic, message string) bool {
	for _, r := range f.current() {
		if r.topic.MatchString(topic) && r.message.MatchString(message) {
			return true
		}
	}
	return false
}

func (f *Filter) current() []ignoreRule {
	if f.source == nil {
		return nil
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if f.loaded && f.now().Sub(f.loadedAt) < f.ttl {
		return f.rules
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	ignores, err := f.source.Ignores(ctx)
	if err != nil {
		// Keep the stale list until the next TTL expiry.
		f.logger.Warn("loading ignore patterns", "error", err)
		f.loadedAt = f.now()
		f.loaded = true
		return f.rules
	}

	rules := make([]ignoreRule, 0, len(ignores))
	for _, ig := range ignores {
		topic, err := anchored(ig.TopicRE)
		if err != nil {
			f.logger.Warn("bad ignore topic pattern", "id", ig.ID, "pattern", ig.TopicRE, "error", err)
			continue
		}
		message, err := anchored(ig.MessageRE)
		if err != nil {
			f.logger.Warn("bad ignore message pattern", "id", ig.ID, "pattern", ig.MessageRE, "error", err)
			continue
		}
		rules = append(rules, ignoreRule{topic: topic, message: message})
	}

	f.rules = rules
	f.loadedAt = f.now()
	f.loaded = true
	f.logger.Debug("ignore patterns loaded", "count", len(rules))
	return rules
}

func anchored(pattern string) (*regexp.Regexp, error) {
	return regexp.Compile(`^(?:` + pattern + `)`)
}
