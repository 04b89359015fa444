package responder

import (
	"context"
	"fmt"
	"time"

	"github.com/nerrad567/urchin-core/internal/brain"
	"github.com/nerrad567/urchin-core/internal/store"
)

// Front door events that end an arrival.
const (
	FrontDoorTopic = "nh/gk/1/DoorState"
	DoorLocked     = "LOCKED"
)

// State keys the muser adds to the snapshot it hands its act.
const (
	KeyTopic   = "topic"
	KeyMessage = "message"
)

// Muser reacts to any sensation that has musings stored for its topic.
type Muser struct {
	mind    Mind
	catalog Catalog
	conds   Conditions
	cache   *candidateCache
	logger  Logger
	intN    func(n int) int
}

// NewMuser creates the muser. Catalog lookups are cached for ttl.
func NewMuser(mind Mind, catalog Catalog, conds Conditions, ttl time.Duration, logger Logger) *Muser {
	return &Muser{
		mind:    mind,
		catalog: catalog,
		conds:   conds,
		cache:   newCandidateCache(ttl),
		logger:  orNoop(logger),
		intN:    defaultIntN,
	}
}

func (m *Muser) Name() string { return "muser" }

func (m *Muser) Respond(s brain.Sensation) ([]brain.Urge, error) {
	all, err := m.cache.get("musing:"+s.Topic, func(ctx context.Context) ([]store.Candidate, error) {
		return m.catalog.Musings(ctx, s.Topic)
	})

	var state map[string]any
	if len(all) > 0 {
		state = m.augmented(s)
	}
	// The snapshot above still sees the arrival that is ending.
	if s.Topic == FrontDoorTopic && s.Message == DoorLocked {
		m.mind.State().Set(brain.KeyArrival, false)
	}

	if err != nil {
		return nil, fmt.Errorf("loading musings for %s: %w", s.Topic, err)
	}
	if len(all) == 0 {
		return nil, nil
	}

	cands := applicable(all, m.conds, state)
	m.logger.Debug("musing candidates", "topic", s.Topic, "count", len(cands))
	choice, ok := weightedChoice(cands, m.intN)
	if !ok {
		return nil, nil
	}
	return []brain.Urge{
		brain.NewAct(choice.Action, brain.Normal, choice.Label()+" because "+s.String(), state),
	}, nil
}

// augmented is the brain snapshot plus the sensation's topic, message and,
// for a JSON object message, each of its fields.
func (m *Muser) augmented(s brain.Sensation) map[string]any {
	state := m.mind.Snapshot()
	state[KeyTopic] = s.Topic
	state[KeyMessage] = s.Message
	for k, v := range s.Fields() {
		state[k] = v
	}
	return state
}
