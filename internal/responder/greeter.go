package responder

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"time"

	"github.com/nerrad567/urchin-core/internal/brain"
	"github.com/nerrad567/urchin-core/internal/store"
)

// GreeterTopic carries gatekeeper announcements of known visitors.
const GreeterTopic = "nh/gk/entry_announce/known"

// State keys the greeter adds to the snapshot it hands its act.
const (
	KeyMemberName     = "member_name"
	KeyAbsenceMessage = "absence_message"
)

var (
	greeterRx = regexp.MustCompile(`^Door opened by: (.*) \(last seen (.*) ago\)`)

	agoParts = []struct {
		rx   *regexp.Regexp
		unit time.Duration
	}{
		{regexp.MustCompile(`(\d+)d`), 24 * time.Hour},
		{regexp.MustCompile(`(\d+)h`), time.Hour},
		{regexp.MustCompile(`(\d+)m`), time.Minute},
		{regexp.MustCompile(`(\d+)s`), time.Second},
	}
)

// Greeter welcomes members arriving through the front door.
type Greeter struct {
	mind    Mind
	catalog Catalog
	conds   Conditions
	cache   *candidateCache
	logger  Logger
	intN    func(n int) int
}

// NewGreeter creates the greeter. Catalog lookups are cached for ttl.
func NewGreeter(mind Mind, catalog Catalog, conds Conditions, ttl time.Duration, logger Logger) *Greeter {
	return &Greeter{
		mind:    mind,
		catalog: catalog,
		conds:   conds,
		cache:   newCandidateCache(ttl),
		logger:  orNoop(logger),
		intN:    defaultIntN,
	}
}

func (g *Greeter) Name() string { return "greeter" }

// Respond picks one greeting for a known arrival.
func (g *Greeter) Respond(s brain.Sensation) ([]brain.Urge, error) {
	if s.Topic != GreeterTopic {
		return nil, nil
	}
	m := greeterRx.FindStringSubmatch(s.Message)
	if m == nil {
		g.logger.Warn("unrecognized entry announcement", "message", s.Message)
		return nil, nil
	}
	member := m[1]

	state := g.mind.Snapshot()
	state[KeyMemberName] = member
	state[KeyAbsenceMessage] = AbsenceMessage(ParseAgo(m[2]))
	g.mind.State().Set(brain.KeyArrival, true)

	all, err := g.cache.get("greeting:"+member, func(ctx context.Context) ([]store.Candidate, error) {
		return g.catalog.Greetings(ctx, member)
	})
	if err != nil {
		return nil, fmt.Errorf("loading greetings for %s: %w", member, err)
	}

	cands := applicable(all, g.conds, state)
	g.logger.Debug("greeting candidates", "member", member, "count", len(cands))
	choice, ok := weightedChoice(cands, g.intN)
	if !ok {
		return nil, nil
	}
	return []brain.Urge{
		brain.NewAct(choice.Action, brain.High, choice.Label()+" because "+s.String(), state),
	}, nil
}

// ParseAgo reads gatekeeper "last seen" text such as "2d 3h 10m".
func ParseAgo(ago string) time.Duration {
	var total time.Duration
	for _, p := range agoParts {
		if m := p.rx.FindStringSubmatch(ago); m != nil {
			n, err := strconv.Atoi(m[1])
			if err == nil {
				total += time.Duration(n) * p.unit
			}
		}
	}
	return total
}

// AbsenceMessage is a remark about how long someone has been away.
func AbsenceMessage(away time.Duration) string {
	const day = 24 * time.Hour
	switch {
	case away < time.Hour:
		return "I didn't know you'd left."
	case away < 3*time.Hour:
		return "Back again?"
	case away < day:
		return "You're back!"
	case away < 2*day:
		return "You were here yesterday."
	case away < 3*day:
		return "I think I saw you a couple of days ago."
	case away < 30*day:
		return "You're a familiar face."
	case away < 60*day:
		return "It's been at least a month."
	case away < 180*day:
		return "I don't see you around here very often."
	case away < 365*day:
		return "It's been a while!"
	default:
		return "Old friend, it's been so long."
	}
}
