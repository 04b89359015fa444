package responder

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/nerrad567/urchin-core/internal/brain"
	"github.com/nerrad567/urchin-core/internal/sense"
)

// ChimeSound is played once per hour struck.
const ChimeSound = "cuckoo_chime.wav"

// Chime strikes the hour like a cuckoo clock.
type Chime struct {
	mind Mind
	intN func(n int) int
}

// NewChime creates the hourly chime responder.
func NewChime(mind Mind) *Chime {
	return &Chime{mind: mind, intN: defaultIntN}
}

func (c *Chime) Name() string { return "chime" }

func (c *Chime) Respond(s brain.Sensation) ([]brain.Urge, error) {
	if s.Topic != c.mind.Topic("time/now") {
		return nil, nil
	}
	var now sense.TimeNow
	if err := s.Decode(&now); err != nil {
		return nil, err
	}
	if now.Minute != 0 {
		return nil, nil
	}
	return []brain.Urge{
		brain.NewAct(c.program(now.Hour), brain.Normal, fmt.Sprintf("Time is %02d:00", now.Hour), nil),
	}, nil
}

func (c *Chime) program(hour int) string {
	bongs := hour % 12
	if bongs == 0 {
		bongs = 12
	}

	var text string
	switch hour {
	case 0:
		text = "It's mid night. I should go to bed."
	case 12:
		text = "It's mid day. What's for dinner?"
	case 18:
		text = "It's 6 o clock, what's for tea?"
	default:
		text = fmt.Sprintf("It's %d o clock.", bongs)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "for i := 0; i < %d; i++ {\n", bongs)
	fmt.Fprintf(&b, "\tplay(%q, true)\n", ChimeSound)
	fmt.Fprintf(&b, "\tpause(%.3f)\n", float64(700+c.intN(100))/1000)
	b.WriteString("}\n")
	b.WriteString("say(" + strconv.Quote(text) + ")\n")
	return b.String()
}
