package responder

import (
	"strconv"

	"github.com/nerrad567/urchin-core/internal/brain"
	"github.com/nerrad567/urchin-core/internal/sense"
)

// Security speaks up when the host is port scanned.
type Security struct {
	mind Mind
}

// NewSecurity creates the security responder.
func NewSecurity(mind Mind) *Security {
	return &Security{mind: mind}
}

func (s *Security) Name() string { return "security" }

func (s *Security) Respond(sn brain.Sensation) ([]brain.Urge, error) {
	if sn.Topic != s.mind.Topic("os/portscan") {
		return nil, nil
	}
	var scan sense.PortScan
	if err := sn.Decode(&scan); err != nil {
		return nil, err
	}
	text := "I'm getting port scanned from host " + scan.FromHostname + "."
	return []brain.Urge{
		brain.NewAct("say("+strconv.Quote(text)+")", brain.High, "Port scan detected", nil),
	}, nil
}
