package sense

import "github.com/nerrad567/urchin-core/internal/brain"

// Registry is where the MQTT sense attaches itself. *bus.Bus satisfies it.
type Registry interface {
	Register(name string, r func(s brain.Sensation) bool)
	Unregister(name string)
}

// MQTT turns every bus message into a sensation.
type MQTT struct {
	bus  Registry
	mind Mind
}

// NewMQTT creates the bus sense.
func NewMQTT(bus Registry, mind Mind) *MQTT {
	return &MQTT{bus: bus, mind: mind}
}

func (m *MQTT) Name() string { return "mqtt-sense" }

// Start begins forwarding bus messages to the brain.
func (m *MQTT) Start() { m.bus.Register(m.Name(), m.mind.Experience) }

// Stop detaches from the bus.
func (m *MQTT) Stop() { m.bus.Unregister(m.Name()) }

func (m *MQTT) Wait() {}
