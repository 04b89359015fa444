package responder

import "github.com/nerrad567/urchin-core/internal/brain"

// StatusRequest is the message that asks instruments to report in.
const StatusRequest = "STATUS"

// Instrumentation answers status requests.
type Instrumentation struct {
	mind          Mind
	requestTopic  string
	responseTopic string
}

// NewInstrumentation creates the status responder.
func NewInstrumentation(mind Mind, requestTopic, responseTopic string) *Instrumentation {
	return &Instrumentation{mind: mind, requestTopic: requestTopic, responseTopic: responseTopic}
}

func (i *Instrumentation) Name() string { return "instrumentation" }

func (i *Instrumentation) Respond(s brain.Sensation) ([]brain.Urge, error) {
	if s.Topic != i.requestTopic || s.Message != StatusRequest {
		return nil, nil
	}
	message := "Running: " + i.mind.State().String(brain.KeyInstrumentID)
	return []brain.Urge{brain.NewPublish(i.responseTopic, message, brain.High, "status request")}, nil
}
