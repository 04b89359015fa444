package brain

import "fmt"

// Priority orders competing urges. Higher wins.
type Priority int

const (
	Low    Priority = 0
	Normal Priority = 10
	High   Priority = 20
)

func (p Priority) String() string {
	switch p {
	case Low:
		return "low"
	case Normal:
		return "normal"
	case High:
		return "high"
	default:
		return fmt.Sprintf("priority(%d)", int(p))
	}
}

// Urge is a prioritized candidate action produced in response to a
// sensation. At most one urge per sensation is performed.
type Urge interface {
	Kind() string
	Priority() Priority
	Cause() string
	State() map[string]any
	Perform(a Actuators) error
}

// Actuators is where a selected urge is sent.
type Actuators interface {
	Act(a *Act) bool
	Publish(topic, message string) error
	Say(text, voice string, state map[string]any) bool
}

type base struct {
	priority Priority
	cause    string
	state    map[string]any
}

func (b base) Priority() Priority    { return b.priority }
func (b base) Cause() string         { return b.cause }
func (b base) State() map[string]any { return b.state }

// Act runs a program in the action sandbox.
type Act struct {
	base
	Program string
}

// NewAct creates an Act urge. state may be nil, in which case the
// performer uses the brain's state at the time the act runs.
func NewAct(program string, priority Priority, cause string, state map[string]any) *Act {
	return &Act{base: base{priority: priority, cause: cause, state: state}, Program: program}
}

func (a *Act) Kind() string { return "act" }

// Perform queues the act with the action scheduler.
func (a *Act) Perform(act Actuators) error {
	if !act.Act(a) {
		return ErrDropped
	}
	return nil
}

func (a *Act) String() string {
	return fmt.Sprintf("Act(%s, %q)", a.priority, a.cause)
}

// Publish emits a message on the bus.
type Publish struct {
	base
	Topic   string
	Message string
}

// NewPublish creates a Publish urge.
func NewPublish(topic, message string, priority Priority, cause string) *Publish {
	return &Publish{base: base{priority: priority, cause: cause}, Topic: topic, Message: message}
}

func (p *Publish) Kind() string { return "publish" }

// Perform publishes immediately.
func (p *Publish) Perform(a Actuators) error {
	return a.Publish(p.Topic, p.Message)
}

func (p *Publish) String() string {
	return fmt.Sprintf("Publish(%s, %s=%q)", p.priority, p.Topic, p.Message)
}

// Say speaks text. Voice may be empty for the default voice.
type Say struct {
	base
	Text  string
	Voice string
}

// NewSay creates a Say urge.
func NewSay(text, voice string, priority Priority, cause string, state map[string]any) *Say {
	return &Say{base: base{priority: priority, cause: cause, state: state}, Text: text, Voice: voice}
}

func (s *Say) Kind() string { return "say" }

// Perform queues the text with the speech scheduler.
func (s *Say) Perform(a Actuators) error {
	if !a.Say(s.Text, s.Voice, s.state) {
		return ErrDropped
	}
	return nil
}

func (s *Say) String() string {
	return fmt.Sprintf("Say(%s, %q)", s.priority, s.Text)
}

// Router implements Actuators over the three schedulers that perform urges.
type Router struct {
	Thespian interface{ Add(a *Act) bool }
	Bus      interface {
		Publish(topic, message string) error
	}
	Voice interface {
		Say(text, voice string, state map[string]any) bool
	}
}

func (r Router) Act(a *Act) bool {
	if r.Thespian == nil {
		return false
	}
	return r.Thespian.Add(a)
}

func (r Router) Publish(topic, message string) error {
	if r.Bus == nil {
		return ErrNoActuator
	}
	return r.Bus.Publish(topic, message)
}

func (r Router) Say(text, voice string, state map[string]any) bool {
	if r.Voice == nil {
		return false
	}
	return r.Voice.Say(text, voice, state)
}
