// Package brain is the agent's event arbitration core.
//
// Senses push Sensations into the Brain with Experience. The dispatch loop
// drains the bounded queue, hands each sensation to every Responder, and
// performs the one highest-priority Urge through the Actuators (action
// scheduler, bus, speech scheduler). Everything else the responders
// proposed is discarded.
//
// Responders and senses share information only through State.
package brain
