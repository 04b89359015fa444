// Package responder holds the reaction rules run against every sensation.
//
// Responders execute on the brain's dispatch goroutine. Most only read
// the sensation and the brain state and return at most one urge; a few
// (DoorMonitor, Temperature, MuteSwitch) only maintain state. Greeter and
// Muser draw their candidate acts from the store, filter them by
// condition, and pick one at random weighted by each candidate's weight.
package responder
