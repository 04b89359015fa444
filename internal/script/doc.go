// Package script runs the small Go programs and expressions that the
// store's greetings and musings are written in.
//
// Programs and conditions are interpreted by yaegi with no standard
// library symbols loaded. A program can only reach the primitives the
// Interpreter exports (say, play, stop, pause, publish, eyes, random,
// randInt, choose, get, log) plus read-only copies of the state values
// whose keys are valid Go identifiers:
//
//	play("creak.wav", true); pause(1.5); say("Oh. It is you, {{.member_name}}.")
//
// Conditions are single boolean expressions over the same variables:
//
//	day_period != "night" && arrival
package script
