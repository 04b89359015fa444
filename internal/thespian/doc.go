// Package thespian performs Act urges one at a time.
//
// Acts wait in a small bounded queue; when it is full new acts are dropped
// so a burst of sensations cannot pile up performances. A supervisory loop
// reaps the finished performance and starts the next one on its own
// goroutine. Program text is executed by a Runner, normally the script
// interpreter.
package thespian
