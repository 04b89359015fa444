// Package lifecycle provides the start/stop/wait contract every sense and
// worker implements, and Loop, the polling loop most of them are built on.
//
// Cancellation is cooperative: Stop cancels the loop's context, the
// current tick sees ctx.Done and returns, and the goroutine exits before
// the next tick. External processes are not covered by this; their owners
// kill them explicitly.
package lifecycle
