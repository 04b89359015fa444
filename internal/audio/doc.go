// Package audio plays sound files with an external player.
//
// Foreground plays block until the player exits. Background plays are
// tracked in a bounded pool; a reaper removes finished players, and sounds
// can be interrupted by id. On shutdown the pool either kills what is
// still playing or waits for it to finish, depending on configuration.
package audio
