// Package process runs the external programs the agent drives.
//
// Two shapes are supported:
//   - Manager supervises a long-running command that produces a stream of
//     lines (the system journal follower), restarting it with backoff
//     when it dies.
//   - Handle is a one-shot command or pipeline (speech synthesis piped
//     into an effect player, a sound player) that can be polled, waited
//     on, or killed.
//
// Every process is started in its own process group so signals reach the
// children it spawns.
//
// Example usage:
//
//	mgr := process.NewManager(process.Config{
//	    Name:             "journal",
//	    Binary:           "journalctl",
//	    Args:             []string{"-f", "--since", "now"},
//	    RestartOnFailure: true,
//	    OnLine:           sense.Parse,
//	})
//	if err := mgr.Start(ctx); err != nil {
//	    return err
//	}
//	defer mgr.Stop()
//
//	h, err := process.SpawnPipeline("speech",
//	    []string{"espeak", "-w", "/dev/stdout", "Hello"},
//	    []string{"play", "-q", "-t", "wav", "-"})
package process
