// Package voice is the speech scheduler and the speaker behind it.
//
// Voice queues text from Say urges and action programs. Text is rendered
// as a template over the brain's state, then split at {json} directives
// that switch voice or insert a pause:
//
//	Hello.{"voice": "narrator", "pause": 0.5}Said the narrator.
//
// Before each utterance the scheduler waits for politeness: nobody else
// may be talking, and the silence must hold for a grace period. Gob does
// the speaking, announcing "talking" and "said" on the bus; those
// announcements are what other instruments (and this one) use to track
// who is talking.
package voice
