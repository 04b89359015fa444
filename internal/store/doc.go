// Package store reads the agent's persistent records: broker and voice
// settings, ignore patterns, the special-day calendar, and the greeting and
// musing candidates that responders choose between.
package store
