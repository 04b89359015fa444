// Package bus connects the agent to the MQTT message bus.
//
// Bus is a worker: on Start it subscribes to every topic and hands each
// inbound message, unless an ignore pattern matches it, to the registered
// receivers as a sensation. It also publishes on behalf of urges and the
// speech worker, honouring both the configured and the runtime mute.
package bus
