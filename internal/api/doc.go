// Package api serves urchin's status surface over HTTP.
//
// It exposes:
//   - GET  /api/v1/health            liveness, version and helper process stats
//   - GET  /api/v1/state             a snapshot of the brain's state map
//   - GET  /api/v1/yakkers           instruments currently believed to be talking
//   - POST /api/v1/speech/interrupt  cuts off current speech and clears the queue
//   - GET  /api/v1/ws                live stream of sensations and selected urges
//
// The websocket Hub doubles as a brain observer, so every dispatched sensation
// and every selected urge is fanned out to subscribed clients. The server has
// no authentication and is meant to bind to loopback.
package api
