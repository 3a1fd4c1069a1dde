// Package client implements the multiplexed transport client.
//
// One logical WebSocket connection carries many independent feeds. The
// client:
//   - Owns the Idle/Connecting/Connected/Reconnecting/Failed state machine
//   - Retries unclean closes on a fixed interval until attempts run out
//   - Buffers outbound envelopes while disconnected and flushes them FIFO
//   - Probes liveness with application-level ping/pong envelopes
//   - Dispatches inbound envelopes to channel subscriptions
//
// All failure is communicated through observable state (State,
// ConnectionError, Stats) rather than errors pushed at the caller.
package client
