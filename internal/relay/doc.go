// Package relay maintains the persistent session to a hub's cloud relay.
//
// The relay speaks JSON messages over a single websocket. Outbound requests
// are {method, id, params}; responses echo the id with {error, result};
// unsolicited broadcasts arrive under the reserved id "ui_broadcast" and are
// routed by device rather than by correlation id.
//
// # Connection lifecycle
//
//	Disconnected -> Connecting -> Authenticating -> Registering -> Connected
//
// Connect drives the handshake (resolve credentials, dial, loginUserMios,
// register) under exponential backoff with jitter. The connect path is the
// only mutually exclusive section: concurrent Connect calls, requests that
// trigger an implicit connect, and the close-triggered reconnect all
// serialize on one mutex, so exactly one attempt is in flight and all
// callers share its outcome.
//
// An unexpected transport close transitions the session to Disconnected,
// fails every in-flight request with a connection-lost error, and schedules
// a background reconnect (forever by default). Item observers persist across
// reconnects.
//
// # Requests and broadcasts
//
// Requests may interleave arbitrarily; correctness depends only on
// correlation-id matching. Each request registers a single-use waiter keyed
// by a fresh UUID, removed on response, cancellation, and abandonment alike.
// Responses with no matching waiter are logged and dropped. Item update
// broadcasts are handed to the registered observer on a separate goroutine
// with panic containment, so the receive path never blocks on an observer.
package relay
