package relay

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/balihome/balirelay/internal/logging"
	"github.com/balihome/balirelay/internal/mms"
)

// State is the session's position in its connection lifecycle
type State int32

const (
	// StateDisconnected means no transport is established
	StateDisconnected State = iota
	// StateConnecting means the transport dial is in progress
	StateConnecting
	// StateAuthenticating means loginUserMios is in flight
	StateAuthenticating
	// StateRegistering means register is in flight
	StateRegistering
	// StateConnected means the handshake completed and requests may flow
	StateConnected
)

// String returns a human-readable name for the state
func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateAuthenticating:
		return "authenticating"
	case StateRegistering:
		return "registering"
	case StateConnected:
		return "connected"
	default:
		return fmt.Sprintf("State(%d)", int32(s))
	}
}

// CredentialSource produces the relay credentials a connection attempt
// consumes. mms.Resolver implements it; each dial re-resolves so a reconnect
// after identity expiry picks up a fresh login.
type CredentialSource interface {
	Resolve(ctx context.Context) (*mms.RelayCredentials, error)
}

// StaticCredentials is a CredentialSource that always returns the same
// already-resolved credentials.
type StaticCredentials mms.RelayCredentials

// Resolve implements CredentialSource
func (s *StaticCredentials) Resolve(ctx context.Context) (*mms.RelayCredentials, error) {
	creds := mms.RelayCredentials(*s)
	return &creds, nil
}

const (
	// DefaultDialTimeout bounds the websocket dial and upgrade
	DefaultDialTimeout = 15 * time.Second

	// DefaultHandshakeTimeout bounds each login/register round trip
	DefaultHandshakeTimeout = 30 * time.Second

	// DefaultConnectMaxElapsed bounds the backoff of a caller-initiated
	// Connect so a foreground call eventually returns an error
	DefaultConnectMaxElapsed = 2 * time.Minute
)

// Config tunes a Session. The zero value is usable; zero fields take the
// defaults above.
type Config struct {
	// DialTimeout bounds the websocket dial and upgrade
	DialTimeout time.Duration

	// HandshakeTimeout bounds each login/register round trip
	HandshakeTimeout time.Duration

	// ConnectMaxElapsed is the backoff ceiling for caller-initiated Connect
	ConnectMaxElapsed time.Duration

	// ReconnectMaxElapsed is the backoff ceiling for the background
	// reconnect loop after an unexpected close. Zero retries forever,
	// matching the relay's expectation that clients stay subscribed.
	ReconnectMaxElapsed time.Duration
}

func (c Config) withDefaults() Config {
	if c.DialTimeout == 0 {
		c.DialTimeout = DefaultDialTimeout
	}
	if c.HandshakeTimeout == 0 {
		c.HandshakeTimeout = DefaultHandshakeTimeout
	}
	if c.ConnectMaxElapsed == 0 {
		c.ConnectMaxElapsed = DefaultConnectMaxElapsed
	}
	return c
}

// Session maintains the single persistent websocket to the hub's cloud
// relay: it drives the connect/login/register handshake, multiplexes
// request/response exchanges over the shared transport, routes item update
// broadcasts to per-device observers, and reconnects with backoff when the
// transport drops. Observer registrations survive reconnects; in-flight
// requests do not and are failed with a connection-lost error.
type Session struct {
	source CredentialSource
	cfg    Config

	// connectSem serializes the connect/disconnect path. Concurrent Connect
	// calls and the close-triggered reconnect all funnel through it, so only
	// one handshake attempt is ever in flight. A single-slot channel instead
	// of a mutex so foreground callers can abandon the wait when their
	// context expires while the background reconnect loop holds the lock.
	connectSem chan struct{}
	conn       *websocket.Conn
	relayURL   string

	// writeMu enforces the transport's single-writer rule
	writeMu sync.Mutex

	state   atomic.Int32
	closed  atomic.Bool
	pending *correlator
	router  *broadcastRouter
}

// NewSession creates a session over the given credential source. The session
// does not connect until Connect or the first request.
func NewSession(source CredentialSource, cfg Config) *Session {
	return &Session{
		source:     source,
		cfg:        cfg.withDefaults(),
		connectSem: make(chan struct{}, 1),
		pending:    newCorrelator(),
		router:     newBroadcastRouter(),
	}
}

// lockConnect acquires the connect lock, giving up when ctx expires first
func (s *Session) lockConnect(ctx context.Context) error {
	select {
	case s.connectSem <- struct{}{}:
		return nil
	case <-ctx.Done():
		return NewConnectionError("awaiting connection lock", ctx.Err())
	}
}

func (s *Session) unlockConnect() {
	<-s.connectSem
}

// State returns the current connection state
func (s *Session) State() State {
	return State(s.state.Load())
}

func (s *Session) setState(st State) {
	s.state.Store(int32(st))
}

// Connected reports whether the handshake has completed
func (s *Session) Connected() bool {
	return s.State() == StateConnected
}

// AddItemObserver registers fn for item updates of deviceID. The last
// registration per device wins. Registrations persist across reconnects.
func (s *Session) AddItemObserver(deviceID string, fn ObserverFunc) {
	s.router.register(deviceID, fn)
}

// Connect establishes the session if it is not already established. Safe to
// call concurrently: callers collapse onto one attempt and share its
// outcome. The attempt sequence (resolve credentials, dial, login, register)
// is retried under exponential backoff with jitter up to ConnectMaxElapsed,
// after which a connection error is returned.
func (s *Session) Connect(ctx context.Context) error {
	if err := s.lockConnect(ctx); err != nil {
		return err
	}
	defer s.unlockConnect()
	return s.connectLocked(ctx, s.cfg.ConnectMaxElapsed)
}

// connectLocked runs the backoff loop. Caller holds the connect lock.
func (s *Session) connectLocked(ctx context.Context, maxElapsed time.Duration) error {
	if s.Connected() {
		return nil
	}
	if s.closed.Load() {
		return NewConnectionError("session is closed", nil)
	}

	// Logical disconnect may have left a live socket behind
	if s.conn != nil {
		_ = s.conn.Close()
		s.conn = nil
	}

	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = maxElapsed

	attempt := func() error {
		if s.closed.Load() {
			return backoff.Permanent(NewConnectionError("session is closed", nil))
		}
		return s.dialAndHandshake(ctx)
	}

	if err := backoff.Retry(attempt, backoff.WithContext(bo, ctx)); err != nil {
		s.setState(StateDisconnected)
		if IsConnectionError(err) {
			return err
		}
		return NewConnectionError("handshake failed after backoff", err)
	}
	return nil
}

// dialAndHandshake performs one full connection attempt. Caller holds the
// connect lock. On failure the attempt's socket is torn down and s.conn stays
// nil, so a read-pump exit for it never schedules a reconnect.
func (s *Session) dialAndHandshake(ctx context.Context) error {
	s.setState(StateConnecting)

	creds, err := s.source.Resolve(ctx)
	if err != nil {
		return fmt.Errorf("resolving relay credentials: %w", err)
	}

	relayURL := wsURL(creds.ServerRelay)
	logging.LogSessionEvent(relayURL, "dialing")

	dialer := websocket.Dialer{
		HandshakeTimeout: s.cfg.DialTimeout,
		// The relay presents vendor certificates that do not validate
		// against public roots; the vendor apps skip verification too.
		TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
	}
	conn, _, err := dialer.DialContext(ctx, relayURL, nil)
	if err != nil {
		return fmt.Errorf("dialing %s: %w", relayURL, err)
	}

	go s.readPump(conn)

	hsCtx, cancel := context.WithTimeout(ctx, s.cfg.HandshakeTimeout)
	defer cancel()

	s.setState(StateAuthenticating)
	resp, err := s.roundTrip(hsCtx, conn, methodLogin, map[string]any{
		"PK_Device":  creds.DeviceID,
		"MMSAuthSig": creds.IdentitySignature,
		"MMSAuth":    creds.IdentityToken,
	})
	if err != nil {
		_ = conn.Close()
		return err
	}
	// A rejection is retried with the rest of the sequence: the relay
	// transiently rejects during server-side failover, and each retry
	// re-resolves credentials so an expired identity heals itself.
	if resp.Error != nil && resp.Error.Data != errLoginAlreadyLogged {
		_ = conn.Close()
		return NewConnectionError(
			fmt.Sprintf("relay login rejected: %s", resp.Error.detail()), nil)
	}

	s.setState(StateRegistering)
	resp, err = s.roundTrip(hsCtx, conn, methodRegister, map[string]any{
		"serial": creds.DeviceID,
	})
	if err != nil {
		_ = conn.Close()
		return err
	}
	if resp.Error != nil {
		_ = conn.Close()
		return NewConnectionError(
			fmt.Sprintf("device registration failed: %s", resp.Error.detail()), nil)
	}

	s.conn = conn
	s.relayURL = relayURL
	s.setState(StateConnected)
	logging.LogSessionEvent(relayURL, "handshake_complete")
	return nil
}

// readPump owns all reads on conn and dispatches every inbound message. It
// exits when the transport errors or closes.
func (s *Session) readPump(conn *websocket.Conn) {
	defer s.connClosed(conn)
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			logging.Debug("Read loop ended", zap.Error(err))
			return
		}
		var msg Message
		if err := json.Unmarshal(data, &msg); err != nil {
			logging.Warn("Undecodable relay message", zap.Error(err))
			continue
		}
		s.dispatch(&msg)
	}
}

// dispatch routes one inbound message: broadcasts to the router, responses
// to their waiter. Unmatched ids are dropped; a duplicate or stale response
// is not an error.
func (s *Session) dispatch(msg *Message) {
	if msg.ID == BroadcastID {
		s.router.dispatch(msg)
		return
	}
	logging.LogSessionMessage("recv", "", msg.ID)
	if !s.pending.resolve(msg) {
		logging.Warn("No waiter for response id", zap.String("id", msg.ID))
	}
}

// connClosed handles a transport close: transition to Disconnected, fail
// whatever was in flight, and schedule a background reconnect unless the
// session was deliberately closed. Handshake-attempt sockets that never
// became s.conn are ignored.
func (s *Session) connClosed(conn *websocket.Conn) {
	s.connectSem <- struct{}{}
	if s.conn != conn {
		s.unlockConnect()
		return
	}
	s.conn = nil
	wasConnected := s.Connected()
	s.setState(StateDisconnected)
	relayURL := s.relayURL

	// Abandon before releasing the lock so waiters registered by the next
	// handshake cannot be swept up with the dead connection's.
	s.pending.abandonAll()
	s.unlockConnect()

	logging.LogSessionEvent(relayURL, "transport_closed")

	if s.closed.Load() || !wasConnected {
		return
	}
	go s.reconnect()
}

// reconnect re-establishes the session after an unexpected close. Funnels
// through the same lock as Connect so it cannot race a caller-initiated
// attempt. Observer registrations are untouched, so consumers do not
// re-register after a reconnect.
func (s *Session) reconnect() {
	s.connectSem <- struct{}{}
	defer s.unlockConnect()

	if s.closed.Load() || s.Connected() {
		return
	}
	logging.LogSessionEvent(s.relayURL, "reconnecting")
	if err := s.connectLocked(context.Background(), s.cfg.ReconnectMaxElapsed); err != nil {
		logging.Error("Reconnect abandoned", zap.Error(err))
	}
}

// Disconnect idempotently marks the session as not connected. It does not
// tear down the socket; physical teardown belongs to the close handler and
// to Close.
func (s *Session) Disconnect() {
	s.connectSem <- struct{}{}
	defer s.unlockConnect()
	s.setState(StateDisconnected)
}

// Close permanently shuts the session down: no further reconnects, socket
// closed, in-flight requests failed.
func (s *Session) Close() {
	if !s.closed.CompareAndSwap(false, true) {
		return
	}
	s.connectSem <- struct{}{}
	if s.conn != nil {
		_ = s.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		_ = s.conn.Close()
		s.conn = nil
	}
	s.setState(StateDisconnected)
	s.unlockConnect()
	s.pending.abandonAll()
}

// Send issues a request and awaits its correlated response, connecting
// first if needed. A response carrying a protocol-level error is returned
// as a request error naming the method and the hub's detail.
func (s *Session) Send(ctx context.Context, method string, params any) (json.RawMessage, error) {
	if err := s.Connect(ctx); err != nil {
		return nil, err
	}

	if err := s.lockConnect(ctx); err != nil {
		return nil, err
	}
	conn := s.conn
	s.unlockConnect()
	if conn == nil {
		return nil, NewConnectionLostError(method)
	}

	resp, err := s.roundTrip(ctx, conn, method, params)
	if err != nil {
		return nil, err
	}
	if resp.Error != nil {
		return nil, NewRequestError(method, resp.Error.detail())
	}
	return resp.Result, nil
}

// roundTrip writes one request on conn and awaits the matching response.
// The waiter is always deregistered, on every path.
func (s *Session) roundTrip(ctx context.Context, conn *websocket.Conn, method string, params any) (*Message, error) {
	if params == nil {
		params = map[string]any{}
	}
	id := uuid.NewString()
	ch := s.pending.register(id)
	defer s.pending.remove(id)

	logging.LogSessionMessage("send", method, id)
	s.writeMu.Lock()
	err := conn.WriteJSON(request{Method: method, ID: id, Params: params})
	s.writeMu.Unlock()
	if err != nil {
		return nil, NewConnectionError(fmt.Sprintf("writing %s request", method), err)
	}

	select {
	case msg, ok := <-ch:
		if !ok {
			return nil, NewConnectionLostError(method)
		}
		return msg, nil
	case <-ctx.Done():
		return nil, NewConnectionError(fmt.Sprintf("awaiting %s response", method), ctx.Err())
	}
}

// wsURL normalizes a relay address to a websocket URL. The MMS API returns
// full wss URLs; bare hosts and https forms are tolerated.
func wsURL(relay string) string {
	switch {
	case strings.HasPrefix(relay, "wss://"), strings.HasPrefix(relay, "ws://"):
		return relay
	case strings.HasPrefix(relay, "https://"):
		return "wss://" + strings.TrimPrefix(relay, "https://")
	case strings.HasPrefix(relay, "http://"):
		return "ws://" + strings.TrimPrefix(relay, "http://")
	default:
		return "wss://" + relay
	}
}
