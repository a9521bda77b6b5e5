package mms

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/balihome/balirelay/internal/logging"
	"github.com/balihome/balirelay/internal/urls"
)

// RelayCredentials is the terminal artifact of the chain and the only data
// the relay session needs to open and authenticate its websocket. Immutable;
// a new resolution replaces it wholesale.
type RelayCredentials struct {
	ServerRelay       string
	DeviceID          string
	IdentityToken     string
	IdentitySignature string
}

// deviceDetailResponse is the per-device body carrying the relay assignment
type deviceDetailResponse struct {
	ServerRelay string `json:"Server_Relay"`
}

// Resolver runs the full credential chain: portal login, session token,
// device lookup, relay assignment. Concurrent Resolve calls are serialized
// through a mutex so only one chain execution is ever in flight; late
// arrivals wait for the lock and then benefit from the cached portal
// identity instead of racing an independent login.
type Resolver struct {
	userPass  UserPassword
	transport Transport

	portal  *PortalAuthenticator
	session *SessionTokenResolver
	device  *DeviceResolver

	mu           sync.Mutex
	identity     *PortalIdentity
	deviceServer *DeviceServer
}

// NewResolver creates a resolver bound to the given portal account. The
// password is the cleartext from the Bali Motorization app; it is salted and
// hashed here and the cleartext is not retained.
func NewResolver(username, password string) *Resolver {
	transport := NewTransport(0)
	return &Resolver{
		userPass:  UserPassword{Username: username, Password: HashPassword(username, password)},
		transport: transport,
		portal:    NewPortalAuthenticator(transport, urls.DefaultAuthHost, urls.DefaultOEM),
		session:   NewSessionTokenResolver(transport),
		device:    NewDeviceResolver(transport),
	}
}

// SetTransport replaces the HTTP capability for every stage. Used by tests
// and by callers that need custom TLS or proxy behavior.
func (r *Resolver) SetTransport(transport Transport) {
	r.transport = transport
	r.portal = NewPortalAuthenticator(transport, r.portal.authHost, r.portal.oem)
	r.session = NewSessionTokenResolver(transport)
	r.device = NewDeviceResolver(transport)
}

// SetPortal points the chain at a different auth portal / OEM id
func (r *Resolver) SetPortal(authHost, oem string) {
	r.portal = NewPortalAuthenticator(r.transport, authHost, oem)
}

// Expired reports whether the cached portal identity has expired. Fails
// before the first successful resolution.
func (r *Resolver) Expired() (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.identity == nil {
		return false, NewAuthenticationError("no resolution has completed yet", nil)
	}
	return r.identity.Expired(), nil
}

// Resolve executes the chain and returns fresh relay credentials. On any
// link's failure the whole chain fails with that link's error; previously
// cached state (an unexpired portal identity) is left untouched.
func (r *Resolver) Resolve(ctx context.Context) (*RelayCredentials, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	logging.Debug("Resolving relay credentials", zap.String("username", r.userPass.Username))

	identity, err := r.portal.Resolve(ctx, r.userPass)
	if err != nil {
		return nil, err
	}
	r.identity = identity

	token, err := r.session.Resolve(ctx, identity)
	if err != nil {
		return nil, err
	}

	deviceServer, err := r.device.Resolve(ctx, token)
	if err != nil {
		return nil, err
	}
	r.deviceServer = deviceServer

	endpoint := urls.Device(deviceServer.Host(), deviceServer.DeviceID)
	logging.LogHTTPCall("relay_assignment", endpoint)

	var detail deviceDetailResponse
	if err := r.transport.GetJSON(ctx, endpoint, token.AuthHeaders(), &detail); err != nil {
		return nil, NewRelayResolutionError("failed to get relay assignment", err)
	}
	if detail.ServerRelay == "" {
		return nil, NewRelayResolutionError("device server returned no relay", nil)
	}

	creds := &RelayCredentials{
		ServerRelay:       detail.ServerRelay,
		DeviceID:          deviceServer.DeviceID,
		IdentityToken:     identity.Identity,
		IdentitySignature: identity.Signature,
	}
	logging.Info("Relay credentials resolved",
		zap.String("relay", creds.ServerRelay),
		zap.String("device_id", creds.DeviceID),
	)
	return creds, nil
}
