package mms

import (
	"context"
	"strings"

	"github.com/balihome/balirelay/internal/logging"
	"github.com/balihome/balirelay/internal/urls"
)

// SessionToken is the short-lived token derived from a PortalIdentity. It is
// re-derived on every resolution; server policy keeps its lifetime short so
// caching one would buy nothing.
type SessionToken struct {
	Token    string
	Identity *PortalIdentity
}

// AuthHeaders returns the token as the MMS session header
func (s *SessionToken) AuthHeaders() map[string]string {
	return map[string]string{"MMSSession": s.Token}
}

// SessionTokenResolver exchanges a portal identity for a session token on the
// identity's account server.
type SessionTokenResolver struct {
	transport Transport
}

// NewSessionTokenResolver creates a resolver over the given transport
func NewSessionTokenResolver(transport Transport) *SessionTokenResolver {
	return &SessionTokenResolver{transport: transport}
}

// Resolve fetches a fresh session token. Never cached.
func (r *SessionTokenResolver) Resolve(ctx context.Context, identity *PortalIdentity) (*SessionToken, error) {
	endpoint := urls.SessionToken(identity.AccountHost())
	logging.LogHTTPCall("session_token", endpoint)

	body, err := r.transport.GetText(ctx, endpoint, identity.AuthHeaders())
	if err != nil {
		return nil, NewSessionError("failed to get session token", err)
	}

	token := strings.TrimSpace(body)
	if token == "" {
		return nil, NewSessionError("account server returned an empty session token", nil)
	}

	return &SessionToken{Token: token, Identity: identity}, nil
}
