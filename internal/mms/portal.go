package mms

import (
	"context"
	"crypto/sha1"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/balihome/balirelay/internal/logging"
	"github.com/balihome/balirelay/internal/urls"
)

// passwordSalt is the fixed OEM salt mixed into the SHA1Password parameter.
// This value is baked into the vendor apps; changing it breaks login.
const passwordSalt = "oZ7QE6LcLJp6fiWzdqZc"

// ExpirySafetyMargin is subtracted from the identity's embedded expiry so a
// token is treated as expired well before it actually is. The portal issues
// 24h tokens; this margin forces a fresh login roughly once per session
// rather than risking a token that dies mid-flight.
const ExpirySafetyMargin = 86360 * time.Second

// UserPassword holds the portal login credentials. Password is the salted
// SHA-1 hash produced by HashPassword, never the cleartext.
type UserPassword struct {
	Username string
	Password string
}

// HashPassword derives the SHA1Password value the portal expects:
// hex(sha1(lowercase(username) || password || salt)).
func HashPassword(username, password string) string {
	h := sha1.New()
	h.Write([]byte(strings.ToLower(username)))
	h.Write([]byte(password))
	h.Write([]byte(passwordSalt))
	return hex.EncodeToString(h.Sum(nil))
}

// identityPayload is the base64-encoded structure embedded in the identity token
type identityPayload struct {
	Expires   int64       `json:"Expires"`
	PKAccount json.Number `json:"PK_Account"`
}

// PortalIdentity is the long-lived signed token proving a successful portal
// login. It carries the account server hosts used by the downstream
// resolvers and an embedded expiry.
type PortalIdentity struct {
	Identity         string
	Signature        string
	ServerAccount    string
	ServerAccountAlt string

	expires   time.Time
	accountID string
}

// NewPortalIdentity decodes the identity payload and builds the identity.
// Fails if the token does not carry a parsable base64 JSON payload.
func NewPortalIdentity(identity, signature, serverAccount, serverAccountAlt string) (*PortalIdentity, error) {
	payload, err := decodeIdentity(identity)
	if err != nil {
		return nil, err
	}
	return &PortalIdentity{
		Identity:         identity,
		Signature:        signature,
		ServerAccount:    serverAccount,
		ServerAccountAlt: serverAccountAlt,
		expires:          time.Unix(payload.Expires, 0),
		accountID:        payload.PKAccount.String(),
	}, nil
}

func decodeIdentity(identity string) (*identityPayload, error) {
	raw, err := base64.StdEncoding.DecodeString(identity)
	if err != nil {
		// Tokens occasionally arrive without padding
		raw, err = base64.RawStdEncoding.DecodeString(identity)
		if err != nil {
			return nil, NewMalformedResponseError("identity token is not valid base64", err)
		}
	}
	var payload identityPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, NewMalformedResponseError("identity payload is not valid JSON", err)
	}
	return &payload, nil
}

// Expired reports whether the identity is past its expiry minus the safety
// margin.
func (p *PortalIdentity) Expired() bool {
	return time.Now().After(p.expires.Add(-ExpirySafetyMargin))
}

// ExpiresAt returns the embedded expiry timestamp (without the safety margin)
func (p *PortalIdentity) ExpiresAt() time.Time {
	return p.expires
}

// AccountID returns the PK_Account embedded in the identity payload
func (p *PortalIdentity) AccountID() string {
	return p.accountID
}

// AccountHost returns the account server to talk to, preferring the primary
// host and falling back to the alternate.
func (p *PortalIdentity) AccountHost() string {
	if p.ServerAccount != "" {
		return p.ServerAccount
	}
	return p.ServerAccountAlt
}

// AuthHeaders returns the identity as MMS authentication headers
func (p *PortalIdentity) AuthHeaders() map[string]string {
	return map[string]string{
		"MMSAuth":    p.Identity,
		"MMSAuthSig": p.Signature,
	}
}

// loginResponse is the portal login body
type loginResponse struct {
	Identity          string `json:"Identity"`
	IdentitySignature string `json:"IdentitySignature"`
	ServerAccount     string `json:"Server_Account"`
	ServerAccountAlt  string `json:"Server_Account_Alt"`
}

// PortalAuthenticator performs the initial username/password login against
// the MMS auth portal and caches the resulting identity until it nears
// expiry. An unexpired cached identity is returned without any network call.
type PortalAuthenticator struct {
	transport Transport
	authHost  string
	oem       string

	mu     sync.Mutex
	cached *PortalIdentity
}

// NewPortalAuthenticator creates an authenticator against the given auth host
// and OEM id. Empty values fall back to the Bali defaults.
func NewPortalAuthenticator(transport Transport, authHost, oem string) *PortalAuthenticator {
	if authHost == "" {
		authHost = urls.DefaultAuthHost
	}
	if oem == "" {
		oem = urls.DefaultOEM
	}
	return &PortalAuthenticator{transport: transport, authHost: authHost, oem: oem}
}

// Resolve returns a valid PortalIdentity for the credentials, reusing the
// cached identity when it has not expired. Nothing is cached on failure.
func (a *PortalAuthenticator) Resolve(ctx context.Context, creds UserPassword) (*PortalIdentity, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.cached != nil && !a.cached.Expired() {
		return a.cached, nil
	}

	endpoint := urls.Login(a.authHost, creds.Username, creds.Password, a.oem)
	logging.LogHTTPCall("portal_login", "https://"+a.authHost+"/autha/auth")

	var resp loginResponse
	if err := a.transport.GetJSON(ctx, endpoint, nil, &resp); err != nil {
		return nil, NewAuthenticationError(
			fmt.Sprintf("failed to login to MMS portal as %q", creds.Username), err)
	}

	identity, err := NewPortalIdentity(resp.Identity, resp.IdentitySignature,
		resp.ServerAccount, resp.ServerAccountAlt)
	if err != nil {
		return nil, NewAuthenticationError("portal returned an unusable identity", err)
	}

	a.cached = identity
	logging.Debug("Portal identity cached")
	return identity, nil
}
