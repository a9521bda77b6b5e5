package mms

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func testIdentity(t *testing.T, server string) *PortalIdentity {
	t.Helper()
	identity, err := NewPortalIdentity(identityToken(freshExpiry(), "123456"), "sig", server, server+"-alt")
	if err != nil {
		t.Fatalf("NewPortalIdentity() error = %v", err)
	}
	return identity
}

func TestSessionTokenResolver_Resolve(t *testing.T) {
	transport := &stubTransport{
		respond: func(url string, headers map[string]string) (string, error) {
			return "  session-token-1\n", nil
		},
	}
	resolver := NewSessionTokenResolver(transport)
	identity := testIdentity(t, "account.example.com")

	token, err := resolver.Resolve(context.Background(), identity)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}

	if token.Token != "session-token-1" {
		t.Errorf("Token = %q, want session-token-1", token.Token)
	}
	if token.Identity != identity {
		t.Error("token should reference the identity it was derived from")
	}
	if got := token.AuthHeaders()["MMSSession"]; got != "session-token-1" {
		t.Errorf("MMSSession header = %q", got)
	}

	call := transport.lastCall()
	if !strings.Contains(call.url, "account.example.com/info/session/token") {
		t.Errorf("url = %s", call.url)
	}
	if call.headers["MMSAuth"] != identity.Identity || call.headers["MMSAuthSig"] != "sig" {
		t.Errorf("identity headers not attached: %v", call.headers)
	}
}

func TestSessionTokenResolver_TransportError(t *testing.T) {
	cause := errors.New("dial tcp: timeout")
	transport := &stubTransport{
		respond: func(url string, headers map[string]string) (string, error) {
			return "", cause
		},
	}
	resolver := NewSessionTokenResolver(transport)

	_, err := resolver.Resolve(context.Background(), testIdentity(t, "account.example.com"))
	if !IsSessionError(err) {
		t.Fatalf("error = %v, want session error", err)
	}
	if !errors.Is(err, cause) {
		t.Errorf("error should wrap the transport failure, got %v", err)
	}
}

func TestSessionTokenResolver_EmptyToken(t *testing.T) {
	transport := &stubTransport{
		respond: func(url string, headers map[string]string) (string, error) {
			return "   ", nil
		},
	}
	resolver := NewSessionTokenResolver(transport)

	if _, err := resolver.Resolve(context.Background(), testIdentity(t, "a")); !IsSessionError(err) {
		t.Errorf("error = %v, want session error", err)
	}
}

func TestSessionTokenResolver_NeverCaches(t *testing.T) {
	transport := &stubTransport{
		respond: func(url string, headers map[string]string) (string, error) {
			return "tok", nil
		},
	}
	resolver := NewSessionTokenResolver(transport)
	identity := testIdentity(t, "account.example.com")

	for i := 0; i < 3; i++ {
		if _, err := resolver.Resolve(context.Background(), identity); err != nil {
			t.Fatalf("Resolve() error = %v", err)
		}
	}
	if transport.callCount() != 3 {
		t.Errorf("call count = %d, want 3 (every resolution performs the call)", transport.callCount())
	}
}
