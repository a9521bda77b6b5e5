package mms

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
)

// chainServer scripts the whole MMS chain on one httptest server
type chainServer struct {
	*httptest.Server

	loginCalls  atomic.Int64
	deviceCalls atomic.Int64
	failDevices atomic.Bool
}

func newChainServer(t *testing.T) *chainServer {
	t.Helper()
	cs := &chainServer{}
	mux := http.NewServeMux()

	mux.HandleFunc("/autha/auth/username/testuser", func(w http.ResponseWriter, r *http.Request) {
		cs.loginCalls.Add(1)
		if got := r.URL.Query().Get("SHA1Password"); got != HashPassword("testuser", "hunter2") {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		fmt.Fprintf(w, `{"Identity":%q,"IdentitySignature":"sig","Server_Account":%q,"Server_Account_Alt":%q}`,
			identityToken(freshExpiry(), "123456"), cs.URL, cs.URL)
	})

	mux.HandleFunc("/info/session/token", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("MMSAuth") == "" || r.Header.Get("MMSAuthSig") != "sig" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		fmt.Fprint(w, "session-token-1")
	})

	mux.HandleFunc("/account/account/account/123456/devices", func(w http.ResponseWriter, r *http.Request) {
		cs.deviceCalls.Add(1)
		if r.Header.Get("MMSSession") != "session-token-1" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		if cs.failDevices.Load() {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		fmt.Fprintf(w, `{"Devices":[{"PK_Device":"70009999","Server_Device":%q}]}`, cs.URL)
	})

	mux.HandleFunc("/device/device/device/70009999", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("MMSSession") != "session-token-1" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		fmt.Fprint(w, `{"Server_Relay":"wss://relay.example.com"}`)
	})

	cs.Server = httptest.NewServer(mux)
	t.Cleanup(cs.Close)
	return cs
}

func newTestResolver(server *chainServer) *Resolver {
	r := NewResolver("testuser", "hunter2")
	r.SetPortal(server.URL, "73")
	return r
}

func TestResolver_FullChain(t *testing.T) {
	server := newChainServer(t)
	resolver := newTestResolver(server)

	creds, err := resolver.Resolve(context.Background())
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}

	if creds.ServerRelay != "wss://relay.example.com" {
		t.Errorf("ServerRelay = %s", creds.ServerRelay)
	}
	if creds.DeviceID != "70009999" {
		t.Errorf("DeviceID = %s", creds.DeviceID)
	}
	if creds.IdentitySignature != "sig" {
		t.Errorf("IdentitySignature = %s", creds.IdentitySignature)
	}
	if creds.IdentityToken == "" {
		t.Error("IdentityToken should carry the portal identity")
	}
}

func TestResolver_ExpiredBeforeResolution(t *testing.T) {
	resolver := NewResolver("testuser", "hunter2")

	if _, err := resolver.Expired(); !IsAuthenticationError(err) {
		t.Errorf("Expired() before resolution: error = %v, want authentication error", err)
	}
}

func TestResolver_ExpiredAfterResolution(t *testing.T) {
	server := newChainServer(t)
	resolver := newTestResolver(server)

	if _, err := resolver.Resolve(context.Background()); err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}

	expired, err := resolver.Expired()
	if err != nil {
		t.Fatalf("Expired() error = %v", err)
	}
	if expired {
		t.Error("freshly resolved identity should not be expired")
	}
}

func TestResolver_ConcurrentCallsShareOneLogin(t *testing.T) {
	server := newChainServer(t)
	resolver := newTestResolver(server)

	var wg sync.WaitGroup
	errs := make(chan error, 10)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := resolver.Resolve(context.Background()); err != nil {
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Errorf("Resolve() error = %v", err)
	}

	if got := server.loginCalls.Load(); got != 1 {
		t.Errorf("login calls = %d, want 1 (mutex must collapse concurrent attempts)", got)
	}
}

func TestResolver_LinkFailureKeepsIdentity(t *testing.T) {
	server := newChainServer(t)
	resolver := newTestResolver(server)

	if _, err := resolver.Resolve(context.Background()); err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}

	server.failDevices.Store(true)
	if _, err := resolver.Resolve(context.Background()); !IsDeviceLookupError(err) {
		t.Fatalf("error = %v, want device lookup error", err)
	}

	server.failDevices.Store(false)
	if _, err := resolver.Resolve(context.Background()); err != nil {
		t.Fatalf("Resolve() after recovery error = %v", err)
	}

	if got := server.loginCalls.Load(); got != 1 {
		t.Errorf("login calls = %d, want 1 (link failure must not discard the cached identity)", got)
	}
}
