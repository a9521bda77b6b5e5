package mms

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func testSessionToken(t *testing.T, server string) *SessionToken {
	t.Helper()
	return &SessionToken{Token: "session-token-1", Identity: testIdentity(t, server)}
}

func TestDeviceResolver_FirstDevice(t *testing.T) {
	transport := &stubTransport{
		respond: func(url string, headers map[string]string) (string, error) {
			return `{"Devices":[{"PK_Device":"70009999","Server_Device_Alt":"swf-us-oem-device12.mios.com"}]}`, nil
		},
	}
	resolver := NewDeviceResolver(transport)
	token := testSessionToken(t, "account.example.com")

	device, err := resolver.Resolve(context.Background(), token)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}

	if device.DeviceID != "70009999" {
		t.Errorf("DeviceID = %s, want 70009999", device.DeviceID)
	}
	if device.Host() != "swf-us-oem-device12.mios.com" {
		t.Errorf("Host() = %s, want the alternate when no primary is set", device.Host())
	}
	if device.Token != token {
		t.Error("device should reference the session token that located it")
	}

	call := transport.lastCall()
	if !strings.Contains(call.url, "/account/account/account/123456/devices") {
		t.Errorf("url = %s, account id should come from the identity payload", call.url)
	}
	if call.headers["MMSSession"] != "session-token-1" {
		t.Errorf("session header not attached: %v", call.headers)
	}
}

func TestDeviceResolver_NumericDeviceID(t *testing.T) {
	transport := &stubTransport{
		respond: func(url string, headers map[string]string) (string, error) {
			return `{"Devices":[{"PK_Device":70009999,"Server_Device":"device.example.com"}]}`, nil
		},
	}
	resolver := NewDeviceResolver(transport)

	device, err := resolver.Resolve(context.Background(), testSessionToken(t, "a"))
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if device.DeviceID != "70009999" {
		t.Errorf("DeviceID = %s, want 70009999", device.DeviceID)
	}
	if device.Host() != "device.example.com" {
		t.Errorf("Host() = %s, want the primary host", device.Host())
	}
}

func TestDeviceResolver_FirstOfMany(t *testing.T) {
	// Multi-hub accounts are unsupported: first device, deterministically
	transport := &stubTransport{
		respond: func(url string, headers map[string]string) (string, error) {
			return `{"Devices":[{"PK_Device":"1"},{"PK_Device":"2"},{"PK_Device":"3"}]}`, nil
		},
	}
	resolver := NewDeviceResolver(transport)

	for i := 0; i < 5; i++ {
		device, err := resolver.Resolve(context.Background(), testSessionToken(t, "a"))
		if err != nil {
			t.Fatalf("Resolve() error = %v", err)
		}
		if device.DeviceID != "1" {
			t.Fatalf("DeviceID = %s, want 1", device.DeviceID)
		}
	}
}

func TestDeviceResolver_EmptyList(t *testing.T) {
	transport := &stubTransport{
		respond: func(url string, headers map[string]string) (string, error) {
			return `{"Devices":[]}`, nil
		},
	}
	resolver := NewDeviceResolver(transport)

	_, err := resolver.Resolve(context.Background(), testSessionToken(t, "a"))
	if !IsDeviceLookupError(err) {
		t.Errorf("error = %v, want device lookup error", err)
	}
}

func TestDeviceResolver_TransportError(t *testing.T) {
	cause := errors.New("boom")
	transport := &stubTransport{
		respond: func(url string, headers map[string]string) (string, error) {
			return "", cause
		},
	}
	resolver := NewDeviceResolver(transport)

	_, err := resolver.Resolve(context.Background(), testSessionToken(t, "a"))
	if !IsDeviceLookupError(err) {
		t.Fatalf("error = %v, want device lookup error", err)
	}
	if !errors.Is(err, cause) {
		t.Errorf("error should wrap the transport failure, got %v", err)
	}
}
