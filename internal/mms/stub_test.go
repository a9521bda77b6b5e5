package mms

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"sync"
	"time"
)

// stubTransport is a scripted Transport for exercising chain stages in
// isolation. respond receives every call; returned bodies are decoded the
// same way for JSON and text.
type stubTransport struct {
	mu      sync.Mutex
	calls   []stubCall
	respond func(url string, headers map[string]string) (string, error)
}

type stubCall struct {
	url     string
	headers map[string]string
}

func (s *stubTransport) record(url string, headers map[string]string) (string, error) {
	s.mu.Lock()
	s.calls = append(s.calls, stubCall{url: url, headers: headers})
	s.mu.Unlock()
	return s.respond(url, headers)
}

func (s *stubTransport) GetJSON(ctx context.Context, url string, headers map[string]string, out any) error {
	body, err := s.record(url, headers)
	if err != nil {
		return err
	}
	if err := json.Unmarshal([]byte(body), out); err != nil {
		return NewMalformedResponseError("stub body is not the expected JSON", err)
	}
	return nil
}

func (s *stubTransport) GetText(ctx context.Context, url string, headers map[string]string) (string, error) {
	return s.record(url, headers)
}

func (s *stubTransport) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.calls)
}

func (s *stubTransport) lastCall() stubCall {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[len(s.calls)-1]
}

// identityToken builds a base64 identity payload like the portal issues
func identityToken(expires int64, account string) string {
	payload := fmt.Sprintf(`{"Expires":%d,"PK_Account":%s}`, expires, account)
	return base64.StdEncoding.EncodeToString([]byte(payload))
}

// freshExpiry is an expiry comfortably beyond the safety margin
func freshExpiry() int64 {
	return time.Now().Add(ExpirySafetyMargin + 24*time.Hour).Unix()
}

func loginBody(identity, signature, server string) string {
	body, _ := json.Marshal(loginResponse{
		Identity:          identity,
		IdentitySignature: signature,
		ServerAccount:     server,
		ServerAccountAlt:  server,
	})
	return string(body)
}
