package mms

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// DefaultTimeout is the default HTTP request timeout for chain calls
const DefaultTimeout = 30 * time.Second

// Transport is the HTTP capability the credential chain is built on: perform
// a GET, return the parsed body or an error. Tests substitute it per stage.
type Transport interface {
	// GetJSON performs a GET and decodes the JSON body into out.
	GetJSON(ctx context.Context, rawURL string, headers map[string]string, out any) error

	// GetText performs a GET and returns the raw body. Used for the session
	// token endpoint, whose body is an opaque token rather than JSON.
	GetText(ctx context.Context, rawURL string, headers map[string]string) (string, error)
}

// httpTransport is the production Transport backed by net/http
type httpTransport struct {
	client *http.Client
}

// NewTransport creates the default Transport with the given timeout.
// A zero timeout uses DefaultTimeout.
func NewTransport(timeout time.Duration) Transport {
	if timeout == 0 {
		timeout = DefaultTimeout
	}
	return &httpTransport{client: &http.Client{Timeout: timeout}}
}

func (t *httpTransport) get(ctx context.Context, rawURL string, headers map[string]string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("invalid request: %w", err)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, NewHTTPError(resp.StatusCode,
			fmt.Sprintf("%s returned status %d", redact(rawURL), resp.StatusCode))
	}

	return body, nil
}

func (t *httpTransport) GetJSON(ctx context.Context, rawURL string, headers map[string]string, out any) error {
	body, err := t.get(ctx, rawURL, headers)
	if err != nil {
		return err
	}

	// Some MMS endpoints report failure in-band with a 2xx status
	var inband struct {
		Data struct {
			ErrorText string `json:"error_text"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &inband); err == nil && inband.Data.ErrorText != "" {
		return NewHTTPError(http.StatusOK, fmt.Sprintf("server reported: %s", inband.Data.ErrorText))
	}

	if err := json.Unmarshal(body, out); err != nil {
		return NewMalformedResponseError(
			fmt.Sprintf("body from %s is not the expected JSON", redact(rawURL)), err)
	}
	return nil
}

func (t *httpTransport) GetText(ctx context.Context, rawURL string, headers map[string]string) (string, error) {
	body, err := t.get(ctx, rawURL, headers)
	if err != nil {
		return "", err
	}
	return string(body), nil
}

// redact strips the query string so hashed passwords never reach logs or
// error messages.
func redact(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "<unparsable url>"
	}
	u.RawQuery = ""
	return u.String()
}
