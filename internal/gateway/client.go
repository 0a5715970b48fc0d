package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"shopfront/internal/logger"
	"shopfront/internal/testutils"
)

// TokenSource supplies the bearer token for outgoing requests. An empty token
// means the request is sent unauthenticated; a missing token never fails a
// request locally, the server's 401 is the single source of truth.
type TokenSource interface {
	Token() string
}

// UnauthorizedFunc is invoked once per 401 response before the error is
// returned to the caller. It is the sole mechanism for global logout-on-expiry.
type UnauthorizedFunc func()

// Client executes requests against one API base URL. The store-scoped and
// platform-scoped surfaces each hold their own Client with their own
// TokenSource so credentials never cross-contaminate.
type Client struct {
	baseURL        string
	httpClient     *http.Client
	tokens         TokenSource
	onUnauthorized UnauthorizedFunc
	testMode       testutils.TestModeProvider
}

// Config holds the construction parameters for a gateway client.
type Config struct {
	BaseURL string
	Timeout time.Duration
	Tokens  TokenSource
	// TestMode enables deterministic request ids; nil means production behavior.
	TestMode testutils.TestModeProvider
}

// NewClient creates a gateway client for the given base URL.
// The default timeout is 30 seconds.
func NewClient(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimSuffix(cfg.BaseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		tokens:     cfg.Tokens,
		testMode:   cfg.TestMode,
	}
}

// BaseURL returns the base URL this client is pointed at.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// SetUnauthorizedCallback registers the 401 teardown hook.
func (c *Client) SetUnauthorizedCallback(fn UnauthorizedFunc) {
	c.onUnauthorized = fn
}

// Do executes the described request and decodes the response body into out.
// A nil out discards the body. HTTP 204 leaves out untouched. Non-JSON success
// bodies are assigned to out only when out is a *string, best-effort.
func (c *Client) Do(ctx context.Context, desc Descriptor, out any) error {
	httpReq, err := c.buildRequest(ctx, desc)
	if err != nil {
		return err
	}

	requestID := testutils.GenerateUUID(c.testMode)
	httpReq.Header.Set("X-Request-ID", requestID)
	logger.GatewayRequest(httpReq.Method, httpReq.URL.String(), requestID)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		// No HTTP response: network-level failure, always retryable.
		return &Error{Kind: KindTransient, Message: "network failure", cause: err}
	}
	defer func() {
		_ = resp.Body.Close() // Ignore error on close
	}()

	logger.GatewayResponse(httpReq.Method, httpReq.URL.String(), resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return &Error{Status: resp.StatusCode, Kind: KindTransient, Message: "failed to read response body", cause: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return c.errorFromResponse(resp.StatusCode, body)
	}

	return decodeSuccess(resp, body, out)
}

// buildRequest assembles the http.Request from the descriptor.
func (c *Client) buildRequest(ctx context.Context, desc Descriptor) (*http.Request, error) {
	method := strings.ToUpper(desc.Method)
	if method == "" {
		method = http.MethodGet
	}

	u := c.baseURL + "/" + strings.TrimPrefix(desc.Path, "/")
	if encoded := desc.Query.Encode(); encoded != "" {
		u += "?" + encoded
	}

	var bodyReader io.Reader
	contentType := ""
	switch {
	case len(desc.Files) > 0:
		buf, ct, err := encodeMultipart(desc)
		if err != nil {
			return nil, fmt.Errorf("failed to build multipart request: %w", err)
		}
		bodyReader = buf
		contentType = ct
	case desc.Body != nil:
		raw, err := json.Marshal(desc.Body)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request body: %w", err)
		}
		bodyReader = bytes.NewReader(raw)
		contentType = "application/json"
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, u, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP request: %w", err)
	}
	if contentType != "" {
		httpReq.Header.Set("Content-Type", contentType)
	}
	httpReq.Header.Set("Accept", "application/json")

	// Attach the bearer token when one is present. AuthRequired does not gate
	// this locally; it only documents the endpoint's expectation.
	if c.tokens != nil {
		if token := c.tokens.Token(); token != "" {
			httpReq.Header.Set("Authorization", "Bearer "+token)
		}
	}

	return httpReq, nil
}

// errorFromResponse normalizes a non-2xx response into *Error, preferring the
// server-provided message over a status-derived generic one. The 401 teardown
// callback fires before the error is returned.
func (c *Client) errorFromResponse(status int, body []byte) error {
	message := genericMessage(status)
	var payload errorPayload
	if err := json.Unmarshal(body, &payload); err == nil && payload.Message != "" {
		message = payload.Message
	}

	gerr := &Error{Status: status, Kind: kindForStatus(status), Message: message, Body: body}

	if status == http.StatusUnauthorized && c.onUnauthorized != nil {
		logger.Debug("Gateway unauthorized, invoking teardown callback")
		c.onUnauthorized()
	}

	return gerr
}

// decodeSuccess handles the 2xx decode rules: 204 means no content, JSON
// content types are parsed, anything else is surfaced as raw text best-effort.
func decodeSuccess(resp *http.Response, body []byte, out any) error {
	if resp.StatusCode == http.StatusNoContent || len(body) == 0 {
		return nil
	}
	if out == nil {
		return nil
	}

	contentType := resp.Header.Get("Content-Type")
	if strings.Contains(contentType, "application/json") {
		if err := json.Unmarshal(body, out); err != nil {
			return &Error{
				Status:  resp.StatusCode,
				Kind:    KindParse,
				Message: "failed to parse response body",
				Body:    body,
				cause:   err,
			}
		}
		return nil
	}

	if s, ok := out.(*string); ok {
		*s = string(body)
	}
	return nil
}
