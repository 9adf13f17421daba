// Package api implements the authenticated client for the analytics
// backend: request construction, bearer authentication, the
// 401-refresh-retry protocol, response classification and the selective
// response cache for reference data.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/edulytics/edulytics-client/internal/cache"
	"github.com/edulytics/edulytics-client/internal/config"
	"github.com/edulytics/edulytics-client/internal/credential"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Client executes authenticated calls against a single backend base URL.
// It owns the 401 recovery protocol: a request that is rejected while a
// token is present triggers one coordinated revalidation and at most one
// retry. Construct one Client per backend session scope; the credential
// store, response cache and refresh coordinator it holds are not shared
// ambiently.
type Client struct {
	baseURL    *url.URL
	httpClient *http.Client
	creds      credential.Store
	cache      *cache.ResponseCache
	refresh    refreshCoordinator
	timeout    time.Duration

	// onAuthFailure is invoked when a 401 survives the refresh protocol.
	// The session manager registers itself here during wiring.
	onAuthFailure func()
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets the HTTP client used for backend calls.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithTimeout overrides the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.timeout = d
	}
}

// New creates a client for the configured backend. The base URL is
// resolved once here and reused for every request.
func New(cfg config.APIConfig, creds credential.Store, respCache *cache.ResponseCache, opts ...Option) (*Client, error) {
	if creds == nil {
		return nil, errors.New("credential store must be provided")
	}

	u, err := url.Parse(strings.TrimSuffix(cfg.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("could not parse API base URL: %w", err)
	}
	if !u.IsAbs() {
		return nil, fmt.Errorf("API base URL must be absolute: %s", cfg.BaseURL)
	}

	c := &Client{
		baseURL:    u,
		httpClient: http.DefaultClient,
		creds:      creds,
		cache:      respCache,
		timeout:    time.Duration(cfg.TimeoutSeconds) * time.Second,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c, nil
}

// SetAuthFailureHandler registers the hook invoked on an unrecoverable
// authentication failure. Must be called during wiring, before the
// client is used.
func (c *Client) SetAuthFailureHandler(fn func()) {
	c.onAuthFailure = fn
}

// backendResponse is a fully-read backend response. Bodies are consumed
// eagerly so the per-attempt timeout covers the read as well as the
// round trip.
type backendResponse struct {
	status int
	header http.Header
	body   []byte
}

func (r *backendResponse) ok() bool {
	return r.status >= 200 && r.status < 300
}

// Execute performs one logical JSON call to the backend and returns the
// raw response payload. GET requests consult the response cache before
// any network I/O and populate it after a successful cache-eligible
// response.
func (c *Client) Execute(ctx context.Context, method, endpoint string, body any, query url.Values) (json.RawMessage, error) {
	if method == http.MethodGet && c.cache != nil {
		if payload, ok := c.cache.Lookup(endpoint, query); ok {
			return payload, nil
		}
	}

	resp, err := c.send(ctx, method, endpoint, body, query)
	if err != nil {
		return nil, err
	}

	if method == http.MethodGet && c.cache != nil {
		c.cache.Store(endpoint, query, resp.body)
	}

	return resp.body, nil
}

// Download performs a GET for a binary payload. Classification of
// failures is identical to the JSON path, including the 401 protocol;
// only the successful body handling differs.
func (c *Client) Download(ctx context.Context, endpoint string, query url.Values) (*Payload, error) {
	resp, err := c.send(ctx, http.MethodGet, endpoint, nil, query)
	if err != nil {
		return nil, err
	}

	return &Payload{
		Data:        resp.body,
		ContentType: resp.header.Get("Content-Type"),
		Filename:    attachmentFilename(resp.header.Get("Content-Disposition")),
	}, nil
}

// send drives the request protocol: issue, classify, and on a 401 with a
// token present, coordinate a refresh and retry exactly once. A
// successful return is always a 2xx response.
func (c *Client) send(ctx context.Context, method, endpoint string, body any, query url.Values) (*backendResponse, error) {
	requestID := uuid.NewString()
	logger := log.With().
		Str("requestId", requestID).
		Str("method", method).
		Str("endpoint", endpoint).
		Logger()

	var encoded []byte
	if body != nil {
		var err error
		encoded, err = json.Marshal(body)
		if err != nil {
			return nil, &ValidationError{Message: fmt.Sprintf("could not encode request body: %v", err)}
		}
	}

	cred, hasToken := c.creds.Get()

	resp, err := c.issue(ctx, method, endpoint, encoded, query, cred.Token, requestID)
	if err != nil {
		return nil, err
	}

	if resp.status != http.StatusUnauthorized {
		return classify(resp)
	}

	if !hasToken {
		// nothing to refresh: the caller was never authenticated
		return nil, &AuthenticationError{Detail: errorDetail(resp.status, resp.body)}
	}

	logger.Info().Msg("request rejected, revalidating session")

	if !c.refresh.refresh(ctx, c.revalidate) {
		c.signalAuthFailure(logger)
		return nil, &AuthenticationError{Detail: "session is no longer valid"}
	}

	// Retry once with the stored token. Revalidation confirms the
	// existing token rather than minting a new one, so this is usually
	// the same token; reading it back keeps the store authoritative.
	cred, _ = c.creds.Get()

	logger.Debug().Msg("session revalidated, retrying request")

	resp, err = c.issue(ctx, method, endpoint, encoded, query, cred.Token, requestID)
	if err != nil {
		return nil, err
	}

	if resp.status == http.StatusUnauthorized {
		// single retry exhausted: do not loop
		c.signalAuthFailure(logger)
		return nil, &AuthenticationError{Detail: "request rejected after session revalidation"}
	}

	return classify(resp)
}

// issue performs a single HTTP round trip and reads the body. Transport
// failures are classified as TimeoutError or NetworkError; HTTP status
// classification is left to the caller.
func (c *Client) issue(ctx context.Context, method, endpoint string, encoded []byte, query url.Values, token, requestID string) (*backendResponse, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	u := c.baseURL.JoinPath(endpoint)
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}

	var reader *bytes.Reader
	if encoded != nil {
		reader = bytes.NewReader(encoded)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), reader)
	if err != nil {
		return nil, fmt.Errorf("could not build request for %s: %w", endpoint, err)
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Request-Id", requestID)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, classifyTransport(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, classifyTransport(err)
	}

	return &backendResponse{
		status: resp.StatusCode,
		header: resp.Header,
		body:   body,
	}, nil
}

// revalidate asks the backend for the current user profile using the
// stored token. Success means the existing token is still good; no new
// token is issued.
func (c *Client) revalidate(ctx context.Context) error {
	cred, ok := c.creds.Get()
	if !ok {
		return errors.New("no stored credential to revalidate")
	}

	resp, err := c.issue(ctx, http.MethodGet, EndpointCurrentUser, nil, nil, cred.Token, uuid.NewString())
	if err != nil {
		return err
	}

	if !resp.ok() {
		return fmt.Errorf("revalidation rejected with status %d", resp.status)
	}

	return nil
}

func (c *Client) signalAuthFailure(logger zerolog.Logger) {
	logger.Info().Msg("authentication failed, signalling session teardown")
	if c.onAuthFailure != nil {
		c.onAuthFailure()
	}
}

// classify converts a non-401 backend response into a result or an
// HTTPError carrying the backend's detail message.
func classify(resp *backendResponse) (*backendResponse, error) {
	if resp.ok() {
		return resp, nil
	}

	return nil, &HTTPError{
		Status: resp.status,
		Detail: errorDetail(resp.status, resp.body),
	}
}

// classifyTransport maps a transport-level failure into the error
// taxonomy: deadline overruns become TimeoutError, everything else
// NetworkError.
func classifyTransport(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return &TimeoutError{Err: err}
	}

	var netErr interface{ Timeout() bool }
	if errors.As(err, &netErr) && netErr.Timeout() {
		return &TimeoutError{Err: err}
	}

	return &NetworkError{Err: err}
}
