// Package foundry is a minimal client for the Azure AI Foundry project APIs
// used by aiproj: chat completions, agents and datasets.
//
// Example usage:
//
//	cred, _ := azidentity.NewDefaultAzureCredential(nil)
//	client := foundry.NewClient(endpoint, cred, foundry.WithAPIVersion("2024-12-01-preview"))
//	defer client.Close()
//	page, err := client.ListMessages(ctx, threadID, foundry.ListOptions{Order: foundry.OrderAscending})
package foundry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
)

const (
	// AgentsAPIVersion is the api-version sent to the agents endpoints
	AgentsAPIVersion = "v1"
	// DatasetsAPIVersion is the api-version sent to the datasets endpoints
	DatasetsAPIVersion = "v1"

	// ProjectScope is the token scope of the project (agents, datasets) APIs
	ProjectScope = "https://ai.azure.com/.default"
	// CognitiveServicesScope is the token scope of the chat completions API
	CognitiveServicesScope = "https://cognitiveservices.azure.com/.default"

	defaultPollInterval = time.Second
	tokenRefreshMargin  = 2 * time.Minute
	requestIDHeader     = "x-ms-client-request-id"
)

// ErrClosed is returned by every call made after Close
var ErrClosed = errors.New("foundry: client is closed")

// APIError is returned when the service answers with a non-2xx status
type APIError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("API error (%d %s): %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("API error (%d): %s", e.StatusCode, e.Message)
}

// Client is an authenticated session bound to one project endpoint.
// It must be closed when no longer needed.
type Client struct {
	endpoint     string // Project endpoint without trailing slash
	apiVersion   string // api-version for chat completions
	cred         azcore.TokenCredential
	http         *resty.Client
	pollInterval time.Duration
	logger       *slog.Logger

	mu     sync.Mutex
	tokens map[string]azcore.AccessToken
	closed bool
}

// Option configures a Client
type Option func(*Client)

// WithAPIVersion sets the api-version used for chat completions
func WithAPIVersion(version string) Option {
	return func(c *Client) {
		c.apiVersion = version
	}
}

// WithHTTPClient replaces the underlying *http.Client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.http = resty.NewWithClient(hc)
	}
}

// WithTimeout sets a per-request timeout. Zero disables it.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.http.SetTimeout(d)
	}
}

// WithPollInterval sets the interval between run status checks
func WithPollInterval(d time.Duration) Option {
	return func(c *Client) {
		c.pollInterval = d
	}
}

// WithLogger sets the logger used for request tracing
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewClient creates a client for the project at endpoint. No network call is
// made and the credential is not checked until the first request.
func NewClient(endpoint string, cred azcore.TokenCredential, opts ...Option) *Client {
	c := &Client{
		endpoint:     strings.TrimRight(endpoint, "/"),
		cred:         cred,
		http:         resty.New(),
		pollInterval: defaultPollInterval,
		logger:       slog.New(slog.DiscardHandler),
		tokens:       make(map[string]azcore.AccessToken),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Endpoint returns the project endpoint the client is bound to
func (c *Client) Endpoint() string {
	return c.endpoint
}

// APIVersion returns the api-version used for chat completions
func (c *Client) APIVersion() string {
	return c.apiVersion
}

// Close releases idle connections. Later calls fail with ErrClosed.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	c.http.GetClient().CloseIdleConnections()
	return nil
}

func (c *Client) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// token returns a cached bearer token for scope, refreshing it shortly
// before it expires.
func (c *Client) token(ctx context.Context, scope string) (string, error) {
	if c.cred == nil {
		return "", errors.New("no credential configured")
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if tok, ok := c.tokens[scope]; ok && time.Until(tok.ExpiresOn) > tokenRefreshMargin {
		return tok.Token, nil
	}
	tok, err := c.cred.GetToken(ctx, policy.TokenRequestOptions{Scopes: []string{scope}})
	if err != nil {
		return "", err
	}
	c.tokens[scope] = tok
	return tok.Token, nil
}

// newRequest prepares an authenticated request for the given token scope
func (c *Client) newRequest(ctx context.Context, scope string) (*resty.Request, error) {
	if c.isClosed() {
		return nil, ErrClosed
	}
	tok, err := c.token(ctx, scope)
	if err != nil {
		return nil, fmt.Errorf("error acquiring token: %w", err)
	}
	return c.http.R().
		SetContext(ctx).
		SetAuthToken(tok).
		SetHeader("Accept", "application/json").
		SetHeader(requestIDHeader, uuid.NewString()), nil
}

// do executes req and decodes a JSON response body into out (if non-nil)
func (c *Client) do(req *resty.Request, method, rawURL string, out any) error {
	resp, err := req.Execute(method, rawURL)
	if err != nil {
		return fmt.Errorf("error sending request: %w", err)
	}

	c.logger.Debug("foundry request",
		"method", method,
		"url", rawURL,
		"status", resp.StatusCode(),
		"request_id", req.Header.Get(requestIDHeader),
		"elapsed", resp.Time())

	if resp.IsError() {
		return newAPIError(resp.StatusCode(), resp.Body())
	}

	if out == nil || len(resp.Body()) == 0 {
		return nil
	}
	if err := json.Unmarshal(resp.Body(), out); err != nil {
		return fmt.Errorf("error parsing response: %w", err)
	}
	return nil
}

// newAPIError extracts the service's error envelope, falling back to the raw body
func newAPIError(status int, body []byte) *APIError {
	var envelope struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	apiErr := &APIError{StatusCode: status}
	if err := json.Unmarshal(body, &envelope); err == nil && envelope.Error.Message != "" {
		apiErr.Code = envelope.Error.Code
		apiErr.Message = envelope.Error.Message
		return apiErr
	}
	apiErr.Message = strings.TrimSpace(string(body))
	if apiErr.Message == "" {
		apiErr.Message = http.StatusText(status)
	}
	return apiErr
}

// projectURL joins path segments onto the project endpoint, escaping each one
func (c *Client) projectURL(segments ...string) string {
	var b strings.Builder
	b.WriteString(c.endpoint)
	for _, s := range segments {
		b.WriteByte('/')
		b.WriteString(url.PathEscape(s))
	}
	return b.String()
}

// resourceURL returns scheme://host of the project endpoint, which is where
// the OpenAI-compatible routes live.
func (c *Client) resourceURL() (string, error) {
	u, err := url.Parse(c.endpoint)
	if err != nil {
		return "", fmt.Errorf("invalid project endpoint %q: %w", c.endpoint, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("invalid project endpoint %q: scheme and host are required", c.endpoint)
	}
	return u.Scheme + "://" + u.Host, nil
}
