// Package client is the HTTP client for the Vulnissimo scanning API. It covers
// the two operations the SDK needs: submitting a scan and reading its current
// result. Polling for completion lives in internal/poller.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/vulnissimo/vulnissimo-go/internal/logging"
	"github.com/vulnissimo/vulnissimo-go/internal/model"
)

// DefaultBaseURL is the production Vulnissimo API endpoint.
const DefaultBaseURL = "https://api.vulnissimo.io"

// Options configures a Client. The zero value is usable and talks to the
// production API anonymously.
type Options struct {
	// BaseURL is the API root. Defaults to DefaultBaseURL.
	BaseURL string

	// Token is the API token sent as a bearer credential. Optional.
	Token string

	// HTTPClient lets callers inject a custom *http.Client (proxies, TLS
	// config, tests). If nil a default with a 30s timeout is used.
	HTTPClient *http.Client

	// Logger receives request-level diagnostics. If nil, logging is off.
	Logger logging.Logger
}

// Client talks to the Vulnissimo API. Safe for concurrent use.
type Client struct {
	baseURL string
	token   string
	client  *http.Client
	logger  logging.Logger
}

// New creates a Client from opts.
func New(opts Options) (*Client, error) {
	baseURL := opts.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("base url %q must be absolute", baseURL)
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}

	logger := opts.Logger
	if logger == nil {
		logger = logging.Nop{}
	}
	logger = logger.With(logging.Field{Key: "component", Value: "client"})

	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   opts.Token,
		client:  httpClient,
		logger:  logger,
	}, nil
}

// RunScan submits a new scan for body.Target and returns the accepted scan
// with its job id and hosted report URL.
func (c *Client) RunScan(ctx context.Context, body model.ScanCreate) (*model.Scan, error) {
	if strings.TrimSpace(body.Target) == "" {
		return nil, fmt.Errorf("empty scan target")
	}

	var scan model.Scan
	if err := c.do(ctx, http.MethodPost, "/scans", body, &scan); err != nil {
		return nil, err
	}

	c.logger.Info("scan started",
		logging.Field{Key: "scan_id", Value: scan.ID.String()},
		logging.Field{Key: "target", Value: scan.Target})
	return &scan, nil
}

// GetScanResult fetches the current result of a scan. The returned snapshot is
// a point-in-time read; callers poll until ScanInfo.Status is terminal.
func (c *Client) GetScanResult(ctx context.Context, scanID uuid.UUID) (*model.ScanResult, error) {
	var result model.ScanResult
	if err := c.do(ctx, http.MethodGet, "/scans/"+scanID.String(), nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// CancelScan asks the service to abort a scan that has not finished.
func (c *Client) CancelScan(ctx context.Context, scanID uuid.UUID) error {
	return c.do(ctx, http.MethodDelete, "/scans/"+scanID.String(), nil, nil)
}

// do executes one API request: marshal body, send, classify errors, decode
// into out (when out is non-nil).
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var bodyReader io.Reader
	if body != nil {
		enc, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request body: %w", err)
		}
		bodyReader = bytes.NewReader(enc)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	c.logger.Debug("sending api request",
		logging.Field{Key: "method", Value: method},
		logging.Field{Key: "path", Value: path})

	resp, err := c.client.Do(req)
	if err != nil {
		c.logger.Warn("api request failed",
			logging.Field{Key: "method", Value: method},
			logging.Field{Key: "path", Value: path},
			logging.Field{Key: "error", Value: err.Error()})
		return fmt.Errorf("%w: %s %s: %v", ErrTransport, method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: read body: %v", ErrTransport, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &APIError{StatusCode: resp.StatusCode, Message: errorMessage(raw)}
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// errorMessage extracts the service's error detail from a failure body.
// The API reports errors as {"error": "..."}; anything else is passed
// through verbatim.
func errorMessage(raw []byte) string {
	var body struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(raw, &body); err == nil && body.Error != "" {
		return body.Error
	}
	return strings.TrimSpace(string(raw))
}
