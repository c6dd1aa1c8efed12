// Package sparql implements the client side of the SPARQL 1.1 protocol.
//
// Queries and updates are sent as form-encoded POST requests. Failures are
// classified: transport errors and timeouts are network errors, non-2xx
// answers are protocol errors carrying the status and body, and result
// documents that cannot be decoded are parse errors.
package sparql

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/c360studio/semsync/errs"
)

// maxResponseSize limits a response body; CONSTRUCT results can be whole graphs.
const maxResponseSize = 64 * 1024 * 1024

// DefaultTimeout bounds a single request.
const DefaultTimeout = 30 * time.Second

// Kind is the form of a query.
type Kind string

// Query kinds.
const (
	KindAsk       Kind = "ask"
	KindSelect    Kind = "select"
	KindConstruct Kind = "construct"
)

// Media types.
const (
	MediaResultsJSON = "application/sparql-results+json"
	MediaTurtle      = "text/turtle"
	mediaForm        = "application/x-www-form-urlencoded"
)

// Accept returns the Accept header sent for queries of kind k.
func (k Kind) Accept() string {
	if k == KindConstruct {
		return MediaTurtle + ", application/n-triples;q=0.9"
	}
	return MediaResultsJSON
}

// Valid reports whether k is a known kind.
func (k Kind) Valid() bool {
	switch k {
	case KindAsk, KindSelect, KindConstruct:
		return true
	}
	return false
}

// Credentials are HTTP Basic credentials.
type Credentials struct {
	User     string `json:"user" yaml:"user"`
	Password string `json:"password" yaml:"password"`
}

// Client sends SPARQL requests.
type Client struct {
	httpClient *http.Client
	timeout    time.Duration
	logger     *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets the HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(client *Client) {
		if c != nil {
			client.httpClient = c
		}
	}
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(client *Client) {
		if d > 0 {
			client.timeout = d
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(client *Client) {
		if logger != nil {
			client.logger = logger
		}
	}
}

// NewClient creates a client.
func NewClient(opts ...Option) *Client {
	c := &Client{
		httpClient: &http.Client{},
		timeout:    DefaultTimeout,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Query runs a query against endpoint. ASK and SELECT results are decoded;
// CONSTRUCT results are returned as the raw RDF document.
func (c *Client) Query(ctx context.Context, endpoint, query string, kind Kind, creds *Credentials) (*Result, error) {
	if !kind.Valid() {
		return nil, errs.Domain("sparql query", "unknown query kind %q", kind)
	}

	body, contentType, err := c.post(ctx, "sparql query", endpoint, "query", query, kind.Accept(), creds)
	if err != nil {
		return nil, err
	}

	switch kind {
	case KindConstruct:
		return &Result{Kind: kind, Graph: string(body), ContentType: contentType}, nil
	default:
		res, err := decodeResults(body)
		if err != nil {
			return nil, errs.Parse("sparql query", err)
		}
		res.Kind = kind
		res.ContentType = contentType
		return res, nil
	}
}

// Ask runs an ASK query and returns its boolean.
func (c *Client) Ask(ctx context.Context, endpoint, query string, creds *Credentials) (bool, error) {
	res, err := c.Query(ctx, endpoint, query, KindAsk, creds)
	if err != nil {
		return false, err
	}
	return res.Boolean, nil
}

// Update runs an update request against endpoint.
func (c *Client) Update(ctx context.Context, endpoint, update string, creds *Credentials) error {
	_, _, err := c.post(ctx, "sparql update", endpoint, "update", update, "*/*", creds)
	return err
}

func (c *Client) post(ctx context.Context, op, endpoint, param, text, accept string, creds *Credentials) ([]byte, string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	form := url.Values{param: {text}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, "", errs.Network(op, fmt.Errorf("create request: %w", err))
	}
	req.Header.Set("Content-Type", mediaForm)
	req.Header.Set("Accept", accept)
	if creds != nil && creds.User != "" {
		req.SetBasicAuth(creds.User, creds.Password)
	}

	c.logger.Debug("Sending SPARQL request", "op", op, "url", endpoint, "bytes", len(text))

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, "", errs.Network(op, fmt.Errorf("request %s: %w", endpoint, err))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, "", errs.Network(op, fmt.Errorf("read response: %w", err))
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.logger.Debug("SPARQL request rejected", "op", op, "url", endpoint, "status", resp.StatusCode)
		return nil, "", errs.Protocol(op, resp.StatusCode, string(body))
	}

	c.logger.Debug("SPARQL request done",
		"op", op,
		"url", endpoint,
		"status", resp.StatusCode,
		"bytes", len(body),
		"duration", time.Since(start))

	return body, resp.Header.Get("Content-Type"), nil
}
