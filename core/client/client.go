// Package client orchestrates one logical operation per call: compile a
// Query to URL and headers, perform a single transport round trip, and
// decode the response against the same Query. It adds structured logging
// and request lifecycle events on top of the compiler core; retry and
// caching policy stay with the caller or the transport.
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	events "github.com/asaidimu/go-events"
	"go.uber.org/zap"

	"github.com/restq/go-restq/core/query"
	"github.com/restq/go-restq/core/transport"
	"github.com/restq/go-restq/postgrest"
)

// Client issues compiled queries against one API base URL. It is safe
// for concurrent use; all per-request state lives on the stack.
type Client struct {
	baseURL   string
	transport transport.Transport
	logger    *zap.Logger
	headers   http.Header
	bus       *events.TypedEventBus[RequestEvent]
}

// Option configures a Client.
type Option func(*Client)

// WithTransport replaces the default HTTP transport.
func WithTransport(t transport.Transport) Option {
	return func(c *Client) { c.transport = t }
}

// WithLogger sets the logger for the client and its default transport.
func WithLogger(logger *zap.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// WithHeaders sets default headers (authorization, API keys) merged into
// every request before the library-managed fields.
func WithHeaders(h http.Header) Option {
	return func(c *Client) { c.headers = h }
}

// New creates a client for the given base URL.
func New(baseURL string, opts ...Option) (*Client, error) {
	bus, err := newEventBus()
	if err != nil {
		return nil, fmt.Errorf("failed to create event bus: %w", err)
	}
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		logger:  zap.NewNop(),
		bus:     bus,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.transport == nil {
		c.transport = transport.NewHTTPTransport(nil, c.logger)
	}
	return c, nil
}

// URL compiles the full request URL for a query without sending it.
func (c *Client) URL(q *query.Query) (string, error) {
	qs, err := postgrest.QueryString(q, postgrest.Options{Encoded: true})
	if err != nil {
		return "", err
	}
	u := c.baseURL + "/" + q.Resource()
	if qs != "" {
		u += "?" + qs
	}
	return u, nil
}

// Select performs a read.
func (c *Client) Select(ctx context.Context, q *query.Query) (*postgrest.Result, error) {
	return c.do(ctx, "select", http.MethodGet, q, nil)
}

// Insert writes new rows. records marshals to the JSON request body.
func (c *Client) Insert(ctx context.Context, q *query.Query, records any) (*postgrest.Result, error) {
	return c.do(ctx, "insert", http.MethodPost, q, records)
}

// Upsert writes rows resolving conflicts. When the query declares no
// resolution, merge-duplicates is applied.
func (c *Client) Upsert(ctx context.Context, q *query.Query, records any) (*postgrest.Result, error) {
	if q.Intent().Resolution == "" {
		q = q.OnConflict(query.MergeDuplicates)
	}
	return c.do(ctx, "upsert", http.MethodPost, q, records)
}

// Update patches the rows matched by the query's filters.
func (c *Client) Update(ctx context.Context, q *query.Query, values any) (*postgrest.Result, error) {
	return c.do(ctx, "update", http.MethodPatch, q, values)
}

// Delete removes the rows matched by the query's filters.
func (c *Client) Delete(ctx context.Context, q *query.Query) (*postgrest.Result, error) {
	return c.do(ctx, "delete", http.MethodDelete, q, nil)
}

// do runs one operation wrapped in start/success/failed events.
func (c *Client) do(ctx context.Context, operation, method string, q *query.Query, body any) (*postgrest.Result, error) {
	startTime := time.Now()

	u, err := c.URL(q)
	if err != nil {
		return nil, err
	}

	var payload []byte
	if body != nil {
		payload, err = json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request body: %w", err)
		}
	}

	c.emitEvent(createEvent(RequestStart, operation, q.Resource(), u, 0, nil, startTime))
	c.logger.Debug("Executing operation",
		zap.String("operation", operation),
		zap.String("method", method),
		zap.String("url", u))

	resp, err := c.transport.Send(ctx, &transport.Request{
		Method:  method,
		URL:     u,
		Headers: postgrest.RequestHeaders(q, method, c.headers),
		Body:    payload,
	})
	if err != nil {
		c.fail(operation, q.Resource(), u, 0, err, startTime)
		return nil, err
	}

	result, err := postgrest.Decode(q, resp)
	if err != nil {
		c.fail(operation, q.Resource(), u, resp.Status, err, startTime)
		return nil, err
	}

	c.emitEvent(createEvent(RequestSuccess, operation, q.Resource(), u, resp.Status, nil, startTime))
	return result, nil
}

func (c *Client) fail(operation, resource, url string, status int, err error, startTime time.Time) {
	c.logger.Error("Operation failed",
		zap.String("operation", operation),
		zap.String("url", url),
		zap.Error(err))
	msg := err.Error()
	c.emitEvent(createEvent(RequestFailed, operation, resource, url, status, &msg, startTime))
}
