// Package transport defines the boundary between the query compiler and
// the HTTP machinery that carries requests: a minimal send-request,
// get-status/headers/body contract, plus the default net/http-backed
// implementation. Retry, backoff and caching policy deliberately live
// outside this boundary.
package transport

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Request is one outgoing call: method, fully-compiled URL, headers and
// an optional JSON body.
type Request struct {
	Method  string
	URL     string
	Headers http.Header
	Body    []byte
}

// Response carries everything a decoder needs: status, status text,
// headers and the raw body. Body absence versus a JSON null is
// distinguished by content-type inspection, never by payload shape.
type Response struct {
	Status     int
	StatusText string
	Headers    http.Header
	Body       []byte
}

// HasJSONBody reports whether the response declares a JSON payload
// (including the singular-object media type) and actually carries bytes.
func (r *Response) HasJSONBody() bool {
	ct := r.Headers.Get("Content-Type")
	return strings.Contains(ct, "json") && len(r.Body) > 0
}

// Transport performs one request/response round trip. Implementations
// must be safe for concurrent use; the compiler core issues exactly one
// Send per logical operation and never retries.
type Transport interface {
	Send(ctx context.Context, req *Request) (*Response, error)
}

// RequestIDHeader carries the per-request correlation ID attached by
// HTTPTransport.
const RequestIDHeader = "X-Request-Id"

// HTTPTransport is the default Transport over net/http.
type HTTPTransport struct {
	client *http.Client
	logger *zap.Logger
}

// Ensure HTTPTransport implements the Transport interface.
var _ Transport = (*HTTPTransport)(nil)

// NewHTTPTransport creates a transport backed by the given client, or
// http.DefaultClient when nil. A nil logger falls back to a nop logger.
func NewHTTPTransport(client *http.Client, logger *zap.Logger) *HTTPTransport {
	if client == nil {
		client = http.DefaultClient
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HTTPTransport{client: client, logger: logger}
}

// Send performs the round trip, tagging the request with a correlation ID
// when the caller did not supply one.
func (t *HTTPTransport) Send(ctx context.Context, req *Request) (*Response, error) {
	var body io.Reader
	if req.Body != nil {
		body = bytes.NewReader(req.Body)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, req.URL, body)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	for key, values := range req.Headers {
		for _, v := range values {
			httpReq.Header.Add(key, v)
		}
	}
	requestID := httpReq.Header.Get(RequestIDHeader)
	if requestID == "" {
		requestID = uuid.NewString()
		httpReq.Header.Set(RequestIDHeader, requestID)
	}

	t.logger.Debug("Sending request",
		zap.String("method", req.Method),
		zap.String("url", req.URL),
		zap.String("request_id", requestID))

	httpResp, err := t.client.Do(httpReq)
	if err != nil {
		t.logger.Error("Request failed",
			zap.Error(err),
			zap.String("url", req.URL),
			zap.String("request_id", requestID))
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	return &Response{
		Status:     httpResp.StatusCode,
		StatusText: http.StatusText(httpResp.StatusCode),
		Headers:    httpResp.Header,
		Body:       respBody,
	}, nil
}
