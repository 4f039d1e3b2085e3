package transport

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPTransportSend(t *testing.T) {
	var received *http.Request
	var receivedBody []byte
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		received = r.Clone(context.Background())
		receivedBody, _ = io.ReadAll(r.Body)
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Content-Range", "0-0/1")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`[{"id":1}]`))
	}))
	defer server.Close()

	tr := NewHTTPTransport(server.Client(), nil)
	headers := http.Header{}
	headers.Set("Accept", "application/json")

	resp, err := tr.Send(context.Background(), &Request{
		Method:  http.MethodPost,
		URL:     server.URL + "/t?select=id",
		Headers: headers,
		Body:    []byte(`[{"id":1}]`),
	})
	require.NoError(t, err)

	assert.Equal(t, http.MethodPost, received.Method)
	assert.Equal(t, "/t", received.URL.Path)
	assert.Equal(t, "select=id", received.URL.RawQuery)
	assert.Equal(t, "application/json", received.Header.Get("Accept"))
	assert.Equal(t, `[{"id":1}]`, string(receivedBody))

	assert.Equal(t, 200, resp.Status)
	assert.Equal(t, "OK", resp.StatusText)
	assert.Equal(t, "0-0/1", resp.Headers.Get("Content-Range"))
	assert.Equal(t, `[{"id":1}]`, string(resp.Body))
	assert.True(t, resp.HasJSONBody())
}

func TestHTTPTransportAttachesRequestID(t *testing.T) {
	var requestID string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID = r.Header.Get(RequestIDHeader)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	tr := NewHTTPTransport(server.Client(), nil)
	_, err := tr.Send(context.Background(), &Request{Method: http.MethodGet, URL: server.URL})
	require.NoError(t, err)
	assert.NotEmpty(t, requestID)
}

func TestHTTPTransportKeepsCallerRequestID(t *testing.T) {
	var requestID string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID = r.Header.Get(RequestIDHeader)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	headers := http.Header{}
	headers.Set(RequestIDHeader, "caller-id")

	tr := NewHTTPTransport(server.Client(), nil)
	_, err := tr.Send(context.Background(), &Request{
		Method:  http.MethodGet,
		URL:     server.URL,
		Headers: headers,
	})
	require.NoError(t, err)
	assert.Equal(t, "caller-id", requestID)
}

func TestHTTPTransportSendError(t *testing.T) {
	tr := NewHTTPTransport(nil, nil)
	_, err := tr.Send(context.Background(), &Request{
		Method: http.MethodGet,
		URL:    "http://127.0.0.1:0/unreachable",
	})
	assert.Error(t, err)
}

func TestResponseHasJSONBody(t *testing.T) {
	tests := []struct {
		name        string
		contentType string
		body        []byte
		expected    bool
	}{
		{"json", "application/json", []byte(`{}`), true},
		{"singular media type", "application/vnd.pgrst.object+json", []byte(`{}`), true},
		{"json with charset", "application/json; charset=utf-8", []byte(`{}`), true},
		{"empty body", "application/json", nil, false},
		{"text", "text/plain", []byte("ok"), false},
		{"no content type", "", []byte(`{}`), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := http.Header{}
			if tt.contentType != "" {
				h.Set("Content-Type", tt.contentType)
			}
			r := &Response{Headers: h, Body: tt.body}
			assert.Equal(t, tt.expected, r.HasJSONBody())
		})
	}
}
