package errors

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPError(t *testing.T) {
	cause := errors.New("boom")

	tests := []struct {
		name       string
		statusCode int
		retryable  bool
	}{
		{"server error retries", 503, true},
		{"rate limited retries", 429, true},
		{"request timeout retries", 408, true},
		{"client error does not retry", 400, false},
		{"not found does not retry", 404, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := HTTPError("send", "https://example.com/mcp", tt.statusCode, cause)
			require.Error(t, err)
			assert.Equal(t, CodeTransportError, err.Code())
			assert.Equal(t, CategoryTransport, err.Category())

			data, ok := err.Data().(*TransportErrorData)
			require.True(t, ok)
			assert.Equal(t, tt.statusCode, data.StatusCode)
			assert.Equal(t, tt.retryable, data.Retryable)
			assert.Equal(t, tt.retryable, IsRetryableError(err))
		})
	}
}

func TestUnauthorized(t *testing.T) {
	err := Unauthorized("https://example.com/mcp", "refresh failed")
	assert.Equal(t, CodeUnauthorized, err.Code())
	assert.Equal(t, CategoryAuth, err.Category())
	assert.False(t, IsRetryableError(err))
	assert.Contains(t, err.Error(), "refresh failed")
}

func TestUnexpectedContentType(t *testing.T) {
	err := UnexpectedContentType("https://example.com/mcp", "text/plain")
	assert.Equal(t, CodeUnexpectedContentType, err.Code())
	assert.Equal(t, CategoryProtocol, err.Category())

	data, ok := err.Data().(*TransportErrorData)
	require.True(t, ok)
	assert.Equal(t, "text/plain", data.ContentType)
}

func TestConnectionClosedAndReconnectExhausted(t *testing.T) {
	cause := errors.New("EOF")

	closed := ConnectionClosed("https://example.com/mcp", cause)
	assert.Equal(t, CodeConnectionLost, closed.Code())
	assert.True(t, IsRetryableError(closed))
	assert.ErrorIs(t, closed, cause)

	exhausted := ReconnectExhausted("https://example.com/mcp", 3, cause)
	assert.Equal(t, CodeReconnectExhausted, exhausted.Code())
	assert.Equal(t, SeverityCritical, exhausted.Severity())
	assert.False(t, IsRetryableError(exhausted))
}

func TestOperationCancelledAndTimeout(t *testing.T) {
	cancelled := OperationCancelled("send")
	assert.Equal(t, CodeOperationCancelled, cancelled.Code())
	assert.Equal(t, CategoryCancelled, cancelled.Category())

	timeout := OperationTimeout("send", 5*time.Second)
	assert.Equal(t, CodeOperationTimeout, timeout.Code())
	assert.Contains(t, timeout.Error(), "5s")
}

func TestErrorContextAndChaining(t *testing.T) {
	base := errors.New("network unreachable")
	err := HTTPError("send", "https://example.com/mcp", 502, base)

	withCtx := err.WithContext(&Context{SessionID: "sess-1", Method: "tools/call"})
	assert.Equal(t, "sess-1", withCtx.Context().SessionID)
	assert.NotSame(t, err, withCtx, "WithContext must not mutate the receiver")

	assert.True(t, errors.Is(withCtx, base))
	assert.Same(t, base, withCtx.Unwrap())
}

func TestWithDetailAccumulates(t *testing.T) {
	err := OperationCancelled("send").WithDetail("client shutdown").WithDetail("stream 3")
	assert.Equal(t, "client shutdown; stream 3", err.Details())
}

func TestToJSONIncludesCategoryAndSeverity(t *testing.T) {
	err := Unauthorized("https://example.com/mcp", "expired token")
	payload := err.ToJSON()

	assert.Equal(t, string(CategoryAuth), payload["category"])
	assert.Equal(t, string(SeverityError), payload["severity"])
	assert.Equal(t, CodeUnauthorized, payload["code"])
}

func TestIsCategoryAndIsCode(t *testing.T) {
	err := ReconnectExhausted("https://example.com/mcp", 2, nil)
	assert.True(t, IsCategory(err, CategoryTransport))
	assert.False(t, IsCategory(err, CategoryAuth))
	assert.True(t, IsCode(err, CodeReconnectExhausted))
}
