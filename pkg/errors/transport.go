package errors

import (
	"fmt"
	"net/http"
	"time"
)

// TransportErrorData carries structured detail for transport-related errors.
type TransportErrorData struct {
	Operation  string        `json:"operation,omitempty"`
	Endpoint   string        `json:"endpoint,omitempty"`
	StatusCode int           `json:"status_code,omitempty"`
	ContentType string       `json:"content_type,omitempty"`
	Retryable  bool          `json:"retryable"`
	Attempt    int           `json:"attempt,omitempty"`
	RetryAfter time.Duration `json:"retry_after,omitempty"`
	Reason     string        `json:"reason,omitempty"`
}

// HTTPError is raised whenever the server responds with a non-2xx status code
// the transport has no dedicated handling for. A 401 that the auth
// coordinator could not resolve raises Unauthorized instead.
func HTTPError(operation, endpoint string, statusCode int, cause error) MCPError {
	message := fmt.Sprintf("HTTP %d error during %s", statusCode, operation)
	if endpoint != "" {
		message = fmt.Sprintf("%s to %s", message, endpoint)
	}

	retryable := statusCode >= 500 || statusCode == http.StatusTooManyRequests || statusCode == http.StatusRequestTimeout

	return WrapError(
		cause,
		CodeTransportError,
		message,
		CategoryTransport,
		SeverityError,
	).WithData(&TransportErrorData{
		Operation:  operation,
		Endpoint:   endpoint,
		StatusCode: statusCode,
		Retryable:  retryable,
	})
}

// Unauthorized is raised when a 401 response could not be resolved by a
// silent token refresh: no auth provider is configured, the provider's
// refresh failed (its redirect to authorization has then already been
// started), or the one retry after a refresh got a 401 again.
func Unauthorized(endpoint, reason string) MCPError {
	message := "unauthorized"
	if reason != "" {
		message = fmt.Sprintf("unauthorized: %s", reason)
	}

	return NewError(
		CodeUnauthorized,
		message,
		CategoryAuth,
		SeverityError,
	).WithData(&TransportErrorData{
		Operation:  "send",
		Endpoint:   endpoint,
		StatusCode: http.StatusUnauthorized,
		Retryable:  false,
		Reason:     reason,
	})
}

// UnexpectedContentType is raised when a 200 response carries a Content-Type
// the transport has no classifier for.
func UnexpectedContentType(endpoint, contentType string) MCPError {
	return NewError(
		CodeUnexpectedContentType,
		fmt.Sprintf("unexpected content-type %q from %s", contentType, endpoint),
		CategoryProtocol,
		SeverityError,
	).WithData(&TransportErrorData{
		Operation:   "classify_response",
		Endpoint:    endpoint,
		ContentType: contentType,
		Retryable:   false,
	})
}

// ParseError is raised when a message body cannot be decoded as JSON-RPC.
func ParseError(context string, cause error) MCPError {
	message := "parse error"
	if context != "" {
		message = fmt.Sprintf("parse error: %s", context)
	}

	return WrapError(
		cause,
		CodeParseError,
		message,
		CategoryProtocol,
		SeverityError,
	)
}

// ConnectionClosed is raised when an SSE stream's read is interrupted and
// the stream is not eligible for resumption, and when an operation is
// issued after the transport has been closed.
func ConnectionClosed(endpoint string, cause error) MCPError {
	return WrapError(
		cause,
		CodeConnectionLost,
		fmt.Sprintf("stream closed for %s", endpoint),
		CategoryTransport,
		SeverityError,
	).WithData(&TransportErrorData{
		Operation: "read_stream",
		Endpoint:  endpoint,
		Retryable: true,
	})
}

// ReconnectExhausted is raised once the Resumption Manager has used up
// MaxRetries reconnection attempts for a stream.
func ReconnectExhausted(endpoint string, attempts int, cause error) MCPError {
	return WrapError(
		cause,
		CodeReconnectExhausted,
		fmt.Sprintf("exhausted %d reconnection attempts for %s", attempts, endpoint),
		CategoryTransport,
		SeverityCritical,
	).WithData(&TransportErrorData{
		Operation: "reconnect",
		Endpoint:  endpoint,
		Attempt:   attempts,
		Retryable: false,
	})
}

// OperationCancelled reports that a pending send or stream read was
// abandoned because its context was cancelled.
func OperationCancelled(operation string) MCPError {
	return NewError(
		CodeOperationCancelled,
		fmt.Sprintf("%s cancelled", operation),
		CategoryCancelled,
		SeverityInfo,
	)
}

// OperationTimeout reports that a pending send exceeded its deadline.
func OperationTimeout(operation string, timeout time.Duration) MCPError {
	message := fmt.Sprintf("%s timed out", operation)
	if timeout > 0 {
		message = fmt.Sprintf("%s after %v", message, timeout)
	}
	return NewError(
		CodeOperationTimeout,
		message,
		CategoryTimeout,
		SeverityError,
	)
}

// IsRetryableError reports whether err carries transport data marked retryable.
func IsRetryableError(err error) bool {
	mcpErr, ok := AsMCPError(err)
	if !ok {
		return false
	}
	if data, ok := mcpErr.Data().(*TransportErrorData); ok {
		return data.Retryable
	}
	return false
}
