package streamablehttp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	mcperrors "github.com/modelcontext-go/streamable-transport/pkg/errors"
	"github.com/modelcontext-go/streamable-transport/pkg/logging"
	"github.com/modelcontext-go/streamable-transport/pkg/protocol"
)

// Send transmits one JSON-RPC message (request or notification). It
// resolves once the response has been classified, not once a streaming
// response completes.
func (t *Transport) Send(ctx context.Context, message interface{}) error {
	body, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}
	return t.dispatchPOST(ctx, body, requestIDsOf(body))
}

// SendBatch transmits a batch of JSON-RPC requests/notifications as a
// single HTTP body, per §4.1: "For batches, the entire array is the HTTP
// body."
func (t *Transport) SendBatch(ctx context.Context, messages ...interface{}) error {
	batch, err := protocol.NewBatch(messages...)
	if err != nil {
		return err
	}
	body, err := json.Marshal(batch)
	if err != nil {
		return fmt.Errorf("failed to marshal batch: %w", err)
	}
	return t.dispatchPOST(ctx, body, requestIDsOf(body))
}

// requestIDsOf extracts the JSON-RPC ids present in body (single message or
// batch), used only to correlate a per-request SSE stream with the ids it
// is authoritative for.
func requestIDsOf(body []byte) map[string]struct{} {
	ids := map[string]struct{}{}
	collect := func(raw json.RawMessage) {
		var msg struct {
			ID interface{} `json:"id"`
		}
		if err := json.Unmarshal(raw, &msg); err != nil || msg.ID == nil {
			return
		}
		ids[fmt.Sprintf("%v", msg.ID)] = struct{}{}
	}

	if protocol.IsBatch(body) {
		var batch []json.RawMessage
		if err := json.Unmarshal(body, &batch); err == nil {
			for _, m := range batch {
				collect(m)
			}
		}
		return ids
	}
	collect(body)
	return ids
}

func (t *Transport) dispatchPOST(ctx context.Context, body []byte, requestIDs map[string]struct{}) error {
	if err := t.checkNotClosed("send"); err != nil {
		return err
	}

	start := time.Now()
	method := "unknown"
	if m := requestMethodOf(body); m != "" {
		method = m
	}

	status := "ok"
	defer func() {
		t.cfg.metrics.RecordSend(ctx, method, status, time.Since(start))
	}()

	if t.tracing != nil {
		var span trace.Span
		ctx, span = t.startSpan(ctx, "streamablehttp.send", attribute.String("rpc.method", method))
		defer span.End()
	}

	resp, err := t.doRequest(ctx, http.MethodPost, bytes.NewReader(body), headerParams{method: http.MethodPost})
	if err != nil {
		status = "http_error"
		return err
	}
	defer func() {
		if resp.Body != nil {
			_ = resp.Body.Close()
		}
	}()

	outcome, err := t.classifyResponse(ctx, resp, body, requestIDs)
	if err != nil {
		status = outcome
	}
	return err
}

// startSpan is a thin indirection so dispatch.go stays readable.
func (t *Transport) startSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	spanCtx, span := t.tracing.StartSpan(ctx, name)
	t.tracing.SetAttributes(spanCtx, attrs...)
	return spanCtx, span
}

func requestMethodOf(body []byte) string {
	var msg struct {
		Method string `json:"method"`
	}
	if protocol.IsBatch(body) {
		return "batch"
	}
	if err := json.Unmarshal(body, &msg); err != nil {
		return ""
	}
	return msg.Method
}

// classifyResponse implements §4.2's response classification table.
// originalBody is the POST body that produced resp, kept so a 401 can be
// retried once with a refreshed Authorization header. The returned outcome
// string is only used for metrics labeling.
func (t *Transport) classifyResponse(ctx context.Context, resp *http.Response, originalBody []byte, requestIDs map[string]struct{}) (outcome string, err error) {
	if sid := resp.Header.Get("mcp-session-id"); sid != "" {
		t.captureSessionID(sid)
	}

	switch {
	case resp.StatusCode == http.StatusAccepted:
		return "ok", nil

	case resp.StatusCode == http.StatusUnauthorized:
		if resolveErr := t.resolveUnauthorized(ctx); resolveErr != nil {
			t.recordSpanError(ctx, resolveErr)
			t.reportError(resolveErr)
			return "unauthorized", resolveErr
		}
		// Retry exactly once with the refreshed token; a second 401 is fatal.
		return t.retryAfterRefresh(ctx, originalBody, requestIDs)

	case resp.StatusCode == http.StatusNotFound:
		httpErr := mcperrors.HTTPError("send", t.endpoint.String(), resp.StatusCode, nil)
		t.recordSpanError(ctx, httpErr)
		t.reportError(httpErr)
		return "http_error", httpErr

	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		body, _ := io.ReadAll(resp.Body)
		httpErr := mcperrors.HTTPError("send", t.endpoint.String(), resp.StatusCode, fmt.Errorf("%s", string(body)))
		t.recordSpanError(ctx, httpErr)
		t.reportError(httpErr)
		return "http_error", httpErr

	default: // 200
		return t.classify200(ctx, resp, requestIDs)
	}
}

func (t *Transport) classify200(ctx context.Context, resp *http.Response, requestIDs map[string]struct{}) (string, error) {
	contentType := contentTypeOf(resp.Header)

	switch contentType {
	case "text/event-stream":
		st := &activeStream{
			id:         newStreamID("request"),
			kind:       streamPerRequest,
			requestIDs: requestIDs,
			done:       make(chan struct{}),
		}
		streamCtx, cancel := context.WithCancel(t.rootCtx)
		st.cancel = cancel
		t.registerStream(st)
		t.cfg.metrics.RecordStreamOpened("request")
		// The stream goroutine takes over the body; leave the caller's
		// deferred close with an empty one so it cannot cut the stream short.
		streamResp := *resp
		resp.Body = http.NoBody
		go t.runStream(streamCtx, st, &streamResp)
		return "ok", nil

	case "application/json", "":
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return "http_error", fmt.Errorf("failed to read response body: %w", err)
		}
		if len(body) > 0 {
			t.deliverMessage(body)
		}
		return "ok", nil

	default:
		err := mcperrors.UnexpectedContentType(t.endpoint.String(), contentType)
		t.recordSpanError(ctx, err)
		t.reportError(err)
		return "unexpected_content_type", err
	}
}

// recordSpanError marks the span carried by ctx as failed, if tracing is
// configured. classifyResponse's error branches funnel through here rather
// than calling t.tracing.RecordError directly so span recording follows the
// same nil-tracing guard as every other tracing call site.
func (t *Transport) recordSpanError(ctx context.Context, err error) {
	if t.tracing != nil {
		t.tracing.RecordError(ctx, err)
	}
}

// retryAfterRefresh re-issues the original POST body with a fresh
// Authorization header, exactly once, per §4.5 step 2.
func (t *Transport) retryAfterRefresh(ctx context.Context, originalBody []byte, requestIDs map[string]struct{}) (string, error) {
	resp, err := t.doRequest(ctx, http.MethodPost, bytes.NewReader(originalBody), headerParams{method: http.MethodPost})
	if err != nil {
		return "http_error", err
	}
	defer func() {
		if resp.Body != nil {
			_ = resp.Body.Close()
		}
	}()

	if resp.StatusCode == http.StatusUnauthorized {
		err := mcperrors.Unauthorized(t.endpoint.String(), "second 401 after refresh")
		t.recordSpanError(ctx, err)
		t.reportError(err)
		return "unauthorized", err
	}
	return t.classifyResponse(ctx, resp, originalBody, requestIDs)
}

// TerminateSession issues DELETE with the session id header. Per §4.1, a
// 2xx or 405 response is success; 405 means the server does not implement
// termination and the session id is left untouched, otherwise it is
// cleared. If no session id is set, this is a no-op.
func (t *Transport) TerminateSession(ctx context.Context) error {
	if err := t.checkNotClosed("terminateSession"); err != nil {
		return err
	}

	sessionID := t.currentSessionID()
	if sessionID == "" {
		return nil
	}

	resp, err := t.doRequest(ctx, http.MethodDelete, nil, headerParams{method: http.MethodDelete, sessionID: sessionID})
	if err != nil {
		return err
	}
	defer func() {
		if resp.Body != nil {
			_ = resp.Body.Close()
		}
	}()

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		t.clearSessionID()
		return nil
	case resp.StatusCode == http.StatusMethodNotAllowed:
		return nil
	default:
		body, _ := io.ReadAll(resp.Body)
		httpErr := mcperrors.HTTPError("terminateSession", t.endpoint.String(), resp.StatusCode, fmt.Errorf("%s", string(body)))
		t.reportError(httpErr)
		return httpErr
	}
}

// reconnectAuthRetried marks a GET that is already the single retry allowed
// after a silent token refresh; a 401 on it is fatal.
type reconnectAuthRetried struct{}

// reconnectGET issues the GET used both for opening the standalone
// listening stream and for reconnecting any resumable stream. A nil, nil
// return means the server answered 405: invariant 5 requires this to never
// surface as an error.
func (t *Transport) reconnectGET(ctx context.Context, lastEventID string) (*http.Response, error) {
	resp, err := t.doRequest(ctx, http.MethodGet, nil, headerParams{
		method:      http.MethodGet,
		sessionID:   t.currentSessionID(),
		lastEventID: lastEventID,
	})
	if err != nil {
		return nil, err
	}

	switch resp.StatusCode {
	case http.StatusOK:
		if contentTypeOf(resp.Header) != "text/event-stream" {
			_ = resp.Body.Close()
			return nil, mcperrors.UnexpectedContentType(t.endpoint.String(), contentTypeOf(resp.Header))
		}
		if sid := resp.Header.Get("mcp-session-id"); sid != "" {
			t.captureSessionID(sid)
		}
		return resp, nil

	case http.StatusMethodNotAllowed:
		_ = resp.Body.Close()
		return nil, nil

	case http.StatusUnauthorized:
		_ = resp.Body.Close()
		if ctx.Value(reconnectAuthRetried{}) != nil {
			return nil, mcperrors.Unauthorized(t.endpoint.String(), "second 401 after refresh")
		}
		if resolveErr := t.resolveUnauthorized(ctx); resolveErr != nil {
			return nil, resolveErr
		}
		return t.reconnectGET(context.WithValue(ctx, reconnectAuthRetried{}, true), lastEventID)

	default:
		body, _ := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		return nil, mcperrors.HTTPError("reconnect", t.endpoint.String(), resp.StatusCode, fmt.Errorf("%s", string(body)))
	}
}

func (t *Transport) doRequest(ctx context.Context, method string, body io.Reader, hp headerParams) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, t.endpoint.String(), body)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}

	if hp.sessionID == "" {
		hp.sessionID = t.currentSessionID()
	}
	hp.accessToken = t.currentAccessToken(ctx)

	req.Header = t.composeHeaders(ctx, hp)

	t.cfg.logger.Debug("dispatching request",
		logging.String("method", method),
		logging.String("endpoint", t.endpoint.String()),
	)

	return t.cfg.httpClient.Do(req)
}

// contentTypeOf extracts the media type only, case-insensitively, ignoring
// parameters (charset, boundary, ...), per §4.2's tie-break rule. A missing
// header is treated as application/json.
func contentTypeOf(h http.Header) string {
	raw := h.Get("Content-Type")
	if raw == "" {
		return "application/json"
	}
	mediaType, _, err := mime.ParseMediaType(raw)
	if err != nil {
		return strings.ToLower(strings.TrimSpace(strings.SplitN(raw, ";", 2)[0]))
	}
	return mediaType
}
