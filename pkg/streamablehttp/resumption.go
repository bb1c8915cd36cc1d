package streamablehttp

import (
	"context"
	"io"
	"math"
	"net/http"
	"time"

	"github.com/modelcontext-go/streamable-transport/pkg/logging"

	mcperrors "github.com/modelcontext-go/streamable-transport/pkg/errors"
	"github.com/modelcontext-go/streamable-transport/pkg/protocol"
)

// computeBackoff implements delay(k) = min(max, initial*grow^k), attempt
// indexed from 0, with no jitter: the transport's tests pin the formula
// exactly, so the teacher's calculateBackoff jitter is deliberately dropped.
func computeBackoff(opts ReconnectionOptions, attempt int) time.Duration {
	d := float64(opts.InitialReconnectionDelay) * math.Pow(opts.ReconnectionDelayGrowFactor, float64(attempt))
	max := float64(opts.MaxReconnectionDelay)
	if d > max {
		d = max
	}
	return time.Duration(d)
}

// runStandaloneStream opens the transport's optional listening GET stream,
// seeded with lastEventID as the outgoing Last-Event-ID, and keeps it alive
// across reconnects until Close or a non-resumable failure. It reports the
// outcome of the initial open synchronously; everything after that point
// (reconnects, read errors) goes through reportError/OnError since nothing
// is left waiting on a call stack by then.
func (t *Transport) runStandaloneStream(ctx context.Context, lastEventID string) error {
	st := &activeStream{
		id:         newStreamID("standalone"),
		kind:       streamStandalone,
		requestIDs: map[string]struct{}{},
		done:       make(chan struct{}),
	}
	streamCtx, cancel := context.WithCancel(ctx)
	st.cancel = cancel
	t.registerStream(st)

	resp, err := t.openStandaloneGET(streamCtx, lastEventID)
	if err != nil {
		t.cfg.logger.Debug("standalone stream not available", logging.ErrorField(err))
		t.removeStream(st.id)
		close(st.done)
		return err
	}
	if resp == nil {
		// 405: server does not offer a listening stream; swallow silently.
		t.removeStream(st.id)
		close(st.done)
		return nil
	}

	st.setLastEventID(lastEventID)
	t.cfg.metrics.RecordStreamOpened("standalone")
	go t.runStream(streamCtx, st, resp)
	return nil
}

// openStandaloneGET issues the GET that opens or resumes the standalone
// stream. A nil, nil return means the server answered 405 and the caller
// should give up without error, per invariant 5.
func (t *Transport) openStandaloneGET(ctx context.Context, lastEventID string) (*http.Response, error) {
	return t.reconnectGET(ctx, lastEventID)
}

// runStream owns one SSE connection's full lifecycle: read until
// disconnect, then hand off to the Resumption Manager, until the stream
// ends cleanly, is closed, or exhausts its reconnection budget.
func (t *Transport) runStream(ctx context.Context, st *activeStream, resp *http.Response) {
	defer func() {
		t.removeStream(st.id)
		if st.done != nil {
			close(st.done)
		}
	}()

	for {
		// consumeStream's read is governed by whatever context doRequest was
		// given when resp was obtained, which for a per-request stream is the
		// caller's Send context, not ctx — cancelling ctx alone would never
		// unblock it. Race ctx.Done() against the read here and close the
		// body directly so Close() can always abort a live stream.
		readDone := make(chan struct{})
		go func() {
			select {
			case <-ctx.Done():
				_ = resp.Body.Close()
			case <-readDone:
			}
		}()

		readErr := t.consumeStream(ctx, st, resp.Body)
		close(readDone)
		_ = resp.Body.Close()

		if ctx.Err() != nil {
			return
		}

		if readErr == nil {
			// Clean EOF. Expected for per-request streams once the reply has
			// been delivered; the standalone stream simply ends too, since
			// the server chose to close it deliberately.
			return
		}

		if !st.isResumable() {
			t.reportError(mcperrors.ConnectionClosed(t.endpoint.String(), readErr))
			return
		}

		newResp, ok := t.reconnectWithBackoff(ctx, st)
		if !ok {
			return
		}
		resp = newResp
	}
}

// consumeStream reads SSE events off body until EOF or a read error,
// delivering each as a JSON-RPC message. lastEventId is updated before
// delivery so a failure immediately after still resumes from the right
// point (invariant 3).
func (t *Transport) consumeStream(ctx context.Context, st *activeStream, body io.Reader) error {
	return decodeSSE(body, func(ev sseEvent) {
		st.markResumable()

		if ev.ID != "" {
			st.setLastEventID(ev.ID)
		}

		if ev.Type == "close" {
			return
		}

		if !protocol.IsRequest([]byte(ev.Data)) && !protocol.IsResponse([]byte(ev.Data)) && !protocol.IsNotification([]byte(ev.Data)) && !protocol.IsBatch([]byte(ev.Data)) {
			t.reportError(mcperrors.ParseError("sse event data is not a JSON-RPC message", nil))
			return
		}
		t.deliverMessage([]byte(ev.Data))
	})
}

// reconnectWithBackoff drives the Resumption Manager's retry loop for one
// stream: compute delay, wait, reconnect. ok=false means the caller should
// stop (either exhausted, cancelled, or the reconnect itself was swallowed
// per invariant 5).
func (t *Transport) reconnectWithBackoff(ctx context.Context, st *activeStream) (*http.Response, bool) {
	for {
		st.mu.Lock()
		attempt := st.attempt
		st.mu.Unlock()

		if attempt >= t.cfg.reconnectionOptions.MaxRetries {
			t.cfg.metrics.RecordReconnectAttempt("exhausted", 0)
			t.reportError(mcperrors.ReconnectExhausted(t.endpoint.String(), attempt, nil))
			return nil, false
		}

		delay := computeBackoff(t.cfg.reconnectionOptions, attempt)
		timer := time.NewTimer(delay)

		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, false
		case <-timer.C:
		}

		t.cfg.metrics.RecordReconnectAttempt("scheduled", delay)

		resp, err := t.reconnectGET(ctx, st.getLastEventID())
		if err != nil {
			st.mu.Lock()
			st.attempt++
			st.mu.Unlock()
			continue
		}
		if resp == nil {
			// 405 on reconnect: server withdrew the stream; give up quietly.
			return nil, false
		}

		st.mu.Lock()
		st.attempt = 0
		st.mu.Unlock()
		return resp, true
	}
}
