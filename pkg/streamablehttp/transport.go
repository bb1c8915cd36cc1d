// Package streamablehttp implements the client side of the MCP Streamable
// HTTP transport: a single endpoint multiplexing JSON-RPC request/response,
// server notifications, and resumable SSE streams.
package streamablehttp

import (
	"context"
	"fmt"
	"net/url"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	mcperrors "github.com/modelcontext-go/streamable-transport/pkg/errors"
	"github.com/modelcontext-go/streamable-transport/pkg/logging"
	"github.com/modelcontext-go/streamable-transport/pkg/observability"
	"github.com/modelcontext-go/streamable-transport/pkg/protocol"
)

type streamKind int

const (
	streamPerRequest streamKind = iota
	streamStandalone
)

// activeStream tracks one open (or reconnecting) SSE connection.
type activeStream struct {
	id         string
	kind       streamKind
	requestIDs map[string]struct{}

	mu          sync.Mutex
	lastEventID string
	resumable   bool
	attempt     int

	cancel context.CancelFunc
	done   chan struct{}
}

func (s *activeStream) setLastEventID(id string) {
	s.mu.Lock()
	s.lastEventID = id
	s.mu.Unlock()
}

func (s *activeStream) getLastEventID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastEventID
}

func (s *activeStream) markResumable() {
	s.mu.Lock()
	s.resumable = true
	s.mu.Unlock()
}

func (s *activeStream) isResumable() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.resumable
}

// Transport is the client-side Streamable HTTP transport for one endpoint.
// It owns lifecycle, session id, and the registry of active SSE streams; it
// does not interpret JSON-RPC message semantics. The session id is taken
// from the first response that carries an mcp-session-id header, whichever
// request that response answers; the request's method (initialize or
// otherwise) is not checked.
type Transport struct {
	endpoint *url.URL
	cfg      *config

	tracing *observability.TracingProvider

	started           atomic.Bool
	closed            atomic.Bool
	standaloneStarted atomic.Bool

	mu        sync.Mutex
	sessionID string

	streams sync.Map // map[string]*activeStream

	rootCtx    context.Context
	rootCancel context.CancelFunc

	onMessage protocol.ReceiveHandler
	onError   protocol.ErrorHandler
	onClose   protocol.CloseHandler
}

// New constructs a Transport bound to endpoint. It does not perform network
// I/O; call Start and then Send/TerminateSession to use it.
func New(endpoint string, opts ...Option) (*Transport, error) {
	u, err := url.Parse(endpoint)
	if err != nil {
		return nil, fmt.Errorf("invalid endpoint: %w", err)
	}
	if !u.IsAbs() {
		return nil, fmt.Errorf("endpoint must be an absolute URL, got %q", endpoint)
	}

	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Transport{
		endpoint:   u,
		cfg:        cfg,
		tracing:    cfg.tracing,
		rootCtx:    ctx,
		rootCancel: cancel,
	}, nil
}

// OnMessage registers the callback invoked for every delivered JSON-RPC
// message, whether it arrived as a plain JSON body or one SSE event.
func (t *Transport) OnMessage(fn protocol.ReceiveHandler) { t.onMessage = fn }

// OnError registers the callback invoked for errors the transport cannot
// resolve on its own (reconnect exhaustion, an unresolved 401, a dropped
// SSE event).
func (t *Transport) OnError(fn protocol.ErrorHandler) { t.onError = fn }

// OnClose registers the callback invoked once after the transport has fully
// shut down.
func (t *Transport) OnClose(fn protocol.CloseHandler) { t.onClose = fn }

func (t *Transport) deliverMessage(data []byte) {
	if t.onMessage != nil {
		t.onMessage(data)
	}
}

func (t *Transport) reportError(err error) {
	t.cfg.logger.WithError(err).Debug("streamablehttp: reporting error")
	if t.onError != nil {
		t.onError(err)
	}
}

// Start marks the transport as started. It is idempotent in the sense that
// calling it once succeeds; calling it again, or after Close, fails. Start
// never opens a network connection itself — a caller that wants the
// standalone listening stream open must call ListenStandalone.
func (t *Transport) Start(ctx context.Context) error {
	if t.closed.Load() {
		return mcperrors.OperationCancelled("start")
	}
	if !t.started.CompareAndSwap(false, true) {
		return fmt.Errorf("transport already started")
	}
	return nil
}

// ListenStandalone opens the transport's standalone listening stream: a GET
// held open for server-initiated notifications that arrive outside any
// per-request response. lastEventID, if non-empty, is sent as the
// Last-Event-ID header on the opening request, the same resumption token a
// reconnect would carry, supplied up front so a server that buffers recent
// events can replay what the caller has missed since that id.
//
// ListenStandalone may be called at most once per Transport; once the
// initial GET is issued, reconnection after a drop is handled internally by
// the Resumption Manager. A synchronous failure to open the stream (other
// than a 405 decline, which is not treated as an error) is returned
// directly; failures after that point surface through OnError.
func (t *Transport) ListenStandalone(ctx context.Context, lastEventID string) error {
	if err := t.checkNotClosed("listenStandalone"); err != nil {
		return err
	}
	if !t.standaloneStarted.CompareAndSwap(false, true) {
		return fmt.Errorf("standalone stream already started")
	}
	return t.runStandaloneStream(ctx, lastEventID)
}

// SessionID returns the currently captured session id, if any.
func (t *Transport) SessionID() (string, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.sessionID, t.sessionID != ""
}

func (t *Transport) captureSessionID(id string) {
	if id == "" {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.sessionID == "" {
		t.sessionID = id
		t.cfg.logger.Debug("captured session id", logging.String("session_id", id))
		t.cfg.metrics.RecordSessionState(true)
	}
}

func (t *Transport) clearSessionID() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.sessionID = ""
	t.cfg.metrics.RecordSessionState(false)
}

func (t *Transport) currentSessionID() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.sessionID
}

func (t *Transport) registerStream(st *activeStream) {
	t.streams.Store(st.id, st)
}

func (t *Transport) removeStream(id string) {
	if v, ok := t.streams.LoadAndDelete(id); ok {
		st := v.(*activeStream)
		kind := "request"
		if st.kind == streamStandalone {
			kind = "standalone"
		}
		t.cfg.metrics.RecordStreamClosed(kind)
	}
}

func newStreamID(prefix string) string {
	return prefix + "-" + uuid.NewString()
}

// Close aborts all active streams, cancels pending reconnection timers, and
// marks the transport closed. Further Send/TerminateSession calls fail with
// a ConnectionClosed error.
func (t *Transport) Close() error {
	if !t.closed.CompareAndSwap(false, true) {
		return nil
	}

	t.rootCancel()

	var g errgroup.Group
	t.streams.Range(func(key, value interface{}) bool {
		st := value.(*activeStream)
		g.Go(func() error {
			st.cancel()
			if st.done != nil {
				<-st.done
			}
			return nil
		})
		return true
	})
	_ = g.Wait()

	if t.cfg.metrics != nil {
		_ = t.cfg.metrics.Shutdown(context.Background())
	}
	if t.tracing != nil {
		_ = t.tracing.Shutdown(context.Background())
	}

	if t.onClose != nil {
		t.onClose()
	}
	return nil
}

func (t *Transport) checkNotClosed(operation string) error {
	if t.closed.Load() {
		return mcperrors.ConnectionClosed(t.endpoint.String(), fmt.Errorf("%s issued after close", operation))
	}
	return nil
}
