package streamablehttp

import (
	"context"
	"net/http"
)

// composeHeaders builds the header set for one outbound request following
// §4.6's merge order (later wins), re-evaluated fresh on every call so late
// mutations to the caller's RequestInit.Headers are always visible.
type headerParams struct {
	method      string // http.MethodGet/Post/Delete
	sessionID   string
	accessToken string
	lastEventID string
}

func (t *Transport) composeHeaders(ctx context.Context, p headerParams) http.Header {
	h := make(http.Header)

	// 1. Default Accept. Invariant 2 scopes this to POST/GET, which may open
	// a stream; DELETE carries the session id only.
	if p.method != http.MethodDelete {
		h.Set("Accept", "application/json, text/event-stream")
	}

	// 2. Caller-supplied headers, dict or multi-map, re-read every call.
	// A caller key replaces any earlier value; repeated values for the same
	// key from a multi-map source are all kept.
	if t.cfg.requestInit.Headers != nil {
		replaced := map[string]bool{}
		t.cfg.requestInit.Headers.ForEach(func(key, value string) {
			key = http.CanonicalHeaderKey(key)
			if !replaced[key] {
				h.Del(key)
				replaced[key] = true
			}
			h.Add(key, value)
		})
	}

	// 3. Authorization, if the auth coordinator holds a current token.
	if p.accessToken != "" {
		h.Set("Authorization", "Bearer "+p.accessToken)
	}

	// 4. Session id, if one has been captured.
	if p.sessionID != "" {
		h.Set("mcp-session-id", p.sessionID)
	}

	// 5. Last-Event-ID on reconnection GETs.
	if p.lastEventID != "" {
		h.Set("Last-Event-ID", p.lastEventID)
	}

	// 6. Content-Type for POST bodies.
	if p.method == http.MethodPost {
		h.Set("Content-Type", "application/json")
	}

	return h
}
