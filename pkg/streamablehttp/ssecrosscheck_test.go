package streamablehttp

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/tmaxmax/go-sse"
)

// sseFixture is a small multi-event stream exercising ids, explicit event
// types, the default (unset) event type, and multi-line data, the same
// shapes consumeStream relies on for resumption.
const sseFixture = "id: 1\ndata: hello\n\n" +
	"event: ping\ndata: {}\n\n" +
	"id: 3\ndata: line one\ndata: line two\n\n"

// TestSSECrossCheckAgainstGoSSE decodes the same fixture through the
// hand-rolled resumption-critical reader and through go-sse's sse.Read, and
// asserts they agree on every event's type and data. This is the only place
// go-sse is exercised: consumeStream's actual reconnection path stays on
// decodeSSE, grounded on the teacher's readEvents, because it needs the bare
// \r line-ending and lastEventId-before-delivery guarantees that
// resumption's invariants pin down exactly.
func TestSSECrossCheckAgainstGoSSE(t *testing.T) {
	var handRolled []sseEvent
	err := decodeSSE(strings.NewReader(sseFixture), func(ev sseEvent) {
		handRolled = append(handRolled, ev)
	})
	require.NoError(t, err)
	require.Len(t, handRolled, 3)

	var viaGoSSE []sse.Event
	for ev, err := range sse.Read(strings.NewReader(sseFixture), nil) {
		require.NoError(t, err)
		viaGoSSE = append(viaGoSSE, ev)
	}
	require.Len(t, viaGoSSE, 3)

	for i := range handRolled {
		require.Equal(t, handRolled[i].Data, viaGoSSE[i].Data, "event %d data mismatch", i)

		wantType := handRolled[i].Type
		if wantType == "" {
			wantType = "message" // go-sse defaults an unset event: field to "message"
		}
		require.Equal(t, wantType, viaGoSSE[i].Type, "event %d type mismatch", i)
	}
}
