package protocol

// ReceiveHandler is called for every message the transport delivers,
// whether it arrived as a plain JSON body or as one SSE event's data field.
type ReceiveHandler func(data []byte)

// ErrorHandler is called when the transport encounters an error it cannot
// recover from on its own (a reconnect exhaustion, an unresolved 401).
type ErrorHandler func(err error)

// CloseHandler is called once, from Close(), after the transport has fully
// shut down. A server ending the session or a stream does not call it.
type CloseHandler func()
