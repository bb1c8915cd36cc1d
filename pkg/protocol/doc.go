// Package protocol defines the JSON-RPC 2.0 message envelope used by the
// streamable HTTP transport: requests, responses, notifications, batches,
// and the sniffing helpers (IsRequest, IsResponse, IsNotification, IsBatch)
// used to classify a raw message body without a schema.
//
// The transport itself is agnostic to method names and params shapes; this
// package only concerns itself with the JSON-RPC envelope, not any
// particular RPC surface built on top of it.
package protocol
