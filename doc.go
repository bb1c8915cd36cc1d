// Package streamabletransport is the root of a client-side MCP Streamable
// HTTP transport: a single HTTP endpoint that carries JSON-RPC requests,
// responses, notifications, and server-initiated resumable SSE streams.
//
// # Overview
//
// The module is organized into sub-packages:
//
//   - pkg/streamablehttp: the transport itself (Controller, Dispatcher, SSE
//     reader, Resumption Manager, Auth Coordinator, Header Composer)
//   - pkg/protocol: the JSON-RPC 2.0 envelope and message-kind sniffing
//   - pkg/auth: the OAuth client provider contract used for 401 recovery
//   - pkg/errors: the structured transport error taxonomy
//   - pkg/logging: a small structured leveled logger
//   - pkg/observability: Prometheus metrics for transport operations
//
// # Creating a transport
//
//	import (
//	    "context"
//	    "github.com/modelcontext-go/streamable-transport/pkg/streamablehttp"
//	)
//
//	func main() {
//	    ctx := context.Background()
//
//	    transport, err := streamablehttp.New("https://example.com/mcp")
//	    if err != nil {
//	        // Handle error
//	    }
//
//	    transport.OnMessage(func(data []byte) {
//	        // handle a JSON-RPC message pushed by the server
//	    })
//
//	    if err := transport.Start(ctx); err != nil {
//	        // Handle error
//	    }
//	    defer transport.Close()
//
//	    if err := transport.Send(ctx, someJSONRPCMessage); err != nil {
//	        // Handle error
//	    }
//	}
package streamabletransport
