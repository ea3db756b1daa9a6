// Package server implements the MCP (Model Context Protocol) server for barcode
// click detection.
//
// This package provides a JSON-RPC 2.0 server that turns click triggers into
// detection cycles and hands the decoded payloads back to the client.
//
// # Protocol
//
// The server communicates over stdio using JSON-RPC 2.0:
//   - Input: JSON-RPC requests on stdin (one per line)
//   - Output: JSON-RPC responses and notifications on stdout
//
// Supported MCP methods:
//   - initialize: Protocol handshake
//   - tools/list: Enumerate available tools
//   - tools/call: Execute a tool with arguments
//   - ping: Health check
//
// # Available Tools
//
// Detection:
//   - barcode_detect: Queue a detection cycle for one click
//   - barcode_status: Badge state and queue length
//
// Options:
//   - barcode_options: Current options and their file
//   - barcode_options_reload: Re-read the options file
//
// barcode_detect returns as soon as the cycle is queued unless "wait" is set.
// With "wait" the response is written when the cycle ends, from its own
// goroutine, so requests that arrive meanwhile are still served and responses
// may leave out of request order.
//
// # Notifications
//
// When the client owns the browser and clipboard, a Notifier stands in for
// the open, copy and badge surfaces:
//   - notifications/barcode/open: one dispatch.OpenRequest
//   - notifications/barcode/copy: one dispatch.CopyRequest, paced by the client
//   - notifications/barcode/badge: state, count, text and color
//
// # Error Handling
//
// Tool execution errors are returned as JSON-RPC error responses with:
//   - code: -32000 (tool execution failure) or standard JSON-RPC codes
//   - message: Human-readable error description
//   - data: Additional error details (typically the Go error string)
//
// An aborted detection cycle is not a tool error: its outcome carries the
// stage it stopped at and the cause.
//
// # Usage
//
//	out := server.NewTransport(os.Stdout)
//	srv := server.New(server.Deps{Detector: p, Options: store, Badge: m, Transport: out})
//	if err := srv.Run(); err != nil {
//	    log.Fatal(err)
//	}
package server
