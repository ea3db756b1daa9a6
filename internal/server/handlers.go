package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/ironsheep/barcode-mcp/internal/config"
	"github.com/ironsheep/barcode-mcp/internal/pipeline"
	"github.com/ironsheep/barcode-mcp/internal/region"
)

// DefaultWaitTimeout bounds how long barcode_detect waits for its cycle.
const DefaultWaitTimeout = 30 * time.Second

// ToolCallParams represents the parameters for a tools/call MCP request.
type ToolCallParams struct {
	// Name is the tool to invoke (e.g., "barcode_detect", "barcode_status").
	Name string `json:"name"`

	// Arguments contains the tool-specific parameters as JSON.
	Arguments json.RawMessage `json:"arguments"`
}

// deferred is returned by a tool whose result is not ready yet. The response
// is written from a separate goroutine once wait returns, so the read loop
// keeps serving other requests.
type deferred struct {
	wait func() (interface{}, error)
}

// handleToolsCall processes a tools/call request and executes the specified tool.
//
// The response wraps the tool result in MCP's content format:
//
//	{
//	  "content": [{"type": "text", "text": "<JSON result>"}]
//	}
//
// Tool execution errors return a JSON-RPC error response with code -32000.
// A deferred result returns nil here; its response is sent later.
func (s *Server) handleToolsCall(req *MCPRequest) *MCPResponse {
	var params ToolCallParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return s.errorResponse(req.ID, -32602, "Invalid params", err.Error())
	}

	result, err := s.executeTool(params.Name, params.Arguments)
	if d, ok := result.(deferred); ok && err == nil {
		s.pending.Add(1)
		go func() {
			defer s.pending.Done()
			r, err := d.wait()
			if err := s.out.Send(s.toolResponse(req.ID, r, err)); err != nil {
				s.logger.Error("failed to encode deferred response", "error", err)
			}
		}()
		return nil
	}
	return s.toolResponse(req.ID, result, err)
}

func (s *Server) toolResponse(id interface{}, result interface{}, err error) *MCPResponse {
	if err != nil {
		return s.errorResponse(id, -32000, "Tool execution failed", err.Error())
	}

	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      id,
		Result: map[string]interface{}{
			"content": []map[string]interface{}{
				{
					"type": "text",
					"text": mustMarshalJSON(result),
				},
			},
		},
	}
}

// executeTool dispatches tool execution to the appropriate handler function.
func (s *Server) executeTool(name string, args json.RawMessage) (interface{}, error) {
	switch name {
	// Detection
	case "barcode_detect":
		return s.handleBarcodeDetect(args)
	case "barcode_status":
		return s.handleBarcodeStatus(args)

	// Options
	case "barcode_options":
		return s.handleBarcodeOptions(args)
	case "barcode_options_reload":
		return s.handleBarcodeOptionsReload(args)
	case "barcode_options_update":
		return s.handleBarcodeOptionsUpdate(args)

	default:
		return nil, fmt.Errorf("unknown tool: %s", name)
	}
}

// errorResponse creates a JSON-RPC error response with the given details.
func (s *Server) errorResponse(id interface{}, code int, message, data string) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      id,
		Error: &MCPError{
			Code:    code,
			Message: message,
			Data:    data,
		},
	}
}

// mustMarshalJSON converts a value to pretty-printed JSON string.
// Panics are suppressed; on marshal failure, returns an empty string.
func mustMarshalJSON(v interface{}) string {
	b, _ := json.MarshalIndent(v, "", "  ")
	return string(b)
}

// unmarshalArgs tolerates a missing arguments object.
func unmarshalArgs(args json.RawMessage, v interface{}) error {
	if len(args) == 0 || string(args) == "null" {
		return nil
	}
	return json.Unmarshal(args, v)
}

// === Detection Handlers ===

type barcodeDetectArgs struct {
	region.Trigger
	Wait      bool `json:"wait"`
	TimeoutMs int  `json:"timeout_ms"`
}

// detectQueued is the barcode_detect result when the caller does not wait.
type detectQueued struct {
	CycleID string `json:"cycle_id"`
	Status  string `json:"status"`
	Pending int    `json:"pending"`
	Running bool   `json:"running"`
}

func (s *Server) handleBarcodeDetect(args json.RawMessage) (interface{}, error) {
	if s.detector == nil {
		return nil, errors.New("detection is not configured")
	}
	var a barcodeDetectArgs
	if err := unmarshalArgs(args, &a); err != nil {
		return nil, err
	}
	if a.TimeoutMs < 0 {
		return nil, fmt.Errorf("timeout_ms must be non-negative, got %d", a.TimeoutMs)
	}

	ticket, err := s.detector.Trigger(a.Trigger)
	if err != nil {
		return nil, err
	}
	if !a.Wait {
		return detectQueued{CycleID: ticket.ID, Status: "queued", Pending: s.detector.Pending()}, nil
	}

	timeout := DefaultWaitTimeout
	if a.TimeoutMs > 0 {
		timeout = time.Duration(a.TimeoutMs) * time.Millisecond
	}
	return deferred{wait: func() (interface{}, error) {
		return awaitOutcome(ticket, timeout)
	}}, nil
}

// awaitOutcome waits for the cycle behind ticket. An aborted cycle is still a
// result: the outcome carries the error text and the stage it stopped at.
func awaitOutcome(ticket pipeline.Ticket, timeout time.Duration) (interface{}, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case o, ok := <-ticket.Done:
		if !ok {
			return nil, fmt.Errorf("cycle %s ended without an outcome", ticket.ID)
		}
		return o, nil
	case <-timer.C:
		return detectQueued{CycleID: ticket.ID, Status: "pending"}, nil
	}
}

type barcodeStatus struct {
	Badge   string `json:"badge"`
	State   string `json:"state"`
	Count   int    `json:"count"`
	Pending int    `json:"pending"`
	Running bool   `json:"running"`
}

func (s *Server) handleBarcodeStatus(args json.RawMessage) (interface{}, error) {
	var st barcodeStatus
	if s.badge != nil {
		cur := s.badge.Current()
		st.Badge = cur.String()
		st.State = cur.Kind.String()
		st.Count = cur.Count
	}
	if s.detector != nil {
		st.Pending = s.detector.Pending()
		st.Running = s.detector.Running()
	}
	return st, nil
}

// === Options Handlers ===

type optionsResult struct {
	Path    string         `json:"path"`
	Options config.Options `json:"options"`
}

func (s *Server) handleBarcodeOptions(args json.RawMessage) (interface{}, error) {
	if s.options == nil {
		return nil, errors.New("options are not configured")
	}
	return optionsResult{Path: s.options.Path(), Options: s.options.Snapshot()}, nil
}

func (s *Server) handleBarcodeOptionsReload(args json.RawMessage) (interface{}, error) {
	if s.options == nil {
		return nil, errors.New("options are not configured")
	}
	opts, err := s.options.Reload()
	if err != nil {
		return nil, fmt.Errorf("reload %s: %w", s.options.Path(), err)
	}
	s.logger.Info("options reloaded", "path", s.options.Path())
	return optionsResult{Path: s.options.Path(), Options: opts}, nil
}

type barcodeOptionsUpdateArgs struct {
	Options json.RawMessage `json:"options"`
}

func (s *Server) handleBarcodeOptionsUpdate(args json.RawMessage) (interface{}, error) {
	if s.options == nil {
		return nil, errors.New("options are not configured")
	}
	var a barcodeOptionsUpdateArgs
	if err := unmarshalArgs(args, &a); err != nil {
		return nil, err
	}
	if len(a.Options) == 0 || string(a.Options) == "null" {
		return nil, errors.New("options is required")
	}

	opts := s.options.Snapshot()
	if err := json.Unmarshal(a.Options, &opts); err != nil {
		return nil, fmt.Errorf("invalid options: %w", err)
	}
	opts, err := s.options.Update(opts)
	if err != nil {
		return nil, err
	}
	s.logger.Info("options updated", "path", s.options.Path())
	return optionsResult{Path: s.options.Path(), Options: opts}, nil
}
