package server

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"

	"github.com/ironsheep/barcode-mcp/internal/badge"
	"github.com/ironsheep/barcode-mcp/internal/config"
	"github.com/ironsheep/barcode-mcp/internal/pipeline"
	"github.com/ironsheep/barcode-mcp/internal/region"
)

// maxMessageBytes bounds one JSON-RPC line. Triggers can carry data: URLs.
const maxMessageBytes = 32 << 20

// Detector queues detection cycles. *pipeline.Pipeline implements it.
type Detector interface {
	Trigger(t region.Trigger) (pipeline.Ticket, error)
	Pending() int
	Running() bool
}

// OptionsStore serves, reloads and updates user options. *config.Store
// implements it.
type OptionsStore interface {
	config.Provider
	Reload() (config.Options, error)
	Update(opts config.Options) (config.Options, error)
	Path() string
}

// BadgeReader reports the committed badge state. *badge.Machine implements it.
type BadgeReader interface {
	Current() badge.State
}

// Deps are the collaborators of a Server.
type Deps struct {
	Detector  Detector
	Options   OptionsStore
	Badge     BadgeReader
	Transport *Transport
	Logger    *slog.Logger
	Version   string
}

// Server handles MCP protocol communication
type Server struct {
	detector Detector
	options  OptionsStore
	badge    BadgeReader
	out      *Transport
	logger   *slog.Logger
	version  string

	pending sync.WaitGroup // deferred tool responses
}

// MCPRequest represents an incoming JSON-RPC request
type MCPRequest struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      interface{}     `json:"id"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// MCPResponse represents an outgoing JSON-RPC response
type MCPResponse struct {
	JSONRPC string      `json:"jsonrpc"`
	ID      interface{} `json:"id"`
	Result  interface{} `json:"result,omitempty"`
	Error   *MCPError   `json:"error,omitempty"`
}

// MCPError represents a JSON-RPC error
type MCPError struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// MCPNotification represents an outgoing notification (no ID)
type MCPNotification struct {
	JSONRPC string      `json:"jsonrpc"`
	Method  string      `json:"method"`
	Params  interface{} `json:"params,omitempty"`
}

// Transport writes JSON-RPC messages, one per line. Responses and
// notifications come from different goroutines, so writes are serialized.
type Transport struct {
	mu  sync.Mutex
	enc *json.Encoder
}

// NewTransport creates a Transport writing to w.
func NewTransport(w io.Writer) *Transport {
	return &Transport{enc: json.NewEncoder(w)}
}

// Send writes one message.
func (t *Transport) Send(v interface{}) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.enc.Encode(v)
}

// Notify writes a notification.
func (t *Transport) Notify(method string, params interface{}) error {
	return t.Send(&MCPNotification{JSONRPC: "2.0", Method: method, Params: params})
}

// New creates a new MCP server instance. A nil Transport writes to stdout.
func New(deps Deps) *Server {
	logger := deps.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	out := deps.Transport
	if out == nil {
		out = NewTransport(os.Stdout)
	}
	version := deps.Version
	if version == "" {
		version = "dev"
	}
	return &Server{
		detector: deps.Detector,
		options:  deps.Options,
		badge:    deps.Badge,
		out:      out,
		logger:   logger,
		version:  version,
	}
}

// Run starts the MCP server, reading from stdin
func (s *Server) Run() error {
	return s.Serve(os.Stdin)
}

// Serve reads requests from r until EOF and writes responses through the
// server's Transport. Deferred responses still in flight are awaited before
// it returns.
func (s *Server) Serve(r io.Reader) error {
	defer s.pending.Wait()

	scanner := bufio.NewScanner(r)
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, maxMessageBytes)

	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var req MCPRequest
		if err := json.Unmarshal(line, &req); err != nil {
			s.logger.Warn("failed to parse request", "error", err)
			continue
		}

		resp := s.handleRequest(&req)
		if resp != nil {
			if err := s.out.Send(resp); err != nil {
				s.logger.Error("failed to encode response", "error", err)
			}
		}
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("scanner error: %w", err)
	}

	return nil
}

// handleRequest routes requests to appropriate handlers
func (s *Server) handleRequest(req *MCPRequest) *MCPResponse {
	s.logger.Debug("request", "method", req.Method)
	switch req.Method {
	case "initialize":
		return s.handleInitialize(req)
	case "notifications/initialized":
		// Client acknowledgment, no response needed
		return nil
	case "tools/list":
		return s.handleToolsList(req)
	case "tools/call":
		return s.handleToolsCall(req)
	case "ping":
		return &MCPResponse{
			JSONRPC: "2.0",
			ID:      req.ID,
			Result:  map[string]interface{}{},
		}
	default:
		return &MCPResponse{
			JSONRPC: "2.0",
			ID:      req.ID,
			Error: &MCPError{
				Code:    -32601,
				Message: fmt.Sprintf("Method not found: %s", req.Method),
			},
		}
	}
}

// handleInitialize responds to the initialize request
func (s *Server) handleInitialize(req *MCPRequest) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"protocolVersion": "2024-11-05",
			"capabilities": map[string]interface{}{
				"tools": map[string]interface{}{},
			},
			"serverInfo": map[string]interface{}{
				"name":    "barcode-mcp",
				"version": s.version,
			},
		},
	}
}
