package server

// Tool represents an MCP tool definition
type Tool struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	InputSchema map[string]interface{} `json:"inputSchema"`
}

func numberProp(description string) map[string]interface{} {
	return map[string]interface{}{
		"type":        "number",
		"description": description,
	}
}

// GetToolDefinitions returns all available tools
func GetToolDefinitions() []Tool {
	return []Tool{
		// Detection
		{
			Name: "barcode_detect",
			Description: "Detect QR codes around a click and dispatch their payloads. " +
				"Each call queues one detection cycle; cycles run one at a time in call order. " +
				"Decoded payloads are opened and copied according to the current options.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"x":               numberProp("Click X in CSS pixels, relative to the reference element"),
					"y":               numberProp("Click Y in CSS pixels, relative to the reference element"),
					"ref_width":       numberProp("Width of the clicked element in CSS pixels"),
					"ref_height":      numberProp("Height of the clicked element in CSS pixels"),
					"ref_left":        numberProp("Left of the clicked element within the viewport"),
					"ref_top":         numberProp("Top of the clicked element within the viewport"),
					"viewport_width":  numberProp("Viewport width in CSS pixels"),
					"viewport_height": numberProp("Viewport height in CSS pixels"),
					"image_url": map[string]interface{}{
						"type":        "string",
						"description": "Source of the clicked image (http(s) or data: URL; file: URLs and paths only when the host allows local files). Omit when the click is not on an image.",
					},
					"viewport_capture": map[string]interface{}{
						"type":        "string",
						"description": "data: URL of the client's capture of its visible viewport, used for whole-page and under-cursor analysis instead of a host screen grab",
					},
					"wait": map[string]interface{}{
						"type":        "boolean",
						"description": "Respond with the cycle outcome instead of returning once queued",
						"default":     false,
					},
					"timeout_ms": map[string]interface{}{
						"type":        "integer",
						"description": "How long to wait for the outcome when wait is set",
						"default":     30000,
					},
				},
				"required": []string{"x", "y", "ref_width", "ref_height", "viewport_width", "viewport_height"},
			},
		},
		{
			Name:        "barcode_status",
			Description: "Report the badge state, the number of detection cycles queued or running, and whether one is running now.",
			InputSchema: map[string]interface{}{
				"type":       "object",
				"properties": map[string]interface{}{},
			},
		},

		// Options
		{
			Name:        "barcode_options",
			Description: "Return the options currently in effect and the file they are loaded from.",
			InputSchema: map[string]interface{}{
				"type":       "object",
				"properties": map[string]interface{}{},
			},
		},
		{
			Name:        "barcode_options_reload",
			Description: "Re-read the options file. Cycles already past a stage keep the values they read; later stages use the new ones.",
			InputSchema: map[string]interface{}{
				"type":       "object",
				"properties": map[string]interface{}{},
			},
		},
		{
			Name: "barcode_options_update",
			Description: "Change options. Fields given are applied over the current options; the result is validated, " +
				"written to the options file when one is configured, and takes effect for later stages.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"options": map[string]interface{}{
						"type":        "object",
						"description": "Partial options in the same shape barcode_options returns (region, open, copy)",
					},
				},
				"required": []string{"options"},
			},
		},
	}
}

// handleToolsList returns the list of available tools
func (s *Server) handleToolsList(req *MCPRequest) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"tools": GetToolDefinitions(),
		},
	}
}
