// Package protocol defines the JSON-RPC 2.0 framing and the tool-catalogue
// message shapes exchanged between the gateway and its clients.
package protocol

import (
	"encoding/json"
	"fmt"
)

// Version is the protocol revision announced during initialization.
const Version = "2024-11-05"

// Method names understood by the gateway.
const (
	MethodInitialize  = "initialize"
	MethodInitialized = "notifications/initialized"
	MethodListTools   = "tools/list"
	MethodCallTool    = "tools/call"
	MethodPing        = "ping"
)

// ErrorCode is a JSON-RPC 2.0 error code.
type ErrorCode int

const (
	ErrorCodeParseError     ErrorCode = -32700
	ErrorCodeInvalidRequest ErrorCode = -32600
	ErrorCodeMethodNotFound ErrorCode = -32601
	ErrorCodeInvalidParams  ErrorCode = -32602
	ErrorCodeInternalError  ErrorCode = -32603
)

// ErrorPayload is the 'error' member of a JSON-RPC response.
type ErrorPayload struct {
	Code    ErrorCode   `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// JSONRPCRequest represents a standard JSON-RPC request object. A request
// without an ID is a notification and receives no response.
type JSONRPCRequest struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      interface{}     `json:"id,omitempty"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// IsNotification reports whether the request carries no ID.
func (r *JSONRPCRequest) IsNotification() bool { return r.ID == nil }

// JSONRPCResponse represents a standard JSON-RPC response object.
type JSONRPCResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      interface{}     `json:"id"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *ErrorPayload   `json:"error,omitempty"`
}

// NewRequest creates a JSON-RPC request with marshaled params.
func NewRequest(id interface{}, method string, params interface{}) (*JSONRPCRequest, error) {
	req := &JSONRPCRequest{JSONRPC: "2.0", ID: id, Method: method}
	if params != nil {
		raw, err := json.Marshal(params)
		if err != nil {
			return nil, fmt.Errorf("marshal params for %s: %w", method, err)
		}
		req.Params = raw
	}
	return req, nil
}

// NewSuccessResponse creates a JSON-RPC success response with a marshaled result.
func NewSuccessResponse(id interface{}, result interface{}) *JSONRPCResponse {
	raw, err := json.Marshal(result)
	if err != nil {
		return NewErrorResponse(id, ErrorCodeInternalError, fmt.Sprintf("marshal result: %v", err), nil)
	}
	return &JSONRPCResponse{JSONRPC: "2.0", ID: id, Result: raw}
}

// NewErrorResponse creates a JSON-RPC error response.
func NewErrorResponse(id interface{}, code ErrorCode, message string, data interface{}) *JSONRPCResponse {
	return &JSONRPCResponse{
		JSONRPC: "2.0",
		ID:      id,
		Error:   &ErrorPayload{Code: code, Message: message, Data: data},
	}
}

// UnmarshalResult decodes a response result into target, surfacing the
// response error if one is present.
func (r *JSONRPCResponse) UnmarshalResult(target interface{}) error {
	if r.Error != nil {
		return fmt.Errorf("rpc error %d: %s", r.Error.Code, r.Error.Message)
	}
	if len(r.Result) == 0 {
		return fmt.Errorf("response has empty result")
	}
	return json.Unmarshal(r.Result, target)
}

// Implementation identifies a protocol participant.
type Implementation struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// ToolsCapability advertises tool support.
type ToolsCapability struct {
	ListChanged bool `json:"listChanged,omitempty"`
}

// ServerCapabilities lists the features a server supports.
type ServerCapabilities struct {
	Tools *ToolsCapability `json:"tools,omitempty"`
}

// ClientCapabilities lists the features a client supports. Empty for now;
// kept as a struct so the wire shape stays stable.
type ClientCapabilities struct{}

// InitializeParams is the payload of an 'initialize' request.
type InitializeParams struct {
	ProtocolVersion string             `json:"protocolVersion"`
	Capabilities    ClientCapabilities `json:"capabilities"`
	ClientInfo      Implementation     `json:"clientInfo"`
}

// InitializeResult is the payload of a successful 'initialize' response.
type InitializeResult struct {
	ProtocolVersion string             `json:"protocolVersion"`
	Capabilities    ServerCapabilities `json:"capabilities"`
	ServerInfo      Implementation     `json:"serverInfo"`
	Instructions    string             `json:"instructions,omitempty"`
}

// PropertyDetail describes a single parameter within a ToolInputSchema.
type PropertyDetail struct {
	Type        string          `json:"type"`
	Description string          `json:"description,omitempty"`
	Enum        []string        `json:"enum,omitempty"`
	Items       *PropertyDetail `json:"items,omitempty"`
}

// ToolInputSchema defines the expected input for a tool (JSON Schema subset).
type ToolInputSchema struct {
	Type       string                    `json:"type"`
	Properties map[string]PropertyDetail `json:"properties,omitempty"`
	Required   []string                  `json:"required,omitempty"`
}

// Tool describes one registered operation.
type Tool struct {
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	InputSchema ToolInputSchema `json:"inputSchema"`
}

// ListToolsResult is the payload of a 'tools/list' response.
type ListToolsResult struct {
	Tools []Tool `json:"tools"`
}

// CallToolParams is the payload of a 'tools/call' request.
type CallToolParams struct {
	Name      string                 `json:"name"`
	Arguments map[string]interface{} `json:"arguments,omitempty"`
}

// Content is one piece of tool output. Only text content is produced here.
type Content struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

// TextContent wraps a string as tool output content.
func TextContent(text string) Content {
	return Content{Type: "text", Text: text}
}

// CallToolResult is the payload of a 'tools/call' response. IsError marks a
// tool-level failure the caller is expected to read and react to; transport
// and dispatch failures use JSON-RPC errors instead.
type CallToolResult struct {
	Content []Content `json:"content"`
	IsError bool      `json:"isError,omitempty"`
}

// Text concatenates all text content of a tool result.
func (r *CallToolResult) Text() string {
	var out string
	for _, c := range r.Content {
		if c.Type == "text" {
			out += c.Text
		}
	}
	return out
}
