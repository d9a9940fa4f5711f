// Package mcpserver hosts a tool registry and serves it over stdio or SSE.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/quantbrew/algochat/internal/protocol"
)

// ToolHandler executes one tool call. The args map carries the raw decoded
// JSON arguments; typed registration via RegisterTool is preferred.
type ToolHandler func(ctx context.Context, args map[string]interface{}) (string, error)

// ToolError is a tool-level failure that should be surfaced to the caller
// as a structured error result instead of a transport fault.
type ToolError struct {
	Kind    string `json:"error"`
	Message string `json:"message"`
}

func (e *ToolError) Error() string { return fmt.Sprintf("%s: %s", e.Kind, e.Message) }

type registeredTool struct {
	tool    protocol.Tool
	handler ToolHandler
}

// Server is the transport-independent tool server core.
type Server struct {
	name         string
	instructions string
	logger       *zap.Logger

	mu    sync.RWMutex
	tools map[string]*registeredTool
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the server logger.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithInstructions sets the instructions string returned during initialization.
func WithInstructions(instructions string) Option {
	return func(s *Server) { s.instructions = instructions }
}

// NewServer creates a tool server with the given announced name.
func NewServer(name string, opts ...Option) *Server {
	s := &Server{
		name:   name,
		logger: zap.NewNop(),
		tools:  make(map[string]*registeredTool),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Tool registers a raw-argument tool handler.
func (s *Server) Tool(name, description string, schema protocol.ToolInputSchema, handler ToolHandler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if name == "" {
		s.logger.Error("tool name cannot be empty")
		return
	}
	if _, exists := s.tools[name]; exists {
		s.logger.Warn("tool already registered, overwriting", zap.String("name", name))
	}
	s.tools[name] = &registeredTool{
		tool:    protocol.Tool{Name: name, Description: description, InputSchema: schema},
		handler: handler,
	}
	s.logger.Debug("registered tool", zap.String("name", name))
}

// RegisterTool registers a tool whose arguments decode into T. The input
// schema is derived from T's struct tags.
func RegisterTool[T any](s *Server, name, description string, handler func(ctx context.Context, args T) (string, error)) {
	var zero T
	schema := SchemaFromStruct(zero)
	s.Tool(name, description, schema, func(ctx context.Context, raw map[string]interface{}) (string, error) {
		var args T
		if err := DecodeArgs(raw, &args); err != nil {
			return "", &ToolError{Kind: "invalid_arguments", Message: err.Error()}
		}
		return handler(ctx, args)
	})
}

// ListTools returns the registered tools sorted by name.
func (s *Server) ListTools() []protocol.Tool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	tools := make([]protocol.Tool, 0, len(s.tools))
	for _, rt := range s.tools {
		tools = append(tools, rt.tool)
	}
	sort.Slice(tools, func(i, j int) bool { return tools[i].Name < tools[j].Name })
	return tools
}

// HandleMessage dispatches one raw JSON-RPC message and returns the response,
// or nil for notifications.
func (s *Server) HandleMessage(ctx context.Context, raw json.RawMessage) *protocol.JSONRPCResponse {
	var req protocol.JSONRPCRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		return protocol.NewErrorResponse(nil, protocol.ErrorCodeParseError, fmt.Sprintf("parse error: %v", err), nil)
	}
	if req.JSONRPC != "2.0" {
		return protocol.NewErrorResponse(req.ID, protocol.ErrorCodeInvalidRequest, "jsonrpc must be \"2.0\"", nil)
	}

	switch req.Method {
	case protocol.MethodInitialize:
		return s.handleInitialize(&req)
	case protocol.MethodInitialized:
		// Notification; nothing to do.
		return nil
	case protocol.MethodPing:
		return protocol.NewSuccessResponse(req.ID, struct{}{})
	case protocol.MethodListTools:
		return protocol.NewSuccessResponse(req.ID, protocol.ListToolsResult{Tools: s.ListTools()})
	case protocol.MethodCallTool:
		return s.handleCallTool(ctx, &req)
	default:
		if req.IsNotification() {
			s.logger.Debug("ignoring unknown notification", zap.String("method", req.Method))
			return nil
		}
		return protocol.NewErrorResponse(req.ID, protocol.ErrorCodeMethodNotFound,
			fmt.Sprintf("method not found: %s", req.Method), nil)
	}
}

func (s *Server) handleInitialize(req *protocol.JSONRPCRequest) *protocol.JSONRPCResponse {
	var params protocol.InitializeParams
	if len(req.Params) > 0 {
		if err := json.Unmarshal(req.Params, &params); err != nil {
			return protocol.NewErrorResponse(req.ID, protocol.ErrorCodeInvalidParams, err.Error(), nil)
		}
	}
	s.logger.Info("client initializing",
		zap.String("client", params.ClientInfo.Name),
		zap.String("requested_version", params.ProtocolVersion))

	return protocol.NewSuccessResponse(req.ID, protocol.InitializeResult{
		ProtocolVersion: protocol.Version,
		Capabilities:    protocol.ServerCapabilities{Tools: &protocol.ToolsCapability{}},
		ServerInfo:      protocol.Implementation{Name: s.name, Version: "1.0.0"},
		Instructions:    s.instructions,
	})
}

func (s *Server) handleCallTool(ctx context.Context, req *protocol.JSONRPCRequest) *protocol.JSONRPCResponse {
	var params protocol.CallToolParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return protocol.NewErrorResponse(req.ID, protocol.ErrorCodeInvalidParams, err.Error(), nil)
	}

	s.mu.RLock()
	rt, ok := s.tools[params.Name]
	s.mu.RUnlock()
	if !ok {
		return protocol.NewErrorResponse(req.ID, protocol.ErrorCodeInvalidParams,
			fmt.Sprintf("unknown tool: %s", params.Name), nil)
	}

	s.logger.Info("tool call", zap.String("tool", params.Name))
	text, err := rt.handler(ctx, params.Arguments)
	if err != nil {
		// Tool failures are results the model can read, not transport faults.
		payload := toolErrorPayload(err)
		s.logger.Warn("tool call failed", zap.String("tool", params.Name), zap.Error(err))
		return protocol.NewSuccessResponse(req.ID, protocol.CallToolResult{
			Content: []protocol.Content{protocol.TextContent(payload)},
			IsError: true,
		})
	}
	return protocol.NewSuccessResponse(req.ID, protocol.CallToolResult{
		Content: []protocol.Content{protocol.TextContent(text)},
	})
}

// toolErrorPayload renders a handler error as a structured JSON payload with
// an error kind and a human-readable message.
func toolErrorPayload(err error) string {
	te, ok := err.(*ToolError)
	if !ok {
		te = &ToolError{Kind: "internal", Message: err.Error()}
	}
	raw, merr := json.Marshal(te)
	if merr != nil {
		return fmt.Sprintf(`{"error":"internal","message":%q}`, err.Error())
	}
	return string(raw)
}
