// Package mcpclient connects to a tool gateway over SSE or stdio and exposes
// the initialize / list-tools / call-tool operations.
package mcpclient

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/quantbrew/algochat/internal/protocol"
)

// Transport moves raw JSON-RPC messages between client and gateway.
type Transport interface {
	// Start establishes the receive channel; incoming messages are passed to
	// onMessage. It returns once the transport is ready to Send.
	Start(ctx context.Context, onMessage func([]byte)) error
	Send(ctx context.Context, data []byte) error
	Close() error
}

// Client is a gateway client. Safe for concurrent use after Connect.
type Client struct {
	name      string
	transport Transport
	logger    *zap.Logger
	timeout   time.Duration

	mu      sync.Mutex
	pending map[string]chan *protocol.JSONRPCResponse

	connected  atomic.Bool
	serverInfo protocol.Implementation
}

// Option configures a Client.
type Option func(*Client)

// WithLogger sets the client logger.
func WithLogger(logger *zap.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithTimeout sets the per-request timeout (default 30s).
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) { c.timeout = timeout }
}

// New creates a client over the given transport.
func New(name string, transport Transport, opts ...Option) *Client {
	c := &Client{
		name:      name,
		transport: transport,
		logger:    zap.NewNop(),
		timeout:   30 * time.Second,
		pending:   make(map[string]chan *protocol.JSONRPCResponse),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Connect starts the transport and performs the initialize handshake.
func (c *Client) Connect(ctx context.Context) error {
	if c.connected.Load() {
		return nil
	}
	if err := c.transport.Start(ctx, c.dispatch); err != nil {
		return fmt.Errorf("start transport: %w", err)
	}
	c.connected.Store(true)

	var result protocol.InitializeResult
	err := c.request(ctx, protocol.MethodInitialize, protocol.InitializeParams{
		ProtocolVersion: protocol.Version,
		ClientInfo:      protocol.Implementation{Name: c.name, Version: "1.0.0"},
	}, &result)
	if err != nil {
		c.connected.Store(false)
		_ = c.transport.Close()
		return fmt.Errorf("initialize: %w", err)
	}
	c.serverInfo = result.ServerInfo
	c.logger.Info("gateway session initialized",
		zap.String("server", result.ServerInfo.Name),
		zap.String("protocol", result.ProtocolVersion))

	if err := c.notify(ctx, protocol.MethodInitialized, nil); err != nil {
		c.logger.Warn("failed to send initialized notification", zap.Error(err))
	}
	return nil
}

// IsConnected reports whether the handshake completed.
func (c *Client) IsConnected() bool { return c.connected.Load() }

// ServerInfo returns the gateway's announced identity.
func (c *Client) ServerInfo() protocol.Implementation { return c.serverInfo }

// Close tears down the transport and fails all pending requests.
func (c *Client) Close() error {
	c.connected.Store(false)
	err := c.transport.Close()

	c.mu.Lock()
	for id, ch := range c.pending {
		close(ch)
		delete(c.pending, id)
	}
	c.mu.Unlock()
	return err
}

// ListTools fetches the gateway's tool catalogue.
func (c *Client) ListTools(ctx context.Context) ([]protocol.Tool, error) {
	if !c.connected.Load() {
		return nil, fmt.Errorf("not connected")
	}
	var result protocol.ListToolsResult
	if err := c.request(ctx, protocol.MethodListTools, struct{}{}, &result); err != nil {
		return nil, err
	}
	return result.Tools, nil
}

// CallTool invokes one named tool. A result with IsError set is a tool-level
// failure the caller should surface to the model, not a Go error.
func (c *Client) CallTool(ctx context.Context, name string, args map[string]interface{}) (*protocol.CallToolResult, error) {
	if !c.connected.Load() {
		return nil, fmt.Errorf("not connected")
	}
	var result protocol.CallToolResult
	err := c.request(ctx, protocol.MethodCallTool, protocol.CallToolParams{Name: name, Arguments: args}, &result)
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// Ping verifies the gateway is responsive.
func (c *Client) Ping(ctx context.Context) error {
	var result struct{}
	return c.request(ctx, protocol.MethodPing, struct{}{}, &result)
}

func (c *Client) request(ctx context.Context, method string, params, target interface{}) error {
	id := uuid.NewString()
	req, err := protocol.NewRequest(id, method, params)
	if err != nil {
		return err
	}
	data, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	ch := make(chan *protocol.JSONRPCResponse, 1)
	c.mu.Lock()
	c.pending[id] = ch
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		delete(c.pending, id)
		c.mu.Unlock()
	}()

	if err := c.transport.Send(ctx, data); err != nil {
		return fmt.Errorf("send %s: %w", method, err)
	}

	timer := time.NewTimer(c.timeout)
	defer timer.Stop()
	select {
	case resp, ok := <-ch:
		if !ok {
			return fmt.Errorf("connection closed while awaiting %s response", method)
		}
		return resp.UnmarshalResult(target)
	case <-timer.C:
		return fmt.Errorf("timeout awaiting %s response", method)
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Client) notify(ctx context.Context, method string, params interface{}) error {
	req, err := protocol.NewRequest(nil, method, params)
	if err != nil {
		return err
	}
	data, err := json.Marshal(req)
	if err != nil {
		return err
	}
	return c.transport.Send(ctx, data)
}

// dispatch routes an incoming message to the request waiting on its ID.
func (c *Client) dispatch(data []byte) {
	var resp protocol.JSONRPCResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		c.logger.Warn("dropping unparseable message", zap.Error(err))
		return
	}
	id, ok := resp.ID.(string)
	if !ok {
		c.logger.Debug("ignoring message without string ID")
		return
	}
	c.mu.Lock()
	ch, ok := c.pending[id]
	c.mu.Unlock()
	if !ok {
		c.logger.Debug("no pending request for response", zap.String("id", id))
		return
	}
	ch <- &resp
}
