// Package openalgo is a client for the OpenAlgo trading platform REST API.
// Every call is stateless and independently authenticated with the shared
// API key; failures come back as *APIError so callers can react to the kind.
package openalgo

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Client talks to one OpenAlgo host. Safe for concurrent use.
type Client struct {
	apiKey     string
	host       string
	httpClient *http.Client
	logger     *zap.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client (30s timeout).
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		if httpClient != nil {
			c.httpClient = httpClient
		}
	}
}

// WithLogger sets the client logger.
func WithLogger(logger *zap.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// New creates a platform client for the given API key and host, e.g.
// "http://127.0.0.1:5000".
func New(apiKey, host string, opts ...Option) *Client {
	c := &Client{
		apiKey:     apiKey,
		host:       strings.TrimSuffix(host, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// post sends one API call. The request payload is flattened to a map so the
// shared API key can be injected without each request type carrying it.
func (c *Client) post(ctx context.Context, endpoint string, payload interface{}) (*Result, error) {
	body := map[string]interface{}{"apikey": c.apiKey}
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return nil, &APIError{Kind: KindDecode, Message: fmt.Sprintf("marshal request: %v", err)}
		}
		if err := json.Unmarshal(raw, &body); err != nil {
			return nil, &APIError{Kind: KindDecode, Message: fmt.Sprintf("flatten request: %v", err)}
		}
		body["apikey"] = c.apiKey
	}

	data, err := json.Marshal(body)
	if err != nil {
		return nil, &APIError{Kind: KindDecode, Message: fmt.Sprintf("marshal request: %v", err)}
	}

	url := c.host + "/api/v1/" + endpoint
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return nil, &APIError{Kind: KindNetwork, Message: err.Error()}
	}
	req.Header.Set("Content-Type", "application/json")

	c.logger.Debug("platform call", zap.String("endpoint", endpoint))
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &APIError{Kind: KindNetwork, Message: err.Error()}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 16*1024*1024))
	if err != nil {
		return nil, &APIError{Kind: KindNetwork, Message: fmt.Sprintf("read response: %v", err)}
	}

	var parsed Result
	if err := json.Unmarshal(raw, &parsed); err != nil {
		if resp.StatusCode >= 400 {
			return nil, &APIError{Kind: KindHTTP, Message: fmt.Sprintf("status %s: %s", resp.Status, trim(raw))}
		}
		return nil, &APIError{Kind: KindDecode, Message: fmt.Sprintf("unparseable response: %s", trim(raw))}
	}
	parsed.Raw = raw

	if parsed.Status == "error" {
		return nil, &APIError{Kind: KindRejected, Message: platformMessage(raw)}
	}
	if resp.StatusCode >= 400 {
		return nil, &APIError{Kind: KindHTTP, Message: fmt.Sprintf("status %s: %s", resp.Status, trim(raw))}
	}
	return &parsed, nil
}

// platformMessage pulls the human-readable message out of an error payload.
func platformMessage(raw []byte) string {
	var payload struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(raw, &payload); err == nil && payload.Message != "" {
		return payload.Message
	}
	return trim(raw)
}

func trim(raw []byte) string {
	s := strings.TrimSpace(string(raw))
	if len(s) > 512 {
		s = s[:512] + "..."
	}
	return s
}

// AsAPIError unwraps err into an *APIError, if it is one.
func AsAPIError(err error) (*APIError, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}

// PlaceOrder places a new order.
func (c *Client) PlaceOrder(ctx context.Context, req OrderRequest) (*Result, error) {
	return c.post(ctx, "placeorder", req)
}

// PlaceSmartOrder places an order that considers current position size.
func (c *Client) PlaceSmartOrder(ctx context.Context, req SmartOrderRequest) (*Result, error) {
	return c.post(ctx, "placesmartorder", req)
}

// BasketOrder places multiple orders in one call.
func (c *Client) BasketOrder(ctx context.Context, strategy string, orders []BasketLeg) (*Result, error) {
	return c.post(ctx, "basketorder", map[string]interface{}{
		"strategy": strategy,
		"orders":   orders,
	})
}

// SplitOrder splits a large order into smaller chunks.
func (c *Client) SplitOrder(ctx context.Context, req SplitOrderRequest) (*Result, error) {
	return c.post(ctx, "splitorder", req)
}

// ModifyOrder updates an existing order.
func (c *Client) ModifyOrder(ctx context.Context, req ModifyOrderRequest) (*Result, error) {
	return c.post(ctx, "modifyorder", req)
}

// CancelOrder cancels one order by ID.
func (c *Client) CancelOrder(ctx context.Context, orderID, strategy string) (*Result, error) {
	return c.post(ctx, "cancelorder", map[string]string{"orderid": orderID, "strategy": strategy})
}

// CancelAllOrders cancels all open orders for a strategy.
func (c *Client) CancelAllOrders(ctx context.Context, strategy string) (*Result, error) {
	return c.post(ctx, "cancelallorder", map[string]string{"strategy": strategy})
}

// OrderStatus fetches the status of one order.
func (c *Client) OrderStatus(ctx context.Context, orderID, strategy string) (*Result, error) {
	return c.post(ctx, "orderstatus", map[string]string{"orderid": orderID, "strategy": strategy})
}

// OpenPosition fetches the open position for one symbol.
func (c *Client) OpenPosition(ctx context.Context, strategy, symbol, exchange, product string) (*Result, error) {
	return c.post(ctx, "openposition", map[string]string{
		"strategy": strategy,
		"symbol":   symbol,
		"exchange": exchange,
		"product":  product,
	})
}

// ClosePositions closes all open positions for a strategy.
func (c *Client) ClosePositions(ctx context.Context, strategy string) (*Result, error) {
	return c.post(ctx, "closeposition", map[string]string{"strategy": strategy})
}

// PositionBook fetches all current positions.
func (c *Client) PositionBook(ctx context.Context) (*Result, error) {
	return c.post(ctx, "positionbook", nil)
}

// OrderBook fetches all orders.
func (c *Client) OrderBook(ctx context.Context) (*Result, error) {
	return c.post(ctx, "orderbook", nil)
}

// TradeBook fetches all executed trades.
func (c *Client) TradeBook(ctx context.Context) (*Result, error) {
	return c.post(ctx, "tradebook", nil)
}

// Holdings fetches portfolio holdings.
func (c *Client) Holdings(ctx context.Context) (*Result, error) {
	return c.post(ctx, "holdings", nil)
}

// Funds fetches available funds and margin information.
func (c *Client) Funds(ctx context.Context) (*Result, error) {
	return c.post(ctx, "funds", nil)
}

// Quotes fetches market quotes for one symbol.
func (c *Client) Quotes(ctx context.Context, symbol, exchange string) (*Result, error) {
	return c.post(ctx, "quotes", map[string]string{"symbol": symbol, "exchange": exchange})
}

// Depth fetches market depth for one symbol.
func (c *Client) Depth(ctx context.Context, symbol, exchange string) (*Result, error) {
	return c.post(ctx, "depth", map[string]string{"symbol": symbol, "exchange": exchange})
}

// History fetches historical candles.
func (c *Client) History(ctx context.Context, req HistoryRequest) (*Result, error) {
	return c.post(ctx, "history", req)
}

// Intervals fetches the supported history intervals.
func (c *Client) Intervals(ctx context.Context) (*Result, error) {
	return c.post(ctx, "intervals", nil)
}

// SymbolMetadata fetches metadata for one symbol.
func (c *Client) SymbolMetadata(ctx context.Context, symbol, exchange string) (*Result, error) {
	return c.post(ctx, "symbol", map[string]string{"symbol": symbol, "exchange": exchange})
}

// Ticker fetches available symbols, optionally filtered by exchange.
func (c *Client) Ticker(ctx context.Context, exchange string) (*Result, error) {
	payload := map[string]string{}
	if exchange != "" {
		payload["exchange"] = exchange
	}
	return c.post(ctx, "ticker", payload)
}
