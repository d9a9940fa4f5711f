package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantbrew/algochat/internal/mcpserver"
	"github.com/quantbrew/algochat/internal/openalgo"
	"github.com/quantbrew/algochat/internal/protocol"
)

// platformRecorder fakes the trading platform and records request payloads
// by endpoint.
type platformRecorder struct {
	requests map[string]map[string]interface{}
	respond  func(endpoint string) (int, string)
}

func newPlatform() *platformRecorder {
	return &platformRecorder{
		requests: map[string]map[string]interface{}{},
		respond: func(string) (int, string) {
			return http.StatusOK, `{"status":"success","data":{}}`
		},
	}
}

func (p *platformRecorder) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	endpoint := r.URL.Path[len("/api/v1/"):]
	var body map[string]interface{}
	_ = json.NewDecoder(r.Body).Decode(&body)
	p.requests[endpoint] = body
	code, payload := p.respond(endpoint)
	w.WriteHeader(code)
	w.Write([]byte(payload))
}

func newToolServer(t *testing.T, platform *platformRecorder) *mcpserver.Server {
	t.Helper()
	ts := httptest.NewServer(platform)
	t.Cleanup(ts.Close)
	srv := mcpserver.NewServer("openalgo", mcpserver.WithInstructions(Instructions))
	New(openalgo.New("test-key", ts.URL), nil).Register(srv)
	return srv
}

func callTool(t *testing.T, srv *mcpserver.Server, name string, args string) *protocol.CallToolResult {
	t.Helper()
	raw := fmt.Sprintf(`{"jsonrpc":"2.0","id":1,"method":"tools/call","params":{"name":%q,"arguments":%s}}`, name, args)
	resp := srv.HandleMessage(context.Background(), json.RawMessage(raw))
	require.NotNil(t, resp)
	require.Nil(t, resp.Error)
	var result protocol.CallToolResult
	require.NoError(t, resp.UnmarshalResult(&result))
	return &result
}

func TestCatalogueIsComplete(t *testing.T) {
	srv := newToolServer(t, newPlatform())

	want := []string{
		"cancel_all_orders", "cancel_order", "close_all_positions",
		"get_all_tickers", "get_depth", "get_funds", "get_history",
		"get_holdings", "get_intervals", "get_open_position",
		"get_order_book", "get_order_status", "get_orders",
		"get_position_book", "get_quote",
		"get_symbol_metadata", "get_trade_book", "modify_order",
		"place_basket_order", "place_order", "place_smart_order",
		"place_split_order",
	}
	var got []string
	for _, tool := range srv.ListTools() {
		got = append(got, tool.Name)
		assert.NotEmpty(t, tool.Description, tool.Name)
	}
	assert.Equal(t, want, got)
}

func TestPlaceOrderAppliesDefaultsAndUppercases(t *testing.T) {
	platform := newPlatform()
	srv := newToolServer(t, platform)

	result := callTool(t, srv, "place_order", `{"symbol":"sbin","quantity":10,"action":"buy"}`)
	assert.False(t, result.IsError)

	req := platform.requests["placeorder"]
	require.NotNil(t, req)
	assert.Equal(t, "SBIN", req["symbol"])
	assert.Equal(t, "BUY", req["action"])
	assert.Equal(t, "NSE", req["exchange"])
	assert.Equal(t, "MARKET", req["pricetype"])
	assert.Equal(t, "MIS", req["product"])
	assert.Equal(t, "Python", req["strategy"])
	assert.Equal(t, "test-key", req["apikey"])
}

func TestPlaceOrderLimitCarriesPrice(t *testing.T) {
	platform := newPlatform()
	srv := newToolServer(t, platform)

	callTool(t, srv, "place_order",
		`{"symbol":"INFY","quantity":5,"action":"SELL","price_type":"LIMIT","price":1550.5}`)

	req := platform.requests["placeorder"]
	assert.Equal(t, "LIMIT", req["pricetype"])
	assert.Equal(t, 1550.5, req["price"])
}

func TestPlatformRejectionSurfacesAsToolError(t *testing.T) {
	platform := newPlatform()
	platform.respond = func(string) (int, string) {
		return http.StatusBadRequest, `{"status":"error","message":"Invalid openalgo apikey"}`
	}
	srv := newToolServer(t, platform)

	result := callTool(t, srv, "get_funds", `{}`)
	assert.True(t, result.IsError)

	var payload map[string]string
	require.NoError(t, json.Unmarshal([]byte(result.Text()), &payload))
	assert.Equal(t, "rejected", payload["error"])
	assert.Equal(t, "Invalid openalgo apikey", payload["message"])
}

func TestCancelOrderUsesDefaultStrategy(t *testing.T) {
	platform := newPlatform()
	srv := newToolServer(t, platform)

	callTool(t, srv, "cancel_order", `{"order_id":"250123000001"}`)

	req := platform.requests["cancelorder"]
	assert.Equal(t, "250123000001", req["orderid"])
	assert.Equal(t, "Python", req["strategy"])
}

func TestModifyOrderSendsOnlyProvidedOptionals(t *testing.T) {
	platform := newPlatform()
	srv := newToolServer(t, platform)

	callTool(t, srv, "modify_order",
		`{"order_id":"42","symbol":"SBIN","quantity":3,"price":812.4,"price_type":"limit"}`)

	req := platform.requests["modifyorder"]
	assert.Equal(t, "42", req["orderid"])
	assert.Equal(t, "LIMIT", req["pricetype"])
	assert.NotContains(t, req, "action")
	assert.NotContains(t, req, "trigger_price")
}

func TestBasketOrderRejectsEmptyBasket(t *testing.T) {
	srv := newToolServer(t, newPlatform())

	result := callTool(t, srv, "place_basket_order", `{"orders":[]}`)
	assert.True(t, result.IsError)
	assert.Contains(t, result.Text(), "invalid_arguments")
}

func TestBasketOrderForwardsLegs(t *testing.T) {
	platform := newPlatform()
	srv := newToolServer(t, platform)

	callTool(t, srv, "place_basket_order",
		`{"orders":[{"symbol":"sbin","exchange":"nse","action":"buy","quantity":1,"pricetype":"market","product":"mis"}]}`)

	req := platform.requests["basketorder"]
	require.NotNil(t, req)
	assert.Equal(t, "Python", req["strategy"])
	orders := req["orders"].([]interface{})
	require.Len(t, orders, 1)
	leg := orders[0].(map[string]interface{})
	assert.Equal(t, "SBIN", leg["symbol"])
	assert.Equal(t, "BUY", leg["action"])
}

func TestSplitOrderIgnoresPriceForMarketOrders(t *testing.T) {
	platform := newPlatform()
	srv := newToolServer(t, platform)

	callTool(t, srv, "place_split_order",
		`{"symbol":"SBIN","exchange":"NSE","action":"BUY","quantity":100,"splitsize":20,"price":800}`)

	req := platform.requests["splitorder"]
	assert.Equal(t, "MARKET", req["pricetype"])
	assert.NotContains(t, req, "price")
}

func TestQuoteDefaultsExchange(t *testing.T) {
	platform := newPlatform()
	srv := newToolServer(t, platform)

	callTool(t, srv, "get_quote", `{"symbol":"reliance"}`)

	req := platform.requests["quotes"]
	assert.Equal(t, "RELIANCE", req["symbol"])
	assert.Equal(t, "NSE", req["exchange"])
}

func TestGetAllTickersOmitsExchangeWhenUnset(t *testing.T) {
	platform := newPlatform()
	srv := newToolServer(t, platform)

	callTool(t, srv, "get_all_tickers", `{}`)
	assert.NotContains(t, platform.requests["ticker"], "exchange")

	callTool(t, srv, "get_all_tickers", `{"exchange":"nse"}`)
	assert.Equal(t, "NSE", platform.requests["ticker"]["exchange"])
}

func TestGetHistoryForwardsRange(t *testing.T) {
	platform := newPlatform()
	srv := newToolServer(t, platform)

	callTool(t, srv, "get_history",
		`{"symbol":"sbin","exchange":"nse","interval":"5m","start_date":"2024-01-01","end_date":"2024-01-31"}`)

	req := platform.requests["history"]
	assert.Equal(t, "SBIN", req["symbol"])
	assert.Equal(t, "5m", req["interval"])
	assert.Equal(t, "2024-01-01", req["start_date"])
}

func TestSuccessResultCarriesFullPlatformPayload(t *testing.T) {
	platform := newPlatform()
	platform.respond = func(endpoint string) (int, string) {
		return http.StatusOK, `{"status":"success","data":{"availablecash":"808.18"}}`
	}
	srv := newToolServer(t, platform)

	result := callTool(t, srv, "get_funds", `{}`)
	assert.False(t, result.IsError)
	assert.JSONEq(t, `{"status":"success","data":{"availablecash":"808.18"}}`, result.Text())
}
