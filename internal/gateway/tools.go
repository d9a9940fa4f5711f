// Package gateway registers the trading tool catalogue on a tool server.
// Every tool is a direct pass-through to one OpenAlgo REST call: no retries,
// no caching, no idempotency control of its own.
package gateway

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/quantbrew/algochat/internal/mcpserver"
	"github.com/quantbrew/algochat/internal/openalgo"
)

// DefaultStrategy tags orders that do not name a strategy.
const DefaultStrategy = "Python"

// Instructions is the catalogue description announced to connecting clients.
const Instructions = `OpenAlgo tool gateway provides AI assistants with access to trading
capabilities through the OpenAlgo API.

Available operations cover:
- Placing, modifying, and cancelling orders
- Retrieving market data and quotes
- Managing positions and portfolios
- Accessing historical data`

// Gateway wires the tool catalogue to a platform client.
type Gateway struct {
	platform *openalgo.Client
	logger   *zap.Logger
}

// New creates a gateway over the given platform client.
func New(platform *openalgo.Client, logger *zap.Logger) *Gateway {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Gateway{platform: platform, logger: logger}
}

// result converts a platform call outcome into a tool outcome. Platform
// failures become structured tool errors the model can read.
func result(res *openalgo.Result, err error) (string, error) {
	if err != nil {
		if apiErr, ok := openalgo.AsAPIError(err); ok {
			return "", &mcpserver.ToolError{Kind: string(apiErr.Kind), Message: apiErr.Message}
		}
		return "", err
	}
	return res.String(), nil
}

func upper(s string) string { return strings.ToUpper(strings.TrimSpace(s)) }

// orDefault returns the upper-cased value of p, or fallback when p is unset.
func orDefault(p *string, fallback string) string {
	if p == nil || strings.TrimSpace(*p) == "" {
		return fallback
	}
	return upper(*p)
}

type placeOrderArgs struct {
	Symbol            string   `json:"symbol" description:"Trading symbol (e.g., SBIN, RELIANCE)"`
	Quantity          int      `json:"quantity" description:"Order quantity"`
	Action            string   `json:"action" description:"BUY or SELL" enum:"BUY,SELL"`
	Exchange          *string  `json:"exchange" description:"Exchange (default NSE)" enum:"NSE,BSE,NFO,BFO,BCD,CDS,MCX"`
	PriceType         *string  `json:"price_type" description:"MARKET, LIMIT, SL, SL-M (default MARKET)" enum:"MARKET,LIMIT,SL,SL-M"`
	Product           *string  `json:"product" description:"MIS, CNC, NRML (default MIS)" enum:"MIS,CNC,NRML"`
	Strategy          *string  `json:"strategy" description:"Strategy name (default Python)"`
	Price             *float64 `json:"price" description:"Order price (required for LIMIT, SL orders)"`
	TriggerPrice      *float64 `json:"trigger_price" description:"Trigger price (required for SL, SL-M orders)"`
	DisclosedQuantity *int     `json:"disclosed_quantity" description:"Disclosed quantity"`
}

type modifyOrderArgs struct {
	OrderID      string   `json:"order_id" description:"Order ID to modify"`
	Symbol       string   `json:"symbol" description:"Trading symbol"`
	Quantity     int      `json:"quantity" description:"New quantity"`
	Price        float64  `json:"price" description:"New price"`
	Action       *string  `json:"action" description:"New order action (BUY/SELL)" enum:"BUY,SELL"`
	Exchange     *string  `json:"exchange" description:"Exchange (NSE, BSE, etc.)"`
	PriceType    *string  `json:"price_type" description:"MARKET, LIMIT, SL, SL-M" enum:"MARKET,LIMIT,SL,SL-M"`
	Product      *string  `json:"product" description:"MIS, CNC, NRML" enum:"MIS,CNC,NRML"`
	TriggerPrice *float64 `json:"trigger_price" description:"New trigger price for SL, SL-M orders"`
	Strategy     *string  `json:"strategy" description:"Strategy name (default Python)"`
}

type symbolExchangeArgs struct {
	Symbol   string  `json:"symbol" description:"Trading symbol (e.g., SBIN, RELIANCE)"`
	Exchange *string `json:"exchange" description:"Exchange (default NSE)"`
}

type historyArgs struct {
	Symbol    string `json:"symbol" description:"Trading symbol"`
	Exchange  string `json:"exchange" description:"Exchange (NSE, BSE, etc.)"`
	Interval  string `json:"interval" description:"Candle interval (see get_intervals)"`
	StartDate string `json:"start_date" description:"Start date (YYYY-MM-DD)"`
	EndDate   string `json:"end_date" description:"End date (YYYY-MM-DD)"`
}

type orderIDArgs struct {
	OrderID string `json:"order_id" description:"Order ID"`
}

type openPositionArgs struct {
	Symbol   string `json:"symbol" description:"Trading symbol"`
	Exchange string `json:"exchange" description:"Exchange (NSE, BSE, etc.)"`
	Product  string `json:"product" description:"MIS, CNC, NRML" enum:"MIS,CNC,NRML"`
}

type basketOrderArgs struct {
	Orders []basketLegArgs `json:"orders" description:"List of orders to place together"`
}

type basketLegArgs struct {
	Symbol    string   `json:"symbol" description:"Trading symbol"`
	Exchange  string   `json:"exchange" description:"Exchange (NSE, BSE, etc.)"`
	Action    string   `json:"action" description:"BUY or SELL" enum:"BUY,SELL"`
	Quantity  int      `json:"quantity" description:"Order quantity"`
	PriceType string   `json:"pricetype" description:"MARKET, LIMIT, SL, SL-M" enum:"MARKET,LIMIT,SL,SL-M"`
	Product   string   `json:"product" description:"MIS, CNC, NRML" enum:"MIS,CNC,NRML"`
	Price     *float64 `json:"price" description:"Order price (for LIMIT orders)"`
}

type splitOrderArgs struct {
	Symbol       string   `json:"symbol" description:"Trading symbol"`
	Exchange     string   `json:"exchange" description:"Exchange (NSE, BSE, etc.)"`
	Action       string   `json:"action" description:"BUY or SELL" enum:"BUY,SELL"`
	Quantity     int      `json:"quantity" description:"Total order quantity"`
	SplitSize    int      `json:"splitsize" description:"Size of each split order"`
	PriceType    *string  `json:"price_type" description:"MARKET, LIMIT, SL, SL-M (default MARKET)" enum:"MARKET,LIMIT,SL,SL-M"`
	Product      *string  `json:"product" description:"MIS, CNC, NRML (default MIS)" enum:"MIS,CNC,NRML"`
	Price        *float64 `json:"price" description:"Order price (for LIMIT orders)"`
	TriggerPrice *float64 `json:"trigger_price" description:"Trigger price (for SL orders)"`
	Strategy     *string  `json:"strategy" description:"Strategy name (default Python)"`
}

type smartOrderArgs struct {
	Symbol       string  `json:"symbol" description:"Trading symbol"`
	Action       string  `json:"action" description:"BUY or SELL" enum:"BUY,SELL"`
	Quantity     int     `json:"quantity" description:"Order quantity"`
	PositionSize int     `json:"position_size" description:"Current position size"`
	Exchange     *string `json:"exchange" description:"Exchange (default NSE)"`
	PriceType    *string `json:"price_type" description:"MARKET, LIMIT, SL, SL-M (default MARKET)" enum:"MARKET,LIMIT,SL,SL-M"`
	Product      *string `json:"product" description:"MIS, CNC, NRML (default MIS)" enum:"MIS,CNC,NRML"`
	Strategy     *string `json:"strategy" description:"Strategy name (default Python)"`
}

type tickerArgs struct {
	Exchange *string `json:"exchange" description:"Optional exchange filter (NSE, BSE, etc.)"`
}

type noArgs struct{}

// Register installs the full tool catalogue on the server.
func (g *Gateway) Register(s *mcpserver.Server) {
	mcpserver.RegisterTool(s, "place_order",
		"Place a new order with support for market, limit, and stop-loss orders.",
		func(ctx context.Context, args placeOrderArgs) (string, error) {
			req := openalgo.OrderRequest{
				Symbol:    upper(args.Symbol),
				Exchange:  orDefault(args.Exchange, "NSE"),
				Action:    upper(args.Action),
				Quantity:  args.Quantity,
				PriceType: orDefault(args.PriceType, "MARKET"),
				Product:   orDefault(args.Product, "MIS"),
				Strategy:  strategyOf(args.Strategy),
			}
			if args.Price != nil {
				req.Price = *args.Price
			}
			if args.TriggerPrice != nil {
				req.TriggerPrice = *args.TriggerPrice
			}
			if args.DisclosedQuantity != nil {
				req.DisclosedQuantity = *args.DisclosedQuantity
			}
			g.logger.Info("placing order",
				zap.String("action", req.Action),
				zap.Int("quantity", req.Quantity),
				zap.String("symbol", req.Symbol),
				zap.String("exchange", req.Exchange),
				zap.String("pricetype", req.PriceType))
			return result(g.platform.PlaceOrder(ctx, req))
		})

	mcpserver.RegisterTool(s, "modify_order",
		"Modify an existing order's price, quantity, or other parameters.",
		func(ctx context.Context, args modifyOrderArgs) (string, error) {
			req := openalgo.ModifyOrderRequest{
				OrderID:  args.OrderID,
				Strategy: strategyOf(args.Strategy),
				Symbol:   args.Symbol,
				Quantity: args.Quantity,
				Price:    args.Price,
			}
			if args.Action != nil {
				v := upper(*args.Action)
				req.Action = &v
			}
			if args.Exchange != nil {
				v := upper(*args.Exchange)
				req.Exchange = &v
			}
			if args.PriceType != nil {
				v := upper(*args.PriceType)
				req.PriceType = &v
			}
			if args.Product != nil {
				v := upper(*args.Product)
				req.Product = &v
			}
			req.TriggerPrice = args.TriggerPrice
			return result(g.platform.ModifyOrder(ctx, req))
		})

	mcpserver.RegisterTool(s, "cancel_order",
		"Cancel a specific order by ID.",
		func(ctx context.Context, args orderIDArgs) (string, error) {
			return result(g.platform.CancelOrder(ctx, args.OrderID, DefaultStrategy))
		})

	mcpserver.RegisterTool(s, "cancel_all_orders",
		"Cancel all open orders for the current strategy.",
		func(ctx context.Context, _ noArgs) (string, error) {
			return result(g.platform.CancelAllOrders(ctx, DefaultStrategy))
		})

	mcpserver.RegisterTool(s, "get_order_status",
		"Get status of a specific order by ID.",
		func(ctx context.Context, args orderIDArgs) (string, error) {
			return result(g.platform.OrderStatus(ctx, args.OrderID, DefaultStrategy))
		})

	mcpserver.RegisterTool(s, "get_orders",
		"List all orders for the current strategy.",
		func(ctx context.Context, _ noArgs) (string, error) {
			return result(g.platform.OrderBook(ctx))
		})

	mcpserver.RegisterTool(s, "get_order_book",
		"Get details of all orders including their status.",
		func(ctx context.Context, _ noArgs) (string, error) {
			return result(g.platform.OrderBook(ctx))
		})

	mcpserver.RegisterTool(s, "place_basket_order",
		"Place multiple orders at once using basket order functionality.",
		func(ctx context.Context, args basketOrderArgs) (string, error) {
			if len(args.Orders) == 0 {
				return "", &mcpserver.ToolError{Kind: "invalid_arguments", Message: "orders must not be empty"}
			}
			legs := make([]openalgo.BasketLeg, 0, len(args.Orders))
			for _, o := range args.Orders {
				leg := openalgo.BasketLeg{
					Symbol:    upper(o.Symbol),
					Exchange:  upper(o.Exchange),
					Action:    upper(o.Action),
					Quantity:  o.Quantity,
					PriceType: upper(o.PriceType),
					Product:   upper(o.Product),
				}
				if o.Price != nil {
					leg.Price = *o.Price
				}
				legs = append(legs, leg)
			}
			g.logger.Info("placing basket order", zap.Int("legs", len(legs)))
			return result(g.platform.BasketOrder(ctx, DefaultStrategy, legs))
		})

	mcpserver.RegisterTool(s, "place_split_order",
		"Split a large order into multiple smaller orders to reduce market impact.",
		func(ctx context.Context, args splitOrderArgs) (string, error) {
			req := openalgo.SplitOrderRequest{
				Symbol:    upper(args.Symbol),
				Exchange:  upper(args.Exchange),
				Action:    upper(args.Action),
				Quantity:  args.Quantity,
				SplitSize: args.SplitSize,
				PriceType: orDefault(args.PriceType, "MARKET"),
				Product:   orDefault(args.Product, "MIS"),
				Strategy:  strategyOf(args.Strategy),
			}
			if args.Price != nil && (req.PriceType == "LIMIT" || req.PriceType == "SL") {
				req.Price = *args.Price
			}
			if args.TriggerPrice != nil && (req.PriceType == "SL" || req.PriceType == "SL-M") {
				req.TriggerPrice = *args.TriggerPrice
			}
			g.logger.Info("placing split order",
				zap.String("symbol", req.Symbol),
				zap.Int("quantity", req.Quantity),
				zap.Int("splitsize", req.SplitSize))
			return result(g.platform.SplitOrder(ctx, req))
		})

	mcpserver.RegisterTool(s, "place_smart_order",
		"Place a smart order that considers the current position size.",
		func(ctx context.Context, args smartOrderArgs) (string, error) {
			req := openalgo.SmartOrderRequest{
				Symbol:       upper(args.Symbol),
				Action:       upper(args.Action),
				Quantity:     args.Quantity,
				PositionSize: args.PositionSize,
				Exchange:     orDefault(args.Exchange, "NSE"),
				PriceType:    orDefault(args.PriceType, "MARKET"),
				Product:      orDefault(args.Product, "MIS"),
				Strategy:     strategyOf(args.Strategy),
			}
			return result(g.platform.PlaceSmartOrder(ctx, req))
		})

	mcpserver.RegisterTool(s, "get_quote",
		"Get current market quotes (bid, ask, last price) for a symbol.",
		func(ctx context.Context, args symbolExchangeArgs) (string, error) {
			return result(g.platform.Quotes(ctx, upper(args.Symbol), orDefault(args.Exchange, "NSE")))
		})

	mcpserver.RegisterTool(s, "get_depth",
		"Get detailed market depth (order book) for a symbol.",
		func(ctx context.Context, args symbolExchangeArgs) (string, error) {
			return result(g.platform.Depth(ctx, upper(args.Symbol), orDefault(args.Exchange, "NSE")))
		})

	mcpserver.RegisterTool(s, "get_history",
		"Get historical price data for a symbol with various timeframes.",
		func(ctx context.Context, args historyArgs) (string, error) {
			return result(g.platform.History(ctx, openalgo.HistoryRequest{
				Symbol:    upper(args.Symbol),
				Exchange:  upper(args.Exchange),
				Interval:  args.Interval,
				StartDate: args.StartDate,
				EndDate:   args.EndDate,
			}))
		})

	mcpserver.RegisterTool(s, "get_intervals",
		"Get available time intervals for historical data.",
		func(ctx context.Context, _ noArgs) (string, error) {
			return result(g.platform.Intervals(ctx))
		})

	mcpserver.RegisterTool(s, "get_symbol_metadata",
		"Get detailed information about a trading symbol.",
		func(ctx context.Context, args symbolExchangeArgs) (string, error) {
			return result(g.platform.SymbolMetadata(ctx, upper(args.Symbol), orDefault(args.Exchange, "NSE")))
		})

	mcpserver.RegisterTool(s, "get_all_tickers",
		"Get list of all available trading symbols.",
		func(ctx context.Context, args tickerArgs) (string, error) {
			exchange := ""
			if args.Exchange != nil {
				exchange = upper(*args.Exchange)
			}
			return result(g.platform.Ticker(ctx, exchange))
		})

	mcpserver.RegisterTool(s, "get_funds",
		"Get available funds and margin information.",
		func(ctx context.Context, _ noArgs) (string, error) {
			return result(g.platform.Funds(ctx))
		})

	mcpserver.RegisterTool(s, "get_open_position",
		"Get details of an open position for a specific symbol.",
		func(ctx context.Context, args openPositionArgs) (string, error) {
			return result(g.platform.OpenPosition(ctx, DefaultStrategy,
				upper(args.Symbol), upper(args.Exchange), upper(args.Product)))
		})

	mcpserver.RegisterTool(s, "close_all_positions",
		"Close all open positions for the current strategy.",
		func(ctx context.Context, _ noArgs) (string, error) {
			return result(g.platform.ClosePositions(ctx, DefaultStrategy))
		})

	mcpserver.RegisterTool(s, "get_position_book",
		"Get details of all current positions.",
		func(ctx context.Context, _ noArgs) (string, error) {
			return result(g.platform.PositionBook(ctx))
		})

	mcpserver.RegisterTool(s, "get_trade_book",
		"Get record of all executed trades.",
		func(ctx context.Context, _ noArgs) (string, error) {
			return result(g.platform.TradeBook(ctx))
		})

	mcpserver.RegisterTool(s, "get_holdings",
		"Get portfolio holdings information.",
		func(ctx context.Context, _ noArgs) (string, error) {
			return result(g.platform.Holdings(ctx))
		})
}

func strategyOf(p *string) string {
	if p == nil || strings.TrimSpace(*p) == "" {
		return DefaultStrategy
	}
	return strings.TrimSpace(*p)
}
