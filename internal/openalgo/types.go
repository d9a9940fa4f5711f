package openalgo

import (
	"encoding/json"
	"fmt"
)

// ErrorKind classifies a platform call failure.
type ErrorKind string

const (
	// KindNetwork covers connection failures and timeouts reaching the platform.
	KindNetwork ErrorKind = "network"
	// KindHTTP covers non-2xx responses without a parseable platform error.
	KindHTTP ErrorKind = "http"
	// KindRejected covers platform-side validation rejections (status "error").
	KindRejected ErrorKind = "rejected"
	// KindDecode covers unparseable platform responses.
	KindDecode ErrorKind = "decode"
)

// APIError is a structured platform failure. Callers pattern-match on Kind
// instead of probing ad hoc response fields.
type APIError struct {
	Kind    ErrorKind `json:"error"`
	Message string    `json:"message"`
}

func (e *APIError) Error() string { return fmt.Sprintf("openalgo %s error: %s", e.Kind, e.Message) }

// Result is a successful platform response. Raw holds the full JSON payload
// (always including the status indicator); Data the payload's data member,
// when present.
type Result struct {
	Status string          `json:"status"`
	Data   json.RawMessage `json:"data,omitempty"`
	Raw    json.RawMessage `json:"-"`
}

// String renders the full platform payload for downstream consumers.
func (r *Result) String() string { return string(r.Raw) }

// OrderRequest carries the fields of a regular order placement.
type OrderRequest struct {
	Symbol            string  `json:"symbol"`
	Exchange          string  `json:"exchange"`
	Action            string  `json:"action"`
	Quantity          int     `json:"quantity"`
	PriceType         string  `json:"pricetype"`
	Product           string  `json:"product"`
	Strategy          string  `json:"strategy"`
	Price             float64 `json:"price,omitempty"`
	TriggerPrice      float64 `json:"trigger_price,omitempty"`
	DisclosedQuantity int     `json:"disclosed_quantity,omitempty"`
}

// SmartOrderRequest places an order that accounts for current position size.
type SmartOrderRequest struct {
	Symbol       string `json:"symbol"`
	Exchange     string `json:"exchange"`
	Action       string `json:"action"`
	Quantity     int    `json:"quantity"`
	PositionSize int    `json:"position_size"`
	PriceType    string `json:"pricetype"`
	Product      string `json:"product"`
	Strategy     string `json:"strategy"`
}

// BasketLeg is one order inside a basket request.
type BasketLeg struct {
	Symbol    string  `json:"symbol"`
	Exchange  string  `json:"exchange"`
	Action    string  `json:"action"`
	Quantity  int     `json:"quantity"`
	PriceType string  `json:"pricetype"`
	Product   string  `json:"product"`
	Price     float64 `json:"price,omitempty"`
}

// SplitOrderRequest splits a large order into smaller chunks.
type SplitOrderRequest struct {
	Symbol       string  `json:"symbol"`
	Exchange     string  `json:"exchange"`
	Action       string  `json:"action"`
	Quantity     int     `json:"quantity"`
	SplitSize    int     `json:"splitsize"`
	PriceType    string  `json:"pricetype"`
	Product      string  `json:"product"`
	Strategy     string  `json:"strategy,omitempty"`
	Price        float64 `json:"price,omitempty"`
	TriggerPrice float64 `json:"trigger_price,omitempty"`
}

// ModifyOrderRequest updates an existing order. Optional members are
// pointers so absent fields stay off the wire.
type ModifyOrderRequest struct {
	OrderID      string   `json:"orderid"`
	Strategy     string   `json:"strategy"`
	Symbol       string   `json:"symbol"`
	Quantity     int      `json:"quantity"`
	Price        float64  `json:"price"`
	Action       *string  `json:"action,omitempty"`
	Exchange     *string  `json:"exchange,omitempty"`
	PriceType    *string  `json:"pricetype,omitempty"`
	Product      *string  `json:"product,omitempty"`
	TriggerPrice *float64 `json:"trigger_price,omitempty"`
}

// HistoryRequest fetches candles for a symbol over a date range.
type HistoryRequest struct {
	Symbol    string `json:"symbol"`
	Exchange  string `json:"exchange"`
	Interval  string `json:"interval"`
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
}
