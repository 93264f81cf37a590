package models

import "time"

// Balance is a single asset holding. Spot adapters suppress entries where
// both Available and Locked are exactly zero.
type Balance struct {
	Asset     string  `json:"asset"`
	Available float64 `json:"available"`
	Locked    float64 `json:"locked"`
}

// OpenOrder is a resting or historical order in the common shape. Fields the
// exchange does not report are empty strings or NaN, never dropped.
type OpenOrder struct {
	Symbol        string  `json:"symbol"`
	OrderID       string  `json:"order_id"`
	ClientOrderID string  `json:"client_order_id"`
	Price         float64 `json:"price"`
	Side          Side    `json:"side"`
	Quantity      float64 `json:"quantity"`
	Status        string  `json:"status"`
	Time          int64   `json:"time"`
}

// Position is an open derivatives position. Quantity keeps its sign; Side is
// derived from that sign when the exchange does not report it explicitly.
type Position struct {
	Symbol           string  `json:"symbol"`
	Quantity         float64 `json:"quantity"`
	Side             Side    `json:"side"`
	EntryPrice       float64 `json:"entry_price"`
	Leverage         float64 `json:"leverage"`
	UnrealizedProfit float64 `json:"unrealized_profit"`
}

// ListenKey is the ephemeral credential authorising a private data stream.
// It must be renewed before the exchange-side expiry and is worthless once
// the owning session closes.
type ListenKey struct {
	Token    string    `json:"listenKey"`
	IssuedAt time.Time `json:"-"`
}
