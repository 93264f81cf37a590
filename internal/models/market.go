package models

import "math"

// Side is the shared order-side vocabulary. Exchange specific spellings
// ("Buy", "SELL", "b") are mapped onto these values by the adapters.
type Side string

const (
	SideBuy  Side = "buy"
	SideSell Side = "sell"
)

// Interval is the semantic candle resolution. Callers always select by
// semantic name; every adapter owns an immutable table mapping these to its
// wire tokens and rejects intervals it does not support.
type Interval string

const (
	IntervalMin1   Interval = "1min"
	IntervalMin3   Interval = "3min"
	IntervalMin5   Interval = "5min"
	IntervalMin15  Interval = "15min"
	IntervalMin30  Interval = "30min"
	IntervalHour1  Interval = "1hour"
	IntervalHour2  Interval = "2hour"
	IntervalHour4  Interval = "4hour"
	IntervalHour6  Interval = "6hour"
	IntervalHour8  Interval = "8hour"
	IntervalHour12 Interval = "12hour"
	IntervalDay1   Interval = "1day"
	IntervalDay3   Interval = "3day"
	IntervalWeek1  Interval = "1week"
	IntervalMonth1 Interval = "1month"
)

// PriceQuote is the last traded price for one symbol.
type PriceQuote struct {
	Symbol string  `json:"symbol"`
	Price  float64 `json:"price"`
}

// BookLevel is a single price level of an order book.
type BookLevel struct {
	Price    float64 `json:"price"`
	Quantity float64 `json:"quantity"`
}

// OrderBookSide holds one side of a book snapshot. Levels keep the order the
// exchange returned them in; no sorting is applied here.
type OrderBookSide []BookLevel

// OrderBookSnapshot is a point-in-time view of both book sides. A zero value
// (both sides empty) is the documented degraded result when a request fails.
type OrderBookSnapshot struct {
	Bids OrderBookSide `json:"bids"`
	Asks OrderBookSide `json:"asks"`
}

// Empty reports whether the snapshot carries no levels at all.
func (s OrderBookSnapshot) Empty() bool {
	return len(s.Bids) == 0 && len(s.Asks) == 0
}

// Candle is a single OHLCV bar. OpenTime is epoch milliseconds. Slices of
// candles are always returned ascending by OpenTime, oldest first.
type Candle struct {
	OpenTime int64   `json:"open_time"`
	Open     float64 `json:"open"`
	High     float64 `json:"high"`
	Low      float64 `json:"low"`
	Close    float64 `json:"close"`
	Volume   float64 `json:"volume"`
}

// PriceUnavailable is the sentinel returned by the facade when a price
// request fails. Callers must treat any negative price as "no data".
const PriceUnavailable = float64(-1)

// NaN marks numeric order fields an exchange does not report. The field stays
// in the shape, it is never omitted.
func NaN() float64 { return math.NaN() }
