// Package exchange defines the unified capability contract every venue
// adapter satisfies, plus the facade consumers actually program against.
// Adapters translate one exchange's REST surface into the common data model
// and raise typed errors; the facade absorbs those errors into documented
// empty/sentinel results.
package exchange

import (
	"context"

	"cryptobridge/internal/models"
)

// KlineRange bounds a candle query. Zero values mean "let the exchange pick":
// no start returns the most recent bars. Times are epoch milliseconds except
// where an adapter documents otherwise on the wire (conversion is internal).
type KlineRange struct {
	Start int64
	End   int64
	Limit int
}

// MarketAPI is the public market-data side of the contract.
type MarketAPI interface {
	// Name identifies the venue in logs and metrics, e.g. "binance_spot".
	Name() string
	// Price returns the last traded price for symbol.
	Price(ctx context.Context, symbol string) (float64, error)
	// Prices returns quotes for the requested symbols. Symbols the venue
	// does not know are absent from the result, they never fail the call.
	Prices(ctx context.Context, symbols []string) ([]models.PriceQuote, error)
	// OrderBook returns a book snapshot. Level ordering is whatever the
	// venue returned.
	OrderBook(ctx context.Context, symbol string, limit int) (models.OrderBookSnapshot, error)
	// Klines returns OHLCV bars ascending by open time, oldest first.
	Klines(ctx context.Context, symbol string, interval models.Interval, r KlineRange) ([]models.Candle, error)
}

// AccountAPI extends MarketAPI with the authenticated account surface.
type AccountAPI interface {
	MarketAPI
	Balances(ctx context.Context) ([]models.Balance, error)
	ActiveOrders(ctx context.Context, symbol string) ([]models.OpenOrder, error)
	OrderHistory(ctx context.Context, symbol string) ([]models.OpenOrder, error)
	Positions(ctx context.Context, symbol string) ([]models.Position, error)
}
