package exchange

import (
	"context"

	"cryptobridge/internal/apierr"
	"cryptobridge/internal/metrics"
	"cryptobridge/internal/models"
	"cryptobridge/logger"
)

// Client is the never-raises facade. Every getter absorbs adapter errors and
// degrades to a documented sentinel: -1 for prices, empty (non-nil) slices
// and snapshots for everything else. Failures are logged and counted, never
// propagated.
type Client struct {
	api MarketAPI
	log *logger.Entry
}

// NewClient wraps a venue adapter in the degrading facade.
func NewClient(api MarketAPI) *Client {
	return &Client{
		api: api,
		log: logger.GetLogger().WithComponent("facade_" + api.Name()),
	}
}

// Name reports the wrapped venue name.
func (c *Client) Name() string { return c.api.Name() }

// Unwrap exposes the underlying adapter for callers that want typed errors.
func (c *Client) Unwrap() MarketAPI { return c.api }

func (c *Client) absorb(op string, err error) {
	metrics.IncrementPollingError(c.api.Name(), op, apierr.KindOf(err).String())
	c.log.WithField("operation", op).WithError(err).Warn("request degraded to fallback value")
}

// GetPrice returns the last price for symbol, or -1 when the venue call
// fails for any reason.
func (c *Client) GetPrice(ctx context.Context, symbol string) float64 {
	price, err := c.api.Price(ctx, symbol)
	if err != nil {
		c.absorb("price", err)
		return models.PriceUnavailable
	}
	return price
}

// GetMultiplePrice returns quotes for the requested symbols. On failure the
// result is empty, never nil. Unknown symbols are simply absent.
func (c *Client) GetMultiplePrice(ctx context.Context, symbols []string) []models.PriceQuote {
	quotes, err := c.api.Prices(ctx, symbols)
	if err != nil {
		c.absorb("prices", err)
		return []models.PriceQuote{}
	}
	if quotes == nil {
		quotes = []models.PriceQuote{}
	}
	return quotes
}

// GetOrderBook returns a book snapshot, or an empty snapshot on failure.
func (c *Client) GetOrderBook(ctx context.Context, symbol string, limit int) models.OrderBookSnapshot {
	book, err := c.api.OrderBook(ctx, symbol, limit)
	if err != nil {
		c.absorb("orderbook", err)
		return models.OrderBookSnapshot{Bids: models.OrderBookSide{}, Asks: models.OrderBookSide{}}
	}
	if book.Bids == nil {
		book.Bids = models.OrderBookSide{}
	}
	if book.Asks == nil {
		book.Asks = models.OrderBookSide{}
	}
	return book
}

// GetKlineData returns OHLCV bars oldest first, or an empty slice on failure.
func (c *Client) GetKlineData(ctx context.Context, symbol string, interval models.Interval, r KlineRange) []models.Candle {
	candles, err := c.api.Klines(ctx, symbol, interval, r)
	if err != nil {
		c.absorb("klines", err)
		return []models.Candle{}
	}
	if candles == nil {
		candles = []models.Candle{}
	}
	return candles
}

func (c *Client) account(op string) (AccountAPI, bool) {
	acct, ok := c.api.(AccountAPI)
	if !ok {
		c.log.WithField("operation", op).Warn("venue has no account capability")
		metrics.IncrementPollingError(c.api.Name(), op, "unsupported")
	}
	return acct, ok
}

// GetBalance returns account balances, or an empty slice when the call fails
// or the venue exposes no account surface.
func (c *Client) GetBalance(ctx context.Context) []models.Balance {
	acct, ok := c.account("balances")
	if !ok {
		return []models.Balance{}
	}
	balances, err := acct.Balances(ctx)
	if err != nil {
		c.absorb("balances", err)
		return []models.Balance{}
	}
	if balances == nil {
		balances = []models.Balance{}
	}
	return balances
}

// GetActiveOrders returns currently open orders for symbol, empty on failure.
func (c *Client) GetActiveOrders(ctx context.Context, symbol string) []models.OpenOrder {
	acct, ok := c.account("active_orders")
	if !ok {
		return []models.OpenOrder{}
	}
	orders, err := acct.ActiveOrders(ctx, symbol)
	if err != nil {
		c.absorb("active_orders", err)
		return []models.OpenOrder{}
	}
	if orders == nil {
		orders = []models.OpenOrder{}
	}
	return orders
}

// GetOrderHistory returns historical orders for symbol, empty on failure.
func (c *Client) GetOrderHistory(ctx context.Context, symbol string) []models.OpenOrder {
	acct, ok := c.account("order_history")
	if !ok {
		return []models.OpenOrder{}
	}
	orders, err := acct.OrderHistory(ctx, symbol)
	if err != nil {
		c.absorb("order_history", err)
		return []models.OpenOrder{}
	}
	if orders == nil {
		orders = []models.OpenOrder{}
	}
	return orders
}

// GetPositions returns open derivative positions, empty on failure or for
// spot-only venues.
func (c *Client) GetPositions(ctx context.Context, symbol string) []models.Position {
	acct, ok := c.account("positions")
	if !ok {
		return []models.Position{}
	}
	positions, err := acct.Positions(ctx, symbol)
	if err != nil {
		c.absorb("positions", err)
		return []models.Position{}
	}
	if positions == nil {
		positions = []models.Position{}
	}
	return positions
}
