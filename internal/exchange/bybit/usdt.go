package bybit

import (
	"context"
	"encoding/json"

	"cryptobridge/config"
	"cryptobridge/internal/apierr"
	"cryptobridge/internal/exchange"
	"cryptobridge/internal/models"
	"cryptobridge/internal/sign"
)

// USDT serves the Bybit USDT perpetual (linear) venue.
type USDT struct {
	base
}

// NewUSDT builds a linear contract adapter from venue configuration.
func NewUSDT(cfg config.VenueConfig) *USDT {
	return &USDT{base: newBase(cfg)}
}

func (u *USDT) Name() string { return "bybit_usdt" }

func (u *USDT) Price(ctx context.Context, symbol string) (float64, error) {
	return tickerPrice(ctx, &u.base, "price", symbol)
}

func (u *USDT) Prices(ctx context.Context, symbols []string) ([]models.PriceQuote, error) {
	return tickerPrices(ctx, &u.base, symbols)
}

func (u *USDT) OrderBook(ctx context.Context, symbol string, limit int) (models.OrderBookSnapshot, error) {
	return bookL2(ctx, &u.base, symbol, limit)
}

// Klines reads the linear kline endpoint, where rows are fully numeric and
// open times are in seconds.
func (u *USDT) Klines(ctx context.Context, symbol string, interval models.Interval, r exchange.KlineRange) ([]models.Candle, error) {
	const path = "/public/linear/kline"
	token, err := wireInterval(interval, "klines", u.rest.URL(path, ""))
	if err != nil {
		return nil, err
	}
	params := sign.Params{"symbol": symbol, "interval": token}
	fromParam(params, r.Start, r.Limit)
	query := sign.Canonical(params)
	raw, err := u.call(ctx, "klines", "GET", path, query)
	if err != nil {
		return nil, err
	}

	var rows []struct {
		OpenTime int64   `json:"open_time"`
		Open     float64 `json:"open"`
		High     float64 `json:"high"`
		Low      float64 `json:"low"`
		Close    float64 `json:"close"`
		Volume   float64 `json:"volume"`
	}
	if err := json.Unmarshal(raw, &rows); err != nil {
		return nil, apierr.Request("klines", u.rest.URL(path, query), err)
	}
	candles := make([]models.Candle, 0, len(rows))
	for _, row := range rows {
		candles = append(candles, models.Candle{
			OpenTime: row.OpenTime * 1000,
			Open:     row.Open,
			High:     row.High,
			Low:      row.Low,
			Close:    row.Close,
			Volume:   row.Volume,
		})
	}
	return candles, nil
}

func (u *USDT) Balances(ctx context.Context) ([]models.Balance, error) {
	const path = "/v2/private/wallet/balance"
	query := u.signedQuery(sign.Params{})
	raw, err := u.call(ctx, "balances", "GET", path, query)
	if err != nil {
		return nil, err
	}
	return decodeBalances(raw, "balances", u.rest.URL(path, ""))
}

func (u *USDT) ActiveOrders(ctx context.Context, symbol string) ([]models.OpenOrder, error) {
	const path = "/private/linear/order/list"
	query := u.signedQuery(sign.Params{"symbol": symbol, "order_status": "New"})
	raw, err := u.call(ctx, "active_orders", "GET", path, query)
	if err != nil {
		return nil, err
	}
	return decodeOrders(raw, "active_orders", u.rest.URL(path, ""))
}

func (u *USDT) OrderHistory(ctx context.Context, symbol string) ([]models.OpenOrder, error) {
	const path = "/private/linear/order/list"
	query := u.signedQuery(sign.Params{"symbol": symbol})
	raw, err := u.call(ctx, "order_history", "GET", path, query)
	if err != nil {
		return nil, err
	}
	return decodeOrders(raw, "order_history", u.rest.URL(path, ""))
}

// Positions reads both hedge-mode sides for symbol and keeps the non-flat
// ones.
func (u *USDT) Positions(ctx context.Context, symbol string) ([]models.Position, error) {
	const path = "/private/linear/position/list"
	params := sign.Params{}
	if symbol != "" {
		params["symbol"] = symbol
	}
	query := u.signedQuery(params)
	raw, err := u.call(ctx, "positions", "GET", path, query)
	if err != nil {
		return nil, err
	}

	var rows []wirePosition
	if err := json.Unmarshal(raw, &rows); err != nil {
		return nil, apierr.Request("positions", u.rest.URL(path, ""), err)
	}
	positions := make([]models.Position, 0, len(rows))
	for _, row := range rows {
		if p, ok := row.model(); ok {
			positions = append(positions, p)
		}
	}
	return positions, nil
}
