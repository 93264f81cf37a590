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

// Inverse serves the Bybit inverse (coin margined) contract venue.
type Inverse struct {
	base
}

// NewInverse builds an inverse contract adapter from venue configuration.
func NewInverse(cfg config.VenueConfig) *Inverse {
	return &Inverse{base: newBase(cfg)}
}

func (i *Inverse) Name() string { return "bybit_inverse" }

func (i *Inverse) Price(ctx context.Context, symbol string) (float64, error) {
	return tickerPrice(ctx, &i.base, "price", symbol)
}

func (i *Inverse) Prices(ctx context.Context, symbols []string) ([]models.PriceQuote, error) {
	return tickerPrices(ctx, &i.base, symbols)
}

func (i *Inverse) OrderBook(ctx context.Context, symbol string, limit int) (models.OrderBookSnapshot, error) {
	return bookL2(ctx, &i.base, symbol, limit)
}

// Klines reads the inverse kline endpoint. Unlike the linear dialect the
// OHLCV fields arrive as strings here; only the open time is numeric.
func (i *Inverse) Klines(ctx context.Context, symbol string, interval models.Interval, r exchange.KlineRange) ([]models.Candle, error) {
	const path = "/v2/public/kline/list"
	token, err := wireInterval(interval, "klines", i.rest.URL(path, ""))
	if err != nil {
		return nil, err
	}
	params := sign.Params{"symbol": symbol, "interval": token}
	fromParam(params, r.Start, r.Limit)
	query := sign.Canonical(params)
	raw, err := i.call(ctx, "klines", "GET", path, query)
	if err != nil {
		return nil, err
	}

	var rows []struct {
		OpenTime int64  `json:"open_time"`
		Open     string `json:"open"`
		High     string `json:"high"`
		Low      string `json:"low"`
		Close    string `json:"close"`
		Volume   string `json:"volume"`
	}
	if err := json.Unmarshal(raw, &rows); err != nil {
		return nil, apierr.Request("klines", i.rest.URL(path, query), err)
	}
	candles := make([]models.Candle, 0, len(rows))
	for _, row := range rows {
		candles = append(candles, models.Candle{
			OpenTime: row.OpenTime * 1000,
			Open:     parseFloat(row.Open),
			High:     parseFloat(row.High),
			Low:      parseFloat(row.Low),
			Close:    parseFloat(row.Close),
			Volume:   parseFloat(row.Volume),
		})
	}
	return candles, nil
}

func (i *Inverse) Balances(ctx context.Context) ([]models.Balance, error) {
	const path = "/v2/private/wallet/balance"
	query := i.signedQuery(sign.Params{})
	raw, err := i.call(ctx, "balances", "GET", path, query)
	if err != nil {
		return nil, err
	}
	return decodeBalances(raw, "balances", i.rest.URL(path, ""))
}

func (i *Inverse) ActiveOrders(ctx context.Context, symbol string) ([]models.OpenOrder, error) {
	const path = "/v2/private/order/list"
	query := i.signedQuery(sign.Params{"symbol": symbol, "order_status": "New"})
	raw, err := i.call(ctx, "active_orders", "GET", path, query)
	if err != nil {
		return nil, err
	}
	return decodeOrders(raw, "active_orders", i.rest.URL(path, ""))
}

func (i *Inverse) OrderHistory(ctx context.Context, symbol string) ([]models.OpenOrder, error) {
	const path = "/v2/private/order/list"
	query := i.signedQuery(sign.Params{"symbol": symbol})
	raw, err := i.call(ctx, "order_history", "GET", path, query)
	if err != nil {
		return nil, err
	}
	return decodeOrders(raw, "order_history", i.rest.URL(path, ""))
}

// Positions queries one symbol; the inverse endpoint answers with a single
// position object rather than a list.
func (i *Inverse) Positions(ctx context.Context, symbol string) ([]models.Position, error) {
	const path = "/v2/private/position/list"
	query := i.signedQuery(sign.Params{"symbol": symbol})
	raw, err := i.call(ctx, "positions", "GET", path, query)
	if err != nil {
		return nil, err
	}

	var row wirePosition
	if err := json.Unmarshal(raw, &row); err != nil {
		return nil, apierr.Request("positions", i.rest.URL(path, ""), err)
	}
	if p, ok := row.model(); ok {
		return []models.Position{p}, nil
	}
	return []models.Position{}, nil
}
