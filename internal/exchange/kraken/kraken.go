// Package kraken adapts the Kraken public market data API. Kraken is wired
// as a market-only venue: the account surface is not implemented, callers
// going through the facade get the documented empty results for it. The wire
// dialect keys every result by Kraken's internal pair name (XXBTZUSD for
// BTC/USD), reports application failures through a non-empty "error" array
// on HTTP 200, and timestamps OHLC rows in seconds.
package kraken

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"

	"cryptobridge/config"
	"cryptobridge/internal/apierr"
	"cryptobridge/internal/exchange"
	"cryptobridge/internal/exchange/rest"
	"cryptobridge/internal/models"
	"cryptobridge/internal/sign"
	"cryptobridge/internal/symbols"
)

// intervals maps semantic resolutions onto Kraken's minute granularity.
// Resolutions Kraken does not offer are absent and rejected up front.
var intervals = map[models.Interval]string{
	models.IntervalMin1:  "1",
	models.IntervalMin5:  "5",
	models.IntervalMin15: "15",
	models.IntervalMin30: "30",
	models.IntervalHour1: "60",
	models.IntervalHour4: "240",
	models.IntervalDay1:  "1440",
	models.IntervalWeek1: "10080",
}

// Client serves Kraken public market data.
type Client struct {
	rest *rest.Client
}

// New builds a Kraken adapter from venue configuration.
func New(cfg config.VenueConfig) *Client {
	return &Client{rest: rest.New(cfg.RestURL, cfg.Timeout.Std(), cfg.RequestsPerSecond, cfg.Burst)}
}

func (c *Client) Name() string { return "kraken" }

type envelope struct {
	Error  []string        `json:"error"`
	Result json.RawMessage `json:"result"`
}

// call unwraps Kraken's error-array envelope. Any reported error is treated
// as a rejected request since Kraken signals bad pairs and bad arguments the
// same way.
func (c *Client) call(ctx context.Context, op, path, query string) (json.RawMessage, error) {
	body, err := c.rest.Get(ctx, op, path, query)
	if err != nil {
		return nil, err
	}
	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, apierr.Request(op, c.rest.URL(path, query), err)
	}
	if len(env.Error) > 0 {
		return nil, apierr.Parameter(op, c.rest.URL(path, query))
	}
	return env.Result, nil
}

type wireTicker struct {
	Close []string `json:"c"`
}

func (c *Client) Price(ctx context.Context, symbol string) (float64, error) {
	const path = "/0/public/Ticker"
	query := sign.Canonical(sign.Params{"pair": symbol})
	raw, err := c.call(ctx, "price", path, query)
	if err != nil {
		return 0, err
	}
	var result map[string]wireTicker
	if err := json.Unmarshal(raw, &result); err != nil {
		return 0, apierr.Request("price", c.rest.URL(path, query), err)
	}
	for _, t := range result {
		if len(t.Close) > 0 {
			f, err := strconv.ParseFloat(t.Close[0], 64)
			if err != nil {
				return 0, apierr.Request("price", c.rest.URL(path, query), err)
			}
			return f, nil
		}
	}
	return 0, apierr.NotFound("price", c.rest.URL(path, query))
}

// Prices queries all requested pairs in one request; Kraken accepts a comma
// separated pair list. Result keys are Kraken's internal names, so they are
// normalised back to common symbols before returning.
func (c *Client) Prices(ctx context.Context, syms []string) ([]models.PriceQuote, error) {
	if len(syms) == 0 {
		return []models.PriceQuote{}, nil
	}
	const path = "/0/public/Ticker"
	query := sign.Canonical(sign.Params{"pair": strings.Join(syms, ",")})
	raw, err := c.call(ctx, "prices", path, query)
	if err != nil {
		return nil, err
	}
	var result map[string]wireTicker
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, apierr.Request("prices", c.rest.URL(path, query), err)
	}
	quotes := make([]models.PriceQuote, 0, len(result))
	for pair, t := range result {
		if len(t.Close) == 0 {
			continue
		}
		price, err := strconv.ParseFloat(t.Close[0], 64)
		if err != nil {
			continue
		}
		quotes = append(quotes, models.PriceQuote{
			Symbol: symbols.Normalize("kraken", pair),
			Price:  price,
		})
	}
	return quotes, nil
}

func (c *Client) OrderBook(ctx context.Context, symbol string, limit int) (models.OrderBookSnapshot, error) {
	const path = "/0/public/Depth"
	params := sign.Params{"pair": symbol}
	if limit > 0 {
		params["count"] = strconv.Itoa(limit)
	}
	query := sign.Canonical(params)
	raw, err := c.call(ctx, "orderbook", path, query)
	if err != nil {
		return models.OrderBookSnapshot{}, err
	}
	var result map[string]struct {
		Bids [][]json.Number `json:"bids"`
		Asks [][]json.Number `json:"asks"`
	}
	if err := json.Unmarshal(raw, &result); err != nil {
		return models.OrderBookSnapshot{}, apierr.Request("orderbook", c.rest.URL(path, query), err)
	}
	for _, book := range result {
		return models.OrderBookSnapshot{
			Bids: parseLevels(book.Bids),
			Asks: parseLevels(book.Asks),
		}, nil
	}
	return models.OrderBookSnapshot{}, apierr.NotFound("orderbook", c.rest.URL(path, query))
}

// Klines reads OHLC rows. Rows are arrays of mixed types: the open time is a
// number in seconds, OHLC fields are strings, and the traded volume sits at
// index 6 behind the vwap column. Open times are normalised to milliseconds.
func (c *Client) Klines(ctx context.Context, symbol string, interval models.Interval, r exchange.KlineRange) ([]models.Candle, error) {
	const path = "/0/public/OHLC"
	token, ok := intervals[interval]
	if !ok {
		return nil, apierr.Parameter("klines", c.rest.URL(path, ""))
	}
	params := sign.Params{"pair": symbol, "interval": token}
	if r.Start > 0 {
		params["since"] = strconv.FormatInt(r.Start/1000, 10)
	}
	query := sign.Canonical(params)
	raw, err := c.call(ctx, "klines", path, query)
	if err != nil {
		return nil, err
	}

	var result map[string]json.RawMessage
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, apierr.Request("klines", c.rest.URL(path, query), err)
	}
	for pair, rowsRaw := range result {
		if pair == "last" {
			continue
		}
		var rows [][]interface{}
		if err := json.Unmarshal(rowsRaw, &rows); err != nil {
			return nil, apierr.Request("klines", c.rest.URL(path, query), err)
		}
		candles := make([]models.Candle, 0, len(rows))
		for _, row := range rows {
			if len(row) < 7 {
				continue
			}
			openTime, ok := row[0].(float64)
			if !ok {
				continue
			}
			candles = append(candles, models.Candle{
				OpenTime: int64(openTime) * 1000,
				Open:     rowFloat(row[1]),
				High:     rowFloat(row[2]),
				Low:      rowFloat(row[3]),
				Close:    rowFloat(row[4]),
				Volume:   rowFloat(row[6]),
			})
		}
		if r.Limit > 0 && len(candles) > r.Limit {
			candles = candles[len(candles)-r.Limit:]
		}
		return candles, nil
	}
	return nil, apierr.NotFound("klines", c.rest.URL(path, query))
}

func parseLevels(rows [][]json.Number) models.OrderBookSide {
	side := make(models.OrderBookSide, 0, len(rows))
	for _, row := range rows {
		if len(row) < 2 {
			continue
		}
		price, err := row[0].Float64()
		if err != nil {
			continue
		}
		qty, err := row[1].Float64()
		if err != nil {
			continue
		}
		side = append(side, models.BookLevel{Price: price, Quantity: qty})
	}
	return side
}

func rowFloat(v interface{}) float64 {
	switch t := v.(type) {
	case string:
		f, err := strconv.ParseFloat(t, 64)
		if err != nil {
			return 0
		}
		return f
	case float64:
		return t
	default:
		return 0
	}
}
