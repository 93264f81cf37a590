package binance

import (
	"context"
	"encoding/json"
	"strconv"

	"cryptobridge/config"
	"cryptobridge/internal/apierr"
	"cryptobridge/internal/exchange"
	"cryptobridge/internal/models"
	"cryptobridge/internal/sign"
)

// Futures serves the Binance USD-M futures venue.
type Futures struct {
	base
}

// NewFutures builds a futures adapter from venue configuration.
func NewFutures(cfg config.VenueConfig) *Futures {
	return &Futures{base: newBase(cfg)}
}

func (f *Futures) Name() string { return "binance_futures" }

func (f *Futures) Price(ctx context.Context, symbol string) (float64, error) {
	const path = "/fapi/v1/ticker/price"
	query := sign.Canonical(sign.Params{"symbol": symbol})
	body, err := f.rest.Get(ctx, "price", path, query)
	if err != nil {
		return 0, err
	}
	var ticker struct {
		Price string `json:"price"`
	}
	if err := json.Unmarshal(body, &ticker); err != nil {
		return 0, apierr.Request("price", f.rest.URL(path, query), err)
	}
	return parseFloat(ticker.Price), nil
}

func (f *Futures) Prices(ctx context.Context, symbols []string) ([]models.PriceQuote, error) {
	const path = "/fapi/v1/ticker/price"
	body, err := f.rest.Get(ctx, "prices", path, "")
	if err != nil {
		return nil, err
	}
	var tickers []struct {
		Symbol string `json:"symbol"`
		Price  string `json:"price"`
	}
	if err := json.Unmarshal(body, &tickers); err != nil {
		return nil, apierr.Request("prices", f.rest.URL(path, ""), err)
	}

	wanted := make(map[string]bool, len(symbols))
	for _, sym := range symbols {
		wanted[sym] = true
	}
	quotes := make([]models.PriceQuote, 0, len(symbols))
	for _, t := range tickers {
		if wanted[t.Symbol] {
			quotes = append(quotes, models.PriceQuote{Symbol: t.Symbol, Price: parseFloat(t.Price)})
		}
	}
	return quotes, nil
}

func (f *Futures) OrderBook(ctx context.Context, symbol string, limit int) (models.OrderBookSnapshot, error) {
	const path = "/fapi/v1/depth"
	params := sign.Params{"symbol": symbol}
	if limit > 0 {
		params["limit"] = strconv.Itoa(limit)
	}
	query := sign.Canonical(params)
	body, err := f.rest.Get(ctx, "orderbook", path, query)
	if err != nil {
		return models.OrderBookSnapshot{}, err
	}
	var book struct {
		Bids [][]json.Number `json:"bids"`
		Asks [][]json.Number `json:"asks"`
	}
	if err := json.Unmarshal(body, &book); err != nil {
		return models.OrderBookSnapshot{}, apierr.Request("orderbook", f.rest.URL(path, query), err)
	}
	return models.OrderBookSnapshot{Bids: parseLevels(book.Bids), Asks: parseLevels(book.Asks)}, nil
}

func (f *Futures) Klines(ctx context.Context, symbol string, interval models.Interval, r exchange.KlineRange) ([]models.Candle, error) {
	const path = "/fapi/v1/klines"
	token, err := wireInterval(interval, "klines", f.rest.URL(path, ""))
	if err != nil {
		return nil, err
	}
	params := sign.Params{"symbol": symbol, "interval": token}
	rangeParams(params, r)
	query := sign.Canonical(params)
	body, err := f.rest.Get(ctx, "klines", path, query)
	if err != nil {
		return nil, err
	}
	return parseKlines(body, "klines", f.rest.URL(path, query))
}

func (f *Futures) Balances(ctx context.Context) ([]models.Balance, error) {
	const path = "/fapi/v2/balance"
	body, err := f.signedGet(ctx, "balances", path, sign.Params{})
	if err != nil {
		return nil, err
	}
	var rows []struct {
		Asset     string `json:"asset"`
		Balance   string `json:"balance"`
		Available string `json:"availableBalance"`
	}
	if err := json.Unmarshal(body, &rows); err != nil {
		return nil, apierr.Request("balances", f.rest.URL(path, ""), err)
	}
	balances := make([]models.Balance, 0, len(rows))
	for _, row := range rows {
		total, available := parseFloat(row.Balance), parseFloat(row.Available)
		if total == 0 && available == 0 {
			continue
		}
		locked := total - available
		if locked < 0 {
			locked = 0
		}
		balances = append(balances, models.Balance{Asset: row.Asset, Available: available, Locked: locked})
	}
	return balances, nil
}

func (f *Futures) ActiveOrders(ctx context.Context, symbol string) ([]models.OpenOrder, error) {
	const path = "/fapi/v1/openOrders"
	body, err := f.signedGet(ctx, "active_orders", path, sign.Params{"symbol": symbol})
	if err != nil {
		return nil, err
	}
	return decodeOrders(body, "active_orders", f.rest.URL(path, ""))
}

func (f *Futures) OrderHistory(ctx context.Context, symbol string) ([]models.OpenOrder, error) {
	const path = "/fapi/v1/allOrders"
	body, err := f.signedGet(ctx, "order_history", path, sign.Params{"symbol": symbol})
	if err != nil {
		return nil, err
	}
	return decodeOrders(body, "order_history", f.rest.URL(path, ""))
}

// Positions reads position risk and keeps only non-flat entries. The side is
// derived from the sign of the position amount; the reported quantity is the
// signed amount as the exchange sent it.
func (f *Futures) Positions(ctx context.Context, symbol string) ([]models.Position, error) {
	const path = "/fapi/v2/positionRisk"
	params := sign.Params{}
	if symbol != "" {
		params["symbol"] = symbol
	}
	body, err := f.signedGet(ctx, "positions", path, params)
	if err != nil {
		return nil, err
	}
	var rows []struct {
		Symbol           string `json:"symbol"`
		PositionAmt      string `json:"positionAmt"`
		EntryPrice       string `json:"entryPrice"`
		Leverage         string `json:"leverage"`
		UnrealizedProfit string `json:"unRealizedProfit"`
	}
	if err := json.Unmarshal(body, &rows); err != nil {
		return nil, apierr.Request("positions", f.rest.URL(path, ""), err)
	}
	positions := make([]models.Position, 0, len(rows))
	for _, row := range rows {
		amt := parseFloat(row.PositionAmt)
		if amt == 0 {
			continue
		}
		side := models.SideBuy
		if amt < 0 {
			side = models.SideSell
		}
		positions = append(positions, models.Position{
			Symbol:           row.Symbol,
			Quantity:         amt,
			Side:             side,
			EntryPrice:       parseFloat(row.EntryPrice),
			Leverage:         parseFloat(row.Leverage),
			UnrealizedProfit: parseFloat(row.UnrealizedProfit),
		})
	}
	return positions, nil
}
