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

// Spot serves the Binance spot venue. It carries the full account surface;
// Positions is answered locally with an empty set since spot has none.
type Spot struct {
	base
}

// NewSpot builds a spot adapter from venue configuration.
func NewSpot(cfg config.VenueConfig) *Spot {
	return &Spot{base: newBase(cfg)}
}

func (s *Spot) Name() string { return "binance_spot" }

func (s *Spot) Price(ctx context.Context, symbol string) (float64, error) {
	const path = "/api/v3/ticker/price"
	query := sign.Canonical(sign.Params{"symbol": symbol})
	body, err := s.rest.Get(ctx, "price", path, query)
	if err != nil {
		return 0, err
	}
	var ticker struct {
		Price string `json:"price"`
	}
	if err := json.Unmarshal(body, &ticker); err != nil {
		return 0, apierr.Request("price", s.rest.URL(path, query), err)
	}
	return parseFloat(ticker.Price), nil
}

// Prices fetches the full ticker table in one request and filters it down to
// the requested symbols, so a large watch list costs a single round trip.
func (s *Spot) Prices(ctx context.Context, symbols []string) ([]models.PriceQuote, error) {
	const path = "/api/v3/ticker/price"
	body, err := s.rest.Get(ctx, "prices", path, "")
	if err != nil {
		return nil, err
	}
	var tickers []struct {
		Symbol string `json:"symbol"`
		Price  string `json:"price"`
	}
	if err := json.Unmarshal(body, &tickers); err != nil {
		return nil, apierr.Request("prices", s.rest.URL(path, ""), err)
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

func (s *Spot) OrderBook(ctx context.Context, symbol string, limit int) (models.OrderBookSnapshot, error) {
	const path = "/api/v3/depth"
	params := sign.Params{"symbol": symbol}
	if limit > 0 {
		params["limit"] = strconv.Itoa(limit)
	}
	query := sign.Canonical(params)
	body, err := s.rest.Get(ctx, "orderbook", path, query)
	if err != nil {
		return models.OrderBookSnapshot{}, err
	}
	var book struct {
		Bids [][]json.Number `json:"bids"`
		Asks [][]json.Number `json:"asks"`
	}
	if err := json.Unmarshal(body, &book); err != nil {
		return models.OrderBookSnapshot{}, apierr.Request("orderbook", s.rest.URL(path, query), err)
	}
	return models.OrderBookSnapshot{Bids: parseLevels(book.Bids), Asks: parseLevels(book.Asks)}, nil
}

func (s *Spot) Klines(ctx context.Context, symbol string, interval models.Interval, r exchange.KlineRange) ([]models.Candle, error) {
	const path = "/api/v3/klines"
	token, err := wireInterval(interval, "klines", s.rest.URL(path, ""))
	if err != nil {
		return nil, err
	}
	params := sign.Params{"symbol": symbol, "interval": token}
	rangeParams(params, r)
	query := sign.Canonical(params)
	body, err := s.rest.Get(ctx, "klines", path, query)
	if err != nil {
		return nil, err
	}
	return parseKlines(body, "klines", s.rest.URL(path, query))
}

// Balances returns the spot wallet, dropping assets where both the free and
// the locked amount are exactly zero.
func (s *Spot) Balances(ctx context.Context) ([]models.Balance, error) {
	const path = "/api/v3/account"
	body, err := s.signedGet(ctx, "balances", path, sign.Params{})
	if err != nil {
		return nil, err
	}
	var account struct {
		Balances []struct {
			Asset  string `json:"asset"`
			Free   string `json:"free"`
			Locked string `json:"locked"`
		} `json:"balances"`
	}
	if err := json.Unmarshal(body, &account); err != nil {
		return nil, apierr.Request("balances", s.rest.URL(path, ""), err)
	}
	balances := make([]models.Balance, 0, len(account.Balances))
	for _, b := range account.Balances {
		free, locked := parseFloat(b.Free), parseFloat(b.Locked)
		if free == 0 && locked == 0 {
			continue
		}
		balances = append(balances, models.Balance{Asset: b.Asset, Available: free, Locked: locked})
	}
	return balances, nil
}

func (s *Spot) ActiveOrders(ctx context.Context, symbol string) ([]models.OpenOrder, error) {
	const path = "/api/v3/openOrders"
	body, err := s.signedGet(ctx, "active_orders", path, sign.Params{"symbol": symbol})
	if err != nil {
		return nil, err
	}
	return decodeOrders(body, "active_orders", s.rest.URL(path, ""))
}

func (s *Spot) OrderHistory(ctx context.Context, symbol string) ([]models.OpenOrder, error) {
	const path = "/api/v3/allOrders"
	body, err := s.signedGet(ctx, "order_history", path, sign.Params{"symbol": symbol})
	if err != nil {
		return nil, err
	}
	return decodeOrders(body, "order_history", s.rest.URL(path, ""))
}

// Positions is a no-op on spot, there is nothing to report.
func (s *Spot) Positions(ctx context.Context, symbol string) ([]models.Position, error) {
	return []models.Position{}, nil
}
