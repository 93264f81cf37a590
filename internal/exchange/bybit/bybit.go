// Package bybit adapts the Bybit USDT perpetual (linear) and inverse
// contract REST APIs. Bybit wraps every payload in a ret_code envelope and
// reports application failures on HTTP 200, so the envelope is checked on
// every call before the result is decoded. Signed queries carry api_key and
// a millisecond timestamp inside the signed payload and append the signature
// as the final "sign" parameter.
package bybit

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"cryptobridge/config"
	"cryptobridge/internal/apierr"
	"cryptobridge/internal/exchange/rest"
	"cryptobridge/internal/models"
	"cryptobridge/internal/sign"
)

// retCodeBadParam is Bybit's application code for a rejected parameter.
const retCodeBadParam = 10001

var intervals = map[models.Interval]string{
	models.IntervalMin1:   "1",
	models.IntervalMin3:   "3",
	models.IntervalMin5:   "5",
	models.IntervalMin15:  "15",
	models.IntervalMin30:  "30",
	models.IntervalHour1:  "60",
	models.IntervalHour2:  "120",
	models.IntervalHour4:  "240",
	models.IntervalHour6:  "360",
	models.IntervalHour12: "720",
	models.IntervalDay1:   "D",
	models.IntervalWeek1:  "W",
	models.IntervalMonth1: "M",
}

type envelope struct {
	RetCode int             `json:"ret_code"`
	RetMsg  string          `json:"ret_msg"`
	Result  json.RawMessage `json:"result"`
}

type base struct {
	rest   *rest.Client
	apiKey string
	secret string
	now    func() time.Time
}

func newBase(cfg config.VenueConfig) base {
	return base{
		rest:   rest.New(cfg.RestURL, cfg.Timeout.Std(), cfg.RequestsPerSecond, cfg.Burst),
		apiKey: cfg.APIKey,
		secret: cfg.SecretKey,
		now:    time.Now,
	}
}

// call performs a request and unwraps the ret_code envelope. A non-zero
// ret_code on a 200 response is still a failure; 10001 maps onto the
// parameter error kind, everything else onto the request kind.
func (b *base) call(ctx context.Context, op, method, path, query string) (json.RawMessage, error) {
	body, err := b.rest.Call(ctx, op, method, path, query, nil)
	if err != nil {
		return nil, err
	}
	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, apierr.Request(op, b.rest.URL(path, query), err)
	}
	if env.RetCode != 0 {
		if env.RetCode == retCodeBadParam {
			return nil, apierr.Parameter(op, b.rest.URL(path, query))
		}
		return nil, apierr.Request(op, b.rest.URL(path, query), fmt.Errorf("ret_code %d: %s", env.RetCode, env.RetMsg))
	}
	return env.Result, nil
}

// signedQuery canonicalises params together with the credentials and appends
// the signature last under "sign".
func (b *base) signedQuery(params sign.Params) string {
	params["api_key"] = b.apiKey
	params["timestamp"] = strconv.FormatInt(b.now().UnixMilli(), 10)
	return sign.SignedQuery(b.secret, params, "sign")
}

// wireTicker is one /v2/public/tickers row, shared by both contract types.
type wireTicker struct {
	Symbol    string `json:"symbol"`
	LastPrice string `json:"last_price"`
}

func tickerPrice(ctx context.Context, b *base, op, symbol string) (float64, error) {
	const path = "/v2/public/tickers"
	query := sign.Canonical(sign.Params{"symbol": symbol})
	raw, err := b.call(ctx, op, "GET", path, query)
	if err != nil {
		return 0, err
	}
	var tickers []wireTicker
	if err := json.Unmarshal(raw, &tickers); err != nil {
		return 0, apierr.Request(op, b.rest.URL(path, query), err)
	}
	if len(tickers) == 0 {
		return 0, apierr.NotFound(op, b.rest.URL(path, query))
	}
	return parseFloat(tickers[0].LastPrice), nil
}

// tickerPrices fetches the full ticker table once and filters to the
// requested symbols.
func tickerPrices(ctx context.Context, b *base, symbols []string) ([]models.PriceQuote, error) {
	const path = "/v2/public/tickers"
	raw, err := b.call(ctx, "prices", "GET", path, "")
	if err != nil {
		return nil, err
	}
	var tickers []wireTicker
	if err := json.Unmarshal(raw, &tickers); err != nil {
		return nil, apierr.Request("prices", b.rest.URL(path, ""), err)
	}
	wanted := make(map[string]bool, len(symbols))
	for _, sym := range symbols {
		wanted[sym] = true
	}
	quotes := make([]models.PriceQuote, 0, len(symbols))
	for _, t := range tickers {
		if wanted[t.Symbol] {
			quotes = append(quotes, models.PriceQuote{Symbol: t.Symbol, Price: parseFloat(t.LastPrice)})
		}
	}
	return quotes, nil
}

// bookL2 reads the interleaved L2 book and splits it by side. Bybit has no
// depth parameter on this endpoint; limit truncates locally when positive.
func bookL2(ctx context.Context, b *base, symbol string, limit int) (models.OrderBookSnapshot, error) {
	const path = "/v2/public/orderBook/L2"
	query := sign.Canonical(sign.Params{"symbol": symbol})
	raw, err := b.call(ctx, "orderbook", "GET", path, query)
	if err != nil {
		return models.OrderBookSnapshot{}, err
	}
	var rows []bookLevel
	if err := json.Unmarshal(raw, &rows); err != nil {
		return models.OrderBookSnapshot{}, apierr.Request("orderbook", b.rest.URL(path, query), err)
	}
	book := splitBook(rows)
	if limit > 0 {
		if len(book.Bids) > limit {
			book.Bids = book.Bids[:limit]
		}
		if len(book.Asks) > limit {
			book.Asks = book.Asks[:limit]
		}
	}
	return book, nil
}

func wireInterval(interval models.Interval, op, url string) (string, error) {
	token, ok := intervals[interval]
	if !ok {
		return "", apierr.Parameter(op, url)
	}
	return token, nil
}

func parseFloat(s string) float64 {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return f
}

func wireSide(s string) models.Side {
	if s == "Sell" {
		return models.SideSell
	}
	return models.SideBuy
}

// bookLevel is one /v2/public/orderBook/L2 row. Price is a string, size a
// number, and both sides arrive interleaved tagged by Side.
type bookLevel struct {
	Price string  `json:"price"`
	Size  float64 `json:"size"`
	Side  string  `json:"side"`
}

func splitBook(rows []bookLevel) models.OrderBookSnapshot {
	book := models.OrderBookSnapshot{
		Bids: models.OrderBookSide{},
		Asks: models.OrderBookSide{},
	}
	for _, row := range rows {
		level := models.BookLevel{Price: parseFloat(row.Price), Quantity: row.Size}
		if row.Side == "Sell" {
			book.Asks = append(book.Asks, level)
		} else {
			book.Bids = append(book.Bids, level)
		}
	}
	return book
}

// fromParam converts a millisecond range start to Bybit's second resolution
// "from" parameter, which the kline endpoints require.
func fromParam(params sign.Params, startMs int64, limit int) {
	if startMs > 0 {
		params["from"] = strconv.FormatInt(startMs/1000, 10)
	}
	if limit > 0 {
		params["limit"] = strconv.Itoa(limit)
	}
}

// wireOrder covers both the linear and the inverse order list rows, the
// field names match across the two dialects.
type wireOrder struct {
	Symbol      string      `json:"symbol"`
	OrderID     string      `json:"order_id"`
	OrderLinkID string      `json:"order_link_id"`
	Price       json.Number `json:"price"`
	Qty         json.Number `json:"qty"`
	Side        string      `json:"side"`
	OrderStatus string      `json:"order_status"`
	CreatedTime string      `json:"created_time"`
}

func (o wireOrder) model() models.OpenOrder {
	var ts int64
	if t, err := time.Parse(time.RFC3339, o.CreatedTime); err == nil {
		ts = t.UnixMilli()
	}
	return models.OpenOrder{
		Symbol:        o.Symbol,
		OrderID:       o.OrderID,
		ClientOrderID: o.OrderLinkID,
		Price:         parseFloat(o.Price.String()),
		Side:          wireSide(o.Side),
		Quantity:      parseFloat(o.Qty.String()),
		Status:        o.OrderStatus,
		Time:          ts,
	}
}

// orderList is the paged list wrapper: {"data": [...]} for linear,
// {"data": [...]} for inverse order lists as well.
type orderList struct {
	Data []wireOrder `json:"data"`
}

func decodeOrders(raw json.RawMessage, op, url string) ([]models.OpenOrder, error) {
	var list orderList
	if err := json.Unmarshal(raw, &list); err != nil {
		return nil, apierr.Request(op, url, err)
	}
	orders := make([]models.OpenOrder, 0, len(list.Data))
	for _, row := range list.Data {
		orders = append(orders, row.model())
	}
	return orders, nil
}

// walletBalance is one coin entry of /v2/private/wallet/balance.
type walletBalance struct {
	AvailableBalance float64 `json:"available_balance"`
	UsedMargin       float64 `json:"used_margin"`
	WalletBalance    float64 `json:"wallet_balance"`
}

func decodeBalances(raw json.RawMessage, op, url string) ([]models.Balance, error) {
	var wallets map[string]walletBalance
	if err := json.Unmarshal(raw, &wallets); err != nil {
		return nil, apierr.Request(op, url, err)
	}
	balances := make([]models.Balance, 0, len(wallets))
	for coin, w := range wallets {
		if w.WalletBalance == 0 && w.AvailableBalance == 0 {
			continue
		}
		balances = append(balances, models.Balance{
			Asset:     coin,
			Available: w.AvailableBalance,
			Locked:    w.UsedMargin,
		})
	}
	return balances, nil
}

type wirePosition struct {
	Symbol        string      `json:"symbol"`
	Side          string      `json:"side"`
	Size          json.Number `json:"size"`
	EntryPrice    json.Number `json:"entry_price"`
	Leverage      json.Number `json:"leverage"`
	UnrealisedPnl json.Number `json:"unrealised_pnl"`
}

func (p wirePosition) model() (models.Position, bool) {
	size := parseFloat(p.Size.String())
	if size == 0 {
		return models.Position{}, false
	}
	qty := size
	if p.Side == "Sell" {
		qty = -size
	}
	return models.Position{
		Symbol:           p.Symbol,
		Quantity:         qty,
		Side:             wireSide(p.Side),
		EntryPrice:       parseFloat(p.EntryPrice.String()),
		Leverage:         parseFloat(p.Leverage.String()),
		UnrealizedProfit: parseFloat(p.UnrealisedPnl.String()),
	}, true
}
