// Package binance adapts the Binance spot and USD-M futures REST APIs onto
// the common capability contract. Both venues share the same wire dialect:
// string encoded numbers, array encoded kline rows and HMAC-SHA256 signed
// queries carrying the signature as the final "signature" parameter with the
// API key in the X-MBX-APIKEY header.
package binance

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"cryptobridge/config"
	"cryptobridge/internal/apierr"
	"cryptobridge/internal/exchange"
	"cryptobridge/internal/exchange/rest"
	"cryptobridge/internal/models"
	"cryptobridge/internal/sign"
)

var intervals = map[models.Interval]string{
	models.IntervalMin1:   "1m",
	models.IntervalMin3:   "3m",
	models.IntervalMin5:   "5m",
	models.IntervalMin15:  "15m",
	models.IntervalMin30:  "30m",
	models.IntervalHour1:  "1h",
	models.IntervalHour2:  "2h",
	models.IntervalHour4:  "4h",
	models.IntervalHour6:  "6h",
	models.IntervalHour8:  "8h",
	models.IntervalHour12: "12h",
	models.IntervalDay1:   "1d",
	models.IntervalDay3:   "3d",
	models.IntervalWeek1:  "1w",
	models.IntervalMonth1: "1M",
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

// signedGet performs an authenticated GET. Binance requires a millisecond
// timestamp inside the signed payload and the signature as the last query
// parameter; the raw query is passed through untouched so the signed bytes
// and the sent bytes cannot drift apart.
func (b *base) signedGet(ctx context.Context, op, path string, params sign.Params) ([]byte, error) {
	params["timestamp"] = strconv.FormatInt(b.now().UnixMilli(), 10)
	query := sign.SignedQuery(b.secret, params, "signature")
	return b.rest.Call(ctx, op, "GET", path, query, map[string]string{"X-MBX-APIKEY": b.apiKey})
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

// parseLevels decodes the [["price","qty"], ...] book side encoding.
func parseLevels(rows [][]json.Number) models.OrderBookSide {
	side := make(models.OrderBookSide, 0, len(rows))
	for _, row := range rows {
		if len(row) < 2 {
			continue
		}
		side = append(side, models.BookLevel{
			Price:    parseFloat(row[0].String()),
			Quantity: parseFloat(row[1].String()),
		})
	}
	return side
}

// parseKlines decodes Binance kline rows: mixed arrays where the open time is
// a JSON number and the OHLCV fields are strings.
func parseKlines(body []byte, op, url string) ([]models.Candle, error) {
	var rows [][]interface{}
	if err := json.Unmarshal(body, &rows); err != nil {
		return nil, apierr.Request(op, url, err)
	}
	candles := make([]models.Candle, 0, len(rows))
	for _, row := range rows {
		if len(row) < 6 {
			continue
		}
		openTime, ok := row[0].(float64)
		if !ok {
			continue
		}
		candles = append(candles, models.Candle{
			OpenTime: int64(openTime),
			Open:     parseFloat(asString(row[1])),
			High:     parseFloat(asString(row[2])),
			Low:      parseFloat(asString(row[3])),
			Close:    parseFloat(asString(row[4])),
			Volume:   parseFloat(asString(row[5])),
		})
	}
	return candles, nil
}

func asString(v interface{}) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return ""
	}
}

func rangeParams(params sign.Params, r exchange.KlineRange) {
	if r.Start > 0 {
		params["startTime"] = strconv.FormatInt(r.Start, 10)
	}
	if r.End > 0 {
		params["endTime"] = strconv.FormatInt(r.End, 10)
	}
	if r.Limit > 0 {
		params["limit"] = strconv.Itoa(r.Limit)
	}
}

type wireOrder struct {
	Symbol        string `json:"symbol"`
	OrderID       int64  `json:"orderId"`
	ClientOrderID string `json:"clientOrderId"`
	Price         string `json:"price"`
	OrigQty       string `json:"origQty"`
	Side          string `json:"side"`
	Status        string `json:"status"`
	Time          int64  `json:"time"`
}

func (o wireOrder) model() models.OpenOrder {
	side := models.SideBuy
	if o.Side == "SELL" {
		side = models.SideSell
	}
	return models.OpenOrder{
		Symbol:        o.Symbol,
		OrderID:       strconv.FormatInt(o.OrderID, 10),
		ClientOrderID: o.ClientOrderID,
		Price:         parseFloat(o.Price),
		Side:          side,
		Quantity:      parseFloat(o.OrigQty),
		Status:        o.Status,
		Time:          o.Time,
	}
}

func decodeOrders(body []byte, op, url string) ([]models.OpenOrder, error) {
	var rows []wireOrder
	if err := json.Unmarshal(body, &rows); err != nil {
		return nil, apierr.Request(op, url, err)
	}
	orders := make([]models.OpenOrder, 0, len(rows))
	for _, row := range rows {
		orders = append(orders, row.model())
	}
	return orders, nil
}
