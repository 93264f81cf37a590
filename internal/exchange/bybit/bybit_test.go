package bybit

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"cryptobridge/config"
	"cryptobridge/internal/apierr"
	"cryptobridge/internal/exchange"
	"cryptobridge/internal/models"
)

func newUSDTServer(t *testing.T, handler http.HandlerFunc) *USDT {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewUSDT(config.VenueConfig{
		RestURL:   srv.URL,
		APIKey:    "test-key",
		SecretKey: "test-secret",
	})
}

func TestUSDTPrice(t *testing.T) {
	u := newUSDTServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v2/public/tickers" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.Write([]byte(`{"ret_code":0,"ret_msg":"OK","result":[{"symbol":"BTCUSDT","last_price":"42100.50"}]}`))
	})

	price, err := u.Price(context.Background(), "BTCUSDT")
	if err != nil {
		t.Fatal(err)
	}
	if price != 42100.50 {
		t.Fatalf("price = %v", price)
	}
}

func TestEnvelopeRetCodeOnHTTP200(t *testing.T) {
	u := newUSDTServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"ret_code":10001,"ret_msg":"invalid symbol","result":null}`))
	})

	_, err := u.Price(context.Background(), "NOPE")
	if !apierr.IsParameter(err) {
		t.Fatalf("err = %v, want parameter error from ret_code 10001", err)
	}
}

func TestOrderBookSplitsSides(t *testing.T) {
	u := newUSDTServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"ret_code":0,"result":[
			{"symbol":"BTCUSDT","price":"42001","size":2,"side":"Sell"},
			{"symbol":"BTCUSDT","price":"41999","size":1,"side":"Buy"},
			{"symbol":"BTCUSDT","price":"42002","size":3,"side":"Sell"}
		]}`))
	})

	book, err := u.OrderBook(context.Background(), "BTCUSDT", 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(book.Bids) != 1 || len(book.Asks) != 2 {
		t.Fatalf("bids=%d asks=%d", len(book.Bids), len(book.Asks))
	}
	if book.Bids[0].Price != 41999 || book.Asks[0].Quantity != 2 {
		t.Fatalf("unexpected book %+v", book)
	}
}

func TestUSDTKlinesNumericRows(t *testing.T) {
	u := newUSDTServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/public/linear/kline" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.URL.Query().Get("interval"); got != "60" {
			t.Errorf("interval = %q, want 60", got)
		}
		if got := r.URL.Query().Get("from"); got != "1700000000" {
			t.Errorf("from = %q, want seconds", got)
		}
		w.Write([]byte(`{"ret_code":0,"result":[{"open_time":1700000000,"open":42000.5,"high":42100,"low":41900,"close":42050,"volume":120.5}]}`))
	})

	candles, err := u.Klines(context.Background(), "BTCUSDT", models.IntervalHour1, exchange.KlineRange{Start: 1700000000000})
	if err != nil {
		t.Fatal(err)
	}
	if len(candles) != 1 {
		t.Fatalf("got %d candles", len(candles))
	}
	if candles[0].OpenTime != 1700000000000 {
		t.Fatalf("open time not normalised to ms: %d", candles[0].OpenTime)
	}
	if candles[0].Open != 42000.5 {
		t.Fatalf("unexpected candle %+v", candles[0])
	}
}

func TestInverseKlinesStringRows(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v2/public/kline/list" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.Write([]byte(`{"ret_code":0,"result":[{"open_time":1700000000,"open":"42000.5","high":"42100","low":"41900","close":"42050","volume":"120.5"}]}`))
	}))
	defer srv.Close()

	i := NewInverse(config.VenueConfig{RestURL: srv.URL, APIKey: "k", SecretKey: "s"})
	candles, err := i.Klines(context.Background(), "BTCUSD", models.IntervalHour1, exchange.KlineRange{})
	if err != nil {
		t.Fatal(err)
	}
	if len(candles) != 1 || candles[0].Close != 42050 || candles[0].OpenTime != 1700000000000 {
		t.Fatalf("unexpected candles %+v", candles)
	}
}

func TestSignedQueryShape(t *testing.T) {
	u := newUSDTServer(t, func(w http.ResponseWriter, r *http.Request) {
		raw := r.URL.RawQuery
		if !strings.Contains(raw, "api_key=test-key") {
			t.Errorf("query missing api_key: %s", raw)
		}
		if !strings.Contains(raw, "timestamp=") {
			t.Errorf("query missing timestamp: %s", raw)
		}
		if idx := strings.Index(raw, "sign="); idx < 0 || strings.Contains(raw[idx:], "&") {
			t.Errorf("sign must be the final parameter: %s", raw)
		}
		w.Write([]byte(`{"ret_code":0,"result":{"USDT":{"available_balance":900,"used_margin":100,"wallet_balance":1000}}}`))
	})

	balances, err := u.Balances(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(balances) != 1 || balances[0].Asset != "USDT" || balances[0].Locked != 100 {
		t.Fatalf("unexpected balances %+v", balances)
	}
}

func TestUSDTPositionsDropFlat(t *testing.T) {
	u := newUSDTServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"ret_code":0,"result":[
			{"symbol":"BTCUSDT","side":"Sell","size":0.5,"entry_price":42000,"leverage":10,"unrealised_pnl":-3.2},
			{"symbol":"BTCUSDT","side":"Buy","size":0,"entry_price":0,"leverage":10,"unrealised_pnl":0}
		]}`))
	})

	positions, err := u.Positions(context.Background(), "BTCUSDT")
	if err != nil {
		t.Fatal(err)
	}
	if len(positions) != 1 {
		t.Fatalf("got %d positions", len(positions))
	}
	p := positions[0]
	if p.Side != models.SideSell || p.Quantity != -0.5 {
		t.Fatalf("unexpected position %+v", p)
	}
}

func TestKlinesRejectUnknownInterval(t *testing.T) {
	u := newUSDTServer(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("request should not reach the wire")
	})

	_, err := u.Klines(context.Background(), "BTCUSDT", models.IntervalHour8, exchange.KlineRange{})
	if !apierr.IsParameter(err) {
		t.Fatalf("err = %v, want parameter error", err)
	}
}
