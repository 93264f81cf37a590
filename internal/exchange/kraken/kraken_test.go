package kraken

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"cryptobridge/config"
	"cryptobridge/internal/apierr"
	"cryptobridge/internal/exchange"
	"cryptobridge/internal/models"
)

func newServer(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return New(config.VenueConfig{RestURL: srv.URL})
}

func TestPriceFromLegacyPairKey(t *testing.T) {
	c := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/0/public/Ticker" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.Write([]byte(`{"error":[],"result":{"XXBTZUSD":{"c":["42050.10","0.01000000"]}}}`))
	})

	price, err := c.Price(context.Background(), "BTCUSD")
	if err != nil {
		t.Fatal(err)
	}
	if price != 42050.10 {
		t.Fatalf("price = %v", price)
	}
}

func TestErrorArrayBecomesParameterError(t *testing.T) {
	c := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"error":["EQuery:Unknown asset pair"],"result":null}`))
	})

	_, err := c.Price(context.Background(), "NOPE")
	if !apierr.IsParameter(err) {
		t.Fatalf("err = %v, want parameter error", err)
	}
}

func TestPricesNormalisesResultKeys(t *testing.T) {
	c := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("pair"); got != "BTCUSD,ETHUSD" {
			t.Errorf("pair = %q", got)
		}
		w.Write([]byte(`{"error":[],"result":{
			"XXBTZUSD":{"c":["42000.0","0.1"]},
			"XETHZUSD":{"c":["2200.0","0.5"]}
		}}`))
	})

	quotes, err := c.Prices(context.Background(), []string{"BTCUSD", "ETHUSD"})
	if err != nil {
		t.Fatal(err)
	}
	if len(quotes) != 2 {
		t.Fatalf("got %d quotes", len(quotes))
	}
	bySymbol := map[string]float64{}
	for _, q := range quotes {
		bySymbol[q.Symbol] = q.Price
	}
	if bySymbol["BTCUSD"] != 42000 || bySymbol["ETHUSD"] != 2200 {
		t.Fatalf("unexpected quotes %+v", quotes)
	}
}

func TestOrderBook(t *testing.T) {
	c := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("count"); got != "2" {
			t.Errorf("count = %q", got)
		}
		w.Write([]byte(`{"error":[],"result":{"XXBTZUSD":{
			"bids":[["41999.0","1.5",1700000000],["41998.0","0.3",1700000001]],
			"asks":[["42001.0","2.0",1700000000]]
		}}}`))
	})

	book, err := c.OrderBook(context.Background(), "BTCUSD", 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(book.Bids) != 2 || len(book.Asks) != 1 {
		t.Fatalf("bids=%d asks=%d", len(book.Bids), len(book.Asks))
	}
	if book.Bids[0].Price != 41999 || book.Bids[0].Quantity != 1.5 {
		t.Fatalf("unexpected level %+v", book.Bids[0])
	}
}

func TestKlinesVolumeColumnAndMsTimes(t *testing.T) {
	c := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("interval"); got != "60" {
			t.Errorf("interval = %q, want 60", got)
		}
		if got := r.URL.Query().Get("since"); got != "1700000000" {
			t.Errorf("since = %q, want seconds", got)
		}
		w.Write([]byte(`{"error":[],"result":{
			"XXBTZUSD":[[1700000000,"42000.0","42100.0","41900.0","42050.0","42010.3","15.75",42]],
			"last":1700003600
		}}`))
	})

	candles, err := c.Klines(context.Background(), "BTCUSD", models.IntervalHour1, exchange.KlineRange{Start: 1700000000000})
	if err != nil {
		t.Fatal(err)
	}
	if len(candles) != 1 {
		t.Fatalf("got %d candles", len(candles))
	}
	k := candles[0]
	if k.OpenTime != 1700000000000 {
		t.Fatalf("open time not normalised to ms: %d", k.OpenTime)
	}
	if k.Volume != 15.75 {
		t.Fatalf("volume = %v, must come from index 6 not the vwap column", k.Volume)
	}
}

func TestKlinesRejectUnsupportedInterval(t *testing.T) {
	c := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("request should not reach the wire")
	})

	_, err := c.Klines(context.Background(), "BTCUSD", models.IntervalMin3, exchange.KlineRange{})
	if !apierr.IsParameter(err) {
		t.Fatalf("err = %v, want parameter error", err)
	}
}
