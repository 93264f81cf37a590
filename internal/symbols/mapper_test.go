package symbols

import "testing"

func TestNormalize(t *testing.T) {
	tests := []struct {
		exchange string
		in       string
		want     string
	}{
		{"kraken", "BTC/USD", "BTCUSD"},
		{"kraken", "XBT-USD", "BTCUSD"},
		{"kraken", "XXBTZUSD", "BTCUSD"},
		{"kraken", "XETHZUSD", "ETHUSD"},
		{"binance", "ETHUSDT", "ETHUSDT"},
		{"bybit", "btcusdt", "BTCUSDT"},
		{"unknown", "ada-usd", "ADA-USD"},
	}
	for _, tt := range tests {
		if got := Normalize(tt.exchange, tt.in); got != tt.want {
			t.Errorf("Normalize(%s,%s)=%s want %s", tt.exchange, tt.in, got, tt.want)
		}
	}
}
