package symbols

import "strings"

// Normalize converts exchange-specific symbol spellings into the common
// format used across the unified interface: uppercase, no separators, BTC
// instead of Kraken's XBT aliases. Currently supported exchanges: binance,
// bybit, kraken.
func Normalize(exchange, sym string) string {
	switch strings.ToLower(exchange) {
	case "kraken":
		sym = strings.ReplaceAll(sym, "/", "")
		sym = strings.ReplaceAll(sym, "-", "")
		sym = strings.ReplaceAll(sym, "XBT", "BTC")
		// Kraken prefixes some legacy assets with X/Z in result keys
		// (XXBTZUSD); strip only the documented pairs.
		switch sym {
		case "XBTCZUSD":
			sym = "BTCUSD"
		case "XETHZUSD":
			sym = "ETHUSD"
		}
	case "bybit", "binance":
		// already in the desired format
	default:
		// others already use the desired format
	}
	return strings.ToUpper(sym)
}
