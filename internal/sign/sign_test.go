package sign

import (
	"strings"
	"testing"
)

func TestCanonicalSortsKeys(t *testing.T) {
	got := Canonical(Params{"symbol": "BTCUSDT", "interval": "1m", "limit": "100"})
	want := "interval=1m&limit=100&symbol=BTCUSDT"
	if got != want {
		t.Fatalf("canonical = %q, want %q", got, want)
	}
}

func TestCanonicalOmitsEmptyValues(t *testing.T) {
	got := Canonical(Params{"symbol": "BTCUSDT", "startTime": "", "endTime": "", "limit": "50"})
	want := "limit=50&symbol=BTCUSDT"
	if got != want {
		t.Fatalf("canonical = %q, want %q", got, want)
	}
}

func TestCanonicalEscapesValues(t *testing.T) {
	got := Canonical(Params{"pair": "BTC/USD,ETH/USD"})
	want := "pair=BTC%2FUSD%2CETH%2FUSD"
	if got != want {
		t.Fatalf("canonical = %q, want %q", got, want)
	}
}

// Canonicalisation feeds the signature, so the same logical parameters must
// always produce identical bytes no matter how the map iterates.
func TestCanonicalDeterministic(t *testing.T) {
	params := Params{
		"symbol":    "BTCUSDT",
		"interval":  "1m",
		"startTime": "1581231260",
		"limit":     "200",
		"timestamp": "1650000000000",
	}
	first := Canonical(params)
	for i := 0; i < 50; i++ {
		if got := Canonical(params); got != first {
			t.Fatalf("iteration %d: canonical changed from %q to %q", i, first, got)
		}
	}
}

func TestHMACSHA256KnownVector(t *testing.T) {
	// RFC 4231 test case 2.
	got := HMACSHA256("Jefe", "what do ya want for nothing?")
	want := "5bdcc146bf60754e6a042426089575c75a003f089d2739839dec58b964ec3843"
	if got != want {
		t.Fatalf("hmac = %q, want %q", got, want)
	}
}

func TestSignedQueryAppendsSignatureLast(t *testing.T) {
	q := SignedQuery("secret", Params{"timestamp": "123", "symbol": "BTCUSDT"}, "signature")
	if !strings.HasPrefix(q, "symbol=BTCUSDT&timestamp=123&signature=") {
		t.Fatalf("unexpected signed query %q", q)
	}
	sig := q[strings.LastIndex(q, "=")+1:]
	if sig != HMACSHA256("secret", "symbol=BTCUSDT&timestamp=123") {
		t.Fatalf("signature does not match canonical input")
	}
}

func TestSignedQuerySameParamsSameSignature(t *testing.T) {
	a := SignedQuery("s3cr3t", Params{"a": "1", "b": "2", "c": "3"}, "sign")
	b := SignedQuery("s3cr3t", Params{"c": "3", "a": "1", "b": "2"}, "sign")
	if a != b {
		t.Fatalf("insertion order changed the signed query: %q vs %q", a, b)
	}
}
