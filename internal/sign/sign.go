// Package sign builds canonical query strings and HMAC-SHA256 request
// signatures. The canonical form is the signature input, so it must be
// byte-for-byte deterministic: keys sorted lexicographically, empty values
// omitted, standard URL encoding.
package sign

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"net/url"
	"sort"
	"strings"
)

// Params is an unordered set of request parameters.
type Params map[string]string

// Canonical renders params as "k1=v1&k2=v2" with keys in lexicographic order.
// Parameters with empty values are dropped entirely. Two calls with the same
// logical parameters always produce identical bytes regardless of map
// iteration order.
func Canonical(params Params) string {
	keys := make([]string, 0, len(params))
	for k, v := range params {
		if v == "" {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for i, k := range keys {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(url.QueryEscape(k))
		b.WriteByte('=')
		b.WriteString(url.QueryEscape(params[k]))
	}
	return b.String()
}

// HMACSHA256 returns the lowercase hex HMAC-SHA256 of payload under secret.
func HMACSHA256(secret, payload string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(payload))
	return hex.EncodeToString(mac.Sum(nil))
}

// SignedQuery canonicalises params and appends the signature under sigKey
// ("signature" for Binance style endpoints, "sign" for Bybit style). The
// signature always lands at the end of the query string.
func SignedQuery(secret string, params Params, sigKey string) string {
	canonical := Canonical(params)
	return canonical + "&" + sigKey + "=" + HMACSHA256(secret, canonical)
}
