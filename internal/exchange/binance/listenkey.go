package binance

import (
	"context"
	"encoding/json"
	"time"

	"cryptobridge/internal/apierr"
	"cryptobridge/internal/models"
	"cryptobridge/internal/sign"
)

// Listen key endpoints authenticate with the API key header alone, the
// payload is not signed.

// SpotListenKeys manages user data stream credentials for the spot venue.
func (s *Spot) ListenKeys() *SpotListenKeys { return &SpotListenKeys{base: &s.base} }

type SpotListenKeys struct {
	base *base
}

func (l *SpotListenKeys) Create(ctx context.Context) (models.ListenKey, error) {
	return createKey(ctx, l.base, "/api/v3/userDataStream")
}

// Renew extends the key's server-side expiry. Spot wants the key it is
// renewing as a query parameter.
func (l *SpotListenKeys) Renew(ctx context.Context, token string) error {
	query := sign.Canonical(sign.Params{"listenKey": token})
	_, err := l.base.rest.Call(ctx, "renew_listen_key", "PUT", "/api/v3/userDataStream", query,
		map[string]string{"X-MBX-APIKEY": l.base.apiKey})
	return err
}

// FuturesListenKeys manages user data stream credentials for USD-M futures.
func (f *Futures) ListenKeys() *FuturesListenKeys { return &FuturesListenKeys{base: &f.base} }

type FuturesListenKeys struct {
	base *base
}

func (l *FuturesListenKeys) Create(ctx context.Context) (models.ListenKey, error) {
	return createKey(ctx, l.base, "/fapi/v1/listenKey")
}

// Renew extends the account's single futures key; the endpoint takes no
// parameters.
func (l *FuturesListenKeys) Renew(ctx context.Context, token string) error {
	_, err := l.base.rest.Call(ctx, "renew_listen_key", "PUT", "/fapi/v1/listenKey", "",
		map[string]string{"X-MBX-APIKEY": l.base.apiKey})
	return err
}

func createKey(ctx context.Context, b *base, path string) (models.ListenKey, error) {
	body, err := b.rest.Call(ctx, "create_listen_key", "POST", path, "",
		map[string]string{"X-MBX-APIKEY": b.apiKey})
	if err != nil {
		return models.ListenKey{}, err
	}
	var key models.ListenKey
	if err := json.Unmarshal(body, &key); err != nil {
		return models.ListenKey{}, apierr.Request("create_listen_key", b.rest.URL(path, ""), err)
	}
	key.IssuedAt = time.Now()
	return key, nil
}
