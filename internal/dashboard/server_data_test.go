package dashboard

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"cryptobridge/config"
	"cryptobridge/internal/metrics"
	"cryptobridge/logger"
)

func newTestServer(t *testing.T, sessions StatusFunc) *Server {
	t.Helper()
	cfg := config.DashboardConfig{
		Enabled:         true,
		RefreshInterval: config.Duration(time.Second),
		LogHistory:      10,
	}
	srv, err := NewServer(cfg, logger.Logger(), sessions)
	if err != nil {
		t.Fatalf("NewServer error: %v", err)
	}
	if srv == nil {
		t.Fatal("expected non-nil server")
	}
	t.Cleanup(srv.cleanup)
	return srv
}

func TestHealthEndpoint(t *testing.T) {
	srv := newTestServer(t, nil)
	router, err := srv.buildRouter("cryptobridge")
	if err != nil {
		t.Fatalf("buildRouter error: %v", err)
	}

	res := httptest.NewRecorder()
	router.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if res.Code != http.StatusOK {
		t.Fatalf("status = %d", res.Code)
	}
}

func TestStatusEndpointReportsSessions(t *testing.T) {
	srv := newTestServer(t, func() []SessionStatus {
		return []SessionStatus{{ID: "abc", Exchange: "binance_spot", State: "open"}}
	})
	router, err := srv.buildRouter("cryptobridge")
	if err != nil {
		t.Fatalf("buildRouter error: %v", err)
	}

	res := httptest.NewRecorder()
	router.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/status", nil))
	if res.Code != http.StatusOK {
		t.Fatalf("status = %d", res.Code)
	}

	var payload struct {
		App      string          `json:"app"`
		Sessions []SessionStatus `json:"sessions"`
	}
	if err := json.Unmarshal(res.Body.Bytes(), &payload); err != nil {
		t.Fatalf("invalid status payload: %v", err)
	}
	if payload.App != "cryptobridge" {
		t.Fatalf("app = %q", payload.App)
	}
	if len(payload.Sessions) != 1 || payload.Sessions[0].State != "open" {
		t.Fatalf("unexpected sessions %+v", payload.Sessions)
	}
}

func TestMetricsEndpointServesPrometheus(t *testing.T) {
	metrics.Init()
	metrics.IncrementPollingError("binance_spot", "price", "request")

	srv := newTestServer(t, nil)
	router, err := srv.buildRouter("cryptobridge")
	if err != nil {
		t.Fatalf("buildRouter error: %v", err)
	}

	res := httptest.NewRecorder()
	router.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if res.Code != http.StatusOK {
		t.Fatalf("status = %d", res.Code)
	}
	if res.Body.Len() == 0 {
		t.Fatal("empty metrics exposition")
	}
}
