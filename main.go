package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"cryptobridge/config"
	"cryptobridge/internal/dashboard"
	"cryptobridge/internal/exchange"
	"cryptobridge/internal/exchange/binance"
	"cryptobridge/internal/exchange/bybit"
	"cryptobridge/internal/exchange/kraken"
	"cryptobridge/internal/metrics"
	"cryptobridge/internal/stream"
	"cryptobridge/logger"
)

func main() {
	log := logger.GetLogger()

	// Load environment variables from .env if present
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.WithError(err).Warn("Error loading .env file")
	}

	configPath := flag.String("config", "config/config.yml", "Path to configuration file")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.WithError(err).Error("Failed to load configuration")
		os.Exit(1)
	}

	if err := log.Configure(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output, cfg.Logging.MaxAge); err != nil {
		log.WithError(err).Error("Failed to configure logger")
		os.Exit(1)
	}

	log.WithFields(logger.Fields{
		"service": cfg.Cryptobridge.Name,
		"version": cfg.Cryptobridge.Version,
	}).Info("starting cryptobridge")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.Logging.CloudWatch.Enabled {
		logger.InitCloudWatch(cfg.Logging.CloudWatch.Region, cfg.Logging.CloudWatch.Namespace, cfg.Logging.CloudWatch.Dashboard)
		logger.CreateDefaultDashboard(ctx)
	}

	if strings.ToLower(cfg.Logging.Level) == "report" {
		logger.StartReport(ctx, log, 30*time.Second)
	}

	metrics.Init()

	clients := buildClients(cfg)
	if len(clients) == 0 {
		log.WithComponent("main").Error("no exchange venue configured")
		os.Exit(1)
	}
	for _, c := range clients {
		log.WithComponent("main").WithField("venue", c.Name()).Info("venue ready")
	}

	var sessions []*stream.Session
	if cfg.Stream.Enabled {
		session, err := buildSession(cfg)
		if err != nil {
			log.WithError(err).Error("failed to build stream session")
			os.Exit(1)
		}
		session.Start(ctx)
		defer session.Close()
		sessions = append(sessions, session)
	}

	dash, err := dashboard.NewServer(cfg.Dashboard, log, func() []dashboard.SessionStatus {
		statuses := make([]dashboard.SessionStatus, 0, len(sessions))
		for _, s := range sessions {
			statuses = append(statuses, dashboard.SessionStatus{
				ID:       s.ID(),
				Exchange: s.Exchange(),
				State:    s.State().String(),
			})
		}
		return statuses
	})
	if err != nil {
		log.WithError(err).Error("failed to build dashboard server")
		os.Exit(1)
	}
	if dash != nil {
		go func() {
			if err := dash.Run(ctx, cfg.Cryptobridge.Name); err != nil {
				log.WithError(err).Error("dashboard server failed")
			}
		}()
		log.WithComponent("main").WithField("address", dash.Address()).Info("dashboard listening")
	}

	if len(cfg.Stream.Symbols) > 0 {
		go pollPrices(ctx, log, clients, cfg.Stream.Symbols)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	log.WithComponent("main").Info("shutdown signal received")
	cancel()
}

// buildClients wraps every venue with a configured REST endpoint in the
// degrading facade.
func buildClients(cfg *config.Config) map[string]*exchange.Client {
	clients := make(map[string]*exchange.Client)
	add := func(venue config.VenueConfig, api exchange.MarketAPI) {
		if venue.RestURL != "" {
			clients[api.Name()] = exchange.NewClient(api)
		}
	}
	add(cfg.Exchanges.Binance.Spot, binance.NewSpot(cfg.Exchanges.Binance.Spot))
	add(cfg.Exchanges.Binance.Futures, binance.NewFutures(cfg.Exchanges.Binance.Futures))
	add(cfg.Exchanges.Bybit.USDT, bybit.NewUSDT(cfg.Exchanges.Bybit.USDT))
	add(cfg.Exchanges.Bybit.Inverse, bybit.NewInverse(cfg.Exchanges.Bybit.Inverse))
	add(cfg.Exchanges.Kraken, kraken.New(cfg.Exchanges.Kraken))
	return clients
}

// buildSession wires the configured streaming venue: public book tickers for
// the configured symbols plus, when credentials are present, the private
// user data stream through a managed listen key.
func buildSession(cfg *config.Config) (*stream.Session, error) {
	log := logger.GetLogger().WithComponent("main")

	streamCfg := stream.Config{
		Exchange:         cfg.Stream.Venue,
		Symbols:          cfg.Stream.Symbols,
		SubscriptionID:   cfg.Stream.SubscriptionID,
		KeepAlive:        cfg.Stream.KeepAliveInterval.Std(),
		HandshakeTimeout: cfg.Stream.HandshakeTimeout.Std(),
	}

	switch cfg.Stream.Venue {
	case "binance_spot":
		venue := cfg.Exchanges.Binance.Spot
		streamCfg.URL = venue.WsURL
		streamCfg.ExecutionEvent = "executionReport"
		streamCfg.AccountEvent = "outboundAccountPosition"
		if venue.APIKey != "" {
			streamCfg.Keys = binance.NewSpot(venue).ListenKeys()
		}
	case "binance_futures":
		venue := cfg.Exchanges.Binance.Futures
		streamCfg.URL = venue.WsURL
		streamCfg.ExecutionEvent = "ORDER_TRADE_UPDATE"
		streamCfg.AccountEvent = "ACCOUNT_UPDATE"
		if venue.APIKey != "" {
			streamCfg.Keys = binance.NewFutures(venue).ListenKeys()
		}
	}
	if streamCfg.URL == "" {
		return nil, fmt.Errorf("no websocket URL configured for stream venue %s", cfg.Stream.Venue)
	}

	handlers := stream.Handlers{
		OnPrice: func(u stream.PriceUpdate) {
			log.WithFields(logger.Fields{
				"symbol": u.Symbol,
				"bid":    u.Bid,
				"ask":    u.Ask,
			}).Debug("book ticker update")
		},
		OnExecution: func(raw json.RawMessage) {
			log.WithField("payload_bytes", len(raw)).Info("order execution update")
		},
		OnAccount: func(raw json.RawMessage) {
			log.WithField("payload_bytes", len(raw)).Info("account update")
		},
	}

	return stream.New(streamCfg, handlers), nil
}

// pollPrices periodically reads prices through the facade for every
// configured venue. Failed venues report the documented sentinel and the
// loop keeps going.
func pollPrices(ctx context.Context, log *logger.Log, clients map[string]*exchange.Client, symbols []string) {
	plog := log.WithComponent("poller")
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		for _, client := range clients {
			quotes := client.GetMultiplePrice(ctx, symbols)
			plog.WithFields(logger.Fields{
				"venue":  client.Name(),
				"quotes": len(quotes),
			}).Info("price poll")
		}
	}
}
