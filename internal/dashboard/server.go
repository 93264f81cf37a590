// Package dashboard hosts the operational HTTP surface: health and session
// status, recent logs, host resource history and the Prometheus scrape
// endpoint.
package dashboard

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"cryptobridge/config"
	"cryptobridge/logger"
)

// SessionStatus is one streaming session's state as shown under /status.
type SessionStatus struct {
	ID       string `json:"id"`
	Exchange string `json:"exchange"`
	State    string `json:"state"`
}

// StatusFunc supplies the current session states on each /status request.
type StatusFunc func() []SessionStatus

// Server hosts the Gin powered operations endpoint.
type Server struct {
	cfg        config.DashboardConfig
	log        *logger.Log
	logStore   *logStore
	sampler    *resourceSampler
	sessions   StatusFunc
	httpServer *http.Server
	started    time.Time
}

// NewServer builds the server when the dashboard is enabled; a disabled
// dashboard yields a nil server whose Run is a no-op.
func NewServer(cfg config.DashboardConfig, log *logger.Log, sessions StatusFunc) (*Server, error) {
	if !cfg.Enabled {
		return nil, nil
	}

	cfg.Address = normalizeAddress(cfg.Address)
	if cfg.RefreshInterval.Std() <= 0 {
		cfg.RefreshInterval = config.Duration(5 * time.Second)
	}
	if cfg.LogHistory <= 0 {
		cfg.LogHistory = 200
	}

	store := newLogStore(cfg.LogHistory)
	log.AddHook(store)

	return &Server{
		cfg:      cfg,
		log:      log,
		logStore: store,
		sampler:  newResourceSampler(cfg.LogHistory, cfg.RefreshInterval.Std(), "/", log),
		sessions: sessions,
		started:  time.Now(),
	}, nil
}

// Run starts the HTTP server and blocks until ctx is cancelled or the server
// fails.
func (s *Server) Run(ctx context.Context, appName string) error {
	if s == nil {
		return nil
	}

	defer s.cleanup()

	router, err := s.buildRouter(appName)
	if err != nil {
		return err
	}

	s.sampler.start(ctx)

	s.httpServer = &http.Server{
		Addr:    s.cfg.Address,
		Handler: router,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		<-errCh
		return nil
	case err := <-errCh:
		if err == nil {
			return nil
		}
		return err
	}
}

func (s *Server) cleanup() {
	if s.logStore != nil {
		s.logStore.close()
	}
	if s.sampler != nil {
		s.sampler.stop()
	}
}

// Address reports the network address the server listens on.
func (s *Server) Address() string {
	if s == nil {
		return ""
	}
	return s.cfg.Address
}

func (s *Server) buildRouter(appName string) (*gin.Engine, error) {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	if err := router.SetTrustedProxies(nil); err != nil {
		return nil, err
	}

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "app": appName})
	})

	router.GET("/status", func(c *gin.Context) {
		var sessions []SessionStatus
		if s.sessions != nil {
			sessions = s.sessions()
		}
		if sessions == nil {
			sessions = []SessionStatus{}
		}
		payload := gin.H{
			"app":      appName,
			"uptime":   time.Since(s.started).String(),
			"sessions": sessions,
		}
		if latest, ok := s.sampler.latest(); ok {
			payload["resources"] = latest
		}
		c.JSON(http.StatusOK, payload)
	})

	router.GET("/api/logs", func(c *gin.Context) {
		logsSnapshot := s.logStore.snapshot()
		payload := make([]gin.H, 0, len(logsSnapshot))
		for _, l := range logsSnapshot {
			payload = append(payload, gin.H{
				"timestamp": l.Timestamp.Format(time.RFC3339Nano),
				"level":     l.Level,
				"component": l.Component,
				"message":   l.Message,
				"fields":    l.Fields,
			})
		}
		c.JSON(http.StatusOK, gin.H{"logs": payload})
	})

	router.GET("/api/resources", func(c *gin.Context) {
		snapshots := s.sampler.snapshot()
		payload := make([]gin.H, 0, len(snapshots))
		for _, snap := range snapshots {
			payload = append(payload, gin.H{
				"timestamp":      snap.Timestamp.Format(time.RFC3339Nano),
				"cpu_percent":    snap.CPUPercent,
				"memory_used":    snap.MemoryUsed,
				"memory_total":   snap.MemoryTotal,
				"memory_percent": snap.MemoryPct,
				"disk_used":      snap.DiskUsed,
				"disk_total":     snap.DiskTotal,
				"disk_percent":   snap.DiskPct,
			})
		}
		c.JSON(http.StatusOK, gin.H{"resources": payload})
	})

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return router, nil
}

func normalizeAddress(addr string) string {
	addr = strings.TrimSpace(addr)

	if addr == "" {
		return "0.0.0.0:8080"
	}

	if strings.Contains(addr, "://") {
		if parsed, err := url.Parse(addr); err == nil {
			if host := parsed.Host; host != "" {
				addr = host
			} else if parsed.Opaque != "" {
				addr = parsed.Opaque
			}
		}
	}

	if strings.HasPrefix(addr, ":") {
		if len(addr) > 1 && addr[1] >= '0' && addr[1] <= '9' {
			return "0.0.0.0" + addr
		}
	}

	host, port, err := net.SplitHostPort(addr)
	if err == nil {
		if host == "" || host == "*" {
			host = "0.0.0.0"
		}
		if port == "" {
			port = "8080"
		}
		return net.JoinHostPort(host, port)
	}

	trimmed := strings.TrimSuffix(addr, "/")
	if trimmed == "" {
		return "0.0.0.0:8080"
	}
	if strings.Count(trimmed, ":") > 1 && !strings.HasPrefix(trimmed, "[") {
		return net.JoinHostPort(trimmed, "8080")
	}
	return trimmed + ":8080"
}
