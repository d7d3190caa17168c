package daemon

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/quitvipe/quitvipe/internal/api"
	"github.com/quitvipe/quitvipe/internal/app/tracker"
	"github.com/quitvipe/quitvipe/internal/health"
	"github.com/quitvipe/quitvipe/internal/infra/cache"
	_ "github.com/quitvipe/quitvipe/internal/infra/metrics" // Register Prometheus metrics
	"github.com/quitvipe/quitvipe/internal/infra/sqlite"
	"github.com/quitvipe/quitvipe/internal/logger"
	"github.com/quitvipe/quitvipe/internal/token"
)

// Daemon is the Quit Vipe runtime. It wires together all services.
type Daemon struct {
	Config  Config
	Log     *logger.Logger
	DB      *sqlite.DB
	Cache   cache.Cache
	Tracker *tracker.Tracker
	Tokens  *token.Issuer // nil when auth.token_secret is empty
	Health  *health.Checker
	Server  *api.Server
	cancel  context.CancelFunc
	closed  sync.Once
}

// New creates and initializes a Daemon with all services wired.
func New() (*Daemon, error) {
	cfg, err := LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	return NewWithConfig(cfg)
}

// NewWithConfig creates a Daemon with the given configuration. Secrets are
// only required by Serve, so CLI commands that read data work without them.
func NewWithConfig(cfg Config) (*Daemon, error) {
	log, err := logger.New(cfg.LoggerConfig())
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	opts, err := cfg.TrackerOptions()
	if err != nil {
		return nil, err
	}

	// Open SQLite
	home := quitvipeHome()
	db, err := sqlite.Open(home)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// Stats cache: redis when configured, otherwise in-process
	var (
		statsCache cache.Cache = cache.NewMemory()
		redisCache cache.Cache
	)
	if cfg.Cache.RedisAddr != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		rc, err := cache.NewRedis(ctx, cfg.Cache.RedisAddr, cfg.Cache.Prefix)
		cancel()
		if err != nil {
			log.Warn("redis unavailable, using in-process stats cache", "addr", cfg.Cache.RedisAddr, "error", err)
		} else {
			statsCache, redisCache = rc, rc
		}
	}

	tr := tracker.New(db, statsCache, tracker.SystemClock{}, log.With("component", "tracker"), opts)

	var tokens *token.Issuer
	if cfg.Auth.TokenSecret != "" {
		if tokens, err = token.NewIssuer(cfg.Auth.TokenSecret, cfg.TokenTTL()); err != nil {
			return nil, err
		}
	}

	// Health checker; the cache is only checked when it is an external service
	var checker *health.Checker
	if redisCache != nil {
		checker = health.NewChecker(db, redisCache, home)
	} else {
		checker = health.NewChecker(db, nil, home)
	}

	// Initialize API server
	auth := api.NewAuthenticator(cfg.Auth.SessionSecret, cfg.Auth.CookieSecure, tokens)
	srv := api.NewServer(tr, auth)
	srv.SetLogger(log.With("component", "api"))
	srv.SetHealth(checker)
	srv.SetCORSOrigins(cfg.API.CORSOrigins)

	// Enable Prometheus /metrics if configured
	if cfg.Telemetry.Prometheus {
		srv.EnableMetrics()
	}

	return &Daemon{
		Config:  cfg,
		Log:     log,
		DB:      db,
		Cache:   statsCache,
		Tracker: tr,
		Tokens:  tokens,
		Health:  checker,
		Server:  srv,
	}, nil
}

// Serve starts the HTTP server and blocks until shutdown.
func (d *Daemon) Serve(ctx context.Context) error {
	if err := d.Config.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	ctx, cancel := context.WithCancel(ctx)
	d.cancel = cancel

	// Health checker (always runs)
	go d.Health.Run(ctx)
	go d.Tracker.RunBadgeRetries(ctx)

	addr := fmt.Sprintf("%s:%d", d.Config.API.Host, d.Config.API.Port)

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           d.Server.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       2 * time.Minute,
	}

	// Graceful shutdown on signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	go func() {
		select {
		case <-sigCh:
			d.Log.Info("shutdown signal received")
		case <-ctx.Done():
		}

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			d.Log.Error("http shutdown failed", "error", err)
		}
		d.Close()
	}()

	fmt.Printf("Quit Vipe serving on http://%s\n", addr)
	if d.Config.Telemetry.Prometheus {
		fmt.Printf("  Metrics: http://%s/metrics\n", addr)
	}
	d.Log.Info("http server started", "addr", addr, "timezone", d.Tracker.Aggregates.Days().Location().String())

	if err := httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Close shuts down all daemon resources. Safe to call more than once.
func (d *Daemon) Close() {
	d.closed.Do(func() {
		if d.cancel != nil {
			d.cancel()
		}
		if d.Cache != nil {
			_ = d.Cache.Close()
		}
		if d.DB != nil {
			_ = d.DB.Close()
		}
		if d.Log != nil {
			d.Log.Sync()
		}
	})
}
