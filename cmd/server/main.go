package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/example/hande/internal/config"
	"github.com/example/hande/internal/dispatch"
	"github.com/example/hande/internal/eta"
	"github.com/example/hande/internal/geo"
	"github.com/example/hande/internal/ingest"
	"github.com/example/hande/internal/logging"
	"github.com/example/hande/internal/payments"
	"github.com/example/hande/internal/server"
	"github.com/example/hande/internal/storage"
)

func main() {
	cfg, err := config.LoadServerConfig()
	if err != nil {
		logging.NewLogger("error").Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	logger := logging.NewLogger(cfg.LogLevel)

	var store storage.Store
	if cfg.PGDSN != "" {
		ps, err := storage.NewPostgresStore(cfg.PGDSN)
		if err != nil {
			logger.Error("postgres connect failed", "error", err)
			os.Exit(1)
		}
		if cfg.RunMigrations {
			if err := ps.Migrate(); err != nil {
				logger.Error("migrations failed", "error", err)
				os.Exit(1)
			}
			logger.Info("migrations applied")
		}
		store = ps
	} else {
		logger.Warn("PG_DSN not set, using in-memory store")
		store = storage.NewMemoryStore()
	}

	var driverGeo, tripGeo geo.Index
	if cfg.RedisAddr != "" {
		driverGeo = geo.NewRedisIndex(cfg.RedisAddr, cfg.RedisPassword, cfg.DriverGeoKey)
		tripGeo = geo.NewRedisIndex(cfg.RedisAddr, cfg.RedisPassword, cfg.TripGeoKey)
	} else {
		logger.Warn("REDIS_ADDR not set, using in-memory geo index")
		driverGeo = geo.NewMemoryIndex()
		tripGeo = geo.NewMemoryIndex()
	}

	srv := server.New(cfg, logger, store, driverGeo, tripGeo)

	if len(cfg.KafkaBrokers) > 0 {
		producer := ingest.NewKafkaProducer(cfg.KafkaBrokers, cfg.KafkaTopic)
		defer producer.Close()
		srv.Publisher = producer
	}
	if key := os.Getenv("STRIPE_API_KEY"); key != "" {
		srv.Charger = payments.NewStripeClient(key)
	}
	if cfg.OSRMEndpoint != "" {
		srv.ETA = &eta.Cached{
			Inner: eta.NewOSRMClient(cfg.OSRMEndpoint),
			Cache: eta.NewCache(5 * time.Minute),
		}
	}
	if endpoint := os.Getenv("PUSH_WEBHOOK_URL"); endpoint != "" {
		srv.Notifier = dispatch.NewPushDispatcher(srv.WSReg, endpoint)
	}

	httpSrv := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      srv,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Info("listening", "addr", cfg.HTTPAddr)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server stopped", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown", "error", err)
	}
}
