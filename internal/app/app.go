package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"

	healthcheck "github.com/vladislavdragonenkov/cafe/internal/health"
	"github.com/vladislavdragonenkov/cafe/internal/metrics"
	clientsvc "github.com/vladislavdragonenkov/cafe/internal/service/client"
	"github.com/vladislavdragonenkov/cafe/internal/service/httpapi"
	"github.com/vladislavdragonenkov/cafe/internal/service/idempotency"
	ordersvc "github.com/vladislavdragonenkov/cafe/internal/service/order"
	"github.com/vladislavdragonenkov/cafe/internal/service/outbox"
	productsvc "github.com/vladislavdragonenkov/cafe/internal/service/product"
	"github.com/vladislavdragonenkov/cafe/internal/version"
)

const readHeaderTimeout = 5 * time.Second

// Run поднимает HTTP API, сервер метрик и фоновые задачи и блокируется до отмены ctx.
func Run(ctx context.Context, cfg Config) error {
	logger := log.WithField("component", "app")

	if err := cfg.Validate(); err != nil {
		return err
	}

	deps, err := initRuntimeDependencies(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := deps.closeFn(); err != nil {
			logger.WithError(err).Warn("failed to close storage")
		}
	}()

	coffeeMetrics := metrics.NewCoffeeMetrics()
	httpMetrics := metrics.NewHTTPMetrics(prometheus.DefaultRegisterer)

	guard := idempotency.NewGuard(deps.idempotency, cfg.IdempotencyTTL, log.WithField("component", "idempotency"))
	router := httpapi.NewRouter(httpapi.Deps{
		Clients:  clientsvc.NewService(deps.clients, deps.tx, log.WithField("component", "client-service")),
		Products: productsvc.NewService(deps.products, deps.tx, log.WithField("component", "product-service")),
		Orders: ordersvc.NewService(ordersvc.Deps{
			Orders:   deps.orders,
			Timeline: deps.timeline,
			Outbox:   deps.outbox,
			Tx:       deps.tx,
			Metrics:  coffeeMetrics,
			Logger:   log.WithField("component", "order-service"),
		}),
		Idempotency: guard,
		Metrics:     httpMetrics,
		Logger:      log.WithField("component", "http"),
	})

	healthHandler := healthcheck.NewHandler(version.GetVersion())
	if deps.storageChecker != nil {
		healthHandler.RegisterChecker("storage", deps.storageChecker)
	}

	metricsLis, err := net.Listen("tcp", cfg.MetricsAddr)
	if err != nil {
		return fmt.Errorf("listen metrics: %w", err)
	}
	metricsSrv := startMetricsServer(metricsLis, logger, healthHandler)
	defer shutdownHTTP(metricsSrv, cfg.ShutdownTimeout, logger)

	publishers := initPublishers(cfg, logger)
	defer closeKafka(publishers.producer, logger)

	relay := outbox.NewRelay(deps.outbox, publishers.events, publishers.dlq, outbox.Config{
		PollInterval: cfg.OutboxPollInterval,
		BatchSize:    cfg.OutboxBatchSize,
		MaxAttempts:  cfg.OutboxMaxAttempts,
		RetryDelay:   cfg.OutboxRetryDelay,
	}, log.WithField("component", "outbox-relay"))
	stopRelay, relayDone := startBackground(relay.Run)
	defer shutdownBackgroundWorker("outbox relay", stopRelay, relayDone, logger)

	stopSweeper, sweeperDone := startBackground(func(ctx context.Context) {
		guard.RunSweeper(ctx, cfg.IdempotencyCleanupInterval)
	})
	defer shutdownBackgroundWorker("idempotency sweeper", stopSweeper, sweeperDone, logger)

	apiLis, err := net.Listen("tcp", cfg.HTTPAddr)
	if err != nil {
		return fmt.Errorf("listen http: %w", err)
	}
	apiSrv := &http.Server{Handler: router, ReadHeaderTimeout: readHeaderTimeout}

	errCh := make(chan error, 1)
	go func() {
		logger.Infof("HTTP API слушает %s", apiLis.Addr())
		errCh <- apiSrv.Serve(apiLis)
	}()

	select {
	case <-ctx.Done():
		logger.Info("получен сигнал остановки, останавливаем HTTP API")
		shutdownHTTP(apiSrv, cfg.ShutdownTimeout, logger)
		return ctx.Err()
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

// newOpsMux собирает служебные эндпоинты: метрики, health checks и версию.
func newOpsMux(healthHandler *healthcheck.Handler) *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.Handle("/healthz", healthHandler)
	mux.HandleFunc("/livez", healthcheck.LivenessHandler)
	mux.HandleFunc("/readyz", healthHandler.ReadinessHandler)
	mux.HandleFunc("/version", version.Handler)
	return mux
}

// startMetricsServer запускает служебный HTTP-сервер на готовом listener.
func startMetricsServer(lis net.Listener, logger *log.Entry, healthHandler *healthcheck.Handler) *http.Server {
	srv := &http.Server{Handler: newOpsMux(healthHandler), ReadHeaderTimeout: readHeaderTimeout}
	go func() {
		addr := lis.Addr().String()
		logger.Infof("метрики доступны по адресу %s/metrics", addr)
		logger.Infof("health checks: %s/healthz, %s/livez, %s/readyz", addr, addr, addr)
		if err := srv.Serve(lis); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Warn("metrics server failed")
		}
	}()
	return srv
}

// shutdownHTTP аккуратно останавливает HTTP-сервер.
func shutdownHTTP(srv *http.Server, timeout time.Duration, logger *log.Entry) {
	if srv == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.WithError(err).Warn("http shutdown with error")
	}
}

// startBackground запускает run в отдельной горутине со своим контекстом.
func startBackground(run func(context.Context)) (context.CancelFunc, <-chan struct{}) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		run(ctx)
	}()
	return cancel, done
}

// shutdownBackgroundWorker останавливает фоновый worker и дожидается завершения текущего цикла.
func shutdownBackgroundWorker(name string, cancel context.CancelFunc, done <-chan struct{}, logger *log.Entry) {
	if cancel == nil {
		return
	}
	cancel()
	if done == nil {
		return
	}
	select {
	case <-done:
		logger.Infof("%s остановлен", name)
	case <-time.After(5 * time.Second):
		logger.Warnf("%s не остановился за 5s", name)
	}
}
