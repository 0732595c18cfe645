package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	busadapter "github.com/kirillkom/textbook-tutor/internal/adapters/bus"
	"github.com/kirillkom/textbook-tutor/internal/bootstrap"
	"github.com/kirillkom/textbook-tutor/internal/config"
	"github.com/kirillkom/textbook-tutor/internal/infrastructure/queue/nats"
	"github.com/kirillkom/textbook-tutor/internal/infrastructure/resilience"
	"github.com/kirillkom/textbook-tutor/internal/observability/logging"
	"github.com/kirillkom/textbook-tutor/internal/observability/metrics"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	slog.SetDefault(logging.NewJSONLogger("worker", cfg.LogLevel))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	workerMetrics := metrics.NewWorkerMetrics("worker")
	retrievalMetrics := metrics.NewRetrievalMetrics("worker", workerMetrics.Registerer())

	app, err := bootstrap.New(ctx, cfg, bootstrap.Options{
		Observer:             retrievalMetrics,
		OnBreakerStateChange: retrievalMetrics.BreakerStateChanged,
	})
	if err != nil {
		log.Fatalf("bootstrap error: %v", err)
	}

	responder, err := nats.Connect(cfg.NATSURL, cfg.NATSQueueGroup, nats.Options{
		Name:               "textbook-tutor-worker",
		ResilienceExecutor: resilience.NewExecutor(resilience.DefaultConfig()),
	})
	if err != nil {
		log.Fatalf("nats connect error: %v", err)
	}
	defer responder.Close()
	responder.WithObserver(workerMetrics)

	busadapter.Register(responder, cfg.NATSSubjectPrefix, busadapter.Services{
		Retriever: app.SearchUC,
		Locator:   app.LocateUC,
		Figures:   app.FigureUC,
		Lessons:   app.LessonUC,
	})

	metricsServer := &http.Server{
		Addr:              ":" + cfg.WorkerMetricsPort,
		Handler:           workerMetrics.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		slog.Info("worker_metrics_listening", "port", cfg.WorkerMetricsPort)
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("worker_metrics_server_failed", "error", err)
		}
	}()

	if err := responder.Serve(ctx); err != nil {
		slog.Error("worker_serve_failed", "error", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := metricsServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("worker_metrics_shutdown_failed", "error", err)
	}
}
