package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kirillkom/agrisense-rag/internal/bootstrap"
	"github.com/kirillkom/agrisense-rag/internal/config"
	"github.com/kirillkom/agrisense-rag/internal/core/domain"
	"github.com/kirillkom/agrisense-rag/internal/observability/logging"
)

const serviceName = "worker"

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("config error", "error", err)
		os.Exit(1)
	}
	slog.SetDefault(logging.New(serviceName, cfg.LogLevel, cfg.LogFormat))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	worker, err := bootstrap.NewWorker(ctx, cfg, serviceName)
	if err != nil {
		slog.Error("bootstrap error", "error", err)
		os.Exit(1)
	}
	defer worker.Close()

	metricsServer := &http.Server{
		Addr:              ":" + cfg.WorkerMetricsPort,
		Handler:           worker.Metrics.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		slog.Info("worker metrics listening", "addr", metricsServer.Addr)
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("worker metrics server error", "error", err)
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = metricsServer.Shutdown(shutdownCtx)
	}()

	slog.Info("worker subscribed", "subject", cfg.NATSSubject)
	err = worker.Subscriber.SubscribeChatEvents(ctx, func(handlerCtx context.Context, event domain.ChatEvent) error {
		if !event.CreatedAt.IsZero() {
			worker.Metrics.ObserveEventLag(serviceName, time.Since(event.CreatedAt))
		}
		worker.Metrics.StartEvent()
		startedAt := time.Now()

		recordCtx, cancel := context.WithTimeout(handlerCtx, 30*time.Second)
		defer cancel()
		err := worker.Recorder.Record(recordCtx, event)
		worker.Metrics.FinishEvent(serviceName, time.Since(startedAt), err)
		if err != nil {
			slog.Error("chat_event_record_failed", "event_id", event.ID, "error", err)
		}
		return err
	})
	if err != nil {
		slog.Error("worker subscribe error", "error", err)
		os.Exit(1)
	}
}
