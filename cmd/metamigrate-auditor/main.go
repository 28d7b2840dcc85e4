// metamigrate Auditor — ведёт журнал деплоев.
//
// Auditor:
//   - Получает записи о деплоях из очереди deployments.completed
//   - Сохраняет их в PostgreSQL (повторная доставка безопасна)
//   - Пишет уведомления из очереди notifications в лог
//
// Несколько экземпляров делят очереди между собой.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/shaiso/metamigrate/internal/audit"
	"github.com/shaiso/metamigrate/internal/mq"
	"github.com/shaiso/metamigrate/internal/repo"
	"github.com/shaiso/metamigrate/internal/telemetry"
)

var startTime = time.Now()

func main() {
	// Инициализируем structured logging
	logger := telemetry.SetupLogger("metamigrate-auditor")
	logger.Info("starting metamigrate-auditor")

	// graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// DB pool
	pool, err := repo.NewPool(ctx)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	deploymentRepo := repo.NewDeploymentRepo(pool)
	if err := deploymentRepo.EnsureSchema(ctx); err != nil {
		logger.Error("failed to ensure schema", "error", err)
		os.Exit(1)
	}
	logger.Info("database connected")

	// RabbitMQ
	mqConn, err := mq.NewConnection(mq.URLFromEnv(), logger)
	if err != nil {
		logger.Error("failed to connect to RabbitMQ", "error", err)
		os.Exit(1)
	}
	defer mqConn.Close()

	if err := mq.SetupTopology(ctx, mqConn); err != nil {
		logger.Error("failed to setup topology", "error", err)
		os.Exit(1)
	}
	logger.Info("RabbitMQ connected", "topology", mq.TopologyInfo())

	handler := audit.New(deploymentRepo, logger)

	deploymentsConsumer := mq.NewConsumer(mqConn, logger, mq.ConsumerConfig{
		Queue:    mq.QueueDeploymentsCompleted,
		Handler:  handler.HandleDeployment,
		Prefetch: 10,
	})
	notificationsConsumer := mq.NewConsumer(mqConn, logger, mq.ConsumerConfig{
		Queue:    mq.QueueNotifications,
		Handler:  handler.HandleNotification,
		Prefetch: 50,
	})

	// Health и metrics
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		if !mqConn.IsConnected() {
			http.Error(w, "rabbitmq disconnected", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, "ok %s", time.Since(startTime))
	})
	mux.Handle("/metrics", promhttp.Handler())

	addr := ":8084"
	if v := os.Getenv("AUDITOR_PORT"); v != "" {
		addr = ":" + v
	}
	server := &http.Server{Addr: addr, Handler: mux}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return deploymentsConsumer.Run(gctx)
	})
	g.Go(func() error {
		return notificationsConsumer.Run(gctx)
	})
	g.Go(func() error {
		logger.Info("metrics server listening", "addr", addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("metrics server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("auditor stopped with error", "error", err)
		os.Exit(1)
	}

	logger.Info("stopped")
}
