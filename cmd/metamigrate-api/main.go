// metamigrate API — HTTP-сервис визарда миграции метаданных.
//
// Сервис:
//   - Держит сессии визарда (одна сессия — один пользователь)
//   - Проксирует операции к удалённому API окружений
//   - Публикует события деплоев и уведомления в RabbitMQ (если доступен)
//   - Отдаёт журнал деплоев из PostgreSQL (если доступен)
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/shaiso/metamigrate/internal/api"
	"github.com/shaiso/metamigrate/internal/mq"
	"github.com/shaiso/metamigrate/internal/notify"
	"github.com/shaiso/metamigrate/internal/poll"
	"github.com/shaiso/metamigrate/internal/remote"
	"github.com/shaiso/metamigrate/internal/repo"
	"github.com/shaiso/metamigrate/internal/session"
	"github.com/shaiso/metamigrate/internal/telemetry"
	"github.com/shaiso/metamigrate/internal/wizard"
)

var startTime = time.Now()

func main() {
	// Инициализируем structured logging
	logger := telemetry.SetupLogger("metamigrate-api")
	logger.Info("starting metamigrate-api")

	remoteURL := os.Getenv("REMOTE_URL")
	if remoteURL == "" {
		logger.Error("REMOTE_URL is required")
		os.Exit(1)
	}

	// graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	gateway := remote.NewClient(remote.Config{
		BaseURL: remoteURL,
		Token:   os.Getenv("REMOTE_TOKEN"),
		Timeout: envSeconds(logger, "REMOTE_TIMEOUT_SEC", 30),
	})

	poller := poll.New(poll.Policy{
		Interval:    time.Duration(envInt(logger, "POLL_INTERVAL_MS", 5000)) * time.Millisecond,
		MaxAttempts: envInt(logger, "POLL_MAX_ATTEMPTS", 120),
		Timeout:     envSeconds(logger, "POLL_TIMEOUT_SEC", 900),
	}, logger)

	// Журнал деплоев (опционально)
	var deployments api.DeploymentStore
	if os.Getenv("DB_URL") != "" {
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
		deployments = deploymentRepo
		logger.Info("connected to database")
	} else {
		logger.Warn("DB_URL not set, deployment history disabled")
	}

	// RabbitMQ (опционально)
	var events wizard.EventSink
	sessionNotifier := func(uuid.UUID) notify.Notifier { return notify.NewLogNotifier(logger) }

	mqConn, err := mq.NewConnection(mq.URLFromEnv(), logger)
	if err != nil {
		logger.Warn("RabbitMQ not available, events are not published", "error", err)
	} else {
		defer mqConn.Close()

		if err := mq.SetupTopology(ctx, mqConn); err != nil {
			logger.Warn("failed to setup topology", "error", err)
		}

		publisher := mq.NewPublisher(mqConn, logger)
		events = publisher
		sessionNotifier = func(id uuid.UUID) notify.Notifier {
			return notify.Multi(
				notify.NewLogNotifier(logger),
				notify.NewBusNotifier(publisher, id.String(), logger),
			)
		}
	}

	// Сессии визарда
	sessions := session.NewRegistry(session.Config{
		Gateway:  gateway,
		Poller:   poller,
		Events:   events,
		Notifier: sessionNotifier,
		IdleTTL:  envSeconds(logger, "SESSION_IDLE_TTL_SEC", 1800),
		Logger:   logger,
	})
	defer sessions.CloseAll()

	sweepSpec := os.Getenv("SESSION_SWEEP_CRON")
	if sweepSpec == "" {
		sweepSpec = session.DefaultSweepSpec
	}
	sweeper, err := session.StartSweeper(sessions, sweepSpec, logger)
	if err != nil {
		logger.Error("failed to start session sweeper", "error", err)
		os.Exit(1)
	}
	defer sweeper.Stop()

	// Создаём API handler
	handler := api.NewHandler(api.Config{
		Sessions:    sessions,
		Gateway:     gateway,
		Registrar:   wizard.NewRegistrar(gateway, poller, notify.NewLogNotifier(logger), logger),
		Deployments: deployments,
		Logger:      logger,
	})
	defer handler.Shutdown()

	mux := http.NewServeMux()

	// Health и metrics
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, "ok %s sessions=%d", time.Since(startTime), sessions.Len())
	})
	mux.Handle("/metrics", promhttp.Handler())

	// Регистрируем API маршруты
	handler.RegisterRoutes(mux)

	addr := ":8080"
	if v := os.Getenv("API_PORT"); v != "" {
		addr = ":" + v
	}

	// Создаём HTTP сервер с возможностью graceful shutdown
	server := &http.Server{
		Addr:    addr,
		Handler: mux,
	}

	// Запускаем сервер в горутине
	go func() {
		logger.Info("listening", "addr", addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			cancel()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	// Graceful shutdown с таймаутом 10 секунд
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
	}

	logger.Info("stopped")
}

// envInt читает положительное целое из переменной окружения.
func envInt(logger *slog.Logger, key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		logger.Warn("invalid value, using default", "key", key, "value", v, "default", def)
		return def
	}
	return n
}

func envSeconds(logger *slog.Logger, key string, def int) time.Duration {
	return time.Duration(envInt(logger, key, def)) * time.Second
}
