package api

import (
	"context"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/shaiso/metamigrate/internal/domain"
	"github.com/shaiso/metamigrate/internal/remote"
	"github.com/shaiso/metamigrate/internal/repo"
	"github.com/shaiso/metamigrate/internal/session"
	"github.com/shaiso/metamigrate/internal/wizard"
)

// DeploymentStore — чтение журнала деплоев. Реализуется repo.DeploymentRepo.
type DeploymentStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.DeploymentRecord, error)
	List(ctx context.Context, filter repo.DeploymentFilter) ([]domain.DeploymentRecord, error)
}

// Handler — главный обработчик API с зависимостями.
type Handler struct {
	sessions    *session.Registry
	gateway     remote.Gateway
	registrar   *wizard.Registrar
	deployments DeploymentStore
	logger      *slog.Logger

	// Фоновые регистрации окружений
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// Config — конфигурация для создания Handler.
type Config struct {
	Sessions  *session.Registry
	Gateway   remote.Gateway
	Registrar *wizard.Registrar

	// Deployments — журнал деплоев (optional; без него /deployments отвечает 503).
	Deployments DeploymentStore

	Logger *slog.Logger
}

// NewHandler создаёт новый Handler.
func NewHandler(cfg Config) *Handler {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Handler{
		sessions:    cfg.Sessions,
		gateway:     cfg.Gateway,
		registrar:   cfg.Registrar,
		deployments: cfg.Deployments,
		logger:      cfg.Logger,
		ctx:         ctx,
		cancel:      cancel,
	}
}

// Shutdown отменяет фоновые регистрации и ждёт их завершения.
func (h *Handler) Shutdown() {
	h.cancel()
	h.wg.Wait()
}
