package remote

import (
	"context"

	"github.com/shaiso/metamigrate/internal/domain"
)

// Gateway — удалённые операции, потребляемые визардом.
type Gateway interface {
	// ListEnvironments возвращает подключённые окружения.
	ListEnvironments(ctx context.Context) ([]domain.Environment, error)

	// Authenticate выполняет обмен учётных данных окружения на токен.
	Authenticate(ctx context.Context, environmentID string) (domain.TokenState, error)

	// ListMetadataTypes возвращает имена типов метаданных окружения.
	ListMetadataTypes(ctx context.Context, environmentID string) ([]string, error)

	// FetchDescriptors возвращает компоненты выбранных типов.
	FetchDescriptors(ctx context.Context, types []string, environmentID string) ([]domain.MetadataDescriptor, error)

	// SubmitDeployment отправляет перенос и возвращает id задачи.
	SubmitDeployment(ctx context.Context, selection domain.SelectionSet, sourceEnv, targetEnv string) (string, error)

	// GetStatus возвращает статус удалённой задачи.
	GetStatus(ctx context.Context, jobID string) (domain.JobStatus, error)

	// RegisterEnvironment регистрирует новое окружение и возвращает id задачи.
	RegisterEnvironment(ctx context.Context, creds domain.EnvironmentCredentials) (string, error)
}
