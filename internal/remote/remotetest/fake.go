// Package remotetest содержит управляемую in-memory реализацию remote.Gateway
// для тестов визарда, сессий и API.
package remotetest

import (
	"context"
	"sync"

	"github.com/shaiso/metamigrate/internal/domain"
	"github.com/shaiso/metamigrate/internal/remote"
)

// Fake — сценарная реализация remote.Gateway.
//
// Поля задаются до использования. Статусы задач отдаются по порядку
// из Statuses[jobID]; после конца списка повторяется последний.
type Fake struct {
	mu sync.Mutex

	Environments    []domain.Environment
	EnvironmentsErr error

	// Tokens — результат Authenticate по id окружения (default: Valid).
	Tokens  map[string]domain.TokenState
	AuthErr error

	Types    map[string][]string
	TypesErr error

	// Descriptors — строки по типу метаданных.
	Descriptors    map[string][]domain.MetadataDescriptor
	DescriptorsErr error

	SubmitJobID string
	SubmitErr   error

	RegisterJobID string
	RegisterErr   error

	Statuses  map[string][]domain.JobStatus
	StatusErr error

	// Block — если не nil, GetStatus ждёт значения из канала или отмены ctx.
	Block chan struct{}

	// Записанные вызовы.
	AuthCalls        []string
	StatusCalls      map[string]int
	DescriptorCalls  [][]string
	Submitted        []domain.SelectionSet
	RegisteredCreds  []domain.EnvironmentCredentials
	TypesCalls       []string
	EnvironmentCalls int
}

var _ remote.Gateway = (*Fake)(nil)

// ListEnvironments реализует remote.Gateway.
func (f *Fake) ListEnvironments(_ context.Context) ([]domain.Environment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.EnvironmentCalls++
	if f.EnvironmentsErr != nil {
		return nil, f.EnvironmentsErr
	}
	return append([]domain.Environment(nil), f.Environments...), nil
}

// Authenticate реализует remote.Gateway.
func (f *Fake) Authenticate(_ context.Context, environmentID string) (domain.TokenState, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.AuthCalls = append(f.AuthCalls, environmentID)
	if f.AuthErr != nil {
		return domain.TokenState{}, f.AuthErr
	}
	if state, ok := f.Tokens[environmentID]; ok {
		return state, nil
	}
	return domain.TokenState{Kind: domain.TokenValid}, nil
}

// ListMetadataTypes реализует remote.Gateway.
func (f *Fake) ListMetadataTypes(_ context.Context, environmentID string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.TypesCalls = append(f.TypesCalls, environmentID)
	if f.TypesErr != nil {
		return nil, f.TypesErr
	}
	return append([]string(nil), f.Types[environmentID]...), nil
}

// FetchDescriptors реализует remote.Gateway.
func (f *Fake) FetchDescriptors(_ context.Context, types []string, _ string) ([]domain.MetadataDescriptor, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.DescriptorCalls = append(f.DescriptorCalls, append([]string(nil), types...))
	if f.DescriptorsErr != nil {
		return nil, f.DescriptorsErr
	}

	var rows []domain.MetadataDescriptor
	for _, t := range types {
		rows = append(rows, f.Descriptors[t]...)
	}
	return rows, nil
}

// SubmitDeployment реализует remote.Gateway.
func (f *Fake) SubmitDeployment(_ context.Context, selection domain.SelectionSet, _, _ string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.Submitted = append(f.Submitted, selection.Clone())
	if f.SubmitErr != nil {
		return "", f.SubmitErr
	}
	return f.SubmitJobID, nil
}

// GetStatus реализует remote.Gateway.
func (f *Fake) GetStatus(ctx context.Context, jobID string) (domain.JobStatus, error) {
	if f.Block != nil {
		select {
		case <-f.Block:
		case <-ctx.Done():
			return domain.JobStatus{}, ctx.Err()
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if f.StatusCalls == nil {
		f.StatusCalls = make(map[string]int)
	}
	i := f.StatusCalls[jobID]
	f.StatusCalls[jobID]++

	if f.StatusErr != nil {
		return domain.JobStatus{}, f.StatusErr
	}

	statuses := f.Statuses[jobID]
	if len(statuses) == 0 {
		return domain.JobStatus{Done: true, Success: true, Status: "Succeeded"}, nil
	}
	if i >= len(statuses) {
		i = len(statuses) - 1
	}
	return statuses[i], nil
}

// RegisterEnvironment реализует remote.Gateway.
func (f *Fake) RegisterEnvironment(_ context.Context, creds domain.EnvironmentCredentials) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.RegisteredCreds = append(f.RegisteredCreds, creds)
	if f.RegisterErr != nil {
		return "", f.RegisterErr
	}
	return f.RegisterJobID, nil
}

// StatusCallCount возвращает количество вызовов GetStatus для jobID.
func (f *Fake) StatusCallCount(jobID string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.StatusCalls[jobID]
}

// SubmitCount возвращает количество вызовов SubmitDeployment.
func (f *Fake) SubmitCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.Submitted)
}
