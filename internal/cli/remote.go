package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/shaiso/metamigrate/internal/domain"
	"github.com/shaiso/metamigrate/internal/plan"
)

// RemoteSession ведёт сессию визарда на сервере через API.
// Реализует plan.Driver: фоновые операции дожидаются через WaitSession.
type RemoteSession struct {
	client   *Client
	onNotify func(domain.Notification)

	id    string
	state StateResponse
}

var _ plan.Driver = (*RemoteSession)(nil)

// NewRemoteSession создаёт драйвер. Сессия открывается в Load.
func NewRemoteSession(client *Client, onNotify func(domain.Notification)) *RemoteSession {
	return &RemoteSession{client: client, onNotify: onNotify}
}

// ID возвращает идентификатор сессии (пустой до Load).
func (r *RemoteSession) ID() string {
	return r.id
}

// Load открывает сессию, сервер загружает окружения.
func (r *RemoteSession) Load(ctx context.Context) error {
	if r.id != "" {
		return r.apply(r.client.GetSession(ctx, r.id))
	}
	s, err := r.client.CreateSession(ctx)
	if err != nil {
		return err
	}
	r.id = s.ID
	return r.apply(s, nil)
}

// SelectSource выбирает source, сохраняя target, если он не совпадает.
func (r *RemoteSession) SelectSource(ctx context.Context, id string) error {
	target := r.state.Target
	if target == id {
		target = ""
	}
	return r.apply(r.client.SelectOrgs(ctx, r.id, id, target))
}

// SelectTarget выбирает target.
func (r *RemoteSession) SelectTarget(ctx context.Context, id string) error {
	return r.apply(r.client.SelectOrgs(ctx, r.id, "", id))
}

// Next переходит на следующий шаг. Переход с первого шага фоновый,
// его результат дожидается через WaitSession.
func (r *RemoteSession) Next(ctx context.Context) error {
	from := domain.Step(r.state.Step)
	if err := r.apply(r.client.Next(ctx, r.id)); err != nil {
		return err
	}
	if from != domain.StepSelectOrgs {
		return nil
	}
	_, err := r.wait(ctx)
	return err
}

// SelectTypes выбирает типы метаданных.
func (r *RemoteSession) SelectTypes(ctx context.Context, types []string) error {
	return r.apply(r.client.SelectTypes(ctx, r.id, types))
}

// FetchDescriptors загружает компоненты.
func (r *RemoteSession) FetchDescriptors(ctx context.Context) ([]domain.MetadataDescriptor, error) {
	return r.client.FetchDescriptors(ctx, r.id)
}

// SelectRows выбирает компоненты.
func (r *RemoteSession) SelectRows(ctx context.Context, rows []domain.MetadataDescriptor) error {
	return r.apply(r.client.SelectRows(ctx, r.id, rows))
}

// Deploy запускает деплой и ждёт его завершения.
func (r *RemoteSession) Deploy(ctx context.Context) (domain.DeploymentRecord, error) {
	if err := r.apply(r.client.Deploy(ctx, r.id)); err != nil {
		return domain.DeploymentRecord{}, err
	}

	s, err := r.wait(ctx)
	if s == nil || s.State.LastDeployment == nil {
		if err == nil {
			err = errors.New("deployment finished without a record")
		}
		return domain.DeploymentRecord{}, err
	}
	return *s.State.LastDeployment, err
}

// Close закрывает сессию на сервере.
func (r *RemoteSession) Close(ctx context.Context) error {
	if r.id == "" {
		return nil
	}
	return r.client.CloseSession(ctx, r.id)
}

// wait ждёт конца фоновой операции и возвращает её ошибку.
func (r *RemoteSession) wait(ctx context.Context) (*SessionResponse, error) {
	s, err := r.client.WaitSession(ctx, r.id, r.onNotify)
	if err != nil {
		return nil, err
	}
	r.state = s.State

	if op := s.Operation; op != nil && op.Error != "" {
		return s, fmt.Errorf("%s: %s", op.Name, op.Error)
	}
	return s, nil
}

// apply запоминает состояние из ответа и передаёт уведомления.
func (r *RemoteSession) apply(s *SessionResponse, err error) error {
	if err != nil {
		return err
	}
	r.state = s.State
	if r.onNotify != nil {
		for _, n := range s.Notifications {
			r.onNotify(n)
		}
	}
	return nil
}
