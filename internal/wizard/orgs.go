package wizard

import (
	"context"

	"github.com/shaiso/metamigrate/internal/domain"
	"github.com/shaiso/metamigrate/internal/notify"
	"github.com/shaiso/metamigrate/internal/remote"
)

// OrgSelector загружает окружения и применяет правило source ≠ target.
type OrgSelector struct {
	gateway  remote.Gateway
	notifier notify.Notifier
}

// NewOrgSelector создаёт OrgSelector.
func NewOrgSelector(gateway remote.Gateway, notifier notify.Notifier) *OrgSelector {
	return &OrgSelector{gateway: gateway, notifier: notifier}
}

// List возвращает подключённые окружения.
// Ошибка сообщается пользователю и возвращается вызывающему.
func (s *OrgSelector) List(ctx context.Context) ([]domain.Environment, error) {
	envs, err := s.gateway.ListEnvironments(ctx)
	if err != nil {
		reportError(ctx, s.notifier, err)
		return nil, err
	}
	return envs, nil
}

// AvailableTargets — все окружения, кроме source.
func (s *OrgSelector) AvailableTargets(envs []domain.Environment, source string) []domain.Environment {
	return domain.ExcludeEnvironment(envs, source)
}

// ValidatePair проверяет пару source/target.
func (s *OrgSelector) ValidatePair(envs []domain.Environment, source, target string) error {
	if source == "" {
		return domain.NewValidationError("source", "Select a source environment")
	}
	if target == "" {
		return domain.NewValidationError("target", "Select a target environment")
	}
	if source == target {
		return domain.NewValidationError("target", "Source and target environments must differ")
	}
	if _, ok := domain.FindEnvironment(envs, source); !ok {
		return domain.NewValidationError("source", "Unknown source environment: "+source)
	}
	if _, ok := domain.FindEnvironment(envs, target); !ok {
		return domain.NewValidationError("target", "Unknown target environment: "+target)
	}
	return nil
}

// --- Wizard ---

// Load загружает список окружений.
//
// При ошибке прежнее состояние не меняется. При успехе выбор,
// указывающий на исчезнувшие окружения, сбрасывается.
func (w *Wizard) Load(ctx context.Context) error {
	if err := w.begin(); err != nil {
		return err
	}
	defer w.end()

	ctx, cancel := w.opContext(ctx)
	defer cancel()

	envs, err := w.orgs.List(ctx)
	if err != nil {
		return err
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return domain.ErrClosed
	}

	w.environments = envs
	if _, ok := domain.FindEnvironment(envs, w.source); !ok && w.source != "" {
		w.resetSourceLocked("")
	}
	if _, ok := domain.FindEnvironment(envs, w.target); !ok {
		w.target = ""
	}
	return nil
}

// SelectSource выбирает source окружение.
//
// Смена source сбрасывает target (если совпал), типы, компоненты
// и выбор, а визард возвращается на первый шаг.
func (w *Wizard) SelectSource(ctx context.Context, id string) error {
	err := w.withState(func() error {
		if _, ok := domain.FindEnvironment(w.environments, id); !ok {
			return domain.NewValidationError("source", "Unknown source environment: "+id)
		}
		if id == w.source {
			return nil
		}
		w.resetSourceLocked(id)
		return nil
	})
	if err != nil {
		reportError(ctx, w.notifier, err)
	}
	return err
}

// SelectTarget выбирает target окружение. Пустой id сбрасывает выбор.
func (w *Wizard) SelectTarget(ctx context.Context, id string) error {
	err := w.withState(func() error {
		if id == "" {
			w.target = ""
			return nil
		}
		if id == w.source {
			return domain.NewValidationError("target", "Source and target environments must differ")
		}
		if _, ok := domain.FindEnvironment(w.environments, id); !ok {
			return domain.NewValidationError("target", "Unknown target environment: "+id)
		}
		w.target = id
		return nil
	})
	if err != nil {
		reportError(ctx, w.notifier, err)
	}
	return err
}

// SelectOrgs выбирает пару source/target целиком: при ошибке
// состояние не меняется. Пустой source оставляет текущий,
// пустой target сбрасывает выбор.
func (w *Wizard) SelectOrgs(ctx context.Context, source, target string) error {
	err := w.withState(func() error {
		if source == "" {
			source = w.source
		} else if _, ok := domain.FindEnvironment(w.environments, source); !ok {
			return domain.NewValidationError("source", "Unknown source environment: "+source)
		}
		if target != "" {
			if target == source {
				return domain.NewValidationError("target", "Source and target environments must differ")
			}
			if _, ok := domain.FindEnvironment(w.environments, target); !ok {
				return domain.NewValidationError("target", "Unknown target environment: "+target)
			}
		}

		if source != w.source {
			w.resetSourceLocked(source)
		}
		w.target = target
		return nil
	})
	if err != nil {
		reportError(ctx, w.notifier, err)
	}
	return err
}

// AvailableTargets возвращает окружения, доступные как target.
func (w *Wizard) AvailableTargets() []domain.Environment {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.orgs.AvailableTargets(w.environments, w.source)
}

// resetSourceLocked меняет source и сбрасывает всё, что от него зависит.
// Вызывается под w.mu.
func (w *Wizard) resetSourceLocked(id string) {
	w.source = id
	if w.target == id {
		w.target = ""
	}
	w.typeOptions = nil
	w.selectedTypes = nil
	w.descriptors = nil
	w.selection = domain.SelectionSet{}
	w.step = domain.StepSelectOrgs
}
