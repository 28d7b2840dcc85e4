package wizard

import (
	"context"
	"slices"

	"github.com/shaiso/metamigrate/internal/domain"
)

// CanAdvance сообщает, выполнено ли условие перехода с текущего шага.
func (w *Wizard) CanAdvance() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.canAdvanceLocked()
}

func (w *Wizard) canAdvanceLocked() bool {
	switch w.step {
	case domain.StepSelectOrgs:
		return w.source != "" && w.target != "" && w.source != w.target
	case domain.StepSelectMetadata:
		return !w.selection.IsEmpty()
	default:
		return false
	}
}

// Next переходит на следующий шаг.
//
// С шага 1 сначала выполняется авторизация в source и загрузка типов
// метаданных; при ошибке шаг не меняется. С последнего шага Next
// ничего не делает.
func (w *Wizard) Next(ctx context.Context) error {
	if err := w.begin(); err != nil {
		return err
	}
	defer w.end()

	w.mu.Lock()
	step := w.step
	envs := slices.Clone(w.environments)
	source, target := w.source, w.target
	hasSelection := !w.selection.IsEmpty()
	w.mu.Unlock()

	switch step {
	case domain.StepSelectOrgs:
		if err := w.orgs.ValidatePair(envs, source, target); err != nil {
			reportError(ctx, w.notifier, err)
			return err
		}
		return w.openCatalog(ctx, source)

	case domain.StepSelectMetadata:
		if !hasSelection {
			err := domain.NewValidationError("selection", "Select at least one component")
			reportError(ctx, w.notifier, err)
			return err
		}
		return w.moveTo(step, step.Next())

	default:
		return nil
	}
}

// Previous возвращает на предыдущий шаг. С первого шага ничего не делает.
// Выбор пользователя сохраняется.
func (w *Wizard) Previous(_ context.Context) error {
	return w.withState(func() error {
		w.step = w.step.Previous()
		return nil
	})
}

// openCatalog загружает типы метаданных source и переходит на шаг 2.
func (w *Wizard) openCatalog(ctx context.Context, source string) error {
	ctx, cancel := w.opContext(ctx)
	defer cancel()

	types, err := w.catalog.Open(ctx, source)
	if err != nil {
		return err
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return domain.ErrClosed
	}

	w.typeOptions = types
	// Выбранные ранее типы, которых больше нет, отбрасываются
	w.selectedTypes = slices.DeleteFunc(w.selectedTypes, func(t string) bool {
		return !slices.Contains(types, t)
	})
	w.step = domain.StepSelectMetadata
	w.logger.Info("metadata catalog opened", "source", source, "types", len(types))
	return nil
}

// moveTo переводит визард с шага from на шаг to, если шаг не сменился.
func (w *Wizard) moveTo(from, to domain.Step) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return domain.ErrClosed
	}
	if w.step == from {
		w.step = to
	}
	return nil
}
