package wizard

import (
	"context"
	"log/slog"
	"slices"

	"github.com/shaiso/metamigrate/internal/domain"
	"github.com/shaiso/metamigrate/internal/notify"
	"github.com/shaiso/metamigrate/internal/poll"
	"github.com/shaiso/metamigrate/internal/remote"
)

// CatalogBrowser открывает каталог метаданных source окружения.
type CatalogBrowser struct {
	gateway  remote.Gateway
	auth     *authenticator
	notifier notify.Notifier
}

// NewCatalogBrowser создаёт CatalogBrowser.
func NewCatalogBrowser(gateway remote.Gateway, poller *poll.Poller, notifier notify.Notifier, logger *slog.Logger) *CatalogBrowser {
	return &CatalogBrowser{
		gateway: gateway,
		auth: &authenticator{
			gateway:  gateway,
			poller:   poller,
			notifier: notifier,
			logger:   logger,
		},
		notifier: notifier,
	}
}

// Open авторизуется в окружении и возвращает список типов метаданных.
func (c *CatalogBrowser) Open(ctx context.Context, environmentID string) ([]string, error) {
	if err := c.auth.Authenticate(ctx, environmentID); err != nil {
		return nil, err
	}

	types, err := c.gateway.ListMetadataTypes(ctx, environmentID)
	if err != nil {
		reportError(ctx, c.notifier, err)
		return nil, err
	}
	return types, nil
}

// Descriptors загружает компоненты выбранных типов.
func (c *CatalogBrowser) Descriptors(ctx context.Context, types []string, environmentID string) ([]domain.MetadataDescriptor, error) {
	if len(types) == 0 {
		err := domain.NewValidationError("types", "Select at least one metadata type")
		reportError(ctx, c.notifier, err)
		return nil, err
	}

	rows, err := c.gateway.FetchDescriptors(ctx, types, environmentID)
	if err != nil {
		reportError(ctx, c.notifier, err)
		return nil, err
	}
	return rows, nil
}

// --- Wizard ---

// SelectTypes задаёт выбранные типы метаданных.
// Каждый тип должен быть в списке, полученном при переходе на шаг 2.
func (w *Wizard) SelectTypes(ctx context.Context, types []string) error {
	err := w.withState(func() error {
		selected := make([]string, 0, len(types))
		for _, t := range types {
			if !slices.Contains(w.typeOptions, t) {
				return domain.NewValidationError("types", "Unknown metadata type: "+t)
			}
			if !slices.Contains(selected, t) {
				selected = append(selected, t)
			}
		}
		w.selectedTypes = selected
		return nil
	})
	if err != nil {
		reportError(ctx, w.notifier, err)
	}
	return err
}

// FetchDescriptors загружает компоненты выбранных типов.
//
// Успешная загрузка заменяет строки и сбрасывает выбор компонентов.
// При ошибке прежние строки остаются.
func (w *Wizard) FetchDescriptors(ctx context.Context) ([]domain.MetadataDescriptor, error) {
	if err := w.begin(); err != nil {
		return nil, err
	}
	defer w.end()

	w.mu.Lock()
	source := w.source
	types := slices.Clone(w.selectedTypes)
	w.mu.Unlock()

	ctx, cancel := w.opContext(ctx)
	defer cancel()

	rows, err := w.catalog.Descriptors(ctx, types, source)
	if err != nil {
		return nil, err
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return nil, domain.ErrClosed
	}

	w.descriptors = rows
	w.selection = domain.SelectionSet{}
	return slices.Clone(rows), nil
}

// SelectRows задаёт выбранные компоненты.
//
// Каждая строка должна быть среди последних загруженных;
// выбор строится заново из этих строк.
func (w *Wizard) SelectRows(ctx context.Context, rows []domain.MetadataDescriptor) error {
	err := w.withState(func() error {
		known := make(map[string]domain.MetadataDescriptor, len(w.descriptors))
		for _, d := range w.descriptors {
			known[d.Key()] = d
		}

		picked := make([]domain.MetadataDescriptor, 0, len(rows))
		seen := make(map[string]bool, len(rows))
		for _, r := range rows {
			d, ok := known[r.Key()]
			if !ok {
				return domain.NewValidationError("rows", "Unknown component: "+r.Key())
			}
			if seen[d.Key()] {
				continue
			}
			seen[d.Key()] = true
			picked = append(picked, d)
		}

		w.selection = domain.BuildSelectionSet(picked)
		return nil
	})
	if err != nil {
		reportError(ctx, w.notifier, err)
	}
	return err
}
