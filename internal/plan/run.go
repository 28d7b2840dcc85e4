package plan

import (
	"context"
	"fmt"

	"github.com/shaiso/metamigrate/internal/domain"
)

// Driver — операции визарда, нужные для проведения плана.
// Реализуется wizard.Wizard и удалённой сессией CLI.
type Driver interface {
	Load(ctx context.Context) error
	SelectSource(ctx context.Context, id string) error
	SelectTarget(ctx context.Context, id string) error
	Next(ctx context.Context) error
	SelectTypes(ctx context.Context, types []string) error
	FetchDescriptors(ctx context.Context) ([]domain.MetadataDescriptor, error)
	SelectRows(ctx context.Context, rows []domain.MetadataDescriptor) error
	Deploy(ctx context.Context) (domain.DeploymentRecord, error)
}

// Options — параметры Run.
type Options struct {
	// DryRun — остановиться на шаге ReviewAndDeploy без деплоя.
	DryRun bool
}

// Result — итог проведения плана.
type Result struct {
	Selection domain.SelectionSet

	// Record — запись о деплое (nil при DryRun).
	Record *domain.DeploymentRecord
}

// Run проводит план через визард: окружения, типы, компоненты, деплой.
func Run(ctx context.Context, d Driver, p *Plan, opts Options) (Result, error) {
	var res Result

	if err := d.Load(ctx); err != nil {
		return res, fmt.Errorf("load environments: %w", err)
	}
	if err := d.SelectSource(ctx, p.Source); err != nil {
		return res, fmt.Errorf("select source: %w", err)
	}
	if err := d.SelectTarget(ctx, p.Target); err != nil {
		return res, fmt.Errorf("select target: %w", err)
	}
	if err := d.Next(ctx); err != nil {
		return res, fmt.Errorf("open catalog: %w", err)
	}

	if err := d.SelectTypes(ctx, p.Types); err != nil {
		return res, fmt.Errorf("select types: %w", err)
	}
	rows, err := d.FetchDescriptors(ctx)
	if err != nil {
		return res, fmt.Errorf("fetch components: %w", err)
	}

	picked, err := p.SelectRows(rows)
	if err != nil {
		return res, err
	}
	if err := d.SelectRows(ctx, picked); err != nil {
		return res, fmt.Errorf("select components: %w", err)
	}
	res.Selection = domain.BuildSelectionSet(picked)

	if err := d.Next(ctx); err != nil {
		return res, fmt.Errorf("review: %w", err)
	}
	if opts.DryRun {
		return res, nil
	}

	record, err := d.Deploy(ctx)
	res.Record = &record
	if err != nil {
		return res, fmt.Errorf("deploy: %w", err)
	}
	return res, nil
}
