// Package plan описывает миграцию в YAML-файле и проводит её через визард
// без участия пользователя.
//
// Формат:
//
//	source: OrgA
//	target: OrgB
//	types: [CustomObject, Flow]
//	components:
//	  Flow: [MyFlow]        # только перечисленные
//	                        # CustomObject не указан — все компоненты типа
//
// Перед разбором текст плана проходит через text/template
// (см. Render), что позволяет параметризовать план: source: {{ .Vars.source }}.
package plan

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"slices"

	"gopkg.in/yaml.v3"

	"github.com/shaiso/metamigrate/internal/domain"
)

// Plan — описание миграции.
type Plan struct {
	Source     string              `yaml:"source"`
	Target     string              `yaml:"target"`
	Types      []string            `yaml:"types"`
	Components map[string][]string `yaml:"components,omitempty"`
}

// Load читает, рендерит и проверяет план из файла.
func Load(path string, vars Vars) (*Plan, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read plan: %w", err)
	}
	return Parse(data, vars)
}

// Parse рендерит шаблон, разбирает и проверяет план.
// Неизвестные поля — ошибка.
func Parse(data []byte, vars Vars) (*Plan, error) {
	data, err := Render(data, vars)
	if err != nil {
		return nil, err
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var p Plan
	if err := dec.Decode(&p); err != nil {
		return nil, fmt.Errorf("parse plan: %w", err)
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &p, nil
}

// Validate проверяет план.
func (p *Plan) Validate() error {
	var errs []error

	if p.Source == "" {
		errs = append(errs, domain.NewValidationError("source", "source is required"))
	}
	if p.Target == "" {
		errs = append(errs, domain.NewValidationError("target", "target is required"))
	}
	if p.Source != "" && p.Source == p.Target {
		errs = append(errs, domain.NewValidationError("target", "source and target must differ"))
	}
	if len(p.Types) == 0 {
		errs = append(errs, domain.NewValidationError("types", "at least one metadata type is required"))
	}

	for t, names := range p.Components {
		if !slices.Contains(p.Types, t) {
			errs = append(errs, domain.NewValidationError("components",
				fmt.Sprintf("components for %s: type is not listed in types", t)))
		}
		if len(names) == 0 {
			errs = append(errs, domain.NewValidationError("components",
				fmt.Sprintf("components for %s: list is empty", t)))
		}
	}

	return errors.Join(errs...)
}

// SelectRows выбирает строки каталога согласно плану.
//
// Для типа из Components берутся только перечисленные компоненты
// (отсутствующий в каталоге — ошибка), для остальных типов — все строки.
func (p *Plan) SelectRows(rows []domain.MetadataDescriptor) ([]domain.MetadataDescriptor, error) {
	byKey := make(map[string]domain.MetadataDescriptor, len(rows))
	for _, r := range rows {
		byKey[r.Key()] = r
	}

	var picked []domain.MetadataDescriptor
	for _, t := range p.Types {
		names, explicit := p.Components[t]
		if !explicit {
			for _, r := range rows {
				if r.Type == t {
					picked = append(picked, r)
				}
			}
			continue
		}

		for _, name := range names {
			key := domain.MetadataDescriptor{Type: t, FullName: name}.Key()
			r, ok := byKey[key]
			if !ok {
				return nil, domain.NewValidationError("components", "component not found in source: "+key)
			}
			picked = append(picked, r)
		}
	}

	if len(picked) == 0 {
		return nil, domain.NewValidationError("components", "plan selects no components")
	}
	return picked, nil
}
