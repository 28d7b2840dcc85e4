package domain

import "sort"

// MetadataDescriptor — именованный типизированный артефакт конфигурации,
// который можно перенести между окружениями.
type MetadataDescriptor struct {
	FullName           string `json:"fullName"`
	Type               string `json:"type"`
	CreatedByName      string `json:"createdByName,omitempty"`
	LastModifiedByName string `json:"lastModifiedByName,omitempty"`
}

// Key возвращает ключ строки "type/fullName".
func (d MetadataDescriptor) Key() string {
	return d.Type + "/" + d.FullName
}

// SelectionSet — выбранные компоненты: тип метаданных → список full name.
//
// SelectionSet всегда пересобирается целиком из выбранных строк
// (BuildSelectionSet), инкрементально не патчится.
type SelectionSet map[string][]string

// BuildSelectionSet собирает SelectionSet из выбранных строк таблицы.
// Порядок full name внутри типа совпадает с порядком строк.
// Ноль строк даёт пустую (не nil) карту.
func BuildSelectionSet(rows []MetadataDescriptor) SelectionSet {
	set := make(SelectionSet)
	for _, row := range rows {
		set[row.Type] = append(set[row.Type], row.FullName)
	}
	return set
}

// IsEmpty возвращает true, если ничего не выбрано.
func (s SelectionSet) IsEmpty() bool {
	for _, names := range s {
		if len(names) > 0 {
			return false
		}
	}
	return true
}

// Count возвращает общее количество выбранных компонентов.
func (s SelectionSet) Count() int {
	n := 0
	for _, names := range s {
		n += len(names)
	}
	return n
}

// Types возвращает отсортированный список типов.
func (s SelectionSet) Types() []string {
	types := make([]string, 0, len(s))
	for t := range s {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}

// Clone возвращает глубокую копию.
func (s SelectionSet) Clone() SelectionSet {
	out := make(SelectionSet, len(s))
	for t, names := range s {
		out[t] = append([]string(nil), names...)
	}
	return out
}
