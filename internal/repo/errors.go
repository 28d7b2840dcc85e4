package repo

import "errors"

var (
	// ErrNotFound — записи о деплое с таким ID нет.
	ErrNotFound = errors.New("deployment not found")

	// ErrAlreadyExists — запись с таким ID уже сохранена
	// (повторная доставка события).
	ErrAlreadyExists = errors.New("deployment already recorded")
)
