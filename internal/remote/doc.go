// Package remote — граница с удалённой платформой, на которой живут окружения.
//
// Все бизнес-операции (обмен токена, выборка и перенос метаданных,
// регистрация окружений) выполняются удалённой стороной; пакет
// только транспортирует запросы и разбирает ответы.
//
// Gateway — интерфейс, который используют компоненты визарда.
// Client — его HTTP/JSON реализация. Ответы приходят в конверте
// {"data": ...}, ошибки — в {"error": {"code", "message"}}.
//
// Любая транспортная ошибка, HTTP >= 400 или нераспознанное тело
// возвращаются как domain.ErrFetch.
package remote
