// Package api содержит HTTP API сервер metamigrate.
//
// Структура:
//   - handler.go             — Handler с DI (сессии, gateway, registrar, журнал)
//   - routes.go              — регистрация маршрутов
//   - middleware.go          — middleware (logging, recovery, metrics)
//   - response.go            — унифицированные JSON-ответы и обработка ошибок
//   - dto.go                 — Data Transfer Objects (request/response)
//   - environment_handler.go — обработчики для /environments
//   - session_handler.go     — обработчики для /sessions (визард)
//   - deployment_handler.go  — обработчики для /deployments (журнал)
//
// Долгие переходы визарда (next с первого шага, deploy) выполняются
// в фоне сессии: ответ 202, клиент опрашивает GET /sessions/{id}.
package api
