// Package telemetry — логирование и метрики metamigrate.
//
//   - logging.go — slog (LOG_LEVEL, LOG_FORMAT) и логгеры с полями
//     session_id, job_id, source/target
//   - metrics.go — счётчики опросов, обменов токена, деплоев,
//     сообщений аудитора и число открытых сессий
//
// metamigrate-api и metamigrate-auditor отдают метрики на /metrics.
package telemetry
