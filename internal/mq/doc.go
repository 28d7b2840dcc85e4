// Package mq предоставляет инфраструктуру для работы с RabbitMQ.
//
// Структура:
//   - connection.go — соединение с RabbitMQ (reconnect, graceful shutdown)
//   - topology.go   — объявление exchanges, queues, bindings
//   - publisher.go  — публикация событий
//   - consumer.go   — потребление событий
//
// Типы сообщений:
//   - deployment.completed — деплой дошёл до финального состояния
//   - notification         — уведомление пользователю
//
// Exchanges:
//   - metamigrate.events — события визарда
//   - metamigrate.dlq    — dead letter queue
package mq
