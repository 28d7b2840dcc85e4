// Package cli реализует инструмент командной строки metamigrate.
//
// # Обзор
//
// CLI — клиентская утилита для metamigrate API. Работает через HTTP
// и не импортирует серверные пакеты: из внутренних используются только
// типы domain и разбор планов plan.
//
// # Ключевые компоненты
//
// ## Client
//
// HTTP-клиент для API. Инкапсулирует запросы, разбор ответов
// (data, list, error) и ошибки API (*APIError).
//
//	client := cli.NewClient("http://localhost:8080")
//	envs, err := client.ListEnvironments(ctx)
//
// Переход с первого шага и деплой выполняются на сервере в фоне;
// WaitSession опрашивает сессию до завершения операции.
//
// ## RemoteSession
//
// Реализация plan.Driver поверх сессии на сервере. Используется
// командой plan apply.
//
// ## Output
//
// Форматирование вывода. Поддерживает два режима:
//   - Таблицы (text/tabwriter) — по умолчанию
//   - JSON — с флагом --json
//
// Данные выводятся в stdout, сообщения и уведомления визарда — в stderr.
//
// ## Commands
//
// Cobra-команды организованы по ресурсам:
//   - env: list, register
//   - session: start, show, close, orgs, next, previous, types, fetch, rows, deploy, wait
//   - deployment: list, show
//   - plan: validate, apply
//
// Каждая группа создаётся фабричной функцией (NewEnvCmd и т.д.),
// принимающей clientFn и outputFn — замыкания для ленивого создания
// Client и Output после парсинга PersistentFlags.
package cli
