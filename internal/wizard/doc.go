// Package wizard реализует трёхшаговый визард миграции метаданных.
//
// Шаги:
//
//	SelectOrgs → SelectMetadata → ReviewAndDeploy
//
// Компоненты:
//   - OrgSelector — список окружений и правило source ≠ target
//   - CatalogBrowser — авторизация, типы метаданных и компоненты
//   - Orchestrator — submit деплоя и опрос статуса до финала
//   - Registrar — регистрация нового окружения
//
// Состоянием владеет только Wizard. Компоненты получают входные данные
// аргументами и возвращают результаты, ничего не храня.
//
// Каждое удалённое действие — это одна операция: пока она выполняется,
// флаг loading поднят и остальные переходы отклоняются с domain.ErrBusy.
// Close отменяет выполняющиеся операции и дожидается их завершения;
// после Close состояние не меняется.
package wizard
