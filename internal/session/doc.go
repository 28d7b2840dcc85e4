// Package session хранит открытые сессии визарда.
//
// Каждая сессия владеет одним wizard.Wizard и inbox уведомлений.
// Долгие переходы (Next с первого шага, Deploy) запускаются в фоне
// через Session.Go; API отвечает 202 и клиент опрашивает состояние.
//
// Неактивные сессии закрываются Sweeper по cron-расписанию.
//
// Использование:
//
//	reg := session.NewRegistry(session.Config{
//	    Gateway: gateway,
//	    Poller:  poller,
//	    Events:  publisher, // опционально
//	    IdleTTL: 30 * time.Minute,
//	    Logger:  logger,
//	})
//	defer reg.CloseAll()
//
//	sweeper, err := session.StartSweeper(reg, "@every 1m", logger)
package session
