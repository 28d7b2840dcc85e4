// Package poll опрашивает статус удалённых асинхронных задач.
//
// Poller вызывает StatusFunc сразу, затем с фиксированным интервалом,
// пока задача не вернёт done=true. Опрос ограничен политикой:
//   - MaxAttempts — максимальное количество вызовов статуса
//   - Timeout — общее время ожидания
//
// Исчерпание политики превращается в domain.ErrDeploymentTimeout.
// Ожидание между попытками прерывается отменой context, поэтому
// закрытие владельца (сессии визарда) останавливает дальнейшие опросы.
//
// Один и тот же jobID не может опрашиваться двумя горутинами одновременно.
package poll
