package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/shaiso/metamigrate/internal/domain"
)

// ListEnvironments возвращает подключённые окружения.
// GET /api/v1/environments
func (h *Handler) ListEnvironments(w http.ResponseWriter, r *http.Request) {
	envs, err := h.gateway.ListEnvironments(r.Context())
	if HandleError(w, h.logger, err) {
		return
	}
	if envs == nil {
		envs = []domain.Environment{}
	}
	List(w, envs, len(envs))
}

// RegisterEnvironment регистрирует новое окружение.
// POST /api/v1/environments
//
// Учётные данные проверяются и отправляются синхронно; задача регистрации
// опрашивается в фоне, результат уходит уведомлением.
func (h *Handler) RegisterEnvironment(w http.ResponseWriter, r *http.Request) {
	var creds domain.EnvironmentCredentials
	if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
		BadRequest(w, "invalid request body")
		return
	}

	jobID, err := h.registrar.Submit(r.Context(), creds)
	if HandleError(w, h.logger, err) {
		return
	}

	h.wg.Add(1)
	go func() {
		defer h.wg.Done()
		if err := h.registrar.Await(h.ctx, jobID, creds.Label); err != nil && !errors.Is(err, h.ctx.Err()) {
			h.logger.Warn("environment registration failed", "label", creds.Label, "job_id", jobID, "error", err)
		}
	}()

	Accepted(w, RegisterEnvironmentResponse{JobID: jobID, Label: creds.Label})
}
