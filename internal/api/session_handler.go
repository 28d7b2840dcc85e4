package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/google/uuid"

	"github.com/shaiso/metamigrate/internal/domain"
	"github.com/shaiso/metamigrate/internal/session"
)

// sessionFromPath возвращает сессию по {id}. При ошибке ответ уже отправлен.
func (h *Handler) sessionFromPath(w http.ResponseWriter, r *http.Request) (*session.Session, bool) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		BadRequest(w, "invalid session id")
		return nil, false
	}

	s, err := h.sessions.Get(id)
	if HandleError(w, h.logger, err) {
		return nil, false
	}
	return s, true
}

// CreateSession открывает сессию визарда и загружает окружения.
// POST /api/v1/sessions
func (h *Handler) CreateSession(w http.ResponseWriter, r *http.Request) {
	s := h.sessions.Create()

	if err := s.Wizard.Load(r.Context()); err != nil {
		h.sessions.Close(s.ID)
		HandleError(w, h.logger, err)
		return
	}

	Created(w, SessionFromDomain(s))
}

// GetSession возвращает состояние сессии и новые уведомления.
// GET /api/v1/sessions/{id}
func (h *Handler) GetSession(w http.ResponseWriter, r *http.Request) {
	s, ok := h.sessionFromPath(w, r)
	if !ok {
		return
	}
	Success(w, SessionFromDomain(s))
}

// CloseSession закрывает сессию.
// DELETE /api/v1/sessions/{id}
func (h *Handler) CloseSession(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		BadRequest(w, "invalid session id")
		return
	}

	if HandleError(w, h.logger, h.sessions.Close(id)) {
		return
	}
	NoContent(w)
}

// SelectOrgs выбирает source и target. Пара применяется целиком.
// PUT /api/v1/sessions/{id}/orgs
func (h *Handler) SelectOrgs(w http.ResponseWriter, r *http.Request) {
	s, ok := h.sessionFromPath(w, r)
	if !ok {
		return
	}

	var req SelectOrgsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		BadRequest(w, "invalid request body")
		return
	}

	if HandleError(w, h.logger, s.Wizard.SelectOrgs(r.Context(), req.Source, req.Target)) {
		return
	}

	Success(w, SessionFromDomain(s))
}

// NextStep переходит на следующий шаг.
// POST /api/v1/sessions/{id}/next
//
// С первого шага переход требует авторизации и выполняется в фоне (202).
func (h *Handler) NextStep(w http.ResponseWriter, r *http.Request) {
	s, ok := h.sessionFromPath(w, r)
	if !ok {
		return
	}

	if s.Wizard.Step() == domain.StepSelectOrgs {
		// Условие перехода проверяется синхронно, чтобы 400 вернулся сразу
		if !s.Wizard.CanAdvance() {
			HandleError(w, h.logger, s.Wizard.Next(r.Context()))
			return
		}
		h.runAsync(w, s, "next", func(ctx context.Context) error {
			return s.Wizard.Next(ctx)
		})
		return
	}

	if HandleError(w, h.logger, s.Wizard.Next(r.Context())) {
		return
	}
	Success(w, SessionFromDomain(s))
}

// PreviousStep возвращает на предыдущий шаг.
// POST /api/v1/sessions/{id}/previous
func (h *Handler) PreviousStep(w http.ResponseWriter, r *http.Request) {
	s, ok := h.sessionFromPath(w, r)
	if !ok {
		return
	}

	if HandleError(w, h.logger, s.Wizard.Previous(r.Context())) {
		return
	}
	Success(w, SessionFromDomain(s))
}

// SelectTypes выбирает типы метаданных.
// PUT /api/v1/sessions/{id}/types
func (h *Handler) SelectTypes(w http.ResponseWriter, r *http.Request) {
	s, ok := h.sessionFromPath(w, r)
	if !ok {
		return
	}

	var req SelectTypesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		BadRequest(w, "invalid request body")
		return
	}

	if HandleError(w, h.logger, s.Wizard.SelectTypes(r.Context(), req.Types)) {
		return
	}
	Success(w, SessionFromDomain(s))
}

// FetchDescriptors загружает компоненты выбранных типов.
// POST /api/v1/sessions/{id}/descriptors
func (h *Handler) FetchDescriptors(w http.ResponseWriter, r *http.Request) {
	s, ok := h.sessionFromPath(w, r)
	if !ok {
		return
	}

	rows, err := s.Wizard.FetchDescriptors(r.Context())
	if HandleError(w, h.logger, err) {
		return
	}
	if rows == nil {
		rows = []domain.MetadataDescriptor{}
	}
	Success(w, DescriptorsResponse{Rows: rows})
}

// SelectRows выбирает компоненты.
// PUT /api/v1/sessions/{id}/rows
func (h *Handler) SelectRows(w http.ResponseWriter, r *http.Request) {
	s, ok := h.sessionFromPath(w, r)
	if !ok {
		return
	}

	var req SelectRowsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		BadRequest(w, "invalid request body")
		return
	}

	if HandleError(w, h.logger, s.Wizard.SelectRows(r.Context(), req.Descriptors())) {
		return
	}
	Success(w, SessionFromDomain(s))
}

// Deploy запускает деплой в фоне (202).
// POST /api/v1/sessions/{id}/deploy
func (h *Handler) Deploy(w http.ResponseWriter, r *http.Request) {
	s, ok := h.sessionFromPath(w, r)
	if !ok {
		return
	}

	if s.Wizard.Step() != domain.StepReviewAndDeploy {
		InvalidState(w, "deploy is only available on step "+domain.StepReviewAndDeploy.String())
		return
	}

	h.runAsync(w, s, "deploy", func(ctx context.Context) error {
		_, err := s.Wizard.Deploy(ctx)
		return err
	})
}

// runAsync запускает операцию в фоне сессии и отвечает 202.
func (h *Handler) runAsync(w http.ResponseWriter, s *session.Session, name string, fn func(ctx context.Context) error) {
	if HandleError(w, h.logger, s.Go(name, fn)) {
		return
	}
	Accepted(w, SessionFromDomain(s))
}
