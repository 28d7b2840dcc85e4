package api

import (
	"net/http"
	"strconv"

	"github.com/google/uuid"

	"github.com/shaiso/metamigrate/internal/repo"
)

const deploymentsUnavailable = "deployment history is not configured"

// ListDeployments возвращает журнал деплоев.
// GET /api/v1/deployments?session_id=...&target=...&limit=...&offset=...
func (h *Handler) ListDeployments(w http.ResponseWriter, r *http.Request) {
	if h.deployments == nil {
		ServiceUnavailable(w, deploymentsUnavailable)
		return
	}

	q := r.URL.Query()
	filter := repo.DeploymentFilter{Target: q.Get("target")}

	if v := q.Get("session_id"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			BadRequest(w, "invalid session_id")
			return
		}
		filter.SessionID = &id
	}

	var ok bool
	if filter.Limit, ok = intParam(w, q.Get("limit"), "limit"); !ok {
		return
	}
	if filter.Offset, ok = intParam(w, q.Get("offset"), "offset"); !ok {
		return
	}

	records, err := h.deployments.List(r.Context(), filter)
	if HandleError(w, h.logger, err) {
		return
	}

	result := make([]DeploymentResponse, len(records))
	for i, rec := range records {
		result[i] = DeploymentFromDomain(rec)
	}
	List(w, result, len(result))
}

// GetDeployment возвращает запись журнала.
// GET /api/v1/deployments/{id}
func (h *Handler) GetDeployment(w http.ResponseWriter, r *http.Request) {
	if h.deployments == nil {
		ServiceUnavailable(w, deploymentsUnavailable)
		return
	}

	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		BadRequest(w, "invalid deployment id")
		return
	}

	rec, err := h.deployments.GetByID(r.Context(), id)
	if HandleError(w, h.logger, err) {
		return
	}
	Success(w, DeploymentFromDomain(*rec))
}

// intParam разбирает неотрицательный целый query-параметр. Пустое значение — 0.
func intParam(w http.ResponseWriter, value, name string) (int, bool) {
	if value == "" {
		return 0, true
	}
	n, err := strconv.Atoi(value)
	if err != nil || n < 0 {
		BadRequest(w, "invalid "+name)
		return 0, false
	}
	return n, true
}
