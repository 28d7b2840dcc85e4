package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/shaiso/metamigrate/internal/domain"
	"github.com/shaiso/metamigrate/internal/repo"
	"github.com/shaiso/metamigrate/internal/session"
)

// ErrorCode — код ошибки API.
type ErrorCode string

const (
	ErrCodeBadRequest         ErrorCode = "BAD_REQUEST"
	ErrCodeForbidden          ErrorCode = "AUTHORIZATION_FAILED"
	ErrCodeNotFound           ErrorCode = "NOT_FOUND"
	ErrCodeConflict           ErrorCode = "CONFLICT"
	ErrCodeInvalidState       ErrorCode = "INVALID_STATE"
	ErrCodeUpstreamError      ErrorCode = "UPSTREAM_ERROR"
	ErrCodeServiceUnavailable ErrorCode = "SERVICE_UNAVAILABLE"
	ErrCodeInternalError      ErrorCode = "INTERNAL_ERROR"
)

// ErrorResponse — структура ответа с ошибкой.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail — детали ошибки.
type ErrorDetail struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Field   string    `json:"field,omitempty"`
}

// DataResponse — структура успешного ответа.
type DataResponse struct {
	Data any `json:"data"`
}

// ListResponse — структура ответа со списком.
type ListResponse struct {
	Data  any `json:"data"`
	Total int `json:"total"`
}

// JSON отправляет JSON ответ.
func JSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// Success отправляет успешный ответ с данными.
func Success(w http.ResponseWriter, data any) {
	JSON(w, http.StatusOK, DataResponse{Data: data})
}

// Created отправляет ответ о создании ресурса.
func Created(w http.ResponseWriter, data any) {
	JSON(w, http.StatusCreated, DataResponse{Data: data})
}

// Accepted отправляет ответ о принятой фоновой операции (202).
func Accepted(w http.ResponseWriter, data any) {
	JSON(w, http.StatusAccepted, DataResponse{Data: data})
}

// NoContent отправляет ответ без тела (204).
func NoContent(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNoContent)
}

// List отправляет ответ со списком.
func List(w http.ResponseWriter, data any, total int) {
	JSON(w, http.StatusOK, ListResponse{Data: data, Total: total})
}

// Error отправляет ответ с ошибкой.
func Error(w http.ResponseWriter, status int, code ErrorCode, message string) {
	JSON(w, status, ErrorResponse{
		Error: ErrorDetail{
			Code:    code,
			Message: message,
		},
	})
}

// BadRequest отправляет ошибку 400.
func BadRequest(w http.ResponseWriter, message string) {
	Error(w, http.StatusBadRequest, ErrCodeBadRequest, message)
}

// Forbidden отправляет ошибку 403.
func Forbidden(w http.ResponseWriter, message string) {
	Error(w, http.StatusForbidden, ErrCodeForbidden, message)
}

// NotFound отправляет ошибку 404.
func NotFound(w http.ResponseWriter, message string) {
	Error(w, http.StatusNotFound, ErrCodeNotFound, message)
}

// Conflict отправляет ошибку 409.
func Conflict(w http.ResponseWriter, message string) {
	Error(w, http.StatusConflict, ErrCodeConflict, message)
}

// InvalidState отправляет ошибку 422.
func InvalidState(w http.ResponseWriter, message string) {
	Error(w, http.StatusUnprocessableEntity, ErrCodeInvalidState, message)
}

// UpstreamError отправляет ошибку 502.
func UpstreamError(w http.ResponseWriter, message string) {
	Error(w, http.StatusBadGateway, ErrCodeUpstreamError, message)
}

// ServiceUnavailable отправляет ошибку 503.
func ServiceUnavailable(w http.ResponseWriter, message string) {
	Error(w, http.StatusServiceUnavailable, ErrCodeServiceUnavailable, message)
}

// InternalError отправляет ошибку 500.
func InternalError(w http.ResponseWriter, logger *slog.Logger, err error) {
	logger.Error("internal error", "error", err)
	Error(w, http.StatusInternalServerError, ErrCodeInternalError, "internal server error")
}

// HandleError преобразует ошибку визарда, сессии или репозитория в HTTP ответ.
// Возвращает false, если err == nil.
func HandleError(w http.ResponseWriter, logger *slog.Logger, err error) bool {
	if err == nil {
		return false
	}

	var verr *domain.ValidationError
	switch {
	case errors.As(err, &verr):
		JSON(w, http.StatusBadRequest, ErrorResponse{Error: ErrorDetail{
			Code:    ErrCodeBadRequest,
			Message: verr.Message,
			Field:   verr.Field,
		}})
	case errors.Is(err, session.ErrNotFound):
		NotFound(w, "session not found")
	case errors.Is(err, repo.ErrNotFound):
		NotFound(w, "deployment not found")
	case errors.Is(err, domain.ErrBusy), errors.Is(err, domain.ErrClosed):
		Conflict(w, err.Error())
	case errors.Is(err, domain.ErrAuthorizationFailed):
		Forbidden(w, err.Error())
	case errors.Is(err, domain.ErrAuthExpired), errors.Is(err, domain.ErrDeploymentFailed):
		InvalidState(w, err.Error())
	case errors.Is(err, domain.ErrFetch), errors.Is(err, domain.ErrDeploymentTimeout):
		UpstreamError(w, err.Error())
	default:
		InternalError(w, logger, err)
	}
	return true
}
