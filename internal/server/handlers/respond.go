package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/iudanet/plansync/internal/models"
	"github.com/iudanet/plansync/internal/server/access"
	"github.com/iudanet/plansync/internal/server/schema"
	"github.com/iudanet/plansync/internal/server/storage"
	"github.com/iudanet/plansync/pkg/api"
)

// maxBodyBytes ограничивает размер тела запроса
const maxBodyBytes = 4 << 20

// sendJSON отправляет JSON ответ
func sendJSON(logger *slog.Logger, w http.ResponseWriter, data any, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Error("failed to encode JSON response", slog.Any("error", err))
	}
}

// sendError отправляет JSON ответ с ошибкой
func sendError(logger *slog.Logger, w http.ResponseWriter, statusCode int, code, message string) {
	sendJSON(logger, w, ErrorBody(statusCode, code, message), statusCode)
}

// ErrorBody builds the wire error for a status.
func ErrorBody(statusCode int, code, message string) api.ErrorResponse {
	return api.ErrorResponse{
		Error:   http.StatusText(statusCode),
		Code:    code,
		Message: message,
	}
}

// classify maps domain errors to status and wire code.
func classify(err error) (int, string) {
	switch {
	case errors.Is(err, access.ErrPermissionDenied):
		return http.StatusForbidden, api.CodePermissionDenied
	case errors.Is(err, storage.ErrDocumentNotFound):
		return http.StatusNotFound, api.CodeNotFound
	case errors.Is(err, models.ErrInvalidPath), errors.Is(err, schema.ErrInvalidDocument):
		return http.StatusBadRequest, api.CodeInvalidArgument
	}
	return http.StatusInternalServerError, api.CodeInternal
}

// sendFailure logs err and sends it as a wire error; internal details are hidden.
func sendFailure(logger *slog.Logger, w http.ResponseWriter, r *http.Request, err error) {
	status, code := classify(err)
	if status == http.StatusInternalServerError {
		logger.ErrorContext(r.Context(), "request failed", slog.String("path", r.URL.Path), slog.Any("error", err))
		sendError(logger, w, status, code, "internal server error")
		return
	}
	logger.WarnContext(r.Context(), "request rejected", slog.String("path", r.URL.Path), slog.Any("error", err))
	sendError(logger, w, status, code, err.Error())
}

// decodeBody читает JSON тело запроса с ограничением размера
func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	return json.NewDecoder(r.Body).Decode(v)
}
