package rest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/google/uuid"

	"github.com/heartmarshall/mangalend-backend/internal/domain"
	"github.com/heartmarshall/mangalend-backend/pkg/ctxutil"
)

// retryAfterSeconds is sent with 503 responses for transient store failures.
const retryAfterSeconds = 2

// maxBodyBytes caps request bodies; every request body here is a few fields.
const maxBodyBytes = 1 << 16

// errorResponse is the JSON body of every error response.
type errorResponse struct {
	Error  string       `json:"error"`
	Code   string       `json:"code"`
	Fields []fieldError `json:"fields,omitempty"`
}

type fieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// handleError maps a service error to an HTTP status and writes it.
// Unexpected errors are logged and hidden behind a generic message.
func handleError(w http.ResponseWriter, r *http.Request, log *slog.Logger, err error) {
	var ve *domain.ValidationError

	switch {
	case errors.As(err, &ve):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: ve.Error(), Code: "VALIDATION", Fields: mapSlice(ve.Errors, func(fe domain.FieldError) fieldError {
			return fieldError{Field: fe.Field, Message: fe.Message}
		})})
	case errors.Is(err, domain.ErrValidation):
		writeError(w, http.StatusBadRequest, "VALIDATION", err.Error())
	case errors.Is(err, domain.ErrUnauthorized):
		writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "authentication required")
	case errors.Is(err, domain.ErrForbidden):
		writeError(w, http.StatusForbidden, "FORBIDDEN", "administrator role required")
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, "NOT_FOUND", "not found")
	case errors.Is(err, domain.ErrActiveLoanExists):
		writeError(w, http.StatusConflict, "ACTIVE_LOAN_EXISTS", "item already has an active loan")
	case errors.Is(err, domain.ErrAlreadyWaiting):
		writeError(w, http.StatusConflict, "ALREADY_WAITING", "already on the waitlist")
	case errors.Is(err, domain.ErrConflict), errors.Is(err, domain.ErrAlreadyExists):
		writeError(w, http.StatusConflict, "CONFLICT", "conflict")
	case errors.Is(err, domain.ErrInvalidTransition):
		writeError(w, http.StatusUnprocessableEntity, "INVALID_TRANSITION", "loan status does not allow this change")
	case errors.Is(err, domain.ErrNoAdministrator):
		log.ErrorContext(r.Context(), "no administrator account", slog.String("error", err.Error()))
		writeError(w, http.StatusServiceUnavailable, "NO_ADMINISTRATOR", "no administrator available")
	case errors.Is(err, domain.ErrTransient), errors.Is(err, context.DeadlineExceeded):
		log.WarnContext(r.Context(), "transient failure", slog.String("error", err.Error()))
		w.Header().Set("Retry-After", strconv.Itoa(retryAfterSeconds))
		writeError(w, http.StatusServiceUnavailable, "UNAVAILABLE", "temporarily unavailable, retry later")
	default:
		log.ErrorContext(r.Context(), "request failed",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "INTERNAL", "internal server error")
	}
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorResponse{Error: message, Code: code})
}

// decodeJSON reads a JSON request body into v.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return domain.NewValidationError("body", fmt.Sprintf("invalid JSON: %v", err))
	}
	return nil
}

// callerID returns the authenticated user, or domain.ErrUnauthorized.
func callerID(r *http.Request) (uuid.UUID, error) {
	id, ok := ctxutil.UserIDFromCtx(r.Context())
	if !ok {
		return uuid.Nil, domain.ErrUnauthorized
	}
	return id, nil
}

// pathUUID parses a path wildcard as a UUID.
func pathUUID(r *http.Request, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(r.PathValue(name))
	if err != nil {
		return uuid.Nil, domain.NewValidationError(name, "must be a UUID")
	}
	return id, nil
}

// queryUUID parses an optional query parameter as a UUID.
func queryUUID(r *http.Request, name string) (*uuid.UUID, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return nil, nil
	}
	id, err := uuid.Parse(v)
	if err != nil {
		return nil, domain.NewValidationError(name, "must be a UUID")
	}
	return &id, nil
}

// page reads limit and offset. Missing values are zero; range checks are
// left to the service inputs.
func page(r *http.Request) (limit, offset int, err error) {
	q := r.URL.Query()
	if v := q.Get("limit"); v != "" {
		if limit, err = strconv.Atoi(v); err != nil {
			return 0, 0, domain.NewValidationError("limit", "must be an integer")
		}
	}
	if v := q.Get("offset"); v != "" {
		if offset, err = strconv.Atoi(v); err != nil {
			return 0, 0, domain.NewValidationError("offset", "must be an integer")
		}
	}
	return limit, offset, nil
}

// listResponse wraps a page of results.
type listResponse[T any] struct {
	Items []T `json:"items"`
	Total int `json:"total"`
}

func mapSlice[S, T any](in []S, f func(S) T) []T {
	out := make([]T, len(in))
	for i, v := range in {
		out[i] = f(v)
	}
	return out
}
