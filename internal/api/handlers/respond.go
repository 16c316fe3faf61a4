package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/Togather-Foundation/serendipity/internal/api/problem"
	"github.com/Togather-Foundation/serendipity/internal/domain/events"
	"github.com/Togather-Foundation/serendipity/internal/domain/users"
	"github.com/Togather-Foundation/serendipity/internal/domain/validate"
)

// errMalformedBody is reported for bodies that are not a JSON object.
var errMalformedBody = errors.New("request body must be a JSON object")

type messageResponse struct {
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// decodeJSON reads a single JSON object from the body into dst.
func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(dst); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return maxErr
		}
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("%w: empty body", errMalformedBody)
		}
		return fmt.Errorf("%w: %v", errMalformedBody, err)
	}
	return nil
}

func pathParam(r *http.Request, key string) string {
	if r == nil {
		return ""
	}
	return r.PathValue(key)
}

// writeDomainError maps domain errors to problem responses. Anything
// unrecognised is a 500.
func writeDomainError(w http.ResponseWriter, r *http.Request, err error, env string) {
	var (
		fieldErr validate.FieldError
		maxErr   *http.MaxBytesError
	)

	switch {
	case errors.As(err, &fieldErr):
		problem.Write(w, r, http.StatusBadRequest, problem.TypeValidation, "Invalid request", err, env,
			problem.WithMessage(fieldErr.Error()),
			problem.WithErrors(map[string]any{fieldErr.Field: fieldErr.Message}))
	case errors.Is(err, errMalformedBody):
		problem.Write(w, r, http.StatusBadRequest, problem.TypeValidation, "Invalid request", err, env,
			problem.WithMessage("Request body must be valid JSON"))
	case errors.As(err, &maxErr):
		problem.Write(w, r, http.StatusRequestEntityTooLarge, problem.TypeTooLarge, "Payload too large", err, env,
			problem.WithMessage(fmt.Sprintf("Request body exceeds %d bytes", maxErr.Limit)))

	case errors.Is(err, users.ErrEmailTaken):
		problem.Write(w, r, http.StatusConflict, problem.TypeConflict, "Conflict", err, env,
			problem.WithMessage("User already exists"))
	case errors.Is(err, users.ErrInvalidCredentials):
		problem.Write(w, r, http.StatusUnauthorized, problem.TypeUnauthorized, "Unauthorized", nil, env,
			problem.WithMessage("Invalid credentials"))
	case errors.Is(err, users.ErrNotFound):
		problem.Write(w, r, http.StatusNotFound, problem.TypeNotFound, "Not found", err, env,
			problem.WithMessage("User not found"))

	case errors.Is(err, events.ErrNotFound):
		problem.Write(w, r, http.StatusNotFound, problem.TypeNotFound, "Not found", err, env,
			problem.WithMessage("Event not found"))
	case errors.Is(err, events.ErrNotHost):
		problem.Write(w, r, http.StatusForbidden, problem.TypeForbidden, "Forbidden", err, env,
			problem.WithMessage("Only the host can edit this event"))
	case errors.Is(err, events.ErrNotMember):
		problem.Write(w, r, http.StatusBadRequest, problem.TypeValidation, "Invalid request", err, env,
			problem.WithMessage("You are not attending this event"))
	case errors.Is(err, events.ErrAlreadyMember):
		problem.Write(w, r, http.StatusConflict, problem.TypeConflict, "Conflict", err, env,
			problem.WithMessage("You are already attending this event"))
	case errors.Is(err, events.ErrCapacityExceeded):
		problem.Write(w, r, http.StatusConflict, problem.TypeConflict, "Conflict", err, env,
			problem.WithMessage("Event is at full capacity"))
	case errors.Is(err, events.ErrCapacityBelowAttendance):
		problem.Write(w, r, http.StatusConflict, problem.TypeConflict, "Conflict", err, env,
			problem.WithMessage("Capacity cannot be lower than the current number of attendees"))
	case errors.Is(err, events.ErrContention):
		problem.Write(w, r, http.StatusConflict, problem.TypeConflict, "Conflict", err, env,
			problem.WithMessage("Event changed while processing the request, please retry"))

	default:
		problem.Write(w, r, http.StatusInternalServerError, problem.TypeInternal, "Internal server error", err, env,
			problem.WithMessage("Something went wrong"))
	}
}
