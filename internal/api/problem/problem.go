package problem

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/rs/zerolog"
)

const contentType = "application/problem+json"

const (
	TypeValidation   = "/problems/validation-error"
	TypeUnauthorized = "/problems/unauthorized"
	TypeForbidden    = "/problems/forbidden"
	TypeNotFound     = "/problems/not-found"
	TypeConflict     = "/problems/conflict"
	TypeTooLarge     = "/problems/payload-too-large"
	TypeRateLimited  = "/problems/rate-limit-exceeded"
	TypeInternal     = "/problems/internal-error"
)

// ProblemDetails is an RFC 7807 body. Message is the human readable text
// clients show to users.
type ProblemDetails struct {
	Type     string         `json:"type"`
	Title    string         `json:"title"`
	Status   int            `json:"status"`
	Message  string         `json:"message"`
	Detail   string         `json:"detail,omitempty"`
	Instance string         `json:"instance,omitempty"`
	Errors   map[string]any `json:"errors,omitempty"`
}

type Option func(*ProblemDetails)

func WithMessage(message string) Option {
	return func(p *ProblemDetails) {
		p.Message = message
	}
}

func WithErrors(errs map[string]any) Option {
	return func(p *ProblemDetails) {
		p.Errors = errs
	}
}

// Write renders a problem response. err is logged and, in development and
// test environments only, exposed as detail.
func Write(w http.ResponseWriter, r *http.Request, status int, typ, title string, err error, env string, opts ...Option) {
	problem := ProblemDetails{
		Type:    typ,
		Title:   title,
		Status:  status,
		Message: title,
	}

	for _, opt := range opts {
		opt(&problem)
	}

	if err != nil && (env == "development" || env == "test") {
		problem.Detail = err.Error()
	}

	if r != nil {
		problem.Instance = r.URL.Path
		logger := zerolog.Ctx(r.Context())
		switch {
		case status >= 500:
			logger.Error().
				Err(err).
				Int("status", status).
				Str("type", typ).
				Str("path", r.URL.Path).
				Str("method", r.Method).
				Msg(title)
		case status >= 400 && err != nil:
			logger.Warn().
				Err(err).
				Int("status", status).
				Str("type", typ).
				Str("path", r.URL.Path).
				Str("method", r.Method).
				Msg(title)
		}
	}

	WriteProblem(w, problem)
}

func WriteProblem(w http.ResponseWriter, problem ProblemDetails) {
	payload, err := json.Marshal(problem)
	if err != nil {
		fallback := fmt.Sprintf("{\"type\":\"about:blank\",\"title\":%q,\"status\":500,\"message\":%q}",
			http.StatusText(http.StatusInternalServerError), http.StatusText(http.StatusInternalServerError))
		w.Header().Set("Content-Type", contentType)
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(fallback))
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(problem.Status)
	_, _ = w.Write(payload)
}
