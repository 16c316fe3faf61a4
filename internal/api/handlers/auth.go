package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/Togather-Foundation/serendipity/internal/api/problem"
	"github.com/Togather-Foundation/serendipity/internal/domain/users"
	"github.com/Togather-Foundation/serendipity/internal/domain/validate"
	"github.com/Togather-Foundation/serendipity/internal/metrics"
)

// TokenIssuer is satisfied by *auth.TokenService.
type TokenIssuer interface {
	Issue(userID string) (string, time.Time, error)
}

type AuthHandler struct {
	Users  *users.Service
	Tokens TokenIssuer
	Env    string
}

func NewAuthHandler(service *users.Service, tokens TokenIssuer, env string) *AuthHandler {
	return &AuthHandler{Users: service, Tokens: tokens, Env: env}
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type authResponse struct {
	Message   string      `json:"message"`
	Token     string      `json:"token"`
	ExpiresAt time.Time   `json:"expires_at"`
	User      userPayload `json:"user"`
}

// Signup registers an account and logs it in.
func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var input users.SignupInput
	if err := decodeJSON(r, &input); err != nil {
		metrics.AuthAttempts.WithLabelValues("signup", "invalid").Inc()
		writeDomainError(w, r, err, h.Env)
		return
	}

	user, err := h.Users.Signup(r.Context(), input)
	if err != nil {
		metrics.AuthAttempts.WithLabelValues("signup", authResult(err)).Inc()
		writeDomainError(w, r, err, h.Env)
		return
	}

	if h.respondWithToken(w, r, http.StatusCreated, "User created successfully", user) {
		metrics.AuthAttempts.WithLabelValues("signup", "success").Inc()
	}
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var input loginRequest
	if err := decodeJSON(r, &input); err != nil {
		metrics.AuthAttempts.WithLabelValues("login", "invalid").Inc()
		writeDomainError(w, r, err, h.Env)
		return
	}
	if strings.TrimSpace(input.Email) == "" || input.Password == "" {
		metrics.AuthAttempts.WithLabelValues("login", "invalid").Inc()
		problem.Write(w, r, http.StatusBadRequest, problem.TypeValidation, "Invalid request", nil, h.Env,
			problem.WithMessage("Missing email or password"))
		return
	}

	user, err := h.Users.Authenticate(r.Context(), input.Email, input.Password)
	if err != nil {
		metrics.AuthAttempts.WithLabelValues("login", authResult(err)).Inc()
		writeDomainError(w, r, err, h.Env)
		return
	}

	if h.respondWithToken(w, r, http.StatusOK, "Login successful", user) {
		metrics.AuthAttempts.WithLabelValues("login", "success").Inc()
	}
}

func (h *AuthHandler) respondWithToken(w http.ResponseWriter, r *http.Request, status int, message string, user *users.User) bool {
	token, expiresAt, err := h.Tokens.Issue(user.ID)
	if err != nil {
		writeDomainError(w, r, err, h.Env)
		return false
	}
	writeJSON(w, status, authResponse{
		Message:   message,
		Token:     token,
		ExpiresAt: expiresAt.UTC(),
		User:      newUserPayload(user),
	})
	return true
}

func authResult(err error) string {
	var fieldErr validate.FieldError
	switch {
	case errors.Is(err, users.ErrEmailTaken):
		return "conflict"
	case errors.Is(err, users.ErrInvalidCredentials), errors.As(err, &fieldErr):
		return "invalid"
	default:
		return "error"
	}
}
