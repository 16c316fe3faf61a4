package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Togather-Foundation/serendipity/internal/api/middleware"
	"github.com/Togather-Foundation/serendipity/internal/api/problem"
	"github.com/Togather-Foundation/serendipity/internal/auth"
	"github.com/Togather-Foundation/serendipity/internal/domain/events"
	"github.com/Togather-Foundation/serendipity/internal/domain/users"
	"github.com/Togather-Foundation/serendipity/internal/storage/memory"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type testEnv struct {
	users   *users.Service
	events  *events.Service
	tokens  *auth.TokenService
	authH   *AuthHandler
	usersH  *UsersHandler
	eventsH *EventsHandler
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	store := memory.New()
	userService := users.NewService(store.Users(), auth.NewPasswordHasher(bcrypt.MinCost), zerolog.Nop())
	eventService := events.NewService(store.Events(), zerolog.Nop())
	tokens := auth.NewTokenService("handler-test-secret", time.Hour, "serendipity")
	return &testEnv{
		users:   userService,
		events:  eventService,
		tokens:  tokens,
		authH:   NewAuthHandler(userService, tokens, "test"),
		usersH:  NewUsersHandler(userService, eventService, "test"),
		eventsH: NewEventsHandler(eventService, "test"),
	}
}

func (e *testEnv) signup(t *testing.T, first, email string, interests ...string) *users.User {
	t.Helper()
	user, err := e.users.Signup(context.Background(), users.SignupInput{
		FirstName: first,
		LastName:  "Tester",
		Email:     email,
		Password:  "secret-pass",
		School:    "Northside High",
		Interests: interests,
	})
	require.NoError(t, err)
	return user
}

func (e *testEnv) createEvent(t *testing.T, host *users.User, category string, capacity *int) *events.Event {
	t.Helper()
	event, err := e.events.Create(context.Background(), hostOf(host), events.CreateInput{
		Title:       "Study group",
		Description: "Bring your notes.",
		Category:    category,
		Location:    "Library",
		Date:        "2026-11-20",
		Capacity:    capacity,
	})
	require.NoError(t, err)
	return event
}

type call struct {
	method string
	target string
	body   any
	user   *users.User
	path   map[string]string
}

// serve runs h directly, binding user and path values the way the router
// and Authenticate would.
func serve(t *testing.T, h http.HandlerFunc, c call) *httptest.ResponseRecorder {
	t.Helper()

	var body io.Reader
	switch b := c.body.(type) {
	case nil:
	case string:
		body = bytes.NewBufferString(b)
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		body = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(c.method, c.target, body)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range c.path {
		req.SetPathValue(k, v)
	}
	if c.user != nil {
		req = req.WithContext(middleware.WithUser(req.Context(), c.user))
	}

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func requireProblem(t *testing.T, rec *httptest.ResponseRecorder, status int, message string) problem.ProblemDetails {
	t.Helper()
	require.Equal(t, status, rec.Code, rec.Body.String())
	require.Equal(t, "application/problem+json", rec.Header().Get("Content-Type"))
	body := decode[problem.ProblemDetails](t, rec)
	require.Equal(t, status, body.Status)
	if message != "" {
		require.Equal(t, message, body.Message)
	}
	return body
}

func intPtr(v int) *int { return &v }
