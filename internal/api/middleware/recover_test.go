package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Togather-Foundation/serendipity/internal/api/problem"
	"github.com/stretchr/testify/require"
)

func TestRecoverConvertsPanic(t *testing.T) {
	handler := Recover("production")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	require.NotPanics(t, func() {
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/events", nil))
	})

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	var body problem.ProblemDetails
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, problem.TypeInternal, body.Type)
	require.Empty(t, body.Detail)
}

func TestRecoverRethrowsAbort(t *testing.T) {
	handler := Recover("production")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic(http.ErrAbortHandler)
	}))
	require.PanicsWithValue(t, http.ErrAbortHandler, func() {
		handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	})
}
