package middleware

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRequestSize(t *testing.T) {
	tests := []struct {
		name     string
		maxBytes int64
		bodySize int
		wantErr  bool
	}{
		{name: "small body", maxBytes: 1024, bodySize: 512},
		{name: "exact limit", maxBytes: 1024, bodySize: 1024},
		{name: "oversized body", maxBytes: 1024, bodySize: 2048, wantErr: true},
		{name: "default limit", maxBytes: DefaultMaxBodySize, bodySize: int(DefaultMaxBodySize) + 1, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var readErr error
			var read int
			handler := RequestSize(tt.maxBytes)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				body, err := io.ReadAll(r.Body)
				read, readErr = len(body), err
			}))

			req := httptest.NewRequest(http.MethodPost, "/api/events", strings.NewReader(strings.Repeat("x", tt.bodySize)))
			handler.ServeHTTP(httptest.NewRecorder(), req)

			if tt.wantErr {
				var maxErr *http.MaxBytesError
				require.True(t, errors.As(readErr, &maxErr), "got %v", readErr)
				require.Equal(t, tt.maxBytes, maxErr.Limit)
				return
			}
			require.NoError(t, readErr)
			require.Equal(t, tt.bodySize, read)
		})
	}
}

func TestRequestSizeWithoutBody(t *testing.T) {
	called := false
	handler := RequestSize(10)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/events", nil))
	require.True(t, called)
}
