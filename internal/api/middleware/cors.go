package middleware

import (
	"net/http"

	"github.com/Togather-Foundation/serendipity/internal/config"
	"github.com/rs/cors"
	"github.com/rs/zerolog"
)

// CORS adds cross-origin headers for browser clients. Tokens travel in the
// Authorization header, so credentials are not allowed. Preflight requests
// fall through to the next handler, which is expected to be Preflight.
func CORS(cfg config.CORSConfig, logger zerolog.Logger) func(http.Handler) http.Handler {
	opts := cors.Options{
		AllowedMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:     []string{"Content-Type", "Authorization", "Accept", RequestIDHeader},
		ExposedHeaders:     []string{RequestIDHeader, "Retry-After"},
		MaxAge:             86400,
		OptionsPassthrough: true,
	}

	if cfg.AllowAllOrigins {
		opts.AllowedOrigins = []string{"*"}
	} else {
		allowed := make(map[string]struct{}, len(cfg.AllowedOrigins))
		for _, origin := range cfg.AllowedOrigins {
			allowed[origin] = struct{}{}
		}
		opts.AllowOriginFunc = func(origin string) bool {
			if _, ok := allowed[origin]; ok {
				return true
			}
			logger.Warn().Str("origin", origin).Msg("CORS origin rejected")
			return false
		}
	}

	return cors.New(opts).Handler
}

// Preflight answers every OPTIONS request with an empty 200.
func Preflight(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}
