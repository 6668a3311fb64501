package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/fjod/go_kitchen/internal/auth"
	"github.com/fjod/go_kitchen/internal/session"
	"github.com/go-chi/chi/v5/middleware"
)

const SessionHeader = "X-Session-ID"

type sessionKey struct{}

// RequestIDMiddleware echoes the chi request id back to the client.
func RequestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if requestID := middleware.GetReqID(r.Context()); requestID != "" {
			w.Header().Set("X-Request-ID", requestID)
		}
		next.ServeHTTP(w, r)
	})
}

// RequestLogger logs one line per request through slog.
func RequestLogger(log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			log.InfoContext(r.Context(), "request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration", time.Since(start),
				"request_id", middleware.GetReqID(r.Context()),
			)
		})
	}
}

// SessionMiddleware resolves the storefront session from X-Session-ID,
// creating one when the header is missing or unknown, and applies the
// request's sign-in state to it. Must run after auth.Middleware.
func SessionMiddleware(manager *session.Manager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			s, _ := manager.GetOrCreate(r.Header.Get(SessionHeader))
			w.Header().Set(SessionHeader, s.ID)

			var userID string
			if p, ok := auth.FromContext(r.Context()); ok {
				userID = p.UserID
			}
			if err := s.Observe(r.Context(), userID); err != nil {
				handleError(w, err)
				return
			}

			ctx := context.WithValue(r.Context(), sessionKey{}, s)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func sessionFromContext(ctx context.Context) *session.Session {
	s, _ := ctx.Value(sessionKey{}).(*session.Session)
	return s
}
