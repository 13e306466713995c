package http

import (
	"net/http"
	"time"

	"github.com/autom8ter/ideabase"
	"github.com/autom8ter/ideabase/auth"
	"github.com/autom8ter/ideabase/errors"
	"github.com/autom8ter/ideabase/transport/http/httpError"
	"github.com/segmentio/ksuid"
)

// RequestIDHeader carries the request id on requests and responses
const RequestIDHeader = "X-Request-Id"

func (s *Server) requestID(handler http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if id == "" {
			id = ksuid.New().String()
		}
		w.Header().Set(RequestIDHeader, id)
		handler.ServeHTTP(w, r.WithContext(ideabase.WithRequestID(r.Context(), id)))
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(status int) {
	s.status = status
	s.ResponseWriter.WriteHeader(status)
}

func (s *Server) logRequests(handler http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		handler.ServeHTTP(rec, r)
		tags := map[string]any{
			"request.path":   r.URL.Path,
			"request.method": r.Method,
			"status":         rec.status,
			"duration":       float64(time.Since(start).Microseconds()) / float64(1000),
		}
		if rec.status >= http.StatusInternalServerError {
			s.logger.Warn(r.Context(), "request failed", tags)
			return
		}
		s.logger.Debug(r.Context(), "request served", tags)
	})
}

// session requires an authenticated session and adds its identity to the request context
func (s *Server) session(handler http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		identity, err := s.auth.Authenticate(r)
		if err != nil {
			httpError.Error(w, errors.Wrap(err, errors.Unauthorized, ""))
			return
		}
		handler.ServeHTTP(w, r.WithContext(auth.WithIdentity(r.Context(), identity)))
	}
}

// admin requires a session whose identity satisfies the admin policy
func (s *Server) admin(handler http.HandlerFunc) http.HandlerFunc {
	return s.session(func(w http.ResponseWriter, r *http.Request) {
		identity, _ := auth.GetIdentity(r.Context())
		if !s.policy(r.Context(), identity) {
			httpError.Error(w, errors.New(errors.Forbidden, "forbidden"))
			return
		}
		handler.ServeHTTP(w, r)
	})
}

func identity(r *http.Request) auth.Identity {
	identity, _ := auth.GetIdentity(r.Context())
	return identity
}
