package http

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/autom8ter/ideabase"
	"github.com/autom8ter/ideabase/errors"
	"github.com/autom8ter/ideabase/transport/http/httpError"
)

func (s *Server) healthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		httpError.Respond(w, http.StatusOK, map[string]any{"ok": true})
	}
}

// execHandler executes a serialized query: {collection, action, state} -> {data, error, count}
func (s *Server) execHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		var req ideabase.ExecRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpError.Error(w, errors.Wrap(err, errors.Validation, "failed to decode request"))
			return
		}
		if req.Collection == "" {
			httpError.Error(w, errors.New(errors.Validation, "missing collection"))
			return
		}
		query := req.Resolve()
		if !query.Action.Valid() {
			httpError.Error(w, errors.New(errors.Validation, "unsupported action: %s", query.Action))
			return
		}
		if !s.adapter.HasCollection(req.Collection) {
			httpError.Error(w, errors.New(errors.Validation, "collection does not exist: %s", req.Collection))
			return
		}
		tags := map[string]any{
			"request.path": r.URL.Path,
			"collection":   req.Collection,
			"action":       query.Action,
		}
		result, err := s.adapter.Execute(r.Context(), req.Collection, query)
		tags["duration"] = float64(time.Since(start).Microseconds()) / float64(1000)
		if err != nil {
			s.logger.Error(r.Context(), "failed to execute query", err, tags)
			status := http.StatusInternalServerError
			if errors.CodeOf(err) == errors.Validation {
				status = http.StatusBadRequest
			}
			httpError.Respond(w, status, ideabase.ErrorResult(err.Error()))
			return
		}
		s.logger.Debug(r.Context(), "query executed", tags)
		httpError.Respond(w, http.StatusOK, result)
	}
}
