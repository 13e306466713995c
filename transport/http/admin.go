package http

import (
	"encoding/json"
	"net/http"

	"github.com/autom8ter/ideabase/errors"
	"github.com/autom8ter/ideabase/transport/http/httpError"
	"github.com/autom8ter/ideabase/util"
)

type featureRequest struct {
	ID         string `json:"id" validate:"required"`
	IsFeatured bool   `json:"is_featured"`
}

func (s *Server) featureHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req featureRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpError.Error(w, errors.Wrap(err, errors.Validation, "failed to decode request"))
			return
		}
		if err := util.ValidateStruct(req); err != nil {
			httpError.Error(w, err)
			return
		}
		if _, err := s.ideas.SetFeatured(r.Context(), req.ID, req.IsFeatured); err != nil {
			httpError.Error(w, err)
			return
		}
		httpError.Respond(w, http.StatusOK, map[string]any{"ok": true})
	}
}

func (s *Server) adminDeleteHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			ID string `json:"id"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpError.Error(w, errors.Wrap(err, errors.Validation, "failed to decode request"))
			return
		}
		if err := s.ideas.AdminDelete(r.Context(), req.ID); err != nil {
			httpError.Error(w, err)
			return
		}
		httpError.Respond(w, http.StatusOK, map[string]any{"ok": true})
	}
}

func (s *Server) pendingHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		pending, err := s.ideas.Pending(r.Context())
		if err != nil {
			httpError.Error(w, err)
			return
		}
		httpError.Respond(w, http.StatusOK, map[string]any{"ideas": pending})
	}
}

func (s *Server) analyticsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		analytics, err := s.ideas.Analytics(r.Context())
		if err != nil {
			httpError.Error(w, err)
			return
		}
		httpError.Respond(w, http.StatusOK, analytics)
	}
}
