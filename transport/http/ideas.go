package http

import (
	"encoding/json"
	"net/http"

	"github.com/autom8ter/ideabase"
	"github.com/autom8ter/ideabase/errors"
	"github.com/autom8ter/ideabase/ideas"
	"github.com/autom8ter/ideabase/transport/http/httpError"
	"github.com/gorilla/mux"
	"github.com/spf13/cast"
)

func (s *Server) listIdeasHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list, err := s.ideas.ListByUser(r.Context(), identity(r).ID)
		if err != nil {
			httpError.Error(w, err)
			return
		}
		httpError.Respond(w, http.StatusOK, map[string]any{"data": list})
	}
}

func (s *Server) createIdeaHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload ideabase.Record
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			httpError.Error(w, errors.Wrap(err, errors.Validation, "failed to decode idea"))
			return
		}
		created, err := s.ideas.Create(r.Context(), identity(r).ID, payload)
		if err != nil {
			httpError.Error(w, err)
			return
		}
		httpError.Respond(w, http.StatusOK, map[string]any{"data": created})
	}
}

func (s *Server) browseHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list, err := s.ideas.Browse(r.Context(), ideas.BrowseOptions{
			Category: r.URL.Query().Get("category"),
			Limit:    cast.ToInt(r.URL.Query().Get("limit")),
		})
		if err != nil {
			httpError.Error(w, err)
			return
		}
		httpError.Respond(w, http.StatusOK, map[string]any{"data": list})
	}
}

func (s *Server) getIdeaHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		detail, err := s.ideas.GetOwned(r.Context(), identity(r).ID, mux.Vars(r)["id"])
		if err != nil {
			httpError.Error(w, err)
			return
		}
		httpError.Respond(w, http.StatusOK, map[string]any{"data": detail})
	}
}

func (s *Server) updateIdeaHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload ideabase.Record
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			httpError.Error(w, errors.Wrap(err, errors.Validation, "failed to decode idea"))
			return
		}
		updated, err := s.ideas.Update(r.Context(), identity(r).ID, mux.Vars(r)["id"], payload)
		if err != nil {
			httpError.Error(w, err)
			return
		}
		httpError.Respond(w, http.StatusOK, map[string]any{"data": updated})
	}
}

func (s *Server) deleteIdeaHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := s.ideas.Remove(r.Context(), identity(r).ID, mux.Vars(r)["id"]); err != nil {
			httpError.Error(w, err)
			return
		}
		httpError.Respond(w, http.StatusOK, map[string]any{"data": map[string]any{"deleted": true}})
	}
}
