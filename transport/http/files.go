package http

import (
	"encoding/json"
	"fmt"
	"net/http"
	"path/filepath"
	"time"

	"github.com/autom8ter/ideabase/errors"
	"github.com/autom8ter/ideabase/ideas"
	"github.com/autom8ter/ideabase/transport/http/httpError"
	"github.com/gorilla/mux"
	"github.com/samber/lo"
	"github.com/segmentio/ksuid"
)

// AllowedMimeTypes are the content types accepted by the upload endpoint
var AllowedMimeTypes = []string{
	"application/pdf",
	"application/vnd.openxmlformats-officedocument.presentationml.presentation",
	"application/vnd.ms-powerpoint",
	"image/png",
	"image/jpeg",
	"image/jpg",
	"image/gif",
	"application/msword",
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	"video/mp4",
	"video/quicktime",
	"video/webm",
}

// signedURLTTL is how long a signed download url stays valid
const signedURLTTL = 60 * time.Second

func (s *Server) maxUpload() int64 {
	if s.blob != nil && s.blob.Config().MaxFileSizeMB > 0 {
		return s.blob.Config().MaxFileSize()
	}
	return s.cfg.MaxUploadMB * 1024 * 1024
}

func (s *Server) uploadHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		max := s.maxUpload()
		r.Body = http.MaxBytesReader(w, r.Body, max+(1<<20))
		if err := r.ParseMultipartForm(32 << 20); err != nil {
			httpError.Error(w, errors.Wrap(err, errors.Validation, "failed to parse upload"))
			return
		}
		file, header, err := r.FormFile("file")
		ideaID := r.FormValue("ideaId")
		if err != nil || ideaID == "" {
			httpError.Error(w, errors.New(errors.Validation, "missing file or ideaId"))
			return
		}
		defer file.Close()
		if header.Size > max {
			httpError.Error(w, errors.New(errors.Validation, "file size exceeds %dMB limit", max/(1024*1024)))
			return
		}
		contentType := header.Header.Get("Content-Type")
		if !lo.Contains(AllowedMimeTypes, contentType) {
			httpError.Error(w, errors.New(errors.Validation, "file type not allowed: %s", contentType))
			return
		}
		user := identity(r)
		if _, err := s.ideas.GetOwned(r.Context(), user.ID, ideaID); err != nil {
			// a missing idea is reported like someone else's idea. Store failures keep their code.
			code := errors.Code(0)
			if errors.CodeOf(err) == errors.NotFound {
				code = errors.Forbidden
			}
			httpError.Error(w, errors.Wrap(err, code, "unauthorized to upload to this idea"))
			return
		}
		if s.blob == nil {
			httpError.Error(w, errors.New(errors.Unavailable, "blob storage is not configured"))
			return
		}
		key := fmt.Sprintf("%s/%s-%s", ideaID, ksuid.New().String(), filepath.Base(header.Filename))
		url, err := s.blob.Put(r.Context(), key, file, header.Size, contentType)
		if err != nil {
			s.logger.Error(r.Context(), "failed to upload file", err, map[string]any{"idea.id": ideaID, "key": key})
			httpError.Error(w, err)
			return
		}
		record, err := s.ideas.AttachFile(r.Context(), user.ID, ideaID, ideas.FileMeta{
			Name: header.Filename,
			Type: contentType,
			Size: header.Size,
			URL:  url,
		})
		if err != nil {
			httpError.Error(w, err)
			return
		}
		httpError.Respond(w, http.StatusOK, map[string]any{"success": true, "file": record})
	}
}

func (s *Server) deleteFileHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		removed, err := s.ideas.RemoveFile(r.Context(), identity(r).ID, mux.Vars(r)["id"])
		if err != nil {
			httpError.Error(w, err)
			return
		}
		if s.blob != nil && s.blob.Enabled() {
			if key, ok := s.blob.KeyFromURL(removed.GetString("file_url")); ok {
				if err := s.blob.Delete(r.Context(), key); err != nil {
					s.logger.Warn(r.Context(), "failed to delete stored file", map[string]any{"key": key, "error": err.Error()})
				}
			}
		}
		httpError.Respond(w, http.StatusOK, map[string]any{"ok": true})
	}
}

// signedURLHandler signs urls pointing into our bucket. Other urls are returned as is.
func (s *Server) signedURLHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			FileURL string `json:"fileUrl"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.FileURL == "" {
			httpError.Error(w, errors.New(errors.Validation, "missing fileUrl"))
			return
		}
		if s.blob == nil || !s.blob.Enabled() {
			httpError.Respond(w, http.StatusOK, map[string]any{"url": req.FileURL})
			return
		}
		key, ok := s.blob.KeyFromURL(req.FileURL)
		if !ok {
			httpError.Respond(w, http.StatusOK, map[string]any{"url": req.FileURL})
			return
		}
		signed, err := s.blob.SignedURL(r.Context(), key, signedURLTTL)
		if err != nil {
			httpError.Error(w, err)
			return
		}
		httpError.Respond(w, http.StatusOK, map[string]any{"url": signed})
	}
}
