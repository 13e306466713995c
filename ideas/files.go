package ideas

import (
	"context"
	"strings"

	"github.com/autom8ter/ideabase"
	"github.com/autom8ter/ideabase/errors"
	"github.com/autom8ter/ideabase/util"
)

// FileMeta describes an uploaded file
type FileMeta struct {
	Name string `json:"file_name" validate:"required"`
	Type string `json:"file_type"`
	Size int64  `json:"file_size"`
	URL  string `json:"file_url" validate:"required"`
}

// AttachFile records an uploaded file against an idea the user owns
func (s *Service) AttachFile(ctx context.Context, userID, ideaID string, meta FileMeta) (ideabase.Record, error) {
	if strings.HasPrefix(meta.URL, "data:") {
		return nil, errors.New(errors.Validation, "refusing to store an inline data url for %s", meta.Name)
	}
	if err := util.ValidateStruct(meta); err != nil {
		return nil, err
	}
	idea, err := s.owned(ctx, userID, ideaID)
	if err != nil {
		return nil, err
	}
	result, err := exec(ctx, s.db.From(CollectionFiles).Insert(ideabase.Record{
		"idea_id":    idea.ID(),
		"file_name":  meta.Name,
		"file_type":  meta.Type,
		"file_size":  meta.Size,
		"file_url":   meta.URL,
		"created_at": s.now(),
	}), true)
	if err != nil {
		return nil, err
	}
	return result.Record(), nil
}

// RemoveFile deletes a file record whose idea the user owns and returns the removed record
func (s *Service) RemoveFile(ctx context.Context, userID, fileID string) (ideabase.Record, error) {
	if fileID == "" {
		return nil, errors.New(errors.Validation, "empty required field: 'id'")
	}
	result, err := exec(ctx, s.db.From(CollectionFiles).Select("*").Eq("id", fileID), true)
	if err != nil {
		return nil, err
	}
	if result.Data == nil {
		return nil, errors.New(errors.NotFound, "file not found: %s", fileID)
	}
	file := result.Record()
	if _, err := s.owned(ctx, userID, file.GetString("idea_id")); err != nil {
		return nil, err
	}
	if _, err := exec(ctx, s.db.From(CollectionFiles).Delete().Eq("id", file.ID()), false); err != nil {
		return nil, err
	}
	return file, nil
}
