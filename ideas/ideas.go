// Package ideas implements the idea lifecycle on top of an ideabase.Database. It runs unchanged against the
// in-process adapter or a remote server.
package ideas

import (
	"context"
	_ "embed"
	"strings"
	"time"

	"github.com/autom8ter/ideabase"
	"github.com/autom8ter/ideabase/errors"
	"github.com/xeipuuv/gojsonschema"
)

const (
	CollectionIdeas    = "ideas"
	CollectionFiles    = "idea_files"
	CollectionProfiles = "profiles"
)

const (
	StatusDraft     = "draft"
	StatusSubmitted = "submitted"
	StatusApproved  = "approved"
)

//go:embed idea.json
var ideaSchema string

// optionalFields default to null when absent from a new idea
var optionalFields = []string{
	"market_opportunity",
	"team_description",
	"category",
	"whatsapp_group_url",
	"mentor_assigned",
	"achievements",
	"call_to_action",
	"founder_program",
	"logo_url",
}

// editableFields may be changed by an idea's owner
var editableFields = append([]string{
	"title",
	"problem_statement",
	"solution",
	"tags",
	"status",
	"skills_needed",
	"stage",
}, optionalFields...)

// Service manages ideas and their files
type Service struct {
	db     ideabase.Database
	logger ideabase.Logger
	schema *gojsonschema.Schema
	now    func() time.Time
}

// Opt is an option for configuring a Service
type Opt func(s *Service)

// WithLogger sets the service's logger
func WithLogger(logger ideabase.Logger) Opt {
	return func(s *Service) {
		s.logger = logger
	}
}

// WithClock sets the function used to timestamp changes
func WithClock(now func() time.Time) Opt {
	return func(s *Service) {
		s.now = now
	}
}

// New creates a Service executing against db
func New(db ideabase.Database, opts ...Opt) (*Service, error) {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(ideaSchema))
	if err != nil {
		return nil, errors.Wrap(err, errors.Internal, "failed to load idea schema")
	}
	s := &Service{
		db:     db,
		logger: ideabase.NopLogger(),
		schema: schema,
		now: func() time.Time {
			return time.Now().UTC()
		},
	}
	for _, o := range opts {
		o(s)
	}
	return s, nil
}

// Detail is an idea along with its files
type Detail struct {
	Idea  ideabase.Record   `json:"idea"`
	Files []ideabase.Record `json:"files"`
}

// exec executes the query and surfaces a failed result as an error
func exec(ctx context.Context, q *ideabase.QueryBuilder, single bool) (*ideabase.Result, error) {
	var (
		result *ideabase.Result
		err    error
	)
	if single {
		result, err = q.Single(ctx)
	} else {
		result, err = q.Exec(ctx)
	}
	if err != nil {
		return nil, err
	}
	if err := result.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (s *Service) validate(payload ideabase.Record) error {
	result, err := s.schema.Validate(gojsonschema.NewGoLoader(map[string]any(payload)))
	if err != nil {
		return errors.Wrap(err, errors.Validation, "failed to validate idea")
	}
	if !result.Valid() {
		var errs []string
		for _, err := range result.Errors() {
			errs = append(errs, err.String())
		}
		return errors.New(errors.Validation, "%s", strings.Join(errs, ", "))
	}
	return nil
}

// Create validates and stores a new idea owned by the user
func (s *Service) Create(ctx context.Context, userID string, payload ideabase.Record) (ideabase.Record, error) {
	if userID == "" {
		return nil, errors.New(errors.Unauthorized, "not authenticated")
	}
	if err := s.validate(payload); err != nil {
		return nil, err
	}
	now := s.now()
	doc := ideabase.Record{
		"user_id":           userID,
		"title":             payload["title"],
		"problem_statement": payload["problem_statement"],
		"solution":          payload["solution"],
		"tags":              stringsOrEmpty(payload["tags"]),
		"skills_needed":     stringsOrEmpty(payload["skills_needed"]),
		"status":            orDefault(payload["status"], StatusDraft),
		"stage":             orDefault(payload["stage"], "Ideation"),
		"is_featured":       false,
		"created_at":        now,
		"updated_at":        now,
	}
	for _, f := range optionalFields {
		doc[f] = nil
		if v, ok := payload[f]; ok && v != "" {
			doc[f] = v
		}
	}
	result, err := exec(ctx, s.db.From(CollectionIdeas).Insert(doc), true)
	if err != nil {
		return nil, err
	}
	created := result.Record()
	s.logger.Info(ctx, "idea created", map[string]any{"idea.id": created.ID(), "user.id": userID})
	return created, nil
}

// ListByUser returns the user's ideas, newest first
func (s *Service) ListByUser(ctx context.Context, userID string) ([]ideabase.Record, error) {
	result, err := exec(ctx, s.db.From(CollectionIdeas).
		Select("*").
		Eq("user_id", userID).
		Order("created_at"), false)
	if err != nil {
		return nil, err
	}
	return records(result), nil
}

// Get returns the idea and its files
func (s *Service) Get(ctx context.Context, id string) (*Detail, error) {
	idea, err := s.idea(ctx, id)
	if err != nil {
		return nil, err
	}
	result, err := exec(ctx, s.db.From(CollectionFiles).Select("*").Eq("idea_id", idea.ID()), false)
	if err != nil {
		return nil, err
	}
	return &Detail{Idea: idea, Files: records(result)}, nil
}

// GetOwned returns the idea and its files if the user owns it
func (s *Service) GetOwned(ctx context.Context, userID, id string) (*Detail, error) {
	detail, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := checkOwner(detail.Idea, userID); err != nil {
		return nil, err
	}
	return detail, nil
}

// Update applies the editable fields present in the payload to an idea the user owns
func (s *Service) Update(ctx context.Context, userID, id string, payload ideabase.Record) (ideabase.Record, error) {
	idea, err := s.owned(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	update := ideabase.Record{"updated_at": s.now()}
	for _, f := range editableFields {
		if v, ok := payload[f]; ok {
			update[f] = v
		}
	}
	merged := idea.Clone()
	for k, v := range update {
		merged[k] = v
	}
	delete(merged, "updated_at")
	delete(merged, "created_at")
	if err := s.validate(merged); err != nil {
		return nil, err
	}
	result, err := exec(ctx, s.db.From(CollectionIdeas).Update(update).Eq("id", idea.ID()), true)
	if err != nil {
		return nil, err
	}
	if result.Data == nil {
		return nil, errors.New(errors.NotFound, "idea not found: %s", id)
	}
	return result.Record(), nil
}

// Remove deletes an idea the user owns along with its file records
func (s *Service) Remove(ctx context.Context, userID, id string) error {
	idea, err := s.owned(ctx, userID, id)
	if err != nil {
		return err
	}
	return s.remove(ctx, idea.ID())
}

func (s *Service) remove(ctx context.Context, id string) error {
	if _, err := exec(ctx, s.db.From(CollectionIdeas).Delete().Eq("id", id), false); err != nil {
		return err
	}
	if _, err := exec(ctx, s.db.From(CollectionFiles).Delete().Eq("idea_id", id), false); err != nil {
		return err
	}
	s.logger.Info(ctx, "idea removed", map[string]any{"idea.id": id})
	return nil
}

// BrowseOptions filter the public idea listing
type BrowseOptions struct {
	// Category restricts results to a single category (optional)
	Category string `json:"category"`
	// Limit caps the number of results (default: 50)
	Limit int `json:"limit"`
}

// Browse returns approved ideas, newest first
func (s *Service) Browse(ctx context.Context, opts BrowseOptions) ([]ideabase.Record, error) {
	if opts.Limit <= 0 {
		opts.Limit = 50
	}
	q := s.db.From(CollectionIdeas).Select("*").Eq("status", StatusApproved)
	if opts.Category != "" {
		q = q.Eq("category", opts.Category)
	}
	result, err := exec(ctx, q.Order("created_at").Limit(opts.Limit), false)
	if err != nil {
		return nil, err
	}
	return records(result), nil
}

func (s *Service) idea(ctx context.Context, id string) (ideabase.Record, error) {
	if id == "" {
		return nil, errors.New(errors.Validation, "empty required field: 'id'")
	}
	result, err := exec(ctx, s.db.From(CollectionIdeas).Select("*").Eq("id", id), true)
	if err != nil {
		return nil, err
	}
	if result.Data == nil {
		return nil, errors.New(errors.NotFound, "idea not found: %s", id)
	}
	return result.Record(), nil
}

func (s *Service) owned(ctx context.Context, userID, id string) (ideabase.Record, error) {
	idea, err := s.idea(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := checkOwner(idea, userID); err != nil {
		return nil, err
	}
	return idea, nil
}

func checkOwner(idea ideabase.Record, userID string) error {
	if userID == "" || idea.GetString("user_id") != userID {
		return errors.New(errors.Forbidden, "idea %s is not owned by the current user", idea.ID())
	}
	return nil
}

func records(result *ideabase.Result) []ideabase.Record {
	recs := result.Records()
	if recs == nil {
		return []ideabase.Record{}
	}
	return recs
}

func stringsOrEmpty(value any) any {
	if value == nil {
		return []string{}
	}
	return value
}

func orDefault(value any, def string) any {
	if s, ok := value.(string); ok && s != "" {
		return s
	}
	return def
}
