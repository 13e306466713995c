package testutil

import (
	"context"
	"time"

	"github.com/autom8ter/ideabase"
	"github.com/autom8ter/ideabase/store"
	"github.com/autom8ter/ideabase/store/badger"
	"github.com/brianvoe/gofakeit/v6"
)

// Categories are the idea categories fixtures are drawn from
var Categories = []string{"Technology", "Healthcare", "Education", "Finance", "Sustainability"}

// NewIdea returns a fake approved idea owned by the user
func NewIdea(userID string) ideabase.Record {
	now := time.Now().UTC()
	return ideabase.Record{
		"user_id":           userID,
		"title":             gofakeit.Sentence(4),
		"problem_statement": gofakeit.Sentence(10),
		"solution":          gofakeit.Sentence(10),
		"category":          gofakeit.RandomString(Categories),
		"status":            "approved",
		"stage":             "Ideation",
		"tags":              []string{gofakeit.Word(), gofakeit.Word()},
		"is_featured":       false,
		"created_at":        now,
		"updated_at":        now,
	}
}

// NewProfile returns a fake user profile. A profile's id is its user's id.
func NewProfile() ideabase.Record {
	return ideabase.Record{
		"full_name": gofakeit.Name(),
		"email":     gofakeit.Email(),
		"role":      "user",
	}
}

// Seed inserts the records into the collection and returns them as stored
func Seed(ctx context.Context, db ideabase.Database, collection string, records ...ideabase.Record) ([]ideabase.Record, error) {
	var out []ideabase.Record
	for _, r := range records {
		result, err := db.From(collection).Insert(r).Exec(ctx)
		if err != nil {
			return nil, err
		}
		out = append(out, result.Record())
	}
	return out, nil
}

// OpenStore opens an in-memory embedded store
func OpenStore() (store.Store, error) {
	return badger.Open(badger.Config{})
}

// TestAdapter runs fn against an adapter backed by an in-memory embedded store
func TestAdapter(fn func(ctx context.Context, adapter *ideabase.Adapter), opts ...ideabase.AdapterOpt) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	s, err := OpenStore()
	if err != nil {
		return err
	}
	adapter := ideabase.NewAdapter(s, append([]ideabase.AdapterOpt{
		ideabase.WithCollections(ideabase.DefaultCollections...),
		ideabase.WithRetryPolicy(ideabase.RetryPolicy{Attempts: 2, Backoff: time.Millisecond}),
	}, opts...)...)
	defer adapter.Close(ctx)
	fn(ctx, adapter)
	return nil
}
