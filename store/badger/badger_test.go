package badger_test

import (
	"context"
	"testing"

	"github.com/autom8ter/ideabase/errors"
	"github.com/autom8ter/ideabase/store"
	"github.com/autom8ter/ideabase/store/badger"
	"github.com/brianvoe/gofakeit/v6"
	"github.com/stretchr/testify/assert"
	"golang.org/x/sync/errgroup"
)

func TestStore(t *testing.T) {
	ctx := context.Background()
	s, err := badger.Open(badger.Config{})
	assert.NoError(t, err)
	defer s.Close(ctx)

	var ids []any
	for i := 0; i < 10; i++ {
		id, err := s.InsertOne(ctx, "profiles", store.Document{
			"name":  gofakeit.Name(),
			"age":   i,
			"group": i % 2,
		})
		assert.NoError(t, err)
		ids = append(ids, id)
	}
	t.Run("find", func(t *testing.T) {
		docs, err := s.Find(ctx, "profiles", store.Filter{"group": 0}, store.FindOptions{})
		assert.NoError(t, err)
		assert.Len(t, docs, 5)
		docs, err = s.Find(ctx, "ideas", store.Filter{}, store.FindOptions{})
		assert.NoError(t, err)
		assert.Len(t, docs, 0)
	})
	t.Run("sort and limit", func(t *testing.T) {
		docs, err := s.Find(ctx, "profiles", store.Filter{}, store.FindOptions{
			Sort:  &store.Sort{Field: "age"},
			Limit: 3,
		})
		assert.NoError(t, err)
		assert.Len(t, docs, 3)
		assert.EqualValues(t, 9, docs[0]["age"])
		assert.EqualValues(t, 7, docs[2]["age"])
	})
	t.Run("count", func(t *testing.T) {
		count, err := s.Count(ctx, "profiles", store.Filter{"group": 1})
		assert.NoError(t, err)
		assert.Equal(t, int64(5), count)
	})
	t.Run("find one by id", func(t *testing.T) {
		doc, err := s.FindOne(ctx, "profiles", store.Filter{store.IDField: ids[3]})
		assert.NoError(t, err)
		assert.EqualValues(t, 3, doc["age"])
		doc, err = s.FindOne(ctx, "profiles", store.Filter{store.IDField: store.NewID()})
		assert.NoError(t, err)
		assert.Nil(t, doc)
	})
	t.Run("duplicate key", func(t *testing.T) {
		_, err := s.InsertOne(ctx, "profiles", store.Document{store.IDField: ids[0]})
		assert.Equal(t, errors.Validation, errors.CodeOf(err))
	})
	t.Run("update one", func(t *testing.T) {
		doc, err := s.UpdateOne(ctx, "profiles", store.Filter{store.IDField: ids[1]}, store.Document{"role": "admin", store.IDField: store.NewID()})
		assert.NoError(t, err)
		assert.Equal(t, "admin", doc["role"])
		assert.Equal(t, ids[1], doc[store.IDField])
		doc, err = s.UpdateOne(ctx, "profiles", store.Filter{"name": "nobody"}, store.Document{"role": "admin"})
		assert.NoError(t, err)
		assert.Nil(t, doc)
		_, err = s.UpdateOne(ctx, "profiles", store.Filter{}, store.Document{})
		assert.Error(t, err)
	})
	t.Run("delete many", func(t *testing.T) {
		deleted, err := s.DeleteMany(ctx, "profiles", store.Filter{"group": 0})
		assert.NoError(t, err)
		assert.Equal(t, int64(5), deleted)
		deleted, err = s.DeleteMany(ctx, "profiles", store.Filter{"group": 0})
		assert.NoError(t, err)
		assert.Equal(t, int64(0), deleted)
	})
	t.Run("collections are isolated", func(t *testing.T) {
		_, err := s.InsertOne(ctx, "profiles_archive", store.Document{"group": 1})
		assert.NoError(t, err)
		count, err := s.Count(ctx, "profiles", store.Filter{})
		assert.NoError(t, err)
		assert.Equal(t, int64(5), count)
	})
	assert.NoError(t, s.Reset(ctx))
}

func TestConcurrentWrites(t *testing.T) {
	ctx := context.Background()
	s, err := badger.Open(badger.Config{})
	assert.NoError(t, err)
	defer s.Close(ctx)

	var ids []any
	for i := 0; i < 20; i++ {
		id, err := s.InsertOne(ctx, "ideas", store.Document{"title": gofakeit.Sentence(3), "is_featured": false})
		assert.NoError(t, err)
		ids = append(ids, id)
	}
	t.Run("updates of distinct documents", func(t *testing.T) {
		egp, ctx := errgroup.WithContext(ctx)
		for _, id := range ids {
			id := id
			egp.Go(func() error {
				_, err := s.UpdateOne(ctx, "ideas", store.Filter{store.IDField: id}, store.Document{"is_featured": true})
				return err
			})
		}
		assert.NoError(t, egp.Wait())
		count, err := s.Count(ctx, "ideas", store.Filter{"is_featured": true})
		assert.NoError(t, err)
		assert.Equal(t, int64(len(ids)), count)
	})
	t.Run("deletes of distinct documents", func(t *testing.T) {
		egp, ctx := errgroup.WithContext(ctx)
		for _, id := range ids[:10] {
			id := id
			egp.Go(func() error {
				_, err := s.DeleteMany(ctx, "ideas", store.Filter{store.IDField: id})
				return err
			})
		}
		assert.NoError(t, egp.Wait())
		count, err := s.Count(ctx, "ideas", store.Filter{})
		assert.NoError(t, err)
		assert.Equal(t, int64(10), count)
	})
}
