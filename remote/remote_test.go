package remote_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/autom8ter/ideabase"
	"github.com/autom8ter/ideabase/remote"
	"github.com/autom8ter/ideabase/testutil"
	transport "github.com/autom8ter/ideabase/transport/http"
	"github.com/brianvoe/gofakeit/v6"
	"github.com/stretchr/testify/assert"
)

// testClient runs fn with a client pointed at a server backed by an in-memory adapter. calls counts the
// requests the server received.
func testClient(t *testing.T, fn func(ctx context.Context, client *remote.Client, adapter *ideabase.Adapter, calls *atomic.Int64)) {
	assert.NoError(t, testutil.TestAdapter(func(ctx context.Context, adapter *ideabase.Adapter) {
		s, err := transport.New(transport.Config{Port: 8080}, adapter)
		assert.NoError(t, err)
		calls := &atomic.Int64{}
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			s.Handler().ServeHTTP(w, r)
		}))
		defer srv.Close()
		fn(ctx, remote.New(srv.URL), adapter, calls)
	}))
}

func TestClient(t *testing.T) {
	testClient(t, func(ctx context.Context, client *remote.Client, adapter *ideabase.Adapter, calls *atomic.Int64) {
		userID := gofakeit.UUID()
		var fixtures []ideabase.Record
		for i := 0; i < 8; i++ {
			idea := testutil.NewIdea(userID)
			if i%3 == 0 {
				idea["status"] = "draft"
			}
			fixtures = append(fixtures, idea)
		}
		seeded, err := testutil.Seed(ctx, adapter, "ideas", fixtures...)
		assert.NoError(t, err)

		t.Run("chained query is a single request", func(t *testing.T) {
			calls.Store(0)
			result, err := client.From("ideas").
				Select("*").
				Eq("status", "approved").
				Order("created_at").
				Limit(5).
				Exec(ctx)
			assert.NoError(t, err)
			assert.Nil(t, result.Error)
			assert.EqualValues(t, 1, calls.Load())
			records := result.Records()
			assert.NotEmpty(t, records)
			assert.LessOrEqual(t, len(records), 5)
			for _, r := range records {
				assert.Equal(t, "approved", r.GetString("status"))
				assert.NotEmpty(t, r.ID())
				assert.NotContains(t, r, "_id")
			}
		})
		t.Run("single", func(t *testing.T) {
			result, err := client.From("ideas").Select("*").Eq("id", seeded[1].ID()).Single(ctx)
			assert.NoError(t, err)
			assert.Nil(t, result.Error)
			assert.Equal(t, seeded[1].ID(), result.Record().ID())
			assert.IsType(t, ideabase.Record{}, result.Data)

			result, err = client.From("ideas").Select("*").Eq("id", "not-an-id").Single(ctx)
			assert.NoError(t, err)
			assert.Nil(t, result.Error)
			assert.Nil(t, result.Data)
		})
		t.Run("count", func(t *testing.T) {
			result, err := client.From("ideas").Select("*", ideabase.SelectOptions{Count: ideabase.CountExact}).Eq("status", "draft").Exec(ctx)
			assert.NoError(t, err)
			assert.EqualValues(t, 3, result.CountValue())
		})
		t.Run("insert update delete", func(t *testing.T) {
			result, err := client.From("ideas").Insert(testutil.NewIdea(userID)).Exec(ctx)
			assert.NoError(t, err)
			assert.Nil(t, result.Error)
			id := result.Record().ID()
			assert.NotEmpty(t, id)

			result, err = client.From("ideas").Update(ideabase.Record{"title": "renamed"}).Eq("id", id).Exec(ctx)
			assert.NoError(t, err)
			assert.Equal(t, "renamed", result.Record().GetString("title"))

			result, err = client.From("ideas").Delete().Eq("id", id).Exec(ctx)
			assert.NoError(t, err)
			assert.Equal(t, ideabase.DeleteResult{Acknowledged: true, DeletedCount: 1}, result.Data)
		})
		t.Run("server errors are reported on the result", func(t *testing.T) {
			result, err := client.From("secrets").Select("*").Exec(ctx)
			assert.NoError(t, err)
			assert.NotNil(t, result.Error)
			assert.Nil(t, result.Data)
			assert.Error(t, result.Err())
		})
	})
}

func TestClientFailures(t *testing.T) {
	ctx := context.Background()
	t.Run("network failure", func(t *testing.T) {
		srv := httptest.NewServer(http.NotFoundHandler())
		url := srv.URL
		srv.Close()
		result, err := remote.New(url).From("ideas").Select("*").Exec(ctx)
		assert.NoError(t, err)
		assert.NotNil(t, result.Error)
		assert.Nil(t, result.Data)
	})
	t.Run("non json response", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "bad gateway", http.StatusBadGateway)
		}))
		defer srv.Close()
		result, err := remote.New(srv.URL).From("ideas").Select("*").Exec(ctx)
		assert.NoError(t, err)
		assert.NotNil(t, result.Error)
	})
	t.Run("non 2xx status", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write([]byte(`{"data":null,"error":"store unavailable"}`))
		}))
		defer srv.Close()
		result, err := remote.New(srv.URL).From("ideas").Select("*").Exec(ctx)
		assert.NoError(t, err)
		assert.Equal(t, "store unavailable", *result.Error)
	})
	t.Run("headers", func(t *testing.T) {
		var got string
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got = r.Header.Get("Authorization")
			_, _ = w.Write([]byte(`{"data":[],"error":null}`))
		}))
		defer srv.Close()
		result, err := remote.New(srv.URL, remote.WithHeader("Authorization", "Bearer token")).From("ideas").Select("*").Exec(ctx)
		assert.NoError(t, err)
		assert.Nil(t, result.Error)
		assert.Empty(t, result.Records())
		assert.Equal(t, "Bearer token", got)
	})
}
