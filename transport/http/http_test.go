package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"testing"
	"time"

	"github.com/autom8ter/ideabase"
	"github.com/autom8ter/ideabase/auth"
	"github.com/autom8ter/ideabase/blob"
	"github.com/autom8ter/ideabase/errors"
	"github.com/autom8ter/ideabase/store"
	"github.com/autom8ter/ideabase/testutil"
	"github.com/brianvoe/gofakeit/v6"
	"github.com/stretchr/testify/assert"
)

const testSecret = "testing-secret"

type harness struct {
	t       *testing.T
	server  *httptest.Server
	auth    *auth.Authenticator
	adapter *ideabase.Adapter
}

func testServer(t *testing.T, fn func(ctx context.Context, h *harness), opts ...Opt) {
	assert.NoError(t, testutil.TestAdapter(func(ctx context.Context, adapter *ideabase.Adapter) {
		a := auth.NewAuthenticator(auth.Config{Secret: testSecret})
		s, err := New(Config{Port: 8080}, adapter, append([]Opt{WithAuthenticator(a)}, opts...)...)
		assert.NoError(t, err)
		srv := httptest.NewServer(s.Handler())
		defer srv.Close()
		fn(ctx, &harness{t: t, server: srv, auth: a, adapter: adapter})
	}))
}

func (h *harness) token(identity auth.Identity) string {
	token, err := h.auth.Issue(identity, time.Hour)
	assert.NoError(h.t, err)
	return token
}

// do sends a json request (as identity, if set) and decodes the json response into out
func (h *harness) do(method, path string, identity *auth.Identity, body any, out any) int {
	var reader io.Reader
	if body != nil {
		switch body := body.(type) {
		case string:
			reader = bytes.NewBufferString(body)
		default:
			bits, err := json.Marshal(body)
			assert.NoError(h.t, err)
			reader = bytes.NewReader(bits)
		}
	}
	req, err := http.NewRequest(method, h.server.URL+path, reader)
	assert.NoError(h.t, err)
	if identity != nil {
		req.AddCookie(&http.Cookie{Name: h.auth.Cookie(), Value: h.token(*identity)})
	}
	resp, err := http.DefaultClient.Do(req)
	assert.NoError(h.t, err)
	defer resp.Body.Close()
	assert.NotEmpty(h.t, resp.Header.Get(RequestIDHeader))
	if out != nil {
		assert.NoError(h.t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func TestExecEndpoint(t *testing.T) {
	testServer(t, func(ctx context.Context, h *harness) {
		t.Run("health", func(t *testing.T) {
			assert.Equal(t, http.StatusOK, h.do(http.MethodGet, "/health", nil, nil, nil))
		})
		t.Run("malformed json", func(t *testing.T) {
			var out map[string]any
			assert.Equal(t, http.StatusBadRequest, h.do(http.MethodPost, "/api/db", nil, "{not json", &out))
			assert.NotEmpty(t, out["error"])
		})
		t.Run("missing collection", func(t *testing.T) {
			var out map[string]any
			assert.Equal(t, http.StatusBadRequest, h.do(http.MethodPost, "/api/db", nil, map[string]any{"state": map[string]any{}}, &out))
			assert.Equal(t, "missing collection", out["error"])
		})
		t.Run("unsupported action", func(t *testing.T) {
			assert.Equal(t, http.StatusBadRequest, h.do(http.MethodPost, "/api/db", nil, map[string]any{"collection": "ideas", "action": "upsert"}, nil))
		})
		t.Run("unknown collection", func(t *testing.T) {
			assert.Equal(t, http.StatusBadRequest, h.do(http.MethodPost, "/api/db", nil, map[string]any{"collection": "secrets"}, nil))
		})
		t.Run("insert then select", func(t *testing.T) {
			var inserted ideabase.Result
			status := h.do(http.MethodPost, "/api/db", nil, ideabase.ExecRequest{
				Collection: "ideas",
				Action:     ideabase.ActionInsert,
				State:      ideabase.Query{Action: ideabase.ActionInsert, Data: ideabase.Record{"title": "x", "status": "approved"}},
			}, &inserted)
			assert.Equal(t, http.StatusOK, status)
			assert.Nil(t, inserted.Error)
			created := inserted.Record()
			assert.NotEmpty(t, created.ID())
			assert.NotContains(t, created, "_id")

			var selected ideabase.Result
			status = h.do(http.MethodPost, "/api/db", nil, ideabase.ExecRequest{
				Collection: "ideas",
				State: ideabase.Query{
					Filters: []ideabase.Filter{{Type: ideabase.FilterEq, Field: "id", Value: created.ID()}},
					Single:  true,
				},
			}, &selected)
			assert.Equal(t, http.StatusOK, status)
			assert.Equal(t, "x", selected.Record().GetString("title"))
		})
		t.Run("execution failure", func(t *testing.T) {
			var out map[string]any
			status := h.do(http.MethodPost, "/api/db", nil, ideabase.ExecRequest{
				Collection: "ideas",
				Action:     ideabase.ActionUpdate,
				State:      ideabase.Query{Data: ideabase.Record{"id": "only-the-id"}},
			}, &out)
			assert.Equal(t, http.StatusBadRequest, status)
			assert.Contains(t, out, "data")
			assert.Nil(t, out["data"])
			assert.NotEmpty(t, out["error"])
		})
	})
}

func TestIdeasAPI(t *testing.T) {
	testServer(t, func(ctx context.Context, h *harness) {
		owner := &auth.Identity{ID: gofakeit.UUID(), Email: gofakeit.Email()}
		other := &auth.Identity{ID: gofakeit.UUID(), Email: gofakeit.Email()}
		var created struct {
			Data ideabase.Record `json:"data"`
		}
		t.Run("requires a session", func(t *testing.T) {
			assert.Equal(t, http.StatusUnauthorized, h.do(http.MethodGet, "/api/ideas", nil, nil, nil))
		})
		t.Run("create", func(t *testing.T) {
			status := h.do(http.MethodPost, "/api/ideas", owner, ideabase.Record{
				"title":             "Solar kiosks",
				"problem_statement": "No power",
				"solution":          "Sun",
				"category":          "Sustainability",
				"status":            "approved",
			}, &created)
			assert.Equal(t, http.StatusOK, status)
			assert.NotEmpty(t, created.Data.ID())
			assert.Equal(t, http.StatusBadRequest, h.do(http.MethodPost, "/api/ideas", owner, ideabase.Record{"title": "x"}, nil))
		})
		t.Run("list and get", func(t *testing.T) {
			var list struct {
				Data []ideabase.Record `json:"data"`
			}
			assert.Equal(t, http.StatusOK, h.do(http.MethodGet, "/api/ideas", owner, nil, &list))
			assert.Len(t, list.Data, 1)

			var detail struct {
				Data struct {
					Idea  ideabase.Record   `json:"idea"`
					Files []ideabase.Record `json:"files"`
				} `json:"data"`
			}
			assert.Equal(t, http.StatusOK, h.do(http.MethodGet, "/api/ideas/"+created.Data.ID(), owner, nil, &detail))
			assert.Equal(t, created.Data.ID(), detail.Data.Idea.ID())
			assert.Equal(t, http.StatusForbidden, h.do(http.MethodGet, "/api/ideas/"+created.Data.ID(), other, nil, nil))
			assert.Equal(t, http.StatusNotFound, h.do(http.MethodGet, "/api/ideas/missing", owner, nil, nil))
		})
		t.Run("browse is public", func(t *testing.T) {
			var list struct {
				Data []ideabase.Record `json:"data"`
			}
			assert.Equal(t, http.StatusOK, h.do(http.MethodGet, "/api/ideas/browse?category=Sustainability&limit=5", nil, nil, &list))
			assert.Len(t, list.Data, 1)
		})
		t.Run("update", func(t *testing.T) {
			var updated struct {
				Data ideabase.Record `json:"data"`
			}
			assert.Equal(t, http.StatusOK, h.do(http.MethodPut, "/api/ideas/"+created.Data.ID(), owner, ideabase.Record{"title": "Wind kiosks"}, &updated))
			assert.Equal(t, "Wind kiosks", updated.Data.GetString("title"))
			assert.Equal(t, http.StatusForbidden, h.do(http.MethodPut, "/api/ideas/"+created.Data.ID(), other, ideabase.Record{"title": "mine"}, nil))
		})
		t.Run("delete", func(t *testing.T) {
			assert.Equal(t, http.StatusForbidden, h.do(http.MethodDelete, "/api/ideas/"+created.Data.ID(), other, nil, nil))
			assert.Equal(t, http.StatusOK, h.do(http.MethodDelete, "/api/ideas/"+created.Data.ID(), owner, nil, nil))
			assert.Equal(t, http.StatusNotFound, h.do(http.MethodGet, "/api/ideas/"+created.Data.ID(), owner, nil, nil))
		})
	})
}

func TestAdminAPI(t *testing.T) {
	testServer(t, func(ctx context.Context, h *harness) {
		admin := &auth.Identity{ID: gofakeit.UUID(), Role: auth.RoleAdmin}
		user := &auth.Identity{ID: gofakeit.UUID(), Role: "user"}
		idea := testutil.NewIdea(user.ID)
		idea["status"] = "submitted"
		seeded, err := testutil.Seed(ctx, h.adapter, "ideas", idea)
		assert.NoError(t, err)
		id := seeded[0].ID()

		assert.Equal(t, http.StatusUnauthorized, h.do(http.MethodGet, "/api/admin/pending-ideas", nil, nil, nil))
		assert.Equal(t, http.StatusForbidden, h.do(http.MethodGet, "/api/admin/pending-ideas", user, nil, nil))

		var pending struct {
			Ideas []ideabase.Record `json:"ideas"`
		}
		assert.Equal(t, http.StatusOK, h.do(http.MethodGet, "/api/admin/pending-ideas", admin, nil, &pending))
		assert.Len(t, pending.Ideas, 1)
		assert.Equal(t, id, pending.Ideas[0].ID())

		assert.Equal(t, http.StatusOK, h.do(http.MethodPost, "/api/admin/ideas/feature", admin, map[string]any{"id": id, "is_featured": true}, nil))
		assert.Equal(t, http.StatusBadRequest, h.do(http.MethodPost, "/api/admin/ideas/feature", admin, map[string]any{"is_featured": true}, nil))
		result, err := h.adapter.From("ideas").Select("*").Eq("id", id).Single(ctx)
		assert.NoError(t, err)
		assert.True(t, result.Record().GetBool("is_featured"))

		var analytics map[string]any
		assert.Equal(t, http.StatusOK, h.do(http.MethodGet, "/api/admin/analytics", admin, nil, &analytics))
		assert.Contains(t, analytics, "ideasByCategory")
		assert.Contains(t, analytics, "recentIdeas")

		assert.Equal(t, http.StatusOK, h.do(http.MethodPost, "/api/admin/ideas/delete", admin, map[string]any{"id": id}, nil))
		result, err = h.adapter.From("ideas").Select("*").Eq("id", id).Single(ctx)
		assert.NoError(t, err)
		assert.Nil(t, result.Data)
	})
}

func upload(h *harness, identity *auth.Identity, ideaID, filename, contentType string, content []byte) int {
	body := &bytes.Buffer{}
	mw := multipart.NewWriter(body)
	if ideaID != "" {
		assert.NoError(h.t, mw.WriteField("ideaId", ideaID))
	}
	if filename != "" {
		hdr := textproto.MIMEHeader{}
		hdr.Set("Content-Disposition", `form-data; name="file"; filename="`+filename+`"`)
		hdr.Set("Content-Type", contentType)
		part, err := mw.CreatePart(hdr)
		assert.NoError(h.t, err)
		_, err = part.Write(content)
		assert.NoError(h.t, err)
	}
	assert.NoError(h.t, mw.Close())
	req, err := http.NewRequest(http.MethodPost, h.server.URL+"/api/upload", body)
	assert.NoError(h.t, err)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.AddCookie(&http.Cookie{Name: h.auth.Cookie(), Value: h.token(*identity)})
	resp, err := http.DefaultClient.Do(req)
	assert.NoError(h.t, err)
	resp.Body.Close()
	return resp.StatusCode
}

func TestFilesAPI(t *testing.T) {
	files, err := blob.New(blob.Config{Bucket: "idea-files"})
	assert.NoError(t, err)
	testServer(t, func(ctx context.Context, h *harness) {
		owner := &auth.Identity{ID: gofakeit.UUID()}
		seeded, err := testutil.Seed(ctx, h.adapter, "ideas", testutil.NewIdea(owner.ID))
		assert.NoError(t, err)
		ideaID := seeded[0].ID()

		t.Run("upload validation", func(t *testing.T) {
			assert.Equal(t, http.StatusBadRequest, upload(h, owner, "", "deck.pdf", "application/pdf", []byte("%PDF")))
			assert.Equal(t, http.StatusBadRequest, upload(h, owner, ideaID, "", "", nil))
			assert.Equal(t, http.StatusBadRequest, upload(h, owner, ideaID, "run.sh", "text/x-shellscript", []byte("#!")))
			assert.Equal(t, http.StatusForbidden, upload(h, &auth.Identity{ID: gofakeit.UUID()}, ideaID, "deck.pdf", "application/pdf", []byte("%PDF")))
			assert.Equal(t, http.StatusForbidden, upload(h, owner, store.NewID().Hex(), "deck.pdf", "application/pdf", []byte("%PDF")))
		})
		t.Run("upload without storage", func(t *testing.T) {
			assert.Equal(t, http.StatusServiceUnavailable, upload(h, owner, ideaID, "deck.pdf", "application/pdf", []byte("%PDF")))
		})
		t.Run("delete file", func(t *testing.T) {
			file, err := testutil.Seed(ctx, h.adapter, "idea_files", ideabase.Record{"idea_id": ideaID, "file_name": "a.png", "file_url": "https://cdn/a.png"})
			assert.NoError(t, err)
			assert.Equal(t, http.StatusForbidden, h.do(http.MethodDelete, "/api/idea-files/"+file[0].ID(), &auth.Identity{ID: gofakeit.UUID()}, nil, nil))
			assert.Equal(t, http.StatusOK, h.do(http.MethodDelete, "/api/idea-files/"+file[0].ID(), owner, nil, nil))
			assert.Equal(t, http.StatusNotFound, h.do(http.MethodDelete, "/api/idea-files/"+file[0].ID(), owner, nil, nil))
		})
		t.Run("signed url passthrough", func(t *testing.T) {
			var out map[string]string
			assert.Equal(t, http.StatusOK, h.do(http.MethodPost, "/api/files/signed", nil, map[string]any{"fileUrl": "https://elsewhere.com/a.png"}, &out))
			assert.Equal(t, "https://elsewhere.com/a.png", out["url"])
			assert.Equal(t, http.StatusBadRequest, h.do(http.MethodPost, "/api/files/signed", nil, map[string]any{}, nil))
		})
	}, WithBlobStore(files))
}

// failingStore fails every read
type failingStore struct {
	store.Store
}

func (f failingStore) Find(ctx context.Context, collection string, filter store.Filter, opts store.FindOptions) ([]store.Document, error) {
	return nil, errors.New(errors.Internal, "store offline")
}

func TestUploadStoreFailure(t *testing.T) {
	s, err := testutil.OpenStore()
	assert.NoError(t, err)
	adapter := ideabase.NewAdapter(failingStore{Store: s}, ideabase.WithCollections(ideabase.DefaultCollections...))
	defer adapter.Close(context.Background())
	a := auth.NewAuthenticator(auth.Config{Secret: testSecret})
	server, err := New(Config{Port: 8080}, adapter, WithAuthenticator(a))
	assert.NoError(t, err)
	srv := httptest.NewServer(server.Handler())
	defer srv.Close()
	h := &harness{t: t, server: srv, auth: a, adapter: adapter}
	status := upload(h, &auth.Identity{ID: gofakeit.UUID()}, store.NewID().Hex(), "deck.pdf", "application/pdf", []byte("%PDF"))
	assert.Equal(t, http.StatusInternalServerError, status)
}

func TestSignedURL(t *testing.T) {
	files, err := blob.New(blob.Config{
		Endpoint:  "localhost:9000",
		AccessKey: "key",
		SecretKey: "secret",
		Region:    "us-east-1",
		Bucket:    "idea-files",
	})
	assert.NoError(t, err)
	testServer(t, func(ctx context.Context, h *harness) {
		var out map[string]string
		assert.Equal(t, http.StatusOK, h.do(http.MethodPost, "/api/files/signed", nil, map[string]any{"fileUrl": files.PublicURL("idea/deck.pdf")}, &out))
		assert.Contains(t, out["url"], "X-Amz-Signature=")
	}, WithBlobStore(files))
}

func TestNewValidatesConfig(t *testing.T) {
	_, err := New(Config{}, nil)
	assert.Error(t, err)
}
