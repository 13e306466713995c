// Package mongo registers the "mongodb" store provider backed by the official mongodb driver. The connection
// is established lazily on first use and shared by every caller until Reset or Close.
package mongo

import (
	"context"
	"sync"
	"time"

	"github.com/autom8ter/ideabase/errors"
	"github.com/autom8ter/ideabase/store"
	"github.com/autom8ter/ideabase/util"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"golang.org/x/sync/singleflight"
)

const (
	// DefaultTimeout bounds connection establishment and server selection
	DefaultTimeout = 10 * time.Second
	// DefaultMaxPoolSize is the default connection pool size
	DefaultMaxPoolSize uint64 = 20
	// DefaultDatabase is used when no database name is configured
	DefaultDatabase = "default"
)

func init() {
	store.Register("mongodb", func(ctx context.Context, params map[string]any) (store.Store, error) {
		var cfg Config
		if err := util.Decode(params, &cfg); err != nil {
			return nil, errors.Wrap(err, errors.Validation, "invalid mongodb params")
		}
		return New(cfg)
	})
}

// Config configures the mongodb connection
type Config struct {
	URI         string        `json:"uri" validate:"required"`
	Database    string        `json:"database"`
	MaxPoolSize uint64        `json:"max_pool_size"`
	Timeout     time.Duration `json:"timeout"`
}

// Store is a store.Store backed by a mongodb database
type Store struct {
	cfg    Config
	mu     sync.RWMutex
	client *mongo.Client
	group  singleflight.Group
}

// New creates a Store. No connection is made until the first operation.
func New(cfg Config) (*Store, error) {
	if err := util.ValidateStruct(cfg); err != nil {
		return nil, err
	}
	if cfg.Database == "" {
		cfg.Database = DefaultDatabase
	}
	if cfg.MaxPoolSize == 0 {
		cfg.MaxPoolSize = DefaultMaxPoolSize
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	return &Store{cfg: cfg}, nil
}

func (s *Store) connect() (*mongo.Client, error) {
	s.mu.RLock()
	client := s.client
	s.mu.RUnlock()
	if client != nil {
		return client, nil
	}
	// concurrent first callers share one connect attempt
	v, err, _ := s.group.Do("connect", func() (any, error) {
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.client != nil {
			return s.client, nil
		}
		ctx, cancel := context.WithTimeout(context.Background(), s.cfg.Timeout)
		defer cancel()
		opts := options.Client().
			ApplyURI(s.cfg.URI).
			SetMaxPoolSize(s.cfg.MaxPoolSize).
			SetConnectTimeout(s.cfg.Timeout).
			SetServerSelectionTimeout(s.cfg.Timeout)
		client, err := mongo.Connect(ctx, opts)
		if err != nil {
			return nil, errors.Wrap(err, errors.Unavailable, "failed to connect to mongodb")
		}
		s.client = client
		return client, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*mongo.Client), nil
}

func (s *Store) collection(name string) (*mongo.Collection, error) {
	client, err := s.connect()
	if err != nil {
		return nil, err
	}
	return client.Database(s.cfg.Database).Collection(name), nil
}

func toDocuments(docs []bson.M) []store.Document {
	out := make([]store.Document, len(docs))
	for i, doc := range docs {
		out[i] = store.Document(doc)
	}
	return out
}

func (s *Store) Find(ctx context.Context, collection string, filter store.Filter, opts store.FindOptions) ([]store.Document, error) {
	coll, err := s.collection(collection)
	if err != nil {
		return nil, err
	}
	findOpts := options.Find()
	if opts.Sort != nil {
		direction := -1
		if opts.Sort.Ascending {
			direction = 1
		}
		findOpts.SetSort(bson.D{{Key: opts.Sort.Field, Value: direction}})
	}
	if opts.Limit > 0 {
		findOpts.SetLimit(opts.Limit)
	}
	cursor, err := coll.Find(ctx, bson.M(filter), findOpts)
	if err != nil {
		return nil, err
	}
	var docs []bson.M
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, err
	}
	return toDocuments(docs), nil
}

func (s *Store) Count(ctx context.Context, collection string, filter store.Filter) (int64, error) {
	coll, err := s.collection(collection)
	if err != nil {
		return 0, err
	}
	return coll.CountDocuments(ctx, bson.M(filter))
}

func (s *Store) InsertOne(ctx context.Context, collection string, doc store.Document) (any, error) {
	coll, err := s.collection(collection)
	if err != nil {
		return nil, err
	}
	result, err := coll.InsertOne(ctx, bson.M(doc))
	if err != nil {
		return nil, err
	}
	return result.InsertedID, nil
}

func (s *Store) FindOne(ctx context.Context, collection string, filter store.Filter) (store.Document, error) {
	coll, err := s.collection(collection)
	if err != nil {
		return nil, err
	}
	var doc bson.M
	if err := coll.FindOne(ctx, bson.M(filter)).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, err
	}
	return store.Document(doc), nil
}

func (s *Store) UpdateOne(ctx context.Context, collection string, filter store.Filter, set store.Document) (store.Document, error) {
	coll, err := s.collection(collection)
	if err != nil {
		return nil, err
	}
	var doc bson.M
	err = coll.FindOneAndUpdate(
		ctx,
		bson.M(filter),
		bson.M{"$set": bson.M(set)},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, err
	}
	return store.Document(doc), nil
}

func (s *Store) DeleteMany(ctx context.Context, collection string, filter store.Filter) (int64, error) {
	coll, err := s.collection(collection)
	if err != nil {
		return 0, err
	}
	result, err := coll.DeleteMany(ctx, bson.M(filter))
	if err != nil {
		return 0, err
	}
	return result.DeletedCount, nil
}

// Reset disconnects the current client (if any). The next operation reconnects.
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	client := s.client
	s.client = nil
	s.mu.Unlock()
	if client == nil {
		return nil
	}
	return client.Disconnect(ctx)
}

func (s *Store) Close(ctx context.Context) error {
	return s.Reset(ctx)
}
