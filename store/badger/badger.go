// Package badger registers the "badger" store provider: an embedded document store persisting bson encoded
// documents in badger. An empty storage_path runs the store in memory.
package badger

import (
	"context"
	"fmt"

	"github.com/autom8ter/ideabase/errors"
	"github.com/autom8ter/ideabase/store"
	"github.com/autom8ter/ideabase/util"
	"github.com/dgraph-io/badger/v3"
	"go.mongodb.org/mongo-driver/bson"
)

func init() {
	store.Register("badger", func(ctx context.Context, params map[string]any) (store.Store, error) {
		var cfg Config
		if err := util.Decode(params, &cfg); err != nil {
			return nil, errors.Wrap(err, errors.Validation, "invalid badger params")
		}
		return Open(cfg)
	})
}

// Config configures the embedded store
type Config struct {
	// StoragePath is the directory badger persists to. Empty runs the store in memory.
	StoragePath string `json:"storage_path"`
}

// Store is an embedded store.Store
type Store struct {
	db *badger.DB
}

// Open opens an embedded document store
func Open(cfg Config) (*Store, error) {
	opts := badger.DefaultOptions(cfg.StoragePath)
	if cfg.StoragePath == "" {
		opts.InMemory = true
		opts.Dir = ""
		opts.ValueDir = ""
	}
	opts = opts.WithLoggingLevel(badger.ERROR)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, errors.Wrap(err, errors.Internal, "failed to open badger")
	}
	return &Store{db: db}, nil
}

func collectionPrefix(collection string) []byte {
	return []byte(fmt.Sprintf("%s/", collection))
}

func documentKey(collection string, id any) []byte {
	return []byte(fmt.Sprintf("%s/%s", collection, store.FormatID(id)))
}

type entry struct {
	key []byte
	doc store.Document
}

// scan iterates the collection in key order, calling fn for each document matching the filter until fn
// returns false
func scan(txn *badger.Txn, collection string, filter store.Filter, fn func(e entry) bool) error {
	prefix := collectionPrefix(collection)
	iter := txn.NewIterator(badger.DefaultIteratorOptions)
	defer iter.Close()
	for iter.Seek(prefix); iter.ValidForPrefix(prefix); iter.Next() {
		item := iter.Item()
		var doc bson.M
		if err := item.Value(func(val []byte) error {
			return bson.Unmarshal(val, &doc)
		}); err != nil {
			return errors.Wrap(err, errors.Internal, "failed to decode document %s", string(item.Key()))
		}
		if !store.Match(store.Document(doc), filter) {
			continue
		}
		if !fn(entry{key: item.KeyCopy(nil), doc: store.Document(doc)}) {
			return nil
		}
	}
	return nil
}

func (s *Store) Find(ctx context.Context, collection string, filter store.Filter, opts store.FindOptions) ([]store.Document, error) {
	var docs []store.Document
	if err := s.db.View(func(txn *badger.Txn) error {
		return scan(txn, collection, filter, func(e entry) bool {
			docs = append(docs, e.doc)
			// without a sort the scan order is final so the limit can stop iteration early
			return opts.Sort != nil || opts.Limit <= 0 || int64(len(docs)) < opts.Limit
		})
	}); err != nil {
		return nil, err
	}
	if opts.Sort != nil {
		store.SortDocuments(docs, *opts.Sort)
	}
	if opts.Limit > 0 && int64(len(docs)) > opts.Limit {
		docs = docs[:opts.Limit]
	}
	return docs, nil
}

func (s *Store) Count(ctx context.Context, collection string, filter store.Filter) (int64, error) {
	var count int64
	err := s.db.View(func(txn *badger.Txn) error {
		return scan(txn, collection, filter, func(e entry) bool {
			count++
			return true
		})
	})
	return count, err
}

func (s *Store) InsertOne(ctx context.Context, collection string, doc store.Document) (any, error) {
	toInsert := store.Document{}
	for k, v := range doc {
		toInsert[k] = v
	}
	id, ok := toInsert[store.IDField]
	if !ok || id == nil {
		id = store.NewID()
		toInsert[store.IDField] = id
	}
	bits, err := bson.Marshal(bson.M(toInsert))
	if err != nil {
		return nil, errors.Wrap(err, errors.Validation, "failed to encode document")
	}
	key := documentKey(collection, id)
	err = s.write(func(txn *badger.Txn) error {
		if _, err := txn.Get(key); err == nil {
			return errors.New(errors.Validation, "duplicate key error: %s %s", collection, store.FormatID(id))
		} else if err != badger.ErrKeyNotFound {
			return err
		}
		return txn.Set(key, bits)
	})
	if err != nil {
		return nil, err
	}
	return id, nil
}

func (s *Store) FindOne(ctx context.Context, collection string, filter store.Filter) (store.Document, error) {
	docs, err := s.Find(ctx, collection, filter, store.FindOptions{Limit: 1})
	if err != nil || len(docs) == 0 {
		return nil, err
	}
	return docs[0], nil
}

// conflictAttempts bounds how often a write transaction is replayed after a badger.ErrConflict
const conflictAttempts = 5

// candidates returns the keys of the documents matching the filter, read outside of any write transaction so
// writes only conflict on the documents they touch
func (s *Store) candidates(collection string, filter store.Filter) ([][]byte, error) {
	var keys [][]byte
	err := s.db.View(func(txn *badger.Txn) error {
		return scan(txn, collection, filter, func(e entry) bool {
			keys = append(keys, e.key)
			return true
		})
	})
	return keys, err
}

// get reads the document at key, returning nil when it is gone or no longer matches the filter
func get(txn *badger.Txn, key []byte, filter store.Filter) (store.Document, error) {
	item, err := txn.Get(key)
	if err == badger.ErrKeyNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var doc bson.M
	if err := item.Value(func(val []byte) error {
		return bson.Unmarshal(val, &doc)
	}); err != nil {
		return nil, errors.Wrap(err, errors.Internal, "failed to decode document %s", string(key))
	}
	if !store.Match(store.Document(doc), filter) {
		return nil, nil
	}
	return store.Document(doc), nil
}

// write runs fn in a read-write transaction, replaying it when it conflicts with a concurrent write
func (s *Store) write(fn func(txn *badger.Txn) error) error {
	var err error
	for i := 0; i < conflictAttempts; i++ {
		if err = s.db.Update(fn); !errors.Is(err, badger.ErrConflict) {
			return err
		}
	}
	return errors.Wrap(err, errors.Unavailable, "write conflict")
}

func (s *Store) UpdateOne(ctx context.Context, collection string, filter store.Filter, set store.Document) (store.Document, error) {
	if len(set) == 0 {
		return nil, errors.New(errors.Validation, "update document must not be empty")
	}
	var updated store.Document
	err := s.write(func(txn *badger.Txn) error {
		updated = nil
		// a candidate may have changed since it was read, so the match is checked again inside the transaction
		keys, err := s.candidates(collection, filter)
		if err != nil {
			return err
		}
		for _, key := range keys {
			doc, err := get(txn, key, filter)
			if err != nil {
				return err
			}
			if doc == nil {
				continue
			}
			for k, v := range set {
				if k == store.IDField {
					continue
				}
				doc[k] = v
			}
			bits, err := bson.Marshal(bson.M(doc))
			if err != nil {
				return errors.Wrap(err, errors.Validation, "failed to encode document")
			}
			if err := txn.Set(key, bits); err != nil {
				return err
			}
			// re-decode so the returned document carries the same value types as a read
			var decoded bson.M
			if err := bson.Unmarshal(bits, &decoded); err != nil {
				return err
			}
			updated = store.Document(decoded)
			return nil
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (s *Store) DeleteMany(ctx context.Context, collection string, filter store.Filter) (int64, error) {
	var deleted int64
	err := s.write(func(txn *badger.Txn) error {
		deleted = 0
		keys, err := s.candidates(collection, filter)
		if err != nil {
			return err
		}
		for _, key := range keys {
			doc, err := get(txn, key, filter)
			if err != nil {
				return err
			}
			if doc == nil {
				continue
			}
			if err := txn.Delete(key); err != nil {
				return err
			}
			deleted++
		}
		return nil
	})
	return deleted, err
}

// Reset is a no-op: the embedded store has no connection to re-establish
func (s *Store) Reset(ctx context.Context) error {
	return nil
}

func (s *Store) Close(ctx context.Context) error {
	return s.db.Close()
}
