package ideabase

import (
	"context"
	"sort"
	"time"

	"github.com/autom8ter/ideabase/errors"
	"github.com/autom8ter/ideabase/store"
	"github.com/autom8ter/ideabase/util"
	"github.com/samber/lo"
	"github.com/spf13/cast"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// DefaultCollections are the collections the platform stores records in
var DefaultCollections = []string{"profiles", "ideas", "idea_files", "contact_requests", "events"}

// Adapter executes queries against a document store
type Adapter struct {
	store       store.Store
	logger      Logger
	retry       RetryPolicy
	collections map[string]struct{}
}

// AdapterOpt is an option for configuring an Adapter
type AdapterOpt func(a *Adapter)

// WithLogger sets the adapter's logger
func WithLogger(logger Logger) AdapterOpt {
	return func(a *Adapter) {
		a.logger = logger
	}
}

// WithRetryPolicy sets the adapter's retry policy
func WithRetryPolicy(policy RetryPolicy) AdapterOpt {
	return func(a *Adapter) {
		a.retry = policy
	}
}

// WithCollections restricts the adapter to the named collections. Queries against any other collection fail
// with a validation error. No collections allows every collection.
func WithCollections(collections ...string) AdapterOpt {
	return func(a *Adapter) {
		a.collections = map[string]struct{}{}
		for _, c := range collections {
			a.collections[c] = struct{}{}
		}
	}
}

// NewAdapter creates an Adapter executing against the store
func NewAdapter(s store.Store, opts ...AdapterOpt) *Adapter {
	a := &Adapter{
		store:  s,
		logger: NopLogger(),
		retry:  DefaultRetryPolicy,
	}
	for _, o := range opts {
		o(a)
	}
	if a.retry.Attempts < 1 {
		a.retry.Attempts = 1
	}
	return a
}

// From returns a query builder for the collection
func (a *Adapter) From(collection string) *QueryBuilder {
	return NewQueryBuilder(a, collection)
}

// Store returns the underlying document store
func (a *Adapter) Store() store.Store {
	return a.store
}

// HasCollection reports whether queries may target the collection
func (a *Adapter) HasCollection(collection string) bool {
	if collection == "" {
		return false
	}
	if len(a.collections) == 0 {
		return true
	}
	_, ok := a.collections[collection]
	return ok
}

// Collections returns the allowed collections (empty if every collection is allowed)
func (a *Adapter) Collections() []string {
	names := lo.Keys(a.collections)
	sort.Strings(names)
	return names
}

// Close closes the underlying store
func (a *Adapter) Close(ctx context.Context) error {
	return a.store.Close(ctx)
}

// Execute executes the query against the collection, retrying transient failures. A query matching nothing
// is not an error.
func (a *Adapter) Execute(ctx context.Context, collection string, query Query) (*Result, error) {
	start := time.Now()
	if query.Action == "" {
		query.Action = ActionSelect
	}
	tags := map[string]any{
		"collection": collection,
		"action":     query.Action,
	}
	if !a.HasCollection(collection) {
		return nil, errors.New(errors.Validation, "collection does not exist: %s", collection)
	}
	if err := query.Validate(); err != nil {
		return nil, err
	}
	filter := compileFilter(query.Filters)
	var fn func(ctx context.Context, attempt int) (*Result, error)
	switch query.Action {
	case ActionSelect:
		fn = func(ctx context.Context, _ int) (*Result, error) {
			return a.selectRecords(ctx, collection, filter, query)
		}
	case ActionInsert:
		// the identity is assigned up front so a retried insert can detect that an earlier attempt landed
		doc := insertDocument(query.Data)
		fn = func(ctx context.Context, attempt int) (*Result, error) {
			return a.insert(ctx, collection, doc, attempt)
		}
	case ActionUpdate:
		set := updateFields(query.Data)
		fn = func(ctx context.Context, _ int) (*Result, error) {
			return a.update(ctx, collection, filter, set)
		}
	case ActionDelete:
		fn = func(ctx context.Context, _ int) (*Result, error) {
			return a.delete(ctx, collection, filter)
		}
	}
	result, err := a.withRetry(ctx, tags, fn)
	tags["duration"] = float64(time.Since(start).Microseconds()) / float64(1000)
	if err != nil {
		a.logger.Error(ctx, "query execution failed", err, tags)
		return nil, err
	}
	a.logger.Debug(ctx, "query executed", tags)
	return result, nil
}

func (a *Adapter) selectRecords(ctx context.Context, collection string, filter store.Filter, query Query) (*Result, error) {
	opts := store.FindOptions{}
	if query.Limit > 0 {
		opts.Limit = int64(query.Limit)
	}
	if query.Single {
		opts.Limit = 1
	}
	if query.Order != nil && query.Order.Field != "" {
		opts.Sort = &store.Sort{Field: nativeField(query.Order.Field), Ascending: query.Order.Ascending}
	}
	docs, err := a.store.Find(ctx, collection, filter, opts)
	if err != nil {
		return nil, err
	}
	records := lo.Map(docs, func(doc store.Document, _ int) Record {
		return normalize(doc)
	})
	result := &Result{Data: records}
	if query.Single {
		result.Data = nil
		if len(records) > 0 {
			result.Data = records[0]
		}
	}
	if query.Count {
		count, err := a.store.Count(ctx, collection, filter)
		if err != nil {
			return nil, err
		}
		result.Count = &count
	}
	return result, nil
}

func (a *Adapter) insert(ctx context.Context, collection string, doc store.Document, attempt int) (*Result, error) {
	byID := store.Filter{store.IDField: doc[store.IDField]}
	if attempt > 1 {
		existing, err := a.store.FindOne(ctx, collection, byID)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			return &Result{Data: normalize(existing)}, nil
		}
	}
	id, err := a.store.InsertOne(ctx, collection, doc)
	if err != nil {
		return nil, err
	}
	created, err := a.store.FindOne(ctx, collection, store.Filter{store.IDField: id})
	if err != nil {
		return nil, err
	}
	return &Result{Data: normalizeOrNil(created)}, nil
}

func (a *Adapter) update(ctx context.Context, collection string, filter store.Filter, set store.Document) (*Result, error) {
	updated, err := a.store.UpdateOne(ctx, collection, filter, set)
	if err != nil {
		return nil, err
	}
	return &Result{Data: normalizeOrNil(updated)}, nil
}

func (a *Adapter) delete(ctx context.Context, collection string, filter store.Filter) (*Result, error) {
	deleted, err := a.store.DeleteMany(ctx, collection, filter)
	if err != nil {
		return nil, err
	}
	return &Result{Data: DeleteResult{Acknowledged: true, DeletedCount: deleted}}, nil
}

// compileFilter translates filters into a native store filter. Equality filters are applied first, then
// inclusion filters; within each kind the last filter on a field wins. Filters on the public id target the
// native identity field.
func compileFilter(filters []Filter) store.Filter {
	out := store.Filter{}
	for _, f := range filters {
		if f.Type == FilterEq {
			out[nativeField(f.Field)] = nativeValue(f.Field, f.Value)
		}
	}
	for _, f := range filters {
		if f.Type == FilterIn {
			values := lo.Map(util.ToSlice(f.Value), func(v any, _ int) any {
				return nativeValue(f.Field, v)
			})
			out[nativeField(f.Field)] = store.In(values)
		}
	}
	return out
}

func nativeField(field string) string {
	if field == IDField {
		return store.IDField
	}
	return field
}

func nativeValue(field string, value any) any {
	if field != IDField && field != store.IDField {
		return value
	}
	return nativeID(value)
}

// nativeID converts a public id into the native identity. An id that does not convert is passed through as
// is: it cannot equal any native identity, so it matches nothing rather than failing the query.
func nativeID(value any) any {
	switch value := value.(type) {
	case primitive.ObjectID:
		return value
	case nil:
		return nil
	}
	id, err := store.ParseID(cast.ToString(value))
	if err != nil {
		return value
	}
	return id
}

// insertDocument converts an insert payload into a store document carrying a native identity. A public id in
// the payload is kept as the identity when it converts.
func insertDocument(data Record) store.Document {
	doc := store.Document{}
	for k, v := range data {
		if k == IDField || k == store.IDField {
			continue
		}
		doc[k] = v
	}
	doc[store.IDField] = store.NewID()
	for _, k := range []string{store.IDField, IDField} {
		if raw, ok := data[k]; ok {
			if id, ok := nativeID(raw).(primitive.ObjectID); ok {
				doc[store.IDField] = id
			}
		}
	}
	return doc
}

// updateFields returns the fields of an update payload that may be set. Identity fields are immutable.
func updateFields(data Record) store.Document {
	set := store.Document{}
	for k, v := range data {
		if k == IDField || k == store.IDField {
			continue
		}
		set[k] = v
	}
	return set
}

// normalize converts a store document into a record, exposing the native identity as the public string id
func normalize(doc store.Document) Record {
	rec := Record{}
	for k, v := range doc {
		if k == store.IDField {
			continue
		}
		rec[k] = store.Plain(v)
	}
	if id, ok := doc[store.IDField]; ok {
		rec[IDField] = store.FormatID(id)
	}
	return rec
}

func normalizeOrNil(doc store.Document) any {
	if doc == nil {
		return nil
	}
	return normalize(doc)
}
