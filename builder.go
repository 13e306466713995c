package ideabase

import (
	"context"
	"sync/atomic"

	"github.com/autom8ter/ideabase/errors"
)

// Executor executes a query against a collection
type Executor interface {
	Execute(ctx context.Context, collection string, query Query) (*Result, error)
}

// Database hands out query builders for collections. Both the Adapter and the remote client implement it so
// calling code is agnostic to where queries execute.
type Database interface {
	From(collection string) *QueryBuilder
}

// QueryBuilder is a utility for creating queries via chainable methods. Chaining never fails: errors surface
// when the query is executed with Exec or Single. A QueryBuilder executes at most once.
type QueryBuilder struct {
	executor   Executor
	collection string
	query      Query
	consumed   atomic.Bool
}

// NewQueryBuilder creates a new QueryBuilder for the collection that executes with the given executor
func NewQueryBuilder(executor Executor, collection string) *QueryBuilder {
	return &QueryBuilder{
		executor:   executor,
		collection: collection,
		query:      Query{Action: ActionSelect},
	}
}

// Collection returns the target collection
func (q *QueryBuilder) Collection() string {
	return q.collection
}

// Query returns the built query
func (q *QueryBuilder) Query() Query {
	return q.query
}

// Select marks the projection. Full documents are always returned. A Count of CountExact requests an exact
// count of matching documents alongside the results.
func (q *QueryBuilder) Select(fields string, opts ...SelectOptions) *QueryBuilder {
	q.query.Select = fields
	for _, o := range opts {
		if o.Count == CountExact {
			q.query.Count = true
		}
	}
	return q
}

// Eq adds an equality filter. Setting the same field twice keeps the last value.
func (q *QueryBuilder) Eq(field string, value any) *QueryBuilder {
	q.query.Filters = append(q.query.Filters, Filter{Type: FilterEq, Field: field, Value: value})
	return q
}

// In adds a filter matching documents whose field equals any of the values
func (q *QueryBuilder) In(field string, values ...any) *QueryBuilder {
	if values == nil {
		values = []any{}
	}
	q.query.Filters = append(q.query.Filters, Filter{Type: FilterIn, Field: field, Value: values})
	return q
}

// Order sorts results by the field, descending unless OrderOptions.Ascending is set
func (q *QueryBuilder) Order(field string, opts ...OrderOptions) *QueryBuilder {
	order := &Order{Field: field}
	for _, o := range opts {
		order.Ascending = o.Ascending
	}
	q.query.Order = order
	return q
}

// Limit caps the number of results
func (q *QueryBuilder) Limit(limit int) *QueryBuilder {
	q.query.Limit = limit
	return q
}

// Insert turns the query into an insert of the document
func (q *QueryBuilder) Insert(doc Record) *QueryBuilder {
	q.query.Action = ActionInsert
	q.query.Data = doc
	return q
}

// Update turns the query into a partial update of the first document matching the filters
func (q *QueryBuilder) Update(doc Record) *QueryBuilder {
	q.query.Action = ActionUpdate
	q.query.Data = doc
	return q
}

// Delete turns the query into a delete of every document matching the filters
func (q *QueryBuilder) Delete() *QueryBuilder {
	q.query.Action = ActionDelete
	return q
}

// Exec executes the query
func (q *QueryBuilder) Exec(ctx context.Context) (*Result, error) {
	if !q.consumed.CompareAndSwap(false, true) {
		return nil, errors.New(errors.Validation, "query against %s has already been executed", q.collection)
	}
	return q.executor.Execute(ctx, q.collection, q.query)
}

// Single executes the query and returns exactly one record as the result's data, or nil data if nothing
// matched. Not found is not an error.
func (q *QueryBuilder) Single(ctx context.Context) (*Result, error) {
	q.query.Single = true
	result, err := q.Exec(ctx)
	if err != nil || result == nil {
		return result, err
	}
	result.Data = first(result.Data)
	if rec, ok := ToRecord(result.Data); ok {
		result.Data = rec
	}
	return result, nil
}
