package ideabase

import (
	"github.com/autom8ter/ideabase/errors"
)

// Action is the operation a query performs
type Action string

const (
	ActionSelect Action = "select"
	ActionInsert Action = "insert"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)

// Valid reports whether the action is supported
func (a Action) Valid() bool {
	switch a {
	case ActionSelect, ActionInsert, ActionUpdate, ActionDelete:
		return true
	}
	return false
}

// FilterType is the kind of a filter
type FilterType string

const (
	// FilterEq matches on equality
	FilterEq FilterType = "eq"
	// FilterIn matches when the field equals any of a list of values
	FilterIn FilterType = "in"
)

// Filter is a field-level filter
type Filter struct {
	Type  FilterType `json:"type"`
	Field string     `json:"field"`
	Value any        `json:"value"`
}

// Order sorts results by a single field
type Order struct {
	Field     string `json:"field"`
	Ascending bool   `json:"ascending"`
}

// CountMode selects how a result count is computed
type CountMode string

// CountExact requests the exact number of documents matching the filters
const CountExact CountMode = "exact"

// SelectOptions are options for QueryBuilder.Select
type SelectOptions struct {
	Count CountMode
}

// OrderOptions are options for QueryBuilder.Order. Results are sorted descending unless Ascending is set.
type OrderOptions struct {
	Ascending bool
}

// Query is the accumulated state of a query. It is plain data so it can be sent over the wire as is.
type Query struct {
	// Action is the operation to perform (default: select)
	Action Action `json:"action"`
	// Select is the requested projection. It is accepted for compatibility and full documents are returned.
	Select string `json:"select,omitempty"`
	// Filters are applied equality filters first, then inclusion filters
	Filters []Filter `json:"filters"`
	// Order is the sort order (optional)
	Order *Order `json:"order,omitempty"`
	// Limit caps the number of results. Zero means no limit.
	Limit int `json:"limit,omitempty"`
	// Single requests exactly one record (or null) instead of a list
	Single bool `json:"single"`
	// Data is the payload of an insert or update
	Data Record `json:"data"`
	// Count requests an exact count of matching documents
	Count bool `json:"count,omitempty"`
}

// Validate validates the query and returns a validation error if one exists
func (q Query) Validate() error {
	action := q.Action
	if action == "" {
		action = ActionSelect
	}
	if !action.Valid() {
		return errors.New(errors.Validation, "unsupported action: %s", q.Action)
	}
	for _, f := range q.Filters {
		if f.Field == "" {
			return errors.New(errors.Validation, "empty required field: 'filters.field'")
		}
		if f.Type != FilterEq && f.Type != FilterIn {
			return errors.New(errors.Validation, "unsupported filter type: %s", f.Type)
		}
	}
	switch action {
	case ActionInsert:
		if q.Data == nil {
			return errors.New(errors.Validation, "empty required field: 'data'")
		}
	case ActionUpdate:
		if len(updateFields(q.Data)) == 0 {
			return errors.New(errors.Validation, "update requires at least one field")
		}
	}
	return nil
}

// ExecRequest is the body accepted by the execution endpoint
type ExecRequest struct {
	Collection string `json:"collection"`
	Action     Action `json:"action"`
	State      Query  `json:"state"`
}

// Resolve returns the query the request describes. The top level action takes precedence over the state's
// action, and select is the default.
func (r ExecRequest) Resolve() Query {
	q := r.State
	if r.Action != "" {
		q.Action = r.Action
	}
	if q.Action == "" {
		q.Action = ActionSelect
	}
	return q
}
