package ideabase

import (
	"github.com/autom8ter/ideabase/errors"
	"github.com/autom8ter/ideabase/util"
)

// Result is the outcome of an executed query
type Result struct {
	// Data is a Record, a []Record, a DeleteResult, or nil
	Data any `json:"data"`
	// Error is nil on success
	Error *string `json:"error"`
	// Count is set when an exact count was requested
	Count *int64 `json:"count,omitempty"`
}

// DeleteResult is the data of a delete query
type DeleteResult struct {
	Acknowledged bool  `json:"acknowledged"`
	DeletedCount int64 `json:"deletedCount"`
}

// ErrorResult returns a failed result carrying the message
func ErrorResult(msg string) *Result {
	return &Result{Error: &msg}
}

// Err returns the result's error message as an error, or nil
func (r *Result) Err() error {
	if r == nil || r.Error == nil {
		return nil
	}
	return errors.New(errors.Internal, "%s", *r.Error)
}

// Record returns the result's data as a single record. A list yields its first element.
func (r *Result) Record() Record {
	if r == nil {
		return nil
	}
	rec, _ := ToRecord(first(r.Data))
	return rec
}

// Records returns the result's data as a list of records. A single record yields a list of one.
func (r *Result) Records() []Record {
	if r == nil || r.Data == nil {
		return nil
	}
	switch data := r.Data.(type) {
	case []Record:
		return data
	case Record:
		return []Record{data}
	}
	var records []Record
	for _, v := range util.ToSlice(r.Data) {
		if rec, ok := ToRecord(v); ok {
			records = append(records, rec)
		}
	}
	return records
}

// CountValue returns the count or zero if none was requested
func (r *Result) CountValue() int64 {
	if r == nil || r.Count == nil {
		return 0
	}
	return *r.Count
}

// first returns the first element of a list, nil for an empty list, and any other value as is
func first(data any) any {
	switch data := data.(type) {
	case []Record:
		if len(data) == 0 {
			return nil
		}
		return data[0]
	case []any:
		if len(data) == 0 {
			return nil
		}
		return data[0]
	}
	return data
}
