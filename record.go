package ideabase

import (
	"time"

	"github.com/autom8ter/ideabase/store"
	"github.com/spf13/cast"
)

// IDField is the public identity field present on every record
const IDField = "id"

// Record is a document as returned to callers. The native identity never appears on a record: it is exposed as
// the string field "id".
type Record map[string]any

// ToRecord converts a record-like value (Record, map, json decoded object) into a Record
func ToRecord(value any) (Record, bool) {
	switch value := value.(type) {
	case Record:
		return value, true
	case map[string]any:
		return Record(value), true
	case store.Document:
		return Record(value), true
	}
	m, ok := store.AsMap(value)
	if !ok {
		return nil, false
	}
	return Record(m), true
}

// ID returns the public identity of the record
func (r Record) ID() string {
	return cast.ToString(r[IDField])
}

// Get gets a field on the record. Dot notation is supported.
func (r Record) Get(field string) any {
	v, _ := store.Lookup(r, field)
	return v
}

// GetString gets a string field value on the record
func (r Record) GetString(field string) string {
	return cast.ToString(r.Get(field))
}

// GetBool gets a bool field value on the record
func (r Record) GetBool(field string) bool {
	return cast.ToBool(r.Get(field))
}

// GetFloat gets a float field value on the record
func (r Record) GetFloat(field string) float64 {
	return cast.ToFloat64(r.Get(field))
}

// GetTime gets a time field value on the record. RFC3339 strings are parsed.
func (r Record) GetTime(field string) time.Time {
	return cast.ToTime(r.Get(field))
}

// GetStrings gets a string array field value on the record
func (r Record) GetStrings(field string) []string {
	return cast.ToStringSlice(r.Get(field))
}

// Clone returns a shallow copy of the record
func (r Record) Clone() Record {
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}
