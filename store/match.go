package store

import (
	"bytes"
	"reflect"
	"sort"
	"strings"
	"time"

	"github.com/autom8ter/ideabase/util"
	"github.com/samber/lo"
	"github.com/spf13/cast"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Match reports whether the document satisfies every condition of the filter. It evaluates the subset of the
// mongodb query language the adapter emits: equality and $in, with array fields matching when any element
// matches.
func Match(doc Document, filter Filter) bool {
	for field, cond := range filter {
		value, _ := Lookup(doc, field)
		if values, ok := inValues(cond); ok {
			if !lo.ContainsBy(values, func(v any) bool { return matches(value, v) }) {
				return false
			}
			continue
		}
		if !matches(value, cond) {
			return false
		}
	}
	return true
}

func inValues(cond any) ([]any, bool) {
	var m map[string]any
	switch cond := cond.(type) {
	case Filter:
		m = cond
	case map[string]any:
		m = cond
	default:
		return nil, false
	}
	values, ok := m[OpIn]
	if !ok || len(m) != 1 {
		return nil, false
	}
	return util.ToSlice(values), true
}

func matches(value, want any) bool {
	if Equal(value, want) {
		return true
	}
	if want == nil {
		return false
	}
	switch value.(type) {
	case primitive.A, []any:
		return lo.ContainsBy(util.ToSlice(value), func(v any) bool { return Equal(v, want) })
	}
	return false
}

// Lookup returns the value at the (optionally dot separated) field path
func Lookup(doc map[string]any, field string) (any, bool) {
	var current any = doc
	for _, part := range strings.Split(field, ".") {
		m, ok := AsMap(current)
		if !ok {
			return nil, false
		}
		current, ok = m[part]
		if !ok {
			return nil, false
		}
	}
	return current, true
}

// AsMap returns the value as a map if it is any kind of string keyed map or a bson document
func AsMap(value any) (map[string]any, bool) {
	switch value := value.(type) {
	case nil:
		return nil, false
	case Document:
		return value, true
	case map[string]any:
		return value, true
	case primitive.M:
		return value, true
	case primitive.D:
		return value.Map(), true
	}
	rv := reflect.ValueOf(value)
	if rv.Kind() != reflect.Map || rv.Type().Key().Kind() != reflect.String {
		return nil, false
	}
	out := make(map[string]any, rv.Len())
	iter := rv.MapRange()
	for iter.Next() {
		out[iter.Key().String()] = iter.Value().Interface()
	}
	return out, true
}

// Equal reports whether two document values are equal. Numbers compare by value regardless of their go type,
// dates compare by instant, and object ids only equal other object ids.
func Equal(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if c, ok := compare(a, b); ok {
		return c == 0
	}
	return reflect.DeepEqual(Plain(a), Plain(b))
}

// mongodb's cross type sort order
const (
	rankNull = iota
	rankNumber
	rankString
	rankObject
	rankArray
	rankBinary
	rankObjectID
	rankBool
	rankDate
	rankOther
)

func rank(value any) int {
	switch value.(type) {
	case nil:
		return rankNull
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, float32, float64:
		return rankNumber
	case string:
		return rankString
	case Document, map[string]any, primitive.M, primitive.D:
		return rankObject
	case primitive.A, []any:
		return rankArray
	case []byte, primitive.Binary:
		return rankBinary
	case primitive.ObjectID:
		return rankObjectID
	case bool:
		return rankBool
	case time.Time, primitive.DateTime:
		return rankDate
	}
	return rankOther
}

// compare orders two scalar values. ok is false when the values are of the same type class but cannot be
// ordered (objects, arrays).
func compare(a, b any) (int, bool) {
	ra, rb := rank(a), rank(b)
	if ra != rb {
		return ra - rb, true
	}
	switch ra {
	case rankNull:
		return 0, true
	case rankNumber:
		fa, fb := cast.ToFloat64(a), cast.ToFloat64(b)
		switch {
		case fa < fb:
			return -1, true
		case fa > fb:
			return 1, true
		}
		return 0, true
	case rankString:
		return strings.Compare(a.(string), b.(string)), true
	case rankObjectID:
		ida, idb := a.(primitive.ObjectID), b.(primitive.ObjectID)
		return bytes.Compare(ida[:], idb[:]), true
	case rankBool:
		ba, bb := a.(bool), b.(bool)
		switch {
		case ba == bb:
			return 0, true
		case !ba:
			return -1, true
		}
		return 1, true
	case rankDate:
		ta, tb := toTime(a), toTime(b)
		switch {
		case ta.Before(tb):
			return -1, true
		case ta.After(tb):
			return 1, true
		}
		return 0, true
	}
	return 0, false
}

func toTime(value any) time.Time {
	switch value := value.(type) {
	case primitive.DateTime:
		return value.Time()
	case time.Time:
		return value
	}
	return time.Time{}
}

// SortDocuments sorts documents in place by the given field. Missing fields sort as null.
func SortDocuments(docs []Document, s Sort) {
	sort.SliceStable(docs, func(i, j int) bool {
		a, _ := Lookup(docs[i], s.Field)
		b, _ := Lookup(docs[j], s.Field)
		c, _ := compare(a, b)
		if s.Ascending {
			return c < 0
		}
		return c > 0
	})
}
