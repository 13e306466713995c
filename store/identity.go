package store

import (
	"time"

	"github.com/spf13/cast"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// IDField is the field holding a document's native identity
const IDField = "_id"

// NewID returns a new native identity
func NewID() primitive.ObjectID {
	return primitive.NewObjectID()
}

// ParseID converts the public string form of an identity into its native representation
func ParseID(id string) (primitive.ObjectID, error) {
	return primitive.ObjectIDFromHex(id)
}

// FormatID returns the public string form of a native identity
func FormatID(id any) string {
	switch id := id.(type) {
	case primitive.ObjectID:
		return id.Hex()
	case *primitive.ObjectID:
		if id == nil {
			return ""
		}
		return id.Hex()
	default:
		return cast.ToString(id)
	}
}

// Plain converts driver specific values (object ids, bson dates, bson arrays and documents) into plain
// go values that encode naturally as json
func Plain(value any) any {
	switch value := value.(type) {
	case primitive.ObjectID:
		return value.Hex()
	case primitive.DateTime:
		return value.Time().UTC()
	case primitive.Timestamp:
		return time.Unix(int64(value.T), 0).UTC()
	case primitive.A:
		return plainSlice(value)
	case []any:
		return plainSlice(value)
	case bson.D:
		m := make(map[string]any, len(value))
		for _, e := range value {
			m[e.Key] = Plain(e.Value)
		}
		return m
	case bson.M:
		return plainMap(value)
	case Document:
		return plainMap(value)
	case map[string]any:
		return plainMap(value)
	default:
		return value
	}
}

func plainSlice(values []any) []any {
	out := make([]any, len(values))
	for i, v := range values {
		out[i] = Plain(v)
	}
	return out
}

func plainMap(values map[string]any) map[string]any {
	out := make(map[string]any, len(values))
	for k, v := range values {
		out[k] = Plain(v)
	}
	return out
}
