package storage

import (
	"strconv"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Document is a record kept exactly as the client posted it. Products, cart
// items, payments and invoices have no fixed schema; the accessors below
// read the few fields the server itself relies on.
type Document map[string]any

// Clone returns a shallow copy so stores never mutate the caller's map.
func (d Document) Clone() Document {
	out := make(Document, len(d)+3)
	for k, v := range d {
		out[k] = v
	}
	return out
}

// ID returns the document's ObjectID, or the zero id when unset.
func (d Document) ID() primitive.ObjectID {
	oid, _ := d["_id"].(primitive.ObjectID)
	return oid
}

// String returns the field when it holds a string.
func (d Document) String(key string) string {
	s, _ := d[key].(string)
	return s
}

// Number reads a numeric field. Numeric strings count, since clients post
// prices both ways. ok is false when the field is absent or not a number.
func (d Document) Number(key string) (float64, bool) {
	switch v := d[key].(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int32:
		return float64(v), true
	case int64:
		return float64(v), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		return f, err == nil
	default:
		return 0, false
	}
}

// Has reports whether key is present, even with a null value.
func (d Document) Has(key string) bool {
	_, ok := d[key]
	return ok
}

// Strings reads a list of strings. ok is false when the field is present
// but is not a list of strings; an absent field is an empty list.
func (d Document) Strings(key string) ([]string, bool) {
	raw, present := d[key]
	if !present || raw == nil {
		return []string{}, true
	}
	var items []any
	switch v := raw.(type) {
	case []string:
		return append([]string{}, v...), true
	case []any:
		items = v
	case primitive.A:
		items = v
	default:
		return nil, false
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		s, ok := item.(string)
		if !ok {
			return nil, false
		}
		out = append(out, s)
	}
	return out, true
}

// Time reads a date field stored as a BSON date or an RFC 3339 string.
func (d Document) Time(key string) time.Time {
	switch v := d[key].(type) {
	case time.Time:
		return v
	case primitive.DateTime:
		return v.Time()
	case string:
		if t, err := time.Parse(time.RFC3339Nano, v); err == nil {
			return t
		}
	}
	return time.Time{}
}
