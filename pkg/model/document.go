package model

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/google/uuid"
)

var (
	idRegex = regexp.MustCompile(`^[a-zA-Z0-9_\-\.]{1,128}$`)
)

// IDField is the reserved field holding a document's identifier.
const IDField = "id"

func CheckDocumentID(id string) bool {
	return idRegex.MatchString(id)
}

// Document is the backend-facing record shape, a JSON-like object.
//
//	"id" field is reserved for the document ID.
type Document map[string]interface{}

func (doc Document) GetID() string {
	switch id := doc[IDField].(type) {
	case string:
		return id
	case int, int32, int64:
		return fmt.Sprintf("%d", id)
	}
	return ""
}

func (doc Document) SetID(newID string) {
	doc[IDField] = newID
}

func (doc Document) GenerateIDIfEmpty() {
	if doc.GetID() == "" {
		doc[IDField] = uuid.New().String()
	}
}

func (doc Document) HasKey(key string) bool {
	_, exists := doc[key]
	return exists
}

func (doc Document) IsEmpty() bool {
	return len(doc) == 0 || (len(doc) == 1 && doc.HasKey(IDField))
}

// Lookup resolves a dotted field path ("address.city") through nested maps.
// The "id" path falls back to GetID so numeric identifiers resolve as strings.
func (doc Document) Lookup(path string) (interface{}, bool) {
	if path == IDField {
		if id := doc.GetID(); id != "" {
			return id, true
		}
		return nil, false
	}

	var cur interface{} = map[string]interface{}(doc)
	for _, part := range strings.Split(path, ".") {
		m, ok := asMap(cur)
		if !ok {
			return nil, false
		}
		cur, ok = m[part]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

// SetPath assigns v at a dotted field path, creating intermediate objects.
// A non-object value in the way is replaced.
func (doc Document) SetPath(path string, v interface{}) {
	parts := strings.Split(path, ".")
	cur := map[string]interface{}(doc)
	for _, part := range parts[:len(parts)-1] {
		next, ok := asMap(cur[part])
		if !ok {
			next = make(map[string]interface{})
			cur[part] = next
		}
		cur = next
	}
	cur[parts[len(parts)-1]] = v
}

// Clone returns a copy that shares no maps or slices with doc.
func (doc Document) Clone() Document {
	if doc == nil {
		return nil
	}
	out := make(Document, len(doc))
	for k, v := range doc {
		out[k] = CloneValue(v)
	}
	return out
}

// Merge overlays src onto doc. Nested objects are merged key by key,
// everything else (including arrays) is replaced.
func (doc Document) Merge(src Document) {
	mergeInto(doc, src)
}

func (doc Document) ValidateDocument() error {
	if doc == nil {
		return errors.New("data cannot be nil")
	}

	if idVal, ok := doc[IDField]; ok {
		switch idValue := idVal.(type) {
		case string:
			if idValue == "" {
				return errors.New("data field 'id' cannot be empty")
			}

			if !idRegex.MatchString(idValue) {
				return errors.New("invalid 'id' field: must be 1-128 characters of a-z, A-Z, 0-9, _, ., -")
			}
		case int, int32, int64:
			doc[IDField] = fmt.Sprintf("%d", idValue)
		default:
			return errors.New("data field 'id' must be a string or integer")
		}
	}

	return nil
}

func mergeInto(dst, src map[string]interface{}) {
	for k, v := range src {
		srcMap, srcIsMap := asMap(v)
		dstMap, dstIsMap := asMap(dst[k])
		if srcIsMap && dstIsMap {
			merged := make(map[string]interface{}, len(dstMap))
			for dk, dv := range dstMap {
				merged[dk] = dv
			}
			mergeInto(merged, srcMap)
			dst[k] = merged
			continue
		}
		dst[k] = CloneValue(v)
	}
}

func asMap(v interface{}) (map[string]interface{}, bool) {
	switch m := v.(type) {
	case map[string]interface{}:
		return m, true
	case Document:
		return m, true
	}
	return nil, false
}

// CloneValue deep-copies maps and slices inside v; other values are shared.
func CloneValue(v interface{}) interface{} {
	switch val := v.(type) {
	case map[string]interface{}:
		return map[string]interface{}(Document(val).Clone())
	case Document:
		return val.Clone()
	case []interface{}:
		out := make([]interface{}, len(val))
		for i, item := range val {
			out[i] = CloneValue(item)
		}
		return out
	case []string:
		return append([]string(nil), val...)
	default:
		return v
	}
}
