package model

import (
	"errors"
	"fmt"

	"github.com/goccy/go-json"
)

// DocumentMarshaler is implemented by records that build their own document.
// It replaces reflective field access with an explicit per-type mapping.
type DocumentMarshaler interface {
	MarshalDocument() (Document, error)
}

// DocumentUnmarshaler is implemented by records that read their own document.
type DocumentUnmarshaler interface {
	UnmarshalDocument(Document) error
}

// Identifiable records expose their id directly.
type Identifiable interface {
	GetID() string
}

// ToDocument converts a record into a Document that shares no state with v.
// Documents and plain maps are cloned, DocumentMarshaler values convert
// themselves, anything else goes through its JSON encoding.
func ToDocument(v interface{}) (Document, error) {
	var doc Document
	switch val := v.(type) {
	case nil:
		return nil, errors.New("record is nil")
	case Document:
		doc = val.Clone()
	case map[string]interface{}:
		doc = Document(val).Clone()
	case DocumentMarshaler:
		d, err := val.MarshalDocument()
		if err != nil {
			return nil, err
		}
		doc = d.Clone()
	default:
		data, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("failed to encode %T: %w", v, err)
		}
		if err := json.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("%T does not encode to an object: %w", v, err)
		}
	}
	if doc == nil {
		doc = Document{}
	}

	if id, ok := v.(Identifiable); ok && doc.GetID() == "" && id.GetID() != "" {
		doc.SetID(id.GetID())
	}
	return doc, nil
}

// DecodeDocument fills out from doc. Failures are KindParsing errors.
func DecodeDocument(doc Document, out interface{}) error {
	if out == nil {
		return NewParsingError(doc.GetID(), errors.New("decode target is nil"))
	}
	switch target := out.(type) {
	case *Document:
		*target = doc.Clone()
		return nil
	case *map[string]interface{}:
		*target = doc.Clone()
		return nil
	case DocumentUnmarshaler:
		if err := target.UnmarshalDocument(doc.Clone()); err != nil {
			return NewParsingError(doc.GetID(), err)
		}
		return nil
	}

	data, err := json.Marshal(doc)
	if err != nil {
		return NewParsingError(doc.GetID(), err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return NewParsingError(doc.GetID(), fmt.Errorf("cannot decode into %T: %w", out, err))
	}
	return nil
}

// Decode converts doc into a new T.
func Decode[T any](doc Document) (T, error) {
	var out T
	err := DecodeDocument(doc, &out)
	return out, err
}
