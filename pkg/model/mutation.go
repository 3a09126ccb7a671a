package model

import (
	"errors"
	"fmt"
)

// FieldUpdate changes one field of a document.
type FieldUpdate struct {
	Field string
	Value interface{}
	// Increment adds Value numerically to the current field value.
	Increment bool
}

// Set replaces field with value.
func Set(field string, value interface{}) FieldUpdate {
	return FieldUpdate{Field: field, Value: value}
}

// Increment adds by to the numeric value of field. A missing field counts as zero.
func Increment(field string, by interface{}) FieldUpdate {
	return FieldUpdate{Field: field, Value: by, Increment: true}
}

// Mutation writes a record. Ref is either the target document or a collection,
// in which case the id comes from the payload or is generated.
type Mutation struct {
	Ref  Reference
	Data interface{}
	// Merge overlays the payload onto the stored document instead of replacing it.
	Merge   bool
	Updates []FieldUpdate
}

// SetData writes data to ref.
func SetData(ref DocumentRef, data interface{}, merge bool) Mutation {
	return Mutation{Ref: ref, Data: data, Merge: merge}
}

// AddDocument writes data into ref under the payload's id or a generated one.
func AddDocument(ref CollectionRef, data interface{}) Mutation {
	return Mutation{Ref: ref, Data: data, Merge: true}
}

// UpdateFields applies field updates to ref.
func UpdateFields(ref DocumentRef, merge bool, updates ...FieldUpdate) Mutation {
	return Mutation{Ref: ref, Merge: merge, Updates: updates}
}

func (m Mutation) Validate() error {
	if m.Ref == nil {
		return fmt.Errorf("%w: mutation has no target", ErrMalformedReference)
	}
	if err := m.Ref.Validate(); err != nil {
		return err
	}
	if m.Data == nil && len(m.Updates) == 0 {
		return errors.New("mutation has neither data nor field updates")
	}
	for _, u := range m.Updates {
		if u.Field == "" {
			return errors.New("field update has an empty field name")
		}
		if u.Field == IDField {
			return errors.New("field updates cannot change the document id")
		}
		if u.Increment && !isNumber(u.Value) {
			return fmt.Errorf("increment of %q needs a numeric operand, got %T", u.Field, u.Value)
		}
	}
	return nil
}

// CollectionPath is the path of the table the mutation writes into.
func (m Mutation) CollectionPath() string {
	if m.Ref == nil {
		return ""
	}
	return m.Ref.LeafCollectionPath()
}

// Deletion removes one document.
type Deletion struct {
	Ref DocumentRef
}

// Delete builds a deletion for ref.
func Delete(ref DocumentRef) Deletion {
	return Deletion{Ref: ref}
}

func (d Deletion) Validate() error {
	if err := d.Ref.Validate(); err != nil {
		return err
	}
	if _, ok := d.Ref.LeafID(); !ok {
		return fmt.Errorf("%w: deletion has no document id", ErrMalformedReference)
	}
	return nil
}

func isNumber(v interface{}) bool {
	switch v.(type) {
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, float32, float64:
		return true
	}
	return false
}
