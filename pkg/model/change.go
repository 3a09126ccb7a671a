package model

// ChangeType tags a document change.
type ChangeType string

const (
	ChangeAdded    ChangeType = "added"
	ChangeModified ChangeType = "modified"
	ChangeRemoved  ChangeType = "removed"
)

// Change is one observed transition of a single document.
// Removals carry the last stored version of the document.
type Change struct {
	Type       ChangeType `json:"type"`
	DocumentID string     `json:"id"`
	Collection string     `json:"collection"`
	Document   Document   `json:"document,omitempty"`
}

// Decode converts the changed document into out.
func (c Change) Decode(out interface{}) error {
	return DecodeDocument(c.Document, out)
}

// Ref returns the reference of the changed document.
func (c Change) Ref() (DocumentRef, error) {
	col, err := ParseCollection(c.Collection)
	if err != nil {
		return DocumentRef{}, err
	}
	return col.Doc(c.DocumentID), nil
}

// ChangeBatch is what a listener receives per delivery: either changes or an error.
type ChangeBatch struct {
	Changes []Change
	Err     error
	// Initial marks the snapshot delivered on registration.
	Initial bool
}
