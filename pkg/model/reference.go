package model

import (
	"fmt"
	"slices"
	"strings"
)

// Reference identifies a location in the document tree. Paths alternate
// collection names and document ids: "users", "users/u1", "users/u1/posts".
type Reference interface {
	// Path flattens the reference to a slash-delimited string.
	Path() string
	Segments() []string
	IsDocument() bool
	// LeafID is the last segment of a document reference.
	LeafID() (string, bool)
	// LeafCollectionPath is the path of the nearest enclosing collection.
	LeafCollectionPath() string
	Validate() error
}

var (
	_ Reference = CollectionRef{}
	_ Reference = DocumentRef{}
)

// CollectionRef references a collection. The zero value is invalid.
type CollectionRef struct {
	segments []string
}

// DocumentRef references a single document. The zero value is invalid.
type DocumentRef struct {
	segments []string
}

// Collection returns a reference to a top-level collection.
func Collection(name string) CollectionRef {
	return CollectionRef{segments: []string{name}}
}

// Doc returns a reference to the document id inside c.
func (c CollectionRef) Doc(id string) DocumentRef {
	return DocumentRef{segments: appendSegment(c.segments, id)}
}

// Name is the collection's own name.
func (c CollectionRef) Name() string {
	if len(c.segments) == 0 {
		return ""
	}
	return c.segments[len(c.segments)-1]
}

// Parent returns the document owning a subcollection.
func (c CollectionRef) Parent() (DocumentRef, bool) {
	if len(c.segments) < 3 {
		return DocumentRef{}, false
	}
	return DocumentRef{segments: slices.Clone(c.segments[:len(c.segments)-1])}, true
}

func (c CollectionRef) Path() string               { return strings.Join(c.segments, "/") }
func (c CollectionRef) Segments() []string         { return slices.Clone(c.segments) }
func (c CollectionRef) IsDocument() bool           { return false }
func (c CollectionRef) LeafID() (string, bool)     { return "", false }
func (c CollectionRef) LeafCollectionPath() string { return c.Path() }
func (c CollectionRef) String() string             { return c.Path() }

func (c CollectionRef) Validate() error {
	if len(c.segments)%2 != 1 {
		return fmt.Errorf("%w: collection path %q has %d segments", ErrMalformedReference, c.Path(), len(c.segments))
	}
	return validateSegments(c.segments)
}

// Collection returns a reference to the subcollection name under d.
func (d DocumentRef) Collection(name string) CollectionRef {
	return CollectionRef{segments: appendSegment(d.segments, name)}
}

// Parent returns the collection containing d.
func (d DocumentRef) Parent() CollectionRef {
	if len(d.segments) == 0 {
		return CollectionRef{}
	}
	return CollectionRef{segments: slices.Clone(d.segments[:len(d.segments)-1])}
}

// ID is the document id, the last path segment.
func (d DocumentRef) ID() string {
	if len(d.segments) == 0 {
		return ""
	}
	return d.segments[len(d.segments)-1]
}

func (d DocumentRef) Path() string       { return strings.Join(d.segments, "/") }
func (d DocumentRef) Segments() []string { return slices.Clone(d.segments) }
func (d DocumentRef) IsDocument() bool   { return true }
func (d DocumentRef) String() string     { return d.Path() }

func (d DocumentRef) LeafID() (string, bool) {
	id := d.ID()
	return id, id != ""
}

func (d DocumentRef) LeafCollectionPath() string {
	return d.Parent().Path()
}

func (d DocumentRef) Validate() error {
	if len(d.segments) == 0 || len(d.segments)%2 != 0 {
		return fmt.Errorf("%w: document path %q has %d segments", ErrMalformedReference, d.Path(), len(d.segments))
	}
	return validateSegments(d.segments)
}

// ParseReference classifies a slash-delimited path by its segment count.
func ParseReference(path string) (Reference, error) {
	path = strings.Trim(path, "/")
	if path == "" {
		return nil, fmt.Errorf("%w: empty path", ErrMalformedReference)
	}
	segments := strings.Split(path, "/")
	if err := validateSegments(segments); err != nil {
		return nil, err
	}
	if len(segments)%2 == 0 {
		return DocumentRef{segments: segments}, nil
	}
	return CollectionRef{segments: segments}, nil
}

// ParseCollection parses path and requires it to name a collection.
func ParseCollection(path string) (CollectionRef, error) {
	ref, err := ParseReference(path)
	if err != nil {
		return CollectionRef{}, err
	}
	c, ok := ref.(CollectionRef)
	if !ok {
		return CollectionRef{}, fmt.Errorf("%w: %q is a document path", ErrMalformedReference, path)
	}
	return c, nil
}

func validateSegments(segments []string) error {
	for i, s := range segments {
		if s == "" {
			return fmt.Errorf("%w: empty segment at position %d", ErrMalformedReference, i)
		}
		if strings.Contains(s, "/") {
			return fmt.Errorf("%w: segment %q contains a slash", ErrMalformedReference, s)
		}
	}
	return nil
}

func appendSegment(segments []string, s string) []string {
	out := make([]string, len(segments), len(segments)+1)
	copy(out, segments)
	return append(out, s)
}
