package memory

import (
	"fmt"

	"github.com/syntrixbase/dockit/pkg/model"
)

type autoResponseKind int

const (
	autoUseMock autoResponseKind = iota
	autoSuccess
	autoFail
)

// AutoResponse is a canned reply for every query on a path, bypassing the tables.
type AutoResponse struct {
	kind autoResponseKind
	data []interface{}
	err  error
}

// UseMock replies with the query's own MockResult.
func UseMock() AutoResponse {
	return AutoResponse{kind: autoUseMock}
}

// Success replies with data. A query for a document path registered directly
// receives the first record; one answered by its collection's response
// receives the record with the requested id, or nil.
func Success(data ...interface{}) AutoResponse {
	return AutoResponse{kind: autoSuccess, data: data}
}

// Fail returns err verbatim. It also rejects mutations and deletions on the path.
func Fail(err error) AutoResponse {
	return AutoResponse{kind: autoFail, err: err}
}

// RegisterAutoResponse makes every operation on path answer with r.
func (s *Store) RegisterAutoResponse(path string, r AutoResponse) {
	s.autoMu.Lock()
	defer s.autoMu.Unlock()
	s.autoResponses[path] = r
}

// RemoveAutoResponse restores table-backed behaviour for path.
func (s *Store) RemoveAutoResponse(path string) {
	s.autoMu.Lock()
	defer s.autoMu.Unlock()
	delete(s.autoResponses, path)
}

// lookupAutoResponse checks each candidate path in order.
func (s *Store) lookupAutoResponse(paths ...string) (AutoResponse, bool) {
	s.autoMu.RLock()
	defer s.autoMu.RUnlock()
	for _, p := range paths {
		if r, ok := s.autoResponses[p]; ok {
			return r, true
		}
	}
	return AutoResponse{}, false
}

func (r AutoResponse) collection(q model.CollectionQuery) ([]model.Document, error) {
	var records []interface{}
	switch r.kind {
	case autoFail:
		return nil, r.err
	case autoUseMock:
		records = q.MockResult
	default:
		records = r.data
	}

	docs := make([]model.Document, 0, len(records))
	for i, rec := range records {
		doc, err := model.ToDocument(rec)
		if err != nil {
			return nil, model.NewParsingError(q.Ref.Path(), fmt.Errorf("auto response record %d: %w", i, err))
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

func (r AutoResponse) document(q model.DocumentQuery) (model.Document, error) {
	var record interface{}
	switch r.kind {
	case autoFail:
		return nil, r.err
	case autoUseMock:
		record = q.MockResult
	default:
		if len(r.data) > 0 {
			record = r.data[0]
		}
	}
	if record == nil {
		return nil, nil
	}

	doc, err := model.ToDocument(record)
	if err != nil {
		return nil, model.NewParsingError(q.Ref.Path(), err)
	}
	return doc, nil
}

// collectionDocument answers a document query from its collection's
// response: Success yields the record carrying the requested id, or nil.
func (r AutoResponse) collectionDocument(q model.DocumentQuery) (model.Document, error) {
	if r.kind != autoSuccess {
		return r.document(q)
	}
	id := q.Ref.ID()
	for i, rec := range r.data {
		doc, err := model.ToDocument(rec)
		if err != nil {
			return nil, model.NewParsingError(q.Ref.Path(), fmt.Errorf("auto response record %d: %w", i, err))
		}
		if doc.GetID() == id {
			return doc, nil
		}
	}
	return nil, nil
}
