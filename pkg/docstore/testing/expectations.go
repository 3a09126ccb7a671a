package testing

import (
	"context"
	"fmt"
	"sync"

	"github.com/stretchr/testify/assert"
	"github.com/syntrixbase/dockit/pkg/docstore"
	"github.com/syntrixbase/dockit/pkg/model"
)

// Expectation is fulfilled the first time a matching operation is observed.
type Expectation struct {
	Path string
	Op   docstore.Operation

	fulfilled chan struct{}
	once      sync.Once
	err       error
}

// Fulfilled is closed once the operation has been observed.
func (x *Expectation) Fulfilled() <-chan struct{} {
	return x.fulfilled
}

// Wait blocks until the expectation is fulfilled or ctx is done.
func (x *Expectation) Wait(ctx context.Context) error {
	select {
	case <-x.fulfilled:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("%s %s not observed: %w", x.Op, x.Path, model.WrapError(ctx.Err()))
	}
}

// Err is the error the fulfilling operation returned. Only meaningful after Fulfilled.
func (x *Expectation) Err() error {
	<-x.fulfilled
	return x.err
}

func (x *Expectation) fulfill(err error) {
	x.once.Do(func() {
		x.err = err
		close(x.fulfilled)
	})
}

// Expectations collects expected (path, operation) pairs and fulfills them as
// a store reports operations. It implements docstore.Observer.
type Expectations struct {
	mu      sync.Mutex
	pending []*Expectation
	all     []*Expectation
}

var _ docstore.Observer = (*Expectations)(nil)

func NewExpectations() *Expectations {
	return &Expectations{}
}

// Expect registers an expectation. Several expectations for the same pair
// are fulfilled one per observed operation, in registration order.
func (e *Expectations) Expect(path string, op docstore.Operation) *Expectation {
	x := &Expectation{Path: path, Op: op, fulfilled: make(chan struct{})}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.pending = append(e.pending, x)
	e.all = append(e.all, x)
	return x
}

// Observe implements docstore.Observer.
func (e *Expectations) Observe(op docstore.Operation, path string, err error) {
	e.mu.Lock()
	var match *Expectation
	for i, x := range e.pending {
		if x.Op == op && x.Path == path {
			match = x
			e.pending = append(e.pending[:i], e.pending[i+1:]...)
			break
		}
	}
	e.mu.Unlock()

	if match != nil {
		match.fulfill(err)
	}
}

// Pending returns the expectations not yet fulfilled.
func (e *Expectations) Pending() []*Expectation {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]*Expectation(nil), e.pending...)
}

// Wait blocks until every registered expectation is fulfilled.
func (e *Expectations) Wait(ctx context.Context) error {
	e.mu.Lock()
	all := append([]*Expectation(nil), e.all...)
	e.mu.Unlock()

	for _, x := range all {
		if err := x.Wait(ctx); err != nil {
			return err
		}
	}
	return nil
}

// AssertFulfilled fails t for every expectation still pending.
func (e *Expectations) AssertFulfilled(t assert.TestingT) bool {
	ok := true
	for _, x := range e.Pending() {
		ok = assert.Fail(t, "unfulfilled expectation", "%s %s", x.Op, x.Path) && ok
	}
	return ok
}
