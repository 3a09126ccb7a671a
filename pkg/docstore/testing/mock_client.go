// Package testing provides test doubles for docstore.Client and an
// expectation mechanism for synchronizing tests with store operations.
package testing

import (
	"context"

	"github.com/stretchr/testify/mock"
	"github.com/syntrixbase/dockit/pkg/docstore"
	"github.com/syntrixbase/dockit/pkg/model"
)

// MockClient is a mock implementation of docstore.Client
// using testify/mock for easy test setup and assertions.
type MockClient struct {
	mock.Mock
}

var _ docstore.Client = (*MockClient)(nil)

// NewMockClient creates a new MockClient.
func NewMockClient() *MockClient {
	return &MockClient{}
}

// ExecuteCollectionQuery implements docstore.Client.
func (m *MockClient) ExecuteCollectionQuery(ctx context.Context, q model.CollectionQuery) ([]model.Document, error) {
	args := m.Called(ctx, q)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Document), args.Error(1)
}

// ExecuteDocumentQuery implements docstore.Client.
func (m *MockClient) ExecuteDocumentQuery(ctx context.Context, q model.DocumentQuery) (model.Document, error) {
	args := m.Called(ctx, q)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(model.Document), args.Error(1)
}

// ExecuteMutation implements docstore.Client.
func (m *MockClient) ExecuteMutation(ctx context.Context, mut model.Mutation) (string, error) {
	args := m.Called(ctx, mut)
	return args.String(0), args.Error(1)
}

// ExecuteDeletion implements docstore.Client.
func (m *MockClient) ExecuteDeletion(ctx context.Context, d model.Deletion) error {
	args := m.Called(ctx, d)
	return args.Error(0)
}

// AddCollectionListener implements docstore.Client. When the configured
// return includes a *MockRegistration, the handler is attached to it so the
// test can push batches through Deliver.
func (m *MockClient) AddCollectionListener(ctx context.Context, q model.CollectionQuery, listenerID string, h docstore.Handler) (docstore.Registration, error) {
	args := m.Called(ctx, q, listenerID, h)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	reg := args.Get(0).(docstore.Registration)
	if mr, ok := reg.(*MockRegistration); ok {
		mr.attach(h)
	}
	return reg, args.Error(1)
}

// MockRegistration is a docstore.Registration driven by the test.
type MockRegistration struct {
	mock.Mock
	handler docstore.Handler
}

var _ docstore.Registration = (*MockRegistration)(nil)

// NewMockRegistration creates a new MockRegistration.
func NewMockRegistration() *MockRegistration {
	return &MockRegistration{}
}

func (r *MockRegistration) attach(h docstore.Handler) {
	r.handler = h
}

// Deliver hands b to the attached handler synchronously.
func (r *MockRegistration) Deliver(b model.ChangeBatch) {
	if r.handler != nil {
		r.handler(b)
	}
}

// ID implements docstore.Registration.
func (r *MockRegistration) ID() string {
	args := r.Called()
	return args.String(0)
}

// Path implements docstore.Registration.
func (r *MockRegistration) Path() string {
	args := r.Called()
	return args.String(0)
}

// Remove implements docstore.Registration.
func (r *MockRegistration) Remove() {
	r.Called()
}
