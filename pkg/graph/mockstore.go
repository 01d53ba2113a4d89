package graph

import (
	"context"
	"strings"
	"sync"
)

// WriteCall records one Write invocation for assertions in tests.
type WriteCall struct {
	Cypher string
	Params map[string]interface{}
}

// BatchMergeCall records one BatchMerge invocation.
type BatchMergeCall struct {
	Statement string
	Rows      []map[string]interface{}
}

// MockStore is an in-memory Store used by every other package's tests.
// There is no official Neo4j Go fake, so this plays the role the teacher
// corpus fills with k8s.io/client-go/kubernetes/fake or go-sqlmock: it
// records every call for assertions and returns canned query results.
type MockStore struct {
	mu sync.Mutex

	WriteCalls      []WriteCall
	BatchMergeCalls []BatchMergeCall
	QueryCalls      []WriteCall

	// QueryFunc, when set, computes the result for Query(cypher, params).
	// Tests typically match on a substring of cypher.
	QueryFunc func(cypher string, params map[string]interface{}) ([]Record, error)

	// WriteFunc, when set, computes the result for Write(cypher, params).
	WriteFunc func(cypher string, params map[string]interface{}) ([]Record, error)

	// BatchMergeErr, when set, is returned by every BatchMerge call.
	BatchMergeErr error

	VerifyErr error
	closed    bool
}

// NewMockStore returns an empty MockStore.
func NewMockStore() *MockStore {
	return &MockStore{}
}

func (m *MockStore) Query(ctx context.Context, cypher string, params map[string]interface{}) ([]Record, error) {
	m.mu.Lock()
	m.QueryCalls = append(m.QueryCalls, WriteCall{Cypher: cypher, Params: params})
	fn := m.QueryFunc
	m.mu.Unlock()

	if fn != nil {
		return fn(cypher, params)
	}
	return nil, nil
}

func (m *MockStore) Write(ctx context.Context, cypher string, params map[string]interface{}) ([]Record, error) {
	m.mu.Lock()
	m.WriteCalls = append(m.WriteCalls, WriteCall{Cypher: cypher, Params: params})
	fn := m.WriteFunc
	m.mu.Unlock()

	if fn != nil {
		return fn(cypher, params)
	}
	return nil, nil
}

func (m *MockStore) BatchMerge(ctx context.Context, statement string, rows []map[string]interface{}) error {
	if len(rows) == 0 {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.BatchMergeCalls = append(m.BatchMergeCalls, BatchMergeCall{Statement: statement, Rows: rows})
	return m.BatchMergeErr
}

func (m *MockStore) Verify(ctx context.Context) error {
	return m.VerifyErr
}

func (m *MockStore) Close(ctx context.Context) error {
	m.closed = true
	return nil
}

// Closed reports whether Close was called.
func (m *MockStore) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

// RowsMergedFor returns every row ever batch-merged through a statement
// whose text contains labelFragment (typically the node label), preserving
// call order. Useful for asserting "what did the syncer try to upsert".
func (m *MockStore) RowsMergedFor(labelFragment string) []map[string]interface{} {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []map[string]interface{}
	for _, c := range m.BatchMergeCalls {
		if strings.Contains(c.Statement, labelFragment) {
			out = append(out, c.Rows...)
		}
	}
	return out
}

// WritesContaining returns every Write call whose cypher text contains
// fragment.
func (m *MockStore) WritesContaining(fragment string) []WriteCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []WriteCall
	for _, c := range m.WriteCalls {
		if strings.Contains(c.Cypher, fragment) {
			out = append(out, c)
		}
	}
	return out
}
