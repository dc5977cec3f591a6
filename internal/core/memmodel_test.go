package core

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sync"
)

// memModel is an in-memory Model used by the engine tests.
type memModel struct {
	mu      sync.Mutex
	docs    []Record
	nextID  int
	failErr error // returned by every call when set
}

func newMemModel() *memModel { return &memModel{} }

func (m *memModel) FindByID(_ context.Context, id string) (Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failErr != nil {
		return nil, m.failErr
	}
	if i := m.index(id); i >= 0 {
		return copyRecord(m.docs[i]), nil
	}
	return nil, nil
}

func (m *memModel) FindOne(_ context.Context, filter Record) (Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failErr != nil {
		return nil, m.failErr
	}
	for _, doc := range m.docs {
		if matches(doc, filter) {
			return copyRecord(doc), nil
		}
	}
	return nil, nil
}

func (m *memModel) Find(_ context.Context, filter Record, opts FindOptions) ([]Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failErr != nil {
		return nil, m.failErr
	}
	var out []Record
	skipped := 0
	for _, doc := range m.docs {
		if !matches(doc, filter) {
			continue
		}
		if skipped < opts.Skip {
			skipped++
			continue
		}
		if opts.Limit > 0 && len(out) >= opts.Limit {
			break
		}
		out = append(out, copyRecord(doc))
	}
	return out, nil
}

func (m *memModel) Create(_ context.Context, doc Record) (Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failErr != nil {
		return nil, m.failErr
	}
	m.nextID++
	stored := copyRecord(doc)
	stored[IDField] = fmt.Sprintf("id-%d", m.nextID)
	stored[VersionField] = 0
	m.docs = append(m.docs, stored)
	return copyRecord(stored), nil
}

func (m *memModel) FindByIDAndUpdate(_ context.Context, id string, set Record, opts UpdateOptions) (Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failErr != nil {
		return nil, m.failErr
	}
	i := m.index(id)
	if i < 0 {
		return nil, nil
	}
	before := copyRecord(m.docs[i])
	for k, v := range set {
		m.docs[i][k] = v
	}
	if opts.New {
		return copyRecord(m.docs[i]), nil
	}
	return before, nil
}

func (m *memModel) FindByIDAndDelete(_ context.Context, id string) (Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failErr != nil {
		return nil, m.failErr
	}
	i := m.index(id)
	if i < 0 {
		return nil, nil
	}
	doc := m.docs[i]
	m.docs = append(m.docs[:i], m.docs[i+1:]...)
	return doc, nil
}

func (m *memModel) index(id string) int {
	for i, doc := range m.docs {
		if doc[IDField] == id {
			return i
		}
	}
	return -1
}

func matches(doc, filter Record) bool {
	for k, want := range filter {
		got, ok := doc[k]
		if want == nil {
			if ok && got != nil {
				return false
			}
			continue
		}
		if !ok || !reflect.DeepEqual(got, want) {
			return false
		}
	}
	return true
}

func copyRecord(r Record) Record {
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

var errStorageDown = errors.New("storage unavailable")
