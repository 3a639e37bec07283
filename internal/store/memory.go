package store

import (
	"context"
	"sort"
	"sync"

	"xray-annotator/internal/annotation"
)

// Memory is an in-process store. It clones on both save and load so callers
// can never alias stored state.
type Memory struct {
	mu      sync.RWMutex
	studies map[Key][]*annotation.Annotation
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{studies: make(map[Key][]*annotation.Annotation)}
}

func cloneCollection(col []*annotation.Annotation) []*annotation.Annotation {
	out := make([]*annotation.Annotation, len(col))
	for i, a := range col {
		out[i] = a.Clone()
	}
	return out
}

func (m *Memory) Save(_ context.Context, key Key, col []*annotation.Annotation) error {
	if err := key.validate(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(col) == 0 {
		delete(m.studies, key)
		return nil
	}
	m.studies[key] = cloneCollection(col)
	return nil
}

func (m *Memory) Load(_ context.Context, key Key) ([]*annotation.Annotation, error) {
	if err := key.validate(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	col, ok := m.studies[key]
	if !ok {
		return []*annotation.Annotation{}, nil
	}
	return cloneCollection(col), nil
}

func (m *Memory) Images(_ context.Context, patientID string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var names []string
	for k := range m.studies {
		if k.PatientID == patientID {
			names = append(names, k.ImageName)
		}
	}
	sort.Strings(names)
	return names, nil
}

func (m *Memory) Delete(_ context.Context, key Key) error {
	if err := key.validate(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.studies, key)
	return nil
}

func (m *Memory) Close() error { return nil }
