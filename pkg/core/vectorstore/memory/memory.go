// Package memory is an in-process Store used by tests and local runs
// without external vector database credentials. Brute-force cosine
// similarity over normalized or raw vectors.
package memory

import (
	"context"
	"errors"
	"math"
	"sort"
	"sync"

	"filing_analyst/pkg/core/vectorstore"
)

type Store struct {
	mu         sync.RWMutex
	namespaces map[string]map[string]vectorstore.Vector // namespace -> id -> vector
}

func NewStore() *Store {
	return &Store{namespaces: make(map[string]map[string]vectorstore.Vector)}
}

var _ vectorstore.Store = (*Store)(nil)

func (s *Store) Upsert(ctx context.Context, namespace string, vectors []vectorstore.Vector) error {
	if namespace == "" {
		return errors.New("namespace required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	ns, ok := s.namespaces[namespace]
	if !ok {
		ns = make(map[string]vectorstore.Vector)
		s.namespaces[namespace] = ns
	}
	for _, v := range vectors {
		if v.ID == "" {
			return errors.New("vector id required")
		}
		ns[v.ID] = v
	}
	return nil
}

func (s *Store) Query(ctx context.Context, namespace string, vector []float32, topK int, filter *vectorstore.Filter) ([]vectorstore.Match, error) {
	if topK <= 0 {
		topK = 5
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	ns := s.namespaces[namespace]
	matches := make([]vectorstore.Match, 0, len(ns))
	for id, v := range ns {
		if filter != nil {
			if filter.Section != "" && v.Metadata.Section != filter.Section {
				continue
			}
			if filter.ContentType != "" && v.Metadata.ContentType != filter.ContentType {
				continue
			}
		}
		matches = append(matches, vectorstore.Match{
			ID:       id,
			Score:    cosine(vector, v.Values),
			Metadata: v.Metadata,
		})
	}

	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Score != matches[j].Score {
			return matches[i].Score > matches[j].Score
		}
		return matches[i].ID < matches[j].ID
	})
	if topK < len(matches) {
		matches = matches[:topK]
	}
	return matches, nil
}

func (s *Store) DeleteNamespace(ctx context.Context, namespace string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.namespaces, namespace)
	return nil
}

// Count reports the number of distinct vector ids in a namespace.
// Test helper for the indexing idempotence property.
func (s *Store) Count(namespace string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.namespaces[namespace])
}

func cosine(a, b []float32) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var dot, na, nb float64
	for i := 0; i < n; i++ {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
