// Package memory keeps workspace graphs in process memory.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/meikuraledutech/blockpipe"
)

// Store implements blockpipe.Store in memory.
// Safe for concurrent use.
type Store struct {
	graphs map[string]*blockpipe.Graph
	mu     sync.RWMutex
}

var _ blockpipe.Store = (*Store)(nil)

// New creates an empty in-memory store.
func New() *Store {
	return &Store{graphs: make(map[string]*blockpipe.Graph)}
}

func (s *Store) CreateSchema(ctx context.Context) error { return nil }

// DropSchema forgets every graph.
func (s *Store) DropSchema(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.graphs = make(map[string]*blockpipe.Graph)
	return nil
}

// SaveGraph stores a copy of g, so later edits by the caller don't leak in.
func (s *Store) SaveGraph(ctx context.Context, g *blockpipe.Graph) (*blockpipe.Graph, error) {
	if err := g.Prepare(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.graphs[g.ID] = g.Clone()
	return g, nil
}

// GetGraph returns a copy of the stored graph.
func (s *Store) GetGraph(ctx context.Context, graphID string) (*blockpipe.Graph, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	g, ok := s.graphs[graphID]
	if !ok {
		return nil, nil
	}
	return g.Clone(), nil
}

func (s *Store) DeleteGraph(ctx context.Context, graphID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.graphs, graphID)
	return nil
}

// ListGraphs returns the stored ids, sorted.
func (s *Store) ListGraphs(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.graphs))
	for id := range s.graphs {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}
