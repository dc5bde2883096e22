// Package memory is an in-process SnippetRepository.
//
// It backs the "memory:" store URL and is the fake used by service and handler
// tests. Documents are copied on the way in and out, so callers can never
// mutate stored state through a pointer they hold.
package memory

import (
	"context"
	"sync"

	"github.com/rs/xid"
	"github.com/samber/lo"

	"github.com/sakif/code-capsule/internal/apperror"
	"github.com/sakif/code-capsule/internal/model"
	"github.com/sakif/code-capsule/internal/repository"
)

var _ repository.SnippetRepository = (*Store)(nil)

type Store struct {
	mu    sync.RWMutex
	byID  map[string]model.Snippet
	order []string // insertion order, the collection's natural order
}

func New() *Store {
	return &Store{byID: make(map[string]model.Snippet)}
}

func (s *Store) Insert(_ context.Context, snippet *model.Snippet) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	snippet.ID = xid.New().String()
	s.byID[snippet.ID] = snippet.Clone()
	s.order = append(s.order, snippet.ID)
	return nil
}

func (s *Store) FindByID(_ context.Context, id string) (*model.Snippet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stored, ok := s.byID[id]
	if !ok {
		return nil, apperror.NotFound("snippet", id)
	}
	out := stored.Clone()
	return &out, nil
}

func (s *Store) Find(_ context.Context, filter repository.Filter) ([]model.Snippet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]model.Snippet, 0, len(s.order))
	for _, id := range s.order {
		stored := s.byID[id]
		if len(filter.Tags) > 0 && !lo.Some(stored.Tags, filter.Tags) {
			continue
		}
		result = append(result, stored.Clone())
	}
	return result, nil
}

func (s *Store) Update(_ context.Context, snippet *model.Snippet) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.byID[snippet.ID]
	if !ok {
		return apperror.NotFound("snippet", snippet.ID)
	}
	next := snippet.Clone()
	next.CreatedAt = stored.CreatedAt
	s.byID[snippet.ID] = next
	return nil
}

func (s *Store) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byID[id]; !ok {
		return apperror.NotFound("snippet", id)
	}
	delete(s.byID, id)
	s.order = lo.Without(s.order, id)
	return nil
}

// Len reports how many documents are stored.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byID)
}
