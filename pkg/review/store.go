package review

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/codeGROOVE-dev/autoreview/pkg/types"
)

// ErrReviewNotFound is returned when a review id is not in the store.
var ErrReviewNotFound = errors.New("review not found")

// ErrReviewImmutable is returned when a Put would overwrite a review that
// has already reached a terminal state.
var ErrReviewImmutable = errors.New("review is in a terminal state and cannot be modified")

// Store persists reviews. Implementations must allow concurrent access;
// a review in a terminal state (completed or failed) is immutable.
type Store interface {
	Put(ctx context.Context, review *types.Review) error
	Get(ctx context.Context, id string) (*types.Review, error)
	List(ctx context.Context, limit int) ([]*types.Review, error)
	Delete(ctx context.Context, id string) error
}

// MemoryStore is an in-memory Store backed by a mutex-guarded map.
type MemoryStore struct {
	reviews map[string]*types.Review
	mu      sync.RWMutex
}

// NewMemoryStore creates an empty in-memory review store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{reviews: make(map[string]*types.Review)}
}

// Put inserts or updates a review. Overwriting a terminal review fails
// with ErrReviewImmutable.
func (s *MemoryStore) Put(_ context.Context, review *types.Review) error {
	if review == nil || review.ID == "" {
		return errors.New("review must have an id")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.reviews[review.ID]; ok && existing.Status.Terminal() {
		return ErrReviewImmutable
	}

	// Store a copy so later mutations by the owning task do not alias
	// what readers observe.
	clone := *review
	s.reviews[review.ID] = &clone
	return nil
}

// Get returns the review with the given id or ErrReviewNotFound.
func (s *MemoryStore) Get(_ context.Context, id string) (*types.Review, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	review, ok := s.reviews[id]
	if !ok {
		return nil, ErrReviewNotFound
	}
	clone := *review
	return &clone, nil
}

// List returns up to limit reviews, newest first. limit <= 0 means all.
func (s *MemoryStore) List(_ context.Context, limit int) ([]*types.Review, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*types.Review, 0, len(s.reviews))
	for _, review := range s.reviews {
		clone := *review
		out = append(out, &clone)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Delete removes a review. Deleting an unknown id returns ErrReviewNotFound.
func (s *MemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.reviews[id]; !ok {
		return ErrReviewNotFound
	}
	delete(s.reviews, id)
	return nil
}
