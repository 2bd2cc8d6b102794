package review

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/codeGROOVE-dev/autoreview/pkg/types"
)

func TestMemoryStore_PutAndGet(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	review := &types.Review{
		ID:         "r1",
		Repository: "acme/widgets",
		PRNumber:   42,
		Status:     types.StatusInProgress,
		CreatedAt:  time.Now(),
	}
	if err := store.Put(ctx, review); err != nil {
		t.Fatalf("Put: %v", err)
	}

	got, err := store.Get(ctx, "r1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Repository != "acme/widgets" || got.PRNumber != 42 {
		t.Errorf("got %+v", got)
	}
}

func TestMemoryStore_GetMissing(t *testing.T) {
	store := NewMemoryStore()

	_, err := store.Get(context.Background(), "nope")
	if !errors.Is(err, ErrReviewNotFound) {
		t.Errorf("expected ErrReviewNotFound, got %v", err)
	}
}

func TestMemoryStore_TerminalImmutable(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	review := &types.Review{ID: "r1", Status: types.StatusCompleted, CreatedAt: time.Now()}
	if err := store.Put(ctx, review); err != nil {
		t.Fatalf("Put: %v", err)
	}

	review.Status = types.StatusInProgress
	if err := store.Put(ctx, review); !errors.Is(err, ErrReviewImmutable) {
		t.Errorf("expected ErrReviewImmutable overwriting terminal review, got %v", err)
	}

	// In-progress reviews remain updatable until terminal.
	running := &types.Review{ID: "r2", Status: types.StatusInProgress, CreatedAt: time.Now()}
	if err := store.Put(ctx, running); err != nil {
		t.Fatalf("Put running: %v", err)
	}
	running.Status = types.StatusCompleted
	if err := store.Put(ctx, running); err != nil {
		t.Errorf("completing an in-progress review should succeed: %v", err)
	}
}

func TestMemoryStore_PutRequiresID(t *testing.T) {
	store := NewMemoryStore()

	if err := store.Put(context.Background(), &types.Review{}); err == nil {
		t.Error("expected error for review without id")
	}
	if err := store.Put(context.Background(), nil); err == nil {
		t.Error("expected error for nil review")
	}
}

func TestMemoryStore_List(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	base := time.Now()
	for i := range 5 {
		review := &types.Review{
			ID:        fmt.Sprintf("r%d", i),
			Status:    types.StatusCompleted,
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}
		if err := store.Put(ctx, review); err != nil {
			t.Fatalf("Put: %v", err)
		}
	}

	reviews, err := store.List(ctx, 3)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(reviews) != 3 {
		t.Fatalf("got %d reviews, want 3", len(reviews))
	}
	// Newest first.
	if reviews[0].ID != "r4" || reviews[1].ID != "r3" {
		t.Errorf("wrong ordering: %s, %s", reviews[0].ID, reviews[1].ID)
	}

	all, err := store.List(ctx, 0)
	if err != nil {
		t.Fatalf("List all: %v", err)
	}
	if len(all) != 5 {
		t.Errorf("got %d reviews, want 5", len(all))
	}
}

func TestMemoryStore_Delete(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	review := &types.Review{ID: "r1", Status: types.StatusCompleted, CreatedAt: time.Now()}
	if err := store.Put(ctx, review); err != nil {
		t.Fatalf("Put: %v", err)
	}

	if err := store.Delete(ctx, "r1"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := store.Get(ctx, "r1"); !errors.Is(err, ErrReviewNotFound) {
		t.Errorf("expected review gone, got %v", err)
	}
	if err := store.Delete(ctx, "r1"); !errors.Is(err, ErrReviewNotFound) {
		t.Errorf("expected ErrReviewNotFound on double delete, got %v", err)
	}
}

func TestMemoryStore_CopyOnPut(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	review := &types.Review{ID: "r1", Status: types.StatusInProgress, CreatedAt: time.Now()}
	if err := store.Put(ctx, review); err != nil {
		t.Fatalf("Put: %v", err)
	}

	// Mutating the caller's struct must not leak into the store.
	review.ErrorMessage = "mutated after put"

	got, err := store.Get(ctx, "r1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.ErrorMessage != "" {
		t.Errorf("store observed caller mutation: %q", got.ErrorMessage)
	}
}

func TestMemoryStore_ConcurrentAccess(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := range 20 {
		wg.Add(2)
		go func(id int) {
			defer wg.Done()
			review := &types.Review{
				ID:        fmt.Sprintf("r%d", id),
				Status:    types.StatusInProgress,
				CreatedAt: time.Now(),
			}
			_ = store.Put(ctx, review)
		}(i)
		go func(id int) {
			defer wg.Done()
			_, _ = store.Get(ctx, fmt.Sprintf("r%d", id))
			_, _ = store.List(ctx, 10)
		}(i)
	}
	wg.Wait()
}
