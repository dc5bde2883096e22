package memory

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/code-capsule/internal/repository"
	"github.com/sakif/code-capsule/internal/repository/repotest"
)

func TestSnippetRepository(t *testing.T) {
	repotest.Run(t, func(t *testing.T) repository.SnippetRepository {
		return New()
	})
}

// Callers mutating what they passed in or got back must not reach the stored copy.
func TestStoreCopiesTags(t *testing.T) {
	store := New()
	ctx := context.Background()

	s := repotest.NewSnippet("copy", "a")
	require.NoError(t, store.Insert(ctx, s))
	s.Tags[0] = "mutated"

	got, err := store.FindByID(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, got.Tags)

	got.Tags[0] = "mutated again"
	again, err := store.FindByID(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, again.Tags)
}

func TestConcurrentInserts(t *testing.T) {
	store := New()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, store.Insert(ctx, repotest.NewSnippet("concurrent")))
		}()
	}
	wg.Wait()

	assert.Equal(t, 50, store.Len())
}
