// Package repotest is a behaviour suite every repository.SnippetRepository
// implementation must pass. Each backend's tests call Run with a constructor
// that returns an empty store.
package repotest

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/code-capsule/internal/apperror"
	"github.com/sakif/code-capsule/internal/model"
	"github.com/sakif/code-capsule/internal/repository"
)

// Factory returns a fresh, empty store. It should register its own cleanup.
type Factory func(t *testing.T) repository.SnippetRepository

// MissingID is an id no store will ever assign.
const MissingID = "does-not-exist"

// Run executes the suite, one subtest per behaviour, each on a fresh store.
func Run(t *testing.T, newRepo Factory) {
	t.Run("InsertAssignsID", func(t *testing.T) { testInsertAssignsID(t, newRepo(t)) })
	t.Run("FindByIDRoundTrip", func(t *testing.T) { testFindByIDRoundTrip(t, newRepo(t)) })
	t.Run("FindByIDNotFound", func(t *testing.T) { testFindByIDNotFound(t, newRepo(t)) })
	t.Run("FindEmpty", func(t *testing.T) { testFindEmpty(t, newRepo(t)) })
	t.Run("FindInsertionOrder", func(t *testing.T) { testFindInsertionOrder(t, newRepo(t)) })
	t.Run("FindByTagsIsOr", func(t *testing.T) { testFindByTagsIsOr(t, newRepo(t)) })
	t.Run("FindByTagsNoMatch", func(t *testing.T) { testFindByTagsNoMatch(t, newRepo(t)) })
	t.Run("EmptyTagsStayEmpty", func(t *testing.T) { testEmptyTagsStayEmpty(t, newRepo(t)) })
	t.Run("UpdateReplaces", func(t *testing.T) { testUpdateReplaces(t, newRepo(t)) })
	t.Run("UpdateNotFound", func(t *testing.T) { testUpdateNotFound(t, newRepo(t)) })
	t.Run("Delete", func(t *testing.T) { testDelete(t, newRepo(t)) })
	t.Run("DeleteNotFound", func(t *testing.T) { testDeleteNotFound(t, newRepo(t)) })
}

// Base is a fixed instant at millisecond precision, the resolution every store keeps.
var Base = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

// NewSnippet builds an unsaved snippet with both timestamps at Base.
func NewSnippet(description string, tags ...string) *model.Snippet {
	if tags == nil {
		tags = []string{}
	}
	return &model.Snippet{
		Code:        "Y29uc29sZS5sb2coMSk=",
		Description: description,
		Language:    "javascript",
		Tags:        tags,
		CreatedAt:   Base,
		ModifiedAt:  Base,
	}
}

func insert(t *testing.T, repo repository.SnippetRepository, s *model.Snippet) *model.Snippet {
	t.Helper()
	require.NoError(t, repo.Insert(context.Background(), s))
	return s
}

func descriptions(snippets []model.Snippet) []string {
	out := make([]string, len(snippets))
	for i, s := range snippets {
		out[i] = s.Description
	}
	return out
}

func testInsertAssignsID(t *testing.T, repo repository.SnippetRepository) {
	a := insert(t, repo, NewSnippet("a"))
	b := insert(t, repo, NewSnippet("b"))

	assert.NotEmpty(t, a.ID)
	assert.NotEmpty(t, b.ID)
	assert.NotEqual(t, a.ID, b.ID)
}

func testFindByIDRoundTrip(t *testing.T, repo repository.SnippetRepository) {
	in := NewSnippet("counter", "react", "hooks", "react")
	in.CreatedAt = Base
	in.ModifiedAt = Base.Add(1500 * time.Millisecond)
	insert(t, repo, in)

	got, err := repo.FindByID(context.Background(), in.ID)
	require.NoError(t, err)

	assert.Equal(t, in.ID, got.ID)
	assert.Equal(t, in.Code, got.Code)
	assert.Equal(t, in.Description, got.Description)
	assert.Equal(t, in.Language, got.Language)
	assert.Equal(t, []string{"react", "hooks", "react"}, got.Tags, "order and duplicates survive")
	assert.WithinDuration(t, in.CreatedAt, got.CreatedAt, 0)
	assert.WithinDuration(t, in.ModifiedAt, got.ModifiedAt, 0)
}

func testFindByIDNotFound(t *testing.T, repo repository.SnippetRepository) {
	_, err := repo.FindByID(context.Background(), MissingID)
	assert.ErrorIs(t, err, apperror.ErrNotFound)
}

func testFindEmpty(t *testing.T, repo repository.SnippetRepository) {
	got, err := repo.Find(context.Background(), repository.Filter{})
	require.NoError(t, err)
	assert.NotNil(t, got, "an empty result is an empty slice, so it encodes as []")
	assert.Empty(t, got)
}

func testFindInsertionOrder(t *testing.T, repo repository.SnippetRepository) {
	for _, d := range []string{"first", "second", "third"} {
		insert(t, repo, NewSnippet(d))
	}

	got, err := repo.Find(context.Background(), repository.Filter{})
	require.NoError(t, err)
	assert.Equal(t, []string{"first", "second", "third"}, descriptions(got))
}

func testFindByTagsIsOr(t *testing.T, repo repository.SnippetRepository) {
	insert(t, repo, NewSnippet("A", "x"))
	insert(t, repo, NewSnippet("B", "y"))
	insert(t, repo, NewSnippet("C", "z"))
	insert(t, repo, NewSnippet("D", "x", "y"))

	got, err := repo.Find(context.Background(), repository.Filter{Tags: []string{"x", "y"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B", "D"}, descriptions(got), "D matches twice but is listed once")
}

func testFindByTagsNoMatch(t *testing.T, repo repository.SnippetRepository) {
	insert(t, repo, NewSnippet("A", "x"))

	got, err := repo.Find(context.Background(), repository.Filter{Tags: []string{"nope"}})
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func testEmptyTagsStayEmpty(t *testing.T, repo repository.SnippetRepository) {
	s := insert(t, repo, NewSnippet("untagged"))

	got, err := repo.FindByID(context.Background(), s.ID)
	require.NoError(t, err)
	assert.NotNil(t, got.Tags)
	assert.Empty(t, got.Tags)
}

func testUpdateReplaces(t *testing.T, repo repository.SnippetRepository) {
	ctx := context.Background()
	s := insert(t, repo, NewSnippet("before", "old"))

	s.Code = "bmV3"
	s.Description = "after"
	s.Tags = []string{"new", "tags"}
	s.ModifiedAt = Base.Add(time.Minute)
	s.CreatedAt = Base.Add(time.Hour) // ignored: created_at never changes
	require.NoError(t, repo.Update(ctx, s))

	got, err := repo.FindByID(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, "bmV3", got.Code)
	assert.Equal(t, "after", got.Description)
	assert.Equal(t, []string{"new", "tags"}, got.Tags)
	assert.WithinDuration(t, Base.Add(time.Minute), got.ModifiedAt, 0)
	assert.WithinDuration(t, Base, got.CreatedAt, 0)

	// The old tag no longer matches.
	byOld, err := repo.Find(ctx, repository.Filter{Tags: []string{"old"}})
	require.NoError(t, err)
	assert.Empty(t, byOld)
}

func testUpdateNotFound(t *testing.T, repo repository.SnippetRepository) {
	s := NewSnippet("ghost")
	s.ID = MissingID
	assert.ErrorIs(t, repo.Update(context.Background(), s), apperror.ErrNotFound)
}

func testDelete(t *testing.T, repo repository.SnippetRepository) {
	ctx := context.Background()
	keep := insert(t, repo, NewSnippet("keep", "t"))
	gone := insert(t, repo, NewSnippet("gone", "t"))

	require.NoError(t, repo.Delete(ctx, gone.ID))

	_, err := repo.FindByID(ctx, gone.ID)
	assert.ErrorIs(t, err, apperror.ErrNotFound)

	all, err := repo.Find(ctx, repository.Filter{Tags: []string{"t"}})
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, keep.ID, all[0].ID)

	assert.ErrorIs(t, repo.Delete(ctx, gone.ID), apperror.ErrNotFound, "second delete")
}

func testDeleteNotFound(t *testing.T, repo repository.SnippetRepository) {
	assert.ErrorIs(t, repo.Delete(context.Background(), MissingID), apperror.ErrNotFound)
}
