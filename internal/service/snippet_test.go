package service

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/code-capsule/internal/apperror"
	"github.com/sakif/code-capsule/internal/model"
	"github.com/sakif/code-capsule/internal/repository"
	"github.com/sakif/code-capsule/internal/repository/memory"
)

// =========================================================================
// TEST DOUBLES
// =========================================================================
//
// The in-memory store is a real repository.SnippetRepository, so most tests use
// it directly. failingRepo simulates a store that is down, which is hard to
// trigger with a real database.

type failingRepo struct {
	err error
}

func (f failingRepo) Insert(context.Context, *model.Snippet) error { return f.err }
func (f failingRepo) FindByID(context.Context, string) (*model.Snippet, error) {
	return nil, f.err
}
func (f failingRepo) Find(context.Context, repository.Filter) ([]model.Snippet, error) {
	return nil, f.err
}
func (f failingRepo) Update(context.Context, *model.Snippet) error { return f.err }
func (f failingRepo) Delete(context.Context, string) error { return f.err }

var errStoreDown = errors.New("connection refused")

// frozen is the instant every test clock starts at.
var frozen = time.Date(2024, 5, 1, 9, 30, 0, 0, time.UTC)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

// newTestService wires the service to a fresh in-memory store and a clock that
// never moves, so any modified_at increase comes from the service itself.
func newTestService(t *testing.T) (*SnippetService, *memory.Store) {
	t.Helper()
	store := memory.New()
	svc := NewSnippetService(store, testLogger(), WithClock(func() time.Time { return frozen }))
	return svc, store
}

func createSnippet(t *testing.T, svc *SnippetService, description string, tags ...string) *model.Snippet {
	t.Helper()
	s, err := svc.Create(context.Background(), CreateInput{
		Code:        "cHJpbnQoJ2hpJyk=",
		Description: description,
		Language:    "python",
		Tags:        tags,
	})
	require.NoError(t, err)
	return s
}

// assertAppError checks the sentinel and the client-facing message.
func assertAppError(t *testing.T, err error, sentinel error, message string) {
	t.Helper()
	require.Error(t, err)
	assert.ErrorIs(t, err, sentinel)

	var appErr *apperror.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, message, appErr.Message)
}

// =========================================================================
// CREATE
// =========================================================================

func TestCreate_Success(t *testing.T) {
	svc, store := newTestService(t)

	s, err := svc.Create(context.Background(), CreateInput{
		Code:        "cHJpbnQoJ2hpJyk=",
		Description: "greeting",
		Language:    "python",
		Tags:        []string{"io", "basics"},
	})
	require.NoError(t, err)

	assert.NotEmpty(t, s.ID)
	assert.Equal(t, "cHJpbnQoJ2hpJyk=", s.Code, "code is stored exactly as sent")
	assert.Equal(t, "greeting", s.Description)
	assert.Equal(t, "python", s.Language)
	assert.Equal(t, []string{"io", "basics"}, s.Tags)
	assert.Equal(t, frozen, s.CreatedAt)
	assert.Equal(t, s.CreatedAt, s.ModifiedAt, "a new snippet has equal timestamps")
	assert.Equal(t, 1, store.Len())

	stored, err := store.FindByID(context.Background(), s.ID)
	require.NoError(t, err)
	assert.Equal(t, *s, *stored)
}

func TestCreate_NoTags(t *testing.T) {
	svc, _ := newTestService(t)

	s := createSnippet(t, svc, "untagged")
	assert.NotNil(t, s.Tags)
	assert.Empty(t, s.Tags)
}

func TestCreate_KeepsWhitespace(t *testing.T) {
	svc, _ := newTestService(t)

	s, err := svc.Create(context.Background(), CreateInput{Code: " x ", Description: "  d  ", Language: "text"})
	require.NoError(t, err)
	assert.Equal(t, "  d  ", s.Description)
	assert.Equal(t, " x ", s.Code)
}

func TestCreate_MissingFields(t *testing.T) {
	tests := []struct {
		name      string
		in        CreateInput
		wantField string
	}{
		{name: "no code", in: CreateInput{Description: "d", Language: "python"}, wantField: "code"},
		{name: "no description", in: CreateInput{Code: "Yw==", Language: "python"}, wantField: "description"},
		{name: "no language", in: CreateInput{Code: "Yw==", Description: "d"}, wantField: "language"},
		{name: "nothing", in: CreateInput{}, wantField: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, store := newTestService(t)

			_, err := svc.Create(context.Background(), tt.in)
			assertAppError(t, err, apperror.ErrValidation, "Missing fields code, language and description")

			var appErr *apperror.AppError
			require.ErrorAs(t, err, &appErr)
			assert.Equal(t, tt.wantField, appErr.Field)
			assert.Zero(t, store.Len(), "nothing is persisted")
		})
	}
}

func TestCreate_StoreFailure(t *testing.T) {
	svc := NewSnippetService(failingRepo{err: errStoreDown}, testLogger())

	_, err := svc.Create(context.Background(), CreateInput{Code: "Yw==", Description: "d", Language: "c"})
	require.Error(t, err)
	assert.ErrorIs(t, err, errStoreDown)
	assert.NotErrorIs(t, err, apperror.ErrValidation)
	assert.NotErrorIs(t, err, apperror.ErrNotFound)
}

// =========================================================================
// LIST
// =========================================================================

func TestList(t *testing.T) {
	svc, _ := newTestService(t)
	createSnippet(t, svc, "A", "x")
	createSnippet(t, svc, "B", "y")
	createSnippet(t, svc, "C", "z")

	tests := []struct {
		name string
		tags []string
		want []string
	}{
		{name: "no filter", tags: nil, want: []string{"A", "B", "C"}},
		{name: "empty filter", tags: []string{}, want: []string{"A", "B", "C"}},
		{name: "one tag", tags: []string{"y"}, want: []string{"B"}},
		{name: "OR of tags", tags: []string{"x", "y"}, want: []string{"A", "B"}},
		{name: "no match", tags: []string{"nope"}, want: []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := svc.List(context.Background(), tt.tags)
			require.NoError(t, err)
			require.NotNil(t, got)

			descs := make([]string, 0, len(got))
			for _, s := range got {
				descs = append(descs, s.Description)
			}
			assert.Equal(t, tt.want, descs)
		})
	}
}

func TestList_StoreFailure(t *testing.T) {
	svc := NewSnippetService(failingRepo{err: errStoreDown}, testLogger())

	_, err := svc.List(context.Background(), nil)
	assert.ErrorIs(t, err, errStoreDown)
}

// =========================================================================
// UPDATE
// =========================================================================

func TestUpdate_PartialKeepsOtherFields(t *testing.T) {
	svc, _ := newTestService(t)
	orig := createSnippet(t, svc, "before", "a", "b")

	got, err := svc.Update(context.Background(), UpdateInput{ID: orig.ID, Description: "after"})
	require.NoError(t, err)

	assert.Equal(t, "after", got.Description)
	assert.Equal(t, orig.Code, got.Code)
	assert.Equal(t, orig.Language, got.Language)
	assert.Equal(t, []string{"a", "b"}, got.Tags, "empty tags leave tags unchanged")
	assert.Equal(t, orig.CreatedAt, got.CreatedAt)
	assert.True(t, got.ModifiedAt.After(orig.ModifiedAt), "modified_at strictly increases")
}

func TestUpdate_AllFields(t *testing.T) {
	svc, store := newTestService(t)
	orig := createSnippet(t, svc, "before", "a")

	_, err := svc.Update(context.Background(), UpdateInput{
		ID:          orig.ID,
		Code:        "bmV3",
		Description: "after",
		Tags:        []string{"z"},
	})
	require.NoError(t, err)

	stored, err := store.FindByID(context.Background(), orig.ID)
	require.NoError(t, err)
	assert.Equal(t, "bmV3", stored.Code)
	assert.Equal(t, "after", stored.Description)
	assert.Equal(t, []string{"z"}, stored.Tags)
	assert.Equal(t, "python", stored.Language)
}

func TestUpdate_NothingSuppliedStillBumpsModifiedAt(t *testing.T) {
	svc, _ := newTestService(t)
	orig := createSnippet(t, svc, "same")

	first, err := svc.Update(context.Background(), UpdateInput{ID: orig.ID})
	require.NoError(t, err)
	second, err := svc.Update(context.Background(), UpdateInput{ID: orig.ID})
	require.NoError(t, err)

	assert.True(t, first.ModifiedAt.After(orig.ModifiedAt))
	assert.True(t, second.ModifiedAt.After(first.ModifiedAt))
	assert.Equal(t, "same", second.Description)
}

func TestUpdate_ClockMovesForward(t *testing.T) {
	now := frozen
	svc := NewSnippetService(memory.New(), testLogger(), WithClock(func() time.Time { return now }))
	orig := createSnippet(t, svc, "clock")

	now = frozen.Add(time.Hour)
	got, err := svc.Update(context.Background(), UpdateInput{ID: orig.ID})
	require.NoError(t, err)
	assert.Equal(t, frozen.Add(time.Hour), got.ModifiedAt)
}

func TestUpdate_MissingID(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.Update(context.Background(), UpdateInput{Description: "x"})
	assertAppError(t, err, apperror.ErrValidation, "Missing parameter id")
}

func TestUpdate_NotFound(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.Update(context.Background(), UpdateInput{ID: "nope", Description: "x"})
	assertAppError(t, err, apperror.ErrNotFound, "Document does not exist")
}

func TestUpdate_StoreFailure(t *testing.T) {
	svc := NewSnippetService(failingRepo{err: errStoreDown}, testLogger())

	_, err := svc.Update(context.Background(), UpdateInput{ID: "x"})
	assert.ErrorIs(t, err, errStoreDown)
	assert.NotErrorIs(t, err, apperror.ErrNotFound)
}

// =========================================================================
// UPDATE TAGS
// =========================================================================

func TestUpdateTags(t *testing.T) {
	tests := []struct {
		name      string
		existing  []string
		operation string
		tags      []string
		want      []string
	}{
		{
			name:      "add appends",
			existing:  []string{"a"},
			operation: "add",
			tags:      []string{"b", "c"},
			want:      []string{"a", "b", "c"},
		},
		{
			name:      "add keeps duplicates",
			existing:  []string{"a", "b"},
			operation: "add",
			tags:      []string{"b"},
			want:      []string{"a", "b", "b"},
		},
		{
			name:      "remove keeps only listed existing tags",
			existing:  []string{"a", "b", "c"},
			operation: "remove",
			tags:      []string{"b", "x"},
			want:      []string{"b"},
		},
		{
			name:      "remove with no overlap empties the list",
			existing:  []string{"a", "b"},
			operation: "remove",
			tags:      []string{"x"},
			want:      []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, store := newTestService(t)
			orig := createSnippet(t, svc, "tags", tt.existing...)

			got, err := svc.UpdateTags(context.Background(), TagsInput{
				ID:        orig.ID,
				Tags:      tt.tags,
				Operation: tt.operation,
			})
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.Tags)
			assert.True(t, got.ModifiedAt.After(orig.ModifiedAt))

			stored, err := store.FindByID(context.Background(), orig.ID)
			require.NoError(t, err)
			assert.Equal(t, tt.want, stored.Tags)
		})
	}
}

func TestUpdateTags_InvalidOperationStillSaves(t *testing.T) {
	svc, store := newTestService(t)
	orig := createSnippet(t, svc, "tags", "a")

	_, err := svc.UpdateTags(context.Background(), TagsInput{ID: orig.ID, Tags: []string{"b"}, Operation: "rename"})
	assertAppError(t, err, apperror.ErrValidation, "operation rename is an invalid operation")

	stored, err := store.FindByID(context.Background(), orig.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, stored.Tags, "tags untouched")
	assert.True(t, stored.ModifiedAt.After(orig.ModifiedAt), "modified_at was still bumped and saved")
}

func TestUpdateTags_MissingFields(t *testing.T) {
	tests := []struct {
		name string
		in   TagsInput
	}{
		{name: "no id", in: TagsInput{Tags: []string{"a"}, Operation: "add"}},
		{name: "nil tags", in: TagsInput{ID: "x", Operation: "add"}},
		{name: "empty tags", in: TagsInput{ID: "x", Tags: []string{}, Operation: "add"}},
		{name: "no operation", in: TagsInput{ID: "x", Tags: []string{"a"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, _ := newTestService(t)
			_, err := svc.UpdateTags(context.Background(), tt.in)
			assertAppError(t, err, apperror.ErrValidation, "Missing fields id, tags and operation")
		})
	}
}

func TestUpdateTags_NotFound(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.UpdateTags(context.Background(), TagsInput{ID: "nope", Tags: []string{"a"}, Operation: "add"})
	assertAppError(t, err, apperror.ErrNotFound, "Document does not exist")
}

// =========================================================================
// DELETE
// =========================================================================

func TestDelete(t *testing.T) {
	svc, store := newTestService(t)
	s := createSnippet(t, svc, "doomed")

	require.NoError(t, svc.Delete(context.Background(), s.ID))
	assert.Zero(t, store.Len())

	err := svc.Delete(context.Background(), s.ID)
	assertAppError(t, err, apperror.ErrNotFound, "Document does not exist")

	_, err = svc.Update(context.Background(), UpdateInput{ID: s.ID})
	assert.ErrorIs(t, err, apperror.ErrNotFound)
}

func TestDelete_MissingID(t *testing.T) {
	svc, _ := newTestService(t)

	err := svc.Delete(context.Background(), "")
	assertAppError(t, err, apperror.ErrValidation, "Missing field id")
}

func TestDelete_StoreFailure(t *testing.T) {
	svc := NewSnippetService(failingRepo{err: errStoreDown}, testLogger())

	err := svc.Delete(context.Background(), "x")
	assert.ErrorIs(t, err, errStoreDown)
}
