// Package repository declares the persistence contract for snippets.
//
// Each backend lives in its own sub-package (sqlite, postgres, mongo, memory)
// and satisfies SnippetRepository. The service layer only ever sees this interface.
package repository

import (
	"context"

	"github.com/sakif/code-capsule/internal/model"
)

// Filter narrows a Find call. A zero Filter matches every snippet.
type Filter struct {
	// Tags matches snippets carrying at least one of these tags (logical OR).
	Tags []string
}

// SnippetRepository is the document-collection capability the service needs.
//
// Contract shared by every implementation:
//   - Insert assigns snippet.ID; timestamps are the caller's responsibility.
//   - FindByID, Update and Delete return apperror.NotFound for an unknown id.
//   - Update replaces the stored document (all fields except ID and CreatedAt).
//   - Find returns documents in insertion order, never nil.
type SnippetRepository interface {
	Insert(ctx context.Context, snippet *model.Snippet) error
	FindByID(ctx context.Context, id string) (*model.Snippet, error)
	Find(ctx context.Context, filter Filter) ([]model.Snippet, error)
	Update(ctx context.Context, snippet *model.Snippet) error
	Delete(ctx context.Context, id string) error
}
