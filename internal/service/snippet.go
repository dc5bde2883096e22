// Package service contains the business logic layer of the application.
//
// THE THREE-LAYER ARCHITECTURE:
//
//	Handler (HTTP layer)     → parses requests, writes responses
//	Service (Business layer) → validates, enforces rules, orchestrates
//	Repository (Data layer)  → reads/writes to the store
//
// Handlers only know about HTTP (status codes, headers, JSON). The service only
// knows the snippet rules: which fields are required, how partial updates and tag
// operations behave, when modified_at moves. Neither knows which database is behind
// the repository interface.
//
// DEPENDENCY INJECTION:
// SnippetService takes a repository.SnippetRepository (interface), NOT a concrete
// store. Production wires SQLite, Postgres or MongoDB; tests pass the in-memory store.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/samber/lo"

	"github.com/sakif/code-capsule/internal/apperror"
	"github.com/sakif/code-capsule/internal/model"
	"github.com/sakif/code-capsule/internal/repository"
)

// Required field lists, in the order the error messages name them.
var (
	createRequired = []string{"code", "language", "description"}
	tagsRequired   = []string{"id", "tags", "operation"}
)

// CreateInput carries the fields of a new snippet.
//
// STRUCT TAGS FOR VALIDATION:
// `validate:"required"` is read by go-playground/validator. For a string it means
// "not the empty string", which covers both a missing JSON key and "".
type CreateInput struct {
	Code        string   `json:"code"        validate:"required"`
	Description string   `json:"description" validate:"required"`
	Language    string   `json:"language"    validate:"required"`
	Tags        []string `json:"tags"`
}

// UpdateInput is a partial update. Empty Code/Description and empty Tags
// mean "leave unchanged".
type UpdateInput struct {
	ID          string
	Code        string
	Description string
	Tags        []string
}

// TagsInput adds or removes tags. Tags must hold at least one element:
// `required` rejects a nil slice and `min=1` an empty one.
type TagsInput struct {
	ID        string   `json:"id"        validate:"required"`
	Tags      []string `json:"tags"      validate:"required,min=1"`
	Operation string   `json:"operation" validate:"required"`
}

// SnippetService handles business logic for code snippets.
type SnippetService struct {
	repo     repository.SnippetRepository
	logger   *slog.Logger
	validate *validator.Validate
	now      func() time.Time
}

// Option customises a SnippetService.
type Option func(*SnippetService)

// WithClock replaces time.Now. Tests use it to control timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *SnippetService) { s.now = now }
}

// NewSnippetService creates a new SnippetService.
// The caller decides WHICH repository implementation to use.
func NewSnippetService(repo repository.SnippetRepository, logger *slog.Logger, opts ...Option) *SnippetService {
	s := &SnippetService{
		repo:     repo,
		logger:   logger,
		validate: newValidator(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// newValidator reports fields by their JSON names ("code", not "Code"),
// so validation errors read the same as the request body.
func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Create validates and inserts a new snippet.
// Both timestamps are set to the same instant, so created_at == modified_at.
func (s *SnippetService) Create(ctx context.Context, in CreateInput) (*model.Snippet, error) {
	if err := s.check(in, createRequired); err != nil {
		return nil, err
	}

	now := s.timestamp()
	snippet := &model.Snippet{
		Code:        in.Code,
		Description: in.Description,
		Language:    in.Language,
		Tags:        nonNil(in.Tags),
		CreatedAt:   now,
		ModifiedAt:  now,
	}

	if err := s.repo.Insert(ctx, snippet); err != nil {
		s.logger.Error("failed to create snippet",
			slog.String("language", in.Language),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("creating snippet: %w", err)
	}

	s.logger.Info("snippet created",
		slog.String("id", snippet.ID),
		slog.String("language", snippet.Language),
	)

	return snippet, nil
}

// List returns every snippet, or only those carrying at least one of tags.
func (s *SnippetService) List(ctx context.Context, tags []string) ([]model.Snippet, error) {
	snippets, err := s.repo.Find(ctx, repository.Filter{Tags: tags})
	if err != nil {
		s.logger.Error("failed to list snippets",
			slog.Any("tags", tags),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("listing snippets: %w", err)
	}
	return snippets, nil
}

// Update applies a partial update: fetch, overwrite what was supplied, save.
// modified_at moves even when nothing else changed.
func (s *SnippetService) Update(ctx context.Context, in UpdateInput) (*model.Snippet, error) {
	if in.ID == "" {
		return nil, apperror.ValidationFailed("id", "Missing parameter id")
	}

	snippet, err := s.find(ctx, in.ID)
	if err != nil {
		return nil, err
	}

	s.touch(snippet)
	if in.Code != "" {
		snippet.Code = in.Code
	}
	if in.Description != "" {
		snippet.Description = in.Description
	}
	if len(in.Tags) > 0 {
		snippet.Tags = in.Tags
	}

	if err := s.save(ctx, snippet, "failed to update snippet"); err != nil {
		return nil, fmt.Errorf("updating snippet: %w", err)
	}

	s.logger.Info("snippet updated", slog.String("id", snippet.ID))
	return snippet, nil
}

// UpdateTags adds or removes tags.
//
//   - "add" appends the request tags; duplicates are kept.
//   - "remove" keeps only the existing tags that appear in the request list.
//   - anything else still saves the document (with its new modified_at) and then
//     reports the invalid operation as a validation error.
func (s *SnippetService) UpdateTags(ctx context.Context, in TagsInput) (*model.Snippet, error) {
	if err := s.check(in, tagsRequired); err != nil {
		return nil, err
	}

	snippet, err := s.find(ctx, in.ID)
	if err != nil {
		return nil, err
	}

	s.touch(snippet)

	var opErr error
	switch model.Operation(in.Operation) {
	case model.OperationAdd:
		snippet.Tags = append(snippet.Tags, in.Tags...)
	case model.OperationRemove:
		snippet.Tags = lo.Filter(snippet.Tags, func(tag string, _ int) bool {
			return lo.Contains(in.Tags, tag)
		})
	default:
		opErr = apperror.InvalidOperation(in.Operation)
	}

	if err := s.save(ctx, snippet, "failed to update tags"); err != nil {
		return nil, fmt.Errorf("updating tags: %w", err)
	}
	if opErr != nil {
		s.logger.Warn("invalid tag operation",
			slog.String("id", snippet.ID),
			slog.String("operation", in.Operation),
		)
		return nil, opErr
	}

	s.logger.Info("snippet tags updated",
		slog.String("id", snippet.ID),
		slog.String("operation", in.Operation),
		slog.Int("tags", len(snippet.Tags)),
	)
	return snippet, nil
}

// Delete removes a snippet by its ID.
// Returns apperror.ErrNotFound if the snippet doesn't exist.
func (s *SnippetService) Delete(ctx context.Context, id string) error {
	if id == "" {
		return apperror.MissingFields([]string{"id"}, []string{"id"})
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return err
		}
		s.logger.Error("failed to delete snippet",
			slog.String("id", id),
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("deleting snippet: %w", err)
	}

	s.logger.Info("snippet deleted", slog.String("id", id))
	return nil
}

// find loads a snippet. NotFound passes through untouched; anything else is a
// store fault and gets logged.
func (s *SnippetService) find(ctx context.Context, id string) (*model.Snippet, error) {
	snippet, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, err
		}
		s.logger.Error("failed to load snippet",
			slog.String("id", id),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("loading snippet %s: %w", id, err)
	}
	return snippet, nil
}

func (s *SnippetService) save(ctx context.Context, snippet *model.Snippet, msg string) error {
	err := s.repo.Update(ctx, snippet)
	if err != nil && !errors.Is(err, apperror.ErrNotFound) {
		s.logger.Error(msg,
			slog.String("id", snippet.ID),
			slog.String("error", err.Error()),
		)
	}
	return err
}

// check runs struct validation and turns any failure into the
// "Missing fields ..." error naming the required set.
func (s *SnippetService) check(in any, required []string) error {
	err := s.validate.Struct(in)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("validating input: %w", err)
	}
	missing := lo.Map([]validator.FieldError(verrs), func(fe validator.FieldError, _ int) string {
		return fe.Field()
	})
	return apperror.MissingFields(required, missing)
}

// timestamp is "now" at millisecond precision, the resolution every store keeps.
func (s *SnippetService) timestamp() time.Time {
	return s.now().UTC().Truncate(time.Millisecond)
}

// touch bumps modified_at. If the clock has not advanced past the stored value
// (coarse clocks, fast successive writes) it steps one millisecond forward, so
// modified_at strictly increases with every mutation.
func (s *SnippetService) touch(snippet *model.Snippet) {
	ts := s.timestamp()
	if !ts.After(snippet.ModifiedAt) {
		ts = snippet.ModifiedAt.Add(time.Millisecond)
	}
	snippet.ModifiedAt = ts
}

func nonNil(tags []string) []string {
	if tags == nil {
		return []string{}
	}
	return tags
}
