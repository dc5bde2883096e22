package client

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/samber/lo"

	"github.com/sakif/code-capsule/internal/model"
)

// ErrUnknownSnippet is returned for an id the Library has not loaded.
var ErrUnknownSnippet = errors.New("unknown snippet")

// Library is the in-memory snippet collection behind a front-end.
//
// Snippets held here have Code decoded to raw text. The collection is replaced
// wholesale by Refresh, which every successful mutation calls. A failed call
// leaves the previous collection in place.
type Library struct {
	api *Client

	mu       sync.RWMutex
	snippets []model.Snippet
}

func NewLibrary(api *Client) *Library {
	return &Library{api: api, snippets: []model.Snippet{}}
}

// Refresh fetches the full collection and decodes every snippet.
func (l *Library) Refresh(ctx context.Context) error {
	wire, err := l.api.List(ctx, nil)
	if err != nil {
		return fmt.Errorf("loading snippets: %w", err)
	}

	decoded := lo.Map(wire, func(s model.Snippet, _ int) model.Snippet {
		s.Code = DecodeCode(s.Code)
		return s
	})

	l.mu.Lock()
	l.snippets = decoded
	l.mu.Unlock()
	return nil
}

// Snippets returns a copy of the collection in server order.
func (l *Library) Snippets() []model.Snippet {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return lo.Map(l.snippets, func(s model.Snippet, _ int) model.Snippet { return s.Clone() })
}

// Get returns the snippet with id.
func (l *Library) Get(id string) (model.Snippet, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	s, ok := lo.Find(l.snippets, func(s model.Snippet) bool { return s.ID == id })
	if !ok {
		return model.Snippet{}, false
	}
	return s.Clone(), true
}

// Tags is every tag in use, deduplicated and sorted.
func (l *Library) Tags() []string {
	l.mu.RLock()
	all := lo.FlatMap(l.snippets, func(s model.Snippet, _ int) []string { return s.Tags })
	l.mu.RUnlock()

	tags := lo.Uniq(all)
	sort.Strings(tags)
	return tags
}

// Filter returns the snippets whose description or code contains search
// (case-insensitive) and which carry every one of tags. Newest modification first.
func (l *Library) Filter(search string, tags []string) []model.Snippet {
	needle := strings.ToLower(search)

	l.mu.RLock()
	matched := lo.FilterMap(l.snippets, func(s model.Snippet, _ int) (model.Snippet, bool) {
		if !strings.Contains(strings.ToLower(s.Description), needle) &&
			!strings.Contains(strings.ToLower(s.Code), needle) {
			return s, false
		}
		if !lo.Every(s.Tags, tags) {
			return s, false
		}
		return s.Clone(), true
	})
	l.mu.RUnlock()

	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].ModifiedAt.After(matched[j].ModifiedAt)
	})
	return matched
}

// Create validates the form, saves it and reloads the collection.
// The returned snippet has its code decoded.
func (l *Library) Create(ctx context.Context, form FormData) (*model.Snippet, error) {
	if err := form.Validate(); err != nil {
		return nil, err
	}

	created, err := l.api.Create(ctx, CreateRequest{
		Code:        EncodeCode(form.Code),
		Description: form.Description,
		Language:    form.Language,
		Tags:        nonNil(form.Tags),
	})
	if err != nil {
		return nil, fmt.Errorf("creating snippet: %w", err)
	}
	return l.settle(ctx, created)
}

// Update saves an edited form. Language is fixed at creation, so form.Language
// is only validated, not sent. An empty tag list leaves the stored tags as they are.
func (l *Library) Update(ctx context.Context, id string, form FormData) (*model.Snippet, error) {
	if err := form.Validate(); err != nil {
		return nil, err
	}

	updated, err := l.api.Update(ctx, UpdateRequest{
		ID:          id,
		Code:        EncodeCode(form.Code),
		Description: form.Description,
		Tags:        form.Tags,
	})
	if err != nil {
		return nil, fmt.Errorf("updating snippet %s: %w", id, err)
	}
	return l.settle(ctx, updated)
}

// AddTags appends tags to a snippet.
func (l *Library) AddTags(ctx context.Context, id string, tags []string) (*model.Snippet, error) {
	return l.updateTags(ctx, id, tags, model.OperationAdd)
}

// RemoveTags asks the server to remove tags. The server keeps only the stored
// tags that are also in tags; see the API documentation for PATCH /tags.
func (l *Library) RemoveTags(ctx context.Context, id string, tags []string) (*model.Snippet, error) {
	return l.updateTags(ctx, id, tags, model.OperationRemove)
}

func (l *Library) updateTags(ctx context.Context, id string, tags []string, op model.Operation) (*model.Snippet, error) {
	updated, err := l.api.UpdateTags(ctx, id, tags, op)
	if err != nil {
		return nil, fmt.Errorf("updating tags of %s: %w", id, err)
	}
	return l.settle(ctx, updated)
}

func (l *Library) Delete(ctx context.Context, id string) error {
	if err := l.api.Delete(ctx, id); err != nil {
		return fmt.Errorf("deleting snippet %s: %w", id, err)
	}
	return l.Refresh(ctx)
}

// settle reloads the collection after a successful mutation and returns the
// server's copy of the mutated snippet with its code decoded.
func (l *Library) settle(ctx context.Context, s *model.Snippet) (*model.Snippet, error) {
	if err := l.Refresh(ctx); err != nil {
		return nil, err
	}
	out := s.Clone()
	out.Code = DecodeCode(out.Code)
	return &out, nil
}

func nonNil(tags []string) []string {
	if tags == nil {
		return []string{}
	}
	return tags
}
