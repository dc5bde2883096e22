// Package postgres implements repository.SnippetRepository on PostgreSQL via pgx.
//
// Postgres has a native array type, so a snippet maps to one row with a TEXT[]
// tags column. A GIN index on that column serves the tag filter, which uses the
// array overlap operator:
//
//	WHERE tags && $1   -- true when the two arrays share at least one element
//
// The pool is pgx's own (pgxpool), not database/sql, so TEXT[] scans straight
// into a []string.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/xid"

	"github.com/sakif/code-capsule/internal/apperror"
	"github.com/sakif/code-capsule/internal/model"
	"github.com/sakif/code-capsule/internal/repository"
)

var _ repository.SnippetRepository = (*Store)(nil)

type Store struct {
	pool *pgxpool.Pool
}

// New connects to dsn (a postgres:// URL), verifies the connection and
// creates the schema if needed.
func New(ctx context.Context, dsn string) (*Store, error) {
	pool, err := pgxpool.New(ctx, strings.TrimSpace(dsn))
	if err != nil {
		return nil, fmt.Errorf("postgres: opening pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres: pinging database: %w", err)
	}

	s := &Store{pool: pool}
	if err := s.migrate(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres: running migrations: %w", err)
	}
	return s, nil
}

func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// migrate creates the table and indexes. seq records insertion order,
// since xid strings alone only order to the second.
func (s *Store) migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS snippets (
			seq         BIGSERIAL,
			id          TEXT PRIMARY KEY,
			description TEXT NOT NULL,
			code        TEXT NOT NULL,
			language    TEXT NOT NULL,
			tags        TEXT[] NOT NULL DEFAULT '{}',
			created_at  TIMESTAMPTZ NOT NULL,
			modified_at TIMESTAMPTZ NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_snippets_tags ON snippets USING GIN (tags);
		CREATE INDEX IF NOT EXISTS idx_snippets_seq ON snippets (seq);
	`)
	return err
}

func (s *Store) Insert(ctx context.Context, snippet *model.Snippet) error {
	id := xid.New().String()
	_, err := s.pool.Exec(ctx,
		`INSERT INTO snippets (id, description, code, language, tags, created_at, modified_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		id,
		snippet.Description,
		snippet.Code,
		snippet.Language,
		nonNil(snippet.Tags),
		snippet.CreatedAt,
		snippet.ModifiedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: inserting snippet: %w", err)
	}
	snippet.ID = id
	return nil
}

func (s *Store) FindByID(ctx context.Context, id string) (*model.Snippet, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, description, code, language, tags, created_at, modified_at
		 FROM snippets WHERE id = $1`,
		id,
	)
	snippet, err := scanSnippet(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperror.NotFound("snippet", id)
		}
		return nil, fmt.Errorf("postgres: getting snippet %s: %w", id, err)
	}
	return &snippet, nil
}

func (s *Store) Find(ctx context.Context, filter repository.Filter) ([]model.Snippet, error) {
	query := `SELECT id, description, code, language, tags, created_at, modified_at FROM snippets`
	var args []any
	if len(filter.Tags) > 0 {
		query += ` WHERE tags && $1`
		args = append(args, filter.Tags)
	}
	query += ` ORDER BY seq`

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: listing snippets: %w", err)
	}
	defer rows.Close()

	snippets := make([]model.Snippet, 0)
	for rows.Next() {
		snippet, err := scanSnippet(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scanning snippet row: %w", err)
		}
		snippets = append(snippets, snippet)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: iterating snippets: %w", err)
	}
	return snippets, nil
}

func (s *Store) Update(ctx context.Context, snippet *model.Snippet) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE snippets
		 SET description = $1, code = $2, language = $3, tags = $4, modified_at = $5
		 WHERE id = $6`,
		snippet.Description,
		snippet.Code,
		snippet.Language,
		nonNil(snippet.Tags),
		snippet.ModifiedAt,
		snippet.ID,
	)
	if err != nil {
		return fmt.Errorf("postgres: updating snippet %s: %w", snippet.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return apperror.NotFound("snippet", snippet.ID)
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM snippets WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("postgres: deleting snippet %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return apperror.NotFound("snippet", id)
	}
	return nil
}

func scanSnippet(row pgx.Row) (model.Snippet, error) {
	var s model.Snippet
	err := row.Scan(&s.ID, &s.Description, &s.Code, &s.Language, &s.Tags, &s.CreatedAt, &s.ModifiedAt)
	s.Tags = nonNil(s.Tags)
	// timestamptz scans into the process's local zone.
	s.CreatedAt = s.CreatedAt.UTC()
	s.ModifiedAt = s.ModifiedAt.UTC()
	return s, err
}

func nonNil(tags []string) []string {
	if tags == nil {
		return []string{}
	}
	return tags
}
