package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/rs/xid"

	"github.com/sakif/code-capsule/internal/apperror"
	"github.com/sakif/code-capsule/internal/model"
	"github.com/sakif/code-capsule/internal/repository"
)

// COMPILE-TIME INTERFACE CHECK:
// If *DB ever stops satisfying repository.SnippetRepository, this line fails to compile.
var _ repository.SnippetRepository = (*DB)(nil)

// querier is the subset of *sql.DB and *sql.Tx the tag helpers need,
// so the same helper works inside and outside a transaction.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// Insert stores a new snippet and assigns its ID.
//
// ID GENERATION WITH xid:
// xid generates globally unique, URL-safe, 20-char IDs that sort by creation time.
// Example: "cv37rs3pp9olc6atsptg"
//
// The snippet row and its tag rows go in together inside one transaction,
// so a reader never sees a snippet with half its tags.
func (db *DB) Insert(ctx context.Context, snippet *model.Snippet) error {
	id := xid.New().String()

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: beginning insert: %w", err)
	}
	defer tx.Rollback() // no-op after Commit

	_, err = tx.ExecContext(ctx,
		`INSERT INTO snippets (id, description, code, language, created_at, modified_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		id,
		snippet.Description,
		snippet.Code,
		snippet.Language,
		snippet.CreatedAt.UTC(),
		snippet.ModifiedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("sqlite: inserting snippet: %w", err)
	}

	if err := writeTags(ctx, tx, id, snippet.Tags); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: committing insert: %w", err)
	}

	snippet.ID = id
	return nil
}

// FindByID retrieves a single snippet by its ID.
//
// sql.ErrNoRows is NOT really an error. It just means "no matching row exists."
// We translate it to our app's NotFound error so the handler knows to return 404.
func (db *DB) FindByID(ctx context.Context, id string) (*model.Snippet, error) {
	var snippet model.Snippet

	err := db.conn.QueryRowContext(ctx,
		`SELECT id, description, code, language, created_at, modified_at
		 FROM snippets
		 WHERE id = ?`,
		id,
	).Scan(
		&snippet.ID,
		&snippet.Description,
		&snippet.Code,
		&snippet.Language,
		&snippet.CreatedAt,
		&snippet.ModifiedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("snippet", id)
		}
		return nil, fmt.Errorf("sqlite: getting snippet %s: %w", id, err)
	}

	snippets := []model.Snippet{snippet}
	if err := loadTags(ctx, db.conn, snippets); err != nil {
		return nil, err
	}

	return &snippets[0], nil
}

// Find lists snippets in insertion order (rowid), optionally narrowed to those
// carrying any of filter.Tags.
//
// The tag match is a sub-select against the indexed snippet_tags table:
//
//	WHERE id IN (SELECT snippet_id FROM snippet_tags WHERE tag IN (?, ?))
//
// IN (...) with a sub-select is a set test, so a snippet that matches two of the
// requested tags still comes back once.
func (db *DB) Find(ctx context.Context, filter repository.Filter) ([]model.Snippet, error) {
	query := `SELECT id, description, code, language, created_at, modified_at FROM snippets`
	var args []any
	if len(filter.Tags) > 0 {
		query += ` WHERE id IN (SELECT snippet_id FROM snippet_tags WHERE tag IN (` +
			placeholders(len(filter.Tags)) + `))`
		for _, tag := range filter.Tags {
			args = append(args, tag)
		}
	}
	query += ` ORDER BY rowid`

	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing snippets: %w", err)
	}
	// CRITICAL: always close rows when done! An open *sql.Rows holds a pool connection.
	defer rows.Close()

	snippets := make([]model.Snippet, 0)
	for rows.Next() {
		var s model.Snippet
		if err := rows.Scan(
			&s.ID, &s.Description, &s.Code, &s.Language,
			&s.CreatedAt, &s.ModifiedAt,
		); err != nil {
			return nil, fmt.Errorf("sqlite: scanning snippet row: %w", err)
		}
		snippets = append(snippets, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating snippets: %w", err)
	}
	// Close before loading tags: with a single-connection pool (":memory:")
	// the next query would otherwise wait for this one forever.
	rows.Close()

	if err := loadTags(ctx, db.conn, snippets); err != nil {
		return nil, err
	}

	return snippets, nil
}

// Update replaces a stored snippet's fields and tags.
//
// RowsAffected() == 0 means the WHERE clause matched nothing → not found.
// id and created_at are never written here; they are immutable.
func (db *DB) Update(ctx context.Context, snippet *model.Snippet) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: beginning update: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx,
		`UPDATE snippets
		 SET description = ?, code = ?, language = ?, modified_at = ?
		 WHERE id = ?`,
		snippet.Description,
		snippet.Code,
		snippet.Language,
		snippet.ModifiedAt.UTC(),
		snippet.ID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: updating snippet %s: %w", snippet.ID, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return apperror.NotFound("snippet", snippet.ID)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM snippet_tags WHERE snippet_id = ?`, snippet.ID); err != nil {
		return fmt.Errorf("sqlite: clearing tags of %s: %w", snippet.ID, err)
	}
	if err := writeTags(ctx, tx, snippet.ID, snippet.Tags); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: committing update: %w", err)
	}
	return nil
}

// Delete removes a snippet and its tags.
//
// Tags are deleted explicitly rather than through ON DELETE CASCADE, so a
// database opened without the foreign_keys pragma is cleaned up the same way.
func (db *DB) Delete(ctx context.Context, id string) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: beginning delete: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM snippet_tags WHERE snippet_id = ?`, id); err != nil {
		return fmt.Errorf("sqlite: deleting tags of %s: %w", id, err)
	}

	result, err := tx.ExecContext(ctx, `DELETE FROM snippets WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlite: deleting snippet %s: %w", id, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return apperror.NotFound("snippet", id)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: committing delete: %w", err)
	}
	return nil
}

// writeTags inserts one row per tag, keeping each tag's position.
func writeTags(ctx context.Context, q querier, snippetID string, tags []string) error {
	for i, tag := range tags {
		if _, err := q.ExecContext(ctx,
			`INSERT INTO snippet_tags (snippet_id, position, tag) VALUES (?, ?, ?)`,
			snippetID, i, tag,
		); err != nil {
			return fmt.Errorf("sqlite: writing tag %q of %s: %w", tag, snippetID, err)
		}
	}
	return nil
}

// loadTags fills in Tags for every snippet in one query.
// Snippets without tags get an empty (non-nil) slice so they encode as [].
func loadTags(ctx context.Context, q querier, snippets []model.Snippet) error {
	if len(snippets) == 0 {
		return nil
	}

	index := make(map[string]int, len(snippets))
	args := make([]any, 0, len(snippets))
	for i := range snippets {
		snippets[i].Tags = []string{}
		index[snippets[i].ID] = i
		args = append(args, snippets[i].ID)
	}

	rows, err := q.QueryContext(ctx,
		`SELECT snippet_id, tag FROM snippet_tags
		 WHERE snippet_id IN (`+placeholders(len(args))+`)
		 ORDER BY snippet_id, position`,
		args...,
	)
	if err != nil {
		return fmt.Errorf("sqlite: loading tags: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var snippetID, tag string
		if err := rows.Scan(&snippetID, &tag); err != nil {
			return fmt.Errorf("sqlite: scanning tag row: %w", err)
		}
		i := index[snippetID]
		snippets[i].Tags = append(snippets[i].Tags, tag)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("sqlite: iterating tags: %w", err)
	}
	return nil
}

// placeholders returns "?, ?, ?" for n parameters.
func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}
