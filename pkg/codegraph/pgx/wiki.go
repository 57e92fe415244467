package pgx

import (
	"context"
	"encoding/json"
	"fmt"

	pgxv5 "github.com/jackc/pgx/v5"

	"neograph/pkg/codegraph"
)

// SaveWikiPages replaces the stored wiki of a repository with the given page
// set in a single transaction.
func (s *GraphDBStore) SaveWikiPages(ctx context.Context, repoID string, pages []codegraph.WikiPage) error {
	tx, err := s.conn.Begin(ctx)
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM wiki_pages WHERE repo_id = $1::uuid`, repoID); err != nil {
		return fmt.Errorf("clearing previous wiki: %w", err)
	}

	for _, page := range pages {
		diagrams, err := json.Marshal(page.Diagrams)
		if err != nil {
			return fmt.Errorf("encoding diagrams of %q: %w", page.Slug, err)
		}
		_, err = tx.Exec(ctx, `
			INSERT INTO wiki_pages (repo_id, slug, title, content, page_order, parent_slug, diagrams)
			VALUES ($1::uuid, $2, $3, $4, $5, $6, $7)
		`, repoID, page.Slug, page.Title, page.Content, page.Order, page.ParentSlug, diagrams)
		if err != nil {
			return fmt.Errorf("inserting page %q: %w", page.Slug, err)
		}
	}

	return tx.Commit(ctx)
}

// WikiNavigation returns the stored page listing of a repository without
// content, ordered for display.
func (s *GraphDBStore) WikiNavigation(ctx context.Context, repoID string) ([]codegraph.WikiNavEntry, error) {
	rows, err := s.conn.Query(ctx, `
		SELECT slug, title, page_order, parent_slug
		FROM wiki_pages
		WHERE repo_id = $1::uuid
		ORDER BY page_order, slug
	`, repoID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := make([]codegraph.WikiNavEntry, 0)
	for rows.Next() {
		var entry codegraph.WikiNavEntry
		if err := rows.Scan(&entry.Slug, &entry.Title, &entry.Order, &entry.ParentSlug); err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

// WikiPage loads one stored page by slug. Returns (nil, nil) when the page
// does not exist.
func (s *GraphDBStore) WikiPage(ctx context.Context, repoID, slug string) (*codegraph.WikiPage, error) {
	var page codegraph.WikiPage
	var diagrams []byte
	err := s.conn.QueryRow(ctx, `
		SELECT slug, title, content, page_order, parent_slug, diagrams
		FROM wiki_pages
		WHERE repo_id = $1::uuid AND slug = $2
	`, repoID, slug).Scan(&page.Slug, &page.Title, &page.Content, &page.Order, &page.ParentSlug, &diagrams)
	if err == pgxv5.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if len(diagrams) > 0 {
		if err := json.Unmarshal(diagrams, &page.Diagrams); err != nil {
			return nil, fmt.Errorf("decoding diagrams of %q: %w", slug, err)
		}
	}
	return &page, nil
}
