// Copyright 2024 AI SA Assistant Project
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package knowledge

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	_ "github.com/mattn/go-sqlite3"
)

// Catalog is a sqlite-backed local copy of the knowledge base
type Catalog struct {
	db *sql.DB
}

// NewCatalog opens (or creates) the catalog database at dbPath
func NewCatalog(dbPath string) (*Catalog, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	catalog := &Catalog{db: db}

	if err := catalog.initSchema(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return catalog, nil
}

// Close closes the database connection
func (c *Catalog) Close() error {
	return c.db.Close()
}

// Ping verifies the database is reachable
func (c *Catalog) Ping(ctx context.Context) error {
	return c.db.PingContext(ctx)
}

func (c *Catalog) initSchema() error {
	query := `
		CREATE TABLE IF NOT EXISTS documents (
			id TEXT PRIMARY KEY,
			title TEXT,
			content TEXT,
			category TEXT,
			service_type TEXT,
			description TEXT,
			source TEXT,
			type TEXT,
			tags TEXT,
			created_date TEXT,
			metadata TEXT,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`

	_, err := c.db.Exec(query)
	return err
}

// Upsert validates and stores a document, replacing any previous version
func (c *Catalog) Upsert(ctx context.Context, doc Document) error {
	if err := doc.Validate(); err != nil {
		return err
	}
	return upsertDocument(ctx, c.db, doc)
}

// UpsertAll stores every document in a single transaction
func (c *Catalog) UpsertAll(ctx context.Context, docs []Document) error {
	if err := (Batch{Value: docs}).Validate(); err != nil {
		return err
	}

	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	for _, doc := range docs {
		if err := upsertDocument(ctx, tx, doc); err != nil {
			_ = tx.Rollback()
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit documents: %w", err)
	}
	return nil
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func upsertDocument(ctx context.Context, db execer, doc Document) error {
	tags, err := json.Marshal(doc.Tags)
	if err != nil {
		return fmt.Errorf("failed to encode tags: %w", err)
	}

	var metadata []byte
	if len(doc.Metadata) > 0 {
		if metadata, err = json.Marshal(doc.Metadata); err != nil {
			return fmt.Errorf("failed to encode metadata: %w", err)
		}
	}

	query := `
		INSERT OR REPLACE INTO documents
			(id, title, content, category, service_type, description, source, type, tags, created_date, metadata)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = db.ExecContext(ctx, query,
		doc.ID, doc.Title, doc.Content, doc.Category, doc.ServiceType, doc.Description,
		doc.Source, doc.Type, string(tags), doc.CreatedDate, string(metadata))
	if err != nil {
		return fmt.Errorf("failed to upsert document %s: %w", doc.ID, err)
	}

	return nil
}

const selectColumns = "SELECT id, title, content, category, service_type, description, source, type, tags, created_date, metadata FROM documents"

// Get returns the document with the given id, or nil when absent
func (c *Catalog) Get(ctx context.Context, id string) (*Document, error) {
	row := c.db.QueryRowContext(ctx, selectColumns+" WHERE id = ?", id)

	doc, err := scanDocument(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to scan document: %w", err)
	}
	return &doc, nil
}

// All returns every document ordered by id
func (c *Catalog) All(ctx context.Context) ([]Document, error) {
	return c.query(ctx, selectColumns+" ORDER BY id")
}

// Count returns the number of stored documents
func (c *Catalog) Count(ctx context.Context) (int, error) {
	var n int
	if err := c.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM documents").Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count documents: %w", err)
	}
	return n, nil
}

// Search returns up to limit documents matching any query term, best matches first
func (c *Catalog) Search(ctx context.Context, query string, limit int) ([]Document, error) {
	terms := searchTerms(query)
	if len(terms) == 0 {
		return nil, nil
	}

	var conditions []string
	var args []interface{}
	for _, term := range terms {
		conditions = append(conditions,
			"(LOWER(title) LIKE ? OR LOWER(description) LIKE ? OR LOWER(content) LIKE ? OR LOWER(tags) LIKE ?)")
		pattern := "%" + term + "%"
		args = append(args, pattern, pattern, pattern, pattern)
	}

	docs, err := c.query(ctx, selectColumns+" WHERE "+strings.Join(conditions, " OR "), args...)
	if err != nil {
		return nil, err
	}

	scores := make(map[string]int, len(docs))
	for _, doc := range docs {
		scores[doc.ID] = matchScore(doc, terms)
	}
	sort.SliceStable(docs, func(i, j int) bool {
		if scores[docs[i].ID] != scores[docs[j].ID] {
			return scores[docs[i].ID] > scores[docs[j].ID]
		}
		return docs[i].ID < docs[j].ID
	})

	if limit > 0 && len(docs) > limit {
		docs = docs[:limit]
	}
	return docs, nil
}

func (c *Catalog) query(ctx context.Context, query string, args ...interface{}) ([]Document, error) {
	rows, err := c.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query documents: %w", err)
	}
	defer rows.Close()

	var docs []Document
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan document: %w", err)
		}
		docs = append(docs, doc)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating document rows: %w", err)
	}

	return docs, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanDocument(row scanner) (Document, error) {
	var doc Document
	var category, serviceType, description, source, docType, tags, created, metadata sql.NullString

	err := row.Scan(&doc.ID, &doc.Title, &doc.Content, &category, &serviceType, &description,
		&source, &docType, &tags, &created, &metadata)
	if err != nil {
		return Document{}, err
	}

	doc.Category = category.String
	doc.ServiceType = serviceType.String
	doc.Description = description.String
	doc.Source = source.String
	doc.Type = docType.String
	doc.CreatedDate = created.String

	if tags.String != "" {
		if err := json.Unmarshal([]byte(tags.String), &doc.Tags); err != nil {
			return Document{}, fmt.Errorf("invalid tags for %s: %w", doc.ID, err)
		}
	}
	if metadata.String != "" {
		if err := json.Unmarshal([]byte(metadata.String), &doc.Metadata); err != nil {
			return Document{}, fmt.Errorf("invalid metadata for %s: %w", doc.ID, err)
		}
	}

	return doc, nil
}

var stopWords = map[string]bool{
	"the": true, "and": true, "for": true, "what": true, "about": true, "with": true,
	"are": true, "how": true, "our": true, "tell": true, "show": true, "does": true,
	"you": true, "this": true, "that": true, "from": true,
}

func searchTerms(query string) []string {
	seen := make(map[string]bool)
	var terms []string
	for _, word := range strings.FieldsFunc(strings.ToLower(query), func(r rune) bool {
		return !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9' || r == '-' || r == '_')
	}) {
		if len(word) < 3 || stopWords[word] || seen[word] {
			continue
		}
		seen[word] = true
		terms = append(terms, word)
	}
	return terms
}

func matchScore(doc Document, terms []string) int {
	haystack := strings.ToLower(strings.Join([]string{
		doc.Title, doc.Description, doc.Content, strings.Join(doc.Tags, " "),
	}, " "))
	title := strings.ToLower(doc.Title)

	score := 0
	for _, term := range terms {
		if strings.Contains(title, term) {
			score += 2
		}
		if strings.Contains(haystack, term) {
			score++
		}
	}
	return score
}
