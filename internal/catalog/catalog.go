// Package catalog keeps a local SQLite index of every collection run an
// agent has saved, so multiple collections under one case can be found
// and re-verified later without crawling the output directories.
package catalog

import (
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // database/sql driver
)

const schema = `
CREATE TABLE IF NOT EXISTS collections (
	collection_id TEXT PRIMARY KEY,
	case_id TEXT NOT NULL,
	provider TEXT NOT NULL,
	source_type TEXT NOT NULL,
	manifest_path TEXT NOT NULL,
	manifest_hash TEXT,
	evidence_count INTEGER NOT NULL,
	total_size_bytes INTEGER NOT NULL,
	success INTEGER NOT NULL,
	created_at TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_collections_case ON collections(case_id);
CREATE INDEX IF NOT EXISTS idx_collections_created ON collections(created_at);
`

// Record is one cataloged collection run.
type Record struct {
	CollectionID   string
	CaseID         string
	Provider       string
	SourceType     string
	ManifestPath   string
	ManifestHash   string
	EvidenceCount  int
	TotalSizeBytes int64
	Success        bool
	CreatedAt      string
}

// Store manages the SQLite collection catalog.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the catalog database.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening catalog db: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("setting WAL mode: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Add inserts a collection record. CreatedAt defaults to now.
func (s *Store) Add(rec Record) error {
	if rec.CreatedAt == "" {
		rec.CreatedAt = time.Now().UTC().Format(time.RFC3339)
	}
	_, err := s.db.Exec(
		`INSERT INTO collections (collection_id, case_id, provider, source_type, manifest_path, manifest_hash, evidence_count, total_size_bytes, success, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.CollectionID, rec.CaseID, rec.Provider, rec.SourceType, rec.ManifestPath,
		rec.ManifestHash, rec.EvidenceCount, rec.TotalSizeBytes, rec.Success, rec.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("inserting collection record: %w", err)
	}
	return nil
}

// List returns cataloged collections, newest first, optionally filtered by
// case ID. A limit <= 0 selects a default of 50.
func (s *Store) List(caseID string, limit int) ([]Record, error) {
	query := "SELECT collection_id, case_id, provider, source_type, manifest_path, manifest_hash, evidence_count, total_size_bytes, success, created_at FROM collections"
	var args []any
	if caseID != "" {
		query += " WHERE case_id = ?"
		args = append(args, caseID)
	}
	query += " ORDER BY created_at DESC"
	if limit <= 0 {
		limit = 50
	}
	query += fmt.Sprintf(" LIMIT %d", limit)

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying catalog: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var records []Record
	for rows.Next() {
		var rec Record
		var hash sql.NullString
		if err := rows.Scan(&rec.CollectionID, &rec.CaseID, &rec.Provider, &rec.SourceType,
			&rec.ManifestPath, &hash, &rec.EvidenceCount, &rec.TotalSizeBytes,
			&rec.Success, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}
		rec.ManifestHash = hash.String
		records = append(records, rec)
	}
	return records, rows.Err()
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}
