package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/nerrad567/gray-logic-insteon/internal/infrastructure/database"
	"github.com/nerrad567/gray-logic-insteon/internal/insteon"
)

// SQLiteStore keeps mirror documents in the link_databases and link_records
// tables. The path is used as the document key, so the same layout as
// FileStore works unchanged.
//
// The schema is created by the database migrations; call db.Migrate first.
type SQLiteStore struct {
	db *database.DB
}

// NewSQLiteStore creates a store on an open, migrated database.
func NewSQLiteStore(db *database.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// Read implements Store.
func (s *SQLiteStore) Read(ctx context.Context, path string) (*Document, error) {
	var (
		version int
		owner   int64
	)
	err := s.db.QueryRowContext(ctx,
		"SELECT version, address FROM link_databases WHERE db_path = ?", path,
	).Scan(&version, &owner)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading link database %s: %w", path, err)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT addr, grp, is_controller, data
		FROM link_records
		WHERE db_path = ?
		ORDER BY position`, path)
	if err != nil {
		return nil, fmt.Errorf("querying link records: %w", err)
	}
	defer rows.Close()

	ownerAddr, err := insteon.AddressFromInt(owner)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrCorruptDocument, path, err)
	}
	doc := &Document{Version: version, Address: ownerAddr}
	for rows.Next() {
		var (
			addr  int64
			group int64
			ctrl  int64
			data  []byte
		)
		if err := rows.Scan(&addr, &group, &ctrl, &data); err != nil {
			return nil, fmt.Errorf("scanning link record: %w", err)
		}

		a, err := insteon.AddressFromInt(addr)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrCorruptDocument, path, err)
		}
		if group < 0 || group > 0xff {
			return nil, fmt.Errorf("%w: %s: group %d out of range", ErrCorruptDocument, path, group)
		}
		e, err := insteon.NewEntry(a, uint8(group), ctrl != 0, data)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrCorruptDocument, path, err)
		}
		doc.Entries = append(doc.Entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating link records: %w", err)
	}
	return doc, nil
}

// Write implements Store. The previous document is replaced in one transaction.
func (s *SQLiteStore) Write(ctx context.Context, path string, doc *Document) error {
	return s.db.WithTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO link_databases (db_path, version, address, updated_at) VALUES (?, ?, ?, ?)
			ON CONFLICT(db_path) DO UPDATE SET
				version = excluded.version,
				address = excluded.address,
				updated_at = excluded.updated_at`,
			path, doc.Version, int64(doc.Address.ID()), time.Now().UTC().Format(time.RFC3339),
		); err != nil {
			return fmt.Errorf("upserting link database: %w", err)
		}

		if _, err := tx.ExecContext(ctx, "DELETE FROM link_records WHERE db_path = ?", path); err != nil {
			return fmt.Errorf("clearing link records: %w", err)
		}

		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO link_records (db_path, position, addr, grp, is_controller, data)
			VALUES (?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("preparing insert: %w", err)
		}
		defer stmt.Close()

		for i, e := range doc.Entries {
			ctrl := 0
			if e.IsController {
				ctrl = 1
			}
			if _, err := stmt.ExecContext(ctx, path, i, int64(e.Addr.ID()), int64(e.Group), ctrl, e.Data[:]); err != nil {
				return fmt.Errorf("inserting link record %d: %w", i, err)
			}
		}
		return nil
	})
}
