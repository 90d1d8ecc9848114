package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/nerrad567/gray-logic-insteon/internal/insteon"
)

// DocumentVersion is the current persisted document layout.
const DocumentVersion = 1

// File permission constants.
const (
	dirPermissions  = 0750
	filePermissions = 0600
)

// ErrCorruptDocument is returned when a stored link database cannot be decoded.
var ErrCorruptDocument = errors.New("db: corrupt link database document")

// Document is the persisted form of one mirror.
type Document struct {
	Version int             `json:"version"`
	Address insteon.Address `json:"address"`
	Entries []insteon.Entry `json:"entries"`
}

// Store persists mirror documents by path.
type Store interface {
	// Read returns the document at path, or (nil, nil) if none exists.
	Read(ctx context.Context, path string) (*Document, error)

	// Write replaces the document at path.
	Write(ctx context.Context, path string, doc *Document) error
}

// FileStore keeps one JSON file per endpoint.
type FileStore struct{}

// Read implements Store.
func (FileStore) Read(_ context.Context, path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrCorruptDocument, path, err)
	}
	return &doc, nil
}

// Write implements Store. The file is replaced atomically via a temp file.
func (FileStore) Write(_ context.Context, path string, doc *Document) error {
	if err := os.MkdirAll(filepath.Dir(path), dirPermissions); err != nil {
		return fmt.Errorf("creating storage directory: %w", err)
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding link database: %w", err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, filePermissions); err != nil {
		return fmt.Errorf("writing %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp) //nolint:errcheck // best effort cleanup
		return fmt.Errorf("replacing %s: %w", path, err)
	}
	return nil
}
