// Package jsonfile stores the application snapshot as a single JSON document.
//
// ATOMIC WRITES:
// A plain os.WriteFile truncates the file first and then writes it. If the
// process dies in between, the snapshot on disk is half a document and the next
// start loses everything. atomicwriter writes to a temp file in the same
// directory and renames it over the target, so readers only ever see the old
// document or the new one.
package jsonfile

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strings"

	"github.com/moby/sys/atomicwriter"

	"github.com/sakif/price-compare/internal/model"
	"github.com/sakif/price-compare/internal/repository"
)

// compile-time check that *Store implements repository.SnapshotRepository
var _ repository.SnapshotRepository = (*Store)(nil)

const filePerm = 0o644

// Store reads and writes the snapshot file at path.
type Store struct {
	path   string
	logger *slog.Logger
}

// New creates a Store for the given file. The file doesn't have to exist yet.
func New(path string, logger *slog.Logger) *Store {
	return &Store{path: path, logger: logger}
}

// Path returns the snapshot file location.
func (s *Store) Path() string {
	return s.path
}

// Load reads and decodes the snapshot file.
// Returns repository.ErrNoSnapshot if the file does not exist.
func (s *Store) Load(_ context.Context) (*model.Snapshot, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, repository.ErrNoSnapshot
		}
		return nil, fmt.Errorf("jsonfile: reading %s: %w", s.path, err)
	}

	snap, dropped, err := repository.DecodeSnapshot(data)
	if err != nil {
		return nil, fmt.Errorf("jsonfile: %s: %w", s.path, err)
	}
	if len(dropped) > 0 {
		s.logger.Warn("snapshot fields were malformed and reset to empty",
			slog.String("file", s.path),
			slog.String("fields", strings.Join(dropped, ",")),
		)
	}
	return snap, nil
}

// Save encodes the snapshot and atomically replaces the file.
func (s *Store) Save(_ context.Context, snap *model.Snapshot) error {
	data, err := repository.EncodeSnapshot(snap)
	if err != nil {
		return err
	}
	if err := atomicwriter.WriteFile(s.path, data, filePerm); err != nil {
		return fmt.Errorf("jsonfile: writing %s: %w", s.path, err)
	}
	return nil
}

// Close is a no-op; the file is not held open between calls.
func (s *Store) Close() error {
	return nil
}
