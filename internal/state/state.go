// Package state owns the in-memory application state and keeps it durable.
//
// ONE LOCK, ONE SNAPSHOT:
// Carts, users and the cached catalog live in a single model.Snapshot guarded by
// one mutex. Every mutation runs to completion under that lock, including the
// save that follows it, so:
//   - no two read-modify-write operations interleave
//   - saves happen in the same order as the mutations (the last state wins)
//
// Slow work (upstream HTTP calls, bcrypt) must happen OUTSIDE the callbacks
// passed to Read/Update, otherwise every other request waits for it.
package state

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/sakif/price-compare/internal/apperror"
	"github.com/sakif/price-compare/internal/model"
	"github.com/sakif/price-compare/internal/repository"
)

// Store is the single source of truth while the process runs.
type Store struct {
	mu     sync.Mutex
	snap   *model.Snapshot
	repo   repository.SnapshotRepository
	logger *slog.Logger
}

// Open loads the snapshot from repo.
//
// STARTUP RULES:
//   - no snapshot yet        → start empty and write the empty snapshot right away,
//     so the durable copy exists before the first request
//   - unreadable / corrupt   → log it and start empty (not fatal); the next
//     successful save replaces the bad copy
func Open(ctx context.Context, repo repository.SnapshotRepository, logger *slog.Logger) *Store {
	s := &Store{repo: repo, logger: logger}

	snap, err := repo.Load(ctx)
	switch {
	case err == nil:
		logger.Info("loaded persisted state",
			slog.Int("users", len(snap.Users)),
			slog.Int("carts", len(snap.Carts)),
			slog.Int("products", len(snap.Products)),
		)
	case errors.Is(err, repository.ErrNoSnapshot):
		snap = model.NewSnapshot()
		if err := repo.Save(ctx, snap); err != nil {
			logger.Error("failed to write initial snapshot", slog.String("error", err.Error()))
		}
	default:
		logger.Error("failed to load persisted state, starting empty", slog.String("error", err.Error()))
		snap = model.NewSnapshot()
	}

	snap.Normalize()
	s.snap = snap
	return s
}

// Read runs fn with the current snapshot under the lock.
// fn must not keep references to the snapshot after it returns; copy what you need.
func (s *Store) Read(fn func(snap *model.Snapshot)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(s.snap)
}

// Update runs fn under the lock and, if fn succeeds, saves the snapshot.
//
// FIRE-AND-FORGET SAVE:
// A failed save is logged and swallowed. The in-memory change stays in place
// and the caller still sees success; the durable copy catches up on the next
// successful save.
//
// Saves run on context.WithoutCancel(ctx): once fn has changed memory, a
// client disconnect does not decide whether the change reaches disk.
func (s *Store) Update(ctx context.Context, fn func(snap *model.Snapshot) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := fn(s.snap); err != nil {
		return err
	}
	if err := s.repo.Save(context.WithoutCancel(ctx), s.snap); err != nil {
		s.logger.Error("failed to persist state", slog.String("error", err.Error()))
	}
	return nil
}

// UpdateDurable is like Update but reports a failed save to the caller as an
// apperror.ErrPersistence error. The in-memory change is NOT rolled back.
func (s *Store) UpdateDurable(ctx context.Context, fn func(snap *model.Snapshot) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := fn(s.snap); err != nil {
		return err
	}
	if err := s.repo.Save(context.WithoutCancel(ctx), s.snap); err != nil {
		s.logger.Error("failed to persist state", slog.String("error", err.Error()))
		return apperror.Persistence("failed to save data", fmt.Errorf("state: %w", err))
	}
	return nil
}

// Close releases the underlying repository.
func (s *Store) Close() error {
	return s.repo.Close()
}
