package state

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/price-compare/internal/apperror"
	"github.com/sakif/price-compare/internal/model"
	"github.com/sakif/price-compare/internal/repository"
)

// fakeRepo is an in-memory SnapshotRepository.
// loadErr / saveErr let each test force the failure it wants to observe.
type fakeRepo struct {
	mu      sync.Mutex
	stored  *model.Snapshot
	loadErr error
	saveErr error
	saves   int
	closed  bool

	// saveCtxErr is ctx.Err() as seen by the last Save.
	saveCtxErr error
}

func (f *fakeRepo) Load(_ context.Context) (*model.Snapshot, error) {
	if f.loadErr != nil {
		return nil, f.loadErr
	}
	if f.stored == nil {
		return nil, repository.ErrNoSnapshot
	}
	return f.stored, nil
}

func (f *fakeRepo) Save(ctx context.Context, snap *model.Snapshot) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saves++
	f.saveCtxErr = ctx.Err()
	if f.saveErr != nil {
		return f.saveErr
	}
	f.stored = snap
	return nil
}

func (f *fakeRepo) Close() error {
	f.closed = true
	return nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestOpen_NoSnapshotWritesEmptyOne(t *testing.T) {
	repo := &fakeRepo{}

	s := Open(context.Background(), repo, discardLogger())

	assert.Equal(t, 1, repo.saves)
	require.NotNil(t, repo.stored)
	s.Read(func(snap *model.Snapshot) {
		assert.NotNil(t, snap.Carts)
		assert.NotNil(t, snap.Users)
		assert.Nil(t, snap.Products)
	})
}

func TestOpen_LoadFailureStartsEmpty(t *testing.T) {
	repo := &fakeRepo{loadErr: errors.New("disk on fire")}

	s := Open(context.Background(), repo, discardLogger())

	assert.Equal(t, 0, repo.saves, "a corrupt store is not overwritten at startup")
	s.Read(func(snap *model.Snapshot) {
		assert.Empty(t, snap.Users)
		assert.Empty(t, snap.Carts)
	})
}

func TestOpen_UsesLoadedSnapshot(t *testing.T) {
	stored := model.NewSnapshot()
	stored.Users = []model.User{{ID: "user_1", Email: "ada@example.com"}}
	repo := &fakeRepo{stored: stored}

	s := Open(context.Background(), repo, discardLogger())

	s.Read(func(snap *model.Snapshot) {
		require.Len(t, snap.Users, 1)
		assert.Equal(t, "user_1", snap.Users[0].ID)
	})
}

func TestUpdate_SavesAfterMutation(t *testing.T) {
	repo := &fakeRepo{}
	s := Open(context.Background(), repo, discardLogger())

	err := s.Update(context.Background(), func(snap *model.Snapshot) error {
		snap.Carts["u1"] = model.NewCart()
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 2, repo.saves)
	assert.Contains(t, repo.stored.Carts, "u1")
}

func TestUpdate_CallbackErrorSkipsSave(t *testing.T) {
	repo := &fakeRepo{}
	s := Open(context.Background(), repo, discardLogger())
	before := repo.saves

	err := s.Update(context.Background(), func(_ *model.Snapshot) error {
		return apperror.ValidationFailed("vendor", "unknown vendor")
	})

	assert.ErrorIs(t, err, apperror.ErrValidation)
	assert.Equal(t, before, repo.saves)
}

func TestUpdate_SaveFailureIsSwallowed(t *testing.T) {
	repo := &fakeRepo{}
	s := Open(context.Background(), repo, discardLogger())
	repo.saveErr = errors.New("read-only filesystem")

	err := s.Update(context.Background(), func(snap *model.Snapshot) error {
		snap.Carts["u1"] = model.NewCart()
		return nil
	})

	assert.NoError(t, err)
	s.Read(func(snap *model.Snapshot) {
		assert.Contains(t, snap.Carts, "u1", "in-memory change is kept")
	})
}

func TestUpdateDurable_SaveFailureIsReported(t *testing.T) {
	repo := &fakeRepo{}
	s := Open(context.Background(), repo, discardLogger())
	repo.saveErr = errors.New("read-only filesystem")

	err := s.UpdateDurable(context.Background(), func(snap *model.Snapshot) error {
		snap.Users = append(snap.Users, model.User{ID: "user_1"})
		return nil
	})

	assert.ErrorIs(t, err, apperror.ErrPersistence)
	s.Read(func(snap *model.Snapshot) {
		assert.Len(t, snap.Users, 1, "in-memory change is not rolled back")
	})
}

func TestUpdate_ConcurrentMutationsAreSerialized(t *testing.T) {
	repo := &fakeRepo{}
	s := Open(context.Background(), repo, discardLogger())

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = s.Update(context.Background(), func(snap *model.Snapshot) error {
				cart, ok := snap.Carts["shared"]
				if !ok {
					cart = model.NewCart()
					snap.Carts["shared"] = cart
				}
				cart.Items = append(cart.Items, model.CartItem{Quantity: 1})
				return nil
			})
		}()
	}
	wg.Wait()

	s.Read(func(snap *model.Snapshot) {
		assert.Len(t, snap.Carts["shared"].Items, 50)
	})
}

func TestClose_ClosesRepository(t *testing.T) {
	repo := &fakeRepo{}
	s := Open(context.Background(), repo, discardLogger())

	require.NoError(t, s.Close())
	assert.True(t, repo.closed)
}

func TestUpdate_SaveIgnoresCancelledRequest(t *testing.T) {
	repo := &fakeRepo{}
	s := Open(context.Background(), repo, discardLogger())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.NoError(t, s.Update(ctx, func(snap *model.Snapshot) error {
		snap.Carts["u1"] = model.NewCart()
		return nil
	}))
	assert.NoError(t, repo.saveCtxErr)
	assert.Contains(t, repo.stored.Carts, "u1")

	require.NoError(t, s.UpdateDurable(ctx, func(snap *model.Snapshot) error {
		snap.Carts["u2"] = model.NewCart()
		return nil
	}))
	assert.NoError(t, repo.saveCtxErr)
	assert.Contains(t, repo.stored.Carts, "u2")
}
