package storefront

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/angelmondragon/cinepass/internal/cart"
	"github.com/angelmondragon/cinepass/internal/catalog"
	"github.com/angelmondragon/cinepass/internal/coupons"
	pkgerrors "github.com/angelmondragon/cinepass/pkg/errors"
	"github.com/angelmondragon/cinepass/pkg/money"
	"github.com/angelmondragon/cinepass/pkg/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type anonymous struct{}

func (anonymous) IsAuthenticated(context.Context) (bool, error)    { return false, nil }
func (anonymous) CurrentUser(context.Context) (*cart.Buyer, error) { return nil, nil }

type discardHistory struct{}

func (discardHistory) Record(context.Context, *cart.OrderSnapshot) error { return nil }

func newTestRegistry(t *testing.T, store storage.Store) (*Registry, *time.Time) {
	t.Helper()
	reg, err := NewRegistry(Params{
		Movies:    catalog.Default(),
		Coupons:   coupons.Default(),
		Store:     store,
		History:   discardHistory{},
		AuthFor:   func(string) cart.AuthProvider { return anonymous{} },
		Cart:      cart.Config{Pricing: cart.Pricing{ConvenienceFee: money.MustParse("5.00")}},
		IdleAfter: 10 * time.Minute,
	})
	require.NoError(t, err)
	now := time.Date(2024, 8, 1, 18, 0, 0, 0, time.UTC)
	reg.WithClock(func() time.Time { return now })
	return reg, &now
}

func TestNewRegistryRequiresDependencies(t *testing.T) {
	_, err := NewRegistry(Params{})
	require.Error(t, err)
}

func TestDoBuildsOneWorkspacePerSession(t *testing.T) {
	reg, _ := newTestRegistry(t, storage.NewMemoryStore())
	ctx := context.Background()

	var first *Workspace
	require.NoError(t, reg.Do(ctx, "s1", func(ctx context.Context, ws *Workspace) error {
		first = ws
		_, err := ws.Ledger().AddItem(ctx, 1, cart.AddOptions{})
		return err
	}))
	require.NoError(t, reg.Do(ctx, "s1", func(_ context.Context, ws *Workspace) error {
		assert.Same(t, first, ws)
		assert.Len(t, ws.Ledger().Items(), 1)
		assert.NotNil(t, ws.Flow())
		assert.NotNil(t, ws.Auth())
		assert.Equal(t, "s1", ws.SessionID())
		return nil
	}))
	require.NoError(t, reg.Do(ctx, "s2", func(_ context.Context, ws *Workspace) error {
		assert.True(t, ws.Ledger().IsEmpty())
		return nil
	}))
	assert.Equal(t, 2, reg.Len())
}

func TestDoRejectsBlankSession(t *testing.T) {
	reg, _ := newTestRegistry(t, storage.NewMemoryStore())
	err := reg.Do(context.Background(), "  ", func(context.Context, *Workspace) error { return nil })
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeNotAuthenticated))
}

func TestDoSerializesSameSession(t *testing.T) {
	reg, _ := newTestRegistry(t, storage.NewMemoryStore())
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = reg.Do(ctx, "busy", func(ctx context.Context, ws *Workspace) error {
				_, err := ws.Ledger().AddItem(ctx, 2, cart.AddOptions{})
				return err
			})
		}()
	}
	wg.Wait()

	require.NoError(t, reg.Do(ctx, "busy", func(_ context.Context, ws *Workspace) error {
		assert.Equal(t, 20, ws.Ledger().TotalQuantity())
		return nil
	}))
}

func TestSweepDropsIdleWorkspacesAndCartSurvives(t *testing.T) {
	store := storage.NewMemoryStore()
	reg, now := newTestRegistry(t, store)
	ctx := context.Background()

	require.NoError(t, reg.Do(ctx, "idle", func(ctx context.Context, ws *Workspace) error {
		_, err := ws.Ledger().AddItem(ctx, 3, cart.AddOptions{Quantity: 2})
		return err
	}))

	*now = now.Add(5 * time.Minute)
	require.NoError(t, reg.Do(ctx, "fresh", func(context.Context, *Workspace) error { return nil }))
	assert.Equal(t, 0, reg.Sweep(ctx))

	*now = now.Add(6 * time.Minute)
	assert.Equal(t, 1, reg.Sweep(ctx))
	assert.Equal(t, 1, reg.Len())

	require.NoError(t, reg.Do(ctx, "idle", func(_ context.Context, ws *Workspace) error {
		assert.Equal(t, 2, ws.Ledger().TotalQuantity())
		return nil
	}))
}
