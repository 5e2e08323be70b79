package storage

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

type payload struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

func TestMemoryStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	_, err := store.Load(ctx, "missing")
	require.ErrorIs(t, err, ErrNotFound)

	value := []byte("abc")
	require.NoError(t, store.Save(ctx, "k", value))
	value[0] = 'z'

	got, err := store.Load(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "abc", string(got), "store must keep its own copy")

	require.NoError(t, store.Delete(ctx, "k"))
	_, err = store.Load(ctx, "k")
	require.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, 0, store.Len())
}

func TestJSONHelpers(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	var dest payload
	found, err := LoadJSON(ctx, store, "cart", &dest)
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, SaveJSON(ctx, store, "cart", payload{Name: "a", Count: 2}))
	found, err = LoadJSON(ctx, store, "cart", &dest)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, payload{Name: "a", Count: 2}, dest)

	require.NoError(t, store.Save(ctx, "broken", []byte("{")))
	_, err = LoadJSON(ctx, store, "broken", &dest)
	require.Error(t, err)
}

func newSQLStore(t *testing.T) *SQLStore {
	t.Helper()
	dsn := "file:kv_" + uuid.NewString() + "?mode=memory&cache=shared"
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(&Entry{}))
	store, err := NewSQLStore(conn)
	require.NoError(t, err)
	return store
}

func TestSQLStoreUpsertAndDelete(t *testing.T) {
	ctx := context.Background()
	store := newSQLStore(t)

	_, err := store.Load(ctx, "cart:s1:items")
	require.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, store.Save(ctx, "cart:s1:items", []byte(`[1]`)))
	require.NoError(t, store.Save(ctx, "cart:s1:items", []byte(`[1,2]`)))

	got, err := store.Load(ctx, "cart:s1:items")
	require.NoError(t, err)
	assert.Equal(t, `[1,2]`, string(got))

	var count int64
	require.NoError(t, store.db.Model(&Entry{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)

	require.NoError(t, store.Delete(ctx, "cart:s1:items"))
	_, err = store.Load(ctx, "cart:s1:items")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestNewSQLStoreRequiresDB(t *testing.T) {
	_, err := NewSQLStore(nil)
	require.Error(t, err)
}

type fakeRedis struct {
	data map[string][]byte
	ttls map[string]time.Duration
}

func newFakeRedis() *fakeRedis {
	return &fakeRedis{data: map[string][]byte{}, ttls: map[string]time.Duration{}}
}

func (f *fakeRedis) Set(_ context.Context, key string, value any, ttl time.Duration) error {
	f.data[key] = value.([]byte)
	f.ttls[key] = ttl
	return nil
}

func (f *fakeRedis) SetIfExists(ctx context.Context, key string, value any, ttl time.Duration) (bool, error) {
	if _, ok := f.data[key]; !ok {
		return false, nil
	}
	return true, f.Set(ctx, key, value, ttl)
}

func (f *fakeRedis) GetBytes(_ context.Context, key string) ([]byte, error) {
	value, ok := f.data[key]
	if !ok {
		return nil, goredis.Nil
	}
	return value, nil
}

func (f *fakeRedis) Del(_ context.Context, keys ...string) error {
	for _, key := range keys {
		delete(f.data, key)
	}
	return nil
}

func (f *fakeRedis) Key(parts ...string) string {
	out := "cp"
	for _, p := range parts {
		out += ":" + p
	}
	return out
}

func TestRedisStoreNamespacesAndExpires(t *testing.T) {
	ctx := context.Background()
	backend := newFakeRedis()
	store, err := NewRedisStore(backend, time.Hour)
	require.NoError(t, err)

	_, err = store.Load(ctx, "cart:s1:items")
	require.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, store.Save(ctx, "cart:s1:items", []byte("x")))
	assert.Contains(t, backend.data, "cp:cart:s1:items")
	assert.Equal(t, time.Hour, backend.ttls["cp:cart:s1:items"])

	got, err := store.Load(ctx, "cart:s1:items")
	require.NoError(t, err)
	assert.Equal(t, "x", string(got))

	require.NoError(t, store.Delete(ctx, "cart:s1:items"))
	assert.Empty(t, backend.data)
}

// gatedStore blocks every Save until release is closed.
type gatedStore struct {
	*MemoryStore
	release chan struct{}
	mu      sync.Mutex
	saves   []string
	fail    error
}

func newGatedStore() *gatedStore {
	return &gatedStore{MemoryStore: NewMemoryStore(), release: make(chan struct{})}
}

func (g *gatedStore) Save(ctx context.Context, key string, value []byte) error {
	<-g.release
	g.mu.Lock()
	g.saves = append(g.saves, string(value))
	fail := g.fail
	g.mu.Unlock()
	if fail != nil {
		return fail
	}
	return g.MemoryStore.Save(ctx, key, value)
}

func TestWriteBehindReadsPendingWrites(t *testing.T) {
	ctx := context.Background()
	backing := newGatedStore()
	wb, err := NewWriteBehind(backing, nil)
	require.NoError(t, err)

	require.NoError(t, wb.Save(ctx, "k", []byte("v1")))
	got, err := wb.Load(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "v1", string(got))

	require.NoError(t, wb.Delete(ctx, "k"))
	_, err = wb.Load(ctx, "k")
	require.ErrorIs(t, err, ErrNotFound)

	close(backing.release)
	flushCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	require.NoError(t, wb.Flush(flushCtx))

	_, err = backing.MemoryStore.Load(ctx, "k")
	require.ErrorIs(t, err, ErrNotFound)
	require.NoError(t, wb.Close(flushCtx))
}

func TestWriteBehindLastWriteWins(t *testing.T) {
	ctx := context.Background()
	backing := newGatedStore()
	wb, err := NewWriteBehind(backing, nil)
	require.NoError(t, err)

	for _, v := range []string{"a", "b", "c", "d"} {
		require.NoError(t, wb.Save(ctx, "k", []byte(v)))
	}
	close(backing.release)

	flushCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	require.NoError(t, wb.Flush(flushCtx))

	got, err := backing.MemoryStore.Load(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "d", string(got))

	backing.mu.Lock()
	saves := len(backing.saves)
	backing.mu.Unlock()
	assert.LessOrEqual(t, saves, 2, "superseded writes should be coalesced")
	require.NoError(t, wb.Close(flushCtx))
}

func TestWriteBehindFlushHonoursContext(t *testing.T) {
	backing := newGatedStore()
	wb, err := NewWriteBehind(backing, nil)
	require.NoError(t, err)

	require.NoError(t, wb.Save(context.Background(), "k", []byte("v")))
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	require.ErrorIs(t, wb.Flush(ctx), context.DeadlineExceeded)

	close(backing.release)
	closeCtx, cancelClose := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelClose()
	require.NoError(t, wb.Close(closeCtx))
}

func TestWriteBehindRejectsWritesAfterClose(t *testing.T) {
	backing := newGatedStore()
	close(backing.release)
	backing.fail = errors.New("ignored")
	wb, err := NewWriteBehind(backing, nil)
	require.NoError(t, err)

	require.NoError(t, wb.Close(context.Background()))
	require.ErrorIs(t, wb.Save(context.Background(), "k", []byte("v")), ErrClosed)
}

func TestReplaceOnlyOverwritesExistingKeys(t *testing.T) {
	redisStore, err := NewRedisStore(newFakeRedis(), time.Hour)
	require.NoError(t, err)

	stores := map[string]Store{
		"memory": NewMemoryStore(),
		"sql":    newSQLStore(t),
		"redis":  redisStore,
	}
	for name, store := range stores {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			replaced, err := store.Replace(ctx, "auth:session:s1", []byte("v1"))
			require.NoError(t, err)
			assert.False(t, replaced)
			_, err = store.Load(ctx, "auth:session:s1")
			require.ErrorIs(t, err, ErrNotFound)

			require.NoError(t, store.Save(ctx, "auth:session:s1", []byte("v1")))
			replaced, err = store.Replace(ctx, "auth:session:s1", []byte("v2"))
			require.NoError(t, err)
			assert.True(t, replaced)

			got, err := store.Load(ctx, "auth:session:s1")
			require.NoError(t, err)
			assert.Equal(t, "v2", string(got))

			require.NoError(t, store.Delete(ctx, "auth:session:s1"))
			replaced, err = store.Replace(ctx, "auth:session:s1", []byte("v3"))
			require.NoError(t, err)
			assert.False(t, replaced)
		})
	}
}

func TestWriteBehindReplaceRespectsQueuedDelete(t *testing.T) {
	ctx := context.Background()
	backing := newGatedStore()
	require.NoError(t, backing.MemoryStore.Save(ctx, "k", []byte("stored")))
	wb, err := NewWriteBehind(backing, nil)
	require.NoError(t, err)

	replaced, err := wb.Replace(ctx, "missing", []byte("x"))
	require.NoError(t, err)
	assert.False(t, replaced)

	replaced, err = wb.Replace(ctx, "k", []byte("refreshed"))
	require.NoError(t, err)
	assert.True(t, replaced)
	got, err := wb.Load(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "refreshed", string(got))

	require.NoError(t, wb.Delete(ctx, "k"))
	replaced, err = wb.Replace(ctx, "k", []byte("too late"))
	require.NoError(t, err)
	assert.False(t, replaced)

	close(backing.release)
	flushCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	require.NoError(t, wb.Flush(flushCtx))

	_, err = backing.MemoryStore.Load(ctx, "k")
	require.ErrorIs(t, err, ErrNotFound)
	_, err = backing.MemoryStore.Load(ctx, "missing")
	require.ErrorIs(t, err, ErrNotFound)
	require.NoError(t, wb.Close(flushCtx))
}
