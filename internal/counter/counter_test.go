package counter

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "counter.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func newRedisStore(t *testing.T) *RedisStore {
	t.Helper()
	mr := miniredis.RunT(t)
	s, err := NewRedisStore(mr.Addr(), "", 0)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func stores(t *testing.T) map[string]Store {
	return map[string]Store{
		BackendMemory: NewMemoryStore(),
		BackendSQLite: newSQLiteStore(t),
		BackendRedis:  newRedisStore(t),
	}
}

func TestServiceGetIncrement(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			svc := NewService(store)

			v, err := svc.Get(ctx)
			require.NoError(t, err)
			assert.Equal(t, int64(0), v)

			v, err = svc.Increment(ctx, 1)
			require.NoError(t, err)
			assert.Equal(t, int64(1), v)

			v, err = svc.Increment(ctx, 0)
			require.NoError(t, err)
			assert.Equal(t, int64(2), v, "zero counts as one")

			v, err = svc.Increment(ctx, 5)
			require.NoError(t, err)
			assert.Equal(t, int64(7), v)

			v, err = svc.Get(ctx)
			require.NoError(t, err)
			assert.Equal(t, int64(7), v)
		})
	}
}

func TestServiceConcurrentIncrements(t *testing.T) {
	const workers = 50

	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			svc := NewService(store)

			var wg sync.WaitGroup
			for i := 0; i < workers; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					_, err := svc.Increment(ctx, 1)
					assert.NoError(t, err)
				}()
			}
			wg.Wait()

			v, err := svc.Get(ctx)
			require.NoError(t, err)
			assert.Equal(t, int64(workers), v)
		})
	}
}

func TestServiceRejectsNegativeAmount(t *testing.T) {
	svc := NewService(NewMemoryStore())

	_, err := svc.Increment(context.Background(), -3)

	assert.ErrorIs(t, err, ErrInvalidAmount)
}

type brokenStore struct{}

var errOffline = errors.New("offline")

func (brokenStore) Get(context.Context, string) (int64, error) { return 0, errOffline }
func (brokenStore) IncrBy(context.Context, string, int64) (int64, error) {
	return 0, errOffline
}
func (brokenStore) Close() error { return nil }

func TestServiceWrapsStoreErrors(t *testing.T) {
	svc := NewService(brokenStore{})

	_, err := svc.Get(context.Background())
	assert.ErrorIs(t, err, errOffline)

	_, err = svc.Increment(context.Background(), 1)
	assert.ErrorIs(t, err, errOffline)
}

func TestSQLiteStorePersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "counter.db")
	ctx := context.Background()

	s, err := NewSQLiteStore(path)
	require.NoError(t, err)
	_, err = s.IncrBy(ctx, Key, 3)
	require.NoError(t, err)
	require.NoError(t, s.Close())

	reopened, err := NewSQLiteStore(path)
	require.NoError(t, err)
	defer reopened.Close()

	v, err := reopened.Get(ctx, Key)
	require.NoError(t, err)
	assert.Equal(t, int64(3), v)
}

func TestSQLiteStoreUnopenablePath(t *testing.T) {
	_, err := NewSQLiteStore(filepath.Join(t.TempDir(), "missing", "counter.db"))

	require.Error(t, err)
	assert.Contains(t, err.Error(), "PRAGMA journal_mode=WAL failed")
}

func TestRedisStoreUnreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	_, err := NewRedisStore(addr, "", 0)

	assert.Error(t, err)
}

func TestOpenStore(t *testing.T) {
	ctx := context.Background()

	s, err := OpenStore(ctx, Options{})
	require.NoError(t, err)
	assert.IsType(t, &MemoryStore{}, s)

	s, err = OpenStore(ctx, Options{Backend: BackendSQLite, SQLitePath: filepath.Join(t.TempDir(), "c.db")})
	require.NoError(t, err)
	assert.IsType(t, &SQLiteStore{}, s)
	s.Close()

	_, err = OpenStore(ctx, Options{Backend: "etcd"})
	assert.Error(t, err)
}
