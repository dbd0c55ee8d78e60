package budget

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// exerciseStore checks the behavior every Store shares.
func exerciseStore(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()

	n, err := s.Get(ctx, "tpd:openai:2025-01-01")
	require.NoError(t, err)
	assert.Zero(t, n)

	n, err = s.IncrBy(ctx, "tpd:openai:2025-01-01", 120, time.Hour)
	require.NoError(t, err)
	assert.Equal(t, int64(120), n)

	n, err = s.IncrBy(ctx, "tpd:openai:2025-01-01", 30, time.Hour)
	require.NoError(t, err)
	assert.Equal(t, int64(150), n)

	n, err = s.Get(ctx, "tpd:openai:2025-01-01")
	require.NoError(t, err)
	assert.Equal(t, int64(150), n)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.IncrBy(ctx, "concurrent", 1, time.Hour)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	n, err = s.Get(ctx, "concurrent")
	require.NoError(t, err)
	assert.Equal(t, int64(20), n)
}

func TestMemoryStore(t *testing.T) {
	s := NewMemoryStore()
	exerciseStore(t, s)
}

func TestMemoryStore_Expiry(t *testing.T) {
	s := NewMemoryStore()
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }
	ctx := context.Background()

	_, err := s.IncrBy(ctx, "k", 5, 36*time.Hour)
	require.NoError(t, err)

	now = now.Add(35 * time.Hour)
	n, _ := s.Get(ctx, "k")
	assert.Equal(t, int64(5), n)

	now = now.Add(time.Hour)
	n, _ = s.Get(ctx, "k")
	assert.Zero(t, n)

	require.NoError(t, s.Close())
	_, err = s.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrClosed)
}

func TestRedisStore(t *testing.T) {
	mr := miniredis.RunT(t)
	s, err := NewRedisStore(context.Background(), "redis://"+mr.Addr()+"/0")
	require.NoError(t, err)
	defer s.Close()

	exerciseStore(t, s)

	_, err = s.IncrBy(context.Background(), "ttl", 1, 36*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 36*time.Hour, mr.TTL("ttl"))

	mr.FastForward(37 * time.Hour)
	n, err := s.Get(context.Background(), "ttl")
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestRedisStore_Unreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	_, err := NewRedisStore(context.Background(), "redis://"+addr)
	assert.Error(t, err)

	_, err = NewRedisStore(context.Background(), "not a url")
	assert.Error(t, err)
}

func TestBadgerStore(t *testing.T) {
	s, err := NewBadgerStore("")
	require.NoError(t, err)
	defer s.Close()

	exerciseStore(t, s)
}

func TestBadgerStore_SurvivesReopen(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	s, err := NewBadgerStore(dir)
	require.NoError(t, err)
	_, err = s.IncrBy(ctx, "tpd:openai:2025-01-01", 42, time.Hour)
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s, err = NewBadgerStore(dir)
	require.NoError(t, err)
	defer s.Close()
	n, err := s.Get(ctx, "tpd:openai:2025-01-01")
	require.NoError(t, err)
	assert.Equal(t, int64(42), n)
}
