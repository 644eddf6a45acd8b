package verification

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/require"
)

func TestRedisStore_ConsumeOnce(t *testing.T) {
	mr := miniredis.RunT(t)
	s := NewRedisStore(mr.Addr(), "", 0)
	defer s.Close()

	ctx := context.Background()
	require.NoError(t, s.Ping(ctx))
	require.NoError(t, s.Store(ctx, "5550001", "123456", 5*time.Minute))
	require.True(t, mr.Exists("verification:5550001"))

	ok, err := s.ConsumeIfValid(ctx, "5550001", "000000")
	require.NoError(t, err)
	require.False(t, ok)

	ok, err = s.ConsumeIfValid(ctx, "5550001", "123456")
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = s.ConsumeIfValid(ctx, "5550001", "123456")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestRedisStore_Expired(t *testing.T) {
	mr := miniredis.RunT(t)
	s := NewRedisStore(mr.Addr(), "", 0)
	defer s.Close()

	ctx := context.Background()
	require.NoError(t, s.Store(ctx, "k", "111111", 5*time.Minute))
	mr.FastForward(5 * time.Minute)

	ok, err := s.ConsumeIfValid(ctx, "k", "111111")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestRedisStore_Unavailable(t *testing.T) {
	mr := miniredis.RunT(t)
	s := NewRedisStore(mr.Addr(), "", 0)
	defer s.Close()
	mr.Close()

	_, err := s.ConsumeIfValid(context.Background(), "k", "1")
	require.Error(t, err)
}
