package redis

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/uploader-auth/internal/apperror"
)

// newTestStore starts an in-process Redis and connects a Store to it.
// miniredis speaks the real protocol, so these tests exercise go-redis end
// to end without a server on the machine.
func newTestStore(t *testing.T) (*Store, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)

	s, err := New(context.Background(), "redis://"+mr.Addr())
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	return s, mr
}

func TestNew_BadURL(t *testing.T) {
	_, err := New(context.Background(), "not a url")
	assert.Error(t, err)
}

func TestPutGet(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, "session/1/abc", "alice", time.Hour))

	got, err := s.Get(ctx, "session/1/abc")
	require.NoError(t, err)
	assert.Equal(t, "alice", got)
}

func TestPut_SetsExactTTL(t *testing.T) {
	s, mr := newTestStore(t)

	ttl := 30 * 24 * time.Hour
	require.NoError(t, s.Put(context.Background(), "github-token/1/alice", "tok1", ttl))

	assert.Equal(t, ttl, mr.TTL("github-token/1/alice"))
}

func TestPut_Overwrites(t *testing.T) {
	s, mr := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, "github-token/1/alice", "old", time.Hour))
	require.NoError(t, s.Put(ctx, "github-token/1/alice", "new", 2*time.Hour))

	got, err := s.Get(ctx, "github-token/1/alice")
	require.NoError(t, err)
	assert.Equal(t, "new", got)
	assert.Equal(t, 2*time.Hour, mr.TTL("github-token/1/alice"))
}

func TestPut_RejectsNonPositiveTTL(t *testing.T) {
	s, _ := newTestStore(t)
	assert.Error(t, s.Put(context.Background(), "k", "v", 0))
}

func TestGet_ExpiredIsNotFound(t *testing.T) {
	s, mr := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, "session/1/abc", "alice", time.Minute))
	mr.FastForward(time.Minute)

	_, err := s.Get(ctx, "session/1/abc")
	assert.True(t, errors.Is(err, apperror.ErrNotFound), "got %v", err)
}

func TestDelete(t *testing.T) {
	s, mr := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, "session/1/abc", "alice", time.Hour))
	require.NoError(t, s.Delete(ctx, "session/1/abc"))
	assert.False(t, mr.Exists("session/1/abc"))

	// missing key
	assert.NoError(t, s.Delete(ctx, "session/1/abc"))
}

func TestPing_ServerGone(t *testing.T) {
	s, mr := newTestStore(t)

	require.NoError(t, s.Ping(context.Background()))
	mr.Close()
	assert.Error(t, s.Ping(context.Background()))
}
